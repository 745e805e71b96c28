package pass

import (
	"time"

	"github.com/virtual-id-api/internal/domain"
)

// Card layout shared by every issued pass.
const (
	passDescription  = "TSU Student ID Card"
	organizationName = "Tennessee State University"
	backgroundColor  = "rgb(0, 51, 160)"
	foregroundColor  = "rgb(255, 255, 255)"
	labelColor       = "rgb(255, 255, 255)"
	validUntilLabel  = "December 1, 2026"
	barcodeFormat    = "PKBarcodeFormatCode128"
	barcodeEncoding  = "iso-8859-1"
)

// ValidUntil is the expiration instant of every issued pass.
var ValidUntil = time.Date(2026, time.December, 1, 23, 59, 59, 0, time.UTC)

// NewPassRequest builds the vendor pass definition for a student.
func NewPassRequest(student domain.StudentProfile, image domain.PassImageHandle) *domain.PassRequest {
	return &domain.PassRequest{
		Description:      passDescription,
		OrganizationName: organizationName,
		BackgroundColor:  backgroundColor,
		ForegroundColor:  foregroundColor,
		LabelColor:       labelColor,
		Fields: []domain.PassField{
			{Key: "name", Label: "NAME", Value: student.Name},
			{Key: "studentId", Label: "T NUMBER", Value: student.StudentID},
			{Key: "major", Label: "MAJOR", Value: student.Major},
			{Key: "classification", Label: "CLASSIFICATION", Value: student.Classification},
			{Key: "validUntil", Label: "VALID UNTIL", Value: validUntilLabel},
		},
		Image: image,
		Barcode: domain.PassBarcode{
			Message:  student.StudentID,
			Format:   barcodeFormat,
			Encoding: barcodeEncoding,
			AltText:  student.StudentID,
		},
		SharingProhibited: true,
		ExpiresAt:         ValidUntil,
	}
}
