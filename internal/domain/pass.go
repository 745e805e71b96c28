package domain

import "time"

// PassImageHandle is the vendor-assigned reference to an uploaded image.
// It is only meaningful inside the vendor's namespace.
type PassImageHandle string

// PassRecord is the result of a successful vendor pass creation.
type PassRecord struct {
	PassID          string `json:"passId"`
	AppleWalletURL  string `json:"appleWalletUrl"`
	GoogleWalletURL string `json:"googleWalletUrl"`
}

// PassField is one labelled value printed on the pass.
type PassField struct {
	Key   string
	Label string
	Value string
}

// PassBarcode describes the barcode rendered on the pass.
type PassBarcode struct {
	Message  string
	Format   string
	Encoding string
	AltText  string
}

// PassRequest is the vendor-neutral field set submitted when creating a pass.
type PassRequest struct {
	Description       string
	OrganizationName  string
	BackgroundColor   string
	ForegroundColor   string
	LabelColor        string
	Fields            []PassField
	Image             PassImageHandle // applied to the icon, logo and strip slots
	Barcode           PassBarcode
	SharingProhibited bool
	ExpiresAt         time.Time
}

// Pass event types.
const (
	PassEventProvisioned = "pass.provisioned"
	PassEventDegraded    = "pass.degraded"
)

// PassEvent records the outcome of one provisioning run.
type PassEvent struct {
	EventID     string    `json:"event_id"`
	Type        string    `json:"type"`
	Email       string    `json:"email"`
	StudentID   string    `json:"student_id"`
	PassID      string    `json:"pass_id,omitempty"`
	FailedStage string    `json:"failed_stage,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
