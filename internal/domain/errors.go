package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
	ErrUpstream     = errors.New("upstream failure")
)

// OTP verification failures. Each also matches ErrUnauthorized.
var (
	ErrOTPNotFound = authError("No OTP found")
	ErrOTPExpired  = authError("OTP expired")
	ErrOTPMismatch = authError("Invalid OTP")
)

// Pipeline stage failures and the notification stage failure. Each also matches ErrUpstream.
var (
	ErrFetch    = upstreamError("image fetch failed")
	ErrUpload   = upstreamError("image upload failed")
	ErrCreation = upstreamError("pass creation failed")
	ErrDownload = upstreamError("pass download failed")
	ErrDelivery = upstreamError("email delivery failed")
)

type kindError struct {
	msg    string
	parent error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.parent }

func authError(msg string) error { return &kindError{msg: msg, parent: ErrUnauthorized} }

func upstreamError(msg string) error { return &kindError{msg: msg, parent: ErrUpstream} }
