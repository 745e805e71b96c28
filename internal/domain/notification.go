package domain

// Attachment is a binary file sent along with a notification.
type Attachment struct {
	Filename  string
	MediaType string
	Content   []byte
}

// NotificationMessage is a single outbound email. It is built once per
// request and handed to the mail transport.
type NotificationMessage struct {
	From       string
	Recipient  string
	Subject    string
	HTMLBody   string
	TextBody   string
	Attachment *Attachment
}
