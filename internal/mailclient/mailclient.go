// Package mailclient is the boundary to the hosting mail application. The
// scan pipeline only ever sees the Client interface; the file-backed
// implementation in this package reads RFC 822 messages from disk and writes
// compose drafts as .eml files, which keeps the pipeline testable without a
// running mail client.
package mailclient

import "context"

// Part is one leaf of a message's MIME tree with its body already decoded.
type Part struct {
	// MediaType is the lowercase media type, such as "text/html".
	MediaType string
	// Body is the decoded part content.
	Body string
}

// Message is a displayed message as the scan pipeline sees it.
type Message struct {
	// Subject is the decoded Subject header.
	Subject string
	// From is the raw From header value.
	From string
	// AuthResultsHeader is the raw Authentication-Results header value, empty
	// when the message carries none.
	AuthResultsHeader string
	// Parts are the text-bearing MIME leaves in document order.
	Parts []Part
	// Raw is the full original message, byte for byte, used when attaching
	// the message to a report draft.
	Raw []byte
}

// Attachment is one file attached to a compose draft.
type Attachment struct {
	// Filename is the suggested name, such as "original.eml".
	Filename string
	// MediaType is the attachment's media type, such as "message/rfc822".
	MediaType string
	// Body is the attachment content.
	Body []byte
}

// Draft is a report email to be placed in the user's drafts.
type Draft struct {
	To          []string
	Subject     string
	Body        string
	Attachments []Attachment
}

// Client is the mail-application boundary.
type Client interface {
	// Message loads the message identified by ref.
	Message(ctx context.Context, ref string) (*Message, error)
	// ComposeDraft stores a draft and returns its location.
	ComposeDraft(ctx context.Context, draft Draft) (string, error)
}
