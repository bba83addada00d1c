// Package message implements the outbound message gateway: it shapes a
// validated request into the engine's send primitives and passes the
// engine's delivery acknowledgment through verbatim.
package message

import (
	"fmt"
	"net/url"

	"github.com/piyushkb/WhastapWeb/errors"
)

// Kind discriminates the four outbound message shapes.
type Kind string

// Supported message kinds.
const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindDocument Kind = "document"
	KindVideo    Kind = "video"
)

// Request is one outbound message request. Immutable once validated;
// consumed exactly once by the gateway.
type Request struct {
	Kind    Kind
	Session string
	To      string
	// Text is the message body for KindText and the optional caption for
	// the media kinds.
	Text string
	// MediaURL references the attachment for the media kinds.
	MediaURL string
	// Filename is the display name for KindDocument.
	Filename string
}

// Validate checks the per-kind preconditions. The HTTP schemas reject the
// same violations earlier; this is the gateway's own boundary check so the
// component stands alone.
func (r Request) Validate() error {
	if r.Session == "" {
		return errors.WrapInvalid(errors.ErrSessionNameRequired, "Request", "Validate", "session check")
	}
	if r.To == "" {
		return errors.Validation("message", "validate", "Validation failed",
			errors.FieldError{Field: "to", Description: "is required"})
	}

	switch r.Kind {
	case KindText:
		if r.Text == "" {
			return errors.Validation("message", "validate", "Validation failed",
				errors.FieldError{Field: "message", Description: "is required"})
		}
	case KindImage:
		if !validMediaURL(r.MediaURL) {
			return errors.Validation("message", "validate", "Validation failed",
				errors.FieldError{Field: "image", Description: "must be a valid URL"})
		}
	case KindDocument:
		if !validMediaURL(r.MediaURL) {
			return errors.Validation("message", "validate", "Validation failed",
				errors.FieldError{Field: "document", Description: "must be a valid URL"})
		}
		if r.Filename == "" {
			return errors.Validation("message", "validate", "Validation failed",
				errors.FieldError{Field: "document_name", Description: "is required"})
		}
	case KindVideo:
		if !validMediaURL(r.MediaURL) {
			return errors.Validation("message", "validate", "Validation failed",
				errors.FieldError{Field: "video", Description: "must be a valid URL"})
		}
	default:
		return errors.WrapInvalid(fmt.Errorf("unknown message kind %q", r.Kind), "Request", "Validate", "kind check")
	}
	return nil
}

// validMediaURL requires scheme and host; a bare word like "not-a-url"
// parses but has neither.
func validMediaURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
