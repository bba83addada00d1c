// Package errors implements the error taxonomy shared by every WhastapWeb
// component.
//
// Errors are classified into kinds that the HTTP surface maps onto status
// codes:
//
//	KindUnauthorized -> 401
//	KindInvalid      -> 400 (with field-level details when available)
//	KindConflict     -> 400 ("Session already exists")
//	KindNotFound     -> 400 ("Session does not exist")
//	KindTimeout      -> 504
//	KindEngine       -> 500
//
// Components wrap failures with the Wrap* helpers so the origin of an error
// stays readable in logs:
//
//	return errors.WrapEngine(err, "Orchestrator", "Start", "engine start")
//
// Validation failures carry field diagnostics:
//
//	errors.Validation("validate", "send-document", "Validation failed",
//	    errors.FieldError{Field: "document_name", Description: "is required"})
//
// Classification survives wrapping with fmt.Errorf("%w"), and the sentinel
// errors (ErrSessionExists, ErrSessionNotFound, ...) classify correctly even
// when used bare.
package errors
