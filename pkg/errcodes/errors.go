package errcodes

import (
	"errors"
	"fmt"
)

// Error is a typed pipeline error. Per-document errors carry a stable Code so
// passes can distinguish recoverable outcomes (not found, no text layer) from
// real failures without string matching.
type Error struct {
	Code    string
	Message string
}

const (
	CodeNotFound             = "not_found"
	CodeScanIO               = "scan_io_error"
	CodeIdentifierNotFound   = "identifier_not_found"
	CodeTextLayerUnavailable = "text_layer_unavailable"
	CodeRetrievalNotFound    = "retrieval_not_found"
	CodeRetrievalTransport   = "retrieval_transport_error"
	CodeValidation           = "validation_error"
	CodeSyncCollision        = "sync_collision"
)

func (err *Error) Error() string {
	return err.Message
}

func (err *Error) As(target interface{}) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	te.Code = err.Code
	te.Message = err.Message
	return true
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.Code == err.Code && te.Message == err.Message
}

// NotFound returns an error indicating the given resource doesn't exist.
func NotFound(resource string) error {
	return &Error{
		CodeNotFound,
		resource + " not found.",
	}
}

// ScanIO returns an error for an unreadable file or directory encountered
// during a scan. The scan logs it and moves on.
func ScanIO(path string, cause error) error {
	return &Error{
		CodeScanIO,
		fmt.Sprintf("Can't read %s: %v.", path, cause),
	}
}

// IdentifierNotFound returns an error indicating no checksum-valid identifier
// was found within the leading-page window.
func IdentifierNotFound() error {
	return &Error{
		CodeIdentifierNotFound,
		"No valid identifier found within the leading-page window.",
	}
}

// TextLayerUnavailable returns an error indicating a document has no
// extractable text layer.
func TextLayerUnavailable(path string) error {
	return &Error{
		CodeTextLayerUnavailable,
		fmt.Sprintf("No text layer available for %s.", path),
	}
}

// RetrievalNotFound returns an error indicating the lookup service had no
// match for the query.
func RetrievalNotFound(query string) error {
	return &Error{
		CodeRetrievalNotFound,
		fmt.Sprintf("No metadata found for %q.", query),
	}
}

// RetrievalTransport returns an error for a failed or timed-out lookup
// request. Treated the same as a not-found outcome: flagged, never retried
// within the pass.
func RetrievalTransport(cause error) error {
	return &Error{
		CodeRetrievalTransport,
		fmt.Sprintf("Metadata lookup request failed: %v.", cause),
	}
}

// Validation returns an error for a field that fails its invariant during a
// clean pass. The field is dropped; the record is kept.
func Validation(field, msg string) error {
	return &Error{
		CodeValidation,
		fmt.Sprintf("Invalid %s: %s.", field, msg),
	}
}

// SyncCollision returns an error for a target file that changed in a way that
// size and timestamp comparison can't reconcile. The synchronizer prefers the
// source and overwrites.
func SyncCollision(path string) error {
	return &Error{
		CodeSyncCollision,
		fmt.Sprintf("Target file %s diverged from source.", path),
	}
}

// HasCode reports whether err is, or wraps, an *Error carrying the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
