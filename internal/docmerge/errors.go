package docmerge

import "errors"

var (
	// ErrEmptyInput is returned when a merge is requested with no source
	// documents. A bill must reference at least one document.
	ErrEmptyInput = errors.New("no input documents")

	// ErrTooManyDocuments is returned when the input list exceeds the
	// configured maximum.
	ErrTooManyDocuments = errors.New("too many input documents")

	// ErrUnreadableDocument is returned when a specific input fails to
	// parse. The wrapping error names the offending file.
	ErrUnreadableDocument = errors.New("unreadable document")

	// ErrStorageFailure is returned when the merged artifact cannot be
	// persisted. No partial artifact is ever stored.
	ErrStorageFailure = errors.New("artifact storage failure")
)
