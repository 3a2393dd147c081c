package loader

import (
	"errors"
	"fmt"
	"time"
)

// ErrImporterClosed is returned by every Importer operation after Close.
var ErrImporterClosed = errors.New("loader: importer closed")

// document-level failures, wrapped in StructuralError
var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	errInvalidGLBMagic    = errors.New("invalid GLB magic number")
	errInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	errGLBTooSmall        = errors.New("GLB data shorter than its header")
	errMissingJSONChunk   = errors.New("GLB missing JSON chunk")
	errInvalidDataURI     = errors.New("invalid data URI")
	errBufferSizeMismatch = errors.New("buffer shorter than its declared byteLength")
	errIndexOutOfRange    = errors.New("index out of range")
	errNodeCycle          = errors.New("node hierarchy contains a cycle")
)

// StructuralError reports malformed or unsupported document content. It is never retried.
type StructuralError struct {
	// Document is the name of the document being imported.
	Document string

	// Err describes what is wrong with the document.
	Err error
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("invalid document %q: %v", e.Document, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// TimeoutError reports that an import operation exceeded the importer's time budget.
type TimeoutError struct {
	// Operation is the importer operation that timed out.
	Operation string

	// Timeout is the configured budget.
	Timeout time.Duration

	// Err is the error the operation was aborted with.
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s: %v", e.Operation, e.Timeout, e.Err)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// structural wraps err in a StructuralError unless it already carries a classified error.
func structural(doc string, err error) error {
	if err == nil {
		return nil
	}
	var se *StructuralError
	if errors.As(err, &se) {
		return err
	}
	return &StructuralError{Document: doc, Err: err}
}

// structuralf is structural with a formatted message.
func structuralf(doc, format string, args ...any) error {
	return &StructuralError{Document: doc, Err: fmt.Errorf(format, args...)}
}
