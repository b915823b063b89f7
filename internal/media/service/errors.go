package service

import "fmt"

type ErrorKind string

const (
	KindRecordCreation ErrorKind = "record_creation"
	KindStorage        ErrorKind = "storage"
)

const (
	msgRecordCreation    = "Failed to save file metadata. Please try again."
	msgStoreFailed       = "Failed to store file on disk."
	msgUnexpectedStorage = "Unexpected error during file storage."
	msgDeleteFailed      = "Failed to delete file from disk."
	msgUnexpectedDelete  = "Unexpected error while deleting the file."
)

// UploadError is returned by Upload when the record or the blob could not be
// written. Field and Message are safe to show to clients; Err is not.
type UploadError struct {
	Kind    ErrorKind
	Field   string
	Message string
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Kind, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// DeleteError means the record was kept and the delete can be retried.
type DeleteError struct {
	Field   string
	Message string
	Err     error
}

func (e *DeleteError) Error() string {
	return fmt.Sprintf("delete: %v", e.Err)
}

func (e *DeleteError) Unwrap() error { return e.Err }

func recordCreationError(err error) *UploadError {
	return &UploadError{Kind: KindRecordCreation, Field: "database", Message: msgRecordCreation, Err: err}
}

func storageError(msg string, err error) *UploadError {
	return &UploadError{Kind: KindStorage, Field: "file", Message: msg, Err: err}
}

func deleteError(msg string, err error) *DeleteError {
	return &DeleteError{Field: "file", Message: msg, Err: err}
}
