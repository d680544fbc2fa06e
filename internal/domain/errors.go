package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrEmptyBatch          = errors.New("claim batch contains no documents")
	ErrNoUsableDocuments   = errors.New("no document in the batch yielded any text")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrValidationInput     = errors.New("validator received an inconsistent record set")
)
