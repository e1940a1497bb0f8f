package documents

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("only the document uploader may manage access")
	ErrInvalidInput = errors.New("invalid input")
)
