package messages

import "errors"

var (
	ErrEmptyContent   = errors.New("message content is empty")
	ErrContentTooLong = errors.New("message content exceeds length limit")
	ErrSelfMessage    = errors.New("cannot send a message to yourself")
	ErrNotFound       = errors.New("recipient not found")
)
