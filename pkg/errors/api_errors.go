package errors

import "errors"

// Sentinel errors shared by the record engine and services
var (
	ErrInvalidRequest           = errors.New("invalid request")
	ErrNoWritableColumns        = errors.New("no valid columns to insert")
	ErrUnknownDefaultExpression = errors.New("unknown default expression")
)
