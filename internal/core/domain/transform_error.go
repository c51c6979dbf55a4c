package domain

import (
	"strconv"
	"strings"
)

// TransformError reports malformed input to a pipeline stage.
// It matches ErrTransformFailed with errors.Is.
type TransformError struct {
	Stage   string
	File    string
	Line    int
	Column  int
	Message string
	Err     error
}

// NewTransformError creates a TransformError for the given stage and file.
func NewTransformError(stage, file, message string) *TransformError {
	return &TransformError{Stage: stage, File: file, Message: message}
}

// At sets the 1-based position of the error in the file.
func (e *TransformError) At(line, column int) *TransformError {
	e.Line = line
	e.Column = column
	return e
}

// Wrapping attaches the underlying cause.
func (e *TransformError) Wrapping(err error) *TransformError {
	e.Err = err
	return e
}

// Error formats the error as "stage: file:line:col: message".
func (e *TransformError) Error() string {
	var b strings.Builder
	if e.Stage != "" {
		b.WriteString(e.Stage)
		b.WriteString(": ")
	}
	if e.File != "" {
		b.WriteString(e.File)
		if e.Line > 0 {
			b.WriteString(":" + strconv.Itoa(e.Line))
			if e.Column > 0 {
				b.WriteString(":" + strconv.Itoa(e.Column))
			}
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// Unwrap exposes the cause and the transform category.
func (e *TransformError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrTransformFailed, e.Err}
	}
	return []error{ErrTransformFailed}
}
