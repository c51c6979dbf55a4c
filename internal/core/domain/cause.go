package domain

import "go.trai.ch/zerr"

// causeError matches both a domain category and the error that caused it.
type causeError struct {
	category error
	err      error
}

func (e *causeError) Error() string {
	return e.category.Error() + ": " + e.err.Error()
}

func (e *causeError) Unwrap() []error {
	return []error{e.category, e.err}
}

// Caused files err under a category sentinel. errors.Is matches both, and the
// message reads "category: cause". A nil err yields nil.
func Caused(category, err error) error {
	if err == nil {
		return nil
	}
	return &causeError{category: category, err: err}
}

// FileSystemError categorizes err as a file system failure on path.
// errors.Is keeps matching the cause, such as fs.ErrNotExist.
func FileSystemError(err error, path string) error {
	if err == nil {
		return nil
	}
	return zerr.With(Caused(ErrFileSystem, err), "path", path)
}
