package domain

import "go.trai.ch/zerr"

// Tag attaches metadata to err while keeping errors.Is matching err itself.
// zerr.With on a *zerr.Error returns a copy, so err is wrapped first.
func Tag(err error, key string, value any) error {
	if err == nil {
		return nil
	}
	return zerr.With(zerr.Wrap(err, ""), key, value)
}
