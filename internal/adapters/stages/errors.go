package stages

import (
	"context"
	"errors"

	"github.com/tdewolff/parse/v2"

	"go.trai.ch/basis/internal/core/domain"
	"go.trai.ch/basis/internal/scss"
	"go.trai.ch/basis/internal/stylesheet"
)

// transformError converts the parser errors of the stage libraries into a
// *domain.TransformError positioned in the offending file.
func transformError(stage string, f domain.File, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var te *domain.TransformError
	if errors.As(err, &te) {
		return err
	}

	var (
		se *scss.Error
		ce *stylesheet.SyntaxError
		pe *parse.Error
	)
	switch {
	case errors.As(err, &se):
		return domain.NewTransformError(stage, se.File, se.Message).At(se.Line, se.Column)
	case errors.As(err, &ce):
		return domain.NewTransformError(stage, f.SourcePath(), ce.Message).At(ce.Line, ce.Column)
	case errors.As(err, &pe):
		return domain.NewTransformError(stage, f.SourcePath(), pe.Message).At(pe.Line, pe.Column)
	}
	return domain.NewTransformError(stage, f.SourcePath(), err.Error()).Wrapping(err)
}
