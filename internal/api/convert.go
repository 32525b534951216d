package api

import (
	stderrors "errors"

	"quizforge/internal/errors"
	"quizforge/internal/generate"
	"quizforge/internal/quizdoc"
)

// convert maps domain error types onto the shared code taxonomy:
// malformed input and schema violations are invalid arguments, an upstream
// refusal is a permission failure, an upstream transport failure is an
// unavailable dependency, and an undecodable handoff parameter means there is
// no quiz to be found.
func convert(err error) *errors.Error {
	var (
		malformed *quizdoc.MalformedError
		field     *quizdoc.FieldError
		decode    *quizdoc.DecodeError
		blocked   *generate.BlockedError
		upstream  *generate.UpstreamError
	)

	switch {
	case stderrors.As(err, &decode):
		return errors.New(errors.CodeNotFound,
			errors.WithMessagef("no usable quiz: %v", decode.Unwrap()),
			errors.WithCause(err))

	case stderrors.As(err, &malformed):
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("%s", malformed.Error()),
			errors.WithCause(err))

	case stderrors.As(err, &field):
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("%s", field.Error()),
			errors.WithCause(err))

	case stderrors.As(err, &blocked):
		return errors.New(errors.CodePermissionDenied,
			errors.WithMessagef("%s", blocked.Error()),
			errors.WithCause(err))

	case stderrors.As(err, &upstream):
		return errors.New(errors.CodeUnavailable,
			errors.WithMessagef("%s", upstream.Error()),
			errors.WithCause(err))
	}

	return errors.Convert(err)
}

func stdAs(err error, target any) bool {
	return stderrors.As(err, target)
}
