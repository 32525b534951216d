package quizdoc

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"quizforge/internal/domain"
)

// DecodeError marks a handoff parameter that did not yield a usable quiz.
// The practice surface renders its dedicated "no quiz available" state for
// this, never a crash or an empty quiz.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string { return "decode quiz parameter: " + e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeParam serializes an accepted document to compact JSON and
// percent-encodes it for use as a single query parameter value.
func EncodeParam(doc *domain.QuizDocument) (string, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	return url.QueryEscape(string(b)), nil
}

// DecodeParam reverses EncodeParam and re-runs full validation. The channel
// is a plain URL the user could have edited or bookmarked, so the parameter
// is untrusted even when it was produced by EncodeParam moments earlier.
func DecodeParam(param string) (*domain.QuizDocument, error) {
	if strings.TrimSpace(param) == "" {
		return nil, &DecodeError{Err: errors.New("empty quizData parameter")}
	}

	raw, err := url.QueryUnescape(param)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	doc, err := Parse([]byte(raw))
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	return doc, nil
}
