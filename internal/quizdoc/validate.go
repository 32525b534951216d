// Package quizdoc defines the quiz document contract: what counts as a valid
// document, and how an accepted document travels between the generation and
// practice contexts.
package quizdoc

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"quizforge/internal/domain"
)

// MalformedError reports input that could not be decoded as JSON at all.
// The underlying decoder message is preserved verbatim.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string { return "malformed quiz JSON: " + e.Err.Error() }

func (e *MalformedError) Unwrap() error { return e.Err }

// FieldError is the first schema violation found in a decodable candidate.
// Path locates the offending field, e.g. "questions[2].options[0].id".
type FieldError struct {
	Path   string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Path == "" {
		return "invalid quiz: " + e.Reason
	}

	return fmt.Sprintf("invalid quiz: %s: %s", e.Path, e.Reason)
}

// Parse decodes data and validates the result. Decode failures return
// *MalformedError, schema failures *FieldError.
func Parse(data []byte) (*domain.QuizDocument, error) {
	var candidate any
	if err := json.Unmarshal(data, &candidate); err != nil {
		return nil, &MalformedError{Err: err}
	}

	return Validate(candidate)
}

// Validate checks an arbitrary decoded value against the quiz schema and
// returns the typed document on success. It is pure: the candidate is never
// mutated, and the first violation found (in a fixed check order) is the only
// one reported.
func Validate(candidate any) (*domain.QuizDocument, error) {
	obj, ok := candidate.(map[string]any)
	if !ok || obj == nil {
		return nil, &FieldError{Reason: "quiz data is not an object"}
	}

	title, ok := nonBlankString(obj["quizTitle"])
	if !ok {
		return nil, &FieldError{Path: "quizTitle", Reason: "missing or empty"}
	}

	rawQuestions, ok := obj["questions"].([]any)
	if !ok || len(rawQuestions) == 0 {
		return nil, &FieldError{Path: "questions", Reason: "must be a non-empty array"}
	}

	doc := &domain.QuizDocument{
		QuizTitle: title,
		Questions: make([]domain.Question, 0, len(rawQuestions)),
	}

	for i, rawQ := range rawQuestions {
		q, err := validateQuestion(i, rawQ)
		if err != nil {
			return nil, err
		}

		doc.Questions = append(doc.Questions, q)
	}

	return doc, nil
}

func validateQuestion(i int, raw any) (domain.Question, error) {
	path := func(field string) string {
		return fmt.Sprintf("questions[%d].%s", i, field)
	}

	obj, ok := raw.(map[string]any)
	if !ok || obj == nil {
		return domain.Question{}, &FieldError{
			Path:   fmt.Sprintf("questions[%d]", i),
			Reason: "is not an object",
		}
	}

	id, ok := integerValue(obj["id"])
	if !ok {
		return domain.Question{}, &FieldError{Path: path("id"), Reason: "must be an integer"}
	}

	text, ok := nonBlankString(obj["questionText"])
	if !ok {
		return domain.Question{}, &FieldError{Path: path("questionText"), Reason: "missing or empty"}
	}

	rawOptions, ok := obj["options"].([]any)
	if !ok || len(rawOptions) < 2 {
		return domain.Question{}, &FieldError{Path: path("options"), Reason: "must be an array of at least 2 options"}
	}

	q := domain.Question{
		ID:           id,
		QuestionText: text,
		Options:      make([]domain.Option, 0, len(rawOptions)),
	}

	// Option ids must be unique within the question; collect them so the
	// correctOptionId check can name what was available.
	seen := make(map[string]struct{}, len(rawOptions))
	ids := make([]string, 0, len(rawOptions))

	for j, rawOpt := range rawOptions {
		optPath := func(field string) string {
			return fmt.Sprintf("questions[%d].options[%d].%s", i, j, field)
		}

		optObj, ok := rawOpt.(map[string]any)
		if !ok || optObj == nil {
			return domain.Question{}, &FieldError{
				Path:   fmt.Sprintf("questions[%d].options[%d]", i, j),
				Reason: "is not an object",
			}
		}

		optID, ok := nonBlankString(optObj["id"])
		if !ok {
			return domain.Question{}, &FieldError{Path: optPath("id"), Reason: "must be a non-empty string"}
		}

		if _, dup := seen[optID]; dup {
			return domain.Question{}, &FieldError{
				Path:   optPath("id"),
				Reason: fmt.Sprintf("duplicate option id %q, option ids must be unique within a question", optID),
			}
		}
		seen[optID] = struct{}{}
		ids = append(ids, optID)

		optText, ok := nonBlankString(optObj["text"])
		if !ok {
			return domain.Question{}, &FieldError{Path: optPath("text"), Reason: "missing or empty"}
		}

		q.Options = append(q.Options, domain.Option{ID: optID, Text: optText})
	}

	correct, ok := nonBlankString(obj["correctOptionId"])
	if !ok {
		return domain.Question{}, &FieldError{Path: path("correctOptionId"), Reason: "must be a non-empty string"}
	}

	if _, found := seen[correct]; !found {
		return domain.Question{}, &FieldError{
			Path:   path("correctOptionId"),
			Reason: fmt.Sprintf("%q does not match any option id (%s)", correct, strings.Join(ids, ", ")),
		}
	}
	q.CorrectOptionID = correct

	explanation, ok := nonBlankString(obj["explanation"])
	if !ok {
		return domain.Question{}, &FieldError{Path: path("explanation"), Reason: "missing or empty"}
	}
	q.Explanation = explanation

	return q, nil
}

// nonBlankString accepts string values that are non-blank after trimming.
// The original, untrimmed value is returned.
func nonBlankString(v any) (string, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}

	return s, true
}

// integerValue accepts JSON numbers without a fractional part. encoding/json
// decodes numbers into float64, so 1 and 1.0 are indistinguishable here; both
// are accepted, 1.5 is not.
func integerValue(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}

	return int(f), true
}
