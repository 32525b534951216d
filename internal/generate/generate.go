// Package generate turns user instructions, plus an optional opaque
// attachment, into a validated quiz document via a generative-language
// backend.
package generate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"quizforge/internal/domain"
	"quizforge/internal/errors"
	"quizforge/internal/quizdoc"
	"quizforge/internal/telemetry"
)

// Attachment is an opaque file forwarded to the backend as-is with its
// declared media type. Its content is never interpreted here.
type Attachment struct {
	Name     string
	MIMEType string
	Data     []byte
}

type Request struct {
	Instructions string
	Attachment   *Attachment
}

// Backend produces free-form text expected to contain exactly one JSON
// object, possibly fenced in markdown code-block markers.
type Backend interface {
	GenerateQuiz(ctx context.Context, prompt string, att *Attachment) (string, error)
}

// BlockedError means the backend declined to produce content. It is never
// retried.
type BlockedError struct {
	Reason  string
	Details string
}

func (e *BlockedError) Error() string {
	s := "generation blocked by upstream: " + e.Reason
	if e.Details != "" {
		s += " (" + e.Details + ")"
	}

	return s
}

// UpstreamError is a transport or HTTP failure talking to the backend, or an
// unusable response shape. It is never retried; the user must re-trigger.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d: %s", e.Status, e.Message)
}

type Config struct {
	Backend Backend
}

type Service struct {
	backend Backend

	mu      sync.Mutex
	running map[string]struct{}
}

func NewService(c Config) *Service {
	return &Service{
		backend: c.Backend,
		running: make(map[string]struct{}),
	}
}

// Generate runs one generation for caller and validates the outcome. A second
// call for the same caller while one is outstanding is rejected, not queued
// and not cancelled. Every failure leaves no partial document behind.
func (s *Service) Generate(ctx context.Context, caller string, req Request) (*domain.QuizDocument, error) {
	if err := s.acquire(caller); err != nil {
		return nil, err
	}
	defer s.release(caller)

	telemetry.GenerateRequests.Inc()

	raw, err := s.backend.GenerateQuiz(ctx, buildPrompt(req), req.Attachment)
	if err != nil {
		telemetry.GenerateFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	doc, err := quizdoc.Parse([]byte(StripFences(raw)))
	if err != nil {
		telemetry.GenerateFailures.WithLabelValues(failureReason(err)).Inc()
		return nil, err
	}

	return doc, nil
}

func (s *Service) acquire(caller string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, busy := s.running[caller]; busy {
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("a generation is already in progress"))
	}

	s.running[caller] = struct{}{}
	return nil
}

func (s *Service) release(caller string) {
	s.mu.Lock()
	delete(s.running, caller)
	s.mu.Unlock()
}

func failureReason(err error) string {
	switch err.(type) {
	case *BlockedError:
		return "blocked"
	case *UpstreamError:
		return "upstream"
	case *quizdoc.MalformedError:
		return "malformed"
	case *quizdoc.FieldError:
		return "schema"
	default:
		return "other"
	}
}

// StripFences removes markdown code-block markers around a JSON payload.
// This is a text repair heuristic applied before parsing, not part of
// validation.
func StripFences(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	return strings.TrimSpace(s)
}

const defaultInstructions = "Generate a general knowledge quiz with about 3-5 questions. " +
	"Ensure questions are clear, options are distinct, and provide good explanations."

func buildPrompt(req Request) string {
	var sb strings.Builder

	sb.WriteString(`You are an expert MCQ (Multiple Choice Question) quiz generator AI. Your primary goal is to create high-quality, accurate, and engaging quizzes.

Your task is to generate a Multiple Choice Question (MCQ) quiz based on the provided context (from an uploaded file, if any) and specific user instructions.

The output MUST be a single, valid JSON object. Do not include any explanatory text, comments, or markdown backticks before or after the JSON block. Ensure the JSON is perfectly parsable.

The JSON structure MUST be exactly as follows:
{
  "quizTitle": "Quiz based on [Source/Topic derived from context or instructions]",
  "questions": [
    {
      "id": 1,
      "questionText": "What is the core concept discussed in section X?",
      "options": [
        { "id": "a", "text": "Plausible but incorrect option A" },
        { "id": "b", "text": "Correct Option B" },
        { "id": "c", "text": "Plausible but incorrect option C" },
        { "id": "d", "text": "Another plausible distractor D" }
      ],
      "correctOptionId": "b",
      "explanation": "A brief, clear explanation for why the answer is correct. This should reinforce learning."
    }
  ]
}

--- FILE CONTEXT ---
`)

	if req.Attachment != nil {
		fmt.Fprintf(&sb, "A file named '%s' (type: %s) has been uploaded. Please use its content as the primary context for the quiz.\n", req.Attachment.Name, req.Attachment.MIMEType)
	} else {
		sb.WriteString("No file provided.\n")
	}
	sb.WriteString("If a file was uploaded, prioritize its content for generating the quiz questions. Otherwise rely solely on the user instructions.\n")

	sb.WriteString("\n--- USER INSTRUCTIONS ---\n")
	if strings.TrimSpace(req.Instructions) != "" {
		sb.WriteString(req.Instructions)
	} else {
		sb.WriteString(defaultInstructions)
	}
	sb.WriteString("\n---\n\n")

	sb.WriteString(`Important Considerations for Quiz Generation:
1. Accuracy: Ensure all questions and correct answers are factually accurate based on the provided context or reliable general knowledge.
2. Clarity: Questions should be unambiguous and easy to understand.
3. Plausible Distractors: Incorrect options should be plausible yet clearly wrong to a knowledgeable person.
4. Balanced Coverage: If the context is rich, try to cover different aspects of it.
5. Number of Questions: Adhere to the number of questions specified in user instructions. If not specified, generate 3-5 questions. Question IDs should be sequential integers starting from 1.
6. Explanations: Provide concise and informative explanations for each correct answer.
7. JSON Format: Strictly adhere to the specified JSON format including data types (question id as integer, option ids as strings). No extra text outside the JSON block.

Generate the quiz now. Output ONLY the single, valid JSON object as specified.
`)

	return sb.String()
}
