package generate_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizforge/internal/errors"
	"quizforge/internal/generate"
)

const validQuizJSON = `{
	"quizTitle": "Capitals",
	"questions": [
		{
			"id": 1,
			"questionText": "Capital of France?",
			"options": [
				{"id": "a", "text": "Paris"},
				{"id": "b", "text": "Lyon"}
			],
			"correctOptionId": "a",
			"explanation": "Paris is the capital of France."
		}
	]
}`

type stubBackend struct {
	mu      sync.Mutex
	prompts []string

	response string
	err      error
	block    chan struct{}
}

func (s *stubBackend) GenerateQuiz(_ context.Context, prompt string, _ *generate.Attachment) (string, error) {
	s.mu.Lock()
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if s.block != nil {
		<-s.block
	}

	return s.response, s.err
}

func TestStripFences(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"plain JSON untouched":   {in: `{"a":1}`, want: `{"a":1}`},
		"json fence":             {in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		"bare fence":             {in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		"surrounding whitespace": {in: "  \n```json\n{\"a\":1}\n```  \n", want: `{"a":1}`},
		"no closing fence":       {in: "```json\n{\"a\":1}", want: `{"a":1}`},
		"empty":                  {in: "", want: ""},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, generate.StripFences(tt.in))
		})
	}
}

func TestService_Generate(t *testing.T) {
	backend := &stubBackend{response: "```json\n" + validQuizJSON + "\n```"}
	s := generate.NewService(generate.Config{Backend: backend})

	doc, err := s.Generate(context.Background(), "tester", generate.Request{
		Instructions: "Quiz me on European capitals",
	})
	require.NoError(t, err)
	require.Equal(t, "Capitals", doc.QuizTitle)
	require.Len(t, doc.Questions, 1)

	require.Len(t, backend.prompts, 1)
	prompt := backend.prompts[0]
	assert.Contains(t, prompt, "Quiz me on European capitals")
	assert.Contains(t, prompt, `"correctOptionId"`)
	assert.Contains(t, prompt, "No file provided.")
}

func TestService_Generate_DefaultInstructions(t *testing.T) {
	backend := &stubBackend{response: validQuizJSON}
	s := generate.NewService(generate.Config{Backend: backend})

	_, err := s.Generate(context.Background(), "tester", generate.Request{})
	require.NoError(t, err)

	require.Len(t, backend.prompts, 1)
	assert.Contains(t, backend.prompts[0], "general knowledge quiz")
}

func TestService_Generate_AttachmentNamedInPrompt(t *testing.T) {
	backend := &stubBackend{response: validQuizJSON}
	s := generate.NewService(generate.Config{Backend: backend})

	_, err := s.Generate(context.Background(), "tester", generate.Request{
		Attachment: &generate.Attachment{
			Name:     "notes.pdf",
			MIMEType: "application/pdf",
			Data:     []byte{1, 2, 3},
		},
	})
	require.NoError(t, err)

	require.Len(t, backend.prompts, 1)
	assert.Contains(t, backend.prompts[0], "notes.pdf")
	assert.Contains(t, backend.prompts[0], "application/pdf")
}

func TestService_Generate_InvalidOutputRejected(t *testing.T) {
	t.Run("not JSON", func(t *testing.T) {
		backend := &stubBackend{response: "sorry, I can't do that"}
		s := generate.NewService(generate.Config{Backend: backend})

		_, err := s.Generate(context.Background(), "tester", generate.Request{})
		require.Error(t, err)
	})

	t.Run("schema violation", func(t *testing.T) {
		backend := &stubBackend{response: `{"quizTitle": "T", "questions": []}`}
		s := generate.NewService(generate.Config{Backend: backend})

		_, err := s.Generate(context.Background(), "tester", generate.Request{})
		require.Error(t, err)
	})
}

func TestService_Generate_SingleFlightPerCaller(t *testing.T) {
	backend := &stubBackend{response: validQuizJSON, block: make(chan struct{})}
	s := generate.NewService(generate.Config{Backend: backend})

	done := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background(), "alice", generate.Request{})
		done <- err
	}()

	// Wait until the first generation is inside the backend.
	require.Eventually(t, func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return len(backend.prompts) == 1
	}, 2*time.Second, time.Millisecond)

	// Same caller is rejected while one is outstanding.
	_, err := s.Generate(context.Background(), "alice", generate.Request{})
	require.Error(t, err)
	assert.Equal(t, errors.CodeAlreadyExists, errors.Convert(err).Code)

	// A different caller is unaffected.
	backend2 := make(chan error, 1)
	go func() {
		_, err := s.Generate(context.Background(), "bob", generate.Request{})
		backend2 <- err
	}()

	close(backend.block)
	require.NoError(t, <-done)
	require.NoError(t, <-backend2)

	// The slot is free again after completion.
	_, err = s.Generate(context.Background(), "alice", generate.Request{})
	require.NoError(t, err)
}
