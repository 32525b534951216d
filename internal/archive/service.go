// Package archive stores accepted quiz documents in Postgres and offers them
// back for listing and export. Only documents that passed validation are ever
// saved.
package archive

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"quizforge/internal/domain"
	"quizforge/internal/errors"
)

type Config struct {
	DB *pgxpool.Pool
}

type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	return &Service{
		db: c.DB,
	}
}

// Migrate creates the backing table if it does not exist.
func (s *Service) Migrate(ctx context.Context) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS quizzes (
	quiz_id        UUID PRIMARY KEY,
	title          TEXT NOT NULL,
	question_count INT NOT NULL,
	document       JSONB NOT NULL,
	create_time    TIMESTAMPTZ NOT NULL DEFAULT now()
);`

	if _, err := s.db.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create quizzes table: %w", err)
	}

	return nil
}

// Save stores an accepted document and returns its id.
func (s *Service) Save(ctx context.Context, doc *domain.QuizDocument) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate quiz ID: %w", err)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	const stmt = `
INSERT INTO quizzes (quiz_id, title, question_count, document, create_time)
VALUES ($1, $2, $3, $4, now());`

	_, err = s.db.Exec(ctx, stmt, id, doc.QuizTitle, len(doc.Questions), body)
	if err != nil {
		return "", fmt.Errorf("insert quiz: %w", err)
	}

	return id.String(), nil
}

// Get loads a stored document by id.
func (s *Service) Get(ctx context.Context, quizID string) (*domain.QuizDocument, error) {
	const stmt = `SELECT document FROM quizzes WHERE quiz_id = $1;`

	var body []byte
	err := s.db.QueryRow(ctx, stmt, quizID).Scan(&body)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("quiz not found: %s", quizID))
	}
	if err != nil {
		return nil, fmt.Errorf("select quiz: %w", err)
	}

	var doc domain.QuizDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}

	return &doc, nil
}

// List returns stored quizzes newest first, without their questions.
func (s *Service) List(ctx context.Context) ([]domain.ArchiveEntry, error) {
	const stmt = `
SELECT quiz_id, title, question_count, create_time
FROM quizzes
ORDER BY create_time DESC;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("select quizzes: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.ArchiveEntry, error) {
		var e domain.ArchiveEntry
		if err := r.Scan(&e.QuizID, &e.QuizTitle, &e.QuestionCount, &e.CreateTime); err != nil {
			return domain.ArchiveEntry{}, err
		}
		return e, nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Export renders a stored document as pretty-printed UTF-8 JSON plus a
// download filename derived from its title.
func (s *Service) Export(ctx context.Context, quizID string) (filename string, body []byte, err error) {
	doc, err := s.Get(ctx, quizID)
	if err != nil {
		return "", nil, err
	}

	body, err = json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("marshal document: %w", err)
	}

	return ExportFilename(doc.QuizTitle), body, nil
}

var filenameStrip = regexp.MustCompile(`[^a-z0-9_\-\s]`)

// ExportFilename slugs a quiz title into a download filename, falling back
// to a fixed name when the slug comes out degenerate.
func ExportFilename(title string) string {
	const fallback = "ai_generated_quiz.json"

	name := filenameStrip.ReplaceAllString(strings.ToLower(title), "")
	name = strings.Join(strings.Fields(name), "_") + "_quiz.json"
	if len(name) < 10 || len(name) > 100 {
		return fallback
	}

	return name
}
