package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/SomeCodecat/bubble-quiz-sub001/internal/models"
)

// Postgres loads collections from the relational store that the content
// management surface writes to. The orchestrator only ever reads here.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Postgres{db: db}, nil
}

func createTables(db *sql.DB) error {
	createCollectionsTable := `
	CREATE TABLE IF NOT EXISTS collections (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);`

	createQuestionsTable := `
	CREATE TABLE IF NOT EXISTS questions (
		id SERIAL PRIMARY KEY,
		collection_id VARCHAR(64) NOT NULL REFERENCES collections(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		options JSONB NOT NULL,
		correct INTEGER NOT NULL
	);`

	createIndexes := `
	CREATE INDEX IF NOT EXISTS idx_questions_collection_id ON questions(collection_id, position);
	`

	if _, err := db.Exec(createCollectionsTable); err != nil {
		return err
	}
	if _, err := db.Exec(createQuestionsTable); err != nil {
		return err
	}
	if _, err := db.Exec(createIndexes); err != nil {
		return err
	}

	return nil
}

func (p *Postgres) LoadQuestions(ctx context.Context, collectionID string) ([]models.Question, error) {
	var exists bool
	err := p.db.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM collections WHERE id = $1)", collectionID,
	).Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT text, options, correct
		FROM questions
		WHERE collection_id = $1
		ORDER BY position
	`, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []models.Question
	for rows.Next() {
		var q models.Question
		var optionsJSON []byte
		if err := rows.Scan(&q.Text, &optionsJSON, &q.Correct); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
			return nil, fmt.Errorf("malformed options for collection %s: %w", collectionID, err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(questions) == 0 {
		return nil, ErrEmpty
	}
	return questions, nil
}

func (p *Postgres) Close() error {
	return p.db.Close()
}
