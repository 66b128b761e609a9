package course

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/anatolykoptev/go_academy/internal/engine"
)

// Store persists generated course content keyed by video ID.
type Store interface {
	Save(ctx context.Context, c *engine.CourseContent) error
	// Load returns engine.ErrNotFound for a video that was never saved.
	Load(ctx context.Context, videoID string) (*engine.CourseContent, error)
	// List returns the newest records first.
	List(ctx context.Context, limit int) ([]engine.CourseContent, error)
}

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}

func validateContent(c *engine.CourseContent) error {
	if c == nil || strings.TrimSpace(c.VideoID) == "" {
		return &engine.ValidationError{Field: "video_id", Err: errors.New("is required")}
	}
	return nil
}

var (
	contentDB   *sql.DB
	contentOnce sync.Once
	contentErr  error
)

// contentDBPath is CONTENT_DB_PATH, or ~/.go_academy/content.db.
func contentDBPath() string {
	if p := engine.Cfg.ContentDBPath; p != "" {
		return p
	}
	return filepath.Join(os.Getenv("HOME"), ".go_academy", "content.db")
}

// openContentDB opens (or creates) the SQLite content database once per process.
func openContentDB() (*sql.DB, error) {
	contentOnce.Do(func() {
		dbPath := contentDBPath()
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			contentErr = fmt.Errorf("store: mkdir %s: %w", dir, err)
			return
		}
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			contentErr = fmt.Errorf("store: open db: %w", err)
			return
		}
		db.SetMaxOpenConns(1) // SQLite: single writer
		if err := initContentSchema(db); err != nil {
			db.Close()
			contentErr = fmt.Errorf("store: init schema: %w", err)
			return
		}
		contentDB = db
	})
	return contentDB, contentErr
}

func initContentSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS course_content (
		video_id      TEXT PRIMARY KEY,
		summary       TEXT NOT NULL,
		questions     TEXT NOT NULL,
		segment_count INTEGER NOT NULL DEFAULT 0,
		partial       INTEGER NOT NULL DEFAULT 0,
		generated_at  TEXT NOT NULL
	)`)
	return err
}

// SQLiteStore is the default local Store.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore returns a store over the shared SQLite database.
func OpenSQLiteStore() (*SQLiteStore, error) {
	db, err := openContentDB()
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, c *engine.CourseContent) error {
	if err := validateContent(c); err != nil {
		return err
	}
	questions, err := json.Marshal(nonNilQuestions(c.Questions))
	if err != nil {
		return fmt.Errorf("store: encode questions: %w", err)
	}
	generated, err := generatedAt(c)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO course_content
		(video_id, summary, questions, segment_count, partial, generated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			summary = excluded.summary,
			questions = excluded.questions,
			segment_count = excluded.segment_count,
			partial = excluded.partial,
			generated_at = excluded.generated_at`,
		c.VideoID, c.Summary, string(questions), c.SegmentCount, c.Partial,
		generated.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store: save %s: %w", c.VideoID, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, videoID string) (*engine.CourseContent, error) {
	row := s.db.QueryRowContext(ctx, `SELECT video_id, summary, questions, segment_count, partial, generated_at
		FROM course_content WHERE video_id = ?`, videoID)
	c, err := scanSQLiteContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store: %s: %w", videoID, engine.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", videoID, err)
	}
	return c, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]engine.CourseContent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT video_id, summary, questions, segment_count, partial, generated_at
		FROM course_content ORDER BY generated_at DESC LIMIT ?`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	out := []engine.CourseContent{}
	for rows.Next() {
		c, err := scanSQLiteContent(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteContent(r rowScanner) (*engine.CourseContent, error) {
	var (
		c         engine.CourseContent
		questions string
	)
	if err := r.Scan(&c.VideoID, &c.Summary, &questions, &c.SegmentCount, &c.Partial, &c.GeneratedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(questions), &c.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &c, nil
}

// generatedAt parses c.GeneratedAt, defaulting to now. Stored timestamps are
// UTC RFC 3339 so they sort lexically.
func generatedAt(c *engine.CourseContent) (time.Time, error) {
	if c.GeneratedAt == "" {
		return time.Now().UTC().Truncate(time.Second), nil
	}
	t, err := time.Parse(time.RFC3339, c.GeneratedAt)
	if err != nil {
		return time.Time{}, &engine.ValidationError{Field: "generated_at", Err: err}
	}
	return t.UTC(), nil
}

func nonNilQuestions(qs []engine.GeneratedQuestion) []engine.GeneratedQuestion {
	if qs == nil {
		return []engine.GeneratedQuestion{}
	}
	return qs
}
