package course

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anatolykoptev/go_academy/internal/engine"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// PGStore keeps course content in Postgres, questions as JSONB.
type PGStore struct {
	pool *pgxpool.Pool
}

// ConnectPGStore creates a pgx pool and runs the embedded migrations.
func ConnectPGStore(ctx context.Context, databaseURL string) (*PGStore, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PGStore{pool: pool}
	if err := s.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("store: postgres connected", slog.String("addr", config.ConnConfig.Host))
	return s, nil
}

func (s *PGStore) Close() { s.pool.Close() }

func (s *PGStore) runMigrations(ctx context.Context) error {
	entries, err := schemaFS.ReadDir("schema")
	if err != nil {
		return fmt.Errorf("read schema dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		data, err := schemaFS.ReadFile("schema/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if _, err := s.pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("execute %s: %w", entry.Name(), err)
		}
		slog.Info("migration applied", slog.String("file", entry.Name()))
	}
	return nil
}

func (s *PGStore) Save(ctx context.Context, c *engine.CourseContent) error {
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

	_, err = s.pool.Exec(ctx, `INSERT INTO course_content
		(video_id, summary, questions, segment_count, partial, generated_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6)
		ON CONFLICT (video_id) DO UPDATE SET
			summary = EXCLUDED.summary,
			questions = EXCLUDED.questions,
			segment_count = EXCLUDED.segment_count,
			partial = EXCLUDED.partial,
			generated_at = EXCLUDED.generated_at`,
		c.VideoID, c.Summary, string(questions), c.SegmentCount, c.Partial, generated)
	if err != nil {
		return fmt.Errorf("store: save %s: %w", c.VideoID, err)
	}
	return nil
}

func (s *PGStore) Load(ctx context.Context, videoID string) (*engine.CourseContent, error) {
	row := s.pool.QueryRow(ctx, `SELECT video_id, summary, questions, segment_count, partial, generated_at
		FROM course_content WHERE video_id = $1`, videoID)
	c, err := scanPGContent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("store: %s: %w", videoID, engine.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("store: load %s: %w", videoID, err)
	}
	return c, nil
}

func (s *PGStore) List(ctx context.Context, limit int) ([]engine.CourseContent, error) {
	rows, err := s.pool.Query(ctx, `SELECT video_id, summary, questions, segment_count, partial, generated_at
		FROM course_content ORDER BY generated_at DESC LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	out := []engine.CourseContent{}
	for rows.Next() {
		c, err := scanPGContent(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list scan: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanPGContent(r pgx.Row) (*engine.CourseContent, error) {
	var (
		c         engine.CourseContent
		questions []byte
		generated time.Time
	)
	if err := r.Scan(&c.VideoID, &c.Summary, &questions, &c.SegmentCount, &c.Partial, &generated); err != nil {
		return nil, err
	}
	c.GeneratedAt = generated.UTC().Format(time.RFC3339)
	if err := json.Unmarshal(questions, &c.Questions); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	return &c, nil
}
