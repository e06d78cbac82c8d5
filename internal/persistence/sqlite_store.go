package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pretzelai/openlingo/internal/jobs"
	"github.com/pretzelai/openlingo/internal/translator"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLiteStore implements jobs.Store on a single-writer SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename
// (e.g. "001_init.sql" -> 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

const jobColumns = `id, source_url, target_language, cefr_level, title, source_language, status,
	original_json, translated_json, translation_progress, total_paragraphs, word_count,
	error_message, created_at, updated_at`

func (s *SQLiteStore) CreateJob(ctx context.Context, job *jobs.TranslationJob) error {
	if job == nil {
		return fmt.Errorf("job is nil")
	}
	originalJSON, err := json.Marshal(emptyIfNilStrings(job.OriginalChunks))
	if err != nil {
		return err
	}
	translatedJSON, err := json.Marshal(emptyIfNilBlocks(job.TranslatedBlocks))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO article_jobs (`+jobColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.SourceURL,
		job.TargetLanguage,
		job.CEFRLevel,
		job.Title,
		job.SourceLanguage,
		string(job.Status),
		string(originalJSON),
		string(translatedJSON),
		job.TranslationProgress,
		job.TotalParagraphs,
		job.WordCount,
		job.ErrorMessage,
		job.CreatedAt.UTC(),
		job.UpdatedAt.UTC(),
	)
	return err
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*jobs.TranslationJob, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM article_jobs WHERE id = ?`,
		id,
	)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, jobs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context) ([]*jobs.TranslationJob, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+jobColumns+` FROM article_jobs ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ret := make([]*jobs.TranslationJob, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, job)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ret, nil
}

// UpdateJob applies a partial update. Updates against a terminal job are
// silently dropped, which makes the completed/failed states immutable to
// any straggling pipeline writer.
func (s *SQLiteStore) UpdateJob(ctx context.Context, id string, update jobs.JobUpdate) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	appendSet := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if update.Status != nil {
		appendSet("status", string(*update.Status))
	}
	if update.Title != nil {
		appendSet("title", *update.Title)
	}
	if update.SourceLanguage != nil {
		appendSet("source_language", *update.SourceLanguage)
	}
	if update.OriginalChunks != nil {
		payload, err := json.Marshal(emptyIfNilStrings(*update.OriginalChunks))
		if err != nil {
			return err
		}
		appendSet("original_json", string(payload))
	}
	if update.TranslatedBlocks != nil {
		payload, err := json.Marshal(emptyIfNilBlocks(*update.TranslatedBlocks))
		if err != nil {
			return err
		}
		appendSet("translated_json", string(payload))
	}
	if update.TranslationProgress != nil {
		appendSet("translation_progress", *update.TranslationProgress)
	}
	if update.TotalParagraphs != nil {
		appendSet("total_paragraphs", *update.TotalParagraphs)
	}
	if update.WordCount != nil {
		appendSet("word_count", *update.WordCount)
	}
	if update.ErrorMessage != nil {
		appendSet("error_message", *update.ErrorMessage)
	}

	query := `UPDATE article_jobs SET ` + strings.Join(sets, ", ") +
		` WHERE id = ? AND status NOT IN (?, ?)`
	args = append(args, id, string(jobs.StatusCompleted), string(jobs.StatusFailed))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the job does not exist or it is terminal; only the former
		// is an error.
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM article_jobs WHERE id = ?`, id).Scan(&exists); err != nil {
			return err
		}
		if exists == 0 {
			return jobs.ErrNotFound
		}
	}
	return nil
}

// ResetJobForRetry restarts a job from scratch: derived fields are cleared
// and the status returns to pending. This bypasses the terminal guard on
// purpose; it is the explicit external retry action.
func (s *SQLiteStore) ResetJobForRetry(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE article_jobs SET
			status = ?,
			title = '',
			source_language = '',
			original_json = '[]',
			translated_json = '[]',
			translation_progress = 0,
			total_paragraphs = 0,
			word_count = 0,
			error_message = '',
			updated_at = ?
		 WHERE id = ?`,
		string(jobs.StatusPending),
		time.Now().UTC(),
		id,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return jobs.ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteTerminalJobsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM article_jobs WHERE status IN (?, ?) AND updated_at < ?`,
		string(jobs.StatusCompleted),
		string(jobs.StatusFailed),
		cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*jobs.TranslationJob, error) {
	var item jobs.TranslationJob
	var status, originalJSON, translatedJSON string
	if err := row.Scan(
		&item.ID,
		&item.SourceURL,
		&item.TargetLanguage,
		&item.CEFRLevel,
		&item.Title,
		&item.SourceLanguage,
		&status,
		&originalJSON,
		&translatedJSON,
		&item.TranslationProgress,
		&item.TotalParagraphs,
		&item.WordCount,
		&item.ErrorMessage,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	item.Status = jobs.Status(status)
	if err := json.Unmarshal([]byte(originalJSON), &item.OriginalChunks); err != nil {
		return nil, fmt.Errorf("decode original chunks of job %s: %w", item.ID, err)
	}
	if err := json.Unmarshal([]byte(translatedJSON), &item.TranslatedBlocks); err != nil {
		return nil, fmt.Errorf("decode translated blocks of job %s: %w", item.ID, err)
	}
	return &item, nil
}

func emptyIfNilStrings(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func emptyIfNilBlocks(v []translator.Block) []translator.Block {
	if v == nil {
		return []translator.Block{}
	}
	return v
}
