package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/url"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/markdave123-py/ivyready/internal/config"
	"github.com/markdave123-py/ivyready/internal/core"
	"github.com/markdave123-py/ivyready/internal/models"
)

const pgUniqueViolation = "23505"

// DatabaseClient stores conversation threads in Postgres. Messages live in a
// JSONB array on the thread row so an append is a single-row update.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, errors.New("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, errors.Wrapf(err, "ssl cert not accessible at %q", cfg.SslCertPath)
		}
		// Append SSL params to the provided DATABASE_URL safely.
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, errors.Wrap(err, "invalid DATABASE_URL")
		}
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.SslCertPath)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "ping db")
	}

	// Ensure bootstrap once
	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "bootstrap")
	}

	log.Info().Msg("postgres conversation store ready")
	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

const threadColumns = `id, student_ivy_service_id, selection_id, task_title, COALESCE(task_page, ''), messages, created_at, updated_at`

func (c *DatabaseClient) FindThread(ctx context.Context, key models.TaskKey) (*models.Thread, error) {
	key = key.Normalized()
	const q = `
		SELECT ` + threadColumns + `
		FROM conversation_threads
		WHERE selection_id = $1 AND task_title = $2 AND task_page IS NOT DISTINCT FROM $3
	`
	t, err := scanThread(c.db.QueryRowContext(ctx, q, key.SelectionID, key.TaskTitle, nullablePage(key.TaskPage)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "find thread")
	}
	return t, nil
}

func (c *DatabaseClient) CreateThread(ctx context.Context, thread *models.Thread) error {
	if thread == nil {
		return errors.New("nil thread")
	}
	thread.TaskPage = models.NormalizeTaskPage(thread.TaskPage)

	messages, err := encodeMessages(thread.Messages)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO conversation_threads
			(id, student_ivy_service_id, selection_id, task_title, task_page, messages, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6::jsonb, $7, $8)
	`
	_, err = c.db.ExecContext(ctx, q,
		thread.ID, thread.StudentIvyServiceID, thread.SelectionID, thread.TaskTitle,
		nullablePage(thread.TaskPage), messages, thread.CreatedAt, thread.UpdatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return errors.Wrapf(core.ErrThreadExists, "constraint %s", pgErr.ConstraintName)
	}
	if err != nil {
		return errors.Wrap(err, "insert thread")
	}
	return nil
}

func (c *DatabaseClient) AppendMessage(ctx context.Context, threadID string, msg models.Message) (*models.Thread, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "encode message")
	}

	const q = `
		UPDATE conversation_threads
		SET messages = messages || jsonb_build_array($2::jsonb), updated_at = now()
		WHERE id = $1
		RETURNING ` + threadColumns
	t, err := scanThread(c.db.QueryRowContext(ctx, q, threadID, string(b)))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(core.ErrThreadNotFound, "thread %s", threadID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "append message")
	}
	return t, nil
}

func scanThread(row *sql.Row) (*models.Thread, error) {
	var (
		t        models.Thread
		messages []byte
	)
	if err := row.Scan(
		&t.ID, &t.StudentIvyServiceID, &t.SelectionID, &t.TaskTitle, &t.TaskPage, &messages, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(messages, &t.Messages); err != nil {
		return nil, errors.Wrapf(err, "decode messages of thread %s", t.ID)
	}
	if t.Messages == nil {
		t.Messages = []models.Message{}
	}
	return &t, nil
}

func encodeMessages(msgs []models.Message) (string, error) {
	if msgs == nil {
		msgs = []models.Message{}
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return "", errors.Wrap(err, "encode messages")
	}
	return string(b), nil
}

// nullablePage stores the "no page" key as SQL NULL so the partial indexes apply.
func nullablePage(page string) sql.NullString {
	return sql.NullString{String: page, Valid: page != ""}
}

var _ core.ConversationStore = (*DatabaseClient)(nil)
