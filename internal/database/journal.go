package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"handover/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// Journal is the durable notification delivery log. Tasks are written before
// any delivery attempt so a crash between commit and notification only delays
// the notification, never loses it.
type Journal struct {
	db *sql.DB
}

func NewJournal(path string) (*Journal, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create journal tables: %w", err)
	}

	return &Journal{db: db}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS notification_journal (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            request_id TEXT NOT NULL,
            payload TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            delivered_at DATETIME,
            next_retry_at DATETIME
        )`,
		`CREATE INDEX IF NOT EXISTS idx_journal_status ON notification_journal(status)`,
		`CREATE INDEX IF NOT EXISTS idx_journal_request_id ON notification_journal(request_id)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (j *Journal) Enqueue(ctx context.Context, task *models.NotificationTask) error {
	query := `INSERT INTO notification_journal (request_id, payload, status, retry_count, last_error, created_at, next_retry_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := j.db.ExecContext(ctx, query,
		task.RequestID,
		task.Payload,
		models.NotifyStatusPending,
		0,
		"",
		now,
		task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to enqueue notification task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.Status = models.NotifyStatusPending
	task.CreatedAt = now

	return nil
}

func (j *Journal) Pending(ctx context.Context, limit int) ([]models.NotificationTask, error) {
	query := `SELECT id, request_id, payload, status, retry_count, last_error, created_at, delivered_at, next_retry_at
              FROM notification_journal
              WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= ?)
              ORDER BY created_at ASC LIMIT ?`
	rows, err := j.db.QueryContext(ctx, query, time.Now(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending notification tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// MarkDelivered records a successful delivery.
func (j *Journal) MarkDelivered(ctx context.Context, id int64) error {
	query := `UPDATE notification_journal SET status = ?, delivered_at = ? WHERE id = ?`
	if _, err := j.db.ExecContext(ctx, query, models.NotifyStatusDelivered, time.Now(), id); err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}
	return nil
}

// MarkRetry schedules another attempt after a failed delivery.
func (j *Journal) MarkRetry(ctx context.Context, id int64, errMsg string, nextRetryAt time.Time) error {
	query := `UPDATE notification_journal SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
	if _, err := j.db.ExecContext(ctx, query, models.NotifyStatusRetry, errMsg, nextRetryAt, id); err != nil {
		return fmt.Errorf("failed to mark notification for retry: %w", err)
	}
	return nil
}

// MarkFailed dead-letters a task after the retry budget is spent.
func (j *Journal) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	query := `UPDATE notification_journal SET status = ?, last_error = ? WHERE id = ?`
	if _, err := j.db.ExecContext(ctx, query, models.NotifyStatusFailed, errMsg, id); err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

func (j *Journal) Failed(ctx context.Context) ([]models.NotificationTask, error) {
	query := `SELECT id, request_id, payload, status, retry_count, last_error, created_at, delivered_at, next_retry_at
              FROM notification_journal WHERE status = 'failed' ORDER BY created_at DESC`
	rows, err := j.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed notification tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func scanTasks(rows *sql.Rows) ([]models.NotificationTask, error) {
	var tasks []models.NotificationTask
	for rows.Next() {
		var t models.NotificationTask
		err := rows.Scan(
			&t.ID, &t.RequestID, &t.Payload, &t.Status, &t.RetryCount, &t.LastError,
			&t.CreatedAt, &t.DeliveredAt, &t.NextRetryAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
