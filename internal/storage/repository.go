package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"simplebudget/internal/preference"

	_ "modernc.org/sqlite"
)

// SQLiteRepository persists client preferences and saved templates.
type SQLiteRepository struct {
	db *sql.DB
}

var (
	_ preference.Store         = (*SQLiteRepository)(nil)
	_ preference.TemplateStore = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// PreferredBudgetID implements preference.Store. A missing row is not an error.
func (r *SQLiteRepository) PreferredBudgetID(ctx context.Context) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM preferences WHERE key = ?`, preference.ActiveBudgetKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get preference: %w", err)
	}
	return value, nil
}

func (r *SQLiteRepository) SetPreferredBudgetID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		preference.ActiveBudgetKey, id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set preference: %w", err)
	}
	slog.DebugContext(ctx, "Preferred budget saved", "budget_id", id)
	return nil
}

func (r *SQLiteRepository) ClearPreferredBudgetID(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM preferences WHERE key = ?`, preference.ActiveBudgetKey); err != nil {
		return fmt.Errorf("clear preference: %w", err)
	}
	return nil
}

// ListTemplates returns saved templates, oldest first.
func (r *SQLiteRepository) ListTemplates(ctx context.Context) ([]preference.SavedTemplate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, payload, created_at FROM saved_templates ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []preference.SavedTemplate
	for rows.Next() {
		var t preference.SavedTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.Payload, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) SaveTemplate(ctx context.Context, t preference.SavedTemplate) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO saved_templates (id, name, description, payload, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, description = excluded.description, payload = excluded.payload`,
		t.ID, t.Name, t.Description, t.Payload, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}

	slog.InfoContext(ctx, "Template saved to SQLite", "id", t.ID, "name", t.Name)
	return nil
}

func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM saved_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if n == 0 {
		return preference.ErrTemplateNotFound
	}
	return nil
}
