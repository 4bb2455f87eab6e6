package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"github.com/rendis/drawio-mcp/pkg/schema"
)

// DefaultSavedLimit caps ListSaved when no limit is given.
const DefaultSavedLimit = 50

// LibSQLSaveLog implements SaveLog using libSQL (embedded SQLite fork).
type LibSQLSaveLog struct {
	db *sql.DB
}

// NewLibSQLSaveLog opens a libSQL database. The path should be a file URI,
// e.g. "file:/path/to/drawio.db".
func NewLibSQLSaveLog(dbPath string) (*LibSQLSaveLog, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLSaveLog{db: db}, nil
}

// Close closes the database.
func (l *LibSQLSaveLog) Close() error { return l.db.Close() }

// Migrate runs all pending database migrations.
func (l *LibSQLSaveLog) Migrate(ctx context.Context) error {
	return runMigrations(ctx, l.db)
}

// Record inserts an entry, assigning an id and timestamp when missing.
func (l *LibSQLSaveLog) Record(ctx context.Context, saved *SavedDiagram) error {
	if saved.ID == "" {
		saved.ID = uuid.New().String()
	}
	if saved.CreatedAt.IsZero() {
		saved.CreatedAt = time.Now().UTC()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT INTO saved_diagrams (id, title, file_path, diagram_id, size, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		saved.ID, saved.Title, saved.FilePath, nullString(saved.DiagramID), saved.Size, saved.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return dbError(err, "record saved diagram %q", saved.Title)
	}
	return nil
}

// ListSaved returns entries newest first.
func (l *LibSQLSaveLog) ListSaved(ctx context.Context, filter SavedFilter) ([]*SavedDiagram, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultSavedLimit
	}

	query := `SELECT id, title, file_path, diagram_id, size, created_at FROM saved_diagrams`
	var args []any
	if filter.Title != "" {
		query += ` WHERE title = ?`
		args = append(args, filter.Title)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError(err, "list saved diagrams")
	}
	defer rows.Close()

	var out []*SavedDiagram
	for rows.Next() {
		sd := &SavedDiagram{}
		var diagramID sql.NullString
		var createdMs int64
		if err := rows.Scan(&sd.ID, &sd.Title, &sd.FilePath, &diagramID, &sd.Size, &createdMs); err != nil {
			return nil, dbError(err, "scan saved diagram")
		}
		sd.DiagramID = diagramID.String
		sd.CreatedAt = time.UnixMilli(createdMs).UTC()
		out = append(out, sd)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError(err, "list saved diagrams")
	}
	return out, nil
}

// GetSaved returns one entry by id.
func (l *LibSQLSaveLog) GetSaved(ctx context.Context, id string) (*SavedDiagram, error) {
	sd := &SavedDiagram{}
	var diagramID sql.NullString
	var createdMs int64
	err := l.db.QueryRowContext(ctx,
		`SELECT id, title, file_path, diagram_id, size, created_at FROM saved_diagrams WHERE id = ?`, id,
	).Scan(&sd.ID, &sd.Title, &sd.FilePath, &diagramID, &sd.Size, &createdMs)
	if err == sql.ErrNoRows {
		return nil, storeNotFound("saved diagram", id)
	}
	if err != nil {
		return nil, dbError(err, "get saved diagram %q", id)
	}
	sd.DiagramID = diagramID.String
	sd.CreatedAt = time.UnixMilli(createdMs).UTC()
	return sd, nil
}

// dbError reports a database failure as a STORE_ERROR.
func dbError(err error, format string, args ...any) error {
	return schema.NewErrorf(schema.ErrCodeStore, format+": %s", append(args, err.Error())...).WithCause(err)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ SaveLog = (*LibSQLSaveLog)(nil)
