// Package state provides the persistent scene and conversation stores.
// SQLite is the default backend; a JSON file backend exists for
// environments where a database file is not wanted.
package state

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/davidrioja/reelforge/internal/core"
	_ "modernc.org/sqlite"
)

//go:embed migrations/001_initial_schema.sql
var migrationV1 string

// SQLiteStore implements core.SceneStore and core.HistoryStore with SQLite
// storage. Every Apply runs in one transaction and bumps the project's
// version counter, so snapshots taken before and after a mutation always
// differ in version.
type SQLiteStore struct {
	dbPath string
	db     *sql.DB
	mu     sync.Mutex
}

// NewSQLiteStore opens (or creates) the database at dbPath and runs
// pending migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	// WAL mode so snapshot reads do not block mutation transactions.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &SQLiteStore{dbPath: dbPath, db: db}
	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		// Table does not exist yet, run the initial migration.
		version = 0
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// querier covers both *sql.DB and *sql.Tx for snapshot reads.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Snapshot returns a versioned snapshot of a project's ordered scenes.
// An unknown project yields an empty snapshot at version zero.
func (s *SQLiteStore) Snapshot(ctx context.Context, projectID core.ProjectID) (*core.SceneSnapshot, error) {
	return s.snapshotFrom(ctx, s.db, projectID)
}

func (s *SQLiteStore) snapshotFrom(ctx context.Context, q querier, projectID core.ProjectID) (*core.SceneSnapshot, error) {
	snap := &core.SceneSnapshot{
		ProjectID: projectID,
		TakenAt:   time.Now(),
	}

	err := q.QueryRowContext(ctx,
		"SELECT version FROM projects WHERE id = ?", projectID,
	).Scan(&snap.Version)
	if err == sql.ErrNoRows {
		return snap, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading project version: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, position, code, frames, fps, status, name, tool,
		       complexity, error, created_at, updated_at
		FROM scenes WHERE project_id = ? ORDER BY position
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("reading scenes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		sc := &core.SceneEntity{ProjectID: projectID}
		err := rows.Scan(
			&sc.ID, &sc.Order, &sc.Code, &sc.Duration.Frames, &sc.Duration.FPS,
			&sc.Status, &sc.Meta.Name, &sc.Meta.Tool, &sc.Meta.Complexity,
			&sc.Error, &sc.CreatedAt, &sc.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning scene row: %w", err)
		}
		snap.Scenes = append(snap.Scenes, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scene rows: %w", err)
	}
	return snap, nil
}

// Apply performs one mutation atomically and returns the resulting snapshot.
func (s *SQLiteStore) Apply(ctx context.Context, mut *core.SceneMutation) (*core.SceneSnapshot, error) {
	if err := mut.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := ensureProject(ctx, tx, mut.ProjectID); err != nil {
		return nil, err
	}

	switch mut.Operation {
	case core.OpCreate:
		err = s.applyCreate(ctx, tx, mut)
	case core.OpUpdate:
		err = s.applyUpdate(ctx, tx, mut)
	case core.OpDelete:
		err = s.applyDelete(ctx, tx, mut)
	}
	if err != nil {
		return nil, err
	}

	if err := bumpVersion(ctx, tx, mut.ProjectID); err != nil {
		return nil, err
	}
	snap, err := s.snapshotFrom(ctx, tx, mut.ProjectID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing mutation: %w", err)
	}
	return snap, nil
}

func (s *SQLiteStore) applyCreate(ctx context.Context, tx *sql.Tx, mut *core.SceneMutation) error {
	var position int
	err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM scenes WHERE project_id = ?", mut.ProjectID,
	).Scan(&position)
	if err != nil {
		return fmt.Errorf("counting scenes: %w", err)
	}

	duration := mut.NewDuration
	if duration.IsZero() {
		duration = core.DefaultDuration()
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO scenes (
			id, project_id, position, code, frames, fps, status,
			name, tool, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		mut.SceneID, mut.ProjectID, position, mut.NewCode,
		duration.Frames, duration.FPS, core.SceneStatusPending,
		mut.Name, mut.Tool, now, now,
	)
	if err != nil {
		return fmt.Errorf("inserting scene: %w", err)
	}
	return nil
}

func (s *SQLiteStore) applyUpdate(ctx context.Context, tx *sql.Tx, mut *core.SceneMutation) error {
	var frames, fps int
	var name, tool string
	err := tx.QueryRowContext(ctx,
		"SELECT frames, fps, name, tool FROM scenes WHERE project_id = ? AND id = ?",
		mut.ProjectID, mut.SceneID,
	).Scan(&frames, &fps, &name, &tool)
	if err == sql.ErrNoRows {
		return core.ErrNotFound("scene", string(mut.SceneID))
	}
	if err != nil {
		return fmt.Errorf("reading scene: %w", err)
	}

	if !mut.NewDuration.IsZero() {
		frames, fps = mut.NewDuration.Frames, mut.NewDuration.FPS
	}
	if mut.Name != "" {
		name = mut.Name
	}
	if mut.Tool != "" {
		tool = string(mut.Tool)
	}

	// Every code update returns the scene to pending; recompilation decides
	// the next status.
	_, err = tx.ExecContext(ctx, `
		UPDATE scenes SET code = ?, frames = ?, fps = ?, name = ?, tool = ?,
			status = ?, error = '', updated_at = ?
		WHERE project_id = ? AND id = ?
	`,
		mut.NewCode, frames, fps, name, tool,
		core.SceneStatusPending, time.Now(),
		mut.ProjectID, mut.SceneID,
	)
	if err != nil {
		return fmt.Errorf("updating scene: %w", err)
	}
	return nil
}

func (s *SQLiteStore) applyDelete(ctx context.Context, tx *sql.Tx, mut *core.SceneMutation) error {
	res, err := tx.ExecContext(ctx,
		"DELETE FROM scenes WHERE project_id = ? AND id = ?",
		mut.ProjectID, mut.SceneID,
	)
	if err != nil {
		return fmt.Errorf("deleting scene: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return core.ErrNotFound("scene", string(mut.SceneID))
	}
	return reindexPositions(ctx, tx, mut.ProjectID)
}

// reindexPositions closes the ordering gap a deletion leaves behind.
func reindexPositions(ctx context.Context, tx *sql.Tx, projectID core.ProjectID) error {
	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM scenes WHERE project_id = ? ORDER BY position", projectID,
	)
	if err != nil {
		return fmt.Errorf("reading scene order: %w", err)
	}
	var ids []core.SceneID
	for rows.Next() {
		var id core.SceneID
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return fmt.Errorf("scanning scene id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return fmt.Errorf("iterating scene ids: %w", err)
	}
	_ = rows.Close()

	for i, id := range ids {
		_, err := tx.ExecContext(ctx,
			"UPDATE scenes SET position = ? WHERE project_id = ? AND id = ?",
			i, projectID, id,
		)
		if err != nil {
			return fmt.Errorf("reindexing scene %s: %w", id, err)
		}
	}
	return nil
}

// SetStatus records the compile outcome for a scene without touching its
// code, order, or the project version. The transition runs through the
// scene status state machine before it is written.
func (s *SQLiteStore) SetStatus(ctx context.Context, projectID core.ProjectID, sceneID core.SceneID, status core.SceneStatus, compileErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current core.SceneEntity
	err := s.db.QueryRowContext(ctx,
		"SELECT status FROM scenes WHERE project_id = ? AND id = ?",
		projectID, sceneID,
	).Scan(&current.Status)
	if err == sql.ErrNoRows {
		return core.ErrNotFound("scene", string(sceneID))
	}
	if err != nil {
		return fmt.Errorf("reading scene status: %w", err)
	}
	if err := current.RecordCompileOutcome(status, compileErr); err != nil {
		return core.ErrState("BAD_STATUS_TRANSITION", err.Error())
	}

	if _, err := s.db.ExecContext(ctx,
		"UPDATE scenes SET status = ?, error = ?, updated_at = ? WHERE project_id = ? AND id = ?",
		current.Status, current.Error, current.UpdatedAt, projectID, sceneID,
	); err != nil {
		return fmt.Errorf("updating scene status: %w", err)
	}
	return nil
}

// Reorder replaces the scene ordering with the given id sequence.
func (s *SQLiteStore) Reorder(ctx context.Context, projectID core.ProjectID, order []core.SceneID) (*core.SceneSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM scenes WHERE project_id = ?", projectID,
	).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("counting scenes: %w", err)
	}
	if len(order) != count {
		return nil, core.ErrValidation("BAD_ORDER", "reorder must name every scene exactly once")
	}

	for i, id := range order {
		res, err := tx.ExecContext(ctx,
			"UPDATE scenes SET position = ? WHERE project_id = ? AND id = ?",
			i, projectID, id,
		)
		if err != nil {
			return nil, fmt.Errorf("reordering scene %s: %w", id, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("checking reorder result: %w", err)
		}
		if affected == 0 {
			return nil, core.ErrNotFound("scene", string(id))
		}
	}

	if err := bumpVersion(ctx, tx, projectID); err != nil {
		return nil, err
	}
	snap, err := s.snapshotFrom(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing reorder: %w", err)
	}
	return snap, nil
}

// Append adds a message to a project's conversation history.
func (s *SQLiteStore) Append(ctx context.Context, msg *core.Message) error {
	createdAt := msg.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, project_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)",
		msg.ID, msg.ProjectID, msg.Role, msg.Content, createdAt,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	return nil
}

// Recent returns up to limit most recent messages, oldest first.
func (s *SQLiteStore) Recent(ctx context.Context, projectID core.ProjectID, limit int) ([]*core.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, role, content, created_at FROM messages
		WHERE project_id = ? ORDER BY created_at DESC, id DESC LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []*core.Message
	for rows.Next() {
		m := &core.Message{ProjectID: projectID}
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating message rows: %w", err)
	}

	// Reverse into chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func ensureProject(ctx context.Context, tx *sql.Tx, projectID core.ProjectID) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO projects (id, version) VALUES (?, 0) ON CONFLICT(id) DO NOTHING",
		projectID,
	)
	if err != nil {
		return fmt.Errorf("ensuring project row: %w", err)
	}
	return nil
}

func bumpVersion(ctx context.Context, tx *sql.Tx, projectID core.ProjectID) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE projects SET version = version + 1, updated_at = ? WHERE id = ?",
		time.Now(), projectID,
	)
	if err != nil {
		return fmt.Errorf("bumping project version: %w", err)
	}
	return nil
}
