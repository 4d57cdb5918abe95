package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/grahamg/ai-git/internal/logging"
)

const schemaVersion = 1

// Store persists the single active session for a repository. The durable
// slot is a SQLite file under .git/aigit/; the whole session state is
// overwritten on every mutation.
type Store struct {
	db      *sql.DB
	path    string
	scratch string
	log     *logging.Logger
}

// Open creates or opens the session store for a repository. A corrupt
// database file is logged, discarded and recreated; it never fails the
// caller the way a missing one doesn't.
func Open(repoRoot string) (*Store, error) {
	dir := filepath.Join(repoRoot, ".git", "aigit")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	s := &Store{
		path:    filepath.Join(dir, "session.db"),
		scratch: filepath.Join(os.TempDir(), "aigit"),
		log:     logging.New("session").WithRepo(repoRoot),
	}

	if err := s.open(); err != nil {
		s.log.Warn("session_db_corrupt", map[string]interface{}{"path": s.path}, err)
		_ = os.Remove(s.path)
		if err := s.open(); err != nil {
			return nil, fmt.Errorf("open session db: %w", err)
		}
	}
	return s, nil
}

func (s *Store) open() error {
	db, err := sql.Open("sqlite3", s.path+"?_journal=WAL&_timeout=5000")
	if err != nil {
		return err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return err
	}
	s.db = db
	return nil
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		slot INTEGER PRIMARY KEY CHECK (slot = 1),
		id TEXT NOT NULL,
		branch TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		context_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS change_records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		record_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		prompt TEXT NOT NULL,
		changed_files_json TEXT NOT NULL,
		commit_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_records_session ON change_records(session_id, seq);
	`
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	_, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`,
		fmt.Sprintf("%d", schemaVersion))
	return err
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load returns the persisted session, or nil when none exists. Unreadable
// or unparseable state is logged and treated as no session.
func (s *Store) Load() *Session {
	var (
		sess        Session
		contextJSON string
	)
	err := s.db.QueryRow(`
		SELECT id, branch, created_at, context_json FROM sessions WHERE slot = 1
	`).Scan(&sess.ID, &sess.Branch, &sess.CreatedAt, &contextJSON)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		s.log.Warn("session_load_failed", nil, err)
		return nil
	}

	if err := json.Unmarshal([]byte(contextJSON), &sess.ContextFiles); err != nil {
		s.log.Warn("session_context_corrupt", nil, err)
		return nil
	}

	records, err := s.loadRecords(sess.ID)
	if err != nil {
		s.log.Warn("session_history_corrupt", nil, err)
		return nil
	}
	sess.ChangeHistory = records
	return &sess
}

func (s *Store) loadRecords(sessionID string) ([]ChangeRecord, error) {
	rows, err := s.db.Query(`
		SELECT record_id, timestamp, prompt, changed_files_json, commit_id
		FROM change_records WHERE session_id = ? ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ChangeRecord
	for rows.Next() {
		var (
			rec       ChangeRecord
			filesJSON string
			commitID  sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &rec.Prompt, &filesJSON, &commitID); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(filesJSON), &rec.ChangedFiles); err != nil {
			return nil, err
		}
		rec.CommitID = commitID.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Save persists the full session state in one transaction. A nil session
// is a no-op.
func (s *Store) Save(sess *Session) error {
	if sess == nil {
		return nil
	}

	contextJSON, err := json.Marshal(sess.ContextFiles)
	if err != nil {
		return fmt.Errorf("marshal context files: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT OR REPLACE INTO sessions (slot, id, branch, created_at, context_json)
		VALUES (1, ?, ?, ?, ?)
	`, sess.ID, sess.Branch, sess.CreatedAt.UTC(), string(contextJSON)); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	// History is rewritten whole: the slot holds exactly one session.
	if _, err := tx.Exec(`DELETE FROM change_records`); err != nil {
		return fmt.Errorf("reset history: %w", err)
	}
	for _, rec := range sess.ChangeHistory {
		filesJSON, err := json.Marshal(rec.ChangedFiles)
		if err != nil {
			return fmt.Errorf("marshal changed files: %w", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO change_records (record_id, session_id, timestamp, prompt, changed_files_json, commit_id)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rec.ID, sess.ID, rec.Timestamp.UTC(), rec.Prompt, string(filesJSON), rec.CommitID); err != nil {
			return fmt.Errorf("save change record: %w", err)
		}
	}

	return tx.Commit()
}

// Clear deletes the persisted session and the tool's scratch directory.
// Idempotent: clearing an already-cleared store succeeds silently.
func (s *Store) Clear() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM change_records`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM sessions`); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if err := os.RemoveAll(s.scratch); err != nil {
		s.log.Warn("scratch_cleanup_failed", map[string]interface{}{"path": s.scratch}, err)
	}
	return nil
}
