package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/noteflow/noteflow/internal/note"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

// Store wraps a SQLite database holding notes.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "noteflow.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate applies embedded SQL migrations that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Notes ---

const noteColumns = `id, user_id, title, folder_id, source_type, source_url, audio_file_url, language,
	transcript, ai_summary, my_notes, insights, status, is_deleted, created_at, updated_at`

// SaveNote inserts or replaces n as a whole and returns it with UpdatedAt
// refreshed. Each call is atomic; concurrent saves of the same note are
// last-write-wins.
func (s *Store) SaveNote(n note.Note) (note.Note, error) {
	if n.ID == "" {
		return note.Note{}, errors.New("note id is required")
	}
	if !n.Status.Valid() {
		return note.Note{}, fmt.Errorf("invalid status %q", n.Status)
	}
	if n.Insights == nil {
		n.Insights = []string{}
	}
	insights, err := json.Marshal(n.Insights)
	if err != nil {
		return note.Note{}, fmt.Errorf("marshaling insights: %w", err)
	}

	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now

	_, err = s.db.Exec(`
		INSERT INTO notes (`+noteColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			folder_id = excluded.folder_id,
			source_type = excluded.source_type,
			source_url = excluded.source_url,
			audio_file_url = excluded.audio_file_url,
			language = excluded.language,
			transcript = excluded.transcript,
			ai_summary = excluded.ai_summary,
			my_notes = excluded.my_notes,
			insights = excluded.insights,
			status = excluded.status,
			is_deleted = excluded.is_deleted,
			updated_at = excluded.updated_at`,
		n.ID, n.UserID, n.Title, n.FolderID, string(n.SourceType), n.SourceURL, n.AudioFileURL, n.Language,
		n.Transcript, n.AISummary, n.MyNotes, string(insights), string(n.Status), n.IsDeleted,
		n.CreatedAt.UTC().Format(timeLayout), n.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return note.Note{}, fmt.Errorf("saving note %s: %w", n.ID, err)
	}
	return n, nil
}

// GetNote returns the note with id regardless of owner.
func (s *Store) GetNote(id string) (note.Note, error) {
	return scanNote(s.db.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id))
}

// GetNoteForUser returns the note with id if it is owned by userID. A note
// owned by someone else or soft-deleted is reported as ErrNotFound.
func (s *Store) GetNoteForUser(id, userID string) (note.Note, error) {
	return scanNote(s.db.QueryRow(`SELECT `+noteColumns+` FROM notes
		WHERE id = ? AND user_id = ? AND is_deleted = 0`, id, userID))
}

// ListNotes returns the user's non-deleted notes, newest first.
func (s *Store) ListNotes(userID string, limit, offset int) ([]note.Note, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`SELECT `+noteColumns+` FROM notes
		WHERE user_id = ? AND is_deleted = 0
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []note.Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// DeleteNote soft-deletes a note owned by userID.
func (s *Store) DeleteNote(id, userID string) error {
	res, err := s.db.Exec(`UPDATE notes SET is_deleted = 1, updated_at = ? WHERE id = ? AND user_id = ?`,
		time.Now().UTC().Format(timeLayout), id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByStatus returns how many non-deleted notes are in each status.
func (s *Store) CountByStatus() (map[note.Status]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM notes WHERE is_deleted = 0 GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[note.Status]int)
	for rows.Next() {
		var st string
		var c int
		if err := rows.Scan(&st, &c); err != nil {
			return nil, err
		}
		counts[note.Status(st)] = c
	}
	return counts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (note.Note, error) {
	var (
		n                    note.Note
		sourceType, status   string
		insights             string
		createdAt, updatedAt string
	)
	err := row.Scan(&n.ID, &n.UserID, &n.Title, &n.FolderID, &sourceType, &n.SourceURL, &n.AudioFileURL, &n.Language,
		&n.Transcript, &n.AISummary, &n.MyNotes, &insights, &status, &n.IsDeleted, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return note.Note{}, ErrNotFound
	}
	if err != nil {
		return note.Note{}, err
	}

	n.SourceType = note.SourceType(sourceType)
	n.Status = note.Status(status)
	if err := json.Unmarshal([]byte(insights), &n.Insights); err != nil {
		return note.Note{}, fmt.Errorf("decoding insights for note %s: %w", n.ID, err)
	}
	if n.Insights == nil {
		n.Insights = []string{}
	}
	if n.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return note.Note{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if n.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return note.Note{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return n, nil
}
