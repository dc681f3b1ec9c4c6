// Package store keeps projects, documents and world entities in a single
// SQLite database. It is the persistence layer command line tool drives
// import and export through.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"folio/project"
)

var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS projects (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	author TEXT NOT NULL DEFAULT '',
	language TEXT NOT NULL DEFAULT '',
	synopsis TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	parent_id TEXT NOT NULL DEFAULT '',
	order_index INTEGER NOT NULL DEFAULT 0,
	type TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '',
	word_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id, parent_id, order_index);

CREATE TABLE IF NOT EXISTS entities (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	name TEXT NOT NULL,
	type TEXT NOT NULL,
	aliases TEXT NOT NULL DEFAULT '[]',
	properties TEXT NOT NULL DEFAULT '{}',
	notes TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_entities_project ON entities(project_id, type);
`

// Store is SQLite backed document and entity store. Single connection is
// shared and serialized, operations honor context cancellation.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	log  *zap.Logger
}

// Open opens (creating when necessary) database at path. Empty path or
// ":memory:" opens private in-memory database.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("store")

	var (
		conn *sqlite.Conn
		err  error
	)
	if path == "" || path == ":memory:" {
		conn, err = sqlite.OpenConn(":memory:", sqlite.OpenReadWrite, sqlite.OpenMemory)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("unable to create store directory: %w", err)
		}
		conn, err = sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate, sqlite.OpenWAL)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to open store (%s): %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return nil, multierr.Append(fmt.Errorf("unable to initialize store schema: %w", err), conn.Close())
	}
	log.Debug("Store opened", zap.String("path", path))
	return &Store{conn: conn, log: log}, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// acquire locks connection and arranges for running statements to be
// interrupted when ctx is done.
func (s *Store) acquire(ctx context.Context) (*sqlite.Conn, func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	if s.conn == nil {
		s.mu.Unlock()
		return nil, nil, errors.New("store is closed")
	}
	old := s.conn.SetInterrupt(ctx.Done())
	return s.conn, func() {
		s.conn.SetInterrupt(old)
		s.mu.Unlock()
	}, nil
}

// CreateProject stores new project assigning it an id when one is missing.
func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if p.ID == "" {
		p.ID = newID()
	}
	err = sqlitex.Execute(conn,
		`INSERT INTO projects (id, title, author, language, synopsis) VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{p.ID, p.Title, p.Author, p.Language, p.Synopsis}})
	if err != nil {
		return fmt.Errorf("unable to create project: %w", err)
	}
	return nil
}

func (s *Store) Project(ctx context.Context, id string) (*project.Project, error) {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var p *project.Project
	err = sqlitex.Execute(conn,
		`SELECT id, title, author, language, synopsis FROM projects WHERE id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{id},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				p = scanProject(stmt)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to read project: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("project %q: %w", id, ErrNotFound)
	}
	return p, nil
}

func (s *Store) Projects(ctx context.Context) ([]project.Project, error) {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var out []project.Project
	err = sqlitex.Execute(conn,
		`SELECT id, title, author, language, synopsis FROM projects ORDER BY title, id`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				out = append(out, *scanProject(stmt))
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to list projects: %w", err)
	}
	return out, nil
}

func scanProject(stmt *sqlite.Stmt) *project.Project {
	return &project.Project{
		ID:       stmt.ColumnText(0),
		Title:    stmt.ColumnText(1),
		Author:   stmt.ColumnText(2),
		Language: stmt.ColumnText(3),
		Synopsis: stmt.ColumnText(4),
	}
}

// Documents returns flat list of all project documents ordered by parent
// and position.
func (s *Store) Documents(ctx context.Context, projectID string) ([]project.Document, error) {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var out []project.Document
	err = sqlitex.Execute(conn,
		`SELECT id, project_id, parent_id, order_index, type, title, content, word_count
		FROM documents WHERE project_id = ? ORDER BY parent_id, order_index, rowid`,
		&sqlitex.ExecOptions{
			Args: []any{projectID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				d := project.Document{
					ID:         stmt.ColumnText(0),
					ProjectID:  stmt.ColumnText(1),
					ParentID:   stmt.ColumnText(2),
					OrderIndex: stmt.ColumnInt(3),
					Type:       stmt.ColumnText(4),
					Title:      stmt.ColumnText(5),
					WordCount:  stmt.ColumnInt(7),
				}
				if content := stmt.ColumnText(6); content != "" {
					d.Content = json.RawMessage(content)
				}
				out = append(out, d)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to list documents: %w", err)
	}
	return out, nil
}

// CreateDocument stores new document assigning it an id when one is missing.
func (s *Store) CreateDocument(ctx context.Context, d *project.Document) error {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if d.ID == "" {
		d.ID = newID()
	}
	err = sqlitex.Execute(conn,
		`INSERT INTO documents (id, project_id, parent_id, order_index, type, title, content, word_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{d.ID, d.ProjectID, d.ParentID, d.OrderIndex, d.Type, d.Title, string(d.Content), d.WordCount}})
	if err != nil {
		return fmt.Errorf("unable to create document %q: %w", d.Title, err)
	}
	return nil
}

// DeleteDocuments removes all documents of the project and returns their
// number.
func (s *Store) DeleteDocuments(ctx context.Context, projectID string) (int, error) {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	if err := sqlitex.Execute(conn, `DELETE FROM documents WHERE project_id = ?`, &sqlitex.ExecOptions{Args: []any{projectID}}); err != nil {
		return 0, fmt.Errorf("unable to delete documents: %w", err)
	}
	n := conn.Changes()
	s.log.Debug("Documents deleted", zap.String("project", projectID), zap.Int("count", n))
	return n, nil
}

// Entities returns all world entities of the project.
func (s *Store) Entities(ctx context.Context, projectID string) ([]project.Entity, error) {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var out []project.Entity
	err = sqlitex.Execute(conn,
		`SELECT id, project_id, name, type, aliases, properties, notes
		FROM entities WHERE project_id = ? ORDER BY rowid`,
		&sqlitex.ExecOptions{
			Args: []any{projectID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				e := project.Entity{
					ID:        stmt.ColumnText(0),
					ProjectID: stmt.ColumnText(1),
					Name:      stmt.ColumnText(2),
					Type:      stmt.ColumnText(3),
					Notes:     stmt.ColumnText(6),
				}
				if err := json.Unmarshal([]byte(stmt.ColumnText(4)), &e.Aliases); err != nil {
					return fmt.Errorf("entity %s aliases: %w", e.ID, err)
				}
				if err := json.Unmarshal([]byte(stmt.ColumnText(5)), &e.Properties); err != nil {
					return fmt.Errorf("entity %s properties: %w", e.ID, err)
				}
				out = append(out, e)
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to list entities: %w", err)
	}
	return out, nil
}

// SaveEntity stores entity as is, replacing one with the same id. It is used
// to seed world data, import goes through UpsertEntity.
func (s *Store) SaveEntity(ctx context.Context, e *project.Entity) error {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	if e.ID == "" {
		e.ID = newID()
	}
	aliases, props, err := encodeEntity(e.Aliases, e.Properties)
	if err != nil {
		return err
	}
	err = sqlitex.Execute(conn,
		`INSERT INTO entities (id, project_id, name, type, aliases, properties, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			type = excluded.type,
			aliases = excluded.aliases,
			properties = excluded.properties,
			notes = excluded.notes`,
		&sqlitex.ExecOptions{Args: []any{e.ID, e.ProjectID, e.Name, e.Type, aliases, props, e.Notes}})
	if err != nil {
		return fmt.Errorf("unable to save entity %q: %w", e.Name, err)
	}
	return nil
}

// UpsertEntity creates new entity when u.ID is empty, otherwise adds new
// aliases to existing one and fills its notes if they were empty. Returns
// id of the affected entity.
func (s *Store) UpsertEntity(ctx context.Context, projectID string, u project.EntityUpsert) (id string, err error) {
	conn, release, err := s.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer release()
	defer sqlitex.Save(conn)(&err)

	if u.ID == "" {
		id = newID()
		aliases, props, err := encodeEntity(u.Aliases, nil)
		if err != nil {
			return "", err
		}
		err = sqlitex.Execute(conn,
			`INSERT INTO entities (id, project_id, name, type, aliases, properties, notes) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			&sqlitex.ExecOptions{Args: []any{id, projectID, u.Name, u.Type, aliases, props, u.Notes}})
		if err != nil {
			return "", fmt.Errorf("unable to create entity %q: %w", u.Name, err)
		}
		return id, nil
	}

	var (
		found   bool
		name    string
		aliases []string
		notes   string
	)
	err = sqlitex.Execute(conn, `SELECT name, aliases, notes FROM entities WHERE id = ? AND project_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{u.ID, projectID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				found = true
				name, notes = stmt.ColumnText(0), stmt.ColumnText(2)
				return json.Unmarshal([]byte(stmt.ColumnText(1)), &aliases)
			},
		})
	if err != nil {
		return "", fmt.Errorf("unable to read entity %s: %w", u.ID, err)
	}
	if !found {
		return "", fmt.Errorf("entity %s: %w", u.ID, ErrNotFound)
	}

	for _, a := range u.Aliases {
		a = strings.TrimSpace(a)
		if a == "" || strings.EqualFold(a, name) || slices.ContainsFunc(aliases, func(h string) bool { return strings.EqualFold(h, a) }) {
			continue
		}
		aliases = append(aliases, a)
	}
	if notes == "" {
		notes = u.Notes
	}
	encoded, _, err := encodeEntity(aliases, nil)
	if err != nil {
		return "", err
	}
	err = sqlitex.Execute(conn, `UPDATE entities SET aliases = ?, notes = ? WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{encoded, notes, u.ID}})
	if err != nil {
		return "", fmt.Errorf("unable to update entity %q: %w", name, err)
	}
	return u.ID, nil
}

func encodeEntity(aliases []string, props map[string]any) (string, string, error) {
	if aliases == nil {
		aliases = []string{}
	}
	if props == nil {
		props = map[string]any{}
	}
	a, err := json.Marshal(aliases)
	if err != nil {
		return "", "", fmt.Errorf("unable to encode aliases: %w", err)
	}
	p, err := json.Marshal(props)
	if err != nil {
		return "", "", fmt.Errorf("unable to encode properties: %w", err)
	}
	return string(a), string(p), nil
}

func newID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
