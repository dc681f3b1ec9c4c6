package convert

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"folio/detect"
	"folio/editor"
	"folio/ir"
	"folio/project"
	"folio/store"
)

// memStore is in-memory document and entity store counting mutations.
type memStore struct {
	mu        sync.Mutex
	project   project.Project
	docs      []project.Document
	entities  []project.Entity
	mutations int
	// onCreate is called before each document creation.
	onCreate func(n int)
	// createErr fails document creation when it returns error.
	createErr func(n int) error
}

func newMemStore() *memStore {
	return &memStore{project: project.Project{ID: "p1", Title: "Harbor Lights", Author: "Ann Reed", Language: "en"}}
}

func (m *memStore) Project(_ context.Context, id string) (*project.Project, error) {
	if id != m.project.ID {
		return nil, store.ErrNotFound
	}
	p := m.project
	return &p, nil
}

func (m *memStore) Documents(_ context.Context, projectID string) ([]project.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []project.Document
	for _, d := range m.docs {
		if d.ProjectID == projectID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) CreateDocument(ctx context.Context, d *project.Document) error {
	m.mu.Lock()
	n := len(m.docs)
	m.mu.Unlock()
	if m.onCreate != nil {
		m.onCreate(n)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.createErr != nil {
		if err := m.createErr(n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, *d)
	m.mutations++
	return nil
}

func (m *memStore) DeleteDocuments(_ context.Context, projectID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keep []project.Document
	for _, d := range m.docs {
		if d.ProjectID != projectID {
			keep = append(keep, d)
		}
	}
	n := len(m.docs) - len(keep)
	m.docs = keep
	m.mutations++
	return n, nil
}

func (m *memStore) Entities(_ context.Context, projectID string) ([]project.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []project.Entity
	for _, e := range m.entities {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) UpsertEntity(_ context.Context, projectID string, u project.EntityUpsert) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutations++
	if u.ID == "" {
		id := fmt.Sprintf("e%d", len(m.entities)+1)
		m.entities = append(m.entities, project.Entity{ID: id, ProjectID: projectID, Name: u.Name, Type: u.Type, Aliases: u.Aliases, Notes: u.Notes})
		return id, nil
	}
	for i := range m.entities {
		e := &m.entities[i]
		if e.ID != u.ID {
			continue
		}
		for _, a := range u.Aliases {
			if !strings.EqualFold(a, e.Name) && !containsFold(e.Aliases, a) {
				e.Aliases = append(e.Aliases, a)
			}
		}
		if e.Notes == "" {
			e.Notes = u.Notes
		}
		return e.ID, nil
	}
	return "", store.ErrNotFound
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// addDocument stores document with content made of IR blocks.
func (m *memStore) addDocument(d project.Document, blocks ...ir.Block) {
	if len(blocks) > 0 {
		content, err := editor.Marshal(editor.FromIR(blocks))
		if err != nil {
			panic(err)
		}
		d.Content = content
	}
	if d.ProjectID == "" {
		d.ProjectID = m.project.ID
	}
	m.docs = append(m.docs, d)
}

type fakeDetector struct {
	candidates []detect.Candidate
	err        error
	text       string
}

func (f *fakeDetector) Detect(_ context.Context, text string, _ []string) ([]detect.Candidate, error) {
	f.text = text
	return f.candidates, f.err
}

// sequentialIDs makes draft ids predictable for the duration of a test.
func sequentialIDs() func() {
	old := newID
	n := 0
	newID = func() string {
		n++
		return fmt.Sprintf("d%d", n)
	}
	return func() { newID = old }
}
