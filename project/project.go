// Package project holds data exchanged with the document and entity stores.
package project

import (
	"encoding/json"

	"folio/ir"
)

// Document types known to the story tree.
const (
	TypeChapter = "chapter"
	TypeScene   = "scene"
	TypeNote    = "note"
)

// Entity types in default glossary order.
const (
	EntityCharacter = "character"
	EntityLocation  = "location"
	EntityItem      = "item"
	EntityFaction   = "faction"
	EntityEvent     = "event"
	EntityConcept   = "concept"
)

// DefaultEntityTypes lists entity types in the order glossary sections are
// produced when nothing else is requested.
var DefaultEntityTypes = []string{
	EntityCharacter,
	EntityLocation,
	EntityItem,
	EntityFaction,
	EntityEvent,
	EntityConcept,
}

type Project struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
	Language string `json:"language,omitempty"`
	Synopsis string `json:"synopsis,omitempty"`
}

// Document is a single stored document. Root documents have empty ParentID.
// Content is the editor tree serialized as JSON.
type Document struct {
	ID         string          `json:"id"`
	ProjectID  string          `json:"projectId"`
	ParentID   string          `json:"parentId,omitempty"`
	OrderIndex int             `json:"orderIndex"`
	Type       string          `json:"type"`
	Title      string          `json:"title"`
	Content    json.RawMessage `json:"content,omitempty"`
	WordCount  int             `json:"wordCount"`
}

// Entity is a story entity (character, location and so on) from the world
// store.
type Entity struct {
	ID         string         `json:"id"`
	ProjectID  string         `json:"projectId"`
	Name       string         `json:"name"`
	Type       string         `json:"type"`
	Aliases    []string       `json:"aliases,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Notes      string         `json:"notes,omitempty"`
}

// DocumentDraft is a document produced by import, not yet persisted.
type DocumentDraft struct {
	ID         string
	ParentID   string
	Type       string
	Title      string
	OrderIndex int
	WordCount  int
	Blocks     []ir.Block
}

// EntityUpsert describes entity to be created (empty ID) or updated with
// additional aliases.
type EntityUpsert struct {
	ID      string
	Name    string
	Type    string
	Aliases []string
	Notes   string
}
