// Package importer reads and writes whole task trees as YAML.
package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/model"
)

// YAMLItem is a single item in the YAML document.
type YAMLItem struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description,omitempty"`

	// Type pins the item's type. Omitted types are derived from the tree.
	Type string `yaml:"type,omitempty"`
	Done bool   `yaml:"done,omitempty"`

	// UnlockAt is an RFC 3339 timestamp or a YYYY-MM-DD date.
	UnlockAt string `yaml:"unlock_at,omitempty"`

	// BlockedBy lists titles of blocking items, resolved first among the
	// imported items and then among existing ones.
	BlockedBy []string `yaml:"blocked_by,omitempty"`

	Children []YAMLItem `yaml:"children,omitempty"`
}

// Document is the root of the YAML format.
type Document struct {
	Items []YAMLItem `yaml:"items"`
}

// Target receives imported items. *engine.Engine satisfies it.
type Target interface {
	Snapshot() *graph.Snapshot
	Create(ctx context.Context, draft model.ItemDraft) (model.Item, error)
	Update(ctx context.Context, id string, patch model.ItemPatch) (model.Item, error)
	AddBlocker(ctx context.Context, id, blockingID string) error
	SetUnlockDate(ctx context.Context, id string, at time.Time) error
}

// Parse decodes and validates a YAML document.
func Parse(data []byte) (Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("YAML parse error: %w", err)
	}
	if len(doc.Items) == 0 {
		return Document{}, errors.New("no items found in YAML")
	}
	if err := validate(doc.Items, "items"); err != nil {
		return Document{}, err
	}
	return doc, nil
}

func validate(items []YAMLItem, path string) error {
	for i, it := range items {
		at := fmt.Sprintf("%s[%d]", path, i)
		if strings.TrimSpace(it.Title) == "" {
			return fmt.Errorf("%s: title is required", at)
		}
		if it.Type != "" && !model.ItemType(it.Type).IsValid() {
			return fmt.Errorf("%s: unknown type %q", at, it.Type)
		}
		if it.UnlockAt != "" {
			if _, err := ParseTime(it.UnlockAt); err != nil {
				return fmt.Errorf("%s: %w", at, err)
			}
		}
		if err := validate(it.Children, at+".children"); err != nil {
			return err
		}
	}
	return nil
}

// pending is an imported item whose gates are applied after the whole
// tree exists.
type pending struct {
	id string
	yi YAMLItem
}

// Import creates the document's items under parentID (nil for roots) and
// returns how many were created.
//
// Items are created first, then completed, then gated, so that completion
// is never rejected by a gate declared in the same document.
func Import(ctx context.Context, t Target, doc Document, parentID *string) (int, error) {
	var created []pending
	byTitle := make(map[string][]string)

	var create func(items []YAMLItem, parent *string) error
	create = func(items []YAMLItem, parent *string) error {
		for _, yi := range items {
			draft := model.ItemDraft{
				ParentID:    parent,
				Title:       yi.Title,
				Description: yi.Description,
			}
			if yi.Type != "" {
				draft.Type = model.TypePtr(model.ItemType(yi.Type))
				draft.ManualType = true
			}
			it, err := t.Create(ctx, draft)
			if err != nil {
				return fmt.Errorf("add item %q: %w", yi.Title, err)
			}
			created = append(created, pending{id: it.ID, yi: yi})
			byTitle[yi.Title] = append(byTitle[yi.Title], it.ID)

			id := it.ID
			if err := create(yi.Children, &id); err != nil {
				return err
			}
		}
		return nil
	}
	if err := create(doc.Items, parentID); err != nil {
		return len(created), err
	}

	// Children before parents.
	for i := len(created) - 1; i >= 0; i-- {
		p := created[i]
		if !p.yi.Done {
			continue
		}
		if _, err := t.Update(ctx, p.id, model.ItemPatch{Completed: model.BoolPtr(true)}); err != nil {
			return len(created), fmt.Errorf("complete %q: %w", p.yi.Title, err)
		}
	}

	for _, p := range created {
		for _, title := range p.yi.BlockedBy {
			blocking, err := resolveTitle(t.Snapshot(), byTitle, title)
			if err != nil {
				return len(created), fmt.Errorf("%q blocked_by: %w", p.yi.Title, err)
			}
			if err := t.AddBlocker(ctx, p.id, blocking); err != nil {
				return len(created), fmt.Errorf("block %q by %q: %w", p.yi.Title, title, err)
			}
		}
		if p.yi.UnlockAt != "" {
			at, _ := ParseTime(p.yi.UnlockAt)
			if err := t.SetUnlockDate(ctx, p.id, at); err != nil {
				return len(created), fmt.Errorf("unlock date for %q: %w", p.yi.Title, err)
			}
		}
	}
	return len(created), nil
}

func resolveTitle(snap *graph.Snapshot, imported map[string][]string, title string) (string, error) {
	if ids := imported[title]; len(ids) == 1 {
		return ids[0], nil
	} else if len(ids) > 1 {
		return "", fmt.Errorf("title %q is ambiguous", title)
	}

	matches := snap.Entries(graph.ByTitle(title))
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no item titled %q", title)
	case 1:
		return matches[0].ID, nil
	default:
		return "", fmt.Errorf("title %q is ambiguous", title)
	}
}

// Export converts the subtree under rootID (nil for the whole forest)
// into a document.
func Export(snap *graph.Snapshot, rootID *string) (Document, error) {
	var roots []model.Item
	if rootID == nil {
		roots = snap.ChildrenOf(nil)
	} else {
		it, ok := snap.Item(*rootID)
		if !ok {
			return Document{}, graph.NotFoundError{Kind: "item", ID: *rootID}
		}
		roots = []model.Item{it}
	}

	var convert func(items []model.Item) []YAMLItem
	convert = func(items []model.Item) []YAMLItem {
		var out []YAMLItem
		for _, it := range items {
			yi := YAMLItem{
				Title:       it.Title,
				Description: it.Description,
				Done:        it.Completed,
			}
			if it.ManualType && it.Type != nil {
				yi.Type = string(*it.Type)
			}
			for _, d := range snap.BlockersOf(it.ID) {
				if b, ok := snap.Item(d.BlockingTaskID); ok {
					yi.BlockedBy = append(yi.BlockedBy, b.Title)
				}
			}
			if gate, ok := snap.DateGateOf(it.ID); ok {
				yi.UnlockAt = gate.UnblockAt.UTC().Format(time.RFC3339)
			}
			id := it.ID
			yi.Children = convert(snap.ChildrenOf(&id))
			out = append(out, yi)
		}
		return out
	}
	return Document{Items: convert(roots)}, nil
}

// Marshal encodes a document as YAML.
func Marshal(doc Document) ([]byte, error) {
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding YAML: %w", err)
	}
	return out, nil
}

// ParseTime accepts an RFC 3339 timestamp or a YYYY-MM-DD date, the latter
// meaning local midnight.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want RFC 3339 or YYYY-MM-DD", s)
}
