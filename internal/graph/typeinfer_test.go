package graph

import (
	"errors"
	"testing"

	"github.com/nhle/taskgraph/internal/model"
)

func TestEffectiveType(t *testing.T) {
	pinned := node("pinned", "obj", 2)
	pinned.ManualType = true
	pinned.Type = model.TypePtr(model.TypeAmbition)

	stale := node("stale", "obj", 3)
	stale.Type = model.TypePtr(model.TypeObjective)

	s := NewSnapshot([]model.Item{
		node("root", "", 0),
		node("obj", "root", 0),
		node("mission", "obj", 0),
		node("leaf", "mission", 0),
		node("task", "obj", 1),
		pinned,
		stale,
	}, nil, nil)

	tests := []struct {
		id   string
		want model.ItemType
	}{
		{"root", model.TypeAmbition},
		{"obj", model.TypeObjective},
		{"mission", model.TypeMission},
		{"leaf", model.TypeTask},
		{"task", model.TypeTask},
		{"pinned", model.TypeAmbition},
		{"stale", model.TypeTask},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := EffectiveTypeOf(s, tt.id)
			if err != nil {
				t.Fatalf("EffectiveTypeOf: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := EffectiveTypeOf(s, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id error = %v, want ErrNotFound", err)
	}
}

func TestEffectiveTypeIgnoresManualWithoutType(t *testing.T) {
	it := node("root", "", 0)
	it.ManualType = true
	s := NewSnapshot([]model.Item{it}, nil, nil)

	if got := EffectiveType(s, it); got != model.TypeAmbition {
		t.Errorf("got %s, want derived Ambition", got)
	}
}

func TestEffectiveTypeStableUnderSiblingPermutation(t *testing.T) {
	build := func(order []string) *Snapshot {
		items := []model.Item{node("root", "", 0), node("deep", "b", 0)}
		for i, id := range order {
			items = append(items, node(id, "root", i))
		}
		return NewSnapshot(items, nil, nil)
	}

	base := build([]string{"a", "b", "c"})
	perms := [][]string{
		{"a", "c", "b"},
		{"b", "a", "c"},
		{"b", "c", "a"},
		{"c", "a", "b"},
		{"c", "b", "a"},
	}
	for _, order := range perms {
		s := build(order)
		mustValid(t, s)
		for _, id := range []string{"root", "a", "b", "c", "deep"} {
			want, _ := EffectiveTypeOf(base, id)
			got, _ := EffectiveTypeOf(s, id)
			if got != want {
				t.Errorf("order %v: %s is %s, want %s", order, id, got, want)
			}
		}
	}
}
