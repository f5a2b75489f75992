package detail

import (
	"strings"
	"testing"
	"time"

	"github.com/nhle/taskgraph/internal/graph"
	"github.com/nhle/taskgraph/internal/model"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func snapshot() *graph.Snapshot {
	items := []model.Item{
		{ID: "root", Title: "Home"},
		{ID: "paint", Title: "Paint fence", ParentID: model.StringPtr("root"), Description: "Use the **blue** paint"},
		{ID: "buy", Title: "Buy paint", Position: 1},
	}
	deps := []model.TaskDependency{{ID: "d1", BlockingTaskID: "buy", BlockedTaskID: "paint"}}
	gates := []model.DateDependency{{ID: "g1", TaskID: "paint", UnblockAt: now.Add(48 * time.Hour)}}
	return graph.NewSnapshot(items, deps, gates)
}

func TestReportLines(t *testing.T) {
	snap := snapshot()
	r := graph.Resolver{Now: func() time.Time { return now }}

	lines := ReportLines(snap, r.Report(snap, "paint"))
	if len(lines) != 2 {
		t.Fatalf("lines = %v", lines)
	}
	if !strings.HasPrefix(lines[0], "locked until") {
		t.Errorf("first line = %q", lines[0])
	}
	if lines[1] != `waiting on "Buy paint"` {
		t.Errorf("second line = %q", lines[1])
	}

	if lines := ReportLines(snap, r.Report(snap, "buy")); len(lines) != 0 {
		t.Errorf("buy should not be blocked: %v", lines)
	}
}

func TestRenderIncludesContext(t *testing.T) {
	snap := snapshot()
	r := graph.Resolver{Now: func() time.Time { return now }}
	paint, _ := snap.Item("paint")

	out := Render(snap, r, paint, "notty", 80)
	for _, want := range []string{"Home", "Paint fence", "Task", "blocked", "Buy paint", "blue"} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q:\n%s", want, out)
		}
	}

	buy, _ := snap.Item("buy")
	out = Render(snap, r, buy, "notty", 80)
	if !strings.Contains(out, "Blocks (1)") || !strings.Contains(out, "No description") {
		t.Errorf("render of blocker:\n%s", out)
	}
}

func TestMarkdownStyle(t *testing.T) {
	if markdownStyle("Light") != "light" || markdownStyle("dark") != "dark" || markdownStyle("ascii") != "notty" {
		t.Error("explicit themes not mapped")
	}
	if s := markdownStyle("default"); s != "dark" && s != "light" {
		t.Errorf("default style = %q", s)
	}
}
