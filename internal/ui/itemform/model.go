package itemform

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskgraph/internal/importer"
	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/theme"
)

// autoType is the select value meaning "derive the type from the tree".
const autoType = "auto"

// SubmitMsg is dispatched when the form is completed.
type SubmitMsg struct {
	// ID is empty when creating.
	ID       string
	ParentID *string

	Title       string
	Description string

	// Type is nil when the type should be derived from the tree.
	Type *model.ItemType

	Completed bool

	// UnlockAt is nil when the item has no unlock date.
	UnlockAt *time.Time
}

// Editing reports whether the message updates an existing item.
func (m SubmitMsg) Editing() bool { return m.ID != "" }

// Draft converts a create submission into an engine draft.
func (m SubmitMsg) Draft() model.ItemDraft {
	return model.ItemDraft{
		ParentID:    m.ParentID,
		Title:       m.Title,
		Description: m.Description,
		Type:        m.Type,
		ManualType:  m.Type != nil,
	}
}

// Patch converts an edit submission into an engine patch.
func (m SubmitMsg) Patch() model.ItemPatch {
	p := model.ItemPatch{
		Title:       model.StringPtr(m.Title),
		Description: model.StringPtr(m.Description),
		Completed:   model.BoolPtr(m.Completed),
		ManualType:  model.BoolPtr(m.Type != nil),
	}
	if m.Type != nil {
		p.Type = m.Type
	}
	return p
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	itemType    string
	completed   bool
	unlockAt    string
}

// Model is the Bubble Tea model for the item create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	editID   string
	parentID *string
	heading  string
	width    int
	height   int
}

// New creates a new item form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{itemType: autoType},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a new item under parentID
// (nil for a root item). parentTitle is shown in the heading.
func (m *Model) StartCreate(parentID *string, parentTitle string) tea.Cmd {
	m.editID = ""
	m.parentID = parentID
	m.heading = "New Item"
	if parentTitle != "" {
		m.heading = "New Item under " + parentTitle
	}
	*m.fb = formBindings{itemType: autoType}
	m.form = m.buildForm(false)
	return m.form.Init()
}

// StartEdit initializes the form for editing item. unlockAt is the
// item's current unlock date, if any.
func (m *Model) StartEdit(item model.Item, unlockAt *time.Time) tea.Cmd {
	m.editID = item.ID
	m.parentID = item.ParentID
	m.heading = "Edit Item"
	*m.fb = formBindings{
		title:       item.Title,
		description: item.Description,
		itemType:    autoType,
		completed:   item.Completed,
	}
	if item.ManualType && item.Type != nil {
		m.fb.itemType = string(*item.Type)
	}
	if unlockAt != nil {
		m.fb.unlockAt = unlockAt.Local().Format(time.RFC3339)
	}
	m.form = m.buildForm(true)
	return m.form.Init()
}

// Update handles messages for the item form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		submit := m.submission()
		m.form = nil
		return m, func() tea.Msg { return submit }
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the item form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(m.heading) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm(edit bool) *huh.Form {
	typeOpts := []huh.Option[string]{huh.NewOption("Auto (from tree shape)", autoType)}
	for _, t := range model.ValidItemTypes() {
		typeOpts = append(typeOpts, huh.NewOption(t.Label(), string(t)))
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			Value(&m.fb.title).
			Validate(validateRequired("Title")),
		huh.NewText().
			Title("Description").
			Placeholder("Markdown, optional").
			Value(&m.fb.description),
		huh.NewSelect[string]().
			Title("Type").
			Options(typeOpts...).
			Value(&m.fb.itemType),
		huh.NewInput().
			Title("Unlock Date").
			Placeholder("YYYY-MM-DD or RFC 3339 (optional)").
			Value(&m.fb.unlockAt).
			Validate(validateOptionalTime),
	}
	if edit {
		fields = append(fields,
			huh.NewConfirm().
				Title("Completed").
				Value(&m.fb.completed),
		)
	}

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) submission() SubmitMsg {
	msg := SubmitMsg{
		ID:          m.editID,
		ParentID:    m.parentID,
		Title:       strings.TrimSpace(m.fb.title),
		Description: m.fb.description,
		Completed:   m.fb.completed,
	}
	if m.fb.itemType != autoType {
		msg.Type = model.TypePtr(model.ItemType(m.fb.itemType))
	}
	if s := strings.TrimSpace(m.fb.unlockAt); s != "" {
		if at, err := importer.ParseTime(s); err == nil {
			msg.UnlockAt = &at
		}
	}
	return msg
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateOptionalTime(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := importer.ParseTime(s); err != nil {
		return fmt.Errorf("use YYYY-MM-DD or RFC 3339")
	}
	return nil
}
