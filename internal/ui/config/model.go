package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskgraph/internal/keys"
	"github.com/nhle/taskgraph/internal/model"
	"github.com/nhle/taskgraph/internal/theme"
)

// Mode represents the current state of the settings view.
type Mode int

const (
	ModeSummary Mode = iota // Show the effective settings
	ModeForm                // Editing
	ModeSaving              // Writing the config file
)

// Themes offered for markdown rendering. "default" follows the terminal
// background.
var Themes = []string{"default", "dark", "light", "notty", "ascii"}

// DoneMsg signals the settings view should close.
type DoneMsg struct{}

// SavedMsg carries the configuration after it was written.
type SavedMsg struct {
	Config model.AppConfig
}

// savedInternalMsg is sent after the config file is written.
type savedInternalMsg struct {
	cfg model.AppConfig
	err error
}

// formBindings holds the values huh writes into. It lives behind a
// pointer so the form keeps valid references when Model is copied.
type formBindings struct {
	theme         string
	showCompleted bool
	recheckSec    string
	timeoutSec    string
}

// Model is the Bubble Tea model for the settings editor.
type Model struct {
	mode Mode
	path string
	cfg  model.AppConfig

	form *huh.Form
	fb   *formBindings

	spinner   spinner.Model
	statusMsg string

	keys          *keys.KeyMap
	width, height int
}

// New creates a settings view editing cfg, saved to path.
func New(path string, cfg model.AppConfig, k *keys.KeyMap, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		mode:    ModeSummary,
		path:    path,
		cfg:     cfg,
		fb:      &formBindings{},
		spinner: sp,
		keys:    k,
		width:   width,
		height:  height,
	}
}

// Editing reports whether the form owns the keyboard.
func (m Model) Editing() bool {
	return m.mode != ModeSummary
}

// Open resets the view to the summary of cfg.
func (m *Model) Open(cfg model.AppConfig) {
	m.cfg = cfg
	m.mode = ModeSummary
	m.statusMsg = ""
}

// Update handles messages and dispatches based on current mode.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case savedInternalMsg:
		m.mode = ModeSummary
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error saving settings: %v", msg.err)
			return m, nil
		}
		m.cfg = msg.cfg
		m.statusMsg = "Saved to " + m.path
		cfg := msg.cfg
		return m, func() tea.Msg { return SavedMsg{Config: cfg} }

	case spinner.TickMsg:
		if m.mode == ModeSaving {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.KeyMsg:
		if m.mode == ModeSummary {
			return m.handleSummaryKeys(msg)
		}
	}

	if m.mode == ModeForm {
		return m.updateForm(msg)
	}
	return m, nil
}

func (m Model) handleSummaryKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return DoneMsg{} }
	case key.Matches(msg, m.keys.Edit), key.Matches(msg, m.keys.Select):
		return m, m.startForm()
	}
	return m, nil
}

// startForm loads the current settings into the form.
func (m *Model) startForm() tea.Cmd {
	*m.fb = formBindings{
		theme:         m.cfg.Display.Theme,
		showCompleted: m.cfg.Display.ShowCompleted,
		recheckSec:    strconv.Itoa(m.cfg.Unlock.RecheckIntervalSec),
		timeoutSec:    strconv.Itoa(m.cfg.Engine.StorageTimeoutSec),
	}
	m.statusMsg = ""
	m.mode = ModeForm
	m.form = m.buildForm()
	return m.form.Init()
}

func (m *Model) buildForm() *huh.Form {
	opts := make([]huh.Option[string], len(Themes))
	for i, t := range Themes {
		opts[i] = huh.NewOption(t, t)
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Theme").
				Description("Markdown style for descriptions").
				Options(opts...).
				Value(&m.fb.theme),
			huh.NewConfirm().
				Title("Show completed items?").
				Affirmative("Show").
				Negative("Hide").
				Value(&m.fb.showCompleted),
			huh.NewInput().
				Title("Unlock re-check (seconds)").
				Description("How often date gates are re-evaluated. Applies after restart.").
				Value(&m.fb.recheckSec).
				Validate(validateSeconds),
			huh.NewInput().
				Title("Storage timeout (seconds)").
				Description("Upper bound for each database call. Applies after restart.").
				Value(&m.fb.timeoutSec).
				Validate(validateSeconds),
		),
	).WithWidth(m.formWidth())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.mode = ModeSaving
		return m, tea.Batch(m.spinner.Tick, m.save(m.apply()))
	case huh.StateAborted:
		m.mode = ModeSummary
		return m, nil
	}
	return m, cmd
}

// apply returns the current config with the form's values written in.
func (m Model) apply() model.AppConfig {
	cfg := m.cfg
	cfg.Display.Theme = m.fb.theme
	cfg.Display.ShowCompleted = m.fb.showCompleted
	if n, err := strconv.Atoi(strings.TrimSpace(m.fb.recheckSec)); err == nil {
		cfg.Unlock.RecheckIntervalSec = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(m.fb.timeoutSec)); err == nil {
		cfg.Engine.StorageTimeoutSec = n
	}
	return cfg
}

func (m Model) save(cfg model.AppConfig) tea.Cmd {
	path := m.path
	return func() tea.Msg {
		err := model.SaveConfig(path, &cfg)
		return savedInternalMsg{cfg: cfg, err: err}
	}
}

// --- View ---

// View renders the settings UI based on the current mode.
func (m Model) View() string {
	switch m.mode {
	case ModeForm:
		return m.viewForm()
	case ModeSaving:
		return m.frame(fmt.Sprintf("%s Saving settings...", m.spinner.View()))
	default:
		return m.viewSummary()
	}
}

func (m Model) viewSummary() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)
	b.WriteString(titleStyle.Render("Settings"))
	b.WriteString("\n\n")

	labelStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	row := func(label, value string) {
		b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(fmt.Sprintf("%-18s", label)), value))
	}
	row("Config file", m.path)
	row("Database", m.cfg.Database.Path)
	row("Owner", m.cfg.Owner.ID)
	row("Theme", m.cfg.Display.Theme)
	row("Show completed", strconv.FormatBool(m.cfg.Display.ShowCompleted))
	row("Unlock re-check", fmt.Sprintf("%ds", m.cfg.Unlock.RecheckIntervalSec))
	row("Storage timeout", fmt.Sprintf("%ds", m.cfg.Engine.StorageTimeoutSec))

	if m.statusMsg != "" {
		b.WriteString("\n")
		statusStyle := lipgloss.NewStyle().
			Foreground(theme.ColorYellow).
			Italic(true)
		b.WriteString(statusStyle.Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("e edit | esc back"))

	return m.frame(b.String())
}

func (m Model) viewForm() string {
	if m.form == nil {
		return ""
	}
	return m.frame(m.form.View())
}

func (m Model) frame(content string) string {
	return lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height).
		Render(content)
}

// --- Helpers ---

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth())
	}
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

// --- Validators ---

func validateSeconds(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a whole number of seconds")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive")
	}
	return nil
}
