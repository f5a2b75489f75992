package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Search
	Search key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Reload from storage
	Refresh key.Binding

	// Item actions
	Toggle        key.Binding
	AddChild      key.Binding
	AddSibling    key.Binding
	Edit          key.Binding
	Delete        key.Binding
	DeleteSubtree key.Binding
	Copy          key.Binding

	// Outline editing
	Indent   key.Binding
	Outdent  key.Binding
	MoveUp   key.Binding
	MoveDown key.Binding
	Fold     key.Binding

	// View toggles
	ShowCompleted  key.Binding
	ActionableOnly key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open detail"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("x", " "),
			key.WithHelp("x/space", "toggle done"),
		),
		AddChild: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add child"),
		),
		AddSibling: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "add sibling"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		DeleteSubtree: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete subtree"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy subtree"),
		),
		Indent: key.NewBinding(
			key.WithKeys("tab", "L"),
			key.WithHelp("tab/L", "indent"),
		),
		Outdent: key.NewBinding(
			key.WithKeys("shift+tab", "H"),
			key.WithHelp("S-tab/H", "outdent"),
		),
		MoveUp: key.NewBinding(
			key.WithKeys("K", "shift+up"),
			key.WithHelp("K", "move up"),
		),
		MoveDown: key.NewBinding(
			key.WithKeys("J", "shift+down"),
			key.WithHelp("J", "move down"),
		),
		Fold: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "fold/unfold"),
		),
		ShowCompleted: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "show/hide done"),
		),
		ActionableOnly: key.NewBinding(
			key.WithKeys("!"),
			key.WithHelp("!", "actionable only"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Toggle, k.AddChild,
		k.Edit, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back, k.Quit},
		{k.Toggle, k.AddChild, k.AddSibling, k.Edit, k.Delete, k.DeleteSubtree},
		{k.Indent, k.Outdent, k.MoveUp, k.MoveDown, k.Fold, k.Copy},
		{k.Search, k.Command, k.Help, k.Refresh, k.ShowCompleted, k.ActionableOnly},
	}
}
