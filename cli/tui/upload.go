package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/justapithecus/sheetdrop/types"
)

// refreshInterval is how often the screen pulls a controller snapshot.
const refreshInterval = 100 * time.Millisecond

// Controller is the upload controller surface the screen drives.
type Controller interface {
	SetClient(id string) bool
	SetCandidateFile(fd types.FileDescriptor) error
	ClearCandidateFile()
	Submit(ctx context.Context) error
	Snapshot() types.AttemptState
}

// ResolveFunc turns a typed location into a file descriptor.
type ResolveFunc func(ctx context.Context, location string) (types.FileDescriptor, error)

type focus int

const (
	focusClients focus = iota
	focusFile
)

type (
	refreshMsg      struct{}
	fileResolvedMsg struct {
		fd  types.FileDescriptor
		err error
	}
	submitDoneMsg struct{ err error }
)

// UploadModel is a Bubble Tea model for the upload screen.
type UploadModel struct {
	ctx     context.Context
	ctrl    Controller
	resolve ResolveFunc
	clients types.ClientList

	cursor int
	focus  focus
	input  textinput.Model
	bar    progress.Model

	state    types.AttemptState
	notice   string
	width    int
	quitting bool
}

// NewUploadModel creates the upload screen. The first client is selected,
// as the screen opens with a default client.
func NewUploadModel(ctx context.Context, ctrl Controller, clients types.ClientList, resolve ResolveFunc) UploadModel {
	input := textinput.New()
	input.Placeholder = "path/to/file.csv or s3://bucket/key.csv"
	input.Prompt = "› "
	input.CharLimit = 1024
	input.Width = 50

	if len(clients) > 0 {
		ctrl.SetClient(clients[0].ID)
	}

	return UploadModel{
		ctx:     ctx,
		ctrl:    ctrl,
		resolve: resolve,
		clients: clients,
		input:   input,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		state:   ctrl.Snapshot(),
	}
}

// State returns the last snapshot the screen rendered.
func (m UploadModel) State() types.AttemptState {
	return m.state
}

// Init implements tea.Model.
func (m UploadModel) Init() tea.Cmd {
	return refresh()
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

// Update implements tea.Model.
func (m UploadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 8; w > 10 && w < 80 {
			m.bar.Width = w
		}
		return m, nil

	case refreshMsg:
		m.state = m.ctrl.Snapshot()
		return m, refresh()

	case fileResolvedMsg:
		if msg.err != nil {
			m.notice = msg.err.Error()
			return m, nil
		}
		m.notice = ""
		// Rejections surface through the snapshot message.
		_ = m.ctrl.SetCandidateFile(msg.fd)
		m.state = m.ctrl.Snapshot()
		return m, nil

	case submitDoneMsg:
		m.state = m.ctrl.Snapshot()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m UploadModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, keys.Submit):
		return m, m.submit()

	case key.Matches(msg, keys.Remove):
		m.ctrl.ClearCandidateFile()
		m.input.Reset()
		m.notice = ""
		m.state = m.ctrl.Snapshot()
		return m, nil

	case key.Matches(msg, keys.Switch):
		if m.focus == focusClients {
			m.focus = focusFile
			cmd := m.input.Focus()
			return m, cmd
		}
		m.focus = focusClients
		m.input.Blur()
		return m, nil
	}

	if m.focus == focusFile {
		if key.Matches(msg, keys.Resolve) {
			return m, m.resolveInput()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.clients)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Choose):
		if m.cursor < len(m.clients) {
			m.ctrl.SetClient(m.clients[m.cursor].ID)
			m.state = m.ctrl.Snapshot()
		}
	}
	return m, nil
}

func (m UploadModel) resolveInput() tea.Cmd {
	location := strings.TrimSpace(m.input.Value())
	if location == "" {
		return nil
	}
	ctx, resolve := m.ctx, m.resolve
	return func() tea.Msg {
		fd, err := resolve(ctx, location)
		return fileResolvedMsg{fd: fd, err: err}
	}
}

func (m UploadModel) submit() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return submitDoneMsg{err: ctrl.Submit(ctx)}
	}
}

// View implements tea.Model.
func (m UploadModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Upload CSV to Google Sheets"))
	b.WriteString("\n")

	b.WriteString(m.sectionTitle("Client", focusClients))
	b.WriteString("\n")
	if len(m.clients) == 0 {
		b.WriteString(HelpStyle.Render("  no clients available"))
		b.WriteString("\n")
	}
	for i, c := range m.clients {
		cursor := "  "
		if m.focus == focusClients && i == m.cursor {
			cursor = ActiveStyle.Render("> ")
		}
		radio := "( )"
		if c.ID == m.state.ClientID {
			radio = SuccessStyle.Render("(•)")
		}
		fmt.Fprintf(&b, "%s%s %s %s\n", cursor, radio, ValueStyle.Render(c.Name),
			HelpStyle.UnsetMarginTop().Render("sheet: "+c.SheetName))
	}

	b.WriteString("\n")
	b.WriteString(m.sectionTitle("File", focusFile))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	if m.state.FileName != "" {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Selected:"), ValueStyle.Render(m.state.FileName))
	}
	if m.notice != "" {
		b.WriteString(ErrorStyle.Render(m.notice))
		b.WriteString("\n")
	}

	if m.state.Phase != types.PhaseIdle {
		b.WriteString("\n")
		b.WriteString(m.bar.ViewAs(m.state.Progress / 100))
		b.WriteString("\n")
	}
	if m.state.Message != "" {
		b.WriteString(PhaseStyle(m.state.Phase).Render(m.state.Message))
		b.WriteString("\n")
	}
	if info := m.state.DataInfo; info != nil && m.state.Phase.IsTerminal() {
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Rows:"), ValueStyle.Render(fmt.Sprintf("%d", info.Rows)))
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Columns:"), ValueStyle.Render(fmt.Sprintf("%d", info.Columns)))
		fmt.Fprintf(&b, "%s %s\n", LabelStyle.Render("Size:"), ValueStyle.Render(fmt.Sprintf("%.2f MB", info.FileSizeMB)))
	}

	help := HelpStyle.Render("tab switch • ↑/↓ move • enter select • ctrl+u upload • ctrl+x remove file • ctrl+c quit")
	return BoxStyle.Render(b.String()) + "\n" + help
}

func (m UploadModel) sectionTitle(title string, f focus) string {
	if m.focus == f {
		return ActiveStyle.Bold(true).Render(title)
	}
	return LabelStyle.Render(title)
}

// keyMap defines key bindings.
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Choose  key.Binding
	Resolve key.Binding
	Switch  key.Binding
	Submit  key.Binding
	Remove  key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Choose: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter", "select"),
	),
	Resolve: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "use file"),
	),
	Switch: key.NewBinding(
		key.WithKeys("tab", "shift+tab"),
		key.WithHelp("tab", "switch section"),
	),
	Submit: key.NewBinding(
		key.WithKeys("ctrl+u"),
		key.WithHelp("ctrl+u", "upload"),
	),
	Remove: key.NewBinding(
		key.WithKeys("ctrl+x"),
		key.WithHelp("ctrl+x", "remove file"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// RunUpload runs the upload screen until the user quits and returns the
// last rendered state.
func RunUpload(ctx context.Context, ctrl Controller, clients types.ClientList, resolve ResolveFunc) (types.AttemptState, error) {
	model := NewUploadModel(ctx, ctrl, clients, resolve)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return ctrl.Snapshot(), err
	}
	return ctrl.Snapshot(), nil
}
