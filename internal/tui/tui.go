// Package tui is a terminal view of the event feed: a scrolling log of
// every game on the left and the state of the game in focus on the right.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/fairpoker/internal/server"
)

const maxLogLines = 5000

// EnvelopeMsg delivers one feed envelope to the model.
type EnvelopeMsg server.Envelope

// FeedDoneMsg reports that the feed connection ended.
type FeedDoneMsg struct {
	Err error
}

type logLine struct {
	game uint64
	text string
}

// Model is the Bubble Tea model for watching a feed.
type Model struct {
	logger *log.Logger

	logViewport viewport.Model
	filterInput textinput.Model

	lines   []logLine
	tables  map[uint64]*tableView
	current uint64 // game shown in the sidebar
	filter  uint64 // 0 shows every game
	status  string

	focusedPane int // 0 = log, 1 = filter input
	follow      bool

	width       int
	height      int
	initialized bool
	quitting    bool
}

// NewModel creates a model. A nonzero game focuses the view on that game.
func NewModel(logger *log.Logger, gameID uint64) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	ti := textinput.New()
	ti.Placeholder = "game id to focus, empty for all"
	ti.CharLimit = 20
	ti.Width = 40
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.Prompt = "game> "

	return &Model{
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		filterInput: ti,
		tables:      make(map[uint64]*tableView),
		current:     gameID,
		filter:      gameID,
		status:      "connecting",
		follow:      true,
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// Apply folds an envelope into the log and the table views.
func (m *Model) Apply(env server.Envelope) {
	ev, err := env.Event()
	if err != nil {
		m.logger.Warn("Skipping undecodable event", "type", env.Type, "error", err)
		return
	}
	m.status = "live"

	t, ok := m.tables[ev.Game()]
	if !ok {
		t = newTableView(ev.Game())
		m.tables[ev.Game()] = t
	}
	if m.filter == 0 {
		m.current = ev.Game()
	}
	if text := t.apply(ev); text != "" {
		for _, line := range strings.Split(text, "\n") {
			m.lines = append(m.lines, logLine{game: ev.Game(), text: line})
		}
	}
	if len(m.lines) > maxLogLines {
		m.lines = m.lines[len(m.lines)-maxLogLines:]
	}
	m.refresh()
}

// Log returns the visible log lines.
func (m *Model) Log() []string {
	var out []string
	for _, l := range m.lines {
		if m.filter == 0 || l.game == m.filter {
			out = append(out, l.text)
		}
	}
	return out
}

// Focus limits the log to one game. Zero shows every game.
func (m *Model) Focus(gameID uint64) {
	m.filter = gameID
	if gameID != 0 {
		m.current = gameID
	}
	m.refresh()
}

func (m *Model) refresh() {
	m.logViewport.SetContent(m.renderLogPane())
	if m.follow {
		m.logViewport.GotoBottom()
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case EnvelopeMsg:
		m.Apply(server.Envelope(msg))
		return m, nil

	case FeedDoneMsg:
		if msg.Err != nil {
			m.status = "feed error: " + msg.Err.Error()
		} else {
			m.status = "feed closed"
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logger.Debug("Updating dimensions", "width", m.width, "height", m.height)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "q":
			if m.focusedPane == 0 {
				m.quitting = true
				return m, tea.Quit
			}
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				cmds = append(cmds, m.filterInput.Focus())
			} else {
				m.focusedPane = 0
				m.filterInput.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				m.applyFilter(strings.TrimSpace(m.filterInput.Value()))
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.follow = false
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
				m.follow = m.logViewport.AtBottom()
			}
		case "pgup", "b":
			if m.focusedPane == 0 {
				m.follow = false
				m.logViewport.HalfPageUp()
			}
		case "pgdown", "f":
			if m.focusedPane == 0 {
				m.logViewport.HalfPageDown()
				m.follow = m.logViewport.AtBottom()
			}
		case "home", "g":
			if m.focusedPane == 0 {
				m.follow = false
				m.logViewport.GotoTop()
			}
		case "end", "G":
			if m.focusedPane == 0 {
				m.follow = true
				m.logViewport.GotoBottom()
			}
		}
	}

	var cmd tea.Cmd
	if m.focusedPane == 1 {
		m.filterInput, cmd = m.filterInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) applyFilter(value string) {
	if value == "" {
		m.Focus(0)
		m.status = "showing all games"
		return
	}
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil || id == 0 {
		m.status = fmt.Sprintf("not a game id: %q", value)
		return
	}
	m.Focus(id)
	m.status = fmt.Sprintf("focused on game %d", id)
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	bottom := m.renderBottomPane()
	bottomHeight := lipgloss.Height(bottom)
	bottomPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.borderColour(1)).
		Width(max(m.width-2, 1)).
		Render(bottom)

	paneHeight := max(m.height-bottomHeight-4, 1)

	sidebar := m.renderSidebarPane()
	sidebarWidth := max(lipgloss.Width(sidebar), 30)
	sidebarPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(paneHeight).
		Render(sidebar)

	m.logViewport.Width = max(m.width-sidebarWidth-4, 1)
	m.logViewport.Height = paneHeight
	if !m.initialized {
		m.logViewport.SetContent(m.renderLogPane())
		m.logViewport.GotoBottom()
		m.initialized = true
	}
	logPane := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.borderColour(0)).
		Width(m.logViewport.Width).
		Height(paneHeight).
		Render(m.logViewport.View())

	top := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, top, bottomPane)
}

func (m *Model) borderColour(pane int) lipgloss.Color {
	if m.focusedPane == pane {
		return lipgloss.Color("#04B575")
	}
	return lipgloss.Color("#626262")
}

func (m *Model) renderLogPane() string {
	return strings.Join(m.Log(), "\n")
}

func (m *Model) renderSidebarPane() string {
	t, ok := m.tables[m.current]
	if !ok {
		return InfoStyle.Render("Waiting for events...")
	}
	return t.sidebar()
}

func (m *Model) renderBottomPane() string {
	var b strings.Builder
	b.WriteString(m.filterInput.View())
	b.WriteString("\n")
	b.WriteString(InfoStyle.Render(m.status))
	b.WriteString("\n")
	if m.focusedPane == 0 {
		b.WriteString(InfoStyle.Render("↑↓ scroll • PgUp/PgDn half page • Home/End • Tab to filter • q to quit"))
	} else {
		b.WriteString(InfoStyle.Render("Enter to apply • Tab back to log • Ctrl+C to quit"))
	}
	return b.String()
}
