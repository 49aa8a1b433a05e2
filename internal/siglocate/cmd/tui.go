package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"siglocate/internal/siglocate/styles"
	"siglocate/internal/ui/colorize"
)

type viewMode int

const (
	viewSummary viewMode = iota
	viewListing
)

type scanDoneMsg struct {
	rep report
	err error
}

type model struct {
	viewport viewport.Model
	spinner  spinner.Model
	mode     viewMode
	title    string
	run      func() (report, error)
	rep      report
	err      error
	loading  bool
	width    int
	height   int
}

// NewModel returns the TUI for one scan. run does the work off the UI loop.
func NewModel(title string, run func() (report, error)) model {
	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	m := model{
		viewport: vp,
		spinner:  s,
		mode:     viewSummary,
		title:    title,
		run:      run,
		loading:  true,
		width:    80,
		height:   24,
	}
	m.updateContent()
	return m
}

func (m model) scanCmd() tea.Cmd {
	return func() tea.Msg {
		rep, err := m.run()
		return scanDoneMsg{rep: rep, err: err}
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.scanCmd(), m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case scanDoneMsg:
		m.rep, m.err = msg.rep, msg.err
		m.loading = false
		m.updateContent()
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		if m.loading {
			m.updateContent()
			return m, cmd
		}
		return m, nil

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.viewport.SetWidth(msg.Width)
			m.viewport.SetHeight(msg.Height - 2)
			m.updateContent()
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "s":
			m.setMode(viewSummary)
			return m, nil
		case "l":
			m.setMode(viewListing)
			return m, nil
		case "tab", "shift+tab":
			if m.mode == viewSummary {
				m.setMode(viewListing)
			} else {
				m.setMode(viewSummary)
			}
			return m, nil
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) setMode(mode viewMode) {
	if mode == viewListing && m.rep.Listing == "" {
		return
	}
	m.mode = mode
	m.updateContent()
	m.viewport.GotoTop()
}

func (m model) View() string {
	menu := " Q: quit "
	if !m.loading && m.rep.Listing != "" {
		if m.mode == viewListing {
			menu = " S: summary • Tab: cycle • Q: quit "
		} else {
			menu = " L: listing • Tab: cycle • Q: quit "
		}
	}
	return m.viewport.View() + "\n" + styles.Menu.Width(m.width).Render(menu)
}

func (m *model) updateContent() {
	if m.mode == viewListing && !m.loading {
		m.viewport.SetContent(colorize.Listing(m.rep.arch, m.rep.Listing))
		return
	}

	var markdown string
	switch {
	case m.loading:
		markdown = fmt.Sprintf("# siglocate\n\n```\n; %s\n```\n\n%s Scanning...", m.title, m.spinner.View())
	case m.err != nil:
		markdown = fmt.Sprintf("# siglocate\n\n```\n; %s\n```\n\n> %s", m.title, m.err)
	default:
		markdown = m.rep.markdown()
	}

	width := m.width
	if width == 0 {
		width = 80
	}
	renderer := styles.GetMarkdownRenderer(width - 2)
	rendered, err := renderer.Render(markdown)
	if err != nil {
		rendered = markdown
	}
	m.viewport.SetContent(strings.TrimSuffix(rendered, "\n"))
}
