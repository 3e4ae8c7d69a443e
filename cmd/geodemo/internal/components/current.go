package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-drift/geolocation/pkg/geolocation"
)

// Current asks for one reading and shows it, or the host's error.
type Current struct {
	locator Locator
	link    Link
	opts    geolocation.PositionOptions

	spinner  spinner.Model
	position *geolocation.Position
	failure  *geolocation.PositionError
	err      error
}

// NewCurrent creates the one-shot component. opts usually asks for high
// accuracy.
func NewCurrent(locator Locator, link Link, opts geolocation.PositionOptions) *Current {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle
	return &Current{locator: locator, link: link, opts: opts, spinner: s}
}

// Init starts the spinner and issues the request.
func (m *Current) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.request)
}

func (m *Current) request() tea.Msg {
	opts := m.opts
	err := m.locator.GetCurrentPosition(
		SendBack(m.link, positionMsg),
		SendBack(m.link, positionErrorMsg),
		&opts,
	)
	if err != nil {
		return requestFailedMsg{err}
	}
	return nil
}

// Done reports whether a result has arrived.
func (m *Current) Done() bool {
	return m.position != nil || m.failure != nil || m.err != nil
}

// Update implements tea.Model.
func (m *Current) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PositionMsg:
		m.position = &msg.Position
		return m, nil
	case PositionErrorMsg:
		m.failure = &msg.Err
		return m, nil
	case requestFailedMsg:
		m.err = msg.err
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case spinner.TickMsg:
		if m.Done() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Current) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Current position"))
	b.WriteString("\n\n")
	switch {
	case m.position != nil:
		b.WriteString(boxStyle.Render(formatCoords(*m.position)))
	case m.failure != nil:
		b.WriteString(formatError(*m.failure))
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
	default:
		b.WriteString(m.spinner.View() + " locating…")
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("q quit"))
	b.WriteString("\n")
	return b.String()
}
