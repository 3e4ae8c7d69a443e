package components

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-drift/geolocation/pkg/errors"
	"github.com/go-drift/geolocation/pkg/geocode"
	"github.com/go-drift/geolocation/pkg/geolocation"
)

// AddressOptions are the request options used by the address component.
var AddressOptions = geolocation.PositionOptions{
	EnableHighAccuracy: true,
	TimeoutMs:          10000,
}

const geocodeTimeout = 15 * time.Second

// Geocoder turns a coordinate into addresses.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) ([]geocode.Address, error)
}

type addressMsg struct {
	addresses []geocode.Address
	err       error
}

// Address looks up the current position and shows the best matching
// street address. It passes no error callback: a failed reading leaves
// the address empty.
type Address struct {
	locator  Locator
	geocoder Geocoder
	link     Link

	spinner  spinner.Model
	position *geolocation.Position
	address  string
	resolved bool
	err      error
}

// NewAddress creates the address component.
func NewAddress(locator Locator, geocoder Geocoder, link Link) *Address {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle
	return &Address{locator: locator, geocoder: geocoder, link: link, spinner: s}
}

// Init starts the spinner and issues the request.
func (m *Address) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.request)
}

func (m *Address) request() tea.Msg {
	opts := AddressOptions
	if err := m.locator.GetCurrentPosition(SendBack(m.link, positionMsg), nil, &opts); err != nil {
		return requestFailedMsg{err}
	}
	return nil
}

func (m *Address) lookup(p geolocation.Position) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), geocodeTimeout)
		defer cancel()
		addrs, err := m.geocoder.ReverseGeocode(ctx, p.Coords.Latitude, p.Coords.Longitude)
		return addressMsg{addresses: addrs, err: err}
	}
}

// Address returns the resolved address, "" until resolved or on failure.
func (m *Address) Address() string {
	return m.address
}

// Update implements tea.Model.
func (m *Address) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PositionMsg:
		m.position = &msg.Position
		return m, m.lookup(msg.Position)
	case addressMsg:
		m.resolved = true
		if msg.err != nil {
			errors.Report(&errors.GeoError{Op: "geodemo.reverseGeocode", Kind: errors.KindPlatform, Err: msg.err})
			m.address = ""
			return m, nil
		}
		m.address = geocode.FirstAddress(msg.addresses)
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
		if m.resolved || m.err != nil {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m *Address) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Address: "))
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render(m.err.Error()))
	case m.resolved:
		b.WriteString(valueStyle.Render(m.address))
	case m.position != nil:
		b.WriteString(m.spinner.View() + " " + labelStyle.Render(m.position.String()))
	default:
		b.WriteString(m.spinner.View())
	}
	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render("q quit"))
	b.WriteString("\n")
	return b.String()
}
