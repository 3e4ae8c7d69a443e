// Package components holds the geodemo terminal UIs.
//
// Each component is a bubbletea model. Geolocation callbacks run on the
// bridge goroutine, so they never touch a model directly: they are turned
// into messages with SendBack and posted to the program through a Link.
package components

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-drift/geolocation/pkg/geolocation"
)

// Link posts a message into a running program, usually tea.Program.Send.
type Link func(tea.Msg)

// SendBack returns a callback that wraps its argument with wrap and posts
// the result through link.
func SendBack[T any](link Link, wrap func(T) tea.Msg) func(T) {
	return func(v T) {
		link(wrap(v))
	}
}

// Locator issues one-shot position requests.
type Locator interface {
	GetCurrentPosition(onSuccess func(geolocation.Position), onError func(geolocation.PositionError), opts *geolocation.PositionOptions) error
}

// Watcher starts continuous position updates.
type Watcher interface {
	WatchPosition(onSuccess func(geolocation.Position), onError func(geolocation.PositionError), opts *geolocation.PositionOptions) (*geolocation.Watch, error)
}

// PositionMsg carries a decoded reading.
type PositionMsg struct{ Position geolocation.Position }

// PositionErrorMsg carries a decoded host failure.
type PositionErrorMsg struct{ Err geolocation.PositionError }

// requestFailedMsg reports that a request could not be issued at all.
type requestFailedMsg struct{ err error }

func positionMsg(p geolocation.Position) tea.Msg { return PositionMsg{p} }
func positionErrorMsg(e geolocation.PositionError) tea.Msg { return PositionErrorMsg{e} }
