package components

import (
	"context"
	stderrors "errors"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/geolocation/pkg/errors"
	"github.com/go-drift/geolocation/pkg/geocode"
	"github.com/go-drift/geolocation/pkg/geolocation"
	"github.com/go-drift/geolocation/pkg/geolocation/geotest"
)

// inbox is a Link that records posted messages.
type inbox struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (in *inbox) link() Link {
	return func(msg tea.Msg) {
		in.mu.Lock()
		in.msgs = append(in.msgs, msg)
		in.mu.Unlock()
	}
}

// drain returns and clears the recorded messages.
func (in *inbox) drain() []tea.Msg {
	in.mu.Lock()
	defer in.mu.Unlock()
	msgs := in.msgs
	in.msgs = nil
	return msgs
}

func quietErrors(t *testing.T) {
	t.Helper()
	errors.SetHandler(&errors.LogHandler{Out: io.Discard})
	t.Cleanup(func() { errors.SetHandler(nil) })
}

func key(k string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func feed(m tea.Model, msgs []tea.Msg) {
	for _, msg := range msgs {
		m.Update(msg)
	}
}

func TestSendBack(t *testing.T) {
	var in inbox
	cb := SendBack(in.link(), func(n int) tea.Msg { return n * 2 })
	cb(21)
	assert.Equal(t, []tea.Msg{42}, in.drain())
}

func TestCurrent_ShowsPosition(t *testing.T) {
	native := geotest.New()
	var in inbox
	m := NewCurrent(geolocation.NewService(native), in.link(), geolocation.PositionOptions{EnableHighAccuracy: true})

	assert.Nil(t, m.request())
	req := native.Last()
	require.NotNil(t, req)
	assert.True(t, req.Options.EnableHighAccuracy)
	assert.Contains(t, m.View(), "locating")

	require.NoError(t, native.DeliverPosition(req, geotest.RawPosition(48.858370, 2.294481, 12, 1700000000000)))
	msgs := in.drain()
	require.Len(t, msgs, 1)
	feed(m, msgs)

	assert.True(t, m.Done())
	view := m.View()
	assert.Contains(t, view, "48.858370")
	assert.Contains(t, view, "2.294481")
	assert.Contains(t, view, "12.0 m")
}

func TestCurrent_ShowsError(t *testing.T) {
	native := geotest.New()
	var in inbox
	m := NewCurrent(geolocation.NewService(native), in.link(), geolocation.PositionOptions{})

	m.request()
	require.NoError(t, native.DeliverError(native.Last(), geotest.RawError(1, "User denied Geolocation")))
	feed(m, in.drain())

	assert.True(t, m.Done())
	assert.Contains(t, m.View(), "permission denied")
	assert.Contains(t, m.View(), "User denied Geolocation")
}

func TestCurrent_IssueFailure(t *testing.T) {
	native := geotest.New()
	native.GetErr = stderrors.New("bridge offline")
	m := NewCurrent(geolocation.NewService(native), func(tea.Msg) {}, geolocation.PositionOptions{})

	msg := m.request()
	require.IsType(t, requestFailedMsg{}, msg)
	m.Update(msg)
	assert.True(t, m.Done())
	assert.Contains(t, m.View(), "bridge offline")
}

func TestCurrent_Quit(t *testing.T) {
	m := NewCurrent(geolocation.NewService(geotest.New()), func(tea.Msg) {}, geolocation.PositionOptions{})
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

type fakeGeocoder struct {
	addrs    []geocode.Address
	err      error
	lat, lng float64
}

func (g *fakeGeocoder) ReverseGeocode(_ context.Context, lat, lng float64) ([]geocode.Address, error) {
	g.lat, g.lng = lat, lng
	return g.addrs, g.err
}

func TestAddress_ResolvesFirstAddress(t *testing.T) {
	native := geotest.New()
	geo := &fakeGeocoder{addrs: []geocode.Address{
		{FormattedAddress: "Champ de Mars, 75007 Paris, France"},
		{FormattedAddress: "Paris, France"},
	}}
	var in inbox
	m := NewAddress(geolocation.NewService(native), geo, in.link())

	assert.Nil(t, m.request())
	req := native.Last()
	require.NotNil(t, req)
	assert.Equal(t, AddressOptions, req.Options)

	require.NoError(t, native.DeliverPosition(req, geotest.RawPosition(48.8584, 2.2945, 10, 1000)))
	msgs := in.drain()
	require.Len(t, msgs, 1)
	_, cmd := m.Update(msgs[0])
	require.NotNil(t, cmd)
	m.Update(cmd())

	assert.Equal(t, 48.8584, geo.lat)
	assert.Equal(t, 2.2945, geo.lng)
	assert.Equal(t, "Champ de Mars, 75007 Paris, France", m.Address())
	assert.Contains(t, m.View(), "Champ de Mars")
}

func TestAddress_FailureHasNoCallback(t *testing.T) {
	quietErrors(t)
	native := geotest.New()
	var in inbox
	m := NewAddress(geolocation.NewService(native), &fakeGeocoder{}, in.link())

	m.request()
	require.NoError(t, native.DeliverError(native.Last(), geotest.RawError(3, "Timeout expired")))
	assert.Empty(t, in.drain())
	assert.Equal(t, "", m.Address())
}

func TestAddress_GeocodeErrorLeavesAddressEmpty(t *testing.T) {
	quietErrors(t)
	native := geotest.New()
	var in inbox
	m := NewAddress(geolocation.NewService(native), &fakeGeocoder{err: &geocode.StatusError{Status: "REQUEST_DENIED"}}, in.link())

	m.request()
	require.NoError(t, native.DeliverPosition(native.Last(), geotest.RawPosition(1, 2, 3, 4)))
	_, cmd := m.Update(in.drain()[0])
	m.Update(cmd())

	assert.Equal(t, "", m.Address())
	assert.True(t, m.resolved)
}

func startWatch(t *testing.T, native *geotest.Native, in *inbox) *WatchView {
	t.Helper()
	m := NewWatch(geolocation.NewService(native), in.link(), geolocation.DefaultPositionOptions(), filepath.Join(t.TempDir(), "track.png"))
	m.Update(m.start())
	require.NotNil(t, m.Watch())
	require.True(t, m.Watch().IsActive())
	return m
}

func TestWatch_KeepsHistoryInOrder(t *testing.T) {
	native := geotest.New()
	var in inbox
	m := startWatch(t, native, &in)
	req := native.Last()

	require.NoError(t, native.DeliverPosition(req, geotest.RawPosition(1, 1, 5, 100)))
	require.NoError(t, native.DeliverError(req, geotest.RawError(2, "lost")))
	require.NoError(t, native.DeliverPosition(req, geotest.RawPosition(2, 2, 5, 200)))
	feed(m, in.drain())

	history := m.History()
	require.Len(t, history, 2)
	assert.Equal(t, uint64(100), history[0].Timestamp)
	assert.Equal(t, uint64(200), history[1].Timestamp)
	assert.True(t, m.Watch().IsActive(), "an error must not end the watch")
	assert.Contains(t, m.View(), "position unavailable")
	assert.Contains(t, m.View(), "history (2 readings)")
}

func TestWatch_CancelAndRestart(t *testing.T) {
	native := geotest.New()
	var in inbox
	m := startWatch(t, native, &in)
	first := m.Watch()

	m.Update(key("c"))
	assert.False(t, first.IsActive())
	assert.Equal(t, []geolocation.WatchID{first.ID()}, native.Cleared())

	// A second cancel is guarded by the component.
	assert.NotPanics(t, func() { m.Update(key("c")) })
	assert.Contains(t, m.View(), "no active watch")

	_, cmd := m.Update(key("r"))
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.NotEqual(t, first.ID(), m.Watch().ID())
	assert.True(t, m.Watch().IsActive())
}

func TestWatch_QuitClosesWatch(t *testing.T) {
	native := geotest.New()
	var in inbox
	m := startWatch(t, native, &in)

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.False(t, m.Watch().IsActive())
	assert.Equal(t, 0, native.ActiveWatches())
}

func TestWatch_StartFailure(t *testing.T) {
	native := geotest.New()
	native.WatchErr = stderrors.New("no host")
	m := NewWatch(geolocation.NewService(native), func(tea.Msg) {}, geolocation.DefaultPositionOptions(), "")
	m.Update(m.start())

	assert.Nil(t, m.Watch())
	assert.Contains(t, m.View(), "no host")
	assert.NoError(t, m.Close())
}

func TestWatch_Snapshot(t *testing.T) {
	native := geotest.New()
	var in inbox
	m := startWatch(t, native, &in)
	req := native.Last()
	for i, ll := range [][2]float64{{51.50, -0.12}, {51.51, -0.11}, {51.52, -0.13}} {
		require.NoError(t, native.DeliverPosition(req, geotest.RawPosition(ll[0], ll[1], 5, float64(i))))
	}
	feed(m, in.drain())

	_, cmd := m.Update(key("s"))
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, snapshotMsg{}, msg)
	require.NoError(t, msg.(snapshotMsg).err)
	m.Update(msg)
	assert.Contains(t, m.View(), "snapshot written")

	f, err := os.Open(msg.(snapshotMsg).path)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, snapshotWidth, img.Bounds().Dx())
	assert.Equal(t, snapshotHeight, img.Bounds().Dy())
}

func TestRenderTrack_Empty(t *testing.T) {
	img := RenderTrack(nil)
	assert.Equal(t, snapshotBackground, img.RGBAAt(snapshotWidth-1, snapshotHeight-1))
}

func TestRenderTrack_PlotsPoints(t *testing.T) {
	img := RenderTrack([]geolocation.Position{
		{Coords: geolocation.Coordinates{Latitude: 0, Longitude: 0}},
		{Coords: geolocation.Coordinates{Latitude: 1, Longitude: 1}},
	})
	// South-west reading lands in the bottom-left corner of the plot area.
	assert.Equal(t, snapshotPoint, img.RGBAAt(snapshotMargin, snapshotHeight-snapshotMargin))
	assert.Equal(t, snapshotPoint, img.RGBAAt(snapshotWidth-snapshotMargin, snapshotMargin))
}
