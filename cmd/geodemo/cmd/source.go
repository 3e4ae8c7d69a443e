package cmd

import (
	"context"
	_ "embed"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-drift/geolocation/cmd/geodemo/internal/components"
	"github.com/go-drift/geolocation/cmd/geodemo/internal/config"
	"github.com/go-drift/geolocation/pkg/bridge/replay"
	"github.com/go-drift/geolocation/pkg/bridge/wsbridge"
	"github.com/go-drift/geolocation/pkg/errors"
	"github.com/go-drift/geolocation/pkg/geolocation"
	"github.com/go-drift/geolocation/pkg/logging"
	"github.com/go-drift/geolocation/pkg/platform"
)

//go:embed default_track.yaml
var defaultTrack []byte

const sourceFlagsHelp = `  --source NAME    replay or browser (default: replay)
  --track FILE     Track file for the replay source (default: built-in walk)
  --addr HOST:PORT Listen address for the browser source (default: localhost:8765)
  --config FILE    Config file (default: ./geodemo.yaml)
`

// sourceArgs are the flags shared by every demo command.
type sourceArgs struct {
	overrides  config.Overrides
	configPath string
}

// parseSourceArgs extracts the shared flags and returns the remaining
// arguments. Flags take one or two leading dashes and "=value" or a
// separate value.
func parseSourceArgs(args []string) (sourceArgs, []string, error) {
	var sa sourceArgs
	var rest []string
	for i := 0; i < len(args); i++ {
		name, value, hasValue := strings.Cut(strings.TrimLeft(args[i], "-"), "=")
		if !strings.HasPrefix(args[i], "-") {
			rest = append(rest, args[i])
			continue
		}
		var dst *string
		switch name {
		case "source":
			dst = &sa.overrides.Source
		case "track":
			dst = &sa.overrides.Track
		case "addr":
			dst = &sa.overrides.Addr
		case "config":
			dst = &sa.configPath
		default:
			rest = append(rest, args[i])
			continue
		}
		if !hasValue {
			if i+1 >= len(args) {
				return sa, nil, fmt.Errorf("--%s requires a value", name)
			}
			i++
			value = args[i]
		}
		*dst = value
	}
	return sa, rest, nil
}

// session is a configured geolocation service plus everything that has to
// be torn down after the demo exits.
type session struct {
	cfg     *config.Resolved
	service *geolocation.Service
	logger  *logging.Logger
	closers []func()
}

func openSession(name string, sa sourceArgs) (*session, error) {
	cfg, err := config.Resolve(sa.configPath, sa.overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.LogDir != "" {
		logging.SetDirectory(cfg.LogDir)
	}
	logger, err := logging.NewLogger(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	logger.Verbose = cfg.Verbose
	errors.SetHandler(logging.Handler{Logger: logger})

	s := &session{cfg: cfg, logger: logger}
	if err := s.connect(); err != nil {
		s.Close()
		return nil, err
	}

	native := geolocation.NewChannelNative()
	s.closers = append(s.closers, native.Close)
	s.service = geolocation.NewService(native)
	logger.Infof("session %s started with source %s", logger.SessionID(), cfg.Source)
	return s, nil
}

func (s *session) connect() error {
	switch s.cfg.Source {
	case config.SourceBrowser:
		return s.connectBrowser()
	default:
		return s.connectReplay()
	}
}

func (s *session) connectReplay() error {
	var (
		track *replay.Track
		err   error
	)
	if s.cfg.Track != "" {
		track, err = replay.LoadTrack(s.cfg.Track)
	} else {
		track, err = replay.ParseTrack(defaultTrack)
	}
	if err != nil {
		return err
	}
	bridge := replay.New(track)
	platform.SetNativeBridge(bridge)
	s.closers = append(s.closers, bridge.Close)
	s.logger.Infof("replaying track %q (%d steps)", track.Name, len(track.Steps))
	return nil
}

func (s *session) connectBrowser() error {
	bridge := wsbridge.NewServer()
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	srv := &http.Server{Handler: bridge.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("browser bridge: %v", err)
		}
	}()
	s.closers = append(s.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	fmt.Printf("Open http://%s/ in a browser to share its location (Ctrl+C to abort)...\n", listener.Addr())
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := bridge.WaitConnected(ctx); err != nil {
		return fmt.Errorf("no browser connected: %w", err)
	}
	platform.SetNativeBridge(bridge)
	s.logger.Infof("browser session %s connected", bridge.SessionID())
	return nil
}

// run drives model in a bubbletea program. The model's Link posts into the
// same program.
func (s *session) run(build func(link components.Link) tea.Model) error {
	var p *tea.Program
	model := build(func(msg tea.Msg) { p.Send(msg) })
	p = tea.NewProgram(model)
	_, err := p.Run()
	return err
}

// Close tears the session down in reverse order.
func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	platform.SetNativeBridge(nil)
	errors.SetHandler(nil)
	_ = s.logger.Close()
}
