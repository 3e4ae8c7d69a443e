package cmd

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-drift/geolocation/cmd/geodemo/internal/components"
)

const defaultSnapshot = "geodemo-track.png"

func init() {
	RegisterCommand(&Command{
		Name:  "watch",
		Short: "Follow the position continuously",
		Long: `Watch the position and keep every reading in an in-memory history.

Keys:
  c   cancel the watch
  r   start a new watch after canceling
  s   write the track as a PNG (see --snapshot)
  q   close the watch and quit

Flags:
  --snapshot FILE  PNG path for the "s" key (default: geodemo-track.png)
` + sourceFlagsHelp,
		Usage: "geodemo watch [--snapshot FILE] [--source NAME] [--track FILE] [--addr HOST:PORT] [--config FILE]",
		Run:   runWatch,
	})
}

func runWatch(args []string) error {
	sa, rest, err := parseSourceArgs(args)
	if err != nil {
		return err
	}
	snapshot, rest, err := parseSnapshotArg(rest)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected arguments: %v", rest)
	}

	s, err := openSession("watch", sa)
	if err != nil {
		return err
	}
	defer s.Close()

	var view *components.WatchView
	err = s.run(func(link components.Link) tea.Model {
		view = components.NewWatch(s.service, link, s.cfg.Options, snapshot)
		return view
	})
	if closeErr := view.Close(); closeErr != nil {
		s.logger.Errorf("close watch: %v", closeErr)
	}
	s.logger.Infof("watch ended with %d readings", len(view.History()))
	return err
}

func parseSnapshotArg(args []string) (string, []string, error) {
	snapshot := defaultSnapshot
	var rest []string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--snapshot" || args[i] == "-snapshot":
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("--snapshot requires a file path")
			}
			i++
			snapshot = args[i]
		case strings.HasPrefix(args[i], "--snapshot="):
			snapshot = strings.TrimPrefix(args[i], "--snapshot=")
		default:
			rest = append(rest, args[i])
		}
	}
	return snapshot, rest, nil
}
