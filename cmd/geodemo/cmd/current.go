package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-drift/geolocation/cmd/geodemo/internal/components"
)

func init() {
	RegisterCommand(&Command{
		Name:  "current",
		Short: "Show the current position once",
		Long: `Request a single high accuracy reading and show every field of it,
or the error the host reported.

Flags:
` + sourceFlagsHelp,
		Usage: "geodemo current [--source NAME] [--track FILE] [--addr HOST:PORT] [--config FILE]",
		Run:   runCurrent,
	})
}

func runCurrent(args []string) error {
	sa, rest, err := parseSourceArgs(args)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected arguments: %v", rest)
	}

	s, err := openSession("current", sa)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := s.cfg.Options
	opts.EnableHighAccuracy = true
	return s.run(func(link components.Link) tea.Model {
		return components.NewCurrent(s.service, link, opts)
	})
}
