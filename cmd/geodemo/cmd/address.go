package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/go-drift/geolocation/cmd/geodemo/internal/components"
	"github.com/go-drift/geolocation/pkg/geocode"
)

func init() {
	RegisterCommand(&Command{
		Name:  "address",
		Short: "Show the street address of the current position",
		Long: `Request one reading (high accuracy, 10 second timeout) and look up its
street address with the Google Geocoding API. A failed reading or lookup
leaves the address empty; details go to the session log.

The API key is read from geocode.apiKey in the config file or from
GOOGLE_MAPS_API_KEY.

Flags:
` + sourceFlagsHelp,
		Usage: "geodemo address [--source NAME] [--track FILE] [--addr HOST:PORT] [--config FILE]",
		Run:   runAddress,
	})
}

func runAddress(args []string) error {
	sa, rest, err := parseSourceArgs(args)
	if err != nil {
		return err
	}
	if len(rest) > 0 {
		return fmt.Errorf("unexpected arguments: %v", rest)
	}

	s, err := openSession("address", sa)
	if err != nil {
		return err
	}
	defer s.Close()

	if s.cfg.APIKey == "" {
		s.logger.Warnf("no geocoding API key configured")
	}
	client := geocode.NewClient(s.cfg.APIKey)
	return s.run(func(link components.Link) tea.Model {
		return components.NewAddress(s.service, client, link)
	})
}
