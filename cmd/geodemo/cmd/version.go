package cmd

import (
	"fmt"

	"github.com/go-drift/geolocation/cmd/geodemo/internal/config"
)

func init() {
	RegisterCommand(&Command{
		Name:  "version",
		Short: "Show version information",
		Long:  "Print the geodemo version and the config schema it reads.",
		Usage: "geodemo version",
		Run:   runVersion,
	})
}

func runVersion(args []string) error {
	fmt.Fprintf(stdout, "geodemo version %s (built %s)\n", Version, BuildTime)
	fmt.Fprintf(stdout, "config schema %s.x (%s)\n", config.SupportedMajor, config.FileName)
	return nil
}
