// Package cmd implements the geodemo CLI commands.
//
// A root command dispatches to subcommands (current, address, watch,
// version). Every demo command reads positions from a source: a replayed
// track file or a browser tab connected over a WebSocket.
package cmd

import (
	"fmt"
	"io"
	"os"
)

// Version information set at build time.
var (
	Version   = "0.1.0-dev"
	BuildTime = "unknown"
)

// Command represents a CLI command.
type Command struct {
	Name  string
	Short string
	Long  string
	Usage string
	Run   func(args []string) error
}

var rootCmd = &Command{
	Name:  "geodemo",
	Short: "geodemo - geolocation examples in the terminal",
	Long: `geodemo runs the geolocation example components in a terminal.

Positions come from a replayed track (the default) or from a real browser:
"--source browser" serves a page that relays navigator.geolocation.

Use "geodemo <command> --help" for more information about a command.`,
	Usage: "geodemo <command> [flags]",
}

var (
	commands    = make(map[string]*Command)
	subcommands []*Command
	stdout      io.Writer = os.Stdout
)

// RegisterCommand adds a command to the CLI.
func RegisterCommand(cmd *Command) {
	commands[cmd.Name] = cmd
	subcommands = append(subcommands, cmd)
}

// Execute runs the CLI with the given arguments.
func Execute(args []string) error {
	if len(args) == 0 {
		printHelp()
		return nil
	}

	switch args[0] {
	case "-h", "--help", "help":
		printHelp()
		return nil
	case "-v", "--version":
		args[0] = "version"
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", args[0])
		printHelp()
		return fmt.Errorf("unknown command: %s", args[0])
	}

	cmdArgs := args[1:]
	for _, arg := range cmdArgs {
		if arg == "-h" || arg == "--help" || arg == "help" {
			printCommandHelp(cmd)
			return nil
		}
	}
	return cmd.Run(cmdArgs)
}

func printHelp() {
	fmt.Fprintln(stdout, rootCmd.Long)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Usage:")
	fmt.Fprintf(stdout, "  %s\n", rootCmd.Usage)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Commands:")
	for _, sub := range subcommands {
		fmt.Fprintf(stdout, "  %-10s %s\n", sub.Name, sub.Short)
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Source flags (all demo commands):")
	fmt.Fprint(stdout, sourceFlagsHelp)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Environment:")
	fmt.Fprintln(stdout, "  GOOGLE_MAPS_API_KEY   Geocoding key for the address demo")
}

func printCommandHelp(cmd *Command) {
	fmt.Fprintln(stdout, cmd.Long)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Usage:")
	fmt.Fprintf(stdout, "  %s\n", cmd.Usage)
}
