// Package cmd implements the permsim CLI commands.
//
// A root command dispatches to subcommands (run, version). Each subcommand
// parses its own flags with pflag.
package cmd

import (
	"fmt"
	"io"
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
	Run   func(env *Env, args []string) error
}

// Env carries the output streams and working directory of one invocation.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	Dir    string
}

var rootCmd = &Command{
	Name:  "permsim",
	Short: "permsim - permission request simulator",
	Long: `permsim plays a permission request scenario against a simulated host
and prints which callback fired and where the request ended up.

Use "permsim <command> --help" for more information about a command.`,
	Usage: "permsim <command> [flags]",
}

var (
	commands    = make(map[string]*Command)
	subCommands []*Command
)

// RegisterCommand adds a command to the CLI.
func RegisterCommand(cmd *Command) {
	commands[cmd.Name] = cmd
	subCommands = append(subCommands, cmd)
}

// Execute runs the CLI with the given arguments (without the program name).
func Execute(env *Env, args []string) error {
	if len(args) == 0 {
		printHelp(env.Stdout)
		return nil
	}

	switch args[0] {
	case "-h", "--help", "help":
		printHelp(env.Stdout)
		return nil
	case "-v", "--version":
		args[0] = "version"
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(env.Stderr, "Error: unknown command %q\n\n", args[0])
		printHelp(env.Stderr)
		return fmt.Errorf("unknown command: %s", args[0])
	}
	return cmd.Run(env, args[1:])
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, rootCmd.Long)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s\n", rootCmd.Usage)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, sub := range subCommands {
		fmt.Fprintf(w, "  %-14s %s\n", sub.Name, sub.Short)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -h, --help           Show help for a command")
	fmt.Fprintln(w, "  -v, --version        Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Examples:")
	fmt.Fprintln(w, "  permsim run --scenario camera.yaml      Play a scenario")
	fmt.Fprintln(w, "  permsim run -s overlay.yaml --verbose   Play with debug logging")
}

func printCommandHelp(w io.Writer, cmd *Command, flags string) {
	fmt.Fprintln(w, cmd.Long)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintf(w, "  %s\n", cmd.Usage)
	if flags != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Flags:")
		fmt.Fprint(w, flags)
	}
}
