package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/go-drift/permissions/cmd/permsim/internal/config"
	"github.com/go-drift/permissions/cmd/permsim/internal/sim"
	"github.com/go-drift/permissions/pkg/errors"
)

func init() {
	RegisterCommand(&Command{
		Name:  "run",
		Short: "Play a scenario",
		Long: `Play a permission request scenario against a simulated host.

The scenario file (YAML) names the capability set, the host's initial
grant state, how the rationale is answered and what the user chooses in
the consent dialog or on the settings screen. Defaults for omitted fields
are read from permsim.yaml in the working directory, if present.`,
		Usage: "permsim run --scenario <file> [--verbose]",
		Run:   runScenario,
	})
}

func runScenario(env *Env, args []string) error {
	var scenarioPath string
	var verbose bool

	flagSet := pflag.NewFlagSet("run", pflag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVarP(&scenarioPath, "scenario", "s", "", "path to the scenario YAML file")
	flagSet.BoolVar(&verbose, "verbose", false, "log every request transition")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			printCommandHelp(env.Stdout, commands["run"], flagSet.FlagUsages())
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printCommandHelp(env.Stdout, commands["run"], flagSet.FlagUsages())
		return nil
	}
	if scenarioPath == "" && flagSet.NArg() > 0 {
		scenarioPath = flagSet.Arg(0)
	}
	if scenarioPath == "" {
		return fmt.Errorf("--scenario is required\n\nUsage: permsim run --scenario <file>")
	}

	cfg, err := config.LoadOptional(env.Dir)
	if err != nil {
		return err
	}
	verbose = verbose || cfg.Log.Verbose

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(env.Stderr, &slog.HandlerOptions{Level: level}))
	errors.SetHandler(&errors.LogHandler{Logger: logger, Verbose: verbose})
	defer errors.SetHandler(nil)

	sc, err := config.LoadScenario(scenarioPath, cfg.Defaults)
	if err != nil {
		return err
	}

	report, err := sim.Run(context.Background(), sc, logger)
	if err != nil {
		return fmt.Errorf("scenario %s: %w", sc.Name, err)
	}
	printReport(env.Stdout, report)
	return nil
}

func printReport(w io.Writer, r *sim.Report) {
	fmt.Fprintf(w, "scenario:     %s\n", r.Scenario)
	fmt.Fprintf(w, "pathway:      %s\n", r.Pathway)
	fmt.Fprintln(w, "capabilities:")
	for _, c := range r.Capabilities {
		fmt.Fprintf(w, "  - %s\n", c)
	}
	fmt.Fprintf(w, "rationale:    %t\n", r.RationaleSeen)
	fmt.Fprintf(w, "prompts:      %d\n", r.Prompts)
	fmt.Fprintf(w, "redirects:    %d\n", r.Redirects)
	fmt.Fprintf(w, "callback:     %s\n", r.Callback)
	fmt.Fprintf(w, "state:        %s\n", r.State)
	fmt.Fprintf(w, "outcome:      %s\n", r.Outcome)
}
