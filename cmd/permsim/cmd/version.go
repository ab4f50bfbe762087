package cmd

import "fmt"

func init() {
	RegisterCommand(&Command{
		Name:  "version",
		Short: "Show version information",
		Long:  "Print the permsim version and build time.",
		Usage: "permsim version",
		Run: func(env *Env, args []string) error {
			fmt.Fprintf(env.Stdout, "permsim version %s (built %s)\n", Version, BuildTime)
			return nil
		},
	})
}
