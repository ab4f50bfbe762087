// permsim plays permission request scenarios against a simulated host.
package main

import (
	"fmt"
	"os"

	"github.com/go-drift/permissions/cmd/permsim/cmd"
)

func main() {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	env := &cmd.Env{Stdout: os.Stdout, Stderr: os.Stderr, Dir: dir}
	if err := cmd.Execute(env, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
