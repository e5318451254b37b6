package main

import (
	"fmt"
	"os"

	"github.com/temirov/runsweep/cmd/cli"
)

const (
	exitErrorTemplateConstant = "%v\n"
)

// main executes the runsweep command-line application.
func main() {
	executionError := cli.Execute()
	if executionError != nil {
		fmt.Fprintf(os.Stderr, exitErrorTemplateConstant, executionError)
	}
	os.Exit(cli.ExitCode(executionError))
}
