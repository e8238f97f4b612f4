package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jmallek/copycheck/internal/cli"
)

func main() {
	err := cli.Execute()
	if err == nil {
		return
	}

	// Verdict exit codes are not errors to report, just codes to pass on
	var exitErr *cli.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.Code)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(3)
}
