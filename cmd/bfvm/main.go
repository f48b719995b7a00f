// Command bfvm runs programs for an eight-opcode tape machine.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/bfvm/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	var exitErr *cli.ExitError
	if err != nil && !(errors.As(err, &exitErr) && exitErr.Reported) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
