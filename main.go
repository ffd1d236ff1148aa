package main

import (
	"errors"
	"os"

	"github.com/alecthomas/kong"
	"github.com/willabides/kongplete"

	"github.com/semmy-space/vlt/internal/cli"
	"github.com/semmy-space/vlt/internal/output"
)

var (
	version = "dev"
)

func main() {
	cliInstance := cli.New(nil)
	parser := kong.Must(cliInstance, cli.Options(version)...)

	// Answers shell completion requests and exits when COMP_LINE is set
	kongplete.Complete(parser, cli.CompletionOptions()...)

	ctx, err := parser.Parse(os.Args[1:])
	if err != nil {
		// Errors raised while wiring dependencies carry their own exit code
		var cliErr *output.CLIError
		if errors.As(err, &cliErr) {
			os.Exit(output.Report(cliInstance.Formatter(), cliErr))
		}
		parser.FatalIfErrorf(err)
	}

	// Run command with bound dependencies
	if err := ctx.Run(); err != nil {
		os.Exit(output.Report(cliInstance.Formatter(), err))
	}
}
