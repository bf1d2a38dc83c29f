// Command llmorchctl is a thin CLI over pkg/llm/runner, grounded on the
// teacher's kong-based cmd/cli.go collapsed to the single operation an
// orchestration core exposes externally: send a request, get back the
// winning response.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/willabides/kongplete"
)

func main() {
	var cli CLI
	parser := kong.Must(&cli,
		kong.Name("llmorchctl"),
		kong.Description("Drive LLM provider orchestration strategies from the command line"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
	)

	kongplete.Complete(parser,
		kongplete.WithPredictor("path", kongplete.FilesPredictor(true)),
	)

	parsed, err := parser.Parse(os.Args[1:])
	parser.FatalIfErrorf(err)

	if err := parsed.Run(&Context{CLI: &cli}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
