package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/willabides/kongplete"
)

// CLI is the top-level command tree, collapsed from the teacher's
// chat/complete/agent/structured split down to the single Run command an
// orchestration core needs: everything past request assembly is
// runner.Run's job, not the CLI's.
type CLI struct {
	RunnerConfig string `kong:"name='runner-config',type='existingfile',help='Path to a runner config YAML file (mode, concurrency, consensus, ...)'"`
	Providers    string `kong:"name='providers',type='existingfile',required,help='Path to a providers registry YAML file'"`
	Verbose      bool   `kong:"short='v',help='Enable verbose logging'"`
	Output       string `kong:"short='o',default='text',enum='text,json',help='Output format'"`

	Run                RunCmd                        `kong:"cmd,help='Send one request through the configured orchestration strategy'"`
	Completion         CompletionCmd                 `kong:"cmd,help='Print a placeholder completion comment for a shell'"`
	InstallCompletions kongplete.InstallCompletions  `kong:"cmd,help='Install shell completions'"`
}

// Context holds parsed global flags, shared across command Run methods the
// way the teacher's cmd/cli.go Context carries CLI+Config.
type Context struct {
	CLI *CLI
}

// CompletionCmd prints a one-line placeholder comment for the named shell; it
// does not generate a completion script. Completions are installed through
// the kongplete-backed InstallCompletions command.
type CompletionCmd struct {
	Shell string `kong:"arg,required,enum='bash,zsh,fish',help='Shell to generate completions for'"`
}

func (c *CompletionCmd) Run(ctx *Context) error {
	switch c.Shell {
	case "bash":
		fmt.Fprintln(os.Stdout, "# bash completion for llmorchctl; see kongplete for installation")
	case "zsh":
		fmt.Fprintln(os.Stdout, "# zsh completion for llmorchctl; see kongplete for installation")
	case "fish":
		fmt.Fprintln(os.Stdout, "# fish completion for llmorchctl; see kongplete for installation")
	default:
		return fmt.Errorf("unsupported shell: %s", c.Shell)
	}
	return nil
}

func printJSON(w *os.File, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
