// Command pagetran translates the HTML pages of a directory.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ZaguanLabs/pagetran"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK         = 0
	exitFailed     = 1
	exitConfigFail = 2
)

// exitCodeError carries a non-zero exit code without an error message.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.Execute()
	if err == nil {
		return exitOK
	}

	var exitErr *exitCodeError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}

	fmt.Fprintf(stderr, "error: %v\n", err)

	var cfgErr *pagetran.ConfigError
	if errors.As(err, &cfgErr) {
		return exitConfigFail
	}
	return exitFailed
}

type rootOptions struct {
	configFile string
	envFile    string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   pagetran.Name,
		Short: "Translate static HTML pages",
		Long: `pagetran translates the *.html files of a directory into a target
language and writes <name>-<lang>.html next to each input.

Providers are tried in order (DeepL, ChatGPT, LibreTranslate by default);
a provider without credentials is left out. A file that cannot be parsed
or translated is reported and never stops the others.`,
		Version:       pagetran.FullVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &pagetran.ConfigError{Message: "invalid flags", Cause: err}
	})

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Environment file loaded before reading settings")

	root.AddCommand(newTranslateCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", pagetran.Name, pagetran.FullVersion())
			if pagetran.GitCommit != "unknown" && pagetran.GitCommit != "" {
				fmt.Fprintf(out, "  commit:  %s\n", pagetran.GitCommit)
			}
			if pagetran.BuildDate != "unknown" && pagetran.BuildDate != "" {
				fmt.Fprintf(out, "  built:   %s\n", pagetran.BuildDate)
			}
		},
	}
}
