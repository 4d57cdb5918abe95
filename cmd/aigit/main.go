// Package main provides the aigit CLI entrypoint.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/grahamg/ai-git/internal/logging"
	"github.com/grahamg/ai-git/internal/ollama"
)

var version = "0.1.0"

func main() {
	var (
		ollamaHost  string
		model       string
		temperature float64
		debug       bool
		plain       bool
	)

	rootCmd := &cobra.Command{
		Use:   "aigit [path]",
		Short: "AI-driven git tool for managing generated code changes",
		Long: `aigit: an interactive session manager for AI-generated code edits.

It creates an isolated branch per session, sends your request together
with a bounded file context to an Ollama backend, applies the returned
whole-file edits, and records prompt/files/commit provenance for audit.

Run it inside (or pointing at) a git repository to start the shell:
  aigit              Use the current directory
  aigit <path>       Use the repository at <path>`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.SetDebug(debug)

			workDir, err := os.Getwd()
			if err != nil {
				return err
			}
			if len(args) > 0 {
				path := args[0]
				if !filepath.IsAbs(path) {
					path = filepath.Join(workDir, path)
				}
				workDir = path
			}

			backend := ollama.NewClient(ollamaHost,
				ollama.WithModel(model),
				ollama.WithTemperature(temperature),
			)
			return runREPL(workDir, backend, !plain)
		},
	}

	rootCmd.Flags().StringVar(&ollamaHost, "ollama-host", ollama.DefaultHost, "Ollama API host")
	rootCmd.Flags().StringVar(&model, "model", ollama.DefaultModel, "Generation model")
	rootCmd.Flags().Float64Var(&temperature, "temperature", ollama.DefaultTemperature, "Sampling temperature")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.Flags().BoolVar(&plain, "plain", false, "Disable colored output")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
