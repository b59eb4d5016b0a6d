package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"doc-qa/internal/app"
	"doc-qa/internal/extract"
	"doc-qa/internal/qa"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logs go to stderr so stdout carries only command output.
	build := func() (app.Deps, error) { return app.BuildTo(os.Stderr) }
	root := newRootCmd(build, os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		slog.Default().Error("docqa failed", "err", err)
		os.Exit(1)
	}
}

// buildFunc assembles runtime dependencies; tests swap in mocks.
type buildFunc func() (app.Deps, error)

func newRootCmd(build buildFunc, out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "docqa",
		Short:         "Ask questions about PDF, DOCX and Markdown documents using a local LLM",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(newAskCmd(build), newExtractCmd(), newModelsCmd(build))
	return root
}

func newAskCmd(build buildFunc) *cobra.Command {
	var (
		question string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:     "ask -q <question> <file>...",
		Short:   "Answer a question about one or more documents",
		Example: "  docqa ask -q \"What changed?\" report.pdf memo.docx",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uploads, err := readUploads(args)
			if err != nil {
				return err
			}
			deps, err := build()
			if err != nil {
				return err
			}
			defer deps.Close()

			res, err := deps.QA.Ask(cmd.Context(), uploads, question)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Answer)
			return err
		},
	}
	cmd.Flags().StringVarP(&question, "question", "q", "", "Question to ask about the documents")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full result as JSON")
	_ = cmd.MarkFlagRequired("question")
	return cmd
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <file>",
		Short: "Print the plain text extracted from a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			text, err := extract.Extract(data, filepath.Base(args[0]))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
}

func newModelsCmd(build buildFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models served by the configured inference endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := build()
			if err != nil {
				return err
			}
			defer deps.Close()

			models, err := deps.LLM.Models(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range models {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), m); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func readUploads(paths []string) ([]qa.Upload, error) {
	uploads := make([]qa.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		uploads = append(uploads, qa.Upload{Filename: filepath.Base(p), Data: data})
	}
	return uploads, nil
}
