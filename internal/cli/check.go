package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/truthlens/internal/model"
	"github.com/ppiankov/truthlens/internal/pipeline"
	"github.com/ppiankov/truthlens/internal/render"
)

var (
	checkURL     bool
	checkJSON    bool
	checkMD      string
	checkTimeout time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check <content|->",
	Short: "Check the credibility of a piece of text or a URL",
	Long: `Check runs one credibility assessment and saves it to history.

Pass the content as an argument, or "-" to read it from stdin. Use --url
when the content is a link.

Example:
  truthlens check "BREAKING: all bridges closed, share now!"
  truthlens check --url https://example.com/story
  pbpaste | truthlens check - --json`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&checkURL, "url", false, "treat the content as a URL")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "print the result as JSON")
	checkCmd.Flags().StringVar(&checkMD, "md", "", "also write a Markdown report to this path")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 2*time.Minute, "overall timeout")
}

func runCheck(cmd *cobra.Command, args []string) error {
	content, err := readContent(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	sub := model.Submission{Content: content, ContentType: model.ContentTypeText}
	if checkURL {
		sub.ContentType = model.ContentTypeURL
	}
	if err := sub.Validate(); err != nil {
		return err
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Checking %s (%d chars)...\n", sub.ContentType, len(sub.Content))
	}

	orch := pipeline.NewOrchestrator(a.runner, logger, a.observers()...)
	result, err := orch.Submit(ctx, sub)
	if err != nil {
		return errors.New(pipeline.ErrorMessage(err))
	}

	out := cmd.OutOrStdout()
	if checkJSON {
		err = render.JSON(out, result)
	} else {
		err = render.Result(out, *result)
	}
	if err != nil {
		return err
	}

	if checkMD != "" {
		if err := writeMarkdown(checkMD, sub, *result); err != nil {
			return err
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", checkMD)
		}
	}
	return nil
}

// readContent returns arg, or all of stdin when arg is "-"
func readContent(arg string, stdin io.Reader) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func writeMarkdown(path string, sub model.Submission, result model.AnalysisResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create markdown: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close markdown: %w", closeErr)
		}
	}()
	return render.Markdown(f, sub, result)
}
