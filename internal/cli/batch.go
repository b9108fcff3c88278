package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/truthlens/internal/model"
	"github.com/ppiankov/truthlens/internal/pipeline"
	"github.com/ppiankov/truthlens/internal/render"
	"github.com/ppiankov/truthlens/internal/worker"
)

var (
	concurrency  int
	batchRate    float64
	batchTimeout time.Duration
	batchJSON    bool
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file|->",
	Short: "Check many submissions from a file in parallel",
	Long: `Batch checks one submission per line:
- Lines starting with http:// or https:// are checked as URLs
- Any other line is checked as text
- Blank lines, # comments and duplicates are skipped
- Every successful check is saved to history

Example:
  truthlens batch claims.txt
  truthlens batch claims.txt --concurrency 2 --rate 0.5
  cat links.txt | truthlens batch - --json`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of concurrent workers")
	batchCmd.Flags().Float64Var(&batchRate, "rate", 0, "maximum checks started per second (0 = unlimited)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&batchJSON, "json", false, "print all results as a JSON array")
}

type batchOutput struct {
	Submission model.Submission      `json:"submission"`
	Result     *model.AnalysisResult `json:"result,omitempty"`
	Error      string                `json:"error,omitempty"`
}

func runBatch(cmd *cobra.Command, args []string) error {
	input := args[0]

	var (
		subs []model.Submission
		err  error
	)
	if input == "-" {
		subs, err = worker.ParseSubmissions(cmd.InOrStdin())
	} else {
		subs, err = worker.ReadSubmissionsFromFile(input)
	}
	if err != nil {
		return fmt.Errorf("read submissions: %w", err)
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  TruthLens Batch\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input:        %s\n", input)
	fmt.Fprintf(os.Stderr, "  Submissions:  %d\n", len(subs))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(a.runner, concurrency, batchRate, logger, a.observers()...)
	results := processor.ProcessSubmissions(ctx, subs)

	successCount := 0
	out := make([]batchOutput, 0, len(results))
	for _, res := range results {
		entry := batchOutput{Submission: res.Submission, Result: res.Result}
		preview := model.Preview(res.Submission.Content)

		if res.Error != nil {
			entry.Error = pipeline.ErrorMessage(res.Error)
			fmt.Fprintf(os.Stderr, "✗ %s: %s\n", preview, entry.Error)
		} else {
			successCount++
			fmt.Fprintf(os.Stderr, "✓ %s (%d/100 %s)\n", preview, res.Result.CredibilityScore, res.Result.CredibilityLevel)
		}
		out = append(out, entry)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", len(results)-successCount)
	fmt.Fprintf(os.Stderr, "\n")

	if batchJSON {
		return render.JSON(cmd.OutOrStdout(), out)
	}
	return nil
}
