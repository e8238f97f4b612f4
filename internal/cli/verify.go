package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmallek/copycheck/internal/llm"
	"github.com/jmallek/copycheck/internal/model"
	"github.com/jmallek/copycheck/internal/pipeline"
)

var (
	adCopy         string
	adCopyFile     string
	outJSON        string
	budget         time.Duration
	fetchTimeout   time.Duration
	userAgent      string
	maxBytes       int64
	noRobots       bool
	evidenceBudget int
	useModelClaims bool
	passScore      float64
	failConfidence float64
	llmProvider    string
	llmModel       string
	llmBaseURL     string
	noTone         bool
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify <url>...",
	Short: "Verify ad copy against one or more reference pages",
	Long: `Verify grades the given ad copy against the content of the reference
pages:
- Decompose the copy into discrete factual claims
- Fetch the pages and assemble a bounded evidence set
- Ask the language model to judge every claim against the evidence
- Aggregate per-claim verdicts into a score and an overall grade

The process exits 0 on PASS, 1 on NEEDS_REVIEW, 2 on FAIL, and 3 when
the verification itself failed.

Example:
  copycheck verify https://shop.example.com/product --copy "Ships in 2 days, $49.99"
  copycheck verify https://shop.example.com --copy-file ad.txt --json report.json
  copycheck verify https://shop.example.com --copy - < ad.txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	// Input flags
	verifyCmd.Flags().StringVar(&adCopy, "copy", "", "ad copy to verify (\"-\" reads stdin)")
	verifyCmd.Flags().StringVar(&adCopyFile, "copy-file", "", "file containing the ad copy")

	// Output flags
	verifyCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (\"-\" for stdout)")

	// HTTP flags
	verifyCmd.Flags().DurationVar(&budget, "budget", 3*time.Second, "wall-clock budget for the whole verification")
	verifyCmd.Flags().DurationVar(&fetchTimeout, "timeout", 2*time.Second, "per-page fetch timeout")
	verifyCmd.Flags().StringVar(&userAgent, "ua", "Copycheck/0.2 (+https://github.com/jmallek/copycheck)", "HTTP User-Agent")
	verifyCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read per page")
	verifyCmd.Flags().BoolVar(&noRobots, "no-robots", false, "ignore robots.txt")

	// Verification flags
	verifyCmd.Flags().IntVar(&evidenceBudget, "evidence-budget", 30_000, "evidence character budget")
	verifyCmd.Flags().BoolVar(&useModelClaims, "model-claims", false, "decompose claims via the LLM instead of the rule splitter")
	verifyCmd.Flags().Float64Var(&passScore, "pass-score", 0.9, "minimum score for PASS")
	verifyCmd.Flags().Float64Var(&failConfidence, "fail-confidence", 0.7, "contradiction confidence that forces FAIL")
	verifyCmd.Flags().BoolVar(&noTone, "no-tone", false, "skip tone-consistency notes")

	// LLM flags
	verifyCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai)")
	verifyCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
	verifyCmd.Flags().StringVar(&llmBaseURL, "llm-base-url", "", "override the provider API base URL")
}

func runVerify(cmd *cobra.Command, args []string) error {
	copyText, err := readAdCopy()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	cfg, err := buildConfig()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Verifying against %d page(s)\n", len(args))
		fmt.Fprintf(os.Stderr, "Budget: %v\n", cfg.Pipeline.Budget)
		fmt.Fprintf(os.Stderr, "Model: %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintln(os.Stderr)
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return err
	}
	if provider == nil {
		return fmt.Errorf("no LLM provider configured; set --llm-provider")
	}

	p := pipeline.New(cfg, provider)
	report := p.Verify(ctx, pipeline.Request{AdCopy: copyText, URLs: args})

	renderer := pipeline.NewRenderer()
	if outJSON != "" {
		if err := renderer.RenderJSON(report, outJSON); err != nil {
			return err
		}
	}
	if outJSON != "-" {
		renderer.RenderSummary(report, os.Stdout)
	}

	// The exit code travels up as an error so deferred cleanup still runs
	if code := exitCode(report); code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// ExitError carries a process exit code out of a command without an error
// message of its own. main translates it into os.Exit.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// readAdCopy resolves the --copy/--copy-file input
func readAdCopy() (string, error) {
	switch {
	case adCopy == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("read ad copy from stdin: %w", err)
		}
		return string(data), nil
	case adCopy != "":
		return adCopy, nil
	case adCopyFile != "":
		data, err := os.ReadFile(adCopyFile)
		if err != nil {
			return "", fmt.Errorf("read ad copy file: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("ad copy required: use --copy or --copy-file")
	}
}

// buildConfig layers defaults, the config file, and flags
func buildConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	// Config file and COPYCHECK_* env vars
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	// Flags take priority
	cfg.Pipeline.Budget = budget
	cfg.HTTP.Timeout = fetchTimeout
	cfg.HTTP.UserAgent = userAgent
	cfg.HTTP.MaxBodyBytes = maxBytes
	cfg.HTTP.RespectRobots = !noRobots
	cfg.Evidence.Budget = evidenceBudget
	cfg.Claims.UseModel = useModelClaims
	cfg.Thresholds.PassScore = passScore
	cfg.Thresholds.FailConfidence = failConfidence
	cfg.LLM.Provider = llmProvider
	cfg.LLM.Model = llmModel
	cfg.LLM.Tone = !noTone
	if llmBaseURL != "" {
		cfg.LLM.BaseURL = llmBaseURL
	}

	// API key comes from the environment, never from config files
	if cfg.LLM.Provider == "openai" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	}

	return cfg, nil
}

// exitCode maps the report outcome onto the process exit code
func exitCode(report *model.VerificationReport) int {
	if report.Failed {
		return 3
	}
	switch report.Verdict {
	case model.VerdictPass:
		return 0
	case model.VerdictNeedsReview:
		return 1
	default:
		return 2
	}
}
