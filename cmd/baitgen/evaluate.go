package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/byteowlz/baitgen/internal/evaluation"
	"github.com/byteowlz/baitgen/internal/generate"
	"github.com/byteowlz/baitgen/internal/metrics"
)

var (
	evalTest     string
	evalOutput   string
	evalPrefix   string
	evalBaseline bool
	evalWorstK   int
	evalMetric   string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Generate headlines for a test set and score them",
	RunE:  runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&evalTest, "test", "t", "test.csv", "test CSV")
	evaluateCmd.Flags().StringVarP(&evalOutput, "output-dir", "o", ".", "directory for the result files")
	evaluateCmd.Flags().StringVarP(&evalPrefix, "prefix", "p", "", "result file prefix (default: random)")
	evaluateCmd.Flags().BoolVar(&evalBaseline, "baseline", false, "score the hosted LLM baseline (Anthropic) instead of the fine-tuned endpoint; point generate.endpoint at an untuned checkpoint for a same-family baseline")
	evaluateCmd.Flags().IntVarP(&evalWorstK, "worst-k", "k", 0, "number of lowest-scoring examples to export (default: eval.worst_k)")
	evaluateCmd.Flags().StringVar(&evalMetric, "metric", "", "metric ranking the lowest examples (BERTscore_f1|bleu|ROUGE_L_f1)")
}

func newGenerator(backend string) (generate.Generator, error) {
	switch backend {
	case "endpoint":
		if cfg.Generate.Endpoint == "" {
			return nil, fmt.Errorf("generate.endpoint is not configured")
		}
		return generate.NewEndpointGenerator(cfg.Generate.Endpoint, cfg.Generate.MaxNewTokens, networkTimeout()), nil
	case "anthropic":
		key := cfg.Generate.Anthropic.Key
		if envKey := os.Getenv("ANTHROPIC_API_KEY"); key == "" && envKey != "" {
			key = envKey
		}
		if key == "" {
			return nil, fmt.Errorf("anthropic: API key not configured (set generate.anthropic.key in config or ANTHROPIC_API_KEY env var)")
		}
		return generate.NewAnthropicGenerator(key, cfg.Generate.Anthropic.Model, cfg.Generate.Anthropic.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown generator backend: %s (available: endpoint, anthropic)", backend)
	}
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	defer syncLogger()

	backend := cfg.Generate.Backend
	if evalBaseline {
		backend = "anthropic"
	}
	gen, err := newGenerator(backend)
	if err != nil {
		return exitError(ExitConfigError, "Error: %v", err)
	}

	opts := evaluation.Options{
		OutputDir:   evalOutput,
		Prefix:      evalPrefix,
		WorstK:      cfg.Eval.WorstK,
		WorstMetric: cfg.Eval.WorstMetric,
		BadTokens:   cfg.Generate.BadTokens,
	}
	if cmd.Flags().Changed("worst-k") {
		opts.WorstK = evalWorstK
	}
	if cmd.Flags().Changed("metric") {
		opts.WorstMetric = evalMetric
	}
	if opts.WorstMetric != "" && !evaluation.ValidMetric(opts.WorstMetric) {
		return exitError(ExitInvalidInput, "Error: unknown metric %q (available: BERTscore_f1, bleu, ROUGE_L_f1)", opts.WorstMetric)
	}

	ds, err := evaluation.LoadTestSet(evalTest)
	if err != nil {
		return exitError(ExitInvalidInput, "Error reading %s: %v", evalTest, err)
	}

	ev := &evaluation.Evaluator{Generator: gen, Options: opts}
	if cfg.Eval.BERTScoreEndpoint != "" {
		ev.Scorer = metrics.NewBERTScorer(cfg.Eval.BERTScoreEndpoint, cfg.Eval.Lang, 0)
	} else {
		zap.L().Info("no BERTScore endpoint configured, skipping BERTScore")
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := ev.Run(ctx, ds)
	if err != nil {
		return exitError(ExitProcessError, "Error evaluating %s: %v", evalTest, err)
	}

	fmt.Printf("BLEU:       %.4f\n", res.Report.BLEU)
	fmt.Printf("ROUGE-1 F1: %.4f\n", res.Report.Rouge.Rouge1.F)
	fmt.Printf("ROUGE-2 F1: %.4f\n", res.Report.Rouge.Rouge2.F)
	fmt.Printf("ROUGE-L F1: %.4f\n", res.Report.Rouge.RougeL.F)
	if res.Report.BERTScore != nil {
		fmt.Printf("BERTScore F1: %.4f\n", res.Report.BERTScore.F1)
	}
	fmt.Printf("Results: %s\n", res.ResultsPath)
	return nil
}
