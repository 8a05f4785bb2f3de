package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/byteowlz/baitgen/internal/training"
)

var (
	trainModel     string
	trainContext   int
	trainBatch     int
	trainEpochs    int
	trainCSV       string
	trainValCSV    string
	trainOutputDir string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fine-tune the headline generator with the external trainer",
	Long: `train converts the train and validation CSVs (art_title, post_text, Body) to
JSONL files of {"text": "question: <title> context: <body>", "label": <post_text>}
and runs the trainer configured as train.command. baitgen does not ship a
trainer; the program must accept

  --model NAME          Hugging Face model id (mb, ml, mxl map to google/mt5-base|large|xl)
  --train-file PATH     training JSONL
  --val-file PATH       validation JSONL
  --context-size N      input length in tokens; pad and truncate to it
  --batch-size N
  --epochs N
  --output PATH         where to write the fine-tuned weights

and must write the weights to --output before exiting with status 0.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVarP(&trainModel, "model", "m", "", "model alias (mb|ml|mxl) or model name")
	trainCmd.Flags().IntVarP(&trainContext, "context-size", "c", 0, "input context size in tokens")
	trainCmd.Flags().IntVarP(&trainBatch, "batch-size", "b", 0, "training batch size")
	trainCmd.Flags().IntVarP(&trainEpochs, "epochs", "e", 0, "number of epochs")
	trainCmd.Flags().StringVar(&trainCSV, "train", "", "training CSV (default: train.train_csv)")
	trainCmd.Flags().StringVar(&trainValCSV, "val", "", "validation CSV (default: train.val_csv)")
	trainCmd.Flags().StringVar(&trainOutputDir, "output-dir", "", "artifact directory (default: train.output_dir)")
}

func runTrain(cmd *cobra.Command, _ []string) error {
	defer syncLogger()

	p := training.Params{
		Model:       cfg.Train.Model,
		ContextSize: cfg.Train.ContextSize,
		BatchSize:   cfg.Train.BatchSize,
		Epochs:      cfg.Train.Epochs,
		TrainCSV:    cfg.Train.TrainCSV,
		ValCSV:      cfg.Train.ValCSV,
		OutputDir:   cfg.Train.OutputDir,
		Command:     cfg.Train.Command,
	}
	flags := cmd.Flags()
	if flags.Changed("model") {
		p.Model = trainModel
	}
	if flags.Changed("context-size") {
		p.ContextSize = trainContext
	}
	if flags.Changed("batch-size") {
		p.BatchSize = trainBatch
	}
	if flags.Changed("epochs") {
		p.Epochs = trainEpochs
	}
	if flags.Changed("train") {
		p.TrainCSV = trainCSV
	}
	if flags.Changed("val") {
		p.ValCSV = trainValCSV
	}
	if flags.Changed("output-dir") {
		p.OutputDir = trainOutputDir
	}

	if _, err := training.ResolveModel(p.Model); err != nil {
		return exitError(ExitInvalidInput, "Error: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	trainer := training.NewTrainer(training.ExecRunner{Stdout: os.Stdout, Stderr: os.Stderr})
	artifact, err := trainer.Run(ctx, p)
	if err != nil {
		return exitError(ExitProcessError, "Error training model: %v", err)
	}
	zap.L().Info("training complete", zap.String("artifact", artifact))
	return nil
}
