// Package training prepares fine-tuning data and drives the external trainer
// process that owns the model.
package training

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/byteowlz/baitgen/internal/dataset"
)

// ModelAliases maps the short CLI names to pretrained checkpoints.
var ModelAliases = map[string]string{
	"mb":  "google/mt5-base",
	"ml":  "google/mt5-large",
	"mxl": "google/mt5-xl",
}

// ResolveModel expands an alias. Full checkpoint names (containing '/') are
// returned as is.
func ResolveModel(name string) (string, error) {
	if model, ok := ModelAliases[name]; ok {
		return model, nil
	}
	if strings.Contains(name, "/") {
		return name, nil
	}
	return "", eris.Errorf("training: unknown model %q (available: mb, ml, mxl)", name)
}

// ArtifactName is the file name the trainer writes the fine-tuned weights to.
func ArtifactName(contextSize, batchSize, epochs int) string {
	return fmt.Sprintf("finetuned_MT5_context_%d_batch_size_%d_epochs_%d.pt", contextSize, batchSize, epochs)
}

// Example is one supervised pair: the formatted article and the post text.
type Example struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

func PrepareExamples(ds *dataset.Dataset) []Example {
	examples := make([]Example, 0, len(ds.Records))
	for _, r := range ds.Records {
		examples = append(examples, Example{
			Text:  dataset.FormatInput(r.ArticleTitle, r.Body),
			Label: r.PostText,
		})
	}
	return examples
}

func WriteJSONL(path string, examples []Example) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "training: create %s", path)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, ex := range examples {
		if err := enc.Encode(ex); err != nil {
			return eris.Wrapf(err, "training: write %s", path)
		}
	}
	if err := w.Flush(); err != nil {
		return eris.Wrapf(err, "training: flush %s", path)
	}
	return f.Close()
}

// CommandRunner runs an external program to completion.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) error
}

// ExecRunner runs commands with os/exec, streaming their output.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return eris.Wrapf(err, "training: %s failed", name)
	}
	return nil
}

type Params struct {
	Model       string
	ContextSize int
	BatchSize   int
	Epochs      int
	TrainCSV    string
	ValCSV      string
	OutputDir   string
	// Command is the trainer program and its leading arguments.
	Command []string
}

type Trainer struct {
	Runner CommandRunner
}

func NewTrainer(r CommandRunner) *Trainer {
	return &Trainer{Runner: r}
}

// Run converts the train and validation CSVs to JSONL next to the artifact,
// invokes the trainer and returns the artifact path once it exists.
func (t *Trainer) Run(ctx context.Context, p Params) (string, error) {
	model, err := ResolveModel(p.Model)
	if err != nil {
		return "", err
	}
	if len(p.Command) == 0 {
		return "", eris.New("training: no trainer command configured")
	}
	if p.ContextSize <= 0 || p.BatchSize <= 0 || p.Epochs <= 0 {
		return "", eris.Errorf("training: context size, batch size and epochs must be positive (got %d, %d, %d)",
			p.ContextSize, p.BatchSize, p.Epochs)
	}

	if err := os.MkdirAll(p.OutputDir, 0755); err != nil {
		return "", eris.Wrapf(err, "training: create %s", p.OutputDir)
	}

	trainFile := filepath.Join(p.OutputDir, "train.jsonl")
	valFile := filepath.Join(p.OutputDir, "val.jsonl")
	for _, pair := range [][2]string{{p.TrainCSV, trainFile}, {p.ValCSV, valFile}} {
		n, err := convert(pair[0], pair[1])
		if err != nil {
			return "", err
		}
		zap.L().Info("prepared examples", zap.String("source", pair[0]), zap.String("file", pair[1]), zap.Int("examples", n))
	}

	artifact := filepath.Join(p.OutputDir, ArtifactName(p.ContextSize, p.BatchSize, p.Epochs))
	args := append(append([]string(nil), p.Command[1:]...),
		"--model", model,
		"--train-file", trainFile,
		"--val-file", valFile,
		"--context-size", strconv.Itoa(p.ContextSize),
		"--batch-size", strconv.Itoa(p.BatchSize),
		"--epochs", strconv.Itoa(p.Epochs),
		"--output", artifact,
	)

	zap.L().Info("starting trainer", zap.String("command", p.Command[0]), zap.Strings("args", args))
	if err := t.Runner.Run(ctx, p.Command[0], args); err != nil {
		return "", err
	}

	if _, err := os.Stat(artifact); err != nil {
		return "", eris.Wrapf(err, "training: trainer finished without writing %s", artifact)
	}
	return artifact, nil
}

func convert(csvPath, jsonlPath string) (int, error) {
	ds, err := dataset.ReadCSV(csvPath, dataset.ColBody)
	if err != nil {
		return 0, err
	}
	examples := PrepareExamples(ds)
	if err := WriteJSONL(jsonlPath, examples); err != nil {
		return 0, err
	}
	return len(examples), nil
}
