// Package evaluation generates a headline for every test example, scores the
// outputs and writes the report files.
package evaluation

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/byteowlz/baitgen/internal/dataset"
	"github.com/byteowlz/baitgen/internal/generate"
	"github.com/byteowlz/baitgen/internal/metrics"
)

// Metric column names, also accepted as the worst-k ranking metric.
const (
	MetricBERTScoreF1 = "BERTscore_f1"
	MetricBLEU        = "bleu"
	MetricRougeLF1    = "ROUGE_L_f1"
)

var predictionColumns = []string{"reference", "prediction", "title", MetricBERTScoreF1, MetricBLEU, MetricRougeLF1}

// Scorer computes per-example BERTScore.
type Scorer interface {
	Score(ctx context.Context, references, predictions []string) (*metrics.BERTScores, error)
}

type Options struct {
	OutputDir string
	// Prefix names the output files. Empty picks a random one.
	Prefix      string
	WorstK      int
	WorstMetric string
	BadTokens   []string
}

// Prediction is one scored example. BERTScoreF1 is nil when BERTScore is
// disabled.
type Prediction struct {
	Reference   string
	Prediction  string
	Title       string
	BERTScoreF1 *float64
	BLEU        float64
	RougeLF1    float64
}

type BERTScoreSummary struct {
	F1 float64 `json:"f1"`
	P  float64 `json:"p"`
	R  float64 `json:"r"`
}

// Report is the averaged result written to eval_results_{prefix}.json.
type Report struct {
	Generator string              `json:"generator"`
	Examples  int                 `json:"examples"`
	BLEU      float64             `json:"bleu"`
	Rouge     metrics.RougeScores `json:"rouge"`
	BERTScore *BERTScoreSummary   `json:"BERTscore,omitempty"`
}

type Result struct {
	Prefix          string
	Report          Report
	Predictions     []Prediction
	ResultsPath     string
	PredictionsPath string
	WorstPath       string
}

type Evaluator struct {
	Generator generate.Generator
	// Scorer is optional; nil skips BERTScore.
	Scorer  Scorer
	Options Options
}

// LoadTestSet reads a test CSV. The article body is required since every
// model input is built from it.
func LoadTestSet(path string) (*dataset.Dataset, error) {
	return dataset.ReadCSV(path, dataset.ColBody)
}

func (e *Evaluator) Run(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	prefix := e.Options.Prefix
	if prefix == "" {
		prefix = uuid.NewString()
	}
	if err := os.MkdirAll(e.Options.OutputDir, 0755); err != nil {
		return nil, eris.Wrapf(err, "evaluation: create %s", e.Options.OutputDir)
	}

	preds, err := e.predict(ctx, ds)
	if err != nil {
		return nil, err
	}

	report := Report{Generator: e.Generator.Name(), Examples: len(preds)}
	refs := make([]string, len(preds))
	outs := make([]string, len(preds))
	bleus := make([]float64, len(preds))
	rouges := make([]metrics.RougeScores, len(preds))
	for i := range preds {
		refs[i] = preds[i].Reference
		outs[i] = preds[i].Prediction
		bleus[i] = metrics.SentenceBLEU1(refs[i], outs[i])
		rouges[i] = metrics.Rouge(refs[i], outs[i])
		preds[i].BLEU = bleus[i]
		preds[i].RougeLF1 = rouges[i].RougeL.F
	}
	report.BLEU = metrics.Mean(bleus)
	report.Rouge = metrics.MeanRouge(rouges)

	if e.Scorer != nil && len(preds) > 0 {
		scores, err := e.Scorer.Score(ctx, refs, outs)
		if err != nil {
			return nil, err
		}
		for i := range preds {
			f1 := scores.F1[i]
			preds[i].BERTScoreF1 = &f1
		}
		report.BERTScore = &BERTScoreSummary{
			F1: metrics.Mean(scores.F1),
			P:  metrics.Mean(scores.Precision),
			R:  metrics.Mean(scores.Recall),
		}
	}

	res := &Result{Prefix: prefix, Report: report, Predictions: preds}
	dir := e.Options.OutputDir

	res.ResultsPath = filepath.Join(dir, fmt.Sprintf("eval_results_%s.json", prefix))
	if err := writeReport(res.ResultsPath, report); err != nil {
		return nil, err
	}

	res.PredictionsPath = filepath.Join(dir, fmt.Sprintf("predictions_%s.csv", prefix))
	if err := writePredictions(res.PredictionsPath, preds); err != nil {
		return nil, err
	}

	metric := e.worstMetric(report.BERTScore != nil)
	k := e.Options.WorstK
	if k <= 0 {
		k = 20
	}
	res.WorstPath = filepath.Join(dir, fmt.Sprintf("predictions_%s_lowest_%s_%d.csv", prefix, metric, k))
	if err := writePredictions(res.WorstPath, Lowest(preds, metric, k)); err != nil {
		return nil, err
	}

	zap.L().Info("evaluation complete",
		zap.String("prefix", prefix),
		zap.Int("examples", report.Examples),
		zap.Float64("bleu", report.BLEU),
		zap.Float64("rouge_l_f1", report.Rouge.RougeL.F),
	)
	return res, nil
}

func (e *Evaluator) predict(ctx context.Context, ds *dataset.Dataset) ([]Prediction, error) {
	preds := make([]Prediction, 0, len(ds.Records))
	for i, r := range ds.Records {
		out, err := e.Generator.Generate(ctx, dataset.FormatInput(r.ArticleTitle, r.Body))
		if err != nil {
			return nil, eris.Wrapf(err, "evaluation: generate example %d", i)
		}
		out = generate.RemoveBadTokens(out, e.Options.BadTokens)
		zap.L().Debug("generated", zap.Int("example", i), zap.String("prediction", out))
		preds = append(preds, Prediction{Reference: r.PostText, Prediction: out, Title: r.ArticleTitle})
	}
	return preds, nil
}

func (e *Evaluator) worstMetric(haveBERTScore bool) string {
	metric := e.Options.WorstMetric
	if metric == "" {
		metric = MetricBERTScoreF1
	}
	if metric == MetricBERTScoreF1 && !haveBERTScore {
		zap.L().Info("BERTScore disabled, ranking lowest examples by ROUGE-L F1")
		return MetricRougeLF1
	}
	return metric
}

// Lowest returns the k predictions with the lowest value of metric, lowest
// first. Ties keep input order.
func Lowest(preds []Prediction, metric string, k int) []Prediction {
	sorted := slices.Clone(preds)
	slices.SortStableFunc(sorted, func(a, b Prediction) int {
		va, vb := metricValue(a, metric), metricValue(b, metric)
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		}
		return 0
	})
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}

func metricValue(p Prediction, metric string) float64 {
	switch metric {
	case MetricBERTScoreF1:
		if p.BERTScoreF1 != nil {
			return *p.BERTScoreF1
		}
		return 0
	case MetricBLEU:
		return p.BLEU
	default:
		return p.RougeLF1
	}
}

// ValidMetric reports whether name can rank the lowest examples.
func ValidMetric(name string) bool {
	return slices.Contains([]string{MetricBERTScoreF1, MetricBLEU, MetricRougeLF1}, name)
}

func writeReport(path string, report Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "evaluation: marshal report")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return eris.Wrapf(err, "evaluation: write %s", path)
	}
	return nil
}

func writePredictions(path string, preds []Prediction) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "evaluation: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(predictionColumns); err != nil {
		return eris.Wrapf(err, "evaluation: write %s", path)
	}
	for _, p := range preds {
		bert := ""
		if p.BERTScoreF1 != nil {
			bert = formatFloat(*p.BERTScoreF1)
		}
		row := []string{p.Reference, p.Prediction, p.Title, bert, formatFloat(p.BLEU), formatFloat(p.RougeLF1)}
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "evaluation: write %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "evaluation: flush %s", path)
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
