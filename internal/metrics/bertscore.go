package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// BERTScores holds per-example scores, aligned with the inputs.
type BERTScores struct {
	Precision []float64 `json:"precision"`
	Recall    []float64 `json:"recall"`
	F1        []float64 `json:"f1"`
}

// BERTScorer delegates BERTScore to an HTTP scoring service.
type BERTScorer struct {
	Endpoint string
	Lang     string
	client   *http.Client
}

func NewBERTScorer(endpoint, lang string, timeout time.Duration) *BERTScorer {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &BERTScorer{Endpoint: endpoint, Lang: lang, client: &http.Client{Timeout: timeout}}
}

type bertScoreRequest struct {
	Predictions []string `json:"predictions"`
	References  []string `json:"references"`
	Lang        string   `json:"lang"`
}

func (s *BERTScorer) Score(ctx context.Context, references, predictions []string) (*BERTScores, error) {
	if len(references) != len(predictions) {
		return nil, eris.Errorf("bertscore: %d references but %d predictions", len(references), len(predictions))
	}

	body, err := json.Marshal(bertScoreRequest{Predictions: predictions, References: references, Lang: s.Lang})
	if err != nil {
		return nil, eris.Wrap(err, "bertscore: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "bertscore: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "bertscore: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, eris.Errorf("bertscore: HTTP %d: %s", resp.StatusCode, msg)
	}

	var scores BERTScores
	if err := json.NewDecoder(resp.Body).Decode(&scores); err != nil {
		return nil, eris.Wrap(err, "bertscore: decode response")
	}
	n := len(references)
	if len(scores.F1) != n || len(scores.Precision) != n || len(scores.Recall) != n {
		return nil, eris.Errorf("bertscore: expected %d scores, got f1=%d p=%d r=%d",
			n, len(scores.F1), len(scores.Precision), len(scores.Recall))
	}
	return &scores, nil
}
