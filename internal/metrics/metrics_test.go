package metrics

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func TestSentenceBLEU1(t *testing.T) {
	tests := []struct {
		name      string
		ref, cand string
		want      float64
	}{
		{"identical", "a b c", "a b c", 1},
		{"no overlap", "a b c", "x y z", 0},
		{"empty candidate", "a b c", "", 0},
		{"clipped", "a b", "a a a a", 0.25},
		{"brevity penalty", "a b c d", "a b", math.Exp(1 - 4.0/2.0)},
		{"longer candidate", "a b", "a b x y", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SentenceBLEU1(tt.ref, tt.cand), eps)
		})
	}
}

func TestRouge(t *testing.T) {
	s := Rouge("the cat sat on the mat", "The cat sat")

	assert.InDelta(t, 1.0, s.Rouge1.P, eps)
	assert.InDelta(t, 3.0/6.0, s.Rouge1.R, eps)
	assert.InDelta(t, 2*1.0*0.5/1.5, s.Rouge1.F, eps)

	assert.InDelta(t, 1.0, s.Rouge2.P, eps)
	assert.InDelta(t, 2.0/5.0, s.Rouge2.R, eps)

	assert.InDelta(t, 1.0, s.RougeL.P, eps)
	assert.InDelta(t, 0.5, s.RougeL.R, eps)
}

func TestRouge_LCSNotContiguous(t *testing.T) {
	s := Rouge("a b c d", "a x c d")
	assert.InDelta(t, 0.75, s.RougeL.P, eps)
	assert.InDelta(t, 0.75, s.RougeL.R, eps)
	assert.InDelta(t, 1.0/3.0, s.Rouge2.P, eps)
}

func TestRouge_Empty(t *testing.T) {
	s := Rouge("a b", "")
	assert.Equal(t, RougeScores{}, s)
}

func TestMeanRouge(t *testing.T) {
	m := MeanRouge([]RougeScores{
		{Rouge1: PRF{F: 1, P: 1, R: 1}},
		{Rouge1: PRF{F: 0, P: 0, R: 0.5}},
	})
	assert.InDelta(t, 0.5, m.Rouge1.F, eps)
	assert.InDelta(t, 0.75, m.Rouge1.R, eps)
	assert.Equal(t, RougeScores{}, MeanRouge(nil))
}

func TestMean(t *testing.T) {
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), eps)
	assert.Zero(t, Mean(nil))
}

func TestBERTScorer(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req bertScoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "he", req.Lang)
		assert.Equal(t, []string{"p1", "p2"}, req.Predictions)
		assert.Equal(t, []string{"r1", "r2"}, req.References)

		json.NewEncoder(w).Encode(BERTScores{ //nolint:errcheck
			Precision: []float64{0.9, 0.8},
			Recall:    []float64{0.7, 0.6},
			F1:        []float64{0.8, 0.7},
		})
	}))
	defer ts.Close()

	s := NewBERTScorer(ts.URL, "he", time.Second)
	scores, err := s.Score(context.Background(), []string{"r1", "r2"}, []string{"p1", "p2"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0.8, 0.7}, scores.F1)
}

func TestBERTScorer_LengthMismatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"precision":[0.1],"recall":[0.1],"f1":[0.1]}`)) //nolint:errcheck
	}))
	defer ts.Close()

	s := NewBERTScorer(ts.URL, "he", time.Second)
	_, err := s.Score(context.Background(), []string{"r1", "r2"}, []string{"p1", "p2"})
	assert.Error(t, err)

	_, err = s.Score(context.Background(), []string{"r1"}, []string{"p1", "p2"})
	assert.Error(t, err)
}

func TestBERTScorer_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "oom", http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := NewBERTScorer(ts.URL, "he", time.Second).Score(context.Background(), []string{"r"}, []string{"p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
