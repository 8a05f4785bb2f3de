// Package metrics scores generated headlines against reference post texts.
package metrics

import (
	"math"
	"strings"
)

// SentenceBLEU1 is sentence-level BLEU with all weight on unigrams: the
// clipped unigram precision of candidate against reference, times the
// brevity penalty. Tokens are whitespace-separated and case-sensitive.
func SentenceBLEU1(reference, candidate string) float64 {
	ref := strings.Fields(reference)
	hyp := strings.Fields(candidate)
	if len(hyp) == 0 || len(ref) == 0 {
		return 0
	}

	matched := clippedOverlap(counts(ref, 1), counts(hyp, 1))
	if matched == 0 {
		return 0
	}
	precision := float64(matched) / float64(len(hyp))

	bp := 1.0
	if len(hyp) < len(ref) {
		bp = math.Exp(1 - float64(len(ref))/float64(len(hyp)))
	}
	return bp * precision
}

// PRF is a precision/recall/F1 triple. JSON keys follow the common ROUGE
// report layout.
type PRF struct {
	F float64 `json:"f"`
	P float64 `json:"p"`
	R float64 `json:"r"`
}

type RougeScores struct {
	Rouge1 PRF `json:"rouge-1"`
	Rouge2 PRF `json:"rouge-2"`
	RougeL PRF `json:"rouge-l"`
}

// Rouge computes ROUGE-1, ROUGE-2 and ROUGE-L of candidate against
// reference over lower-cased whitespace tokens.
func Rouge(reference, candidate string) RougeScores {
	ref := strings.Fields(strings.ToLower(reference))
	hyp := strings.Fields(strings.ToLower(candidate))

	return RougeScores{
		Rouge1: rougeN(ref, hyp, 1),
		Rouge2: rougeN(ref, hyp, 2),
		RougeL: prf(lcsLength(ref, hyp), len(hyp), len(ref)),
	}
}

// MeanRouge averages each component over scores.
func MeanRouge(scores []RougeScores) RougeScores {
	var sum RougeScores
	if len(scores) == 0 {
		return sum
	}
	for _, s := range scores {
		sum.Rouge1 = addPRF(sum.Rouge1, s.Rouge1)
		sum.Rouge2 = addPRF(sum.Rouge2, s.Rouge2)
		sum.RougeL = addPRF(sum.RougeL, s.RougeL)
	}
	n := float64(len(scores))
	sum.Rouge1 = scalePRF(sum.Rouge1, n)
	sum.Rouge2 = scalePRF(sum.Rouge2, n)
	sum.RougeL = scalePRF(sum.RougeL, n)
	return sum
}

// Mean returns the arithmetic mean of xs, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func rougeN(ref, hyp []string, n int) PRF {
	refCounts := counts(ref, n)
	hypCounts := counts(hyp, n)
	return prf(clippedOverlap(refCounts, hypCounts), total(hypCounts), total(refCounts))
}

func prf(overlap, hypLen, refLen int) PRF {
	var s PRF
	if hypLen > 0 {
		s.P = float64(overlap) / float64(hypLen)
	}
	if refLen > 0 {
		s.R = float64(overlap) / float64(refLen)
	}
	if s.P+s.R > 0 {
		s.F = 2 * s.P * s.R / (s.P + s.R)
	}
	return s
}

func counts(tokens []string, n int) map[string]int {
	c := make(map[string]int)
	for i := 0; i+n <= len(tokens); i++ {
		c[strings.Join(tokens[i:i+n], " ")]++
	}
	return c
}

func total(c map[string]int) int {
	var t int
	for _, v := range c {
		t += v
	}
	return t
}

func clippedOverlap(ref, hyp map[string]int) int {
	var overlap int
	for gram, hc := range hyp {
		overlap += min(hc, ref[gram])
	}
	return overlap
}

func lcsLength(a, b []string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				cur[j] = prev[j-1] + 1
			} else {
				cur[j] = max(prev[j], cur[j-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func addPRF(a, b PRF) PRF {
	return PRF{F: a.F + b.F, P: a.P + b.P, R: a.R + b.R}
}

func scalePRF(a PRF, n float64) PRF {
	return PRF{F: a.F / n, P: a.P / n, R: a.R / n}
}
