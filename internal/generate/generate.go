// Package generate produces post headlines from formatted article inputs,
// either from the fine-tuned model behind an inference endpoint or from a
// hosted baseline model.
package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

type Generator interface {
	Name() string
	Generate(ctx context.Context, input string) (string, error)
}

// RemoveBadTokens deletes every occurrence of the given sentinel tokens.
func RemoveBadTokens(output string, tokens []string) string {
	for _, tok := range tokens {
		output = strings.ReplaceAll(output, tok, "")
	}
	return output
}

// EndpointGenerator calls a text-generation inference server.
type EndpointGenerator struct {
	URL          string
	MaxNewTokens int
	client       *http.Client
}

func NewEndpointGenerator(url string, maxNewTokens int, timeout time.Duration) *EndpointGenerator {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &EndpointGenerator{
		URL:          url,
		MaxNewTokens: maxNewTokens,
		client:       &http.Client{Timeout: timeout},
	}
}

func (g *EndpointGenerator) Name() string { return "endpoint" }

type endpointRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters endpointParameters `json:"parameters"`
}

type endpointParameters struct {
	MaxNewTokens int `json:"max_new_tokens"`
}

type endpointResponse struct {
	GeneratedText string `json:"generated_text"`
}

func (g *EndpointGenerator) Generate(ctx context.Context, input string) (string, error) {
	body, err := json.Marshal(endpointRequest{
		Inputs:     input,
		Parameters: endpointParameters{MaxNewTokens: g.MaxNewTokens},
	})
	if err != nil {
		return "", eris.Wrap(err, "endpoint: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.URL, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "endpoint: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "endpoint: request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", eris.Wrap(err, "endpoint: read response")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("endpoint: HTTP %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	return decodeGenerated(raw)
}

// decodeGenerated accepts both the single-object and the list form of the
// text-generation response.
func decodeGenerated(raw []byte) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []endpointResponse
		if err := json.Unmarshal(raw, &list); err != nil {
			return "", eris.Wrap(err, "endpoint: decode response")
		}
		if len(list) == 0 {
			return "", eris.New("endpoint: empty response list")
		}
		return list[0].GeneratedText, nil
	}

	var single endpointResponse
	if err := json.Unmarshal(raw, &single); err != nil {
		return "", eris.Wrap(err, "endpoint: decode response")
	}
	return single.GeneratedText, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return fmt.Sprintf("%s...", s[:n])
}
