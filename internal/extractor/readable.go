package extractor

import (
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
	"github.com/rotisserie/eris"
)

type readableArticle struct {
	Title string
	Text  string
}

// readable runs the readability algorithm over html and returns the cleaned
// main text. An empty Text is not an error.
func readable(html, pageURL string) (*readableArticle, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, eris.Wrapf(err, "parse url %q", pageURL)
	}

	article, err := readability.FromReader(strings.NewReader(html), parsed)
	if err != nil {
		return nil, eris.Wrap(err, "readability")
	}

	return &readableArticle{
		Title: strings.TrimSpace(article.Title),
		Text:  CleanNewlines(article.TextContent),
	}, nil
}

// CleanNewlines joins lines that were broken mid-sentence while keeping
// paragraph breaks (blank lines) intact.
func CleanNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var paragraphs []string
	for _, paragraph := range strings.Split(text, "\n\n") {
		var lines []string
		for _, line := range strings.Split(paragraph, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if n := len(lines); n > 0 && !endsSentence(lines[n-1]) && !startsSentence(line) {
				lines[n-1] += " " + line
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, "\n"))
		}
	}

	return strings.TrimSpace(strings.Join(paragraphs, "\n\n"))
}

func endsSentence(line string) bool {
	return strings.HasSuffix(line, ".") ||
		strings.HasSuffix(line, "!") ||
		strings.HasSuffix(line, "?") ||
		strings.HasSuffix(line, ":") ||
		strings.HasSuffix(line, ";")
}

func startsSentence(line string) bool {
	for _, bullet := range []string{"- ", "* ", "• "} {
		if strings.HasPrefix(line, bullet) {
			return true
		}
	}
	r, _ := utf8.DecodeRuneInString(line)
	return unicode.IsUpper(r) || unicode.IsDigit(r)
}
