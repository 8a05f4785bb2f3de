package collector

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/byteowlz/baitgen/internal/extractor"
)

const utf8BOM = "\ufeff"

// ArticleColumns is the header of the scraped articles file.
var ArticleColumns = []string{"Title", "Body", "Link"}

// WriteArticlesCSV writes results to path as UTF-8 with a byte-order mark,
// dropping rows that exactly repeat an earlier row.
func WriteArticlesCSV(path string, results []extractor.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}

	w := csv.NewWriter(f)
	if err := w.Write(ArticleColumns); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}

	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		row := []string{r.Title, r.Body, r.Link}
		key := strings.Join(row, "\x00")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "write %s", path)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "flush %s", path)
	}
	return f.Close()
}
