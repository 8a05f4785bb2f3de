// Package dataset holds the post/article table and the pure stages that
// filter and clean it before training.
package dataset

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"slices"

	"github.com/rotisserie/eris"
)

const (
	ColArticleTitle = "art_title"
	ColPostText     = "post_text"
	ColBody         = "Body"
	ColLink         = "Link"
)

// Record is one post paired with the article it links to. Columns other than
// the known ones are carried in Extra and written back unchanged.
type Record struct {
	ArticleTitle string
	PostText     string
	Body         string
	Link         string
	Extra        map[string]string
}

// Get returns the value of column col.
func (r Record) Get(col string) string {
	switch col {
	case ColArticleTitle:
		return r.ArticleTitle
	case ColPostText:
		return r.PostText
	case ColBody:
		return r.Body
	case ColLink:
		return r.Link
	}
	return r.Extra[col]
}

func (r *Record) set(col, value string) {
	switch col {
	case ColArticleTitle:
		r.ArticleTitle = value
	case ColPostText:
		r.PostText = value
	case ColBody:
		r.Body = value
	case ColLink:
		r.Link = value
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[col] = value
	}
}

// Dataset is an ordered table of records. Columns is the header order used
// when writing.
type Dataset struct {
	Columns []string
	Records []Record
}

// MissingColumnError reports a CSV without a column the caller needs.
type MissingColumnError struct {
	Path   string
	Column string
}

func (e *MissingColumnError) Error() string {
	return "dataset: " + e.Path + ": missing column " + e.Column
}

// ReadCSV loads a posts table. art_title, post_text and every column in
// required must be present. An unnamed leading index column, as written by
// dataframe exports, is dropped.
func ReadCSV(path string, required ...string) (*Dataset, error) {
	header, rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	for _, col := range append([]string{ColArticleTitle, ColPostText}, required...) {
		if !slices.Contains(header, col) {
			return nil, &MissingColumnError{Path: path, Column: col}
		}
	}

	ds := &Dataset{}
	for _, col := range header {
		if col != "" {
			ds.Columns = append(ds.Columns, col)
		}
	}
	for _, row := range rows {
		var rec Record
		for i, col := range header {
			if col == "" || i >= len(row) {
				continue
			}
			rec.set(col, row[i])
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds, nil
}

// WriteCSV writes ds with a header row in ds.Columns order.
func WriteCSV(path string, ds *Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "dataset: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ds.Columns); err != nil {
		return eris.Wrapf(err, "dataset: write %s", path)
	}
	row := make([]string, len(ds.Columns))
	for _, rec := range ds.Records {
		for i, col := range ds.Columns {
			row[i] = rec.Get(col)
		}
		if err := w.Write(row); err != nil {
			return eris.Wrapf(err, "dataset: write %s", path)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrapf(err, "dataset: flush %s", path)
	}
	return f.Close()
}

// readRows returns the header and data rows of a CSV file, tolerating a
// leading byte-order mark and ragged rows.
func readRows(path string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()

	r := csv.NewReader(stripBOM(f))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, eris.Errorf("dataset: %s is empty", path)
	}
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: read header of %s", path)
	}

	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: read %s", path)
	}
	return header, rows, nil
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		br.UnreadRune() //nolint:errcheck
	}
	return br
}

// FormatInput renders the model prompt for one article.
func FormatInput(title, body string) string {
	return "question: " + title + " context: " + body
}
