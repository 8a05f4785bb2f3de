package dataset

import (
	"slices"

	"github.com/rotisserie/eris"
)

// Article is one row of the scraped articles file.
type Article struct {
	Title string
	Body  string
	Link  string
}

// Post is the part of a social-media post the merge needs.
type Post struct {
	Link string
	Text string
}

// ReadArticlesCSV loads the Title, Body and Link columns written by scrape.
func ReadArticlesCSV(path string) ([]Article, error) {
	header, rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int, 3)
	for _, col := range []string{"Title", "Body", "Link"} {
		i := slices.Index(header, col)
		if i < 0 {
			return nil, &MissingColumnError{Path: path, Column: col}
		}
		idx[col] = i
	}

	articles := make([]Article, 0, len(rows))
	for n, row := range rows {
		if len(row) < len(header) {
			return nil, eris.Errorf("dataset: %s row %d has %d fields, want %d", path, n+2, len(row), len(header))
		}
		articles = append(articles, Article{
			Title: row[idx["Title"]],
			Body:  row[idx["Body"]],
			Link:  row[idx["Link"]],
		})
	}
	return articles, nil
}

// Merge pairs each post with the article scraped from its link. Posts whose
// article is missing get failedTitle as the article title so the
// invalid-title filter removes them later. Post order is kept.
func Merge(posts []Post, articles []Article, failedTitle string) *Dataset {
	byLink := make(map[string]Article, len(articles))
	for _, a := range articles {
		if _, ok := byLink[a.Link]; !ok {
			byLink[a.Link] = a
		}
	}

	ds := &Dataset{Columns: []string{ColArticleTitle, ColPostText, ColBody, ColLink}}
	for _, p := range posts {
		rec := Record{PostText: p.Text, Link: p.Link, ArticleTitle: failedTitle}
		if a, ok := byLink[p.Link]; ok {
			rec.ArticleTitle = a.Title
			rec.Body = a.Body
		}
		ds.Records = append(ds.Records, rec)
	}
	return ds
}
