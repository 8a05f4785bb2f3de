package dataset

import (
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Stage transforms a dataset without mutating its input.
type Stage func(Dataset) Dataset

// markupRun removes everything from the first '<' to the last '>' in a title.
var markupRun = regexp.MustCompile(`<.*>`)

type Options struct {
	MaxPostWords         int
	TitleOverlapFactor   float64
	FailedSentinel       string
	BadTitlePattern      string
	BadPostPattern       string
	PostStringsToRemove  []string
	NewspaperNames       []string
	TitleStringsToRemove []string
}

// FilterByLength keeps posts with between 1 and maxWords space-separated
// tokens. An empty post has no tokens.
func FilterByLength(maxWords int) Stage {
	return keep(func(r Record) bool {
		n := wordCount(r.PostText)
		return n > 0 && n <= maxWords
	})
}

// FilterInvalidTitles drops records whose article title is empty, the
// failure sentinel, the literal "None", or matches badTitle.
func FilterInvalidTitles(failed string, badTitle *regexp.Regexp) Stage {
	return keep(func(r Record) bool {
		t := r.ArticleTitle
		if t == "" || t == failed || t == "None" {
			return false
		}
		return badTitle == nil || !badTitle.MatchString(t)
	})
}

// FilterBadPosts drops posts matching badPost.
func FilterBadPosts(badPost *regexp.Regexp) Stage {
	return keep(func(r Record) bool {
		return badPost == nil || !badPost.MatchString(r.PostText)
	})
}

// FilterTitleOverlap drops posts that mostly repeat the article title: the
// post is a substring of the title, or more than factor of the post's tokens
// (by count of distinct shared tokens) also appear in the title.
func FilterTitleOverlap(factor float64) Stage {
	return keep(func(r Record) bool {
		if strings.Contains(r.ArticleTitle, r.PostText) {
			return false
		}
		postTokens := strings.Split(r.PostText, " ")
		titleTokens := make(map[string]struct{})
		for _, tok := range strings.Split(r.ArticleTitle, " ") {
			titleTokens[tok] = struct{}{}
		}
		shared := make(map[string]struct{})
		for _, tok := range postTokens {
			if _, ok := titleTokens[tok]; ok {
				shared[tok] = struct{}{}
			}
		}
		return float64(len(shared)) <= factor*float64(len(postTokens))
	})
}

// CleanPostText removes every occurrence of each string from post texts.
func CleanPostText(remove []string) Stage {
	return mapRecords(func(r Record) Record {
		for _, s := range remove {
			r.PostText = strings.ReplaceAll(r.PostText, s, "")
		}
		return r
	})
}

// CleanTitles removes newspaper names, markup runs and stray characters from
// article titles, in that order, then trims whitespace.
func CleanTitles(newspaperNames, remove []string) Stage {
	return mapRecords(func(r Record) Record {
		t := r.ArticleTitle
		for _, name := range newspaperNames {
			t = strings.ReplaceAll(t, name, "")
		}
		t = markupRun.ReplaceAllString(t, "")
		for _, s := range remove {
			t = strings.ReplaceAll(t, s, "")
		}
		r.ArticleTitle = strings.TrimSpace(t)
		return r
	})
}

// Filters returns the row-removing stages in application order.
func Filters(opts Options) ([]Stage, error) {
	badTitle, err := compileOptional(opts.BadTitlePattern)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: bad title pattern")
	}
	badPost, err := compileOptional(opts.BadPostPattern)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: bad post pattern")
	}
	return []Stage{
		FilterByLength(opts.MaxPostWords),
		FilterInvalidTitles(opts.FailedSentinel, badTitle),
		FilterBadPosts(badPost),
		FilterTitleOverlap(opts.TitleOverlapFactor),
	}, nil
}

// ApplyFilters runs the filter stages in order and logs how many rows each
// one dropped.
func ApplyFilters(ds Dataset, opts Options) (Dataset, error) {
	stages, err := Filters(opts)
	if err != nil {
		return Dataset{}, err
	}
	names := []string{"length", "invalid_title", "bad_post", "title_overlap"}
	for i, stage := range stages {
		before := len(ds.Records)
		ds = stage(ds)
		zap.L().Debug("filter stage applied",
			zap.String("stage", names[i]),
			zap.Int("before", before),
			zap.Int("after", len(ds.Records)),
		)
	}
	return ds, nil
}

// ApplyCleaning cleans post texts, then article titles.
func ApplyCleaning(ds Dataset, opts Options) Dataset {
	ds = CleanPostText(opts.PostStringsToRemove)(ds)
	return CleanTitles(opts.NewspaperNames, opts.TitleStringsToRemove)(ds)
}

func wordCount(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Split(s, " "))
}

func compileOptional(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	return regexp.Compile(pattern)
}

func keep(pred func(Record) bool) Stage {
	return func(ds Dataset) Dataset {
		out := Dataset{Columns: ds.Columns, Records: make([]Record, 0, len(ds.Records))}
		for _, r := range ds.Records {
			if pred(r) {
				out.Records = append(out.Records, r)
			}
		}
		return out
	}
}

func mapRecords(fn func(Record) Record) Stage {
	return func(ds Dataset) Dataset {
		out := Dataset{Columns: ds.Columns, Records: make([]Record, len(ds.Records))}
		for i, r := range ds.Records {
			out.Records[i] = fn(r)
		}
		return out
	}
}
