package collector

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Post is one scraped social-media post. Fields other than the link and the
// bait text are kept raw in Extra.
type Post struct {
	ID      string
	ExtLink string
	Bait    string
	Extra   map[string]json.RawMessage
}

// LoadPosts reads every *.json file in dir in lexical order. Each file maps
// post IDs to post objects. A post ID seen again in a later file replaces the
// earlier value but keeps its original position.
func LoadPosts(dir string) ([]Post, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, eris.Wrapf(err, "glob posts in %s", dir)
	}

	var posts []Post
	index := make(map[string]int)
	for _, path := range paths {
		filePosts, err := readPostsFile(path)
		if err != nil {
			return nil, err
		}
		for _, p := range filePosts {
			if i, ok := index[p.ID]; ok {
				posts[i] = p
				continue
			}
			index[p.ID] = len(posts)
			posts = append(posts, p)
		}
	}
	return posts, nil
}

// LoadLinks returns the external links of the first n posts in dir. Posts
// without a link are skipped; n <= 0 returns all links.
func LoadLinks(dir string, n int) ([]string, error) {
	posts, err := LoadPosts(dir)
	if err != nil {
		return nil, err
	}

	var links []string
	for _, p := range posts {
		if p.ExtLink == "" {
			continue
		}
		links = append(links, p.ExtLink)
		if n > 0 && len(links) == n {
			break
		}
	}
	return links, nil
}

func readPostsFile(path string) ([]Post, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	tok, err := dec.Token()
	if err != nil {
		return nil, eris.Wrapf(err, "decode %s", path)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, eris.Errorf("decode %s: expected a JSON object of posts", path)
	}

	var posts []Post
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, eris.Wrapf(err, "decode %s", path)
		}
		id, _ := tok.(string)

		var fields map[string]json.RawMessage
		if err := dec.Decode(&fields); err != nil {
			return nil, eris.Wrapf(err, "decode post %s in %s", id, path)
		}

		p := Post{ID: id, Extra: make(map[string]json.RawMessage)}
		for k, v := range fields {
			switch k {
			case "ext_link":
				if err := json.Unmarshal(v, &p.ExtLink); err != nil {
					return nil, eris.Wrapf(err, "post %s in %s: ext_link", id, path)
				}
			case "bait":
				if err := json.Unmarshal(v, &p.Bait); err != nil {
					return nil, eris.Wrapf(err, "post %s in %s: bait", id, path)
				}
			default:
				p.Extra[k] = v
			}
		}
		posts = append(posts, p)
	}

	if _, err := dec.Token(); err != nil {
		return nil, eris.Wrapf(err, "decode %s", path)
	}
	return posts, nil
}
