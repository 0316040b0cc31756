package registry

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"ollamatui/internal/models"
)

const libraryPrefix = "/library/"

// parseHTML collects every anchor pointing at a library page. Anchors that
// link deeper than the model page (tags, blobs) are skipped.
func parseHTML(body []byte, origin string) ([]models.SearchResult, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var results []models.SearchResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			if name, ok := libraryName(attr(n, "href")); ok {
				results = append(results, models.SearchResult{
					Name:        name,
					Description: firstParagraph(n),
					Tags:        spanTags(n),
					URL:         origin + libraryPrefix + name,
				})
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func libraryName(href string) (string, bool) {
	if i := strings.Index(href, "://"); i >= 0 {
		rest := href[i+3:]
		slash := strings.IndexByte(rest, '/')
		if slash < 0 {
			return "", false
		}
		href = rest[slash:]
	}
	if !strings.HasPrefix(href, libraryPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(href, libraryPrefix)
	if name == "" || strings.ContainsAny(name, "/?#") {
		return "", false
	}
	return name, true
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func firstParagraph(n *html.Node) string {
	var found *html.Node
	var find func(*html.Node)
	find = func(n *html.Node) {
		for c := n.FirstChild; c != nil && found == nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.P {
				found = c
				return
			}
			find(c)
		}
	}
	find(n)
	if found == nil {
		return ""
	}
	return strings.Join(strings.Fields(text(found)), " ")
}

func spanTags(n *html.Node) []string {
	var tags []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Span &&
				(hasAttr(c, "x-test-capability") || hasAttr(c, "x-test-size")) {
				if t := strings.TrimSpace(text(c)); t != "" {
					tags = append(tags, t)
				}
				continue
			}
			walk(c)
		}
	}
	walk(n)
	return tags
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func parseJSON(body []byte, cfg Config) ([]models.SearchResult, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("response is not valid JSON")
	}

	list := gjson.ParseBytes(body)
	if cfg.ResultsPath != "" {
		list = list.Get(cfg.ResultsPath)
	}
	if !list.IsArray() {
		return nil, fmt.Errorf("no result array at %q", cfg.ResultsPath)
	}

	var results []models.SearchResult
	list.ForEach(func(_, item gjson.Result) bool {
		name := strings.TrimSpace(item.Get(cfg.NameField).String())
		if name == "" {
			return true
		}
		r := models.SearchResult{Name: name}
		if cfg.DescriptionField != "" {
			r.Description = strings.TrimSpace(item.Get(cfg.DescriptionField).String())
		}
		if cfg.TagsField != "" {
			for _, t := range item.Get(cfg.TagsField).Array() {
				r.Tags = append(r.Tags, t.String())
			}
		}
		if cfg.URLField != "" {
			r.URL = item.Get(cfg.URLField).String()
		}
		results = append(results, r)
		return true
	})
	return results, nil
}

// rank keeps results whose name contains query and orders them by fuzzy
// match score, best first.
func rank(results []models.SearchResult, query string) []models.SearchResult {
	needle := strings.ToLower(query)

	var kept []models.SearchResult
	var names []string
	for _, r := range results {
		lower := strings.ToLower(r.Name)
		if strings.Contains(lower, needle) {
			kept = append(kept, r)
			names = append(names, lower)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	matches := fuzzy.Find(needle, names)
	ranked := make([]models.SearchResult, 0, len(kept))
	used := make([]bool, len(kept))
	for _, m := range matches {
		ranked = append(ranked, kept[m.Index])
		used[m.Index] = true
	}
	for i, r := range kept {
		if !used[i] {
			ranked = append(ranked, r)
		}
	}
	return ranked
}
