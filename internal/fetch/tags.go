package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Tag is one row of an ollama.com library tags page.
type Tag struct {
	Name     string `json:"model"`
	FileSize string `json:"file_size"`
}

// tagRowClass is the exact class of a tag row; tagSizeClass lists the tokens of its size line.
const tagRowClass = "flex px-4 py-3"

var tagSizeClass = []string{"flex", "items-baseline", "space-x-1", "text-[13px]", "text-neutral-500"}

var tagSizeRe = regexp.MustCompile(`([\d.]+) ?([KMGT]B)`)

// FetchTags downloads a tags page and returns its rows.
func FetchTags(ctx context.Context, url string) ([]Tag, error) {
	body, err := get(ctx, url)
	if err != nil {
		return nil, err
	}
	tags, err := ParseTags(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	return tags, nil
}

// ParseTags extracts tag names and file sizes from a tags page. Rows without a link are skipped;
// rows without a recognizable size keep an empty FileSize.
func ParseTags(r io.Reader) ([]Tag, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	var tags []Tag
	walk(doc, func(n *html.Node) bool {
		if !isElement(n, "div") || classAttr(n) != tagRowClass {
			return true
		}
		link := find(n, func(c *html.Node) bool { return isElement(c, "a") })
		if link == nil {
			return false
		}
		tag := Tag{Name: text(link, "")}
		if size := find(n, func(c *html.Node) bool { return isElement(c, "div") && hasClasses(c, tagSizeClass) }); size != nil {
			if m := tagSizeRe.FindStringSubmatch(text(size, " ")); m != nil {
				tag.FileSize = m[1] + " " + m[2]
			}
		}
		if tag.Name != "" {
			tags = append(tags, tag)
		}
		return false
	})
	return tags, nil
}

// walk visits n depth-first; fn returns false to skip a node's children.
func walk(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// find returns the first descendant of n matching match.
func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if f := find(c, match); f != nil {
			return f
		}
	}
	return nil
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

// classAttr returns n's class attribute with whitespace normalized.
func classAttr(n *html.Node) string {
	for _, a := range n.Attr {
		if a.Key == "class" {
			return strings.Join(strings.Fields(a.Val), " ")
		}
	}
	return ""
}

func hasClasses(n *html.Node, want []string) bool {
	have := make(map[string]bool)
	for _, c := range strings.Fields(classAttr(n)) {
		have[c] = true
	}
	for _, w := range want {
		if !have[w] {
			return false
		}
	}
	return true
}

// text joins the trimmed, non-empty text nodes under n with sep.
func text(n *html.Node, sep string) string {
	var parts []string
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			if s := strings.TrimSpace(c.Data); s != "" {
				parts = append(parts, s)
			}
		}
		return true
	})
	return strings.Join(parts, sep)
}
