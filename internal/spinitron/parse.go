package spinitron

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
	"golang.org/x/net/html"
)

// ParsePlaylist extracts the spins of a playlist page. Rows without an artist or a song
// are skipped; a page without spins yields an empty slice.
func ParsePlaylist(r io.Reader) ([]models.Track, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%w: playlist page: %v", shared.ErrParse, err)
	}

	tracks := []models.Track{}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if isElement(n, "tr") && hasClass(n, "spin-item") {
			if t, ok := parseSpin(n); ok {
				tracks = append(tracks, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return tracks, nil
}

func parseSpin(row *html.Node) (models.Track, bool) {
	t := models.Track{
		Artist: textOf(find(row, "span", "artist")),
		Song:   textOf(find(row, "span", "song")),
		Album:  textOf(find(row, "span", "release")),
		Label:  textOf(find(row, "span", "label")),
	}
	if cell := find(row, "td", "spin-time"); cell != nil {
		t.Time = textOf(find(cell, "a", ""))
	}
	return t, t.Artist != "" && t.Song != ""
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" && slices.Contains(strings.Fields(a.Val), class) {
			return true
		}
	}
	return false
}

// find returns the first descendant of n with the tag and, when non-empty, the class.
func find(n *html.Node, tag, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isElement(c, tag) && (class == "" || hasClass(c, class)) {
			return c
		}
		if found := find(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return strings.TrimSpace(sb.String())
}
