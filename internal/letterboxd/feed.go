// Package letterboxd imports a member's watched films from their public RSS
// feed into a new list.
package letterboxd

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"
)

var posterSelector = cascadia.MustCompile("img[src]")

// Film is one usable entry of a Letterboxd feed
type Film struct {
	TMDBID    int64
	Title     string
	Year      int
	PosterURL string
}

type rss struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

// Namespaced elements are matched on local name: letterboxd:filmTitle,
// letterboxd:filmYear and tmdb:movieId.
type rssItem struct {
	Title       string `xml:"title"`
	FilmTitle   string `xml:"filmTitle"`
	FilmYear    string `xml:"filmYear"`
	MovieID     string `xml:"movieId"`
	Description string `xml:"description"`
}

// Feed is the parsed content of a feed
type Feed struct {
	Films []Film
	// Entries is the number of <item> elements read
	Entries int
	// Skipped lists titles of entries without a TMDB movie id
	Skipped []string
}

// ParseFeed reads a Letterboxd RSS document. Entries without a TMDB id are
// skipped and rewatches of the same film collapse to the first occurrence.
func ParseFeed(r io.Reader) (*Feed, error) {
	var doc rss
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	feed := &Feed{Entries: len(doc.Channel.Items)}
	seen := make(map[int64]bool)
	for _, it := range doc.Channel.Items {
		title := strings.TrimSpace(it.FilmTitle)
		if title == "" {
			title = strings.TrimSpace(it.Title)
		}

		id, err := strconv.ParseInt(strings.TrimSpace(it.MovieID), 10, 64)
		if err != nil || id <= 0 {
			feed.Skipped = append(feed.Skipped, title)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		year, _ := strconv.Atoi(strings.TrimSpace(it.FilmYear))
		feed.Films = append(feed.Films, Film{
			TMDBID:    id,
			Title:     title,
			Year:      year,
			PosterURL: posterFromDescription(it.Description),
		})
	}
	return feed, nil
}

// posterFromDescription returns the src of the first image in an item's HTML
// description, or "" if there is none.
func posterFromDescription(desc string) string {
	if strings.TrimSpace(desc) == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(desc))
	if err != nil {
		return ""
	}
	img := posterSelector.MatchFirst(doc)
	if img == nil {
		return ""
	}
	for _, attr := range img.Attr {
		if attr.Key == "src" {
			return strings.TrimSpace(attr.Val)
		}
	}
	return ""
}
