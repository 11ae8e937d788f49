package channel

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"
	"golang.org/x/net/html/charset"
)

const origin = "https://t.me"

const titleLimit = 100

type Extractor struct {
	maxPosts int
	now      func() time.Time
}

func NewExtractor(maxPosts int) *Extractor {
	return &Extractor{
		maxPosts: maxPosts,
		now:      time.Now,
	}
}

// Run parses a channel preview snapshot into channel metadata and an ordered
// post list. Parsing is lenient by contract: malformed or unexpected markup
// degrades to fewer (or zero) posts, never to an error.
func (e *Extractor) Run(data []byte, handle string) (Metadata, []Post) {
	meta := Metadata{Title: "@" + handle}

	var body io.Reader = bytes.NewReader(data)
	if decoded, err := charset.NewReader(body, "text/html"); err == nil {
		body = decoded
	} else {
		body = bytes.NewReader(data)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		slog.Debug("Unparseable channel page", "channel", handle, "error", err)
		return meta, nil
	}

	if desc := strings.TrimSpace(doc.Find(".tgme_channel_info_description").First().Text()); desc != "" {
		meta.Description = desc
	}

	posts := make([]Post, 0, e.maxPosts)
	skipped := 0

	doc.Find("div.tgme_widget_message").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(posts) >= e.maxPosts {
			return false
		}

		dataPost, ok := sel.Attr("data-post")
		if !ok {
			skipped++
			return true
		}
		parts := strings.Split(dataPost, "/")
		id := parts[len(parts)-1]
		if id == "" {
			skipped++
			return true
		}

		post := Post{
			ID:   id,
			Link: fmt.Sprintf("%s/%s/%s", origin, handle, id),
		}

		// Posts without a parseable timestamp fall back to the instant of
		// extraction. That makes this the one non-deterministic path per
		// fixed input.
		post.PublishedAt = e.now()
		if datetime, ok := sel.Find("time[datetime]").First().Attr("datetime"); ok {
			if ts, err := dateparse.ParseAny(datetime); err == nil {
				post.PublishedAt = ts
			}
		}
		post.Date = post.PublishedAt.Format(time.RFC1123Z)

		var cleaned string
		if inner, err := sel.Find("div.tgme_widget_message_text").First().Html(); err == nil {
			cleaned = cleanMessageHTML(inner)
		}

		post.Title = deriveTitle(cleaned, id)
		post.Description = deriveDescription(cleaned)

		posts = append(posts, post)
		return true
	})

	if skipped > 0 {
		slog.Debug("Skipped message containers without post identifier",
			"channel", handle, "count", skipped)
	}

	return meta, posts
}

func deriveTitle(cleaned, id string) string {
	text := plainText(cleaned)
	if text == "" {
		return "Post #" + id
	}

	runes := []rune(text)
	if len(runes) > titleLimit {
		return string(runes[:titleLimit]) + "..."
	}
	return text
}

func deriveDescription(cleaned string) string {
	if cleaned == "" {
		return "View post on Telegram"
	}
	return "<p>" + strings.ReplaceAll(cleaned, "\n", "<br/>") + "</p>"
}
