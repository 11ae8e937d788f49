package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/lysyi3m/tg-rss/app/cfg"
	"github.com/lysyi3m/tg-rss/app/channel"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(handle string, meta channel.Metadata, posts []channel.Post, selfURL string) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", "@"+handle, 4)
	g.writeElement(&buf, "link", fmt.Sprintf("https://t.me/s/%s", handle), 4)

	description := meta.Description
	if description == "" {
		description = fmt.Sprintf("Telegram channel: @%s", handle)
	}
	g.writeElement(&buf, "description", description, 4)
	g.writeElement(&buf, "language", "en", 4)

	now := time.Now().In(time.Local).Format(time.RFC1123Z)
	g.writeElement(&buf, "lastBuildDate", now, 4)
	g.writeElement(&buf, "pubDate", now, 4)

	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfURL)))
	g.writeElement(&buf, "generator", fmt.Sprintf("tg-rss/%s", cfg.GetVersion()), 4)

	for _, post := range posts {
		g.writeItem(&buf, post)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, post channel.Post) {
	buf.WriteString("    <item>\n")

	g.writeElement(buf, "title", post.Title, 6)
	g.writeElement(buf, "link", post.Link, 6)

	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(post.Link)))
	xml.EscapeText(buf, []byte(post.Link))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "pubDate", post.Date, 6)

	// The description carries sanitized inline markup; CDATA keeps the
	// allow-listed tags literal without another escaping pass.
	buf.WriteString("      <description><![CDATA[")
	buf.WriteString(post.Description)
	buf.WriteString("]]></description>\n")

	buf.WriteString("    </item>\n")
}

// RunError renders the degraded document emitted when the pipeline cannot
// produce real content. It must stay well-formed and consumable by any
// standard feed reader.
func (g *Generator) RunError(message string) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0">`)
	buf.WriteString("\n  <channel>\n")
	g.writeElement(&buf, "title", "Error", 4)
	g.writeElement(&buf, "description", message, 4)
	buf.WriteString("  </channel>\n</rss>")

	return buf.String()
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
