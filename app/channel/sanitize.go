package channel

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// messagePolicy keeps the inline tags Telegram uses for text formatting and
// strips everything else. Plain-text segments come back entity-escaped, so
// the result can be embedded in the feed without another escaping pass.
var messagePolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowAttrs("href").OnElements("a")
	p.RequireParseableURLs(true)
	p.AllowURLSchemes("http", "https")
	p.AllowElements("b", "i", "strong", "em", "u", "s")
	return p
}()

var titlePolicy = bluemonday.StrictPolicy()

var lineBreakReplacer = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n")

var whitespaceRe = regexp.MustCompile(`\s+`)

// cleanMessageHTML normalizes every <br> variant to a newline, strips all
// markup except the inline allow-list, and trims surrounding whitespace.
func cleanMessageHTML(inner string) string {
	text := lineBreakReplacer.Replace(inner)
	text = messagePolicy.Sanitize(text)
	return strings.TrimSpace(text)
}

// plainText strips every remaining tag from cleaned message HTML and decodes
// entities, yielding the true character sequence. Whitespace runs collapse to
// single spaces. This is the one decode direction; xml.EscapeText at
// serialization is the one re-escape direction.
func plainText(cleaned string) string {
	text := titlePolicy.Sanitize(cleaned)
	text = html.UnescapeString(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
