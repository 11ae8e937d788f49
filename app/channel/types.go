package channel

import (
	"time"
)

// Channel extraction types. Every value is request-scoped: built during one
// fetch/extract cycle and discarded with the response.

type Metadata struct {
	Title       string
	Description string
}

type Post struct {
	ID          string
	Link        string
	PublishedAt time.Time
	Date        string // PublishedAt rendered as RFC1123Z for the feed
	Title       string
	Description string
}
