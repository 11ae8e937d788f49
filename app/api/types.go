package api

import (
	"time"

	"github.com/lysyi3m/tg-rss/app/channel"
	"github.com/lysyi3m/tg-rss/app/feed"
)

type GeneratorInterface interface {
	Run(handle string, meta channel.Metadata, posts []channel.Post, selfURL string) (string, error)
	RunError(message string) string
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	generator GeneratorInterface

	upstreamURL  string
	userAgent    string
	maxPosts     int
	fetchTimeout time.Duration
}
