package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/tg-rss/app/cfg"
	"github.com/lysyi3m/tg-rss/app/channel"
	"github.com/lysyi3m/tg-rss/app/feed"
)

const upstreamBaseURL = "https://t.me"

const invalidHandleMessage = "Invalid channel name format. Must be 5-32 characters (letters, numbers, underscores only)."

func NewHandler() *Handler {
	c := cfg.Get()
	return &Handler{
		generator:    feed.NewGenerator(),
		upstreamURL:  upstreamBaseURL,
		userAgent:    c.UserAgent,
		maxPosts:     c.MaxPosts,
		fetchTimeout: time.Duration(c.FetchTimeout) * time.Second,
	}
}

// GetRoot dispatches on query parameters: ?feed= serves the RSS document,
// ?channel= resolves free-form input to a feed URL, anything else renders the
// form page.
func (h *Handler) GetRoot(c *gin.Context) {
	if raw := c.Query("feed"); raw != "" {
		h.serveFeed(c, raw)
		return
	}

	if raw := strings.TrimSpace(c.Query("channel")); raw != "" {
		h.resolveChannel(c, raw)
		return
	}

	c.HTML(http.StatusOK, "index.html", pageState("", "", ""))
}

// pageState carries the server-rendered form state: the echoed input, the
// generated feed URL on success, or the validation error.
func pageState(channelName, rssURL, errMsg string) gin.H {
	return gin.H{"Channel": channelName, "RSSURL": rssURL, "Error": errMsg}
}

func (h *Handler) serveFeed(c *gin.Context, raw string) {
	c.Header("Content-Type", "application/xml; charset=utf-8")

	handle, err := channel.SanitizeForFeed(raw)
	if err != nil {
		slog.Error("Invalid feed handle", "input", raw, "error", err)
		c.String(http.StatusBadRequest, h.generator.RunError("Invalid channel name"))
		return
	}

	// Fetcher and extractor are constructed per request: the upstream markup
	// is untrusted, and request isolation is the safety boundary.
	fetcher := channel.NewFetcher(h.upstreamURL, h.userAgent, h.fetchTimeout)
	data, err := fetcher.Run(c.Request.Context(), handle)
	if err != nil {
		slog.Error("Upstream fetch failed", "channel", handle, "error", err)
		c.String(http.StatusOK, h.generator.RunError("Could not fetch channel data. Channel may not exist or is private."))
		return
	}

	extractor := channel.NewExtractor(h.maxPosts)
	meta, posts := extractor.Run(data, handle)

	rss, err := h.generator.Run(handle, meta, posts, h.feedURL(handle))
	if err != nil {
		slog.Error("RSS generation error", "channel", handle, "error", err)
		c.String(http.StatusOK, h.generator.RunError("Feed generation failed"))
		return
	}

	slog.Info("Feed served", "channel", handle, "posts", len(posts))
	c.String(http.StatusOK, rss)
}

func (h *Handler) resolveChannel(c *gin.Context, raw string) {
	// Programmatic callers mark themselves the same way the form page's
	// fetch() does
	ajax := strings.EqualFold(c.GetHeader("X-Requested-With"), "XMLHttpRequest")

	handle, err := channel.Normalize(raw)
	if err != nil {
		slog.Debug("Channel input rejected", "input", raw, "error", err)
		if ajax {
			c.JSON(http.StatusOK, gin.H{"success": false, "error": invalidHandleMessage})
			return
		}
		c.HTML(http.StatusOK, "index.html", pageState(raw, "", invalidHandleMessage))
		return
	}

	rssURL := h.feedURL(handle)
	if ajax {
		c.JSON(http.StatusOK, gin.H{"success": true, "rss_url": rssURL, "channel_name": handle})
		return
	}
	c.HTML(http.StatusOK, "index.html", pageState(handle, rssURL, ""))
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"version":   cfg.GetVersion(),
	})
}

func (h *Handler) feedURL(handle string) string {
	base := cfg.Get().BaseUrl
	if base == "" {
		base = fmt.Sprintf("http://localhost:%s", cfg.Get().Port)
	}
	return fmt.Sprintf("%s/?feed=%s", base, url.QueryEscape(handle))
}
