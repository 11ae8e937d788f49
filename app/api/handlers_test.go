package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/tg-rss/app/cfg"
	"github.com/lysyi3m/tg-rss/app/feed"
)

const upstreamPage = `<html><body>
<div class="tgme_channel_info_description">Channel bio</div>
<div class="tgme_widget_message" data-post="durov/101">
  <div class="tgme_widget_message_text">Hello <b>world</b></div>
  <time datetime="2024-05-01T10:00:00+00:00"></time>
</div>
</body></html>`

func setupTestConfig() {
	// Clear os.Args to prevent config parsing from failing on test flags
	oldArgs := os.Args
	os.Args = []string{"test"}
	defer func() { os.Args = oldArgs }()

	if os.Getenv("PORT") == "" {
		os.Setenv("PORT", "8080")
	}

	cfg.Load()
}

func newTestHandler(upstreamURL string, timeout time.Duration) *Handler {
	return &Handler{
		generator:    feed.NewGenerator(),
		upstreamURL:  upstreamURL,
		userAgent:    "test-agent",
		maxPosts:     50,
		fetchTimeout: timeout,
	}
}

func performRequest(t *testing.T, handler *Handler, target string, ajax bool) *httptest.ResponseRecorder {
	t.Helper()

	server := NewServer(handler)
	req := httptest.NewRequest("GET", target, nil)
	if ajax {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	return w
}

func TestServeFeed(t *testing.T) {
	setupTestConfig()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(upstreamPage))
	}))
	defer upstream.Close()

	handler := newTestHandler(upstream.URL, 5*time.Second)
	w := performRequest(t, handler, "/?feed=durov", false)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/xml") {
		t.Errorf("Expected application/xml content type, got %q", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "<title>@durov</title>") {
		t.Error("Feed should contain the channel title")
	}
	if !strings.Contains(body, "<description>Channel bio</description>") {
		t.Error("Feed should contain the scraped channel description")
	}
	if !strings.Contains(body, `<guid isPermaLink="true">https://t.me/durov/101</guid>`) {
		t.Error("Feed should contain the post permalink GUID")
	}

	parsed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		t.Fatalf("Served feed should parse: %v", err)
	}
	if len(parsed.Items) != 1 {
		t.Errorf("Expected 1 item, got %d", len(parsed.Items))
	}
}

func TestServeFeedInvalidHandle(t *testing.T) {
	setupTestConfig()

	handler := newTestHandler("http://127.0.0.1:1", time.Second)
	w := performRequest(t, handler, "/?feed=ab!!", false)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/xml") {
		t.Errorf("Expected application/xml content type, got %q", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "<title>Error</title>") {
		t.Error("Response should be the minimal error document")
	}
	if _, err := gofeed.NewParser().ParseString(body); err != nil {
		t.Errorf("Error document should parse as a feed: %v", err)
	}
}

func TestServeFeedUpstreamTimeout(t *testing.T) {
	setupTestConfig()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer upstream.Close()

	handler := newTestHandler(upstream.URL, 20*time.Millisecond)
	w := performRequest(t, handler, "/?feed=durov", false)

	// The degraded document is served with 200 so feed readers keep polling
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	if !strings.Contains(body, "<title>Error</title>") {
		t.Error("Timeout should yield the degraded document")
	}
	if _, err := gofeed.NewParser().ParseString(body); err != nil {
		t.Errorf("Degraded document should parse as a feed: %v", err)
	}
}

func TestServeFeedUpstreamError(t *testing.T) {
	setupTestConfig()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	handler := newTestHandler(upstream.URL, time.Second)
	w := performRequest(t, handler, "/?feed=durov", false)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "<title>Error</title>") {
		t.Error("Upstream error should yield the degraded document")
	}
}

func TestResolveChannelJSON(t *testing.T) {
	setupTestConfig()

	handler := newTestHandler("http://127.0.0.1:1", time.Second)
	w := performRequest(t, handler, "/?channel=%40durov", true)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var payload struct {
		Success     bool   `json:"success"`
		RSSURL      string `json:"rss_url"`
		ChannelName string `json:"channel_name"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Expected JSON payload: %v", err)
	}

	if !payload.Success {
		t.Fatalf("Expected success, got error %q", payload.Error)
	}
	if payload.ChannelName != "durov" {
		t.Errorf("Expected channel name 'durov', got %q", payload.ChannelName)
	}
	if !strings.Contains(payload.RSSURL, "?feed=durov") {
		t.Errorf("Expected feed URL, got %q", payload.RSSURL)
	}
}

func TestResolveChannelJSONInvalid(t *testing.T) {
	setupTestConfig()

	handler := newTestHandler("http://127.0.0.1:1", time.Second)
	w := performRequest(t, handler, "/?channel=ab", true)

	var payload struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Expected JSON payload: %v", err)
	}

	if payload.Success {
		t.Error("Expected failure for a 2-character handle")
	}
	if payload.Error == "" {
		t.Error("Expected an error message")
	}
}

func TestResolveChannelPage(t *testing.T) {
	setupTestConfig()

	handler := newTestHandler("http://127.0.0.1:1", time.Second)
	w := performRequest(t, handler, "/?channel=durov", false)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	body := w.Body.String()
	if !strings.Contains(body, "?feed=durov") {
		t.Error("Page should embed the generated feed URL")
	}
	if !strings.Contains(body, `name="channel"`) {
		t.Error("Page should contain the input form")
	}
}

func TestResolveChannelPageInvalid(t *testing.T) {
	setupTestConfig()

	handler := newTestHandler("http://127.0.0.1:1", time.Second)
	w := performRequest(t, handler, "/?channel=my-channel", false)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid channel name format") {
		t.Error("Page should show the validation error")
	}
}

func TestFormPage(t *testing.T) {
	setupTestConfig()

	handler := newTestHandler("http://127.0.0.1:1", time.Second)
	w := performRequest(t, handler, "/", false)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `name="channel"`) {
		t.Error("Root without parameters should render the form page")
	}
}

func TestGetHealth(t *testing.T) {
	setupTestConfig()

	handler := newTestHandler("http://127.0.0.1:1", time.Second)
	w := performRequest(t, handler, "/health", false)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("Expected JSON payload: %v", err)
	}
	if payload["timestamp"] == "" {
		t.Error("Health payload should contain a timestamp")
	}
}
