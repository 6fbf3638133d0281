package cms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jaytaylor/html2text"
	"github.com/vallemsec/spectra-web/internal/shared/constants"
	sharedErrors "github.com/vallemsec/spectra-web/internal/shared/errors"
)

// PostsPath is the WordPress REST route listing posts.
const PostsPath = "/wp-json/wp/v2/posts"

// Post is a blog post prepared for display.
type Post struct {
	Title string    `json:"title"`
	Link  string    `json:"link"`
	Image string    `json:"image,omitempty"`
	Date  time.Time `json:"date"`
}

// DisplayDate formats the publish date as D-M-YYYY.
func (p Post) DisplayDate() string {
	if p.Date.IsZero() {
		return ""
	}
	return fmt.Sprintf("%d-%d-%d", p.Date.Day(), int(p.Date.Month()), p.Date.Year())
}

// wpPost mirrors the fields we read from the WordPress API.
type wpPost struct {
	Date  string `json:"date"`
	Link  string `json:"link"`
	Image string `json:"jetpack_featured_media_url"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
}

// wordpressDate is the layout of the "date" field (site-local, no zone).
const wordpressDate = "2006-01-02T15:04:05"

// Client reads posts from a WordPress site.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a feed client for the site at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = constants.DefaultRequestTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Latest returns up to limit posts in feed order.
func (c *Client) Latest(ctx context.Context, limit int) ([]Post, error) {
	if c == nil || c.baseURL == "" || limit <= 0 {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+PostsPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, constants.MaxResponseBytes))
		return nil, fmt.Errorf("%w: status %d", sharedErrors.ErrFeedUnavailable, resp.StatusCode)
	}

	var raw []wpPost
	if err := json.NewDecoder(io.LimitReader(resp.Body, constants.MaxResponseBytes)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrMalformedFeed, err)
	}

	if len(raw) > limit {
		raw = raw[:limit]
	}
	posts := make([]Post, 0, len(raw))
	for _, item := range raw {
		posts = append(posts, convert(item))
	}
	return posts, nil
}

func convert(item wpPost) Post {
	post := Post{
		Title: plainTitle(item.Title.Rendered),
		Link:  item.Link,
		Image: item.Image,
	}
	if ts, err := time.Parse(wordpressDate, item.Date); err == nil {
		post.Date = ts
	}
	return post
}

// plainTitle turns WordPress' rendered title (entities, inline tags) into text.
func plainTitle(rendered string) string {
	text, err := html2text.FromString(rendered, html2text.Options{OmitLinks: true})
	if err != nil {
		return strings.TrimSpace(rendered)
	}
	return strings.TrimSpace(text)
}
