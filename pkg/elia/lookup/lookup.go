// Package lookup provides best-effort web context via DuckDuckGo's
// HTML endpoint. No API key needed. Failures are the caller's to
// swallow; this package just reports them.
package lookup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Client queries DuckDuckGo HTML search.
type Client struct {
	httpClient *http.Client
	maxResults int
	logger     *slog.Logger
}

// New creates a lookup client returning at most maxResults results.
func New(maxResults int, logger *slog.Logger) *Client {
	if maxResults <= 0 {
		maxResults = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		maxResults: maxResults,
		logger:     logger.With("component", "lookup"),
	}
}

// Search queries DuckDuckGo and returns formatted results as a single
// text fragment suitable for prompt injection.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	searchURL := fmt.Sprintf("https://html.duckduckgo.com/html/?q=%s",
		url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", "Elia/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("search returned %d", resp.StatusCode)
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 100*1024))
	results := ExtractResults(string(body))
	if len(results) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for i, r := range results {
		if i >= c.maxResults {
			break
		}
		sb.WriteString(fmt.Sprintf("- %s: %s\n", r.Title, r.Snippet))
	}
	return sb.String(), nil
}

// Result holds a single search result.
type Result struct {
	Title   string
	URL     string
	Snippet string
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// ExtractResults parses DuckDuckGo HTML for search results.
func ExtractResults(html string) []Result {
	var results []Result

	// Find result blocks: <a class="result__a" href="...">Title</a>
	parts := strings.Split(html, "result__a")
	for _, part := range parts[1:] {
		var r Result

		if hrefIdx := strings.Index(part, `href="`); hrefIdx >= 0 {
			urlStart := hrefIdx + 6
			if urlEnd := strings.Index(part[urlStart:], `"`); urlEnd > 0 {
				r.URL = part[urlStart : urlStart+urlEnd]
				// DuckDuckGo wraps URLs in a redirect parameter.
				if udIdx := strings.Index(r.URL, "uddg="); udIdx >= 0 {
					r.URL = r.URL[udIdx+5:]
					if ampIdx := strings.Index(r.URL, "&"); ampIdx >= 0 {
						r.URL = r.URL[:ampIdx]
					}
				}
			}
		}

		if gtIdx := strings.Index(part, ">"); gtIdx >= 0 {
			if closeIdx := strings.Index(part[gtIdx:], "</a>"); closeIdx > 0 {
				r.Title = stripTags(part[gtIdx+1 : gtIdx+closeIdx])
			}
		}

		if snipIdx := strings.Index(part, "result__snippet"); snipIdx >= 0 {
			if snipStart := strings.Index(part[snipIdx:], ">"); snipStart >= 0 {
				if snipEnd := strings.Index(part[snipIdx+snipStart:], "</"); snipEnd > 0 {
					r.Snippet = stripTags(part[snipIdx+snipStart+1 : snipIdx+snipStart+snipEnd])
				}
			}
		}

		if r.Title != "" {
			results = append(results, r)
		}
	}

	return results
}

// stripTags removes HTML tags and collapses whitespace.
func stripTags(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}
