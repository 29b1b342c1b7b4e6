package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// WebSearchTool searches DuckDuckGo's HTML endpoint and extracts result
// titles, URLs, and snippets.
type WebSearchTool struct {
	client     *http.Client
	region     string
	maxResults int
}

type WebSearchOptions struct {
	Region     string
	MaxResults int
}

func NewWebSearchTool(opts WebSearchOptions) *WebSearchTool {
	maxResults := 5
	if opts.MaxResults > 0 {
		maxResults = opts.MaxResults
	}
	return &WebSearchTool{
		client:     &http.Client{Timeout: 10 * time.Second},
		region:     opts.Region,
		maxResults: maxResults,
	}
}

func (t *WebSearchTool) Name() string {
	return "web_search"
}

func (t *WebSearchTool) Description() string {
	return "Search the web for current information. Returns titles, URLs, and snippets from search results."
}

func (t *WebSearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search query",
			},
			"count": map[string]interface{}{
				"type":        "integer",
				"description": "Number of results (1-10)",
				"minimum":     1.0,
				"maximum":     10.0,
			},
		},
		"required": []string{"query"},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]interface{}) *ToolResult {
	query, ok := args["query"].(string)
	if !ok || query == "" {
		return ErrorResult("query is required")
	}

	count := t.maxResults
	if c, ok := args["count"].(float64); ok {
		if int(c) > 0 && int(c) <= 10 {
			count = int(c)
		}
	}

	result, err := t.search(ctx, query, count)
	if err != nil {
		return ErrorResult(fmt.Sprintf("search failed: %v", err))
	}
	return TextResult(result)
}

func (t *WebSearchTool) search(ctx context.Context, query string, count int) (string, error) {
	searchURL := fmt.Sprintf("https://html.duckduckgo.com/html/?q=%s", url.QueryEscape(query))
	if t.region != "" {
		searchURL += "&kl=" + url.QueryEscape(t.region)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// DDG responds 202 when it throttles scripted clients.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusAccepted {
		return "Rate limit reached. Please try again after a short wait.", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	return extractResults(string(body), count, query), nil
}

var (
	reResultLink    = regexp.MustCompile(`<a[^>]*class="[^"]*result__a[^"]*"[^>]*href="([^"]+)"[^>]*>([\s\S]*?)</a>`)
	reResultSnippet = regexp.MustCompile(`<a class="result__snippet[^"]*".*?>([\s\S]*?)</a>`)
	reTag           = regexp.MustCompile(`<[^>]+>`)
)

func extractResults(html string, count int, query string) string {
	matches := reResultLink.FindAllStringSubmatch(html, count+5)
	if len(matches) == 0 {
		return fmt.Sprintf("No results found or extraction failed. Query: %s", query)
	}

	snippetMatches := reResultSnippet.FindAllStringSubmatch(html, count+5)

	var lines []string
	lines = append(lines, fmt.Sprintf("Results for: %s (via DuckDuckGo)", query))

	maxItems := min(len(matches), count)
	for i := 0; i < maxItems; i++ {
		urlStr := matches[i][1]
		title := strings.TrimSpace(stripTags(matches[i][2]))

		// DDG wraps result URLs in a redirect carrying the real target in uddg=.
		if strings.Contains(urlStr, "uddg=") {
			if u, err := url.QueryUnescape(urlStr); err == nil {
				if idx := strings.Index(u, "uddg="); idx != -1 {
					urlStr = u[idx+5:]
				}
			}
		}

		lines = append(lines, fmt.Sprintf("%d. %s\n   %s", i+1, title, urlStr))

		if i < len(snippetMatches) {
			snippet := strings.TrimSpace(stripTags(snippetMatches[i][1]))
			if snippet != "" {
				lines = append(lines, fmt.Sprintf("   %s", snippet))
			}
		}
	}

	return strings.Join(lines, "\n")
}

func stripTags(content string) string {
	return reTag.ReplaceAllString(content, "")
}
