package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"GoWikiRAG/app/configs"
	"GoWikiRAG/app/utils/restclient"
)

const exportEndpoint = "/api/export/pages"

// Page is one raw document from the wiki export. Body holds the page text,
// already flattened if the wiki only had an HTML rendering.
type Page struct {
	Title    string
	Body     string
	BookSlug string
	PageSlug string
	BookName string
}

type Interface interface {
	Pages(ctx context.Context) ([]Page, error)
}

// Client pulls the full corpus from the wiki export API. The feed is a
// read-only batch source: one call returns everything.
type Client struct {
	restClient restclient.Interface
	baseURL    string
}

var _ Interface = &Client{}

func NewClient(cfg configs.WikiConfig) *Client {
	var headers map[string]string
	if cfg.Token != "" {
		headers = map[string]string{"Authorization": "Token " + cfg.Token}
	}
	return &Client{
		restClient: restclient.NewRestClient(cfg.BaseURL, headers),
		baseURL:    cfg.BaseURL,
	}
}

type exportPage struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	HTML     string `json:"html"`
	BookSlug string `json:"book_slug"`
	Slug     string `json:"slug"`
	BookName string `json:"book_name"`
}

type exportResponse struct {
	Data []exportPage `json:"data"`
}

func (c *Client) Pages(ctx context.Context) ([]Page, error) {
	body, status, err := c.restClient.Get(ctx, exportEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch wiki export: %w", err)
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("wiki export returned %d", status)
	}

	var resp exportResponse
	if err = json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse wiki export: %w", err)
	}

	pages := make([]Page, 0, len(resp.Data))
	for _, p := range resp.Data {
		text := p.Text
		if text == "" && p.HTML != "" {
			text = FlattenHTML(p.HTML)
		}
		pages = append(pages, Page{
			Title:    p.Title,
			Body:     text,
			BookSlug: p.BookSlug,
			PageSlug: p.Slug,
			BookName: p.BookName,
		})
	}
	return pages, nil
}

// URL reconstructs the public wiki address of a page.
func (p Page) URL(baseURL string) string {
	return fmt.Sprintf("%s/books/%s/page/%s", baseURL, p.BookSlug, p.PageSlug)
}

// FlattenHTML extracts the visible text of an HTML fragment, one line per
// text node. Unparseable input is returned as-is.
func FlattenHTML(s string) string {
	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				parts = append(parts, t)
			}
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(parts, "\n")
}
