package youtube

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/aescanero/ytscope/pkg/domain"
)

type watchMeta struct {
	Description string
	Keywords    []string
	Published   string
	Channel     string
}

// enrichItem replaces the search snippet with the watch page's full meta data
func (s *Scraper) enrichItem(ctx context.Context, item *domain.ContentItem) error {
	page, err := s.fetch(ctx, s.baseURL+"/watch?v="+item.ExternalID)
	if err != nil {
		return fmt.Errorf("watch page: %w", err)
	}
	meta, err := parseWatchMeta(page)
	if err != nil {
		return fmt.Errorf("watch page: %w", err)
	}

	if len(meta.Description) > len(item.Description) {
		item.Description = meta.Description
	}
	if len(meta.Keywords) > 0 {
		item.Tags = meta.Keywords
	}
	if meta.Published != "" {
		item.PublishedAt = meta.Published
	}
	if item.Author == "" && meta.Channel != "" {
		item.Author = meta.Channel
		item.Community = meta.Channel
	}
	return nil
}

// parseWatchMeta reads description, keywords and upload date meta elements
func parseWatchMeta(page []byte) (watchMeta, error) {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return watchMeta{}, err
	}

	var meta watchMeta
	var ogDescription string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				content := strings.TrimSpace(getAttr(n, "content"))
				switch {
				case getAttr(n, "name") == "description":
					meta.Description = content
				case getAttr(n, "property") == "og:description":
					ogDescription = content
				case getAttr(n, "name") == "keywords":
					meta.Keywords = splitKeywords(content)
				case getAttr(n, "itemprop") == "uploadDate" || getAttr(n, "itemprop") == "datePublished":
					if meta.Published == "" {
						meta.Published = content
					}
				}
			case "link":
				if getAttr(n, "itemprop") == "name" && meta.Channel == "" {
					meta.Channel = strings.TrimSpace(getAttr(n, "content"))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if meta.Description == "" {
		meta.Description = ogDescription
	}
	return meta, nil
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func splitKeywords(content string) []string {
	var out []string
	for _, k := range strings.Split(content, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}
