package fetch

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"
)

// ExtractText returns the title and main text of an HTML document.
// Readability is tried first; pages it cannot handle fall back to the
// visible text of the whole document.
func ExtractText(htmlContent, pageURL string) (string, string) {
	parsed, _ := url.Parse(pageURL)

	article, err := readability.FromReader(strings.NewReader(htmlContent), parsed)
	if err == nil {
		if text := collapseSpace(article.TextContent); text != "" {
			return strings.TrimSpace(article.Title), text
		}
	}

	return visibleText(htmlContent)
}

// visibleText walks the DOM collecting text outside script/style/noscript
func visibleText(htmlContent string) (string, string) {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return "", collapseSpace(htmlContent)
	}

	var (
		title string
		sb    strings.Builder
	)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			case "title":
				if n.FirstChild != nil && title == "" {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return title, collapseSpace(sb.String())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
