package web

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageTitle returns the trimmed <title> of an HTML page, or "" when the body
// has none or is not HTML.
func PageTitle(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	title := doc.Find("head > title").First().Text()
	return strings.Join(strings.Fields(title), " ")
}
