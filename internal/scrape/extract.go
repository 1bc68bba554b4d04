package scrape

import (
	"io"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// decodeBody wraps r in a decoder for the charset declared in contentType.
// Missing, UTF-8 or unknown charsets pass through unchanged.
func decodeBody(r io.Reader, contentType string) (io.Reader, error) {
	if contentType == "" {
		return r, nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r, nil
	}
	label := strings.ToLower(strings.TrimSpace(params["charset"]))
	if label == "" || label == "utf-8" || label == "utf8" {
		return r, nil
	}
	enc, err := htmlindex.Get(label)
	if err != nil {
		return r, nil
	}
	return enc.NewDecoder().Reader(r), nil
}

// extractParagraphs parses r as HTML and returns the full text of each <p>
// element in document order.
func extractParagraphs(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}

	var out []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out, nil
}

// joinParagraphs joins paragraph texts with single spaces. Only an empty
// join counts as no text; whitespace is kept as-is.
func joinParagraphs(paragraphs []string) string {
	return strings.Join(paragraphs, " ")
}

// truncate cuts s to its first max characters. No word boundaries, no ellipsis.
func truncate(s string, max int) (string, bool) {
	if max <= 0 || len(s) <= max {
		return s, false
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}
