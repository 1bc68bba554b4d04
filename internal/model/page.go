package model

// NoTextFound is returned in place of an excerpt when a page has no paragraph text.
const NoTextFound = "No text found on the page."

// FetchResult holds the paragraph text extracted from a single page.
type FetchResult struct {
	URL        string `json:"url"`
	Text       string `json:"text"`
	Truncated  bool   `json:"truncated"`
	Paragraphs int    `json:"paragraphs"`
	StatusCode int    `json:"status_code"`
}

// Empty reports whether the page yielded no paragraph text.
func (r *FetchResult) Empty() bool {
	return r == nil || r.Text == NoTextFound
}
