package model

import "unicode/utf8"

// PreviewLength is the number of characters kept in a history preview
const PreviewLength = 100

// PreviewEllipsis marks a truncated preview
const PreviewEllipsis = "..."

// HistoryEntry is one persisted past analysis
type HistoryEntry struct {
	ID             string         `json:"id"`
	Content        string         `json:"content"`
	ContentType    ContentType    `json:"contentType"`
	ContentPreview string         `json:"contentPreview"`
	Result         AnalysisResult `json:"result"`
	CreatedAt      string         `json:"createdAt"`
}

// Preview returns the first PreviewLength characters of content,
// with PreviewEllipsis appended only when something was cut.
func Preview(content string) string {
	if utf8.RuneCountInString(content) <= PreviewLength {
		return content
	}
	runes := []rune(content)
	return string(runes[:PreviewLength]) + PreviewEllipsis
}
