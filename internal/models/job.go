package models

import (
	"fmt"
	"strings"

	"go-easyapply-automation/internal/browser"
)

const (
	UnknownTitle    = "Unknown Title"
	UnknownCompany  = "Unknown Company"
	UnknownLocation = "Unknown Location"
)

// JobRecord is what the extractor derives from one visible result card.
// Card is a live handle and goes stale on the next page mutation.
type JobRecord struct {
	Index          int             `json:"index"`
	Card           browser.Element `json:"-"`
	Title          string          `json:"title"`
	Company        string          `json:"company"`
	Location       string          `json:"location"`
	Posted         string          `json:"posted,omitempty"`
	Description    string          `json:"description,omitempty"`
	RelevanceScore *float64        `json:"relevance_score,omitempty"`
}

// Fingerprint identifies a listing across page loads and runs.
func (j JobRecord) Fingerprint() string {
	return strings.ToLower(fmt.Sprintf("%s|%s|%s",
		strings.TrimSpace(j.Title), strings.TrimSpace(j.Company), strings.TrimSpace(j.Location)))
}

// Complete reports whether every card field was resolved to a real value.
func (j JobRecord) Complete() bool {
	return j.Title != UnknownTitle && j.Company != UnknownCompany && j.Location != UnknownLocation
}

// ScoreText is the text fed to the relevance scorer.
func (j JobRecord) ScoreText() string {
	parts := []string{j.Title, j.Company, j.Location, j.Description}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}
