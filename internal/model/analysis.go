package model

import (
	"fmt"
	"strings"
)

// ContentType identifies what the user submitted
type ContentType string

const (
	ContentTypeText ContentType = "text"
	ContentTypeURL  ContentType = "url"
)

// Valid reports whether the content type is one of the supported kinds
func (c ContentType) Valid() bool {
	return c == ContentTypeText || c == ContentTypeURL
}

// Submission is a single piece of content queued for a credibility check
type Submission struct {
	Content     string      `json:"content"`
	ContentType ContentType `json:"contentType"`
}

// Validate rejects submissions before any network call is made
func (s Submission) Validate() error {
	if strings.TrimSpace(s.Content) == "" {
		return &ValidationError{Field: "content", Message: "Content is required"}
	}
	if !s.ContentType.Valid() {
		return &ValidationError{Field: "contentType", Message: fmt.Sprintf("unsupported content type %q (expected text or url)", s.ContentType)}
	}
	return nil
}

// CredibilityLevel is the coarse rating supplied by the scoring model.
// It is trusted as-is and never derived from the score.
type CredibilityLevel string

const (
	LevelHigh   CredibilityLevel = "High"
	LevelMedium CredibilityLevel = "Medium"
	LevelLow    CredibilityLevel = "Low"
)

// Valid reports whether the level is one of High, Medium, Low
func (l CredibilityLevel) Valid() bool {
	switch l {
	case LevelHigh, LevelMedium, LevelLow:
		return true
	}
	return false
}

// SharingAdvice is one of three literal phrases demanded by the scoring prompt.
// The wording is a contract: consumers match on "Safe" and "Avoid".
type SharingAdvice string

const (
	AdviceSafe   SharingAdvice = "Safe to share"
	AdviceVerify SharingAdvice = "Verify with official sources before sharing"
	AdviceAvoid  SharingAdvice = "Avoid sharing to prevent panic"
)

// Valid reports whether the advice is exactly one of the three phrases
func (a SharingAdvice) Valid() bool {
	switch a {
	case AdviceSafe, AdviceVerify, AdviceAvoid:
		return true
	}
	return false
}

// Tone maps sharing advice onto an explicit tag.
// Matching stays substring based so older stored phrasings keep rendering.
func (a SharingAdvice) Tone() Tone {
	switch {
	case strings.Contains(string(a), "Safe"):
		return ToneSafe
	case strings.Contains(string(a), "Avoid"):
		return ToneAvoid
	default:
		return ToneCaution
	}
}

// Tone is the presentation tag derived from SharingAdvice
type Tone string

const (
	ToneSafe    Tone = "safe"
	ToneCaution Tone = "caution"
	ToneAvoid   Tone = "avoid"
)

// ChecklistResult is one pass/fail sub-finding
type ChecklistResult struct {
	Passed  bool   `json:"passed"`
	Details string `json:"details"`
}

// ChecklistResults holds the five fixed rule-based checks.
// Pointers let decoding tell a missing key from a failed check.
type ChecklistResults struct {
	SourceCredibility    *ChecklistResult `json:"sourceCredibility"`
	TimeRelevance        *ChecklistResult `json:"timeRelevance"`
	LanguageAnalysis     *ChecklistResult `json:"languageAnalysis"`
	EvidenceVerification *ChecklistResult `json:"evidenceVerification"`
	CrisisContext        *ChecklistResult `json:"crisisContext"`
}

// ChecklistItem pairs a checklist key with its result, in display order
type ChecklistItem struct {
	Key    string
	Label  string
	Result ChecklistResult
}

// Items returns the checklist in its fixed order, skipping missing keys
func (c ChecklistResults) Items() []ChecklistItem {
	all := []struct {
		key, label string
		res        *ChecklistResult
	}{
		{"sourceCredibility", "Source Credibility", c.SourceCredibility},
		{"timeRelevance", "Time Relevance", c.TimeRelevance},
		{"languageAnalysis", "Language Analysis", c.LanguageAnalysis},
		{"evidenceVerification", "Evidence & Verification", c.EvidenceVerification},
		{"crisisContext", "Crisis Context", c.CrisisContext},
	}

	items := make([]ChecklistItem, 0, len(all))
	for _, a := range all {
		if a.res == nil {
			continue
		}
		items = append(items, ChecklistItem{Key: a.key, Label: a.label, Result: *a.res})
	}
	return items
}

// missing lists the checklist keys that were not supplied
func (c ChecklistResults) missing() []string {
	var keys []string
	if c.SourceCredibility == nil {
		keys = append(keys, "sourceCredibility")
	}
	if c.TimeRelevance == nil {
		keys = append(keys, "timeRelevance")
	}
	if c.LanguageAnalysis == nil {
		keys = append(keys, "languageAnalysis")
	}
	if c.EvidenceVerification == nil {
		keys = append(keys, "evidenceVerification")
	}
	if c.CrisisContext == nil {
		keys = append(keys, "crisisContext")
	}
	return keys
}

// WebSources is the optional citation-backed fact-check output
type WebSources struct {
	Citations     []string `json:"citations"`
	SearchSummary string   `json:"searchSummary"`
	VerifiedAt    string   `json:"verifiedAt"`
}

// AnalysisResult is the structured credibility assessment
type AnalysisResult struct {
	CredibilityScore       int              `json:"credibilityScore"`
	CredibilityLevel       CredibilityLevel `json:"credibilityLevel"`
	Reasons                []string         `json:"reasons"`
	CriticalThinkingPrompt string           `json:"criticalThinkingPrompt"`
	SharingAdvice          SharingAdvice    `json:"sharingAdvice"`
	SharingTone            Tone             `json:"sharingTone,omitempty"`
	ChecklistResults       ChecklistResults `json:"checklistResults"`
	WebSources             *WebSources      `json:"webSources,omitempty"`
}

// Validate checks the upstream contract: score range, enumerations and
// the five checklist keys. It returns a description of every violation.
func (r *AnalysisResult) Validate() error {
	var problems []string

	if r.CredibilityScore < 0 || r.CredibilityScore > 100 {
		problems = append(problems, fmt.Sprintf("credibilityScore %d out of range [0,100]", r.CredibilityScore))
	}
	if !r.CredibilityLevel.Valid() {
		problems = append(problems, fmt.Sprintf("credibilityLevel %q is not High, Medium or Low", r.CredibilityLevel))
	}
	if !r.SharingAdvice.Valid() {
		problems = append(problems, fmt.Sprintf("sharingAdvice %q is not a known phrase", r.SharingAdvice))
	}
	if missing := r.ChecklistResults.missing(); len(missing) > 0 {
		problems = append(problems, "checklistResults missing "+strings.Join(missing, ", "))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid analysis result: %s", strings.Join(problems, "; "))
	}
	return nil
}
