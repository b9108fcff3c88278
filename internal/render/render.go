// Package render formats analysis results for terminals and files.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ppiankov/truthlens/internal/model"
	"github.com/ppiankov/truthlens/internal/sources"
)

var tiers = sources.NewClassifier(nil)

// Result writes a terminal view of one analysis
func Result(w io.Writer, r model.AnalysisResult) error {
	st := newStyles(lipgloss.NewRenderer(w))
	tone := r.SharingAdvice.Tone()

	var b strings.Builder

	score := st.badge.Foreground(levelColor(string(r.CredibilityLevel))).
		Render(fmt.Sprintf("%d/100 %s", r.CredibilityScore, r.CredibilityLevel))
	b.WriteString(st.heading.Render("Credibility") + " " + score + "\n")

	advice := st.badge.Foreground(toneColor(string(tone))).Render(strings.ToUpper(string(tone)))
	b.WriteString(advice + " " + string(r.SharingAdvice) + "\n")

	if len(r.Reasons) > 0 {
		b.WriteString("\n" + st.heading.Render("Reasons") + "\n")
		for _, reason := range r.Reasons {
			b.WriteString("  • " + reason + "\n")
		}
	}

	if items := r.ChecklistResults.Items(); len(items) > 0 {
		b.WriteString("\n" + st.heading.Render("Checklist") + "\n")
		for _, item := range items {
			mark := st.pass.Render("✓")
			if !item.Result.Passed {
				mark = st.fail.Render("✗")
			}
			fmt.Fprintf(&b, "  %s %s", mark, item.Label)
			if item.Result.Details != "" {
				b.WriteString(st.muted.Render(" - " + item.Result.Details))
			}
			b.WriteString("\n")
		}
	}

	if r.CriticalThinkingPrompt != "" {
		b.WriteString("\n" + st.box.Render(r.CriticalThinkingPrompt) + "\n")
	}

	if ws := r.WebSources; ws != nil {
		b.WriteString("\n" + st.heading.Render("Web sources"))
		if ws.VerifiedAt != "" {
			b.WriteString(st.muted.Render(" verified " + formatTime(ws.VerifiedAt)))
		}
		b.WriteString("\n")
		if ws.SearchSummary != "" {
			b.WriteString(ws.SearchSummary + "\n")
		}
		for i, c := range ws.Citations {
			fmt.Fprintf(&b, "  [%d] %s", i+1, st.link.Render(c))
			if tier := tiers.Classify(c); tier != sources.TierOther && tier != sources.TierUnknown {
				b.WriteString(st.muted.Render(" (" + tier.String() + ")"))
			}
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// History writes one line per entry, newest first
func History(w io.Writer, entries []model.HistoryEntry) error {
	st := newStyles(lipgloss.NewRenderer(w))

	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, st.muted.Render("No analysis history."))
		return err
	}

	var b strings.Builder
	for _, e := range entries {
		level := st.badge.Foreground(levelColor(string(e.Result.CredibilityLevel))).
			Render(fmt.Sprintf("%3d %-6s", e.Result.CredibilityScore, e.Result.CredibilityLevel))
		fmt.Fprintf(&b, "%s %s %s %s %s\n",
			st.muted.Render(shortID(e.ID)),
			st.muted.Render(formatTime(e.CreatedAt)),
			level,
			st.muted.Render("["+string(e.ContentType)+"]"),
			e.ContentPreview,
		)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// JSON writes v as indented JSON
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// Markdown writes a shareable report for one submission
func Markdown(w io.Writer, sub model.Submission, r model.AnalysisResult) error {
	var b strings.Builder

	b.WriteString("# Credibility check\n\n")
	if sub.ContentType == model.ContentTypeURL {
		fmt.Fprintf(&b, "**Source:** <%s>\n\n", sub.Content)
	} else {
		b.WriteString("> " + strings.ReplaceAll(model.Preview(sub.Content), "\n", "\n> ") + "\n\n")
	}

	fmt.Fprintf(&b, "**Score:** %d/100 (%s)  \n", r.CredibilityScore, r.CredibilityLevel)
	fmt.Fprintf(&b, "**Sharing advice:** %s\n\n", r.SharingAdvice)

	if len(r.Reasons) > 0 {
		b.WriteString("## Reasons\n\n")
		for _, reason := range r.Reasons {
			b.WriteString("- " + reason + "\n")
		}
		b.WriteString("\n")
	}

	if items := r.ChecklistResults.Items(); len(items) > 0 {
		b.WriteString("## Checklist\n\n")
		for _, item := range items {
			mark := "x"
			if !item.Result.Passed {
				mark = " "
			}
			fmt.Fprintf(&b, "- [%s] **%s** %s\n", mark, item.Label, item.Result.Details)
		}
		b.WriteString("\n")
	}

	if r.CriticalThinkingPrompt != "" {
		fmt.Fprintf(&b, "_%s_\n\n", r.CriticalThinkingPrompt)
	}

	if ws := r.WebSources; ws != nil {
		b.WriteString("## Web sources\n\n")
		if ws.SearchSummary != "" {
			b.WriteString(ws.SearchSummary + "\n\n")
		}
		for i, c := range ws.Citations {
			fmt.Fprintf(&b, "%d. <%s> _%s_\n", i+1, c, tiers.Classify(c))
		}
		if ws.VerifiedAt != "" {
			fmt.Fprintf(&b, "\nVerified at %s\n", ws.VerifiedAt)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatTime shortens an RFC 3339 timestamp, leaving unparseable input alone
func formatTime(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return t.Local().Format("2006-01-02 15:04")
}
