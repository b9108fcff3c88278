package pipeline

import "github.com/ppiankov/truthlens/internal/model"

// Merge attaches optional web sources to an analysis result.
// Score and level are never adjusted; web sources are informational only.
func Merge(result model.AnalysisResult, sources *model.WebSources) model.AnalysisResult {
	merged := result
	merged.WebSources = nil

	if sources != nil {
		ws := *sources
		ws.Citations = append([]string{}, sources.Citations...)
		merged.WebSources = &ws
	}
	return merged
}
