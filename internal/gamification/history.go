package gamification

import "github.com/skillforge/backend/internal/models"

// AnalysisHistoryCap bounds a profile's detailed analysis history.
const AnalysisHistoryCap = 10

// PushAnalysis appends entry to history, numbering it after the newest entry
// and evicting the oldest entries beyond AnalysisHistoryCap. history is not modified.
func PushAnalysis(history []models.AnalysisEntry, entry models.AnalysisEntry) []models.AnalysisEntry {
	entry.Seq = 1
	if n := len(history); n > 0 {
		entry.Seq = history[n-1].Seq + 1
	}

	start := 0
	if len(history) >= AnalysisHistoryCap {
		start = len(history) - AnalysisHistoryCap + 1
	}
	out := make([]models.AnalysisEntry, 0, AnalysisHistoryCap)
	out = append(out, history[start:]...)
	return append(out, entry)
}
