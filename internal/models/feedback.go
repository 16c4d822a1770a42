package models

const (
	// MinScore is the lowest score a feedback field may carry.
	MinScore = 0
	// MaxScore is the highest score a feedback field may carry.
	MaxScore = 100
	// DefaultScore substitutes any score the evaluator did not supply as a number.
	DefaultScore = 75
	// DefaultSummary substitutes an empty evaluation summary.
	DefaultSummary = "Evaluation completed."
)

// Feedback is the four-score evaluation attached to exactly one submission.
type Feedback struct {
	GrammarScore     int      `json:"grammarScore"`
	RelevanceScore   int      `json:"relevanceScore"`
	OriginalityScore int      `json:"originalityScore"`
	OverallScore     int      `json:"overallScore"`
	Summary          string   `json:"summary"`
	Suggestions      []string `json:"suggestions"`
}

// Clamp returns a copy with every score forced into [MinScore, MaxScore], a
// non-empty summary and a non-nil suggestions slice. Clamping a valid feedback
// returns it unchanged.
func (f Feedback) Clamp() Feedback {
	out := f
	out.GrammarScore = ClampScore(f.GrammarScore)
	out.RelevanceScore = ClampScore(f.RelevanceScore)
	out.OriginalityScore = ClampScore(f.OriginalityScore)
	out.OverallScore = ClampScore(f.OverallScore)
	if out.Summary == "" {
		out.Summary = DefaultSummary
	}
	out.Suggestions = make([]string, len(f.Suggestions))
	copy(out.Suggestions, f.Suggestions)
	return out
}

// ClampScore forces a score into [MinScore, MaxScore].
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}
