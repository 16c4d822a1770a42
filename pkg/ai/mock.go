package ai

import "github.com/noah-isme/uniportal-api/internal/models"

// MockFeedback returns the canned evaluation shown when no live model is available.
func MockFeedback() models.Feedback {
	return models.Feedback{
		GrammarScore:     85,
		RelevanceScore:   92,
		OriginalityScore: 78,
		OverallScore:     85,
		Summary:          "The assignment demonstrates a solid understanding of the topic with well-structured arguments and clear explanations.",
		Suggestions: []string{
			"Consider adding more real-world examples to strengthen arguments",
			"The conclusion section could be more comprehensive",
			"Add citations from peer-reviewed sources for better credibility",
			"Minor grammatical improvements needed in paragraphs 3 and 5",
		},
	}
}
