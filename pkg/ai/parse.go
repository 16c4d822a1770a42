package ai

import (
	"encoding/json"
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/noah-isme/uniportal-api/internal/models"
)

const maxSuggestions = 6

var (
	openingFence = regexp.MustCompile("```(?:json)?\\s*")
	textPolicy   = bluemonday.StrictPolicy()
)

// ParseFeedback turns a raw completion into a normalised Feedback. It never
// fails: unusable input degrades field by field to the documented defaults.
func ParseFeedback(content string) models.Feedback {
	payload := decodeObject(stripCodeFence(content))

	feedback := models.Feedback{
		GrammarScore:     scoreValue(payload["grammarScore"]),
		RelevanceScore:   scoreValue(payload["relevanceScore"]),
		OriginalityScore: scoreValue(payload["originalityScore"]),
		OverallScore:     scoreValue(payload["overallScore"]),
		Summary:          textValue(payload["summary"]),
		Suggestions:      suggestionsValue(payload["suggestions"]),
	}

	return feedback.Clamp()
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = openingFence.ReplaceAllString(trimmed, "")
	trimmed = strings.ReplaceAll(trimmed, "```", "")
	return strings.TrimSpace(trimmed)
}

func decodeObject(content string) map[string]interface{} {
	decoder := json.NewDecoder(strings.NewReader(content))
	decoder.UseNumber()

	var payload map[string]interface{}
	if err := decoder.Decode(&payload); err != nil {
		return nil
	}
	return payload
}

func scoreValue(raw interface{}) int {
	var value float64
	switch v := raw.(type) {
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return models.DefaultScore
		}
		value = parsed
	case float64:
		value = v
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return models.DefaultScore
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return models.DefaultScore
		}
		value = parsed
	default:
		return models.DefaultScore
	}

	if math.IsNaN(value) {
		return models.DefaultScore
	}
	if value <= models.MinScore {
		return models.MinScore
	}
	if value >= models.MaxScore {
		return models.MaxScore
	}
	return int(math.Round(value))
}

func textValue(raw interface{}) string {
	text, ok := raw.(string)
	if !ok {
		return ""
	}
	return sanitizeText(text)
}

func suggestionsValue(raw interface{}) []string {
	items, ok := raw.([]interface{})
	if !ok {
		return []string{}
	}

	suggestions := make([]string, 0, len(items))
	for _, item := range items {
		text, ok := item.(string)
		if !ok {
			continue
		}
		if cleaned := sanitizeText(text); cleaned != "" {
			suggestions = append(suggestions, cleaned)
		}
		if len(suggestions) == maxSuggestions {
			break
		}
	}
	return suggestions
}

func sanitizeText(text string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(text)))
}
