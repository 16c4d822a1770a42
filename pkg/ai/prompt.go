package ai

import "strings"

const binaryContentNote = "[File uploaded - binary content. Evaluate based on the assignment title and course context. " +
	"Provide general feedback for this type of assignment.]"

func evaluatorSystemPrompt() string {
	return `You are an AI academic evaluator for a university. You evaluate student assignments and provide structured feedback.

You MUST respond with valid JSON only, no extra text. Use exactly this format:
{
  "grammarScore": <number 0-100>,
  "relevanceScore": <number 0-100>,
  "originalityScore": <number 0-100>,
  "overallScore": <number 0-100>,
  "summary": "<2-3 sentence evaluation summary>",
  "suggestions": [
    "<suggestion 1>",
    "<suggestion 2>",
    "<suggestion 3>",
    "<suggestion 4>"
  ]
}

Scoring criteria:
- grammarScore: Evaluate writing quality, grammar, spelling, sentence structure
- relevanceScore: How well the content addresses the assignment topic and requirements
- originalityScore: Creativity, unique insights, and depth of analysis
- overallScore: Weighted average of all three scores

Be constructive in suggestions. Provide specific, actionable feedback.`
}

func buildUserPrompt(input EvaluationInput) string {
	builder := strings.Builder{}
	builder.WriteString("Please evaluate the following student assignment:\n\n")
	builder.WriteString("**Course:** ")
	builder.WriteString(input.CourseName)
	builder.WriteString("\n**Assignment:** ")
	builder.WriteString(input.AssignmentTitle)
	builder.WriteString("\n\n**Submitted Content:**\n")

	content := strings.TrimSpace(input.Content)
	switch {
	case content == "":
		builder.WriteString(binaryContentNote)
	case input.ContentIsPlaceholder:
		builder.WriteString(content)
		builder.WriteString("\n")
		builder.WriteString(binaryContentNote)
	default:
		builder.WriteString(content)
	}

	builder.WriteString("\n\nRespond with JSON only.")
	return builder.String()
}
