package openrouter

const systemPrompt = `You are a resume optimization engine.
Return a strict JSON object with keys:
improved_text (string), ats_score (integer 0-100), keywords_score (integer 0-100),
formatting_score (integer 0-100), issues (array of {severity, message}).
Severity is one of: low, medium, high. No markdown, no extra keys.`

func buildOptimizationPrompt(text string) string {
	const maxInput = 24000
	if len(text) > maxInput {
		text = text[:maxInput]
	}
	return "Rewrite and score the following resume:\n\n" + text
}
