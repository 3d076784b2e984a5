// Package prompt renders the task prompts sent to the generative model.
// Every function is pure and deterministic.
package prompt

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"briefing/internal/domain"
	"briefing/internal/textutil"
)

// Per-task character budgets for the content or context block.
const (
	SimplifyContextLimit = 2000
	AskContextLimit      = 3000
	SummarizeTextLimit   = 4000
	ExtractTextLimit     = 5000
)

var audienceInstructions = map[domain.Audience]string{
	domain.AudienceExecutive: "Use very concise, high-level business language. Focus on ROI, strategic impact, and bottom-line results.",
	domain.AudienceManager:   "Use clear, simple English (Grade 6 level). Focus on project progress, team impact, and actionable items.",
	domain.AudienceClient:    "Use professional but very simple language. Focus on deliverables, timelines, and value provided.",
	domain.AudienceIntern:    "Use the simplest possible language. Explain every concept as if the reader has no technical background.",
}

var systemMessages = map[domain.Task]string{
	domain.TaskSimplify:  "You are a helpful assistant that simplifies technical documents. Always respond with valid JSON only.",
	domain.TaskAsk:       "You are a helpful document Q&A assistant. Always respond with valid JSON only.",
	domain.TaskSummarize: "You are a summarization assistant. Always respond with valid JSON only.",
	domain.TaskExtract:   "You are a document analysis assistant. Always respond with valid JSON only.",
}

// AudienceInstructions returns the tone directive for a; unknown audiences
// get the manager directive.
func AudienceInstructions(a domain.Audience) string {
	if s, ok := audienceInstructions[domain.ParseAudience(string(a))]; ok {
		return s
	}
	return audienceInstructions[domain.AudienceManager]
}

// System returns the system message for task.
func System(task domain.Task) string { return systemMessages[task] }

func capitalize(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[n:])
}

// Simplify renders the per-page simplification prompt. context may be empty.
func Simplify(pageText, context string, pageNumber int, audience domain.Audience) string {
	audience = domain.ParseAudience(string(audience))
	contextBlock := ""
	if context != "" {
		contextBlock = "\n\nHere is additional relevant context retrieved from the document:\n---\n" +
			textutil.Truncate(context, SimplifyContextLimit) + "\n---\n"
	}
	return fmt.Sprintf(`You are an expert business communication assistant.

Task:
Convert the following technical project update into a simplified executive summary.

Audience: %s
%s
%s
Rules:
- Use very simple English (Grade 6 level).
- Avoid technical jargon.
- Explain in a way that the target audience can understand.
- Keep structure aligned with original content.
- Provide a short heading for this section.
- Add a brief explanation of key impact.
- Suggest a relevant image idea for this section.
- Output format must be valid JSON:

{
  "page_number": %d,
  "title": "...",
  "simplified_text": "...",
  "image_prompt": "..."
}

Content to simplify:
---
%s
---

Respond ONLY with the JSON object, no other text.`,
		capitalize(string(audience)), AudienceInstructions(audience), contextBlock, pageNumber, pageText)
}

// Ask renders the question-answering prompt. Retrieved context is preferred;
// without it the raw document text is used instead.
func Ask(question, context, text string) string {
	contextBlock := ""
	switch {
	case context != "":
		contextBlock = "\nHere is the relevant context from the uploaded document:\n---\n" +
			textutil.Truncate(context, AskContextLimit) + "\n---\n"
	case text != "":
		contextBlock = "\nHere is the document content:\n---\n" +
			textutil.Truncate(text, AskContextLimit) + "\n---\n"
	}
	return fmt.Sprintf(`You are an intelligent document assistant.

The user has uploaded a document and is asking a question about it.
%s
User's Question: %s

Instructions:
- Answer the question based ONLY on the document content provided above.
- If the answer is not in the document, say so clearly.
- Be concise but thorough.
- Use simple, clear language.

Respond with a JSON object:
{
  "answer": "your detailed answer here",
  "confidence": "high/medium/low",
  "relevant_excerpt": "brief quote from the document that supports your answer"
}

Respond ONLY with the JSON object.`, contextBlock, question)
}

func Summarize(text string) string {
	return fmt.Sprintf(`You are a summarization expert.

Summarize the following text into a clear, concise paragraph (3-5 sentences).
Focus on the most important points.

Text:
---
%s
---

Respond with a JSON object:
{
  "summary": "your concise summary paragraph here",
  "word_count": <number of words in the summary>,
  "key_topics": ["topic1", "topic2", "topic3"]
}

Respond ONLY with the JSON object.`, textutil.Truncate(text, SummarizeTextLimit))
}

func Extract(text string) string {
	return fmt.Sprintf(`You are an expert analyst.

Extract the key points and takeaways from the following document.

Document:
---
%s
---

Respond with a JSON object:
{
  "key_points": [
    {"point": "First key point", "importance": "high/medium/low"},
    {"point": "Second key point", "importance": "high/medium/low"}
  ],
  "overall_theme": "One sentence describing the main theme",
  "action_items": ["action 1", "action 2"]
}

Extract 5-10 key points. Respond ONLY with the JSON object.`, textutil.Truncate(text, ExtractTextLimit))
}
