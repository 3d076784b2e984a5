package domain

import "strings"

// Audience is a named tone profile applied to generated text.
type Audience string

const (
	AudienceExecutive Audience = "executive"
	AudienceManager   Audience = "manager"
	AudienceClient    Audience = "client"
	AudienceIntern    Audience = "intern"
)

// ParseAudience maps free-form input onto the fixed audience set.
// Unrecognized values fall back to AudienceManager.
func ParseAudience(s string) Audience {
	switch a := Audience(strings.ToLower(strings.TrimSpace(s))); a {
	case AudienceExecutive, AudienceManager, AudienceClient, AudienceIntern:
		return a
	}
	return AudienceManager
}

// Task identifies one of the four generation flows.
type Task string

const (
	TaskSimplify  Task = "simplify"
	TaskAsk       Task = "ask"
	TaskSummarize Task = "summarize"
	TaskExtract   Task = "extract"
)

// Confidence levels shared by answers and key point importance.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// NormalizeLevel returns s if it is one of high/medium/low, else medium.
func NormalizeLevel(s string) string {
	switch l := strings.ToLower(strings.TrimSpace(s)); l {
	case LevelHigh, LevelMedium, LevelLow:
		return l
	}
	return LevelMedium
}

type SimplifiedPage struct {
	PageNumber     int    `json:"page_number"`
	Title          string `json:"title"`
	SimplifiedText string `json:"simplified_text"`
	ImagePrompt    string `json:"image_prompt"`
}

type SimplifyResult struct {
	Success bool             `json:"success"`
	Pages   []SimplifiedPage `json:"pages"`
}

type AnswerResult struct {
	Success         bool   `json:"success"`
	Answer          string `json:"answer"`
	Confidence      string `json:"confidence"`
	RelevantExcerpt string `json:"relevant_excerpt"`
}

type SummaryResult struct {
	Success   bool     `json:"success"`
	Summary   string   `json:"summary"`
	WordCount int      `json:"word_count"`
	KeyTopics []string `json:"key_topics"`
}

type KeyPoint struct {
	Point      string `json:"point"`
	Importance string `json:"importance"`
}

type ExtractionResult struct {
	Success      bool       `json:"success"`
	KeyPoints    []KeyPoint `json:"key_points"`
	OverallTheme string     `json:"overall_theme"`
	ActionItems  []string   `json:"action_items"`
}

// Request is the input accepted by every flow. Question is only used by Ask.
type Request struct {
	Text     string
	Audience Audience
	Question string
	UserID   string
}
