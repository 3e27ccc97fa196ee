package analysis

import (
	"fmt"
	"strings"

	"triago/internal/models"
)

// Type identifies one kind of extraction requested from the model. The set is
// closed: the prompt builder and the response parser both iterate the same
// catalog, so they cannot drift apart.
type Type string

const (
	ExtractProduct            Type = "extract_product"
	SummarizeTicket           Type = "summarize_ticket"
	TicketQuality             Type = "ticket_quality"
	SentimentAnalysis         Type = "sentiment_analysis"
	UserProficiencyLevel      Type = "user_proficiency_level"
	UrgencyPerception         Type = "urgency_perception"
	EmotionDetection          Type = "emotion_detection"
	PotentialImpact           Type = "potential_impact"
	InformationCompleteness   Type = "information_completeness"
	ResolutionComplexity      Type = "resolution_complexity"
	ResolutionAppropriateness Type = "resolution_appropriateness"
	SuggestedKBArticle        Type = "suggested_kb_article"
	ExpectedResolutionTime    Type = "expected_resolution_time"
	NextBestAction            Type = "next_best_action"
	HistoricalSimilarity      Type = "historical_similarity"
	PotentialRootCause        Type = "potential_root_cause"
	ResolutionConfidence      Type = "resolution_confidence"
	CustomerSatisfaction      Type = "customer_satisfaction_prediction"
)

// Catalog groups, in display order.
const (
	GroupBasic      = "Basic Analysis"
	GroupUser       = "User Analysis"
	GroupImpact     = "Impact Analysis"
	GroupResolution = "Resolution Analysis"
	GroupAdvanced   = "Advanced Analysis"
)

// Definition describes one analysis type: the instruction handed to the
// model and, where the answer space is closed, the accepted values. "N/A" is
// always accepted in addition to Answers.
type Definition struct {
	Type        Type
	Group       string
	Instruction string
	Answers     []string
}

// Key returns the JSON key the model is asked to fill for this type.
func (d Definition) Key() string { return string(d.Type) }

// ExplanationKey returns the JSON key for the optional explanation.
func (d Definition) ExplanationKey() string { return string(d.Type) + "_explanation" }

// Label returns a display name derived from the type key, e.g.
// "sentiment_analysis" becomes "Sentiment Analysis".
func (d Definition) Label() string {
	words := strings.Split(string(d.Type), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var catalog = []Definition{
	{
		Type:  ExtractProduct,
		Group: GroupBasic,
		Instruction: "Extract the product or system mentioned in the ticket. " +
			"This could be software (e.g., MS Word, Outlook), hardware (e.g., Toshiba Laptop, Printer), " +
			"or a general category (e.g., Word Processor, Email). " +
			"If no specific product is mentioned, provide a general category. " +
			"If no product or category can be determined, respond with 'N/A'.",
	},
	{
		Type:        SummarizeTicket,
		Group:       GroupBasic,
		Instruction: "Provide a concise 1 to 5 word summary of the main issue or request described in the ticket.",
	},
	{
		Type:  TicketQuality,
		Group: GroupBasic,
		Instruction: "Evaluate the quality and completeness of the ticket description. " +
			"Classify as 'good' (clear, detailed), 'fair' (some missing details), or 'poor' (unclear, lacks essential information).",
		Answers: []string{"good", "fair", "poor"},
	},
	{
		Type:  SentimentAnalysis,
		Group: GroupBasic,
		Instruction: "Determine the sentiment expressed by the customer or user in the ticket. " +
			"Classify as 'positive', 'negative', 'neutral', or 'N/A' if no clear sentiment can be determined.",
		Answers: []string{"positive", "negative", "neutral"},
	},
	{
		Type:  UserProficiencyLevel,
		Group: GroupUser,
		Instruction: "Assess the user's technical proficiency based on the language and complexity of the problem described. " +
			"Classify as 'beginner', 'intermediate', or 'advanced'.",
		Answers: []string{"beginner", "intermediate", "advanced"},
	},
	{
		Type:  UrgencyPerception,
		Group: GroupUser,
		Instruction: "Determine the perceived urgency of the issue based on the language and tone used. " +
			"Classify as 'low', 'medium', 'high', or 'critical'.",
		Answers: []string{"low", "medium", "high", "critical"},
	},
	{
		Type:  EmotionDetection,
		Group: GroupUser,
		Instruction: "Detect the primary emotion of the user from the language used in the ticket. " +
			"Classify as 'frustrated', 'angry', 'satisfied', 'confused', or 'neutral'.",
		Answers: []string{"frustrated", "angry", "satisfied", "confused", "neutral"},
	},
	{
		Type:  PotentialImpact,
		Group: GroupImpact,
		Instruction: "Estimate the potential impact of the issue on business operations or user productivity. " +
			"Classify as 'minor', 'moderate', 'major', or 'critical'.",
		Answers: []string{"minor", "moderate", "major", "critical"},
	},
	{
		Type:  InformationCompleteness,
		Group: GroupImpact,
		Instruction: "Evaluate the completeness of the information provided for troubleshooting and resolution. " +
			"Classify as 'complete', 'partial', or 'incomplete'.",
		Answers: []string{"complete", "partial", "incomplete"},
	},
	{
		Type:  ResolutionComplexity,
		Group: GroupImpact,
		Instruction: "Estimate the complexity of the resolution required based on the ticket description. " +
			"Classify as 'simple', 'moderate', or 'complex'.",
		Answers: []string{"simple", "moderate", "complex"},
	},
	{
		Type:  ResolutionAppropriateness,
		Group: GroupResolution,
		Instruction: "Determine if the resolution provided (if any) was appropriate based on the ticket description. " +
			"Consider if it addresses the main issue, provides a clear solution, and follows best practices. " +
			"Respond with 'appropriate', 'inappropriate', or 'N/A' if no resolution is provided.",
		Answers: []string{"appropriate", "inappropriate"},
	},
	{
		Type:  SuggestedKBArticle,
		Group: GroupResolution,
		Instruction: "Recommend a relevant knowledge base article that might help resolve the issue. " +
			"Provide an article ID or title if applicable, or 'N/A' if no suitable article is identified.",
	},
	{
		Type:  ExpectedResolutionTime,
		Group: GroupResolution,
		Instruction: "Predict the expected time to resolve the issue based on its complexity. " +
			"Provide an estimate (e.g., '30 minutes', '2 hours', '1 day').",
	},
	{
		Type:  NextBestAction,
		Group: GroupResolution,
		Instruction: "Recommend the next best action to take for resolving the issue. " +
			"Provide a specific, actionable recommendation.",
	},
	{
		Type:  HistoricalSimilarity,
		Group: GroupAdvanced,
		Instruction: "Identify how similar this ticket is to previously resolved tickets. " +
			"Provide a percentage similarity or a brief explanation of similar past issues.",
	},
	{
		Type:  PotentialRootCause,
		Group: GroupAdvanced,
		Instruction: "Suggest a potential root cause for the issue based on the ticket description. " +
			"Provide a brief explanation of the likely underlying cause.",
	},
	{
		Type:  ResolutionConfidence,
		Group: GroupAdvanced,
		Instruction: "Estimate the confidence level for resolving this issue based on the information provided. " +
			"Classify as 'high', 'medium', or 'low'.",
		Answers: []string{"high", "medium", "low"},
	},
	{
		Type:  CustomerSatisfaction,
		Group: GroupAdvanced,
		Instruction: "Predict the likely customer satisfaction if the issue is resolved as suggested. " +
			"Provide a rating prediction on a scale of 1 to 5 stars.",
	},
}

var byType = func() map[Type]Definition {
	m := make(map[Type]Definition, len(catalog))
	for _, d := range catalog {
		m[d.Type] = d
	}
	return m
}()

// All returns every definition in catalog order.
func All() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Groups returns the group names in display order.
func Groups() []string {
	return []string{GroupBasic, GroupUser, GroupImpact, GroupResolution, GroupAdvanced}
}

// ByGroup returns the definitions belonging to the named group, in catalog
// order.
func ByGroup(group string) []Definition {
	var out []Definition
	for _, d := range catalog {
		if d.Group == group {
			out = append(out, d)
		}
	}
	return out
}

// Lookup resolves a type key to its definition.
func Lookup(key string) (Definition, error) {
	d, ok := byType[Type(strings.TrimSpace(key))]
	if !ok {
		return Definition{}, fmt.Errorf("%w: unknown analysis type %q", models.ErrConfiguration, key)
	}
	return d, nil
}

// ParseList resolves a list of type keys, rejecting unknown ones and
// dropping duplicates while preserving first-seen order.
func ParseList(keys []string) ([]Definition, error) {
	seen := make(map[Type]bool, len(keys))
	out := make([]Definition, 0, len(keys))
	for _, key := range keys {
		d, err := Lookup(key)
		if err != nil {
			return nil, err
		}
		if seen[d.Type] {
			continue
		}
		seen[d.Type] = true
		out = append(out, d)
	}
	return out, nil
}

// ValidAnswer reports whether value is acceptable for this definition. Free
// text definitions accept anything non-empty; closed ones accept their
// answer set or "N/A", case-insensitively.
func (d Definition) ValidAnswer(value string) bool {
	v := strings.ToLower(strings.TrimSpace(value))
	if v == "" {
		return false
	}
	if len(d.Answers) == 0 || v == "n/a" {
		return true
	}
	for _, a := range d.Answers {
		if v == a {
			return true
		}
	}
	return false
}
