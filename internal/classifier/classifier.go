package classifier

import (
	"regexp"
	"strings"
)

// Category is the task classification of a prompt, used for model routing.
type Category string

const (
	CategoryMath      Category = "math"
	CategoryReasoning Category = "reasoning"
	CategoryGeneral   Category = "general"
)

const (
	// Numeric-pattern matches carry extra weight so that prompts full of
	// figures route to the numeric model even with few math keywords.
	numericMatchWeight = 2

	minMathScore      = 2
	minReasoningScore = 2
)

var (
	// Currency, percentage, formula and financial-math vocabulary.
	mathKeywords = []string{
		"calculate", "compute", "sum", "total", "average", "percent",
		"percentage", "yield", "return", "returns", "ratio", "rate",
		"interest", "dividend", "compound", "growth", "value", "price",
		"cost", "profit", "loss", "gain",
	}

	// Explanatory, strategic and advisory vocabulary.
	reasoningKeywords = []string{
		"explain", "why", "how", "should", "would", "recommend",
		"advise", "suggest", "strategy", "strategic", "plan", "compare",
		"consider", "evaluate", "assess", "rebalance", "diversify",
		"allocate", "risk", "outlook",
	}

	// Dollar amounts, percentages and bare figures: $1,000, 5%, 3.25.
	numericPattern = regexp.MustCompile(`\$\s?\d[\d,]*(\.\d+)?|\d+(\.\d+)?\s?%|\b\d+(\.\d+)?\b`)
)

// Classifier scores a prompt for math vs reasoning content.
type Classifier struct {
	mathPatterns      []*regexp.Regexp
	reasoningPatterns []*regexp.Regexp
}

// New builds a classifier with the fixed vocabularies precompiled.
func New() *Classifier {
	return &Classifier{
		mathPatterns:      compileKeywords(mathKeywords),
		reasoningPatterns: compileKeywords(reasoningKeywords),
	}
}

func compileKeywords(keywords []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(kw)+`\b`))
	}
	return patterns
}

// Classify categorizes a prompt. Math wins only when it strictly exceeds the
// reasoning score and crosses its own minimum; otherwise reasoning wins on
// its threshold; otherwise the prompt is general.
func (c *Classifier) Classify(prompt string) Category {
	mathScore, reasoningScore := c.Scores(prompt)

	if mathScore > reasoningScore && mathScore >= minMathScore {
		return CategoryMath
	}
	if reasoningScore >= minReasoningScore {
		return CategoryReasoning
	}
	return CategoryGeneral
}

// Scores returns the raw category scores for a prompt.
func (c *Classifier) Scores(prompt string) (mathScore, reasoningScore int) {
	lowered := strings.ToLower(prompt)

	for _, p := range c.mathPatterns {
		mathScore += len(p.FindAllStringIndex(lowered, -1))
	}
	for _, p := range c.reasoningPatterns {
		reasoningScore += len(p.FindAllStringIndex(lowered, -1))
	}

	mathScore += numericMatchWeight * len(numericPattern.FindAllStringIndex(lowered, -1))

	return mathScore, reasoningScore
}
