package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/porticoai/portico/internal/models"
)

const processorSystemPrompt = "You are a query analysis system for a portfolio advisor. " +
	"Respond with ONLY valid JSON: {\"expanded_query\": \"...\", \"entities\": [\"TICKER\", ...], \"query_type\": \"...\"}. " +
	"expanded_query rephrases the question with financial synonyms for semantic search. " +
	"entities lists ticker symbols mentioned in the question, uppercase, without duplicates."

// OpenAIQueryProcessor expands queries and extracts ticker entities with a
// lightweight model call. On any failure it degrades to a regex-only
// extraction so retrieval never blocks on query processing.
type OpenAIQueryProcessor struct {
	client *openai.Client
	model  string
	logger *slog.Logger
}

// NewOpenAIQueryProcessor creates a processor using the given model.
func NewOpenAIQueryProcessor(apiKey, model string, logger *slog.Logger) *OpenAIQueryProcessor {
	return &OpenAIQueryProcessor{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// Process implements QueryProcessor.
func (p *OpenAIQueryProcessor) Process(ctx context.Context, query string) (models.ProcessedQuery, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     p.model,
		MaxTokens: 500,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: processorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	})
	if err != nil {
		p.logger.Warn("query processing model call failed, using regex extraction", "error", err)
		return fallbackProcessedQuery(query), nil
	}

	if len(resp.Choices) == 0 {
		return fallbackProcessedQuery(query), nil
	}

	processed, err := parseProcessedQuery(resp.Choices[0].Message.Content, query)
	if err != nil {
		p.logger.Warn("query processing response unparseable, using regex extraction", "error", err)
		return fallbackProcessedQuery(query), nil
	}

	return processed, nil
}

// parseProcessedQuery decodes the model's JSON analysis, falling back to the
// raw query for missing fields.
func parseProcessedQuery(raw, query string) (models.ProcessedQuery, error) {
	var parsed struct {
		ExpandedQuery string   `json:"expanded_query"`
		Entities      []string `json:"entities"`
		QueryType     string   `json:"query_type"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return models.ProcessedQuery{}, fmt.Errorf("decode query analysis: %w", err)
	}

	processed := models.ProcessedQuery{
		ExpandedQuery: parsed.ExpandedQuery,
		Entities:      dedupEntities(parsed.Entities),
		QueryType:     parsed.QueryType,
	}
	if processed.ExpandedQuery == "" {
		processed.ExpandedQuery = query
	}
	if len(processed.Entities) == 0 {
		processed.Entities = ExtractTickers(query)
	}

	return processed, nil
}

func fallbackProcessedQuery(query string) models.ProcessedQuery {
	return models.ProcessedQuery{
		ExpandedQuery: query,
		Entities:      ExtractTickers(query),
	}
}

// tickerPattern matches $AAPL style cashtags and bare 2-5 letter uppercase
// symbols. Single letters are skipped: too many false positives ("I", "A").
var tickerPattern = regexp.MustCompile(`\$([A-Z]{1,5})\b|\b([A-Z]{2,5})\b`)

// commonWords are uppercase tokens that look like tickers but are not.
var commonWords = map[string]bool{
	"ETF": false, "IPO": false, // legitimate instruments stay
	"AND": true, "THE": true, "FOR": true, "WITH": true, "FROM": true,
	"USD": true, "EUR": true, "API": true, "CEO": true, "GDP": true,
	"YTD": true, "ROI": true, "NYSE": true, "OK": true, "US": true,
}

// ExtractTickers pulls ticker symbols from free text. Cashtags always count;
// bare uppercase tokens count unless they are common non-ticker words.
func ExtractTickers(text string) []string {
	var tickers []string
	seen := map[string]bool{}

	for _, m := range tickerPattern.FindAllStringSubmatch(text, -1) {
		symbol := m[1]
		cashtag := symbol != ""
		if symbol == "" {
			symbol = m[2]
		}
		if symbol == "" || seen[symbol] {
			continue
		}
		if !cashtag && commonWords[strings.ToUpper(symbol)] {
			continue
		}
		seen[symbol] = true
		tickers = append(tickers, symbol)
	}

	return tickers
}

func dedupEntities(entities []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
