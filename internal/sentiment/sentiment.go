// Package sentiment scores the tone of financial news with a Gemini model.
package sentiment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ResearchDesk/internal/model"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const (
	// MaxArticles caps how many articles are sent to the model.
	MaxArticles = 10

	DefaultModel = "gemini-2.5-flash-lite"

	fallbackSummaryLen = 500
)

var ErrNoArticles = errors.New("no news articles provided")

// Analyzer scores a batch of articles.
type Analyzer interface {
	Analyze(ctx context.Context, articles []model.Article) (model.SentimentSummary, error)
}

// GeminiAnalyzer calls the Gemini API.
type GeminiAnalyzer struct {
	client     *genai.Client
	modelName  string
	maxRetries int
}

// NewGeminiAnalyzer creates an analyzer for the given API key and model.
func NewGeminiAnalyzer(ctx context.Context, apiKey, modelName string) (*GeminiAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultModel
	}
	return &GeminiAnalyzer{client: client, modelName: modelName, maxRetries: 3}, nil
}

// Analyze sends at most MaxArticles articles to the model and parses its verdict.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, articles []model.Article) (model.SentimentSummary, error) {
	if len(articles) == 0 {
		return model.SentimentSummary{}, ErrNoArticles
	}

	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(float32(0.2)),
		ResponseMIMEType: "application/json",
	}
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{genai.NewPartFromText(BuildPrompt(articles))},
	}}

	var resp *genai.GenerateContentResponse
	var err error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		resp, err = g.client.Models.GenerateContent(ctx, g.modelName, contents, config)
		if err == nil {
			break
		}
		if attempt == g.maxRetries {
			break
		}
		backoff := time.Duration(1<<uint(attempt)) * time.Second
		log.Warn().Err(err).Int("attempt", attempt+1).Dur("backoff", backoff).Msg("gemini sentiment call failed, retrying")
		select {
		case <-ctx.Done():
			return model.SentimentSummary{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	if err != nil {
		return model.SentimentSummary{}, fmt.Errorf("generate sentiment (model: %s): %w", g.modelName, err)
	}

	text := resp.Text()
	if text == "" {
		return model.SentimentSummary{}, errors.New("empty response from gemini")
	}
	return ParseSentiment(text), nil
}

// BuildPrompt renders the analysis prompt for up to MaxArticles articles.
func BuildPrompt(articles []model.Article) string {
	var b strings.Builder
	b.WriteString("Analyze the sentiment of the following financial news articles about stocks.\n\n")
	b.WriteString("For each article, determine:\n")
	b.WriteString("1. Sentiment: \"positive\", \"neutral\", or \"negative\"\n")
	b.WriteString("2. Key themes: regulation, earnings, risks, partnerships, product launches, etc.\n")
	b.WriteString("3. Confidence level: 1-10\n\nArticles:\n")
	for i, a := range articles {
		if i >= MaxArticles {
			break
		}
		b.WriteString(fmt.Sprintf("Article %d:\nTitle: %s\nSnippet: %s\n\n", i+1, a.Title, a.Snippet))
	}
	b.WriteString(`Respond with JSON only, using this structure:
{
  "overall_sentiment": "positive|neutral|negative",
  "sentiment_score": 0.0-1.0,
  "articles": [{"article_number": 1, "sentiment": "positive|neutral|negative", "confidence": 1-10, "themes": ["theme"]}],
  "key_themes": ["theme"],
  "summary": "Brief summary of overall sentiment and key points"
}`)
	return b.String()
}

// ParseSentiment decodes a model reply, tolerating markdown code fences.
// Unparseable replies yield a neutral 0.5 summary carrying the first 500
// characters of the reply.
func ParseSentiment(text string) model.SentimentSummary {
	body := stripFences(text)
	var s model.SentimentSummary
	if err := json.Unmarshal([]byte(body), &s); err != nil || s.OverallSentiment == "" {
		summary := body
		if r := []rune(summary); len(r) > fallbackSummaryLen {
			summary = string(r[:fallbackSummaryLen])
		}
		return model.SentimentSummary{
			OverallSentiment: model.SentimentNeutral,
			SentimentScore:   0.5,
			Articles:         []model.ArticleSentiment{},
			KeyThemes:        []string{},
			Summary:          summary,
		}
	}
	if s.Articles == nil {
		s.Articles = []model.ArticleSentiment{}
	}
	if s.KeyThemes == nil {
		s.KeyThemes = []string{}
	}
	return s
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	for _, fence := range []string{"```json", "```"} {
		start := strings.Index(text, fence)
		if start < 0 {
			continue
		}
		rest := text[start+len(fence):]
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	return text
}
