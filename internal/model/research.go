package model

import "time"

// Sentiment labels produced by the news sentiment analyzer.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// ArticleSentiment is the per-article verdict of the sentiment analyzer.
type ArticleSentiment struct {
	ArticleNumber int      `json:"article_number"`
	Sentiment     string   `json:"sentiment"`
	Confidence    float64  `json:"confidence"`
	Themes        []string `json:"themes"`
}

// SentimentSummary aggregates the tone of a batch of news articles.
type SentimentSummary struct {
	OverallSentiment string             `json:"overall_sentiment"`
	SentimentScore   float64            `json:"sentiment_score"`
	Articles         []ArticleSentiment `json:"articles"`
	KeyThemes        []string           `json:"key_themes"`
	Summary          string             `json:"summary"`
}

// Article is one news item handed to the sentiment analyzer.
type Article struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// MetricsSnapshot is a deterministic quantitative summary of one ticker,
// computed outside the language model.
type MetricsSnapshot struct {
	Ticker               string
	Period               Period
	LatestPrice          float64
	SMA20                float64
	EMA12                float64
	RSI14                float64
	High                 float64
	Low                  float64
	DailyVolatility      float64
	AnnualizedVolatility float64
	MaxDrawdown          float64
	TotalReturn          float64
	AnnualizedReturn     float64
	DataPoints           int
	Valuation            *ValuationRecord
	Risk                 *RiskAssessment
	TakenAt              time.Time
}

// FactorScore is one scored input of a risk assessment.
type FactorScore struct {
	Name       string
	RawScore   float64
	Weight     float64
	Weighted   float64
	Commentary string
}

// RiskAssessment is the factor-scored risk view of a snapshot.
type RiskAssessment struct {
	Factors    []FactorScore
	TotalScore float64
	Level      string
	WarningMsg string
}

// TickerAnalysis collects the specialist outputs for one ticker.
type TickerAnalysis struct {
	Ticker    string
	News      string
	Market    string
	Valuation string
	Err       error
}

// ResearchReport is the end product of one research run.
type ResearchReport struct {
	SessionID  string
	Query      string
	Tickers    []string
	Analyses   []TickerAnalysis
	Comparison string
	Markdown   string
	Snapshots  []MetricsSnapshot
	StartedAt  time.Time
	Duration   time.Duration
}
