package model

import (
	"time"
)

// Sentiment is one of the fixed categories the upstream LLM classifier is
// allowed to return for a press release. Anything else is rejected at import.
type Sentiment string

const (
	SentimentExtremelyPositive Sentiment = "EXTREMELY_POSITIVE"
	SentimentVeryPositive      Sentiment = "VERY_POSITIVE"
	SentimentPositive          Sentiment = "POSITIVE"
	SentimentNeutral           Sentiment = "NEUTRAL"
	SentimentNegative          Sentiment = "NEGATIVE"
	SentimentNA                Sentiment = "N/A"
)

func (s Sentiment) Valid() bool {
	switch s {
	case SentimentExtremelyPositive, SentimentVeryPositive, SentimentPositive,
		SentimentNeutral, SentimentNegative, SentimentNA:
		return true
	}
	return false
}

// NewsItem is one classified press release as supplied by the ingestion
// pipeline. Date is the trading date the release may be acted on, which is
// strictly after PublishedAt.
type NewsItem struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Symbol       string    `json:"symbol" gorm:"type:varchar(20);not null;index:idx_press_releases_symbol_date,priority:1"`
	Date         time.Time `json:"date"   gorm:"not null;index:idx_press_releases_symbol_date,priority:2"`
	Headline     string    `json:"headline" gorm:"size:1024"`
	Sentiment    Sentiment `json:"sentiment" gorm:"type:varchar(30);not null"`
	TitleMatched bool      `json:"title_matched" gorm:"not null"`
	PublishedAt  time.Time `json:"published_at"`
	CreatedAt    time.Time `json:"created_at"`
}

func (NewsItem) TableName() string {
	return "press_releases"
}
