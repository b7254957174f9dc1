package dto

import "github.com/DjordjeVuckovic/lantern/internal/domain"

type RankingQuery struct {
	Limit int `query:"limit" validate:"min=0,max=100"`
}

type RankingEntry struct {
	Position int     `json:"position"`
	Article  Article `json:"article"`
}

type RankingResponse struct {
	Items []RankingEntry `json:"items"`
}

func FromRanking(ranked []domain.RankedArticle, mediaPrefix string) RankingResponse {
	items := make([]RankingEntry, len(ranked))
	for i, r := range ranked {
		items[i] = RankingEntry{Position: r.Position, Article: Summary(r.Article, mediaPrefix)}
	}
	return RankingResponse{Items: items}
}

type SummaryResponse struct {
	Articles          int64   `json:"articles"`
	PublishedArticles int64   `json:"publishedArticles"`
	TotalViews        int64   `json:"totalViews"`
	AverageViews      float64 `json:"averageViews"`
}

type ErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
