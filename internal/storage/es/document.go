package es

import (
	"time"

	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
)

// ArticleDocument is the search projection of a published article. Bodies
// are not indexed; the excerpt carries the searchable text.
type ArticleDocument struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Excerpt   string    `json:"excerpt"`
	Category  string    `json:"category"`
	Keywords  string    `json:"keywords"`
	Author    string    `json:"author"`
	Locality  string    `json:"locality"`
	MediaKind string    `json:"media_kind,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IndexedAt time.Time `json:"indexed_at"`
}

func toDocument(a domain.Article, indexedAt time.Time) ArticleDocument {
	return ArticleDocument{
		ID:        a.ID.String(),
		Title:     a.Title,
		Slug:      a.Slug,
		Excerpt:   a.Excerpt,
		Category:  a.Category,
		Keywords:  a.Keywords,
		Author:    a.Author,
		Locality:  a.Locality,
		MediaKind: string(a.MediaKind),
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
		IndexedAt: indexedAt,
	}
}

const analyzerName = "article_analyzer"

func buildSettings() types.IndexSettings {
	return types.IndexSettings{
		Analysis: &types.IndexSettingsAnalysis{
			Analyzer: map[string]types.Analyzer{
				analyzerName: types.StandardAnalyzer{
					Stopwords: []string{"_none_"},
				},
			},
		},
	}
}

func buildMapping() types.TypeMapping {
	return types.TypeMapping{
		Properties: map[string]types.Property{
			"id":         types.NewKeywordProperty(),
			"title":      textWithKeyword(analyzerName),
			"slug":       types.NewKeywordProperty(),
			"excerpt":    text(analyzerName),
			"category":   types.NewKeywordProperty(),
			"keywords":   text(analyzerName),
			"author":     textWithKeyword(""),
			"locality":   types.NewKeywordProperty(),
			"media_kind": types.NewKeywordProperty(),
			"created_at": types.NewDateProperty(),
			"updated_at": types.NewDateProperty(),
			"indexed_at": types.NewDateProperty(),
		},
	}
}

func text(analyzer string) *types.TextProperty {
	p := types.NewTextProperty()
	if analyzer != "" {
		p.Analyzer = &analyzer
	}
	return p
}

func textWithKeyword(analyzer string) *types.TextProperty {
	p := text(analyzer)
	p.Fields = map[string]types.Property{
		"keyword": types.NewKeywordProperty(),
	}
	return p
}
