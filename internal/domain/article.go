package domain

import (
	"time"

	"github.com/google/uuid"
)

const ArticleTitleMaxLength = 250

type MediaKind string

const (
	MediaKindNone  MediaKind = ""
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

type Article struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	Slug           string    `json:"slug"`
	Body           string    `json:"body"`
	Excerpt        string    `json:"excerpt,omitempty"`
	MediaReference string    `json:"mediaReference,omitempty"`
	MediaKind      MediaKind `json:"mediaKind,omitempty"`
	Category       string    `json:"category,omitempty"`
	Keywords       string    `json:"keywords,omitempty"`
	Author         string    `json:"author,omitempty"`
	Locality       string    `json:"locality,omitempty"`
	ViewCount      int64     `json:"viewCount"`
	Published      bool      `json:"published"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// HasMedia reports whether a stored asset is attached.
func (a *Article) HasMedia() bool {
	return a.MediaReference != ""
}

// RankedArticle is one row of the views dashboard.
type RankedArticle struct {
	Position int     `json:"position"`
	Article  Article `json:"article"`
}

type ViewSummary struct {
	Articles          int64   `json:"articles"`
	PublishedArticles int64   `json:"publishedArticles"`
	TotalViews        int64   `json:"totalViews"`
	AverageViews      float64 `json:"averageViews"`
}
