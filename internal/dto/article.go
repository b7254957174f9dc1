package dto

import (
	"time"

	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/google/uuid"
)

// ArticleForm is the multipart form posted by the staff panel. The media
// file travels as the "media" part and is read separately.
type ArticleForm struct {
	Title      string `form:"title" json:"title" validate:"notblank,max=250"`
	Body       string `form:"body" json:"body" validate:"max=200000"`
	Category   string `form:"category" json:"category" validate:"max=100"`
	Keywords   string `form:"keywords" json:"keywords" validate:"max=500"`
	Locality   string `form:"locality" json:"locality" validate:"max=120"`
	Published  bool   `form:"published" json:"published"`
	ClearMedia bool   `form:"clear_media" json:"clear_media"`
}

type PublishResponse struct {
	ID   uuid.UUID `json:"id"`
	Slug string    `json:"slug"`
}

type Article struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Body      string    `json:"body,omitempty"`
	Excerpt   string    `json:"excerpt,omitempty"`
	MediaURL  string    `json:"mediaUrl,omitempty"`
	ThumbURL  string    `json:"thumbnailUrl,omitempty"`
	MediaKind string    `json:"mediaKind,omitempty"`
	Category  string    `json:"category,omitempty"`
	Keywords  string    `json:"keywords,omitempty"`
	Author    string    `json:"author,omitempty"`
	Locality  string    `json:"locality,omitempty"`
	ViewCount int64     `json:"viewCount"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FromArticle maps a domain article. mediaPrefix is joined with the stored
// media name to build the public URL.
func FromArticle(a domain.Article, mediaPrefix string) Article {
	out := Article{
		ID:        a.ID,
		Title:     a.Title,
		Slug:      a.Slug,
		Body:      a.Body,
		Excerpt:   a.Excerpt,
		MediaKind: string(a.MediaKind),
		Category:  a.Category,
		Keywords:  a.Keywords,
		Author:    a.Author,
		Locality:  a.Locality,
		ViewCount: a.ViewCount,
		Published: a.Published,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
	if a.HasMedia() {
		out.MediaURL = mediaPrefix + a.MediaReference
		if a.MediaKind == domain.MediaKindImage {
			out.ThumbURL = out.MediaURL + "/thumbnail"
		}
	}
	return out
}

// Summary drops the body for list views.
func Summary(a domain.Article, mediaPrefix string) Article {
	out := FromArticle(a, mediaPrefix)
	out.Body = ""
	return out
}

type FeedResponse struct {
	Items   []Article `json:"items"`
	Total   int64     `json:"total"`
	Page    int       `json:"page"`
	Size    int       `json:"size"`
	HasMore bool      `json:"has_more"`
}
