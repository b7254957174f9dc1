package publishing

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/lantern/internal/apperr"
	"github.com/DjordjeVuckovic/lantern/internal/auth"
	"github.com/DjordjeVuckovic/lantern/internal/domain"
	"github.com/DjordjeVuckovic/lantern/internal/media"
	"github.com/DjordjeVuckovic/lantern/internal/storage"
	"github.com/DjordjeVuckovic/lantern/internal/storage/in_mem"
	"github.com/DjordjeVuckovic/lantern/pkg/pagination"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var reporter = domain.Session{Token: "valid", ActorID: "reporter-1", Author: "Reporter One"}

type fakeGate struct {
	mu      sync.Mutex
	err     error
	actions []auth.Action
}

func (g *fakeGate) Authorize(_ context.Context, token string, action auth.Action, _ string) (domain.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.actions = append(g.actions, action)
	if g.err != nil {
		return domain.Session{}, g.err
	}
	if token != reporter.Token {
		return domain.Session{}, apperr.ErrSessionExpired
	}
	return reporter, nil
}

type fakeEnhancer struct {
	mu        sync.Mutex
	err       error
	enhanced  []string
	discarded []string
}

func (e *fakeEnhancer) Enhance(_ context.Context, stored media.Stored) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enhanced = append(e.enhanced, stored.Name)
	return e.err
}

func (e *fakeEnhancer) Discard(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.discarded = append(e.discarded, name)
	return nil
}

type fakeIndexer struct {
	mu      sync.Mutex
	err     error
	indexed []domain.Article
}

func (i *fakeIndexer) IndexArticle(_ context.Context, a domain.Article) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.indexed = append(i.indexed, a)
	return i.err
}

// racingStore lets a competing writer claim the slug right before the
// first transaction commits.
type racingStore struct {
	*in_mem.Store
	once sync.Once
}

func (r *racingStore) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return r.Store.WithTx(ctx, func(tx storage.Tx) error {
		r.once.Do(func() {
			_ = r.Store.WithTx(ctx, func(other storage.Tx) error {
				return other.InsertArticle(ctx, domain.Article{ID: uuid.New(), Title: "Rival", Slug: "breaking-news"})
			})
		})
		return fn(tx)
	})
}

// brokenTxStore fails every transaction after fn ran.
type brokenTxStore struct {
	*in_mem.Store
	err error
}

func (b *brokenTxStore) WithTx(ctx context.Context, fn func(tx storage.Tx) error) error {
	return b.Store.WithTx(ctx, func(tx storage.Tx) error {
		if err := fn(tx); err != nil {
			return err
		}
		return b.err
	})
}

type harness struct {
	pipeline *Pipeline
	store    *in_mem.Store
	gate     *fakeGate
	enhancer *fakeEnhancer
	indexer  *fakeIndexer
	mediaDir string
	clock    *time.Time
}

func newHarness(t *testing.T, wrap func(*in_mem.Store) storage.Store) *harness {
	t.Helper()
	store := in_mem.NewStore()
	var s storage.Store = store
	if wrap != nil {
		s = wrap(store)
	}

	dir := t.TempDir()
	ingester, err := media.NewIngester(media.Config{Dir: dir, MaxBytes: 1 << 10})
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	h := &harness{
		store:    store,
		gate:     &fakeGate{},
		enhancer: &fakeEnhancer{},
		indexer:  &fakeIndexer{},
		mediaDir: dir,
		clock:    &now,
	}
	h.pipeline = NewPipeline(DefaultConfig(), h.gate, s, ingester,
		WithEnhancer(h.enhancer),
		WithIndexer(h.indexer),
		WithClock(func() time.Time { return *h.clock }),
	)
	return h
}

func (h *harness) files(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.mediaDir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func request(title string) Request {
	return Request{
		Token:      reporter.Token,
		RemoteAddr: "10.0.0.1",
		Title:      title,
		Body:       `<p onclick="x()">Hello <script>alert(1)</script><b>world</b></p>`,
		Category:   " local ",
		Keywords:   "weather",
		Locality:   "",
		Published:  true,
	}
}

func TestPipeline_Publish(t *testing.T) {
	h := newHarness(t, nil)

	req := request("Breaking News!")
	req.Media = &Upload{Filename: "Photo.JPG", Size: 4, Content: strings.NewReader("jpeg")}

	a, err := h.pipeline.Publish(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "breaking-news", a.Slug)
	assert.Equal(t, "<p>Hello <b>world</b></p>", a.Body)
	assert.Equal(t, "Hello world", a.Excerpt)
	assert.Equal(t, "Reporter One", a.Author)
	assert.Equal(t, "local", a.Category)
	assert.Equal(t, domain.MediaKindImage, a.MediaKind)
	assert.True(t, strings.HasSuffix(a.MediaReference, "_photo.jpg"))
	assert.Equal(t, []string{a.MediaReference}, h.files(t))
	assert.Equal(t, []auth.Action{auth.ActionPublish}, h.gate.actions)

	stored, err := h.store.GetBySlug(context.Background(), "breaking-news")
	require.NoError(t, err)
	assert.Equal(t, a.ID, stored.ID)

	audit := h.store.AuditLog()
	require.Len(t, audit, 1)
	assert.Equal(t, domain.AuditPublish, audit[0].Action)
	assert.Equal(t, domain.OutcomeSuccess, audit[0].Outcome)
	require.NotNil(t, audit[0].ActorID)
	assert.Equal(t, "reporter-1", *audit[0].ActorID)

	assert.Equal(t, []string{a.MediaReference}, h.enhancer.enhanced)
	require.Len(t, h.indexer.indexed, 1)
	assert.Equal(t, a.ID, h.indexer.indexed[0].ID)
}

func TestPipeline_PublishSameTitleGetsSuffix(t *testing.T) {
	h := newHarness(t, nil)

	first, err := h.pipeline.Publish(context.Background(), request("Storm Warning"))
	require.NoError(t, err)
	second, err := h.pipeline.Publish(context.Background(), request("Storm Warning"))
	require.NoError(t, err)

	req := request("Storm Warning")
	req.Locality = "Novi Sad"
	third, err := h.pipeline.Publish(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "storm-warning", first.Slug)
	assert.Equal(t, "storm-warning-1", second.Slug)
	assert.Equal(t, "storm-warning-novi-sad", third.Slug)
}

func TestPipeline_PublishDenied(t *testing.T) {
	h := newHarness(t, nil)
	h.gate.err = apperr.ErrRateLimited

	req := request("Title")
	req.Media = &Upload{Filename: "a.png", Size: 3, Content: strings.NewReader("png")}

	_, err := h.pipeline.Publish(context.Background(), req)
	assert.ErrorIs(t, err, apperr.ErrRateLimited)
	assert.Empty(t, h.files(t))

	sum, _ := h.store.ViewSummary(context.Background())
	assert.Zero(t, sum.Articles)
}

func TestPipeline_AdmitThenPublish(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.pipeline.Admit(context.Background(), "expired", auth.ActionPublish, "10.0.0.1")
	assert.ErrorIs(t, err, apperr.ErrSessionExpired)

	session, err := h.pipeline.Admit(context.Background(), reporter.Token, auth.ActionPublish, "10.0.0.1")
	require.NoError(t, err)

	req := request("Admitted Story")
	req.Token = ""
	article, err := h.pipeline.PublishAs(context.Background(), session, req)
	require.NoError(t, err)
	assert.Equal(t, "admitted-story", article.Slug)
	assert.Equal(t, []auth.Action{auth.ActionPublish, auth.ActionPublish}, h.gate.actions)
}

func TestPipeline_RejectAuditsAdmittedFailure(t *testing.T) {
	h := newHarness(t, nil)
	cause := apperr.NewFieldValidation("invalid request", map[string]string{"title": "is required"})

	err := h.pipeline.Reject(context.Background(), reporter, auth.ActionEdit, "10.0.0.1", cause)
	assert.ErrorIs(t, err, cause)

	entries := h.store.AuditLog()
	require.Len(t, entries, 1)
	assert.Equal(t, domain.AuditEdit, entries[0].Action)
	assert.Equal(t, domain.OutcomeFailure, entries[0].Outcome)
	assert.Equal(t, "validation: invalid request", entries[0].Detail)

	err = h.pipeline.Reject(context.Background(), reporter, auth.Action("delete"), "10.0.0.1", cause)
	assert.ErrorIs(t, err, auth.ErrUnknownAction)
	assert.Len(t, h.store.AuditLog(), 1)
}

func TestPipeline_PublishExpiredSession(t *testing.T) {
	h := newHarness(t, nil)

	req := request("Title")
	req.Token = "expired"
	_, err := h.pipeline.Publish(context.Background(), req)
	assert.ErrorIs(t, err, apperr.ErrSessionExpired)
}

func TestPipeline_PublishValidation(t *testing.T) {
	h := newHarness(t, nil)

	tests := []struct {
		name  string
		title string
	}{
		{"blank", "   "},
		{"too long", strings.Repeat("a", domain.ArticleTitleMaxLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.pipeline.Publish(context.Background(), request(tt.title))
			var vErr *apperr.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Contains(t, vErr.Fields, "title")
		})
	}

	audit := h.store.AuditLog()
	require.Len(t, audit, 2)
	assert.Equal(t, domain.OutcomeFailure, audit[0].Outcome)
}

func TestPipeline_PublishRejectedMedia(t *testing.T) {
	h := newHarness(t, nil)

	req := request("Title")
	req.Media = &Upload{Filename: "evil.exe", Size: 3, Content: strings.NewReader("MZ!")}

	_, err := h.pipeline.Publish(context.Background(), req)
	var mErr *apperr.MediaError
	require.ErrorAs(t, err, &mErr)
	assert.Empty(t, h.files(t))

	audit := h.store.AuditLog()
	require.Len(t, audit, 1)
	assert.Contains(t, audit[0].Detail, "media rejected")
}

func TestPipeline_PublishRetriesOnceAfterSlugRace(t *testing.T) {
	h := newHarness(t, func(s *in_mem.Store) storage.Store { return &racingStore{Store: s} })

	a, err := h.pipeline.Publish(context.Background(), request("Breaking News"))
	require.NoError(t, err)
	assert.Equal(t, "breaking-news-1", a.Slug)
}

func TestPipeline_PublishFailureRemovesMedia(t *testing.T) {
	h := newHarness(t, func(s *in_mem.Store) storage.Store {
		return &brokenTxStore{Store: s, err: errors.New("connection reset")}
	})

	req := request("Title")
	req.Media = &Upload{Filename: "clip.mp4", Size: 5, Content: strings.NewReader("video")}

	_, err := h.pipeline.Publish(context.Background(), req)
	require.Error(t, err)
	assert.Empty(t, h.files(t))
	assert.Len(t, h.enhancer.discarded, 1)
	assert.Empty(t, h.indexer.indexed)

	audit := h.store.AuditLog()
	require.Len(t, audit, 1)
	assert.Equal(t, domain.OutcomeFailure, audit[0].Outcome)
}

func TestPipeline_BestEffortFollowUpsNeverFailPublish(t *testing.T) {
	h := newHarness(t, nil)
	h.enhancer.err = errors.New("decoder exploded")
	h.indexer.err = errors.New("cluster red")

	req := request("Title")
	req.Media = &Upload{Filename: "a.png", Size: 3, Content: strings.NewReader("png")}

	_, err := h.pipeline.Publish(context.Background(), req)
	assert.NoError(t, err)
}

func TestPipeline_Edit(t *testing.T) {
	h := newHarness(t, nil)

	req := request("Original")
	req.Media = &Upload{Filename: "old.png", Size: 3, Content: strings.NewReader("png")}
	original, err := h.pipeline.Publish(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, h.store.IncrementViews(context.Background(), original.ID))

	edit := request("Completely New Title")
	edit.Body = "<h2>Update</h2>"
	edit.Published = false
	edit.Media = &Upload{Filename: "new.webp", Size: 4, Content: strings.NewReader("webp")}

	updated, err := h.pipeline.Edit(context.Background(), original.ID, edit)
	require.NoError(t, err)

	assert.Equal(t, original.ID, updated.ID)
	assert.Equal(t, "original", updated.Slug)
	assert.Equal(t, "Completely New Title", updated.Title)
	assert.Equal(t, "<h2>Update</h2>", updated.Body)
	assert.False(t, updated.Published)
	assert.Equal(t, int64(1), updated.ViewCount)
	assert.True(t, updated.UpdatedAt.After(original.UpdatedAt))
	assert.True(t, strings.HasSuffix(updated.MediaReference, "_new.webp"))
	assert.Equal(t, []string{updated.MediaReference}, h.files(t))
	assert.Contains(t, h.enhancer.discarded, original.MediaReference)
	assert.Equal(t, []auth.Action{auth.ActionPublish, auth.ActionEdit}, h.gate.actions)

	stored, err := h.store.GetByID(context.Background(), original.ID)
	require.NoError(t, err)
	assert.Equal(t, "Completely New Title", stored.Title)

	audit := h.store.AuditLog()
	require.Len(t, audit, 2)
	assert.Equal(t, domain.AuditEdit, audit[1].Action)
}

func TestPipeline_EditClearsMedia(t *testing.T) {
	h := newHarness(t, nil)

	req := request("With media")
	req.Media = &Upload{Filename: "a.gif", Size: 3, Content: strings.NewReader("gif")}
	original, err := h.pipeline.Publish(context.Background(), req)
	require.NoError(t, err)

	edit := request("With media")
	edit.ClearMedia = true
	updated, err := h.pipeline.Edit(context.Background(), original.ID, edit)
	require.NoError(t, err)

	assert.Empty(t, updated.MediaReference)
	assert.Equal(t, domain.MediaKindNone, updated.MediaKind)
	assert.Empty(t, h.files(t))
}

func TestPipeline_EditMissingArticle(t *testing.T) {
	h := newHarness(t, nil)

	edit := request("Title")
	edit.Media = &Upload{Filename: "a.png", Size: 3, Content: strings.NewReader("png")}
	_, err := h.pipeline.Edit(context.Background(), uuid.New(), edit)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Empty(t, h.files(t))
}

func TestPipeline_ReadAndFeed(t *testing.T) {
	h := newHarness(t, nil)

	published, err := h.pipeline.Publish(context.Background(), request("Visible"))
	require.NoError(t, err)

	*h.clock = h.clock.Add(time.Minute)
	draftReq := request("Hidden")
	draftReq.Published = false
	_, err = h.pipeline.Publish(context.Background(), draftReq)
	require.NoError(t, err)

	_, err = h.pipeline.Read(context.Background(), "hidden")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	for i := 1; i <= 3; i++ {
		read, err := h.pipeline.Read(context.Background(), "visible")
		require.NoError(t, err)
		assert.Equal(t, int64(i), read.ViewCount)
	}
	stored, err := h.store.GetByID(context.Background(), published.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.ViewCount)

	feed, err := h.pipeline.Feed(context.Background(), pagination.OffsetRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), feed.Total)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "visible", feed.Items[0].Slug)
	assert.Equal(t, pagination.PageDefaultSize, feed.Size)
}

func TestPipeline_RecordViewUnknownArticle(t *testing.T) {
	h := newHarness(t, nil)
	assert.NotPanics(t, func() {
		h.pipeline.RecordView(context.Background(), uuid.New())
	})
}
