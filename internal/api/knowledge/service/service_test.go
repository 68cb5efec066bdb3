package knowledgeService

import (
	"errors"
	"testing"
	"unicode/utf8"

	knowledgeRepository "VoiceBridge/internal/api/knowledge/repository"
	"VoiceBridge/internal/entity"
	"VoiceBridge/pkg/metrics"
	"VoiceBridge/pkg/vectorindex"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/context"
)

type fakeItems struct {
	items []entity.KnowledgeItem
	err   error
}

func (f fakeItems) GetAllItems(ctx context.Context) ([]entity.KnowledgeItem, error) {
	return f.items, f.err
}

type fakeRepo struct {
	items []entity.KnowledgeItem
	err   error
}

func (f *fakeRepo) NewClient(tx bool) (knowledgeRepository.Client, error) {
	return knowledgeRepository.Client{
		Items:    fakeItems{items: f.items, err: f.err},
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

type fakeIndex struct {
	enabled bool
	matches []vectorindex.Match
	err     error
}

func (f fakeIndex) Enabled() bool { return f.enabled }
func (f fakeIndex) TopK() int     { return 5 }
func (f fakeIndex) Query(ctx context.Context, vector []float32, scope string, topK int) ([]vectorindex.Match, error) {
	return f.matches, f.err
}

func newTestService(t *testing.T, repo *fakeRepo, embedder fakeEmbedder, index fakeIndex) IKnowledgeService {
	t.Setenv("KNOWLEDGE_MIN_SCORE", "0.3")
	t.Setenv("KNOWLEDGE_MAX_CONTEXT_CHARS", "4000")

	svc := New(logrus.New(), repo, embedder, index, metrics.New())
	if repo != nil {
		_, err := svc.Reload(context.Background())
		require.NoError(t, err)
	}
	return svc
}

func testItems() []entity.KnowledgeItem {
	return []entity.KnowledgeItem{
		{ID: "faq-1", Scope: "support", Text: "Refunds take 5 days.", Embedding: []float32{1, 0}},
		{ID: "faq-2", Scope: "support", Text: "Shipping is free.", Embedding: []float32{0, 1}},
		{ID: "sales-1", Scope: "sales", Text: "Discounts apply in bulk.", Embedding: []float32{1, 0}},
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, cosineSimilarity([]float32{1, 0}, []float32{1, 0}), 1e-9)
	assert.InDelta(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Equal(t, 0.0, cosineSimilarity([]float32{1, 0}, []float32{1}))
	assert.Equal(t, 0.0, cosineSimilarity([]float32{0, 0}, []float32{0, 0}))
	assert.Equal(t, 0.0, cosineSimilarity(nil, nil))
}

func TestRetrieveLocalFallback(t *testing.T) {
	svc := newTestService(t,
		&fakeRepo{items: testItems()},
		fakeEmbedder{vector: []float32{1, 0}},
		fakeIndex{enabled: false},
	)

	block := svc.Retrieve(context.Background(), "refund policy", "support")

	assert.Contains(t, block, "[#faq-1]\nRefunds take 5 days.")
	assert.NotContains(t, block, "faq-2")
	assert.NotContains(t, block, "sales-1")
}

func TestRetrieveEmptySnapshot(t *testing.T) {
	svc := New(logrus.New(), &fakeRepo{}, fakeEmbedder{vector: []float32{1, 0}}, fakeIndex{}, metrics.New())

	assert.Equal(t, "", svc.Retrieve(context.Background(), "anything", ""))
}

func TestRetrieveEmbeddingFailureDegrades(t *testing.T) {
	svc := newTestService(t,
		&fakeRepo{items: testItems()},
		fakeEmbedder{err: errors.New("quota exceeded")},
		fakeIndex{},
	)

	assert.Equal(t, "", svc.Retrieve(context.Background(), "refund policy", ""))
}

func TestRetrieveRemoteIndexMapsIDs(t *testing.T) {
	svc := newTestService(t,
		&fakeRepo{items: testItems()},
		fakeEmbedder{vector: []float32{1, 0}},
		fakeIndex{
			enabled: true,
			matches: []vectorindex.Match{
				{ID: "faq-2", Score: 0.9},
				{ID: "gone", Score: 0.8},
			},
		},
	)

	block := svc.Retrieve(context.Background(), "shipping", "")

	assert.Contains(t, block, "[#faq-2]\nShipping is free.")
	assert.NotContains(t, block, "gone")
}

func TestRetrieveRemoteFailureFallsBackToLocal(t *testing.T) {
	svc := newTestService(t,
		&fakeRepo{items: testItems()},
		fakeEmbedder{vector: []float32{1, 0}},
		fakeIndex{enabled: true, err: errors.New("index down")},
	)

	block := svc.Retrieve(context.Background(), "refund policy", "support")

	assert.Contains(t, block, "[#faq-1]")
}

func TestBuildContextBlockTruncatesAtBudget(t *testing.T) {
	t.Setenv("KNOWLEDGE_MAX_CONTEXT_CHARS", "30")
	svc := New(logrus.New(), &fakeRepo{}, fakeEmbedder{}, fakeIndex{}, metrics.New()).(*knowledgeSvc)

	block := svc.buildContextBlock([]ScoredItem{
		{ID: "a", Text: "first entry text"},
		{ID: "b", Text: "second entry text"},
	})

	assert.LessOrEqual(t, len(block), 30)
	assert.Contains(t, block, "[#a]")
}

func TestBuildContextBlockTruncatesOnRuneBoundary(t *testing.T) {
	t.Setenv("KNOWLEDGE_MAX_CONTEXT_CHARS", "12")
	svc := New(logrus.New(), &fakeRepo{}, fakeEmbedder{}, fakeIndex{}, metrics.New()).(*knowledgeSvc)

	block := svc.buildContextBlock([]ScoredItem{
		{ID: "a", Text: "日本語テキスト"},
	})

	assert.LessOrEqual(t, len(block), 12)
	assert.True(t, utf8.ValidString(block))
}

func TestReloadSwapsSnapshot(t *testing.T) {
	repo := &fakeRepo{items: testItems()}
	svc := newTestService(t, repo, fakeEmbedder{vector: []float32{1, 0}}, fakeIndex{})

	assert.Equal(t, 3, svc.ItemCount())

	repo.items = repo.items[:1]
	count, err := svc.Reload(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, svc.ItemCount())
}

func TestReloadPropagatesRepositoryError(t *testing.T) {
	repo := &fakeRepo{err: errors.New("db down")}
	svc := New(logrus.New(), repo, fakeEmbedder{}, fakeIndex{}, metrics.New())

	_, err := svc.Reload(context.Background())

	assert.Error(t, err)
}

func TestScoreLocalOrdersByScore(t *testing.T) {
	svc := newTestService(t,
		&fakeRepo{items: []entity.KnowledgeItem{
			{ID: "mid", Text: "mid", Embedding: []float32{1, 1}},
			{ID: "best", Text: "best", Embedding: []float32{1, 0}},
		}},
		fakeEmbedder{vector: []float32{1, 0}},
		fakeIndex{},
	)

	scored := svc.(*knowledgeSvc).scoreLocal([]float32{1, 0}, "", 5)

	require.Len(t, scored, 2)
	assert.Equal(t, "best", scored[0].ID)
	assert.Equal(t, "mid", scored[1].ID)
}
