package knowledgeService

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"VoiceBridge/internal/entity"

	knowledgeRepository "VoiceBridge/internal/api/knowledge/repository"
	contextPkg "VoiceBridge/pkg/context"
	"VoiceBridge/pkg/metrics"
	openaiPkg "VoiceBridge/pkg/openai"
	"VoiceBridge/pkg/vectorindex"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IKnowledgeService interface {
	// Retrieve returns a context block for the query, or "" when nothing
	// relevant is available. Retrieval failures degrade to "" rather than
	// failing the conversation turn.
	Retrieve(ctx context.Context, query, scope string) string
	Search(ctx context.Context, query, scope string, topK int) ([]ScoredItem, error)
	Reload(ctx context.Context) (int, error)
	ItemCount() int
}

type ScoredItem struct {
	ID    string
	Score float64
	Text  string
}

type knowledgeSvc struct {
	log      *logrus.Logger
	repo     knowledgeRepository.Repository
	embedder openaiPkg.IEmbedder
	index    vectorindex.IVectorIndex
	metrics  *metrics.State

	minScore        float64
	maxContextChars int

	snapshot atomic.Pointer[[]entity.KnowledgeItem]
}

func New(
	log *logrus.Logger,
	repo knowledgeRepository.Repository,
	embedder openaiPkg.IEmbedder,
	index vectorindex.IVectorIndex,
	metricsState *metrics.State,
) IKnowledgeService {
	s := &knowledgeSvc{
		log:             log,
		repo:            repo,
		embedder:        embedder,
		index:           index,
		metrics:         metricsState,
		minScore:        0.30,
		maxContextChars: 4000,
	}

	if v := os.Getenv("KNOWLEDGE_MIN_SCORE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.minScore = f
		}
	}
	if v := os.Getenv("KNOWLEDGE_MAX_CONTEXT_CHARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.maxContextChars = n
		}
	}

	empty := []entity.KnowledgeItem{}
	s.snapshot.Store(&empty)

	return s
}

func (s *knowledgeSvc) ItemCount() int {
	return len(*s.snapshot.Load())
}

// Reload replaces the in-memory item snapshot from the database. The swap is
// atomic, so concurrent retrievals always see a complete set.
func (s *knowledgeSvc) Reload(ctx context.Context) (int, error) {
	repoClient, err := s.repo.NewClient(false)
	if err != nil {
		return 0, err
	}

	items, err := repoClient.Items.GetAllItems(ctx)
	if err != nil {
		return 0, err
	}

	s.snapshot.Store(&items)

	s.log.WithFields(logrus.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"item_count": len(items),
	}).Info("Knowledge snapshot reloaded")

	return len(items), nil
}

func (s *knowledgeSvc) Retrieve(ctx context.Context, query, scope string) string {
	requestID := contextPkg.GetRequestID(ctx)
	s.metrics.RetrievalQuery()

	items := *s.snapshot.Load()
	if len(items) == 0 || strings.TrimSpace(query) == "" {
		return ""
	}

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Query embedding failed, skipping retrieval")
		return ""
	}

	if s.index.Enabled() {
		if block := s.retrieveRemote(ctx, vector, scope); block != "" {
			return block
		}
	}

	scored := s.scoreLocal(vector, scope, s.index.TopK())
	return s.buildContextBlock(scored)
}

func (s *knowledgeSvc) Search(ctx context.Context, query, scope string, topK int) ([]ScoredItem, error) {
	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	if topK <= 0 {
		topK = s.index.TopK()
	}

	return s.scoreLocal(vector, scope, topK), nil
}

// retrieveRemote maps remote index hits back through the local snapshot; ids
// the snapshot no longer holds are dropped.
func (s *knowledgeSvc) retrieveRemote(ctx context.Context, vector []float32, scope string) string {
	matches, err := s.index.Query(ctx, vector, scope, s.index.TopK())
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Warn("Remote vector index query failed, falling back to local similarity")
		return ""
	}

	byID := make(map[string]entity.KnowledgeItem, len(*s.snapshot.Load()))
	for _, item := range *s.snapshot.Load() {
		byID[item.ID] = item
	}

	scored := make([]ScoredItem, 0, len(matches))
	for _, m := range matches {
		item, ok := byID[m.ID]
		if !ok {
			continue
		}
		scored = append(scored, ScoredItem{ID: item.ID, Score: m.Score, Text: item.Text})
	}

	return s.buildContextBlock(scored)
}

func (s *knowledgeSvc) scoreLocal(vector []float32, scope string, topK int) []ScoredItem {
	items := *s.snapshot.Load()

	scored := make([]ScoredItem, 0, len(items))
	for _, item := range items {
		if scope != "" && item.Scope != "" && item.Scope != scope {
			continue
		}

		score := cosineSimilarity(vector, item.Embedding)
		if score < s.minScore {
			continue
		}

		scored = append(scored, ScoredItem{ID: item.ID, Score: score, Text: item.Text})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if len(scored) > topK {
		scored = scored[:topK]
	}

	return scored
}

// buildContextBlock concatenates "[#id]\ntext" blocks up to the configured
// character budget, truncating the last block that crosses it.
func (s *knowledgeSvc) buildContextBlock(items []ScoredItem) string {
	var b strings.Builder

	for _, item := range items {
		block := fmt.Sprintf("[#%s]\n%s", item.ID, item.Text)
		if b.Len() > 0 {
			block = "\n\n" + block
		}

		remaining := s.maxContextChars - b.Len()
		if remaining <= 0 {
			break
		}
		if len(block) > remaining {
			// Back up to a rune boundary so the cut never splits a
			// multi-byte character.
			for remaining > 0 && !utf8.RuneStart(block[remaining]) {
				remaining--
			}
			b.WriteString(block[:remaining])
			break
		}

		b.WriteString(block)
	}

	return b.String()
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
