package app

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"rulebook-assistant/internal/ai"
	"rulebook-assistant/internal/config"
	"rulebook-assistant/internal/model"
)

const defaultTopK = 4

const ruleSpecialistPrompt = `You are an expert board game rules specialist. Your job is to help players understand game rules, clarify confusing situations, and explain how to play.

When answering:
- Be clear and precise about game mechanics
- Use examples when helpful to illustrate rules
- If a rule interaction is ambiguous, explain the most common interpretation
- Reference the game name and specific sections when possible

Use only the information from the provided rulebook context. If the context does not contain enough information, say so. Do not make up rules.`

const researchAssistantPrompt = `You are a helpful research assistant.
Answer the question concisely and accurately using only the information from the provided context. If the context does not contain enough information, say so.`

var (
	ErrNoRulebooks        = errors.New("no rulebooks to search")
	ErrNoChunks           = errors.New("no chunks found for retrieval")
	ErrUnknownProvider    = errors.New("unknown llm provider")
	ErrProviderKeyMissing = errors.New("llm provider api key is not configured")
	ErrProviderRequest    = errors.New("llm provider request failed")
	ErrRecordEnqueue      = errors.New("qa record enqueue failed")
)

// RulebookSource and ChunkSource are the slices of the repositories the
// answer path needs.
type RulebookSource interface {
	GetVisible(id, userID uint) (*model.Rulebook, error)
	ListVisible(userID uint) ([]model.Rulebook, error)
}

type ChunkSource interface {
	ListByRulebookID(rulebookID uint) ([]model.Chunk, error)
}

// QAPublisher hands finished question/answer pairs to the async persist queue.
type QAPublisher interface {
	Publish(ctx context.Context, record model.QARecord) error
}

// AnswerCache serves previously generated answers. Version changes whenever
// the user's visible library changes, so stale answers fall out of reach.
type AnswerCache interface {
	Version(ctx context.Context, userID uint) (int64, error)
	GetAnswer(ctx context.Context, key string) (string, bool, error)
	SetAnswer(ctx context.Context, key, answer string) error
}

// AnswerService runs the question side of the pipeline: embed the question,
// rank chunks per rulebook, build the prompt, call the selected provider.
type AnswerService struct {
	books     RulebookSource
	chunks    ChunkSource
	publisher QAPublisher
	cache     AnswerCache
	llmClient *ai.OpenAICompatibleClient
	embConfig ai.EmbeddingConfig

	providers       map[string]config.ProviderConfig
	defaultProvider string
	topK            int
}

func NewAnswerService(
	books RulebookSource,
	chunks ChunkSource,
	publisher QAPublisher,
	cache AnswerCache,
	llmClient *ai.OpenAICompatibleClient,
	embConfig ai.EmbeddingConfig,
	providers map[string]config.ProviderConfig,
	defaultProvider string,
	topK int,
) *AnswerService {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &AnswerService{
		books:           books,
		chunks:          chunks,
		publisher:       publisher,
		cache:           cache,
		llmClient:       llmClient,
		embConfig:       embConfig,
		providers:       providers,
		defaultProvider: defaultProvider,
		topK:            topK,
	}
}

type AskInput struct {
	UserID       uint
	Question     string
	RulebookIDs  []uint // empty = all visible rulebooks
	Provider     string // empty = configured default
	TopK         int
	FullDocument bool // skip retrieval, use the whole document as context
}

type SourceChunk struct {
	RulebookID   uint    `json:"rulebook_id"`
	RulebookName string  `json:"rulebook_name"`
	Seq          int     `json:"seq"`
	Content      string  `json:"content"`
	Score        float32 `json:"score"`
}

type AskResult struct {
	Answer   string        `json:"answer"`
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
	Cached   bool          `json:"cached"`
	Sources  []SourceChunk `json:"sources,omitempty"`
}

// Ask answers a question against the selected rulebooks.
func (s *AnswerService) Ask(ctx context.Context, input AskInput) (*AskResult, error) {
	providerName, chatCfg, err := s.resolveProvider(input.Provider)
	if err != nil {
		return nil, err
	}
	question := strings.TrimSpace(input.Question)
	if input.UserID == 0 || question == "" {
		return nil, ErrInvalidInput
	}

	books, err := s.selectRulebooks(input.UserID, input.RulebookIDs)
	if err != nil {
		return nil, err
	}

	topK := input.TopK
	if topK <= 0 {
		topK = s.topK
	}

	cacheKey := s.answerKey(ctx, input.UserID, providerName, chatCfg.Model, question, books, topK, input.FullDocument)
	if cacheKey != "" {
		if answer, hit, cacheErr := s.cache.GetAnswer(ctx, cacheKey); cacheErr == nil && hit {
			return &AskResult{
				Answer:   answer,
				Provider: providerName,
				Model:    chatCfg.Model,
				Cached:   true,
			}, nil
		}
	}

	sources, err := s.gatherContext(ctx, books, question, topK, input.FullDocument)
	if err != nil {
		return nil, err
	}

	messages := buildPrompt(sources, question, input.FullDocument)
	answer, err := s.llmClient.Complete(ctx, chatCfg, messages)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderRequest, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = "The model returned an empty response."
	}

	if err := s.publishRecord(ctx, input.UserID, providerName, question, answer, books); err != nil {
		return nil, err
	}
	if cacheKey != "" {
		_ = s.cache.SetAnswer(ctx, cacheKey, answer)
	}

	return &AskResult{
		Answer:   answer,
		Provider: providerName,
		Model:    chatCfg.Model,
		Sources:  sources,
	}, nil
}

// AskStream is Ask with the answer delivered incrementally through onChunk.
// A cache hit is delivered as a single chunk.
func (s *AnswerService) AskStream(ctx context.Context, input AskInput, onChunk func(string) error) (*AskResult, error) {
	providerName, chatCfg, err := s.resolveProvider(input.Provider)
	if err != nil {
		return nil, err
	}
	question := strings.TrimSpace(input.Question)
	if input.UserID == 0 || question == "" {
		return nil, ErrInvalidInput
	}

	books, err := s.selectRulebooks(input.UserID, input.RulebookIDs)
	if err != nil {
		return nil, err
	}

	topK := input.TopK
	if topK <= 0 {
		topK = s.topK
	}

	cacheKey := s.answerKey(ctx, input.UserID, providerName, chatCfg.Model, question, books, topK, input.FullDocument)
	if cacheKey != "" {
		if answer, hit, cacheErr := s.cache.GetAnswer(ctx, cacheKey); cacheErr == nil && hit {
			if err := onChunk(answer); err != nil {
				return nil, err
			}
			return &AskResult{Answer: answer, Provider: providerName, Model: chatCfg.Model, Cached: true}, nil
		}
	}

	sources, err := s.gatherContext(ctx, books, question, topK, input.FullDocument)
	if err != nil {
		return nil, err
	}

	messages := buildPrompt(sources, question, input.FullDocument)
	answer, err := s.llmClient.StreamComplete(ctx, chatCfg, messages, onChunk)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderRequest, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = "The model returned an empty response."
	}

	if err := s.publishRecord(ctx, input.UserID, providerName, question, answer, books); err != nil {
		return nil, err
	}
	if cacheKey != "" {
		_ = s.cache.SetAnswer(ctx, cacheKey, answer)
	}

	return &AskResult{
		Answer:   answer,
		Provider: providerName,
		Model:    chatCfg.Model,
		Sources:  sources,
	}, nil
}

func (s *AnswerService) resolveProvider(name string) (string, ai.ChatConfig, error) {
	if name == "" {
		name = s.defaultProvider
	}
	p, ok := s.providers[name]
	if !ok {
		return "", ai.ChatConfig{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if p.BaseURL == "" || p.Model == "" {
		return "", ai.ChatConfig{}, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
	if p.APIKey == "" {
		return "", ai.ChatConfig{}, fmt.Errorf("%w: %s", ErrProviderKeyMissing, name)
	}
	return name, ai.ChatConfig{
		BaseURL:     p.BaseURL,
		APIKey:      p.APIKey,
		Model:       p.Model,
		Temperature: p.Temperature,
	}, nil
}

func (s *AnswerService) selectRulebooks(userID uint, ids []uint) ([]model.Rulebook, error) {
	if len(ids) > 0 {
		var books []model.Rulebook
		for _, id := range ids {
			book, err := s.books.GetVisible(id, userID)
			if err != nil {
				return nil, err
			}
			if book == nil {
				continue
			}
			books = append(books, *book)
		}
		if len(books) == 0 {
			return nil, ErrNoRulebooks
		}
		return books, nil
	}

	books, err := s.books.ListVisible(userID)
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, ErrNoRulebooks
	}
	return books, nil
}

// gatherContext collects the context chunks: top-k per rulebook in RAG mode,
// every chunk in document order in full-document mode.
func (s *AnswerService) gatherContext(ctx context.Context, books []model.Rulebook, question string, topK int, fullDocument bool) ([]SourceChunk, error) {
	var queryEmb []float32
	if !fullDocument {
		emb, err := s.llmClient.Embed(ctx, s.embConfig, question)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderRequest, err)
		}
		queryEmb = emb
	}

	var sources []SourceChunk
	for _, book := range books {
		chunks, err := s.chunks.ListByRulebookID(book.ID)
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			continue
		}
		if fullDocument {
			for _, c := range chunks {
				sources = append(sources, SourceChunk{
					RulebookID:   book.ID,
					RulebookName: book.Name,
					Seq:          c.Seq,
					Content:      c.Content,
				})
			}
			continue
		}
		for _, sc := range rankTopK(chunks, queryEmb, topK) {
			sources = append(sources, SourceChunk{
				RulebookID:   book.ID,
				RulebookName: book.Name,
				Seq:          sc.chunk.Seq,
				Content:      sc.chunk.Content,
				Score:        sc.score,
			})
		}
	}
	if len(sources) == 0 {
		return nil, ErrNoChunks
	}
	return sources, nil
}

// buildPrompt assembles the chat messages. Context blocks are tagged with the
// rulebook name so multi-game questions stay attributable.
func buildPrompt(sources []SourceChunk, question string, fullDocument bool) []ai.ChatMessage {
	blocks := make([]string, 0, len(sources))
	for _, src := range sources {
		blocks = append(blocks, "["+src.RulebookName+"]\n"+src.Content)
	}
	contextBlock := strings.Join(blocks, "\n\n---\n\n")

	system := ruleSpecialistPrompt
	header := "Relevant Rulebook Sections"
	questionLabel := "Player's Question"
	if fullDocument {
		system = researchAssistantPrompt
		header = "Context"
		questionLabel = "Question"
	}

	user := header + ":\n" + contextBlock + "\n\n" + questionLabel + ": " + question + "\n\nAnswer:"
	return []ai.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
}

func (s *AnswerService) publishRecord(ctx context.Context, userID uint, provider, question, answer string, books []model.Rulebook) error {
	if s.publisher == nil {
		return ErrRecordEnqueue
	}
	ids := make([]uint, 0, len(books))
	for _, b := range books {
		ids = append(ids, b.ID)
	}
	record := model.QARecord{
		UserID:   userID,
		Provider: provider,
		Question: question,
		Answer:   answer,
	}
	record.SetRulebookIDs(ids)
	if err := s.publisher.Publish(ctx, record); err != nil {
		return ErrRecordEnqueue
	}
	return nil
}

// answerKey builds the cache key. Empty when the cache is unavailable.
func (s *AnswerService) answerKey(ctx context.Context, userID uint, provider, modelName, question string, books []model.Rulebook, topK int, fullDocument bool) string {
	if s.cache == nil {
		return ""
	}
	version, err := s.cache.Version(ctx, userID)
	if err != nil {
		return ""
	}
	ids := make([]int, 0, len(books))
	for _, b := range books {
		ids = append(ids, int(b.ID))
	}
	sort.Ints(ids)
	idParts := make([]string, len(ids))
	for i, id := range ids {
		idParts[i] = strconv.Itoa(id)
	}
	mode := "rag"
	if fullDocument {
		mode = "full"
	}
	payload := strings.Join([]string{
		strconv.FormatUint(uint64(userID), 10),
		strconv.FormatInt(version, 10),
		provider,
		modelName,
		mode,
		strconv.Itoa(topK),
		strings.Join(idParts, ","),
		question,
	}, "|")
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

type scoredChunk struct {
	chunk model.Chunk
	score float32
}

// rankTopK scores every chunk against the query vector and returns the top k.
// Sorting is stable, so equal scores keep document order and repeated runs
// return identical results.
func rankTopK(chunks []model.Chunk, query []float32, k int) []scoredChunk {
	if k <= 0 || len(chunks) == 0 {
		return nil
	}
	scored := make([]scoredChunk, len(chunks))
	for i := range chunks {
		scored[i] = scoredChunk{
			chunk: chunks[i],
			score: cosineSimilarity(query, chunks[i].EmbeddingVector()),
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if k > len(scored) {
		k = len(scored)
	}
	return scored[:k]
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
