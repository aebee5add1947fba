package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"rulebook-assistant/internal/ai"
	"rulebook-assistant/internal/chunker"
	"rulebook-assistant/internal/model"
	"rulebook-assistant/internal/repository"
)

// embedding APIs often limit array input size, so chunks go out in batches
const embeddingBatchSize = 10

var (
	ErrRulebookNotFound = errors.New("rulebook not found")
	ErrEmptyDocument    = errors.New("document contains no extractable text")
)

// LibraryCache invalidates cached answers when the rulebook set changes.
type LibraryCache interface {
	BumpVersion(ctx context.Context, userID uint) error
}

// LibraryService owns the ingest side of the pipeline: chunk the extracted
// text, embed every chunk, persist rulebook + chunks.
type LibraryService struct {
	bookRepo  *repository.RulebookRepository
	chunkRepo *repository.ChunkRepository
	llmClient *ai.OpenAICompatibleClient
	embConfig ai.EmbeddingConfig
	splitter  *chunker.Splitter
	cache     LibraryCache
}

func NewLibraryService(
	bookRepo *repository.RulebookRepository,
	chunkRepo *repository.ChunkRepository,
	llmClient *ai.OpenAICompatibleClient,
	embConfig ai.EmbeddingConfig,
	splitter *chunker.Splitter,
	cache LibraryCache,
) *LibraryService {
	return &LibraryService{
		bookRepo:  bookRepo,
		chunkRepo: chunkRepo,
		llmClient: llmClient,
		embConfig: embConfig,
		splitter:  splitter,
		cache:     cache,
	}
}

// IngestInput is the extracted text of one uploaded document.
// UserID 0 marks a shared preloaded rulebook.
type IngestInput struct {
	UserID    uint
	Name      string
	Text      string
	Pages     int
	Preloaded bool
}

type IngestResult struct {
	Rulebook   model.Rulebook `json:"rulebook"`
	ChunkCount int            `json:"chunk_count"`
}

// Ingest chunks the text, embeds each chunk, and persists rulebook + chunks.
func (s *LibraryService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, ErrEmptyDocument
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "Untitled"
	}

	chunks := s.splitter.Split(text)
	if len(chunks) == 0 {
		return nil, ErrEmptyDocument
	}

	var embeddings [][]float32
	for i := 0; i < len(chunks); i += embeddingBatchSize {
		end := i + embeddingBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batched, err := s.llmClient.EmbedBatch(ctx, s.embConfig, chunks[i:end])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProviderRequest, err)
		}
		embeddings = append(embeddings, batched...)
	}
	if len(embeddings) != len(chunks) {
		return nil, errors.New("embedding count mismatch")
	}

	book := &model.Rulebook{
		UserID:     input.UserID,
		Name:       name,
		Pages:      input.Pages,
		CharCount:  len([]rune(text)),
		ChunkCount: len(chunks),
		Preloaded:  input.Preloaded,
	}
	if err := s.bookRepo.Create(book); err != nil {
		return nil, err
	}

	records := make([]model.Chunk, len(chunks))
	for i := range chunks {
		records[i] = model.Chunk{
			RulebookID: book.ID,
			Seq:        i,
			Content:    chunks[i],
		}
		records[i].SetEmbedding(embeddings[i])
	}
	if err := s.chunkRepo.CreateBatch(records); err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.BumpVersion(ctx, input.UserID)
	}

	return &IngestResult{
		Rulebook:   *book,
		ChunkCount: len(records),
	}, nil
}

// List returns the rulebooks visible to the user (own + shared preloads).
func (s *LibraryService) List(userID uint) ([]model.Rulebook, error) {
	return s.bookRepo.ListVisible(userID)
}

// Delete removes a user's rulebook and its chunks. Shared preloads cannot be
// deleted through here because the ownership check fails for them.
func (s *LibraryService) Delete(ctx context.Context, userID, rulebookID uint) error {
	if userID == 0 || rulebookID == 0 {
		return ErrInvalidInput
	}
	book, err := s.bookRepo.GetVisible(rulebookID, userID)
	if err != nil {
		return err
	}
	if book == nil || book.UserID != userID {
		return ErrRulebookNotFound
	}
	if err := s.chunkRepo.DeleteByRulebookID(book.ID); err != nil {
		return err
	}
	if err := s.bookRepo.DeleteByIDAndUserID(book.ID, userID); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.BumpVersion(ctx, userID)
	}
	return nil
}

// PreloadDir ingests every PDF in dir as a shared rulebook, naming each from
// its file stem. Files that fail to parse are skipped, matching upload
// behavior where a bad PDF never takes the service down.
func (s *LibraryService) PreloadDir(ctx context.Context, dir string, extract func(path string) (string, int, error)) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("preload: read dir %s failed: %v", dir, err)
		}
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			continue
		}
		name := preloadName(entry.Name())

		existing, err := s.bookRepo.GetByNameAndUserID(name, 0)
		if err != nil {
			log.Printf("preload: lookup %q failed: %v", name, err)
			continue
		}
		if existing != nil {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		text, pages, err := extract(path)
		if err != nil {
			log.Printf("preload: extract %s failed: %v", path, err)
			continue
		}

		if _, err := s.Ingest(ctx, IngestInput{
			Name:      name,
			Text:      text,
			Pages:     pages,
			Preloaded: true,
		}); err != nil {
			log.Printf("preload: ingest %q failed: %v", name, err)
			continue
		}
		log.Printf("preload: rulebook %q loaded", name)
	}
}

// preloadName turns "settlers_of_catan.pdf" into "Settlers Of Catan".
func preloadName(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	stem = strings.ReplaceAll(stem, "_", " ")
	words := strings.Fields(stem)
	for i, w := range words {
		r := []rune(w)
		words[i] = strings.ToUpper(string(r[0])) + string(r[1:])
	}
	return strings.Join(words, " ")
}
