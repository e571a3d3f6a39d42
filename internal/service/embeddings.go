package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"voicecart/internal/model"
	"voicecart/internal/repository"
)

// EmbeddingService maintains product embeddings and serves semantic
// catalog search. It only exists when both the database and the AI client
// are configured.
type EmbeddingService struct {
	repo *repository.PostgresRepository
	ai   AIClient
}

// NewEmbeddingService creates a new embedding service
func NewEmbeddingService(repo *repository.PostgresRepository, ai AIClient) *EmbeddingService {
	return &EmbeddingService{repo: repo, ai: ai}
}

// embeddingText builds the text that represents a product in vector space.
func embeddingText(p *model.Product) string {
	parts := []string{p.Name}
	if p.Brand != nil {
		parts = append(parts, *p.Brand)
	}
	if p.Category != nil {
		parts = append(parts, *p.Category)
	}
	if len(p.Colors) > 0 {
		parts = append(parts, strings.Join(p.Colors, " "))
	}
	if len(p.Materials) > 0 {
		parts = append(parts, strings.Join(p.Materials, " "))
	}
	return strings.Join(parts, " ")
}

// Backfill embeds up to limit products that have no embedding yet and
// returns how many were updated.
func (s *EmbeddingService) Backfill(ctx context.Context, limit int) (int, error) {
	if !s.ai.IsEnabled() {
		return 0, fmt.Errorf("AI client is not enabled")
	}

	products, err := s.repo.ProductsWithoutEmbedding(ctx, limit)
	if err != nil {
		return 0, err
	}
	if len(products) == 0 {
		return 0, nil
	}

	texts := make([]string, len(products))
	for i := range products {
		texts[i] = embeddingText(&products[i])
	}

	embeddings, err := s.ai.CreateEmbeddings(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(embeddings) != len(products) {
		return 0, fmt.Errorf("embedding count mismatch: %d products, %d embeddings", len(products), len(embeddings))
	}

	updated := 0
	for i := range products {
		if err := s.repo.UpdateProductEmbedding(ctx, products[i].ProductID, embeddings[i]); err != nil {
			log.Printf("Warning: Failed to store embedding for product %d: %v", products[i].ProductID, err)
			continue
		}
		updated++
	}

	log.Printf("🧮 Backfilled embeddings for %d/%d products", updated, len(products))
	return updated, nil
}

// Search embeds the query text and returns the nearest products.
func (s *EmbeddingService) Search(ctx context.Context, query string, limit int) ([]model.Product, error) {
	if !s.ai.IsEnabled() {
		return nil, fmt.Errorf("AI client is not enabled")
	}

	embeddings, err := s.ai.CreateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("expected one query embedding, got %d", len(embeddings))
	}

	return s.repo.SemanticSearch(ctx, embeddings[0], limit)
}
