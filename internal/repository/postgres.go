package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"voicecart/internal/model"
	"voicecart/internal/utils"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// candidateFloor mirrors the in-memory catalog: rows below it never become
// Find candidates.
const candidateFloor = 0.3

// PostgresRepository handles database operations
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	// Disable prepared statement caching to avoid "unnamed prepared statement does not exist" errors
	if !strings.Contains(dsn, "?") {
		dsn += "?prefer_simple_protocol=true"
	} else {
		dsn += "&prefer_simple_protocol=true"
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

const productColumns = `
	product_id, name, brand, category, unit_price, stock,
	colors, sizes, materials, created_at, updated_at`

// Find returns candidate products for a free-text product name. Candidate
// rows come from a loose ILIKE pre-filter; ranking happens in Go with the
// same similarity scoring the in-memory catalog uses.
func (r *PostgresRepository) Find(ctx context.Context, query string) ([]model.Product, error) {
	tokens := strings.Fields(utils.Normalize(query))
	if len(tokens) == 0 {
		return nil, nil
	}

	whereClauses := []string{}
	args := []interface{}{}
	argIndex := 1
	for _, token := range tokens {
		pattern := "%" + utils.Singularize(token) + "%"
		whereClauses = append(whereClauses,
			fmt.Sprintf("(name ILIKE $%d OR category ILIKE $%d)", argIndex, argIndex))
		args = append(args, pattern)
		argIndex++
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE %s
		ORDER BY product_id
	`, productColumns, strings.Join(whereClauses, " OR "))

	var products []model.Product
	if err := r.db.SelectContext(ctx, &products, selectQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	type scored struct {
		product model.Product
		score   float64
	}
	var matches []scored
	for _, p := range products {
		score := utils.Similarity(query, p.Name)
		if p.Category != nil {
			if s := utils.Similarity(query, *p.Category); s > score {
				score = s
			}
		}
		if score >= candidateFloor {
			matches = append(matches, scored{product: p, score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	results := make([]model.Product, len(matches))
	for i, m := range matches {
		results[i] = m.product
	}
	return results, nil
}

// FindByFilters performs a structured catalog search
func (r *PostgresRepository) FindByFilters(ctx context.Context, filters model.SearchFilters) ([]model.Product, error) {
	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIndex := 1

	if filters.Price != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("unit_price >= $%d", argIndex))
		args = append(args, filters.Price.Min)
		argIndex++
		if filters.Price.Max != nil {
			whereClauses = append(whereClauses, fmt.Sprintf("unit_price <= $%d", argIndex))
			args = append(args, *filters.Price.Max)
			argIndex++
		}
	}
	if filters.Brand != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("brand ILIKE $%d", argIndex))
		args = append(args, *filters.Brand)
		argIndex++
	}
	if filters.Category != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("category ILIKE $%d", argIndex))
		args = append(args, *filters.Category)
		argIndex++
	}
	// JSONB attribute sets: an absent set means the attribute is
	// unconstrained, matching the in-memory catalog's semantics.
	if filters.Color != nil {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(colors IS NULL OR jsonb_array_length(colors) = 0 OR colors @> to_jsonb(ARRAY[lower($%d::text)]))", argIndex))
		args = append(args, *filters.Color)
		argIndex++
	}
	if filters.Size != nil {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(sizes IS NULL OR jsonb_array_length(sizes) = 0 OR sizes @> to_jsonb(ARRAY[lower($%d::text)]))", argIndex))
		args = append(args, *filters.Size)
		argIndex++
	}
	if filters.Material != nil {
		whereClauses = append(whereClauses, fmt.Sprintf(
			"(materials IS NULL OR jsonb_array_length(materials) = 0 OR materials @> to_jsonb(ARRAY[lower($%d::text)]))", argIndex))
		args = append(args, *filters.Material)
		argIndex++
	}
	if filters.InStock {
		whereClauses = append(whereClauses, "stock > 0")
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE %s
		ORDER BY product_id
	`, productColumns, strings.Join(whereClauses, " AND "))

	var products []model.Product
	if err := r.db.SelectContext(ctx, &products, selectQuery, args...); err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}

	// Free-text constraint is scored in Go, same as the candidate path.
	if filters.Query == "" {
		return products, nil
	}
	var filtered []model.Product
	for _, p := range products {
		if utils.Similarity(filters.Query, p.Name) >= candidateFloor {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// Get retrieves a single product by its ID
func (r *PostgresRepository) Get(ctx context.Context, productID int64) (*model.Product, error) {
	var product model.Product
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE product_id = $1
	`, productColumns)

	err := r.db.GetContext(ctx, &product, query, productID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &product, nil
}

// SemanticSearch returns products nearest to the query embedding, best
// first. Products without an embedding are skipped.
func (r *PostgresRepository) SemanticSearch(ctx context.Context, embedding []float32, limit int) ([]model.Product, error) {
	vec := pgvector.NewVector(embedding)
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`, productColumns)

	var products []model.Product
	if err := r.db.SelectContext(ctx, &products, query, vec, limit); err != nil {
		return nil, fmt.Errorf("failed to run semantic search: %w", err)
	}
	return products, nil
}

// UpdateProductEmbedding updates the embedding vector for a product
func (r *PostgresRepository) UpdateProductEmbedding(ctx context.Context, productID int64, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	query := `UPDATE products SET embedding = $1, updated_at = NOW() WHERE product_id = $2`
	_, err := r.db.ExecContext(ctx, query, vec, productID)
	if err != nil {
		return fmt.Errorf("failed to update embedding: %w", err)
	}
	return nil
}

// ProductsWithoutEmbedding lists products whose embedding is missing
func (r *PostgresRepository) ProductsWithoutEmbedding(ctx context.Context, limit int) ([]model.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		WHERE embedding IS NULL
		ORDER BY product_id
		LIMIT $1
	`, productColumns)

	var products []model.Product
	if err := r.db.SelectContext(ctx, &products, query, limit); err != nil {
		return nil, fmt.Errorf("failed to fetch products without embedding: %w", err)
	}
	return products, nil
}

// LogTurn persists a processed turn for offline analysis. Called from a
// goroutine; failures are logged and swallowed.
func (r *PostgresRepository) LogTurn(result *model.TurnResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	payload, err := json.Marshal(result)
	if err != nil {
		log.Printf("Warning: Failed to marshal turn for logging: %v", err)
		return
	}

	query := `
		INSERT INTO turn_log (turn_id, session_id, intent, confidence, degraded, took_ms, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	_, err = r.db.ExecContext(ctx, query,
		result.TurnID,
		result.SessionID,
		string(result.Intent.Type),
		result.Intent.Confidence,
		result.Degraded,
		result.Took,
		payload,
	)
	if err != nil {
		log.Printf("Warning: Failed to log turn %s: %v", result.TurnID, err)
	}
}
