package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"furniture-storefront/internal/domain"
)

// PostgresStore implements Storer directly against the catalog database, for
// deployments that connect to the managed store's Postgres instead of its REST API.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const productColumns = `id, title, slug, COALESCE(description, ''), COALESCE(short_description, ''), price,
	COALESCE(image_url, ''), category_id, featured, in_stock, created_at, updated_at`

// asAPIError gives database failures the same shape as store-reported ones so
// callers can show the message without caring which backend is configured.
func asAPIError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &APIError{Code: string(pqErr.Code), Message: pqErr.Message}
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner, p *domain.Product) error {
	return row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Description, &p.ShortDescription, &p.Price,
		&p.ImageURL, &p.CategoryID, &p.Featured, &p.InStock, &p.CreatedAt, &p.UpdatedAt,
	)
}

// --- CategoryStorer Implementation ---

func (s *PostgresStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	query := `
		SELECT id, name, slug, COALESCE(description, ''), created_at
		FROM public.categories
		ORDER BY name ASC;
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListCategories failed to query categories: %w", asAPIError(err))
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: ListCategories failed to scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListCategories iteration error: %w", err)
	}
	return categories, nil
}

// --- ProductStorer Implementation ---

func (s *PostgresStore) ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, error) {
	var queryArgs []any
	var whereClauses []string
	argID := 1

	if params.Featured != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("featured = $%d", argID))
		queryArgs = append(queryArgs, *params.Featured)
		argID++
	}

	whereCondition := ""
	if len(whereClauses) > 0 {
		whereCondition = " WHERE " + strings.Join(whereClauses, " AND ")
	}

	sortOrder := "ASC"
	if params.NewestFirst {
		sortOrder = "DESC"
	}

	query := fmt.Sprintf("SELECT %s FROM public.products%s ORDER BY created_at %s", productColumns, whereCondition, sortOrder)
	if params.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		queryArgs = append(queryArgs, params.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("store: ListProducts failed to query products: %w", asAPIError(err))
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("store: ListProducts failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListProducts iteration error: %w", err)
	}
	return products, nil
}

func (s *PostgresStore) CreateProduct(ctx context.Context, input domain.ProductInput) (*domain.Product, error) {
	query := `
		INSERT INTO public.products
			(title, slug, description, short_description, price, image_url, category_id, featured, in_stock)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + productColumns + `;`

	row := s.db.QueryRowContext(ctx, query,
		input.Title, input.Slug, input.Description, input.ShortDescription, input.Price,
		input.ImageURL, input.CategoryID, input.Featured, input.InStock,
	)

	var created domain.Product
	if err := scanProduct(row, &created); err != nil {
		return nil, fmt.Errorf("store: CreateProduct failed to scan row: %w", asAPIError(err))
	}
	return &created, nil
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, id string, input domain.ProductInput) (*domain.Product, error) {
	query := `
		UPDATE public.products
		SET title = $1, slug = $2, description = $3, short_description = $4, price = $5,
			image_url = $6, category_id = $7, featured = $8, in_stock = $9
		WHERE id = $10
		RETURNING ` + productColumns + `;`

	row := s.db.QueryRowContext(ctx, query,
		input.Title, input.Slug, input.Description, input.ShortDescription, input.Price,
		input.ImageURL, input.CategoryID, input.Featured, input.InStock, id,
	)

	var updated domain.Product
	if err := scanProduct(row, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: UpdateProduct failed to scan row: %w", asAPIError(err))
	}
	return &updated, nil
}

func (s *PostgresStore) DeleteProduct(ctx context.Context, id string) error {
	query := `DELETE FROM public.products WHERE id = $1;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to execute delete: %w", asAPIError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteProduct failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// --- BlogStorer Implementation ---

func (s *PostgresStore) ListPublishedPosts(ctx context.Context) ([]domain.BlogPost, error) {
	query := `
		SELECT id, title, slug, COALESCE(content, ''), COALESCE(excerpt, ''), COALESCE(cover_image_url, ''),
			COALESCE(author, ''), COALESCE(category, ''), published, created_at, updated_at
		FROM public.blog_posts
		WHERE published = TRUE
		ORDER BY created_at DESC;
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListPublishedPosts failed to query posts: %w", asAPIError(err))
	}
	defer rows.Close()

	posts := []domain.BlogPost{}
	for rows.Next() {
		var p domain.BlogPost
		if err := rows.Scan(
			&p.ID, &p.Title, &p.Slug, &p.Content, &p.Excerpt, &p.CoverImageURL,
			&p.Author, &p.Category, &p.Published, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: ListPublishedPosts failed to scan post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListPublishedPosts iteration error: %w", err)
	}
	return posts, nil
}

// --- ReviewStorer Implementation ---

func (s *PostgresStore) ListApprovedReviews(ctx context.Context, params ListReviewsParams) ([]domain.Review, error) {
	query := `
		SELECT id, product_id, customer_name, rating, COALESCE(comment, ''), approved, created_at
		FROM public.reviews
		WHERE approved = TRUE
		ORDER BY created_at DESC`
	var queryArgs []any
	if params.Limit > 0 {
		query += " LIMIT $1"
		queryArgs = append(queryArgs, params.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("store: ListApprovedReviews failed to query reviews: %w", asAPIError(err))
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.CustomerName, &r.Rating, &r.Comment, &r.Approved, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: ListApprovedReviews failed to scan review row: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListApprovedReviews iteration error: %w", err)
	}
	return reviews, nil
}

// CreateReview leaves approved to the column default.
func (s *PostgresStore) CreateReview(ctx context.Context, review domain.NewReview) error {
	query := `
		INSERT INTO public.reviews (product_id, customer_name, rating, comment)
		VALUES ($1, $2, $3, $4);
	`
	if _, err := s.db.ExecContext(ctx, query, review.ProductID, review.CustomerName, review.Rating, review.Comment); err != nil {
		return fmt.Errorf("store: CreateReview failed to execute insert: %w", asAPIError(err))
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
