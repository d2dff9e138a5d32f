package store

import (
	"context"
	"io"

	"furniture-storefront/internal/domain"
)

// ListProductsParams narrows a product read. The zero value lists every product
// oldest first.
type ListProductsParams struct {
	Featured    *bool // Filter by the featured flag when set
	NewestFirst bool  // Order by created_at descending
	Limit       int   // 0 means no limit
}

// ListReviewsParams narrows a read of approved reviews.
type ListReviewsParams struct {
	Limit int // 0 means no limit
}

// CategoryStorer defines the catalog operations on categories.
type CategoryStorer interface {
	ListCategories(ctx context.Context) ([]domain.Category, error) // Ordered by name
}

// ProductStorer defines the catalog operations on products.
type ProductStorer interface {
	ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, error)
	CreateProduct(ctx context.Context, input domain.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id string, input domain.ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// BlogStorer defines the catalog operations on blog posts.
type BlogStorer interface {
	ListPublishedPosts(ctx context.Context) ([]domain.BlogPost, error) // Newest first
}

// ReviewStorer defines the catalog operations on reviews.
type ReviewStorer interface {
	ListApprovedReviews(ctx context.Context, params ListReviewsParams) ([]domain.Review, error) // Newest first
	CreateReview(ctx context.Context, review domain.NewReview) error
}

// Storer is the full set of catalog operations a backend provides.
type Storer interface {
	CategoryStorer
	ProductStorer
	BlogStorer
	ReviewStorer
}

// ImageUploader stores a file and returns the public URL it can be fetched from.
type ImageUploader interface {
	UploadImage(ctx context.Context, path, contentType string, body io.Reader) (string, error)
}
