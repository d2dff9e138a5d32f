package store

import (
	"context"
	"errors"
	"fmt"

	"furniture-storefront/internal/domain"
)

// RestStore implements Storer over the remote catalog store's REST API.
type RestStore struct {
	client *RestClient
}

// NewRestStore creates a new RestStore instance.
func NewRestStore(client *RestClient) *RestStore {
	return &RestStore{client: client}
}

var errNoRowReturned = errors.New("store: no row returned")

// Ping checks that the remote store is reachable.
func (s *RestStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// --- CategoryStorer Implementation ---

func (s *RestStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories := []domain.Category{}
	q := Query{Order: &Order{Column: "name"}}
	if err := s.client.Select(ctx, domain.TableCategories, q, &categories); err != nil {
		return nil, fmt.Errorf("store: ListCategories: %w", err)
	}
	return categories, nil
}

// --- ProductStorer Implementation ---

func (s *RestStore) ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, error) {
	q := Query{Limit: params.Limit}
	if params.Featured != nil {
		q.Filters = append(q.Filters, Eq("featured", *params.Featured))
	}
	if params.NewestFirst {
		q.Order = &Order{Column: "created_at", Descending: true}
	} else {
		q.Order = &Order{Column: "created_at"}
	}

	products := []domain.Product{}
	if err := s.client.Select(ctx, domain.TableProducts, q, &products); err != nil {
		return nil, fmt.Errorf("store: ListProducts: %w", err)
	}
	return products, nil
}

func (s *RestStore) CreateProduct(ctx context.Context, input domain.ProductInput) (*domain.Product, error) {
	var created []domain.Product
	if err := s.client.Insert(ctx, domain.TableProducts, []domain.ProductInput{input}, &created); err != nil {
		return nil, fmt.Errorf("store: CreateProduct: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("store: CreateProduct: %w", errNoRowReturned)
	}
	return &created[0], nil
}

func (s *RestStore) UpdateProduct(ctx context.Context, id string, input domain.ProductInput) (*domain.Product, error) {
	var updated []domain.Product
	if err := s.client.Update(ctx, domain.TableProducts, id, input, &updated); err != nil {
		return nil, fmt.Errorf("store: UpdateProduct: %w", err)
	}
	if len(updated) == 0 {
		return nil, ErrProductNotFound
	}
	return &updated[0], nil
}

func (s *RestStore) DeleteProduct(ctx context.Context, id string) error {
	var deleted []domain.Product
	if err := s.client.Delete(ctx, domain.TableProducts, id, &deleted); err != nil {
		return fmt.Errorf("store: DeleteProduct: %w", err)
	}
	if len(deleted) == 0 {
		return ErrProductNotFound
	}
	return nil
}

// --- BlogStorer Implementation ---

func (s *RestStore) ListPublishedPosts(ctx context.Context) ([]domain.BlogPost, error) {
	posts := []domain.BlogPost{}
	q := Query{
		Filters: []Filter{Eq("published", true)},
		Order:   &Order{Column: "created_at", Descending: true},
	}
	if err := s.client.Select(ctx, domain.TableBlogPosts, q, &posts); err != nil {
		return nil, fmt.Errorf("store: ListPublishedPosts: %w", err)
	}
	return posts, nil
}

// --- ReviewStorer Implementation ---

func (s *RestStore) ListApprovedReviews(ctx context.Context, params ListReviewsParams) ([]domain.Review, error) {
	reviews := []domain.Review{}
	q := Query{
		Filters: []Filter{Eq("approved", true)},
		Order:   &Order{Column: "created_at", Descending: true},
		Limit:   params.Limit,
	}
	if err := s.client.Select(ctx, domain.TableReviews, q, &reviews); err != nil {
		return nil, fmt.Errorf("store: ListApprovedReviews: %w", err)
	}
	return reviews, nil
}

// CreateReview inserts without asking for the row back: anonymous callers may
// insert reviews but are not allowed to read unapproved ones.
func (s *RestStore) CreateReview(ctx context.Context, review domain.NewReview) error {
	if err := s.client.Insert(ctx, domain.TableReviews, []domain.NewReview{review}, nil); err != nil {
		return fmt.Errorf("store: CreateReview: %w", err)
	}
	return nil
}
