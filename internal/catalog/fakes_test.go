package catalog

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"furniture-storefront/internal/domain"
	"furniture-storefront/internal/store"
)

// memoryStore is an in-memory store.Storer with the remote store's ordering,
// filtering and approval rules.
type memoryStore struct {
	mu         sync.Mutex
	categories []domain.Category
	products   []domain.Product
	posts      []domain.BlogPost
	reviews    []domain.Review
	nextID     int
	clock      time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{clock: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (s *memoryStore) tick() time.Time {
	s.clock = s.clock.Add(time.Minute)
	return s.clock
}

func (s *memoryStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]domain.Category{}, s.categories...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *memoryStore) ListProducts(ctx context.Context, params store.ListProductsParams) ([]domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Product{}
	for _, p := range s.products {
		if params.Featured != nil && p.Featured != *params.Featured {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if params.NewestFirst {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *memoryStore) CreateProduct(ctx context.Context, input domain.ProductInput) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := s.tick()
	p := domain.Product{
		ID:               fmt.Sprintf("p%d", s.nextID),
		Title:            input.Title,
		Slug:             input.Slug,
		Description:      input.Description,
		ShortDescription: input.ShortDescription,
		Price:            input.Price,
		ImageURL:         input.ImageURL,
		CategoryID:       input.CategoryID,
		Featured:         input.Featured,
		InStock:          input.InStock,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.products = append(s.products, p)
	return &p, nil
}

func (s *memoryStore) UpdateProduct(ctx context.Context, id string, input domain.ProductInput) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.products {
		if p.ID != id {
			continue
		}
		updated := p
		updated.Title = input.Title
		updated.Slug = input.Slug
		updated.Description = input.Description
		updated.ShortDescription = input.ShortDescription
		updated.Price = input.Price
		updated.ImageURL = input.ImageURL
		updated.CategoryID = input.CategoryID
		updated.Featured = input.Featured
		updated.InStock = input.InStock
		updated.UpdatedAt = s.tick()
		s.products[i] = updated
		return &updated, nil
	}
	return nil, store.ErrProductNotFound
}

func (s *memoryStore) DeleteProduct(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.products {
		if p.ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return nil
		}
	}
	return store.ErrProductNotFound
}

func (s *memoryStore) ListPublishedPosts(ctx context.Context) ([]domain.BlogPost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.BlogPost{}
	for _, p := range s.posts {
		if p.Published {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) ListApprovedReviews(ctx context.Context, params store.ListReviewsParams) ([]domain.Review, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Review{}
	for _, r := range s.reviews {
		if r.Approved {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (s *memoryStore) CreateReview(ctx context.Context, review domain.NewReview) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.reviews = append(s.reviews, domain.Review{
		ID:           fmt.Sprintf("r%d", s.nextID),
		ProductID:    review.ProductID,
		CustomerName: review.CustomerName,
		Rating:       review.Rating,
		Comment:      review.Comment,
		CreatedAt:    s.tick(),
	})
	return nil
}

func (s *memoryStore) approveAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.reviews {
		s.reviews[i].Approved = true
	}
}

// MockStorer is a mock type for the store.Storer interface
type MockStorer struct {
	mock.Mock
}

func (m *MockStorer) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Category), args.Error(1)
}

func (m *MockStorer) ListProducts(ctx context.Context, params store.ListProductsParams) ([]domain.Product, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *MockStorer) CreateProduct(ctx context.Context, input domain.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockStorer) UpdateProduct(ctx context.Context, id string, input domain.ProductInput) (*domain.Product, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *MockStorer) DeleteProduct(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockStorer) ListPublishedPosts(ctx context.Context) ([]domain.BlogPost, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.BlogPost), args.Error(1)
}

func (m *MockStorer) ListApprovedReviews(ctx context.Context, params store.ListReviewsParams) ([]domain.Review, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *MockStorer) CreateReview(ctx context.Context, review domain.NewReview) error {
	return m.Called(ctx, review).Error(0)
}

// MockImageUploader is a mock type for the store.ImageUploader interface
type MockImageUploader struct {
	mock.Mock
}

func (m *MockImageUploader) UploadImage(ctx context.Context, path, contentType string, body io.Reader) (string, error) {
	args := m.Called(ctx, path, contentType, body)
	return args.String(0), args.Error(1)
}

func PtrTo[T any](v T) *T {
	return &v
}
