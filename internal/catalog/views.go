// Package catalog builds the storefront's view models: the public read views,
// the review submission flow and the admin product management flow.
package catalog

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"furniture-storefront/internal/domain"
	"furniture-storefront/internal/store"
)

// AllCategories is the category selection that disables the product filter.
const AllCategories = "all"

const (
	homeFeaturedLimit = 3
	homeLatestLimit   = 6
	homeReviewLimit   = 3
)

// HomeView is the landing page content.
type HomeView struct {
	FeaturedProducts []domain.Product `json:"featured_products"`
	NewProducts      []domain.Product `json:"new_products"`
	Reviews          []domain.Review  `json:"reviews"`
}

// ProductsView is the catalog page: every category plus the products in the selected one.
type ProductsView struct {
	Categories       []domain.Category `json:"categories"`
	Products         []domain.Product  `json:"products"`
	SelectedCategory string            `json:"selected_category"`
}

// BlogView lists published posts; Selected is set when a post id was asked
// for and found among them.
type BlogView struct {
	Posts    []domain.BlogPost `json:"posts"`
	Selected *domain.BlogPost  `json:"selected"`
}

// ReviewsView lists approved reviews with their average rating.
type ReviewsView struct {
	Reviews       []domain.Review `json:"reviews"`
	AverageRating string          `json:"average_rating"`
	Count         int             `json:"count"`
}

// Views loads the public pages. Every call reads the store afresh; a failed read
// leaves its collection empty and is only logged.
type Views struct {
	store store.Storer
	log   zerolog.Logger
}

// NewViews creates a new Views instance.
func NewViews(s store.Storer, log zerolog.Logger) *Views {
	return &Views{store: s, log: log}
}

// Home loads featured products, the newest products and the latest approved
// reviews concurrently. Each read fills only its own slice.
func (v *Views) Home(ctx context.Context) HomeView {
	view := HomeView{
		FeaturedProducts: []domain.Product{},
		NewProducts:      []domain.Product{},
		Reviews:          []domain.Review{},
	}

	featured := true
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		products, err := v.store.ListProducts(ctx, store.ListProductsParams{Featured: &featured, Limit: homeFeaturedLimit})
		if err != nil {
			v.log.Error().Err(err).Str("view", "home").Msg("failed to load featured products")
			return
		}
		view.FeaturedProducts = products
	}()
	go func() {
		defer wg.Done()
		products, err := v.store.ListProducts(ctx, store.ListProductsParams{NewestFirst: true, Limit: homeLatestLimit})
		if err != nil {
			v.log.Error().Err(err).Str("view", "home").Msg("failed to load new products")
			return
		}
		view.NewProducts = products
	}()
	go func() {
		defer wg.Done()
		reviews, err := v.store.ListApprovedReviews(ctx, store.ListReviewsParams{Limit: homeReviewLimit})
		if err != nil {
			v.log.Error().Err(err).Str("view", "home").Msg("failed to load reviews")
			return
		}
		view.Reviews = reviews
	}()
	wg.Wait()

	return view
}

// Products loads categories and products, then keeps the products of the
// selected category. An empty selection means AllCategories.
func (v *Views) Products(ctx context.Context, selectedCategory string) ProductsView {
	if selectedCategory == "" {
		selectedCategory = AllCategories
	}
	view := ProductsView{
		Categories:       []domain.Category{},
		Products:         []domain.Product{},
		SelectedCategory: selectedCategory,
	}

	categories, err := v.store.ListCategories(ctx)
	if err != nil {
		v.log.Error().Err(err).Str("view", "products").Msg("failed to load categories")
	} else {
		view.Categories = categories
	}

	products, err := v.store.ListProducts(ctx, store.ListProductsParams{NewestFirst: true})
	if err != nil {
		v.log.Error().Err(err).Str("view", "products").Msg("failed to load products")
	} else {
		view.Products = FilterByCategory(products, selectedCategory)
	}
	return view
}

// Blog loads published posts and selects postID among them, if given.
func (v *Views) Blog(ctx context.Context, postID string) BlogView {
	view := BlogView{Posts: []domain.BlogPost{}}

	posts, err := v.store.ListPublishedPosts(ctx)
	if err != nil {
		v.log.Error().Err(err).Str("view", "blog").Msg("failed to load posts")
		return view
	}
	view.Posts = posts
	view.Selected = SelectPost(posts, postID)
	return view
}

// Reviews loads every approved review.
func (v *Views) Reviews(ctx context.Context) ReviewsView {
	view := ReviewsView{Reviews: []domain.Review{}}

	reviews, err := v.store.ListApprovedReviews(ctx, store.ListReviewsParams{})
	if err != nil {
		v.log.Error().Err(err).Str("view", "reviews").Msg("failed to load reviews")
	} else {
		view.Reviews = reviews
	}
	view.Count = len(view.Reviews)
	view.AverageRating = AverageRating(view.Reviews)
	return view
}

// FilterByCategory returns the products whose category is categoryID, keeping
// their order. AllCategories returns every product.
func FilterByCategory(products []domain.Product, categoryID string) []domain.Product {
	if categoryID == AllCategories {
		return products
	}
	filtered := []domain.Product{}
	for _, p := range products {
		if p.InCategory(categoryID) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// SelectPost finds the post with the given id in posts, without another read.
func SelectPost(posts []domain.BlogPost, id string) *domain.BlogPost {
	if id == "" {
		return nil
	}
	for i := range posts {
		if posts[i].ID == id {
			return &posts[i]
		}
	}
	return nil
}

// AverageRating is the mean rating with one decimal, halves rounded up;
// "0.0" when there are no reviews.
func AverageRating(reviews []domain.Review) string {
	if len(reviews) == 0 {
		return "0.0"
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return decimal.NewFromInt(int64(sum)).
		Div(decimal.NewFromInt(int64(len(reviews)))).
		StringFixed(1)
}
