package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Table names in the remote catalog store.
const (
	TableCategories         = "categories"
	TableProducts           = "products"
	TableBlogPosts          = "blog_posts"
	TableReviews            = "reviews"
	TableContactSubmissions = "contact_submissions"
)

// Category represents a product category in the catalog.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product represents a product row as stored in the catalog.
// CategoryID is nil for uncategorized products.
type Product struct {
	ID               string          `json:"id"`
	Title            string          `json:"title"`
	Slug             string          `json:"slug"`
	Description      string          `json:"description"`
	ShortDescription string          `json:"short_description"`
	Price            decimal.Decimal `json:"price"`
	ImageURL         string          `json:"image_url"`
	CategoryID       *string         `json:"category_id"`
	Featured         bool            `json:"featured"`
	InStock          bool            `json:"in_stock"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ProductInput is the writable part of a Product: everything except the id
// and the store-managed timestamps. It is the payload of both insert and update.
//
// Price is deliberately not range-checked; a negative price is stored as submitted.
type ProductInput struct {
	Title            string          `json:"title" validate:"required"`
	Slug             string          `json:"slug"`
	Description      string          `json:"description"`
	ShortDescription string          `json:"short_description"`
	Price            decimal.Decimal `json:"price"`
	ImageURL         string          `json:"image_url"`
	CategoryID       *string         `json:"category_id"`
	Featured         bool            `json:"featured"`
	InStock          bool            `json:"in_stock"`
}

// DefaultProductInput returns the blank admin form.
func DefaultProductInput() ProductInput {
	return ProductInput{
		Price:   decimal.Zero,
		InStock: true,
	}
}

// Input copies the writable fields of p, e.g. when an operator starts editing a row.
func (p Product) Input() ProductInput {
	return ProductInput{
		Title:            p.Title,
		Slug:             p.Slug,
		Description:      p.Description,
		ShortDescription: p.ShortDescription,
		Price:            p.Price,
		ImageURL:         p.ImageURL,
		CategoryID:       p.CategoryID,
		Featured:         p.Featured,
		InStock:          p.InStock,
	}
}

// InCategory reports whether the product belongs to the category with the given id.
func (p Product) InCategory(categoryID string) bool {
	return p.CategoryID != nil && *p.CategoryID == categoryID
}
