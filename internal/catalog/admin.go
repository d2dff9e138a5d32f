package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"furniture-storefront/internal/domain"
	"furniture-storefront/internal/store"
)

// Admin status lines.
const (
	StatusCreated       = "Created"
	StatusUpdated       = "Updated"
	StatusDeleted       = "Deleted"
	StatusImageUploaded = "Image uploaded!"
)

// ErrNotConfirmed means a delete arrived without the operator's confirmation.
var ErrNotConfirmed = errors.New("catalog: delete not confirmed")

// MutationResult is the dashboard state after a create, update or delete.
// On success Products is the freshly reloaded list and Form is blank. On failure
// Products is omitted so the client keeps the list it shows; a failed save echoes
// Form and EditingID, a failed delete carries no form so an open edit survives.
type MutationResult struct {
	OK        bool                 `json:"ok"`
	Status    string               `json:"status"`
	Products  []domain.Product     `json:"products,omitempty"`
	Form      *domain.ProductInput `json:"form,omitempty"`
	EditingID string               `json:"editing_id,omitempty"`
	Err       error                `json:"-"`
}

// ImageResult is the outcome of an image upload. URL is empty on failure.
type ImageResult struct {
	OK     bool   `json:"ok"`
	Status string `json:"status"`
	URL    string `json:"url,omitempty"`
	Path   string `json:"path,omitempty"`
}

// ProductManager runs the admin product management flow. After every successful
// mutation the full product list is read again; nothing is patched locally.
type ProductManager struct {
	products store.ProductStorer
	images   store.ImageUploader
	validate *validator.Validate
	log      zerolog.Logger
	now      func() time.Time
	suffix   func() string
}

// NewProductManager creates a new ProductManager.
func NewProductManager(products store.ProductStorer, images store.ImageUploader, log zerolog.Logger) *ProductManager {
	return &ProductManager{
		products: products,
		images:   images,
		validate: validator.New(),
		log:      log,
		now:      time.Now,
		suffix:   randomSuffix,
	}
}

// List loads every product, newest first. On failure the list is empty and the
// status carries the store's message.
func (m *ProductManager) List(ctx context.Context) ([]domain.Product, string) {
	products, err := m.products.ListProducts(ctx, store.ListProductsParams{NewestFirst: true})
	if err != nil {
		m.log.Error().Err(err).Msg("failed to load admin product list")
		return []domain.Product{}, store.Message(err)
	}
	return products, ""
}

// Save inserts input when editingID is empty and updates the product with that
// id otherwise. Price is stored as submitted.
func (m *ProductManager) Save(ctx context.Context, editingID string, input domain.ProductInput) MutationResult {
	failed := func(err error) MutationResult {
		return MutationResult{Status: "Error: " + errorMessage(err), Form: &input, EditingID: editingID, Err: err}
	}

	if err := m.validate.Struct(input); err != nil {
		return failed(err)
	}

	status := StatusCreated
	if editingID == "" {
		created, err := m.products.CreateProduct(ctx, input)
		if err != nil {
			m.log.Error().Err(err).Str("title", input.Title).Msg("failed to create product")
			return failed(err)
		}
		m.log.Info().Str("product_id", created.ID).Msg("product created")
	} else {
		status = StatusUpdated
		if _, err := m.products.UpdateProduct(ctx, editingID, input); err != nil {
			m.log.Error().Err(err).Str("product_id", editingID).Msg("failed to update product")
			return failed(err)
		}
		m.log.Info().Str("product_id", editingID).Msg("product updated")
	}

	return m.reloaded(ctx, status)
}

// Delete removes the product with the given id. Without confirmation it returns
// ErrNotConfirmed and touches nothing.
func (m *ProductManager) Delete(ctx context.Context, id string, confirmed bool) (MutationResult, error) {
	if !confirmed {
		return MutationResult{}, ErrNotConfirmed
	}
	if err := m.products.DeleteProduct(ctx, id); err != nil {
		m.log.Error().Err(err).Str("product_id", id).Msg("failed to delete product")
		return MutationResult{Status: "Error: " + errorMessage(err), Err: err}, nil
	}
	m.log.Info().Str("product_id", id).Msg("product deleted")
	return m.reloaded(ctx, StatusDeleted), nil
}

func (m *ProductManager) reloaded(ctx context.Context, status string) MutationResult {
	products, loadStatus := m.List(ctx)
	if loadStatus != "" {
		status = loadStatus
	}
	blank := domain.DefaultProductInput()
	return MutationResult{OK: true, Status: status, Products: products, Form: &blank}
}

// AttachImage uploads an image and returns its public URL for the caller to put
// into the product form. No product row changes until that form is saved.
func (m *ProductManager) AttachImage(ctx context.Context, filename, contentType string, body io.Reader) ImageResult {
	path := m.ImagePath(filename)
	url, err := m.images.UploadImage(ctx, path, contentType, body)
	if err != nil {
		m.log.Error().Err(err).Str("path", path).Msg("image upload failed")
		return ImageResult{Status: "Image upload failed: " + store.Message(err)}
	}
	return ImageResult{OK: true, Status: StatusImageUploaded, URL: url, Path: path}
}

// ImagePath names an upload products/{epoch millis}-{6 base36 chars}.{ext}, where
// ext is whatever follows the last dot of filename (the whole name without one).
func (m *ProductManager) ImagePath(filename string) string {
	ext := filename
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = filename[i+1:]
	}
	return fmt.Sprintf("products/%d-%s.%s", m.now().UnixMilli(), m.suffix(), ext)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomSuffix() string {
	var b [6]byte
	for i := range b {
		b[i] = base36[rand.Intn(len(base36))]
	}
	return string(b[:])
}

// errorMessage turns validation failures into "title is required" style text
// and leaves store messages as they are.
func errorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		parts := make([]string, 0, len(validationErrs))
		for _, fe := range validationErrs {
			parts = append(parts, strings.ToLower(fe.Field())+" is "+fe.Tag())
		}
		return strings.Join(parts, ", ")
	}
	if errors.Is(err, store.ErrProductNotFound) {
		return "product not found"
	}
	return store.Message(err)
}
