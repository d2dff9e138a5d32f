package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"furniture-storefront/internal/auth"
	"furniture-storefront/internal/catalog"
	"furniture-storefront/internal/domain"
	"furniture-storefront/internal/store"
)

const maxUploadSize = 10 << 20 // 10 MiB

// CookieConfig describes the admin session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// Dependencies are the collaborators an HTTPHandler serves from.
type Dependencies struct {
	Views    *catalog.Views
	Reviews  *catalog.ReviewSubmitter
	Products *catalog.ProductManager
	Sessions *auth.Manager
	Cookie   CookieConfig
	Limiter  *RateLimiter // Applied to sign-in endpoints; nil disables it
	Logger   zerolog.Logger
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	views    *catalog.Views
	reviews  *catalog.ReviewSubmitter
	products *catalog.ProductManager
	sessions *auth.Manager
	cookie   CookieConfig
	limiter  *RateLimiter
	validate *validator.Validate
	log      zerolog.Logger
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(deps Dependencies) *HTTPHandler {
	if deps.Cookie.Name == "" {
		deps.Cookie.Name = "storefront_session"
	}
	return &HTTPHandler{
		views:    deps.Views,
		reviews:  deps.Reviews,
		products: deps.Products,
		sessions: deps.Sessions,
		cookie:   deps.Cookie,
		limiter:  deps.Limiter,
		validate: validator.New(),
		log:      deps.Logger,
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *HTTPHandler) respondWithError(w http.ResponseWriter, code int, message string) {
	h.respondWithJSON(w, code, ErrorResponse{Error: message})
}

func (h *HTTPHandler) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			h.log.Error().Err(err).Msg("failed to encode JSON response")
		}
	}
}

// statusForError maps a failed write to an HTTP status: the store's own 4xx
// status when it gave one, 502 for anything else that came from upstream.
func statusForError(err error) int {
	var validationErrs validator.ValidationErrors
	var apiErr *store.APIError
	switch {
	case errors.As(err, &validationErrs):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrProductNotFound):
		return http.StatusNotFound
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		return apiErr.StatusCode
	default:
		return http.StatusBadGateway
	}
}

// PageResponse wraps every page view model with the page it belongs to.
type PageResponse struct {
	Page string      `json:"page"`
	Path string      `json:"path"`
	Data interface{} `json:"data"`
}

// ReviewsPage is the reviews view plus the blank submission form.
type ReviewsPage struct {
	catalog.ReviewsView
	Form catalog.ReviewForm `json:"form"`
}

// AdminEntry is the admin login page state.
type AdminEntry struct {
	SignedIn     bool   `json:"signed_in"`
	Email        string `json:"email,omitempty"`
	AccessDenied bool   `json:"access_denied"`
}

// Dashboard is the admin management view.
type Dashboard struct {
	Email    string              `json:"email"`
	Products []domain.Product    `json:"products"`
	Status   string              `json:"status,omitempty"`
	Form     domain.ProductInput `json:"form"`
}

// --- Public pages ---

// GetPage dispatches on the page name, e.g. GET /api/v1/pages/products.
func (h *HTTPHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, ok := domain.ParsePage(chi.URLParam(r, "page"))
	if !ok {
		h.respondWithError(w, http.StatusNotFound, "Page not found")
		return
	}
	h.renderPage(w, r, page)
}

func (h *HTTPHandler) pageHandler(page domain.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.renderPage(w, r, page)
	}
}

func (h *HTTPHandler) renderPage(w http.ResponseWriter, r *http.Request, page domain.Page) {
	var data interface{}
	switch page {
	case domain.PageHome:
		data = h.views.Home(r.Context())
	case domain.PageProducts:
		data = h.views.Products(r.Context(), r.URL.Query().Get("category"))
	case domain.PageBlog:
		data = h.views.Blog(r.Context(), r.URL.Query().Get("post"))
	case domain.PageReviews:
		data = ReviewsPage{ReviewsView: h.views.Reviews(r.Context()), Form: catalog.DefaultReviewForm()}
	case domain.PageAbout, domain.PageContact:
		data = struct{}{}
	case domain.PageAdmin:
		data = h.adminEntry(r)
	case domain.PageAdminDashboard:
		h.RequireAdmin(http.HandlerFunc(h.GetDashboard)).ServeHTTP(w, r)
		return
	}
	if data == nil {
		// Only reachable with a Page value that ParsePage never returns.
		h.respondWithError(w, http.StatusNotFound, "Page not found")
		return
	}
	h.respondWithJSON(w, http.StatusOK, PageResponse{Page: page.String(), Path: page.Path(), Data: data})
}

func (h *HTTPHandler) adminEntry(r *http.Request) AdminEntry {
	session, err := h.resolveSession(r)
	if err != nil {
		return AdminEntry{}
	}
	return AdminEntry{
		SignedIn:     true,
		Email:        session.Email,
		AccessDenied: !h.sessions.Permits(session.Email),
	}
}

// SubmitReview handles POST /api/v1/reviews.
func (h *HTTPHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	var form catalog.ReviewForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	lang := catalog.MatchLanguage(r.Header.Get("Accept-Language"))
	result := h.reviews.Submit(r.Context(), form, lang)
	w.Header().Set("Content-Language", lang.String())
	if !result.Success {
		h.respondWithJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	h.respondWithJSON(w, http.StatusCreated, result)
}

// --- Admin session ---

// LoginInput is the password sign-in form.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// MagicLinkInput is the passwordless sign-in form.
type MagicLinkInput struct {
	Email string `json:"email" validate:"required,email"`
}

// RedirectResponse tells the client where to go next.
type RedirectResponse struct {
	Redirect string `json:"redirect"`
	Email    string `json:"email,omitempty"`
}

// StatusResponse carries a status line for the client to show.
type StatusResponse struct {
	Status string `json:"status"`
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	session, err := h.sessions.SignIn(r.Context(), input.Email, input.Password)
	if err != nil {
		h.log.Warn().Err(err).Msg("admin sign-in failed")
		h.respondWithError(w, http.StatusUnauthorized, store.Message(err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	h.respondWithJSON(w, http.StatusOK, RedirectResponse{Redirect: domain.PageAdminDashboard.Path(), Email: session.Email})
}

func (h *HTTPHandler) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var input MagicLinkInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	if err := h.sessions.RequestMagicLink(r.Context(), input.Email); err != nil {
		h.log.Warn().Err(err).Msg("magic link request failed")
		h.respondWithError(w, statusForError(err), "Error sending link: "+store.Message(err))
		return
	}
	h.respondWithJSON(w, http.StatusAccepted, StatusResponse{Status: "Check your email for a sign-in link."})
}

func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(h.cookie.Name); err == nil {
		if err := h.sessions.SignOut(r.Context(), cookie.Value); err != nil {
			h.log.Error().Err(err).Msg("sign-out failed")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	h.respondWithJSON(w, http.StatusOK, RedirectResponse{Redirect: domain.PageAdmin.Path()})
}

// --- Admin management (behind RequireAdmin) ---

func (h *HTTPHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	products, status := h.products.List(r.Context())

	dashboard := Dashboard{
		Products: products,
		Status:   status,
		Form:     domain.DefaultProductInput(),
	}
	if session != nil {
		dashboard.Email = session.Email
	}
	h.respondWithJSON(w, http.StatusOK, PageResponse{
		Page: domain.PageAdminDashboard.String(),
		Path: domain.PageAdminDashboard.Path(),
		Data: dashboard,
	})
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, "", http.StatusCreated)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	h.saveProduct(w, r, chi.URLParam(r, "productId"), http.StatusOK)
}

func (h *HTTPHandler) saveProduct(w http.ResponseWriter, r *http.Request, editingID string, successCode int) {
	var input domain.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	result := h.products.Save(r.Context(), editingID, input)
	if !result.OK {
		h.respondWithJSON(w, statusForError(result.Err), result)
		return
	}
	h.respondWithJSON(w, successCode, result)
}

// DeleteProduct needs ?confirm=true; without it nothing is deleted and the
// client is asked to confirm.
func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	confirmed := r.URL.Query().Get("confirm") == "true"
	result, err := h.products.Delete(r.Context(), chi.URLParam(r, "productId"), confirmed)
	if errors.Is(err, catalog.ErrNotConfirmed) {
		h.respondWithError(w, http.StatusPreconditionRequired, "Delete this product? Repeat the request with confirm=true.")
		return
	}
	if !result.OK {
		h.respondWithJSON(w, statusForError(result.Err), result)
		return
	}
	h.respondWithJSON(w, http.StatusOK, result)
}

// UploadImage takes a multipart "file" field and answers with its public URL.
func (h *HTTPHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondWithError(w, http.StatusBadRequest, "Invalid upload: "+err.Error())
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.respondWithError(w, http.StatusBadRequest, "Invalid upload: missing file name")
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		sniff := make([]byte, 512)
		n, _ := io.ReadFull(file, sniff)
		contentType = http.DetectContentType(sniff[:n])
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			h.respondWithError(w, http.StatusInternalServerError, "Failed to read upload")
			return
		}
	}

	result := h.products.AttachImage(r.Context(), header.Filename, contentType, file)
	if !result.OK {
		h.respondWithJSON(w, http.StatusBadGateway, result)
		return
	}
	h.respondWithJSON(w, http.StatusOK, result)
}

// SuggestSlug answers GET /api/v1/admin/slug?title=...
func (h *HTTPHandler) SuggestSlug(w http.ResponseWriter, r *http.Request) {
	title := r.URL.Query().Get("title")
	if title == "" {
		h.respondWithError(w, http.StatusBadRequest, "title is required")
		return
	}
	h.respondWithJSON(w, http.StatusOK, map[string]string{"title": title, "slug": catalog.SuggestSlug(title)})
}

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/pages/{page}", h.GetPage)

		r.Get("/home", h.pageHandler(domain.PageHome))
		r.Get("/products", h.pageHandler(domain.PageProducts))
		r.Get("/blog", h.pageHandler(domain.PageBlog))
		r.Get("/about", h.pageHandler(domain.PageAbout))
		r.Get("/contact", h.pageHandler(domain.PageContact))
		r.Route("/reviews", func(r chi.Router) {
			r.Get("/", h.pageHandler(domain.PageReviews))
			r.Post("/", h.SubmitReview)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/", h.pageHandler(domain.PageAdmin))
			r.Group(func(r chi.Router) {
				if h.limiter != nil {
					r.Use(h.limiter.Middleware)
				}
				r.Post("/login", h.Login)
				r.Post("/magic-link", h.RequestMagicLink)
			})
			r.Post("/logout", h.Logout)

			r.Group(func(r chi.Router) {
				r.Use(h.RequireAdmin)
				r.Get("/dashboard", h.GetDashboard)
				r.Get("/slug", h.SuggestSlug)
				r.Post("/uploads", h.UploadImage)
				r.Route("/products", func(r chi.Router) {
					r.Post("/", h.CreateProduct)
					r.Route("/{productId}", func(r chi.Router) {
						r.Put("/", h.UpdateProduct)
						r.Delete("/", h.DeleteProduct)
					})
				})
			})
		})
	})
}

