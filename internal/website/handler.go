package website

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bissquit/resettlement-portal/internal/domain"
	"github.com/bissquit/resettlement-portal/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrServiceNotFound, Status: http.StatusNotFound},
	{Error: ErrGalleryItemNotFound, Status: http.StatusNotFound},
	{Error: ErrInvalidID, Status: http.StatusBadRequest},
	{Error: ErrEmptyTitle, Status: http.StatusBadRequest},
	{Error: ErrNoFile, Status: http.StatusBadRequest},
	{Error: ErrUnsupportedType, Status: http.StatusBadRequest},
	{Error: ErrFileTooLarge, Status: http.StatusRequestEntityTooLarge},
	{Error: ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "service unavailable", Log: true},
}

// Handler handles HTTP requests for the website module.
type Handler struct {
	service   *Service
	uploader  *Uploader
	validator *validator.Validate
}

// NewHandler creates a new website handler.
// uploader may be nil, in which case uploads respond with 503.
func NewHandler(service *Service, uploader *Uploader) *Handler {
	return &Handler{
		service:   service,
		uploader:  uploader,
		validator: validator.New(),
	}
}

// RegisterPublicRoutes registers read-only routes.
// Mount behind optional authentication so administrators can list inactive entries.
func (h *Handler) RegisterPublicRoutes(r chi.Router) {
	r.Get("/website", h.GetWebsite)
	r.Get("/services", h.ListServices)
	r.Get("/gallery", h.ListGalleryItems)
}

// RegisterAdminRoutes registers content management routes (admin only).
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Put("/website", h.UpsertWebsite)

	r.Post("/services", h.CreateService)
	r.Put("/services/{id}", h.UpdateService)
	r.Delete("/services/{id}", h.DeleteService)

	r.Post("/gallery", h.CreateGalleryItem)
	r.Put("/gallery/{id}", h.UpdateGalleryItem)
	r.Delete("/gallery/{id}", h.DeleteGalleryItem)

	r.Post("/uploads", h.Upload)
}

// WebsiteRequest represents the request body for saving contact information.
type WebsiteRequest struct {
	Address     string `json:"address" validate:"required,max=500"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Telephone   string `json:"telephone" validate:"required,max=50"`
	Description string `json:"description" validate:"max=5000"`
}

// ToDomain converts the request to a domain model.
func (r *WebsiteRequest) ToDomain() *domain.Website {
	return &domain.Website{
		Address:     r.Address,
		Email:       r.Email,
		Telephone:   r.Telephone,
		Description: r.Description,
	}
}

// ServiceRequest represents the request body for creating or replacing a service.
type ServiceRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=5000"`
	Icon        string `json:"icon" validate:"max=255"`
	IsActive    *bool  `json:"is_active"`
	Order       int    `json:"order" validate:"min=0"`
}

// ToDomain converts the request to a domain model. Entries are active unless stated otherwise.
func (r *ServiceRequest) ToDomain() *domain.Service {
	return &domain.Service{
		Title:       r.Title,
		Description: r.Description,
		Icon:        r.Icon,
		IsActive:    r.IsActive == nil || *r.IsActive,
		Order:       r.Order,
	}
}

// GalleryItemRequest represents the request body for creating or replacing a gallery item.
type GalleryItemRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=5000"`
	ImageURL    string `json:"image_url" validate:"required,max=2048"`
	AltText     string `json:"alt_text" validate:"max=255"`
	IsActive    *bool  `json:"is_active"`
	Order       int    `json:"order" validate:"min=0"`
}

// ToDomain converts the request to a domain model. Items are active unless stated otherwise.
func (r *GalleryItemRequest) ToDomain() *domain.GalleryItem {
	return &domain.GalleryItem{
		Title:       r.Title,
		Description: r.Description,
		ImageURL:    r.ImageURL,
		AltText:     r.AltText,
		IsActive:    r.IsActive == nil || *r.IsActive,
		Order:       r.Order,
	}
}

// UploadResponse represents the response of a successful upload.
type UploadResponse struct {
	ImageURL string `json:"image_url"`
}

// GetWebsite handles GET /website request.
// Responds with null data when contact information has not been saved yet.
func (h *Handler) GetWebsite(w http.ResponseWriter, r *http.Request) {
	website, err := h.service.GetWebsite(r.Context())
	if errors.Is(err, ErrWebsiteNotFound) {
		httputil.Success(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, website)
}

// UpsertWebsite handles PUT /website request.
func (h *Handler) UpsertWebsite(w http.ResponseWriter, r *http.Request) {
	var req WebsiteRequest
	if !h.decode(w, r, &req) {
		return
	}

	website := req.ToDomain()
	if err := h.service.UpsertWebsite(r.Context(), website); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, website)
}

// ListServices handles GET /services request.
func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.ListServices(r.Context(), listFilter(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, services)
}

// CreateService handles POST /services request.
func (h *Handler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req ServiceRequest
	if !h.decode(w, r, &req) {
		return
	}

	service := req.ToDomain()
	if err := h.service.CreateService(r.Context(), service); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, service)
}

// UpdateService handles PUT /services/{id} request.
func (h *Handler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var req ServiceRequest
	if !h.decode(w, r, &req) {
		return
	}

	service := req.ToDomain()
	service.ID = chi.URLParam(r, "id")
	if err := h.service.UpdateService(r.Context(), service); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, service)
}

// DeleteService handles DELETE /services/{id} request.
func (h *Handler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteService(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListGalleryItems handles GET /gallery request.
func (h *Handler) ListGalleryItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListGalleryItems(r.Context(), listFilter(r))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, items)
}

// CreateGalleryItem handles POST /gallery request.
func (h *Handler) CreateGalleryItem(w http.ResponseWriter, r *http.Request) {
	var req GalleryItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	item := req.ToDomain()
	if err := h.service.CreateGalleryItem(r.Context(), item); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, item)
}

// UpdateGalleryItem handles PUT /gallery/{id} request.
func (h *Handler) UpdateGalleryItem(w http.ResponseWriter, r *http.Request) {
	var req GalleryItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	item := req.ToDomain()
	item.ID = chi.URLParam(r, "id")
	if err := h.service.UpdateGalleryItem(r.Context(), item); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, item)
}

// DeleteGalleryItem handles DELETE /gallery/{id} request.
func (h *Handler) DeleteGalleryItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteGalleryItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Upload handles POST /uploads request with a multipart "file" field.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.uploader == nil {
		httputil.Error(w, http.StatusServiceUnavailable, "uploads unavailable")
		return
	}

	// Leave room for multipart framing on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.uploader.MaxSize()+1<<20)

	file, _, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			httputil.HandleError(r.Context(), w, ErrFileTooLarge, errorMappings)
			return
		}
		httputil.HandleError(r.Context(), w, ErrNoFile, errorMappings)
		return
	}
	defer func() { _ = file.Close() }()

	url, err := h.uploader.Save(r.Context(), file)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, UploadResponse{ImageURL: url})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return false
	}
	return true
}

// listFilter honours include_inactive=true only for administrators.
func listFilter(r *http.Request) ListFilter {
	claims := httputil.ClaimsFromContext(r.Context())
	return ListFilter{
		IncludeInactive: r.URL.Query().Get("include_inactive") == "true" &&
			claims != nil && claims.Role == domain.RoleAdmin,
	}
}
