package identity

import (
	"crypto/rand"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/bissquit/resettlement-portal/internal/domain"
	"github.com/bissquit/resettlement-portal/internal/pkg/ctxlog"
	"github.com/bissquit/resettlement-portal/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

var errorMappings = []httputil.ErrorMapping{
	{Error: ErrEmailExists, Status: http.StatusBadRequest, Message: "email already registered"},
	{Error: ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid email or password"},
	{Error: ErrRoleNotAllowed, Status: http.StatusForbidden},
	{Error: ErrPasswordTooLong, Status: http.StatusBadRequest},
	{Error: domain.ErrUnknownRole, Status: http.StatusBadRequest, Message: "unknown role"},
	{Error: ErrUserNotFound, Status: http.StatusNotFound},
	{Error: ErrStoreUnavailable, Status: http.StatusServiceUnavailable, Message: "service unavailable", Log: true},
	{Error: ErrUnavailable, Status: http.StatusServiceUnavailable, Message: "service unavailable", Log: true},
}

// CookieSettings contains settings for authentication cookies.
type CookieSettings struct {
	Secure bool
	Domain string
}

// Handler handles HTTP requests for the identity module.
type Handler struct {
	service        *Service
	validator      *validator.Validate
	cookieSettings CookieSettings
}

// NewHandler creates a new identity handler.
func NewHandler(service *Service, cookieSettings CookieSettings) *Handler {
	v := validator.New()
	// validator's max counts runes; bcrypt limits bytes.
	_ = v.RegisterValidation("maxbytes", func(fl validator.FieldLevel) bool {
		limit, err := strconv.Atoi(fl.Param())
		return err == nil && len(fl.Field().String()) <= limit
	})

	return &Handler{
		service:        service,
		validator:      v,
		cookieSettings: cookieSettings,
	}
}

// RegisterRoutes registers identity routes.
// Register runs behind optional authentication so administrators can assign roles.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.With(httputil.OptionalAuthMiddleware(h.service)).Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})
}

// RegisterProtectedRoutes registers routes that require authentication.
func (h *Handler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/me", h.Me)
}

// RegisterRequest represents registration request body.
type RegisterRequest struct {
	Name     string `json:"name" validate:"max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN MANAGER ANALYST USER"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}

	input := RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Caller:   httputil.ClaimsFromContext(r.Context()),
	}
	if req.Role != "" {
		role, err := domain.ParseRole(req.Role)
		if err != nil {
			httputil.Error(w, http.StatusBadRequest, "unknown role")
			return
		}
		input.Role = role
	}

	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusCreated, user)
}

// LoginRequest represents login request body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents login response.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	session, err := h.service.Login(r.Context(), LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	h.setAuthCookies(w, session)

	httputil.Success(w, http.StatusOK, LoginResponse{
		Token:     session.Token,
		ExpiresAt: session.Claims.ExpiresAt,
		User:      session.User,
	})
}

// Logout handles POST /auth/logout.
// Revokes the presented token when a denylist is configured and clears auth cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := httputil.TokenFromRequest(r); token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			ctxlog.FromContext(r.Context()).Warn("logout error", "error", err)
		}
	}

	h.clearAuthCookies(w)

	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	claims := httputil.ClaimsFromContext(r.Context())
	if claims == nil {
		httputil.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.service.GetUserByID(r.Context(), claims.SubjectID)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, errorMappings)
		return
	}

	httputil.Success(w, http.StatusOK, user)
}

// setAuthCookies issues the session cookie and a JS-readable CSRF token
// with the same lifetime.
func (h *Handler) setAuthCookies(w http.ResponseWriter, session *Session) {
	maxAge := int(time.Until(session.Claims.ExpiresAt).Seconds())
	http.SetCookie(w, h.cookie(httputil.AccessTokenCookie, session.Token, maxAge, true))
	http.SetCookie(w, h.cookie(httputil.CSRFTokenCookie, rand.Text(), maxAge, false))
}

func (h *Handler) clearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, h.cookie(httputil.AccessTokenCookie, "", -1, true))
	http.SetCookie(w, h.cookie(httputil.CSRFTokenCookie, "", -1, false))
}

func (h *Handler) cookie(name, value string, maxAge int, httpOnly bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   h.cookieSettings.Domain,
		MaxAge:   maxAge,
		HttpOnly: httpOnly,
		Secure:   h.cookieSettings.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// decode reads a JSON body into dst and validates it, writing the 400
// response itself when either step fails.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		httputil.ValidationError(w, err)
		return false
	}
	return true
}
