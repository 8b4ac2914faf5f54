// Package dashboard serves role-gated dashboard views.
package dashboard

import (
	"net/http"

	"github.com/bissquit/resettlement-portal/internal/access"
	"github.com/bissquit/resettlement-portal/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// View is a dashboard page gated by a role policy.
type View struct {
	Path     string
	Policy   access.RoleSet
	Message  string
	Features []string
}

// Views lists the role-specific dashboards. Each route admits exactly the
// roles in its policy.
var Views = []View{
	{
		Path:    "/admin",
		Policy:  access.AdminOnly,
		Message: "Welcome to the ADMIN dashboard!",
		Features: []string{
			"User management",
			"Website content management",
			"Services and gallery editing",
			"System overview",
		},
	},
	{
		Path:    "/manager",
		Policy:  access.ManagementViews,
		Message: "Welcome to the MANAGER dashboard!",
		Features: []string{
			"Team management",
			"Project oversight",
			"Reports generation",
			"Resource allocation",
		},
	},
	{
		Path:    "/analyst",
		Policy:  access.AnalystViews,
		Message: "Welcome to the ANALYST dashboard!",
		Features: []string{
			"Data analysis",
			"Report creation",
			"Trend identification",
			"Data visualization",
		},
	},
	{
		Path:    "/user",
		Policy:  access.Everyone,
		Message: "Welcome to the USER dashboard!",
		Features: []string{
			"View personal data",
			"Submit requests",
			"Access basic reports",
			"Update profile",
		},
	},
}

// Handler handles HTTP requests for dashboards.
type Handler struct {
	views []View
}

// NewHandler creates a new dashboard handler serving views.
func NewHandler(views []View) *Handler {
	return &Handler{views: views}
}

// Identity is the caller summary returned by the dashboard home.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HomeResponse represents the dashboard home response.
type HomeResponse struct {
	Message string   `json:"message"`
	User    Identity `json:"user"`
}

// ViewResponse represents a role-specific dashboard response.
type ViewResponse struct {
	Message  string   `json:"message"`
	Features []string `json:"features"`
}

// RegisterRoutes registers dashboard routes. Callers must mount them behind
// authentication.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.With(httputil.RequireRoles(access.Everyone)).Get("/", h.Home)

		for _, v := range h.views {
			r.With(httputil.RequireRoles(v.Policy)).Get(v.Path, viewHandler(v))
		}
	})
}

// Home handles GET /dashboard.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	claims := httputil.ClaimsFromContext(r.Context())
	if claims == nil {
		httputil.Error(w, http.StatusUnauthorized, access.ErrUnauthenticated.Error())
		return
	}

	httputil.Success(w, http.StatusOK, HomeResponse{
		Message: "Welcome to the dashboard!",
		User: Identity{
			ID:    claims.SubjectID,
			Email: claims.Email,
			Role:  claims.Role.String(),
		},
	})
}

func viewHandler(v View) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httputil.Success(w, http.StatusOK, ViewResponse{
			Message:  v.Message,
			Features: v.Features,
		})
	}
}
