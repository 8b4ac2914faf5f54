package dashboard

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bissquit/resettlement-portal/internal/domain"
	"github.com/bissquit/resettlement-portal/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() http.Handler {
	r := chi.NewRouter()
	NewHandler(Views).RegisterRoutes(r)
	return r
}

func get(router http.Handler, path string, role domain.Role) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if role != 0 {
		claims := &domain.Claims{SubjectID: "42", Email: "someone@example.com", Role: role}
		req = req.WithContext(httputil.WithClaims(req.Context(), claims))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestDashboard_AccessMatrix(t *testing.T) {
	router := newTestRouter()

	allowed := map[string][]domain.Role{
		"/dashboard/admin":   {domain.RoleAdmin},
		"/dashboard/manager": {domain.RoleAdmin, domain.RoleManager},
		"/dashboard/analyst": {domain.RoleAdmin, domain.RoleManager, domain.RoleAnalyst},
		"/dashboard/user":    {domain.RoleAdmin, domain.RoleManager, domain.RoleAnalyst, domain.RoleUser},
		"/dashboard":         {domain.RoleAdmin, domain.RoleManager, domain.RoleAnalyst, domain.RoleUser},
	}

	for path, roles := range allowed {
		for _, role := range domain.Roles {
			want := http.StatusForbidden
			for _, r := range roles {
				if r == role {
					want = http.StatusOK
				}
			}

			rec := get(router, path, role)
			assert.Equal(t, want, rec.Code, "%s as %s", path, role)
		}

		rec := get(router, path, 0)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s anonymous", path)
	}
}

func TestDashboard_Home(t *testing.T) {
	rec := get(newTestRouter(), "/dashboard", domain.RoleAnalyst)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{
		"message":"Welcome to the dashboard!",
		"user":{"id":"42","email":"someone@example.com","role":"ANALYST"}
	}}`, rec.Body.String())
}

func TestDashboard_ManagerView(t *testing.T) {
	rec := get(newTestRouter(), "/dashboard/manager", domain.RoleManager)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome to the MANAGER dashboard!")
	assert.Contains(t, rec.Body.String(), "Resource allocation")
}
