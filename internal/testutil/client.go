// Package testutil provides helpers for integration tests: disposable
// containers, an API client and OpenAPI response validation.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"testing"

	"github.com/bissquit/resettlement-portal/internal/domain"
	"github.com/bissquit/resettlement-portal/internal/pkg/httputil"
	"github.com/google/uuid"
)

// SeedPasswords maps the accounts created by seeds/users.sql to their passwords.
var SeedPasswords = map[domain.Role]struct{ Email, Password string }{
	domain.RoleAdmin:   {"admin@resettlement.com", "Admin@123"},
	domain.RoleManager: {"manager@resettlement.com", "Manager@123"},
	domain.RoleAnalyst: {"analyst@resettlement.com", "Analyst@123"},
	domain.RoleUser:    {"user@resettlement.com", "User@123"},
}

// Client is an HTTP client for exercising the API in tests.
// It keeps cookies between requests and, after LoginAs, echoes the CSRF
// cookie in the X-CSRF-Token header the way a browser frontend would.
type Client struct {
	BaseURL    string
	Token      string
	CSRFToken  string
	HTTPClient *http.Client
	Validator  *OpenAPIValidator
	t          *testing.T
}

// NewClient creates a client. validator may be nil to skip response validation.
func NewClient(t *testing.T, baseURL string, validator *OpenAPIValidator) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Jar: jar},
		Validator:  validator,
		t:          t,
	}
}

// RandomEmail returns a unique address so tests do not collide on the users table.
func RandomEmail(prefix string) string {
	return fmt.Sprintf("%s-%s@example.com", prefix, uuid.NewString()[:8])
}

// LoginAs authenticates with email and password, keeps the session cookies
// and returns the bearer token from the response body.
func (c *Client) LoginAs(email, password string) string {
	c.t.Helper()

	resp := c.Do(http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("login as %s failed: status=%d body=%s", email, resp.StatusCode, ReadBody(c.t, resp))
	}

	for _, cookie := range resp.Cookies() {
		if cookie.Name == httputil.CSRFTokenCookie {
			c.CSRFToken = cookie.Value
		}
	}

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	DecodeJSON(c.t, resp, &body)
	return body.Data.Token
}

// LoginAsRole logs in with the seeded account of role.
func (c *Client) LoginAsRole(role domain.Role) string {
	c.t.Helper()
	account, ok := SeedPasswords[role]
	if !ok {
		c.t.Fatalf("no seed account for role %s", role)
	}
	return c.LoginAs(account.Email, account.Password)
}

// Reset drops the bearer token, CSRF token and all cookies.
func (c *Client) Reset() {
	c.Token = ""
	c.CSRFToken = ""
	jar, _ := cookiejar.New(nil)
	c.HTTPClient.Jar = jar
}

// Do sends a JSON request. body may be nil.
func (c *Client) Do(method, path string, body any) *http.Response {
	c.t.Helper()

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.send(req)
}

// Upload posts content as the multipart field.
func (c *Client) Upload(path, field, filename string, content []byte) *http.Response {
	c.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		c.t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		c.t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		c.t.Fatalf("close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.BaseURL+path, &buf)
	if err != nil {
		c.t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.send(req)
}

func (c *Client) send(req *http.Request) *http.Response {
	c.t.Helper()

	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.CSRFToken != "" && req.Method != http.MethodGet {
		req.Header.Set(httputil.CSRFTokenHeader, c.CSRFToken)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}

	if c.Validator != nil {
		c.Validator.ValidateResponse(c.t, req, resp)
	}
	return resp
}

// DecodeJSON decodes response body into v and closes it.
func DecodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// DecodeData decodes the {"data": ...} envelope of resp.
func DecodeData[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	DecodeJSON(t, resp, &envelope)
	return envelope.Data
}

// ReadBody reads and returns response body as string.
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}
