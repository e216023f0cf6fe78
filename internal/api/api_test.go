package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JustJay7/case-manager/internal/auth"
	"github.com/JustJay7/case-manager/internal/billing"
	"github.com/JustJay7/case-manager/internal/cache"
	"github.com/JustJay7/case-manager/internal/calendar"
	"github.com/JustJay7/case-manager/internal/cases"
	"github.com/JustJay7/case-manager/internal/clients"
	"github.com/JustJay7/case-manager/internal/config"
	"github.com/JustJay7/case-manager/internal/dashboard"
	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/documents"
	"github.com/JustJay7/case-manager/internal/firm"
	"github.com/JustJay7/case-manager/internal/session"
	"github.com/JustJay7/case-manager/internal/storage"
	"github.com/JustJay7/case-manager/pkg/logger"
)

type envelope struct {
	Success    bool              `json:"success"`
	Data       json.RawMessage   `json:"data"`
	Error      string            `json:"error"`
	Details    map[string]string `json:"details"`
	Pagination map[string]int    `json:"pagination"`
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := database.OpenTest(t)
	log := logger.Nop()
	cfg := &config.Config{
		BootstrapTimeout: 5 * time.Second,
		PublicBaseURL:    "http://localhost:8080",
		FirmName:         "Case Manager",
	}
	testCache := cache.NewCache(100, time.Minute)
	store, err := storage.New(t.TempDir(), cfg.PublicBaseURL, 1<<20)
	require.NoError(t, err)

	router := gin.New()
	SetupRoutes(router, Deps{
		DB:        db,
		Cache:     testCache,
		Auth:      auth.NewService(db, auth.Config{Secret: "test-secret"}, log),
		Sessions:  session.NewStore(db),
		Clients:   clients.NewService(clients.NewStore(db), testCache, log),
		Cases:     cases.NewService(cases.NewStore(db), testCache, log),
		Firm:      firm.NewService(db, store, log),
		Documents: documents.NewService(db, store, testCache, log),
		Calendar:  calendar.NewService(db, testCache, log),
		Billing:   billing.NewService(db, log),
		Dashboard: dashboard.NewService(db, testCache, log),
		Storage:   store,
		Logger:    log,
		Config:    cfg,
	})
	return router
}

func do(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

// signUp registers a user and returns its bearer token.
func signUp(t *testing.T, router *gin.Engine, email string) string {
	t.Helper()
	w := do(t, router, http.MethodPost, "/auth/signup", "", gin.H{"email": email, "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Token string `json:"token"`
	}
	decode(t, w, &data)
	require.NotEmpty(t, data.Token)
	return data.Token
}

func setPrefix(t *testing.T, router *gin.Engine, token, prefix string) {
	t.Helper()
	w := do(t, router, http.MethodPut, "/api/settings/organization", token, gin.H{"organization_prefix": prefix})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func createClient(t *testing.T, router *gin.Engine, token, name string) database.Client {
	t.Helper()
	w := do(t, router, http.MethodPost, "/api/clients", token, gin.H{"name": name, "email": strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@example.com"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var client database.Client
	decode(t, w, &client)
	return client
}

func TestHealthCheck(t *testing.T) {
	router := setupTestRouter(t)

	w := do(t, router, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, true, response["database"])
}

func TestProtectedRoutes(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name     string
		method   string
		path     string
		accept   string
		wantCode int
		wantLoc  string
	}{
		{name: "json caller", method: http.MethodGet, path: "/api/clients", wantCode: http.StatusUnauthorized},
		{name: "browser", method: http.MethodGet, path: "/api/cases", accept: "text/html,application/xhtml+xml", wantCode: http.StatusFound, wantLoc: "/login"},
		{name: "rpc", method: http.MethodPost, path: "/rpc/get_dashboard_stats", wantCode: http.StatusUnauthorized},
		{name: "home page", method: http.MethodGet, path: "/", accept: "text/html", wantCode: http.StatusFound, wantLoc: "/login"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, w.Header().Get("Location"))
			}
			if tt.wantCode == http.StatusUnauthorized {
				env := decode(t, w, nil)
				assert.False(t, env.Success)
				assert.Equal(t, "unauthorized", env.Error)
			}
		})
	}
}

func TestSignUpProvisionsProfileAndFirm(t *testing.T) {
	router := setupTestRouter(t)

	w := do(t, router, http.MethodPost, "/auth/signup", "", gin.H{"email": "Jane@Firm.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Set-Cookie"), auth.CookieName+"=")

	var data struct {
		Token string        `json:"token"`
		State session.State `json:"state"`
	}
	decode(t, w, &data)
	require.NotNil(t, data.State.User)
	assert.Equal(t, "jane@firm.com", data.State.User.Email)
	assert.False(t, data.State.Loading)
	require.NotNil(t, data.State.Profile)
	require.NotNil(t, data.State.Profile.Role)
	assert.Equal(t, session.DefaultRole, *data.State.Profile.Role)
	require.NotNil(t, data.State.FirmSettings)

	// A second bootstrap finds the same rows.
	w = do(t, router, http.MethodGet, "/api/session", data.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state session.State
	decode(t, w, &state)
	require.NotNil(t, state.Profile)
	assert.Equal(t, data.State.Profile.ID, state.Profile.ID)

	w = do(t, router, http.MethodPost, "/auth/signup", "", gin.H{"email": "jane@firm.com", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodPost, "/auth/signup", "", gin.H{"email": "not-an-email", "password": "1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decode(t, w, nil)
	assert.Contains(t, env.Details, "email")
	assert.Contains(t, env.Details, "password")
}

func TestAnonymousSession(t *testing.T) {
	router := setupTestRouter(t)

	w := do(t, router, http.MethodGet, "/api/session", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var state session.State
	decode(t, w, &state)
	assert.Nil(t, state.User)
	assert.Nil(t, state.Profile)
	assert.False(t, state.Loading)
}

func TestLoginAndLogout(t *testing.T) {
	router := setupTestRouter(t)
	signUp(t, router, "lee@firm.com")

	w := do(t, router, http.MethodPost, "/auth/login", "", gin.H{"email": "lee@firm.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, router, http.MethodPost, "/auth/login", "", gin.H{"email": "lee@firm.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	var data struct {
		Token string `json:"token"`
	}
	decode(t, w, &data)

	w = do(t, router, http.MethodGet, "/api/clients", data.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodPost, "/auth/logout", data.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/api/clients", data.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginForm(t *testing.T) {
	router := setupTestRouter(t)
	signUp(t, router, "form@firm.com")

	w := do(t, router, http.MethodGet, "/login", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Case Manager")

	post := func(password string) *httptest.ResponseRecorder {
		form := url.Values{"email": {"form@firm.com"}, "password": {password}}
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Accept", "text/html")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w = post("nope-nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")

	w = post("secret123")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Contains(t, w.Header().Get("Set-Cookie"), auth.CookieName+"=")
}

func TestClientNumbering(t *testing.T) {
	router := setupTestRouter(t)
	token := signUp(t, router, "jane@firm.com")

	w := do(t, router, http.MethodPost, "/api/clients", token, gin.H{"name": "Early", "email": "e@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, clients.ErrPrefixNotSet.Error(), decode(t, w, nil).Error)
	assert.Contains(t, clients.ErrPrefixNotSet.Error(), "Firm Settings")

	// Input errors are reported before the missing prefix.
	w = do(t, router, http.MethodPost, "/api/clients", token, gin.H{"name": "No Contact"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w, nil).Details, "contact")

	w = do(t, router, http.MethodPut, "/api/settings/organization", token, gin.H{"organization_prefix": "TOOLONG"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	setPrefix(t, router, token, "abc")

	w = do(t, router, http.MethodPost, "/api/clients", token, gin.H{"name": "No Contact"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w, nil).Details, "contact")

	for i := 1; i <= 4; i++ {
		c := createClient(t, router, token, fmt.Sprintf("Client %d", i))
		assert.Equal(t, fmt.Sprintf("ABC/%03d", i), c.ClientNumber)
	}

	w = do(t, router, http.MethodGet, "/api/clients/next-number", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var preview struct {
		ClientNumber string `json:"client_number"`
	}
	decode(t, w, &preview)
	assert.Equal(t, "ABC/005", preview.ClientNumber)

	jane := createClient(t, router, token, "Jane Doe")
	assert.Equal(t, "ABC/005", jane.ClientNumber)

	w = do(t, router, http.MethodGet, "/api/clients?search=jane", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []database.Client
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, jane.ID, list[0].ID)

	w = do(t, router, http.MethodDelete, "/api/clients/"+jane.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, router, http.MethodGet, "/api/clients/"+jane.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCasesAndDashboard(t *testing.T) {
	router := setupTestRouter(t)
	token := signUp(t, router, "sam@firm.com")
	setPrefix(t, router, token, "LAW")
	client := createClient(t, router, token, "Acme Ltd")

	w := do(t, router, http.MethodPost, "/api/cases", token, gin.H{"title": "Broken lease", "client_id": client.ID, "case_type": "NOPE"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w, nil).Details, "case_type")

	w = do(t, router, http.MethodPost, "/api/cases", token, gin.H{"title": "Broken lease", "client_id": client.ID, "case_type": "LIT"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var kase database.Case
	decode(t, w, &kase)
	assert.Equal(t, fmt.Sprintf("LAW/001/LIT/01/%d", time.Now().Year()), kase.CaseNumber)

	w = do(t, router, http.MethodGet, "/api/cases?status=open", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w, nil)
	assert.Equal(t, 1, env.Pagination["total"])

	w = do(t, router, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ov dashboard.Overview
	decode(t, w, &ov)
	require.NotNil(t, ov.Stats)
	assert.Equal(t, int64(1), ov.Stats.TotalCases)
	assert.Equal(t, int64(1), ov.Stats.ActiveCases)
	require.Len(t, ov.RecentCases, 1)
	require.NotNil(t, ov.RecentCases[0].ClientName)
	assert.Equal(t, "Acme Ltd", *ov.RecentCases[0].ClientName)

	// Closing the case invalidates the cached stats.
	w = do(t, router, http.MethodPut, "/api/cases/"+kase.ID, token, gin.H{"status": "closed"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodPost, "/rpc/get_dashboard_stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats dashboard.Stats
	decode(t, w, &stats)
	assert.Equal(t, int64(1), stats.TotalCases)
	assert.Equal(t, int64(0), stats.ActiveCases)

	// user_id in the body cannot point at another user.
	w = do(t, router, http.MethodPost, "/rpc/get_recent_cases", token, gin.H{"user_id": "someone-else", "limit_count": 1})
	require.Equal(t, http.StatusOK, w.Code)
	var recent []dashboard.RecentCase
	decode(t, w, &recent)
	assert.Len(t, recent, 1)

	w = do(t, router, http.MethodPost, "/rpc/drop_everything", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, router, http.MethodGet, "/api/matter-types", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDocumentUploadIsServed(t *testing.T) {
	router := setupTestRouter(t)
	token := signUp(t, router, "doc@firm.com")

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "Brief v2.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("tags", "court, draft"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var doc database.Document
	decode(t, w, &doc)
	assert.Equal(t, "Brief v2.pdf", doc.Name)
	assert.Equal(t, database.StringList{"court", "draft"}, doc.Tags)
	require.True(t, strings.HasPrefix(doc.FileURL, "http://localhost:8080/storage/documents/"), doc.FileURL)

	u, err := url.Parse(doc.FileURL)
	require.NoError(t, err)
	w = do(t, router, http.MethodGet, u.Path, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "%PDF-1.4 test", w.Body.String())

	w = do(t, router, http.MethodDelete, "/api/documents/"+doc.ID, token, nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, router, http.MethodGet, u.Path, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEvents(t *testing.T) {
	router := setupTestRouter(t)
	token := signUp(t, router, "cal@firm.com")

	start := time.Date(2030, 3, 4, 9, 0, 0, 0, time.UTC)
	w := do(t, router, http.MethodPost, "/api/events", token, gin.H{"title": "Hearing", "event_type": "hearing", "start_date": start})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, "/api/events?from=2030-03-01T00:00:00Z&to=2030-03-08T00:00:00Z", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var events []database.Event
	decode(t, w, &events)
	require.Len(t, events, 1)
	assert.Equal(t, "Hearing", events[0].Title)

	w = do(t, router, http.MethodGet, "/api/events?from=yesterday", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBillingFlow(t *testing.T) {
	router := setupTestRouter(t)
	token := signUp(t, router, "bill@firm.com")
	setPrefix(t, router, token, "BIL")
	client := createClient(t, router, token, "Payer Inc")

	w := do(t, router, http.MethodPost, "/api/cases", token, gin.H{"title": "Advice", "client_id": client.ID, "case_type": "LIT"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var kase database.Case
	decode(t, w, &kase)

	w = do(t, router, http.MethodPost, "/api/time-entries", token, gin.H{"description": "Research", "case_id": kase.ID, "duration": 60, "rate": 100})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, router, http.MethodPost, "/api/invoices", token, gin.H{"client_id": client.ID, "include_unbilled": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var inv database.Invoice
	decode(t, w, &inv)
	assert.Equal(t, fmt.Sprintf("INV-%d-0001", time.Now().Year()), inv.InvoiceNumber)

	w = do(t, router, http.MethodPut, "/api/invoices/"+inv.ID+"/status", token, gin.H{"status": "paid"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodPut, "/api/invoices/"+inv.ID+"/status", token, gin.H{"status": "sent"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodGet, "/api/billing/summary", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sum billing.Summary
	decode(t, w, &sum)
	assert.InDelta(t, 100.0, sum.Outstanding, 0.001)
	assert.Equal(t, 1, sum.InvoiceCount)
}

func TestOrganizationsAreIsolated(t *testing.T) {
	router := setupTestRouter(t)

	firmA := signUp(t, router, "a@firm-a.com")
	setPrefix(t, router, firmA, "AAA")
	secret := createClient(t, router, firmA, "Secret Client")

	w := do(t, router, http.MethodPost, "/api/cases", firmA, gin.H{"title": "Sealed", "client_id": secret.ID, "case_type": "LIT"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var kase database.Case
	decode(t, w, &kase)

	w = do(t, router, http.MethodPost, "/api/invoices", firmA, gin.H{"client_id": secret.ID, "items": []gin.H{{"description": "Retainer", "quantity": 1, "rate": 500}}})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var inv database.Invoice
	decode(t, w, &inv)

	firmB := signUp(t, router, "b@firm-b.com")
	setPrefix(t, router, firmB, "BBB")

	w = do(t, router, http.MethodGet, "/api/clients", firmB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "AAA/001")
	var list []database.Client
	decode(t, w, &list)
	assert.Empty(t, list)

	for _, tc := range []struct {
		method, path string
		body         interface{}
	}{
		{http.MethodGet, "/api/clients/" + secret.ID, nil},
		{http.MethodPut, "/api/clients/" + secret.ID, gin.H{"name": "Mine now", "email": "x@b.com"}},
		{http.MethodDelete, "/api/clients/" + secret.ID, nil},
		{http.MethodGet, "/api/cases/" + kase.ID, nil},
		{http.MethodPut, "/api/cases/" + kase.ID, gin.H{"status": "closed"}},
		{http.MethodDelete, "/api/cases/" + kase.ID, nil},
		{http.MethodPost, "/api/cases", gin.H{"title": "Intrude", "client_id": secret.ID, "case_type": "LIT"}},
		{http.MethodPost, "/api/time-entries", gin.H{"description": "x", "case_id": kase.ID, "duration": 10}},
		{http.MethodPost, "/api/invoices", gin.H{"client_id": secret.ID, "items": []gin.H{{"description": "x", "quantity": 1, "rate": 1}}}},
		{http.MethodGet, "/api/invoices/" + inv.ID, nil},
		{http.MethodPut, "/api/invoices/" + inv.ID + "/status", gin.H{"status": "cancelled"}},
	} {
		w := do(t, router, tc.method, tc.path, firmB, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s: %s", tc.method, tc.path, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/api/cases", firmB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode(t, w, nil).Pagination["total"])

	w = do(t, router, http.MethodGet, "/api/invoices", firmB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var invoices []database.Invoice
	decode(t, w, &invoices)
	assert.Empty(t, invoices)

	w = do(t, router, http.MethodGet, "/api/billing/summary", firmB, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sum billing.Summary
	decode(t, w, &sum)
	assert.Zero(t, sum.InvoiceCount)

	// Firm A still sees everything untouched.
	w = do(t, router, http.MethodGet, "/api/clients/"+secret.ID, firmA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got database.Client
	decode(t, w, &got)
	assert.Equal(t, "Secret Client", got.Name)

	w = do(t, router, http.MethodGet, "/api/invoices/"+inv.ID, firmA, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &inv)
	assert.Equal(t, database.InvoiceStatusDraft, inv.Status)
}

func TestSettings(t *testing.T) {
	router := setupTestRouter(t)
	token := signUp(t, router, "set@firm.com")

	w := do(t, router, http.MethodPut, "/api/settings/firm", token, gin.H{"firm_name": "Doe & Partners", "website": "doe.example"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w, nil).Details, "website")

	w = do(t, router, http.MethodPut, "/api/settings/firm", token, gin.H{"firm_name": "Doe & Partners", "organization_prefix": "dp"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, router, http.MethodGet, "/api/settings/organization", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var org struct {
		OrganizationPrefix string `json:"organization_prefix"`
	}
	decode(t, w, &org)
	assert.Equal(t, "DP", org.OrganizationPrefix)

	w = do(t, router, http.MethodPost, "/api/settings/preferences/categories", token, gin.H{"kind": "case", "name": "Civil"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, router, http.MethodPost, "/api/settings/preferences/categories", token, gin.H{"kind": "case", "name": "Tax"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, router, http.MethodDelete, "/api/settings/preferences/categories/case/Tax", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var prefs database.SystemPreferences
	decode(t, w, &prefs)
	assert.False(t, prefs.CaseCategories.Contains("Tax"))
}
