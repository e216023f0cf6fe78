package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/JustJay7/case-manager/internal/database"
	"github.com/JustJay7/case-manager/internal/validation"
	"github.com/JustJay7/case-manager/pkg/logger"
)

func newService(t *testing.T) *Service {
	t.Helper()
	return NewService(database.OpenTest(t), Config{Secret: "test-secret", TTL: time.Hour}, logger.Nop())
}

func TestSignUpAndSignIn(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, "  Jane@Example.com ", "secret123")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", sess.User.Email)
	assert.NotEmpty(t, sess.Token)

	_, err = svc.SignUp(ctx, "jane@example.com", "another1")
	assert.ErrorIs(t, err, ErrEmailTaken)

	signed, err := svc.SignIn(ctx, "jane@example.com", "secret123")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, signed.User.ID)
	assert.NotEqual(t, sess.Token, signed.Token)

	_, err = svc.SignIn(ctx, "jane@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.SignIn(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignUpLosingRaceReportsEmailTaken(t *testing.T) {
	db := database.OpenTest(t)
	svc := NewService(db, Config{Secret: "test-secret", TTL: time.Hour}, logger.Nop())

	// Another sign-up lands between the email check and the insert.
	inserted := false
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:concurrent_signup", func(tx *gorm.DB) {
		if inserted || tx.Statement.Table != "users" {
			return
		}
		inserted = true
		tx.Session(&gorm.Session{NewDB: true}).Exec(
			"INSERT INTO users (id, email, password_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
			"other-user", "jane@example.com", "x", time.Now(), time.Now())
	}))

	_, err := svc.SignUp(context.Background(), "jane@example.com", "secret123")
	require.True(t, inserted)
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignUpValidation(t *testing.T) {
	svc := newService(t)

	_, err := svc.SignUp(context.Background(), "not-an-email", "x")
	var v validation.Violations
	require.ErrorAs(t, err, &v)
	assert.Contains(t, v, "email")
	assert.Contains(t, v, "password")
}

func TestTokensAreStoredHashed(t *testing.T) {
	svc := newService(t)

	sess, err := svc.SignUp(context.Background(), "a@b.co", "secret123")
	require.NoError(t, err)

	var row database.AuthSession
	require.NoError(t, svc.db.First(&row, "user_id = ?", sess.User.ID).Error)
	assert.NotEqual(t, sess.Token, row.TokenHash)
	assert.Equal(t, svc.hash(sess.Token), row.TokenHash)
}

func TestGetSessionExpiry(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	sess, err := svc.SignUp(ctx, "a@b.co", "secret123")
	require.NoError(t, err)

	got, err := svc.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, got.User.ID)

	_, err = svc.GetSession(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = svc.GetSession(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)

	svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = svc.GetSession(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNoSession)

	var count int64
	require.NoError(t, svc.db.Model(&database.AuthSession{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubscribeReceivesEvents(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	var events []Event
	unsubscribe := svc.Subscribe(func(e Event, s *Session) {
		events = append(events, e)
	})

	sess, err := svc.SignUp(ctx, "a@b.co", "secret123")
	require.NoError(t, err)
	require.NoError(t, svc.SignOut(ctx, sess.Token))

	_, err = svc.GetSession(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNoSession)

	// Unknown tokens sign out silently.
	require.NoError(t, svc.SignOut(ctx, sess.Token))

	unsubscribe()
	unsubscribe()
	_, err = svc.SignIn(ctx, "a@b.co", "secret123")
	require.NoError(t, err)

	assert.Equal(t, []Event{SignedIn, SignedOut}, events)
}

func TestRequireAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := newService(t)

	sess, err := svc.SignUp(context.Background(), "a@b.co", "secret123")
	require.NoError(t, err)

	router := gin.New()
	router.Use(Middleware(svc))
	router.GET("/api/private", RequireAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})

	tests := []struct {
		name     string
		setup    func(r *http.Request)
		wantCode int
		wantBody string
		wantLoc  string
	}{
		{
			name:     "bearer token",
			setup:    func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+sess.Token) },
			wantCode: http.StatusOK,
			wantBody: sess.User.ID,
		},
		{
			name:     "cookie",
			setup:    func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: sess.Token}) },
			wantCode: http.StatusOK,
			wantBody: sess.User.ID,
		},
		{
			name:     "anonymous json",
			setup:    func(r *http.Request) {},
			wantCode: http.StatusUnauthorized,
			wantBody: `"error":"unauthorized"`,
		},
		{
			name:     "anonymous browser",
			setup:    func(r *http.Request) { r.Header.Set("Accept", "text/html,application/xhtml+xml") },
			wantCode: http.StatusFound,
			wantLoc:  "/login",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/private", nil)
			tt.setup(req)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, w.Header().Get("Location"))
			}
		})
	}
}
