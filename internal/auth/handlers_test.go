package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mrlokans/readersforest/internal/config"
	"github.com/mrlokans/readersforest/internal/database/users"
)

// jsonRenderer records which page was drawn instead of executing templates.
type jsonRenderer struct{}

func (jsonRenderer) Render(c *gin.Context, status int, name string, data gin.H) {
	data["Page"] = name
	c.JSON(status, data)
}

type page struct {
	Page     string
	Message  string
	Username string
}

func setupAuthRouter(t *testing.T) (*gin.Engine, *Service, func()) {
	t.Helper()

	db, cleanup := setupTestDB(t)
	cfg := config.Auth{
		BcryptCost:       bcrypt.MinCost,
		MaxLoginAttempts: 3,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}
	svc := NewService(users.NewRepository(db.DB), cfg)

	sqlDB, err := db.SQLDB()
	require.NoError(t, err)
	sm, err := NewSessionManager(sqlDB, config.Session{Lifetime: time.Hour})
	require.NoError(t, err)

	ac := NewAuthController(svc, sm, jsonRenderer{}, cfg)

	router := gin.New()
	router.Use(sm.SessionLoadSave())
	router.Use(NewMiddleware(sm).Handler())
	ac.RegisterRoutes(router)

	return router, svc, func() {
		ac.Stop()
		cleanup()
	}
}

func postForm(router *gin.Engine, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodePage(t *testing.T, rr *httptest.ResponseRecorder) page {
	t.Helper()
	var p page
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	return p
}

func registration(username string) url.Values {
	return url.Values{
		"first_name": {"Frodo"},
		"last_name":  {"Baggins"},
		"username":   {username},
		"password":   {"ringbearer"},
	}
}

func TestAuthController_RegisterThenLogin(t *testing.T) {
	router, _, cleanup := setupAuthRouter(t)
	defer cleanup()

	rr := postForm(router, "/register", registration("frodo"))
	require.Equal(t, http.StatusOK, rr.Code)
	p := decodePage(t, rr)
	assert.Equal(t, "login.html", p.Page)
	assert.Equal(t, MsgRegistrationComplete, p.Message)

	rr = postForm(router, "/login", url.Values{"username": {"frodo"}, "password": {"ringbearer"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/search", rr.Header().Get("Location"))
	cookie := sessionCookie(t, rr)
	require.NotNil(t, cookie)

	// Signed-in users skip the login form.
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusFound, rr.Code)
}

func TestAuthController_LoginFailure(t *testing.T) {
	router, _, cleanup := setupAuthRouter(t)
	defer cleanup()

	postForm(router, "/register", registration("frodo"))

	rr := postForm(router, "/login", url.Values{"username": {"frodo"}, "password": {"wrong-password"}})
	require.Equal(t, http.StatusOK, rr.Code)
	p := decodePage(t, rr)
	assert.Equal(t, "login.html", p.Page)
	assert.Equal(t, MsgInvalidCredentials, p.Message)
	assert.Equal(t, "frodo", p.Username)
	assert.Nil(t, sessionCookie(t, rr))
}

func TestAuthController_LoginThrottled(t *testing.T) {
	router, _, cleanup := setupAuthRouter(t)
	defer cleanup()

	bad := url.Values{"username": {"frodo"}, "password": {"wrong-password"}}
	for i := 0; i < 3; i++ {
		postForm(router, "/login", bad)
	}

	rr := postForm(router, "/login", bad)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, MsgTooManyAttempts, decodePage(t, rr).Message)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
}

func TestAuthController_RegisterMessages(t *testing.T) {
	router, svc, cleanup := setupAuthRouter(t)
	defer cleanup()

	postForm(router, "/register", registration("frodo"))

	tests := []struct {
		name   string
		mutate func(url.Values)
		want   string
	}{
		{"duplicate username", func(v url.Values) {}, MsgUsernameTaken},
		{"blank first name", func(v url.Values) { v.Set("username", "new1"); v.Set("first_name", " ") }, MsgFirstNameRequired},
		{"missing last name", func(v url.Values) { v.Set("username", "new2"); v.Del("last_name") }, MsgLastNameRequired},
		{"missing username", func(v url.Values) { v.Set("username", "") }, MsgUsernameRequired},
		{"missing password", func(v url.Values) { v.Set("username", "new3"); v.Set("password", "") }, MsgPasswordRequired},
		{"short password", func(v url.Values) { v.Set("username", "new4"); v.Set("password", "abc") }, MsgPasswordTooShort},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := registration("frodo")
			tt.mutate(form)

			rr := postForm(router, "/register", form)
			require.Equal(t, http.StatusOK, rr.Code)
			p := decodePage(t, rr)
			assert.Equal(t, "register.html", p.Page)
			assert.Equal(t, tt.want, p.Message)
		})
	}

	count, err := svc.CountUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAuthController_Logout(t *testing.T) {
	router, _, cleanup := setupAuthRouter(t)
	defer cleanup()

	postForm(router, "/register", registration("frodo"))
	rr := postForm(router, "/login", url.Values{"username": {"frodo"}, "password": {"ringbearer"}})
	cookie := sessionCookie(t, rr)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(cookie)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, MsgLoggedOut, decodePage(t, rr).Message)
	cleared := sessionCookie(t, rr)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)
}

func TestAuthController_LoginPage(t *testing.T) {
	router, _, cleanup := setupAuthRouter(t)
	defer cleanup()

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/login", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, MsgPleaseSignIn, decodePage(t, rr).Message)
}
