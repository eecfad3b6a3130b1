package controllers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cancoktug/ginovainno-replit-sub001/middleware"
	"github.com/cancoktug/ginovainno-replit-sub001/models"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

const adminPassword = "correct horse battery"

type loginResponse struct {
	Token string           `json:"token"`
	User  models.AdminUser `json:"user"`
}

func authRouter(t *testing.T, captcha *utils.Captcha) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	_, err := CreateAdmin(db, "editor", adminPassword)
	require.NoError(t, err)

	issuer := newTestIssuer()
	blacklist := utils.NewTokenBlacklist(nil)
	a := NewAuthController(db, issuer, blacklist, utils.NewLoginGuard(nil), captcha)
	auth := middleware.AuthRequired(issuer, blacklist)

	r := gin.New()
	r.GET("/auth/captcha", a.Captcha)
	r.POST("/auth/login", a.Login)
	r.POST("/auth/logout", auth, a.Logout)
	r.GET("/auth/me", auth, a.Me)
	r.PUT("/admin/password", auth, a.ChangePassword)
	return r, db
}

func login(t *testing.T, r *gin.Engine, username, password string) (*loginResponse, int) {
	t.Helper()
	w := serveJSON(t, r, http.MethodPost, "/auth/login", gin.H{"username": username, "password": password}, nil)
	if w.Code != http.StatusOK {
		return nil, w.Code
	}
	var resp loginResponse
	decodeEnvelope(t, w, &resp)
	return &resp, w.Code
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func TestLoginAndSession(t *testing.T) {
	r, db := authRouter(t, nil)

	resp, code := login(t, r, " editor ", adminPassword)
	require.Equal(t, http.StatusOK, code)
	require.NotEmpty(t, resp.Token)
	assert.Equal(t, "editor", resp.User.Username)
	assert.NotNil(t, resp.User.LastLoginAt)

	var stored models.AdminUser
	require.NoError(t, db.First(&stored).Error)
	assert.NotNil(t, stored.LastLoginAt)

	w := serve(r, http.MethodGet, "/auth/me", nil, bearer(resp.Token))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"editor"`)
	assert.NotContains(t, w.Body.String(), "password")

	w = serve(r, http.MethodPost, "/auth/logout", nil, bearer(resp.Token))
	require.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/auth/me", nil, bearer(resp.Token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40104`)
}

func TestLoginFailures(t *testing.T) {
	r, _ := authRouter(t, nil)

	_, code := login(t, r, "editor", "wrong password!")
	assert.Equal(t, http.StatusUnauthorized, code)
	_, code = login(t, r, "nobody", adminPassword)
	assert.Equal(t, http.StatusUnauthorized, code)

	w := serveJSON(t, r, http.MethodPost, "/auth/login", gin.H{"username": "editor"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginLockout(t *testing.T) {
	r, _ := authRouter(t, nil)

	for i := 0; i < 5; i++ {
		_, code := login(t, r, "editor", "wrong password!")
		require.Equal(t, http.StatusUnauthorized, code, "attempt %d", i+1)
	}
	w := serveJSON(t, r, http.MethodPost, "/auth/login", gin.H{"username": "editor", "password": adminPassword}, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), `"code":42920`)
}

func TestLoginSuccessResetsFailures(t *testing.T) {
	r, _ := authRouter(t, nil)

	for i := 0; i < 4; i++ {
		_, code := login(t, r, "editor", "wrong password!")
		require.Equal(t, http.StatusUnauthorized, code)
	}
	_, code := login(t, r, "editor", adminPassword)
	require.Equal(t, http.StatusOK, code)
	_, code = login(t, r, "editor", "wrong password!")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestChangePassword(t *testing.T) {
	r, _ := authRouter(t, nil)
	resp, code := login(t, r, "editor", adminPassword)
	require.Equal(t, http.StatusOK, code)

	w := serveJSON(t, r, http.MethodPut, "/admin/password", gin.H{"current_password": "nope nope nope", "new_password": "another long secret"}, bearer(resp.Token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serveJSON(t, r, http.MethodPut, "/admin/password", gin.H{"current_password": adminPassword, "new_password": "short"}, bearer(resp.Token))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serveJSON(t, r, http.MethodPut, "/admin/password", gin.H{"current_password": adminPassword, "new_password": "another long secret"}, bearer(resp.Token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// the session that changed the password is closed
	w = serve(r, http.MethodGet, "/auth/me", nil, bearer(resp.Token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	_, code = login(t, r, "editor", adminPassword)
	assert.Equal(t, http.StatusUnauthorized, code)
	_, code = login(t, r, "editor", "another long secret")
	assert.Equal(t, http.StatusOK, code)
}

func TestCaptcha(t *testing.T) {
	r, _ := authRouter(t, nil)
	w := serve(r, http.MethodGet, "/auth/captcha", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enabled":false`)

	r, _ = authRouter(t, utils.NewCaptcha(nil))
	w = serve(r, http.MethodGet, "/auth/captcha", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var c struct {
		Enabled bool   `json:"enabled"`
		ID      string `json:"id"`
		Image   string `json:"image"`
	}
	decodeEnvelope(t, w, &c)
	assert.True(t, c.Enabled)
	assert.NotEmpty(t, c.ID)
	assert.True(t, strings.HasPrefix(c.Image, "data:image/png;base64,"))

	w = serveJSON(t, r, http.MethodPost, "/auth/login", gin.H{
		"username": "editor", "password": adminPassword, "captcha_id": c.ID, "captcha_answer": "nope",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":40062`)
}

func TestCreateAdmin(t *testing.T) {
	db := newTestDB(t)
	_, err := CreateAdmin(db, "  ", adminPassword)
	assert.Error(t, err)
	_, err = CreateAdmin(db, "x", "short")
	assert.ErrorIs(t, err, utils.ErrWeakPassword)

	u, err := CreateAdmin(db, "root", adminPassword)
	require.NoError(t, err)
	assert.NotEqual(t, adminPassword, u.PasswordHash)
	_, err = CreateAdmin(db, "root", adminPassword)
	assert.Error(t, err)
}
