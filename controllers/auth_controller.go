package controllers

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cancoktug/ginovainno-replit-sub001/middleware"
	"github.com/cancoktug/ginovainno-replit-sub001/models"
	"github.com/cancoktug/ginovainno-replit-sub001/utils"
)

// AuthController handles admin sign-in and session management.
type AuthController struct {
	db        *gorm.DB
	issuer    *utils.TokenIssuer
	blacklist *utils.TokenBlacklist
	guard     *utils.LoginGuard
	// captcha is nil when the login captcha is disabled.
	captcha *utils.Captcha
}

func NewAuthController(db *gorm.DB, issuer *utils.TokenIssuer, blacklist *utils.TokenBlacklist, guard *utils.LoginGuard, captcha *utils.Captcha) *AuthController {
	return &AuthController{db: db, issuer: issuer, blacklist: blacklist, guard: guard, captcha: captcha}
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// equalizeTiming burns a bcrypt comparison so unknown usernames answer as slowly as wrong passwords.
func equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = utils.HashPassword("timing-equalizer")
	})
	utils.CheckPassword(dummyHash, password)
}

// CreateAdmin hashes password and inserts a new admin account.
func CreateAdmin(db *gorm.DB, username, password string) (*models.AdminUser, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if err := utils.ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &models.AdminUser{Username: username, PasswordHash: hash}
	if err := db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// Captcha issues a login captcha, or reports that none is required.
func (a *AuthController) Captcha(ctx *gin.Context) {
	if a.captcha == nil {
		utils.Success(ctx, gin.H{"enabled": false})
		return
	}
	id, b64, err := a.captcha.Generate()
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to generate captcha")
		return
	}
	utils.Success(ctx, gin.H{"enabled": true, "id": id, "image": b64})
}

// Login verifies admin credentials and issues a session token.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username      string `json:"username" binding:"required"`
		Password      string `json:"password" binding:"required"`
		CaptchaID     string `json:"captcha_id"`
		CaptchaAnswer string `json:"captcha_answer"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	rctx := ctx.Request.Context()
	ip := ctx.ClientIP()
	if a.guard.IsLocked(rctx, ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42920, "too many failed attempts, try again later")
		return
	}
	if a.captcha != nil && !a.captcha.Verify(req.CaptchaID, req.CaptchaAnswer) {
		utils.Error(ctx, http.StatusBadRequest, 40062, "captcha mismatch")
		return
	}

	var user models.AdminUser
	err := a.db.WithContext(rctx).Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to load user")
		return
	}
	if err != nil {
		equalizeTiming(req.Password)
	}
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		if a.guard.RecordFailure(rctx, ip) {
			utils.Sugar.Warnw("admin login locked", "ip", ip, "username", req.Username)
		}
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}
	a.guard.Reset(rctx, ip)

	token, expiresAt, err := a.issuer.GenerateToken(user.ID, user.Username)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50004, "failed to generate token")
		return
	}
	now := time.Now().UTC()
	if err := a.db.WithContext(rctx).Model(&user).Update("last_login_at", now).Error; err != nil {
		utils.Sugar.Warnw("update last login failed", "user_id", user.ID, "error", err)
	}
	user.LastLoginAt = &now

	utils.Success(ctx, gin.H{
		"token":      token,
		"expires_at": expiresAt.UTC(),
		"user":       user,
	})
}

// Logout revokes the current token until it would have expired anyway.
func (a *AuthController) Logout(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	claims, err := a.issuer.ParseToken(token)
	if err != nil {
		utils.Error(ctx, http.StatusUnauthorized, 40105, "invalid token")
		return
	}
	expiresAt := time.Now().Add(a.issuer.TTL())
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := a.blacklist.Revoke(ctx.Request.Context(), token, expiresAt); err != nil {
		utils.Sugar.Errorw("revoke token failed", "user_id", claims.UserID, "error", err)
		utils.Error(ctx, http.StatusServiceUnavailable, 50303, "logout failed, please retry")
		return
	}
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the signed-in admin.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	var user models.AdminUser
	if err := a.db.WithContext(ctx.Request.Context()).First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// ChangePassword replaces the admin's password and revokes the current session.
func (a *AuthController) ChangePassword(ctx *gin.Context) {
	type request struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required"`
	}
	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
		return
	}
	rctx := ctx.Request.Context()
	var user models.AdminUser
	if err := a.db.WithContext(rctx).First(&user, userID).Error; err != nil {
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "current password is incorrect")
		return
	}
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, err.Error())
		return
	}
	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}
	if err := a.db.WithContext(rctx).Model(&user).Update("password_hash", hash).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to update password")
		return
	}
	if claims, err := a.issuer.ParseToken(ctx.GetString(middleware.ContextTokenKey)); err == nil && claims.ExpiresAt != nil {
		_ = a.blacklist.Revoke(rctx, ctx.GetString(middleware.ContextTokenKey), claims.ExpiresAt.Time)
	}
	utils.Success(ctx, gin.H{"message": "password changed, please sign in again"})
}
