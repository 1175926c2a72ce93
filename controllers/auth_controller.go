package controllers

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/lukewen/studyblog/utils"
)

// AuthController implements the shared-password admin gate: a successful
// login sets a signed session cookie with the admin claim, logout clears it.
type AuthController struct {
	sessions      *utils.SessionManager
	adminPassword string
}

// NewAuthController creates a new AuthController instance.
func NewAuthController(sessions *utils.SessionManager, adminPassword string) *AuthController {
	return &AuthController{sessions: sessions, adminPassword: adminPassword}
}

// ShowLogin reports whether the caller already holds an admin session.
func (a *AuthController) ShowLogin(ctx *gin.Context) {
	utils.Success(ctx, gin.H{"authenticated": a.sessions.IsAdmin(ctx.Request)})
}

// Login checks the submitted password against the configured shared secret.
func (a *AuthController) Login(ctx *gin.Context) {
	password := ctx.PostForm("password")
	if password == "" {
		var req struct {
			Password string `json:"password"`
		}
		if err := ctx.ShouldBindJSON(&req); err == nil {
			password = req.Password
		}
	}

	if !a.checkPassword(password) {
		utils.Error(ctx, http.StatusUnauthorized, 40101, "invalid password")
		return
	}

	if err := a.sessions.Issue(ctx); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50010, "failed to start session")
		return
	}
	utils.Success(ctx, gin.H{"redirect": "/admin"})
}

// Logout clears the admin session flag and sends the caller home.
func (a *AuthController) Logout(ctx *gin.Context) {
	a.sessions.Clear(ctx)
	ctx.Redirect(http.StatusFound, "/")
}

// checkPassword supports either a plain shared secret (constant-time compare)
// or a bcrypt hash in ADMIN_PASSWORD.
func (a *AuthController) checkPassword(password string) bool {
	if password == "" {
		return false
	}
	if strings.HasPrefix(a.adminPassword, "$2a$") || strings.HasPrefix(a.adminPassword, "$2b$") || strings.HasPrefix(a.adminPassword, "$2y$") {
		return bcrypt.CompareHashAndPassword([]byte(a.adminPassword), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(a.adminPassword), []byte(password)) == 1
}
