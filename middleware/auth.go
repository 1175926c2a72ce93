package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lukewen/studyblog/utils"
)

// AdminRequired gates every mutating route behind the admin session flag.
// Requests without a valid session are redirected to the login entry point
// before any handler runs.
func AdminRequired(sessions *utils.SessionManager) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !sessions.IsAdmin(ctx.Request) {
			ctx.Redirect(http.StatusFound, "/login")
			ctx.Abort()
			return
		}
		ctx.Next()
	}
}
