package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fabricaware/workorder-app/utils"
)

// RequireRole admits admins everywhere; members may mutate, viewers only read.
func RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("role")
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}

		switch required {
		case "admin":
			if userRole != "admin" {
				utils.RespondError(c, http.StatusForbidden, fmt.Errorf("admin access required"))
				c.Abort()
				return
			}
		case "member":
			if userRole != "member" && userRole != "admin" {
				utils.RespondError(c, http.StatusForbidden, fmt.Errorf("member access required"))
				c.Abort()
				return
			}
		case "viewer":
			if userRole != "viewer" && userRole != "member" && userRole != "admin" {
				utils.RespondError(c, http.StatusForbidden, fmt.Errorf("viewer access required"))
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
