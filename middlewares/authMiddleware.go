package middlewares

import (
	"context"
	"net/http"
	"os"
	"strings"

	"bitbucket.org/mmdatafocus/qist_backend/utils"
	"github.com/gin-gonic/gin"
)

type authString string

// AuthEnabled reports whether device authentication is configured. Without
// a DEVICE_KEY_HASH the API runs open, which is the expected single-device
// on-premise setup.
func AuthEnabled() bool {
	return os.Getenv("DEVICE_KEY_HASH") != ""
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")

		if auth == "" {
			c.Next()
			return
		}

		auth = strings.TrimPrefix(auth, "Bearer ")

		validate, err := utils.JwtValidate(auth)
		if err != nil || !validate.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}

		customClaim, _ := validate.Claims.(*utils.JwtCustomClaim)

		ctx := context.WithValue(c.Request.Context(), authString("auth"), customClaim)
		ctx = utils.SetDeviceIdInContext(ctx, customClaim.DeviceId)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireDevice guards mutating routes when authentication is configured.
func RequireDevice() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !AuthEnabled() {
			c.Next()
			return
		}
		if CtxValue(c.Request.Context()) == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func CtxValue(ctx context.Context) *utils.JwtCustomClaim {
	raw, _ := ctx.Value(authString("auth")).(*utils.JwtCustomClaim)
	return raw
}
