package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/Doetheman/community-platform-template/pkg/auth"
)

// Identify resolves the bearer token into a verified identity and stores it
// in the request context. Requests without a valid token pass through
// anonymous; handlers decide whether that is acceptable.
func Identify(v auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		id, err := v.Verify(ctx, tok)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Msg("[auth] rejected bearer token")
			c.Next()
			return
		}
		c.Set("uid", id.UID)
		c.Request = c.Request.WithContext(auth.WithIdentity(ctx, id))
		c.Next()
	}
}
