package middleware

import (
	"Ashray/apperr"
	"Ashray/identity"
	"Ashray/util"
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// TokenVerifier resolves a bearer token to the calling user. *identity.Verifier satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*identity.Principal, error)
}

var _ TokenVerifier = (*identity.Verifier)(nil)

/*
 * Read the bearer token from the Authorization header
 * Verify it and resolve the stored user
 * Stash the principal for handlers, or stop with 401
 */
func Protect(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			abort(c, apperr.Auth(util.NOT_AUTHORIZED_NO_TOKEN))
			return
		}
		p, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			abort(c, err)
			return
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole lets the request through only for the listed roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := CurrentPrincipal(c)
		if p == nil {
			abort(c, apperr.Auth(util.NOT_AUTHORIZED_NO_TOKEN))
			return
		}
		if !p.Is(roles...) {
			abort(c, apperr.Forbidden(fmt.Sprintf("User role %s is not authorized to access this route", p.Role)))
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns the caller set by Protect, or nil.
func CurrentPrincipal(c *gin.Context) *identity.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*identity.Principal)
	return p
}

// SetPrincipal is used by tests and internal callers that authenticate out of band.
func SetPrincipal(c *gin.Context, p *identity.Principal) {
	c.Set(principalKey, p)
}

// AccessToken returns the raw bearer token of the request, if any.
func AccessToken(c *gin.Context) string {
	return bearerToken(c.GetHeader("Authorization"))
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(apperr.Status(err), util.FailedResponse(err))
}
