package server

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hammamikhairi/badbar/internal/domain"
)

const principalKey = "badbar_principal"

// authenticate resolves the bearer token to a known principal.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := domain.Principal(bearerToken(c))
		if !p.Valid() {
			s.abort(c, fmt.Errorf("missing bearer token: %w", domain.ErrUnauthenticated))
			return
		}

		ok, err := s.backend.Known(c.Request.Context(), p)
		if err != nil {
			s.abort(c, fmt.Errorf("checking principal: %w", err))
			return
		}
		if !ok {
			s.abort(c, fmt.Errorf("unknown principal: %w", domain.ErrUnauthenticated))
			return
		}

		c.Set(principalKey, p)
		c.Next()
	}
}

// principal returns the caller set by authenticate.
func principal(c *gin.Context) domain.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(domain.Principal); ok {
			return p
		}
	}
	return ""
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
