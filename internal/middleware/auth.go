package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mtanaka-dev/stocksync/internal/models"
	"github.com/mtanaka-dev/stocksync/internal/repository"
)

const tokenKey = "access_token"

// TokenStore resolves a token secret to its record.
type TokenStore interface {
	GetByToken(ctx context.Context, token string) (*models.Token, error)
}

// TokenAuth resolves the access token from the request (form field "token"
// or X-Access-Token header) and rejects unknown, inactive, or expired tokens.
func TokenAuth(store TokenStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.PostForm("token")
		if secret == "" {
			secret = c.GetHeader("X-Access-Token")
		}
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "access token required"})
			return
		}

		token, err := store.GetByToken(c.Request.Context(), secret)
		if errors.Is(err, repository.ErrTokenNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid access token"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to verify access token"})
			return
		}
		if !token.Usable(time.Now().UTC()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "access token is inactive or expired"})
			return
		}

		c.Set(tokenKey, token)
		c.Next()
	}
}

// GetToken retrieves the authenticated token record from the context.
func GetToken(c *gin.Context) (*models.Token, bool) {
	v, exists := c.Get(tokenKey)
	if !exists {
		return nil, false
	}
	return v.(*models.Token), true
}
