// Package auth reads the user context from bearer tokens issued by the
// external auth provider.
package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Domenick1991/tourbooking/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const contextUserKey = "authUser"

const RoleAdmin = "admin"

type User struct {
	ID    string
	Email string
	Name  string
	Role  string
}

type Claims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

var errNoSecret = errors.New("jwt secret is not configured")

// Verifier checks HS256 tokens. A verifier without a secret rejects every token.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) Verify(tokenStr string) (*User, error) {
	if len(v.secret) == 0 {
		return nil, errNoSecret
	}
	if tokenStr == "" {
		return nil, errors.New("missing token")
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return &User{ID: claims.Subject, Email: claims.Email, Name: claims.Name, Role: claims.Role}, nil
}

// Issue signs a token for u. Used by tests and local tooling.
func (v *Verifier) Issue(u User, ttl time.Duration) (string, error) {
	if len(v.secret) == 0 {
		return "", errNoSecret
	}
	claims := Claims{
		Email: u.Email,
		Name:  u.Name,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Middleware attaches the user when a valid bearer token is present. It never aborts.
func (v *Verifier) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			if u, err := v.Verify(strings.TrimSpace(parts[1])); err == nil {
				c.Set(contextUserKey, u)
			}
		}
		c.Next()
	}
}

// RequireUser rejects requests without a user.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserFrom(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrAuthRequired.Error()})
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := UserFrom(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": domain.ErrAuthRequired.Error()})
			return
		}
		if u.Role != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admins only"})
			return
		}
		c.Next()
	}
}

func UserFrom(c *gin.Context) *User {
	v, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*User)
	return u
}

// SetUser stores u on the context.
func SetUser(c *gin.Context, u *User) {
	c.Set(contextUserKey, u)
}
