package middleware

import (
	"net/http"
	"strings"

	"github.com/dgrijalva/jwt-go"

	"github.com/prabhupmb/option-trading-sub000/internal/models"
	"github.com/prabhupmb/option-trading-sub000/internal/utils"
)

// AuthMiddleware checks for valid JWT token and adds username to context
func AuthMiddleware(jwtSecretKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authorizationHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authorizationHeader, "Bearer ") {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Extract the token
			tokenString := strings.TrimPrefix(authorizationHeader, "Bearer ")

			// Parse and validate the token
			claims := &models.Claims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				return jwtSecretKey, nil
			})

			if err != nil || !token.Valid {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Add the username to the request context
			ctx := utils.WithUsername(r.Context(), claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
