// Copyright 2025 AxonFlow
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package campaign

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// jwtSecret signs admin tokens. When JWT_SECRET is unset the service runs
// in community mode and admin endpoints are open.
var jwtSecret = []byte(os.Getenv("JWT_SECRET"))

// AdminClaims is the validated identity behind an admin request
type AdminClaims struct {
	Email string
	Role  string
}

// validateAdminToken parses and validates a bearer token for admin endpoints
func validateAdminToken(tokenString string) (*AdminClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return jwtSecret, nil
	})

	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	role := getClaimString(claims, "role")
	if role != "admin" {
		return nil, fmt.Errorf("insufficient role: %s", role)
	}

	return &AdminClaims{
		Email: getClaimString(claims, "email"),
		Role:  role,
	}, nil
}

// requireAdmin wraps a handler with bearer-token admin auth. Community
// deployments without JWT_SECRET skip the check.
func requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(jwtSecret) == 0 {
			// Community mode: no auth configured
			next(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			sendErrorResponse(w, "Missing bearer token", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if _, err := validateAdminToken(tokenString); err != nil {
			sendErrorResponse(w, fmt.Sprintf("Unauthorized: %v", err), http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}

func getClaimString(claims jwt.MapClaims, key string) string {
	if val, ok := claims[key].(string); ok {
		return val
	}
	return ""
}
