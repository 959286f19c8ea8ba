package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the access-token payload issued by the hosted
// identity provider. This service verifies and reads it, never mints it.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
