package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// FieldbookClaims are the custom JWT claims carried by app access tokens.
type FieldbookClaims struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name,omitempty"`
	Email  string   `json:"email,omitempty"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}
