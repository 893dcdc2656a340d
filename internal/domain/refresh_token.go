package domain

import (
	"context"
	"time"
)

// RefreshToken is a stored refresh token. Only the SHA256 hash is kept.
type RefreshToken struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	UserID    string    `bson:"user_id" json:"userId"`
	TokenHash string    `bson:"token_hash" json:"-"`
	ExpiresAt time.Time `bson:"expires_at" json:"expiresAt"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	Revoked   bool      `bson:"revoked" json:"revoked"`
}

// IsValid reports whether the token is usable (not expired, not revoked).
func (r *RefreshToken) IsValid() bool {
	return !r.Revoked && time.Now().Before(r.ExpiresAt)
}

// RefreshTokenRepository defines storage for refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *RefreshToken) error
	FindByHash(ctx context.Context, hash string) (*RefreshToken, error)
	RevokeByHash(ctx context.Context, hash string) error
	DeleteExpired(ctx context.Context) error
}
