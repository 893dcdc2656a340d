package domain

import (
	"context"
	"time"
)

// Role constants
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User is an authenticated identity. Customers book packages; admins
// manage fields and schedules.
type User struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	FirebaseUID string    `bson:"firebase_uid,omitempty" json:"firebaseUid,omitempty"`
	Email       string    `bson:"email" json:"email"`
	Name        string    `bson:"name" json:"name"`
	Phone       string    `bson:"phone,omitempty" json:"phone,omitempty"`
	Roles       []string  `bson:"roles" json:"roles"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}

// HasRole checks if the user carries a specific role.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// UserRepository defines storage operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByFirebaseUID(ctx context.Context, uid string) (*User, error)
	UpdateFirebaseUID(ctx context.Context, userID, firebaseUID string) error
}
