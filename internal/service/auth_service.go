package service

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"github.com/fieldbook-id/fieldbook/internal/domain"
)

// FirebaseAuthClient defines the interface for Firebase Auth operations
// This allows mocking for tests
type FirebaseAuthClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// AuthService handles authentication and user registration
type AuthService struct {
	userRepo   domain.UserRepository
	authClient FirebaseAuthClient
	tokens     *TokenService
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo domain.UserRepository,
	authClient FirebaseAuthClient,
	tokens *TokenService,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		authClient: authClient,
		tokens:     tokens,
	}
}

// LoginOrRegisterRequest contains the request params
type LoginOrRegisterRequest struct {
	FirebaseToken string
	UserAgent     string
}

// LoginOrRegisterResponse contains the user and whether they were newly created
type LoginOrRegisterResponse struct {
	User      *domain.User
	Tokens    *TokenPair
	IsNewUser bool
}

// LoginOrRegister handles smart authentication and registration
func (s *AuthService) LoginOrRegister(ctx context.Context, req LoginOrRegisterRequest) (*LoginOrRegisterResponse, error) {
	// Step 1: Verify Firebase token and extract user info
	token, err := s.authClient.VerifyIDToken(ctx, req.FirebaseToken)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	firebaseUID := token.UID
	email, _ := token.Claims["email"].(string)
	name, _ := token.Claims["name"].(string)
	if name == "" {
		name = email
	}

	// Step 2: Search for existing user by firebase_uid
	existingUser, err := s.userRepo.GetByFirebaseUID(ctx, firebaseUID)

	// Step 3: If not found by firebase_uid, try email (for pre-provisioned accounts)
	if err == domain.ErrNotFound {
		emailUser, emailErr := s.userRepo.GetByEmail(ctx, email)
		if emailErr == nil && emailUser != nil {
			if emailUser.FirebaseUID != "" {
				return nil, fmt.Errorf("email already linked to different account")
			}
			// Link the Firebase account to this user
			if updateErr := s.userRepo.UpdateFirebaseUID(ctx, emailUser.ID, firebaseUID); updateErr != nil {
				return nil, fmt.Errorf("failed to link firebase account: %w", updateErr)
			}
			emailUser.FirebaseUID = firebaseUID
			existingUser = emailUser
			err = nil
		}
	}

	// Step 4: Login existing user
	if err == nil && existingUser != nil {
		pair, err := s.tokens.GenerateTokenPair(ctx, existingUser)
		if err != nil {
			return nil, fmt.Errorf("failed to generate tokens: %w", err)
		}
		return &LoginOrRegisterResponse{
			User:      existingUser,
			Tokens:    pair,
			IsNewUser: false,
		}, nil
	}

	// Step 5: New user - create with the default customer role.
	// Admins are provisioned out of band, never through self-registration.
	if err == domain.ErrNotFound {
		newUser := &domain.User{
			FirebaseUID: firebaseUID,
			Email:       email,
			Name:        name,
			Roles:       []string{domain.RoleCustomer},
		}
		if err := s.userRepo.Create(ctx, newUser); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}

		pair, err := s.tokens.GenerateTokenPair(ctx, newUser)
		if err != nil {
			return nil, fmt.Errorf("failed to generate tokens: %w", err)
		}
		return &LoginOrRegisterResponse{
			User:      newUser,
			Tokens:    pair,
			IsNewUser: true,
		}, nil
	}

	// Other error occurred
	return nil, fmt.Errorf("failed to fetch user: %w", err)
}
