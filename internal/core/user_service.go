package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"pintarai.app/server/internal/auth"
	"pintarai.app/server/internal/store"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// UserService owns profile lifecycle: registration with the starting token
// grant, credential checks, and account deletion.
type UserService struct {
	dbStore       *store.SQLiteStore
	startingGrant int
}

func NewUserService(db *store.SQLiteStore, startingGrant int) *UserService {
	return &UserService{
		dbStore:       db,
		startingGrant: startingGrant,
	}
}

func (s *UserService) Register(ctx context.Context, email, password, displayName string) (*store.UserProfile, error) {
	existing, err := s.dbStore.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// Hyphen-free uid: the uid becomes one hyphen-separated segment of
	// payment order ids, so it cannot contain hyphens itself.
	profile := &store.UserProfile{
		UID:          strings.ReplaceAll(uuid.NewString(), "-", ""),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		TokenBalance: s.startingGrant,
	}
	if err := s.dbStore.CreateUser(ctx, profile); err != nil {
		return nil, err
	}
	log.Info().Str("uid", profile.UID).Int("starting_grant", s.startingGrant).Msg("Profile created")
	return profile, nil
}

func (s *UserService) Authenticate(ctx context.Context, email, password string) (*store.UserProfile, error) {
	user, err := s.dbStore.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetProfile(ctx context.Context, uid string) (*store.UserProfile, error) {
	return s.dbStore.GetUserByUID(ctx, uid)
}

// DeleteAccount clears the user's history, then deletes the profile, in that
// order. A failure partway is surfaced as-is; there is no compensating
// rollback, so the caller may retry the whole sequence.
func (s *UserService) DeleteAccount(ctx context.Context, uid string) error {
	if err := s.dbStore.DeleteUserSessions(ctx, uid); err != nil {
		return fmt.Errorf("failed to clear history before account deletion: %w", err)
	}
	if err := s.dbStore.DeleteUser(ctx, uid); err != nil {
		return fmt.Errorf("history cleared but profile deletion failed: %w", err)
	}
	return nil
}
