package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgrijalva/jwt-go"

	"valuator/internal/model"
)

// Keys of the persisted client state
const (
	KeyAuthToken        = "auth_token"
	KeyUser             = "user"
	KeySidebarCollapsed = "sidebar_collapsed"
)

var ErrEmptyToken = errors.New("token is empty")

// StateStore is the key/value storage behind ClientState
type StateStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// ClientState is the typed view of the dashboard's persisted client state.
// Reads go to the store every time; writes are immediate.
type ClientState struct {
	store StateStore
}

func NewClientState(store StateStore) *ClientState {
	return &ClientState{store: store}
}

// AuthToken returns the stored bearer token, or "" when signed out
func (s *ClientState) AuthToken(ctx context.Context) (string, error) {
	token, _, err := s.store.Get(ctx, KeyAuthToken)
	return token, err
}

// SetAuthToken deposits a token from the sign-in flow. The cached profile
// belongs to the previous token and is dropped.
func (s *ClientState) SetAuthToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.store.Set(ctx, KeyAuthToken, token); err != nil {
		return err
	}
	return s.store.Delete(ctx, KeyUser)
}

// ClearAuthToken signs the user out
func (s *ClientState) ClearAuthToken(ctx context.Context) error {
	return s.store.Delete(ctx, KeyAuthToken)
}

// SetUserProfile caches the profile blob
func (s *ClientState) SetUserProfile(ctx context.Context, p *model.UserProfile) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	return s.store.Set(ctx, KeyUser, string(b))
}

// UserProfile returns the cached profile, or the one carried by the token's
// claims when nothing is cached. The token signature is not verified; the
// backend does that.
func (s *ClientState) UserProfile(ctx context.Context) (*model.UserProfile, error) {
	raw, ok, err := s.store.Get(ctx, KeyUser)
	if err != nil {
		return nil, err
	}
	if ok {
		var p model.UserProfile
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			return &p, nil
		}
	}

	token, err := s.AuthToken(ctx)
	if err != nil || token == "" {
		return &model.UserProfile{}, err
	}
	return profileFromToken(token), nil
}

func profileFromToken(token string) *model.UserProfile {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return &model.UserProfile{}
	}

	str := func(key string) string {
		if v, ok := claims[key].(string); ok {
			return v
		}
		return ""
	}
	return &model.UserProfile{
		Subject: str("sub"),
		Name:    str("name"),
		Email:   str("email"),
		Picture: str("picture"),
	}
}

// SidebarCollapsed reports the persisted sidebar flag
func (s *ClientState) SidebarCollapsed(ctx context.Context) (bool, error) {
	raw, _, err := s.store.Get(ctx, KeySidebarCollapsed)
	return raw == "1", err
}

func (s *ClientState) SetSidebarCollapsed(ctx context.Context, collapsed bool) error {
	value := "0"
	if collapsed {
		value = "1"
	}
	return s.store.Set(ctx, KeySidebarCollapsed, value)
}
