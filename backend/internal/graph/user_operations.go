package graph

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"artlink/backend/internal/store"
	apperrors "artlink/backend/pkg/errors"
)

// ============================================================================
// User Operations
// ============================================================================

// HashPassword returns the hex sha256 digest stored for user credentials.
func HashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// CreateUser registers a user. Usernames are unique; registering a taken
// username is a conflict.
func (r *Repository) CreateUser(ctx context.Context, username, password string, authorizationLevel int) (*User, error) {
	if username == "" {
		return nil, apperrors.NewValidation("a username is required")
	}
	if password == "" {
		return nil, apperrors.NewValidation("a password is required")
	}

	existing, err := r.UserByUsername(ctx, username)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.NewConflict("username already taken: %s", username)
	}

	props := newEntityProps()
	props["username"] = username
	props["password_sha256"] = HashPassword(password)
	props["authorization_level"] = int64(authorizationLevel)
	node, err := r.store.CreateNode(ctx, labelUser, props)
	if err != nil {
		return nil, storeErr("failed to create user", err)
	}
	return userFromNode(node), nil
}

// UserByUID fetches a user by identifier.
func (r *Repository) UserByUID(ctx context.Context, uid string) (*User, error) {
	node, err := r.nodeByUIDOrNotFound(ctx, r.store, labelUser, "user", uid)
	if err != nil {
		return nil, err
	}
	return userFromNode(node), nil
}

// UserByUsername fetches a user by username.
func (r *Repository) UserByUsername(ctx context.Context, username string) (*User, error) {
	nodes, err := r.store.FindNodes(ctx, store.NodeQuery{
		Label: labelUser,
		Props: store.Props{"username": username},
	})
	if err != nil {
		return nil, storeErr("failed to look up user", err)
	}
	if len(nodes) == 0 {
		return nil, apperrors.NewNotFound("user", username)
	}
	return userFromNode(nodes[0]), nil
}

// Authenticate checks a username/password pair and returns the user on
// success. Wrong credentials are Unauthorized, not NotFound, so callers
// cannot probe which usernames exist.
func (r *Repository) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := r.UserByUsername(ctx, username)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if user.PasswordSHA256 != HashPassword(password) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return user, nil
}
