// Package directory stores family and user records.
package directory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/homestock/internal/models"
	"github.com/mmynk/homestock/internal/storage"
)

const (
	FamiliesCollection = "families"
	UsersCollection    = "users"
)

// Directory reads and writes family and user records on a DocumentStore.
type Directory struct {
	store storage.DocumentStore
	now   func() time.Time
	newID func() string
}

// New creates a Directory on top of store.
func New(store storage.DocumentStore) *Directory {
	return &Directory{
		store: store,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// CreateFamily stores a new family with a fresh id.
func (d *Directory) CreateFamily(ctx context.Context, name string) (models.Family, error) {
	family := models.Family{
		FamilyID:   d.newID(),
		FamilyName: strings.TrimSpace(name),
		CreatedAt:  d.now().Unix(),
	}
	if err := models.Validate(family); err != nil {
		return models.Family{}, fmt.Errorf("invalid family: %w", err)
	}

	doc, err := storage.Encode(family)
	if err != nil {
		return models.Family{}, err
	}
	if err := d.store.Set(ctx, FamiliesCollection, family.FamilyID, doc); err != nil {
		return models.Family{}, fmt.Errorf("failed to create family: %w", err)
	}
	return family, nil
}

// DeleteFamily removes the family record. Members and items are left alone.
func (d *Directory) DeleteFamily(ctx context.Context, familyID string) error {
	if err := d.store.Delete(ctx, FamiliesCollection, familyID); err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}
	return nil
}

// GetFamily returns the family with its members, or nil if it doesn't exist.
func (d *Directory) GetFamily(ctx context.Context, familyID string) (*models.Family, error) {
	if strings.TrimSpace(familyID) == "" {
		return nil, nil
	}

	doc, ok, err := d.store.Get(ctx, FamiliesCollection, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var family models.Family
	if err := storage.Decode(doc, &family); err != nil {
		return nil, err
	}
	if family.FamilyID == "" {
		family.FamilyID = familyID
	}

	members, err := d.FamilyMembers(ctx, familyID)
	if err != nil {
		return nil, err
	}
	family.Users = members
	return &family, nil
}

// FamilyMembers returns the users currently bound to familyID, ordered by username.
func (d *Directory) FamilyMembers(ctx context.Context, familyID string) ([]models.User, error) {
	snaps, err := d.store.QueryByField(ctx, UsersCollection, "familyID", familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list family members: %w", err)
	}

	users, err := decodeUsers(snaps)
	if err != nil {
		return nil, err
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// CreateUser binds email to familyID. An email that already has a record keeps
// its userID; its username and family are replaced.
func (d *Directory) CreateUser(ctx context.Context, username, email, familyID string) (models.User, error) {
	user := models.User{
		Username: strings.TrimSpace(username),
		Email:    strings.TrimSpace(email),
		FamilyID: familyID,
	}
	if err := models.Validate(user); err != nil {
		return models.User{}, fmt.Errorf("invalid user: %w", err)
	}

	existing, err := d.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return models.User{}, err
	}
	if existing != nil {
		user.UserID = existing.UserID
		user.CreatedAt = existing.CreatedAt
	} else {
		user.UserID = d.newID()
		user.CreatedAt = d.now().Unix()
	}

	doc, err := storage.Encode(user)
	if err != nil {
		return models.User{}, err
	}
	if err := d.store.Set(ctx, UsersCollection, user.UserID, doc); err != nil {
		return models.User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUserByEmail returns the user for email, or nil if none exists.
func (d *Directory) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.findOne(ctx, "email", email)
}

// GetUserByUsername returns the first user named username, or nil if none exists.
func (d *Directory) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return d.findOne(ctx, "username", username)
}

func (d *Directory) findOne(ctx context.Context, field, value string) (*models.User, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}

	snaps, err := d.store.QueryByField(ctx, UsersCollection, field, value)
	if err != nil {
		return nil, fmt.Errorf("failed to query users by %s: %w", field, err)
	}
	users, err := decodeUsers(snaps)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, nil
	}
	return &users[0], nil
}

func decodeUsers(snaps []storage.Snapshot) ([]models.User, error) {
	users := make([]models.User, 0, len(snaps))
	for _, snap := range snaps {
		var user models.User
		if err := storage.Decode(snap.Data, &user); err != nil {
			return nil, fmt.Errorf("failed to decode user %s: %w", snap.Key, err)
		}
		if user.UserID == "" {
			user.UserID = snap.Key
		}
		users = append(users, user)
	}
	return users, nil
}
