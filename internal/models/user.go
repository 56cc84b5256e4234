package models

// User represents a household member.
//
// A user belongs to exactly one family at a time. Joining another family
// reassigns FamilyID; existing items are not migrated.
type User struct {
	// UserID is the unique identifier for the user (UUID format).
	UserID string `json:"userID"`

	// Username is the display name, also used by the legacy direct login.
	Username string `json:"username" validate:"required"`

	// Email is the durable correlation key to the identity provider account.
	Email string `json:"email" validate:"required,email"`

	// FamilyID is the family this user is currently bound to.
	FamilyID string `json:"familyID"`

	// CreatedAt is the Unix timestamp when the user record was created.
	CreatedAt int64 `json:"createdAt,omitempty"`
}

// Family is the sharing and partition unit of a household.
type Family struct {
	// FamilyID is the partition key for all of a household's items (UUID format).
	FamilyID string `json:"familyID"`

	// FamilyName is the display name.
	FamilyName string `json:"familyname" validate:"required"`

	// Users is a back-reference filled on read; the family does not own
	// user lifecycles and the list is never stored on the family document.
	Users []User `json:"users,omitempty"`

	// CreatedAt is the Unix timestamp when the family was created.
	CreatedAt int64 `json:"createdAt,omitempty"`
}
