package model

import "time"

// User represents an account record as stored in the `users` table.
// The json tags are omitted here because these structs are primarily
// used internally by the repository layer; handlers define separate
// response types with appropriate JSON tags.  Administrators manage
// buses, routes, employees and trip schedules; staff accounts belong
// to drivers and conductors; customers create bookings.
//
// Fields:
//  ID           – primary key identifier of the user.
//  FirstName    – display name of the account holder.
//  Username     – unique login name (stored lowercase).
//  Email        – unique email address (stored lowercase).
//  PasswordHash – bcrypt hashed password.
//  Role         – name of the role (ADMIN, CUSTOMER or STAFF).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    // users.id
	FirstName    string    // users.first_name
	Username     string    // users.username
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
