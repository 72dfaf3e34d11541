package model

import "time"

// User represents a registered account as stored in the `users` table or
// the `users` collection.  The administrator is never a User; it is built
// from configuration.
//
// Fields:
//
//	ID           – UUID assigned by the store on creation.
//	Username     – unique login name.
//	Email        – unique email address.
//	PasswordHash – bcrypt hashed password.
//	IsAdmin      – always false for registered users.
//	CreatedAt    – timestamp of creation.
type User struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	IsAdmin      bool      `bson:"is_admin"`
	CreatedAt    time.Time `bson:"created_at"`
}

// RevokedToken models an entry of the revoked-token ledger.  Only the
// SHA-256 hex digest of the token is kept.  ExpiresAt is the token's own
// expiry; once it has passed the entry can be pruned because the signature
// check alone rejects the token.
type RevokedToken struct {
	TokenHash string    `bson:"_id"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}
