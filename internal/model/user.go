package model

import "time"

// Account roles.  The role is chosen at registration and never changes.
const (
    RoleUser    = "user"
    RoleAdmin   = "admin"
    RolePartner = "partner"
)

// User represents an account as stored in the `users` table.  The
// password hash and OTP fields are never serialized.
//
// Fields:
//  ID           – uuid primary key.
//  Email        – unique, stored lower-cased.
//  PasswordHash – bcrypt hash.
//  Role         – one of RoleUser, RoleAdmin, RolePartner.
//  OTPHash      – SHA-256 of the pending reset code (empty when none).
//  OTPExpiresAt – unix milliseconds after which the code is rejected.
type User struct {
    ID           string    `json:"_id"`          // users.id
    Name         string    `json:"name"`         // users.name
    Email        string    `json:"email"`        // users.email
    PasswordHash string    `json:"-"`            // users.password_hash
    PhoneNumber  string    `json:"phoneNumber"`  // users.phone_number
    Address      string    `json:"address"`      // users.address
    Gender       string    `json:"gender"`       // users.gender
    Role         string    `json:"role"`         // users.role
    OTPHash      string    `json:"-"`            // users.otp_hash (nullable)
    OTPExpiresAt int64     `json:"-"`            // users.otp_expires_at (nullable)
    CreatedAt    time.Time `json:"createdAt"`    // users.created_at
    UpdatedAt    time.Time `json:"updatedAt"`    // users.updated_at
}

// ValidRole reports whether r is a known role.
func ValidRole(r string) bool {
    return r == RoleUser || r == RoleAdmin || r == RolePartner
}
