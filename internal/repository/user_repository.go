package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-ticket-booking/internal/model"
	"github.com/iliyamo/cinema-ticket-booking/internal/utils"
)

// UserRepo persists accounts in the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

var (
	ErrEmailExists  = errors.New("email already exists")
	ErrUserNotFound = errors.New("user not found")
	// ErrOTPMismatch is returned when a reset is attempted with a code that
	// is no longer the stored one (already used or replaced).
	ErrOTPMismatch = errors.New("otp mismatch")
)

const userColumns = "id,name,email,password_hash,phone_number,address,gender,role,otp_hash,otp_expires_at,created_at,updated_at"

// Create hashes the password, inserts the user and fills ID and timestamps.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.PasswordHash = hash
	u.CreatedAt, u.UpdatedAt = now, now
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id,name,email,password_hash,phone_number,address,gender,role,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?)",
		u.ID, u.Name, u.Email, u.PasswordHash, u.PhoneNumber, u.Address, u.Gender, u.Role, now, now)
	if err != nil {
		if isDuplicate(err) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// UpdateProfile writes the editable profile fields.  Email, role and
// password are not touched here.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *model.User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET name=?, phone_number=?, address=?, gender=?, updated_at=? WHERE id=?",
		u.Name, u.PhoneNumber, u.Address, u.Gender, u.UpdatedAt, u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetPasswordHash replaces the stored hash, used to upgrade the bcrypt cost.
func (r *UserRepo) SetPasswordHash(ctx context.Context, id, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=? WHERE id=?", hash, time.Now().UTC(), id)
	return err
}

// SetOTP stores the hash of a reset code and its expiry (unix ms),
// replacing any previous code.
func (r *UserRepo) SetOTP(ctx context.Context, id, otpHash string, expiresAtMs int64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET otp_hash=?, otp_expires_at=?, updated_at=? WHERE id=?",
		otpHash, expiresAtMs, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ResetPassword sets a new password hash and clears the OTP, but only if
// the stored OTP hash still equals otpHash.  This consumes the code exactly
// once even when two resets race.
func (r *UserRepo) ResetPassword(ctx context.Context, id, otpHash, newHash string) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, otp_hash=NULL, otp_expires_at=NULL, updated_at=? WHERE id=? AND otp_hash=?",
		newHash, time.Now().UTC(), id, otpHash)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOTPMismatch
	}
	return nil
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u      model.User
		otp    sql.NullString
		otpExp sql.NullInt64
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.PhoneNumber, &u.Address,
		&u.Gender, &u.Role, &otp, &otpExp, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	u.OTPHash = otp.String
	u.OTPExpiresAt = otpExp.Int64
	return &u, nil
}
