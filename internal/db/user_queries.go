package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// AuthUser is a reviewer account as seen outside the db package.
type AuthUser struct {
	UserID             int64      `json:"user_id"`
	Username           string     `json:"username"`
	PasswordHash       string     `json:"-"`
	MustChangePassword bool       `json:"must_change_password"`
	CreatedAt          time.Time  `json:"created_at"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
}

func (u User) toAuthUser() *AuthUser {
	return &AuthUser{
		UserID:             u.UserID,
		Username:           u.Username,
		PasswordHash:       u.PasswordHash,
		MustChangePassword: u.MustChangePassword,
		CreatedAt:          u.CreatedAt,
		LastLoginAt:        u.LastLoginAt,
	}
}

func (p *Pool) users(ctx context.Context) (*gorm.DB, error) {
	if p == nil || p.gdb == nil {
		return nil, errPoolClosed
	}
	return p.gdb.WithContext(ctx).Model(&User{}), nil
}

func (p *Pool) CountUsers(ctx context.Context) (int64, error) {
	q, err := p.users(ctx)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// CreateUser stores a new reviewer. Usernames are stored lowercased; a taken
// name surfaces the driver's unique violation.
func (p *Pool) CreateUser(ctx context.Context, username, passwordHash string, mustChangePassword bool) (*AuthUser, error) {
	if p == nil || p.gdb == nil {
		return nil, errPoolClosed
	}
	row := User{
		Username:           normalizeUsername(username),
		PasswordHash:       strings.TrimSpace(passwordHash),
		MustChangePassword: mustChangePassword,
	}
	if row.Username == "" || row.PasswordHash == "" {
		return nil, fmt.Errorf("insert user: username and password hash are required")
	}
	if err := p.gdb.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return row.toAuthUser(), nil
}

// GetUserByUsername returns ErrNoRows for unknown names.
func (p *Pool) GetUserByUsername(ctx context.Context, username string) (*AuthUser, error) {
	q, err := p.users(ctx)
	if err != nil {
		return nil, err
	}
	var row User
	if err := q.Where("username = ?", normalizeUsername(username)).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoRows
		}
		return nil, fmt.Errorf("query user by username: %w", err)
	}
	return row.toAuthUser(), nil
}

func (p *Pool) SetUserLastLogin(ctx context.Context, userID int64, loginAt time.Time) error {
	return p.updateUser(ctx, userID, "update user last login", map[string]any{
		"last_login_at": loginAt.UTC(),
	})
}

func (p *Pool) SetUserPasswordHash(ctx context.Context, userID int64, passwordHash string, mustChangePassword bool) error {
	hash := strings.TrimSpace(passwordHash)
	if hash == "" {
		return fmt.Errorf("update user password: hash is required")
	}
	return p.updateUser(ctx, userID, "update user password", map[string]any{
		"password_hash":        hash,
		"must_change_password": mustChangePassword,
	})
}

func (p *Pool) updateUser(ctx context.Context, userID int64, op string, fields map[string]any) error {
	q, err := p.users(ctx)
	if err != nil {
		return err
	}
	res := q.Where("user_id = ?", userID).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoRows
	}
	return nil
}

func normalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
