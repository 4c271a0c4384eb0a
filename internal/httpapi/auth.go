package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Bitstream73/QuoteLog02-sub000/internal/auth"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/db"
	"github.com/Bitstream73/QuoteLog02-sub000/internal/globaltime"
)

const (
	reviewerContextKey = "auth.reviewer"
	lastLoginInterval  = time.Minute
	maxJSONBodyBytes   = 1 << 20
)

type reviewerPrincipal struct {
	UserID             int64
	Username           string
	MustChangePassword bool
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// requireReviewer authenticates every request with HTTP basic credentials
// checked against the users table.
func (s *Server) requireReviewer() echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: "quotelog review",
		Validator: func(username, password string, c echo.Context) (bool, error) {
			ctx := c.Request().Context()
			user, err := s.users.GetUserByUsername(ctx, auth.NormalizeUsername(username))
			if err != nil {
				if errors.Is(err, db.ErrNoRows) {
					return false, nil
				}
				return false, fmt.Errorf("load reviewer: %w", err)
			}
			if !auth.VerifyPassword(password, user.PasswordHash) {
				return false, nil
			}

			now := globaltime.UTC()
			if user.LastLoginAt == nil || now.Sub(*user.LastLoginAt) >= lastLoginInterval {
				if err := s.users.SetUserLastLogin(ctx, user.UserID, now); err != nil {
					s.logger.Warn().Err(err).Int64("user_id", user.UserID).Msg("update last login failed")
				}
			}

			c.Set(reviewerContextKey, reviewerPrincipal{
				UserID:             user.UserID,
				Username:           user.Username,
				MustChangePassword: user.MustChangePassword,
			})
			return true, nil
		},
	})
}

// requirePasswordCurrent blocks reviewers that still use a bootstrap
// password from touching the queue.
func (s *Server) requirePasswordCurrent() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, ok := principalFromContext(c)
			if !ok {
				return unauthorizedResponse(c)
			}
			if principal.MustChangePassword {
				return fail(c, http.StatusForbidden, "Password change required", nil)
			}
			return next(c)
		}
	}
}

func (s *Server) handleMe(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}
	return success(c, map[string]any{
		"user_id":              principal.UserID,
		"username":             principal.Username,
		"must_change_password": principal.MustChangePassword,
	})
}

func (s *Server) handleChangePassword(c echo.Context) error {
	principal, ok := principalFromContext(c)
	if !ok {
		return unauthorizedResponse(c)
	}

	var req changePasswordRequest
	if err := decodeJSONBody(c, &req); err != nil {
		return failValidation(c, map[string]string{"body": err.Error()})
	}
	if err := auth.CheckPasswordPolicy(req.NewPassword, req.CurrentPassword); err != nil {
		return failValidation(c, map[string]string{"new_password": err.Error()})
	}

	ctx := c.Request().Context()
	user, err := s.users.GetUserByUsername(ctx, principal.Username)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", principal.UserID).Msg("load user for password change failed")
		return internalError(c, "Failed to change password")
	}
	if !auth.VerifyPassword(req.CurrentPassword, user.PasswordHash) {
		return fail(c, http.StatusUnauthorized, "Current password is incorrect", nil)
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return internalError(c, "Failed to change password")
	}
	if err := s.users.SetUserPasswordHash(ctx, user.UserID, hash, false); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.UserID).Msg("update password failed")
		return internalError(c, "Failed to change password")
	}

	s.logger.Info().Int64("user_id", user.UserID).Msg("reviewer password changed")
	return success(c, map[string]any{"password_changed": true})
}

func principalFromContext(c echo.Context) (reviewerPrincipal, bool) {
	if c == nil {
		return reviewerPrincipal{}, false
	}
	principal, ok := c.Get(reviewerContextKey).(reviewerPrincipal)
	return principal, ok
}

func unauthorizedResponse(c echo.Context) error {
	return fail(c, http.StatusUnauthorized, "Authentication required", nil)
}

func decodeJSONBody(c echo.Context, out any) error {
	decoder := json.NewDecoder(io.LimitReader(c.Request().Body, maxJSONBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is required")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}
