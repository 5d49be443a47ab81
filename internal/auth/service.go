package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"learnassist/internal/cache"
)

const tokenCacheResource = "auth_token"

// Service issues, validates, and revokes user authentication tokens.
// Tokens live in the database; a redis cache in front keeps the hot
// validation path off the database.
type Service struct {
	db         *sql.DB
	cache      *cache.Client
	tokenTTL   time.Duration
	headerName string
	cookieName string
}

// NewService constructs an auth service with the supplied token lifetime.
// The cache client may be nil, in which case every lookup hits the database.
func NewService(db *sql.DB, cacheClient *cache.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{
		db:         db,
		cache:      cacheClient,
		tokenTTL:   ttl,
		headerName: "Authorization",
		cookieName: "auth_token",
	}
}

// IssueToken mints a new random token for the user and persists it.
func (s *Service) IssueToken(ctx context.Context, userID int64) (string, error) {
	if userID <= 0 {
		return "", errors.New("invalid user id")
	}
	now := time.Now().UTC()
	expiresAt := now.Add(s.tokenTTL)
	for i := 0; i < 5; i++ {
		token, err := generateToken()
		if err != nil {
			return "", err
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT INTO user_tokens (token, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
			token, userID, now, expiresAt,
		)
		if err == nil {
			_ = s.cache.Set(ctx, s.cacheKey(token), strconv.FormatInt(userID, 10), s.tokenTTL)
			return token, nil
		}
	}
	return "", errors.New("could not issue token")
}

// ValidateToken verifies the token exists and has not expired, returning the user id.
func (s *Service) ValidateToken(ctx context.Context, authToken string) (int64, error) {
	if authToken == "" {
		return 0, errors.New("token required")
	}
	if cached, err := s.cache.Get(ctx, s.cacheKey(authToken)); err == nil {
		if userID, convErr := strconv.ParseInt(cached, 10, 64); convErr == nil && userID > 0 {
			return userID, nil
		}
	}
	var userID int64
	var expires time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM user_tokens WHERE token = ?`, authToken,
	).Scan(&userID, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, errors.New("invalid token")
		}
		return 0, fmt.Errorf("lookup token: %w", err)
	}
	if time.Now().UTC().After(expires) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE token = ?`, authToken)
		_ = s.cache.Del(ctx, s.cacheKey(authToken))
		return 0, errors.New("token expired")
	}
	_ = s.cache.Set(ctx, s.cacheKey(authToken), strconv.FormatInt(userID, 10), time.Until(expires))
	return userID, nil
}

// RevokeToken deletes a single token.
func (s *Service) RevokeToken(ctx context.Context, authToken string) error {
	if authToken == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE token = ?`, authToken); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return s.cache.Del(ctx, s.cacheKey(authToken))
}

// RevokeUserTokens removes all tokens belonging to the user.
func (s *Service) RevokeUserTokens(ctx context.Context, userID int64) error {
	if userID <= 0 {
		return nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT token FROM user_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("list user tokens: %w", err)
	}
	var keys []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			rows.Close()
			return fmt.Errorf("scan token: %w", err)
		}
		keys = append(keys, s.cacheKey(token))
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list user tokens: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("revoke user tokens: %w", err)
	}
	return s.cache.Del(ctx, keys...)
}

// AuthCookieName returns the cookie name storing auth tokens.
func (s *Service) AuthCookieName() string {
	return s.cookieName
}

// TokenTTL reports the configured token lifetime.
func (s *Service) TokenTTL() time.Duration {
	return s.tokenTTL
}

func (s *Service) cacheKey(token string) string {
	return cache.Key(tokenCacheResource, token)
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
