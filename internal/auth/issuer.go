// Package auth verifies credentials and issues signed access/refresh token
// pairs whose claims can be read without a store lookup.
package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taskboard/internal/apperror"
	"taskboard/internal/models"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// Claims is the claim bundle embedded in both token types.
type Claims struct {
	UserID    int         `json:"id"`
	Username  string      `json:"username"`
	Role      models.Role `json:"role"`
	TokenType string      `json:"token_type"`
	jwt.RegisteredClaims
}

// UserSource is the slice of the entity store the issuer reads.
type UserSource interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUser(ctx context.Context, id int) (*models.User, error)
}

type Options struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Now overrides the issuance clock; validation always uses wall time.
	Now func() time.Time
}

type TokenPair struct {
	Access           string
	Refresh          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	Claims           Claims
}

type Issuer struct {
	users   UserSource
	revoked RevocationList
	opts    Options
}

// NewIssuer builds an issuer. revoked may be nil, in which case logout is
// unsupported and refresh tokens are valid until they expire.
func NewIssuer(users UserSource, revoked RevocationList, opts Options) *Issuer {
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 5 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Issuer{users: users, revoked: revoked, opts: opts}
}

var (
	dummyOnce sync.Once
	dummyHash []byte
)

// burnCompare spends the same bcrypt work as a real check so unknown
// usernames are not distinguishable by timing.
func burnCompare(password string) {
	dummyOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("taskboard-unknown-user"), bcrypt.DefaultCost)
	})
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// Issue checks username/password and returns a fresh token pair. Every
// credential failure yields the same *apperror.AuthenticationError.
func (i *Issuer) Issue(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := i.users.GetUserByUsername(ctx, username)
	if err != nil {
		if apperror.IsNotFound(err) {
			burnCompare(password)
			return nil, &apperror.AuthenticationError{Reason: "unknown username"}
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, &apperror.AuthenticationError{Reason: "password mismatch"}
	}
	return i.pair(user)
}

func (i *Issuer) pair(user *models.User) (*TokenPair, error) {
	access, accessClaims, err := i.sign(user, TokenTypeAccess, i.opts.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshClaims, err := i.sign(user, TokenTypeRefresh, i.opts.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		Access:           access,
		Refresh:          refresh,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
		Claims:           *accessClaims,
	}, nil
}

func (i *Issuer) sign(user *models.User, tokenType string, ttl time.Duration) (string, *Claims, error) {
	now := i.opts.Now()
	claims := &Claims{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    i.opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.opts.Secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", tokenType, err)
	}
	return signed, claims, nil
}

func (i *Issuer) parse(tokenString, wantType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.opts.Secret, nil
	})
	if err != nil || !token.Valid {
		reason := "invalid token"
		var vErr *jwt.ValidationError
		if errors.As(err, &vErr) && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			reason = "token expired"
		}
		return nil, &apperror.AuthenticationError{Reason: reason}
	}
	if claims.TokenType != wantType {
		return nil, &apperror.AuthenticationError{Reason: "wrong token type"}
	}
	if i.opts.Issuer != "" && claims.Issuer != i.opts.Issuer {
		return nil, &apperror.AuthenticationError{Reason: "foreign issuer"}
	}
	return claims, nil
}

// Parse validates an access token and returns its claims.
func (i *Issuer) Parse(tokenString string) (*Claims, error) {
	return i.parse(tokenString, TokenTypeAccess)
}

// Refresh exchanges a valid refresh token for a new access token. The user
// is re-read so deleted users are refused and role changes are picked up.
// The returned pair carries the same refresh token.
func (i *Issuer) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := i.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if err := i.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	user, err := i.users.GetUser(ctx, claims.UserID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, &apperror.AuthenticationError{Reason: "user no longer exists"}
		}
		return nil, err
	}

	access, accessClaims, err := i.sign(user, TokenTypeAccess, i.opts.AccessTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		Access:           access,
		Refresh:          refreshToken,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshExpiresAt: claims.ExpiresAt.Time,
		Claims:           *accessClaims,
	}, nil
}

// Revoke blacklists a refresh token until it would have expired anyway.
func (i *Issuer) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := i.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return err
	}
	if i.revoked == nil {
		return errors.New("token revocation is not configured")
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return i.revoked.Revoke(ctx, claims.ID, ttl)
}

func (i *Issuer) checkRevoked(ctx context.Context, claims *Claims) error {
	if i.revoked == nil {
		return nil
	}
	revoked, err := i.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return &apperror.AuthenticationError{Reason: "token revoked"}
	}
	return nil
}
