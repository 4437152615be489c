package authority

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Platform distinguishes tokens issued for the web dashboard from tokens
// issued for the mobile patrol app. Some endpoints reject the wrong platform.
type Platform string

const (
	PlatformWeb    Platform = "web"
	PlatformMobile Platform = "mobile"
)

// Identity is a verified caller. It is a claim extracted from a signed
// token, never persisted.
type Identity struct {
	UserID       uuid.UUID
	Username     string
	RoleID       uuid.UUID
	RoleCode     RoleCode
	AreaID       uuid.UUID
	DepartmentID uuid.UUID
	Platform     Platform
	IssuedAt     time.Time
	ExpiresAt    time.Time
}

// Verifier validates and issues the signed session tokens. It is a pure
// function over the token and the shared secret; account status re-checks
// for the refresh flow live in the auth service.
type Verifier struct {
	secret []byte
}

// NewVerifier returns a Verifier signing with the given HMAC secret.
func NewVerifier(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Issue signs a token for the identity with the given lifetime.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      id.UserID.String(),
		"username": id.Username,
		"role_id":  id.RoleID.String(),
		"role":     string(id.RoleCode),
		"platform": string(id.Platform),
		"iat":      now.Unix(),
		"exp":      now.Add(ttl).Unix(),
	}
	if id.AreaID != uuid.Nil {
		claims["area_id"] = id.AreaID.String()
	}
	if id.DepartmentID != uuid.Nil {
		claims["department_id"] = id.DepartmentID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and extracts the identity claims.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrUnauthenticated
	}
	return v.parse(tokenString, true)
}

// DecodeExpired accepts a token whose signature is valid but whose expiry
// may have passed. The refresh flow uses it to re-derive the subject before
// issuing a fresh token.
func (v *Verifier) DecodeExpired(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, ErrUnauthenticated
	}
	return v.parse(tokenString, false)
}

func (v *Verifier) parse(tokenString string, checkExpiry bool) (Identity, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256"})}
	if !checkExpiry {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return v.secret, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, fmt.Errorf("%w: %v", ErrExpired, err)
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if !token.Valid && checkExpiry {
		return Identity{}, ErrInvalidCredential
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("%w: unexpected claims type", ErrInvalidCredential)
	}
	return identityFromClaims(claims)
}

func identityFromClaims(claims jwt.MapClaims) (Identity, error) {
	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: bad subject claim", ErrInvalidCredential)
	}

	id := Identity{UserID: userID}

	if username, ok := claims["username"].(string); ok {
		id.Username = username
	}
	if role, ok := claims["role"].(string); ok {
		id.RoleCode = RoleCode(role)
	}
	if roleID, ok := claims["role_id"].(string); ok {
		id.RoleID, _ = uuid.Parse(roleID)
	}
	if areaID, ok := claims["area_id"].(string); ok {
		id.AreaID, _ = uuid.Parse(areaID)
	}
	if deptID, ok := claims["department_id"].(string); ok {
		id.DepartmentID, _ = uuid.Parse(deptID)
	}
	if platform, ok := claims["platform"].(string); ok {
		id.Platform = Platform(platform)
	}
	if iat, ok := claims["iat"].(float64); ok {
		id.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := claims["exp"].(float64); ok {
		id.ExpiresAt = time.Unix(int64(exp), 0)
	}

	return id, nil
}
