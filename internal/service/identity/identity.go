package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ybenkirane/atlaspay/internal/apperrors"
)

// The phone OTP challenge happens out of band at the auth collaborator.
// What arrives here is a token it signed with the shared secret, whose
// subject is the verified phone number. The verifier trusts that subject
// as a pre-verified opaque identity and nothing else.

const defaultSigningMethod = "HS256"

type Config struct {
	// Shared secret the auth collaborator signs identity tokens with
	// Required to be set
	SecretKey string

	// JWT MAC algorithm, default HS256
	Alg string
}

type Verifier struct {
	key string
	alg jwt.SigningMethod
}

func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}
	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	return &Verifier{
		key: cfg.SecretKey,
		alg: jwt.GetSigningMethod(cfg.Alg),
	}, nil
}

// VerifyToken returns the verified phone identity carried by the token
func (v *Verifier) VerifyToken(tokenString string) (string, error) {
	var claims jwt.RegisteredClaims

	_, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(t *jwt.Token) (any, error) { return []byte(v.key), nil },
		jwt.WithValidMethods([]string{v.alg.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", apperrors.ErrUnauthorized
	}

	if claims.Subject == "" {
		return "", apperrors.ErrUnauthorized
	}

	return claims.Subject, nil
}

// PhoneFromRequest extracts and verifies the identity token of a request
func (v *Verifier) PhoneFromRequest(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	tokenString, found := strings.CutPrefix(header, "Bearer ")
	if !found || tokenString == "" {
		return "", apperrors.ErrUnauthorized
	}

	return v.VerifyToken(tokenString)
}

// Issue signs an identity token for the phone the way the auth collaborator
// would. Meant for local development and tests.
func (v *Verifier) Issue(phone string, ttl time.Duration) (string, error) {
	now := time.Now().Truncate(time.Second)

	token := jwt.NewWithClaims(
		v.alg,
		jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   phone,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	)

	signed, err := token.SignedString([]byte(v.key))
	if err != nil {
		return "", fmt.Errorf("error while signing identity token. Err: %w", err)
	}

	return signed, nil
}
