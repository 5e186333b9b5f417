// Package identity verifies bearer credentials issued by the external identity
// provider and turns them into verified principal claims.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Mandalorian7773/Task-Board-Pro/internal/domain"
)

// Claims is a verified principal as asserted by the identity provider.
type Claims struct {
	Subject string
	Name    string
	Email   string
}

// Verifier checks an opaque bearer credential.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Claims, error)
}

// Options configures HS256 verification and signing.
type Options struct {
	Secret   string
	Issuer   string        // optional, checked when set
	Audience string        // optional, checked when set
	Leeway   time.Duration // clock skew tolerance for exp/nbf/iat
	TTL      time.Duration // lifetime of tokens minted by Signer
}

// tokenClaims is the JWT payload shape of identity tokens.
type tokenClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256 identity tokens.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier creates a verifier. It is constructed once by the application
// and injected into every consumer.
func NewJWTVerifier(opts Options) (*JWTVerifier, error) {
	if opts.Secret == "" {
		return nil, errors.New("identity: secret is required")
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(opts.Leeway),
	}
	if opts.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(opts.Issuer))
	}
	if opts.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(opts.Audience))
	}

	return &JWTVerifier{
		secret: []byte(opts.Secret),
		parser: jwt.NewParser(parserOpts...),
	}, nil
}

// Verify validates the token signature and registered claims.
func (v *JWTVerifier) Verify(ctx context.Context, credential string) (*Claims, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	token, err := v.parser.ParseWithClaims(credential, &tokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", domain.ErrInvalidToken)
	}

	return &Claims{
		Subject: claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
	}, nil
}

// Signer mints identity tokens compatible with JWTVerifier. It stands in for
// the identity provider in local development and tests.
type Signer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewSigner creates a Signer. A zero TTL defaults to one hour.
func NewSigner(opts Options) (*Signer, error) {
	if opts.Secret == "" {
		return nil, errors.New("identity: secret is required")
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Signer{
		secret:   []byte(opts.Secret),
		issuer:   opts.Issuer,
		audience: opts.Audience,
		ttl:      ttl,
	}, nil
}

// Sign creates a token for the given principal.
func (s *Signer) Sign(subject, name, email string) (string, error) {
	now := time.Now()
	claims := &tokenClaims{
		Name:  name,
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	if s.audience != "" {
		claims.Audience = jwt.ClaimStrings{s.audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}
