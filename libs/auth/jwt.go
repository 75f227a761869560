package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the identity assertions the gateway forwards. Role is the clinic
// role ("patient" or "doctor"); Subject is the profile id.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type VerifierConfig struct {
	// HS256 shared secret. Empty disables HS256.
	Secret string
	// JWKS for RS256 tokens carrying a kid. Nil disables RS256.
	JWKS     *JWKSClient
	Issuer   string
	Audience string
}

type Verifier struct {
	cfg    VerifierConfig
	parser *jwt.Parser
}

func NewVerifier(cfg VerifierConfig) *Verifier {
	methods := []string{}
	if cfg.Secret != "" {
		methods = append(methods, jwt.SigningMethodHS256.Alg())
	}
	if cfg.JWKS != nil {
		methods = append(methods, jwt.SigningMethodRS256.Alg())
	}
	return &Verifier{
		cfg:    cfg,
		parser: jwt.NewParser(jwt.WithValidMethods(methods)),
	}
}

// Verify checks signature, expiry and the optional issuer/audience, and
// requires a subject.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	_, err := v.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if v.cfg.Secret == "" {
				return nil, errors.New("hs256 not accepted")
			}
			return []byte(v.cfg.Secret), nil
		case *jwt.SigningMethodRSA:
			if v.cfg.JWKS == nil {
				return nil, errors.New("rs256 not accepted")
			}
			kid, _ := t.Header["kid"].(string)
			if kid == "" {
				return nil, errors.New("missing kid")
			}
			return v.cfg.JWKS.Get(ctx, kid)
		default:
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if v.cfg.Issuer != "" && !claims.VerifyIssuer(v.cfg.Issuer, true) {
		return nil, fmt.Errorf("%w: issuer mismatch", ErrInvalidToken)
	}
	if v.cfg.Audience != "" && !claims.VerifyAudience(v.cfg.Audience, true) {
		return nil, fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}
	claims.Role = strings.ToLower(strings.TrimSpace(claims.Role))
	return claims, nil
}

// SignHS256 issues a token; used by tests and local tooling.
func SignHS256(subject, role string, ttl time.Duration, secret string) (string, error) {
	now := time.Now()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
