// Package auth validates bearer tokens against the identity provider's JWKS.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/huddlehq/huddle-server/internal/config"
)

// Principal is the authenticated caller extracted from a token or the development header.
type Principal struct {
	Subject  string
	Email    string
	Name     string
	Username string
	Scopes   []string
}

// HasScope reports whether the principal carries scope.
func (p Principal) HasScope(scope string) bool {
	for _, s := range p.Scopes {
		if strings.EqualFold(s, scope) {
			return true
		}
	}
	return false
}

// Validator verifies RS256/384/512 tokens. A nil Validator means auth is disabled.
type Validator struct {
	issuer   string
	audience string
	keyfunc  jwt.Keyfunc
	jwks     *keyfunc.JWKS
	log      zerolog.Logger
}

// NewValidator fetches the JWKS when auth is enabled and returns nil otherwise.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Validator, error) {
	if !cfg.AuthEnabled {
		return nil, nil
	}
	log = log.With().Str("component", "auth-validator").Logger()

	jwks, err := keyfunc.Get(cfg.AuthJWKSURL, keyfunc.Options{
		Ctx:               ctx,
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			log.Error().Err(err).Msg("jwks refresh error")
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	return &Validator{
		issuer:   strings.TrimSpace(cfg.AuthIssuer),
		audience: strings.TrimSpace(cfg.AuthAudience),
		keyfunc:  jwks.Keyfunc,
		jwks:     jwks,
		log:      log,
	}, nil
}

// NewValidatorWithKeyfunc builds a validator around an existing key source.
func NewValidatorWithKeyfunc(issuer, audience string, kf jwt.Keyfunc, log zerolog.Logger) *Validator {
	return &Validator{issuer: issuer, audience: audience, keyfunc: kf, log: log}
}

// Validate parses the raw token and returns its principal.
func (v *Validator) Validate(rawToken string) (*Principal, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, v.keyfunc, opts...)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	subject, _ := claims.GetSubject()
	if strings.TrimSpace(subject) == "" {
		return nil, errors.New("token has no subject")
	}
	return &Principal{
		Subject:  subject,
		Email:    stringClaim(claims, "email"),
		Name:     stringClaim(claims, "name"),
		Username: stringClaim(claims, "preferred_username"),
		Scopes:   scopesOf(claims),
	}, nil
}

// Close stops the background JWKS refresh.
func (v *Validator) Close() {
	if v != nil && v.jwks != nil {
		v.jwks.EndBackground()
	}
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return strings.TrimSpace(s)
}

// scopesOf merges the space separated "scope" claim with Keycloak style realm roles.
func scopesOf(claims jwt.MapClaims) []string {
	var scopes []string
	if raw := stringClaim(claims, "scope"); raw != "" {
		scopes = append(scopes, strings.Fields(raw)...)
	}
	if realm, ok := claims["realm_access"].(map[string]any); ok {
		if roles, ok := realm["roles"].([]any); ok {
			for _, r := range roles {
				if s, ok := r.(string); ok && s != "" {
					scopes = append(scopes, s)
				}
			}
		}
	}
	return scopes
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
