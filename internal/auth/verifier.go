package auth

import (
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"care-session-service/internal/domain"
)

// keycloakClaims is the raw claim shape the issuer produces.
type keycloakClaims struct {
	OrganisationID string `json:"organisationId"`
	SchemaName     string `json:"schema_name"`
	RealmAccess    struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
	jwt.RegisteredClaims
}

type discoveryDocument struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// TokenVerifier validates bearer tokens against the issuer's JWKS. The key
// set is cached and refreshed lazily on unknown key ids, so concurrent
// refreshes may race harmlessly.
type TokenVerifier struct {
	jwks      *keyfunc.JWKS
	issuer    string
	algorithm string
	logger    *zap.Logger
}

// NewTokenVerifier resolves the issuer's endpoints from its OIDC discovery
// document (falling back to the conventional realm URLs) and primes the JWKS
// cache. A fetch failure here is an infrastructure error, not an
// authentication failure.
func NewTokenVerifier(baseURL, realm, algorithm string, logger *zap.Logger) (*TokenVerifier, error) {
	issuer := fmt.Sprintf("%s/realms/%s", baseURL, realm)
	jwksURL := issuer + "/protocol/openid-connect/certs"

	client := resty.New().SetTimeout(10 * time.Second)
	var doc discoveryDocument
	resp, err := client.R().
		SetResult(&doc).
		Get(issuer + "/.well-known/openid-configuration")
	if err == nil && !resp.IsError() && doc.JWKSURI != "" {
		jwksURL = doc.JWKSURI
		if doc.Issuer != "" {
			issuer = doc.Issuer
		}
	} else {
		logger.Warn("oidc discovery failed, using conventional endpoints",
			zap.String("issuer", issuer), zap.Error(err))
	}

	jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute,
		RefreshTimeout:    10 * time.Second,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			logger.Error("jwks refresh failed", zap.Error(err))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch signing keys from %s: %w", jwksURL, err)
	}

	return &TokenVerifier{
		jwks:      jwks,
		issuer:    issuer,
		algorithm: algorithm,
		logger:    logger,
	}, nil
}

// Verify checks signature, expiry and issuer, and extracts the claim set.
// All failures map to domain.ErrUnauthenticated.
func (v *TokenVerifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", domain.ErrUnauthenticated)
	}

	var claims keycloakClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, v.jwks.Keyfunc,
		jwt.WithValidMethods([]string{v.algorithm}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
	}
	if !claims.VerifyIssuer(v.issuer, true) {
		return nil, fmt.Errorf("%w: issuer mismatch", domain.ErrUnauthenticated)
	}

	return &Claims{
		Subject:        claims.Subject,
		OrganizationID: claims.OrganisationID,
		SchemaName:     claims.SchemaName,
		Roles:          claims.RealmAccess.Roles,
	}, nil
}

// Close stops the background JWKS refresh.
func (v *TokenVerifier) Close() {
	v.jwks.EndBackground()
}
