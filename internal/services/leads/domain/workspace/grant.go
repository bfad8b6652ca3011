package workspace

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
	"github.com/craftlane/craftlane/internal/platform/id"
)

// grantEnv holds raw env values before post-parse validation.
type grantEnv struct {
	Issuer     string `env:"CRAFTLANE_WORKSPACE_GRANT_ISSUER"`
	Audience   string `env:"CRAFTLANE_WORKSPACE_GRANT_AUDIENCE"`
	PrivateKey string `env:"CRAFTLANE_WORKSPACE_GRANT_PRIVATE_KEY"`
	PublicKey  string `env:"CRAFTLANE_WORKSPACE_GRANT_PUBLIC_KEY"`
}

// GrantConfig defines how workspace access grants are signed and verified.
type GrantConfig struct {
	Issuer     string
	Audience   string
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
	TTL        time.Duration
	Now        func() time.Time
}

// DefaultGrantTTL bounds how long an access link stays valid.
const DefaultGrantTTL = 14 * 24 * time.Hour

// GrantExpectation defines the expected identity for an access grant.
type GrantExpectation struct {
	WorkspaceID string
	VendorID    string
}

// GrantClaims captures validated workspace access grant claims.
type GrantClaims struct {
	Issuer      string
	Audience    []string
	ExpiresAt   time.Time
	IssuedAt    time.Time
	JWTID       string
	WorkspaceID string
	VendorID    string
	LeadID      string
}

// grantClaims is the internal claims type used for JWT parsing.
type grantClaims struct {
	jwt.RegisteredClaims
	WorkspaceID string `json:"workspace_id"`
	VendorID    string `json:"vendor_id"`
	LeadID      string `json:"lead_id"`
}

// LoadGrantConfigFromEnv reads workspace grant signing configuration.
// The private key is optional so verify-only deployments can omit it.
func LoadGrantConfigFromEnv(now func() time.Time) (GrantConfig, error) {
	var raw grantEnv
	if err := env.Parse(&raw); err != nil {
		return GrantConfig{}, fmt.Errorf("parse workspace grant env: %w", err)
	}
	issuer := strings.TrimSpace(raw.Issuer)
	audience := strings.TrimSpace(raw.Audience)
	publicKey := strings.TrimSpace(raw.PublicKey)
	if issuer == "" {
		return GrantConfig{}, fmt.Errorf("CRAFTLANE_WORKSPACE_GRANT_ISSUER is required")
	}
	if audience == "" {
		return GrantConfig{}, fmt.Errorf("CRAFTLANE_WORKSPACE_GRANT_AUDIENCE is required")
	}
	if publicKey == "" {
		return GrantConfig{}, fmt.Errorf("CRAFTLANE_WORKSPACE_GRANT_PUBLIC_KEY is required")
	}
	publicBytes, err := decodeBase64(publicKey)
	if err != nil {
		return GrantConfig{}, fmt.Errorf("decode workspace grant public key: %w", err)
	}
	if len(publicBytes) != ed25519.PublicKeySize {
		return GrantConfig{}, fmt.Errorf("workspace grant public key must be %d bytes", ed25519.PublicKeySize)
	}
	cfg := GrantConfig{
		Issuer:    issuer,
		Audience:  audience,
		PublicKey: ed25519.PublicKey(publicBytes),
		TTL:       DefaultGrantTTL,
		Now:       now,
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if privateKey := strings.TrimSpace(raw.PrivateKey); privateKey != "" {
		privateBytes, err := decodeBase64(privateKey)
		if err != nil {
			return GrantConfig{}, fmt.Errorf("decode workspace grant private key: %w", err)
		}
		if len(privateBytes) != ed25519.PrivateKeySize {
			return GrantConfig{}, fmt.Errorf("workspace grant private key must be %d bytes", ed25519.PrivateKeySize)
		}
		cfg.PrivateKey = ed25519.PrivateKey(privateBytes)
	}
	return cfg, nil
}

// SignGrant mints a workspace access grant for the vendor approved on leadID.
func SignGrant(workspaceID, vendorID, leadID string, cfg GrantConfig) (string, error) {
	workspaceID = strings.TrimSpace(workspaceID)
	vendorID = strings.TrimSpace(vendorID)
	if workspaceID == "" || vendorID == "" {
		return "", errors.New("workspace id and vendor id are required")
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.PrivateKey) != ed25519.PrivateKeySize {
		return "", errors.New("workspace grant signer is not configured")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultGrantTTL
	}

	jwtID, err := id.NewID()
	if err != nil {
		return "", fmt.Errorf("generate grant id: %w", err)
	}

	now := cfg.Now().UTC()
	claims := grantClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        jwtID,
		},
		WorkspaceID: workspaceID,
		VendorID:    vendorID,
		LeadID:      strings.TrimSpace(leadID),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(cfg.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("sign workspace grant: %w", err)
	}
	return signed, nil
}

// ValidateGrant verifies a workspace access grant and validates expected claims.
func ValidateGrant(grant string, expected GrantExpectation, cfg GrantConfig) (GrantClaims, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return GrantClaims{}, apperrors.New(apperrors.CodeWorkspaceGrantInvalid, "workspace grant is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Issuer == "" || cfg.Audience == "" || len(cfg.PublicKey) != ed25519.PublicKeySize {
		return GrantClaims{}, errors.New("workspace grant verifier is not configured")
	}

	var parsed grantClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.PublicKey, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return GrantClaims{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != cfg.Issuer {
		return GrantClaims{}, apperrors.WithMetadata(
			apperrors.CodeWorkspaceGrantMismatch,
			"workspace grant issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, cfg.Audience) {
		return GrantClaims{}, apperrors.WithMetadata(
			apperrors.CodeWorkspaceGrantMismatch,
			"workspace grant audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}

	if parsed.ID == "" {
		return GrantClaims{}, apperrors.New(apperrors.CodeWorkspaceGrantInvalid, "workspace grant jti is required")
	}
	if parsed.ExpiresAt == nil {
		return GrantClaims{}, apperrors.New(apperrors.CodeWorkspaceGrantInvalid, "workspace grant exp is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if !exp.After(now) {
		return GrantClaims{}, apperrors.New(apperrors.CodeWorkspaceGrantExpired, "workspace grant is expired")
	}
	if parsed.NotBefore != nil {
		nbf := parsed.NotBefore.Time.UTC()
		if now.Before(nbf) {
			return GrantClaims{}, apperrors.New(apperrors.CodeWorkspaceGrantInvalid, "workspace grant not active yet")
		}
	}

	if strings.TrimSpace(parsed.WorkspaceID) == "" || parsed.WorkspaceID != expected.WorkspaceID {
		return GrantClaims{}, apperrors.WithMetadata(
			apperrors.CodeWorkspaceGrantMismatch,
			"workspace grant workspace mismatch",
			map[string]string{"Field": "workspace_id"},
		)
	}
	if strings.TrimSpace(parsed.VendorID) == "" || parsed.VendorID != expected.VendorID {
		return GrantClaims{}, apperrors.WithMetadata(
			apperrors.CodeWorkspaceGrantMismatch,
			"workspace grant vendor mismatch",
			map[string]string{"Field": "vendor_id"},
		)
	}

	claims := GrantClaims{
		Issuer:      parsed.Issuer,
		Audience:    []string(parsed.Audience),
		ExpiresAt:   exp,
		JWTID:       parsed.ID,
		WorkspaceID: parsed.WorkspaceID,
		VendorID:    parsed.VendorID,
		LeadID:      parsed.LeadID,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeWorkspaceGrantInvalid, "workspace grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeWorkspaceGrantInvalid, "workspace grant alg is invalid")
	}
	return apperrors.New(apperrors.CodeWorkspaceGrantInvalid, "workspace grant is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
