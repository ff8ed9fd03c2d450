package mqtt

import (
	"crypto/rsa"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nerrad567/roomcast/internal/infrastructure/config"
)

// tokenUsername is the username presented alongside a device token.
// Cloud IoT brokers ignore the username field when JWT authentication
// is in use, but require it to be non-empty.
const tokenUsername = "unused"

// tokenSource mints short-lived RS256 device tokens from a per-device
// RSA private key. The token is presented as the MQTT password, so a
// fresh one must be minted for every (re)connection attempt.
//
// Thread Safety:
//   - Token and Credentials are safe for concurrent use.
type tokenSource struct {
	audience string
	ttl      time.Duration
	key      *rsa.PrivateKey

	// lastToken is returned if a mint fails mid-reconnect, so a
	// transient clock or entropy problem doesn't strand the client
	// with empty credentials.
	mu        sync.Mutex
	lastToken string
}

// newTokenSource loads the PEM-encoded RSA private key and prepares a
// token source for the configured audience and lifetime.
func newTokenSource(cfg config.DeviceTokenConfig) (*tokenSource, error) {
	pemBytes, err := os.ReadFile(cfg.PrivateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrDeviceKey, cfg.PrivateKeyFile, err)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM(pemBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", ErrDeviceKey, cfg.PrivateKeyFile, err)
	}

	return &tokenSource{
		audience: cfg.Audience,
		ttl:      time.Duration(cfg.TTL) * time.Minute,
		key:      key,
	}, nil
}

// Token mints a signed device JWT valid from now until now+ttl.
//
// Claims follow the cloud IoT device auth convention:
//   - aud: the cloud project ID
//   - iat: mint time
//   - exp: mint time + configured TTL
func (s *tokenSource) Token(now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenMint, err)
	}

	s.mu.Lock()
	s.lastToken = signed
	s.mu.Unlock()

	return signed, nil
}

// Credentials returns the username/password pair for a connection
// attempt. On mint failure it falls back to the last good token; the
// onError callback (if non-nil) receives the mint error either way.
func (s *tokenSource) Credentials(onError func(error)) (username, password string) {
	token, err := s.Token(time.Now())
	if err != nil {
		if onError != nil {
			onError(err)
		}
		s.mu.Lock()
		token = s.lastToken
		s.mu.Unlock()
	}
	return tokenUsername, token
}
