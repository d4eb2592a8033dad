// Package auth signs and verifies download share links.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/ledgerscan/internal/core/domain"
	"github.com/custodia-labs/ledgerscan/internal/core/ports/driven"
)

// Ensure LinkSigner implements driven.LinkSigner
var _ driven.LinkSigner = (*LinkSigner)(nil)

const issuer = "ledgerscan"

// linkClaims identifies one artifact of one job
type linkClaims struct {
	JobID  string              `json:"job_id"`
	Format domain.ExportFormat `json:"format"`
	jwt.RegisteredClaims
}

// LinkSigner issues HS256 tokens granting time-limited access to an export
type LinkSigner struct {
	secret []byte
	now    func() time.Time
}

// NewLinkSigner creates a signer with the given secret
func NewLinkSigner(secret string) (*LinkSigner, error) {
	if secret == "" {
		return nil, errors.New("link signing secret is required")
	}
	return &LinkSigner{secret: []byte(secret), now: time.Now}, nil
}

// Sign returns a token for the job's artifact in format, valid for ttl
func (s *LinkSigner) Sign(jobID string, format domain.ExportFormat, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)
	claims := linkClaims{
		JobID:  jobID,
		Format: format,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   jobID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign link: %w", err)
	}
	return token, expiresAt, nil
}

// Verify validates a token and returns the job and format it grants
func (s *LinkSigner) Verify(tokenString string) (string, domain.ExportFormat, error) {
	token, err := jwt.ParseWithClaims(tokenString, &linkClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", domain.ErrTokenExpired
		}
		return "", "", fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*linkClaims)
	if !ok || !token.Valid || claims.JobID == "" {
		return "", "", domain.ErrTokenInvalid
	}
	format, err := domain.ParseExportFormat(string(claims.Format))
	if err != nil {
		return "", "", domain.ErrTokenInvalid
	}
	return claims.JobID, format, nil
}
