package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionIDLen is the raw credential size; it encodes to 64 base64 characters.
const SessionIDLen = 48

// EncodedSessionIDLen is the length of an encoded session credential.
const EncodedSessionIDLen = 64

type RawSessionID [SessionIDLen]byte

func NewSessionID() (RawSessionID, error) {
	var sid RawSessionID
	if _, err := rand.Read(sid[:]); err != nil {
		return sid, fmt.Errorf("generate session id: %w", err)
	}
	return sid, nil
}

// Encode renders the credential as unpadded standard base64.
func (s RawSessionID) Encode() string {
	return base64.RawStdEncoding.EncodeToString(s[:])
}

// Hash is what gets stored; the raw credential never leaves the issuing process.
func (s RawSessionID) Hash() []byte {
	sum := sha256.Sum256(s[:])
	return sum[:]
}

// ParseSessionID decodes an encoded credential, rejecting anything of the wrong size.
func ParseSessionID(encoded string) (RawSessionID, error) {
	var sid RawSessionID
	if len(encoded) != EncodedSessionIDLen {
		return sid, fmt.Errorf("session id must be %d characters", EncodedSessionIDLen)
	}
	raw, err := base64.RawStdEncoding.DecodeString(encoded)
	if err != nil {
		return sid, fmt.Errorf("decode session id: %w", err)
	}
	copy(sid[:], raw)
	return sid, nil
}

type BearerClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// GenerateBearerToken wraps an encoded session credential in a signed token so
// non-browser clients can present it in an Authorization header.
func GenerateBearerToken(secret string, encodedSessionID string, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := BearerClaims{
		SessionID: encodedSessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Subject:  subject,
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func ParseBearerToken(tokenStr string, secret string) (*BearerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &BearerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*BearerClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}
