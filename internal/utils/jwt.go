package utils // package utils provides helpers for issuing caller tokens

import (
    "errors"
    "strings"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed JWT together with its expiry.  The Token field is
// sent as "Authorization: Bearer <Token>" on every /v1 call.
type AccessToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT whose subject is the opaque
// caller identity.  The API accepts any token signed with its JWT_SECRET,
// so this is what the identity service (or the devtoken command, for local
// work) uses to mint tokens.
func NewAccessToken(secret, subject string, ttl time.Duration) (AccessToken, error) {
    subject = strings.TrimSpace(subject)
    if secret == "" {
        return AccessToken{}, errors.New("empty signing secret")
    }
    if subject == "" {
        return AccessToken{}, errors.New("empty subject")
    }
    if ttl <= 0 {
        return AccessToken{}, errors.New("ttl must be positive")
    }
    now := time.Now().UTC()
    exp := now.Add(ttl)
    claims := jwt.RegisteredClaims{
        Subject:   subject,
        IssuedAt:  jwt.NewNumericDate(now),
        ExpiresAt: jwt.NewNumericDate(exp),
    }
    signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    if err != nil {
        return AccessToken{}, err
    }
    return AccessToken{Token: signed, Exp: exp}, nil
}
