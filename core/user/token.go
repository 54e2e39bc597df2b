package user

import (
	"errors"
	"time"

	"github.com/dgrijalva/jwt-go"

	"github.com/classoptima/backend/core"
)

const resetPurpose = "password_reset"

var (
	ErrInvalidToken = errors.New("invalid or expired token")

	NowFunc = time.Now // mockable
)

type resetClaims struct {
	jwt.StandardClaims
	Purpose string `json:"purpose"`
}

// MakeResetToken generates a signed password-recovery token for a given User.
// The token is also persisted on the user record; verification requires both
// a valid signature AND an exact match against storage, which makes it
// single-use.
func MakeResetToken(conf *core.Config, usr User) (token string, expiry time.Time, err error) {
	now := NowFunc()
	expiry = now.Add(conf.PasswordResetTimeout)

	claims := resetClaims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.Email,
			Audience:  "PasswordRecovery",
			IssuedAt:  now.Unix(),
			ExpiresAt: expiry.Unix(),
		},
		Purpose: resetPurpose,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString([]byte(conf.SecretKey))
	return token, expiry, err
}

// VerifyResetToken checks the token's signature, expiry and purpose and
// returns the email it was issued for. Matching against the stored copy is
// the caller's job.
func VerifyResetToken(conf *core.Config, token string) (email string, err error) {
	claims := new(resetClaims)
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(conf.SecretKey), nil
	})
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if claims.Purpose != resetPurpose {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
