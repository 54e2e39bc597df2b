package user_test

import (
	"testing"
	"time"

	"github.com/classoptima/backend/core"
	"github.com/classoptima/backend/core/user"
)

func TestMakeVerifyResetToken(t *testing.T) {
	conf := core.NewTestConfig()
	conf.SecretKey = "secret"
	conf.PasswordResetTimeout = time.Hour

	usr := user.User{
		ID:       1,
		Email:    "t@test.gt",
		IsActive: true,
	}

	validToken, _, err := user.MakeResetToken(conf, usr)
	if err != nil {
		t.Fatalf("MakeResetToken() error = %v", err)
	}

	// a token minted two hours ago is past the one hour timeout
	user.NowFunc = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expiredToken, _, err := user.MakeResetToken(conf, usr)
	if err != nil {
		t.Fatalf("MakeResetToken() error = %v", err)
	}
	user.NowFunc = time.Now // reset

	otherConf := core.NewTestConfig()
	otherConf.SecretKey = "other"
	foreignToken, _, err := user.MakeResetToken(otherConf, usr)
	if err != nil {
		t.Fatalf("MakeResetToken() error = %v", err)
	}

	tests := []struct {
		name      string
		token     string
		wantEmail string
		wantErr   error
	}{
		{name: "no token", wantErr: user.ErrInvalidToken},
		{name: "garbage", token: "lmaooolol", wantErr: user.ErrInvalidToken},
		{name: "wrong signing key", token: foreignToken, wantErr: user.ErrInvalidToken},
		{name: "expired token", token: expiredToken, wantErr: user.ErrInvalidToken},
		{name: "valid token", token: validToken, wantEmail: usr.Email},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			email, err := user.VerifyResetToken(conf, tt.token)
			if err != tt.wantErr {
				t.Errorf("VerifyResetToken() error = %v, wantErr %v", err, tt.wantErr)
			}
			if email != tt.wantEmail {
				t.Errorf("VerifyResetToken() email = %q, want %q", email, tt.wantEmail)
			}
		})
	}
}
