package utils

import (
    "regexp"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestAccessToken_RoundTrip(t *testing.T) {
    at, err := NewAccessToken("s3cret", "user-1", "partner", 5)
    require.NoError(t, err)
    assert.WithinDuration(t, time.Now().Add(5*time.Minute), at.Exp, 5*time.Second)

    cl, err := ParseAccessToken("s3cret", at.Token)
    require.NoError(t, err)
    assert.Equal(t, "user-1", cl.UserID)
    assert.Equal(t, "partner", cl.Role)
}

func TestParseAccessToken_Rejects(t *testing.T) {
    at, err := NewAccessToken("s3cret", "user-1", "user", 5)
    require.NoError(t, err)

    _, err = ParseAccessToken("other", at.Token)
    assert.ErrorIs(t, err, ErrInvalidToken)

    _, err = ParseAccessToken("s3cret", "not-a-jwt")
    assert.ErrorIs(t, err, ErrInvalidToken)

    expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "sub": "user-1", "role": "user", "exp": time.Now().Add(-time.Minute).Unix(),
    }).SignedString([]byte("s3cret"))
    require.NoError(t, err)
    _, err = ParseAccessToken("s3cret", expired)
    assert.ErrorIs(t, err, ErrInvalidToken)

    noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
        "role": "user", "exp": time.Now().Add(time.Minute).Unix(),
    }).SignedString([]byte("s3cret"))
    require.NoError(t, err)
    _, err = ParseAccessToken("s3cret", noSub)
    assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshToken(t *testing.T) {
    rt, err := NewRefreshToken(7)
    require.NoError(t, err)
    assert.Len(t, rt.Raw, 96)
    assert.Len(t, HashRefreshRaw(rt.Raw), 64)
    assert.NotEqual(t, rt.Raw, HashRefreshRaw(rt.Raw))
}

func TestPassword(t *testing.T) {
    h, err := HashPassword("hunter2", 4)
    require.NoError(t, err)
    assert.True(t, VerifyPassword(h, "hunter2"))
    assert.False(t, VerifyPassword(h, "hunter3"))
    assert.False(t, NeedsRehash(h, 4))
    assert.True(t, NeedsRehash(h, 5))
    assert.False(t, NeedsRehash("not-a-hash", 4))
}

func TestOTP(t *testing.T) {
    re := regexp.MustCompile(`^\d{6}$`)
    for i := 0; i < 50; i++ {
        code, err := NewOTP()
        require.NoError(t, err)
        assert.Regexp(t, re, code)
    }

    stored := HashOTP("123456")
    assert.True(t, OTPMatches(stored, "123456"))
    assert.False(t, OTPMatches(stored, "654321"))
    assert.False(t, OTPMatches("", "123456"))

    now := time.Now()
    assert.False(t, OTPExpired(now.Add(OTPTTL).UnixMilli(), now))
    assert.True(t, OTPExpired(now.Add(-time.Second).UnixMilli(), now))
}
