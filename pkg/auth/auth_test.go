package auth

import (
	"testing"
	"time"

	"github.com/civicgrid/resident-portal/pkg/config"
	"github.com/civicgrid/resident-portal/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig(minutes int) config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "resident-portal",
		ExpirationMinutes: minutes,
	}
}

func signRaw(t *testing.T, cfg config.JWTConfig, claims AccessTokenClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)
	return token
}

func TestMintAndVerify(t *testing.T) {
	cfg := testJWTConfig(30)
	now := time.Now().UTC()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, now, AccessTokenPayload{UserID: userID, Role: enums.UserRoleStaff, JTI: "session-1"})
	require.NoError(t, err)

	v, err := NewVerifier(cfg)
	require.NoError(t, err)
	claims, err := v.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, enums.UserRoleStaff, claims.Role)
	assert.Equal(t, "session-1", claims.ID)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
	assert.WithinDuration(t, now.Add(30*time.Minute), claims.ExpiresAt.Time, time.Second)
}

func TestMintGeneratesSessionID(t *testing.T) {
	cfg := testJWTConfig(5)
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleResident})
	require.NoError(t, err)
	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	_, err = uuid.Parse(claims.ID)
	assert.NoError(t, err)
}

func TestVerifyRejections(t *testing.T) {
	cfg := testJWTConfig(15)
	now := time.Now()
	valid := AccessTokenClaims{
		UserID: uuid.New(),
		Role:   enums.UserRoleResident,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}

	expired := valid
	expired.RegisteredClaims.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
	noExpiry := valid
	noExpiry.RegisteredClaims.ExpiresAt = nil
	wrongIssuer := valid
	wrongIssuer.RegisteredClaims.Issuer = "someone-else"
	unknownRole := valid
	unknownRole.Role = enums.UserRole("contractor")
	noUser := valid
	noUser.UserID = uuid.Nil

	tests := []struct {
		name  string
		token string
		is    error
	}{
		{"bad signature", signRaw(t, cfg, valid) + "x", nil},
		{"expired", signRaw(t, cfg, expired), jwt.ErrTokenExpired},
		{"no expiry", signRaw(t, cfg, noExpiry), jwt.ErrTokenRequiredClaimMissing},
		{"wrong issuer", signRaw(t, cfg, wrongIssuer), jwt.ErrTokenInvalidIssuer},
		{"unknown role", signRaw(t, cfg, unknownRole), ErrUnknownRole},
		{"missing user", signRaw(t, cfg, noUser), ErrMissingSubject},
	}
	v, err := NewVerifier(cfg)
	require.NoError(t, err)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestVerifyRejectsOtherAlgorithms(t *testing.T) {
	cfg := testJWTConfig(5)
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, AccessTokenClaims{
		UserID: uuid.New(),
		Role:   enums.UserRoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}).SignedString([]byte(cfg.Secret))
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestMintValidatesInput(t *testing.T) {
	ok := AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleAdmin}

	_, err := MintAccessToken(testJWTConfig(5), time.Now(), AccessTokenPayload{UserID: uuid.New()})
	assert.Error(t, err, "empty role")
	_, err = MintAccessToken(testJWTConfig(5), time.Now(), AccessTokenPayload{Role: enums.UserRoleAdmin})
	assert.Error(t, err, "nil user")
	_, err = MintAccessToken(testJWTConfig(0), time.Now(), ok)
	assert.Error(t, err, "no expiry")
	_, err = MintAccessToken(config.JWTConfig{Issuer: "x", ExpirationMinutes: 5}, time.Now(), ok)
	assert.ErrorIs(t, err, ErrMissingSecret)
	_, err = NewVerifier(config.JWTConfig{})
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestBearerToken(t *testing.T) {
	tests := map[string]struct {
		header string
		want   string
		ok     bool
	}{
		"scheme":       {"Bearer abc", "abc", true},
		"lower scheme": {"bearer  abc ", "abc", true},
		"bare token":   {"abc", "abc", true},
		"empty":        {"", "", false},
		"scheme only":  {"Bearer ", "", false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := BearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
