package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestParseToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()

	claims, err := ParseToken(signToken(t, testSecret, jwt.MapClaims{
		"user_id": "u-1", "email": "staff@example.com", "role": "driver", "exp": exp,
	}), testSecret)
	require.NoError(t, err)
	assert.Equal(t, UserClaims{UserID: "u-1", Email: "staff@example.com", Role: "driver"}, claims)

	claims, err = ParseToken(signToken(t, testSecret, jwt.MapClaims{"sub": "u-2", "exp": exp}), testSecret)
	require.NoError(t, err)
	assert.Equal(t, "u-2", claims.UserID)
}

func TestParseToken_Rejects(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()

	_, err := ParseToken(signToken(t, "other", jwt.MapClaims{"user_id": "u", "exp": exp}), testSecret)
	assert.Error(t, err, "wrong secret")

	_, err = ParseToken(signToken(t, testSecret, jwt.MapClaims{"user_id": "u", "exp": time.Now().Add(-time.Hour).Unix()}), testSecret)
	assert.Error(t, err, "expired")

	_, err = ParseToken(signToken(t, testSecret, jwt.MapClaims{"email": "x", "exp": exp}), testSecret)
	assert.Error(t, err, "no user id")

	_, err = ParseToken("whatever", "")
	assert.Error(t, err, "no secret")
}

func claimsEcho(w http.ResponseWriter, r *http.Request) {
	if claims, ok := GetUserFromContext(r); ok {
		w.Write([]byte(claims.UserID))
	}
}

func TestOptionalAuth(t *testing.T) {
	handler := OptionalAuth(testSecret)(http.HandlerFunc(claimsEcho))
	token := signToken(t, testSecret, jwt.MapClaims{"user_id": "u-1", "exp": time.Now().Add(time.Hour).Unix()})

	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"no header", "", ""},
		{"valid", "Bearer " + token, "u-1"},
		{"malformed", "Token " + token, ""},
		{"invalid", "Bearer nope", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Body.String())
		})
	}
}

func TestAuth_RequiresToken(t *testing.T) {
	handler := Auth(testSecret)(http.HandlerFunc(claimsEcho))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	token := signToken(t, testSecret, jwt.MapClaims{"user_id": "u-1", "role": "driver", "exp": time.Now().Add(time.Hour).Unix()})

	for role, want := range map[string]int{"driver": http.StatusOK, "admin": http.StatusForbidden} {
		handler := Auth(testSecret)(RequireRole(role)(http.HandlerFunc(claimsEcho)))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, role)
	}
}

func serveDevice(req *http.Request) (*httptest.ResponseRecorder, DeviceIdentity) {
	var seen DeviceIdentity
	handler := Device(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetDeviceFromContext(r)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen
}

func TestDevice_MintsCookies(t *testing.T) {
	rec, identity := serveDevice(httptest.NewRequest(http.MethodGet, "/", nil))

	_, err := uuid.Parse(identity.DeviceID)
	assert.NoError(t, err)
	_, err = uuid.Parse(identity.SessionID)
	assert.NoError(t, err)

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Contains(t, cookies, DeviceCookie)
	require.Contains(t, cookies, SessionCookie)
	assert.Equal(t, identity.DeviceID, cookies[DeviceCookie].Value)
	assert.Positive(t, cookies[DeviceCookie].MaxAge)
	assert.Zero(t, cookies[SessionCookie].MaxAge)

	assert.Equal(t, "device:"+identity.DeviceID, identity.DeviceScope())
	assert.Equal(t, "session:"+identity.DeviceID+":"+identity.SessionID, identity.SessionScope())
	assert.Equal(t, "session:"+identity.DeviceID+":", identity.SessionPrefix())
}

func TestDevice_ReusesCookies(t *testing.T) {
	deviceID := uuid.NewString()
	sessionID := uuid.NewString()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookie, Value: deviceID})
	req.AddCookie(&http.Cookie{Name: SessionCookie, Value: sessionID})

	rec, identity := serveDevice(req)
	assert.Equal(t, DeviceIdentity{DeviceID: deviceID, SessionID: sessionID}, identity)
	assert.Empty(t, rec.Result().Cookies())
}

func TestDevice_ReplacesForgedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DeviceCookie, Value: "../../etc"})

	_, identity := serveDevice(req)
	assert.NotEqual(t, "../../etc", identity.DeviceID)
	_, err := uuid.Parse(identity.DeviceID)
	assert.NoError(t, err)
}
