package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	// DeviceCookie identifies a browser across sessions (localStorage scope)
	DeviceCookie = "binbird-device"
	// SessionCookie identifies one browser session (sessionStorage scope)
	SessionCookie = "binbird-session"

	deviceCookieMaxAge = 365 * 24 * 60 * 60
)

const deviceContextKey contextKey = "device"

// DeviceIdentity is who the run state of a request belongs to
type DeviceIdentity struct {
	DeviceID  string
	SessionID string
}

// DeviceScope is the storage scope of the durable backend
func (d DeviceIdentity) DeviceScope() string { return "device:" + d.DeviceID }

// SessionScope is the storage scope of the session backend. It is nested
// under the device so all sessions of a device can be dropped together.
func (d DeviceIdentity) SessionScope() string { return d.SessionPrefix() + d.SessionID }

// SessionPrefix is the scope prefix shared by every session of the device
func (d DeviceIdentity) SessionPrefix() string { return "session:" + d.DeviceID + ":" }

// Device reads or mints the device and session cookies and puts the
// identity on the request context
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := DeviceIdentity{
			DeviceID:  cookieID(r, DeviceCookie),
			SessionID: cookieID(r, SessionCookie),
		}

		if identity.DeviceID == "" {
			identity.DeviceID = uuid.New().String()
			http.SetCookie(w, &http.Cookie{
				Name:     DeviceCookie,
				Value:    identity.DeviceID,
				Path:     "/",
				MaxAge:   deviceCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		if identity.SessionID == "" {
			identity.SessionID = uuid.New().String()
			// No MaxAge: the browser drops it with the session
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    identity.SessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), deviceContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetDeviceFromContext extracts the device identity from the request context
func GetDeviceFromContext(r *http.Request) (DeviceIdentity, bool) {
	identity, ok := r.Context().Value(deviceContextKey).(DeviceIdentity)
	return identity, ok
}

func cookieID(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return ""
	}
	return c.Value
}
