package auth

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/shindakun/signin/internal/models"
)

const (
	sessionName       = "signin-session"
	sessionKeySubject = "subject"
	sessionKeyState   = "oauth_state"
	flashKey          = "flash"
)

// Flash is the state carried from a failed submission to the next render of
// the login page. It survives exactly one read.
type Flash struct {
	Errors models.ValidationErrors `json:"errors,omitempty"`
	Old    models.OldInput         `json:"old,omitempty"`
	Status string                  `json:"status,omitempty"`
}

// SessionManager handles session operations
type SessionManager struct {
	store *sessions.CookieStore
}

// InitSessions creates a new session manager with HTTP-only cookies
func InitSessions(secret string, maxAge int, secure bool, sameSite http.SameSite) *SessionManager {
	store := sessions.NewCookieStore([]byte(secret))

	// Configure session options
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true, // Prevent JavaScript access
		Secure:   secure,
		SameSite: sameSite,
	}

	return &SessionManager{store: store}
}

// session returns the cookie session, starting a fresh one when the cookie
// cannot be decoded (e.g. it was signed with a rotated secret).
func (sm *SessionManager) session(r *http.Request) *sessions.Session {
	session, err := sm.store.Get(r, sessionName)
	if err != nil || session == nil {
		session, _ = sm.store.New(r, sessionName)
	}
	return session
}

// PutFlash stores f for the next request. Passwords must never be part of f.Old.
func (sm *SessionManager) PutFlash(w http.ResponseWriter, r *http.Request, f Flash) error {
	session := sm.session(r)

	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to encode flash: %w", err)
	}
	session.Values[flashKey] = string(payload)
	if session.Options == nil || session.Options.MaxAge < 0 {
		// Cleared earlier in this request; the flash needs a live cookie.
		opts := *sm.store.Options
		session.Options = &opts
	}

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save cookie session: %w", err)
	}
	return nil
}

// PopFlash returns and clears the pending flash. A request without one
// yields the zero Flash.
func (sm *SessionManager) PopFlash(w http.ResponseWriter, r *http.Request) (Flash, error) {
	var f Flash

	session, err := sm.store.Get(r, sessionName)
	if err != nil {
		// Unreadable cookie: nothing to show.
		return f, nil
	}

	raw, ok := session.Values[flashKey].(string)
	if !ok {
		return f, nil
	}
	delete(session.Values, flashKey)
	if err := session.Save(r, w); err != nil {
		return f, fmt.Errorf("failed to save cookie session: %w", err)
	}

	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return Flash{}, fmt.Errorf("failed to decode flash: %w", err)
	}
	return f, nil
}

// SetSubject records the signed-in principal on the session cookie.
func (sm *SessionManager) SetSubject(w http.ResponseWriter, r *http.Request, subject string, remember bool) error {
	session := sm.session(r)

	session.Values[sessionKeySubject] = subject
	if !remember {
		// Browser-session cookie
		opts := *sm.store.Options
		opts.MaxAge = 0
		session.Options = &opts
	}

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save cookie session: %w", err)
	}
	return nil
}

// Subject returns the signed-in principal, or "" when there is none.
func (sm *SessionManager) Subject(r *http.Request) string {
	session, err := sm.store.Get(r, sessionName)
	if err != nil {
		return ""
	}
	subject, _ := session.Values[sessionKeySubject].(string)
	return subject
}

// ClearSession drops everything stored on the session cookie (logout)
func (sm *SessionManager) ClearSession(w http.ResponseWriter, r *http.Request) error {
	session, err := sm.store.Get(r, sessionName)
	if err != nil {
		// If we can't get the session, it might already be cleared
		return nil
	}

	session.Values = make(map[interface{}]interface{})
	opts := *sm.store.Options
	opts.MaxAge = -1
	session.Options = &opts

	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear cookie session: %w", err)
	}
	return nil
}

// SetOAuthState remembers the state parameter of a pending social login.
func (sm *SessionManager) SetOAuthState(w http.ResponseWriter, r *http.Request, provider models.Provider, state string) error {
	session := sm.session(r)

	session.Values[sessionKeyState] = string(provider) + ":" + state
	if err := session.Save(r, w); err != nil {
		return fmt.Errorf("failed to save cookie session: %w", err)
	}
	return nil
}

// OAuthState returns the state recorded by SetOAuthState, if any.
func (sm *SessionManager) OAuthState(r *http.Request) string {
	session, err := sm.store.Get(r, sessionName)
	if err != nil {
		return ""
	}
	state, _ := session.Values[sessionKeyState].(string)
	return state
}
