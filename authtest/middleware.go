package authtest

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"sync"
)

// sessionCookieName matches the cookie-session authentication of the real
// backend.
const sessionCookieName = "sessionid"

type contextKey struct{ name string }

var sessionUserKey = &contextKey{"authtest-user"}

// sessionStore maps opaque cookie values to account ids.
type sessionStore struct {
	mu      sync.Mutex
	byToken map[string]int64
}

func newSessionStore() *sessionStore {
	return &sessionStore{byToken: make(map[string]int64)}
}

func (ss *sessionStore) create(userID int64) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.byToken[token] = userID
	return token, nil
}

func (ss *sessionStore) lookup(token string) (int64, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	userID, ok := ss.byToken[token]
	return userID, ok
}

func (ss *sessionStore) drop(token string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.byToken, token)
}

func (ss *sessionStore) dropAll() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.byToken = make(map[string]int64)
}

func (ss *sessionStore) count() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.byToken)
}

// sessionGuard rejects requests without a live session cookie and stashes
// the resolved account id in the request context.
func (s *Server) sessionGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, msgNotAuthenticated, nil)
			return
		}

		userID, ok := s.sessions.lookup(cookie.Value)
		if !ok {
			s.writeError(w, http.StatusUnauthorized, msgNotAuthenticated, nil)
			return
		}

		ctx := context.WithValue(r.Context(), sessionUserKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionUserID(r *http.Request) (int64, bool) {
	userID, ok := r.Context().Value(sessionUserKey).(int64)
	return userID, ok
}
