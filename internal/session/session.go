// Package session tracks anonymous browser sessions. There is no login:
// a session exists so reports can be grouped per visitor.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	TTL    = 30 * 24 * time.Hour
	Cookie = "session_id"
)

type ctxKey struct{}

// Store wraps Redis for anonymous session management.
type Store struct {
	rdb *redis.Client
}

func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

// Create stores a new session and returns its id. The value records where
// the session came from, which is all we know about an anonymous visitor.
func (s *Store) Create(ctx context.Context, remoteAddr, userAgent string) (string, error) {
	sid := uuid.New().String()
	err := s.rdb.Set(ctx, "session:"+sid, remoteAddr+"|"+userAgent, TTL).Err()
	return sid, err
}

// Exists reports whether the session id is known and unexpired.
func (s *Store) Exists(ctx context.Context, sid string) (bool, error) {
	_, err := s.rdb.Get(ctx, "session:"+sid).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Touch extends the session TTL.
func (s *Store) Touch(ctx context.Context, sid string) error {
	return s.rdb.Expire(ctx, "session:"+sid, TTL).Err()
}

// FromContext returns the session id injected by Ensure, or "".
func FromContext(ctx context.Context) string {
	sid, _ := ctx.Value(ctxKey{}).(string)
	return sid
}

// Ensure is middleware that guarantees every request carries a valid
// session, creating one and setting the cookie when needed.
func Ensure(store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sid string
			if cookie, err := r.Cookie(Cookie); err == nil {
				if ok, _ := store.Exists(r.Context(), cookie.Value); ok {
					sid = cookie.Value
					store.Touch(r.Context(), sid)
				}
			}

			if sid == "" {
				created, err := store.Create(r.Context(), r.RemoteAddr, r.UserAgent())
				if err != nil {
					http.Error(w, `{"error":"session creation failed"}`, http.StatusInternalServerError)
					return
				}
				sid = created
				http.SetCookie(w, &http.Cookie{
					Name:     Cookie,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
					MaxAge:   int(TTL / time.Second),
				})
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, sid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
