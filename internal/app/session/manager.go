package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"epguest/internal/app/user"
	"epguest/internal/pkg/auth/jwt"
	"epguest/internal/pkg/errs"
	"epguest/internal/pkg/logx"
	"epguest/internal/pkg/resp"
)

// DefaultCookieName is used when Config.CookieName is empty.
const DefaultCookieName = "epguest_sid"

// Config controls how sessions are bound to browsers.
type Config struct {
	// CookieName is the name of the session cookie.
	CookieName string

	// Secret signs the session cookie.
	Secret string

	// MaxAge is the lifetime of both the cookie and the stored record.
	MaxAge time.Duration

	// Secure marks the cookie HTTPS-only.
	Secure bool
}

// UserLookup resolves a stored username to the current user record.
type UserLookup func(username string) *user.User

// Manager loads the session for each request and installs it in the request context.
type Manager struct {
	store  Store
	cfg    Config
	lookup UserLookup
	logger zerolog.Logger
}

// NewManager builds a Manager. lookup is consulted on every load so that a
// settings reload is reflected in existing sessions.
func NewManager(store Store, cfg Config, lookup UserLookup) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	return &Manager{
		store:  store,
		cfg:    cfg,
		lookup: lookup,
		logger: logx.Component("session"),
	}
}

// Store returns the underlying store.
func (m *Manager) Store() Store {
	return m.store
}

// Middleware attaches a *Session to every request. Requests without a valid
// cookie, or whose session no longer exists, get a fresh session and cookie.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, fresh, err := m.load(r)
		if err != nil {
			resp.RespondError(w, r, errs.Wrap(errs.ErrSessionStoreFailed, err))
			return
		}

		if fresh {
			if err := m.issueCookie(w, sess.ID()); err != nil {
				resp.RespondError(w, r, errs.Wrap(errs.ErrUnknown, err))
				return
			}
		}

		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), sess)))
	})
}

func (m *Manager) load(r *http.Request) (*Session, bool, error) {
	if c, err := r.Cookie(m.cfg.CookieName); err == nil && c.Value != "" {
		sid, err := jwt.ParseSessionID(c.Value, m.cfg.Secret)
		if err != nil {
			m.logger.Debug().Err(err).Msg("ignoring invalid session cookie")
		} else {
			rec, err := m.store.Load(r.Context(), sid)
			switch {
			case err == nil:
				sess := New(sid, m.store, m.cfg.MaxAge)
				if rec.Username != "" && m.lookup != nil {
					sess.SetUser(m.lookup(rec.Username))
				}
				return sess, false, nil
			case errors.Is(err, ErrNotFound):
				m.logger.Debug().Str("session_id", sid).Msg("session expired or destroyed, starting a new one")
			default:
				return nil, false, err
			}
		}
	}

	return New(uuid.NewString(), m.store, m.cfg.MaxAge), true, nil
}

func (m *Manager) issueCookie(w http.ResponseWriter, sid string) error {
	token, err := jwt.SignSessionID(sid, m.cfg.Secret, m.cfg.MaxAge)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.cfg.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
