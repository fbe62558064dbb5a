package hooks

import (
	"fmt"
	"net/http"
	"strings"

	"epguest/internal/app/session"
	"epguest/internal/pkg/errs"
	"epguest/internal/pkg/logx"
	"epguest/internal/pkg/resp"
)

// AdminPath is the prefix of pages reserved for administrators.
const AdminPath = "/admin"

// IsAdminPath reports whether path is AdminPath or below it.
func IsAdminPath(path string) bool {
	path = strings.ToLower(path)
	return path == AdminPath || strings.HasPrefix(path, AdminPath+"/")
}

// CheckAccess returns the middleware that guards every route:
//
//  1. Pre-authorization: Accept serves the request, Deny refuses it.
//  2. Without require_authentication, non-admin requests are served.
//  3. If the session has no user, the authenticators run in priority order.
//     When none accepts, the response is 401 with a Basic challenge.
//     When one accepts, the session is saved.
//  4. Admin pages require a user with IsAdmin.
//
// onDenied writes the 403 response; nil falls back to a JSON error.
func (reg *Registry) CheckAccess(onDenied http.HandlerFunc) func(http.Handler) http.Handler {
	if onDenied == nil {
		onDenied = func(w http.ResponseWriter, r *http.Request) {
			resp.RespondError(w, r, errs.NewError(errs.ErrForbidden))
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.FromContext(r.Context())
			if sess == nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrSessionMissing))
				return
			}

			switch reg.preAuthorize(r) {
			case Accept:
				reg.metrics.AccessResult("preauthorized")
				next.ServeHTTP(w, r)
				return
			case Deny:
				reg.metrics.AccessResult("forbidden")
				onDenied(w, r)
				return
			}

			settings := reg.Settings()
			requireAdmin := IsAdminPath(r.URL.Path)
			if !settings.RequireAuthentication && !requireAdmin {
				reg.metrics.AccessResult("granted")
				next.ServeHTTP(w, r)
				return
			}

			if sess.User() == nil {
				if reg.authenticate(r, sess) != Accept || sess.User() == nil {
					reg.metrics.AccessResult("challenged")
					challenge(w, r, settings.Title)
					return
				}
				if err := sess.Save(r.Context()); err != nil {
					resp.RespondError(w, r, errs.Wrap(errs.ErrSessionStoreFailed, err))
					return
				}
			}
			logx.SetRequestField(r, "user", sess.Username())

			if requireAdmin && !sess.User().IsAdmin {
				reg.metrics.AccessResult("forbidden")
				onDenied(w, r)
				return
			}

			reg.metrics.AccessResult("granted")
			next.ServeHTTP(w, r)
		})
	}
}

func challenge(w http.ResponseWriter, r *http.Request, realm string) {
	if realm == "" {
		realm = "Protected Area"
	}
	realm = strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(realm)
	w.Header().Set("WWW-Authenticate", fmt.Sprintf(`Basic realm="%s"`, realm))
	resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
}
