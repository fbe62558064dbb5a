/*
Package handler provides the HTTP handlers and routing setup for the pad server.

This file contains the page handlers.
*/
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/flosch/pongo2/v6"
	"github.com/go-chi/chi/v5"

	"epguest/internal/app/pad"
	"epguest/internal/app/session"
	"epguest/internal/guest"
	"epguest/internal/pkg/errs"
	"epguest/internal/pkg/logx"
	"epguest/internal/pkg/randx"
	"epguest/internal/pkg/resp"
)

// HandleHealth reports that the server is up.
func HandleHealth(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, map[string]any{
			"status":      "ok",
			"service":     deps.Registry.Settings().Title,
			"loaded_pads": deps.Pads.Len(),
		})
	}
}

// HandleIndex renders the landing page.
func HandleIndex(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		title := deps.Registry.Settings().Title

		body, err := indexTpl.Execute(pongo2.Context{"title": title})
		if err != nil {
			resp.RespondError(w, r, errs.Wrap(errs.ErrUnknown, err))
			return
		}
		renderPage(w, r, http.StatusOK, title, body)
	}
}

// HandleNewPad redirects to a pad with a random ID.
func HandleNewPad(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		padID, err := randx.PadID()
		if err != nil {
			resp.RespondError(w, r, errs.Wrap(errs.ErrUnknown, err))
			return
		}
		resp.RespondRedirect(w, r, "p/"+padID)
	}
}

// HandlePad renders the editor page of a pad. The userlist block goes through
// the block hooks, so plugins can add controls next to the name field.
func HandlePad(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		padID := chi.URLParam(r, "padID")
		if !randx.IsValidPadID(padID) {
			resp.RespondError(w, r, errs.NewError(errs.ErrPadNotFound))
			return
		}

		account := pad.Identity(session.FromContext(r.Context()).User())

		userlist, err := renderBlock(deps.Registry, r, guest.BlockUserlist, userlistTpl, pongo2.Context{
			"user_name":   account.Name(),
			"name_locked": !account.DisplayNameChangeable,
		})
		if err != nil {
			resp.RespondError(w, r, errs.Wrap(errs.ErrUnknown, err))
			return
		}

		padIDJSON, err := json.Marshal(padID)
		if err != nil {
			resp.RespondError(w, r, errs.Wrap(errs.ErrUnknown, err))
			return
		}

		body, err := padTpl.Execute(pongo2.Context{
			"userlist":    userlist,
			"read_only":   account.ReadOnly,
			"pad_id_json": string(padIDJSON),
		})
		if err != nil {
			resp.RespondError(w, r, errs.Wrap(errs.ErrUnknown, err))
			return
		}
		renderPage(w, r, http.StatusOK, padID+" | "+deps.Registry.Settings().Title, body)
	}
}

// HandleAdmin renders the administration overview. Access is restricted to
// admins by the access middleware.
func HandleAdmin(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		settings := deps.Registry.Settings()

		plugins := make([]string, 0)
		for _, p := range deps.Registry.Plugins() {
			plugins = append(plugins, p.Name())
		}

		body, err := adminTpl.Execute(pongo2.Context{
			"title":          settings.Title,
			"username":       session.FromContext(r.Context()).Username(),
			"plugins":        plugins,
			"authenticators": deps.Registry.AuthenticatorNames(),
			"users":          settings.Users.Usernames(),
			"loaded_pads":    deps.Pads.Len(),
		})
		if err != nil {
			resp.RespondError(w, r, errs.Wrap(errs.ErrUnknown, err))
			return
		}
		renderPage(w, r, http.StatusOK, "Admin | "+settings.Title, body)
	}
}

// HandlePermissionDenied renders the 403 page, passing it through the
// permissionDenied block hooks.
func HandlePermissionDenied(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := renderBlock(deps.Registry, r, guest.BlockPermissionDenied, permissionDeniedTpl, pongo2.Context{})
		if err != nil {
			logx.FromRequest(r).Error().Err(err).Msg("failed to render permission denied page")
			resp.RespondError(w, r, errs.NewError(errs.ErrForbidden))
			return
		}
		renderPage(w, r, http.StatusForbidden, "Permission denied | "+deps.Registry.Settings().Title, body)
	}
}
