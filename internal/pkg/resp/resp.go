/*
Package resp provides helpers for writing standardized HTTP responses.

JSON bodies share one envelope (code, message, optional data). Redirects are
written verbatim so that relative targets survive reverse proxies that mount
the server under a path prefix.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"epguest/internal/pkg/errs"
	"epguest/internal/pkg/logx"
)

// JSONResponse is the envelope returned by every JSON endpoint.
type JSONResponse struct {
	// Code is the business status code (0 for success, see errs package otherwise).
	Code int `json:"code"`

	// Message is the client-friendly status description or error message.
	Message string `json:"message"`

	// Data is the optional response payload.
	Data any `json:"data,omitempty"`
}

// RespondJSON sets the Content-Type and writes payload as JSON with the given status.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", httpStatus)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(response)
}

// RespondSuccess sends a 200 OK JSON response wrapping data.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	res := JSONResponse{
		Code:    0,
		Message: "success",
		Data:    data,
	}
	RespondJSON(w, r, http.StatusOK, res)
}

// RespondError sends a JSON response describing customErr with its HTTP status.
// A nil customErr is reported as errs.ErrUnknown.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	if customErr.Status >= http.StatusInternalServerError {
		logx.FromRequest(r).Error().Err(customErr).Int("code", customErr.Code).Msg("request failed")
	}

	res := JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	}
	RespondJSON(w, r, customErr.Status, res)
}

// RespondRedirect writes a 303 See Other with location copied verbatim into the
// Location header. Unlike http.Redirect it does not rewrite relative targets
// into absolute paths.
func RespondRedirect(w http.ResponseWriter, r *http.Request, location string) {
	w.Header().Set("Location", location)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusSeeOther)
}

// RespondHTML writes an HTML document with the given status.
func RespondHTML(w http.ResponseWriter, r *http.Request, httpStatus int, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(httpStatus)
	if _, err := w.Write([]byte(body)); err != nil {
		logx.FromRequest(r).Warn().Err(err).Msg("failed to write HTML response")
	}
}
