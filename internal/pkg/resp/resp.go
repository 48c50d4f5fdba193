/*
Package resp provides helper functions for sending the view server's JSON responses.

Every response uses one envelope: a success flag, an error code and message,
optional data, optional field-scoped validation messages, and an optional redirect
target the front-end should navigate to.
*/
package resp

import (
	"encoding/json"
	"net/http"

	"blogclient/internal/pkg/errs"
	"blogclient/internal/pkg/logx"
)

// JSONResponse is the envelope returned by every view.
type JSONResponse struct {
	// Success mirrors the {success, error} result objects of the session store.
	Success bool `json:"success"`

	// Code is 0 on success, otherwise an errs code.
	Code int `json:"code"`

	// Message is the client-facing status or error message.
	Message string `json:"message"`

	// Kind is the error taxonomy bucket ("validation", "rejected", ...).
	Kind string `json:"kind,omitempty"`

	// Data is the optional view model.
	Data any `json:"data,omitempty"`

	// Fields carries field-scoped validation messages.
	Fields map[string]string `json:"fields,omitempty"`

	// Redirect tells the front-end where to navigate next.
	Redirect string `json:"redirect,omitempty"`
}

// RespondJSON sets the headers and writes payload with the given status.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(
			err,
			"Error encoding JSON response",
			"http_status", httpStatus,
		)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	w.Write(response)
}

// RespondSuccess sends a 200 OK envelope carrying data.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, JSONResponse{
		Success: true,
		Message: "success",
		Data:    data,
	})
}

// RespondRedirect sends a 200 OK success envelope that asks the front-end to navigate.
func RespondRedirect(w http.ResponseWriter, r *http.Request, location string, message string, data any) {
	if message == "" {
		message = "success"
	}

	RespondJSON(w, r, http.StatusOK, JSONResponse{
		Success:  true,
		Message:  message,
		Data:     data,
		Redirect: location,
	})
}

// RespondError sends the envelope of a *errs.CustomError with its status.
func RespondError(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError) {
	RespondErrorData(w, r, customErr, nil)
}

// RespondErrorData is RespondError with a view model attached, e.g. the
// rolled-back state of an optimistic toggle.
func RespondErrorData(w http.ResponseWriter, r *http.Request, customErr *errs.CustomError, data any) {
	if customErr == nil {
		customErr = errs.NewError(errs.ErrUnknown)
	}

	status := customErr.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	RespondJSON(w, r, status, JSONResponse{
		Success:  false,
		Code:     customErr.Code,
		Message:  customErr.Message,
		Kind:     customErr.Kind.String(),
		Data:     data,
		Fields:   customErr.Fields,
		Redirect: customErr.Redirect,
	})
}
