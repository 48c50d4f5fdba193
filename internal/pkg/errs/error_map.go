/*
Package errs provides the client's normalized error type and its error code constants.

This file maps each code to its default message, kind and the HTTP status the
view server answers with.
*/
package errs

import "net/http"

var errorMap = map[int]CustomError{
	// 1xxx: Validation
	ErrInvalidParams:         {Code: ErrInvalidParams, Kind: KindValidation, Message: "Please fix the highlighted fields.", Status: http.StatusUnprocessableEntity},
	ErrUnsupportedMediaType:  {Code: ErrUnsupportedMediaType, Kind: KindValidation, Message: "Unsupported request format.", Status: http.StatusUnsupportedMediaType},
	ErrInvalidJSONFormat:     {Code: ErrInvalidJSONFormat, Kind: KindValidation, Message: "Unsupported request format.", Status: http.StatusBadRequest},
	ErrExtraContentInBody:    {Code: ErrExtraContentInBody, Kind: KindValidation, Message: "Request contains unexpected data.", Status: http.StatusBadRequest},
	ErrFormParseFailed:       {Code: ErrFormParseFailed, Kind: KindValidation, Message: "Failed to process uploaded data.", Status: http.StatusBadRequest},
	ErrRequestEntityTooLarge: {Code: ErrRequestEntityTooLarge, Kind: KindValidation, Message: "Request size is too large.", Status: http.StatusRequestEntityTooLarge},
	ErrRateLimitExceeded:     {Code: ErrRateLimitExceeded, Kind: KindValidation, Message: "Too many requests. Please try again later.", Status: http.StatusTooManyRequests},
	ErrFileTypeInvalid:       {Code: ErrFileTypeInvalid, Kind: KindValidation, Message: "Only %s files are allowed", Status: http.StatusUnprocessableEntity},
	ErrFileSizeTooLarge:      {Code: ErrFileSizeTooLarge, Kind: KindValidation, Message: "File size must be less than %dMB", Status: http.StatusUnprocessableEntity},

	// 2xxx: Server-rejected
	ErrRejected:            {Code: ErrRejected, Kind: KindRejected, Message: "Request failed", Status: http.StatusBadRequest},
	ErrLoginFailed:         {Code: ErrLoginFailed, Kind: KindRejected, Message: "Login failed", Status: http.StatusBadRequest},
	ErrSignupFailed:        {Code: ErrSignupFailed, Kind: KindRejected, Message: "Signup failed", Status: http.StatusBadRequest},
	ErrProfileUpdateFailed: {Code: ErrProfileUpdateFailed, Kind: KindRejected, Message: "Profile update failed", Status: http.StatusBadRequest},
	ErrProfileFetchFailed:  {Code: ErrProfileFetchFailed, Kind: KindRejected, Message: "Failed to fetch profile", Status: http.StatusBadGateway},
	ErrNotFound:            {Code: ErrNotFound, Kind: KindRejected, Message: "Not found", Status: http.StatusNotFound},
	ErrDraftConflict:       {Code: ErrDraftConflict, Kind: KindRejected, Message: "This post already has a draft", Status: http.StatusConflict},
	ErrUploadFailed:        {Code: ErrUploadFailed, Kind: KindRejected, Message: "Upload failed", Status: http.StatusBadRequest},
	ErrExportDisabled:      {Code: ErrExportDisabled, Kind: KindRejected, Message: "Export is not configured", Status: http.StatusNotImplemented},

	// 3xxx: Session
	ErrUnauthorized:    {Code: ErrUnauthorized, Kind: KindUnauthorized, Message: "Your session has expired. Please sign in again.", Status: http.StatusUnauthorized, Redirect: "/login"},
	ErrLoginRequired:   {Code: ErrLoginRequired, Kind: KindUnauthorized, Message: "Please sign in to continue.", Status: http.StatusUnauthorized, Redirect: "/login"},
	ErrAlreadyLoggedIn: {Code: ErrAlreadyLoggedIn, Kind: KindValidation, Message: "You are already signed in.", Status: http.StatusConflict, Redirect: "/"},

	// 4xxx: Connectivity
	ErrNetwork:           {Code: ErrNetwork, Kind: KindConnectivity, Message: "Network error. Please check your connection.", Status: http.StatusBadGateway},
	ErrRequestCanceled:   {Code: ErrRequestCanceled, Kind: KindCanceled, Message: "Request canceled.", Status: 499},
	ErrMalformedResponse: {Code: ErrMalformedResponse, Kind: KindConnectivity, Message: "Network error. Please try again.", Status: http.StatusBadGateway},

	// 5xxx: Internal
	ErrUnknown:        {Code: ErrUnknown, Kind: KindConnectivity, Message: "Network error. Please try again.", Status: http.StatusInternalServerError},
	ErrStorageFailed:  {Code: ErrStorageFailed, Kind: KindConnectivity, Message: "Local storage failed. Please try again.", Status: http.StatusInternalServerError},
}
