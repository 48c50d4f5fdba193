/*
Package errs provides the client's normalized error type and its error code constants.

Every failure a caller can observe, whether it came from client-side validation,
the API server, the network, or an expired session, is reported as a *CustomError
with one of the codes below.
*/
package errs

// 1xxx: Client-side validation errors. Raised before any network call.
const (
	// ErrInvalidParams indicates that one or more input fields failed validation.
	ErrInvalidParams = 1001

	// ErrUnsupportedMediaType indicates that a view request used an unsupported Content-Type.
	ErrUnsupportedMediaType = 1002

	// ErrInvalidJSONFormat indicates that a view request body is not valid JSON.
	ErrInvalidJSONFormat = 1003

	// ErrExtraContentInBody indicates trailing data after the JSON document in a view request.
	ErrExtraContentInBody = 1004

	// ErrFormParseFailed indicates that a multipart view request could not be parsed.
	ErrFormParseFailed = 1005

	// ErrRequestEntityTooLarge indicates that a view request body exceeded the size limit.
	ErrRequestEntityTooLarge = 1006

	// ErrRateLimitExceeded indicates that mutations are being issued too quickly.
	ErrRateLimitExceeded = 1007

	// ErrFileTypeInvalid indicates that a media file does not match the requested media kind.
	ErrFileTypeInvalid = 1101

	// ErrFileSizeTooLarge indicates that a media file exceeds the size limit of its kind.
	ErrFileSizeTooLarge = 1102
)

// 2xxx: Server-rejected errors. The API answered with a non-2xx status.
const (
	// ErrRejected is a generic server rejection; the message comes from the response envelope.
	ErrRejected = 2001

	// ErrLoginFailed indicates that the server rejected the credentials.
	ErrLoginFailed = 2101

	// ErrSignupFailed indicates that the server rejected the registration.
	ErrSignupFailed = 2102

	// ErrProfileUpdateFailed indicates that the server rejected a profile update.
	ErrProfileUpdateFailed = 2103

	// ErrProfileFetchFailed indicates that the profile fetch failed for a reason other than 401.
	ErrProfileFetchFailed = 2104

	// ErrNotFound indicates that the requested resource does not exist.
	ErrNotFound = 2201

	// ErrDraftConflict indicates that the post being edited already has a local draft.
	ErrDraftConflict = 2202

	// ErrUploadFailed indicates that a media upload was rejected.
	ErrUploadFailed = 2301

	// ErrExportDisabled indicates that no export bucket is configured.
	ErrExportDisabled = 2401
)

// 3xxx: Session and authorization errors.
const (
	// ErrUnauthorized indicates that the server answered 401; the session is cleared.
	ErrUnauthorized = 3001

	// ErrLoginRequired indicates that the action needs a signed-in actor; nothing was sent.
	ErrLoginRequired = 3002

	// ErrAlreadyLoggedIn indicates a public-only operation attempted while signed in.
	ErrAlreadyLoggedIn = 3003
)

// 4xxx: Connectivity errors. No response arrived; retryable.
const (
	// ErrNetwork indicates a transport-level failure (DNS, refused connection, timeout).
	ErrNetwork = 4001

	// ErrRequestCanceled indicates that the caller canceled the request's context.
	ErrRequestCanceled = 4002

	// ErrMalformedResponse indicates a 2xx response whose body could not be decoded.
	ErrMalformedResponse = 4003
)

// 5xxx: Internal errors.
const (
	// ErrUnknown represents an unclassified client failure.
	ErrUnknown = 5000

	// ErrStorageFailed indicates that a local storage backend (tokens, drafts, export) failed.
	ErrStorageFailed = 5001
)
