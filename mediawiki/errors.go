package mediawiki

import "fmt"

// ErrorKind classifies failures surfaced by the call gateway so callers can
// switch on the kind instead of string-matching remote error codes.
type ErrorKind int

const (
	// KindAPI is a generic remote application error; the remote's code and
	// message are carried verbatim.
	KindAPI ErrorKind = iota
	// KindTransport is a network or connection failure, normalized into the
	// same error channel as application errors.
	KindTransport
	// KindDecode means the response body was not valid JSON.
	KindDecode
	// KindRetryExhausted means the wiki kept reporting replica lag past the
	// configured retry budget.
	KindRetryExhausted
	// KindPermission means the remote refused the operation for lack of
	// rights, or a required action token could not be obtained.
	KindPermission
	// KindEditConflict covers edit conflicts and delete/recreate conflicts.
	KindEditConflict
	// KindFilter means a spam or abuse filter rejected the write.
	KindFilter
	// KindEdit is any other error reported while writing to the wiki.
	KindEdit
)

func (k ErrorKind) String() string {
	switch k {
	case KindAPI:
		return "api"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindRetryExhausted:
		return "retry-exhausted"
	case KindPermission:
		return "permission"
	case KindEditConflict:
		return "edit-conflict"
	case KindFilter:
		return "filter"
	case KindEdit:
		return "edit"
	}
	return "unknown"
}

// internalErrorCode is the error code used for failures synthesized on the
// client side (transport and decode problems), mirroring the code the remote
// would put in its error envelope.
const internalErrorCode = "internal"

// APIError is any failure surfaced by a gateway call: remote application
// errors, transport failures, decode failures, and exhausted lag retries all
// arrive through this one type.
type APIError struct {
	Kind    ErrorKind
	Code    string // remote error code, or "internal" for client-side failures
	Message string
	// Attempts is the number of requests sent before giving up. Only set
	// for KindRetryExhausted.
	Attempts int
	// Response is the decoded body that carried the error envelope, when
	// one was received.
	Response map[string]any

	cause error
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("mediawiki: [%s] %s", e.Code, e.Message)
	}
	return "mediawiki: " + e.Message
}

func (e *APIError) Unwrap() error { return e.cause }

// classifyRemote maps a remote error code to an ErrorKind. Unrecognized
// codes fall through to KindAPI with the remote's message kept verbatim.
func classifyRemote(code string) ErrorKind {
	switch code {
	case "permissiondenied", "protectedpage", "protectednamespace",
		"protectedtitle", "cascadeprotected", "noedit", "noedit-anon",
		"writeapidenied", "readapidenied", "blocked", "autoblocked",
		"cantmove", "cantmove-anon", "permdenied-undelete":
		return KindPermission
	case "editconflict", "pagedeleted", "articleexists":
		return KindEditConflict
	case "spamdetected", "spamblacklist", "abusefilter-disallowed",
		"abusefilter-warning", "filtered":
		return KindFilter
	case "contenttoobig", "emptypage", "emptynewsection", "missingtext",
		"badmd5":
		return KindEdit
	}
	return KindAPI
}

// NotFoundError reports that a successful load classified the target as
// missing on the wiki.
type NotFoundError struct {
	Entity   string // "page", "category", "file", "user", "revision"
	Identity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("mediawiki: %s %q does not exist", e.Entity, e.Identity)
}

// InvalidError reports that the remote rejected the identity itself, e.g. a
// syntactically invalid page title.
type InvalidError struct {
	Entity   string
	Identity string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("mediawiki: %s %q is invalid", e.Entity, e.Identity)
}

// UsageError reports local misuse of the client API. It is raised before
// any request is made and is never retried.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string { return "mediawiki: " + e.Message }

func usageErrorf(format string, args ...any) *UsageError {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}
