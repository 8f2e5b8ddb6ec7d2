package webserver

// Status codes the server emits.
const (
	StatusContinue            = 100
	StatusOK                  = 200
	StatusNotModified         = 304
	StatusTemporaryRedirect   = 307
	StatusBadRequest          = 400
	StatusUnauthorized        = 401
	StatusForbidden           = 403
	StatusNotFound            = 404
	StatusInternalServerError = 500
	StatusNotImplemented      = 501
)

var statusText = map[int]string{
	StatusContinue:            "Continue",
	StatusOK:                  "OK",
	StatusNotModified:         "Not Modified",
	StatusTemporaryRedirect:   "Temporary Redirect",
	StatusBadRequest:          "Bad Request",
	StatusUnauthorized:        "Unauthorized",
	StatusForbidden:           "Forbidden",
	StatusNotFound:            "Not Found",
	StatusInternalServerError: "Internal Server Error",
	StatusNotImplemented:      "Not Implemented",
}

// StatusText returns the reason phrase for code, or "" if the server never
// emits it.
func StatusText(code int) string {
	return statusText[code]
}

// bodyAllowed reports whether a response with this status may carry a body.
func bodyAllowed(code int) bool {
	return code >= 200 && code != StatusNotModified
}
