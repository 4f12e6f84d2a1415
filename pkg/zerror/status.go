package zerror

// Status is the transport-agnostic class of a ZError.
type Status uint8

const (
	StatusUnknown Status = iota
	StatusUnauthorized
	StatusForbidden
	StatusNotFound
	StatusUnprocessableEntity
	StatusConflict
	StatusTooManyRequests
	StatusBadRequest
	StatusValidationFailed
	StatusInternalServerError
	StatusTimeout
	StatusNotImplemented
	StatusBadGateway
	StatusServiceUnavailable
)

var statusNames = [...]string{
	StatusUnknown:             "UNKNOWN",
	StatusUnauthorized:        "UNAUTHORIZED",
	StatusForbidden:           "FORBIDDEN",
	StatusNotFound:            "NOT_FOUND",
	StatusUnprocessableEntity: "UNPROCESSABLE_ENTITY",
	StatusConflict:            "CONFLICT",
	StatusTooManyRequests:     "TOO_MANY_REQUESTS",
	StatusBadRequest:          "BAD_REQUEST",
	StatusValidationFailed:    "VALIDATION_FAILED",
	StatusInternalServerError: "INTERNAL_SERVER_ERROR",
	StatusTimeout:             "TIMEOUT",
	StatusNotImplemented:      "NOT_IMPLEMENTED",
	StatusBadGateway:          "BAD_GATEWAY",
	StatusServiceUnavailable:  "SERVICE_UNAVAILABLE",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return statusNames[StatusUnknown]
}
