//nolint:lll
package api

import (
	"fmt"
	"net/http"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400 or 404 (or even 204), whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX.
// If you notice there's a gap (say, error code 4010, 4011 and 4013 exist, 4012 is missing) DON'T fill in the gap,
// that code was used in the past for some error (not anymore) and shouldn't be reused.
var (
	ErrResourceNotFound = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody    = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrAgentNotFound    = Error{Code: 40005, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("agent not found")}
	ErrInvalidRating    = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("rating out of range")}
	ErrMissingAgentName = Error{Code: 40007, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("missing agent name")}
	ErrJobNotFound      = Error{Code: 40008, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("aggregation job not found")}
	ErrProofRejected    = Error{Code: 40009, HTTPstatus: http.StatusUnprocessableEntity, Err: fmt.Errorf("proof rejected by optimistic verification")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrProofGenerationFailed      = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("proof generation failed")}
	ErrRelayerUnavailable         = Error{Code: 50004, HTTPstatus: http.StatusBadGateway, Err: fmt.Errorf("relayer request failed")}
)
