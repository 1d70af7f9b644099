// Package types holds the JSON envelopes shared by the portal API and its clients.
package types

// SuccessEnvelope wraps every 2xx body: {"data": ...}.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public shape of a ledger error. Code is one of the
// pkg/errors codes; Message carries the rejection reason for 4xx answers
// such as "already claimed" or "batch has no configured items".
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
