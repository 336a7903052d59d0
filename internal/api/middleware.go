package api

import (
	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the wire version stamped on every response envelope.
// Bump only with a coordinated client release.
const EnvelopeVersion = 1

// APIEnvelope wraps successful responses and simple errors.
type APIEnvelope struct {
	Version int    `json:"v" doc:"Envelope version"`
	Success bool   `json:"success" doc:"Whether the request succeeded"`
	Data    any    `json:"data,omitempty" doc:"Response payload"`
	Error   string `json:"error,omitempty" doc:"Error message when success is false"`
}

// APIErrorEnvelope wraps errors that carry a machine-readable code.
type APIErrorEnvelope struct {
	Version int    `json:"v" doc:"Envelope version"`
	Success bool   `json:"success" doc:"Always false"`
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// EnvelopeTransformer wraps every response body in the versioned envelope.
// Registered on the huma config so handlers return plain DTOs.
//
// The version field is named "v" on the wire; clients key on it.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if apiErr, ok := v.(*APIError); ok {
		if apiErr.Code != "" {
			return APIErrorEnvelope{
				Version: EnvelopeVersion,
				Code:    apiErr.Code,
				Message: apiErr.Message,
				Details: apiErr.Details,
			}, nil
		}
		return APIEnvelope{
			Version: EnvelopeVersion,
			Error:   apiErr.Message,
		}, nil
	}

	if err, ok := v.(error); ok {
		return APIEnvelope{
			Version: EnvelopeVersion,
			Error:   err.Error(),
		}, nil
	}

	if len(status) > 0 && (status[0] == '4' || status[0] == '5') {
		return APIEnvelope{Version: EnvelopeVersion}, nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: true,
		Data:    v,
	}, nil
}
