package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxEnvelopeSize caps how much of a response body is decoded
const maxEnvelopeSize = 1 << 20

// Envelope is the response wrapper used by every club API endpoint
type Envelope[T any] struct {
	Success  bool      `json:"success"`
	Response *T        `json:"response"`
	Error    *APIError `json:"error"`
}

// APIError is the error object carried in a failed envelope
type APIError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// decodeEnvelope reads resp's body and returns the typed payload.
// Non-2xx statuses and unsuccessful envelopes become *APIError.
func decodeEnvelope[T any](resp *http.Response) (*T, error) {
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var env Envelope[T]
	decodeErr := json.Unmarshal(data, &env)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if decodeErr == nil && env.Error != nil {
			return nil, env.Error
		}
		return nil, &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to parse response envelope: %w", decodeErr)
	}
	if !env.Success {
		if env.Error != nil {
			return nil, env.Error
		}
		return nil, &APIError{Status: resp.StatusCode, Message: "request was not successful"}
	}
	if env.Response == nil {
		return nil, errors.New("response envelope has no payload")
	}
	return env.Response, nil
}
