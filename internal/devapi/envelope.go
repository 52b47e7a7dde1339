package devapi

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/courtside/clubapp/internal/client"
)

const maxRequestBody = 64 << 10

func writeSuccess(w http.ResponseWriter, status int, payload interface{}) {
	writeEnvelope(w, status, client.Envelope[interface{}]{
		Success:  true,
		Response: &payload,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeEnvelope(w, status, client.Envelope[interface{}]{
		Error: &client.APIError{Status: status, Message: message},
	})
}

func writeEnvelope(w http.ResponseWriter, status int, env client.Envelope[interface{}]) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// decodeBody reads a JSON request body into v
func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
