package api

import (
	"encoding/json"
	"errors"
	"net/http"
)

// maxBodySize caps request bodies on every mutating endpoint.
const maxBodySize = 1 << 20 // 1 MB

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody decodes a JSON request body into dst, enforcing the size
// cap. On failure it writes the error response and returns false.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RequestTooLargeError(w, r, "request body exceeds 1 MB")
			return false
		}
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return false
	}
	return true
}

// readBody reads a raw JSON request body with the size cap applied. On
// failure it writes the error response and returns nil.
func readBody(w http.ResponseWriter, r *http.Request) []byte {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			RequestTooLargeError(w, r, "request body exceeds 1 MB")
			return nil
		}
		BadRequestError(w, r, ErrCodeInvalidJSON, "invalid JSON")
		return nil
	}
	return raw
}
