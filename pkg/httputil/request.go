package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxBodySize caps request bodies at 64KB; analytics events are tiny.
const maxBodySize = 64 << 10

// DecodeJSONBody decodes a JSON request body into dst, rejecting unknown
// oversized bodies and trailing garbage.
func DecodeJSONBody(r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodySize)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}

	// A second decode succeeding means the body held more than one JSON value
	if dec.More() {
		return fmt.Errorf("invalid request body: unexpected trailing data")
	}

	return nil
}
