package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	err := WriteJSON(rec, http.StatusCreated, map[string]string{"key": "value"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "value", body["key"])
}

func TestWriteErrorMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorMessage(rec, http.StatusBadRequest, "Invalid action")

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Invalid action", body.Error)
	assert.Empty(t, body.Message)
}

func TestWriteInternalError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteInternalError(rec, errors.New("redis: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body.Error)
	assert.Equal(t, "redis: connection refused", body.Message)
}

func TestWriteMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteMethodNotAllowed(rec)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, rec.Body.String(), "Method not allowed")
}

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		AppName string `json:"appName"`
	}

	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"appName":"Discord"}`))
		var p payload
		require.NoError(t, DecodeJSONBody(req, &p))
		assert.Equal(t, "Discord", p.AppName)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{appName`))
		var p payload
		assert.Error(t, DecodeJSONBody(req, &p))
	})

	t.Run("trailing data", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"appName":"a"}{"appName":"b"}`))
		var p payload
		assert.Error(t, DecodeJSONBody(req, &p))
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var p payload
		assert.Error(t, DecodeJSONBody(req, &p))
	})
}
