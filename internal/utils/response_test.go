package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-eventgrid/internal/apperr"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWriteErrorDomain(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("event e1: %w", apperr.ErrSoldOut), true)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "SOLD_OUT", resp.Code)
	assert.Equal(t, "event is sold out", resp.Message)
	assert.Equal(t, "event e1: event is sold out", resp.Error)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestWriteErrorInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, errors.New("pq: connection refused"), true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", resp.Code)
	assert.Empty(t, resp.Error)

	rec = httptest.NewRecorder()
	WriteError(rec, errors.New("pq: connection refused"), false)
	assert.Equal(t, "pq: connection refused", decode(t, rec).Error)
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	require.NoError(t, DecodeJSON(strings.NewReader(`{"name":"x"}`), &dst))
	assert.Equal(t, "x", dst.Name)

	err := DecodeJSON(strings.NewReader(`not json`), &dst)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
