package handler

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON_ReportsFieldDetails(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"preset_id":"","files":[{"name":"a.png"}]}`))

	var dst struct{}
	err := decodeJSON(r, createJobSchema, &dst)

	var bodyErr *errInvalidBody
	require.True(t, errors.As(err, &bodyErr))
	assert.Contains(t, bodyErr.details, "preset_id")
	assert.Contains(t, bodyErr.details, "files/0")
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"email":"` + strings.Repeat("a", maxJSONBody) + `"}`
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))

	var dst struct{}
	err := decodeJSON(r, loginSchema, &dst)
	require.Error(t, err)
	assert.Equal(t, "Request body too large", err.Error())
}

func TestDecodeJSON_Valid(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"status":"accept"}`))

	var dst struct {
		Status string `json:"status"`
	}
	require.NoError(t, decodeJSON(r, decisionSchema, &dst))
	assert.Equal(t, "accept", dst.Status)
}
