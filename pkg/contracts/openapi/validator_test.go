package openapi

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSpec = `
openapi: 3.0.3
info:
  title: test
  version: "1.0"
paths:
  /api/v1/rails:
    post:
      operationId: addRail
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [length, width, thickness]
              properties:
                length: {type: integer, minimum: 1}
                width: {type: integer, minimum: 1}
                thickness: {type: integer, minimum: 1}
      responses:
        "201":
          description: created
`

func TestValidator_ValidateRequest(t *testing.T) {
	v, err := NewValidatorFromBytes([]byte(testSpec))
	require.NoError(t, err)

	good := httptest.NewRequest("POST", "/api/v1/rails", strings.NewReader(`{"length":2000,"width":40,"thickness":5}`))
	good.Header.Set("Content-Type", "application/json")
	assert.True(t, v.HasRoute(good))
	opID, err := v.ValidateRequest(good)
	require.NoError(t, err)
	assert.Equal(t, "addRail", opID)

	bad := httptest.NewRequest("POST", "/api/v1/rails", strings.NewReader(`{"length":0,"width":40}`))
	bad.Header.Set("Content-Type", "application/json")
	_, err = v.ValidateRequest(bad)
	assert.ErrorContains(t, err, "request validation failed")
	assert.NotErrorIs(t, err, ErrNoRoute)
}

func TestValidator_UnknownRoute(t *testing.T) {
	v, err := NewValidatorFromBytes([]byte(testSpec))
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/health", nil)
	assert.False(t, v.HasRoute(req))
	_, err = v.ValidateRequest(req)
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestNewValidatorFromBytes_Invalid(t *testing.T) {
	_, err := NewValidatorFromBytes([]byte("not: [valid"))
	assert.Error(t, err)
}
