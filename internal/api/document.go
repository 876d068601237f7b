// Package api holds the HTTP surface of the rail cutting planner.
package api

import (
	_ "embed"

	"github.com/tiagodcc/ikts/pkg/contracts/openapi"
)

//go:embed openapi.yaml
var document []byte

// Document returns the OpenAPI document describing /api/v1
func Document() []byte {
	return document
}

// NewValidator builds a request validator from the embedded document
func NewValidator() (*openapi.Validator, error) {
	return openapi.NewValidatorFromBytes(document)
}
