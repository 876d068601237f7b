// Package openapi validates HTTP requests against an OpenAPI 3 document.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"
)

// ErrNoRoute is returned for requests the document does not describe
var ErrNoRoute = errors.New("no matching operation")

// Validator matches requests to document operations and checks them
type Validator struct {
	router routers.Router
}

// NewValidatorFromBytes parses and validates a YAML or JSON document
func NewValidatorFromBytes(doc []byte) (*Validator, error) {
	spec, err := openapi3.NewLoader().LoadFromData(doc)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	if err := spec.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}

	router, err := gorillamux.NewRouter(spec)
	if err != nil {
		return nil, fmt.Errorf("build openapi router: %w", err)
	}
	return &Validator{router: router}, nil
}

// HasRoute reports whether the document describes req
func (v *Validator) HasRoute(req *http.Request) bool {
	_, _, err := v.router.FindRoute(req)
	return err == nil
}

// ValidateRequest checks req against its operation and returns the
// operation ID. The body is restored afterwards so handlers can bind it.
// Unknown requests fail with ErrNoRoute.
func (v *Validator) ValidateRequest(req *http.Request) (string, error) {
	route, params, err := v.router.FindRoute(req)
	if err != nil {
		return "", fmt.Errorf("%w: %s %s", ErrNoRoute, req.Method, req.URL.Path)
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: params,
		Route:      route,
		Options:    &openapi3filter.Options{MultiError: true},
	}
	if err := openapi3filter.ValidateRequest(req.Context(), input); err != nil {
		return route.Operation.OperationID, fmt.Errorf("request validation failed: %w", err)
	}
	return route.Operation.OperationID, nil
}
