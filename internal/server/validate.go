package server

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"

	"github.com/goliatone/go-formflow/pkg/schema"
)

//go:embed openapi.yaml
var openAPIDocument []byte

// fieldErrors is the wire shape of a 400 response body: JSON pointer to the
// offending field mapped to its messages.
type fieldErrors map[string][]string

func (f fieldErrors) add(path, message string) {
	if path == "" {
		path = "/"
	}
	for _, existing := range f[path] {
		if existing == message {
			return
		}
	}
	f[path] = append(f[path], message)
}

// requestValidator checks request bodies against the embedded OpenAPI
// document before any domain logic runs.
type requestValidator struct {
	doc *openapi3.T
}

func newRequestValidator(ctx context.Context, data []byte) (*requestValidator, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("server: load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("server: invalid openapi document: %w", err)
	}
	return &requestValidator{doc: doc}, nil
}

// validate returns nil when r matches the operation registered for path and
// method. The request body stays readable afterwards.
func (v *requestValidator) validate(r *http.Request, path string) (fieldErrors, error) {
	item := v.doc.Paths.Value(path)
	if item == nil {
		return nil, fmt.Errorf("server: no openapi path %q", path)
	}
	op := item.GetOperation(r.Method)
	if op == nil {
		return nil, fmt.Errorf("server: no openapi operation %s %s", r.Method, path)
	}

	input := &openapi3filter.RequestValidationInput{
		Request: r,
		Route: &routers.Route{
			Spec:      v.doc,
			Path:      path,
			PathItem:  item,
			Method:    r.Method,
			Operation: op,
		},
		Options: &openapi3filter.Options{MultiError: true},
	}

	err := openapi3filter.ValidateRequest(r.Context(), input)
	if err == nil {
		return nil, nil
	}
	out := fieldErrors{}
	collectErrors(out, err)
	if len(out) == 0 {
		out.add("/", err.Error())
	}
	return out, nil
}

func collectErrors(out fieldErrors, err error) {
	var multi openapi3.MultiError
	if errors.As(err, &multi) {
		for _, e := range multi {
			collectErrors(out, e)
		}
		return
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		path := "/" + strings.Join(schemaErr.JSONPointer(), "/")
		out.add(path, schemaMessage(schemaErr))
		return
	}

	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Err != nil {
			before := len(out)
			collectErrors(out, reqErr.Err)
			if len(out) > before {
				return
			}
		}
		path := "/"
		if reqErr.Parameter != nil {
			path = "/" + reqErr.Parameter.Name
		}
		out.add(path, reqErr.Reason)
		return
	}

	out.add("/", err.Error())
}

func schemaMessage(err *openapi3.SchemaError) string {
	switch err.SchemaField {
	case "required":
		return "This field is required"
	case "pattern":
		return "Invalid format"
	case "enum":
		return "Please select a valid option"
	case "type":
		return "Invalid type"
	}
	if err.Reason != "" {
		return err.Reason
	}
	return "Invalid value"
}

// issuesToErrors converts domain validation issues to the wire shape.
func issuesToErrors(issues schema.Issues) fieldErrors {
	out := fieldErrors{}
	for _, issue := range issues {
		out.add(issue.Path, issue.Message)
	}
	return out
}
