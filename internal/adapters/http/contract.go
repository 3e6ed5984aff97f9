package httpadapter

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var openAPISpec []byte

func loadContract() (*openapi3.T, routers.Router, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openAPISpec)
	if err != nil {
		return nil, nil, fmt.Errorf("load openapi contract: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("validate openapi contract: %w", err)
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("build openapi router: %w", err)
	}
	return doc, router, nil
}

func mustContractValidationMiddleware(next http.Handler) http.Handler {
	_, router, err := loadContract()
	if err != nil {
		panic(err)
	}
	return contractValidationMiddleware(next, router)
}

// contractValidationMiddleware rejects requests that do not match the
// embedded contract. Routes the contract does not know pass through.
func contractValidationMiddleware(next http.Handler, router routers.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, pathParams, err := router.FindRoute(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: pathParams,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": contractErrorMessage(err)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func contractErrorMessage(err error) string {
	if reqErr, ok := err.(*openapi3filter.RequestError); ok {
		if reqErr.Err != nil {
			return "request does not match contract: " + reqErr.Err.Error()
		}
		return "request does not match contract: " + reqErr.Reason
	}
	return "request does not match contract: " + err.Error()
}
