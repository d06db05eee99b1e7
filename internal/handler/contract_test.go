package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/gorillamux"

	"github.com/billtrack/billtrack/internal/testutil"
)

func loadContract(t *testing.T, serverURL string) routers.Router {
	t.Helper()

	root, err := testutil.ProjectRoot()
	if err != nil {
		t.Fatalf("project root: %v", err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromFile(filepath.Join(root, "docs", "api", "openapi.yaml"))
	if err != nil {
		t.Fatalf("load openapi: %v", err)
	}
	if err := doc.Validate(loader.Context); err != nil {
		t.Fatalf("openapi document invalid: %v", err)
	}
	doc.Servers = openapi3.Servers{{URL: serverURL}}

	router, err := gorillamux.NewRouter(doc)
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	return router
}

// checkContract sends a request to the live server and validates both the
// request and the response against the OpenAPI document.
func checkContract(t *testing.T, router routers.Router, method, url, body string, wantStatus int) []byte {
	t.Helper()
	ctx := context.Background()

	newReq := func() *http.Request {
		var reader io.Reader
		if body != "" {
			reader = bytes.NewBufferString(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			t.Fatalf("new request: %v", err)
		}
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		return req
	}

	req := newReq()
	route, pathParams, err := router.FindRoute(req)
	if err != nil {
		t.Fatalf("%s %s: no route in contract: %v", method, url, err)
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
	}
	if wantStatus < 400 {
		if err := openapi3filter.ValidateRequest(ctx, input); err != nil {
			t.Fatalf("%s %s: request does not match contract: %v", method, url, err)
		}
	}

	resp, err := http.DefaultClient.Do(newReq())
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, url, wantStatus, resp.StatusCode, respBody)
	}

	err = openapi3filter.ValidateResponse(ctx, &openapi3filter.ResponseValidationInput{
		RequestValidationInput: input,
		Status:                 resp.StatusCode,
		Header:                 resp.Header,
		Body:                   io.NopCloser(bytes.NewReader(respBody)),
	})
	if err != nil {
		t.Fatalf("%s %s: response does not match contract: %v\nbody: %s", method, url, err, respBody)
	}

	return respBody
}

func TestContract_Endpoints(t *testing.T) {
	env := newAPIEnv(t)
	env.seedUser(t, "boss@example.com", "manager")

	srv := httptest.NewServer(env.router)
	t.Cleanup(srv.Close)
	router := loadContract(t, srv.URL)

	created := env.createBill(t, billJSON("alice@example.com", "Electric Co", "2030-01-15"))

	checkContract(t, router, http.MethodPost, srv.URL+"/bills/",
		billJSON("alice@example.com", "Water Co", "2030-02-01"), http.StatusCreated)
	checkContract(t, router, http.MethodPost, srv.URL+"/bills/", `{"category":"x"}`, http.StatusBadRequest)

	checkContract(t, router, http.MethodGet, srv.URL+"/bills/", "", http.StatusOK)
	checkContract(t, router, http.MethodGet, srv.URL+"/bills/unique-receivers", "", http.StatusOK)
	checkContract(t, router, http.MethodGet, srv.URL+"/bills/user/boss@example.com?page=1&limit=10", "", http.StatusOK)
	checkContract(t, router, http.MethodGet, srv.URL+"/bills/user/boss@example.com?filter=Electric%20Co", "", http.StatusOK)
	checkContract(t, router, http.MethodGet, srv.URL+"/bills/user/nobody@example.com", "", http.StatusOK)

	checkContract(t, router, http.MethodGet, srv.URL+"/bills/"+created.ID, "", http.StatusOK)
	checkContract(t, router, http.MethodGet, srv.URL+"/bills/missing", "", http.StatusNotFound)

	checkContract(t, router, http.MethodPatch, srv.URL+"/bills/"+created.ID, `{"paymentRefNumber":"REF-9"}`, http.StatusOK)
	checkContract(t, router, http.MethodPatch, srv.URL+"/bills/"+created.ID, `{"paid":true}`, http.StatusOK)
	checkContract(t, router, http.MethodPatch, srv.URL+"/bills/"+created.ID, `{"paid":false}`, http.StatusConflict)
	checkContract(t, router, http.MethodPatch, srv.URL+"/bills/missing", `{"paid":true}`, http.StatusNotFound)

	checkContract(t, router, http.MethodPut, srv.URL+"/users/carol@example.com", `{"userType":"member"}`, http.StatusOK)
	checkContract(t, router, http.MethodGet, srv.URL+"/user-details/carol@example.com", "", http.StatusOK)
	checkContract(t, router, http.MethodGet, srv.URL+"/user-details/dave@example.com", "", http.StatusNotFound)
}

func TestContract_Health(t *testing.T) {
	h := NewHealthHandler(map[string]HealthChecker{
		"database": testutil.NewSQLiteStore(t),
		"redis":    nil,
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	router := loadContract(t, srv.URL)
	checkContract(t, router, http.MethodGet, srv.URL+"/healthz", "", http.StatusOK)
	checkContract(t, router, http.MethodGet, srv.URL+"/readyz", "", http.StatusOK)
}
