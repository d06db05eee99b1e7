package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/billtrack/billtrack/internal/events"
	"github.com/billtrack/billtrack/internal/handler/dto"
	"github.com/billtrack/billtrack/internal/service"
	"github.com/billtrack/billtrack/internal/testutil"
)

type apiEnv struct {
	router    http.Handler
	users     *service.UserService
	publisher *events.MemoryPublisher
}

func newAPIEnv(t *testing.T) *apiEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	publisher := &events.MemoryPublisher{}
	deps := service.Deps{
		Store:     testutil.NewSQLiteStore(t),
		Publisher: publisher,
		Logger:    logger,
	}
	users := service.NewUserService(deps)
	bills := service.NewBillService(deps, users, service.DefaultPageSize, service.MaxPageSize)

	r := chi.NewRouter()
	r.NotFound(NotFound)
	r.MethodNotAllowed(MethodNotAllowed)
	NewBillHandler(bills, logger).Routes(r)
	NewUserHandler(users, logger).Routes(r)

	return &apiEnv{router: r, users: users, publisher: publisher}
}

func (e *apiEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *apiEnv) seedUser(t *testing.T, email, userType string) {
	t.Helper()
	if _, err := e.users.UpsertUser(context.Background(), email, userType); err != nil {
		t.Fatalf("seed user: %v", err)
	}
}

func (e *apiEnv) createBill(t *testing.T, body string) dto.BillResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/bills/", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create bill: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var bill dto.BillResponse
	decodeBody(t, rec, &bill)
	return bill
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("expected status %d, got %d: %s", status, rec.Code, rec.Body.String())
	}
	var resp dto.ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Code != code {
		t.Errorf("expected code %s, got %s", code, resp.Code)
	}
	if resp.Error == "" {
		t.Error("expected error message")
	}
}

func billJSON(biller, receiver, due string) string {
	return `{"category":"Utilities","amount":120.5,"dueDate":"` + due +
		`","receiver":"` + receiver + `","biller":"` + biller + `"}`
}

func TestBillHandler_Create(t *testing.T) {
	env := newAPIEnv(t)

	bill := env.createBill(t, billJSON("alice@example.com", "Electric Co", "2030-01-15"))

	if bill.ID == "" {
		t.Error("expected generated id")
	}
	if bill.Paid {
		t.Error("new bill must be unpaid")
	}
	if bill.PaymentRefNumber != "" {
		t.Errorf("expected empty payment ref, got %q", bill.PaymentRefNumber)
	}
	if bill.DueDate.String() != "2030-01-15" {
		t.Errorf("expected due date 2030-01-15, got %s", bill.DueDate)
	}
	if bill.Amount.String() != "120.5" {
		t.Errorf("expected amount 120.5, got %s", bill.Amount)
	}
	if got := len(env.publisher.Events()); got != 1 {
		t.Errorf("expected 1 published event, got %d", got)
	}
}

func TestBillHandler_CreateRawResponse(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodPost, "/bills/", billJSON("alice@example.com", "Electric Co", "2030-01-15"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var raw map[string]any
	decodeBody(t, rec, &raw)
	if _, ok := raw["amount"].(float64); !ok {
		t.Errorf("amount must be a JSON number, got %T", raw["amount"])
	}
	if v, ok := raw["paymentRefNumber"]; !ok || v != "" {
		t.Errorf("paymentRefNumber must be present and empty, got %v", v)
	}
}

func TestBillHandler_CreateInvalid(t *testing.T) {
	env := newAPIEnv(t)

	tests := []struct {
		name string
		body string
		code string
	}{
		{"missing fields", `{"category":"Utilities"}`, CodeInvalidBill},
		{"malformed json", `{"category":`, CodeInvalidJSON},
		{"unknown field", `{"category":"x","amount":1,"dueDate":"2030-01-01","receiver":"r","biller":"a@b.c","paid":true}`, CodeInvalidJSON},
		{"bad date", `{"category":"x","amount":1,"dueDate":"tomorrow","receiver":"r","biller":"a@b.c"}`, CodeInvalidJSON},
		{"trailing data", billJSON("a@b.c", "r", "2030-01-01") + `{}`, CodeInvalidJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/bills/", tt.body)
			assertError(t, rec, http.StatusBadRequest, tt.code)
		})
	}
}

func TestBillHandler_Get(t *testing.T) {
	env := newAPIEnv(t)
	created := env.createBill(t, billJSON("alice@example.com", "Electric Co", "2030-01-15"))

	rec := env.do(t, http.MethodGet, "/bills/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got dto.BillResponse
	decodeBody(t, rec, &got)
	if got.ID != created.ID {
		t.Errorf("expected id %s, got %s", created.ID, got.ID)
	}

	rec = env.do(t, http.MethodGet, "/bills/01HZZZZZZZZZZZZZZZZZZZZZZZ", "")
	assertError(t, rec, http.StatusNotFound, CodeBillNotFound)
}

func TestBillHandler_ListForUser(t *testing.T) {
	env := newAPIEnv(t)
	env.seedUser(t, "alice@example.com", "member")
	env.seedUser(t, "boss@example.com", "manager")

	env.createBill(t, billJSON("alice@example.com", "Water Co", "2030-03-01"))
	env.createBill(t, billJSON("alice@example.com", "Electric Co", "2030-01-01"))
	env.createBill(t, billJSON("bob@example.com", "Electric Co", "2030-02-01"))

	t.Run("member sees own bills ordered by due date", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/bills/user/alice@example.com", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var bills []dto.BillResponse
		decodeBody(t, rec, &bills)
		if len(bills) != 2 {
			t.Fatalf("expected 2 bills, got %d", len(bills))
		}
		if bills[0].DueDate.String() != "2030-01-01" || bills[1].DueDate.String() != "2030-03-01" {
			t.Errorf("unexpected order: %s, %s", bills[0].DueDate, bills[1].DueDate)
		}
	})

	t.Run("manager sees every bill", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/bills/user/boss@example.com", "")
		var bills []dto.BillResponse
		decodeBody(t, rec, &bills)
		if len(bills) != 3 {
			t.Errorf("expected 3 bills, got %d", len(bills))
		}
	})

	t.Run("escaped email in path", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/bills/user/alice%40example.com", "")
		var bills []dto.BillResponse
		decodeBody(t, rec, &bills)
		if len(bills) != 2 {
			t.Errorf("expected 2 bills, got %d", len(bills))
		}
	})

	t.Run("unknown user gets empty array", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/bills/user/nobody@example.com", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if body := bytes.TrimSpace(rec.Body.Bytes()); string(body) != "[]" {
			t.Errorf("expected [], got %s", body)
		}
	})

	t.Run("receiver filter", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/bills/user/boss@example.com?filter=Electric%20Co", "")
		var bills []dto.BillResponse
		decodeBody(t, rec, &bills)
		if len(bills) != 2 {
			t.Fatalf("expected 2 bills, got %d", len(bills))
		}
		for _, b := range bills {
			if b.Receiver != "Electric Co" {
				t.Errorf("unexpected receiver %s", b.Receiver)
			}
		}
	})

	t.Run("pagination", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/bills/user/boss@example.com?page=2&limit=2", "")
		var bills []dto.BillResponse
		decodeBody(t, rec, &bills)
		if len(bills) != 1 {
			t.Fatalf("expected 1 bill on page 2, got %d", len(bills))
		}
		if bills[0].DueDate.String() != "2030-03-01" {
			t.Errorf("expected the latest bill on page 2, got %s", bills[0].DueDate)
		}
	})
}

func TestBillHandler_ListForUserInvalidPagination(t *testing.T) {
	env := newAPIEnv(t)

	for _, query := range []string{"page=abc", "limit=1.5", "page=-1", "limit=101", "page=1152921504606846977&limit=16"} {
		t.Run(query, func(t *testing.T) {
			rec := env.do(t, http.MethodGet, "/bills/user/alice@example.com?"+query, "")
			assertError(t, rec, http.StatusBadRequest, CodeInvalidPagination)
		})
	}
}

func TestBillHandler_ListAll(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/bills/", "")
	if body := bytes.TrimSpace(rec.Body.Bytes()); string(body) != "[]" {
		t.Errorf("expected [] for an empty store, got %s", body)
	}

	env.createBill(t, billJSON("alice@example.com", "Water Co", "2030-03-01"))
	env.createBill(t, billJSON("bob@example.com", "Electric Co", "2030-02-01"))

	rec = env.do(t, http.MethodGet, "/bills/", "")
	var bills []dto.BillResponse
	decodeBody(t, rec, &bills)
	if len(bills) != 2 {
		t.Errorf("expected 2 bills, got %d", len(bills))
	}
}

func TestBillHandler_Update(t *testing.T) {
	env := newAPIEnv(t)
	bill := env.createBill(t, billJSON("alice@example.com", "Electric Co", "2030-01-15"))
	path := "/bills/" + bill.ID

	rec := env.do(t, http.MethodPatch, path, `{"paymentRefNumber":"REF-1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got dto.BillResponse
	decodeBody(t, rec, &got)
	if got.PaymentRefNumber != "REF-1" || got.Paid {
		t.Errorf("expected ref set and unpaid, got ref=%q paid=%v", got.PaymentRefNumber, got.Paid)
	}

	for i := 0; i < 2; i++ {
		rec = env.do(t, http.MethodPatch, path, `{"paid":true}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("mark paid #%d: expected 200, got %d", i+1, rec.Code)
		}
		decodeBody(t, rec, &got)
		if !got.Paid || got.PaymentRefNumber != "REF-1" {
			t.Errorf("mark paid #%d: expected paid with ref kept, got paid=%v ref=%q", i+1, got.Paid, got.PaymentRefNumber)
		}
	}

	rec = env.do(t, http.MethodPatch, path, `{"paid":false}`)
	assertError(t, rec, http.StatusConflict, CodeCannotUnpay)

	rec = env.do(t, http.MethodPatch, path, `{}`)
	assertError(t, rec, http.StatusBadRequest, CodeEmptyPatch)

	rec = env.do(t, http.MethodPatch, path, `{"amount":5}`)
	assertError(t, rec, http.StatusBadRequest, CodeInvalidJSON)

	rec = env.do(t, http.MethodPatch, "/bills/01HZZZZZZZZZZZZZZZZZZZZZZZ", `{"paid":true}`)
	assertError(t, rec, http.StatusNotFound, CodeBillNotFound)
}

func TestBillHandler_UniqueReceivers(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/bills/unique-receivers", "")
	if body := bytes.TrimSpace(rec.Body.Bytes()); string(body) != "[]" {
		t.Errorf("expected [] for an empty store, got %s", body)
	}

	env.createBill(t, billJSON("alice@example.com", "Water Co", "2030-03-01"))
	env.createBill(t, billJSON("alice@example.com", "Electric Co", "2030-01-01"))
	env.createBill(t, billJSON("bob@example.com", "Water Co", "2030-02-01"))

	rec = env.do(t, http.MethodGet, "/bills/unique-receivers", "")
	var receivers []string
	decodeBody(t, rec, &receivers)
	if len(receivers) != 2 || receivers[0] != "Electric Co" || receivers[1] != "Water Co" {
		t.Errorf("expected [Electric Co Water Co], got %v", receivers)
	}
}

func TestUserHandler(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/user-details/alice@example.com", "")
	assertError(t, rec, http.StatusNotFound, CodeUserNotFound)

	rec = env.do(t, http.MethodPut, "/users/Alice@Example.com", `{"userType":"manager"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, "/user-details/alice%40example.com", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var user dto.UserResponse
	decodeBody(t, rec, &user)
	if user.Email != "alice@example.com" || user.UserType != "manager" {
		t.Errorf("unexpected user: %+v", user)
	}

	rec = env.do(t, http.MethodPut, "/users/a%2541b@example.com", `{"userType":"member"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("percent email upsert: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &user)
	if user.Email != "a%41b@example.com" {
		t.Errorf("percent email decoded twice on upsert: %q", user.Email)
	}
	rec = env.do(t, http.MethodGet, "/user-details/a%2541b@example.com", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("percent email lookup: expected 200, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPut, "/users/alice@example.com", `{"userType":"admin"}`)
	assertError(t, rec, http.StatusBadRequest, CodeInvalidUserType)

	rec = env.do(t, http.MethodPut, "/users/not-an-email", `{"userType":"member"}`)
	assertError(t, rec, http.StatusBadRequest, CodeInvalidEmail)
}

func TestRouter_Fallbacks(t *testing.T) {
	env := newAPIEnv(t)

	rec := env.do(t, http.MethodGet, "/nonexistent", "")
	assertError(t, rec, http.StatusNotFound, CodeNotFound)

	rec = env.do(t, http.MethodDelete, "/bills/", "")
	assertError(t, rec, http.StatusMethodNotAllowed, CodeMethodNotAllowed)
}
