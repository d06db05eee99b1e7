package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/billtrack/billtrack/internal/handler/dto"
	"github.com/billtrack/billtrack/internal/service"
)

// BillHandler handles HTTP requests for bill operations.
type BillHandler struct {
	svc    *service.BillService
	logger *slog.Logger
}

// NewBillHandler creates a new BillHandler.
func NewBillHandler(svc *service.BillService, logger *slog.Logger) *BillHandler {
	return &BillHandler{
		svc:    svc,
		logger: logger,
	}
}

// Routes registers the bill endpoints under /bills.
func (h *BillHandler) Routes(r chi.Router) {
	r.Route("/bills", func(r chi.Router) {
		r.Get("/", h.ListAll)
		r.Post("/", h.Create)
		r.Get("/unique-receivers", h.UniqueReceivers)
		r.Get("/user/{userEmail}", h.ListForUser)
		r.Get("/{billId}", h.Get)
		r.Patch("/{billId}", h.Update)
	})
}

// Create handles POST /bills/.
func (h *BillHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBillRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	bill, err := h.svc.CreateBill(r.Context(), service.CreateBillInput{
		Category: req.Category,
		Amount:   req.Amount,
		DueDate:  req.DueDate,
		Receiver: req.Receiver,
		Biller:   req.Biller,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("bill_created",
		"bill_id", bill.ID,
		"due_date", bill.DueDate.String(),
	)

	writeJSON(w, http.StatusCreated, dto.ToBillResponse(bill))
}

// Get handles GET /bills/{billId}.
func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	bill, err := h.svc.GetBill(r.Context(), pathParam(r, "billId"))
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBillResponse(bill))
}

// ListAll handles GET /bills/.
func (h *BillHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	bills, err := h.svc.ListAllBills(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBillListResponse(bills))
}

// ListForUser handles GET /bills/user/{userEmail}?filter=&page=&limit=.
func (h *BillHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, err := intQuery(q.Get("page"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidPagination, "page must be an integer")
		return
	}
	limit, err := intQuery(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidPagination, "limit must be an integer")
		return
	}

	bills, err := h.svc.ListBillsForUser(r.Context(), service.ListBillsInput{
		Email:    pathParam(r, "userEmail"),
		Receiver: q.Get("filter"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ToBillListResponse(bills))
}

// Update handles PATCH /bills/{billId}.
func (h *BillHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateBillRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, "Invalid request body: "+err.Error())
		return
	}

	bill, err := h.svc.UpdateBill(r.Context(), pathParam(r, "billId"), req.ToPatch())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	h.logger.Info("bill_updated",
		"bill_id", bill.ID,
		"paid", bill.Paid,
		"has_payment_ref", bill.HasPaymentRef(),
	)

	writeJSON(w, http.StatusOK, dto.ToBillResponse(bill))
}

// UniqueReceivers handles GET /bills/unique-receivers.
func (h *BillHandler) UniqueReceivers(w http.ResponseWriter, r *http.Request) {
	receivers, err := h.svc.ListUniqueReceivers(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if receivers == nil {
		receivers = []string{}
	}

	writeJSON(w, http.StatusOK, receivers)
}

// intQuery parses an optional integer query parameter; empty means zero.
func intQuery(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
