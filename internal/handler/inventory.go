package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"merch-inventory-dashboard/internal/model"
	"merch-inventory-dashboard/internal/service"
	"merch-inventory-dashboard/pkg/apierror"
	"merch-inventory-dashboard/pkg/response"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// IdempotencyHeader carries the client's sell idempotency key.
const IdempotencyHeader = "Idempotency-Key"

// InventoryHandler serves the JSON inventory API.
type InventoryHandler struct {
	svc *service.InventoryService
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(svc *service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// ItemRequest is the body of add and update requests.
type ItemRequest struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// SellRequest is the body of a sell request.
type SellRequest struct {
	Quantity int `json:"quantity"`
}

// InventoryResponse is returned by the list endpoint.
type InventoryResponse struct {
	Items   []model.InventoryItem `json:"items"`
	Count   int                   `json:"count"`
	Summary service.Summary       `json:"summary"`
}

// List handles GET /api/v1/inventory
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Inventory(r.Context())
	if err != nil {
		response.Error(w, toAPIError(err, ""))
		return
	}

	filtered := service.Search(items, strings.TrimSpace(r.URL.Query().Get("q")))
	if filtered == nil {
		filtered = []model.InventoryItem{}
	}
	response.OK(w, InventoryResponse{
		Items:   filtered,
		Count:   len(filtered),
		Summary: service.Summarize(items),
	})
}

// Get handles GET /api/v1/inventory/{id}
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Item(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, toAPIError(err, chi.URLParam(r, "id")))
		return
	}
	response.OK(w, item)
}

// Add handles POST /api/v1/inventory
func (h *InventoryHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	item, err := h.svc.Add(r.Context(), req.toItem())
	if err != nil {
		response.Error(w, toAPIError(err, req.ID))
		return
	}
	response.Created(w, item)
}

// Update handles PUT /api/v1/inventory/{id}
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	if req.ID != "" && req.ID != id {
		response.Error(w, apierror.BadRequest("id in body does not match the URL"))
		return
	}
	req.ID = id

	item, err := h.svc.Update(r.Context(), req.toItem())
	if err != nil {
		response.Error(w, toAPIError(err, id))
		return
	}
	response.OK(w, item)
}

// Delete handles DELETE /api/v1/inventory/{id}
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.Error(w, toAPIError(err, chi.URLParam(r, "id")))
		return
	}
	response.NoContent(w)
}

// Sell handles POST /api/v1/inventory/{id}/sell
// A repeated Idempotency-Key replays the earlier receipt.
func (h *InventoryHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	receipt, err := h.svc.SellOnce(r.Context(), r.Header.Get(IdempotencyHeader), id, req.Quantity)
	if errors.Is(err, service.ErrDuplicateSubmission) && receipt != nil {
		w.Header().Set("Idempotent-Replayed", "true")
		response.OK(w, receipt)
		return
	}
	if err != nil {
		response.Error(w, toAPIError(err, id))
		return
	}
	response.OK(w, receipt)
}

// SalesLog handles GET /api/v1/sales
func (h *InventoryHandler) SalesLog(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.SalesLog(r.Context())
	if err != nil {
		response.Error(w, toAPIError(err, ""))
		return
	}
	if entries == nil {
		entries = []model.SalesLogEntry{}
	}
	response.OK(w, entries)
}

// Dashboard handles GET /api/v1/dashboard
func (h *InventoryHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Inventory(r.Context())
	if err != nil {
		response.Error(w, toAPIError(err, ""))
		return
	}

	d := service.BuildDashboard(items)
	if d.Distribution == nil {
		d.Distribution = []service.NameQuantity{}
	}
	response.OK(w, d)
}

func (req ItemRequest) toItem() model.InventoryItem {
	return model.InventoryItem{
		ID:       req.ID,
		Name:     req.Name,
		Price:    req.Price,
		Quantity: req.Quantity,
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apierror.BadRequest("request body is required")
		}
		return apierror.BadRequest("invalid JSON: " + err.Error())
	}
	return nil
}
