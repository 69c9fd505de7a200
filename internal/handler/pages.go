package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"merch-inventory-dashboard/internal/middleware"
	"merch-inventory-dashboard/internal/model"
	"merch-inventory-dashboard/internal/repository"
	"merch-inventory-dashboard/internal/service"
	"merch-inventory-dashboard/internal/web"
	"merch-inventory-dashboard/pkg/apierror"
	"merch-inventory-dashboard/pkg/uid"
)

// PageHandler serves the HTML views.
type PageHandler struct {
	svc      *service.InventoryService
	renderer *web.Renderer
}

// NewPageHandler creates a new page handler.
func NewPageHandler(svc *service.InventoryService, renderer *web.Renderer) *PageHandler {
	return &PageHandler{svc: svc, renderer: renderer}
}

// InventoryData backs the inventory view.
type InventoryData struct {
	Items   []model.InventoryItem
	Summary service.Summary
	Query   string
}

// SellData backs the sell view.
type SellData struct {
	Items    []model.InventoryItem
	Token    string
	ItemID   string
	Quantity int
	Receipt  *model.SaleReceipt
}

// DashboardData backs the dashboard view.
type DashboardData struct {
	Dashboard service.Dashboard
}

// SalesData backs the sales log view.
type SalesData struct {
	Entries []model.SalesLogEntry
}

// Root handles GET /
func (h *PageHandler) Root(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/inventory", http.StatusFound)
}

// Inventory handles GET /inventory
func (h *PageHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	h.renderInventory(w, r, http.StatusOK, nil)
}

// AddItem handles POST /inventory/add
func (h *PageHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	item, err := parseItemForm(r)
	if err == nil {
		_, err = h.svc.Add(r.Context(), item)
	}

	switch {
	case err == nil:
		h.renderInventory(w, r, http.StatusOK, []web.Notice{web.Success("Item added successfully!")})
	case errors.Is(err, repository.ErrDuplicateItem):
		h.renderInventory(w, r, http.StatusConflict, []web.Notice{web.Warning("Item ID already exists!")})
	default:
		h.renderMutationError(w, r, err)
	}
}

// UpdateItem handles POST /inventory/update
func (h *PageHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	item, err := parseItemForm(r)
	if err == nil {
		_, err = h.svc.Update(r.Context(), item)
	}

	if err != nil {
		h.renderMutationError(w, r, err)
		return
	}
	h.renderInventory(w, r, http.StatusOK, []web.Notice{web.Success("Item updated successfully!")})
}

// DeleteItem handles POST /inventory/delete
func (h *PageHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PostFormValue("id")); err != nil {
		h.renderMutationError(w, r, err)
		return
	}
	h.renderInventory(w, r, http.StatusOK, []web.Notice{web.Success("Item deleted!")})
}

// SellForm handles GET /sell
func (h *PageHandler) SellForm(w http.ResponseWriter, r *http.Request) {
	h.renderSell(w, r, http.StatusOK, nil, SellData{Quantity: 1})
}

// Sell handles POST /sell
func (h *PageHandler) Sell(w http.ResponseWriter, r *http.Request) {
	data := SellData{ItemID: strings.TrimSpace(r.PostFormValue("id")), Quantity: 1}

	quantity, err := parseInt(r.PostFormValue("quantity"), 1, "quantity")
	if err != nil {
		h.renderSell(w, r, http.StatusBadRequest, []web.Notice{noticeFor(err)}, data)
		return
	}
	data.Quantity = quantity

	receipt, err := h.svc.SellOnce(r.Context(), r.PostFormValue("token"), data.ItemID, quantity)
	switch {
	case err == nil:
		data.Receipt = receipt
		data.ItemID = ""
		data.Quantity = 1
		h.renderSell(w, r, http.StatusOK, []web.Notice{web.Success("Sold %d units of %s", receipt.QuantitySold, receipt.Name)}, data)
	case errors.Is(err, service.ErrIdempotencyMismatch):
		h.renderSell(w, r, http.StatusUnprocessableEntity, []web.Notice{web.Error("This form was already used for a different sale. Please submit it again.")}, data)
	case errors.Is(err, service.ErrDuplicateSubmission):
		data.Receipt = receipt
		h.renderSell(w, r, http.StatusOK, []web.Notice{web.Warning("This sale was already submitted.")}, data)
	case errors.Is(err, repository.ErrItemNotFound):
		h.renderSell(w, r, http.StatusNotFound, []web.Notice{web.Error("Item not found!")}, data)
	case errors.Is(err, repository.ErrInsufficientStock):
		h.renderSell(w, r, http.StatusConflict, []web.Notice{web.Error("Insufficient stock!")}, data)
	default:
		h.renderSell(w, r, toAPIError(err, data.ItemID).StatusCode, []web.Notice{noticeFor(err)}, data)
	}
}

// Dashboard handles GET /dashboard
func (h *PageHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var notices []web.Notice

	items, err := h.svc.Inventory(r.Context())
	if err != nil {
		h.logFetchError(r, "inventory", err)
		notices = append(notices, web.Error("Database connection failed: %v", err))
	}

	data := DashboardData{Dashboard: service.BuildDashboard(items)}
	if err == nil && data.Dashboard.Empty() {
		notices = append(notices, web.Warning("Inventory is empty."))
	}
	h.render(w, r, http.StatusOK, web.ViewDashboard, notices, data)
}

// Sales handles GET /sales
func (h *PageHandler) Sales(w http.ResponseWriter, r *http.Request) {
	var notices []web.Notice

	entries, err := h.svc.SalesLog(r.Context())
	if err != nil {
		h.logFetchError(r, "sales_log", err)
		notices = append(notices, web.Error("Database connection failed: %v", err))
	}
	h.render(w, r, http.StatusOK, web.ViewSales, notices, SalesData{Entries: entries})
}

// renderInventory fetches the item list and renders the inventory view.
// KPIs cover every item, the table only the ones matching the query.
func (h *PageHandler) renderInventory(w http.ResponseWriter, r *http.Request, status int, notices []web.Notice) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))

	items, err := h.svc.Inventory(r.Context())
	if err != nil {
		h.logFetchError(r, "inventory", err)
		notices = append(notices, web.Error("Database connection failed: %v", err))
	}

	h.render(w, r, status, web.ViewInventory, notices, InventoryData{
		Items:   service.Search(items, query),
		Summary: service.Summarize(items),
		Query:   query,
	})
}

func (h *PageHandler) renderMutationError(w http.ResponseWriter, r *http.Request, err error) {
	h.renderInventory(w, r, toAPIError(err, r.PostFormValue("id")).StatusCode, []web.Notice{noticeFor(err)})
}

func (h *PageHandler) renderSell(w http.ResponseWriter, r *http.Request, status int, notices []web.Notice, data SellData) {
	items, err := h.svc.Inventory(r.Context())
	if err != nil {
		h.logFetchError(r, "inventory", err)
		notices = append(notices, web.Warning("Item list unavailable: %v", err))
	}
	data.Items = items
	data.Token = uid.SellToken()
	h.render(w, r, status, web.ViewSell, notices, data)
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, view string, notices []web.Notice, data any) {
	if err := h.renderer.Render(w, status, view, notices, data); err != nil {
		middleware.Log(r.Context(), "pages").WithFields(logrus.Fields{
			"view":  view,
			"error": err,
		}).Error("failed to render view")
		http.Error(w, "Something went wrong. Please try again.", http.StatusInternalServerError)
	}
}

func (h *PageHandler) logFetchError(r *http.Request, source string, err error) {
	middleware.Log(r.Context(), "pages").WithFields(logrus.Fields{
		"source": source,
		"error":  err,
	}).Warn("view fetch failed, rendering empty result")
}

// noticeFor turns an operation error into a user-facing notice.
func noticeFor(err error) web.Notice {
	var apiErr *apierror.Error
	switch {
	case errors.As(err, &apiErr) && len(apiErr.Details) > 0:
		parts := make([]string, 0, len(apiErr.Details))
		for _, d := range apiErr.Details {
			parts = append(parts, d.Field+" "+d.Message)
		}
		return web.Error("Invalid input: %s.", strings.Join(parts, ", "))
	case errors.As(err, &apiErr):
		return web.Error("%s", apiErr.Message)
	case errors.Is(err, repository.ErrDuplicateItem):
		return web.Warning("Item ID already exists!")
	case errors.Is(err, repository.ErrItemNotFound):
		return web.Warning("Item not found!")
	default:
		return web.Error("Database error: %v", err)
	}
}

// parseItemForm reads id, name, price and quantity from a posted form.
// Blank price and quantity default to zero.
func parseItemForm(r *http.Request) (model.InventoryItem, error) {
	item := model.InventoryItem{
		ID:   r.PostFormValue("id"),
		Name: r.PostFormValue("name"),
	}

	price, err := parseDecimal(r.PostFormValue("price"))
	if err != nil {
		return item, err
	}
	item.Price = price

	quantity, err := parseInt(r.PostFormValue("quantity"), 0, "quantity")
	if err != nil {
		return item, err
	}
	item.Quantity = quantity
	return item, nil
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apierror.ValidationError("invalid input", apierror.FieldError{Field: "price", Message: "must be a number"})
	}
	return d, nil
}

func parseInt(raw string, fallback int, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apierror.ValidationError("invalid input", apierror.FieldError{Field: field, Message: "must be a whole number"})
	}
	return n, nil
}
