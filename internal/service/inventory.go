package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"merch-inventory-dashboard/internal/cache"
	"merch-inventory-dashboard/internal/metrics"
	"merch-inventory-dashboard/internal/model"
	"merch-inventory-dashboard/internal/repository"
	"merch-inventory-dashboard/pkg/apierror"
)

var (
	// ErrDuplicateSubmission is returned by SellOnce when the token was already used.
	ErrDuplicateSubmission = errors.New("sale already submitted")
	// ErrIdempotencyMismatch is returned by SellOnce when the token was used
	// for a different item or quantity.
	ErrIdempotencyMismatch = errors.New("idempotency key reused for a different sale")
)

// sellRecord is what the idempotency cache holds per token. Receipt stays
// nil while the sale is in flight.
type sellRecord struct {
	ItemID   string             `json:"item_id"`
	Quantity int                `json:"quantity"`
	Receipt  *model.SaleReceipt `json:"receipt,omitempty"`
}

// Mutation operation labels.
const (
	OpAdd    = "add"
	OpUpdate = "update"
	OpDelete = "delete"
)

const (
	maxIDLength   = 50
	maxNameLength = 100
	pricePlaces   = 2

	// maxQuantity matches the INT column.
	maxQuantity = math.MaxInt32

	// sellClaimTTL caps how long a claimed token blocks retries when the
	// receipt never gets stored.
	sellClaimTTL = time.Minute
)

// maxPrice is the largest value a DECIMAL(10,2) column holds.
var maxPrice = decimal.RequireFromString("99999999.99")

// Options holds the optional collaborators of InventoryService.
type Options struct {
	// Cache stores sell idempotency tokens. SellOnce skips the guard when nil.
	Cache          cache.Cache
	IdempotencyTTL time.Duration
	Metrics        *metrics.Metrics
}

// InventoryService handles inventory business logic.
type InventoryService struct {
	inventory      repository.InventoryRepository
	sales          repository.SalesLogRepository
	cache          cache.Cache
	idempotencyTTL time.Duration
	metrics        *metrics.Metrics
	now            func() time.Time
}

// NewInventoryService creates a new inventory service.
// Returns nil if either repository is nil (required dependencies).
func NewInventoryService(
	inventory repository.InventoryRepository,
	sales repository.SalesLogRepository,
	opts Options,
) *InventoryService {
	if inventory == nil || sales == nil {
		return nil
	}
	ttl := opts.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &InventoryService{
		inventory:      inventory,
		sales:          sales,
		cache:          opts.Cache,
		idempotencyTTL: ttl,
		metrics:        opts.Metrics,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Inventory returns every item.
func (s *InventoryService) Inventory(ctx context.Context) ([]model.InventoryItem, error) {
	items, err := s.inventory.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return items, nil
}

// Item returns a single item, or ErrItemNotFound.
func (s *InventoryService) Item(ctx context.Context, id string) (*model.InventoryItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apierror.ValidationError("invalid item", apierror.FieldError{Field: "id", Message: "is required"})
	}
	item, err := s.inventory.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	if item == nil {
		return nil, repository.ErrItemNotFound
	}
	return item, nil
}

// Add validates and inserts a new item.
func (s *InventoryService) Add(ctx context.Context, item model.InventoryItem) (model.InventoryItem, error) {
	item, verr := normalizeItem(item)
	if verr != nil {
		s.recordMutation(OpAdd, verr)
		return item, verr
	}

	err := s.inventory.Add(ctx, item)
	s.recordMutation(OpAdd, err)
	if err != nil {
		return item, err
	}

	logrus.WithFields(logrus.Fields{
		"component": "inventory",
		"item_id":   item.ID,
	}).Info("item added")
	return item, nil
}

// Update validates and overwrites an existing item.
func (s *InventoryService) Update(ctx context.Context, item model.InventoryItem) (model.InventoryItem, error) {
	item, verr := normalizeItem(item)
	if verr != nil {
		s.recordMutation(OpUpdate, verr)
		return item, verr
	}

	err := s.inventory.Update(ctx, item)
	s.recordMutation(OpUpdate, err)
	if err != nil {
		return item, err
	}

	logrus.WithFields(logrus.Fields{
		"component": "inventory",
		"item_id":   item.ID,
	}).Info("item updated")
	return item, nil
}

// Delete removes an item. Sales history for it is kept.
func (s *InventoryService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		verr := apierror.ValidationError("invalid item", apierror.FieldError{Field: "id", Message: "is required"})
		s.recordMutation(OpDelete, verr)
		return verr
	}

	err := s.inventory.Delete(ctx, id)
	s.recordMutation(OpDelete, err)
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"component": "inventory",
		"item_id":   id,
	}).Info("item deleted")
	return nil
}

// Sell removes quantity units from stock and records the sale.
func (s *InventoryService) Sell(ctx context.Context, id string, quantity int) (*model.SaleReceipt, error) {
	id = strings.TrimSpace(id)
	if verr := validateSale(id, quantity); verr != nil {
		s.recordRejection(verr)
		return nil, verr
	}

	receipt, err := s.inventory.Sell(ctx, id, quantity, s.now())
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.Sales.Inc()
		s.metrics.UnitsSold.Add(float64(receipt.QuantitySold))
	}

	logrus.WithFields(logrus.Fields{
		"component": "inventory",
		"item_id":   receipt.ItemID,
		"quantity":  receipt.QuantitySold,
		"remaining": receipt.Remaining,
	}).Info("sale recorded")
	return receipt, nil
}

// SellOnce behaves like Sell but runs at most once per token. A token that
// was already used for the same item and quantity returns
// ErrDuplicateSubmission together with the earlier receipt when it is
// known; a token reused for a different sale returns ErrIdempotencyMismatch.
// Failed sales release the token so the same submission can be retried.
// An empty token disables the check.
func (s *InventoryService) SellOnce(ctx context.Context, token, id string, quantity int) (*model.SaleReceipt, error) {
	token = strings.TrimSpace(token)
	if token == "" || s.cache == nil {
		return s.Sell(ctx, id, quantity)
	}
	id = strings.TrimSpace(id)

	key := sellTokenKey(token)
	claim := sellRecord{ItemID: id, Quantity: quantity}
	data, err := json.Marshal(claim)
	if err != nil {
		return nil, fmt.Errorf("encode sell claim: %w", err)
	}

	claimed, err := s.cache.SetNX(ctx, key, data, s.claimTTL())
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "inventory",
			"error":     err,
		}).Warn("idempotency cache unavailable, selling without guard")
		return s.Sell(ctx, id, quantity)
	}
	if !claimed {
		return s.repeatedSale(ctx, key, claim)
	}

	receipt, err := s.Sell(ctx, id, quantity)
	if err != nil {
		s.releaseToken(ctx, key)
		return nil, err
	}

	claim.Receipt = receipt
	if data, err = json.Marshal(claim); err == nil {
		err = s.cache.Set(ctx, key, data, s.idempotencyTTL)
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "inventory",
			"item_id":   id,
			"error":     err,
		}).Warn("failed to store sale receipt")
		s.releaseToken(ctx, key)
	}
	return receipt, nil
}

// SalesLog returns every sale, most recent first.
func (s *InventoryService) SalesLog(ctx context.Context) ([]model.SalesLogEntry, error) {
	entries, err := s.sales.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sales log: %w", err)
	}
	return entries, nil
}

// repeatedSale answers a token that is already claimed.
func (s *InventoryService) repeatedSale(ctx context.Context, key string, want sellRecord) (*model.SaleReceipt, error) {
	var prev sellRecord
	data, err := s.cache.Get(ctx, key)
	if err == nil {
		err = json.Unmarshal(data, &prev)
	}
	if err != nil {
		s.recordRejection(ErrDuplicateSubmission)
		return nil, ErrDuplicateSubmission
	}

	if prev.ItemID != want.ItemID || prev.Quantity != want.Quantity {
		s.recordRejection(ErrIdempotencyMismatch)
		return nil, ErrIdempotencyMismatch
	}
	s.recordRejection(ErrDuplicateSubmission)
	return prev.Receipt, ErrDuplicateSubmission
}

func (s *InventoryService) releaseToken(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		logrus.WithFields(logrus.Fields{
			"component": "inventory",
			"error":     err,
		}).Warn("failed to release sell token")
	}
}

// claimTTL bounds how long an unfinished claim blocks its token.
func (s *InventoryService) claimTTL() time.Duration {
	if s.idempotencyTTL < sellClaimTTL {
		return s.idempotencyTTL
	}
	return sellClaimTTL
}

func (s *InventoryService) recordMutation(op string, err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	var apiErr *apierror.Error
	switch {
	case err == nil:
	case errors.As(err, &apiErr):
		result = "invalid"
	case errors.Is(err, repository.ErrDuplicateItem):
		result = "duplicate"
	case errors.Is(err, repository.ErrItemNotFound):
		result = "not_found"
	default:
		result = "error"
	}
	s.metrics.Mutations.WithLabelValues(op, result).Inc()
}

func (s *InventoryService) recordRejection(err error) {
	if s.metrics == nil {
		return
	}
	reason := metrics.ReasonError
	var apiErr *apierror.Error
	switch {
	case errors.As(err, &apiErr):
		reason = metrics.ReasonInvalid
	case errors.Is(err, repository.ErrItemNotFound):
		reason = metrics.ReasonNotFound
	case errors.Is(err, repository.ErrInsufficientStock):
		reason = metrics.ReasonInsufficient
	case errors.Is(err, ErrDuplicateSubmission):
		reason = metrics.ReasonDuplicate
	case errors.Is(err, ErrIdempotencyMismatch):
		reason = metrics.ReasonKeyReused
	}
	s.metrics.SellRejections.WithLabelValues(reason).Inc()
}

func sellTokenKey(token string) string {
	return "sell:" + token
}

// normalizeItem trims the text fields, rounds the price to cents and
// validates the result.
func normalizeItem(item model.InventoryItem) (model.InventoryItem, error) {
	item.ID = strings.TrimSpace(item.ID)
	item.Name = strings.TrimSpace(item.Name)
	item.Price = item.Price.Round(pricePlaces)

	var details []apierror.FieldError
	switch {
	case item.ID == "":
		details = append(details, apierror.FieldError{Field: "id", Message: "is required"})
	case len(item.ID) > maxIDLength:
		details = append(details, apierror.FieldError{Field: "id", Message: fmt.Sprintf("must be at most %d characters", maxIDLength)})
	}
	if len(item.Name) > maxNameLength {
		details = append(details, apierror.FieldError{Field: "name", Message: fmt.Sprintf("must be at most %d characters", maxNameLength)})
	}
	switch {
	case item.Price.LessThan(decimal.Zero):
		details = append(details, apierror.FieldError{Field: "price", Message: "must not be negative"})
	case item.Price.GreaterThan(maxPrice):
		details = append(details, apierror.FieldError{Field: "price", Message: "must be at most " + maxPrice.StringFixed(pricePlaces)})
	}
	switch {
	case item.Quantity < 0:
		details = append(details, apierror.FieldError{Field: "quantity", Message: "must not be negative"})
	case item.Quantity > maxQuantity:
		details = append(details, apierror.FieldError{Field: "quantity", Message: fmt.Sprintf("must be at most %d", maxQuantity)})
	}

	if len(details) > 0 {
		return item, apierror.ValidationError("invalid item", details...)
	}
	return item, nil
}

func validateSale(id string, quantity int) error {
	var details []apierror.FieldError
	if id == "" {
		details = append(details, apierror.FieldError{Field: "id", Message: "is required"})
	}
	switch {
	case quantity < 1:
		details = append(details, apierror.FieldError{Field: "quantity", Message: "must be at least 1"})
	case quantity > maxQuantity:
		details = append(details, apierror.FieldError{Field: "quantity", Message: fmt.Sprintf("must be at most %d", maxQuantity)})
	}
	if len(details) > 0 {
		return apierror.ValidationError("invalid sale", details...)
	}
	return nil
}
