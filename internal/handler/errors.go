package handler

import (
	"errors"

	"github.com/sirupsen/logrus"

	"merch-inventory-dashboard/internal/repository"
	"merch-inventory-dashboard/internal/service"
	"merch-inventory-dashboard/pkg/apierror"
)

// toAPIError maps domain errors to their HTTP representation. id names the
// item the request addressed, if any.
func toAPIError(err error, id string) *apierror.Error {
	var apiErr *apierror.Error
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, repository.ErrDuplicateItem):
		return apierror.DuplicateItem(id)
	case errors.Is(err, repository.ErrItemNotFound):
		return apierror.ItemNotFound(id)
	case errors.Is(err, repository.ErrInsufficientStock):
		return apierror.InsufficientStock(id)
	case errors.Is(err, service.ErrIdempotencyMismatch):
		return apierror.IdempotencyMismatch()
	case errors.Is(err, service.ErrDuplicateSubmission):
		return apierror.SaleInProgress()
	default:
		logrus.WithFields(logrus.Fields{
			"component": "handler",
			"item_id":   id,
			"error":     err,
		}).Error("storage operation failed")
		return apierror.StorageUnavailable()
	}
}
