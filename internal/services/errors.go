package services

import (
	"errors"
	"fmt"

	"github.com/diewo77/order-ledger/internal/sequence"
)

// Billing failures are expected business outcomes, not defects: per-item
// problems are collected on the result as ItemError values so sibling items
// can still succeed, while operation-level conditions are returned as errors.
var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrExceedsOrderedQuantity = errors.New("quantity exceeds ordered quantity")
	ErrItemNotOnOrder         = errors.New("item not on order")
	ErrIDAllocationFailed     = errors.New("id allocation retries exhausted")
	ErrNoItemsBilled          = errors.New("no items billed")

	// ErrSeriesExhausted is fatal for the requesting operation; the 6-digit
	// bill series has no wraparound.
	ErrSeriesExhausted = sequence.ErrSeriesExhausted
)

// ItemError reports one failed item of a billing call.
type ItemError struct {
	ItemID  string `json:"item_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("item %s: %s", e.ItemID, e.Message)
}

func (e ItemError) Unwrap() error { return e.Err }

func newItemError(itemID string, err error) ItemError {
	return ItemError{ItemID: itemID, Code: errorCode(err), Message: err.Error(), Err: err}
}

// errorCode maps taxonomy errors onto the stable snake_case codes the API
// layer surfaces to operators.
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrItemNotOnOrder):
		return "item_not_on_order"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrExceedsOrderedQuantity):
		return "exceeds_ordered_quantity"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation_failed"
	case errors.Is(err, ErrSeriesExhausted):
		return "series_exhausted"
	case errors.Is(err, ErrIDAllocationFailed):
		return "id_allocation_failed"
	default:
		return "internal_error"
	}
}
