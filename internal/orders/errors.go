package orders

import "errors"

// Error validasi: dilaporkan ke caller, tanpa side effect.
var (
	ErrInvalidAddress    = errors.New("address does not belong to caller")
	ErrStaleCart         = errors.New("cart does not match requested items")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrNotOrderOwner     = errors.New("order does not belong to caller")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrStatusConflict    = errors.New("order status changed concurrently")
	ErrInvalidInput      = errors.New("invalid input")
)

// IsValidation: true untuk semua error yang harus jadi 4xx, bukan 5xx.
func IsValidation(err error) bool {
	for _, e := range []error{
		ErrInvalidAddress, ErrStaleCart, ErrInsufficientStock,
		ErrProductNotFound, ErrNotOrderOwner, ErrInvalidTransition,
		ErrStatusConflict, ErrInvalidInput,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
