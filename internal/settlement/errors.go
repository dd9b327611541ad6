package settlement

import (
	"fmt"
	"strings"

	"github.com/ariefcatur/storefront-settlement/internal/orders"
	"github.com/pkg/errors"
)

var (
	ErrInvalidSignature   = errors.New("payment signature invalid")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrCustomerValidation = errors.New("address email or phone required")
	ErrInvalidRequest     = errors.New("invalid settlement request")
	ErrStorageTransaction = errors.New("storage transaction failed")
)

// InsufficientStockError lists every line that could not be fulfilled.
type InsufficientStockError struct {
	Shortages []orders.Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s requested=%d available=%d", s.SKU, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// StorageError is a transient failure. Retrying the whole settlement is safe.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return "storage transaction failed: " + e.Err.Error() }

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorageTransaction }

// ShortagesOf extracts the shortage list from err, if any.
func ShortagesOf(err error) ([]orders.Shortage, bool) {
	var se *InsufficientStockError
	if errors.As(err, &se) {
		return se.Shortages, true
	}
	return nil, false
}

func invalidRequest(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidRequest, format, args...)
}

// isDomainError reports errors that must reach the caller unchanged rather
// than being reported as storage failures.
func isDomainError(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrCustomerValidation) ||
		errors.Is(err, ErrInvalidRequest)
}
