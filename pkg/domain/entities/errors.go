package entities

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Sentinel categories, matched with errors.Is
var (
	ErrNotFound               = errors.New("not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrCircularBOM            = errors.New("circular bom")
	ErrBOMDepthExceeded       = errors.New("bom depth exceeded")
	ErrNoCostAvailable        = errors.New("no cost available")
	ErrMissingDensity         = errors.New("missing density")
	ErrUnsupportedUnit        = errors.New("unsupported unit")
	ErrInvalidOverride        = errors.New("invalid override")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrInvalidArgument        = errors.New("invalid argument")
)

// NotFoundError reports a missing item, lot, transaction or formula
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InsufficientStockError reports a FIFO issue that cannot be satisfied
type InsufficientStockError struct {
	SKU       string
	Requested decimal.Decimal
	Available decimal.Decimal
	Shortfall decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	subject := e.SKU
	if subject == "" {
		subject = "item"
	}
	return fmt.Sprintf("insufficient stock for %s: requested %s, available %s, short %s",
		subject, e.Requested, e.Available, e.Shortfall)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// CircularBOMError carries the SKU path that closes a cycle
type CircularBOMError struct {
	Path []string
}

func (e *CircularBOMError) Error() string {
	return fmt.Sprintf("circular bom: %s", strings.Join(e.Path, " -> "))
}

func (e *CircularBOMError) Is(target error) bool { return target == ErrCircularBOM }

// BOMDepthExceededError reports a non-cyclic graph deeper than the configured bound
type BOMDepthExceededError struct {
	Path     []string
	MaxDepth int
}

func (e *BOMDepthExceededError) Error() string {
	return fmt.Sprintf("bom depth exceeds %d: %s", e.MaxDepth, strings.Join(e.Path, " -> "))
}

func (e *BOMDepthExceededError) Is(target error) bool { return target == ErrBOMDepthExceeded }

// NoCostAvailableError reports a leaf with no actual, standard or estimated cost
type NoCostAvailableError struct {
	SKU string
}

func (e *NoCostAvailableError) Error() string {
	return fmt.Sprintf("no cost available for %s", e.SKU)
}

func (e *NoCostAvailableError) Is(target error) bool { return target == ErrNoCostAvailable }

// MissingDensityError reports a volume/mass conversion requested without density
type MissingDensityError struct {
	From string
	To   string
}

func (e *MissingDensityError) Error() string {
	return fmt.Sprintf("density required to convert %s to %s", e.From, e.To)
}

func (e *MissingDensityError) Is(target error) bool { return target == ErrMissingDensity }

// UnsupportedUnitError reports a unit outside the known unit set
type UnsupportedUnitError struct {
	Unit string
}

func (e *UnsupportedUnitError) Error() string {
	return fmt.Sprintf("unsupported unit %q", e.Unit)
}

func (e *UnsupportedUnitError) Is(target error) bool { return target == ErrUnsupportedUnit }

// InvalidOverrideError reports a negative-stock override without its audit note
type InvalidOverrideError struct {
	Reason string
}

func (e *InvalidOverrideError) Error() string {
	return fmt.Sprintf("invalid override: %s", e.Reason)
}

func (e *InvalidOverrideError) Is(target error) bool { return target == ErrInvalidOverride }

// ConcurrentModificationError reports a lost optimistic version check on a lot
type ConcurrentModificationError struct {
	LotCode string
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("lot %s was modified concurrently", e.LotCode)
}

func (e *ConcurrentModificationError) Is(target error) bool {
	return target == ErrConcurrentModification
}

// InvalidArgumentError reports a rejected input field
type InvalidArgumentError struct {
	Field  string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool { return target == ErrInvalidArgument }
