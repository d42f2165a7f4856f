package methods

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/dragonpay/backend/internal/domain"
)

// Spec is an immutable payout method catalog entry. PercentFee is
// expressed in percent (2 means 2%); FixedFee, MinAmount and MaxAmount
// are in currency units with two-decimal precision.
type Spec struct {
	Name           string
	DisplayName    string
	FixedFee       decimal.Decimal
	PercentFee     decimal.Decimal
	MinAmount      decimal.Decimal
	MaxAmount      decimal.Decimal
	ProcessingTime string
	Currency       string
}

// Registry is the process-wide payout method catalog. It is built once
// at startup and read-only thereafter, so lookups need no locking.
type Registry struct {
	order []string
	specs map[string]Spec
}

// New builds a registry from the given specs, preserving their order.
// Duplicate or empty names are rejected.
func New(specs ...Spec) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("method spec without a name")
		}
		if _, exists := r.specs[spec.Name]; exists {
			return nil, fmt.Errorf("method %q: %w", spec.Name, domain.ErrDuplicateID)
		}
		if spec.MinAmount.IsNegative() || spec.MaxAmount.LessThan(spec.MinAmount) {
			return nil, fmt.Errorf("method %q has inconsistent amount bounds", spec.Name)
		}
		r.specs[spec.Name] = spec
		r.order = append(r.order, spec.Name)
	}
	return r, nil
}

// Default returns the registry loaded with the standard catalog.
func Default() *Registry {
	r, err := New(defaultCatalog()...)
	if err != nil {
		// The built-in catalog is static and always valid.
		panic(err)
	}
	return r
}

// Lookup returns the spec registered under name.
func (r *Registry) Lookup(name string) (Spec, error) {
	spec, ok := r.specs[name]
	if !ok {
		return Spec{}, fmt.Errorf("method %q: %w", name, domain.ErrUnknownMethod)
	}
	return spec, nil
}

// Validate checks amount against the named method's constraints.
// Boundary amounts are accepted: [MinAmount, MaxAmount] is inclusive.
func (r *Registry) Validate(name string, amount decimal.Decimal) error {
	spec, err := r.Lookup(name)
	if err != nil {
		return err
	}
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if amount.LessThan(spec.MinAmount) {
		return fmt.Errorf("method %q min %s: %w", name, spec.MinAmount, domain.ErrAmountBelowMinimum)
	}
	if amount.GreaterThan(spec.MaxAmount) {
		return fmt.Errorf("method %q max %s: %w", name, spec.MaxAmount, domain.ErrAmountAboveMaximum)
	}
	return nil
}

// Fee computes the charge for sending amount through the named method:
// the percentage part rounded half-up to two decimals, plus the fixed
// part. Pure function of the spec and amount.
func (r *Registry) Fee(name string, amount decimal.Decimal) (decimal.Decimal, error) {
	spec, err := r.Lookup(name)
	if err != nil {
		return decimal.Zero, err
	}
	return FeeFor(spec, amount), nil
}

// FeeFor computes the fee for a spec directly. decimal.Round rounds
// half away from zero, which is round-half-up for the non-negative
// amounts this engine permits.
func FeeFor(spec Spec, amount decimal.Decimal) decimal.Decimal {
	pct := amount.Mul(spec.PercentFee).Div(decimal.NewFromInt(100)).Round(2)
	return pct.Add(spec.FixedFee)
}

// List returns all specs in catalog order.
func (r *Registry) List() []Spec {
	out := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.specs[name])
	}
	return out
}

func defaultCatalog() []Spec {
	return []Spec{
		{
			Name:           "ach",
			DisplayName:    "ACH",
			FixedFee:       decimal.RequireFromString("0.25"),
			PercentFee:     decimal.Zero,
			MinAmount:      decimal.RequireFromString("1.00"),
			MaxAmount:      decimal.RequireFromString("25000.00"),
			ProcessingTime: "1-3 business days",
			Currency:       "USD",
		},
		{
			Name:           "paypal",
			DisplayName:    "PayPal",
			FixedFee:       decimal.RequireFromString("0.30"),
			PercentFee:     decimal.RequireFromString("2.0"),
			MinAmount:      decimal.RequireFromString("1.00"),
			MaxAmount:      decimal.RequireFromString("10000.00"),
			ProcessingTime: "within minutes",
			Currency:       "USD",
		},
		{
			Name:           "venmo",
			DisplayName:    "Venmo",
			FixedFee:       decimal.Zero,
			PercentFee:     decimal.RequireFromString("1.5"),
			MinAmount:      decimal.RequireFromString("1.00"),
			MaxAmount:      decimal.RequireFromString("5000.00"),
			ProcessingTime: "within minutes",
			Currency:       "USD",
		},
		{
			Name:           "cash_app",
			DisplayName:    "Cash App",
			FixedFee:       decimal.Zero,
			PercentFee:     decimal.RequireFromString("1.75"),
			MinAmount:      decimal.RequireFromString("1.00"),
			MaxAmount:      decimal.RequireFromString("7500.00"),
			ProcessingTime: "within minutes",
			Currency:       "USD",
		},
		{
			Name:           "intl_bank",
			DisplayName:    "International Bank",
			FixedFee:       decimal.RequireFromString("5.00"),
			PercentFee:     decimal.RequireFromString("1.0"),
			MinAmount:      decimal.RequireFromString("10.00"),
			MaxAmount:      decimal.RequireFromString("50000.00"),
			ProcessingTime: "3-5 business days",
			Currency:       "USD",
		},
	}
}
