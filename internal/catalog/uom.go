package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/shared"
)

// UOMResolution describes how a named unit maps onto a product's base unit.
// One unit of the requested UOM equals Factor base units.
type UOMResolution struct {
	Factor float64
	IsBase bool
}

// ResolveUOM resolves unit against the product's base and alternate UOMs.
// Matching is trimmed and case-insensitive. Unknown units fail with a
// validation error naming the product, the unit and the valid unit set.
func ResolveUOM(p Product, unit string) (UOMResolution, error) {
	needle := normalizeUnit(unit)
	if needle == "" {
		return UOMResolution{}, shared.NewValidation("uom is required", map[string]string{"uom": "required"})
	}
	if needle == normalizeUnit(p.BaseUOM) {
		return UOMResolution{Factor: 1, IsBase: true}, nil
	}
	for _, alt := range p.AlternateUOMs {
		if normalizeUnit(alt.Name) == needle {
			// A non-positive factor would make the base-unit conversion
			// divide by zero and poison the stored average cost.
			if alt.ConversionFactor <= 0 {
				return UOMResolution{}, shared.NewValidation(
					fmt.Sprintf("uom %q for product %s has a non-positive conversion factor", alt.Name, p.Name),
					map[string]string{"conversion_factor": "must be > 0"},
				)
			}
			return UOMResolution{Factor: alt.ConversionFactor}, nil
		}
	}
	return UOMResolution{}, shared.NewValidation(
		fmt.Sprintf("uom %q not found for product %s; valid units: %s", unit, p.Name, strings.Join(ValidUnits(p), ", ")),
		map[string]string{"uom": "invalid UOM for this product"},
	)
}

// ToBaseQuantity converts qty expressed in unit into base units.
func ToBaseQuantity(p Product, qty float64, unit string) (float64, error) {
	res, err := ResolveUOM(p, unit)
	if err != nil {
		return 0, err
	}
	return qty * res.Factor, nil
}

// CostInUOM expresses the product's average cost in the given unit
// (base cost times the unit's conversion factor).
func CostInUOM(p Product, unit string) (float64, error) {
	res, err := ResolveUOM(p, unit)
	if err != nil {
		return 0, err
	}
	return p.AverageCostPrice * res.Factor, nil
}

// ValidUnits lists the base UOM followed by the alternate names, sorted.
func ValidUnits(p Product) []string {
	units := make([]string, 0, len(p.AlternateUOMs)+1)
	units = append(units, p.BaseUOM)
	for _, alt := range p.AlternateUOMs {
		units = append(units, alt.Name)
	}
	sort.Strings(units[1:])
	return units
}

func normalizeUnit(unit string) string {
	return strings.ToLower(strings.TrimSpace(unit))
}
