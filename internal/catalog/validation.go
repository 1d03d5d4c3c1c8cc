package catalog

import (
	"fmt"
	"strings"

	"github.com/pinoygym/StarterBuildKit-Zapweb.app-sub006/internal/shared"
)

// ValidateUnits checks the product's unit structure: alternate UOM names
// must be unique case-insensitively, distinct from the base UOM, and carry
// a positive conversion factor.
func ValidateUnits(p Product) error {
	base := normalizeUnit(p.BaseUOM)
	if base == "" {
		return shared.NewValidation("base uom is required", map[string]string{"base_uom": "required"})
	}
	seen := make(map[string]struct{}, len(p.AlternateUOMs))
	for _, alt := range p.AlternateUOMs {
		name := normalizeUnit(alt.Name)
		if name == "" {
			return shared.NewValidation("alternate uom name is required", map[string]string{"name": "required"})
		}
		if name == base {
			return shared.NewValidation(
				fmt.Sprintf("alternate uom %q duplicates the base uom", alt.Name),
				map[string]string{"name": "must differ from base uom"},
			)
		}
		if _, dup := seen[name]; dup {
			return shared.NewValidation(
				fmt.Sprintf("duplicate alternate uom %q", strings.TrimSpace(alt.Name)),
				map[string]string{"name": "must be unique per product"},
			)
		}
		seen[name] = struct{}{}
		if alt.ConversionFactor <= 0 {
			return shared.NewValidation(
				fmt.Sprintf("alternate uom %q needs a positive conversion factor", alt.Name),
				map[string]string{"conversion_factor": "must be > 0"},
			)
		}
	}
	return nil
}
