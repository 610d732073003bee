package recipe

import (
	"strings"

	"github.com/hammamikhairi/badbar/internal/domain"
)

// FormatIngredient renders an ingredient as "name - amount".
func FormatIngredient(in domain.Ingredient) string {
	return in.Name + " - " + in.Amount
}

// ParseIngredient splits "name=amount" as given on the command line.
func ParseIngredient(s string) (domain.Ingredient, bool) {
	name, amount, ok := strings.Cut(s, "=")
	if !ok {
		return domain.Ingredient{}, false
	}
	return domain.Ingredient{Name: name, Amount: amount}, true
}
