// Package domain defines the core types and interfaces for the recipe manager.
// All other packages depend on domain; domain depends on nothing.
package domain

// CollectionRecipes is the document collection recipes are stored in.
const CollectionRecipes = "cocktails"

// Principal is the opaque identity assigned by the identity provider.
// The zero value means nobody is signed in.
type Principal string

// Valid reports whether p identifies someone.
func (p Principal) Valid() bool { return p != "" }

// Recipe is a submitted recipe as stored in the document collection.
// ID is empty until the store assigns one on creation.
type Recipe struct {
	ID           string       `json:"id,omitempty"`
	Name         string       `json:"name"`
	Ingredients  []Ingredient `json:"ingredients"`
	Instructions string       `json:"instructions"`
	Image        string       `json:"image"` // data URI or ""
	Owner        Principal    `json:"userId"`
}

// Ingredient is a single ingredient line. Amount is a free-text label
// ("50ml", "10 leaves"); no units are parsed.
type Ingredient struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// Clone returns a deep copy of r.
func (r Recipe) Clone() Recipe {
	out := r
	if r.Ingredients != nil {
		out.Ingredients = append([]Ingredient(nil), r.Ingredients...)
	}
	return out
}

// Snapshot is the full result set of a live query at one point in time.
type Snapshot []Recipe
