// Package recipe holds the draft a recipe is assembled in before it is
// submitted.
package recipe

import "github.com/hammamikhairi/badbar/internal/domain"

// Draft accumulates a recipe from form input. Ingredients are staged one at
// a time and appended with AddIngredient.
//
// A Draft is not safe for concurrent use; the UI mutates it from its event
// loop only.
type Draft struct {
	name         string
	ingredients  []domain.Ingredient
	staged       domain.Ingredient
	instructions string
	image        string
}

// NewDraft returns an empty draft.
func NewDraft() *Draft {
	return &Draft{}
}

// SetName sets the recipe name.
func (d *Draft) SetName(name string) { d.name = name }

// SetInstructions sets the preparation text.
func (d *Draft) SetInstructions(instructions string) { d.instructions = instructions }

// SetImage sets the picture as a data URI. "" removes it.
func (d *Draft) SetImage(dataURI string) { d.image = dataURI }

// StageName sets the name of the ingredient being staged.
func (d *Draft) StageName(name string) { d.staged.Name = name }

// StageAmount sets the amount of the ingredient being staged.
func (d *Draft) StageAmount(amount string) { d.staged.Amount = amount }

// Name returns the recipe name.
func (d *Draft) Name() string { return d.name }

// Instructions returns the preparation text.
func (d *Draft) Instructions() string { return d.instructions }

// Image returns the picture data URI, or "".
func (d *Draft) Image() string { return d.image }

// Staged returns the ingredient being staged.
func (d *Draft) Staged() domain.Ingredient { return d.staged }

// Ingredients returns a copy of the ingredient list in insertion order.
func (d *Draft) Ingredients() []domain.Ingredient {
	return append([]domain.Ingredient(nil), d.ingredients...)
}

// AddIngredient appends the staged ingredient and clears the staging fields.
// It does nothing unless both name and amount are non-empty. Values are not
// trimmed, so whitespace-only input is accepted.
func (d *Draft) AddIngredient() bool {
	if d.staged.Name == "" || d.staged.Amount == "" {
		return false
	}
	d.ingredients = append(d.ingredients, d.staged)
	d.staged = domain.Ingredient{}
	return true
}

// Add stages name and amount and appends them in one call.
func (d *Draft) Add(name, amount string) bool {
	d.staged = domain.Ingredient{Name: name, Amount: amount}
	if !d.AddIngredient() {
		d.staged = domain.Ingredient{}
		return false
	}
	return true
}

// RemoveIngredient removes the ingredient at position i, preserving the
// order of the rest. Out-of-range indices are ignored.
func (d *Draft) RemoveIngredient(i int) bool {
	if i < 0 || i >= len(d.ingredients) {
		return false
	}
	d.ingredients = append(d.ingredients[:i:i], d.ingredients[i+1:]...)
	return true
}

// Ready reports whether the required fields (name and instructions) are set.
func (d *Draft) Ready() bool {
	return d.name != "" && d.instructions != ""
}

// Recipe returns the draft as an unsaved recipe with no ID or owner.
func (d *Draft) Recipe() domain.Recipe {
	return domain.Recipe{
		Name:         d.name,
		Ingredients:  d.Ingredients(),
		Instructions: d.instructions,
		Image:        d.image,
	}
}

// Reset clears every field, including the staged ingredient.
func (d *Draft) Reset() {
	*d = Draft{}
}

// Empty reports whether the draft holds no input at all.
func (d *Draft) Empty() bool {
	return d.name == "" && len(d.ingredients) == 0 && d.staged == (domain.Ingredient{}) &&
		d.instructions == "" && d.image == ""
}
