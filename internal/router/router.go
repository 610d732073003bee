// Package router selects which of the two screens is shown.
package router

import "sync"

// View identifies a screen.
type View int

const (
	// ViewAddRecipe is the draft form. It is the initial view.
	ViewAddRecipe View = iota
	// ViewListRecipes is the list of the principal's recipes.
	ViewListRecipes
)

// Views lists every view in tab order.
var Views = []View{ViewAddRecipe, ViewListRecipes}

// String returns the config name of the view.
func (v View) String() string {
	switch v {
	case ViewAddRecipe:
		return "add_recipe"
	case ViewListRecipes:
		return "list_recipes"
	default:
		return "unknown"
	}
}

// Title returns the tab label of the view.
func (v View) Title() string {
	switch v {
	case ViewAddRecipe:
		return "Add recipe"
	case ViewListRecipes:
		return "Recipes"
	default:
		return "?"
	}
}

// ViewFromString converts a config name into a View. Unknown names map to
// ViewAddRecipe.
func ViewFromString(name string) View {
	for _, v := range Views {
		if v.String() == name {
			return v
		}
	}
	return ViewAddRecipe
}

// Router holds the current view. It only changes on explicit selection.
type Router struct {
	mu      sync.RWMutex
	current View
}

// New returns a router showing ViewAddRecipe.
func New() *Router {
	return &Router{current: ViewAddRecipe}
}

// Current returns the selected view.
func (r *Router) Current() View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Select switches to v. Unknown views are ignored.
func (r *Router) Select(v View) bool {
	if v != ViewAddRecipe && v != ViewListRecipes {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = v
	return true
}

// Toggle switches to the other view and returns it.
func (r *Router) Toggle() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == ViewAddRecipe {
		r.current = ViewListRecipes
	} else {
		r.current = ViewAddRecipe
	}
	return r.current
}
