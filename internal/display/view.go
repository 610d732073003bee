package display

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/imagedata"
	"github.com/hammamikhairi/badbar/internal/recipe"
)

func (m model) label(f field, text string) string {
	if m.focus == f {
		return focusedLabelStyle.Render(text)
	}
	return labelStyle.Render(text)
}

func (m model) viewForm() string {
	draft := m.eng.Draft()
	var b strings.Builder

	row := func(f field, label, value string) {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, m.label(f, label), value))
		b.WriteByte('\n')
	}

	row(fieldName, "Name", m.name.View())
	b.WriteByte('\n')
	row(fieldIngredientName, "Ingredient", m.ingName.View())
	row(fieldIngredientAmount, "Amount", m.ingAmount.View())
	row(fieldIngredients, "Added", m.viewIngredients(draft.Ingredients()))
	b.WriteByte('\n')
	row(fieldInstructions, "Instructions", m.instructions.View())
	b.WriteByte('\n')
	row(fieldImage, "Image", m.imagePath.View())
	if img := draft.Image(); img != "" {
		row(-1, "", secondaryStyle.Render(describeImage(img)))
	}
	return b.String()
}

func (m model) viewIngredients(list []domain.Ingredient) string {
	if len(list) == 0 {
		return secondaryStyle.Render("none yet")
	}
	lines := make([]string, len(list))
	for i, in := range list {
		text := fmt.Sprintf("%d. %s", i+1, recipe.FormatIngredient(in))
		if m.focus == fieldIngredients && i == m.ingCursor {
			lines[i] = selectedStyle.Render("› " + text)
		} else {
			lines[i] = primaryStyle.Render("  " + text)
		}
	}
	return strings.Join(lines, "\n")
}

func (m model) viewList() string {
	if !m.synced {
		return secondaryStyle.Render("Loading recipes…")
	}
	if len(m.recipes) == 0 {
		return secondaryStyle.Render("No recipes yet. Add one with ctrl+t.")
	}

	panels := make([]string, len(m.recipes))
	for i, r := range m.recipes {
		panels[i] = m.viewRecipe(r, i == m.listCursor)
	}
	return strings.Join(panels, "\n")
}

func (m model) viewRecipe(r domain.Recipe, selected bool) string {
	title := r.Name
	if selected {
		title = selectedStyle.Render(title)
	} else {
		title = primaryStyle.Render(title)
	}
	count := secondaryStyle.Render(fmt.Sprintf("  %s", pluralize(len(r.Ingredients), "ingredient")))

	if !m.expanded[r.ID] {
		marker := "▸ "
		return marker + title + count
	}

	var b strings.Builder
	b.WriteString("▾ " + title + count + "\n")
	for _, in := range r.Ingredients {
		b.WriteString(primaryStyle.Render("  • "+recipe.FormatIngredient(in)) + "\n")
	}
	if r.Instructions != "" {
		b.WriteString("\n" + primaryStyle.Render(r.Instructions) + "\n")
	}
	if r.Image != "" {
		b.WriteString("\n" + secondaryStyle.Render(describeImage(r.Image)) + "\n")
	}

	style := panelStyle
	if selected {
		style = openPanelStyle
	}
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(strings.TrimRight(b.String(), "\n"))
}

// describeImage summarizes an image field, e.g. "image/png, 12 kB".
func describeImage(uri string) string {
	mime, size, err := imagedata.Info(uri)
	if err != nil {
		return "image: " + uri
	}
	return fmt.Sprintf("%s, %s", mime, humanize.Bytes(uint64(size)))
}

func pluralize(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return humanize.Comma(int64(n)) + " " + word + "s"
}
