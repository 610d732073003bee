package display

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/badbar/internal/domain"
	"github.com/hammamikhairi/badbar/internal/engine"
	"github.com/hammamikhairi/badbar/internal/imagedata"
	"github.com/hammamikhairi/badbar/internal/logger"
	"github.com/hammamikhairi/badbar/internal/router"
)

// field is a focusable part of the add-recipe form, in tab order.
type field int

const (
	fieldName field = iota
	fieldIngredientName
	fieldIngredientAmount
	fieldIngredients
	fieldInstructions
	fieldImage
	fieldCount
)

// Messages.
type (
	// changedMsg asks the model to re-read engine state.
	changedMsg struct{}
	// toastMsg shows a transient notification.
	toastMsg struct{ text string }
	// toastExpiredMsg hides the toast with the given id.
	toastExpiredMsg struct{ id int }
	// imageLoadedMsg carries the result of reading an image file. seq
	// identifies the load so results for a cleared form are dropped.
	imageLoadedMsg struct {
		seq  int
		path string
		uri  string
		err  error
	}
)

type model struct {
	ctx           context.Context
	eng           *engine.Engine
	log           *logger.Logger
	readyCh       chan struct{}
	toastDuration time.Duration

	// Form.
	name         textinput.Model
	ingName      textinput.Model
	ingAmount    textinput.Model
	instructions textarea.Model
	imagePath    textinput.Model
	focus        field
	ingCursor    int
	formErr      string
	imageSeq     int    // bumped per load and on clear
	imageFor     string // path the draft image was loaded from

	// List.
	recipes    []domain.Recipe
	synced     bool
	listCursor int
	expanded   map[string]bool

	status  engine.Status
	authErr error

	toast   string
	toastID int

	help    help.Model
	spinner spinner.Model
	width   int
	height  int
}

func newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 40
	ti.TextStyle = primaryStyle
	ti.PlaceholderStyle = secondaryStyle
	return ti
}

func newModel(ctx context.Context, eng *engine.Engine, log *logger.Logger, readyCh chan struct{}, toastDuration time.Duration) model {
	ta := textarea.New()
	ta.Placeholder = "How to make it"
	ta.ShowLineNumbers = false
	ta.CharLimit = 4000
	ta.SetWidth(60)
	ta.SetHeight(4)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = secondaryStyle

	m := model{
		ctx:           ctx,
		eng:           eng,
		log:           log,
		readyCh:       readyCh,
		toastDuration: toastDuration,
		name:          newInput("Mojito", 120),
		ingName:       newInput("Rum", 80),
		ingAmount:     newInput("50ml", 40),
		instructions:  ta,
		imagePath:     newInput("path/to/picture.png", 1024),
		expanded:      make(map[string]bool),
		help:          help.New(),
		spinner:       sp,
	}
	m.name.Focus()
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		signalReady(m.readyCh),
	)
}

// signalReady unblocks UI.WaitReady and forces a fresh read of engine
// state, covering changes that raced with start-up.
func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if ch != nil {
			close(ch)
		}
		return changedMsg{}
	}
}

func expireToast(id int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: id}
	})
}

func loadImage(seq int, path string) tea.Cmd {
	return func() tea.Msg {
		uri, err := imagedata.FromFile(path)
		return imageLoadedMsg{seq: seq, path: path, uri: uri, err: err}
	}
}

// refresh re-reads everything the model mirrors from the engine.
func (m *model) refresh() {
	m.status = m.eng.Status()
	m.authErr = m.eng.AuthError()
	m.recipes = m.eng.Recipes()
	m.synced = m.eng.Synced()

	if m.listCursor >= len(m.recipes) {
		m.listCursor = max(len(m.recipes)-1, 0)
	}
	if n := len(m.eng.Draft().Ingredients()); m.ingCursor >= n {
		m.ingCursor = max(n-1, 0)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		w := max(msg.Width-labelStyle.GetWidth()-6, 20)
		m.name.Width = w
		m.imagePath.Width = w
		m.ingName.Width = w / 2
		m.ingAmount.Width = w / 2
		m.instructions.SetWidth(w)
		return m, nil

	case changedMsg:
		m.refresh()
		return m, nil

	case toastMsg:
		m.toastID++
		m.toast = msg.text
		return m, expireToast(m.toastID, m.toastDuration)

	case toastExpiredMsg:
		if msg.id == m.toastID {
			m.toast = ""
		}
		return m, nil

	case imageLoadedMsg:
		if msg.seq != m.imageSeq {
			m.log.Debug("dropping stale image load for %s", msg.path)
			return m, nil
		}
		if msg.err != nil {
			m.log.Warn("loading image %s: %v", msg.path, msg.err)
			m.formErr = imageError(msg.err)
			return m, nil
		}
		m.eng.Draft().SetImage(msg.uri)
		m.imageFor = msg.path
		m.formErr = ""
		return m, nil

	case spinner.TickMsg:
		if m.status != engine.StatusPending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}
		switch m.status {
		case engine.StatusFailed:
			if msg.String() == "q" || msg.String() == "esc" {
				return m, tea.Quit
			}
			return m, nil
		case engine.StatusPending:
			return m, nil
		}

		if key.Matches(msg, keys.Toggle) {
			m.eng.Router().Toggle()
			return m, m.focusCurrent()
		}
		if m.eng.Router().Current() == router.ViewListRecipes {
			return m.updateList(msg)
		}
		return m.updateForm(msg)
	}

	return m.updateFocused(msg)
}

func imageError(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotImage):
		return "That file is not an image."
	case errors.Is(err, imagedata.ErrTooLarge):
		return "That image is too large."
	default:
		return "Could not read the image."
	}
}

func (m model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.listCursor > 0 {
			m.listCursor--
		}
	case key.Matches(msg, keys.Down):
		if m.listCursor < len(m.recipes)-1 {
			m.listCursor++
		}
	case key.Matches(msg, keys.Expand):
		if m.listCursor < len(m.recipes) {
			id := m.recipes[m.listCursor].ID
			m.expanded[id] = !m.expanded[id]
		}
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case msg.String() == "q":
		return m, tea.Quit
	}
	return m, nil
}

func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	draft := m.eng.Draft()

	switch {
	case key.Matches(msg, keys.Submit):
		m.syncDraft()
		if path := strings.TrimSpace(m.imagePath.Value()); path != m.imageFor {
			if path != "" {
				m.formErr = "The image is not attached yet. Press enter on the image path, or clear it."
				return m, nil
			}
			draft.SetImage("")
			m.imageFor = ""
		}
		if err := m.eng.SubmitDraft(m.ctx); err != nil {
			m.formErr = "A recipe needs a name and instructions."
			return m, nil
		}
		m.clearForm()
		return m, m.setFocus(fieldName)

	case key.Matches(msg, keys.Next):
		return m, m.setFocus((m.focus + 1) % fieldCount)

	case key.Matches(msg, keys.Prev):
		return m, m.setFocus((m.focus + fieldCount - 1) % fieldCount)
	}

	switch m.focus {
	case fieldName:
		if msg.Type == tea.KeyEnter {
			return m, m.setFocus(fieldIngredientName)
		}

	case fieldIngredientName, fieldIngredientAmount:
		if msg.Type == tea.KeyEnter {
			m.syncDraft()
			if draft.AddIngredient() {
				m.ingName.Reset()
				m.ingAmount.Reset()
				m.ingCursor = len(draft.Ingredients()) - 1
				return m, m.setFocus(fieldIngredientName)
			}
			if m.focus == fieldIngredientName {
				return m, m.setFocus(fieldIngredientAmount)
			}
			return m, nil
		}

	case fieldIngredients:
		switch {
		case key.Matches(msg, keys.Up):
			if m.ingCursor > 0 {
				m.ingCursor--
			}
		case key.Matches(msg, keys.Down):
			if m.ingCursor < len(draft.Ingredients())-1 {
				m.ingCursor++
			}
		case key.Matches(msg, keys.Remove):
			if draft.RemoveIngredient(m.ingCursor) && m.ingCursor >= len(draft.Ingredients()) {
				m.ingCursor = max(len(draft.Ingredients())-1, 0)
			}
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case fieldImage:
		if msg.Type == tea.KeyEnter {
			path := strings.TrimSpace(m.imagePath.Value())
			m.imageSeq++
			if path == "" {
				draft.SetImage("")
				m.imageFor = ""
				m.formErr = ""
				return m, nil
			}
			return m, loadImage(m.imageSeq, path)
		}
	}

	return m.updateFocused(msg)
}

// updateFocused forwards msg to the focused input and mirrors the result
// into the draft.
func (m model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.eng.Router().Current() != router.ViewAddRecipe {
		return m, nil
	}

	var cmd tea.Cmd
	switch m.focus {
	case fieldName:
		m.name, cmd = m.name.Update(msg)
	case fieldIngredientName:
		m.ingName, cmd = m.ingName.Update(msg)
	case fieldIngredientAmount:
		m.ingAmount, cmd = m.ingAmount.Update(msg)
	case fieldInstructions:
		m.instructions, cmd = m.instructions.Update(msg)
	case fieldImage:
		m.imagePath, cmd = m.imagePath.Update(msg)
	}
	m.syncDraft()
	return m, cmd
}

// syncDraft copies the input values into the draft.
func (m *model) syncDraft() {
	d := m.eng.Draft()
	d.SetName(m.name.Value())
	d.StageName(m.ingName.Value())
	d.StageAmount(m.ingAmount.Value())
	d.SetInstructions(m.instructions.Value())
}

func (m *model) clearForm() {
	m.name.Reset()
	m.ingName.Reset()
	m.ingAmount.Reset()
	m.instructions.Reset()
	m.imagePath.Reset()
	m.ingCursor = 0
	m.formErr = ""
	m.imageSeq++
	m.imageFor = ""
}

// setFocus moves the form focus to f.
func (m *model) setFocus(f field) tea.Cmd {
	m.focus = f
	m.name.Blur()
	m.ingName.Blur()
	m.ingAmount.Blur()
	m.instructions.Blur()
	m.imagePath.Blur()

	switch f {
	case fieldName:
		return m.name.Focus()
	case fieldIngredientName:
		return m.ingName.Focus()
	case fieldIngredientAmount:
		return m.ingAmount.Focus()
	case fieldInstructions:
		return m.instructions.Focus()
	case fieldImage:
		return m.imagePath.Focus()
	}
	return nil
}

// focusCurrent restores form focus when the form tab is shown and drops it
// otherwise, so the cursor does not blink on the list.
func (m *model) focusCurrent() tea.Cmd {
	if m.eng.Router().Current() == router.ViewAddRecipe {
		return m.setFocus(m.focus)
	}
	m.name.Blur()
	m.ingName.Blur()
	m.ingAmount.Blur()
	m.instructions.Blur()
	m.imagePath.Blur()
	return nil
}

func (m model) View() string {
	switch m.status {
	case engine.StatusFailed:
		return m.viewFailed()
	case engine.StatusPending:
		return "\n  " + m.spinner.View() + secondaryStyle.Render(" Signing in…") + "\n"
	}

	var b strings.Builder
	if m.height == 0 || m.height > bannerHeight+20 {
		b.WriteString(RenderBanner(m.width))
		b.WriteByte('\n')
	}
	b.WriteString(m.viewTabs())
	b.WriteString("\n\n")

	if m.eng.Router().Current() == router.ViewListRecipes {
		b.WriteString(m.viewList())
	} else {
		b.WriteString(m.viewForm())
	}

	b.WriteByte('\n')
	if m.formErr != "" {
		b.WriteString(errorStyle.Render(m.formErr))
		b.WriteByte('\n')
	}
	if m.toast != "" {
		b.WriteString(toastStyle.Render(m.toast))
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(m.viewHelp())
	return b.String()
}

func (m model) viewHelp() string {
	if m.eng.Router().Current() == router.ViewListRecipes {
		return m.help.View(listKeys{keys})
	}
	return m.help.View(formKeys{keys})
}

func (m model) viewFailed() string {
	msg := "Could not sign in."
	if m.authErr != nil {
		msg += "\n\n" + m.authErr.Error()
	}
	msg += "\n\n" + secondaryStyle.Render("press q to quit")

	box := fatalStyle.Render(msg)
	if m.width == 0 || m.height == 0 {
		return box
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m model) viewTabs() string {
	current := m.eng.Router().Current()
	tabs := make([]string, 0, len(router.Views))
	for _, v := range router.Views {
		style := tabStyle
		if v == current {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(v.Title()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}
