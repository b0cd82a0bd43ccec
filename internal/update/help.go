package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/makerio90/checklist/internal/views"
)

const paletteHelpMarkdown = "`/check <task>` `/uncheck <task>` `/toggle <task>` `/check all` `/uncheck all` `/goto <checklist>` `/preview [n]`"

// keyMap feeds bubbles/help: globals in the short form, globals plus the
// current view's keys in the full form.
type keyMap struct {
	global  []key.Binding
	current []key.Binding
}

func (k keyMap) ShortHelp() []key.Binding  { return k.global }
func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{k.global, k.current} }

func binding(keys, desc string) key.Binding {
	return key.NewBinding(key.WithKeys(keys), key.WithHelp(keys, desc))
}

func (m Model) keyMap() keyMap {
	km := keyMap{
		global: []key.Binding{
			binding(m.Keys.Checklist, "checklist view"),
			binding(m.Keys.Overview, "overview"),
			binding("/", "command palette"),
			binding(m.Keys.Preview, "upcoming resets"),
			binding(m.Keys.Help, "help"),
			binding(m.Keys.Quit, "quit"),
		},
	}
	switch m.CurrentView {
	case ViewChecklist:
		km.current = []key.Binding{
			binding("j/k", "move cursor"),
			binding("h/l", "previous/next checklist"),
			binding("space", "toggle task"),
			binding(m.Keys.CheckAll+"/"+m.Keys.ClearAll, "check all / uncheck all"),
		}
	case ViewOverview:
		km.current = []key.Binding{
			binding("j/k", "move selection"),
			binding("enter", "open checklist"),
		}
	}
	return km
}

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	km := m.keyMap()
	plain := make([]string, 0, len(km.current))
	for _, b := range km.current {
		plain = append(plain, fmt.Sprintf("- %s: %s", b.Help().Key, b.Help().Desc))
	}
	if len(plain) == 0 {
		plain = append(plain, "- no keys specific to this view")
	}
	hm := m.helpModel
	hm.ShowAll = true
	return views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		Bindings:    plain,
		HelpView:    hm.View(km),
		Commands:    views.RenderMarkdown(paletteHelpMarkdown),
	})
}
