package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/victorlunam/schemacmp/internal/compare"
	"github.com/victorlunam/schemacmp/internal/panel"
)

type compareFinishedMsg struct {
	generation int
	result     *compare.ComparisonResult
	err        error
}

type scriptGeneratedMsg struct {
	req panel.GenerateRequest
	err error
}

type panelKeyMap struct {
	Compare         key.Binding
	SwitchDirection key.Binding
	GenerateScript  key.Binding
	Up              key.Binding
	Down            key.Binding
	Quit            key.Binding
	Help            key.Binding
}

func (k panelKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Compare, k.SwitchDirection, k.GenerateScript, k.Quit}
}

func (k panelKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Compare, k.SwitchDirection, k.GenerateScript},
		{k.Up, k.Down, k.Quit, k.Help},
	}
}

var panelKeys = panelKeyMap{
	Compare: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "compare"),
	),
	SwitchDirection: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "switch direction"),
	),
	GenerateScript: key.NewBinding(
		key.WithKeys("g"),
		key.WithHelp("g", "generate script"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "previous row"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "next row"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "toggle help"),
	),
}

// PanelModel renders the schema-compare panel: the results table on top and
// the source/target script panes below it.
type PanelModel struct {
	sess *panel.Session

	table      table.Model
	sourcePane viewport.Model
	targetPane viewport.Model
	spin       spinner.Model
	saveInput  textinput.Model
	keys       panelKeyMap
	help       help.Model

	saving   bool
	width    int
	height   int
	quitting bool
}

func NewPanelModel(sess *panel.Session) PanelModel {
	columns := []table.Column{
		{Title: "Type", Width: 6},
		{Title: "Name", Width: 30},
		{Title: "Source Name", Width: 30},
		{Title: "Action", Width: 8},
		{Title: "Target Name", Width: 30},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	ti := textinput.New()
	ti.Prompt = "Save script as: "

	h := help.New()

	return PanelModel{
		sess:       sess,
		table:      t,
		sourcePane: viewport.New(40, 12),
		targetPane: viewport.New(40, 12),
		spin:       sp,
		saveInput:  ti,
		keys:       panelKeys,
		help:       h,
	}
}

func (m PanelModel) Init() tea.Cmd {
	req := m.sess.StartCompare()
	return tea.Batch(m.spin.Tick, m.runCompare(req))
}

func (m PanelModel) runCompare(req panel.CompareRequest) tea.Cmd {
	return func() tea.Msg {
		result, err := m.sess.Execute(context.Background(), req)
		return compareFinishedMsg{generation: req.Generation, result: result, err: err}
	}
}

func (m PanelModel) runGenerateScript(req panel.GenerateRequest) tea.Cmd {
	return func() tea.Msg {
		return scriptGeneratedMsg{req: req, err: m.sess.ExecuteGenerateScript(context.Background(), req)}
	}
}

func (m PanelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case spinner.TickMsg:
		if m.sess.State() != panel.StateLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case compareFinishedMsg:
		if m.sess.Complete(msg.generation, msg.result, msg.err) {
			m.refreshTable()
			m.syncPanes()
		}
		return m, nil

	case scriptGeneratedMsg:
		m.sess.CompleteGenerateScript(msg.req, msg.err)
		return m, nil

	case tea.KeyMsg:
		if m.saving {
			return m.updateSavePrompt(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m PanelModel) updateSavePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		// Cancelled: abort silently.
		m.saving = false
		m.saveInput.Blur()
		return m, nil
	case "enter":
		m.saving = false
		m.saveInput.Blur()
		req, ok := m.sess.StartGenerateScript(strings.TrimSpace(m.saveInput.Value()))
		if !ok {
			return m, nil
		}
		return m, m.runGenerateScript(req)
	}

	var cmd tea.Cmd
	m.saveInput, cmd = m.saveInput.Update(msg)
	return m, cmd
}

func (m PanelModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Compare):
		if m.sess.State() == panel.StateLoading {
			return m, nil
		}
		req := m.sess.StartCompare()
		m.refreshTable()
		m.syncPanes()
		return m, tea.Batch(m.spin.Tick, m.runCompare(req))

	case key.Matches(msg, m.keys.SwitchDirection):
		if m.sess.State() == panel.StateLoading {
			return m, nil
		}
		req := m.sess.SwitchDirection()
		m.refreshTable()
		m.syncPanes()
		return m, tea.Batch(m.spin.Tick, m.runCompare(req))

	case key.Matches(msg, m.keys.GenerateScript):
		if !m.sess.ActionsEnabled() || !m.sess.HasDifferences() {
			return m, nil
		}
		m.saving = true
		m.saveInput.SetValue(m.sess.DefaultScriptPath(time.Now()))
		m.saveInput.CursorEnd()
		return m, m.saveInput.Focus()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	m.sess.SelectRow(m.table.Cursor())
	m.syncPanes()
	return m, cmd
}

func (m *PanelModel) refreshTable() {
	rows := m.sess.Rows()
	tableRows := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		cells := r.Cells()
		// The Type cell is never filled in; kept that way.
		tableRows = append(tableRows, table.Row{"", cells[0], cells[1], cells[2], cells[3]})
	}
	m.table.SetRows(tableRows)
	m.table.SetCursor(0)
}

func (m *PanelModel) syncPanes() {
	m.sourcePane.SetContent(m.sess.SourceScript())
	m.targetPane.SetContent(m.sess.TargetScript())
	m.sourcePane.GotoTop()
	m.targetPane.GotoTop()
}

func (m *PanelModel) resize() {
	if m.width <= 0 {
		return
	}
	m.table.SetWidth(m.width)

	paneWidth := m.width/2 - 4
	if paneWidth < 20 {
		paneWidth = 20
	}
	paneHeight := m.height - m.table.Height() - 8
	if paneHeight < 5 {
		paneHeight = 5
	}
	m.sourcePane.Width = paneWidth
	m.sourcePane.Height = paneHeight
	m.targetPane.Width = paneWidth
	m.targetPane.Height = paneHeight
}

func (m PanelModel) View() string {
	if m.quitting {
		return ""
	}

	title := titleStyle.Render(fmt.Sprintf("Schema Compare: %s -> %s",
		m.sess.Source().Database, m.sess.Target().Database))

	var status string
	switch {
	case m.sess.State() == panel.StateLoading && m.sess.StatusMessage() == "":
		status = m.spin.View() + " Comparing..."
	default:
		status = statusStyle.Render(m.sess.StatusMessage())
	}

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.JoinVertical(lipgloss.Left,
			paneTitleStyle.Render("Source"),
			paneStyle.Render(m.sourcePane.View()),
		),
		lipgloss.JoinVertical(lipgloss.Left,
			paneTitleStyle.Render("Target"),
			paneStyle.Render(m.targetPane.View()),
		),
	)

	sections := []string{title, status, m.table.View(), panes}
	if m.saving {
		sections = append(sections, m.saveInput.View())
	}
	sections = append(sections, m.help.View(m.keys))

	return appStyle.Render(strings.Join(sections, "\n\n"))
}
