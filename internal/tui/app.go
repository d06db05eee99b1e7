// Package tui is the interactive terminal dashboard.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/billtrack/billtrack/internal/dashboard"
	"github.com/billtrack/billtrack/internal/session"
)

// responseMsg carries a finished server call back into the update loop.
type responseMsg struct {
	resp dashboard.Response
}

// SessionLoader re-reads the stored session on reload.
type SessionLoader func() (session.Session, error)

// App is the Bubble Tea model wrapping a dashboard.
type App struct {
	dash        *dashboard.Dashboard
	api         dashboard.API
	logger      *slog.Logger
	loadSession SessionLoader

	spinner spinner.Model
	input   textinput.Model
	// editing is the id of the bill whose draft is being typed.
	editing string
	cursor  int
}

// NewApp creates the model. loadSession may be nil, in which case reload
// keeps the current session.
func NewApp(d *dashboard.Dashboard, api dashboard.API, logger *slog.Logger, loadSession SessionLoader) App {
	if logger == nil {
		logger = slog.Default()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = mutedStyle

	ti := textinput.New()
	ti.Placeholder = "Payment Ref Number"
	ti.CharLimit = 64
	ti.Width = 32

	return App{
		dash:        d,
		api:         api,
		logger:      logger,
		loadSession: loadSession,
		spinner:     sp,
		input:       ti,
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.run(a.dash.Start()))
}

// run turns requests into commands executed off the update loop.
func (a App) run(reqs []dashboard.Request) tea.Cmd {
	if len(reqs) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, 0, len(reqs))
	for _, req := range reqs {
		cmds = append(cmds, func() tea.Msg {
			return responseMsg{resp: dashboard.Execute(context.Background(), a.api, req)}
		})
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case responseMsg:
		if msg.resp.Err != nil {
			a.logger.Warn("request failed",
				"kind", int(msg.resp.Request.Kind),
				"bill_id", msg.resp.Request.BillID,
				"error", msg.resp.Err,
			)
		}
		follow := a.dash.Handle(msg.resp)
		a.clampCursor()
		return a, a.run(follow)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if a.editing != "" {
			return a.updateEditing(msg)
		}
		return a.updateKeys(msg)
	}
	return a, nil
}

func (a App) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key != "esc" {
		a.dash.DismissNotice()
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "esc":
		a.dash.DismissNotice()
		return a, nil
	case "r":
		return a.reload()
	}

	if !a.dash.LoggedIn() {
		return a, nil
	}

	switch key {
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.rows())-1 {
			a.cursor++
		}
	case "right", "n":
		a.cursor = 0
		return a, a.run(a.dash.NextPage())
	case "left", "b":
		a.cursor = 0
		return a, a.run(a.dash.PrevPage())
	case "f":
		a.cursor = 0
		return a, a.run(a.dash.SetFilter(a.nextFilter()))
	case "enter", "e":
		row, ok := a.selected()
		if !ok || !a.dash.Capabilities().EditPaymentRef || row.Bill.Paid {
			return a, nil
		}
		a.editing = row.Bill.ID
		a.input.SetValue(a.dash.Draft(row.Bill.ID))
		a.input.CursorEnd()
		return a, a.input.Focus()
	case "m":
		row, ok := a.selected()
		if !ok {
			return a, nil
		}
		req, err := a.dash.MarkPaid(row.Bill.ID)
		if err != nil {
			a.logger.Debug("mark paid rejected", "bill_id", row.Bill.ID, "error", err)
			return a, nil
		}
		return a, a.run([]dashboard.Request{req})
	}
	return a, nil
}

func (a App) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		id := a.editing
		a.dash.SetDraft(id, a.input.Value())
		a.stopEditing()
		req, err := a.dash.SubmitPaymentRef(id)
		if err != nil {
			a.logger.Debug("payment reference rejected", "bill_id", id, "error", err)
			return a, nil
		}
		return a, a.run([]dashboard.Request{req})
	case "esc":
		// Keep what was typed as the draft without sending it.
		a.dash.SetDraft(a.editing, a.input.Value())
		a.stopEditing()
		return a, nil
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a *App) stopEditing() {
	a.editing = ""
	a.input.Blur()
	a.input.SetValue("")
}

func (a App) reload() (tea.Model, tea.Cmd) {
	sess := a.dash.Session()
	if a.loadSession != nil {
		loaded, err := a.loadSession()
		if err != nil {
			a.logger.Warn("reload session", "error", err)
		} else {
			sess = loaded
		}
	}
	a.stopEditing()
	a.cursor = 0
	return a, a.run(a.dash.Reload(sess))
}

// nextFilter cycles All -> each receiver -> All.
func (a App) nextFilter() string {
	options := append([]string{""}, a.dash.Receivers()...)
	current := a.dash.Filter()
	for i, opt := range options {
		if opt == current {
			return options[(i+1)%len(options)]
		}
	}
	return ""
}

func (a App) rows() []dashboard.Row {
	var rows []dashboard.Row
	for _, t := range a.dash.View().Tables {
		rows = append(rows, t.Rows...)
	}
	return rows
}

func (a App) selected() (dashboard.Row, bool) {
	rows := a.rows()
	if a.cursor < 0 || a.cursor >= len(rows) {
		return dashboard.Row{}, false
	}
	return rows[a.cursor], true
}

func (a *App) clampCursor() {
	n := len(a.rows())
	if a.cursor >= n {
		a.cursor = n - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
}

// View implements tea.Model.
func (a App) View() string {
	v := a.dash.View()

	var b strings.Builder
	b.WriteString(titleStyle.Render("billtrack"))
	if v.Loading {
		b.WriteString(" " + a.spinner.View())
	}
	b.WriteString("\n\n")

	selectedID := ""
	if row, ok := a.selected(); ok {
		selectedID = row.Bill.ID
	}
	b.WriteString(RenderView(v, selectedID))

	if a.editing != "" {
		fmt.Fprintf(&b, "\n%s %s\n", mutedStyle.Render("Payment Ref Number:"), a.input.View())
	}

	if v.Notice != nil {
		style := okStyle
		if v.Notice.Kind == dashboard.NoticeError {
			style = errorStyle
		}
		b.WriteString("\n" + style.Render(v.Notice.Text) + "\n")
	}

	b.WriteString("\n" + mutedStyle.Render(a.helpLine(v)) + "\n")
	return b.String()
}

func (a App) helpLine(v dashboard.View) string {
	if !v.LoggedIn {
		return "r reload  q quit"
	}
	if a.editing != "" {
		return "enter submit  esc keep draft"
	}
	parts := []string{"j/k move"}
	if v.Caps.EditPaymentRef {
		parts = append(parts, "enter edit ref")
	}
	if v.Caps.MarkPaid {
		parts = append(parts, "m mark paid")
	}
	if v.Caps.FilterReceiver {
		parts = append(parts, "f filter")
	}
	if v.Caps.Paginate {
		parts = append(parts, "b/n page")
	}
	parts = append(parts, "r reload", "q quit")
	return strings.Join(parts, "  ")
}
