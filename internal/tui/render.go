package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/billtrack/billtrack/internal/dashboard"
)

// RenderTable draws one status table. selectedID highlights a row.
func RenderTable(t dashboard.Table, selectedID string) string {
	return RenderTableWith(t, selectedID, actionCells(t))
}

// RenderTableWith is RenderTable with extra trailing cells per row, one for
// each column past the six bill columns.
func RenderTableWith(t dashboard.Table, selectedID string, extra func(dashboard.Row) []string) string {
	rows := make([][]string, 0, len(t.Rows))
	selected := -1
	for i, r := range t.Rows {
		if r.Bill.ID == selectedID {
			selected = i
		}
		cells := billCells(r)
		if extra != nil {
			cells = append(cells, extra(r)...)
		}
		rows = append(rows, cells)
	}

	tbl := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(t.Columns...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row == selected:
				return selectedStyle
			default:
				return cellStyle
			}
		})

	var b strings.Builder
	b.WriteString(titleStyle.Render(t.Title))
	b.WriteString("\n")
	if len(t.Rows) == 0 {
		b.WriteString(mutedStyle.Render("  none"))
		b.WriteString("\n")
		return b.String()
	}
	b.WriteString(tbl.Render())
	b.WriteString("\n")
	return b.String()
}

func billCells(r dashboard.Row) []string {
	return []string{
		r.Bill.Category,
		r.Bill.Amount.StringFixed(2),
		r.Bill.DueDate.String(),
		r.Bill.Receiver,
		r.Bill.Biller,
		r.RefCell,
	}
}

// actionCells fills the Action column when the table has one.
func actionCells(t dashboard.Table) func(dashboard.Row) []string {
	if len(t.Columns) == 0 || t.Columns[len(t.Columns)-1] != "Action" {
		return nil
	}
	return func(r dashboard.Row) []string {
		names := make([]string, 0, len(r.Actions))
		for _, a := range r.Actions {
			if a == dashboard.ActionMarkPaid {
				names = append(names, a.String())
			}
		}
		return []string{strings.Join(names, " ")}
	}
}

// RenderView draws the three tables plus the filter and pagination line.
func RenderView(v dashboard.View, selectedID string) string {
	if !v.LoggedIn {
		return warnStyle.Render("Please log in to view your bills.") + "\n" +
			mutedStyle.Render("Run `billctl login` first.") + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", mutedStyle.Render("Signed in as"), v.Email)

	if v.Caps.FilterReceiver {
		filter := v.Filter
		if filter == "" {
			filter = "All"
		}
		fmt.Fprintf(&b, "%s %s\n\n", mutedStyle.Render("Filter by Receiver:"), filter)
	}

	for _, t := range v.Tables {
		b.WriteString(RenderTable(t, selectedID))
		b.WriteString("\n")
	}

	if v.Caps.Paginate {
		b.WriteString(pager(v))
		b.WriteString("\n")
	}
	return b.String()
}

func pager(v dashboard.View) string {
	prev, next := "Previous", "Next"
	if !v.PrevEnabled {
		prev = mutedStyle.Render(prev)
	}
	if !v.NextEnabled {
		next = mutedStyle.Render(next)
	}
	return fmt.Sprintf("%s  Page %d  %s", prev, v.Page, next)
}
