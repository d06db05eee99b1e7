package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/billtrack/billtrack/internal/dashboard"
	"github.com/billtrack/billtrack/internal/model"
)

func sampleRow(paid bool, ref string) dashboard.Row {
	return dashboard.Row{
		Bill: model.Bill{
			ID: "b1", Category: "Rent", Amount: decimal.RequireFromString("900"),
			DueDate: model.NewDate(2030, time.May, 1), Receiver: "Landlord",
			Biller: "alice@example.com", Paid: paid, PaymentRefNumber: ref,
		},
		RefCell: ref,
	}
}

func TestRenderTable_ManagerActionColumn(t *testing.T) {
	caps := dashboard.RoleManager.Capabilities()
	row := sampleRow(false, dashboard.NotAvailable)
	row.Actions = caps.RowActions()

	out := RenderTable(dashboard.Table{
		Title:   "Unpaid and Overdue Bills",
		Status:  model.BillStatusOverdue,
		Columns: caps.Columns(model.BillStatusOverdue),
		Rows:    []dashboard.Row{row},
	}, "")

	for _, want := range []string{"Unpaid and Overdue Bills", "Action", "Mark as Paid", "900.00", "2030-05-01", "N/A"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderTable_PaidHasNoActions(t *testing.T) {
	caps := dashboard.RoleManager.Capabilities()
	out := RenderTable(dashboard.Table{
		Title:   "Paid Bills",
		Status:  model.BillStatusPaid,
		Columns: caps.Columns(model.BillStatusPaid),
		Rows:    []dashboard.Row{sampleRow(true, "REF-1")},
	}, "b1")

	if strings.Contains(out, "Action") || strings.Contains(out, "Mark as Paid") {
		t.Errorf("paid table should have no action column:\n%s", out)
	}
	if !strings.Contains(out, "REF-1") {
		t.Errorf("missing reference:\n%s", out)
	}
}

func TestRenderTable_Empty(t *testing.T) {
	out := RenderTable(dashboard.Table{Title: "Paid Bills", Columns: []string{"Category"}}, "")
	if !strings.Contains(out, "none") {
		t.Errorf("expected empty marker:\n%s", out)
	}
}

func TestRenderView_Pager(t *testing.T) {
	out := RenderView(dashboard.View{
		LoggedIn:    true,
		Email:       "boss@example.com",
		Caps:        dashboard.RoleManager.Capabilities(),
		Page:        2,
		PrevEnabled: true,
	}, "")

	for _, want := range []string{"boss@example.com", "Filter by Receiver:", "All", "Page 2", "Previous", "Next"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}
