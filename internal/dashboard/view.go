package dashboard

import "github.com/billtrack/billtrack/internal/model"

// NotAvailable is shown in place of a missing payment reference.
const NotAvailable = "N/A"

// Row is one rendered bill.
type Row struct {
	Bill model.Bill
	// RefCell is the stored reference (or N/A) for read-only viewers and
	// the current draft for editors.
	RefCell string
	Actions []Action
}

// Table is one of the three status tables.
type Table struct {
	Title   string
	Status  model.BillStatus
	Columns []string
	Rows    []Row
}

// View is a render-ready snapshot of the dashboard.
type View struct {
	LoggedIn    bool
	Email       string
	Role        Role
	Caps        Capabilities
	Tables      []Table
	Filter      string
	Receivers   []string
	Page        int
	PrevEnabled bool
	NextEnabled bool
	Loading     bool
	Notice      *Notice
}

// View partitions the current page against the clock and builds the tables.
func (d *Dashboard) View() View {
	v := View{
		LoggedIn: d.LoggedIn(),
		Email:    d.sess.Email,
		Role:     d.role,
		Caps:     d.Capabilities(),
		Filter:   d.filter,
		Page:     d.page,
		Loading:  d.loading,
	}
	if d.notice != nil {
		n := *d.notice
		v.Notice = &n
	}
	if !v.LoggedIn {
		return v
	}

	v.Receivers = d.receivers
	v.PrevEnabled = d.PrevEnabled()
	v.NextEnabled = d.NextEnabled()

	p := PartitionBills(d.bills, d.now())
	v.Tables = []Table{
		d.table("Unpaid and Overdue Bills", model.BillStatusOverdue, p.Overdue),
		d.table("Upcoming Unpaid Bills", model.BillStatusUpcoming, p.Upcoming),
		d.table("Paid Bills", model.BillStatusPaid, p.Paid),
	}
	return v
}

func (d *Dashboard) table(title string, status model.BillStatus, bills []model.Bill) Table {
	caps := d.Capabilities()
	t := Table{
		Title:   title,
		Status:  status,
		Columns: caps.Columns(status),
		Rows:    make([]Row, 0, len(bills)),
	}
	for _, b := range bills {
		row := Row{Bill: b}
		switch {
		case caps.ShowPaymentRef || b.Paid:
			row.RefCell = b.PaymentRefNumber
			if row.RefCell == "" {
				row.RefCell = NotAvailable
			}
		default:
			row.RefCell = d.drafts[b.ID]
		}
		if !b.Paid {
			row.Actions = caps.RowActions()
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Bills returns the bills shown in the table, in row order.
func (t Table) Bills() []model.Bill {
	out := make([]model.Bill, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Bill
	}
	return out
}
