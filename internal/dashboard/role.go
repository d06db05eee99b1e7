// Package dashboard holds the view state of the bill dashboard: which bills
// are shown, how they are partitioned, what the viewer may do with them and
// which requests must be issued next. It performs no I/O itself; callers
// execute the returned Requests and feed the Responses back.
package dashboard

import "github.com/billtrack/billtrack/internal/model"

// Role is the viewer's resolved privilege level.
type Role int

const (
	// RoleUnknown is the state before the user lookup answers. It renders
	// like a member.
	RoleUnknown Role = iota
	RoleMember
	RoleManager
)

// RoleFor maps a stored user type to a Role.
func RoleFor(t model.UserType) Role {
	if t.IsManager() {
		return RoleManager
	}
	return RoleMember
}

func (r Role) String() string {
	switch r {
	case RoleMember:
		return "member"
	case RoleManager:
		return "manager"
	default:
		return "unknown"
	}
}

// Action is something a viewer can do to a row.
type Action int

const (
	ActionSubmitPaymentRef Action = iota + 1
	ActionMarkPaid
)

func (a Action) String() string {
	switch a {
	case ActionSubmitPaymentRef:
		return "Submit Payment"
	case ActionMarkPaid:
		return "Mark as Paid"
	default:
		return ""
	}
}

// Capabilities describes the columns, row actions and controls a role gets.
type Capabilities struct {
	// EditPaymentRef renders a draft input and submit action on unpaid rows.
	EditPaymentRef bool
	// ShowPaymentRef renders the stored reference, or N/A, read-only.
	ShowPaymentRef bool
	MarkPaid       bool
	FilterReceiver bool
	Paginate       bool
}

var (
	memberCapabilities = Capabilities{EditPaymentRef: true}

	managerCapabilities = Capabilities{
		ShowPaymentRef: true,
		MarkPaid:       true,
		FilterReceiver: true,
		Paginate:       true,
	}
)

// Capabilities returns the capability set of the role.
func (r Role) Capabilities() Capabilities {
	if r == RoleManager {
		return managerCapabilities
	}
	return memberCapabilities
}

// RowActions returns the actions offered on an unpaid row. Paid rows have none.
func (c Capabilities) RowActions() []Action {
	var actions []Action
	if c.EditPaymentRef {
		actions = append(actions, ActionSubmitPaymentRef)
	}
	if c.MarkPaid {
		actions = append(actions, ActionMarkPaid)
	}
	return actions
}

// Column headers shared by every table.
var baseColumns = []string{"Category", "Amount", "Due Date", "Receiver", "Biller", "Payment Ref Number"}

// Columns returns the headers for a table of bills with the given status.
func (c Capabilities) Columns(status model.BillStatus) []string {
	cols := append([]string(nil), baseColumns...)
	if c.MarkPaid && status != model.BillStatusPaid {
		cols = append(cols, "Action")
	}
	return cols
}
