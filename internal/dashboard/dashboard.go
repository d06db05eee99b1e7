package dashboard

import (
	"errors"
	"strings"
	"time"

	"github.com/billtrack/billtrack/internal/model"
	"github.com/billtrack/billtrack/internal/session"
)

// PageSize is the fixed number of bills requested per page.
const PageSize = 10

// Errors returned when an action is rejected before any request is made.
var (
	ErrNotLoggedIn = errors.New("not logged in")
	ErrNotAllowed  = errors.New("action not available for this role")
	ErrUnknownBill = errors.New("bill is not on the current page")
	ErrAlreadyPaid = errors.New("bill is already paid")
	ErrEmptyDraft  = errors.New("enter a payment reference first")
)

// RequestKind names the server call a Request stands for.
type RequestKind int

const (
	RequestListBills RequestKind = iota + 1
	RequestUserDetails
	RequestReceivers
	RequestUpdateBill
)

// Request is a server call the dashboard needs made.
type Request struct {
	Kind RequestKind
	// Seq orders list requests; only the answer to the latest one is applied.
	Seq    uint64
	Email  string
	Filter string
	Page   int
	Limit  int
	BillID string
	Patch  model.BillPatch
}

// NoticeKind separates success toasts from failures.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeError
)

// Notice is a transient message for the viewer.
type Notice struct {
	Kind NoticeKind
	Text string
}

// Option configures a Dashboard.
type Option func(*Dashboard)

// WithClock overrides the wall clock used for partitioning.
func WithClock(now func() time.Time) Option {
	return func(d *Dashboard) { d.now = now }
}

// WithQuery seeds the filter and page of the first list request. Reload
// goes back to page 1 without a filter.
func WithQuery(filter string, page int) Option {
	return func(d *Dashboard) {
		d.startFilter = strings.TrimSpace(filter)
		d.startPage = page
	}
}

// Dashboard is the view state for one session. It is not safe for
// concurrent use; drive it from a single event loop.
type Dashboard struct {
	sess session.Session
	now  func() time.Time

	bills  []model.Bill
	loaded bool

	role               Role
	roleRequested      bool
	receivers          []string
	receiversRequested bool

	drafts map[string]string
	filter string
	page   int

	seq     uint64
	loading bool
	notice  *Notice

	startFilter string
	startPage   int
}

// New creates a dashboard for sess. Nothing is fetched until Start.
func New(sess session.Session, opts ...Option) *Dashboard {
	d := &Dashboard{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	d.reset(sess)
	d.filter = d.startFilter
	if d.startPage > 1 {
		d.page = d.startPage
	}
	return d
}

func (d *Dashboard) reset(sess session.Session) {
	d.sess = sess
	d.bills = nil
	d.loaded = false
	d.role = RoleUnknown
	d.roleRequested = false
	d.receivers = nil
	d.receiversRequested = false
	d.drafts = make(map[string]string)
	d.filter = ""
	d.page = 1
	d.loading = false
	d.notice = nil
	// seq keeps counting so answers to requests issued before the reset
	// are recognised as stale.
}

// Session returns the session the dashboard was built for.
func (d *Dashboard) Session() session.Session {
	return d.sess
}

// LoggedIn reports whether the session carries an identity.
func (d *Dashboard) LoggedIn() bool {
	return d.sess.LoggedIn()
}

// Start returns the initial requests: the first page and the role lookup.
// A logged-out dashboard fetches nothing.
func (d *Dashboard) Start() []Request {
	if !d.LoggedIn() {
		return nil
	}
	reqs := []Request{d.listRequest()}
	if !d.roleRequested {
		d.roleRequested = true
		reqs = append(reqs, Request{Kind: RequestUserDetails, Email: d.sess.Email})
	}
	return reqs
}

// Reload discards all view state, including drafts, adopts sess and
// starts over.
func (d *Dashboard) Reload(sess session.Session) []Request {
	d.reset(sess)
	return d.Start()
}

func (d *Dashboard) listRequest() Request {
	d.seq++
	d.loading = true
	return Request{
		Kind:   RequestListBills,
		Seq:    d.seq,
		Email:  d.sess.Email,
		Filter: d.filter,
		Page:   d.page,
		Limit:  PageSize,
	}
}

// Role returns the resolved role.
func (d *Dashboard) Role() Role {
	return d.role
}

// Capabilities returns what the current role may see and do.
func (d *Dashboard) Capabilities() Capabilities {
	return d.role.Capabilities()
}

// Bills returns the current page as last confirmed by the server.
func (d *Dashboard) Bills() []model.Bill {
	return d.bills
}

// Page returns the 1-based page number.
func (d *Dashboard) Page() int {
	return d.page
}

// Filter returns the selected receiver, empty for all.
func (d *Dashboard) Filter() string {
	return d.filter
}

// Receivers returns the known receivers for the filter control.
func (d *Dashboard) Receivers() []string {
	return d.receivers
}

// Loading reports whether a list request is outstanding.
func (d *Dashboard) Loading() bool {
	return d.loading
}

// PrevEnabled reports whether there is a page before the current one.
func (d *Dashboard) PrevEnabled() bool {
	return d.page > 1
}

// NextEnabled reports whether the last page came back full. A short page
// is taken as the end of the list.
func (d *Dashboard) NextEnabled() bool {
	return len(d.bills) >= PageSize
}

// SetFilter selects a receiver ("" for all) and goes back to page 1.
func (d *Dashboard) SetFilter(receiver string) []Request {
	if !d.LoggedIn() || !d.Capabilities().FilterReceiver {
		return nil
	}
	receiver = strings.TrimSpace(receiver)
	if receiver == d.filter {
		return nil
	}
	d.filter = receiver
	d.page = 1
	return []Request{d.listRequest()}
}

// NextPage advances one page when allowed.
func (d *Dashboard) NextPage() []Request {
	if !d.LoggedIn() || !d.Capabilities().Paginate || !d.NextEnabled() {
		return nil
	}
	d.page++
	return []Request{d.listRequest()}
}

// PrevPage goes back one page when allowed.
func (d *Dashboard) PrevPage() []Request {
	if !d.LoggedIn() || !d.Capabilities().Paginate || !d.PrevEnabled() {
		return nil
	}
	d.page--
	return []Request{d.listRequest()}
}

// SetDraft records the in-progress payment reference for a bill.
func (d *Dashboard) SetDraft(billID, text string) {
	if text == "" {
		delete(d.drafts, billID)
		return
	}
	d.drafts[billID] = text
}

// Draft returns the in-progress payment reference for a bill.
func (d *Dashboard) Draft(billID string) string {
	return d.drafts[billID]
}

// SubmitPaymentRef builds the update that sends the bill's draft reference.
func (d *Dashboard) SubmitPaymentRef(billID string) (Request, error) {
	if _, err := d.actionTarget(billID, d.Capabilities().EditPaymentRef); err != nil {
		return Request{}, err
	}
	ref := strings.TrimSpace(d.drafts[billID])
	if ref == "" {
		return Request{}, ErrEmptyDraft
	}
	return Request{Kind: RequestUpdateBill, BillID: billID, Patch: model.PaymentRefPatch(ref)}, nil
}

// MarkPaid builds the update that settles a bill.
func (d *Dashboard) MarkPaid(billID string) (Request, error) {
	if _, err := d.actionTarget(billID, d.Capabilities().MarkPaid); err != nil {
		return Request{}, err
	}
	return Request{Kind: RequestUpdateBill, BillID: billID, Patch: model.MarkPaidPatch()}, nil
}

func (d *Dashboard) actionTarget(billID string, allowed bool) (*model.Bill, error) {
	if !d.LoggedIn() {
		return nil, ErrNotLoggedIn
	}
	if !allowed {
		return nil, ErrNotAllowed
	}
	for i := range d.bills {
		if d.bills[i].ID != billID {
			continue
		}
		if d.bills[i].Paid {
			return nil, ErrAlreadyPaid
		}
		return &d.bills[i], nil
	}
	return nil, ErrUnknownBill
}

// HandleBills applies the answer to a list request. Answers to anything
// but the latest issued list request are dropped and false is returned.
// On failure the previous page stays on screen.
func (d *Dashboard) HandleBills(seq uint64, bills []model.Bill, err error) bool {
	if seq != d.seq {
		return false
	}
	d.loading = false
	if err != nil {
		d.setNotice(NoticeError, "Failed to fetch bills")
		return true
	}
	d.bills = bills
	d.loaded = true
	return true
}

// HandleUser applies the role lookup. A manager role triggers the one-time
// receivers request.
func (d *Dashboard) HandleUser(user *model.User, err error) []Request {
	if err != nil || user == nil {
		d.setNotice(NoticeError, "Failed to fetch user type")
		return nil
	}
	d.role = RoleFor(user.UserType)
	if d.role != RoleManager || d.receiversRequested {
		return nil
	}
	d.receiversRequested = true
	return []Request{{Kind: RequestReceivers}}
}

// HandleReceivers applies the receivers list.
func (d *Dashboard) HandleReceivers(receivers []string, err error) {
	if err != nil {
		d.setNotice(NoticeError, "Failed to fetch filter options")
		return
	}
	d.receivers = receivers
}

// ApplyUpdate is the second half of an update: once the server has
// confirmed, the draft is dropped and the page is fetched again. Nothing
// local changes on failure.
func (d *Dashboard) ApplyUpdate(req Request, bill *model.Bill, err error) []Request {
	markPaid := req.Patch.Paid != nil
	if err != nil || bill == nil {
		if markPaid {
			d.setNotice(NoticeError, "Failed to mark bill as paid")
		} else {
			d.setNotice(NoticeError, "Failed to update bill payment")
		}
		return nil
	}

	if req.Patch.PaymentRefNumber != nil {
		delete(d.drafts, req.BillID)
	}
	if markPaid {
		d.setNotice(NoticeInfo, "Bill marked as paid successfully")
	} else {
		d.setNotice(NoticeInfo, "Bill payment submitted successfully")
	}

	if !d.LoggedIn() {
		return nil
	}
	return []Request{d.listRequest()}
}

func (d *Dashboard) setNotice(kind NoticeKind, text string) {
	d.notice = &Notice{Kind: kind, Text: text}
}

// Notice returns the pending notice, if any.
func (d *Dashboard) Notice() (Notice, bool) {
	if d.notice == nil {
		return Notice{}, false
	}
	return *d.notice, true
}

// DismissNotice clears the pending notice.
func (d *Dashboard) DismissNotice() {
	d.notice = nil
}
