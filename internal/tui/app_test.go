package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/billtrack/billtrack/internal/client"
	"github.com/billtrack/billtrack/internal/dashboard"
	"github.com/billtrack/billtrack/internal/model"
	"github.com/billtrack/billtrack/internal/session"
)

var fixedNow = time.Date(2030, time.June, 15, 12, 0, 0, 0, time.UTC)

type fakeAPI struct {
	bills   []model.Bill
	users   map[string]model.UserType
	patches []model.BillPatch
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		users: map[string]model.UserType{
			"alice@example.com": model.UserTypeMember,
			"boss@example.com":  model.UserTypeManager,
		},
		bills: []model.Bill{
			{ID: "b1", Category: "Electricity", Amount: decimal.RequireFromString("120.50"),
				DueDate: model.NewDate(2030, time.June, 1), Receiver: "Alice", Biller: "alice@example.com"},
			{ID: "b2", Category: "Water", Amount: decimal.RequireFromString("40"),
				DueDate: model.NewDate(2030, time.July, 1), Receiver: "Bob", Biller: "alice@example.com"},
		},
	}
}

func (f *fakeAPI) ListBills(_ context.Context, email string, q client.ListQuery) ([]model.Bill, error) {
	manager := f.users[email] == model.UserTypeManager
	var out []model.Bill
	for _, b := range f.bills {
		if !manager && b.Biller != email {
			continue
		}
		if q.Filter != "" && b.Receiver != q.Filter {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeAPI) GetUserDetails(_ context.Context, email string) (*model.User, error) {
	ut, ok := f.users[email]
	if !ok {
		return nil, client.ErrNotFound
	}
	return &model.User{ID: "u-" + email, Email: email, UserType: ut}, nil
}

func (f *fakeAPI) ListUniqueReceivers(context.Context) ([]string, error) {
	return []string{"Alice", "Bob"}, nil
}

func (f *fakeAPI) UpdateBill(_ context.Context, id string, patch model.BillPatch) (*model.Bill, error) {
	f.patches = append(f.patches, patch)
	for i := range f.bills {
		if f.bills[i].ID == id {
			patch.Apply(&f.bills[i])
			b := f.bills[i]
			return &b, nil
		}
	}
	return nil, client.ErrNotFound
}

func newTestApp(t *testing.T, api *fakeAPI, email string) App {
	t.Helper()
	d := dashboard.New(session.Session{Email: email}, dashboard.WithClock(func() time.Time { return fixedNow }))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewApp(d, api, logger, nil)
	return drain(t, a, a.run(d.Start()))
}

// drain runs commands synchronously, feeding responses back into Update.
func drain(t *testing.T, a App, cmd tea.Cmd) App {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case responseMsg:
			m, next := a.Update(msg)
			a = m.(App)
			queue = append(queue, next)
		default:
			t.Fatalf("unexpected message %T", msg)
		}
	}
	return a
}

func press(a App, msg tea.KeyMsg) (App, tea.Cmd) {
	m, cmd := a.Update(msg)
	return m.(App), cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestApp_LoggedOut(t *testing.T) {
	a := newTestApp(t, newFakeAPI(), "")

	if cmd := a.run(a.dash.Start()); cmd != nil {
		t.Fatal("logged-out dashboard should not fetch")
	}
	if !strings.Contains(a.View(), "Please log in") {
		t.Fatalf("expected login prompt, got:\n%s", a.View())
	}

	a, cmd := press(a, runes("j"))
	if cmd != nil || a.cursor != 0 {
		t.Fatal("navigation should be inert while logged out")
	}
}

func TestApp_MemberRendersTables(t *testing.T) {
	a := newTestApp(t, newFakeAPI(), "alice@example.com")

	out := a.View()
	for _, want := range []string{
		"Unpaid and Overdue Bills", "Upcoming Unpaid Bills", "Paid Bills",
		"Electricity", "120.50", "2030-06-01", "enter edit ref",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Filter by Receiver") || strings.Contains(out, "Page 1") {
		t.Error("member view should not offer filter or pagination")
	}
}

func TestApp_MemberSubmitsPaymentRef(t *testing.T) {
	api := newFakeAPI()
	a := newTestApp(t, api, "alice@example.com")

	a, _ = press(a, tea.KeyMsg{Type: tea.KeyEnter})
	if a.editing != "b1" {
		t.Fatalf("expected editing b1, got %q", a.editing)
	}
	a, _ = press(a, runes("REF-77"))
	a, cmd := press(a, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatal("submit should issue an update")
	}
	a = drain(t, a, cmd)

	if len(api.patches) != 1 || api.patches[0].PaymentRefNumber == nil || *api.patches[0].PaymentRefNumber != "REF-77" {
		t.Fatalf("unexpected patches: %+v", api.patches)
	}
	if api.patches[0].Paid != nil {
		t.Error("payment reference must not touch paid")
	}
	if a.editing != "" || a.dash.Draft("b1") != "" {
		t.Error("draft should be cleared after a successful submit")
	}
	if !strings.Contains(a.View(), "Bill payment submitted successfully") {
		t.Errorf("expected success notice:\n%s", a.View())
	}
}

func TestApp_EscKeepsDraft(t *testing.T) {
	a := newTestApp(t, newFakeAPI(), "alice@example.com")

	a, _ = press(a, runes("j"))
	a, _ = press(a, tea.KeyMsg{Type: tea.KeyEnter})
	a, _ = press(a, runes("half"))
	a, cmd := press(a, tea.KeyMsg{Type: tea.KeyEsc})
	if cmd != nil {
		t.Fatal("esc should not submit")
	}
	if got := a.dash.Draft("b2"); got != "half" {
		t.Fatalf("expected draft kept, got %q", got)
	}
}

func TestApp_EmptyDraftNotSent(t *testing.T) {
	api := newFakeAPI()
	a := newTestApp(t, api, "alice@example.com")

	a, _ = press(a, tea.KeyMsg{Type: tea.KeyEnter})
	_, cmd := press(a, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || len(api.patches) != 0 {
		t.Fatal("empty draft should not reach the server")
	}
}

func TestApp_MemberCannotMarkPaid(t *testing.T) {
	api := newFakeAPI()
	a := newTestApp(t, api, "alice@example.com")

	if _, cmd := press(a, runes("m")); cmd != nil {
		t.Fatal("member should not be able to mark paid")
	}
	if _, cmd := press(a, runes("f")); cmd != nil {
		t.Fatal("member should not be able to filter")
	}
}

func TestApp_ManagerMarksPaid(t *testing.T) {
	api := newFakeAPI()
	a := newTestApp(t, api, "boss@example.com")

	if !strings.Contains(a.View(), "Filter by Receiver") {
		t.Fatalf("manager view should offer the filter:\n%s", a.View())
	}

	a, cmd := press(a, runes("m"))
	if cmd == nil {
		t.Fatal("mark paid should issue an update")
	}
	a = drain(t, a, cmd)

	if !api.bills[0].Paid {
		t.Fatal("bill b1 should be paid")
	}
	paid := a.dash.View().Tables[2]
	if len(paid.Rows) != 1 || paid.Rows[0].Bill.ID != "b1" {
		t.Fatalf("expected b1 in the paid table, got %+v", paid.Bills())
	}
	if !strings.Contains(a.View(), "Bill marked as paid successfully") {
		t.Errorf("expected success notice:\n%s", a.View())
	}
}

func TestApp_ManagerCyclesFilter(t *testing.T) {
	a := newTestApp(t, newFakeAPI(), "boss@example.com")

	var cmd tea.Cmd
	for _, want := range []string{"Alice", "Bob", ""} {
		a, cmd = press(a, runes("f"))
		a = drain(t, a, cmd)
		if got := a.dash.Filter(); got != want {
			t.Fatalf("expected filter %q, got %q", want, got)
		}
		if a.dash.Page() != 1 {
			t.Fatalf("filter change should reset to page 1")
		}
	}

	a, cmd = press(a, runes("f"))
	a = drain(t, a, cmd)
	if n := len(a.dash.Bills()); n != 1 {
		t.Fatalf("expected 1 bill for Alice, got %d", n)
	}
}

func TestApp_CursorBounds(t *testing.T) {
	a := newTestApp(t, newFakeAPI(), "alice@example.com")

	a, _ = press(a, runes("k"))
	if a.cursor != 0 {
		t.Fatalf("cursor should stay at 0, got %d", a.cursor)
	}
	for range 5 {
		a, _ = press(a, runes("j"))
	}
	if a.cursor != 1 {
		t.Fatalf("cursor should stop at the last row, got %d", a.cursor)
	}
}

func TestApp_ReloadUsesLoader(t *testing.T) {
	api := newFakeAPI()
	d := dashboard.New(session.Session{}, dashboard.WithClock(func() time.Time { return fixedNow }))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewApp(d, api, logger, func() (session.Session, error) {
		return session.Session{Email: "alice@example.com"}, nil
	})

	a, cmd := press(a, runes("r"))
	a = drain(t, a, cmd)

	if !a.dash.LoggedIn() || len(a.dash.Bills()) != 2 {
		t.Fatalf("reload should adopt the stored session and fetch, got %d bills", len(a.dash.Bills()))
	}
}
