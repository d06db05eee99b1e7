package dashboard

import (
	"context"
	"fmt"

	"github.com/billtrack/billtrack/internal/client"
	"github.com/billtrack/billtrack/internal/model"
)

// API is the subset of the HTTP client the dashboard needs.
// *client.Client implements it.
type API interface {
	ListBills(ctx context.Context, email string, q client.ListQuery) ([]model.Bill, error)
	GetUserDetails(ctx context.Context, email string) (*model.User, error)
	ListUniqueReceivers(ctx context.Context) ([]string, error)
	UpdateBill(ctx context.Context, id string, patch model.BillPatch) (*model.Bill, error)
}

// Response is the outcome of executing a Request.
type Response struct {
	Request   Request
	Bills     []model.Bill
	User      *model.User
	Receivers []string
	Bill      *model.Bill
	Err       error
}

// Execute performs req against api. It never panics on an unknown kind;
// the error is carried in the Response.
func Execute(ctx context.Context, api API, req Request) Response {
	resp := Response{Request: req}
	switch req.Kind {
	case RequestListBills:
		resp.Bills, resp.Err = api.ListBills(ctx, req.Email, client.ListQuery{
			Filter: req.Filter,
			Page:   req.Page,
			Limit:  req.Limit,
		})
	case RequestUserDetails:
		resp.User, resp.Err = api.GetUserDetails(ctx, req.Email)
	case RequestReceivers:
		resp.Receivers, resp.Err = api.ListUniqueReceivers(ctx)
	case RequestUpdateBill:
		resp.Bill, resp.Err = api.UpdateBill(ctx, req.BillID, req.Patch)
	default:
		resp.Err = fmt.Errorf("unknown request kind %d", req.Kind)
	}
	return resp
}

// Handle routes a Response to the matching handler and returns any follow-up
// requests.
func (d *Dashboard) Handle(resp Response) []Request {
	switch resp.Request.Kind {
	case RequestListBills:
		d.HandleBills(resp.Request.Seq, resp.Bills, resp.Err)
	case RequestUserDetails:
		return d.HandleUser(resp.User, resp.Err)
	case RequestReceivers:
		d.HandleReceivers(resp.Receivers, resp.Err)
	case RequestUpdateBill:
		return d.ApplyUpdate(resp.Request, resp.Bill, resp.Err)
	}
	return nil
}

// Drain executes reqs and every follow-up in order until none remain.
// It suits one-shot callers; the TUI runs requests asynchronously instead.
func Drain(ctx context.Context, api API, d *Dashboard, reqs []Request) {
	for len(reqs) > 0 {
		req := reqs[0]
		reqs = append(reqs[1:], d.Handle(Execute(ctx, api, req))...)
	}
}
