package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/billtrack/billtrack/internal/client"
	"github.com/billtrack/billtrack/internal/dashboard"
	"github.com/billtrack/billtrack/internal/model"
	"github.com/billtrack/billtrack/internal/session"
	"github.com/billtrack/billtrack/internal/tui"
)

var errManagerOnly = errors.New("filtering and paging are only available to managers")

func newBillsCmd(c *cli) *cobra.Command {
	bills := &cobra.Command{
		Use:   "bills",
		Short: "List, create and settle bills",
	}
	bills.AddCommand(
		newBillsListCmd(c),
		newBillsAllCmd(c),
		newBillsGetCmd(c),
		newBillsCreateCmd(c),
		newBillsPayCmd(c),
		newBillsMarkPaidCmd(c),
	)
	return bills
}

func newBillsListCmd(c *cli) *cobra.Command {
	var (
		filter string
		page   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show your bills split into overdue, upcoming and paid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.requireSession()
			if err != nil {
				return err
			}
			api := c.client(sess)

			d := dashboard.New(sess, dashboard.WithQuery(filter, page))
			if err := loadOnce(cmd.Context(), api, d); err != nil {
				return err
			}
			if d.Role() != dashboard.RoleManager && (d.Filter() != "" || d.Page() > 1) {
				return errManagerOnly
			}

			printf(cmd, "%s", tui.RenderView(d.View(), ""))
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "only bills for this receiver (managers)")
	cmd.Flags().IntVar(&page, "page", 1, "page number (managers)")
	return cmd
}

// loadOnce issues the dashboard's first requests concurrently, then runs
// any follow-ups in order.
func loadOnce(ctx context.Context, api dashboard.API, d *dashboard.Dashboard) error {
	reqs := d.Start()
	responses := make([]dashboard.Response, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			responses[i] = dashboard.Execute(gctx, api, req)
			if req.Kind == dashboard.RequestListBills && responses[i].Err != nil {
				return fmt.Errorf("list bills: %w", responses[i].Err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var follow []dashboard.Request
	for _, resp := range responses {
		follow = append(follow, d.Handle(resp)...)
	}
	dashboard.Drain(ctx, api, d, follow)
	return nil
}

func newBillsAllCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Show every bill regardless of owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.loadSession()
			if err != nil {
				return err
			}
			bills, err := c.client(sess).ListAllBills(cmd.Context())
			if err != nil {
				return err
			}

			caps := dashboard.RoleManager.Capabilities()
			t := dashboard.Table{
				Title:   "All Bills",
				Status:  model.BillStatusPaid,
				Columns: append(caps.Columns(model.BillStatusPaid), "Paid"),
			}
			for _, b := range bills {
				ref := b.PaymentRefNumber
				if ref == "" {
					ref = dashboard.NotAvailable
				}
				t.Rows = append(t.Rows, dashboard.Row{Bill: b, RefCell: ref})
			}
			printf(cmd, "%s", tui.RenderTableWith(t, "", func(r dashboard.Row) []string {
				return []string{yesNo(r.Bill.Paid)}
			}))
			return nil
		},
	}
}

func newBillsGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one bill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.loadSession()
			if err != nil {
				return err
			}
			b, err := c.client(sess).GetBill(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			ref := b.PaymentRefNumber
			if ref == "" {
				ref = dashboard.NotAvailable
			}
			printf(cmd, "id:          %s\ncategory:    %s\namount:      %s\ndue date:    %s\nreceiver:    %s\nbiller:      %s\npaid:        %s\npayment ref: %s\n",
				b.ID, b.Category, b.Amount.StringFixed(2), b.DueDate, b.Receiver, b.Biller, yesNo(b.Paid), ref)
			return nil
		},
	}
}

type createInput struct {
	category string
	amount   string
	due      string
	receiver string
	biller   string
}

func (in createInput) complete() bool {
	for _, s := range []string{in.category, in.amount, in.due, in.receiver, in.biller} {
		if strings.TrimSpace(s) == "" {
			return false
		}
	}
	return true
}

func (in createInput) toRequest() (client.NewBill, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(in.amount))
	if err != nil {
		return client.NewBill{}, fmt.Errorf("invalid amount %q", in.amount)
	}
	due, err := model.ParseDate(in.due)
	if err != nil {
		return client.NewBill{}, err
	}
	return client.NewBill{
		Category: strings.TrimSpace(in.category),
		Amount:   amount,
		DueDate:  due,
		Receiver: strings.TrimSpace(in.receiver),
		Biller:   model.NormalizeEmail(in.biller),
	}, nil
}

func newBillsCreateCmd(c *cli) *cobra.Command {
	var in createInput

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a bill (prompts for anything not given as a flag)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.loadSession()
			if err != nil {
				return err
			}
			if in.biller == "" {
				in.biller = sess.Email
			}

			if !in.complete() {
				if err := createForm(&in).RunWithContext(cmd.Context()); err != nil {
					return fmt.Errorf("create form: %w", err)
				}
			}

			req, err := in.toRequest()
			if err != nil {
				return err
			}
			b, err := c.client(sess).CreateBill(cmd.Context(), req)
			if err != nil {
				return err
			}
			printf(cmd, "Created bill %s\n", b.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.category, "category", "", "bill category")
	f.StringVar(&in.amount, "amount", "", "amount, e.g. 120.50")
	f.StringVar(&in.due, "due", "", "due date (YYYY-MM-DD)")
	f.StringVar(&in.receiver, "receiver", "", "who receives the payment")
	f.StringVar(&in.biller, "biller", "", "email of the payer (defaults to the logged-in email)")
	return cmd
}

func createForm(in *createInput) *huh.Form {
	return huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Category").Value(&in.category).Validate(requireText("category")),
		huh.NewInput().Title("Amount").Value(&in.amount).Validate(func(s string) error {
			if _, err := decimal.NewFromString(strings.TrimSpace(s)); err != nil {
				return errors.New("amount must be a number")
			}
			return nil
		}),
		huh.NewInput().Title("Due Date").Placeholder(model.DateLayout).Value(&in.due).Validate(func(s string) error {
			_, err := model.ParseDate(s)
			return err
		}),
		huh.NewInput().Title("Receiver").Value(&in.receiver).Validate(requireText("receiver")),
		huh.NewInput().Title("Biller").Value(&in.biller).Validate(requireText("biller")),
	))
}

func newBillsPayCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "pay ID REF",
		Short: "Submit a payment reference for a bill",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.requireSession()
			if err != nil {
				return err
			}
			api := c.client(sess)
			if !c.capabilities(cmd.Context(), api, sess).EditPaymentRef {
				return dashboard.ErrNotAllowed
			}
			ref := strings.TrimSpace(args[1])
			if ref == "" {
				return dashboard.ErrEmptyDraft
			}
			if _, err := api.UpdateBill(cmd.Context(), args[0], model.PaymentRefPatch(ref)); err != nil {
				return fmt.Errorf("failed to update bill payment: %w", err)
			}
			printf(cmd, "Bill payment submitted successfully\n")
			return nil
		},
	}
}

func newBillsMarkPaidCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-paid ID",
		Short: "Mark a bill as paid (managers)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := c.requireSession()
			if err != nil {
				return err
			}
			api := c.client(sess)
			if !c.capabilities(cmd.Context(), api, sess).MarkPaid {
				return dashboard.ErrNotAllowed
			}
			if _, err := api.UpdateBill(cmd.Context(), args[0], model.MarkPaidPatch()); err != nil {
				return fmt.Errorf("failed to mark bill as paid: %w", err)
			}
			printf(cmd, "Bill marked as paid successfully\n")
			return nil
		},
	}
}

// capabilities resolves the session's role. A failed lookup falls back
// to member rights.
func (c *cli) capabilities(ctx context.Context, api *client.Client, sess session.Session) dashboard.Capabilities {
	user, err := api.GetUserDetails(ctx, sess.Email)
	if err != nil {
		c.logger.Warn("fetch user type", "email", sess.Email, "error", err)
		return dashboard.RoleUnknown.Capabilities()
	}
	return dashboard.RoleFor(user.UserType).Capabilities()
}

func newReceiversCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "receivers",
		Short: "List the distinct bill receivers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := c.loadSession()
			if err != nil {
				return err
			}
			receivers, err := c.client(sess).ListUniqueReceivers(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range receivers {
				printf(cmd, "%s\n", r)
			}
			return nil
		},
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
