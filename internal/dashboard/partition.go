package dashboard

import (
	"time"

	"github.com/billtrack/billtrack/internal/model"
)

// Partition splits a page of bills by status. Every bill lands in exactly
// one slice and input order is kept within each slice.
type Partition struct {
	Overdue  []model.Bill
	Upcoming []model.Bill
	Paid     []model.Bill
}

// PartitionBills classifies bills relative to now. A due date is compared
// as UTC midnight of that day.
func PartitionBills(bills []model.Bill, now time.Time) Partition {
	var p Partition
	for _, b := range bills {
		switch b.Status(now) {
		case model.BillStatusPaid:
			p.Paid = append(p.Paid, b)
		case model.BillStatusOverdue:
			p.Overdue = append(p.Overdue, b)
		default:
			p.Upcoming = append(p.Upcoming, b)
		}
	}
	return p
}

// Len returns the number of bills across all partitions.
func (p Partition) Len() int {
	return len(p.Overdue) + len(p.Upcoming) + len(p.Paid)
}
