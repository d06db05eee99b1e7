// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/billtrack/billtrack/internal/model"
)

// CreateBillRequest represents the request body for creating a bill.
type CreateBillRequest struct {
	Category string           `json:"category"`
	Amount   *decimal.Decimal `json:"amount"`
	DueDate  model.Date       `json:"dueDate"`
	Receiver string           `json:"receiver"`
	Biller   string           `json:"biller"`
}

// UpdateBillRequest is a merge patch. Absent or null fields are untouched.
type UpdateBillRequest struct {
	Paid             *bool   `json:"paid,omitempty"`
	PaymentRefNumber *string `json:"paymentRefNumber,omitempty"`
}

// ToPatch converts the request to a model patch.
func (r UpdateBillRequest) ToPatch() model.BillPatch {
	return model.BillPatch{Paid: r.Paid, PaymentRefNumber: r.PaymentRefNumber}
}

// BillResponse represents a bill in API responses.
// paymentRefNumber is always present, empty until submitted.
type BillResponse struct {
	ID               string          `json:"id"`
	Category         string          `json:"category"`
	Amount           decimal.Decimal `json:"amount"`
	DueDate          model.Date      `json:"dueDate"`
	Receiver         string          `json:"receiver"`
	Biller           string          `json:"biller"`
	Paid             bool            `json:"paid"`
	PaymentRefNumber string          `json:"paymentRefNumber"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// ToBillResponse converts a Bill model to BillResponse DTO.
func ToBillResponse(bill *model.Bill) BillResponse {
	return BillResponse{
		ID:               bill.ID,
		Category:         bill.Category,
		Amount:           bill.Amount,
		DueDate:          bill.DueDate,
		Receiver:         bill.Receiver,
		Biller:           bill.Biller,
		Paid:             bill.Paid,
		PaymentRefNumber: bill.PaymentRefNumber,
		CreatedAt:        bill.CreatedAt,
		UpdatedAt:        bill.UpdatedAt,
	}
}

// ToBillListResponse converts bills to a JSON array, never null.
func ToBillListResponse(bills []*model.Bill) []BillResponse {
	out := make([]BillResponse, 0, len(bills))
	for _, b := range bills {
		out = append(out, ToBillResponse(b))
	}
	return out
}

// UpsertUserRequest represents the request body for PUT /users/{email}.
type UpsertUserRequest struct {
	UserType string `json:"userType"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	UserType string `json:"userType"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(user *model.User) UserResponse {
	return UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		UserType: string(user.UserType),
	}
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
