package domain

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Balance is a snapshot of the user's credit balance.
type Balance struct {
	Amount    decimal.Decimal
	FetchedAt time.Time
}

// BalanceResponse accepts both shapes GET /balance has used over time.
type BalanceResponse struct {
	Balance *decimal.Decimal `json:"balance"`
	Amount  *decimal.Decimal `json:"amount"`
}

// Value returns whichever field the server populated.
func (r BalanceResponse) Value() (decimal.Decimal, bool) {
	switch {
	case r.Balance != nil:
		return *r.Balance, true
	case r.Amount != nil:
		return *r.Amount, true
	default:
		return decimal.Zero, false
	}
}

// TopUpRequest is the body of POST /balance/topup. The service expects a
// JSON number, so the amount is not sent as a quoted decimal.
type TopUpRequest struct {
	Amount float64 `json:"amount"`
}

// TopUpResult is returned by POST /balance/topup.
type TopUpResult struct {
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	CurrentBalance  decimal.Decimal `json:"current_balance"`
	TransactionID   string          `json:"transaction_id"`
}

// Token is returned by POST /token.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// User is the account record returned by /users endpoints.
type User struct {
	ID       UserID `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// UserID is an account id. The service sends integers; string ids are
// accepted too.
type UserID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *UserID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = UserID(n.String())
	return nil
}

// Registration is the body of POST /users.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}
