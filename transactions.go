package pagou

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const transactionsBasePath = "/v2/transactions"

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionPending  TransactionStatus = "pending"
	TransactionPaid     TransactionStatus = "paid"
	TransactionFailed   TransactionStatus = "failed"
	TransactionRefunded TransactionStatus = "refunded"
	TransactionCanceled TransactionStatus = "canceled"
)

// Transaction is a payment transaction as returned by the API.
type Transaction struct {
	ID            string            `json:"id"`
	Status        TransactionStatus `json:"status"`
	AmountCents   int64             `json:"amountCents"`
	RefundedCents int64             `json:"refundedCents,omitempty"`
	Currency      string            `json:"currency"`
	PaymentMethod string            `json:"paymentMethod"`
	CustomerID    string            `json:"customerId,omitempty"`
	Description   string            `json:"description,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// TransactionParams creates a transaction.
type TransactionParams struct {
	AmountCents   int64             `json:"amountCents"`
	Currency      string            `json:"currency"`
	PaymentMethod string            `json:"paymentMethod"`
	CustomerID    string            `json:"customerId,omitempty"`
	Description   string            `json:"description,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// TransactionUpdateParams mutates a transaction in sandbox or test
// environments, typically to simulate settlement outcomes.
type TransactionUpdateParams struct {
	Status   TransactionStatus `json:"status,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RefundParams refunds a transaction. A zero AmountCents refunds the full
// remaining amount.
type RefundParams struct {
	AmountCents int64  `json:"amountCents,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// TransactionListParams filters a transaction listing. Page and Limit
// address one page; IterateTransactions manages them itself.
type TransactionListParams struct {
	Status        TransactionStatus
	CustomerID    string
	CreatedAfter  time.Time
	CreatedBefore time.Time
	Page          int
	Limit         int
}

func (p *TransactionListParams) filters() url.Values {
	query := url.Values{}
	if p == nil {
		return query
	}
	if p.Status != "" {
		query.Set("status", string(p.Status))
	}
	if p.CustomerID != "" {
		query.Set("customerId", p.CustomerID)
	}
	if !p.CreatedAfter.IsZero() {
		query.Set("createdAfter", p.CreatedAfter.Format(time.RFC3339))
	}
	if !p.CreatedBefore.IsZero() {
		query.Set("createdBefore", p.CreatedBefore.Format(time.RFC3339))
	}
	return query
}

// CreateTransaction creates a transaction. Pass WithIdempotencyKey to make
// the call safe to retry; without one, a failed attempt is never retried.
func (c *Client) CreateTransaction(ctx context.Context, params *TransactionParams, opts ...CallOption) (*Transaction, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	spec := c.newRequestSpec(http.MethodPost, transactionsBasePath, nil, body, opts...)
	env, err := execute[Transaction](ctx, c, spec)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// GetTransaction fetches a transaction by id.
func (c *Client) GetTransaction(ctx context.Context, id string, opts ...CallOption) (*Transaction, error) {
	spec := c.newRequestSpec(http.MethodGet, transactionsBasePath+"/"+url.PathEscape(id), nil, nil, opts...)
	env, err := execute[Transaction](ctx, c, spec)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// ListTransactions fetches a single page of transactions.
func (c *Client) ListTransactions(ctx context.Context, params *TransactionListParams, opts ...CallOption) (*ListEnvelope[Transaction], error) {
	query := params.filters()
	page, limit := 1, defaultPageLimit
	if params != nil {
		if params.Page > 0 {
			page = params.Page
		}
		if params.Limit > 0 {
			limit = params.Limit
		}
	}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))

	spec := c.newRequestSpec(http.MethodGet, transactionsBasePath, query, nil, opts...)
	return executeList[Transaction](ctx, c, spec)
}

// IterateTransactions returns an auto-paging iterator over all transactions
// matching the filters, starting at page 1.
func (c *Client) IterateTransactions(ctx context.Context, params *TransactionListParams, opts ...CallOption) *Iterator[Transaction] {
	limit := 0
	if params != nil {
		limit = params.Limit
	}
	return newIterator[Transaction](ctx, c, transactionsBasePath, params.filters(), limit, opts...)
}

// UpdateTransaction mutates a transaction. The endpoint exists only in
// sandbox and test environments; against production the call is refused
// before any network attempt.
func (c *Client) UpdateTransaction(ctx context.Context, id string, params *TransactionUpdateParams, opts ...CallOption) (*Transaction, error) {
	if c.environment == EnvironmentProduction {
		return nil, &Error{
			Kind:    KindInvalidRequest,
			Message: "transaction update is only available in sandbox and test environments",
		}
	}
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	spec := c.newRequestSpec(http.MethodPut, transactionsBasePath+"/"+url.PathEscape(id), nil, body, opts...)
	env, err := execute[Transaction](ctx, c, spec)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}

// RefundTransaction refunds a transaction, fully or partially. Pass
// WithIdempotencyKey to make the call safe to retry.
func (c *Client) RefundTransaction(ctx context.Context, id string, params *RefundParams, opts ...CallOption) (*Transaction, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	spec := c.newRequestSpec(http.MethodPut, transactionsBasePath+"/"+url.PathEscape(id)+"/refund", nil, body, opts...)
	env, err := execute[Transaction](ctx, c, spec)
	if err != nil {
		return nil, err
	}
	return &env.Data, nil
}
