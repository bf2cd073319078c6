// Package rest implements remote.Store against a PostgREST-style hosted
// backend: one HTTP resource per collection, filters in the query string.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mahersayed/supplier-ledger/internal/models"
	"github.com/mahersayed/supplier-ledger/internal/remote"
)

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// wire mirrors the backend's row shape; the embedded supplier object comes
// from the select join.
type transactionRow struct {
	ID              int64           `json:"id"`
	SupplierID      string          `json:"supplier_id"`
	Type            string          `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Date            string          `json:"date"`
	ReferenceNumber string          `json:"reference_number"`
	Notes           string          `json:"notes"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	Supplier        *struct {
		Name string `json:"name"`
	} `json:"supplier,omitempty"`
}

func (r transactionRow) model() models.Transaction {
	t := models.Transaction{
		ID:              r.ID,
		SupplierID:      r.SupplierID,
		Type:            models.TransactionType(r.Type),
		Amount:          r.Amount,
		Date:            models.Date(r.Date),
		ReferenceNumber: r.ReferenceNumber,
		Notes:           r.Notes,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
	}
	if r.Supplier != nil {
		t.SupplierName = r.Supplier.Name
	}
	return t
}

func rowFrom(t models.Transaction) transactionRow {
	return transactionRow{
		SupplierID:      t.SupplierID,
		Type:            string(t.Type),
		Amount:          t.Amount,
		Date:            t.Date.String(),
		ReferenceNumber: t.ReferenceNumber,
		Notes:           t.Notes,
		CreatedBy:       t.CreatedBy,
	}
}

type settingsRow struct {
	ID            int    `json:"id"`
	CompanyName   string `json:"company_name"`
	LogoURL       string `json:"logo_url"`
	AdminPassword string `json:"admin_password"`
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, body, out any, prefer string) error {
	op := method + " " + table

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &remote.Error{Op: op, Message: err.Error()}
		}
		reader = bytes.NewReader(data)
	}

	u := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return &remote.Error{Op: op, Message: err.Error()}
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Transport-level failure: the backend was never reached.
		return fmt.Errorf("%s: %w", op, remote.ErrUnreachable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusNotAcceptable:
		return fmt.Errorf("%s: %w", op, remote.ErrNotFound)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &remote.Error{
			Op:      op,
			Code:    strconv.Itoa(resp.StatusCode),
			Message: string(msg),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &remote.Error{Op: op, Message: "decode response: " + err.Error()}
		}
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{"select": {"id"}, "limit": {"1"}}
	if err := c.do(ctx, http.MethodGet, "app_settings", q, nil, nil, ""); err != nil {
		if remote.IsUnreachable(err) {
			return err
		}
		// Reached the backend, even if it complained.
		if remote.IsNotFound(err) {
			return nil
		}
		return nil
	}
	return nil
}

func (c *Client) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	q := url.Values{"select": {"*"}, "order": {"name"}}
	var suppliers []models.Supplier
	if err := c.do(ctx, http.MethodGet, "suppliers", q, nil, &suppliers, ""); err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (c *Client) InsertSupplier(ctx context.Context, s models.Supplier) (models.Supplier, error) {
	s.ID = ""
	s.CreatedAt = time.Time{}
	var created []models.Supplier
	err := c.do(ctx, http.MethodPost, "suppliers", nil, []models.Supplier{s}, &created,
		"return=representation")
	if err != nil {
		return models.Supplier{}, err
	}
	if len(created) == 0 {
		return models.Supplier{}, &remote.Error{Op: "insert supplier", Message: "empty response"}
	}
	return created[0], nil
}

func (c *Client) ListTransactions(ctx context.Context, f remote.TransactionFilter) ([]models.Transaction, error) {
	q := url.Values{
		"select": {"*,supplier:suppliers(name)"},
		"order":  {"date.desc,id.desc"},
	}
	if f.SupplierID != "" {
		q.Set("supplier_id", "eq."+f.SupplierID)
	}
	if !f.From.IsZero() {
		q.Set("date", "gte."+f.From.String())
	}
	if !f.To.IsZero() {
		q.Add("date", "lte."+f.To.String())
	}
	var rows []transactionRow
	if err := c.do(ctx, http.MethodGet, "transactions", q, nil, &rows, ""); err != nil {
		return nil, err
	}
	transactions := make([]models.Transaction, len(rows))
	for i, r := range rows {
		transactions[i] = r.model()
	}
	return transactions, nil
}

func (c *Client) InsertTransaction(ctx context.Context, t models.Transaction) (models.Transaction, error) {
	var created []transactionRow
	err := c.do(ctx, http.MethodPost, "transactions", nil,
		[]transactionRow{rowFrom(t)}, &created, "return=representation")
	if err != nil {
		return models.Transaction{}, err
	}
	if len(created) == 0 {
		return models.Transaction{}, &remote.Error{Op: "insert transaction", Message: "empty response"}
	}
	return created[0].model(), nil
}

func (c *Client) UpdateTransaction(ctx context.Context, id int64, patch models.TransactionPatch) error {
	q := url.Values{"id": {"eq." + strconv.FormatInt(id, 10)}}
	return c.do(ctx, http.MethodPatch, "transactions", q, patch, nil, "")
}

func (c *Client) DeleteTransaction(ctx context.Context, id int64) error {
	q := url.Values{"id": {"eq." + strconv.FormatInt(id, 10)}}
	return c.do(ctx, http.MethodDelete, "transactions", q, nil, nil, "")
}

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	q := url.Values{"select": {"*"}, "order": {"name"}}
	var users []models.User
	if err := c.do(ctx, http.MethodGet, "users", q, nil, &users, ""); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) InsertUser(ctx context.Context, u models.User) (models.User, error) {
	payload := map[string]string{"name": u.Name, "code": u.Code}
	var created []models.User
	err := c.do(ctx, http.MethodPost, "users", nil, []map[string]string{payload}, &created,
		"return=representation")
	if err != nil {
		return models.User{}, err
	}
	if len(created) == 0 {
		return models.User{}, &remote.Error{Op: "insert user", Message: "empty response"}
	}
	return created[0], nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	q := url.Values{"id": {"eq." + strconv.FormatInt(id, 10)}}
	return c.do(ctx, http.MethodDelete, "users", q, nil, nil, "")
}

func (c *Client) GetSettings(ctx context.Context) (models.Settings, error) {
	q := url.Values{"select": {"*"}, "id": {"eq.1"}}
	var rows []settingsRow
	if err := c.do(ctx, http.MethodGet, "app_settings", q, nil, &rows, ""); err != nil {
		return models.Settings{}, err
	}
	if len(rows) == 0 {
		return models.Settings{}, fmt.Errorf("get settings: %w", remote.ErrNotFound)
	}
	return models.Settings{
		CompanyName:   rows[0].CompanyName,
		LogoURL:       rows[0].LogoURL,
		AdminPassword: rows[0].AdminPassword,
	}, nil
}

func (c *Client) UpsertSettings(ctx context.Context, s models.Settings) error {
	row := settingsRow{
		ID:            1,
		CompanyName:   s.CompanyName,
		LogoURL:       s.LogoURL,
		AdminPassword: s.AdminPassword,
	}
	return c.do(ctx, http.MethodPost, "app_settings", nil, []settingsRow{row}, nil,
		"resolution=merge-duplicates")
}

func (c *Client) BulkInsertSuppliers(ctx context.Context, suppliers []models.Supplier) error {
	if len(suppliers) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost, "suppliers", nil, suppliers, nil, "")
}

func (c *Client) BulkInsertTransactions(ctx context.Context, transactions []models.Transaction) error {
	if len(transactions) == 0 {
		return nil
	}
	rows := make([]transactionRow, len(transactions))
	for i, t := range transactions {
		rows[i] = rowFrom(t)
		rows[i].ID = t.ID
	}
	return c.do(ctx, http.MethodPost, "transactions", nil, rows, nil, "")
}

func (c *Client) BulkInsertUsers(ctx context.Context, users []models.User) error {
	if len(users) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPost, "users", nil, users, nil, "")
}

func (c *Client) DeleteAll(ctx context.Context) error {
	// Transactions first: they reference suppliers.
	q := url.Values{"id": {"gt.0"}}
	if err := c.do(ctx, http.MethodDelete, "transactions", q, nil, nil, ""); err != nil {
		return err
	}
	q = url.Values{"id": {"not.is.null"}}
	return c.do(ctx, http.MethodDelete, "suppliers", q, nil, nil, "")
}

var _ remote.Store = (*Client)(nil)
