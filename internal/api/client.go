// Package api is a typed façade over the remote budgeting API. It holds no
// state beyond connection settings; every call is a single request.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"simplebudget/internal/core"
	"simplebudget/internal/log"

	"github.com/google/uuid"
)

const (
	HeaderBudgetID  = "X-Budget-ID"
	HeaderRequestID = "X-Request-ID"

	maxErrorBody = 64 << 10
)

// Credentials supplies the bearer token for each call.
type Credentials interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed bearer token.
type StaticToken string

func (s StaticToken) Token(context.Context) (string, error) {
	return string(s), nil
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	creds      Credentials
	logger     *log.Logger
}

type Option func(*Client)

// WithTimeout bounds every call. There are no retries.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithTransport replaces the round tripper, e.g. with an instrumented one.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.httpClient.Transport = rt }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentAPI) }
}

func NewClient(baseURL string, creds Credentials, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		creds:      creds,
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// --- budgets ---

func (c *Client) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	var out []BudgetDTO
	if err := c.do(ctx, http.MethodGet, "/budgets", "", nil, &out); err != nil {
		return nil, err
	}
	budgets := make([]core.Budget, 0, len(out))
	for _, b := range out {
		budgets = append(budgets, b.toCore())
	}
	return budgets, nil
}

func (c *Client) CreateBudget(ctx context.Context, name string) (core.Budget, error) {
	var out BudgetDTO
	if err := c.do(ctx, http.MethodPost, "/budgets", "", BudgetRequest{Name: name}, &out); err != nil {
		return core.Budget{}, err
	}
	return out.toCore(), nil
}

func (c *Client) RenameBudget(ctx context.Context, id, name string) (core.Budget, error) {
	var out BudgetDTO
	if err := c.do(ctx, http.MethodPut, "/budgets/"+url.PathEscape(id), id, BudgetRequest{Name: name}, &out); err != nil {
		return core.Budget{}, err
	}
	return out.toCore(), nil
}

// DeleteBudget removes the budget; the server cascades to everything under it.
func (c *Client) DeleteBudget(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/budgets/"+url.PathEscape(id), id, nil, nil)
}

// --- invitations ---

func (c *Client) CreateInvitation(ctx context.Context, budgetID, email string) (core.Invitation, error) {
	var out InvitationDTO
	path := "/budgets/" + url.PathEscape(budgetID) + "/invitations"
	if err := c.do(ctx, http.MethodPost, path, budgetID, InvitationRequest{Email: email}, &out); err != nil {
		return core.Invitation{}, err
	}
	return out.toCore(), nil
}

func (c *Client) ValidateInvitation(ctx context.Context, token string) (core.Invitation, error) {
	var out InvitationDTO
	if err := c.do(ctx, http.MethodGet, "/invitations/"+url.PathEscape(token), "", nil, &out); err != nil {
		return core.Invitation{}, err
	}
	return out.toCore(), nil
}

// AcceptInvitation joins the invited budget and returns it.
func (c *Client) AcceptInvitation(ctx context.Context, token string) (core.Budget, error) {
	var out BudgetDTO
	path := "/invitations/" + url.PathEscape(token) + "/accept"
	if err := c.do(ctx, http.MethodPost, path, "", nil, &out); err != nil {
		return core.Budget{}, err
	}
	return out.toCore(), nil
}

// --- month summary ---

// FetchMonth returns the whole category tree for (budget, period). A 404 means
// nothing has been recorded for the period yet and yields an empty tree.
func (c *Client) FetchMonth(ctx context.Context, budgetID string, p core.Period) (core.Tree, error) {
	var out []CategoryDTO
	path := fmt.Sprintf("/budget-summary/%d/%d", p.Year, p.Month)
	err := c.do(ctx, http.MethodGet, path, budgetID, nil, &out)
	if IsNotFound(err) {
		return core.Tree{}, nil
	}
	if err != nil {
		return nil, err
	}
	return NormalizeTree(out)
}

// --- categories ---

func (c *Client) CreateCategory(ctx context.Context, budgetID string, p core.Period, in core.CategoryInput) (core.Category, error) {
	q := url.Values{}
	q.Set("month", strconv.Itoa(p.Month))
	q.Set("year", strconv.Itoa(p.Year))
	var out CategoryDTO
	req := CategoryRequest{Name: in.Name, Budget: NewAmount(in.Budget.Decimal())}
	if err := c.do(ctx, http.MethodPost, "/categories/?"+q.Encode(), budgetID, req, &out); err != nil {
		return core.Category{}, err
	}
	return out.toCore()
}

func (c *Client) EditCategory(ctx context.Context, budgetID, id string, in core.CategoryInput) error {
	req := CategoryRequest{Name: in.Name, Budget: NewAmount(in.Budget.Decimal())}
	return c.do(ctx, http.MethodPut, "/categories/"+url.PathEscape(id), budgetID, req, nil)
}

func (c *Client) DeleteCategory(ctx context.Context, budgetID, id string) error {
	return c.do(ctx, http.MethodDelete, "/categories/"+url.PathEscape(id), budgetID, nil, nil)
}

// --- subcategories ---

func (c *Client) CreateSubcategory(ctx context.Context, budgetID string, in core.SubcategoryInput) (core.Subcategory, error) {
	var out SubcategoryDTO
	if err := c.do(ctx, http.MethodPost, "/subcategories/", budgetID, subcategoryRequest(in), &out); err != nil {
		return core.Subcategory{}, err
	}
	return out.toCore()
}

func (c *Client) UpdateSubcategory(ctx context.Context, budgetID, id string, in core.SubcategoryInput) error {
	return c.do(ctx, http.MethodPut, "/subcategories/"+url.PathEscape(id), budgetID, subcategoryRequest(in), nil)
}

func (c *Client) DeleteSubcategory(ctx context.Context, budgetID, id string) error {
	return c.do(ctx, http.MethodDelete, "/subcategories/"+url.PathEscape(id), budgetID, nil, nil)
}

// --- transactions ---

func (c *Client) CreateTransaction(ctx context.Context, budgetID string, in core.TransactionInput) (core.Transaction, error) {
	var out TransactionDTO
	if err := c.do(ctx, http.MethodPost, "/transactions/", budgetID, transactionRequest(in), &out); err != nil {
		return core.Transaction{}, err
	}
	return out.toCore(in.SubcategoryID)
}

func (c *Client) UpdateTransaction(ctx context.Context, budgetID, id string, in core.TransactionInput) error {
	return c.do(ctx, http.MethodPut, "/transactions/"+url.PathEscape(id), budgetID, transactionRequest(in), nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, budgetID, id string) error {
	return c.do(ctx, http.MethodDelete, "/transactions/"+url.PathEscape(id), budgetID, nil, nil)
}

func subcategoryRequest(in core.SubcategoryInput) SubcategoryRequest {
	return SubcategoryRequest{
		CategoryID: ID(in.CategoryID),
		Name:       in.Name,
		Allotted:   NewAmount(in.Allotted.Decimal()),
	}
}

func transactionRequest(in core.TransactionInput) TransactionRequest {
	return TransactionRequest{
		Description:   in.Description,
		Amount:        NewAmount(in.Amount.Decimal()),
		SubcategoryID: ID(in.SubcategoryID),
		Date:          in.Date.String(),
		Icon:          in.Icon,
	}
}

// do sends one request. budgetID, when set, goes out in the X-Budget-ID header.
// out may be nil for calls whose response body is ignored.
func (c *Client) do(ctx context.Context, method, path, budgetID string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if budgetID != "" {
		req.Header.Set(HeaderBudgetID, budgetID)
	}
	requestID := uuid.NewString()
	req.Header.Set(HeaderRequestID, requestID)

	if c.creds != nil {
		token, err := c.creds.Token(ctx)
		if err != nil {
			return fmt.Errorf("get credentials: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "API request failed",
			log.FieldMethod, method,
			log.FieldPath, path,
			log.FieldRequestID, requestID,
			log.FieldError, err)
		return fmt.Errorf("%w: %s %s: %w", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "API request completed",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldRequestID, requestID,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &Error{Status: resp.StatusCode, Body: raw}

	var envelope ErrorBody
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Detail != "" {
		apiErr.Detail = envelope.Detail
	} else {
		apiErr.Detail = "An error occurred"
	}
	return apiErr
}
