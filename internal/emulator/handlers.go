package emulator

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"simplebudget/internal/api"
	"simplebudget/internal/core"

	"github.com/go-chi/chi/v5"
)

// Handler serves the budgeting REST API from a Store.
type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "Failed to parse request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, entity string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid "+entity+" ID")
		return 0, false
	}
	return id, true
}

func validName(w http.ResponseWriter, name string) bool {
	if strings.TrimSpace(name) == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "Name is required")
		return false
	}
	return true
}

// --- budgets ---

func (h *Handler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.ListBudgets(userFrom(r.Context())))
}

func (h *Handler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	var req api.BudgetRequest
	if !decodeBody(w, r, &req) || !validName(w, req.Name) {
		return
	}
	writeJSON(w, http.StatusCreated, h.store.CreateBudget(userFrom(r.Context()), strings.TrimSpace(req.Name)))
}

func (h *Handler) RenameBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "budget")
	if !ok {
		return
	}
	var req api.BudgetRequest
	if !decodeBody(w, r, &req) || !validName(w, req.Name) {
		return
	}
	b, err := h.store.RenameBudget(userFrom(r.Context()), id, strings.TrimSpace(req.Name))
	if err != nil {
		writeStoreError(w, err, "Budget")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "budget")
	if !ok {
		return
	}
	if err := h.store.DeleteBudget(userFrom(r.Context()), id); err != nil {
		writeStoreError(w, err, "Budget")
		return
	}
	writeJSON(w, http.StatusOK, api.ErrorBody{Detail: "Budget deleted"})
}

// --- invitations ---

func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "budget")
	if !ok {
		return
	}
	var req api.InvitationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := core.ValidateEmail(req.Email); err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "A valid email is required")
		return
	}
	inv, err := h.store.CreateInvitation(userFrom(r.Context()), id, strings.TrimSpace(req.Email))
	if err != nil {
		writeStoreError(w, err, "Budget")
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (h *Handler) GetInvitation(w http.ResponseWriter, r *http.Request) {
	inv, err := h.store.GetInvitation(chi.URLParam(r, "token"))
	if err != nil {
		writeStoreError(w, err, "Invitation")
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	b, err := h.store.AcceptInvitation(userFrom(r.Context()), chi.URLParam(r, "token"))
	if err != nil {
		writeStoreError(w, err, "Invitation")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// --- month summary ---

func (h *Handler) MonthSummary(w http.ResponseWriter, r *http.Request) {
	year, errY := strconv.Atoi(chi.URLParam(r, "year"))
	month, errM := strconv.Atoi(chi.URLParam(r, "month"))
	if errY != nil || errM != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid year or month")
		return
	}
	if _, err := core.NewPeriod(month, year); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid year or month")
		return
	}
	cats := h.store.MonthSummary(budgetFrom(r.Context()), year, month)
	if len(cats) == 0 {
		writeJSONError(w, http.StatusNotFound, "No categories found for this month")
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// --- categories ---

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	month, errM := strconv.Atoi(r.URL.Query().Get("month"))
	year, errY := strconv.Atoi(r.URL.Query().Get("year"))
	if errM != nil || errY != nil {
		writeJSONError(w, http.StatusBadRequest, "month and year query parameters are required")
		return
	}
	if _, err := core.NewPeriod(month, year); err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid year or month")
		return
	}
	var req api.CategoryRequest
	if !decodeBody(w, r, &req) || !validName(w, req.Name) {
		return
	}
	if req.Budget.IsNegative() {
		writeJSONError(w, http.StatusUnprocessableEntity, "Budget cannot be negative")
		return
	}
	c, err := h.store.CreateCategory(budgetFrom(r.Context()), year, month, strings.TrimSpace(req.Name), req.Budget.Decimal)
	if err != nil {
		writeStoreError(w, err, "Category")
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}
	var req api.CategoryRequest
	if !decodeBody(w, r, &req) || !validName(w, req.Name) {
		return
	}
	if req.Budget.IsNegative() {
		writeJSONError(w, http.StatusUnprocessableEntity, "Budget cannot be negative")
		return
	}
	c, err := h.store.UpdateCategory(budgetFrom(r.Context()), id, strings.TrimSpace(req.Name), req.Budget.Decimal)
	if err != nil {
		writeStoreError(w, err, "Category")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "category")
	if !ok {
		return
	}
	if err := h.store.DeleteCategory(budgetFrom(r.Context()), id); err != nil {
		writeStoreError(w, err, "Category")
		return
	}
	writeJSON(w, http.StatusOK, api.ErrorBody{Detail: "Category deleted"})
}

// --- subcategories ---

func (h *Handler) CreateSubcategory(w http.ResponseWriter, r *http.Request) {
	var req api.SubcategoryRequest
	if !decodeBody(w, r, &req) || !validName(w, req.Name) {
		return
	}
	categoryID, err := strconv.ParseInt(string(req.CategoryID), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "category_id is required")
		return
	}
	if req.Allotted.IsNegative() {
		writeJSONError(w, http.StatusUnprocessableEntity, "Allotted amount cannot be negative")
		return
	}
	sc, err := h.store.CreateSubcategory(budgetFrom(r.Context()), categoryID, strings.TrimSpace(req.Name), req.Allotted.Decimal)
	if err != nil {
		writeStoreError(w, err, "Category")
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (h *Handler) UpdateSubcategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "subcategory")
	if !ok {
		return
	}
	var req api.SubcategoryRequest
	if !decodeBody(w, r, &req) || !validName(w, req.Name) {
		return
	}
	if req.Allotted.IsNegative() {
		writeJSONError(w, http.StatusUnprocessableEntity, "Allotted amount cannot be negative")
		return
	}
	var categoryID int64
	if req.CategoryID != "" {
		parsed, err := strconv.ParseInt(string(req.CategoryID), 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusUnprocessableEntity, "Invalid category_id")
			return
		}
		categoryID = parsed
	}
	sc, err := h.store.UpdateSubcategory(budgetFrom(r.Context()), id, categoryID, strings.TrimSpace(req.Name), req.Allotted.Decimal)
	if err != nil {
		writeStoreError(w, err, "Subcategory")
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

func (h *Handler) DeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "subcategory")
	if !ok {
		return
	}
	if err := h.store.DeleteSubcategory(budgetFrom(r.Context()), id); err != nil {
		writeStoreError(w, err, "Subcategory")
		return
	}
	writeJSON(w, http.StatusOK, api.ErrorBody{Detail: "Subcategory deleted"})
}

// --- transactions ---

func (h *Handler) transactionFields(w http.ResponseWriter, r *http.Request, requireSub bool) (TransactionFields, bool) {
	var req api.TransactionRequest
	if !decodeBody(w, r, &req) {
		return TransactionFields{}, false
	}
	var f TransactionFields
	if req.SubcategoryID != "" {
		id, err := strconv.ParseInt(string(req.SubcategoryID), 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusUnprocessableEntity, "Invalid subcategory_id")
			return TransactionFields{}, false
		}
		f.SubcategoryID = id
	} else if requireSub {
		writeJSONError(w, http.StatusUnprocessableEntity, "subcategory_id is required")
		return TransactionFields{}, false
	}
	if strings.TrimSpace(req.Description) == "" {
		writeJSONError(w, http.StatusUnprocessableEntity, "Description is required")
		return TransactionFields{}, false
	}
	if !req.Amount.IsPositive() {
		writeJSONError(w, http.StatusUnprocessableEntity, "Amount must be greater than zero")
		return TransactionFields{}, false
	}
	if _, err := core.ParseDate(req.Date); err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "Date must be YYYY-MM-DD")
		return TransactionFields{}, false
	}
	f.Description = strings.TrimSpace(req.Description)
	f.Amount = req.Amount.Decimal
	f.Date = req.Date
	f.Icon = req.Icon
	return f, true
}

func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	f, ok := h.transactionFields(w, r, true)
	if !ok {
		return
	}
	tx, err := h.store.CreateTransaction(budgetFrom(r.Context()), f)
	if err != nil {
		writeStoreError(w, err, "Subcategory")
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "transaction")
	if !ok {
		return
	}
	f, ok := h.transactionFields(w, r, false)
	if !ok {
		return
	}
	tx, err := h.store.UpdateTransaction(budgetFrom(r.Context()), id, f)
	if err != nil {
		writeStoreError(w, err, "Transaction")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "transaction")
	if !ok {
		return
	}
	if err := h.store.DeleteTransaction(budgetFrom(r.Context()), id); err != nil {
		writeStoreError(w, err, "Transaction")
		return
	}
	writeJSON(w, http.StatusOK, api.ErrorBody{Detail: "Transaction deleted"})
}
