package emulator

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"simplebudget/internal/api"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	// ErrDuplicateName is returned when a category name is already used in
	// the same budget and month.
	ErrDuplicateName = errors.New("duplicate name")
)

type (
	budget struct {
		id      int64
		name    string
		members map[string]bool
	}

	category struct {
		id       int64
		budgetID int64
		month    int
		year     int
		name     string
		budget   decimal.Decimal
	}

	subcategory struct {
		id         int64
		categoryID int64
		name       string
		allotted   decimal.Decimal
	}

	transaction struct {
		id            int64
		subcategoryID int64
		description   string
		amount        decimal.Decimal
		date          string
		icon          string
	}

	invitation struct {
		token     string
		budgetID  int64
		email     string
		accepted  bool
		createdAt time.Time
	}
)

// Store is the emulator's in-memory database. Users are identified by their
// bearer token.
type Store struct {
	mu           sync.Mutex
	nextID       int64
	budgets      map[int64]*budget
	categories   map[int64]*category
	subcats      map[int64]*subcategory
	transactions map[int64]*transaction
	invitations  map[string]*invitation
}

func NewStore() *Store {
	return &Store{
		budgets:      make(map[int64]*budget),
		categories:   make(map[int64]*category),
		subcats:      make(map[int64]*subcategory),
		transactions: make(map[int64]*transaction),
		invitations:  make(map[string]*invitation),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func formatID(id int64) api.ID {
	return api.ID(strconv.FormatInt(id, 10))
}

func (b *budget) dto() api.BudgetDTO {
	return api.BudgetDTO{ID: formatID(b.id), Name: b.name, MemberCount: len(b.members)}
}

// --- budgets ---

func (s *Store) ListBudgets(user string) []api.BudgetDTO {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]api.BudgetDTO, 0)
	for _, b := range s.budgets {
		if b.members[user] {
			out = append(out, b.dto())
		}
	}
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return out
}

func (s *Store) CreateBudget(user, name string) api.BudgetDTO {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := &budget{id: s.id(), name: name, members: map[string]bool{user: true}}
	s.budgets[b.id] = b
	return b.dto()
}

func (s *Store) RenameBudget(user string, id int64, name string) (api.BudgetDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.memberBudget(user, id)
	if err != nil {
		return api.BudgetDTO{}, err
	}
	b.name = name
	return b.dto(), nil
}

// DeleteBudget removes the budget and everything scoped to it.
func (s *Store) DeleteBudget(user string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.memberBudget(user, id); err != nil {
		return err
	}
	for cid, c := range s.categories {
		if c.budgetID == id {
			s.deleteCategoryLocked(cid)
		}
	}
	for token, inv := range s.invitations {
		if inv.budgetID == id {
			delete(s.invitations, token)
		}
	}
	delete(s.budgets, id)
	return nil
}

// IsMember reports whether user may act on budget id.
func (s *Store) IsMember(user string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.memberBudget(user, id)
	return err
}

func (s *Store) memberBudget(user string, id int64) (*budget, error) {
	b, ok := s.budgets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !b.members[user] {
		return nil, ErrForbidden
	}
	return b, nil
}

// --- invitations ---

func (s *Store) CreateInvitation(user string, budgetID int64, email string) (api.InvitationDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := s.memberBudget(user, budgetID)
	if err != nil {
		return api.InvitationDTO{}, err
	}
	inv := &invitation{token: uuid.NewString(), budgetID: b.id, email: email, createdAt: time.Now()}
	s.invitations[inv.token] = inv
	return s.invitationDTO(inv, b), nil
}

func (s *Store) GetInvitation(token string) (api.InvitationDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitations[token]
	if !ok || inv.accepted {
		return api.InvitationDTO{}, ErrNotFound
	}
	b, ok := s.budgets[inv.budgetID]
	if !ok {
		return api.InvitationDTO{}, ErrNotFound
	}
	return s.invitationDTO(inv, b), nil
}

// AcceptInvitation adds user to the invited budget. Tokens are single use.
func (s *Store) AcceptInvitation(user, token string) (api.BudgetDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invitations[token]
	if !ok {
		return api.BudgetDTO{}, ErrNotFound
	}
	if inv.accepted {
		return api.BudgetDTO{}, ErrConflict
	}
	b, ok := s.budgets[inv.budgetID]
	if !ok {
		return api.BudgetDTO{}, ErrNotFound
	}
	inv.accepted = true
	b.members[user] = true
	return b.dto(), nil
}

func (s *Store) invitationDTO(inv *invitation, b *budget) api.InvitationDTO {
	return api.InvitationDTO{
		Token:        inv.token,
		BudgetID:     formatID(b.id),
		BudgetName:   b.name,
		InviteeEmail: inv.email,
	}
}

// --- month summary ---

// MonthSummary returns the nested tree for (budget, year, month) ordered by id.
func (s *Store) MonthSummary(budgetID int64, year, month int) []api.CategoryDTO {
	s.mu.Lock()
	defer s.mu.Unlock()

	var cats []*category
	for _, c := range s.categories {
		if c.budgetID == budgetID && c.year == year && c.month == month {
			cats = append(cats, c)
		}
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i].id < cats[j].id })

	out := make([]api.CategoryDTO, 0, len(cats))
	for _, c := range cats {
		out = append(out, s.categoryDTO(c))
	}
	return out
}

func (s *Store) categoryDTO(c *category) api.CategoryDTO {
	var subs []*subcategory
	for _, sc := range s.subcats {
		if sc.categoryID == c.id {
			subs = append(subs, sc)
		}
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })

	dto := api.CategoryDTO{
		ID:            formatID(c.id),
		Name:          c.name,
		Budget:        api.NewAmount(c.budget),
		Subcategories: make([]api.SubcategoryDTO, 0, len(subs)),
	}
	for _, sc := range subs {
		dto.Subcategories = append(dto.Subcategories, s.subcategoryDTO(sc))
	}
	return dto
}

func (s *Store) subcategoryDTO(sc *subcategory) api.SubcategoryDTO {
	var txs []*transaction
	for _, t := range s.transactions {
		if t.subcategoryID == sc.id {
			txs = append(txs, t)
		}
	}
	sort.Slice(txs, func(i, j int) bool { return txs[i].id < txs[j].id })

	spending := decimal.Zero
	dto := api.SubcategoryDTO{
		ID:           formatID(sc.id),
		Name:         sc.name,
		Allotted:     api.NewAmount(sc.allotted),
		Transactions: make([]api.TransactionDTO, 0, len(txs)),
	}
	for _, t := range txs {
		spending = spending.Add(t.amount)
		dto.Transactions = append(dto.Transactions, t.dto())
	}
	dto.Spending = api.NewAmount(spending)
	return dto
}

func (t *transaction) dto() api.TransactionDTO {
	return api.TransactionDTO{
		ID:            formatID(t.id),
		SubcategoryID: formatID(t.subcategoryID),
		Description:   t.description,
		Amount:        api.NewAmount(t.amount),
		Date:          t.date,
		Icon:          t.icon,
	}
}

// --- categories ---

func (s *Store) CreateCategory(budgetID int64, year, month int, name string, amount decimal.Decimal) (api.CategoryDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.categoryNameTakenLocked(budgetID, year, month, name, 0) {
		return api.CategoryDTO{}, ErrDuplicateName
	}
	c := &category{id: s.id(), budgetID: budgetID, year: year, month: month, name: name, budget: amount}
	s.categories[c.id] = c
	return s.categoryDTO(c), nil
}

func (s *Store) UpdateCategory(budgetID, id int64, name string, amount decimal.Decimal) (api.CategoryDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok || c.budgetID != budgetID {
		return api.CategoryDTO{}, ErrNotFound
	}
	if s.categoryNameTakenLocked(budgetID, c.year, c.month, name, id) {
		return api.CategoryDTO{}, ErrDuplicateName
	}
	c.name = name
	c.budget = amount
	return s.categoryDTO(c), nil
}

// categoryNameTakenLocked reports whether another category in the same
// budget and month already uses name. except is the category being renamed.
func (s *Store) categoryNameTakenLocked(budgetID int64, year, month int, name string, except int64) bool {
	for _, c := range s.categories {
		if c.id != except && c.budgetID == budgetID && c.year == year && c.month == month && c.name == name {
			return true
		}
	}
	return false
}

func (s *Store) DeleteCategory(budgetID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok || c.budgetID != budgetID {
		return ErrNotFound
	}
	s.deleteCategoryLocked(id)
	return nil
}

func (s *Store) deleteCategoryLocked(id int64) {
	for sid, sc := range s.subcats {
		if sc.categoryID == id {
			s.deleteSubcategoryLocked(sid)
		}
	}
	delete(s.categories, id)
}

// --- subcategories ---

func (s *Store) CreateSubcategory(budgetID, categoryID int64, name string, allotted decimal.Decimal) (api.SubcategoryDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[categoryID]
	if !ok || c.budgetID != budgetID {
		return api.SubcategoryDTO{}, ErrNotFound
	}
	sc := &subcategory{id: s.id(), categoryID: categoryID, name: name, allotted: allotted}
	s.subcats[sc.id] = sc
	return s.subcategoryDTO(sc), nil
}

// UpdateSubcategory renames the subcategory and sets its allotment. A
// non-zero categoryID moves it under that category, which must belong to the
// same budget and month as the current parent.
func (s *Store) UpdateSubcategory(budgetID, id, categoryID int64, name string, allotted decimal.Decimal) (api.SubcategoryDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sc, err := s.scopedSubcategory(budgetID, id)
	if err != nil {
		return api.SubcategoryDTO{}, err
	}
	if categoryID != 0 && categoryID != sc.categoryID {
		from := s.categories[sc.categoryID]
		to, ok := s.categories[categoryID]
		if !ok || to.budgetID != budgetID || to.year != from.year || to.month != from.month {
			return api.SubcategoryDTO{}, ErrNotFound
		}
		sc.categoryID = categoryID
	}
	sc.name = name
	sc.allotted = allotted
	return s.subcategoryDTO(sc), nil
}

func (s *Store) DeleteSubcategory(budgetID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.scopedSubcategory(budgetID, id); err != nil {
		return err
	}
	s.deleteSubcategoryLocked(id)
	return nil
}

func (s *Store) deleteSubcategoryLocked(id int64) {
	for tid, t := range s.transactions {
		if t.subcategoryID == id {
			delete(s.transactions, tid)
		}
	}
	delete(s.subcats, id)
}

func (s *Store) scopedSubcategory(budgetID, id int64) (*subcategory, error) {
	sc, ok := s.subcats[id]
	if !ok {
		return nil, ErrNotFound
	}
	c, ok := s.categories[sc.categoryID]
	if !ok || c.budgetID != budgetID {
		return nil, ErrNotFound
	}
	return sc, nil
}

// --- transactions ---

type TransactionFields struct {
	SubcategoryID int64
	Description   string
	Amount        decimal.Decimal
	Date          string
	Icon          string
}

func (s *Store) CreateTransaction(budgetID int64, f TransactionFields) (api.TransactionDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.scopedSubcategory(budgetID, f.SubcategoryID); err != nil {
		return api.TransactionDTO{}, err
	}
	t := &transaction{
		id:            s.id(),
		subcategoryID: f.SubcategoryID,
		description:   f.Description,
		amount:        f.Amount,
		date:          f.Date,
		icon:          f.Icon,
	}
	s.transactions[t.id] = t
	return t.dto(), nil
}

func (s *Store) UpdateTransaction(budgetID, id int64, f TransactionFields) (api.TransactionDTO, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.scopedTransaction(budgetID, id)
	if err != nil {
		return api.TransactionDTO{}, err
	}
	if f.SubcategoryID != 0 && f.SubcategoryID != t.subcategoryID {
		if _, err := s.scopedSubcategory(budgetID, f.SubcategoryID); err != nil {
			return api.TransactionDTO{}, err
		}
		t.subcategoryID = f.SubcategoryID
	}
	t.description = f.Description
	t.amount = f.Amount
	t.date = f.Date
	if f.Icon != "" {
		t.icon = f.Icon
	}
	return t.dto(), nil
}

func (s *Store) DeleteTransaction(budgetID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.scopedTransaction(budgetID, id); err != nil {
		return err
	}
	delete(s.transactions, id)
	return nil
}

func (s *Store) scopedTransaction(budgetID, id int64) (*transaction, error) {
	t, ok := s.transactions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if _, err := s.scopedSubcategory(budgetID, t.subcategoryID); err != nil {
		return nil, err
	}
	return t, nil
}

func idLess(a, b api.ID) bool {
	ai, _ := strconv.ParseInt(string(a), 10, 64)
	bi, _ := strconv.ParseInt(string(b), 10, 64)
	return ai < bi
}
