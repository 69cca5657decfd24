package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invest-ledger/internal/storages"
)

type state struct {
	users         map[string]*storages.User
	userOrder     []string
	usernames     map[string]string
	referralCodes map[string]string

	packages     map[string]*storages.InvestmentPackage
	packageOrder []string

	transactions []*storages.Transaction
	txIndex      map[string]int

	depositMethods    map[string]*storages.DepositMethod
	depositOrder      []string
	withdrawalMethods map[string]*storages.WithdrawalMethod
	withdrawalOrder   []string

	resets     map[string]*storages.PasswordResetRequest
	resetOrder []string
}

func newState() *state {
	return &state{
		users:             make(map[string]*storages.User),
		usernames:         make(map[string]string),
		referralCodes:     make(map[string]string),
		packages:          make(map[string]*storages.InvestmentPackage),
		txIndex:           make(map[string]int),
		depositMethods:    make(map[string]*storages.DepositMethod),
		withdrawalMethods: make(map[string]*storages.WithdrawalMethod),
		resets:            make(map[string]*storages.PasswordResetRequest),
	}
}

func (s *state) clone() *state {
	c := newState()

	for id, u := range s.users {
		c.users[id] = u.Clone()
	}
	c.userOrder = append([]string(nil), s.userOrder...)
	for k, v := range s.usernames {
		c.usernames[k] = v
	}
	for k, v := range s.referralCodes {
		c.referralCodes[k] = v
	}

	for id, p := range s.packages {
		cp := *p
		c.packages[id] = &cp
	}
	c.packageOrder = append([]string(nil), s.packageOrder...)

	c.transactions = make([]*storages.Transaction, len(s.transactions))
	for i, tx := range s.transactions {
		c.transactions[i] = tx.Clone()
	}
	for k, v := range s.txIndex {
		c.txIndex[k] = v
	}

	for id, m := range s.depositMethods {
		cm := *m
		c.depositMethods[id] = &cm
	}
	c.depositOrder = append([]string(nil), s.depositOrder...)
	for id, m := range s.withdrawalMethods {
		cm := *m
		c.withdrawalMethods[id] = &cm
	}
	c.withdrawalOrder = append([]string(nil), s.withdrawalOrder...)

	for id, r := range s.resets {
		cr := *r
		cr.ResolvedAt = cloneTime(r.ResolvedAt)
		c.resets[id] = &cr
	}
	c.resetOrder = append([]string(nil), s.resetOrder...)

	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// repo реализует storages.Repositories поверх одного снимка состояния
type repo struct {
	st *state
}

var _ storages.Repositories = (*repo)(nil)

func usernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func removeID(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

// User operations

func (r *repo) CreateUser(_ context.Context, user *storages.User) error {
	key := usernameKey(user.Username)
	if _, exists := r.st.usernames[key]; exists {
		return storages.ErrDuplicate
	}
	if _, exists := r.st.users[user.ID]; exists {
		return storages.ErrDuplicate
	}
	if user.ReferralCode != "" {
		if _, exists := r.st.referralCodes[user.ReferralCode]; exists {
			return storages.ErrDuplicate
		}
		r.st.referralCodes[user.ReferralCode] = user.ID
	}
	r.st.users[user.ID] = user.Clone()
	r.st.usernames[key] = user.ID
	r.st.userOrder = append(r.st.userOrder, user.ID)
	return nil
}

func (r *repo) GetUserByID(_ context.Context, userID string) (*storages.User, error) {
	u, ok := r.st.users[userID]
	if !ok {
		return nil, storages.ErrNotFound
	}
	return u.Clone(), nil
}

func (r *repo) GetUserByUsername(ctx context.Context, username string) (*storages.User, error) {
	id, ok := r.st.usernames[usernameKey(username)]
	if !ok {
		return nil, storages.ErrNotFound
	}
	return r.GetUserByID(ctx, id)
}

func (r *repo) GetUserByReferralCode(ctx context.Context, code string) (*storages.User, error) {
	id, ok := r.st.referralCodes[code]
	if !ok {
		return nil, storages.ErrNotFound
	}
	return r.GetUserByID(ctx, id)
}

func (r *repo) UpdateUser(_ context.Context, user *storages.User) error {
	existing, ok := r.st.users[user.ID]
	if !ok {
		return storages.ErrNotFound
	}
	if usernameKey(existing.Username) != usernameKey(user.Username) {
		key := usernameKey(user.Username)
		if _, taken := r.st.usernames[key]; taken {
			return storages.ErrDuplicate
		}
		delete(r.st.usernames, usernameKey(existing.Username))
		r.st.usernames[key] = user.ID
	}
	r.st.users[user.ID] = user.Clone()
	return nil
}

func (r *repo) ListUsers(_ context.Context) ([]storages.User, error) {
	users := make([]storages.User, 0, len(r.st.userOrder))
	for _, id := range r.st.userOrder {
		users = append(users, *r.st.users[id].Clone())
	}
	return users, nil
}

func (r *repo) ListUserIDsWithActiveInvestments(_ context.Context) ([]string, error) {
	var ids []string
	for _, id := range r.st.userOrder {
		if len(r.st.users[id].ActiveInvestments()) > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *repo) CountUsers(_ context.Context, role string) (int64, error) {
	var count int64
	for _, u := range r.st.users {
		if role == "" || u.Role == role {
			count++
		}
	}
	return count, nil
}

func (r *repo) SumInvested(_ context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, u := range r.st.users {
		total = total.Add(u.InvestedAmount)
	}
	return total, nil
}

// Package operations

func (r *repo) CreatePackage(_ context.Context, pkg *storages.InvestmentPackage) error {
	if _, exists := r.st.packages[pkg.ID]; exists {
		return storages.ErrDuplicate
	}
	cp := *pkg
	r.st.packages[pkg.ID] = &cp
	r.st.packageOrder = append(r.st.packageOrder, pkg.ID)
	return nil
}

func (r *repo) GetPackage(_ context.Context, packageID string) (*storages.InvestmentPackage, error) {
	p, ok := r.st.packages[packageID]
	if !ok {
		return nil, storages.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *repo) ListPackages(_ context.Context) ([]storages.InvestmentPackage, error) {
	pkgs := make([]storages.InvestmentPackage, 0, len(r.st.packageOrder))
	for _, id := range r.st.packageOrder {
		pkgs = append(pkgs, *r.st.packages[id])
	}
	return pkgs, nil
}

func (r *repo) UpdatePackage(_ context.Context, pkg *storages.InvestmentPackage) error {
	if _, ok := r.st.packages[pkg.ID]; !ok {
		return storages.ErrNotFound
	}
	cp := *pkg
	r.st.packages[pkg.ID] = &cp
	return nil
}

func (r *repo) DeletePackage(_ context.Context, packageID string) error {
	if _, ok := r.st.packages[packageID]; !ok {
		return storages.ErrNotFound
	}
	delete(r.st.packages, packageID)
	r.st.packageOrder = removeID(r.st.packageOrder, packageID)
	return nil
}

// Transaction operations

func (r *repo) CreateTransaction(_ context.Context, tx *storages.Transaction) error {
	if _, exists := r.st.txIndex[tx.ID]; exists {
		return storages.ErrDuplicate
	}
	r.st.txIndex[tx.ID] = len(r.st.transactions)
	r.st.transactions = append(r.st.transactions, tx.Clone())
	return nil
}

func (r *repo) GetTransaction(_ context.Context, txID string) (*storages.Transaction, error) {
	i, ok := r.st.txIndex[txID]
	if !ok {
		return nil, storages.ErrNotFound
	}
	return r.st.transactions[i].Clone(), nil
}

func (r *repo) UpdateTransactionStatus(_ context.Context, tx *storages.Transaction) error {
	i, ok := r.st.txIndex[tx.ID]
	if !ok {
		return storages.ErrNotFound
	}
	stored := r.st.transactions[i].Clone()
	stored.Status = tx.Status
	stored.ResolvedAt = tx.Clone().ResolvedAt
	r.st.transactions[i] = stored
	return nil
}

func (r *repo) ListTransactions(_ context.Context, filter storages.TransactionFilter) ([]storages.Transaction, error) {
	result := []storages.Transaction{}
	for i := len(r.st.transactions) - 1; i >= 0; i-- {
		tx := r.st.transactions[i]
		if filter.Match(tx) {
			result = append(result, *tx.Clone())
		}
	}

	// При равных датах более поздняя запись идет первой
	sort.SliceStable(result, func(a, b int) bool {
		return result[a].Date.After(result[b].Date)
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (r *repo) SumTransactions(_ context.Context, filter storages.TransactionFilter) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, tx := range r.st.transactions {
		if filter.Match(tx) {
			total = total.Add(tx.Amount)
		}
	}
	return total, nil
}

// Method operations

func (r *repo) CreateDepositMethod(_ context.Context, method *storages.DepositMethod) error {
	if _, exists := r.st.depositMethods[method.ID]; exists {
		return storages.ErrDuplicate
	}
	cm := *method
	r.st.depositMethods[method.ID] = &cm
	r.st.depositOrder = append(r.st.depositOrder, method.ID)
	return nil
}

func (r *repo) GetDepositMethod(_ context.Context, methodID string) (*storages.DepositMethod, error) {
	m, ok := r.st.depositMethods[methodID]
	if !ok {
		return nil, storages.ErrNotFound
	}
	cm := *m
	return &cm, nil
}

func (r *repo) ListDepositMethods(_ context.Context) ([]storages.DepositMethod, error) {
	methods := make([]storages.DepositMethod, 0, len(r.st.depositOrder))
	for _, id := range r.st.depositOrder {
		methods = append(methods, *r.st.depositMethods[id])
	}
	return methods, nil
}

func (r *repo) UpdateDepositMethod(_ context.Context, method *storages.DepositMethod) error {
	if _, ok := r.st.depositMethods[method.ID]; !ok {
		return storages.ErrNotFound
	}
	cm := *method
	r.st.depositMethods[method.ID] = &cm
	return nil
}

func (r *repo) DeleteDepositMethod(_ context.Context, methodID string) error {
	if _, ok := r.st.depositMethods[methodID]; !ok {
		return storages.ErrNotFound
	}
	delete(r.st.depositMethods, methodID)
	r.st.depositOrder = removeID(r.st.depositOrder, methodID)
	return nil
}

func (r *repo) CreateWithdrawalMethod(_ context.Context, method *storages.WithdrawalMethod) error {
	if _, exists := r.st.withdrawalMethods[method.ID]; exists {
		return storages.ErrDuplicate
	}
	cm := *method
	r.st.withdrawalMethods[method.ID] = &cm
	r.st.withdrawalOrder = append(r.st.withdrawalOrder, method.ID)
	return nil
}

func (r *repo) GetWithdrawalMethod(_ context.Context, methodID string) (*storages.WithdrawalMethod, error) {
	m, ok := r.st.withdrawalMethods[methodID]
	if !ok {
		return nil, storages.ErrNotFound
	}
	cm := *m
	return &cm, nil
}

func (r *repo) ListWithdrawalMethods(_ context.Context) ([]storages.WithdrawalMethod, error) {
	methods := make([]storages.WithdrawalMethod, 0, len(r.st.withdrawalOrder))
	for _, id := range r.st.withdrawalOrder {
		methods = append(methods, *r.st.withdrawalMethods[id])
	}
	return methods, nil
}

func (r *repo) UpdateWithdrawalMethod(_ context.Context, method *storages.WithdrawalMethod) error {
	if _, ok := r.st.withdrawalMethods[method.ID]; !ok {
		return storages.ErrNotFound
	}
	cm := *method
	r.st.withdrawalMethods[method.ID] = &cm
	return nil
}

func (r *repo) DeleteWithdrawalMethod(_ context.Context, methodID string) error {
	if _, ok := r.st.withdrawalMethods[methodID]; !ok {
		return storages.ErrNotFound
	}
	delete(r.st.withdrawalMethods, methodID)
	r.st.withdrawalOrder = removeID(r.st.withdrawalOrder, methodID)
	return nil
}

// Password reset operations

func (r *repo) CreateResetRequest(_ context.Context, req *storages.PasswordResetRequest) error {
	if _, exists := r.st.resets[req.ID]; exists {
		return storages.ErrDuplicate
	}
	cr := *req
	r.st.resets[req.ID] = &cr
	r.st.resetOrder = append(r.st.resetOrder, req.ID)
	return nil
}

func (r *repo) GetResetRequest(_ context.Context, requestID string) (*storages.PasswordResetRequest, error) {
	req, ok := r.st.resets[requestID]
	if !ok {
		return nil, storages.ErrNotFound
	}
	cr := *req
	return &cr, nil
}

func (r *repo) ListResetRequests(_ context.Context, status string) ([]storages.PasswordResetRequest, error) {
	result := []storages.PasswordResetRequest{}
	for i := len(r.st.resetOrder) - 1; i >= 0; i-- {
		req := r.st.resets[r.st.resetOrder[i]]
		if status == "" || req.Status == status {
			result = append(result, *req)
		}
	}
	return result, nil
}

func (r *repo) UpdateResetRequest(_ context.Context, req *storages.PasswordResetRequest) error {
	if _, ok := r.st.resets[req.ID]; !ok {
		return storages.ErrNotFound
	}
	cr := *req
	r.st.resets[req.ID] = &cr
	return nil
}
