// Package fakebackend is an in-memory stand-in for the investment platform REST API,
// used for local runs of the client and by the client's tests.
package fakebackend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"coinvest/api"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

type contextKey string

const userIDKey contextKey = "coinvest.user_id"

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type account struct {
	user     api.User
	password string
	pin      string
}

// Server holds all state in memory. The zero value is not usable; call New.
type Server struct {
	mu     sync.Mutex
	tokens *tokenIssuer
	nextID int64
	hits   map[string]int

	accounts     map[int64]*account
	byEmail      map[string]int64
	plans        []api.Plan
	investments  map[int64][]api.Investment
	deposits     map[int64][]api.Deposit
	withdrawals  map[int64][]api.Withdrawal
	transactions map[int64][]api.Transaction
}

type Option func(*Server)

// WithClock replaces time.Now for token issuing and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.tokens.now = now }
}

// WithTokenTTL sets the access and refresh token lifetimes.
func WithTokenTTL(access, refresh time.Duration) Option {
	return func(s *Server) {
		s.tokens.accessTTL = access
		s.tokens.refreshTTL = refresh
	}
}

func New(secret string, opts ...Option) *Server {
	s := &Server{
		tokens: &tokenIssuer{
			secret:     []byte(secret),
			accessTTL:  15 * time.Minute,
			refreshTTL: 7 * 24 * time.Hour,
			now:        time.Now,
		},
		hits:         make(map[string]int),
		accounts:     make(map[int64]*account),
		byEmail:      make(map[string]int64),
		investments:  make(map[int64][]api.Investment),
		deposits:     make(map[int64][]api.Deposit),
		withdrawals:  make(map[int64][]api.Withdrawal),
		transactions: make(map[int64][]api.Transaction),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.plans = DefaultPlans()
	for _, p := range s.plans {
		if p.ID > s.nextID {
			s.nextID = p.ID
		}
	}
	return s
}

// DefaultPlans is the starter/pro × silver/gold/platinum catalogue.
func DefaultPlans() []api.Plan {
	d := decimal.RequireFromString
	return []api.Plan{
		{ID: 1, Name: "Starter Silver", Tier: api.TierStarter, Level: api.LevelSilver, DailyROI: d("1.5"), MinDeposit: d("50"), MaxDeposit: d("999"), DurationDays: 7},
		{ID: 2, Name: "Starter Gold", Tier: api.TierStarter, Level: api.LevelGold, DailyROI: d("2"), MinDeposit: d("1000"), MaxDeposit: d("4999"), DurationDays: 14},
		{ID: 3, Name: "Starter Platinum", Tier: api.TierStarter, Level: api.LevelPlatinum, DailyROI: d("2.5"), MinDeposit: d("5000"), MaxDeposit: d("9999"), DurationDays: 21},
		{ID: 4, Name: "Pro Silver", Tier: api.TierPro, Level: api.LevelSilver, DailyROI: d("3"), MinDeposit: d("10000"), MaxDeposit: d("24999"), DurationDays: 30},
		{ID: 5, Name: "Pro Gold", Tier: api.TierPro, Level: api.LevelGold, DailyROI: d("4"), MinDeposit: d("25000"), MaxDeposit: d("49999"), DurationDays: 45},
		{ID: 6, Name: "Pro Platinum", Tier: api.TierPro, Level: api.LevelPlatinum, DailyROI: d("5"), MinDeposit: d("50000"), MaxDeposit: d("100000"), DurationDays: 60},
	}
}

// Router exposes the REST contract under /api.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	a := r.PathPrefix("/api").Subrouter()

	a.HandleFunc("/login/", s.count("login", s.handleLogin)).Methods(http.MethodPost)
	a.HandleFunc("/register/", s.count("register", s.handleRegister)).Methods(http.MethodPost)
	a.HandleFunc("/token/refresh/", s.count("refresh", s.handleRefresh)).Methods(http.MethodPost)

	authed := a.NewRoute().Subrouter()
	authed.Use(s.requireAuth)
	authed.HandleFunc("/balance/", s.count("balance", s.handleBalance)).Methods(http.MethodGet)
	authed.HandleFunc("/transactions/investment-plans/", s.count("plans", s.handlePlans)).Methods(http.MethodGet)
	authed.HandleFunc("/transactions/investments/", s.count("investments", s.handleInvestments)).Methods(http.MethodGet)
	authed.HandleFunc("/transactions/investments/create/", s.count("create_investment", s.handleCreateInvestment)).Methods(http.MethodPost)
	authed.HandleFunc("/transactions/investments/{id:[0-9]+}/", s.count("investment", s.handleInvestment)).Methods(http.MethodGet)
	authed.HandleFunc("/transactions/deposits/create/", s.count("create_deposit", s.handleCreateDeposit)).Methods(http.MethodPost)
	authed.HandleFunc("/transactions/withdrawals/create/", s.count("create_withdrawal", s.handleCreateWithdrawal)).Methods(http.MethodPost)
	authed.HandleFunc("/transactions/transactions/", s.count("transactions", s.handleTransactions)).Methods(http.MethodGet)
	authed.HandleFunc("/accounts/update-profile/", s.count("update_profile", s.handleUpdateProfile)).Methods(http.MethodPut)

	return r
}

// Hits returns how many times a named route was called.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// TotalHits returns the number of requests served.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// AddUser creates an account directly, bypassing registration.
func (s *Server) AddUser(fullName, email, password, pin string, balance decimal.Decimal) api.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(fullName, email, password, pin, balance, "")
}

// SetBalance overwrites the balance of an account.
func (s *Server) SetBalance(email string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.byEmail[strings.ToLower(email)]; ok {
		s.accounts[id].user.Balance = balance
	}
}

// IssueTokens returns a fresh token pair for an existing account.
func (s *Server) IssueTokens(email string) (access, refresh string, err error) {
	s.mu.Lock()
	id, ok := s.byEmail[strings.ToLower(email)]
	s.mu.Unlock()
	if !ok {
		return "", "", fmt.Errorf("no account for %s", email)
	}
	return s.tokens.pair(id)
}

func (s *Server) addUserLocked(fullName, email, password, pin string, balance decimal.Decimal, referredBy string) api.User {
	s.nextID++
	id := s.nextID
	acc := &account{
		user: api.User{
			ID:           id,
			Email:        strings.ToLower(email),
			FullName:     fullName,
			Balance:      balance,
			ReferralCode: fmt.Sprintf("REF%05d", id),
			IsActive:     true,
		},
		password: password,
		pin:      pin,
	}
	s.accounts[id] = acc
	s.byEmail[acc.user.Email] = id
	return acc.user
}

func (s *Server) count(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[route]++
		s.mu.Unlock()
		h(w, r)
	}
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Authentication credentials were not provided."})
			return
		}
		userID, err := s.tokens.verify(token, tokenTypeAccess)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
			return
		}
		s.mu.Lock()
		_, exists := s.accounts[userID]
		s.mu.Unlock()
		if !exists {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "User not found"})
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFrom(r *http.Request) int64 {
	id, _ := r.Context().Value(userIDKey).(int64)
	return id
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	id, ok := s.byEmail[strings.ToLower(req.Email)]
	var acc *account
	if ok {
		acc = s.accounts[id]
	}
	s.mu.Unlock()

	if acc == nil || acc.password != req.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
		return
	}

	access, refresh, err := s.tokens.pair(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}

	user := acc.user
	writeJSON(w, http.StatusOK, api.LoginResponse{Access: access, Refresh: refresh, User: &user})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	fields := map[string][]string{}
	if strings.TrimSpace(req.FullName) == "" {
		fields["full_name"] = []string{"This field may not be blank."}
	}
	if !emailPattern.MatchString(req.Email) {
		fields["email"] = []string{"Enter a valid email address."}
	}
	if len(req.Password) < 8 {
		fields["password"] = []string{"Ensure this field has at least 8 characters."}
	}
	if len(req.TransactionPIN) != 4 {
		fields["transaction_pin"] = []string{"Ensure this field has exactly 4 digits."}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[strings.ToLower(req.Email)]; exists {
		fields["email"] = []string{"user with this email already exists."}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fields)
		return
	}

	user := s.addUserLocked(req.FullName, req.Email, req.Password, req.TransactionPIN, decimal.Zero, req.ReferralCode)
	writeJSON(w, http.StatusCreated, api.Registration{Message: "Registration successful", User: &user})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req api.RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	userID, err := s.tokens.verify(req.Refresh, tokenTypeRefresh)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
		return
	}
	access, err := s.tokens.issue(userID, tokenTypeAccess)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, api.TokenPair{Access: access})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	balance := s.accounts[userIDFrom(r)].user.Balance
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, api.Balance{Balance: balance})
}

func (s *Server) handlePlans(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	plans := append([]api.Plan(nil), s.plans...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, plans)
}

func (s *Server) handleInvestments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := append([]api.Investment{}, s.investments[userIDFrom(r)]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleInvestment(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.investments[userIDFrom(r)] {
		if inv.ID == id {
			writeJSON(w, http.StatusOK, inv)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
}

func (s *Server) handleCreateInvestment(w http.ResponseWriter, r *http.Request) {
	var req api.CreateInvestmentRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.accounts[userIDFrom(r)]
	var plan *api.Plan
	for i := range s.plans {
		if s.plans[i].ID == req.PlanID {
			plan = &s.plans[i]
		}
	}

	switch {
	case plan == nil:
		writeJSON(w, http.StatusBadRequest, map[string][]string{"plan_id": {"Invalid plan."}})
		return
	case req.Amount.LessThan(plan.MinDeposit) || req.Amount.GreaterThan(plan.MaxDeposit):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Amount must be between %s and %s", plan.MinDeposit, plan.MaxDeposit)})
		return
	case req.Amount.GreaterThan(acc.user.Balance):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Insufficient balance"})
		return
	}

	now := s.tokens.now()
	s.nextID++
	inv := api.Investment{
		ID:        s.nextID,
		PlanID:    plan.ID,
		PlanName:  plan.Title(),
		Amount:    req.Amount,
		Currency:  defaultString(req.Currency, "USD"),
		Status:    api.InvestmentOngoing,
		StartDate: api.Timestamp{Time: now},
		EndDate:   api.Timestamp{Time: now.AddDate(0, 0, plan.DurationDays)},
		Returns:   decimal.Zero,
	}
	acc.user.Balance = acc.user.Balance.Sub(req.Amount)
	s.investments[acc.user.ID] = append(s.investments[acc.user.ID], inv)
	s.recordLocked(acc.user.ID, "investment", req.Amount, inv.Currency, "completed", "Investment in "+plan.Title())

	writeJSON(w, http.StatusCreated, inv)
}

func (s *Server) handleCreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req api.CreateDepositRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.accounts[userIDFrom(r)]
	if req.User != acc.user.ID {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"user": {"Does not match the authenticated user."}})
		return
	}
	if !req.Amount.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"amount": {"Ensure this value is greater than 0."}})
		return
	}

	s.nextID++
	dep := api.Deposit{
		ID:            s.nextID,
		Amount:        req.Amount,
		Currency:      defaultString(req.Currency, "USD"),
		WalletAddress: req.WalletAddress,
		WalletNetwork: req.WalletNetwork,
		Status:        "pending",
		CreatedAt:     api.Timestamp{Time: s.tokens.now()},
	}
	s.deposits[acc.user.ID] = append(s.deposits[acc.user.ID], dep)
	s.recordLocked(acc.user.ID, "deposit", req.Amount, dep.Currency, "pending", req.Description)

	writeJSON(w, http.StatusCreated, dep)
}

func (s *Server) handleCreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req api.CreateWithdrawalRequest
	if !decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.accounts[userIDFrom(r)]
	switch {
	case req.TransactionPIN != acc.pin:
		writeJSON(w, http.StatusBadRequest, map[string][]string{"transaction_pin": {"Invalid transaction PIN."}})
		return
	case !req.Amount.IsPositive():
		writeJSON(w, http.StatusBadRequest, map[string][]string{"amount": {"Ensure this value is greater than 0."}})
		return
	case req.Amount.GreaterThan(acc.user.Balance):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Insufficient balance"})
		return
	}

	s.nextID++
	wd := api.Withdrawal{
		ID:                s.nextID,
		Amount:            req.Amount,
		Currency:          defaultString(req.Currency, "USD"),
		WithdrawalAddress: req.WithdrawalAddress,
		WithdrawalNetwork: req.WithdrawalNetwork,
		Status:            "pending",
		CreatedAt:         api.Timestamp{Time: s.tokens.now()},
	}
	acc.user.Balance = acc.user.Balance.Sub(req.Amount)
	s.withdrawals[acc.user.ID] = append(s.withdrawals[acc.user.ID], wd)
	s.recordLocked(acc.user.ID, "withdrawal", req.Amount, wd.Currency, "pending", "Withdrawal to "+req.WithdrawalAddress)

	writeJSON(w, http.StatusCreated, wd)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	list := append([]api.Transaction{}, s.transactions[userIDFrom(r)]...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch api.ProfilePatch
	if !decode(w, r, &patch) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc := s.accounts[userIDFrom(r)]
	if patch.Email != nil && !emailPattern.MatchString(*patch.Email) {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"email": {"Enter a valid email address."}})
		return
	}
	patch.Apply(&acc.user)
	writeJSON(w, http.StatusOK, acc.user)
}

func (s *Server) recordLocked(userID int64, kind string, amount decimal.Decimal, currency, status, description string) {
	s.nextID++
	s.transactions[userID] = append(s.transactions[userID], api.Transaction{
		ID:          s.nextID,
		Type:        kind,
		Amount:      amount,
		Currency:    currency,
		Status:      status,
		Description: description,
		CreatedAt:   api.Timestamp{Time: s.tokens.now()},
	})
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "JSON parse error - " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func defaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
