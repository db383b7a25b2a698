package services

import (
	"context"
	"sync"

	"github.com/lborres/volunteer/core"
)

// FakeTokenStore is a test-only fake implementing core.TokenStore.
// It exposes error fields for behavior injection.
type FakeTokenStore struct {
	mu       sync.Mutex
	token    string
	readErr  error
	writeErr error
	clearErr error
	writes   []string
	clears   int
}

var _ core.TokenStore = (*FakeTokenStore)(nil)

func NewFakeTokenStore(token string) *FakeTokenStore {
	return &FakeTokenStore{token: token}
}

func (f *FakeTokenStore) Read() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return "", f.readErr
	}
	return f.token, nil
}

func (f *FakeTokenStore) Write(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.token = token
	f.writes = append(f.writes, token)
	return nil
}

func (f *FakeTokenStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.token = ""
	f.clears++
	return nil
}

func (f *FakeTokenStore) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *FakeTokenStore) Clears() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.clears
}

func (f *FakeTokenStore) SetErrors(read, write, clear error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErr, f.writeErr, f.clearErr = read, write, clear
}

// FakeBackend is a test-only fake implementing core.BackendAPI.
//
// Responses are looked up per token (Me) or per operation. A non-nil hook
// replaces the canned answer and may block to simulate slow requests.
type FakeBackend struct {
	mu sync.Mutex

	users    map[string]*core.Identity
	meErr    map[string]error
	meHook   func(ctx context.Context, token string) (*core.Identity, error)
	meCalls  map[string]int
	calls    map[string]int
	loginRes *core.AuthResult
	loginErr error
	regRes   *core.AuthResult
	regErr   error
	logoutEr error

	profileErr map[core.RoleName]error

	accounts     []core.UserAccount
	listErr      map[string]error
	mutateErr    map[string]error
	applications []core.Application
	logs         []core.SystemLog
	opps         []core.Opportunity
	listParams   map[string][]core.ListParams
}

var _ core.BackendAPI = (*FakeBackend)(nil)

func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		users:      make(map[string]*core.Identity),
		meErr:      make(map[string]error),
		meCalls:    make(map[string]int),
		calls:      make(map[string]int),
		profileErr: make(map[core.RoleName]error),
		listErr:    make(map[string]error),
		mutateErr:  make(map[string]error),
		listParams: make(map[string][]core.ListParams),
	}
}

func (f *FakeBackend) record(op string) {
	f.calls[op]++
}

// Calls returns how many times an operation was invoked.
func (f *FakeBackend) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of backend calls of any operation.
func (f *FakeBackend) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *FakeBackend) Me(ctx context.Context, token string) (*core.Identity, error) {
	f.mu.Lock()
	f.record(core.OpMe)
	f.meCalls[token]++
	hook := f.meHook
	user, err := f.users[token], f.meErr[token]
	f.mu.Unlock()

	if hook != nil {
		return hook(ctx, token)
	}
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &core.APIError{Status: 401, Category: core.CategoryUnauthenticated, Message: "Unauthenticated."}
	}
	return user, nil
}

func (f *FakeBackend) Login(ctx context.Context, input core.LoginInput) (*core.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(core.OpLogin)
	return f.loginRes, f.loginErr
}

func (f *FakeBackend) Register(ctx context.Context, input core.RegisterInput) (*core.AuthResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(core.OpRegister)
	return f.regRes, f.regErr
}

func (f *FakeBackend) Logout(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(core.OpLogout)
	return f.logoutEr
}

func (f *FakeBackend) ProbeProfile(ctx context.Context, token string, role core.RoleName) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(core.OpProfile)
	return f.profileErr[role]
}

func (f *FakeBackend) recordList(op string, params core.ListParams) error {
	f.record(op)
	f.listParams[op] = append(f.listParams[op], params)
	return f.listErr[op]
}

// ListCalls returns the params of every call of a list operation.
func (f *FakeBackend) ListCalls(op string) []core.ListParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.ListParams(nil), f.listParams[op]...)
}

func (f *FakeBackend) ListUsers(ctx context.Context, token string, params core.ListParams) ([]core.UserAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.recordList(core.OpListUsers, params); err != nil {
		return nil, err
	}
	return append([]core.UserAccount(nil), f.accounts...), nil
}

func (f *FakeBackend) SetUserActive(ctx context.Context, token string, id int64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(core.OpSetUserActive)
	if err := f.mutateErr[core.OpSetUserActive]; err != nil {
		return err
	}
	for i := range f.accounts {
		if f.accounts[i].ID == id {
			f.accounts[i].IsActive = active
		}
	}
	return nil
}

func (f *FakeBackend) ListLogs(ctx context.Context, token string, params core.ListParams) ([]core.SystemLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.recordList(core.OpListLogs, params); err != nil {
		return nil, err
	}
	return append([]core.SystemLog(nil), f.logs...), nil
}

func (f *FakeBackend) ListFeedback(ctx context.Context, token string, params core.ListParams) ([]core.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.recordList(core.OpListFeedback, params); err != nil {
		return nil, err
	}
	return []core.Feedback{}, nil
}

func (f *FakeBackend) ListOpportunities(ctx context.Context, token string, params core.ListParams) ([]core.Opportunity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.recordList(core.OpListOpportunities, params); err != nil {
		return nil, err
	}
	return append([]core.Opportunity(nil), f.opps...), nil
}

func (f *FakeBackend) ListApplications(ctx context.Context, token string, params core.ListParams) ([]core.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.recordList(core.OpListApplications, params); err != nil {
		return nil, err
	}
	return append([]core.Application(nil), f.applications...), nil
}

func (f *FakeBackend) SetApplicationStatus(ctx context.Context, token string, id int64, status core.ApplicationStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(core.OpSetApplication)
	if err := f.mutateErr[core.OpSetApplication]; err != nil {
		return err
	}
	for i := range f.applications {
		if f.applications[i].ID == id {
			f.applications[i].Status = status
		}
	}
	return nil
}

func (f *FakeBackend) ListAssignments(ctx context.Context, token string, params core.ListParams) ([]core.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.recordList(core.OpListAssignments, params); err != nil {
		return nil, err
	}
	return []core.Assignment{}, nil
}

func (f *FakeBackend) ListMessages(ctx context.Context, token string, params core.ListParams) ([]core.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.recordList(core.OpListMessages, params); err != nil {
		return nil, err
	}
	return []core.Message{}, nil
}

// Test helper methods

func (f *FakeBackend) SetUser(token string, user *core.Identity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[token] = user
}

func (f *FakeBackend) SetMeError(token string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meErr[token] = err
}

func (f *FakeBackend) SetMeHook(hook func(ctx context.Context, token string) (*core.Identity, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meHook = hook
}

func (f *FakeBackend) SetLogin(res *core.AuthResult, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginRes, f.loginErr = res, err
}

func (f *FakeBackend) SetRegister(res *core.AuthResult, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regRes, f.regErr = res, err
}

func (f *FakeBackend) SetLogoutError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutEr = err
}

func (f *FakeBackend) SetProfileError(role core.RoleName, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profileErr[role] = err
}

func (f *FakeBackend) SetListError(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr[op] = err
}

func (f *FakeBackend) SetMutateError(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mutateErr[op] = err
}

func (f *FakeBackend) SetAccounts(accounts []core.UserAccount) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = accounts
}

func (f *FakeBackend) SetApplications(apps []core.Application) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applications = apps
}

func (f *FakeBackend) SetLogs(logs []core.SystemLog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = logs
}

func (f *FakeBackend) SetOpportunities(opps []core.Opportunity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opps = opps
}

// fakeTokens is a fixed core.TokenSource.
type fakeTokens string

func (t fakeTokens) CurrentToken() string { return string(t) }
