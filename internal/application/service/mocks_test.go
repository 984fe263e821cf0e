package service

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expense-claims/internal/application/dispatcher"
	"github.com/garyjia/expense-claims/internal/application/port"
	"github.com/garyjia/expense-claims/internal/domain/claimquery"
	"github.com/garyjia/expense-claims/internal/domain/entity"
	"github.com/garyjia/expense-claims/internal/domain/event"
)

// Mock repositories

type mockClaimRepo struct {
	createFunc       func(ctx context.Context, claim *entity.Claim) error
	getByIDFunc      func(ctx context.Context, id int64) (*entity.Claim, error)
	updateHeaderFunc func(ctx context.Context, id int64, expected entity.ClaimStatus, changes entity.ClaimChanges) (bool, error)
	transitionFunc   func(ctx context.Context, id int64, t entity.ClaimTransition) (bool, error)
	updateTotalFunc  func(ctx context.Context, id int64, expected entity.ClaimStatus, total decimal.Decimal) (bool, error)
	deleteFunc       func(ctx context.Context, id int64, expected entity.ClaimStatus) (bool, error)
	searchFunc       func(ctx context.Context, q claimquery.Query) ([]*entity.ClaimSummary, int64, error)
}

func (m *mockClaimRepo) Create(ctx context.Context, claim *entity.Claim) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, claim)
	}
	claim.ID = 1
	return nil
}

func (m *mockClaimRepo) GetByID(ctx context.Context, id int64) (*entity.Claim, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockClaimRepo) UpdateHeader(ctx context.Context, id int64, expected entity.ClaimStatus, changes entity.ClaimChanges) (bool, error) {
	if m.updateHeaderFunc != nil {
		return m.updateHeaderFunc(ctx, id, expected, changes)
	}
	return true, nil
}

func (m *mockClaimRepo) Transition(ctx context.Context, id int64, t entity.ClaimTransition) (bool, error) {
	if m.transitionFunc != nil {
		return m.transitionFunc(ctx, id, t)
	}
	return true, nil
}

func (m *mockClaimRepo) UpdateTotal(ctx context.Context, id int64, expected entity.ClaimStatus, total decimal.Decimal, actor string, at time.Time) (bool, error) {
	if m.updateTotalFunc != nil {
		return m.updateTotalFunc(ctx, id, expected, total)
	}
	return true, nil
}

func (m *mockClaimRepo) Delete(ctx context.Context, id int64, expected entity.ClaimStatus) (bool, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id, expected)
	}
	return true, nil
}

func (m *mockClaimRepo) Search(ctx context.Context, q claimquery.Query) ([]*entity.ClaimSummary, int64, error) {
	if m.searchFunc != nil {
		return m.searchFunc(ctx, q)
	}
	return nil, 0, nil
}

type mockExpenseRepo struct {
	createFunc  func(ctx context.Context, expense *entity.Expense) error
	getByIDFunc func(ctx context.Context, id int64) (*entity.Expense, error)
	updateFunc  func(ctx context.Context, expense *entity.Expense) error
	deleteFunc  func(ctx context.Context, id int64) error
	listFunc    func(ctx context.Context, claimID int64) ([]*entity.Expense, error)
	countFunc   func(ctx context.Context, claimID int64) (int, error)
	sumFunc     func(ctx context.Context, claimID int64) (decimal.Decimal, error)
}

func (m *mockExpenseRepo) Create(ctx context.Context, expense *entity.Expense) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, expense)
	}
	expense.ID = 1
	return nil
}

func (m *mockExpenseRepo) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockExpenseRepo) Update(ctx context.Context, expense *entity.Expense) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, expense)
	}
	return nil
}

func (m *mockExpenseRepo) Delete(ctx context.Context, id int64) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockExpenseRepo) DeleteByClaimID(ctx context.Context, claimID int64) error {
	return nil
}

func (m *mockExpenseRepo) ListByClaimID(ctx context.Context, claimID int64) ([]*entity.Expense, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, claimID)
	}
	return []*entity.Expense{}, nil
}

func (m *mockExpenseRepo) CountByClaimID(ctx context.Context, claimID int64) (int, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, claimID)
	}
	return 0, nil
}

func (m *mockExpenseRepo) SumByClaimID(ctx context.Context, claimID int64) (decimal.Decimal, error) {
	if m.sumFunc != nil {
		return m.sumFunc(ctx, claimID)
	}
	return decimal.Zero, nil
}

type mockAttachmentRepo struct {
	createFunc  func(ctx context.Context, att *entity.Attachment, expected entity.ClaimStatus) (bool, error)
	getByIDFunc func(ctx context.Context, id int64) (*entity.Attachment, error)
	listFunc    func(ctx context.Context, claimID int64) ([]*entity.Attachment, error)
	deleteFunc  func(ctx context.Context, id int64, expected entity.ClaimStatus) (bool, error)
}

func (m *mockAttachmentRepo) Create(ctx context.Context, att *entity.Attachment, expected entity.ClaimStatus) (bool, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, att, expected)
	}
	att.ID = 1
	return true, nil
}

func (m *mockAttachmentRepo) GetByID(ctx context.Context, id int64) (*entity.Attachment, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockAttachmentRepo) ListByClaimID(ctx context.Context, claimID int64) ([]*entity.Attachment, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, claimID)
	}
	return []*entity.Attachment{}, nil
}

func (m *mockAttachmentRepo) Delete(ctx context.Context, id int64, expected entity.ClaimStatus) (bool, error) {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id, expected)
	}
	return true, nil
}

func (m *mockAttachmentRepo) DeleteByClaimID(ctx context.Context, claimID int64) error {
	return nil
}

func (m *mockAttachmentRepo) ExistsByFilePath(ctx context.Context, path string) (bool, error) {
	return false, nil
}

type mockAuditRepo struct {
	mu         sync.Mutex
	logs       []*entity.AuditLog
	createFunc func(ctx context.Context, log *entity.AuditLog) error
}

func (m *mockAuditRepo) Create(ctx context.Context, log *entity.AuditLog) error {
	if m.createFunc != nil {
		if err := m.createFunc(ctx, log); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	log.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockAuditRepo) ListByEntity(ctx context.Context, entityType string, entityID int64) ([]*entity.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.AuditLog
	for _, l := range m.logs {
		if l.EntityType == entityType && l.EntityID == entityID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockAuditRepo) ListByUser(ctx context.Context, user string, limit int) ([]*entity.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.AuditLog
	for _, l := range m.logs {
		if l.ActingUser == user && len(out) < limit {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockAuditRepo) all() []*entity.AuditLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*entity.AuditLog(nil), m.logs...)
}

type mockReferenceRepo struct {
	employees    map[int64]*entity.Employee
	eventTypes   map[int64]*entity.EventType
	currencies   map[int64]*entity.Currency
	expenseTypes map[int64]*entity.ExpenseType
	upserted     int
	upsertErr    error
}

func newMockReferenceRepo() *mockReferenceRepo {
	return &mockReferenceRepo{
		employees: map[int64]*entity.Employee{
			1: {ID: 1, FirstName: "Alice", LastName: "Wong", LarkOpenID: "ou_alice", Active: true},
			2: {ID: 2, FirstName: "Bob", LastName: "Stone", Active: false},
		},
		eventTypes:   map[int64]*entity.EventType{1: {ID: 1, Name: "Conference"}, 2: {ID: 2, Name: "Client Visit"}},
		currencies:   map[int64]*entity.Currency{1: {ID: 1, Code: "USD", Name: "US Dollar"}, 2: {ID: 2, Code: "EUR", Name: "Euro"}},
		expenseTypes: map[int64]*entity.ExpenseType{1: {ID: 1, Name: "Airfare"}, 3: {ID: 3, Name: "Meals"}},
	}
}

func (m *mockReferenceRepo) GetEmployee(ctx context.Context, id int64) (*entity.Employee, error) {
	return m.employees[id], nil
}

func (m *mockReferenceRepo) GetEventType(ctx context.Context, id int64) (*entity.EventType, error) {
	return m.eventTypes[id], nil
}

func (m *mockReferenceRepo) GetCurrency(ctx context.Context, id int64) (*entity.Currency, error) {
	return m.currencies[id], nil
}

func (m *mockReferenceRepo) GetExpenseType(ctx context.Context, id int64) (*entity.ExpenseType, error) {
	return m.expenseTypes[id], nil
}

func (m *mockReferenceRepo) UpsertEmployee(ctx context.Context, employee *entity.Employee) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted++
	return nil
}

func (m *mockReferenceRepo) UpsertEventType(ctx context.Context, eventType *entity.EventType) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserted++
	return nil
}

type mockSequenceRepo struct {
	mu   sync.Mutex
	days map[string]int64
	err  error
}

func (m *mockSequenceRepo) Next(ctx context.Context, day string) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.days == nil {
		m.days = map[string]int64{}
	}
	m.days[day]++
	return m.days[day], nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
	calls               int
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

// Mock collaborators

type mockStorage struct {
	mu        sync.Mutex
	files     map[string][]byte
	saveErr   error
	deleteErr error
	deleted   []string
}

func newMockStorage() *mockStorage {
	return &mockStorage{files: map[string][]byte{}}
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte, contentType string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = append([]byte(nil), content...)
	return nil
}

func (m *mockStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[path]
	if !ok {
		return nil, port.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[path]
	return ok
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, path)
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.files, path)
	return nil
}

func (m *mockStorage) List(ctx context.Context, prefix string) ([]port.StoredFile, error) {
	return nil, nil
}

type mockInspector struct {
	info *port.DocumentInfo
	err  error
}

func (m *mockInspector) Inspect(ctx context.Context, content []byte) (*port.DocumentInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.info != nil {
		return m.info, nil
	}
	return &port.DocumentInfo{MIMEType: "application/pdf", Extension: ".pdf", PageCount: 1}, nil
}

type sentMessage struct {
	receiveIDType string
	receiveID     string
	text          string
}

type mockNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

func (m *mockNotifier) SendText(ctx context.Context, receiveIDType, receiveID, text string) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{receiveIDType, receiveID, text})
	return nil
}

type mockExporter struct {
	rows []*entity.ClaimSummary
	err  error
}

func (m *mockExporter) WriteClaims(w io.Writer, rows []*entity.ClaimSummary) error {
	m.rows = rows
	if m.err != nil {
		return m.err
	}
	_, err := w.Write([]byte("xlsx"))
	return err
}

type mockDirectoryReader struct {
	dir *port.Directory
	err error
}

func (m *mockDirectoryReader) ReadDirectory(r io.Reader) (*port.Directory, error) {
	return m.dir, m.err
}

type mockMetrics struct {
	mu          sync.Mutex
	transitions []string
	failures    []string
	uploads     []string
}

func (m *mockMetrics) RecordTransition(from, trigger string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := "ok"
	if !ok {
		result = "rejected"
	}
	m.transitions = append(m.transitions, from+"/"+trigger+"/"+result)
}

func (m *mockMetrics) RecordObserverFailure(eventType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, eventType)
}

func (m *mockMetrics) RecordUpload(result string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads = append(m.uploads, result)
}

type mockLogger struct {
	mu     sync.Mutex
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

// recordingDispatcher captures dispatched events without running observers
type recordingDispatcher struct {
	mu     sync.Mutex
	events []*event.Event
	err    error
}

func (d *recordingDispatcher) Observe(event.Type, string, dispatcher.Handler) {}

func (d *recordingDispatcher) ObserveAsync(event.Type, string, dispatcher.Handler) {}

func (d *recordingDispatcher) Observers(event.Type) []dispatcher.ObserverInfo { return nil }

func (d *recordingDispatcher) Close() error { return nil }

func (d *recordingDispatcher) Dispatch(ctx context.Context, evt *event.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, evt)
	return d.err
}

func (d *recordingDispatcher) types() []event.Type {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]event.Type, 0, len(d.events))
	for _, e := range d.events {
		out = append(out, e.Type)
	}
	return out
}

var (
	fixedNow  = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	fixedDate = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	employee  = entity.Principal{ID: 1, Username: "alice", Role: entity.RoleEmployee}
	approver  = entity.Principal{ID: 9, Username: "admin", Role: entity.RoleAdmin}
)

func fixedClock() time.Time { return fixedNow }

func initiatedClaim(id int64) *entity.Claim {
	return &entity.Claim{
		ID:          id,
		ReferenceID: "CLM-20260314-0001",
		EmployeeID:  1,
		EventTypeID: 1,
		CurrencyID:  1,
		Status:      entity.ClaimStatusInitiated,
		TotalAmount: decimal.Zero,
	}
}

func claimWithStatus(id int64, status entity.ClaimStatus) *entity.Claim {
	c := initiatedClaim(id)
	c.Status = status
	return c
}
