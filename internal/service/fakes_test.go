package service

import (
	"context"
	"sync"
	"time"

	"tudu/internal/dto"
	"tudu/internal/models"
	"tudu/internal/repository"

	"github.com/google/uuid"
)

var fixedNow = time.Date(2026, 3, 10, 6, 30, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type fakeTodoStore struct {
	mu         sync.Mutex
	todos      map[uuid.UUID]*models.Todo
	lastItems  []*models.ChecklistItem
	lastFilter models.TodoFilter
	lastPatch  models.TodoPatch
	err        error
}

func newFakeTodoStore() *fakeTodoStore {
	return &fakeTodoStore{todos: map[uuid.UUID]*models.Todo{}}
}

func (f *fakeTodoStore) Create(_ context.Context, todo *models.Todo, items []*models.ChecklistItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	todo.ChecklistItems = items
	f.todos[todo.ID] = todo
	f.lastItems = items
	return nil
}

func (f *fakeTodoStore) GetByID(_ context.Context, id uuid.UUID) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	todo, ok := f.todos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return todo, nil
}

func (f *fakeTodoStore) List(_ context.Context, filter models.TodoFilter, _ time.Time) ([]*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*models.Todo, 0, len(f.todos))
	for _, t := range f.todos {
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeTodoStore) Update(_ context.Context, id uuid.UUID, patch models.TodoPatch, now time.Time) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPatch = patch
	todo, ok := f.todos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Title.Set {
		todo.Title = *patch.Title.Value
	}
	if patch.IsCompleted.Set {
		todo.IsCompleted = *patch.IsCompleted.Value
		if todo.IsCompleted {
			todo.CompletedAt = &now
		} else {
			todo.CompletedAt = nil
		}
	}
	todo.UpdatedAt = now
	return todo, nil
}

func (f *fakeTodoStore) ToggleComplete(_ context.Context, id uuid.UUID, now time.Time) (*models.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	todo, ok := f.todos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	todo.IsCompleted = !todo.IsCompleted
	if todo.IsCompleted {
		todo.CompletedAt = &now
	} else {
		todo.CompletedAt = nil
	}
	return todo, nil
}

func (f *fakeTodoStore) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.todos[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.todos, id)
	return nil
}

type fakeChecklistStore struct {
	items map[uuid.UUID]*models.ChecklistItem
	todos map[uuid.UUID]bool
}

func (f *fakeChecklistStore) Create(_ context.Context, item *models.ChecklistItem) error {
	if !f.todos[item.TodoID] {
		return repository.ErrNotFound
	}
	f.items[item.ID] = item
	return nil
}

func (f *fakeChecklistStore) Update(_ context.Context, id uuid.UUID, patch models.ChecklistPatch) (*models.ChecklistItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Title.Set {
		item.Title = *patch.Title.Value
	}
	if patch.Order.Set {
		item.Order = *patch.Order.Value
	}
	if patch.IsCompleted.Set {
		item.IsCompleted = *patch.IsCompleted.Value
	}
	return item, nil
}

func (f *fakeChecklistStore) ToggleComplete(_ context.Context, id uuid.UUID) (*models.ChecklistItem, error) {
	item, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	item.IsCompleted = !item.IsCompleted
	return item, nil
}

func (f *fakeChecklistStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeAttachmentStore struct {
	created []*models.Attachment
	todos   map[uuid.UUID]bool
}

func (f *fakeAttachmentStore) Create(_ context.Context, att *models.Attachment) error {
	if !f.todos[att.TodoID] {
		return repository.ErrNotFound
	}
	f.created = append(f.created, att)
	return nil
}

func (f *fakeAttachmentStore) Delete(_ context.Context, id uuid.UUID) error {
	for i, att := range f.created {
		if att.ID == id {
			f.created = append(f.created[:i], f.created[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeReceiptStore struct {
	mu       sync.Mutex
	receipts map[uuid.UUID]*models.Receipt
	saved     map[uuid.UUID][]*models.Expense
	createErr error
	saveErr   error
}

func newFakeReceiptStore() *fakeReceiptStore {
	return &fakeReceiptStore{
		receipts: map[uuid.UUID]*models.Receipt{},
		saved:    map[uuid.UUID][]*models.Expense{},
	}
}

func (f *fakeReceiptStore) Create(_ context.Context, receipt *models.Receipt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	copied := *receipt
	f.receipts[receipt.ID] = &copied
	return nil
}

func (f *fakeReceiptStore) GetByID(_ context.Context, id uuid.UUID) (*models.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r.Expenses = f.saved[id]
	return r, nil
}

func (f *fakeReceiptStore) List(_ context.Context, _ *models.DateRange) ([]*models.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Receipt, 0, len(f.receipts))
	for _, r := range f.receipts {
		out = append(out, r)
	}
	return out, nil
}

func (f *fakeReceiptStore) SaveAnalysis(_ context.Context, id uuid.UUID, expenses []*models.Expense, processedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	r := f.receipts[id]
	if r == nil || r.Status != models.ReceiptStatusPending {
		return repository.ErrInvalidTransition
	}
	f.saved[id] = expenses
	r.Status = models.ReceiptStatusProcessed
	r.ProcessedAt = &processedAt
	return nil
}

func (f *fakeReceiptStore) MarkFailed(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.receipts[id]
	if r == nil || r.Status != models.ReceiptStatusPending {
		return repository.ErrInvalidTransition
	}
	r.Status = models.ReceiptStatusFailed
	return nil
}

func (f *fakeReceiptStore) Delete(_ context.Context, id uuid.UUID) (*string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.receipts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(f.receipts, id)
	delete(f.saved, id)
	return r.ImageURL, nil
}

func (f *fakeReceiptStore) only() *models.Receipt {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.receipts {
		return r
	}
	return nil
}

type fakeExpenseStore struct {
	created  []*models.Expense
	receipts map[uuid.UUID]bool
}

func (f *fakeExpenseStore) Create(_ context.Context, e *models.Expense) error {
	if !f.receipts[e.ReceiptID] {
		return repository.ErrNotFound
	}
	f.created = append(f.created, e)
	return nil
}

type fakeImageStore struct {
	saved   map[string][]byte
	deleted []string
	saveErr error
}

func (f *fakeImageStore) Save(_ context.Context, key string, data []byte, _ string) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	if f.saved == nil {
		f.saved = map[string][]byte{}
	}
	f.saved[key] = data
	return "https://cdn.test/" + key, nil
}

func (f *fakeImageStore) Delete(_ context.Context, url string) error {
	f.deleted = append(f.deleted, url)
	return nil
}

type fakeAnalyzer struct {
	analysis *dto.ReceiptAnalysis
	err      error
}

func (f *fakeAnalyzer) AnalyzeReceipt(context.Context, []byte, string) (*dto.ReceiptAnalysis, error) {
	return f.analysis, f.err
}

type fakeParser struct {
	parsed   *dto.TodoParsed
	err      error
	lastText string
}

func (f *fakeParser) ParseTodo(_ context.Context, text string) (*dto.TodoParsed, error) {
	f.lastText = text
	return f.parsed, f.err
}

type fakeCompleter struct {
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	f.lastPrompt = prompt
	return f.reply, f.err
}

type fakeDescriber struct {
	reply    string
	err      error
	fileName string
}

func (f *fakeDescriber) DescribeImage(_ context.Context, _ []byte, fileName, _, _ string) (string, error) {
	f.fileName = fileName
	return f.reply, f.err
}

type fakeAnalyticsStore struct {
	lastLimit int
	err       error
}

func (f *fakeAnalyticsStore) SpendingByCategory(context.Context, *models.DateRange) ([]models.CategorySpending, error) {
	return []models.CategorySpending{}, f.err
}

func (f *fakeAnalyticsStore) SpendingOverTime(context.Context, *models.DateRange) ([]models.DailySpending, error) {
	return []models.DailySpending{}, f.err
}

func (f *fakeAnalyticsStore) TopMerchants(_ context.Context, limit int, _ *models.DateRange) ([]models.MerchantSpending, error) {
	f.lastLimit = limit
	return []models.MerchantSpending{}, f.err
}

func (f *fakeAnalyticsStore) TotalSpending(context.Context, *models.DateRange) (*models.SpendingSummary, error) {
	return &models.SpendingSummary{}, f.err
}

func (f *fakeAnalyticsStore) TodoAnalytics(context.Context, *models.DateRange, time.Time) (*models.TodoAnalytics, error) {
	return &models.TodoAnalytics{}, f.err
}
