package handlers_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/scenedex/scenedex/internal/application/revision"
	"github.com/scenedex/scenedex/internal/domain/element"
	"github.com/scenedex/scenedex/internal/domain/script"
	"github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// fakeStore is an in-memory revision.Store for handler tests.
type fakeStore struct {
	mu       sync.Mutex
	scripts  map[common.ID]*script.Script
	elements map[common.ID]*element.Element
	matches  map[common.ID]*script.RevisionMatch
	order    []common.ID // match insertion order
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		scripts:  make(map[common.ID]*script.Script),
		elements: make(map[common.ID]*element.Element),
		matches:  make(map[common.ID]*script.RevisionMatch),
	}
}

func (f *fakeStore) CreateScript(_ context.Context, s *script.Script) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[s.ID] = s
	return nil
}

func (f *fakeStore) GetScript(_ context.Context, id common.ID) (*script.Script, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scripts[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeScriptNotFound, "script not found").
			WithDetail(fmt.Sprintf("script_id=%s", id))
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStore) GetElement(_ context.Context, id common.ID) (*element.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.elements[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeElementNotFound, "element not found")
	}
	cp := *el
	return &cp, nil
}

func (f *fakeStore) ActiveElements(_ context.Context, scriptID common.ID) ([]*element.Element, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*element.Element
	for _, el := range f.elements {
		if el.ScriptID == scriptID && !el.IsArchived() {
			cp := *el
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) UnresolvedMatches(_ context.Context, scriptID common.ID) ([]*script.RevisionMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*script.RevisionMatch
	for _, id := range f.order {
		m := f.matches[id]
		if m.ScriptID == scriptID && !m.Resolved {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) ApplyReconciliation(_ context.Context, plan *revision.ReconciliationPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scripts[plan.ScriptID]
	if !ok || s.Status != plan.FromStatus {
		return errors.New(errors.ErrCodeScriptStatusInvalid, "script is not in the expected lifecycle state")
	}
	for _, el := range plan.Migrations {
		cp := *el
		f.elements[el.ID] = &cp
	}
	for _, el := range plan.Creations {
		cp := *el
		f.elements[el.ID] = &cp
	}
	for _, m := range plan.Matches {
		cp := *m
		f.matches[m.ID] = &cp
		f.order = append(f.order, m.ID)
	}
	s.Status = plan.ToStatus
	s.PageCount = plan.PageCount
	return nil
}

func (f *fakeStore) ApplyResolution(_ context.Context, plan *revision.ResolutionPlan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scripts[plan.ScriptID]
	if !ok || s.Status != script.StatusReconciling {
		return errors.New(errors.ErrCodeScriptStatusInvalid, "script is not in the expected lifecycle state")
	}
	for _, el := range plan.UpdatedElements {
		cp := *el
		f.elements[el.ID] = &cp
	}
	for _, el := range plan.CreatedElements {
		cp := *el
		f.elements[el.ID] = &cp
	}
	for _, m := range plan.ResolvedMatches {
		cp := *m
		f.matches[m.ID] = &cp
	}
	if plan.ToStatus != "" {
		s.Status = plan.ToStatus
	}
	return nil
}

func (f *fakeStore) UpdateScriptStatus(_ context.Context, id common.ID, from, to script.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scripts[id]
	if !ok {
		return errors.New(errors.ErrCodeScriptNotFound, "script not found")
	}
	if s.Status != from {
		return errors.New(errors.ErrCodeScriptStatusInvalid, "script status changed").
			WithDetail(string(s.Status))
	}
	s.Status = to
	return nil
}

func (f *fakeStore) MarkScriptError(_ context.Context, id common.ID, detail string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.scripts[id]
	if !ok {
		return errors.New(errors.ErrCodeScriptNotFound, "script not found")
	}
	s.Status = script.StatusError
	s.ErrorDetail = detail
	return nil
}

// seedMatch stores a pending match directly.
func (f *fakeStore) seedMatch(m *script.RevisionMatch) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches[m.ID] = m
	f.order = append(f.order, m.ID)
}

// seedElement stores an element directly.
func (f *fakeStore) seedElement(el *element.Element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elements[el.ID] = el
}

// captureQueue records enqueued tasks.
type captureQueue struct {
	mu    sync.Mutex
	tasks []revision.Task
}

func (q *captureQueue) Enqueue(_ context.Context, task revision.Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func (q *captureQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// fakeUploader records stored documents.
type fakeUploader struct {
	mu   sync.Mutex
	docs map[string][]byte
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{docs: make(map[string][]byte)}
}

func (u *fakeUploader) Put(_ context.Context, key string, data []byte, _ string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.docs[key] = data
	return nil
}

// fakeScriptRepo serves ListByProject over the fake store's scripts.
type fakeScriptRepo struct {
	store *fakeStore
}

func (r *fakeScriptRepo) Create(ctx context.Context, s *script.Script) error {
	return r.store.CreateScript(ctx, s)
}

func (r *fakeScriptRepo) GetByID(ctx context.Context, id common.ID) (*script.Script, error) {
	return r.store.GetScript(ctx, id)
}

func (r *fakeScriptRepo) ListByProject(_ context.Context, projectID common.ProjectID, _ common.Pagination) ([]*script.Script, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*script.Script
	for _, s := range r.store.scripts {
		if s.ProjectID == projectID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeScriptRepo) UpdateStatus(_ context.Context, id common.ID, from, to script.Status) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	s, ok := r.store.scripts[id]
	if !ok || s.Status != from {
		return errors.New(errors.ErrCodeScriptStatusInvalid, "script is not in the expected lifecycle state")
	}
	s.Status = to
	return nil
}

func (r *fakeScriptRepo) Update(_ context.Context, s *script.Script) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.scripts[s.ID] = s
	return nil
}

// fakeElementRepo serves ListByScript over the fake store's elements.
type fakeElementRepo struct {
	store *fakeStore
}

func (r *fakeElementRepo) Create(_ context.Context, el *element.Element) error {
	r.store.seedElement(el)
	return nil
}

func (r *fakeElementRepo) GetByID(ctx context.Context, id common.ID) (*element.Element, error) {
	return r.store.GetElement(ctx, id)
}

func (r *fakeElementRepo) ActiveByScript(ctx context.Context, scriptID common.ID) ([]*element.Element, error) {
	return r.store.ActiveElements(ctx, scriptID)
}

func (r *fakeElementRepo) ListByScript(_ context.Context, scriptID common.ID, _ common.Pagination) ([]*element.Element, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*element.Element
	for _, el := range r.store.elements {
		if el.ScriptID == scriptID {
			cp := *el
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeElementRepo) Update(_ context.Context, el *element.Element) error {
	r.store.seedElement(el)
	return nil
}
