package revision

import (
	"context"
	"time"

	"github.com/scenedex/scenedex/internal/domain/element"
	"github.com/scenedex/scenedex/internal/domain/script"
	"github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// fakeStore is an in-memory Store whose Apply methods mimic the transactional
// guarantees of the real repository: status precondition checked first, all
// writes applied together.
type fakeStore struct {
	scripts      map[common.ID]*script.Script
	elements     map[common.ID]*element.Element
	elementOrder []common.ID
	matches      map[common.ID]*script.RevisionMatch
	matchOrder   []common.ID

	applyReconcileErr error
	applyResolveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		scripts:  make(map[common.ID]*script.Script),
		elements: make(map[common.ID]*element.Element),
		matches:  make(map[common.ID]*script.RevisionMatch),
	}
}

func (f *fakeStore) addElement(el *element.Element) {
	f.elements[el.ID] = el
	f.elementOrder = append(f.elementOrder, el.ID)
}

func (f *fakeStore) addMatch(m *script.RevisionMatch) {
	f.matches[m.ID] = m
	f.matchOrder = append(f.matchOrder, m.ID)
}

func (f *fakeStore) CreateScript(_ context.Context, s *script.Script) error {
	f.scripts[s.ID] = s
	return nil
}

func (f *fakeStore) GetScript(_ context.Context, id common.ID) (*script.Script, error) {
	s, ok := f.scripts[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeScriptNotFound, "script not found").WithDetail(id.String())
	}
	return s, nil
}

func (f *fakeStore) GetElement(_ context.Context, id common.ID) (*element.Element, error) {
	el, ok := f.elements[id]
	if !ok {
		return nil, errors.New(errors.ErrCodeElementNotFound, "element not found").WithDetail(id.String())
	}
	return el, nil
}

func (f *fakeStore) ActiveElements(_ context.Context, scriptID common.ID) ([]*element.Element, error) {
	var out []*element.Element
	for _, id := range f.elementOrder {
		el := f.elements[id]
		if el.ScriptID == scriptID && !el.IsArchived() {
			out = append(out, el)
		}
	}
	return out, nil
}

func (f *fakeStore) UnresolvedMatches(_ context.Context, scriptID common.ID) ([]*script.RevisionMatch, error) {
	var out []*script.RevisionMatch
	for _, id := range f.matchOrder {
		m := f.matches[id]
		if m.ScriptID == scriptID && !m.Resolved {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) ApplyReconciliation(_ context.Context, plan *ReconciliationPlan) error {
	if f.applyReconcileErr != nil {
		return f.applyReconcileErr
	}
	s, ok := f.scripts[plan.ScriptID]
	if !ok {
		return errors.New(errors.ErrCodeScriptNotFound, "script not found")
	}
	if s.Status != plan.FromStatus {
		return errors.Conflict("script status changed").WithDetail(string(s.Status))
	}
	for _, el := range plan.Migrations {
		f.elements[el.ID] = el
	}
	for _, el := range plan.Creations {
		f.addElement(el)
	}
	for _, m := range plan.Matches {
		f.addMatch(m)
	}
	s.PageCount = plan.PageCount
	s.Status = plan.ToStatus
	return nil
}

func (f *fakeStore) ApplyResolution(_ context.Context, plan *ResolutionPlan) error {
	if f.applyResolveErr != nil {
		return f.applyResolveErr
	}
	s, ok := f.scripts[plan.ScriptID]
	if !ok {
		return errors.New(errors.ErrCodeScriptNotFound, "script not found")
	}
	if s.Status != script.StatusReconciling {
		return errors.Conflict("script status changed").WithDetail(string(s.Status))
	}
	for _, el := range plan.UpdatedElements {
		f.elements[el.ID] = el
	}
	for _, el := range plan.CreatedElements {
		f.addElement(el)
	}
	for _, m := range plan.ResolvedMatches {
		f.matches[m.ID] = m
	}
	if plan.ToStatus != "" {
		s.Status = plan.ToStatus
	}
	return nil
}

func (f *fakeStore) UpdateScriptStatus(_ context.Context, id common.ID, from, to script.Status) error {
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
	s, ok := f.scripts[id]
	if !ok {
		return errors.New(errors.ErrCodeScriptNotFound, "script not found")
	}
	return s.MarkError(detail)
}

// fakeObjects serves document bytes by key.
type fakeObjects struct {
	docs map[string][]byte
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{docs: make(map[string][]byte)}
}

func (f *fakeObjects) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := f.docs[key]
	if !ok {
		return nil, errors.New(errors.ErrCodeObjectNotFound, "object not found").WithDetail(key)
	}
	return data, nil
}

// fakeLocker tracks held keys in memory.
type fakeLocker struct {
	held map[string]bool
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: make(map[string]bool)}
}

func (f *fakeLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	if f.held[key] {
		return nil, errors.Conflict("lock already held").WithDetail(key)
	}
	f.held[key] = true
	return func() { delete(f.held, key) }, nil
}
