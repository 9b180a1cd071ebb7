// Package element implements the Element bounded context: the narrative
// entities (characters, locations, props) extracted from a screenplay and
// tracked across its revisions.  All business rules that concern elements
// live here; persistence is handled by the repository layer.
package element

import (
	"github.com/scenedex/scenedex/internal/detect"
	"github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// Status is the lifecycle state of an element.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusArchived Status = "ARCHIVED"
)

// Source records how an element came into existence.
type Source string

const (
	// SourceAuto marks elements created by the detection pipeline.
	SourceAuto Source = "AUTO"

	// SourceManual marks elements created by a user.
	SourceManual Source = "MANUAL"
)

// Element is the aggregate root of the Element bounded context.  An element
// belongs to exactly one script version at a time; reconciliation moves it
// between versions or retires it.
//
// Mutations must go through the exported methods so invariants hold.
type Element struct {
	common.BaseEntity

	ProjectID common.ProjectID  `json:"project_id"`
	ScriptID  common.ID         `json:"script_id"`
	Name      string            `json:"name"`
	Type      detect.EntityType `json:"type"`
	Status    Status            `json:"status"`
	Source    Source            `json:"source"`

	// Department is the production department the element is assigned to,
	// empty when unassigned.
	Department string `json:"department,omitempty"`

	// HighlightPage/HighlightText locate the element's first mention in the
	// owning script version.  Zero/empty for manually created elements.
	HighlightPage int    `json:"highlight_page,omitempty"`
	HighlightText string `json:"highlight_text,omitempty"`
}

// New creates an active element, enforcing construction invariants: the
// owning script id and name must be non-empty and the type must be valid.
func New(scriptID common.ID, projectID common.ProjectID, name string, typ detect.EntityType, source Source) (*Element, error) {
	if scriptID.IsZero() {
		return nil, errors.Validation("element script id must not be empty")
	}
	if name == "" {
		return nil, errors.Validation("element name must not be empty")
	}
	if !typ.IsValid() {
		return nil, errors.New(errors.ErrCodeElementTypeInvalid,
			"unknown element type").WithDetail(string(typ))
	}
	if source != SourceAuto && source != SourceManual {
		return nil, errors.Validation("element source must be AUTO or MANUAL")
	}
	return &Element{
		BaseEntity: common.BaseEntity{ID: common.NewID()},
		ProjectID:  projectID,
		ScriptID:   scriptID,
		Name:       name,
		Type:       typ,
		Status:     StatusActive,
		Source:     source,
	}, nil
}

// FromDetected builds an AUTO element on the given script from one detection
// result, carrying the highlight and suggested department.
func FromDetected(scriptID common.ID, projectID common.ProjectID, d detect.DetectedEntity) (*Element, error) {
	el, err := New(scriptID, projectID, d.Name, d.Type, SourceAuto)
	if err != nil {
		return nil, err
	}
	el.HighlightPage = d.HighlightPage
	el.HighlightText = d.HighlightText
	el.Department = d.SuggestedDepartment
	return el, nil
}

// IsArchived reports whether the element has been retired from matching.
func (e *Element) IsArchived() bool { return e.Status == StatusArchived }

// Archive retires the element.  Archiving an already-archived element is an
// error: the resolver treats it as a sign of a stale decision batch.
func (e *Element) Archive() error {
	if e.IsArchived() {
		return errors.Conflict("element is already archived").WithDetail(e.ID.String())
	}
	e.Status = StatusArchived
	return nil
}

// MoveToScript re-homes the element onto a new script version, preserving its
// name, highlight, and department.
func (e *Element) MoveToScript(scriptID common.ID) error {
	if scriptID.IsZero() {
		return errors.Validation("target script id must not be empty")
	}
	if e.IsArchived() {
		return errors.Conflict("archived element cannot be moved").WithDetail(e.ID.String())
	}
	e.ScriptID = scriptID
	return nil
}

// CarryForward re-homes the element onto a new script version and refreshes
// its highlight from the detection that matched it.  Name and department
// stay as stored; only an explicit decision may change those.
func (e *Element) CarryForward(scriptID common.ID, page int, text string) error {
	if err := e.MoveToScript(scriptID); err != nil {
		return err
	}
	e.HighlightPage = page
	e.HighlightText = text
	return nil
}

// ApplyDetected re-homes the element onto a new script version and overwrites
// its name and highlight with the detected values.  An empty department
// leaves the current assignment untouched.
func (e *Element) ApplyDetected(scriptID common.ID, name string, page int, text, department string) error {
	if name == "" {
		return errors.Validation("detected name must not be empty")
	}
	if err := e.MoveToScript(scriptID); err != nil {
		return err
	}
	e.Name = name
	e.HighlightPage = page
	e.HighlightText = text
	if department != "" {
		e.Department = department
	}
	return nil
}
