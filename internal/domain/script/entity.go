// Package script implements the Script bounded context: screenplay versions,
// their processing lifecycle, and the revision-match records that capture
// reconciliation questions awaiting a human decision.
package script

import (
	"github.com/scenedex/scenedex/internal/detect"
	"github.com/scenedex/scenedex/pkg/errors"
	"github.com/scenedex/scenedex/pkg/types/common"
)

// Status is the processing lifecycle state of a script version.
type Status string

const (
	// StatusProcessing marks a freshly uploaded version whose detection
	// pipeline has not finished.
	StatusProcessing Status = "PROCESSING"

	// StatusReviewing marks a first-ingest version whose detected elements
	// await an initial human pass.
	StatusReviewing Status = "REVIEWING"

	// StatusReconciling marks a revision with unresolved revision matches.
	StatusReconciling Status = "RECONCILING"

	// StatusReady marks a fully reconciled, usable version.
	StatusReady Status = "READY"

	// StatusError is terminal; the upload must be re-triggered.
	StatusError Status = "ERROR"
)

// allowedTransitions lists the valid next states per status.
//
//	PROCESSING ──► REVIEWING ──► READY
//	     │    ╲──► RECONCILING ──► READY
//	     │              │
//	     └──► ERROR ◄───┘          (PROCESSING may also go straight to READY)
var allowedTransitions = map[Status][]Status{
	StatusProcessing:  {StatusReviewing, StatusReconciling, StatusReady, StatusError},
	StatusReviewing:   {StatusReady},
	StatusReconciling: {StatusReady, StatusError},
	StatusReady:       {},
	StatusError:       {},
}

// revisionColors is the customary production revision color sequence.  The
// first upload is White; each revision advances one step, wrapping after the
// final color.
var revisionColors = []string{
	"White",
	"Blue",
	"Pink",
	"Yellow",
	"Green",
	"Goldenrod",
	"Buff",
	"Salmon",
	"Cherry",
}

// NextRevisionColor returns the color following the given one, wrapping to
// the start of the sequence.  An unknown color restarts at Blue.
func NextRevisionColor(current string) string {
	for i, c := range revisionColors {
		if c == current {
			return revisionColors[(i+1)%len(revisionColors)]
		}
	}
	return revisionColors[1]
}

// Script is the aggregate root of the Script bounded context: one uploaded
// version of a screenplay.  A revision carries the id of the version it
// supersedes in ParentID.
type Script struct {
	common.BaseEntity

	ProjectID  common.ProjectID `json:"project_id"`
	Title      string           `json:"title"`
	StorageKey string           `json:"storage_key"`
	UploadedBy common.UserID    `json:"uploaded_by"`

	// ParentID is zero for a first upload.
	ParentID       common.ID `json:"parent_id,omitempty"`
	RevisionNumber int       `json:"revision_number"`
	RevisionColor  string    `json:"revision_color"`

	Status    Status `json:"status"`
	PageCount int    `json:"page_count,omitempty"`

	// ErrorDetail holds the failure description for StatusError scripts.
	ErrorDetail string `json:"error_detail,omitempty"`
}

// New creates a first-upload script in PROCESSING with revision number 1 and
// the White revision color.
func New(projectID common.ProjectID, title, storageKey string, uploadedBy common.UserID) (*Script, error) {
	if projectID == "" {
		return nil, errors.Validation("script project id must not be empty")
	}
	if title == "" {
		return nil, errors.Validation("script title must not be empty")
	}
	if storageKey == "" {
		return nil, errors.Validation("script storage key must not be empty")
	}
	return &Script{
		BaseEntity:     common.BaseEntity{ID: common.NewID()},
		ProjectID:      projectID,
		Title:          title,
		StorageKey:     storageKey,
		UploadedBy:     uploadedBy,
		RevisionNumber: 1,
		RevisionColor:  revisionColors[0],
		Status:         StatusProcessing,
	}, nil
}

// NewRevision creates the next version of a parent script in PROCESSING,
// advancing the revision number and color.
func NewRevision(parent *Script, storageKey string, uploadedBy common.UserID) (*Script, error) {
	if parent == nil {
		return nil, errors.Validation("parent script must not be nil")
	}
	if parent.Status != StatusReady && parent.Status != StatusReviewing {
		return nil, errors.New(errors.ErrCodeScriptStatusInvalid,
			"parent script is not in a revisable state").WithDetail(string(parent.Status))
	}
	s, err := New(parent.ProjectID, parent.Title, storageKey, uploadedBy)
	if err != nil {
		return nil, err
	}
	s.ParentID = parent.ID
	s.RevisionNumber = parent.RevisionNumber + 1
	s.RevisionColor = NextRevisionColor(parent.RevisionColor)
	return s, nil
}

// IsRevision reports whether this version supersedes an earlier one.
func (s *Script) IsRevision() bool { return !s.ParentID.IsZero() }

// CanTransition reports whether the lifecycle permits moving to next.
func (s *Script) CanTransition(next Status) bool {
	for _, allowed := range allowedTransitions[s.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the script to the next lifecycle state, rejecting
// transitions the state machine does not permit.
func (s *Script) TransitionTo(next Status) error {
	if !s.CanTransition(next) {
		return errors.New(errors.ErrCodeScriptStatusInvalid,
			"illegal script status transition").
			WithDetail(string(s.Status) + " -> " + string(next))
	}
	s.Status = next
	return nil
}

// MarkError moves the script to the terminal ERROR state, recording the
// failure.  Valid only from PROCESSING or RECONCILING.
func (s *Script) MarkError(detail string) error {
	if err := s.TransitionTo(StatusError); err != nil {
		return err
	}
	s.ErrorDetail = detail
	return nil
}

// MatchStatus classifies why a revision match needs a human decision.
type MatchStatus string

const (
	// MatchFuzzy records a detected entity that resembles, but does not
	// exactly match, an existing one.
	MatchFuzzy MatchStatus = "FUZZY"

	// MatchMissing records an existing entity no detected entity claimed.
	MatchMissing MatchStatus = "MISSING"
)

// Decision is the human resolution applied to one revision match.
type Decision string

const (
	// DecisionMap folds the detected entity into the existing one, carrying
	// the detected name and highlight forward.
	DecisionMap Decision = "MAP"

	// DecisionCreateNew keeps the existing entity untouched and creates a
	// fresh one from the detected values.
	DecisionCreateNew Decision = "CREATE_NEW"

	// DecisionKeep carries the existing entity onto the new version
	// unchanged.
	DecisionKeep Decision = "KEEP"

	// DecisionArchive retires the existing entity.
	DecisionArchive Decision = "ARCHIVE"
)

// IsValid reports whether the decision is one of the four known values.
func (d Decision) IsValid() bool {
	switch d {
	case DecisionMap, DecisionCreateNew, DecisionKeep, DecisionArchive:
		return true
	default:
		return false
	}
}

// RevisionMatch is one reconciliation question raised while processing a
// revision: either a fuzzy correspondence or a disappeared entity.  It is
// written once by the reconciler and resolved exactly once.
type RevisionMatch struct {
	common.BaseEntity

	// ScriptID is the new version the match belongs to.
	ScriptID common.ID `json:"script_id"`

	MatchStatus MatchStatus `json:"match_status"`

	// Detected values.  MISSING matches carry the old entity's name and
	// type here with no page or highlight.
	DetectedName          string            `json:"detected_name,omitempty"`
	DetectedType          detect.EntityType `json:"detected_type,omitempty"`
	DetectedPage          int               `json:"detected_page,omitempty"`
	DetectedHighlightText string            `json:"detected_highlight_text,omitempty"`

	// OldElementID references the existing entity involved.  Always set for
	// MISSING matches, set for FUZZY matches by construction.
	OldElementID common.ID `json:"old_element_id,omitempty"`

	// Similarity is the fuzzy score in [0,1]; nil for MISSING matches.
	Similarity *float64 `json:"similarity,omitempty"`

	UserDecision Decision `json:"user_decision,omitempty"`
	Resolved     bool     `json:"resolved"`
}

// NewFuzzyMatch records a fuzzy correspondence for later resolution.
func NewFuzzyMatch(scriptID common.ID, d detect.DetectedEntity, oldElementID common.ID, similarity float64) *RevisionMatch {
	return &RevisionMatch{
		BaseEntity:            common.BaseEntity{ID: common.NewID()},
		ScriptID:              scriptID,
		MatchStatus:           MatchFuzzy,
		DetectedName:          d.Name,
		DetectedType:          d.Type,
		DetectedPage:          d.HighlightPage,
		DetectedHighlightText: d.HighlightText,
		OldElementID:          oldElementID,
		Similarity:            &similarity,
	}
}

// NewMissingMatch records a disappeared entity for later resolution.
func NewMissingMatch(scriptID, oldElementID common.ID, name string, typ detect.EntityType) *RevisionMatch {
	return &RevisionMatch{
		BaseEntity:   common.BaseEntity{ID: common.NewID()},
		ScriptID:     scriptID,
		MatchStatus:  MatchMissing,
		DetectedName: name,
		DetectedType: typ,
		OldElementID: oldElementID,
	}
}

// Resolve records the user decision.  A match resolves exactly once; a
// second attempt is a conflict.
func (m *RevisionMatch) Resolve(decision Decision) error {
	if !decision.IsValid() {
		return errors.New(errors.ErrCodeDecisionInvalid,
			"unknown reconciliation decision").WithDetail(string(decision))
	}
	if m.Resolved {
		return errors.New(errors.ErrCodeMatchAlreadyResolved,
			"revision match already resolved").WithDetail(m.ID.String())
	}
	m.UserDecision = decision
	m.Resolved = true
	return nil
}
