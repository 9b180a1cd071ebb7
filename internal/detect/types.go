// Package detect implements the heuristic screenplay entity detectors.  Two
// strategies share one output contract: the page-text strategy classifies raw
// extracted text line by line, and the structured strategy consumes typed
// paragraphs from a parsed screenplay document.  Both are pure functions: all
// working state is function-local and discarded at return, so detection runs
// are trivially safe to execute concurrently across documents.
package detect

// EntityType classifies a detected narrative entity.
type EntityType string

const (
	EntityCharacter EntityType = "CHARACTER"
	EntityLocation  EntityType = "LOCATION"
	EntityOther     EntityType = "OTHER"
)

// IsValid reports whether the entity type is one of the known values.
func (t EntityType) IsValid() bool {
	switch t {
	case EntityCharacter, EntityLocation, EntityOther:
		return true
	default:
		return false
	}
}

// String returns the string representation of the entity type.
func (t EntityType) String() string { return string(t) }

// PageText is one page of pre-extracted document text.  Immutable; scoped to
// a single detection pass.
type PageText struct {
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
}

// SceneInfo describes one scene discovered during detection.  SceneNumber is
// 1-based and sequential per document.  Characters preserves first-appearance
// order and contains no duplicates.
type SceneInfo struct {
	SceneNumber int      `json:"scene_number"`
	Location    string   `json:"location"`
	Characters  []string `json:"characters"`
}

// DetectedEntity is a single unique entity found during one detection pass.
// Only the first occurrence's page and raw text are retained.
// SuggestedDepartment is empty when no department mapping applies.
type DetectedEntity struct {
	Name                string     `json:"name"`
	Type                EntityType `json:"type"`
	HighlightPage       int        `json:"highlight_page"`
	HighlightText       string     `json:"highlight_text"`
	SuggestedDepartment string     `json:"suggested_department,omitempty"`
}

// Result is the shared output contract of both detector strategies.
type Result struct {
	Entities []DetectedEntity `json:"entities"`
	Scenes   []SceneInfo      `json:"scenes"`
}

// Department names used for suggestion tables.
const (
	DeptCast       = "Cast"
	DeptLocations  = "Locations"
	DeptProps      = "Props"
	DeptCostume    = "Costume"
	DeptHairMakeup = "Hair & Makeup"
	DeptSetDesign  = "Set Design"
	DeptVFX        = "VFX"
	DeptSound      = "Sound"
)

// departmentForType is the static type → department suggestion table.
var departmentForType = map[EntityType]string{
	EntityCharacter: DeptCast,
	EntityLocation:  DeptLocations,
	EntityOther:     DeptProps,
}

// DepartmentForType returns the suggested department for a detected entity
// type, or the empty string when none applies.
func DepartmentForType(t EntityType) string {
	return departmentForType[t]
}

// departmentForCategory maps structured-document tag categories to suggested
// departments.  Categories missing from the table yield no suggestion.
var departmentForCategory = map[string]string{
	"props":           DeptProps,
	"vehicles":        DeptProps,
	"wardrobe":        DeptCostume,
	"costume":         DeptCostume,
	"hair":            DeptHairMakeup,
	"makeup":          DeptHairMakeup,
	"hair/makeup":     DeptHairMakeup,
	"set dressing":    DeptSetDesign,
	"special effects": DeptVFX,
	"visual effects":  DeptVFX,
	"sound effects":   DeptSound,
	"music":           DeptSound,
}

// DepartmentForCategory returns the suggested department for an externally
// tagged element category (case-insensitive), or the empty string for unknown
// categories.
func DepartmentForCategory(category string) string {
	return departmentForCategory[normalizeCategory(category)]
}
