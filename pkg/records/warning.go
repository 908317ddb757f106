package records

import "fmt"

// WarningKind classifies a non-fatal problem.
type WarningKind string

const (
	// UnresolvedReference: a placement names a missing package, or a shape
	// sits on a layer id the registry had to synthesize.
	UnresolvedReference WarningKind = "unresolved_reference"
	// UnsupportedConstruct: a recognized document contained an element kind
	// that is skipped.
	UnsupportedConstruct WarningKind = "unsupported_construct"
)

// Stage is the pipeline step that produced a warning.
type Stage string

const (
	StageParse Stage = "parse"
	StageUnify Stage = "unify"
)

// Warning is a structured non-fatal diagnostic.
type Warning struct {
	Kind     WarningKind `json:"kind"`
	Stage    Stage       `json:"stage"`
	Message  string      `json:"message"`
	Location string      `json:"location,omitempty"`
}

func NewWarning(kind WarningKind, stage Stage, location, format string, args ...any) Warning {
	return Warning{Kind: kind, Stage: stage, Message: fmt.Sprintf(format, args...), Location: location}
}

func (w Warning) String() string {
	if w.Location == "" {
		return fmt.Sprintf("%s: %s: %s", w.Stage, w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: %s: %s (%s)", w.Stage, w.Kind, w.Message, w.Location)
}

// CountKind returns how many warnings have the given kind.
func CountKind(ws []Warning, kind WarningKind) int {
	n := 0
	for _, w := range ws {
		if w.Kind == kind {
			n++
		}
	}
	return n
}
