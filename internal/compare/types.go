package compare

import "context"

type DifferenceType int

const (
	ObjectType DifferenceType = iota
	PropertyType
)

type UpdateAction int

const (
	ActionAdd UpdateAction = iota
	ActionDelete
	ActionChange
)

// ActionLabel translates an update action to its display string.
func ActionLabel(action UpdateAction) string {
	switch action {
	case ActionAdd:
		return "Add"
	case ActionDelete:
		return "Delete"
	case ActionChange:
		return "Change"
	}
	return ""
}

type Side int

const (
	SourceSide Side = iota
	TargetSide
)

// NoScript is the sentinel carried in place of an absent script. Aggregation
// compares child results against this exact string, so a real script whose
// whole text is "null" would be dropped too. Kept as observed upstream.
const NoScript = "null"

// DifferenceNode is one comparison finding. The tree is produced in one shot
// by the comparison provider and never mutated afterwards.
type DifferenceNode struct {
	DifferenceType DifferenceType
	Name           string
	SourceValue    *string
	TargetValue    *string
	UpdateAction   UpdateAction
	SourceScript   string
	TargetScript   string
	Children       []*DifferenceNode
}

// Script returns the node's own script for one side of the comparison.
func (n *DifferenceNode) Script(side Side) string {
	if side == SourceSide {
		return n.SourceScript
	}
	return n.TargetScript
}

// Row is one line of the results table. Nil values render as empty cells.
type Row struct {
	Name        string
	SourceValue *string
	Action      string
	TargetValue *string
}

// Cells returns the four display values in column order.
func (r Row) Cells() [4]string {
	return [4]string{r.Name, deref(r.SourceValue), r.Action, deref(r.TargetValue)}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type SchemaObject struct {
	Name   string
	Type   string
	Schema string
}

type Endpoint struct {
	Server   string
	Port     string
	User     string
	Password string
	Database string
}

type ComparisonResult struct {
	Success      bool
	ErrorMessage string
	Differences  []*DifferenceNode
	OperationID  string
}

// Provider performs the schema comparison and generates update scripts for a
// previous comparison run, identified by its operation id.
type Provider interface {
	Compare(ctx context.Context, source, target Endpoint) (*ComparisonResult, error)
	GenerateScript(ctx context.Context, operationID, targetDatabaseName, destinationFilePath string) error
}
