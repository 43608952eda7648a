package compare

import (
	"fmt"
	"time"
)

// EmptyScript is the aggregate of an absent node, shown when no row is
// selected so the paired panes still have content to render.
const EmptyScript = "\n"

// DisplayNodes filters the top-level differences down to the ones that get a
// row in the results table: object-type differences with at least one side
// present. Children are never scanned; the table shows one row per top-level
// difference only.
func DisplayNodes(differences []*DifferenceNode) []*DifferenceNode {
	var nodes []*DifferenceNode
	for _, d := range differences {
		if d == nil || d.DifferenceType != ObjectType {
			continue
		}
		if d.SourceValue == nil && d.TargetValue == nil {
			continue
		}
		nodes = append(nodes, d)
	}
	return nodes
}

// FlattenForDisplay converts the top-level difference list into table rows,
// one per qualifying node. An empty input yields no rows, which the panel
// reads as "no differences".
func FlattenForDisplay(differences []*DifferenceNode) []Row {
	var rows []Row
	for _, d := range DisplayNodes(differences) {
		rows = append(rows, Row{
			Name:        d.Name,
			SourceValue: d.SourceValue,
			Action:      ActionLabel(d.UpdateAction),
			TargetValue: d.TargetValue,
		})
	}
	return rows
}

// AggregateScript concatenates a node's script for one side with the
// aggregates of its children, depth first, in order. A child whose aggregate
// is exactly NoScript contributes nothing; the node's own script is emitted
// unconditionally, sentinel or not.
func AggregateScript(node *DifferenceNode, side Side) string {
	if node == nil {
		return EmptyScript
	}
	script := node.Script(side)
	for _, child := range node.Children {
		childScript := AggregateScript(child, side)
		if childScript == NoScript {
			continue
		}
		script += childScript
	}
	return script
}

// DefaultScriptFileName builds the suggested save name for a generated update
// script. Date fields are unpadded, matching the observed filenames.
func DefaultScriptFileName(targetName string, now time.Time) string {
	return fmt.Sprintf("%s_Update_%d-%d-%d-%d-%d.sql",
		targetName, now.Year(), int(now.Month()), now.Day(), now.Hour(), now.Minute())
}
