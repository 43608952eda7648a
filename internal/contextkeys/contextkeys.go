// Package contextkeys declares the named UI state flags the host evaluates
// when deciding which controls and menu entries are visible. The registry is
// populated once and read-only afterwards.
package contextkeys

import "sort"

type Kind int

const (
	KindBool Kind = iota
	KindString
	KindNumber
)

type Key struct {
	Name          string
	Kind          Kind
	DefaultBool   bool
	DefaultString string
	DefaultNumber float64
}

const (
	ComparisonInProgress  = "schemaCompare.isComparisonInProgress"
	ComparisonHasResults  = "schemaCompare.hasResults"
	ScriptGenerationReady = "schemaCompare.canGenerateScript"
	CompareDirection      = "schemaCompare.direction"
	ResultLimit           = "schemaCompare.resultLimit"
	ServerTreeVisible     = "registeredServers.treeVisible"
	ConnectionAvailable   = "connection.isAvailable"
	ActiveConnections     = "connection.activeCount"
)

var registry = map[string]Key{
	ComparisonInProgress:  {Name: ComparisonInProgress, Kind: KindBool},
	ComparisonHasResults:  {Name: ComparisonHasResults, Kind: KindBool},
	ScriptGenerationReady: {Name: ScriptGenerationReady, Kind: KindBool},
	CompareDirection:      {Name: CompareDirection, Kind: KindString, DefaultString: "sourceToTarget"},
	ResultLimit:           {Name: ResultLimit, Kind: KindNumber, DefaultNumber: 500},
	ServerTreeVisible:     {Name: ServerTreeVisible, Kind: KindBool, DefaultBool: true},
	ConnectionAvailable:   {Name: ConnectionAvailable, Kind: KindBool},
	ActiveConnections:     {Name: ActiveConnections, Kind: KindNumber},
}

// Lookup returns the declaration of a named flag.
func Lookup(name string) (Key, bool) {
	k, ok := registry[name]
	return k, ok
}

// Bool returns the default of a boolean flag; unknown or non-boolean names
// read as false.
func Bool(name string) bool {
	k, ok := registry[name]
	return ok && k.Kind == KindBool && k.DefaultBool
}

// String returns the default of a string flag, empty when unknown.
func String(name string) string {
	k, ok := registry[name]
	if !ok || k.Kind != KindString {
		return ""
	}
	return k.DefaultString
}

// Number returns the default of a numeric flag, zero when unknown.
func Number(name string) float64 {
	k, ok := registry[name]
	if !ok || k.Kind != KindNumber {
		return 0
	}
	return k.DefaultNumber
}

// All returns every declared flag, sorted by name.
func All() []Key {
	keys := make([]Key, 0, len(registry))
	for _, k := range registry {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Name < keys[j].Name })
	return keys
}
