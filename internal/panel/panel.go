// Package panel holds the schema-compare panel session: which comparison is
// current, what the results table shows, and what the script panes contain.
// It is driven from a single event loop; the provider call runs elsewhere and
// reports back through Complete.
package panel

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/victorlunam/schemacmp/internal/compare"
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StatePopulated
)

// CompareRequest captures one comparison run: the endpoints as they were
// when the run started and the generation that identifies it. A completion
// for any other generation is stale and gets dropped.
type CompareRequest struct {
	Generation int
	Source     compare.Endpoint
	Target     compare.Endpoint
}

type Session struct {
	provider compare.Provider
	logger   *zap.Logger

	source compare.Endpoint
	target compare.Endpoint

	state          State
	generation     int
	result         *compare.ComparisonResult
	displayNodes   []*compare.DifferenceNode
	rows           []compare.Row
	selected       *compare.DifferenceNode
	sourceScript   string
	targetScript   string
	statusMessage  string
	actionsEnabled bool
}

func NewSession(provider compare.Provider, source, target compare.Endpoint, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		provider:     provider,
		logger:       logger,
		source:       source,
		target:       target,
		state:        StateIdle,
		sourceScript: compare.EmptyScript,
		targetScript: compare.EmptyScript,
	}
}

// StartCompare moves the session into Loading: previous results are cleared,
// action controls are disabled and a new generation is issued. The caller
// runs Execute with the returned request and feeds the outcome to Complete.
func (s *Session) StartCompare() CompareRequest {
	s.generation++
	s.state = StateLoading
	s.result = nil
	s.displayNodes = nil
	s.rows = nil
	s.selected = nil
	s.sourceScript = compare.EmptyScript
	s.targetScript = compare.EmptyScript
	s.statusMessage = ""
	s.actionsEnabled = false

	s.logger.Debug("comparison started",
		zap.Int("generation", s.generation),
		zap.String("source", s.source.Database),
		zap.String("target", s.target.Database))

	return CompareRequest{Generation: s.generation, Source: s.source, Target: s.target}
}

// SwitchDirection swaps the endpoints and re-runs the comparison.
func (s *Session) SwitchDirection() CompareRequest {
	s.source, s.target = s.target, s.source
	return s.StartCompare()
}

// Execute runs the provider call for a request. Safe to call from another
// goroutine; it touches no session state.
func (s *Session) Execute(ctx context.Context, req CompareRequest) (*compare.ComparisonResult, error) {
	return s.provider.Compare(ctx, req.Source, req.Target)
}

// Complete applies the outcome of a comparison run. A stale generation is
// discarded and the method reports false. A failed run leaves the panel in
// its cleared Loading shape with a status message; the user retries manually.
func (s *Session) Complete(generation int, result *compare.ComparisonResult, err error) bool {
	if generation != s.generation {
		s.logger.Debug("discarding stale comparison result",
			zap.Int("generation", generation),
			zap.Int("current", s.generation))
		return false
	}

	if err != nil || result == nil || !result.Success {
		message := "Unknown"
		switch {
		case err != nil:
			message = err.Error()
		case result != nil && result.ErrorMessage != "":
			message = result.ErrorMessage
		}
		s.statusMessage = "Schema comparison failed: " + message
		s.logger.Warn("comparison failed", zap.String("message", message))
		return true
	}

	s.state = StatePopulated
	s.result = result
	s.displayNodes = compare.DisplayNodes(result.Differences)
	s.rows = compare.FlattenForDisplay(result.Differences)
	s.actionsEnabled = true
	if len(s.rows) == 0 {
		s.statusMessage = "No schema differences were found."
	} else {
		s.SelectRow(0)
	}
	return true
}

// SelectRow points the script panes at one row's difference. Out-of-range
// indices clear the selection.
func (s *Session) SelectRow(index int) {
	if s.state != StatePopulated || index < 0 || index >= len(s.displayNodes) {
		s.selected = nil
		s.sourceScript = compare.AggregateScript(nil, compare.SourceSide)
		s.targetScript = compare.AggregateScript(nil, compare.TargetSide)
		return
	}
	s.selected = s.displayNodes[index]
	s.sourceScript = compare.AggregateScript(s.selected, compare.SourceSide)
	s.targetScript = compare.AggregateScript(s.selected, compare.TargetSide)
}

// GenerateRequest captures one script-generation run: the operation id and
// destination as they were when the run started. Like CompareRequest, it
// lets the provider call run off the event loop without touching the
// session.
type GenerateRequest struct {
	OperationID         string
	TargetDatabase      string
	DestinationFilePath string
}

// StartGenerateScript validates and captures a script-generation request.
// An empty path means the save prompt was cancelled: nothing happens and no
// message is shown.
func (s *Session) StartGenerateScript(destinationFilePath string) (GenerateRequest, bool) {
	if destinationFilePath == "" {
		return GenerateRequest{}, false
	}
	if s.state != StatePopulated || s.result == nil {
		s.statusMessage = "Generate script failed: no comparison result"
		return GenerateRequest{}, false
	}
	return GenerateRequest{
		OperationID:         s.result.OperationID,
		TargetDatabase:      s.target.Database,
		DestinationFilePath: destinationFilePath,
	}, true
}

// ExecuteGenerateScript runs the provider call for a request. Safe to call
// from another goroutine; it touches no session state.
func (s *Session) ExecuteGenerateScript(ctx context.Context, req GenerateRequest) error {
	return s.provider.GenerateScript(ctx, req.OperationID, req.TargetDatabase, req.DestinationFilePath)
}

// CompleteGenerateScript applies the outcome of a script-generation run on
// the event loop.
func (s *Session) CompleteGenerateScript(req GenerateRequest, err error) {
	if err != nil {
		message := err.Error()
		if message == "" {
			message = "Unknown"
		}
		s.statusMessage = "Generate script failed: " + message
		s.logger.Warn("generate script failed", zap.Error(err))
		return
	}
	s.statusMessage = "Script saved to " + req.DestinationFilePath
}

// DefaultScriptPath suggests a file name for the generated script.
func (s *Session) DefaultScriptPath(now time.Time) string {
	return compare.DefaultScriptFileName(s.target.Database, now)
}

func (s *Session) State() State { return s.state }

func (s *Session) Rows() []compare.Row { return s.rows }

func (s *Session) HasDifferences() bool { return len(s.rows) > 0 }

func (s *Session) SourceScript() string { return s.sourceScript }

func (s *Session) TargetScript() string { return s.targetScript }

func (s *Session) StatusMessage() string { return s.statusMessage }

func (s *Session) ActionsEnabled() bool { return s.actionsEnabled }

func (s *Session) Source() compare.Endpoint { return s.source }

func (s *Session) Target() compare.Endpoint { return s.target }

func (s *Session) Selected() *compare.DifferenceNode { return s.selected }
