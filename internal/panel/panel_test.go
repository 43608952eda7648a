package panel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorlunam/schemacmp/internal/compare"
)

type fakeProvider struct {
	result      *compare.ComparisonResult
	compareErr  error
	generateErr error
	generated   []string
}

func (f *fakeProvider) Compare(_ context.Context, _, _ compare.Endpoint) (*compare.ComparisonResult, error) {
	return f.result, f.compareErr
}

func (f *fakeProvider) GenerateScript(_ context.Context, operationID, _, destinationFilePath string) error {
	f.generated = append(f.generated, destinationFilePath)
	return f.generateErr
}

func strptr(s string) *string { return &s }

func resultWithOneDifference() *compare.ComparisonResult {
	return &compare.ComparisonResult{
		Success:     true,
		OperationID: "op-1",
		Differences: []*compare.DifferenceNode{
			{
				DifferenceType: compare.ObjectType,
				Name:           "[dbo].[Orders]",
				SourceValue:    strptr("[dbo].[Orders]"),
				UpdateAction:   compare.ActionAdd,
				SourceScript:   "CREATE TABLE [dbo].[Orders] ();",
				TargetScript:   compare.NoScript,
				Children:       []*compare.DifferenceNode{},
			},
		},
	}
}

func newTestSession(p compare.Provider) *Session {
	source := compare.Endpoint{Database: "SourceDB"}
	target := compare.Endpoint{Database: "TargetDB"}
	return NewSession(p, source, target, nil)
}

func TestStartCompareClearsState(t *testing.T) {
	s := newTestSession(&fakeProvider{result: resultWithOneDifference()})

	req := s.StartCompare()
	res, err := s.Execute(context.Background(), req)
	require.True(t, s.Complete(req.Generation, res, err))
	require.Equal(t, StatePopulated, s.State())
	require.Len(t, s.Rows(), 1)
	assert.True(t, s.ActionsEnabled())

	req2 := s.StartCompare()
	assert.Equal(t, StateLoading, s.State())
	assert.Empty(t, s.Rows())
	assert.False(t, s.ActionsEnabled())
	assert.Equal(t, compare.EmptyScript, s.SourceScript())
	assert.Equal(t, compare.EmptyScript, s.TargetScript())
	assert.Greater(t, req2.Generation, req.Generation)
}

func TestCompleteDiscardsStaleGeneration(t *testing.T) {
	s := newTestSession(&fakeProvider{result: resultWithOneDifference()})

	stale := s.StartCompare()
	current := s.StartCompare()

	assert.False(t, s.Complete(stale.Generation, resultWithOneDifference(), nil))
	assert.Equal(t, StateLoading, s.State())

	assert.True(t, s.Complete(current.Generation, resultWithOneDifference(), nil))
	assert.Equal(t, StatePopulated, s.State())
}

func TestCompleteSelectsFirstRow(t *testing.T) {
	s := newTestSession(&fakeProvider{result: resultWithOneDifference()})

	req := s.StartCompare()
	require.True(t, s.Complete(req.Generation, resultWithOneDifference(), nil))

	assert.Equal(t, "CREATE TABLE [dbo].[Orders] ();", s.SourceScript())
	assert.Equal(t, compare.NoScript, s.TargetScript())
}

func TestCompleteNoDifferences(t *testing.T) {
	s := newTestSession(&fakeProvider{})
	req := s.StartCompare()
	require.True(t, s.Complete(req.Generation, &compare.ComparisonResult{Success: true, OperationID: "op-2"}, nil))

	assert.Equal(t, StatePopulated, s.State())
	assert.False(t, s.HasDifferences())
	assert.Equal(t, "No schema differences were found.", s.StatusMessage())
}

func TestCompleteFailureKeepsLoadingState(t *testing.T) {
	s := newTestSession(&fakeProvider{})
	req := s.StartCompare()

	require.True(t, s.Complete(req.Generation, &compare.ComparisonResult{Success: false, ErrorMessage: "login failed"}, nil))
	assert.Equal(t, StateLoading, s.State())
	assert.False(t, s.ActionsEnabled())
	assert.Equal(t, "Schema comparison failed: login failed", s.StatusMessage())
}

func TestCompleteFailureWithoutMessage(t *testing.T) {
	s := newTestSession(&fakeProvider{})
	req := s.StartCompare()

	require.True(t, s.Complete(req.Generation, nil, nil))
	assert.Equal(t, "Schema comparison failed: Unknown", s.StatusMessage())
}

func TestCompleteError(t *testing.T) {
	s := newTestSession(&fakeProvider{compareErr: errors.New("network down")})
	req := s.StartCompare()
	res, err := s.Execute(context.Background(), req)

	require.True(t, s.Complete(req.Generation, res, err))
	assert.Equal(t, "Schema comparison failed: network down", s.StatusMessage())
}

func TestSwitchDirectionSwapsEndpoints(t *testing.T) {
	s := newTestSession(&fakeProvider{})

	req := s.SwitchDirection()
	assert.Equal(t, "TargetDB", req.Source.Database)
	assert.Equal(t, "SourceDB", req.Target.Database)
	assert.Equal(t, "TargetDB", s.Source().Database)
	assert.Equal(t, StateLoading, s.State())
}

func TestSelectRowOutOfRange(t *testing.T) {
	s := newTestSession(&fakeProvider{})
	req := s.StartCompare()
	require.True(t, s.Complete(req.Generation, resultWithOneDifference(), nil))

	s.SelectRow(5)
	assert.Nil(t, s.Selected())
	assert.Equal(t, compare.EmptyScript, s.SourceScript())
	assert.Equal(t, compare.EmptyScript, s.TargetScript())
}

func TestGenerateScript(t *testing.T) {
	p := &fakeProvider{result: resultWithOneDifference()}
	s := newTestSession(p)
	cmp := s.StartCompare()
	require.True(t, s.Complete(cmp.Generation, p.result, nil))

	req, ok := s.StartGenerateScript("out.sql")
	require.True(t, ok)
	assert.Equal(t, "op-1", req.OperationID)
	assert.Equal(t, "TargetDB", req.TargetDatabase)

	err := s.ExecuteGenerateScript(context.Background(), req)
	s.CompleteGenerateScript(req, err)

	require.Len(t, p.generated, 1)
	assert.Equal(t, "out.sql", p.generated[0])
	assert.Equal(t, "Script saved to out.sql", s.StatusMessage())
}

func TestGenerateScriptCancelledIsSilent(t *testing.T) {
	p := &fakeProvider{result: resultWithOneDifference()}
	s := newTestSession(p)
	cmp := s.StartCompare()
	require.True(t, s.Complete(cmp.Generation, p.result, nil))
	s.SelectRow(0)
	before := s.StatusMessage()

	_, ok := s.StartGenerateScript("")
	assert.False(t, ok)
	assert.Empty(t, p.generated)
	assert.Equal(t, before, s.StatusMessage())
}

func TestGenerateScriptWithoutResult(t *testing.T) {
	s := newTestSession(&fakeProvider{})

	_, ok := s.StartGenerateScript("out.sql")
	assert.False(t, ok)
	assert.Equal(t, "Generate script failed: no comparison result", s.StatusMessage())
}

func TestGenerateScriptFailure(t *testing.T) {
	p := &fakeProvider{result: resultWithOneDifference(), generateErr: errors.New("disk full")}
	s := newTestSession(p)
	cmp := s.StartCompare()
	require.True(t, s.Complete(cmp.Generation, p.result, nil))

	req, ok := s.StartGenerateScript("out.sql")
	require.True(t, ok)
	err := s.ExecuteGenerateScript(context.Background(), req)
	require.Error(t, err)
	s.CompleteGenerateScript(req, err)

	assert.Equal(t, "Generate script failed: disk full", s.StatusMessage())
}

// The provider calls run off the event loop, so the execute steps must not
// touch session state: the loop keeps reading the session while they run.
// The race detector flags any regression here.
func TestExecuteStepsTouchNoSessionState(t *testing.T) {
	p := &fakeProvider{result: resultWithOneDifference()}
	s := newTestSession(p)
	cmp := s.StartCompare()
	require.True(t, s.Complete(cmp.Generation, p.result, nil))
	before := s.StatusMessage()

	req, ok := s.StartGenerateScript("out.sql")
	require.True(t, ok)

	done := make(chan error, 1)
	go func() {
		done <- s.ExecuteGenerateScript(context.Background(), req)
	}()
	for i := 0; i < 100; i++ {
		_ = s.StatusMessage()
		_ = s.State()
	}
	err := <-done

	// The outcome lands only when the loop applies it.
	assert.Equal(t, before, s.StatusMessage())
	s.CompleteGenerateScript(req, err)
	assert.Equal(t, "Script saved to out.sql", s.StatusMessage())
}

func TestDefaultScriptPathUsesTargetDatabase(t *testing.T) {
	s := newTestSession(&fakeProvider{})
	path := s.DefaultScriptPath(time.Date(2026, time.August, 30, 14, 3, 0, 0, time.UTC))
	assert.Equal(t, "TargetDB_Update_2026-8-30-14-3.sql", path)
}
