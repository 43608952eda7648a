package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	calls []string
}

func (p *recordingProvider) AddServerGroup(_ context.Context) error {
	p.calls = append(p.calls, "add")
	return nil
}

func (p *recordingProvider) EditServerGroup(_ context.Context, groupName string) error {
	p.calls = append(p.calls, "edit:"+groupName)
	return nil
}

func (p *recordingProvider) RemoveServerGroup(_ context.Context, groupName string) error {
	p.calls = append(p.calls, "remove:"+groupName)
	return nil
}

func (p *recordingProvider) Refresh(_ context.Context) error {
	p.calls = append(p.calls, "refresh")
	return nil
}

func (p *recordingProvider) Disconnect(_ context.Context, serverName string) error {
	p.calls = append(p.calls, "disconnect:"+serverName)
	return nil
}

func TestRegisterAndExecute(t *testing.T) {
	r := NewRegistry()
	p := &recordingProvider{}
	require.NoError(t, RegisterServerTreeCommands(r, p))

	ctx := context.Background()
	require.NoError(t, r.Execute(ctx, CmdAddServerGroup))
	require.NoError(t, r.Execute(ctx, CmdEditServerGroup, "Production"))
	require.NoError(t, r.Execute(ctx, CmdRemoveServerGroup, "Staging"))
	require.NoError(t, r.Execute(ctx, CmdRefresh))
	require.NoError(t, r.Execute(ctx, CmdDisconnect, "sql01"))

	assert.Equal(t, []string{"add", "edit:Production", "remove:Staging", "refresh", "disconnect:sql01"}, p.calls)
}

func TestExecuteUnknownCommand(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.Execute(context.Background(), "nope"))
}

func TestDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("x", func(context.Context, ...string) error { return nil }))
	assert.Error(t, r.Register("x", func(context.Context, ...string) error { return nil }))
}

func TestCommandsRequiringArguments(t *testing.T) {
	r := NewRegistry()
	p := &recordingProvider{}
	require.NoError(t, RegisterServerTreeCommands(r, p))

	ctx := context.Background()
	assert.Error(t, r.Execute(ctx, CmdEditServerGroup))
	assert.Error(t, r.Execute(ctx, CmdRemoveServerGroup))
	assert.Error(t, r.Execute(ctx, CmdDisconnect))
	assert.Empty(t, p.calls)
}
