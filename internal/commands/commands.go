// Package commands maps command identifiers to handlers. The registered
// servers tree commands do no work of their own; they forward straight to
// the tree provider.
package commands

import (
	"context"
	"fmt"
	"sync"
)

type Handler func(ctx context.Context, args ...string) error

type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds a handler to a command id. Duplicate registrations are an
// error so a misconfigured host fails loudly.
func (r *Registry) Register(name string, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("command already registered: %s", name)
	}
	r.handlers[name] = handler
	return nil
}

// Execute dispatches a command by id.
func (r *Registry) Execute(ctx context.Context, name string, args ...string) error {
	r.mu.RLock()
	handler, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown command: %s", name)
	}
	return handler(ctx, args...)
}

// ServerTreeProvider is the registered-servers tree the commands drive. The
// host supplies the implementation.
type ServerTreeProvider interface {
	AddServerGroup(ctx context.Context) error
	EditServerGroup(ctx context.Context, groupName string) error
	RemoveServerGroup(ctx context.Context, groupName string) error
	Refresh(ctx context.Context) error
	Disconnect(ctx context.Context, serverName string) error
}

// Command ids for the registered servers tree.
const (
	CmdAddServerGroup    = "registeredServers.addServerGroup"
	CmdEditServerGroup   = "registeredServers.editServerGroup"
	CmdRemoveServerGroup = "registeredServers.removeServerGroup"
	CmdRefresh           = "registeredServers.refresh"
	CmdDisconnect        = "registeredServers.disconnect"
)

// RegisterServerTreeCommands wires the tree commands to a provider.
func RegisterServerTreeCommands(r *Registry, provider ServerTreeProvider) error {
	bindings := map[string]Handler{
		CmdAddServerGroup: func(ctx context.Context, _ ...string) error {
			return provider.AddServerGroup(ctx)
		},
		CmdEditServerGroup: func(ctx context.Context, args ...string) error {
			if len(args) < 1 {
				return fmt.Errorf("%s requires a group name", CmdEditServerGroup)
			}
			return provider.EditServerGroup(ctx, args[0])
		},
		CmdRemoveServerGroup: func(ctx context.Context, args ...string) error {
			if len(args) < 1 {
				return fmt.Errorf("%s requires a group name", CmdRemoveServerGroup)
			}
			return provider.RemoveServerGroup(ctx, args[0])
		},
		CmdRefresh: func(ctx context.Context, _ ...string) error {
			return provider.Refresh(ctx)
		},
		CmdDisconnect: func(ctx context.Context, args ...string) error {
			if len(args) < 1 {
				return fmt.Errorf("%s requires a server name", CmdDisconnect)
			}
			return provider.Disconnect(ctx, args[0])
		},
	}

	for name, handler := range bindings {
		if err := r.Register(name, handler); err != nil {
			return err
		}
	}
	return nil
}
