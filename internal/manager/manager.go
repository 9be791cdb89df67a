// Package manager supervises one loop goroutine per project. Loops are
// independently cancellable and make uncoordinated progress; the manager
// only tracks lifecycles and drains them on shutdown.
package manager

import (
	"context"
	"fmt"
	"sync"

	"github.com/smancode/sweep/internal/debug"
	"github.com/smancode/sweep/internal/engine"
	"github.com/smancode/sweep/internal/store"
)

// Precondition gates loop start, e.g. required credentials configured.
// Checked once at Start; a failure never enters the phase machine.
type Precondition interface {
	IsRunnable(projectID string) (bool, string)
}

type runningLoop struct {
	loop   *engine.Loop
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns the project → loop map.
type Manager struct {
	mu    sync.Mutex
	loops map[string]*runningLoop
}

func New() *Manager {
	return &Manager{loops: make(map[string]*runningLoop)}
}

// Start launches a loop for a project. Exactly one loop may run per project;
// starting a second is an error, which is what makes checkpoint writes
// single-writer.
func (m *Manager) Start(ctx context.Context, projectID string, l *engine.Loop, pre Precondition) error {
	if pre != nil {
		if ok, reason := pre.IsRunnable(projectID); !ok {
			l.Stop(store.StopNotRunnable)
			return fmt.Errorf("project %s not runnable: %s", projectID, reason)
		}
	}

	m.mu.Lock()
	if _, exists := m.loops[projectID]; exists {
		m.mu.Unlock()
		return fmt.Errorf("loop already running for project %s", projectID)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	rl := &runningLoop{loop: l, cancel: cancel, done: make(chan struct{})}
	m.loops[projectID] = rl
	m.mu.Unlock()

	debug.LogKV("manager", "loop started", "project", projectID)

	go func() {
		defer close(rl.done)
		if err := l.Run(loopCtx); err != nil {
			debug.LogKV("manager", "loop exited with error", "project", projectID, "error", err)
		}
		m.mu.Lock()
		delete(m.loops, projectID)
		m.mu.Unlock()
	}()

	return nil
}

// Stop requests a cooperative stop for one project's loop and waits for it
// to drain. Stopping a project with no running loop is a no-op.
func (m *Manager) Stop(projectID string, reason store.StopReason) {
	m.mu.Lock()
	rl, ok := m.loops[projectID]
	m.mu.Unlock()
	if !ok {
		return
	}

	rl.loop.Stop(reason)
	rl.cancel()
	<-rl.done
	debug.LogKV("manager", "loop stopped", "project", projectID, "reason", reason)
}

// Wait blocks until the project's loop exits. Returns immediately when no
// loop is running.
func (m *Manager) Wait(projectID string) {
	m.mu.Lock()
	rl, ok := m.loops[projectID]
	m.mu.Unlock()
	if !ok {
		return
	}
	<-rl.done
}

// Running reports whether a loop is active for the project.
func (m *Manager) Running(projectID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.loops[projectID]
	return ok
}

// Status returns snapshots for every running loop.
func (m *Manager) Status() map[string]engine.Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]engine.Status, len(m.loops))
	for id, rl := range m.loops {
		out[id] = rl.loop.Status()
	}
	return out
}

// Shutdown drains every loop cooperatively. Loops are signalled at once and
// waited on until they reach a phase boundary or the context expires;
// expiry abandons the wait rather than killing in-flight work.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	draining := make([]*runningLoop, 0, len(m.loops))
	for id, rl := range m.loops {
		debug.LogKV("manager", "draining loop", "project", id)
		rl.loop.Stop(store.StopShutdown)
		rl.cancel()
		draining = append(draining, rl)
	}
	m.mu.Unlock()

	for _, rl := range draining {
		select {
		case <-rl.done:
		case <-ctx.Done():
			debug.Log("manager", "shutdown deadline reached; abandoning remaining loops")
			return
		}
	}
}
