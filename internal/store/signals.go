// signals.go contains cross-process loop control signals. A stop request is
// a file so `sweep stop` can reach a loop running in another process; the
// loop consumes it at the next phase boundary.
package store

import (
	"os"
	"path/filepath"
	"strings"
)

func (s *Store) stopSignalPath() string {
	return filepath.Join(s.root, "stop")
}

// SignalStop requests a running loop to stop. The reason text is stored in
// the signal file for status display.
func (s *Store) SignalStop(reason string) error {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return err
	}
	return os.WriteFile(s.stopSignalPath(), []byte(reason), 0644)
}

// ConsumeStopSignal checks for a pending stop request and removes it.
// Returns the reason text and whether a signal was present.
func (s *Store) ConsumeStopSignal() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.stopSignalPath())
	if err != nil {
		return "", false
	}
	os.Remove(s.stopSignalPath())
	reason := strings.TrimSpace(string(data))
	if reason == "" {
		reason = "stop requested"
	}
	return reason, true
}

// StopRequested reports whether a stop signal is pending without consuming it.
func (s *Store) StopRequested() bool {
	_, err := os.Stat(s.stopSignalPath())
	return err == nil
}
