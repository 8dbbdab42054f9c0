package dotdir

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	identityFile = "identity.json"
)

// Identity represents the persisted agent identity.
// It supplies the default source_agent and system labels attached to
// memories, knowledge entries, and log entries written from this machine.
type Identity struct {
	// Agent is the lowercase agent name, e.g. "claude" or a name from the
	// configured agent list.
	Agent string `json:"agent"`

	// System labels the machine or environment the agent writes from.
	System string `json:"system,omitempty"`
}

// LoadIdentity loads the agent identity from a target .worklog/identity.json.
// Returns nil, nil if no identity has been saved yet.
// If overrideDir is non-empty, it is used instead of the default ~/.worklog/ location.
func (m *Manager) LoadIdentity(overrideDir string) (*Identity, error) {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, identityFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading identity: %w", err)
	}

	identity := &Identity{}
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}

	return identity, nil
}

// SaveIdentity persists the agent identity to a target .worklog/identity.json.
func (m *Manager) SaveIdentity(identity *Identity, overrideDir string) error {
	if identity == nil {
		return errors.New("cannot save nil identity")
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(identity, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling identity: %w", err)
	}

	path := filepath.Join(dir, identityFile)
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("writing identity: %w", err)
	}

	return nil
}

// ClearIdentity removes the identity file.
// Returns nil if the file doesn't exist (already cleared).
func (m *Manager) ClearIdentity(overrideDir string) error {
	dir, err := m.Target(overrideDir)
	if err != nil {
		return err
	}

	path := filepath.Join(dir, identityFile)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("removing identity: %w", err)
	}

	return nil
}
