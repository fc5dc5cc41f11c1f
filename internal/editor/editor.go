// Package editor launches an external editor on the project and post file.
package editor

import (
	"fmt"
	"os/exec"

	"github.com/starford/ansuz/internal/apperr"
)

// DefaultCommand is the editor binary used when none is configured.
const DefaultCommand = "code"

// Launcher starts an external editor process.
type Launcher struct {
	command string
}

// NewLauncher creates a launcher for the given command; empty falls back to
// DefaultCommand.
func NewLauncher(command string) *Launcher {
	if command == "" {
		command = DefaultCommand
	}
	return &Launcher{command: command}
}

// Command returns the configured editor binary name.
func (l *Launcher) Command() string { return l.command }

// Open starts the editor with the project directory and file path as
// arguments and returns without waiting for it to exit. A missing
// executable yields apperr.ErrEditorNotFound.
func (l *Launcher) Open(projectPath, filePath string) error {
	if _, err := exec.LookPath(l.command); err != nil {
		return fmt.Errorf("editor: %q not in PATH: %w", l.command, apperr.ErrEditorNotFound)
	}
	cmd := exec.Command(l.command, projectPath, filePath)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("editor: start %q: %w", l.command, err)
	}
	// Reap the child when it exits.
	go func() { _ = cmd.Wait() }()
	return nil
}
