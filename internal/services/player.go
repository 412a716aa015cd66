package services

import (
	"fmt"
	"os/exec"
	"sync"
)

// Player plays one file at a time through an external command.
type Player struct {
	command string
	args    []string

	mu      sync.Mutex
	current *exec.Cmd
	playing string
}

// NewPlayer creates a [Player] that runs command with args followed by the file path.
func NewPlayer(command string, args []string) *Player {
	return &Player{command: command, args: args}
}

// Play stops any running preview and starts path.
func (p *Player) Play(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	if p.command == "" {
		return fmt.Errorf("no player command configured")
	}

	args := append(append([]string{}, p.args...), path)
	cmd := exec.Command(p.command, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start player: %w", err)
	}

	p.current = cmd
	p.playing = path
	go func() {
		_ = cmd.Wait()
		p.mu.Lock()
		if p.current == cmd {
			p.current = nil
			p.playing = ""
		}
		p.mu.Unlock()
	}()
	return nil
}

// Playing returns the path being played, or "".
func (p *Player) Playing() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Stop ends the running preview, if any.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.current != nil && p.current.Process != nil {
		_ = p.current.Process.Kill()
	}
	p.current = nil
	p.playing = ""
}
