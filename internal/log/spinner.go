package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// ProgressSpinner animates a spinner for the long-running phases (package
// loading, SSA lowering, graph construction).
type ProgressSpinner struct {
	mu      sync.Mutex
	message string
	frames  []string
	current int
	active  bool
	writer  io.Writer
}

// NewProgressSpinner creates a new progress spinner
func NewProgressSpinner(message string) *ProgressSpinner {
	return &ProgressSpinner{
		message: message,
		frames:  []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		writer:  os.Stderr,
	}
}

// Start begins the spinner animation. It is a no-op when stderr is not a
// terminal, so piped output stays clean.
func (p *ProgressSpinner) Start() {
	if !isTerminal(p.writer) {
		return
	}
	p.mu.Lock()
	p.active = true
	p.mu.Unlock()

	go p.animate()
}

// Stop stops the spinner and clears its line.
func (p *ProgressSpinner) Stop() {
	p.mu.Lock()
	wasActive := p.active
	p.active = false
	p.mu.Unlock()

	if wasActive {
		time.Sleep(50 * time.Millisecond)
		fmt.Fprint(p.writer, "\r\033[K")
	}
}

// Message updates the spinner message
func (p *ProgressSpinner) Message(msg string) {
	p.mu.Lock()
	p.message = msg
	p.mu.Unlock()
}

func (p *ProgressSpinner) animate() {
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for range ticker.C {
		p.mu.Lock()
		if !p.active {
			p.mu.Unlock()
			return
		}
		frame := p.frames[p.current%len(p.frames)]
		p.current++
		fmt.Fprintf(p.writer, "\r%s %s", frame, p.message)
		p.mu.Unlock()
	}
}
