package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/doeshing/askai-go/internal/domain"
	"github.com/doeshing/askai-go/internal/ports"
)

var stageLabels = map[domain.ProgressStage]string{
	domain.StageDaemon:      "asking daemon",
	domain.StageCacheLookup: "checking cache",
	domain.StageRetrieve:    "collecting context",
	domain.StageProvider:    "generating",
	domain.StageClassify:    "checking safety",
	domain.StagePersist:     "saving",
}

// Spinner renders pipeline stages as an animated status line. It implements
// ports.ProgressReporter; Done clears the line.
type Spinner struct {
	frames   []string
	interval time.Duration
	writer   io.Writer

	mu      sync.Mutex
	label   string
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewSpinner creates a new spinner
func NewSpinner(w io.Writer) *Spinner {
	return &Spinner{
		frames:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		interval: 80 * time.Millisecond,
		writer:   w,
	}
}

// Stage updates the label and starts the animation if needed.
func (s *Spinner) Stage(stage domain.ProgressStage) {
	label, ok := stageLabels[stage]
	if !ok {
		label = string(stage)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = label
	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.loop(s.stop)
}

// Done stops the animation and clears the line. Safe to call repeatedly.
func (s *Spinner) Done() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Spinner) loop(stop <-chan struct{}) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for idx := 0; ; idx++ {
		s.mu.Lock()
		label := s.label
		s.mu.Unlock()
		fmt.Fprintf(s.writer, "\r\033[K%s %s", s.frames[idx%len(s.frames)], label)
		select {
		case <-stop:
			fmt.Fprint(s.writer, "\r\033[K")
			return
		case <-ticker.C:
		}
	}
}

var _ ports.ProgressReporter = (*Spinner)(nil)
