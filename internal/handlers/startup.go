package handlers

import (
	"net/http"
	"sync"
)

// StartupStatus tracks the initialization progress
type StartupStatus struct {
	mu       sync.RWMutex
	ready    bool
	current  string
	progress int
	steps    []StartupStep
}

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

type startupSnapshot struct {
	Ready    bool          `json:"ready"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}

// NewStartupStatus creates a tracker for the named steps
func NewStartupStatus(steps ...string) *StartupStatus {
	s := &StartupStatus{current: "Initializing..."}
	for _, name := range steps {
		s.steps = append(s.steps, StartupStep{Name: name})
	}
	return s
}

// SetCurrentStep updates the current initialization step
func (s *StartupStatus) SetCurrentStep(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = step
}

// CompleteStep marks a step as completed and updates progress
func (s *StartupStatus) CompleteStep(stepName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.steps {
		if s.steps[i].Name == stepName {
			s.steps[i].Completed = true
			break
		}
	}

	completed := 0
	for _, step := range s.steps {
		if step.Completed {
			completed++
		}
	}
	if len(s.steps) > 0 {
		s.progress = (completed * 100) / len(s.steps)
	}
}

// MarkReady marks the server as fully initialized
func (s *StartupStatus) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	s.current = "Server ready"
	s.progress = 100
}

// MarkDraining flips readiness off while the server shuts down
func (s *StartupStatus) MarkDraining() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
	s.current = "Shutting down"
}

// IsReady returns whether the server is fully initialized
func (s *StartupStatus) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *StartupStatus) snapshot() startupSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return startupSnapshot{
		Ready:    s.ready,
		Current:  s.current,
		Progress: s.progress,
		Steps:    append([]StartupStep(nil), s.steps...),
	}
}

// ShowStartupStatus reports readiness; 503 until startup has finished
func (s *StartupStatus) ShowStartupStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	status := http.StatusOK
	if !snap.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, snap)
}
