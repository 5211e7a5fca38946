package memory

import (
	"strings"
	"sync"
	"time"

	"tourism-rag/internal/models"
)

// Window keeps the last few turns of one conversation. Safe for concurrent use.
type Window struct {
	mu       sync.Mutex
	size     int
	turns    []models.Turn
	lastUsed time.Time
}

func NewWindow(size int) *Window {
	if size <= 0 {
		size = models.MemoryWindow
	}
	return &Window{size: size, lastUsed: time.Now()}
}

// Append records a turn and evicts the oldest once the window is full.
func (w *Window) Append(turn models.Turn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.turns = append(w.turns, turn)
	if over := len(w.turns) - w.size; over > 0 {
		w.turns = append([]models.Turn(nil), w.turns[over:]...)
	}
	w.lastUsed = time.Now()
}

// Turns returns a copy, oldest first.
func (w *Window) Turns() []models.Turn {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]models.Turn(nil), w.turns...)
}

func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.turns)
}

// Format renders the turns as "Human: ..." / "AI: ..." lines.
func (w *Window) Format() string {
	return FormatTurns(w.Turns())
}

func FormatTurns(turns []models.Turn) string {
	lines := make([]string, 0, len(turns)*2)
	for _, t := range turns {
		lines = append(lines, models.HumanPrefix+": "+t.Question, models.AIPrefix+": "+t.Answer)
	}
	return strings.Join(lines, "\n")
}

func (w *Window) touch() {
	w.mu.Lock()
	w.lastUsed = time.Now()
	w.mu.Unlock()
}

func (w *Window) idleSince(cutoff time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed.Before(cutoff)
}
