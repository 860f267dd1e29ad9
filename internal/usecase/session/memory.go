package session

import "kairos/internal/domain/entity"

// Memory keeps the most recent turns of a conversation. A turn is one
// assistant message followed by the tool results answering its calls, and
// is evicted as a unit so a tool call never loses its result.
type Memory struct {
	capacity int
	turns    [][]entity.Message
}

// NewMemory keeps 2*k turns, matching a window of k exchanges.
func NewMemory(k int) *Memory {
	if k < 1 {
		k = 1
	}
	return &Memory{capacity: 2 * k}
}

// AddAssistant opens a new turn, dropping the oldest turn when full.
func (m *Memory) AddAssistant(msg entity.Message) {
	m.turns = append(m.turns, []entity.Message{msg})
	if len(m.turns) > m.capacity {
		m.turns[0] = nil
		m.turns = m.turns[1:]
	}
}

// AddToolResult appends to the current turn.
func (m *Memory) AddToolResult(msg entity.Message) {
	if len(m.turns) == 0 {
		m.turns = append(m.turns, nil)
	}
	last := len(m.turns) - 1
	m.turns[last] = append(m.turns[last], msg)
}

func (m *Memory) Messages() []entity.Message {
	var out []entity.Message
	for _, turn := range m.turns {
		out = append(out, turn...)
	}
	return out
}

func (m *Memory) Turns() int { return len(m.turns) }
