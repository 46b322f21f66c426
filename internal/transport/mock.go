package transport

import (
	"time"
)

// MockTransport is a Transport whose replies are scripted, for the §8
// seed tests and the "protocol ordering" property. It records every sent
// frame's leading command byte so a test can assert the exact
// A1, A1(UID), A3, A4, A5*, A6*, A2 sequence of a full flash.
type MockTransport struct {
	// Replies is consumed in order, one per RecvRaw call. Once it is
	// exhausted, RecvRaw returns a *TimeoutError rather than hanging.
	Replies [][]byte

	Sent   [][]byte
	opened bool
	pos    int
}

func (m *MockTransport) Open() error {
	m.opened = true
	return nil
}

func (m *MockTransport) SendRaw(frame []byte) error {
	if !m.opened {
		return ErrNotOpen
	}
	cp := append([]byte(nil), frame...)
	m.Sent = append(m.Sent, cp)
	return nil
}

func (m *MockTransport) RecvRaw(timeout time.Duration) ([]byte, error) {
	if !m.opened {
		return nil, ErrNotOpen
	}
	if m.pos >= len(m.Replies) {
		return nil, &TimeoutError{Waited: timeout}
	}
	r := m.Replies[m.pos]
	m.pos++
	return r, nil
}

func (m *MockTransport) Close() error {
	m.opened = false
	return nil
}

// SentCommands returns the command byte (frame[0]) of every sent frame, in
// order, for asserting protocol ordering.
func (m *MockTransport) SentCommands() []byte {
	cmds := make([]byte, len(m.Sent))
	for i, f := range m.Sent {
		if len(f) > 0 {
			cmds[i] = f[0]
		}
	}
	return cmds
}
