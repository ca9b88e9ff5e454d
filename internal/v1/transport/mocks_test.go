package transport

import (
	"errors"
	"sync"
	"time"
)

// MockConnection implements wsConnection
type MockConnection struct {
	ReadMessageFunc  func() (int, []byte, error)
	WriteMessageFunc func(int, []byte) error
	CloseFunc        func() error
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	if m.ReadMessageFunc != nil {
		return m.ReadMessageFunc()
	}
	return 0, nil, errors.New("no more messages")
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	if m.WriteMessageFunc != nil {
		return m.WriteMessageFunc(messageType, data)
	}
	return nil
}

func (m *MockConnection) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockConnection) SetWriteDeadline(_ time.Time) error { return nil }

func (m *MockConnection) SetReadDeadline(_ time.Time) error { return nil }

func (m *MockConnection) SetReadLimit(_ int64) {}

func (m *MockConnection) SetPongHandler(_ func(string) error) {}

// scriptedConn feeds a fixed sequence of text frames to readPump and records
// everything written, then reports a read error so the pump exits.
type scriptedConn struct {
	mu      sync.Mutex
	frames  [][]byte
	next    int
	written [][]byte
	closed  bool
	done    chan struct{}
}

func newScriptedConn(frames ...[]byte) *scriptedConn {
	return &scriptedConn{frames: frames, done: make(chan struct{})}
}

func (s *scriptedConn) ReadMessage() (int, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.frames) {
		return 0, nil, errors.New("connection closed")
	}
	frame := s.frames[s.next]
	s.next++
	return 1, frame, nil // websocket.TextMessage
}

func (s *scriptedConn) WriteMessage(_ int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.written = append(s.written, cp)
	return nil
}

func (s *scriptedConn) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

func (s *scriptedConn) Written() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.written))
	copy(out, s.written)
	return out
}

func (s *scriptedConn) SetWriteDeadline(_ time.Time) error { return nil }

func (s *scriptedConn) SetReadDeadline(_ time.Time) error { return nil }

func (s *scriptedConn) SetReadLimit(_ int64) {}

func (s *scriptedConn) SetPongHandler(_ func(string) error) {}
