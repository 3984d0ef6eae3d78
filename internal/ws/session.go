package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"relay-service/internal/models"
)

// ErrChannelDead is returned when pushing to a session whose connection is gone.
var ErrChannelDead = errors.New("channel dead")

// Channel is a live, push-capable connection owned by one user.
type Channel interface {
	UserID() string
	Send(env models.Envelope) error
	Close() error
}

// State is the lifecycle of a session. Closed is terminal.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is a Channel backed by a gorilla websocket connection.
type Session struct {
	conn         *websocket.Conn
	info         ConnInfo
	writeTimeout time.Duration

	writeMu   sync.Mutex
	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error
}

// NewSession wraps an upgraded connection. It starts in StateConnecting.
func NewSession(conn *websocket.Conn, info ConnInfo, writeTimeout time.Duration) *Session {
	return &Session{conn: conn, info: info, writeTimeout: writeTimeout}
}

func (s *Session) UserID() string { return s.info.UserID }

// Info returns the connection metadata.
func (s *Session) Info() ConnInfo { return s.info }

func (s *Session) State() State { return State(s.state.Load()) }

// MarkOpen moves a connecting session to open. It has no effect once closed.
func (s *Session) MarkOpen() bool {
	return s.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen))
}

// Send writes one envelope. gorilla allows a single concurrent writer, so
// writes are serialised.
func (s *Session) Send(env models.Envelope) error {
	if s.State() == StateClosed {
		return ErrChannelDead
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.writeTimeout > 0 {
		_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := s.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("%w: %v", ErrChannelDead, err)
	}
	return nil
}

// Read blocks for the next inbound envelope. Frames that are not valid JSON
// envelopes are reported with ok=false and a nil error so the caller can skip them.
func (s *Session) Read() (env models.Envelope, ok bool, err error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		return models.Envelope{}, false, err
	}
	if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
		return models.Envelope{}, false, nil
	}
	return env, true, nil
}

// Close tears the connection down once; it also unblocks a pending Read.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
