package ws

import (
	"sync"

	"relay-service/internal/models"
)

type fakeChannel struct {
	userID string

	mu      sync.Mutex
	sent    []models.Envelope
	sendErr error
	closes  int
}

func newFakeChannel(userID string) *fakeChannel {
	return &fakeChannel{userID: userID}
}

func (f *fakeChannel) UserID() string { return f.userID }

func (f *fakeChannel) Send(env models.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, env)
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeChannel) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

func (f *fakeChannel) received() []models.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Envelope(nil), f.sent...)
}

func (f *fakeChannel) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}
