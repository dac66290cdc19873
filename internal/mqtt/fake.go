package mqtt

import "sync"

// FakePublisher records published messages for test assertions. It is safe
// for use from the telemetry worker while a test reads it.
type FakePublisher struct {
	mu sync.Mutex

	messages []Message
	payloads [][]byte
	topics   []string

	// Prefix is used to compute recorded topics.
	Prefix string

	// PublishError, if set, will be returned by Publish.
	PublishError error

	closed bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher(prefix string) *FakePublisher {
	return &FakePublisher{Prefix: prefix}
}

// Publish records msg.
func (f *FakePublisher) Publish(msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(msg)
	if err != nil {
		return err
	}
	f.messages = append(f.messages, msg)
	f.payloads = append(f.payloads, payload)
	f.topics = append(f.topics, Topic(f.Prefix, msg.Event))
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// Messages returns a copy of the recorded messages.
func (f *FakePublisher) Messages() []Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Message(nil), f.messages...)
}

// Topics returns a copy of the recorded topics.
func (f *FakePublisher) Topics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.topics...)
}

// Payloads returns a copy of the recorded payloads.
func (f *FakePublisher) Payloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.payloads...)
}

// Closed reports whether Close was called.
func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
