package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-memory Store for tests and development. All writes
// go through a single mutex, so BatchWrite is trivially atomic.
type Memory struct {
	mu      sync.RWMutex
	docs    map[string]map[string]json.RawMessage
	indexed map[string][]string
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		docs:    make(map[string]map[string]json.RawMessage),
		indexed: DefaultIndexes(),
	}
}

func (m *Memory) NewID() string {
	return uuid.NewString()
}

func (m *Memory) Push(ctx context.Context, collection string, doc any) (string, error) {
	id := m.NewID()
	body, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.setLocked(collection, id, body)
	return id, nil
}

func (m *Memory) Get(ctx context.Context, collection, id string, dest any) error {
	m.mu.RLock()
	body, ok := m.docs[collection][id]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(body, dest)
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	body, ok := m.docs[collection][id]
	if !ok {
		return ErrNotFound
	}
	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("decode stored document: %w", err)
	}
	for k, v := range fields {
		doc[k] = v
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal merged document: %w", err)
	}
	m.setLocked(collection, id, merged)
	return nil
}

func (m *Memory) Remove(ctx context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs[collection], id)
	return nil
}

func (m *Memory) Query(ctx context.Context, collection, field, value string, limit int) (map[string]json.RawMessage, error) {
	if !m.fieldIndexed(collection, field) {
		return nil, fmt.Errorf("%s.%s: %w", collection, field, ErrFieldNotIndexed)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]json.RawMessage)
	for id, body := range m.docs[collection] {
		var doc map[string]any
		if err := json.Unmarshal(body, &doc); err != nil {
			return nil, fmt.Errorf("decode stored document %s/%s: %w", collection, id, err)
		}
		fv, ok := doc[field]
		if !ok {
			continue
		}
		if s, ok := fv.(string); !ok || s != value {
			continue
		}
		result[id] = body
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *Memory) List(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string]json.RawMessage, len(m.docs[collection]))
	for id, body := range m.docs[collection] {
		result[id] = body
	}
	return result, nil
}

// BatchWrite marshals every set first, then applies all ops under the
// write lock. A marshal failure leaves the store untouched.
func (m *Memory) BatchWrite(ctx context.Context, ops []Op) error {
	bodies := make([]json.RawMessage, len(ops))
	for i, op := range ops {
		if op.Doc == nil {
			continue
		}
		body, err := json.Marshal(op.Doc)
		if err != nil {
			return fmt.Errorf("marshal batch document %s/%s: %w", op.Collection, op.ID, err)
		}
		bodies[i] = body
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, op := range ops {
		if op.Doc == nil {
			delete(m.docs[op.Collection], op.ID)
			continue
		}
		m.setLocked(op.Collection, op.ID, bodies[i])
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) fieldIndexed(collection, field string) bool {
	for _, f := range m.indexed[collection] {
		if f == field {
			return true
		}
	}
	return false
}

func (m *Memory) setLocked(collection, id string, body json.RawMessage) {
	if m.docs[collection] == nil {
		m.docs[collection] = make(map[string]json.RawMessage)
	}
	m.docs[collection][id] = body
}
