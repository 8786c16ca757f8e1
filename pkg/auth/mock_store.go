package auth

import "sync"

// MockStore is an in-memory TokenStore for tests
type MockStore struct {
	tokens map[string]*Token
	mu     sync.RWMutex

	// error injection
	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{tokens: make(map[string]*Token)}
}

func (m *MockStore) Store(token *Token) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if token == nil || token.Name == "" {
		return ErrInvalidToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *token
	m.tokens[token.Name] = &cp
	return nil
}

func (m *MockStore) Retrieve(name string) (*Token, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}
	if name == "" {
		return nil, ErrInvalidToken
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	token, ok := m.tokens[name]
	if !ok {
		return nil, ErrTokenNotFound
	}
	cp := *token
	return &cp, nil
}

func (m *MockStore) List() ([]*Token, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	tokens := make([]*Token, 0, len(m.tokens))
	for _, token := range m.tokens {
		cp := *token
		tokens = append(tokens, &cp)
	}
	return tokens, nil
}

func (m *MockStore) Delete(name string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	if name == "" {
		return ErrInvalidToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[name]; !ok {
		return ErrTokenNotFound
	}
	delete(m.tokens, name)
	return nil
}

func (m *MockStore) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tokens[name]
	return ok
}

// Count returns the number of stored tokens
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}

// NewMockManager creates a Manager over a single mock store
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return NewManagerWithStores(store), store
}
