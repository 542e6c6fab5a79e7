package trie

import (
	"sort"

	"github.com/ethereum/go-ethereum/crypto"

	"futurechain/storage"
)

// Trie exposes a simplified hashed-key state store for the rest of the
// codebase. Mutations accumulate in an in-memory overlay until Commit flushes
// them to the backing database; Reset discards the overlay, which is how
// speculative state transitions are rolled back.
//
// The keys passed into Get/Update are expected to be fully hashed (keccak256)
// before insertion.
//
// Trie is not safe for concurrent use.
type Trie struct {
	store   storage.Database
	pending map[string][]byte
	root    []byte
}

// NewTrie creates a trie backed by the provided storage and optional root. A
// nil or empty root denotes the empty trie.
func NewTrie(store storage.Database, root []byte) (*Trie, error) {
	t := &Trie{
		store:   store,
		pending: make(map[string][]byte),
	}
	if len(root) > 0 {
		t.root = append([]byte(nil), root...)
	}
	return t, nil
}

// Get retrieves a value from the trie for the provided key. Absent keys yield
// an empty value, not an error.
func (t *Trie) Get(key []byte) ([]byte, error) {
	if value, ok := t.pending[string(key)]; ok {
		return append([]byte(nil), value...), nil
	}
	value, err := t.store.Get(key)
	if err == storage.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Update inserts or updates a value in the trie for the provided key.
func (t *Trie) Update(key, value []byte) error {
	buf := make([]byte, len(value))
	copy(buf, value)
	t.pending[string(key)] = buf
	return nil
}

// Hash returns the root hash reflecting all in-memory mutations. The hash
// folds the pending overlay over the last committed root in sorted key order
// so that equal states always produce equal roots.
func (t *Trie) Hash() []byte {
	if len(t.pending) == 0 {
		return append([]byte(nil), t.root...)
	}
	keys := make([]string, 0, len(t.pending))
	for k := range t.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	content := append([]byte(nil), t.root...)
	for _, k := range keys {
		content = append(content, k...)
		content = append(content, t.pending[k]...)
	}
	return crypto.Keccak256(content)
}

// Root returns the last committed root hash.
func (t *Trie) Root() []byte {
	return append([]byte(nil), t.root...)
}

// Reset discards any in-memory changes. It is primarily used to roll back
// speculative state transitions.
func (t *Trie) Reset() {
	t.pending = make(map[string][]byte)
}

// Copy creates a copy of the trie wrapper. The returned trie shares the same
// backing database but its overlay can be mutated independently.
func (t *Trie) Copy() *Trie {
	pending := make(map[string][]byte, len(t.pending))
	for k, v := range t.pending {
		pending[k] = append([]byte(nil), v...)
	}
	return &Trie{
		store:   t.store,
		pending: pending,
		root:    append([]byte(nil), t.root...),
	}
}

// Commit persists the overlay to the backing database and returns the new
// root hash. After committing, the overlay is empty and the trie can be
// reused for subsequent transitions.
func (t *Trie) Commit() ([]byte, error) {
	newRoot := t.Hash()
	keys := make([]string, 0, len(t.pending))
	for k := range t.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := t.store.Put([]byte(k), t.pending[k]); err != nil {
			return nil, err
		}
	}
	t.pending = make(map[string][]byte)
	t.root = newRoot
	return newRoot, nil
}

// Store exposes the backing storage in case callers need to access it
// directly.
func (t *Trie) Store() storage.Database {
	return t.store
}
