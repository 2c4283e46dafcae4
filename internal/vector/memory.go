package vector

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// File format identifiers for the persisted collection.
const (
	fileMagic   = "KVIX"
	fileVersion = uint32(1)
)

// MemoryIndex is a brute-force cosine-similarity index holding full entries
// in memory. Ranking is exact, which is the reference behavior for
// small-to-medium corpora; an approximate backend can be swapped in behind
// the same interface.
type MemoryIndex struct {
	collection string
	dimensions int
	entries    []*Entry
	byID       map[string]int
	mu         sync.RWMutex
}

// NewMemoryIndex creates an index for the named collection with the given
// dimensionality, which is fixed for the life of the collection.
func NewMemoryIndex(collection string, dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive, got %d", dimensions)
	}
	return &MemoryIndex{
		collection: collection,
		dimensions: dimensions,
		byID:       make(map[string]int),
	}, nil
}

// Add inserts entries, replacing any existing entry with the same ID in
// place so re-ingesting a document never duplicates vectors. All vectors are
// validated before any is stored, so a failing call never partially mutates
// the index. Vectors are copied and normalized to unit length so search
// reduces to a dot product.
func (m *MemoryIndex) Add(ctx context.Context, entries []*Entry) error {
	for _, e := range entries {
		if len(e.Vector) != m.dimensions {
			return fmt.Errorf("%w: got %d, index expects %d", ErrDimensionMismatch, len(e.Vector), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		vec := make([]float32, m.dimensions)
		copy(vec, e.Vector)
		normalize(vec)
		stored := &Entry{
			ID:       e.ID,
			Text:     e.Text,
			Metadata: e.Metadata,
			Vector:   vec,
		}
		if i, ok := m.byID[e.ID]; ok {
			m.entries[i] = stored
			continue
		}
		m.byID[e.ID] = len(m.entries)
		m.entries = append(m.entries, stored)
	}
	return nil
}

// Search returns up to k entries ranked by descending cosine similarity.
// Ties keep insertion order (earlier-inserted wins). An empty index yields an
// empty result, not an error.
func (m *MemoryIndex) Search(ctx context.Context, query []float32, k int) ([]*VectorResult, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("%w: query has %d, index expects %d", ErrDimensionMismatch, len(query), m.dimensions)
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}
	q := make([]float32, m.dimensions)
	copy(q, query)
	normalize(q)

	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.entries) == 0 {
		return nil, nil
	}
	results := make([]*VectorResult, len(m.entries))
	for i, e := range m.entries {
		var dot float64
		for j := 0; j < m.dimensions; j++ {
			dot += float64(q[j] * e.Vector[j])
		}
		results[i] = &VectorResult{ID: e.ID, Text: e.Text, Score: dot}
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// Get returns the entry with the given ID.
func (m *MemoryIndex) Get(id string) (*Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.byID[id]
	if !ok {
		return nil, false
	}
	return m.entries[i], true
}

// Reset drops all entries, keeping collection name and dimensionality.
// Used for a full rebuild.
func (m *MemoryIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = nil
	m.byID = make(map[string]int)
}

// Save persists the full entry set to path. The parent directory is created
// if needed. Format: magic, version, collection, dimensions, count, then per
// entry: id, text, metadata JSON, vector.
func (m *MemoryIndex) Save(path string) error {
	if path == "" {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte(fileMagic)); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, fileVersion); err != nil {
		return fmt.Errorf("write version: %w", err)
	}
	if err := writeBytes(f, []byte(m.collection)); err != nil {
		return fmt.Errorf("write collection: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(m.entries))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, e := range m.entries {
		if err := writeBytes(f, []byte(e.ID)); err != nil {
			return fmt.Errorf("write id: %w", err)
		}
		if err := writeBytes(f, []byte(e.Text)); err != nil {
			return fmt.Errorf("write text: %w", err)
		}
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		if err := writeBytes(f, meta); err != nil {
			return fmt.Errorf("write metadata: %w", err)
		}
		if _, err := f.Write(float32SliceToBytes(e.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the collection from path and replaces the in-memory contents.
// A missing file is not an error; the index stays empty and ready for Add.
// The recorded collection name and dimensionality must match.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()

	magic := make([]byte, len(fileMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return fmt.Errorf("read magic: %w", err)
	}
	if string(magic) != fileMagic {
		return fmt.Errorf("not a vector collection file: %s", path)
	}
	var version uint32
	if err := binary.Read(f, binary.LittleEndian, &version); err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	if version != fileVersion {
		return fmt.Errorf("unsupported collection version %d", version)
	}
	collection, err := readBytes(f)
	if err != nil {
		return fmt.Errorf("read collection: %w", err)
	}
	if string(collection) != m.collection {
		return fmt.Errorf("collection mismatch: file has %q, index expects %q", collection, m.collection)
	}
	var dim, count uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, dim, m.dimensions)
	}
	if err := binary.Read(f, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("read count: %w", err)
	}

	entries := make([]*Entry, 0, count)
	byID := make(map[string]int, count)
	vecBuf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < count; i++ {
		id, err := readBytes(f)
		if err != nil {
			return fmt.Errorf("read id: %w", err)
		}
		text, err := readBytes(f)
		if err != nil {
			return fmt.Errorf("read text: %w", err)
		}
		metaRaw, err := readBytes(f)
		if err != nil {
			return fmt.Errorf("read metadata: %w", err)
		}
		var meta map[string]interface{}
		if len(metaRaw) > 0 {
			if err := json.Unmarshal(metaRaw, &meta); err != nil {
				return fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		if _, err := io.ReadFull(f, vecBuf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		e := &Entry{
			ID:       string(id),
			Text:     string(text),
			Metadata: meta,
			Vector:   bytesToFloat32Slice(vecBuf),
		}
		byID[e.ID] = len(entries)
		entries = append(entries, e)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = entries
	m.byID = byID
	return nil
}

// Size returns the number of entries in the index.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Dimensions returns the collection's fixed dimensionality.
func (m *MemoryIndex) Dimensions() int {
	return m.dimensions
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
