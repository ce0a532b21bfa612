package index

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/google/btree"

	"github.com/ssargent/recfile/pkg/codec"
)

// ErrUnknownColumn is returned when an index is requested for a column that
// is not part of the schema
var ErrUnknownColumn = errors.New("unknown column")

const degree = 32

// entry pairs a column value with the record number holding it. The record
// number makes entries with equal values unique.
type entry struct {
	value  codec.Field
	record int64
}

func less(a, b entry) bool {
	if c := codec.Compare(a.value, b.value); c != 0 {
		return c < 0
	}
	return a.record < b.record
}

// SecondaryIndex orders the records of a file by the value of one column
type SecondaryIndex struct {
	column string
	tree   *btree.BTreeG[entry]
	mutex  sync.RWMutex
}

// NewSecondaryIndex creates an empty index for a column
func NewSecondaryIndex(column string) *SecondaryIndex {
	return &SecondaryIndex{
		column: column,
		tree:   btree.NewG(degree, less),
	}
}

// Column returns the indexed column name
func (idx *SecondaryIndex) Column() string {
	return idx.column
}

// Insert adds a record to the index
func (idx *SecondaryIndex) Insert(value codec.Field, record int64) {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()
	idx.tree.ReplaceOrInsert(entry{value: value, record: record})
}

// Delete removes a record from the index
func (idx *SecondaryIndex) Delete(value codec.Field, record int64) bool {
	idx.mutex.Lock()
	defer idx.mutex.Unlock()
	_, ok := idx.tree.Delete(entry{value: value, record: record})
	return ok
}

// Len returns the number of indexed records
func (idx *SecondaryIndex) Len() int {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()
	return idx.tree.Len()
}

// Search returns the record numbers whose value equals value, in record order
func (idx *SecondaryIndex) Search(value codec.Field) []int64 {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	var records []int64
	idx.tree.AscendGreaterOrEqual(entry{value: value, record: math.MinInt64}, func(e entry) bool {
		if codec.Compare(e.value, value) != 0 {
			return false
		}
		records = append(records, e.record)
		return true
	})
	return records
}

// SearchRange returns the record numbers with start <= value < end, ordered
// by value
func (idx *SecondaryIndex) SearchRange(start, end codec.Field) []int64 {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	var records []int64
	idx.tree.AscendRange(
		entry{value: start, record: math.MinInt64},
		entry{value: end, record: math.MinInt64},
		func(e entry) bool {
			records = append(records, e.record)
			return true
		},
	)
	return records
}

// Ascend calls fn for every record in value order until fn returns false
func (idx *SecondaryIndex) Ascend(fn func(value codec.Field, record int64) bool) {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	idx.tree.Ascend(func(e entry) bool {
		return fn(e.value, e.record)
	})
}

// Records returns every record number ordered by value, descending if
// reverse is set
func (idx *SecondaryIndex) Records(reverse bool) []int64 {
	idx.mutex.RLock()
	defer idx.mutex.RUnlock()

	records := make([]int64, 0, idx.tree.Len())
	collect := func(e entry) bool {
		records = append(records, e.record)
		return true
	}
	if reverse {
		idx.tree.Descend(collect)
	} else {
		idx.tree.Ascend(collect)
	}
	return records
}

func (idx *SecondaryIndex) clear() {
	idx.tree.Clear(false)
}

// IndexManager keeps the secondary indexes of one data file. Indexes live in
// memory only and are rebuilt from the records after the file changes.
type IndexManager struct {
	columns codec.Columns
	indexes map[string]*SecondaryIndex
	stale   bool
	mutex   sync.RWMutex
}

// NewIndexManager creates an index manager for a file with the given columns
func NewIndexManager(columns codec.Columns) *IndexManager {
	return &IndexManager{
		columns: columns,
		indexes: make(map[string]*SecondaryIndex),
		stale:   true,
	}
}

// GetOrCreateIndex gets an existing index or creates an empty one for a column
func (im *IndexManager) GetOrCreateIndex(column string) (*SecondaryIndex, error) {
	im.mutex.Lock()
	defer im.mutex.Unlock()
	return im.getOrCreate(column)
}

func (im *IndexManager) getOrCreate(column string) (*SecondaryIndex, error) {
	if idx, exists := im.indexes[column]; exists {
		return idx, nil
	}
	if im.columns.Index(column) < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}

	idx := NewSecondaryIndex(column)
	im.indexes[column] = idx
	im.stale = true
	return idx, nil
}

// Invalidate marks every index out of date
func (im *IndexManager) Invalidate() {
	im.mutex.Lock()
	defer im.mutex.Unlock()
	im.stale = true
}

// Stale reports whether the indexes need a rebuild
func (im *IndexManager) Stale() bool {
	im.mutex.RLock()
	defer im.mutex.RUnlock()
	return im.stale
}

// Rebuild refills every index from rows, where rows[i] is record i
func (im *IndexManager) Rebuild(rows []codec.Row) {
	im.mutex.Lock()
	defer im.mutex.Unlock()

	for column, idx := range im.indexes {
		col := im.columns.Index(column)

		idx.mutex.Lock()
		idx.clear()
		for i, row := range rows {
			if col < len(row) {
				idx.tree.ReplaceOrInsert(entry{value: row[col], record: int64(i)})
			}
		}
		idx.mutex.Unlock()
	}
	im.stale = false
}

// Lookup returns the index for column, rebuilding all indexes with load if
// they are stale
func (im *IndexManager) Lookup(column string, load func() ([]codec.Row, error)) (*SecondaryIndex, error) {
	idx, err := im.GetOrCreateIndex(column)
	if err != nil {
		return nil, err
	}

	if im.Stale() {
		rows, err := load()
		if err != nil {
			return nil, fmt.Errorf("failed to load records for index %q: %w", column, err)
		}
		im.Rebuild(rows)
	}
	return idx, nil
}

// Build creates a standalone index for column over rows
func Build(columns codec.Columns, column string, rows []codec.Row) (*SecondaryIndex, error) {
	im := NewIndexManager(columns)
	idx, err := im.GetOrCreateIndex(column)
	if err != nil {
		return nil, err
	}
	im.Rebuild(rows)
	return idx, nil
}
