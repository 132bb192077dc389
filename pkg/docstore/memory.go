package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// MemoryStore is an in-memory Store implementation for tests and local
// development. Documents are normalized through BSON so struct tags behave
// exactly as they do against MongoDB, and registered unique indexes are
// enforced so the duplicate-key paths are reachable in tests.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]map[string]bson.M
	indexes     map[string][]uniqueIndex
}

type uniqueIndex struct {
	fields  []string
	partial map[string]any
}

// NewMemoryStore returns an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]bson.M)}
}

// EnsureUniqueIndex registers a unique index over the given fields,
// optionally restricted by a partial filter, mirroring the MongoDB
// implementation. Set enforces registered indexes; partial updates that
// move a document out of the indexed subset never create a conflict and
// are not re-checked.
func (s *MemoryStore) EnsureUniqueIndex(ctx context.Context, collection string, fields []string, partial map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexes == nil {
		s.indexes = make(map[string][]uniqueIndex)
	}
	s.indexes[collection] = append(s.indexes[collection], uniqueIndex{fields: fields, partial: partial})
	return nil
}

// checkUnique reports ErrDuplicateKey when inserting doc under id would
// violate the index. Caller holds s.mu.
func (s *MemoryStore) checkUnique(collection, id string, doc bson.M, idx uniqueIndex) error {
	if !matchesPartial(doc, idx.partial) {
		return nil
	}
	for otherID, other := range s.collections[collection] {
		if otherID == id || !matchesPartial(other, idx.partial) {
			continue
		}
		conflict := true
		for _, f := range idx.fields {
			cmp, ok := compareValues(lookupField(other, f), lookupField(doc, f))
			if !ok || cmp != 0 {
				conflict = false
				break
			}
		}
		if conflict {
			return ErrDuplicateKey
		}
	}
	return nil
}

func matchesPartial(doc bson.M, partial map[string]any) bool {
	for field, want := range partial {
		cmp, ok := compareValues(lookupField(doc, field), normalizeValue(want))
		if !ok || cmp != 0 {
			return false
		}
	}
	return true
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string, out any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	return decodeDoc(doc, out)
}

func (s *MemoryStore) Query(ctx context.Context, collection string, filters []Filter, out any, opts ...QueryOption) error {
	var qo queryOptions
	for _, opt := range opts {
		opt(&qo)
	}

	s.mu.Lock()
	var matched []bson.M
	for _, doc := range s.collections[collection] {
		ok, err := matchesFilters(doc, filters)
		if err != nil {
			s.mu.Unlock()
			return err
		}
		if ok {
			matched = append(matched, doc)
		}
	}
	s.mu.Unlock()

	if qo.sortField != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			cmp, ok := compareValues(lookupField(matched[i], qo.sortField), lookupField(matched[j], qo.sortField))
			if !ok {
				return false
			}
			if qo.sortDesc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if qo.limit > 0 && int64(len(matched)) > qo.limit {
		matched = matched[:qo.limit]
	}

	return decodeDocs(matched, out)
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, doc any) error {
	m, err := encodeDoc(doc)
	if err != nil {
		return err
	}
	m["_id"] = id

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, idx := range s.indexes[collection] {
		if err := s.checkUnique(collection, id, m, idx); err != nil {
			return err
		}
	}
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]bson.M)
	}
	s.collections[collection][id] = m
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return ErrNotFound
	}
	for field, value := range patch {
		setField(doc, field, normalizeValue(value))
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections[collection], id)
	return nil
}

func (s *MemoryStore) Increment(ctx context.Context, collection, id string, fields map[string]int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]bson.M)
	}
	doc, ok := s.collections[collection][id]
	if !ok {
		doc = bson.M{"_id": id}
		s.collections[collection][id] = doc
	}

	for field, amount := range fields {
		current, _ := toInt64(lookupField(doc, field))
		setField(doc, field, current+amount)
	}
	return nil
}

func (s *MemoryStore) Batch(ctx context.Context, ops []BatchOp) error {
	for _, op := range ops {
		var err error
		switch op.kind {
		case batchSet:
			err = s.Set(ctx, op.Collection, op.ID, op.Doc)
		case batchUpdate:
			err = s.Update(ctx, op.Collection, op.ID, op.Patch)
		case batchDelete:
			err = s.Delete(ctx, op.Collection, op.ID)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func encodeDoc(doc any) (bson.M, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode document: %w", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("docstore: normalize document: %w", err)
	}
	return m, nil
}

func decodeDoc(m bson.M, out any) error {
	raw, err := bson.Marshal(m)
	if err != nil {
		return fmt.Errorf("docstore: encode document: %w", err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("docstore: decode document: %w", err)
	}
	return nil
}

func decodeDocs(docs []bson.M, out any) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("docstore: query output must be a pointer to a slice, got %T", out)
	}
	slice := rv.Elem()
	slice.Set(reflect.MakeSlice(slice.Type(), 0, len(docs)))

	elemType := slice.Type().Elem()
	for _, doc := range docs {
		elem := reflect.New(elemType)
		if err := decodeDoc(doc, elem.Interface()); err != nil {
			return err
		}
		slice.Set(reflect.Append(slice, elem.Elem()))
	}
	return nil
}

func matchesFilters(doc bson.M, filters []Filter) (bool, error) {
	for _, f := range filters {
		value := lookupField(doc, f.Field)

		switch f.Op {
		case OpEqual, OpNotEqual, OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual:
		default:
			return false, fmt.Errorf("%w: unknown operator %q", ErrInvalidFilter, f.Op)
		}

		cmp, comparable := compareValues(value, f.Value)
		if !comparable {
			// Mismatched or missing fields never match, same as MongoDB.
			if f.Op == OpNotEqual {
				continue
			}
			return false, nil
		}

		var ok bool
		switch f.Op {
		case OpEqual:
			ok = cmp == 0
		case OpNotEqual:
			ok = cmp != 0
		case OpLess:
			ok = cmp < 0
		case OpLessOrEqual:
			ok = cmp <= 0
		case OpGreater:
			ok = cmp > 0
		case OpGreaterOrEqual:
			ok = cmp >= 0
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// lookupField resolves a possibly dotted field path within a document.
func lookupField(doc bson.M, path string) any {
	parts := strings.Split(path, ".")
	var current any = doc
	for _, part := range parts {
		m, ok := current.(bson.M)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

// setField writes a value at a possibly dotted field path, creating
// intermediate maps as needed.
func setField(doc bson.M, path string, value any) {
	parts := strings.Split(path, ".")
	current := doc
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(bson.M)
		if !ok {
			next = bson.M{}
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}

func normalizeValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return bson.NewDateTimeFromTime(t.UTC())
	}
	return v
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// compareValues compares two scalar values of compatible types.
// Returns -1/0/1 and whether the values were comparable at all.
func compareValues(a, b any) (int, bool) {
	if t, ok := a.(bson.DateTime); ok {
		a = t.Time()
	}
	if t, ok := b.(bson.DateTime); ok {
		b = t.Time()
	}

	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		if !bok {
			return 0, false
		}
		return at.Compare(bt), true
	}

	if as, aok := a.(string); aok {
		bs, bok := b.(string)
		if !bok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}

	if ab, aok := a.(bool); aok {
		bb, bok := b.(bool)
		if !bok {
			return 0, false
		}
		switch {
		case ab == bb:
			return 0, true
		case ab:
			return 1, true
		default:
			return -1, true
		}
	}

	ai, aok := toInt64(a)
	bi, bok := toInt64(b)
	if aok && bok {
		switch {
		case ai < bi:
			return -1, true
		case ai > bi:
			return 1, true
		default:
			return 0, true
		}
	}

	return 0, false
}
