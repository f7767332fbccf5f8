package query

import (
	"bytes"
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/xerrors"

	"github.com/x-xyz/cloutledger/base/ctx"
	"github.com/x-xyz/cloutledger/domain"
)

type memTxKey struct{}

type memTable struct {
	order []string
	docs  map[string]bson.Raw
}

func (t *memTable) clone() *memTable {
	docs := make(map[string]bson.Raw, len(t.docs))
	for k, v := range t.docs {
		docs[k] = v
	}
	return &memTable{order: append([]string{}, t.order...), docs: docs}
}

type memory struct {
	mu     sync.RWMutex
	tables map[domain.Table]*memTable
}

// NewMemory returns an in-process store with the same semantics as New.
// Selectors are matched by equality on (dotted) field names. Transactions
// are serialized and roll back every table they touched on error.
func NewMemory() Mongo {
	return &memory{tables: map[domain.Table]*memTable{}}
}

func inMemTx(c ctx.Ctx) bool {
	v, _ := c.Value(memTxKey{}).(bool)
	return v
}

func (m *memory) lock(c ctx.Ctx) func() {
	if inMemTx(c) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *memory) rlock(c ctx.Ctx) func() {
	if inMemTx(c) {
		return func() {}
	}
	m.mu.RLock()
	return m.mu.RUnlock
}

func (m *memory) table(name domain.Table) *memTable {
	t, ok := m.tables[name]
	if !ok {
		t = &memTable{docs: map[string]bson.Raw{}}
		m.tables[name] = t
	}
	return t
}

func rawKey(v bson.RawValue) string {
	return string([]byte{byte(v.Type)}) + string(v.Value)
}

// marshalDoc encodes doc and makes sure it carries an _id, falling back to
// fallback and then to a fresh ObjectID.
func marshalDoc(doc interface{}, fallback *bson.RawValue) (bson.Raw, bson.RawValue, error) {
	raw, err := bson.Marshal(doc)
	if err != nil {
		return nil, bson.RawValue{}, err
	}
	if id, err := bson.Raw(raw).LookupErr("_id"); err == nil {
		return raw, id, nil
	}

	var d bson.D
	if err := bson.Unmarshal(raw, &d); err != nil {
		return nil, bson.RawValue{}, err
	}
	var id interface{} = primitive.NewObjectID()
	if fallback != nil {
		id = *fallback
	}
	raw, err = bson.Marshal(append(bson.D{{Key: "_id", Value: id}}, d...))
	if err != nil {
		return nil, bson.RawValue{}, err
	}
	return raw, bson.Raw(raw).Lookup("_id"), nil
}

type matcher []struct {
	path []string
	val  bson.RawValue
}

func newMatcher(selector interface{}) (matcher, error) {
	if selector == nil {
		return nil, nil
	}
	raw, err := bson.Marshal(selector)
	if err != nil {
		return nil, xerrors.Errorf("selector: %w", err)
	}
	elems, err := bson.Raw(raw).Elements()
	if err != nil {
		return nil, err
	}
	m := make(matcher, 0, len(elems))
	for _, e := range elems {
		if strings.HasPrefix(e.Key(), "$") {
			return nil, xerrors.Errorf("selector operator %s is not supported", e.Key())
		}
		m = append(m, struct {
			path []string
			val  bson.RawValue
		}{strings.Split(e.Key(), "."), e.Value()})
	}
	return m, nil
}

func (m matcher) match(doc bson.Raw) bool {
	for _, cond := range m {
		v, err := doc.LookupErr(cond.path...)
		if err != nil {
			if cond.val.Type == bsontype.Null {
				continue
			}
			return false
		}
		if v.Type != cond.val.Type || !bytes.Equal(v.Value, cond.val.Value) {
			return false
		}
	}
	return true
}

func (m matcher) id() *bson.RawValue {
	for _, cond := range m {
		if len(cond.path) == 1 && cond.path[0] == "_id" {
			v := cond.val
			return &v
		}
	}
	return nil
}

func (m *memory) find(t *memTable, sel matcher) []bson.Raw {
	res := []bson.Raw{}
	for _, k := range t.order {
		if doc := t.docs[k]; sel.match(doc) {
			res = append(res, doc)
		}
	}
	return res
}

func (m *memory) Insert(c ctx.Ctx, table domain.Table, insert interface{}) error {
	defer m.lock(c)()
	raw, id, err := marshalDoc(insert, nil)
	if err != nil {
		return err
	}
	t := m.table(table)
	k := rawKey(id)
	if _, ok := t.docs[k]; ok {
		return ErrDuplicateKey
	}
	t.docs[k] = raw
	t.order = append(t.order, k)
	return nil
}

func (m *memory) FindOne(c ctx.Ctx, table domain.Table, query, result interface{}) error {
	defer m.rlock(c)()
	sel, err := newMatcher(query)
	if err != nil {
		return err
	}
	t, ok := m.tables[table]
	if !ok {
		return ErrNotFound
	}
	docs := m.find(t, sel)
	if len(docs) == 0 {
		return ErrNotFound
	}
	return bson.Unmarshal(docs[0], result)
}

func (m *memory) Count(c ctx.Ctx, table domain.Table, selector interface{}) (int, error) {
	defer m.rlock(c)()
	sel, err := newMatcher(selector)
	if err != nil {
		return 0, err
	}
	t, ok := m.tables[table]
	if !ok {
		return 0, nil
	}
	return len(m.find(t, sel)), nil
}

func (m *memory) Upsert(c ctx.Ctx, table domain.Table, selector, update interface{}) error {
	defer m.lock(c)()
	sel, err := newMatcher(selector)
	if err != nil {
		return err
	}
	t := m.table(table)
	var existing *bson.RawValue
	if docs := m.find(t, sel); len(docs) > 0 {
		id := docs[0].Lookup("_id")
		existing = &id
	}

	fallback := existing
	if fallback == nil {
		fallback = sel.id()
	}
	raw, id, err := marshalDoc(update, fallback)
	if err != nil {
		return err
	}
	k := rawKey(id)
	if existing != nil {
		if rawKey(*existing) != k {
			return xerrors.Errorf("upsert would change _id: %w", ErrDuplicateKey)
		}
		t.docs[k] = raw
		return nil
	}
	if _, ok := t.docs[k]; ok {
		return ErrDuplicateKey
	}
	t.docs[k] = raw
	t.order = append(t.order, k)
	return nil
}

func compareRaw(a, b bson.RawValue) int {
	if af, ok := numeric(a); ok {
		if bf, ok := numeric(b); ok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			}
			return 0
		}
	}
	if as, ok := a.StringValueOK(); ok {
		if bs, ok := b.StringValueOK(); ok {
			return strings.Compare(as, bs)
		}
	}
	return bytes.Compare(a.Value, b.Value)
}

func numeric(v bson.RawValue) (float64, bool) {
	switch v.Type {
	case bsontype.Int32:
		return float64(v.Int32()), true
	case bsontype.Int64:
		return float64(v.Int64()), true
	case bsontype.Double:
		return v.Double(), true
	case bsontype.DateTime:
		return float64(v.DateTime()), true
	}
	return 0, false
}

func (m *memory) Search(c ctx.Ctx, table domain.Table, offset, limit int, sortField string, query, results interface{}) error {
	defer m.rlock(c)()
	sel, err := newMatcher(query)
	if err != nil {
		return err
	}

	rv := reflect.ValueOf(results)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return xerrors.Errorf("results must be a pointer to a slice, got %T", results)
	}
	slice := reflect.MakeSlice(rv.Elem().Type(), 0, 0)

	var docs []bson.Raw
	if t, ok := m.tables[table]; ok {
		docs = m.find(t, sel)
	}
	if sortField != "" {
		desc := strings.HasPrefix(sortField, "-")
		path := strings.Split(strings.TrimPrefix(sortField, "-"), ".")
		sort.SliceStable(docs, func(i, j int) bool {
			cmp := compareRaw(docs[i].Lookup(path...), docs[j].Lookup(path...))
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}

	if offset > len(docs) {
		offset = len(docs)
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}

	elemType := rv.Elem().Type().Elem()
	for _, doc := range docs {
		elem := reflect.New(elemType)
		if err := bson.Unmarshal(doc, elem.Interface()); err != nil {
			return err
		}
		slice = reflect.Append(slice, elem.Elem())
	}
	rv.Elem().Set(slice)
	return nil
}

func (m *memory) EnsureIndex(c ctx.Ctx, table domain.Table, keys ...string) error {
	return nil
}

func (m *memory) RunWithTransaction(c ctx.Ctx, run func(ctx.Ctx) error) error {
	if inMemTx(c) {
		return run(c)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[domain.Table]*memTable, len(m.tables))
	for name, t := range m.tables {
		snapshot[name] = t.clone()
	}

	committed := false
	defer func() {
		if !committed {
			m.tables = snapshot
		}
	}()

	if err := run(ctx.Wrap(c, context.WithValue(c.Context, memTxKey{}, true))); err != nil {
		return err
	}
	committed = true
	return nil
}
