package store

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
)

type memTable struct {
	rows  map[string][]byte
	order []string
}

func (t *memTable) clone() *memTable {
	c := &memTable{rows: make(map[string][]byte, len(t.rows)), order: make([]string, len(t.order))}
	for id, row := range t.rows {
		c.rows[id] = row
	}
	copy(c.order, t.order)
	return c
}

// MemoryPort is a thread-safe in-memory Port. Rows are stored as JSON so callers
// never share memory with the store. Update replaces the whole row.
type MemoryPort struct {
	mu     sync.Mutex
	txMu   sync.Mutex
	tables map[string]*memTable
	inTx   bool

	// FailOn, when set, is consulted before every write; a non-nil result fails the write.
	FailOn func(op, table string) error
}

// NewMemoryPort creates an empty in-memory store
func NewMemoryPort() *MemoryPort {
	return &MemoryPort{tables: make(map[string]*memTable)}
}

func (p *MemoryPort) table(name string) *memTable {
	t, ok := p.tables[name]
	if !ok {
		t = &memTable{rows: make(map[string][]byte)}
		p.tables[name] = t
	}
	return t
}

func (p *MemoryPort) check(op string, e Entity) error {
	if p.FailOn == nil {
		return nil
	}
	if err := p.FailOn(op, e.TableName()); err != nil {
		return fmt.Errorf("%s %s %s: %w", op, e.TableName(), e.GetID(), err)
	}
	return nil
}

func (p *MemoryPort) Insert(ctx context.Context, e Entity) error {
	if err := p.check("insert", e); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.TableName(), err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.table(e.TableName())
	if _, exists := t.rows[e.GetID()]; exists {
		return fmt.Errorf("insert %s %s: duplicate id", e.TableName(), e.GetID())
	}
	t.rows[e.GetID()] = data
	t.order = append(t.order, e.GetID())
	return nil
}

func (p *MemoryPort) Update(ctx context.Context, e Entity, fields ...string) error {
	if err := p.check("update", e); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", e.TableName(), err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.table(e.TableName())
	if _, exists := t.rows[e.GetID()]; !exists {
		return fmt.Errorf("update %s %s: %w", e.TableName(), e.GetID(), ErrNotFound)
	}
	t.rows[e.GetID()] = data
	return nil
}

func (p *MemoryPort) Delete(ctx context.Context, e Entity) error {
	if err := p.check("delete", e); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.table(e.TableName())
	if _, exists := t.rows[e.GetID()]; !exists {
		return fmt.Errorf("delete %s %s: %w", e.TableName(), e.GetID(), ErrNotFound)
	}
	delete(t.rows, e.GetID())
	for i, id := range t.order {
		if id == e.GetID() {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// GetAll fills dest, a pointer to a slice of entities, in insertion order
func (p *MemoryPort) GetAll(ctx context.Context, dest any) error {
	sliceVal := reflect.ValueOf(dest)
	if sliceVal.Kind() != reflect.Pointer || sliceVal.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("get all: dest must be a pointer to a slice, got %T", dest)
	}
	elemType := sliceVal.Elem().Type().Elem()
	entity, ok := reflect.New(elemType).Interface().(Entity)
	if !ok {
		return fmt.Errorf("get all: %s is not an entity", elemType)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.table(entity.TableName())
	out := reflect.MakeSlice(sliceVal.Elem().Type(), 0, len(t.order))
	for _, id := range t.order {
		item := reflect.New(elemType)
		if err := json.Unmarshal(t.rows[id], item.Interface()); err != nil {
			return fmt.Errorf("unmarshal %s %s: %w", entity.TableName(), id, err)
		}
		out = reflect.Append(out, item.Elem())
	}
	sliceVal.Elem().Set(out)
	return nil
}

// RunAtomic runs work against a private copy and publishes it only if work succeeds
func (p *MemoryPort) RunAtomic(ctx context.Context, work func(tx Port) error) error {
	if p.inTx {
		return work(p)
	}

	p.txMu.Lock()
	defer p.txMu.Unlock()

	p.mu.Lock()
	tx := &MemoryPort{tables: make(map[string]*memTable, len(p.tables)), inTx: true, FailOn: p.FailOn}
	for name, t := range p.tables {
		tx.tables[name] = t.clone()
	}
	p.mu.Unlock()

	if err := work(tx); err != nil {
		return err
	}

	p.mu.Lock()
	p.tables = tx.tables
	p.mu.Unlock()
	return nil
}

// Count returns the number of rows stored for a table
func (p *MemoryPort) Count(table string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t, ok := p.tables[table]; ok {
		return len(t.rows)
	}
	return 0
}
