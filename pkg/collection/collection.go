package collection

import (
	"container/list"
	"fmt"
	"math/rand/v2"
	"reflect"
	"sync"
)

// Entry is one key/value pair in insertion order.
type Entry[K comparable, V any] struct {
	Key   K
	Value V
}

type options struct {
	maxSize int
}

// Option mutates collection construction settings.
type Option func(*options)

// WithMaxSize bounds the collection. Zero or negative means unlimited.
func WithMaxSize(size int) Option {
	return func(opts *options) {
		if size > 0 {
			opts.maxSize = size
		} else {
			opts.maxSize = 0
		}
	}
}

// Collection is a concurrency-safe, insertion-ordered key/value cache with
// optional FIFO eviction.
type Collection[K comparable, V any] struct {
	mu      sync.RWMutex
	maxSize int
	order   *list.List
	index   map[K]*list.Element
}

// New creates an empty collection.
func New[K comparable, V any](opts ...Option) *Collection[K, V] {
	resolved := options{}
	for _, opt := range opts {
		opt(&resolved)
	}

	return newWithMax[K, V](resolved.maxSize)
}

func newWithMax[K comparable, V any](maxSize int) *Collection[K, V] {
	if maxSize < 0 {
		maxSize = 0
	}

	return &Collection[K, V]{
		maxSize: maxSize,
		order:   list.New(),
		index:   make(map[K]*list.Element),
	}
}

// MaxSize returns the configured capacity, zero when unlimited.
func (c *Collection[K, V]) MaxSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.maxSize
}

// Len returns the number of entries.
func (c *Collection[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.order.Len()
}

// Add inserts value under key.
//
// When key exists and replace is false the collection is left untouched and
// Add reports false. When the collection is full the oldest entry is evicted
// before the new entry is admitted.
func (c *Collection[K, V]) Add(key K, value V, replace bool) (bool, error) {
	if isZero(key) {
		return false, fmt.Errorf("add: %w", ErrInvalidKey)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.addLocked(key, value, replace), nil
}

// Set inserts or replaces value under key.
func (c *Collection[K, V]) Set(key K, value V) error {
	if _, err := c.Add(key, value, true); err != nil {
		return fmt.Errorf("set: %w", err)
	}

	return nil
}

func (c *Collection[K, V]) addLocked(key K, value V, replace bool) bool {
	if element, exists := c.index[key]; exists {
		if !replace {
			return false
		}
		element.Value.(*Entry[K, V]).Value = value
		c.order.MoveToBack(element)
		return true
	}

	if c.maxSize > 0 {
		for c.order.Len() >= c.maxSize {
			c.evictOldestLocked()
		}
	}
	c.index[key] = c.order.PushBack(&Entry[K, V]{Key: key, Value: value})

	return true
}

func (c *Collection[K, V]) evictOldestLocked() {
	oldest := c.order.Front()
	if oldest == nil {
		return
	}
	c.order.Remove(oldest)
	delete(c.index, oldest.Value.(*Entry[K, V]).Key)
}

// Get returns the value stored under key.
func (c *Collection[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	element, exists := c.index[key]
	if !exists {
		var zero V
		return zero, false
	}

	return element.Value.(*Entry[K, V]).Value, true
}

// Has reports whether key is present.
func (c *Collection[K, V]) Has(key K) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, exists := c.index[key]
	return exists
}

// Delete removes key and reports whether it was present.
func (c *Collection[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.deleteLocked(key)
}

func (c *Collection[K, V]) deleteLocked(key K) bool {
	element, exists := c.index[key]
	if !exists {
		return false
	}
	c.order.Remove(element)
	delete(c.index, key)

	return true
}

// Clear removes every entry.
func (c *Collection[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.index = make(map[K]*list.Element)
}

// Keys returns keys in insertion order.
func (c *Collection[K, V]) Keys() []K {
	entries := c.Entries()
	keys := make([]K, 0, len(entries))
	for _, entry := range entries {
		keys = append(keys, entry.Key)
	}

	return keys
}

// Values returns values in insertion order.
func (c *Collection[K, V]) Values() []V {
	entries := c.Entries()
	values := make([]V, 0, len(entries))
	for _, entry := range entries {
		values = append(values, entry.Value)
	}

	return values
}

// Entries returns a snapshot of all entries in insertion order.
func (c *Collection[K, V]) Entries() []Entry[K, V] {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry[K, V], 0, c.order.Len())
	for element := c.order.Front(); element != nil; element = element.Next() {
		entries = append(entries, *element.Value.(*Entry[K, V]))
	}

	return entries
}

// First returns the oldest entry value.
func (c *Collection[K, V]) First() (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if front := c.order.Front(); front != nil {
		return front.Value.(*Entry[K, V]).Value, true
	}
	var zero V
	return zero, false
}

// Last returns the newest entry value.
func (c *Collection[K, V]) Last() (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if back := c.order.Back(); back != nil {
		return back.Value.(*Entry[K, V]).Value, true
	}
	var zero V
	return zero, false
}

// Merge absorbs every entry of source.
//
// source may be a *Collection[K, V], a map[K]V, or a []Entry[K, V]. When source
// is a collection its capacity is added to the receiver's; an unlimited side
// makes the result unlimited.
func (c *Collection[K, V]) Merge(source any) error {
	var (
		entries      []Entry[K, V]
		sourceMax    int
		combinesSize bool
	)

	switch typed := source.(type) {
	case *Collection[K, V]:
		if typed == nil {
			return fmt.Errorf("merge: %w", ErrEmptySource)
		}
		entries = typed.Entries()
		sourceMax = typed.MaxSize()
		combinesSize = true
	case map[K]V:
		entries = make([]Entry[K, V], 0, len(typed))
		for key, value := range typed {
			entries = append(entries, Entry[K, V]{Key: key, Value: value})
		}
	case []Entry[K, V]:
		entries = append([]Entry[K, V](nil), typed...)
	case nil:
		return fmt.Errorf("merge: %w", ErrEmptySource)
	default:
		return fmt.Errorf("merge %T: %w", source, ErrUnsupportedSource)
	}

	if len(entries) == 0 {
		return fmt.Errorf("merge: %w", ErrEmptySource)
	}
	for _, entry := range entries {
		if isZero(entry.Key) {
			return fmt.Errorf("merge: %w", ErrInvalidKey)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if combinesSize {
		c.maxSize = combineCapacity(c.maxSize, sourceMax)
	}
	for _, entry := range entries {
		c.addLocked(entry.Key, entry.Value, true)
	}

	return nil
}

// Predicate is evaluated once per entry by traversal helpers.
type Predicate[K comparable, V any] func(value V, key K, c *Collection[K, V]) bool

// Each calls fn for every entry in insertion order.
func (c *Collection[K, V]) Each(fn func(value V, key K, c *Collection[K, V])) error {
	if fn == nil {
		return fmt.Errorf("each: %w", ErrNotCallable)
	}
	for _, entry := range c.Entries() {
		fn(entry.Value, entry.Key, c)
	}

	return nil
}

// Filter returns a new collection holding the entries matching fn.
func (c *Collection[K, V]) Filter(fn Predicate[K, V]) (*Collection[K, V], error) {
	if fn == nil {
		return nil, fmt.Errorf("filter: %w", ErrNotCallable)
	}

	result := newWithMax[K, V](c.MaxSize())
	for _, entry := range c.Entries() {
		if fn(entry.Value, entry.Key, c) {
			result.addLocked(entry.Key, entry.Value, true)
		}
	}

	return result, nil
}

// Find returns the first value matching fn.
func (c *Collection[K, V]) Find(fn Predicate[K, V]) (V, bool, error) {
	var zero V
	if fn == nil {
		return zero, false, fmt.Errorf("find: %w", ErrNotCallable)
	}
	for _, entry := range c.Entries() {
		if fn(entry.Value, entry.Key, c) {
			return entry.Value, true, nil
		}
	}

	return zero, false, nil
}

// FindKey returns the first key whose entry matches fn.
func (c *Collection[K, V]) FindKey(fn Predicate[K, V]) (K, bool, error) {
	var zero K
	if fn == nil {
		return zero, false, fmt.Errorf("find key: %w", ErrNotCallable)
	}
	for _, entry := range c.Entries() {
		if fn(entry.Value, entry.Key, c) {
			return entry.Key, true, nil
		}
	}

	return zero, false, nil
}

// Every reports whether all entries match fn. An empty collection matches.
func (c *Collection[K, V]) Every(fn Predicate[K, V]) (bool, error) {
	if fn == nil {
		return false, fmt.Errorf("every: %w", ErrNotCallable)
	}
	for _, entry := range c.Entries() {
		if !fn(entry.Value, entry.Key, c) {
			return false, nil
		}
	}

	return true, nil
}

// Some reports whether any entry matches fn.
func (c *Collection[K, V]) Some(fn Predicate[K, V]) (bool, error) {
	if fn == nil {
		return false, fmt.Errorf("some: %w", ErrNotCallable)
	}
	for _, entry := range c.Entries() {
		if fn(entry.Value, entry.Key, c) {
			return true, nil
		}
	}

	return false, nil
}

// Reduce folds values left to right using the first value as the seed.
func (c *Collection[K, V]) Reduce(fn func(accumulator V, value V, key K, c *Collection[K, V]) V) (V, error) {
	var zero V
	if fn == nil {
		return zero, fmt.Errorf("reduce: %w", ErrNotCallable)
	}

	entries := c.Entries()
	if len(entries) == 0 {
		return zero, fmt.Errorf("reduce: %w", ErrEmptyCollection)
	}

	accumulator := entries[0].Value
	for _, entry := range entries[1:] {
		accumulator = fn(accumulator, entry.Value, entry.Key, c)
	}

	return accumulator, nil
}

// Sweep removes every entry matching fn and returns how many were removed.
func (c *Collection[K, V]) Sweep(fn Predicate[K, V]) (int, error) {
	if fn == nil {
		return 0, fmt.Errorf("sweep: %w", ErrNotCallable)
	}

	matched := make([]K, 0)
	for _, entry := range c.Entries() {
		if fn(entry.Value, entry.Key, c) {
			matched = append(matched, entry.Key)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range matched {
		if c.deleteLocked(key) {
			removed++
		}
	}

	return removed, nil
}

// Partition splits entries into matches and non-matches.
func (c *Collection[K, V]) Partition(fn Predicate[K, V]) (*Collection[K, V], *Collection[K, V], error) {
	if fn == nil {
		return nil, nil, fmt.Errorf("partition: %w", ErrNotCallable)
	}

	maxSize := c.MaxSize()
	pass := newWithMax[K, V](maxSize)
	fail := newWithMax[K, V](maxSize)
	for _, entry := range c.Entries() {
		if fn(entry.Value, entry.Key, c) {
			pass.addLocked(entry.Key, entry.Value, true)
		} else {
			fail.addLocked(entry.Key, entry.Value, true)
		}
	}

	return pass, fail, nil
}

// Random returns a new collection of up to amount entries.
//
// With unique set, entries are drawn without replacement, so the result holds
// min(amount, Len()) entries. Otherwise draws may repeat and collapse.
func (c *Collection[K, V]) Random(amount int, unique bool) *Collection[K, V] {
	result := newWithMax[K, V](0)
	entries := c.Entries()
	if amount <= 0 || len(entries) == 0 {
		return result
	}

	if unique {
		if amount > len(entries) {
			amount = len(entries)
		}
		for _, index := range rand.Perm(len(entries))[:amount] {
			entry := entries[index]
			result.addLocked(entry.Key, entry.Value, true)
		}
		return result
	}

	for draw := 0; draw < amount; draw++ {
		entry := entries[rand.IntN(len(entries))]
		result.addLocked(entry.Key, entry.Value, true)
	}

	return result
}

// Clone returns a shallow copy with the same capacity.
func (c *Collection[K, V]) Clone() *Collection[K, V] {
	clone := newWithMax[K, V](c.MaxSize())
	for _, entry := range c.Entries() {
		clone.addLocked(entry.Key, entry.Value, true)
	}

	return clone
}

// Concat returns a new collection holding the receiver's entries followed by
// each of others. The receiver is not modified.
func (c *Collection[K, V]) Concat(others ...*Collection[K, V]) *Collection[K, V] {
	maxSize := c.MaxSize()
	for _, other := range others {
		if other != nil {
			maxSize = combineCapacity(maxSize, other.MaxSize())
		}
	}

	result := newWithMax[K, V](maxSize)
	for _, entry := range c.Entries() {
		result.addLocked(entry.Key, entry.Value, true)
	}
	for _, other := range others {
		if other == nil {
			continue
		}
		for _, entry := range other.Entries() {
			result.addLocked(entry.Key, entry.Value, true)
		}
	}

	return result
}

// Equals reports whether other holds the same keys mapped to identical values.
// Values are compared by identity, not deep equality.
func (c *Collection[K, V]) Equals(other *Collection[K, V]) bool {
	if other == nil {
		return false
	}
	if c == other {
		return true
	}

	entries := c.Entries()
	if len(entries) != other.Len() {
		return false
	}
	for _, entry := range entries {
		value, exists := other.Get(entry.Key)
		if !exists || !identical(entry.Value, value) {
			return false
		}
	}

	return true
}

// Fold reduces values left to right starting from seed.
func Fold[K comparable, V any, A any](
	c *Collection[K, V],
	fn func(accumulator A, value V, key K, c *Collection[K, V]) A,
	seed A,
) (A, error) {
	if fn == nil {
		return seed, fmt.Errorf("fold: %w", ErrNotCallable)
	}

	accumulator := seed
	for _, entry := range c.Entries() {
		accumulator = fn(accumulator, entry.Value, entry.Key, c)
	}

	return accumulator, nil
}

// Map transforms every entry into a slice element, in insertion order.
func Map[K comparable, V any, T any](c *Collection[K, V], fn func(value V, key K, c *Collection[K, V]) T) ([]T, error) {
	if fn == nil {
		return nil, fmt.Errorf("map: %w", ErrNotCallable)
	}

	entries := c.Entries()
	mapped := make([]T, 0, len(entries))
	for _, entry := range entries {
		mapped = append(mapped, fn(entry.Value, entry.Key, c))
	}

	return mapped, nil
}

// MapValues transforms every value while keeping keys and order.
func MapValues[K comparable, V any, T any](
	c *Collection[K, V],
	fn func(value V, key K, c *Collection[K, V]) T,
) (*Collection[K, T], error) {
	if fn == nil {
		return nil, fmt.Errorf("map values: %w", ErrNotCallable)
	}

	result := newWithMax[K, T](c.MaxSize())
	for _, entry := range c.Entries() {
		result.addLocked(entry.Key, fn(entry.Value, entry.Key, c), true)
	}

	return result, nil
}

func combineCapacity(left, right int) int {
	if left <= 0 || right <= 0 {
		return 0
	}

	return left + right
}

func isZero[K comparable](key K) bool {
	var zero K
	return key == zero
}

// identical compares values the way a reference-equality check would.
// Slices, maps and funcs match by identity, also when nested in structs,
// arrays or interfaces, so it never panics on uncomparable dynamic values.
func identical[V any](left, right V) bool {
	return sameValue(reflect.ValueOf(any(left)), reflect.ValueOf(any(right)))
}

func sameValue(left, right reflect.Value) bool {
	if !left.IsValid() || !right.IsValid() {
		return left.IsValid() == right.IsValid()
	}
	if left.Type() != right.Type() {
		return false
	}

	switch left.Kind() {
	case reflect.Interface:
		if left.IsNil() || right.IsNil() {
			return left.IsNil() && right.IsNil()
		}
		return sameValue(left.Elem(), right.Elem())
	case reflect.Struct:
		for index := range left.NumField() {
			if !sameValue(left.Field(index), right.Field(index)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for index := range left.Len() {
			if !sameValue(left.Index(index), right.Index(index)) {
				return false
			}
		}
		return true
	case reflect.Slice:
		return left.Pointer() == right.Pointer() && left.Len() == right.Len()
	case reflect.Map, reflect.Func, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return left.Pointer() == right.Pointer()
	case reflect.Bool:
		return left.Bool() == right.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return left.Int() == right.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return left.Uint() == right.Uint()
	case reflect.Float32, reflect.Float64:
		return left.Float() == right.Float()
	case reflect.Complex64, reflect.Complex128:
		return left.Complex() == right.Complex()
	case reflect.String:
		return left.String() == right.String()
	default:
		return false
	}
}
