package ips

// Table holds the unique options of a rule set. Options are addressed by
// index; lookups bucket by (kind, hash) and fall back to Equal so that
// hash collisions never merge unequal options.
type Table struct {
	options []Option
	buckets map[bucketKey][]int
	merged  int
}

type bucketKey struct {
	kind KindID
	hash uint32
}

func NewTable() *Table {
	return &Table{buckets: make(map[bucketKey][]int)}
}

// Add stores opt unless an equal option is present. It returns the index of
// the stored option and whether opt was merged into an existing one.
func (t *Table) Add(opt Option) (int, bool) {
	key := bucketKey{kind: opt.Kind(), hash: opt.Hash()}
	for _, idx := range t.buckets[key] {
		if t.options[idx].Equal(opt) {
			t.merged++
			return idx, true
		}
	}
	idx := len(t.options)
	t.options = append(t.options, opt)
	t.buckets[key] = append(t.buckets[key], idx)
	return idx, false
}

func (t *Table) Get(idx int) Option { return t.options[idx] }
func (t *Table) Len() int           { return len(t.options) }

// Merged counts Add calls that found an existing equal option.
func (t *Table) Merged() int { return t.merged }

// Each visits every unique option in insertion order.
func (t *Table) Each(fn func(idx int, opt Option)) {
	for i, o := range t.options {
		fn(i, o)
	}
}
