package eclmap

import "sort"

// Table is a bidirectional number <-> name mapping.
// A nil *Table is valid and empty.
type Table struct {
	byNum  map[int]string
	byName map[string]int
}

// NewTable creates an empty Table.
func NewTable() *Table {
	return &Table{
		byNum:  make(map[int]string),
		byName: make(map[string]int),
	}
}

// Set maps num to name, replacing any previous mapping of either side.
func (t *Table) Set(num int, name string) {
	if old, ok := t.byNum[num]; ok {
		delete(t.byName, old)
	}
	if oldNum, ok := t.byName[name]; ok {
		delete(t.byNum, oldNum)
	}
	t.byNum[num] = name
	t.byName[name] = num
}

// Name returns the display name for num.
func (t *Table) Name(num int) (string, bool) {
	if t == nil {
		return "", false
	}
	name, ok := t.byNum[num]
	return name, ok
}

// Number returns the number mapped to name.
func (t *Table) Number(name string) (int, bool) {
	if t == nil {
		return 0, false
	}
	num, ok := t.byName[name]
	return num, ok
}

// Len returns the number of entries.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.byNum)
}

// Numbers returns every mapped number in ascending order.
func (t *Table) Numbers() []int {
	if t == nil {
		return nil
	}
	nums := make([]int, 0, len(t.byNum))
	for n := range t.byNum {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}
