package languages

import "sort"

// LineSet 是 1-based 行号集合，只关心成员关系，不关心顺序。
type LineSet map[int]struct{}

// NewLineSet 用给定行号创建集合。
func NewLineSet(lines ...int) LineSet {
	set := make(LineSet, len(lines))
	for _, line := range lines {
		set.Add(line)
	}
	return set
}

// Add 加入一个行号。
func (s LineSet) Add(line int) {
	s[line] = struct{}{}
}

// AddSpan 加入 [start, start+count-1] 区间内的全部行号。
func (s LineSet) AddSpan(start int, count int) {
	for line := start; line < start+count; line++ {
		s.Add(line)
	}
}

// Has 判断行号是否在集合中，nil 集合视为空集。
func (s LineSet) Has(line int) bool {
	_, ok := s[line]
	return ok
}

// Len 返回集合大小。
func (s LineSet) Len() int {
	return len(s)
}

// Sorted 返回升序行号列表，便于测试与调试输出。
func (s LineSet) Sorted() []int {
	lines := make([]int, 0, len(s))
	for line := range s {
		lines = append(lines, line)
	}
	sort.Ints(lines)
	return lines
}
