package manager

import (
	"fmt"

	"github.com/gekko3d/particlefx/rt/core"
	"github.com/gekko3d/particlefx/rt/particle"
)

const nilNode int32 = -1

// node is one budgeted particle in a per-priority FIFO. Nodes live in a
// free-list-recycled arena and link by index.
type node struct {
	sys   *particle.System
	slot  int
	prev  int32
	next  int32
	gen   uint32
	level core.Priority
	used  bool
}

type fifo struct {
	head int32
	tail int32
	n    int
}

// budget holds one oldest-first sequence per priority level plus the running
// total. sum(levels[i].n) == total at all times.
type budget struct {
	nodes    []node
	freeHead int32
	levels   [core.NumPriorities]fifo
	total    int
}

func newBudget() budget {
	b := budget{freeHead: nilNode}
	for i := range b.levels {
		b.levels[i] = fifo{head: nilNode, tail: nilNode}
	}
	return b
}

func (b *budget) alloc() int32 {
	if b.freeHead != nilNode {
		idx := b.freeHead
		b.freeHead = b.nodes[idx].next
		return idx
	}
	b.nodes = append(b.nodes, node{})
	return int32(len(b.nodes) - 1)
}

// push appends to the tail of level p.
func (b *budget) push(p core.Priority, sys *particle.System, slot int) particle.EntryHandle {
	idx := b.alloc()
	n := &b.nodes[idx]
	n.sys = sys
	n.slot = slot
	n.level = p
	n.used = true
	n.gen++
	n.next = nilNode

	l := &b.levels[p]
	n.prev = l.tail
	if l.tail != nilNode {
		b.nodes[l.tail].next = idx
	} else {
		l.head = idx
	}
	l.tail = idx
	l.n++
	b.total++
	return particle.EntryHandle{Index: idx, Gen: n.gen}
}

// unlink removes a used node in O(1) and returns it to the free list.
func (b *budget) unlink(idx int32) {
	n := &b.nodes[idx]
	l := &b.levels[n.level]
	if n.prev != nilNode {
		b.nodes[n.prev].next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nilNode {
		b.nodes[n.next].prev = n.prev
	} else {
		l.tail = n.prev
	}
	l.n--
	b.total--

	n.sys = nil
	n.used = false
	n.prev = nilNode
	n.next = b.freeHead
	b.freeHead = idx
}

// lookup returns the node index for a live handle at level p.
func (b *budget) lookup(p core.Priority, h particle.EntryHandle) (int32, bool) {
	if h.Index < 0 || int(h.Index) >= len(b.nodes) {
		return 0, false
	}
	n := &b.nodes[h.Index]
	if !n.used || n.gen != h.Gen || n.level != p {
		return 0, false
	}
	return h.Index, true
}

// countBelow is the number of entries at levels strictly below p.
func (b *budget) countBelow(p core.Priority) int {
	c := 0
	for lv := 0; lv < int(p); lv++ {
		c += b.levels[lv].n
	}
	return c
}

func (b *budget) check() error {
	sum := 0
	for lv := range b.levels {
		l := &b.levels[lv]
		walked := 0
		prev := nilNode
		for idx := l.head; idx != nilNode; idx = b.nodes[idx].next {
			n := &b.nodes[idx]
			if !n.used || int(n.level) != lv || n.prev != prev {
				return fmt.Errorf("budget: corrupt link at level %s node %d", core.Priority(lv), idx)
			}
			prev = idx
			walked++
			if walked > len(b.nodes) {
				return fmt.Errorf("budget: cycle at level %s", core.Priority(lv))
			}
		}
		if prev != l.tail {
			return fmt.Errorf("budget: level %s tail mismatch", core.Priority(lv))
		}
		if walked != l.n {
			return fmt.Errorf("budget: level %s holds %d entries, counted %d", core.Priority(lv), walked, l.n)
		}
		sum += l.n
	}
	if sum != b.total {
		return fmt.Errorf("budget: levels sum to %d, total is %d", sum, b.total)
	}
	return nil
}
