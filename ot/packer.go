package ot

import (
	"fmt"
	"strings"
)

// packer lays out a graph of sub-tables connected by offsets.
//
// Sub-tables are built bottom-up: a node is created, filled with data and
// links to already interned child nodes, and then interned itself. Interning
// shares identical sub-trees. pack orders the nodes topologically (every
// parent precedes its children, siblings in breadth-first order), computes
// offsets relative to the start of the node holding the offset field and
// reports an offset overflow if a 16-bit field cannot hold its offset.
// Negative offsets cannot occur, as children are always placed after their
// parents.
type packer struct {
	interned map[string]*packNode
	count    int
}

type packNode struct {
	writer
	links []packLink
	id    int
}

type packLink struct {
	at     int  // position of the offset field within the parent node
	wide   bool // 32-bit offset field
	target *packNode
}

func newPacker() *packer {
	return &packer{interned: make(map[string]*packNode)}
}

func (p *packer) node() *packNode {
	return &packNode{id: -1}
}

// offset16 writes a placeholder for a 16-bit offset to target. A nil target
// is written as a NULL offset.
func (n *packNode) offset16(target *packNode) {
	if target != nil {
		n.links = append(n.links, packLink{at: n.len(), target: target})
	}
	n.u16(0)
}

// offset32 writes a placeholder for a 32-bit offset to target.
func (n *packNode) offset32(target *packNode) {
	if target != nil {
		n.links = append(n.links, packLink{at: n.len(), wide: true, target: target})
	}
	n.u32(0)
}

// intern returns a node with identical content and identical children, if
// one has been interned before, or n otherwise.
func (p *packer) intern(n *packNode) *packNode {
	var key strings.Builder
	key.Write(n.bytes())
	for _, l := range n.links {
		fmt.Fprintf(&key, "|%d:%t:%d", l.at, l.wide, l.target.id)
	}
	if shared, ok := p.interned[key.String()]; ok {
		return shared
	}
	n.id = p.count
	p.count++
	p.interned[key.String()] = n
	return n
}

// unique registers n without sharing it with identical nodes.
func (p *packer) unique(n *packNode) *packNode {
	n.id = p.count
	p.count++
	return n
}

// pack serializes the graph reachable from root.
func (p *packer) pack(root *packNode) ([]byte, error) {
	indegree := make(map[*packNode]int)
	var visit func(*packNode)
	visit = func(n *packNode) {
		for _, l := range n.links {
			if _, seen := indegree[l.target]; !seen {
				indegree[l.target] = 0
				visit(l.target)
			}
			indegree[l.target]++
		}
	}
	indegree[root] = 0
	visit(root)

	// Targets of 32-bit offsets start a new space: they are deferred until
	// everything reachable by 16-bit offsets has been placed, and the
	// sub-graph below each of them is laid out contiguously.
	order := make([]*packNode, 0, len(indegree))
	queue, deferred := []*packNode{root}, []*packNode{}
	for len(queue) > 0 || len(deferred) > 0 {
		var n *packNode
		if len(queue) > 0 {
			n, queue = queue[0], queue[1:]
		} else {
			n, deferred = deferred[0], deferred[1:]
		}
		order = append(order, n)
		for _, l := range n.links {
			if indegree[l.target]--; indegree[l.target] == 0 {
				if l.wide {
					deferred = append(deferred, l.target)
				} else {
					queue = append(queue, l.target)
				}
			}
		}
	}
	if len(order) != len(indegree) {
		return nil, fmt.Errorf("sub-table graph contains a cycle")
	}

	position := make(map[*packNode]int, len(order))
	size := 0
	for _, n := range order {
		position[n] = size
		size += n.len()
	}
	out := make([]byte, 0, size)
	for _, n := range order {
		start := len(out)
		out = append(out, n.bytes()...)
		for _, l := range n.links {
			off := position[l.target] - position[n]
			if l.wide {
				put32(out[start+l.at:], uint32(off))
				continue
			}
			if off > 0xffff {
				return nil, ErrOffsetOverflow
			}
			put16(out[start+l.at:], uint16(off))
		}
	}
	return out, nil
}
