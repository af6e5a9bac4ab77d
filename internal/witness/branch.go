// Package witness implements the in-memory witness tree of spec.md §4.6:
// a root branch plus zero or more dangling branches, each an arena of
// index-addressed nodes so that parent/child links survive splicing
// without pointer rewrites. Grounded on spec.md §4.2/§4.6/§9 (arena +
// integer-index design note); struct/method idiom follows
// core/state/history_reader_v3.go (plain getter methods, wrapped errors).
package witness

import "github.com/posindexer/posindexer/internal/types"

// NodeID addresses a node within a single Branch's arena. IDs are local to
// the branch that minted them — they are not globally unique.
type NodeID int

// noParent marks a branch's root node.
const noParent NodeID = -1

// Node is one witness block plus its arena-local links.
type Node struct {
	ID       NodeID
	Block    types.WitnessBlock
	ParentID NodeID
	Children []NodeID
}

// Branch is a rooted in-memory tree of WitnessBlock nodes plus a leaves
// index keyed by node id (spec.md §3 Branch).
type Branch struct {
	nodes  map[NodeID]*Node
	byHash map[types.BlockHash]NodeID
	leaves map[NodeID]struct{}
	rootID NodeID
	nextID NodeID
}

// NewBranch returns a single-node branch rooted at block.
func NewBranch(block *types.PrecomputedBlock) *Branch {
	b := &Branch{
		nodes:  make(map[NodeID]*Node),
		byHash: make(map[types.BlockHash]NodeID),
		leaves: make(map[NodeID]struct{}),
	}
	root := &Node{ID: 0, Block: types.WitnessBlock{Block: block, HeightInTree: 0}, ParentID: noParent}
	b.nodes[0] = root
	b.byHash[block.StateHash] = 0
	b.leaves[0] = struct{}{}
	b.rootID = 0
	b.nextID = 1
	return b
}

// Has reports whether hash is present anywhere in the branch.
func (b *Branch) Has(hash types.BlockHash) (NodeID, bool) {
	id, ok := b.byHash[hash]
	return id, ok
}

// Get returns the node for id.
func (b *Branch) Get(id NodeID) (*Node, bool) {
	n, ok := b.nodes[id]
	return n, ok
}

// Root returns the branch's root node.
func (b *Branch) Root() *Node { return b.nodes[b.rootID] }

// RootID returns the branch's root node id.
func (b *Branch) RootID() NodeID { return b.rootID }

// Len returns the number of nodes in the branch.
func (b *Branch) Len() int { return len(b.nodes) }

// Leaves returns the current leaf node ids in arbitrary order (O(1) per
// lookup, O(leaves) to enumerate).
func (b *Branch) Leaves() []NodeID {
	out := make([]NodeID, 0, len(b.leaves))
	for id := range b.leaves {
		out = append(out, id)
	}
	return out
}

// AddChild attaches block as a child of parentID and returns the new node's
// id. The caller must have already verified parentID exists in this
// branch.
func (b *Branch) AddChild(parentID NodeID, block *types.PrecomputedBlock) NodeID {
	parent := b.nodes[parentID]
	id := b.nextID
	b.nextID++
	node := &Node{
		ID:       id,
		Block:    types.WitnessBlock{Block: block, HeightInTree: parent.Block.HeightInTree + 1},
		ParentID: parentID,
	}
	b.nodes[id] = node
	parent.Children = append(parent.Children, id)
	b.byHash[block.StateHash] = id
	delete(b.leaves, parentID)
	b.leaves[id] = struct{}{}
	return id
}

// Ancestors walks from id to the branch root inclusive, O(depth).
func (b *Branch) Ancestors(id NodeID) []*Node {
	var out []*Node
	cur, ok := b.nodes[id]
	for ok {
		out = append(out, cur)
		if cur.ParentID == noParent {
			break
		}
		cur, ok = b.nodes[cur.ParentID]
	}
	return out
}

// PreOrder returns every node reachable from id (inclusive), parent before
// children, used for splice operations.
func (b *Branch) PreOrder(id NodeID) []*Node {
	var out []*Node
	var walk func(NodeID)
	walk = func(cur NodeID) {
		n, ok := b.nodes[cur]
		if !ok {
			return
		}
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(id)
	return out
}

// BFSOrder returns every node breadth-first from the branch root, used for
// display per spec.md §4.6.
func (b *Branch) BFSOrder() []*Node {
	var out []*Node
	queue := []NodeID{b.rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n, ok := b.nodes[id]
		if !ok {
			continue
		}
		out = append(out, n)
		queue = append(queue, n.Children...)
	}
	return out
}

// Splice grafts the entire subtree rooted at other's root onto this
// branch's node parentID, re-numbering node ids into this branch's arena
// and preserving heights relative to this branch's root. It returns the
// new id of other's former root.
func (b *Branch) Splice(parentID NodeID, other *Branch) NodeID {
	idMap := make(map[NodeID]NodeID, other.Len())
	parentHeight := b.nodes[parentID].Block.HeightInTree

	for _, n := range other.PreOrder(other.rootID) {
		newID := b.nextID
		b.nextID++
		heightDelta := n.Block.HeightInTree - other.Root().Block.HeightInTree
		newNode := &Node{
			ID:           newID,
			Block:        types.WitnessBlock{Block: n.Block.Block, HeightInTree: parentHeight + 1 + uint32(heightDelta)},
			ParentID:     noParent,
		}
		b.nodes[newID] = newNode
		b.byHash[n.Block.Block.StateHash] = newID
		idMap[n.ID] = newID
	}
	for _, n := range other.PreOrder(other.rootID) {
		newID := idMap[n.ID]
		node := b.nodes[newID]
		if n.ID == other.rootID {
			node.ParentID = parentID
		} else {
			node.ParentID = idMap[n.ParentID]
		}
		for _, c := range n.Children {
			node.Children = append(node.Children, idMap[c])
		}
	}

	delete(b.leaves, parentID)
	b.nodes[parentID].Children = append(b.nodes[parentID].Children, idMap[other.rootID])
	for oldLeaf := range other.leaves {
		b.leaves[idMap[oldLeaf]] = struct{}{}
	}
	return idMap[other.rootID]
}

// PruneBelow removes every node whose height is strictly below newRootID's
// height, re-rooting the branch at newRootID. Nodes outside newRootID's
// subtree are discarded entirely (their store rows are untouched per
// spec.md §4.6 step 8).
func (b *Branch) PruneBelow(newRootID NodeID) {
	keep := make(map[NodeID]bool)
	for _, n := range b.PreOrder(newRootID) {
		keep[n.ID] = true
	}
	for id, n := range b.nodes {
		if !keep[id] {
			delete(b.nodes, id)
			delete(b.byHash, n.Block.Block.StateHash)
			delete(b.leaves, id)
		}
	}
	b.nodes[newRootID].ParentID = noParent
	b.rootID = newRootID
}
