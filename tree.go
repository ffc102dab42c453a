package bpkv

import (
	"bytes"
	"slices"
	"sort"
)

// Compare orders keys lexicographically by byte, shorter key first on a
// common prefix. It is the only key ordering bpkv uses.
func Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

// node is a B+tree node. Leaves carry entries and sit on a doubly linked
// chain; internal nodes carry len(keys)+1 children.
//
// Separator invariant for internal nodes: every key under children[i] is
// < keys[i] <= every key under children[i+1].
type node struct {
	leaf     bool
	keys     [][]byte   // arena-resident, strictly ascending
	children []*node    // internal only
	entries  []entryRef // leaf only, parallel to keys

	// leaf chain
	next *node
	prev *node
}

// search returns the first position whose key is >= key and whether that
// key is equal.
func (n *node) search(key []byte) (int, bool) {
	return slices.BinarySearchFunc(n.keys, key, Compare)
}

// childIndex returns the child to descend into: the index of the first
// separator strictly greater than key.
func (n *node) childIndex(key []byte) int {
	return sort.Search(len(n.keys), func(i int) bool {
		return Compare(n.keys[i], key) > 0
	})
}

// btree is the ordered index. Nodes live on the Go heap; keys and entries
// live in the arena. Nothing is ever removed: deletes only set tombstones,
// so the tree never shrinks and height never decreases.
type btree struct {
	order     int
	root      *node
	firstLeaf *node
	height    int
	nodes     int
	es        entries
}

func newTree(order int, es entries) *btree {
	t := &btree{order: order, es: es}
	t.root = t.newNode(true)
	t.firstLeaf = t.root
	t.height = 1
	return t
}

func (t *btree) newNode(leaf bool) *node {
	n := &node{
		leaf: leaf,
		keys: make([][]byte, 0, t.order-1),
	}
	if leaf {
		n.entries = make([]entryRef, 0, t.order-1)
	} else {
		n.children = make([]*node, 0, t.order)
	}
	t.nodes++
	return n
}

// findLeaf descends from the root to the leaf that would hold key.
func (t *btree) findLeaf(key []byte) *node {
	n := t.root
	for !n.leaf {
		n = n.children[n.childIndex(key)]
	}
	return n
}

// lastLeaf descends through the rightmost child at every level.
func (t *btree) lastLeaf() *node {
	n := t.root
	for !n.leaf {
		n = n.children[len(n.children)-1]
	}
	return n
}

// lookup finds the entry stored under key, tombstoned or not.
func (t *btree) lookup(key []byte) (entryRef, bool) {
	leaf := t.findLeaf(key)
	i, found := leaf.search(key)
	if !found {
		return 0, false
	}
	return leaf.entries[i], true
}

// insert stores value under key and reports whether a new logical entry
// was created. Updating a live key overwrites its value in place; a
// tombstoned key gets a fresh entry.
func (t *btree) insert(key, value []byte) (bool, error) {
	return t.insertAt(t.root, nil, 0, key, value)
}

// insertAt recurses to the target leaf, then checks each ancestor for
// overflow on the way back up. pos is n's index in parent.
func (t *btree) insertAt(n, parent *node, pos int, key, value []byte) (bool, error) {
	if n.leaf {
		i, found := n.search(key)
		if found {
			ref := n.entries[i]
			if !t.es.deleted(ref) {
				return false, t.es.setValue(ref, value)
			}
			fresh, _, err := t.es.create(key, value)
			if err != nil {
				return false, err
			}
			n.entries[i] = fresh
			return true, nil
		}

		ref, k, err := t.es.create(key, value)
		if err != nil {
			return false, err
		}
		n.keys = slices.Insert(n.keys, i, k)
		n.entries = slices.Insert(n.entries, i, ref)

		if len(n.keys) >= t.order-1 {
			t.splitLeaf(n, parent, pos)
		}
		return true, nil
	}

	i := n.childIndex(key)
	added, err := t.insertAt(n.children[i], n, i, key, value)
	if err != nil {
		return false, err
	}
	if len(n.keys) >= t.order-1 {
		t.splitInternal(n, parent, pos)
	}
	return added, nil
}

// splitLeaf moves the upper half of leaf into a new right sibling, links it
// into the chain and copies its first key up to the parent.
func (t *btree) splitLeaf(leaf, parent *node, pos int) {
	mid := len(leaf.keys) / 2
	right := t.newNode(true)

	right.keys = append(right.keys, leaf.keys[mid:]...)
	right.entries = append(right.entries, leaf.entries[mid:]...)
	clear(leaf.keys[mid:])
	leaf.keys = leaf.keys[:mid]
	leaf.entries = leaf.entries[:mid]

	right.next = leaf.next
	right.prev = leaf
	if leaf.next != nil {
		leaf.next.prev = right
	}
	leaf.next = right

	t.promote(right.keys[0], leaf, right, parent, pos)
}

// splitInternal moves the keys and children right of the middle key into a
// new node and moves the middle key itself up to the parent.
func (t *btree) splitInternal(n, parent *node, pos int) {
	mid := len(n.keys) / 2
	up := n.keys[mid]
	right := t.newNode(false)

	right.keys = append(right.keys, n.keys[mid+1:]...)
	right.children = append(right.children, n.children[mid+1:]...)
	clear(n.keys[mid:])
	clear(n.children[mid+1:])
	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]

	t.promote(up, n, right, parent, pos)
}

// promote inserts separator sep between left and right in parent, or grows
// a new root when left was the root.
func (t *btree) promote(sep []byte, left, right, parent *node, pos int) {
	if parent == nil {
		root := t.newNode(false)
		root.keys = append(root.keys, sep)
		root.children = append(root.children, left, right)
		t.root = root
		t.height++
		return
	}
	parent.keys = slices.Insert(parent.keys, pos, sep)
	parent.children = slices.Insert(parent.children, pos+1, right)
}
