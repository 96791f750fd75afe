package cache

// node is an element of the recency list. It is embedded in its cache
// entry, so promotion and removal are O(1) without a second map lookup.
type node[T any] struct {
	val        T
	prev, next *node[T]
	linked     bool
}

// recency is an intrusive doubly-linked list ordered from most recently
// used (front) to least recently used (back). Not safe for concurrent use.
type recency[T any] struct {
	front, back *node[T]
	n           int
}

func (r *recency[T]) len() int { return r.n }

// pushFront links nd as the most recently used element.
func (r *recency[T]) pushFront(nd *node[T]) {
	if nd.linked {
		r.moveToFront(nd)
		return
	}
	nd.prev, nd.next = nil, r.front
	if r.front != nil {
		r.front.prev = nd
	} else {
		r.back = nd
	}
	r.front = nd
	nd.linked = true
	r.n++
}

// moveToFront promotes an already linked element.
func (r *recency[T]) moveToFront(nd *node[T]) {
	if !nd.linked || nd == r.front {
		return
	}
	r.remove(nd)
	r.pushFront(nd)
}

// remove unlinks nd. Unlinked nodes are ignored.
func (r *recency[T]) remove(nd *node[T]) {
	if !nd.linked {
		return
	}
	if nd.prev != nil {
		nd.prev.next = nd.next
	} else {
		r.front = nd.next
	}
	if nd.next != nil {
		nd.next.prev = nd.prev
	} else {
		r.back = nd.prev
	}
	nd.prev, nd.next = nil, nil
	nd.linked = false
	r.n--
}

// each calls fn from most to least recently used until fn returns false.
func (r *recency[T]) each(fn func(T) bool) {
	for nd := r.front; nd != nil; nd = nd.next {
		if !fn(nd.val) {
			return
		}
	}
}

// oldestWhere returns the least recently used element satisfying ok.
func (r *recency[T]) oldestWhere(ok func(T) bool) (*node[T], bool) {
	for nd := r.back; nd != nil; nd = nd.prev {
		if ok(nd.val) {
			return nd, true
		}
	}
	return nil, false
}
