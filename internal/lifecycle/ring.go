package lifecycle

// idRing remembers the most recent ids, evicting the oldest
type idRing struct {
	ids  []string
	next int
	set  map[string]struct{}
}

func newIDRing(size int) *idRing {
	if size < 1 {
		size = 1
	}
	return &idRing{ids: make([]string, size), set: make(map[string]struct{}, size)}
}

func (r *idRing) add(id string) {
	if id == "" || r.contains(id) {
		return
	}
	if old := r.ids[r.next]; old != "" {
		delete(r.set, old)
	}
	r.ids[r.next] = id
	r.set[id] = struct{}{}
	r.next = (r.next + 1) % len(r.ids)
}

func (r *idRing) contains(id string) bool {
	_, ok := r.set[id]
	return ok
}
