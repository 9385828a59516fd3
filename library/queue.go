package library

// reservationQueue is a FIFO of holder ids with a membership set so that
// duplicate checks do not rescan the order slice.
type reservationQueue struct {
	order   []int
	members map[int]struct{}
}

func (q *reservationQueue) len() int { return len(q.order) }

func (q *reservationQueue) contains(holderID int) bool {
	_, ok := q.members[holderID]
	return ok
}

// head returns the first holder id without removing it.
func (q *reservationQueue) head() (int, bool) {
	if len(q.order) == 0 {
		return 0, false
	}
	return q.order[0], true
}

// push appends the holder id, refusing duplicates.
func (q *reservationQueue) push(holderID int) bool {
	if q.contains(holderID) {
		return false
	}
	if q.members == nil {
		q.members = make(map[int]struct{})
	}
	q.order = append(q.order, holderID)
	q.members[holderID] = struct{}{}
	return true
}

// pop removes and returns the head.
func (q *reservationQueue) pop() (int, bool) {
	if len(q.order) == 0 {
		return 0, false
	}
	id := q.order[0]
	q.order = q.order[1:]
	delete(q.members, id)
	return id, true
}

// remove deletes the holder id, keeping the relative order of the rest.
func (q *reservationQueue) remove(holderID int) bool {
	if !q.contains(holderID) {
		return false
	}
	for i, id := range q.order {
		if id == holderID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	delete(q.members, holderID)
	return true
}

// snapshot copies the queue contents in order.
func (q *reservationQueue) snapshot() []int {
	out := make([]int, len(q.order))
	copy(out, q.order)
	return out
}
