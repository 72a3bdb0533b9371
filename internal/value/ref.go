package value

import "fmt"

// Ref is a reference to a value potentially stored on several workers: a
// value ID, whether it may be serialized and shipped between workers, and
// the set of workers currently known to hold a replica. A value can be
// stored in more than one place once it has been fetched across the
// network.
type Ref struct {
	ID              ID
	PickleSupported bool
	DataSize        *int // nil until a size becomes known

	workers map[WorkerID]struct{}
}

// NewRef constructs a Ref naming the workers that already hold id.
func NewRef(id ID, pickleSupported bool, workers ...WorkerID) *Ref {
	r := &Ref{ID: id, PickleSupported: pickleSupported, workers: make(map[WorkerID]struct{}, len(workers))}
	for _, w := range workers {
		r.workers[w] = struct{}{}
	}
	return r
}

// Workers returns the set of workers currently holding a replica.
func (r *Ref) Workers() []WorkerID {
	out := make([]WorkerID, 0, len(r.workers))
	for w := range r.workers {
		out = append(out, w)
	}
	return out
}

// HasWorker reports whether w is known to hold a replica.
func (r *Ref) HasWorker(w WorkerID) bool {
	_, ok := r.workers[w]
	return ok
}

// AddWorker records that w now holds a replica, e.g. after a successful
// fetch_from.
func (r *Ref) AddWorker(w WorkerID) {
	r.workers[w] = struct{}{}
}

// RemoveWorker forgets that w holds a replica, e.g. after that worker
// frees it.
func (r *Ref) RemoveWorker(w WorkerID) {
	delete(r.workers, w)
}

func (r *Ref) String() string {
	return fmt.Sprintf("Ref(%s, workers=%v, size=%v, pickle=%v)", r.ID, r.Workers(), r.DataSize, r.PickleSupported)
}
