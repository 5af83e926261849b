package ecs

// World is the top-level ECS container: the entity pool, the component
// stores registered with it, and a deferred destruction queue flushed at the
// end of each tick.
type World struct {
	pool         *EntityPool
	stores       []Removable
	destroyQueue []EntityID
	queued       map[EntityID]struct{}
}

func NewWorld() *World {
	return &World{
		pool:         NewEntityPool(),
		stores:       make([]Removable, 0, 8),
		destroyQueue: make([]EntityID, 0, 64),
		queued:       make(map[EntityID]struct{}, 64),
	}
}

// Register adds a component store whose entries are dropped when their
// entity is destroyed.
func (w *World) Register(store Removable) {
	w.stores = append(w.stores, store)
}

// NewRegisteredStore creates a store and registers it with w.
func NewRegisteredStore[T any](w *World) *Store[T] {
	s := NewStore[T]()
	w.Register(s)
	return s
}

func (w *World) CreateEntity() EntityID {
	return w.pool.Create()
}

func (w *World) Alive(id EntityID) bool {
	return w.pool.Alive(id)
}

// Live returns the number of live entities, queued ones included.
func (w *World) Live() int { return w.pool.Live() }

// MarkForDestruction queues an entity for end-of-tick cleanup. It reports
// false when id is dead or already queued.
func (w *World) MarkForDestruction(id EntityID) bool {
	if !w.pool.Alive(id) {
		return false
	}
	if _, dup := w.queued[id]; dup {
		return false
	}
	w.queued[id] = struct{}{}
	w.destroyQueue = append(w.destroyQueue, id)
	return true
}

// PendingDestruction returns the queued handles without flushing them.
func (w *World) PendingDestruction() []EntityID {
	return w.destroyQueue
}

// FlushDestroyQueue destroys all queued entities and clears their components.
func (w *World) FlushDestroyQueue() {
	for _, id := range w.destroyQueue {
		for _, s := range w.stores {
			s.Remove(id)
		}
		w.pool.Destroy(id)
		delete(w.queued, id)
	}
	w.destroyQueue = w.destroyQueue[:0]
}
