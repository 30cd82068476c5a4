package api

import "github.com/srediag/surface-shm/pkg/region"

// ShareQueue is the client-side view of the shared synchronization primitive
// that brokers buffer slot ownership with the remote compositor. Slot
// ownership forms a single-writer chain per slot: the client never touches a
// slot's memory between Queue and the slot's eventual re-Dequeue.
type ShareQueue interface {
	// Dequeue reserves a client-owned slot index. It may block while the
	// compositor holds every slot; implementations bound the wait and return
	// an error (for example "would block") when no slot frees up.
	Dequeue() (int32, error)

	// UndoDequeue releases a reservation obtained from Dequeue without
	// queueing it, so the slot is not stranded after an allocation failure.
	UndoDequeue(slot int32)

	// NeedNewBuffer reports whether the compositor requested a fresh backing
	// buffer for the slot. Consuming query: the flag is cleared by the call,
	// a second read in a row reports false.
	NeedNewBuffer(slot int32) bool

	// Lock marks a dequeued slot as in active use by the producer, making it
	// ineligible for compositor-side reclamation.
	Lock(slot int32) error

	// SetCrop publishes the crop rectangle for the slot's next composition.
	// Best-effort metadata write.
	SetCrop(slot int32, crop region.Rect)

	// SetDirtyRegion publishes the region changed since the previous frame.
	// Best-effort metadata write.
	SetDirtyRegion(slot int32, dirty region.Region)

	// Queue transfers slot ownership to the compositor.
	Queue(slot int32) error

	// Status returns the queue's sticky error state, nil when healthy.
	Status() error

	// Identity returns the compositor's current generation counter for the
	// token. Zero is the "no operations permitted" sentinel used for
	// passive surfaces.
	Identity(token Token) uint32

	// Validate checks that the token is still live on the compositor side.
	Validate(token Token) error

	// SetBufferCount renegotiates the slot count. When the compositor must
	// agree to the new count, the implementation invokes renegotiate for the
	// one required round trip before resizing.
	SetBufferCount(count int, renegotiate func(count int) error) error
}
