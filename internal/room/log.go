package room

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"canvasroom/internal/canvas"
	"canvasroom/internal/vectorclock"
)

// OperationLog is an append-only, tombstoned event store for one room.
// Every mutating method is safe for concurrent use; append order, state
// transitions, and the room clock form one linear sequence under the
// log's own mutex, matching the single-writer discipline spec.md
// requires at the room level.
type OperationLog struct {
	mu            sync.Mutex
	roomID        string
	maxOperations int
	ops           []*Operation
	index         map[string]*Operation
	clock         vectorclock.Clock
	createdAt     time.Time
}

// NewOperationLog creates an empty log for roomID capped at maxOperations.
func NewOperationLog(roomID string, maxOperations int) *OperationLog {
	return &OperationLog{
		roomID:        roomID,
		maxOperations: maxOperations,
		index:         make(map[string]*Operation),
		clock:         vectorclock.New(),
		createdAt:     time.Now(),
	}
}

func nextOperationID(userID string, timestampMillis int64) string {
	nonce := uuid.NewString()[:8]
	return fmt.Sprintf("%s_%d_%s", userID, timestampMillis, nonce)
}

// AppendStroke validates and appends a completed stroke, incrementing the
// room's vector clock for userID and stamping the new operation with that
// snapshot and the current wall-clock time.
func (l *OperationLog) AppendStroke(userID string, stroke canvas.Stroke) (*Operation, error) {
	if err := stroke.Validate(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	strokeCopy := stroke
	strokeCopy.Points = append([]canvas.Point(nil), stroke.Points...)
	return l.appendLocked(userID, OpStroke, &strokeCopy, nil), nil
}

// appendClearLocked appends a clear marker; callers must hold l.mu.
func (l *OperationLog) appendClearLocked(userID string) *Operation {
	return l.appendLocked(userID, OpClear, nil, &canvas.ClearData{})
}

func (l *OperationLog) appendLocked(userID string, opType OperationType, stroke *canvas.Stroke, clear *canvas.ClearData) *Operation {
	now := time.Now().UnixMilli()
	op := &Operation{
		ID:          nextOperationID(userID, now),
		Type:        opType,
		Stroke:      stroke,
		Clear:       clear,
		UserID:      userID,
		State:       StateActive,
		VectorClock: l.clock.Increment(userID),
		Timestamp:   now,
	}
	l.ops = append(l.ops, op)
	l.index[op.ID] = op
	l.trimLocked()
	return op.clone()
}

// trimLocked drops from the front once the log exceeds its cap. This can
// remove still-undone (unredoable) or still-active operations alike; that
// is a documented, intentional tradeoff for an in-memory, transient core.
func (l *OperationLog) trimLocked() {
	overflow := len(l.ops) - l.maxOperations
	if overflow <= 0 {
		return
	}
	for _, dropped := range l.ops[:overflow] {
		delete(l.index, dropped.ID)
	}
	l.ops = l.ops[overflow:]
}

// Undo flips operationID from active to undone. Returns ErrOperationNotFound
// or ErrWrongState (already undone) on failure; both are no-ops server-side.
func (l *OperationLog) Undo(operationID, actingUserID string) (*Operation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	op, ok := l.index[operationID]
	if !ok {
		return nil, ErrOperationNotFound
	}
	if op.State != StateActive {
		return nil, ErrWrongState
	}
	op.State = StateUndone
	op.UndoneBy = actingUserID
	op.UndoneAt = time.Now().UnixMilli()
	return op.clone(), nil
}

// Redo flips operationID from undone back to active. Symmetric with Undo;
// redoing a clear operation does not resurrect the operations that clear
// flipped to undone — this is a documented asymmetry, not a bug.
func (l *OperationLog) Redo(operationID, actingUserID string) (*Operation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	op, ok := l.index[operationID]
	if !ok {
		return nil, ErrOperationNotFound
	}
	if op.State != StateUndone {
		return nil, ErrWrongState
	}
	op.State = StateActive
	op.RedoneBy = actingUserID
	op.RedoneAt = time.Now().UnixMilli()
	return op.clone(), nil
}

// Clear appends a new clear operation, then flips every previously-active
// operation to undone, attributed to actingUserID. The clear op itself is
// undoable/redoable through the same Undo/Redo methods.
func (l *OperationLog) Clear(actingUserID string) *Operation {
	l.mu.Lock()
	defer l.mu.Unlock()
	clearOp := l.appendClearLocked(actingUserID)
	now := time.Now().UnixMilli()
	for _, op := range l.ops {
		if op.ID == clearOp.ID {
			continue
		}
		if op.State == StateActive {
			op.State = StateUndone
			op.UndoneBy = actingUserID
			op.UndoneAt = now
		}
	}
	return clearOp
}

// LastActive scans backward and returns the newest active operation,
// regardless of author — the "global undo" resolution spec.md requires
// when a client omits an explicit operationId.
func (l *OperationLog) LastActive() (*Operation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.ops) - 1; i >= 0; i-- {
		if l.ops[i].State == StateActive {
			return l.ops[i].clone(), true
		}
	}
	return nil, false
}

// LastUndone scans backward and returns the newest undone operation.
func (l *OperationLog) LastUndone() (*Operation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.ops) - 1; i >= 0; i-- {
		if l.ops[i].State == StateUndone {
			return l.ops[i].clone(), true
		}
	}
	return nil, false
}

// MergeResult reports the outcome of folding external operations into a
// log during a rejoin/backfill.
type MergeResult struct {
	MergedCount int
	TotalCount  int
}

// Merge deduplicates externalOps by id; for every genuinely new op it
// merges the op's vector clock into the room clock, then resorts the
// entire log into causal order via vectorclock.SortEvents so late-arriving
// causally-earlier ops land before the local ops that causally follow
// them. Merge is idempotent: merging the same ops twice changes nothing
// the second time.
func (l *OperationLog) Merge(externalOps []*Operation) MergeResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	added := 0
	for _, ext := range externalOps {
		if _, exists := l.index[ext.ID]; exists {
			continue
		}
		cp := ext.clone()
		l.ops = append(l.ops, cp)
		l.index[cp.ID] = cp
		l.clock.Merge(cp.VectorClock)
		added++
	}

	if added > 0 {
		vectorclock.SortEvents(l.ops)
		l.trimLocked()
	}

	return MergeResult{MergedCount: added, TotalCount: len(l.ops)}
}

// Snapshot is the ordered operation list and vector clock sent to a
// newly-joining client, or exported for a future persistence layer.
type Snapshot struct {
	Operations  []*Operation
	VectorClock vectorclock.Clock
	CreatedAt   time.Time
}

func (l *OperationLog) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	ops := make([]*Operation, len(l.ops))
	for i, op := range l.ops {
		ops[i] = op.clone()
	}
	return Snapshot{
		Operations:  ops,
		VectorClock: l.clock.Snapshot(),
		CreatedAt:   l.createdAt,
	}
}

// ActiveOperations returns only the operations currently in the active
// state, in log order — the set a snapshot export renders.
func (l *OperationLog) ActiveOperations() []*Operation {
	l.mu.Lock()
	defer l.mu.Unlock()
	var active []*Operation
	for _, op := range l.ops {
		if op.State == StateActive {
			active = append(active, op.clone())
		}
	}
	return active
}

// Exported is the durable-storage-shaped view of a log used by Export and
// Import. RoomID is carried so Import can reject cross-room accidents.
type Exported struct {
	RoomID      string
	Operations  []*Operation
	VectorClock vectorclock.Clock
	CreatedAt   time.Time
}

func (l *OperationLog) Export() Exported {
	sn := l.Snapshot()
	return Exported{
		RoomID:      l.roomID,
		Operations:  sn.Operations,
		VectorClock: sn.VectorClock,
		CreatedAt:   sn.CreatedAt,
	}
}

// Import replaces the log's contents with a previously exported log for
// the same room. It rejects an export from a different room outright.
func (l *OperationLog) Import(ex Exported) error {
	if ex.RoomID != l.roomID {
		return ErrImportMismatch
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ops = make([]*Operation, len(ex.Operations))
	l.index = make(map[string]*Operation, len(ex.Operations))
	for i, op := range ex.Operations {
		cp := op.clone()
		l.ops[i] = cp
		l.index[cp.ID] = cp
	}
	l.clock = ex.VectorClock.Snapshot()
	l.createdAt = ex.CreatedAt
	vectorclock.SortEvents(l.ops)
	l.trimLocked()
	return nil
}

// Len reports the current number of operations retained, active or not.
func (l *OperationLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ops)
}
