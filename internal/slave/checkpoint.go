package slave

import (
	"fmt"

	"github.com/specialistvlad/cosimgo/internal/valuestore"
)

// CheckpointID names a checkpoint held by a Wrapper.
type CheckpointID uint64

type checkpoint struct {
	handle StateHandle
	refs   int
	// values is the value mirror at snapshot time, nil for deserialized
	// checkpoints.
	values []valuestore.Entry
}

func (w *Wrapper) requireCheckpoints(op string) error {
	if w.cp == nil {
		return w.errorf(op, ErrCheckpointUnsupported)
	}
	return w.require(op, Initializing, Ready, Stepping)
}

func (w *Wrapper) lookup(op string, id CheckpointID) (*checkpoint, error) {
	c, ok := w.checkpoints[id]
	if !ok {
		return nil, w.errorf(op, fmt.Errorf("%w: %d", ErrUnknownCheckpoint, id))
	}
	return c, nil
}

func (w *Wrapper) add(h StateHandle, values []valuestore.Entry) CheckpointID {
	w.nextID++
	w.checkpoints[w.nextID] = &checkpoint{handle: h, refs: 1, values: values}
	return w.nextID
}

// Snapshot captures the instance state. The returned checkpoint holds one
// reference.
func (w *Wrapper) Snapshot() (CheckpointID, error) {
	const op = "Snapshot"
	if err := w.requireCheckpoints(op); err != nil {
		return 0, err
	}
	h, err := w.cp.GetState()
	if err != nil {
		return 0, w.fail(op, err)
	}
	return w.add(h, w.values.Snapshot()), nil
}

// Restore resets the instance to checkpoint id. The checkpoint stays valid.
// The value mirror goes back to what it held at snapshot time; after
// restoring a deserialized checkpoint it is empty until values are read.
func (w *Wrapper) Restore(id CheckpointID) error {
	const op = "Restore"
	if err := w.requireCheckpoints(op); err != nil {
		return err
	}
	c, err := w.lookup(op, id)
	if err != nil {
		return err
	}
	if err := w.cp.SetState(c.handle); err != nil {
		return w.fail(op, err)
	}
	w.values.Load(c.values)
	return nil
}

// Retain adds a reference to checkpoint id.
func (w *Wrapper) Retain(id CheckpointID) error {
	c, err := w.lookup("Retain", id)
	if err != nil {
		return err
	}
	c.refs++
	return nil
}

// Release drops a reference to checkpoint id and frees it with the last one.
func (w *Wrapper) Release(id CheckpointID) error {
	const op = "Release"
	c, err := w.lookup(op, id)
	if err != nil {
		return err
	}
	c.refs--
	if c.refs > 0 {
		return nil
	}
	delete(w.checkpoints, id)
	if err := w.cp.FreeState(c.handle); err != nil {
		return w.errorf(op, native(err))
	}
	return nil
}

// Checkpoints returns the number of checkpoints currently held.
func (w *Wrapper) Checkpoints() int { return len(w.checkpoints) }

// Serialize returns the byte form of checkpoint id.
func (w *Wrapper) Serialize(id CheckpointID) ([]byte, error) {
	const op = "Serialize"
	if w.ser == nil {
		return nil, w.errorf(op, ErrCheckpointUnsupported)
	}
	c, err := w.lookup(op, id)
	if err != nil {
		return nil, err
	}
	data, err := w.ser.Serialize(c.handle)
	if err != nil {
		return nil, w.errorf(op, native(err))
	}
	return data, nil
}

// Deserialize turns bytes produced by Serialize into a new checkpoint holding
// one reference. It does not change the instance state; call Restore for that.
func (w *Wrapper) Deserialize(data []byte) (CheckpointID, error) {
	const op = "Deserialize"
	if w.ser == nil {
		return 0, w.errorf(op, ErrCheckpointUnsupported)
	}
	if err := w.requireCheckpoints(op); err != nil {
		return 0, err
	}
	h, err := w.ser.Deserialize(data)
	if err != nil {
		return 0, w.errorf(op, native(err))
	}
	return w.add(h, nil), nil
}
