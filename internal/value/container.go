package value

import (
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/msgpack"
)

// ErrNotSerializable is returned (or wrapped) whenever code asks for the
// serialized form, or the size, of a container that could not be or was
// never allowed to be serialized.
var ErrNotSerializable = errors.New("value: not serializable")

// Container holds everything a worker knows about one value: the live
// object, its serialized ("cucumber") form, or both. At least one of the
// two is always present.
//
// Grounded on the teacher's ValueContainer: on ingestion of a live value
// we attempt serialization eagerly and, deliberately, also immediately
// deserialize the result once to catch values that serialize cleanly but
// fail to deserialize. That double pass is preserved verbatim even though
// it looks redundant, because downstream scheduling decisions (choosing a
// source worker, deciding whether a task must pin to a specific worker)
// assume that pickle_supported=true means the container is *demonstrably*
// round-trippable, not merely that Marshal did not error.
type Container struct {
	value    Value
	hasValue bool

	cucumber        []byte
	pickleSupported bool
	size            int
	hasSize         bool
}

// NewFromValue wraps a freshly produced live value. If pickleSupported is
// true, serialization (and the round-trip check) is attempted
// immediately; on failure pickleSupported flips to false permanently for
// this container, and the call only returns an error if
// failIfUnsupported was also requested.
func NewFromValue(v Value, pickleSupported, failIfUnsupported bool) (*Container, error) {
	if !pickleSupported && failIfUnsupported {
		return nil, fmt.Errorf("value: pickleSupported=false and failIfUnsupported=true are contradictory")
	}
	c := &Container{value: v, hasValue: true, pickleSupported: pickleSupported}
	if pickleSupported {
		if err := c.tryPickle(v); err != nil {
			c.pickleSupported = false
			if failIfUnsupported {
				return nil, fmt.Errorf("%w: %w", ErrNotSerializable, err)
			}
		}
	}
	return c, nil
}

// tryPickle attempts to marshal v, then immediately unmarshal the result,
// storing the cucumber and size only if both halves succeed.
func (c *Container) tryPickle(v Value) error {
	cucumber, err := msgpack.Marshal(v, cty.DynamicPseudoType)
	if err != nil {
		return err
	}
	if _, err := msgpack.Unmarshal(cucumber, cty.DynamicPseudoType); err != nil {
		return err
	}
	c.cucumber = cucumber
	c.size = len(cucumber)
	c.hasSize = true
	return nil
}

// NewFromCucumber wraps an already-serialized value received from a peer.
func NewFromCucumber(cucumber []byte) *Container {
	return &Container{cucumber: cucumber, pickleSupported: true, size: len(cucumber), hasSize: true}
}

// Value returns the live value, deserializing on demand (and caching the
// result) if only the cucumber form is currently present.
func (c *Container) Value() (Value, error) {
	if c.hasValue {
		return c.value, nil
	}
	v, err := msgpack.Unmarshal(c.cucumber, cty.DynamicPseudoType)
	if err != nil {
		return cty.NilVal, err
	}
	c.value = v
	c.hasValue = true
	return v, nil
}

// Cucumber returns the serialized form, or ErrNotSerializable if this
// value does not support serialization.
func (c *Container) Cucumber() ([]byte, error) {
	if !c.pickleSupported {
		return nil, ErrNotSerializable
	}
	return c.cucumber, nil
}

// PickleSupported reports whether this container's value has been
// confirmed to round-trip through serialization.
func (c *Container) PickleSupported() bool {
	return c.pickleSupported
}

// Size returns the byte length of the serialized form, or ok=false if the
// value is not serializable.
func (c *Container) Size() (size int, ok bool) {
	return c.size, c.hasSize
}
