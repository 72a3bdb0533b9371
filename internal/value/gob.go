package value

import (
	"bytes"
	"encoding/gob"
)

// GobEncode and GobDecode let an ID cross encoding/gob despite its uuid
// field being unexported, the same way tick.Tick does. Grounded on this
// being the one place the engine needs a value id to survive a process
// boundary at all: internal/rpcworker's net/rpc wire protocol for
// FetchFrom/Evaluate arguments.
func (i ID) GobEncode() ([]byte, error) {
	raw, err := i.id.MarshalBinary()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(raw); err != nil {
		return nil, err
	}
	if err := enc.Encode(i.Tick); err != nil {
		return nil, err
	}
	if err := enc.Encode(i.Port); err != nil {
		return nil, err
	}
	if err := enc.Encode(i.Nicename); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (i *ID) GobDecode(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	var raw []byte
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	if err := i.id.UnmarshalBinary(raw); err != nil {
		return err
	}
	if err := dec.Decode(&i.Tick); err != nil {
		return err
	}
	if err := dec.Decode(&i.Port); err != nil {
		return err
	}
	return dec.Decode(&i.Nicename)
}
