package tick

import (
	"bytes"
	"encoding/gob"
)

// GobEncode and GobDecode let a Tick cross encoding/gob (and anything
// layered on it, e.g. net/rpc) despite its fields being unexported. This
// exists for internal/rpcworker's wire protocol: job ticks and the ticks
// embedded in a value.ID both need to survive a round trip to a worker
// subprocess.
func (t Tick) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(t.elems); err != nil {
		return nil, err
	}
	if err := enc.Encode(t.mask); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (t *Tick) GobDecode(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&t.elems); err != nil {
		return err
	}
	return dec.Decode(&t.mask)
}
