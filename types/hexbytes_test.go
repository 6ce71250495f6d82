package types

import (
	"encoding/json"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestHexBytesMarshalUnmarshalJSON(t *testing.T) {
	c := qt.New(t)
	hb := HexBytes{0xde, 0xad, 0xbe, 0xef}
	data, err := json.Marshal(hb)
	c.Assert(err, qt.IsNil)
	c.Assert(string(data), qt.Equals, `"deadbeef"`)

	var decoded HexBytes
	c.Assert(json.Unmarshal(data, &decoded), qt.IsNil)
	c.Assert(decoded, qt.DeepEquals, hb)
}

func TestHexBytesSetString(t *testing.T) {
	c := qt.New(t)
	var hb HexBytes
	c.Assert(hb.SetString("0xdeadbeef"), qt.IsNil)
	c.Assert(hb.String(), qt.Equals, "deadbeef")
	c.Assert(hb.SetString("not-hex"), qt.IsNotNil)
}
