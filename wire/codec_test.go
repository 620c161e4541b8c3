package wire

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	frames := []*Frame{
		{Src: "alpha", Dst: "beta", Seq: 0, Type: Hello, TTL: 1},
		{Src: "a", Dst: "*", Seq: 65535, Type: DV, TTL: 1, Body: []byte(`{"a":0,"b":4294967295}`)},
		{Src: "a", Dst: "c", Seq: 1234, Type: Data, TTL: 64, Body: []byte("hello|world|with|pipes")},
		{Src: "c", Dst: "a", Seq: 1234, Type: Ack, TTL: 64},
		{Src: "b", Dst: "a", Seq: 7, Type: TTLExceeded, TTL: 64, Body: []byte("b|c")},
		{Src: "a", Dst: "b", Seq: 8, Type: Data, TTL: 64, Body: []byte{}},
	}
	for _, f := range frames {
		f.Seal()
		g, err := Decode(Encode(f))
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(*f, *g), "frame %s", f.Type)
		assert.False(t, g.Corrupt)
	}
}

func TestDecodeMalformed(t *testing.T) {
	lines := []string{
		"",
		"a|b|c",
		"a|b|1|2|DATA|3",              // missing body separator
		"|b|1|2|DATA|3|x",             // empty src
		"a||1|2|DATA|3|x",             // empty dst
		"a|b|notanum|2|DATA|3|x",      // bad seq
		"a|b|70000|2|DATA|3|x",        // seq out of range
		"a|b|1|notanum|DATA|3|x",      // bad checksum
		"a|b|1|2|BOGUS|3|x",           // unknown type
		"a|b|1|2|DATA|300|x",          // ttl out of range
		"a|b|1|2|DATA|notanum|x",      // bad ttl
	}
	for _, line := range lines {
		_, err := Decode([]byte(line))
		assert.ErrorIs(t, err, ErrMalformedFrame, "line %q", line)
	}
}

func TestCorruptAnnotation(t *testing.T) {
	f := (&Frame{Src: "a", Dst: "b", Seq: 42, Type: Syn, TTL: 8, Body: []byte("payload")}).Seal()
	f.Checksum ^= 0x5a5a5a5a

	g, err := Decode(Encode(f))
	require.NoError(t, err)
	assert.True(t, g.Corrupt)
	assert.Equal(t, f.Body, g.Body, "corrupt frames still decode in full")
}

func TestDigestDetectsBitFlips(t *testing.T) {
	f := &Frame{Src: "a", Dst: "b", Seq: 42, Type: Data, TTL: 8, Body: []byte("some payload")}
	want := f.Digest()

	for i := range f.Body {
		for bit := 0; bit < 8; bit++ {
			g := *f
			g.Body = append([]byte(nil), f.Body...)
			g.Body[i] ^= 1 << bit
			assert.NotEqual(t, want, g.Digest(), "flip byte %d bit %d", i, bit)
		}
	}

	g := *f
	g.Seq++
	assert.NotEqual(t, want, g.Digest())
	g = *f
	g.Type = Syn
	assert.NotEqual(t, want, g.Digest())
}

func TestDigestCoversFieldOrder(t *testing.T) {
	f := &Frame{Src: "a", Dst: "b", Seq: 1, Type: Data, TTL: 8, Body: []byte("x")}
	swapped := &Frame{Src: "b", Dst: "a", Seq: 1, Type: Data, TTL: 8, Body: []byte("x")}
	assert.NotEqual(t, f.Digest(), swapped.Digest())
}

func TestDigestIgnoresTTL(t *testing.T) {
	// forwarders rewrite ttl per hop without resealing
	f := &Frame{Src: "a", Dst: "b", Seq: 1, Type: Data, TTL: 8, Body: []byte("x")}
	g := *f
	g.TTL = 7
	assert.Equal(t, f.Digest(), g.Digest())
}

func TestCheckBody(t *testing.T) {
	assert.NoError(t, CheckBody(nil))
	assert.NoError(t, CheckBody([]byte("plain text with|pipes")))
	assert.NoError(t, CheckBody(make([]byte, MaxBodySize)))

	assert.Error(t, CheckBody([]byte("line one\nline two")))
	assert.Error(t, CheckBody(make([]byte, MaxBodySize+1)))
}

func TestSealNormalizesEmptyBody(t *testing.T) {
	f := (&Frame{Src: "a", Dst: "b", Seq: 1, Type: Data, TTL: 8, Body: []byte{}}).Seal()
	assert.Nil(t, f.Body)

	g, err := Decode(Encode(f))
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(*f, *g))
	assert.False(t, g.Corrupt)
}

func TestParseType(t *testing.T) {
	for _, tag := range []string{"HELLO", "DV", "DATA", "SYN", "SYN_ACK", "ACK", "TTL_EXC", "PING_REQ", "PING_REP"} {
		ty, err := ParseType(tag)
		require.NoError(t, err)
		assert.Equal(t, tag, ty.String())
	}
	_, err := ParseType("NOPE")
	assert.Error(t, err)
}
