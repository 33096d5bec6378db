package iips

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestAsciiCodec_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		payload := rapid.SliceOfN(rapid.Byte(), 0, MaxPayloadLen).Draw(t, "payload")
		filtered := make([]byte, 0, len(payload))
		for _, b := range payload {
			if b == '$' || b == '*' || b == '\r' || b == '\n' {
				continue
			}
			filtered = append(filtered, b)
		}

		wire := EncodeASCII(filtered)
		buf := NewBuffer(AsciiBufferCap)
		assert.Equal(t, len(wire), buf.Append(wire))

		got, outcome := AsciiCodec{}.Decode(buf)
		assert.Equal(t, OutcomeFrame, outcome)
		assert.Equal(t, filtered, got)
		assert.Equal(t, 0, buf.Len())
	})
}

func TestAsciiCodec_ChecksumMismatchDropsOneByte(t *testing.T) {
	wire := EncodeASCII([]byte("hello"))
	// Flip a hex digit in the checksum to break it without changing length.
	star := -1
	for i, b := range wire {
		if b == '*' {
			star = i
		}
	}
	if wire[star+1] == '0' {
		wire[star+1] = '1'
	} else {
		wire[star+1] = '0'
	}

	buf := NewBuffer(AsciiBufferCap)
	buf.Append(wire)
	_, outcome := AsciiCodec{}.Decode(buf)
	assert.Equal(t, OutcomeInvalid, outcome)
	assert.Equal(t, len(wire)-1, buf.Len())
}

func TestAsciiCodec_NeedsMoreWithoutTrailingStar(t *testing.T) {
	buf := NewBuffer(AsciiBufferCap)
	buf.Append([]byte("$partial"))
	_, outcome := AsciiCodec{}.Decode(buf)
	assert.Equal(t, OutcomeNeedMore, outcome)
}

func TestAsciiCodec_RejectsMissingLeadingDollar(t *testing.T) {
	buf := NewBuffer(AsciiBufferCap)
	buf.Append([]byte("garbage$*00\r\n"))
	_, outcome := AsciiCodec{}.Decode(buf)
	assert.Equal(t, OutcomeInvalid, outcome)
	assert.Equal(t, len("garbage$*00\r\n")-1, buf.Len())
}
