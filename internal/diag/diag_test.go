package diag

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	tests := map[string]struct {
		err  error
		want string
		kind Kind
	}{
		"malformed with offset": {
			err:  Malformedf(0x40, "truncated %s", "CIE"),
			want: "truncated CIE at offset 0x40",
			kind: Malformed,
		},
		"not found quotes the query": {
			err:  NotFoundf(".eh_frame", "couldn't find section"),
			want: `couldn't find section ".eh_frame"`,
			kind: NotFound,
		},
		"unsupported": {
			err:  Unsupportedf("pointer encoding %#02x", 0x01),
			want: "pointer encoding 0x1",
			kind: Unsupported,
		},
		"wrapped keeps kind": {
			err:  fmt.Errorf("eh: %w", Advisoryf("zero sized symbol")),
			want: "eh: zero sized symbol",
			kind: Advisory,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
			assert.Equal(t, tc.kind, KindOf(tc.err))
			assert.True(t, Is(tc.err, tc.kind))
		})
	}
}

func TestAtAndWrap(t *testing.T) {
	base := Unsupportedf("LEB128 pointer")
	at := base.At(0x10)
	assert.False(t, base.HasOffset)
	assert.Equal(t, "LEB128 pointer at offset 0x10", at.Error())

	cause := errors.New("boom")
	wrapped := at.Wrap(cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, Unsupported, KindOf(wrapped))
	assert.False(t, Is(nil, Malformed))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
}
