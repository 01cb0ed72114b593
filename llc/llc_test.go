package llc

import (
	"testing"

	"github.com/cybroslabs/dlms-push-listener/base"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrip(t *testing.T) {
	p, d, err := Strip([]byte{0xe6, 0xe7, 0x00, 0x0f, 0x01})
	require.NoError(t, err)
	assert.Equal(t, DirectionResponse, d)
	assert.Equal(t, []byte{0x0f, 0x01}, p)

	p, d, err = Strip([]byte{0xe6, 0xe6, 0x00})
	require.NoError(t, err)
	assert.Equal(t, DirectionRequest, d)
	assert.Empty(t, p)
}

func TestStripInvalid(t *testing.T) {
	_, _, err := Strip([]byte{0xe6, 0xe7})
	assert.ErrorIs(t, err, base.ErrFrameTooShort)

	for _, h := range [][]byte{{0xe6, 0xe7, 0x01}, {0xe7, 0xe7, 0x00}, {0xe6, 0x00, 0x00}} {
		_, d, err := Strip(h)
		assert.ErrorIs(t, err, base.ErrInvalidFrame, "%X", h)
		assert.Equal(t, DirectionUnknown, d)
	}
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []byte{0xe6, 0xe7, 0x00, 0x10}, Wrap(DirectionResponse, []byte{0x10}))
	assert.Equal(t, []byte{0xe6, 0xe6, 0x00}, Wrap(DirectionRequest, nil))
	assert.Equal(t, "response", DirectionResponse.String())
}
