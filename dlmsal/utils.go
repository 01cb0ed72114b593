package dlmsal

import (
	"fmt"
	"io"
)

type tmpbuffer [128]byte

func decodelength(src io.Reader, tmp *tmpbuffer) (uint, int, error) {
	_, err := io.ReadFull(src, tmp[:1])
	if err != nil {
		return 0, 0, err
	}
	b := tmp[0]
	if b < 128 {
		return uint(b), 1, nil
	}
	if b == 128 {
		return 0, 0, fmt.Errorf("unsupported infinite length")
	}
	r := uint(0)
	c := int(b & 0x7f)
	if c > 4 {
		return 0, 0, fmt.Errorf("too much bytes for length")
	}
	_, err = io.ReadFull(src, tmp[:c])
	if err != nil {
		return 0, 0, err
	}
	for i := range c {
		r = (r << 8) | uint(tmp[i])
	}
	return r, c + 1, nil
}

func newcopy(src []byte) []byte {
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}
