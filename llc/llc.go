package llc

import (
	"fmt"

	"github.com/cybroslabs/dlms-push-listener/base"
)

const headerLength = 3

type Direction int

const (
	DirectionUnknown Direction = iota
	// E6 E6 00, client to server
	DirectionRequest
	// E6 E7 00, server to client, pushes included
	DirectionResponse
)

var (
	RequestHeader  = [headerLength]byte{0xe6, 0xe6, 0x00}
	ResponseHeader = [headerLength]byte{0xe6, 0xe7, 0x00}
)

func (d Direction) String() string {
	switch d {
	case DirectionRequest:
		return "request"
	case DirectionResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Strip removes the LLC header from an HDLC information field.
func Strip(info []byte) ([]byte, Direction, error) {
	if len(info) < headerLength {
		return nil, DirectionUnknown, fmt.Errorf("%w: too short LLC header", base.ErrFrameTooShort)
	}
	if info[0] != 0xe6 || info[2] != 0 {
		return nil, DirectionUnknown, fmt.Errorf("%w: invalid LLC header %X", base.ErrInvalidFrame, info[:headerLength])
	}
	switch info[1] {
	case 0xe6:
		return info[headerLength:], DirectionRequest, nil
	case 0xe7:
		return info[headerLength:], DirectionResponse, nil
	}
	return nil, DirectionUnknown, fmt.Errorf("%w: invalid LLC header %X", base.ErrInvalidFrame, info[:headerLength])
}

// Wrap prepends the header of the given direction.
func Wrap(dir Direction, apdu []byte) []byte {
	h := ResponseHeader
	if dir == DirectionRequest {
		h = RequestHeader
	}
	r := make([]byte, 0, headerLength+len(apdu))
	r = append(r, h[:]...)
	return append(r, apdu...)
}
