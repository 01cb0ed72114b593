package base

import "errors"

var ErrMalformedHex = errors.New("malformed hex")
var ErrUnsupportedValueShape = errors.New("unsupported value shape")
var ErrFrameTooShort = errors.New("frame too short")
var ErrMissingInvokeId = errors.New("missing invoke id")
var ErrXmlDecodeFailure = errors.New("decoder produced no tree")
var ErrResponseConstruction = errors.New("response construction failed")
var ErrInvalidInput = errors.New("invalid input")
var ErrInvalidFrame = errors.New("invalid hdlc frame")
var ErrChecksum = errors.New("checksum mismatch")
