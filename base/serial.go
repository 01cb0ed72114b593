package base

import "time"

type SerialDataBits int
type SerialParity int
type SerialStopBits int

const (
	Serial7DataBits          SerialDataBits = 7
	Serial8DataBits          SerialDataBits = 8
	SerialNoParity           SerialParity   = 1
	SerialOddParity          SerialParity   = 2
	SerialEvenParity         SerialParity   = 3
	SerialMarkParity         SerialParity   = 4
	SerialSpaceParity        SerialParity   = 5
	SerialOneStopBit         SerialStopBits = 1
	SerialTwoStopBits        SerialStopBits = 2
	SerialOneAndHalfStopBits SerialStopBits = 3
)

type SerialStreamSettings struct {
	Device      string
	BaudRate    int
	DataBits    SerialDataBits
	Parity      SerialParity
	StopBits    SerialStopBits
	ReadTimeout time.Duration // zero blocks forever
}
