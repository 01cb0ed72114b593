package base

import (
	"fmt"
	"strings"
)

var classNames = map[int]string{
	1: "Data", 3: "Register", 6: "RegisterActivation", 7: "ProfileGeneric",
	9: "ScriptTable", 11: "SpecialDaysTable", 18: "ImageTransfer",
	20: "ActivityCalendar", 22: "ActionSchedule", 23: "IecHdlcSetup",
	29: "AutoConnect", 40: "PushSetup", 41: "TcpUdpSetup", 42: "Ip4Setup",
	45: "GprsSetup", 47: "GSMDiagnostic", 64: "SecuritySetup",
	70: "DisconnectControl", 71: "Limiter", 124: "CommunicationPortProtection",
}

// keys are upper case hex of the 6 obis bytes
var obisNames = map[string]string{
	"0100620000FF": "Clock",
	"0000190900FF": "Push1",
	"0000290900FF": "Push2",
	"0000390900FF": "Push3",
	"0000A90900FF": "Push4",
	"0000B90900FF": "Push5",
}

// EventStatusObis holds the event status word of a push.
const EventStatusObis = "0.0.97.98.0.255"

// bits of the event status word
var eventDescriptions = [32]string{
	"Self-diagnostic journal event",
	"Voltage interruption (GOST 32144-2013)",
	"Power quality journal event",
	"Magnetic field influence - start",
	"Terminal cover opened - start",
	"Case opened - start",
	"Active power limit exceeded",
	"Relay tripped by maximum current",
	"Relay tripped by magnetic field",
	"Relay tripped by maximum voltage",
	"Relay tripped by current imbalance",
	"Relay tripped by overtemperature",
	"Discrete inputs state changed",
	"Programming journal event",
	"Current imbalance - start",
	"Relay tripped by event matrix",
	"Relay returned to closed state",
	"Low voltage neutral conductor break (solidly grounded neutral)",
	"Low voltage phase conductor break or short circuit (solidly grounded neutral)",
	"Medium voltage phase conductor break (isolated neutral)",
	"Voltage interruption longer than 10 hours (GOST 32144-2013)",
	"Reserved (SPODES)",
	"Reserved (SPODES)",
	"Reserved (SPODES)",
	"Magnetic field influence - end",
	"Terminal cover opened - end",
	"Case opened - end",
	"Current imbalance - end",
	"Reserved",
	"Reserved",
	"Reserved",
	"Reserved",
}

func ClassName(id int) (string, bool) {
	n, ok := classNames[id]
	return n, ok
}

func ObisName(hex string) (string, bool) {
	n, ok := obisNames[strings.ToUpper(hex)]
	return n, ok
}

// EventDescription describes a single bit of the event status word.
func EventDescription(bit int) (string, bool) {
	if bit < 0 || bit >= len(eventDescriptions) {
		return "", false
	}
	return eventDescriptions[bit], true
}

// ActiveEvents lists descriptions of all set bits, lowest bit first.
func ActiveEvents(word uint32) []string {
	var r []string
	for i := range len(eventDescriptions) {
		if word&(1<<i) == 0 {
			continue
		}
		if d, ok := EventDescription(i); ok {
			r = append(r, fmt.Sprintf("bit %2d: %s", i, d))
		}
	}
	return r
}
