package hdlc

// buildFrame assembles an inbound frame with correct HCS and FCS in wire order.
func buildFrame(dst, src []byte, control byte, info []byte) []byte {
	length := 2 + len(dst) + len(src) + 1 + 2
	if len(info) > 0 {
		length += 2 + len(info)
	}
	fr := []byte{flag, formatType | byte(length>>8), byte(length)}
	fr = append(fr, dst...)
	fr = append(fr, src...)
	fr = append(fr, control)
	if len(info) > 0 {
		hcs := ComputeFCS(fr[1:])
		fr = append(fr, byte(hcs), byte(hcs>>8))
		fr = append(fr, info...)
	}
	fcs := ComputeFCS(fr[1:])
	fr = append(fr, byte(fcs), byte(fcs>>8))
	return append(fr, flag)
}
