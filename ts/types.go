package ts

import "fmt"

// Descriptor is one tag/length delimited record; Data excludes the two
// header bytes.
type Descriptor struct {
	Tag  uint8
	Data []byte
}

type SDTFrameEntry struct {
	ServiceID               uint16
	EITScheduleFlag         bool
	EITPresentFollowingFlag bool
	RunningState            SDTRunningState
	FreeCAMode              bool
	Descriptors             []Descriptor
}

type SDTFrame struct {
	TableID           uint8
	TransportStreamID uint16
	Version           uint8
	CurrentNext       bool
	Section           uint8
	LastSection       uint8
	OriginalNetworkID uint16
	Entries           []SDTFrameEntry
}

func (f *SDTFrame) IsActual() bool {
	return f.TableID == SDTActualTID
}

func (f *SDTFrame) GetType() string {
	if f.IsActual() {
		return "SDT-Act"
	}
	return "SDT-Oth"
}

type SDTRunningState uint8
type ServiceType uint8
type LinkageType uint8

func (t ServiceType) String() string {
	switch t {
	case 0x01:
		return "digital television"
	case 0x02:
		return "digital radio sound"
	case 0x03:
		return "teletext"
	case 0x0c:
		return "data broadcast"
	case 0x11:
		return "MPEG-2 HD digital television"
	case 0x16:
		return "H.264/AVC SD digital television"
	case 0x19:
		return "H.264/AVC HD digital television"
	case 0x1f:
		return "HEVC digital television"
	default:
		return fmt.Sprintf("0x%02x", uint8(t))
	}
}
