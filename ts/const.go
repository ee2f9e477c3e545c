package ts

const (
	PacketLength uint32 = 188

	TsSyncCode          uint8  = 'G'
	PUSI                uint16 = 0x4000
	PIDMask             uint16 = 0x1fff
	AdaptationFieldMask uint8  = 0x20
	PayloadFlagMask     uint8  = 0x10
	CounterMask         uint8  = 0xf

	SDTPID uint16 = 0x11

	SDTActualTID uint8 = 0x42
	SDTOtherTID  uint8 = 0x46

	// section header through reserved_future_use, and the trailing CRC
	SDTHeaderLength = 11
	CRCLength       = 4

	ServiceDescTagID             uint8 = 0x48
	LinkageDescTagID             uint8 = 0x4a
	CAIdentifierDescTagID        uint8 = 0x53
	ContentDescTagID             uint8 = 0x54
	ServiceAvailabilityDescTagID uint8 = 0x72
	// user defined range; carries package price and HD channel count
	PriceTagDescTagID uint8 = 0x87

	LinkageServiceReplacement LinkageType = 0x05
)

const (
	RunningUndefined SDTRunningState = iota
	RunningNotRunning
	RunningStartsSoon
	RunningPausing
	Running
	RunningOffAir
)

func (s SDTRunningState) String() string {
	switch s {
	case RunningUndefined:
		return "undefined"
	case RunningNotRunning:
		return "not running"
	case RunningStartsSoon:
		return "starts in a few seconds"
	case RunningPausing:
		return "pausing"
	case Running:
		return "running"
	case RunningOffAir:
		return "service off-air"
	default:
		return "reserved"
	}
}
