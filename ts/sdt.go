package ts

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrIllegalSection = errors.New("illegal SDT section")
	ErrCRCMismatch    = errors.New("section CRC mismatch")
)

// ParseSDTSection parses one complete SDT section, table_id through CRC_32.
func ParseSDTSection(payload []byte, verifyCRC bool) (*SDTFrame, error) {
	if len(payload) < SDTHeaderLength+CRCLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrIllegalSection, len(payload))
	}
	tableID := payload[0]
	if tableID != SDTActualTID && tableID != SDTOtherTID {
		return nil, fmt.Errorf("%w: table id 0x%02x", ErrIllegalSection, tableID)
	}
	if payload[1]&0x80 == 0 {
		return nil, fmt.Errorf("%w: section_syntax_indicator not set", ErrIllegalSection)
	}
	sectionLen := int(binary.BigEndian.Uint16(payload[1:3])&0xfff) + 3
	if sectionLen > len(payload) || sectionLen < SDTHeaderLength+CRCLength {
		return nil, fmt.Errorf("%w: section_length %d for %d bytes", ErrIllegalSection, sectionLen-3, len(payload))
	}
	payload = payload[:sectionLen]
	if verifyCRC && CRC32(payload) != 0 {
		return nil, ErrCRCMismatch
	}

	frame := SDTFrame{}
	frame.TableID = tableID
	frame.TransportStreamID = binary.BigEndian.Uint16(payload[3:5])
	frame.Version = payload[5] & 0b00111110 >> 1
	frame.CurrentNext = payload[5]&1 == 1
	frame.Section = payload[6]
	frame.LastSection = payload[7]
	frame.OriginalNetworkID = binary.BigEndian.Uint16(payload[8:10])
	frame.Entries = make([]SDTFrameEntry, 0)

	remaining := payload[SDTHeaderLength : sectionLen-CRCLength]
	for len(remaining) > 0 {
		if len(remaining) < 5 {
			return nil, fmt.Errorf("%w: truncated service entry", ErrIllegalSection)
		}
		entry := SDTFrameEntry{}
		entry.ServiceID = binary.BigEndian.Uint16(remaining[0:2])
		entry.EITScheduleFlag = remaining[2]&0x02 == 0x02
		entry.EITPresentFollowingFlag = remaining[2]&0x01 == 0x01
		entry.RunningState = SDTRunningState(remaining[3] >> 5)
		entry.FreeCAMode = remaining[3]&0x10 == 0x10
		descLen := int(binary.BigEndian.Uint16(remaining[3:5]) & 0xfff)
		if 5+descLen > len(remaining) {
			return nil, fmt.Errorf("%w: descriptors_loop_length %d overruns service 0x%04x", ErrIllegalSection, descLen, entry.ServiceID)
		}
		descriptors, err := ExtractDescriptors(remaining[5 : 5+descLen])
		if err != nil {
			return nil, fmt.Errorf("service 0x%04x: %w", entry.ServiceID, err)
		}
		entry.Descriptors = descriptors
		frame.Entries = append(frame.Entries, entry)
		remaining = remaining[5+descLen:]
	}
	return &frame, nil
}

func parseSDT(payload []byte, d *Decoder) (Frame, error) {
	return ParseSDTSection(payload, d.verifyCRC)
}

// ExtractDescriptors splits a descriptor loop. The returned Data slices
// alias loop.
func ExtractDescriptors(loop []byte) ([]Descriptor, error) {
	descriptors := make([]Descriptor, 0)
	for len(loop) > 0 {
		if len(loop) < 2 {
			return nil, fmt.Errorf("%w: dangling descriptor header", ErrIllegalSection)
		}
		tagID := loop[0]
		tagLen := int(loop[1])
		if 2+tagLen > len(loop) {
			return nil, fmt.Errorf("%w: descriptor 0x%02x length %d overruns loop", ErrIllegalSection, tagID, tagLen)
		}
		descriptors = append(descriptors, Descriptor{Tag: tagID, Data: loop[2 : 2+tagLen]})
		loop = loop[2+tagLen:]
	}
	return descriptors, nil
}

func (f *SDTFrame) IsParsed() bool {
	return true
}
