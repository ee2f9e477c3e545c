package ts

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// packetize splits sections into 188 byte packets on pid. Every section
// starts a new packet with pointer_field 0; the tail is stuffed with 0xff.
func packetize(pid uint16, counter uint8, sections ...[]byte) []byte {
	var out []byte
	for _, section := range sections {
		first := true
		for len(section) > 0 || first {
			pkt := make([]byte, PacketLength)
			for i := range pkt {
				pkt[i] = 0xff
			}
			pkt[0] = TsSyncCode
			pkt[1] = byte(pid>>8) & 0x1f
			pkt[2] = byte(pid)
			pkt[3] = PayloadFlagMask | counter&CounterMask
			body := pkt[4:]
			if first {
				pkt[1] |= 0x40
				body[0] = 0
				body = body[1:]
				first = false
			}
			n := copy(body, section)
			section = section[n:]
			out = append(out, pkt...)
			counter++
		}
	}
	return out
}

func readAll(t *testing.T, d *Decoder) ([]*SDTFrame, []error) {
	t.Helper()
	var frames []*SDTFrame
	var errs []error
	for {
		frame, err := d.ReadNextSDTFrame()
		if err == io.EOF {
			return frames, errs
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		frames = append(frames, frame)
	}
}

func TestDecoderReassemblesAcrossPackets(t *testing.T) {
	// a long service name forces the section over two packets
	name := bytes.Repeat([]byte{'N'}, 200)
	svc := append([]byte{ServiceDescTagID, byte(3 + len(name)), 0x01, 0, byte(len(name))}, name...)
	big := buildSDTSection(SDTActualTID, 1, 2, 3, testService{id: 0x10, descriptors: svc})
	small := buildSDTSection(SDTOtherTID, 4, 5, 6, testService{id: 0x20})
	require.Greater(t, len(big), int(PacketLength))

	stream := packetize(SDTPID, 0, big, small)
	// unrelated pid in between is skipped
	stream = append(packetize(0x12, 0, []byte{0x4e, 0xf0, 0x00}), stream...)

	frames, errs := readAll(t, NewDecoder(bytes.NewReader(stream)))
	require.Empty(t, errs)
	require.Len(t, frames, 2)
	assert.Equal(t, uint16(0x10), frames[0].Entries[0].ServiceID)
	assert.Equal(t, name, frames[0].Entries[0].Descriptors[0].Data[3:])
	assert.Equal(t, SDTOtherTID, frames[1].TableID)
}

func TestDecoderMultipleSectionsInOnePacket(t *testing.T) {
	a := buildSDTSection(SDTActualTID, 1, 1, 0, testService{id: 1})
	b := buildSDTSection(SDTActualTID, 1, 1, 0, testService{id: 2})
	stream := packetize(SDTPID, 5, append(append([]byte(nil), a...), b...))

	frames, errs := readAll(t, NewDecoder(bytes.NewReader(stream)))
	require.Empty(t, errs)
	require.Len(t, frames, 2)
	assert.Equal(t, uint16(1), frames[0].Entries[0].ServiceID)
	assert.Equal(t, uint16(2), frames[1].Entries[0].ServiceID)
}

func TestDecoderDropsDiscontinuity(t *testing.T) {
	name := bytes.Repeat([]byte{'x'}, 250)
	svc := append([]byte{ServiceDescTagID, byte(3 + len(name)), 0x01, 0, byte(len(name))}, name...)
	big := buildSDTSection(SDTActualTID, 1, 1, 0, testService{id: 1, descriptors: svc})
	stream := packetize(SDTPID, 0, big)
	// corrupt the continuity counter of the second packet
	stream[PacketLength+3] = PayloadFlagMask | 0x7

	frames, errs := readAll(t, NewDecoder(bytes.NewReader(stream)))
	assert.Empty(t, frames)
	assert.Empty(t, errs)
}

func TestDecoderReportsBadCRC(t *testing.T) {
	section := buildSDTSection(SDTActualTID, 1, 1, 0, testService{id: 1})
	section[len(section)-1] ^= 0x01
	stream := packetize(SDTPID, 0, section)

	frames, errs := readAll(t, NewDecoder(bytes.NewReader(stream)))
	assert.Empty(t, frames)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrCRCMismatch)

	frames, errs = readAll(t, NewDecoder(bytes.NewReader(stream), WithCRCCheck(false)))
	assert.Len(t, frames, 1)
	assert.Empty(t, errs)
}

func TestDecoderSyncLoss(t *testing.T) {
	stream := packetize(SDTPID, 0, buildSDTSection(SDTActualTID, 1, 1, 0))
	stream[0] = 0x00
	_, err := NewDecoder(bytes.NewReader(stream)).ReadNextSDTFrame()
	assert.ErrorIs(t, err, ErrNoSync)
}

func TestDecoderTruncatedTail(t *testing.T) {
	stream := packetize(SDTPID, 0, buildSDTSection(SDTActualTID, 1, 1, 0, testService{id: 9}))
	stream = append(stream, TsSyncCode, 0x00)
	frames, errs := readAll(t, NewDecoder(bytes.NewReader(stream)))
	assert.Len(t, frames, 1)
	assert.Empty(t, errs)
}
