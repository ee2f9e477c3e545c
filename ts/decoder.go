package ts

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/zlm2012/sdtscan/logger"
)

var ErrNoSync = errors.New("no valid TS sync code")

// maximum private section size, section_length is 12 bits
const maxSectionLength = 4096

type frameBuffer struct {
	buf         []byte
	lastCounter uint8
	sectionLen  int
}

func newFrameBuffer(start []byte, counter uint8) *frameBuffer {
	fb := &frameBuffer{buf: append([]byte(nil), start...), lastCounter: counter, sectionLen: -1}
	fb.readLength()
	return fb
}

func (b *frameBuffer) readLength() {
	if b.sectionLen < 0 && len(b.buf) >= 3 {
		b.sectionLen = int(binary.BigEndian.Uint16(b.buf[1:3])&0xfff) + 3
	}
}

func (b *frameBuffer) complete() bool {
	b.readLength()
	return b.sectionLen >= 0 && len(b.buf) >= b.sectionLen
}

type Decoder struct {
	tsReader   io.Reader
	log        logger.Logger
	verifyCRC  bool
	pidBuffer  map[uint16]*frameBuffer
	pidToParse map[uint16]func([]byte, *Decoder) (Frame, error)
	ready      []readySection
}

type readySection struct {
	pid     uint16
	section []byte
}

type Frame interface {
	IsParsed() bool
	GetType() string
}

type DecoderOption func(*Decoder)

func WithLogger(l logger.Logger) DecoderOption {
	return func(d *Decoder) { d.log = l }
}

// WithCRCCheck toggles CRC_32 verification of reassembled sections.
func WithCRCCheck(verify bool) DecoderOption {
	return func(d *Decoder) { d.verifyCRC = verify }
}

func NewDecoder(reader io.Reader, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		tsReader:   reader,
		log:        logger.NewNop(),
		verifyCRC:  true,
		pidBuffer:  make(map[uint16]*frameBuffer),
		pidToParse: map[uint16]func([]byte, *Decoder) (Frame, error){SDTPID: parseSDT},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ReadNextSDTFrame returns the next reassembled SDT section. Sections that
// fail to parse are returned as errors; the decoder stays usable and the
// caller may keep reading. io.EOF marks the end of the stream.
func (d *Decoder) ReadNextSDTFrame() (*SDTFrame, error) {
	for {
		frame, err := d.ParseNext()
		if err != nil {
			return nil, err
		}
		if sdt, ok := frame.(*SDTFrame); ok {
			return sdt, nil
		}
	}
}

func (d *Decoder) ParseNext() (Frame, error) {
	for {
		if len(d.ready) > 0 {
			next := d.ready[0]
			d.ready = d.ready[1:]
			return d.pidToParse[next.pid](next.section, d)
		}

		buf, err := d.readNextTSPacket()
		if err != nil {
			return nil, err
		}
		FlagPIDCombo := binary.BigEndian.Uint16(buf[1:3])
		isPUSI := PUSI&FlagPIDCombo == PUSI
		PID := FlagPIDCombo & PIDMask
		if _, ok := d.pidToParse[PID]; !ok {
			continue
		}
		// no payload
		if PayloadFlagMask&buf[3] != PayloadFlagMask {
			continue
		}
		counter := buf[3] & CounterMask
		payload, ok := getPayload(buf)
		if !ok {
			d.log.Warn("adaptation field overruns packet", logger.Uint16("pid", PID))
			delete(d.pidBuffer, PID)
			continue
		}

		pidBuf, pidBufOk := d.pidBuffer[PID]
		if pidBufOk {
			if pidBuf.lastCounter == counter {
				// duplicate packet
				continue
			}
			if !((pidBuf.lastCounter == 0xf && counter == 0) || pidBuf.lastCounter+1 == counter) {
				d.log.Warn("counter is not in continuity", logger.Uint16("pid", PID))
				// drop buffer unable to be parsed
				delete(d.pidBuffer, PID)
				pidBufOk = false
			}
		}

		if !isPUSI {
			if !pidBufOk {
				// ignore
				continue
			}
			pidBuf.lastCounter = counter
			pidBuf.buf = append(pidBuf.buf, payload...)
			d.drain(PID, pidBuf)
			continue
		}

		payloadOffset := int(payload[0])
		if 1+payloadOffset > len(payload) {
			d.log.Warn("pointer_field overruns packet", logger.Uint16("pid", PID))
			delete(d.pidBuffer, PID)
			continue
		}
		if pidBufOk {
			pidBuf.buf = append(pidBuf.buf, payload[1:1+payloadOffset]...)
			d.drain(PID, pidBuf)
		}
		delete(d.pidBuffer, PID)
		if newPayload := payload[1+payloadOffset:]; len(newPayload) > 0 && newPayload[0] != 0xff {
			fb := newFrameBuffer(newPayload, counter)
			d.pidBuffer[PID] = fb
			d.drain(PID, fb)
		}
	}
}

// drain queues every complete section held by buf. Bytes after the last
// complete section stay buffered unless they are stuffing.
func (d *Decoder) drain(PID uint16, buf *frameBuffer) {
	for buf.complete() {
		if buf.sectionLen > maxSectionLength {
			d.log.Warn("section_length too large", logger.Int("length", buf.sectionLen), logger.Uint16("pid", PID))
			delete(d.pidBuffer, PID)
			return
		}
		d.ready = append(d.ready, readySection{pid: PID, section: buf.buf[:buf.sectionLen]})
		rest := buf.buf[buf.sectionLen:]
		if len(rest) == 0 || rest[0] == 0xff {
			delete(d.pidBuffer, PID)
			return
		}
		buf.buf = append([]byte(nil), rest...)
		buf.sectionLen = -1
	}
	if buf.sectionLen > maxSectionLength {
		d.log.Warn("section_length too large", logger.Int("length", buf.sectionLen), logger.Uint16("pid", PID))
		delete(d.pidBuffer, PID)
	}
}

func getPayload(packet []byte) ([]byte, bool) {
	hasAdaptationField := AdaptationFieldMask&packet[3] == AdaptationFieldMask
	adaptationLen := 0
	if hasAdaptationField {
		adaptationLen = 1 + int(packet[4])
	}
	if 4+adaptationLen >= len(packet) {
		return nil, false
	}
	return packet[4+adaptationLen:], true
}

func (d *Decoder) readNextTSPacket() ([]byte, error) {
	buf := make([]byte, PacketLength)
	if _, err := io.ReadFull(d.tsReader, buf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			d.log.Warn("truncated trailing packet")
			return nil, io.EOF
		}
		return nil, err
	}
	if buf[0] != TsSyncCode {
		return nil, ErrNoSync
	}
	return buf, nil
}
