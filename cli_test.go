package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zlm2012/sdtscan/ts"
)

// sdtSection builds an SDT section holding one service with the given
// descriptor loop.
func sdtSection(tableID uint8, onid, tsid, sid uint16, freeCA bool, descs []byte) []byte {
	loop := uint16(len(descs)) | uint16(ts.Running)<<13
	if freeCA {
		loop |= 0x1000
	}
	body := []byte{byte(sid >> 8), byte(sid), 0xfd, byte(loop >> 8), byte(loop)}
	body = append(body, descs...)
	sectionLen := ts.SDTHeaderLength - 3 + len(body) + ts.CRCLength
	section := []byte{
		tableID, 0xf0 | byte(sectionLen>>8), byte(sectionLen),
		byte(tsid >> 8), byte(tsid),
		0xc1 | 3<<1, 0x00, 0x00,
		byte(onid >> 8), byte(onid),
		0xff,
	}
	section = append(section, body...)
	crc := ts.CRC32(section)
	return append(section, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
}

// tsPacket wraps a section that fits one packet.
func tsPacket(counter uint8, section []byte) []byte {
	pkt := bytes.Repeat([]byte{0xff}, int(ts.PacketLength))
	pkt[0] = ts.TsSyncCode
	pkt[1] = 0x40
	pkt[2] = byte(ts.SDTPID)
	pkt[3] = ts.PayloadFlagMask | counter&ts.CounterMask
	pkt[4] = 0
	copy(pkt[5:], section)
	return pkt
}

var starDescriptors = []byte{
	ts.ServiceDescTagID, 11, 0x01, 4, 'D', 'i', 's', 'h', 4, 'S', 't', 'a', 'r',
	ts.ContentDescTagID, 4, 0x01, 0x00, 0x03, 0x00,
	ts.PriceTagDescTagID, 8, 1, 1, 0, 0, 2, 0, 1, 0,
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newCLIApp(&out).Run(append([]string{"sdtscan", "--log-level", "error"}, args...))
	return out.String(), err
}

func TestScanCommand(t *testing.T) {
	actual := sdtSection(ts.SDTActualTID, 0x46, 0x05, 0x101, true, starDescriptors)
	other := sdtSection(ts.SDTOtherTID, 0x46, 0x06, 0x201, false, nil)
	stream := append(tsPacket(0, actual), tsPacket(1, other)...)

	path := filepath.Join(t.TempDir(), "cap.ts")
	require.NoError(t, os.WriteFile(path, stream, 0o644))

	out, err := runApp(t, "--record-tags", "scan", path)
	require.NoError(t, err)

	var res scanResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, uint16(0x46), res.OriginalNetworkID)
	assert.Equal(t, uint16(0x05), res.TransportStreamID)
	assert.Equal(t, uint8(3), res.SDTActualVersion)
	assert.Equal(t, 2, res.Sections)
	assert.Zero(t, res.SkippedSections)
	assert.NotEmpty(t, res.Session)
	assert.Equal(t, []int{0x48, 0x54, 0x87}, res.ObservedTags)

	require.Len(t, res.Services, 2)
	star := res.Services[0]
	assert.Equal(t, "0046.0005.0101", star.Key)
	assert.Equal(t, "Star", star.Name)
	assert.Equal(t, "Dish", star.ProviderName)
	assert.True(t, star.Scrambled)
	assert.Equal(t, ",1,", star.Genre)
	assert.Equal(t, uint32(256), star.PriceTag)
	assert.Equal(t, uint32(2), star.NumberOfHDChannels)
	assert.Equal(t, uint16(0x201), res.Services[1].ServiceID)
	assert.False(t, res.Services[1].Scrambled)
}

func TestScanSkipsBadCRC(t *testing.T) {
	bad := sdtSection(ts.SDTActualTID, 0x46, 0x05, 0x101, false, nil)
	bad[len(bad)-1] ^= 0xff
	path := filepath.Join(t.TempDir(), "bad.ts")
	require.NoError(t, os.WriteFile(path, tsPacket(0, bad), 0o644))

	out, err := runApp(t, "scan", path)
	require.NoError(t, err)
	var res scanResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.SkippedSections)
	assert.Empty(t, res.Services)

	out, err = runApp(t, "--no-crc", "scan", path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Len(t, res.Services, 1)
}

func TestScanErrors(t *testing.T) {
	_, err := runApp(t, "scan")
	assert.Error(t, err)

	_, err = runApp(t, "scan", filepath.Join(t.TempDir(), "missing.ts"))
	assert.Error(t, err)

	_, err = runApp(t, "--output", "xml", "scan", "-")
	assert.Error(t, err)
}

func TestSectionCommandYAML(t *testing.T) {
	raw := hex.EncodeToString(sdtSection(ts.SDTActualTID, 0x46, 0x05, 0x101, false, starDescriptors))
	out, err := runApp(t, "--output", "yaml", "section", raw)
	require.NoError(t, err)

	var res scanResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	require.Len(t, res.Services, 1)
	assert.Equal(t, "Star", res.Services[0].Name)

	_, err = runApp(t, "section", "zz")
	assert.Error(t, err)
	_, err = runApp(t, "section", "4200")
	assert.Error(t, err)
}

func TestGenreCommand(t *testing.T) {
	out, err := runApp(t, "genre", "1", "3", "18", "888")
	require.NoError(t, err)

	var res genreResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, ",1,18,888,", res.Genre)
	require.Len(t, res.Codes, 4)
	assert.False(t, res.Codes[1].Allowed)
	assert.Empty(t, res.Codes[3].Category)

	out, err = runApp(t, "genre")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, ",,", res.Genre)

	_, err = runApp(t, "genre", "x")
	assert.Error(t, err)
}

func TestObservedTagsPrintedAsNumbers(t *testing.T) {
	raw := hex.EncodeToString(sdtSection(ts.SDTActualTID, 0x46, 0x05, 0x101, false, starDescriptors))

	out, err := runApp(t, "--record-tags", "section", raw)
	require.NoError(t, err)
	assert.Contains(t, out, `"observed_tags": [`)
	assert.Regexp(t, `"observed_tags": \[\s*72,\s*84,\s*135\s*\]`, out)

	out, err = runApp(t, "--record-tags", "--output", "yaml", "section", raw)
	require.NoError(t, err)
	var res scanResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, []int{72, 84, 135}, res.ObservedTags)
}

func TestGenreCommandYAML(t *testing.T) {
	out, err := runApp(t, "--output", "yaml", "genre", "4", "46")
	require.NoError(t, err)
	var res genreResult
	require.NoError(t, yaml.Unmarshal([]byte(out), &res))
	assert.Equal(t, ",4,46,", res.Genre)

	_, err = runApp(t, "--output", "xml", "genre", "4")
	assert.Error(t, err)
}
