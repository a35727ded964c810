package session

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/RobertLeahy/MCPP-sub000/internal/netio"
)

// LegacyPingMagic is the first byte of a pre-1.7 server-list-ping request.
// Clients speaking that era never enter the varint-framed state machine at
// all (spec §9 open question: the legacy ping/kick pair are the only ids
// kept on the UTF-16BE wire).
const LegacyPingMagic = 0xFE

// IsLegacyPing reports whether b opens with the legacy ping magic byte.
func IsLegacyPing(b []byte) bool {
	return len(b) > 0 && b[0] == LegacyPingMagic
}

// LegacyStatus is the information a legacy client-list-ping response
// carries.
type LegacyStatus struct {
	ProtocolVersion byte
	ServerVersion   string
	MOTD            string
	OnlinePlayers   int
	MaxPlayers      int
}

// RespondLegacyPing enqueues a legacy 0xFF kick packet containing the
// §-delimited status string, encoded UTF-16BE per the pre-netty wire, and
// then shuts the connection down (the legacy path never reaches Play).
func RespondLegacyPing(conn *netio.Connection, status LegacyStatus) {
	fields := []string{
		"§1",
		strconv.Itoa(int(status.ProtocolVersion)),
		status.ServerVersion,
		status.MOTD,
		strconv.Itoa(status.OnlinePlayers),
		strconv.Itoa(status.MaxPlayers),
	}
	payload := strings.Join(fields, "\x00")

	utf16 := encodeUTF16BE(payload)
	var out []byte
	out = append(out, 0xFF)
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(utf16)/2))
	out = append(out, lenBuf[:]...)
	out = append(out, utf16...)

	job := netio.NewSendJob(out)
	conn.Send(job)
	conn.Shutdown("legacy ping")
}

// encodeUTF16BE encodes s (assumed to be within the Basic Multilingual
// Plane, as every legacy status field is) as big-endian UTF-16 code units.
func encodeUTF16BE(s string) []byte {
	runes := []rune(s)
	out := make([]byte, 0, len(runes)*2)
	for _, r := range runes {
		var buf [2]byte
		binary.BigEndian.PutUint16(buf[:], uint16(r))
		out = append(out, buf[:]...)
	}
	return out
}
