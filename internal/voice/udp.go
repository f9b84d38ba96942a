package voice

import (
	"encoding/binary"
	"errors"
	"net"
	"strconv"
)

// ipDiscoveryPacketLen is the wire size of the IP-discovery request/reply,
// per spec.md §6: `{type:u16=1, length:u16=70, ssrc:u32, address:60 bytes
// zero, port:u16}`. The address field is sized so the whole packet totals
// exactly 70 bytes.
const (
	ipDiscoveryPacketLen = 70
	ipDiscoveryAddrLen   = 60
)

func buildIPDiscoveryRequest(ssrc uint32) []byte {
	buf := make([]byte, ipDiscoveryPacketLen)
	binary.BigEndian.PutUint16(buf[0:2], 1) // type: request
	binary.BigEndian.PutUint16(buf[2:4], ipDiscoveryPacketLen)
	binary.BigEndian.PutUint32(buf[4:8], ssrc)
	// address (60 bytes) left zeroed, port (2 bytes) left zeroed.
	return buf
}

// parseIPDiscoveryReply extracts the externally observed address/port from
// a 70-byte IP-discovery reply.
func parseIPDiscoveryReply(buf []byte) (ip string, port uint16, err error) {
	if len(buf) < ipDiscoveryPacketLen {
		return "", 0, errors.New("ip discovery reply too short")
	}
	addr := buf[8 : 8+ipDiscoveryAddrLen]
	end := 0
	for end < len(addr) && addr[end] != 0 {
		end++
	}
	port = binary.BigEndian.Uint16(buf[ipDiscoveryPacketLen-2 : ipDiscoveryPacketLen])
	return string(addr[:end]), port, nil
}

// dialVoiceUDP opens the UDP socket used for RTP audio and IP discovery.
func dialVoiceUDP(host string, port int) (*net.UDPConn, error) {
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, err
	}
	return net.DialUDP("udp", nil, addr)
}
