package voice

// receiveLoop reads sealed RTP packets off the UDP socket, opens them
// with the session key, and emits OnReceive with the resolved user id
// (0 if the ssrc hasn't appeared in a SPEAKING frame yet), per spec.md
// §4.5.2.
func (c *Connection) receiveLoop() {
	buf := make([]byte, 4096)
	for c.active.Load() {
		n, err := c.udp.Read(buf)
		if err != nil {
			return
		}
		if n < rtpHeaderLen {
			continue
		}
		header := buf[:rtpHeaderLen]
		_, _, ssrc, ok := parseRTPHeader(header)
		if !ok {
			continue
		}
		opened, err := openRTP(header, buf[rtpHeaderLen:n], c.key)
		if err != nil {
			continue
		}
		if c.mreg != nil {
			c.mreg.VoiceRTPReceived.WithLabelValues(c.cfg.GuildID.String()).Inc()
		}
		if c.OnReceive != nil {
			c.OnReceive(c.userIDFor(ssrc), opened)
		}
	}
}
