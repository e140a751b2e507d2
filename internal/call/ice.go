package call

// ICEServer is one entry of the ICE server list handed to browser WebRTC
// peers. URLs holds a single string or a list, matching what RTCPeerConnection
// accepts.
type ICEServer struct {
	URLs       any    `json:"urls"`
	Username   string `json:"username,omitempty"`
	Credential string `json:"credential,omitempty"`
}

// Relay holds the STUN/TURN configuration for media relay. Calls cannot be
// initiated without a configured TURN relay: NATed callers would fail to
// connect and the failure would look like an agent problem.
type Relay struct {
	STUNURLs   []string
	TURNURLs   []string
	Username   string
	Credential string
}

// Configured reports whether the TURN relay is fully configured.
func (r Relay) Configured() bool {
	return len(r.TURNURLs) > 0 && r.Username != "" && r.Credential != ""
}

// Servers assembles the ICE server list: optional STUN entry first, then the
// TURN entry with credentials.
func (r Relay) Servers() []ICEServer {
	var servers []ICEServer
	if len(r.STUNURLs) > 0 {
		servers = append(servers, ICEServer{URLs: urlsValue(r.STUNURLs)})
	}
	if len(r.TURNURLs) > 0 {
		servers = append(servers, ICEServer{
			URLs:       urlsValue(r.TURNURLs),
			Username:   r.Username,
			Credential: r.Credential,
		})
	}
	return servers
}

func urlsValue(urls []string) any {
	if len(urls) == 1 {
		return urls[0]
	}
	return urls
}
