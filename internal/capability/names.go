package capability

// Capability names understood by the default registry.
const (
	ConsolePrint  = "console.print"
	ConsoleAsk    = "console.ask"
	FileRead      = "file.read"
	FileWrite     = "file.write"
	HTTPGet       = "http.get"
	JSONParse     = "json.parse"
	NetDiscover   = "net.discover"
	NetPortScan   = "net.portscan"
	NetPing       = "net.ping"
	NetTraceroute = "net.traceroute"
	NetFrameBuild = "net.frame.build"
	NetFrameSend  = "net.frame.send"
	NetCapture    = "net.capture"
)

// TimeoutKey maps a capability name to its key in the [timeouts] config table.
// Operations that bound themselves (waiting for an answer, a capture with its
// own duration) map to the empty key.
func TimeoutKey(name string) string {
	switch name {
	case ConsoleAsk, NetCapture:
		return ""
	case HTTPGet:
		return "http"
	case NetPing:
		return "ping"
	case NetTraceroute:
		return "traceroute"
	case NetPortScan:
		return "portscan"
	case NetDiscover:
		return "discover"
	case NetFrameSend:
		return "send"
	default:
		return "default"
	}
}
