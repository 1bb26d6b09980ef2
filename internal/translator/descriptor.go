package translator

import "encoding/json"

// PlaceholderTag is the tag a descriptor carries when its link has no name.
const PlaceholderTag = "PROXY"

const (
	ProtocolVLESS       = "vless"
	ProtocolVMess       = "vmess"
	ProtocolTrojan      = "trojan"
	ProtocolShadowsocks = "shadowsocks"
	ProtocolHysteria2   = "hysteria2"
)

// Descriptor is the normalized form of a single share link.
// Its JSON shape is the xray outbound object, so the xray encoder is a plain marshal.
type Descriptor struct {
	Tag            string          `json:"tag"`
	Protocol       string          `json:"protocol"`
	Settings       Settings        `json:"settings"`
	StreamSettings *StreamSettings `json:"streamSettings,omitempty"`
}

// Settings holds the protocol specific part of a descriptor.
type Settings struct {
	Address string `json:"address"`
	Port    int    `json:"port"`

	// vless / vmess
	ID         string `json:"id,omitempty"`
	Encryption string `json:"encryption,omitempty"`
	Flow       string `json:"flow,omitempty"`
	AlterID    *int   `json:"alterId,omitempty"`
	Security   string `json:"security,omitempty"` // vmess cipher

	// trojan / shadowsocks / hysteria2
	Method   string `json:"method,omitempty"`
	Password string `json:"password,omitempty"`

	// hysteria2
	SNI          string `json:"sni,omitempty"`
	Insecure     bool   `json:"insecure,omitempty"`
	Obfs         string `json:"obfs,omitempty"`
	ObfsPassword string `json:"obfsPassword,omitempty"`
	Ports        string `json:"ports,omitempty"`
}

// StreamSettings is the transport layer of vless, vmess and trojan links.
type StreamSettings struct {
	Network  string `json:"network"`
	Security string `json:"security,omitempty"`

	TLSSettings     *TLSSettings     `json:"tlsSettings,omitempty"`
	RealitySettings *RealitySettings `json:"realitySettings,omitempty"`

	TCPSettings         *RawSettings         `json:"tcpSettings,omitempty"`
	RawSettings         *RawSettings         `json:"rawSettings,omitempty"`
	XHTTPSettings       *XHTTPSettings       `json:"xhttpSettings,omitempty"`
	KCPSettings         *KCPSettings         `json:"kcpSettings,omitempty"`
	GRPCSettings        *GRPCSettings        `json:"grpcSettings,omitempty"`
	WSSettings          *WSSettings          `json:"wsSettings,omitempty"`
	HTTPUpgradeSettings *HTTPUpgradeSettings `json:"httpupgradeSettings,omitempty"`
	HTTPSettings        *HTTPSettings        `json:"httpSettings,omitempty"`
}

type TLSSettings struct {
	Fingerprint   string   `json:"fingerprint,omitempty"`
	ServerName    string   `json:"serverName,omitempty"`
	ALPN          []string `json:"alpn,omitempty"`
	AllowInsecure bool     `json:"allowInsecure,omitempty"`
}

type RealitySettings struct {
	Fingerprint   string `json:"fingerprint,omitempty"`
	ServerName    string `json:"serverName,omitempty"`
	PublicKey     string `json:"publicKey,omitempty"`
	ShortID       string `json:"shortId,omitempty"`
	SpiderX       string `json:"spiderX,omitempty"`
	MLDSA65Verify string `json:"mldsa65Verify,omitempty"`
}

type HeaderSettings struct {
	Type string `json:"type"`
}

// RawSettings serves both tcpSettings and rawSettings.
type RawSettings struct {
	Header *HeaderSettings `json:"header,omitempty"`
}

type XHTTPSettings struct {
	Host  string          `json:"host,omitempty"`
	Path  string          `json:"path,omitempty"`
	Mode  string          `json:"mode,omitempty"`
	Extra json.RawMessage `json:"extra,omitempty"`
}

type KCPSettings struct {
	MTU              int             `json:"mtu,omitempty"`
	TTI              int             `json:"tti,omitempty"`
	UplinkCapacity   int             `json:"uplinkCapacity,omitempty"`
	DownlinkCapacity int             `json:"downlinkCapacity,omitempty"`
	Congestion       bool            `json:"congestion,omitempty"`
	ReadBufferSize   int             `json:"readBufferSize,omitempty"`
	WriteBufferSize  int             `json:"writeBufferSize,omitempty"`
	Header           *HeaderSettings `json:"header,omitempty"`
	Seed             string          `json:"seed,omitempty"`
}

type GRPCSettings struct {
	ServiceName         string `json:"serviceName,omitempty"`
	Authority           string `json:"authority,omitempty"`
	MultiMode           bool   `json:"multiMode"`
	UserAgent           string `json:"user_agent,omitempty"`
	IdleTimeout         int    `json:"idle_timeout,omitempty"`
	HealthCheckTimeout  int    `json:"health_check_timeout,omitempty"`
	PermitWithoutStream bool   `json:"permit_without_stream,omitempty"`
	InitialWindowsSize  int    `json:"initial_windows_size,omitempty"`
}

type WSSettings struct {
	Path            string `json:"path,omitempty"`
	Host            string `json:"host,omitempty"`
	HeartbeatPeriod int    `json:"heartbeatPeriod,omitempty"`
}

type HTTPUpgradeSettings struct {
	Path string `json:"path,omitempty"`
	Host string `json:"host,omitempty"`
}

type HTTPSettings struct {
	Host []string `json:"host,omitempty"`
	Path string   `json:"path,omitempty"`
}

// Secret returns the primary credential of the descriptor: the user id for
// vless/vmess and the password for everything else.
func (d *Descriptor) Secret() string {
	if d.Settings.ID != "" {
		return d.Settings.ID
	}
	return d.Settings.Password
}

// Network returns the transport network, or an empty string for protocols
// without a stream layer.
func (d *Descriptor) Network() string {
	if d.StreamSettings == nil {
		return ""
	}
	return d.StreamSettings.Network
}

// ServerName returns the TLS or Reality server name, whichever is active.
func (s *StreamSettings) ServerName() string {
	if s.TLSSettings != nil && s.TLSSettings.ServerName != "" {
		return s.TLSSettings.ServerName
	}
	if s.RealitySettings != nil {
		return s.RealitySettings.ServerName
	}
	return ""
}

// Fingerprint returns the uTLS client fingerprint of the active security layer.
func (s *StreamSettings) Fingerprint() string {
	if s.TLSSettings != nil && s.TLSSettings.Fingerprint != "" {
		return s.TLSSettings.Fingerprint
	}
	if s.RealitySettings != nil {
		return s.RealitySettings.Fingerprint
	}
	return ""
}
