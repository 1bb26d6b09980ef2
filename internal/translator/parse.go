package translator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"xkeenui/internal/logger"
)

// Parse decodes a share link into a Descriptor.
func Parse(raw string) (*Descriptor, error) {
	raw = FixIllegalUrl(raw)
	scheme, _, ok := strings.Cut(raw, "://")
	if !ok || scheme == "" {
		return nil, fmt.Errorf("%w: %q is not a share link", ErrMalformedURI, raw)
	}

	switch normalizeScheme(scheme) {
	case ProtocolVMess:
		return parseVMess(raw)
	case ProtocolVLESS:
		return parseGeneric(raw, ProtocolVLESS)
	case ProtocolTrojan:
		return parseGeneric(raw, ProtocolTrojan)
	case ProtocolHysteria2:
		return parseGeneric(raw, ProtocolHysteria2)
	case ProtocolShadowsocks:
		return parseShadowsocks(raw)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, scheme)
	}
}

// normalizeScheme maps a link scheme and its aliases onto a protocol name.
func normalizeScheme(scheme string) string {
	switch strings.ToLower(scheme) {
	case "vmess":
		return ProtocolVMess
	case "vless":
		return ProtocolVLESS
	case "trojan":
		return ProtocolTrojan
	case "hysteria2", "hy2":
		return ProtocolHysteria2
	case "ss", "shadowsocks":
		return ProtocolShadowsocks
	}
	return ""
}

// --- VLESS, Trojan, Hysteria2 (Generic URI) ---

func parseGeneric(raw, protocol string) (*Descriptor, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s link: %v", ErrMalformedURI, protocol, err)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %s link has no host", ErrMalformedURI, protocol)
	}

	port := 443
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil || !validPort(port) {
			return nil, fmt.Errorf("%w: %s link has invalid port %q", ErrMalformedURI, protocol, p)
		}
	}

	secret := ""
	if u.User != nil {
		secret = u.User.Username()
		if pass, ok := u.User.Password(); ok && protocol == ProtocolHysteria2 {
			secret += ":" + pass
		}
	}
	if secret == "" {
		return nil, fmt.Errorf("%w: %s link has no credentials", ErrMalformedURI, protocol)
	}

	q := flattenQuery(u.Query())
	d := &Descriptor{
		Tag:      tagOrPlaceholder(u.Fragment),
		Protocol: protocol,
		Settings: Settings{Address: u.Hostname(), Port: port},
	}

	switch protocol {
	case ProtocolVLESS:
		d.Settings.ID = secret
		d.Settings.Encryption = q.get("encryption")
		if d.Settings.Encryption == "" {
			d.Settings.Encryption = "none"
		}
		d.Settings.Flow = q.get("flow")
	case ProtocolTrojan:
		d.Settings.Password = secret
	case ProtocolHysteria2:
		d.Settings.Password = secret
		d.Settings.SNI = q.get("sni")
		d.Settings.Insecure = q.flag("insecure", "allowInsecure")
		d.Settings.ObfsPassword = q.get("obfs-password")
		if d.Settings.ObfsPassword != "" {
			d.Settings.Obfs = q.get("obfs")
			if d.Settings.Obfs == "" {
				d.Settings.Obfs = "salamander"
			}
		}
		d.Settings.Ports = q.get("mport")
		return d, nil
	}

	network := q.get("type")
	if network == "" {
		network = "tcp"
	}
	d.StreamSettings = buildStreamSettings(network, q)
	return d, nil
}

// --- VMess ---

func parseVMess(raw string) (*Descriptor, error) {
	payload := raw[strings.Index(raw, "://")+3:]
	decoded, err := DecodeBase64(payload)
	if err != nil {
		// Some clients share vmess in the vless style query form.
		if strings.Contains(payload, "@") {
			return parseVMessQuery(raw)
		}
		return nil, fmt.Errorf("%w: vmess base64 error: %v", ErrMalformedURI, err)
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(decoded)))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("%w: vmess json error: %v", ErrMalformedURI, err)
	}

	v := make(queryParams, len(fields))
	for k, val := range fields {
		if val == nil {
			continue
		}
		v[k] = fmt.Sprint(val)
	}

	port, err := strconv.Atoi(v["port"])
	if err != nil || !validPort(port) {
		return nil, fmt.Errorf("%w: vmess link has invalid port %q", ErrMalformedURI, v["port"])
	}
	if v["add"] == "" || v["id"] == "" {
		return nil, fmt.Errorf("%w: vmess link lacks address or id", ErrMalformedURI)
	}

	alterID, _ := strconv.Atoi(v["aid"])
	cipher := v["scy"]
	if cipher == "" {
		cipher = "auto"
	}

	if v["tls"] == "tls" {
		v["security"] = "tls"
		if v["sni"] == "" {
			v["sni"] = v["host"]
		}
	}
	network := v["net"]
	if network == "" {
		network = "tcp"
	}
	if v["type"] != "none" {
		v["headerType"] = v["type"]
	}
	switch network {
	case "grpc":
		v["mode"] = v["type"]
	case "kcp":
		v["seed"] = v["path"]
	}

	return &Descriptor{
		Tag:      tagOrPlaceholder(v["ps"]),
		Protocol: ProtocolVMess,
		Settings: Settings{
			Address:  v["add"],
			Port:     port,
			ID:       v["id"],
			AlterID:  &alterID,
			Security: cipher,
		},
		StreamSettings: buildStreamSettings(network, v),
	}, nil
}

func parseVMessQuery(raw string) (*Descriptor, error) {
	d, err := parseGeneric(raw, ProtocolVLESS)
	if err != nil {
		return nil, fmt.Errorf("%w: vmess link is neither base64 json nor a uri", ErrMalformedURI)
	}
	alterID := 0
	cipher := d.Settings.Encryption
	if cipher == "" || cipher == "none" {
		cipher = "auto"
	}
	d.Protocol = ProtocolVMess
	d.Settings.Encryption = ""
	d.Settings.Flow = ""
	d.Settings.AlterID = &alterID
	d.Settings.Security = cipher
	return d, nil
}

// --- Shadowsocks ---

func parseShadowsocks(raw string) (*Descriptor, error) {
	body := raw[strings.Index(raw, "://")+3:]

	body, fragment, _ := strings.Cut(body, "#")
	tag, err := url.PathUnescape(fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: shadowsocks name: %v", ErrMalformedURI, err)
	}
	body, _, _ = strings.Cut(body, "?")
	body = strings.TrimSuffix(body, "/")

	// Legacy form: the whole method:password@host:port is base64 encoded.
	if !strings.Contains(body, "@") {
		decoded, err := DecodeBase64(body)
		if err != nil || !strings.Contains(decoded, "@") {
			return nil, fmt.Errorf("%w: shadowsocks link has no server part", ErrMalformedURI)
		}
		body = decoded
	}

	at := strings.LastIndex(body, "@")
	userInfo, hostPort := body[:at], body[at+1:]

	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil || host == "" {
		return nil, fmt.Errorf("%w: shadowsocks server %q", ErrMalformedURI, hostPort)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || !validPort(port) {
		return nil, fmt.Errorf("%w: shadowsocks link has invalid port %q", ErrMalformedURI, portStr)
	}

	method, password, err := splitShadowsocksUser(userInfo)
	if err != nil {
		return nil, err
	}

	return &Descriptor{
		Tag:      tagOrPlaceholder(tag),
		Protocol: ProtocolShadowsocks,
		Settings: Settings{
			Address:  host,
			Port:     port,
			Method:   method,
			Password: password,
		},
	}, nil
}

// splitShadowsocksUser handles both the SIP002 base64 userinfo and the plain
// method:password form.
func splitShadowsocksUser(userInfo string) (string, string, error) {
	if method, password, ok := strings.Cut(userInfo, ":"); ok {
		m, err1 := url.PathUnescape(method)
		p, err2 := url.PathUnescape(password)
		if err1 != nil || err2 != nil || m == "" {
			return "", "", fmt.Errorf("%w: shadowsocks credentials", ErrMalformedURI)
		}
		return m, p, nil
	}

	unescaped, err := url.PathUnescape(userInfo)
	if err != nil {
		return "", "", fmt.Errorf("%w: shadowsocks credentials: %v", ErrMalformedURI, err)
	}
	decoded, err := DecodeBase64(unescaped)
	if err != nil {
		return "", "", fmt.Errorf("%w: shadowsocks base64 error: %v", ErrMalformedURI, err)
	}
	method, password, ok := strings.Cut(decoded, ":")
	if !ok || method == "" {
		return "", "", fmt.Errorf("%w: shadowsocks credentials lack a method", ErrMalformedURI)
	}
	return method, password, nil
}

// --- Stream settings ---

func buildStreamSettings(network string, q queryParams) *StreamSettings {
	s := &StreamSettings{
		Network:  network,
		Security: q.get("security"),
	}

	fingerprint := q.get("fp")
	if fingerprint == "" {
		fingerprint = "chrome"
	}

	switch s.Security {
	case "tls":
		s.TLSSettings = &TLSSettings{
			Fingerprint:   fingerprint,
			ServerName:    q.get("sni"),
			ALPN:          splitList(q.get("alpn")),
			AllowInsecure: q.flag("allowInsecure", "insecure"),
		}
	case "reality":
		s.RealitySettings = &RealitySettings{
			Fingerprint:   fingerprint,
			ServerName:    q.get("sni"),
			PublicKey:     q.get("pbk"),
			ShortID:       q.get("sid"),
			SpiderX:       q.get("spx"),
			MLDSA65Verify: q.get("pqv"),
		}
	}

	var header *HeaderSettings
	if ht := q.get("headerType"); ht != "" {
		header = &HeaderSettings{Type: ht}
	}

	switch network {
	case "tcp":
		if header != nil {
			s.TCPSettings = &RawSettings{Header: header}
		}
	case "raw":
		if header != nil {
			s.RawSettings = &RawSettings{Header: header}
		}
	case "xhttp":
		s.XHTTPSettings = &XHTTPSettings{
			Host:  q.get("host"),
			Path:  orDefault(q.get("path"), "/"),
			Mode:  orDefault(q.get("mode"), "auto"),
			Extra: parseExtra(q.get("extra")),
		}
	case "kcp":
		s.KCPSettings = &KCPSettings{
			MTU:              q.number("mtu"),
			TTI:              q.number("tti"),
			UplinkCapacity:   q.number("uplinkCapacity"),
			DownlinkCapacity: q.number("downlinkCapacity"),
			Congestion:       q.flag("congestion"),
			ReadBufferSize:   q.number("readBufferSize"),
			WriteBufferSize:  q.number("writeBufferSize"),
			Header:           header,
			Seed:             q.get("seed"),
		}
	case "grpc":
		s.GRPCSettings = &GRPCSettings{
			ServiceName:         q.get("serviceName", "path"),
			Authority:           q.get("authority"),
			MultiMode:           q.get("mode") == "multi",
			UserAgent:           q.get("user_agent"),
			IdleTimeout:         q.number("idle_timeout"),
			HealthCheckTimeout:  q.number("health_check_timeout"),
			PermitWithoutStream: q.flag("permit_without_stream"),
			InitialWindowsSize:  q.number("initial_windows_size"),
		}
	case "ws":
		s.WSSettings = &WSSettings{
			Path:            orDefault(q.get("path"), "/"),
			Host:            q.get("host"),
			HeartbeatPeriod: q.number("heartbeatPeriod"),
		}
	case "httpupgrade":
		s.HTTPUpgradeSettings = &HTTPUpgradeSettings{
			Path: orDefault(q.get("path"), "/"),
			Host: q.get("host"),
		}
	case "http", "h2":
		s.HTTPSettings = &HTTPSettings{
			Host: splitList(q.get("host")),
			Path: orDefault(q.get("path"), "/"),
		}
	}

	return s
}

// parseExtra decodes the xhttp "extra" parameter. A broken value is dropped
// rather than failing the whole link.
func parseExtra(raw string) json.RawMessage {
	if raw == "" {
		return nil
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		logger.Log.Debugf("xhttp extra dropped, bad escaping: %v", err)
		return nil
	}
	if !json.Valid([]byte(decoded)) {
		logger.Log.Debugf("xhttp extra dropped, not valid json: %.64s", decoded)
		return nil
	}
	return json.RawMessage(decoded)
}

func tagOrPlaceholder(tag string) string {
	if tag = cleanTag(tag); tag != "" {
		return tag
	}
	return PlaceholderTag
}

// cleanTag drops byte order marks and control characters other than tab, which
// cannot appear in a one-line quoted name.
func cleanTag(tag string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r == '\uFEFF' || (unicode.IsControl(r) && r != '\t') {
			return -1
		}
		return r
	}, tag))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
