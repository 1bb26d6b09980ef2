package translator

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	providerInterval     = 43200
	healthCheckURL       = "https://www.gstatic.com/generate_204"
	healthCheckInterval  = 300
	healthCheckStatus    = 204
	mihomoItemIndent     = "  - "
	mihomoContinueIndent = "    "
)

// EncodeMihomo renders the descriptor as one item of a mihomo "proxies:" list.
// The fragment is indented to sit directly under a top level proxies key.
func EncodeMihomo(d *Descriptor) (string, error) {
	m := newYAMLMap()
	m.set("type", mihomoType(d.Protocol))
	m.set("server", d.Settings.Address)
	m.set("port", d.Settings.Port)
	m.set("udp", true)

	s := d.Settings
	switch d.Protocol {
	case ProtocolVLESS:
		m.set("uuid", s.ID)
		m.set("flow", s.Flow)
		m.set("packet-encoding", "xudp")
		m.set("encryption", s.Encryption)
	case ProtocolVMess:
		m.set("uuid", s.ID)
		alterID := 0
		if s.AlterID != nil {
			alterID = *s.AlterID
		}
		m.set("alterId", alterID)
		m.set("cipher", s.Security)
	case ProtocolTrojan:
		m.set("password", s.Password)
	case ProtocolShadowsocks:
		m.set("cipher", s.Method)
		m.set("password", s.Password)
	case ProtocolHysteria2:
		m.set("password", s.Password)
		m.set("fast-open", true)
		m.set("sni", s.SNI)
		if s.Insecure {
			m.set("skip-cert-verify", true)
		}
		m.set("obfs", s.Obfs)
		m.set("obfs-password", s.ObfsPassword)
		m.set("ports", s.Ports)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedProtocol, d.Protocol)
	}

	if st := d.StreamSettings; st != nil {
		encodeMihomoStream(m, d.Protocol, st)
	}

	out, err := m.render()
	if err != nil {
		return "", fmt.Errorf("encode mihomo proxy: %w", err)
	}
	// The name is written by hand: yaml.v3 switches to escaped double quotes
	// for characters outside the BMP, so emoji names would not appear verbatim.
	out = "name: " + quoteMihomoName(d.Tag) + "\n" + out
	return indentBlock(out, mihomoItemIndent, mihomoContinueIndent) + "\n", nil
}

// quoteMihomoName renders a proxy name as a single-quoted YAML scalar.
func quoteMihomoName(name string) string {
	return "'" + strings.ReplaceAll(cleanTag(name), "'", "''") + "'"
}

// mihomoType maps a protocol onto mihomo's proxy type name.
func mihomoType(protocol string) string {
	if protocol == ProtocolShadowsocks {
		return "ss"
	}
	return protocol
}

func encodeMihomoStream(m *yamlMap, protocol string, st *StreamSettings) {
	network := st.Network
	switch network {
	case "raw":
		network = "tcp"
	case "http":
		network = "h2"
	}
	m.set("network", network)

	if st.Security == "tls" || st.Security == "reality" {
		m.set("tls", true)
		m.set("tfo", true)
		m.set("client-fingerprint", st.Fingerprint())
		if st.TLSSettings != nil {
			m.set("alpn", st.TLSSettings.ALPN)
		}
		if name := st.ServerName(); name != "" {
			if protocol == ProtocolTrojan || protocol == ProtocolHysteria2 {
				m.set("sni", name)
			} else {
				m.set("servername", name)
			}
		}
		if st.TLSSettings != nil && st.TLSSettings.AllowInsecure {
			m.set("skip-cert-verify", true)
		}
		if st.Security == "reality" && st.RealitySettings != nil {
			opts := newYAMLMap()
			opts.set("public-key", st.RealitySettings.PublicKey)
			opts.set("short-id", st.RealitySettings.ShortID)
			opts.set("support-x25519mlkem768", true)
			m.setMap("reality-opts", opts)
		}
	}

	switch {
	case st.WSSettings != nil:
		m.setMap("ws-opts", pathHostOpts(st.WSSettings.Path, st.WSSettings.Host))
	case st.GRPCSettings != nil:
		opts := newYAMLMap()
		opts.set("grpc-service-name", st.GRPCSettings.ServiceName)
		m.setMap("grpc-opts", opts)
	case st.HTTPUpgradeSettings != nil:
		m.setMap("http-upgrade-opts", pathHostOpts(st.HTTPUpgradeSettings.Path, st.HTTPUpgradeSettings.Host))
	case st.HTTPSettings != nil:
		opts := newYAMLMap()
		opts.set("host", st.HTTPSettings.Host)
		opts.set("path", st.HTTPSettings.Path)
		m.setMap("h2-opts", opts)
	}
}

func pathHostOpts(path, host string) *yamlMap {
	opts := newYAMLMap()
	opts.set("path", path)
	if host != "" {
		headers := newYAMLMap()
		headers.set("Host", host)
		opts.setMap("headers", headers)
	}
	return opts
}

// encodeProvider renders a proxy-providers entry for a subscription url,
// indented to sit under a top level proxy-providers key.
func encodeProvider(name, link string) (string, error) {
	health := newYAMLMap()
	health.set("enable", true)
	health.set("url", healthCheckURL)
	health.set("interval", healthCheckInterval)
	health.set("expected-status", healthCheckStatus)

	override := newYAMLMap()
	override.set("udp", true)
	override.set("tfo", true)

	provider := newYAMLMap()
	provider.set("type", "http")
	provider.set("url", link)
	provider.set("interval", providerInterval)
	provider.setMap("health-check", health)
	provider.setMap("override", override)

	root := newYAMLMap()
	root.setMap(name, provider)

	out, err := root.render()
	if err != nil {
		return "", fmt.Errorf("encode mihomo provider: %w", err)
	}
	return indentBlock(out, "  ", "  ") + "\n", nil
}

// yamlMap builds an ordered YAML mapping. Empty values are skipped so that an
// unset field never shows up as an empty or null entry.
type yamlMap struct {
	node *yaml.Node
}

func newYAMLMap() *yamlMap {
	return &yamlMap{node: &yaml.Node{Kind: yaml.MappingNode}}
}

func (m *yamlMap) set(key string, value any) {
	switch v := value.(type) {
	case string:
		if v == "" {
			return
		}
	case []string:
		if len(v) == 0 {
			return
		}
	}
	var val yaml.Node
	if err := val.Encode(value); err != nil {
		return
	}
	m.append(key, &val)
}

func (m *yamlMap) setMap(key string, child *yamlMap) {
	if len(child.node.Content) == 0 {
		return
	}
	m.append(key, child.node)
}

func (m *yamlMap) append(key string, value *yaml.Node) {
	m.node.Content = append(m.node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value,
	)
}

func (m *yamlMap) render() (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m.node); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// indentBlock prefixes the first line with first and every following line with rest.
func indentBlock(block, first, rest string) string {
	lines := strings.Split(block, "\n")
	for i := range lines {
		if i == 0 {
			lines[i] = first + lines[i]
		} else {
			lines[i] = rest + lines[i]
		}
	}
	return strings.Join(lines, "\n")
}
