package translator

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in   string
		want Dialect
		ok   bool
	}{
		{"xray", DialectXray, true},
		{"A", DialectXray, true},
		{"", DialectXray, true},
		{"mihomo", DialectMihomo, true},
		{" B ", DialectMihomo, true},
		{"clash", DialectMihomo, true},
		{"sing-box", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerateSingleProxy(t *testing.T) {
	link := "vless://uuid-here@example.com:443?encryption=none&security=tls&sni=example.com&type=tcp#MyProxy"

	res, err := Generate(link, DialectXray, "")
	require.NoError(t, err)
	assert.Equal(t, KindSingleProxy, res.Kind)
	assert.Equal(t, "MyProxy", res.Name)
	assert.Contains(t, res.Content, `"tag": "MyProxy"`)
	assert.Contains(t, res.Content, `"serverName": "example.com"`)

	res, err = Generate(link, DialectMihomo, "")
	require.NoError(t, err)
	assert.Equal(t, KindSingleProxy, res.Kind)
	for _, line := range []string{
		"type: vless", "server: example.com", "port: 443", "uuid: uuid-here",
		"tls: true", "servername: example.com", "packet-encoding: xudp", "udp: true",
	} {
		assert.Contains(t, res.Content, "    "+line+"\n")
	}
}

func TestGenerateShadowsocksAnyDialect(t *testing.T) {
	link := "ss://YWVzLTI1Ni1nY206cGFzc3dvcmQ=@1.2.3.4:8388#Test"

	res, err := Generate(link, DialectXray, "")
	require.NoError(t, err)
	assert.Contains(t, res.Content, `"method": "aes-256-gcm"`)
	assert.Contains(t, res.Content, `"password": "password"`)
	assert.Contains(t, res.Content, `"address": "1.2.3.4"`)
	assert.Contains(t, res.Content, `"port": 8388`)

	res, err = Generate(link, DialectMihomo, "")
	require.NoError(t, err)
	assert.Contains(t, res.Content, "    cipher: aes-256-gcm\n")
	assert.Contains(t, res.Content, "    password: password\n")
	assert.Contains(t, res.Content, "    server: 1.2.3.4\n")
	assert.Contains(t, res.Content, "    port: 8388\n")
}

func TestGenerateSubscription(t *testing.T) {
	existing := "proxy-providers:\n  subscription_1:\n    type: http\n"

	res, err := Generate("https://example.com/sub", DialectMihomo, existing)
	require.NoError(t, err)
	assert.Equal(t, KindSubscriptionProvider, res.Kind)
	assert.Equal(t, "subscription_2", res.Name)
	assert.True(t, strings.HasPrefix(res.Content, "  subscription_2:\n    type: http\n"), res.Content)

	var doc struct {
		Providers map[string]struct {
			Type        string `yaml:"type"`
			URL         string `yaml:"url"`
			Interval    int    `yaml:"interval"`
			HealthCheck struct {
				Enable         bool   `yaml:"enable"`
				URL            string `yaml:"url"`
				Interval       int    `yaml:"interval"`
				ExpectedStatus int    `yaml:"expected-status"`
			} `yaml:"health-check"`
			Override map[string]bool `yaml:"override"`
		} `yaml:"proxy-providers"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("proxy-providers:\n"+res.Content), &doc))
	p, ok := doc.Providers["subscription_2"]
	require.True(t, ok)
	assert.Equal(t, "http", p.Type)
	assert.Equal(t, "https://example.com/sub", p.URL)
	assert.Equal(t, 43200, p.Interval)
	assert.True(t, p.HealthCheck.Enable)
	assert.Equal(t, "https://www.gstatic.com/generate_204", p.HealthCheck.URL)
	assert.Equal(t, 300, p.HealthCheck.Interval)
	assert.Equal(t, 204, p.HealthCheck.ExpectedStatus)
	assert.Equal(t, map[string]bool{"udp": true, "tfo": true}, p.Override)
}

func TestGenerateGates(t *testing.T) {
	vmessXHTTP := "vmess://" + base64.StdEncoding.EncodeToString(
		[]byte(`{"add":"v.example","port":"443","id":"vm-id","net":"xhttp"}`))

	tests := []struct {
		name    string
		link    string
		dialect Dialect
	}{
		{"subscription in xray", "https://example.com/sub", DialectXray},
		{"plain http subscription in xray", "http://example.com/any/path?token=1", DialectXray},
		{"uppercase scheme subscription in xray", "HTTPS://example.com/", DialectXray},
		{"hysteria2 in xray", "hysteria2://pw@hy.example:443?sni=a#H", DialectXray},
		{"hy2 alias in xray", "hy2://pw@hy.example:443", DialectXray},
		{"malformed hysteria2 in xray", "hysteria2://", DialectXray},
		{"hysteria2 with odd query in xray", "hysteria2://pw@hy.example:99999?type=xhttp", DialectXray},
		{"xhttp in mihomo", "vless://id@x.example:443?type=xhttp#X", DialectMihomo},
		{"vmess xhttp in mihomo", vmessXHTTP, DialectMihomo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Generate(tt.link, tt.dialect, "")
			require.ErrorIs(t, err, ErrUnsupportedFeature)
			assert.Contains(t, err.Error(), string(tt.dialect))
		})
	}
}

func TestGenerateAllowedCombinations(t *testing.T) {
	_, err := Generate("hysteria2://pw@hy.example:443#H", DialectMihomo, "")
	assert.NoError(t, err)

	_, err = Generate("vless://id@x.example:443?type=xhttp#X", DialectXray, "")
	assert.NoError(t, err)
}

func TestGeneratePropagatesParseErrors(t *testing.T) {
	_, err := Generate("socks5://h.example:1080", DialectXray, "")
	assert.ErrorIs(t, err, ErrUnsupportedProtocol)

	_, err = Generate("vless://@h.example:443", DialectMihomo, "")
	assert.ErrorIs(t, err, ErrMalformedURI)
}

func TestGenerateNaming(t *testing.T) {
	tests := []struct {
		name     string
		link     string
		existing string
		want     string
	}{
		{"placeholder replaced", "trojan://pw@t.example:443", "", "trojan_1"},
		{"next free index", "trojan://pw@t.example:443", `"tag": "trojan_1"`, "trojan_2"},
		{"shadowsocks base", "ss://YWVzLTI1Ni1nY206cGFzc3dvcmQ=@1.2.3.4:8388", "", "shadowsocks_1"},
		{"vmess base", "vmess://" + base64.StdEncoding.EncodeToString([]byte(`{"add":"v.example","port":443,"id":"x"}`)), "", "vmess_1"},
		{"named link kept", "trojan://pw@t.example:443#Office", "", "Office"},
		{"colliding name replaced", "trojan://pw@t.example:443#Office", `"tag": "Office"`, "trojan_1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, dialect := range []Dialect{DialectXray, DialectMihomo} {
				res, err := Generate(tt.link, dialect, tt.existing)
				require.NoError(t, err)
				assert.Equal(t, tt.want, res.Name, dialect)
				assert.Contains(t, res.Content, tt.want)
				assert.NotContains(t, res.Content, PlaceholderTag)
			}
		})
	}
}

func TestGenerateRenamesOwnOutput(t *testing.T) {
	links := []string{
		"trojan://pw@h.example:443?security=tls#%F0%9F%87%BA%F0%9F%87%B8%20US",
		"trojan://pw@h.example:443?security=tls#It%27s",
		"trojan://pw@h.example:443?security=tls#%EF%BB%BFOffice",
		"trojan://pw@h.example:443?security=tls#a%3Cb%3E",
	}
	for _, link := range links {
		for _, dialect := range []Dialect{DialectXray, DialectMihomo} {
			first, err := Generate(link, dialect, "")
			require.NoError(t, err)
			existing := first.Content
			if dialect == DialectMihomo {
				existing = "proxies:\n" + first.Content
			}

			second, err := Generate(link, dialect, existing)
			require.NoError(t, err)
			assert.NotEqual(t, first.Name, second.Name, "%s %s", dialect, link)
			assert.Equal(t, "trojan_1", second.Name)

			if dialect == DialectMihomo {
				var doc struct {
					Proxies []map[string]any `yaml:"proxies"`
				}
				require.NoError(t, yaml.Unmarshal([]byte(existing+second.Content), &doc))
				require.Len(t, doc.Proxies, 2)
				assert.Equal(t, first.Name, doc.Proxies[0]["name"])
				assert.Equal(t, second.Name, doc.Proxies[1]["name"])
			}
		}
	}
}

func TestGenerateDoesNotMutateExisting(t *testing.T) {
	existing := "proxies:\n  - name: 'vless_1'\n"
	before := existing
	_, err := Generate("vless://id@v.example:443", DialectMihomo, existing)
	require.NoError(t, err)
	assert.Equal(t, before, existing)
}
