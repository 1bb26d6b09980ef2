package translator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const batchText = `Fresh servers:
vless://id-1@a.example:443?security=tls&sni=a.example#First
vless://id-1@A.example:443?security=tls&sni=a.example#Same server, other name
vless://id-2@b.example:443
hysteria2://pw@c.example:443#Hy
trojan://pw@d.example:443
`

func TestGenerateBatchXray(t *testing.T) {
	batch := GenerateBatch(batchText, DialectXray, "")

	require.Len(t, batch.Results, 3)
	assert.Equal(t, 1, batch.Duplicates)
	require.Len(t, batch.Failures, 1)
	assert.ErrorIs(t, batch.Failures[0], ErrUnsupportedFeature)
	assert.Equal(t, "hysteria2://pw@c.example:443#Hy", batch.Failures[0].Link)

	names := []string{batch.Results[0].Name, batch.Results[1].Name, batch.Results[2].Name}
	assert.Equal(t, []string{"First", "vless_1", "trojan_1"}, names)

	var outbounds []map[string]any
	require.NoError(t, json.Unmarshal([]byte("["+batch.Content(DialectXray)+"]"), &outbounds))
	assert.Len(t, outbounds, 3)
}

func TestGenerateBatchMihomo(t *testing.T) {
	batch := GenerateBatch(batchText, DialectMihomo, "proxies:\n  - name: 'vless_1'\n")

	require.Len(t, batch.Results, 4)
	assert.Empty(t, batch.Failures)

	proxies := parseProxies(t, batch.Content(DialectMihomo))
	require.Len(t, proxies, 4)
	assert.Equal(t, "First", proxies[0]["name"])
	assert.Equal(t, "vless_2", proxies[1]["name"])
	assert.Equal(t, "Hy", proxies[2]["name"])
	assert.Equal(t, "trojan_1", proxies[3]["name"])
}

func TestGenerateBatchNamesStayUnique(t *testing.T) {
	text := "trojan://a@1.example:443\ntrojan://b@2.example:443\ntrojan://c@3.example:443\n"
	batch := GenerateBatch(text, DialectXray, "")

	require.Len(t, batch.Results, 3)
	assert.Equal(t, "trojan_1", batch.Results[0].Name)
	assert.Equal(t, "trojan_2", batch.Results[1].Name)
	assert.Equal(t, "trojan_3", batch.Results[2].Name)
}

func TestGenerateBatchKeepsCommaQuery(t *testing.T) {
	text := "vless://id@h.example:443?security=tls&alpn=h2,http/1.1&type=ws&path=/x#Office\n"
	batch := GenerateBatch(text, DialectXray, "")

	require.Len(t, batch.Results, 1)
	assert.Equal(t, "Office", batch.Results[0].Name)

	var out struct {
		StreamSettings struct {
			Network     string `json:"network"`
			TLSSettings struct {
				ALPN []string `json:"alpn"`
			} `json:"tlsSettings"`
			WSSettings struct {
				Path string `json:"path"`
			} `json:"wsSettings"`
		} `json:"streamSettings"`
	}
	require.NoError(t, json.Unmarshal([]byte(batch.Results[0].Content), &out))
	assert.Equal(t, "ws", out.StreamSettings.Network)
	assert.Equal(t, []string{"h2", "http/1.1"}, out.StreamSettings.TLSSettings.ALPN)
	assert.Equal(t, "/x", out.StreamSettings.WSSettings.Path)
}

func TestGenerateBatchEmojiNamesStayUnique(t *testing.T) {
	text := "trojan://a@1.example:443#%F0%9F%87%BA%F0%9F%87%B8%20US\n" +
		"trojan://b@2.example:443#%F0%9F%87%BA%F0%9F%87%B8%20US\n"
	batch := GenerateBatch(text, DialectMihomo, "")

	proxies := parseProxies(t, batch.Content(DialectMihomo))
	require.Len(t, proxies, 2)
	assert.Equal(t, "🇺🇸 US", proxies[0]["name"])
	assert.Equal(t, "trojan_1", proxies[1]["name"])
}

func TestGenerateLinksProgress(t *testing.T) {
	calls := 0
	batch := GenerateLinks([]string{"trojan://a@1.example:443", "bogus://x", "trojan://a@1.example:443"},
		DialectXray, "", func() { calls++ })

	assert.Equal(t, 3, calls)
	assert.Len(t, batch.Results, 1)
	assert.Len(t, batch.Failures, 1)
	assert.Equal(t, 1, batch.Duplicates)
}

func TestFingerprint(t *testing.T) {
	a := mustParse(t, "vless://id@Host.example:443?type=ws&path=%2Fa#One")
	b := mustParse(t, "vless://id@host.example:443?type=ws&path=%2Fa#Two")
	c := mustParse(t, "vless://id@host.example:443?type=ws&path=%2Fb#Three")
	d := mustParse(t, "vless://id@host.example:8443?type=ws&path=%2Fa#Four")

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), d.Fingerprint())
}
