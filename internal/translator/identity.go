package translator

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Fingerprint identifies the server a descriptor connects to, ignoring its tag.
// Two links with the same fingerprint produce interchangeable outbounds.
func (d *Descriptor) Fingerprint() string {
	s := d.Settings
	parts := []string{
		d.Protocol,
		strings.ToLower(s.Address),
		strconv.Itoa(s.Port),
		d.Secret(),
		s.Method,
		s.Flow,
		s.ObfsPassword,
	}

	if st := d.StreamSettings; st != nil {
		// Network: empty implies tcp.
		network := st.Network
		if network == "" {
			network = "tcp"
		}
		parts = append(parts, network, st.Security, st.ServerName())
		if st.RealitySettings != nil {
			parts = append(parts, st.RealitySettings.PublicKey, st.RealitySettings.ShortID)
		}
		switch {
		case st.WSSettings != nil:
			parts = append(parts, st.WSSettings.Path, st.WSSettings.Host)
		case st.GRPCSettings != nil:
			parts = append(parts, st.GRPCSettings.ServiceName)
		case st.XHTTPSettings != nil:
			parts = append(parts, st.XHTTPSettings.Path, st.XHTTPSettings.Host)
		case st.HTTPUpgradeSettings != nil:
			parts = append(parts, st.HTTPUpgradeSettings.Path, st.HTTPUpgradeSettings.Host)
		case st.KCPSettings != nil:
			parts = append(parts, st.KCPSettings.Seed)
		}
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}
