// Package policy names the configuration keys the transport consumes and
// captures the subset of them whose change invalidates a live connection.
package policy

import (
	"encoding/base64"
	"fmt"
	"slices"
	"strings"

	"github.com/hostlink/uplink/pkg/metadata"
)

const (
	KeyURL                 = "url"
	KeyPolicyURLs          = "policy_urls"
	KeyPolicyProxy         = "policy_proxy"
	KeyPolicyProxyUser     = "policy_proxy_user"
	KeyPolicyProxyPassword = "policy_proxy_password"
	KeyUseSystemProxy      = "use_system_proxy"
	KeyUseDirect           = "use_direct"
	KeyUseAutomaticProxy   = "use_automatic_proxy"
	KeySystemProxy         = "system_proxy"
	KeyLastGoodRelayID     = "last_good_relay_id"
	KeyCAFile              = "ca_file"
	KeyTLSVerify           = "tls_verify"
	// KeyTimeout bounds each connect and exchange, as a duration string
	// or a number of seconds.
	KeyTimeout             = "timeout"
)

// MaxRelays bounds the indexed relay fields that are scanned.
const MaxRelays = 32

func RelayAddressKey(i int) string  { return fmt.Sprintf("address%d", i) }
func RelayPortKey(i int) string     { return fmt.Sprintf("port%d", i) }
func RelayPriorityKey(i int) string { return fmt.Sprintf("priority%d", i) }
func RelayIDKey(i int) string       { return fmt.Sprintf("id%d", i) }

// Deobfuscator decodes credentials stored in obfuscated form.
type Deobfuscator func(s string) (string, error)

// PlainText is the Deobfuscator for stores that keep credentials in clear.
func PlainText(s string) (string, error) {
	return s, nil
}

// Base64 decodes standard base64 encoded credentials.
func Base64(s string) (string, error) {
	b, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("policy: decode credential: %w", err)
	}
	return string(b), nil
}

// Snapshot is the part of the policy that selects the transport path.
type Snapshot struct {
	Proxy     string
	Relays    []string
	URLs      []string
	UseDirect bool
}

// Capture reads a Snapshot from md.
func Capture(md metadata.Metadata) *Snapshot {
	s := &Snapshot{
		Proxy:     metadata.GetString(md, KeyPolicyProxy, ""),
		URLs:      URLs(md),
		UseDirect: metadata.GetBool(md, KeyUseDirect, false),
	}
	for i := 0; i < MaxRelays; i++ {
		if !md.IsExists(RelayAddressKey(i)) && !md.IsExists(RelayPortKey(i)) {
			continue
		}
		s.Relays = append(s.Relays, fmt.Sprintf("%d:%s@%s:%s/%s", i,
			metadata.GetString(md, RelayIDKey(i), ""),
			metadata.GetString(md, RelayAddressKey(i), ""),
			metadata.GetString(md, RelayPortKey(i), ""),
			metadata.GetString(md, RelayPriorityKey(i), "")))
	}
	return s
}

// URLs returns the base URL followed by the alternate policy URLs,
// without duplicates.
func URLs(md metadata.Metadata) []string {
	var urls []string
	if u := strings.TrimSpace(metadata.GetString(md, KeyURL, "")); u != "" {
		urls = append(urls, u)
	}
	for _, u := range metadata.GetStrings(md, KeyPolicyURLs) {
		if !slices.Contains(urls, u) {
			urls = append(urls, u)
		}
	}
	return urls
}

// Change describes how two snapshots differ.
type Change struct {
	// Path is set when the proxy or the relay list differs.
	Path bool
	// Any is set when any tracked field differs.
	Any bool
}

func (s *Snapshot) Diff(other *Snapshot) (c Change) {
	if s == nil || other == nil {
		return Change{Path: s != other, Any: s != other}
	}
	c.Path = s.Proxy != other.Proxy || !slices.Equal(s.Relays, other.Relays)
	c.Any = c.Path ||
		s.UseDirect != other.UseDirect ||
		!slices.Equal(s.URLs, other.URLs)
	return
}
