// Package path builds the ordered list of transport paths the client tries
// when it connects: message relays, the policy proxy, system and
// environment proxies, and finally the direct path.
package path

import (
	"strings"

	"github.com/hostlink/uplink/pkg/logger"
	"github.com/hostlink/uplink/pkg/metadata"
	"github.com/hostlink/uplink/pkg/policy"
	"golang.org/x/net/http/httpproxy"
)

type Options struct {
	Preferrer    Preferrer
	Deobfuscator policy.Deobfuscator
	// ProxyFromEnv returns the https proxy of the environment.
	ProxyFromEnv func() string
	Logger       logger.Logger
}

type Option func(opts *Options)

func PreferrerOption(p Preferrer) Option {
	return func(opts *Options) {
		opts.Preferrer = p
	}
}

func DeobfuscatorOption(d policy.Deobfuscator) Option {
	return func(opts *Options) {
		opts.Deobfuscator = d
	}
}

func ProxyFromEnvOption(f func() string) Option {
	return func(opts *Options) {
		opts.ProxyFromEnv = f
	}
}

func LoggerOption(logger logger.Logger) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// EnvHTTPSProxy reads https_proxy (or HTTPS_PROXY) from the environment.
func EnvHTTPSProxy() string {
	return httpproxy.FromEnvironment().HTTPSProxy
}

// Builder turns policy into candidate paths. It holds no state between
// calls to Build, every call reads the policy afresh.
type Builder struct {
	md      metadata.Metadata
	options Options
}

func NewBuilder(md metadata.Metadata, opts ...Option) *Builder {
	options := Options{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Preferrer == nil {
		options.Preferrer = PriorityPreferrer()
	}
	if options.Deobfuscator == nil {
		options.Deobfuscator = policy.PlainText
	}
	if options.ProxyFromEnv == nil {
		options.ProxyFromEnv = EnvHTTPSProxy
	}
	if options.Logger == nil {
		options.Logger = logger.Nop()
	}

	return &Builder{
		md:      md,
		options: options,
	}
}

// Build returns the candidate paths in the order they should be tried.
// Paths sharing a host and port with an earlier one are dropped.
func (b *Builder) Build() []*TransportPath {
	var paths []*TransportPath
	seen := make(map[string]bool)
	add := func(p *TransportPath) {
		if seen[p.Key()] {
			b.options.Logger.Debugf("skip duplicate %s", p)
			return
		}
		seen[p.Key()] = true
		paths = append(paths, p)
	}

	user, pass := b.credentials()

	for _, r := range b.options.Preferrer.Prefer(b.Relays()) {
		add(&TransportPath{
			Host:     r.Address,
			Port:     r.Port,
			RelayID:  r.ID,
			Username: user,
			Password: pass,
			Source:   SourceRelay,
		})
	}

	if s := metadata.GetString(b.md, policy.KeyPolicyProxy, ""); s != "" {
		if p := b.parse(s, SourcePolicy); p != nil {
			if user != "" {
				p.Username, p.Password = user, pass
			}
			add(p)
		}
	}

	if metadata.GetBool(b.md, policy.KeyUseSystemProxy, false) {
		if s := metadata.GetString(b.md, policy.KeySystemProxy, ""); s != "" {
			if p := b.parse(s, SourceSystem); p != nil {
				add(p)
			}
		}
		if s := b.options.ProxyFromEnv(); s != "" {
			if p := b.parse(s, SourceEnv); p != nil {
				add(p)
			}
		}
	}

	if metadata.GetBool(b.md, policy.KeyUseDirect, false) {
		add(Direct())
	}

	return paths
}

// Relays reads the message relays in configured order. Entries without
// an address or a valid port are skipped.
func (b *Builder) Relays() (relays []Relay) {
	for i := 0; i < policy.MaxRelays; i++ {
		addr := strings.TrimSpace(metadata.GetString(b.md, policy.RelayAddressKey(i), ""))
		sport := metadata.GetString(b.md, policy.RelayPortKey(i), "")
		if addr == "" && sport == "" {
			continue
		}
		if addr == "" {
			b.options.Logger.Debugf("relay %d: missing address", i)
			continue
		}
		port, err := parsePort(sport)
		if err != nil {
			b.options.Logger.Debugf("relay %d (%s): %v", i, addr, err)
			continue
		}
		id := strings.TrimSpace(metadata.GetString(b.md, policy.RelayIDKey(i), ""))
		relays = append(relays, Relay{
			Index:    i,
			ID:       id,
			Address:  addr,
			Port:     port,
			Priority: metadata.GetInt(b.md, policy.RelayPriorityKey(i), 0),
		})
	}
	return
}

func (b *Builder) parse(s string, source Source) *TransportPath {
	p, err := ParseProxy(s)
	if err != nil {
		b.options.Logger.Debugf("%s proxy %q: %v", source, s, err)
		return nil
	}
	p.Source = source
	return p
}

func (b *Builder) credentials() (user, pass string) {
	if s := metadata.GetString(b.md, policy.KeyPolicyProxyUser, ""); s != "" {
		v, err := b.options.Deobfuscator(s)
		if err != nil {
			b.options.Logger.Warnf("policy proxy user: %v", err)
			return "", ""
		}
		user = v
	}
	if user == "" {
		return "", ""
	}
	if s := metadata.GetString(b.md, policy.KeyPolicyProxyPassword, ""); s != "" {
		v, err := b.options.Deobfuscator(s)
		if err != nil {
			b.options.Logger.Warnf("policy proxy password: %v", err)
			return "", ""
		}
		pass = v
	}
	return
}
