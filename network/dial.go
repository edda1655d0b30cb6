package network

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Default IRC ports.
const (
	DefaultPort    = 6667
	DefaultTLSPort = 6697
)

// WebSocketSubprotocol is the IRCv3 text subprotocol.
const WebSocketSubprotocol = "text.ircv3.net"

// Address identifies the server to dial.
type Address struct {
	Host      string
	Port      int
	TLS       bool
	WebSocket bool
	Path      string // WebSocket only
}

// ParseAddress builds an Address from the command-line host and port.
// A host of the form ws://... or wss://... selects the WebSocket transport.
// An empty port picks the default for the transport.
func ParseAddress(host, port string, useTLS bool) (Address, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return Address{}, fmt.Errorf("%w: empty host", ErrInvalidAddress)
	}

	if strings.HasPrefix(host, "ws://") || strings.HasPrefix(host, "wss://") {
		return parseWebSocketAddress(host, port, useTLS)
	}

	if strings.ContainsAny(host, " /") {
		return Address{}, fmt.Errorf("%w: bad host %q", ErrInvalidAddress, host)
	}

	addr := Address{Host: host, TLS: useTLS}
	p, err := parsePort(port, useTLS)
	if err != nil {
		return Address{}, err
	}
	addr.Port = p
	return addr, nil
}

func parseWebSocketAddress(raw, port string, useTLS bool) (Address, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if u.Hostname() == "" {
		return Address{}, fmt.Errorf("%w: empty host in %q", ErrInvalidAddress, raw)
	}

	addr := Address{
		Host:      u.Hostname(),
		TLS:       u.Scheme == "wss" || useTLS,
		WebSocket: true,
		Path:      u.EscapedPath(),
	}
	if port == "" {
		port = u.Port()
	}
	if port == "" {
		addr.Port = 80
		if addr.TLS {
			addr.Port = 443
		}
		return addr, nil
	}
	p, err := parsePort(port, addr.TLS)
	if err != nil {
		return Address{}, err
	}
	addr.Port = p
	return addr, nil
}

func parsePort(port string, useTLS bool) (int, error) {
	if port == "" {
		if useTLS {
			return DefaultTLSPort, nil
		}
		return DefaultPort, nil
	}
	p, err := strconv.Atoi(port)
	if err != nil || p < 1 || p > 65535 {
		return 0, fmt.Errorf("%w: bad port %q", ErrInvalidAddress, port)
	}
	return p, nil
}

// HostPort returns host:port.
func (a Address) HostPort() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// String returns the address as shown to the user.
func (a Address) String() string {
	if a.WebSocket {
		return a.URL()
	}
	if a.TLS {
		return "tls://" + a.HostPort()
	}
	return a.HostPort()
}

// URL returns the WebSocket URL for the address.
func (a Address) URL() string {
	scheme := "ws"
	if a.TLS {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: a.HostPort(), Path: a.Path}
	return u.String()
}

// DialOptions configures transport establishment.
type DialOptions struct {
	NoVerify  bool          // Skip server certificate verification
	CertFile  string        // PEM file holding client certificate and key (CertFP)
	Timeout   time.Duration // Connect and handshake timeout
	KeepAlive time.Duration // TCP keepalive period
}

// Dial establishes the transport described by addr.
func Dial(ctx context.Context, addr Address, opts DialOptions) (LineConn, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = 30 * time.Second
	}

	var tlsConfig *tls.Config
	if addr.TLS {
		cfg, err := buildTLSConfig(addr.Host, opts)
		if err != nil {
			return nil, err
		}
		tlsConfig = cfg
	}

	netDialer := &net.Dialer{Timeout: opts.Timeout, KeepAlive: opts.KeepAlive}

	if addr.WebSocket {
		d := websocket.Dialer{
			NetDialContext:   netDialer.DialContext,
			TLSClientConfig:  tlsConfig,
			HandshakeTimeout: opts.Timeout,
			Subprotocols:     []string{WebSocketSubprotocol},
		}
		conn, _, err := d.DialContext(ctx, addr.URL(), nil)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}
		return NewWebSocketConn(conn), nil
	}

	var (
		conn net.Conn
		err  error
	)
	if tlsConfig != nil {
		d := &tls.Dialer{NetDialer: netDialer, Config: tlsConfig}
		conn, err = d.DialContext(ctx, "tcp", addr.HostPort())
	} else {
		conn, err = netDialer.DialContext(ctx, "tcp", addr.HostPort())
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return NewStreamConn(conn), nil
}

func buildTLSConfig(host string, opts DialOptions) (*tls.Config, error) {
	cfg := &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: opts.NoVerify,
		MinVersion:         tls.VersionTLS12,
	}
	if opts.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.CertFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate %s: %w", opts.CertFile, err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}
