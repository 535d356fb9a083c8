package transfer

import (
	"context"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
	"golang.org/x/net/proxy"
)

const defaultProxyPort = 1080

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// Dial implements proxy.Dialer.
func (f dialFunc) Dial(network, addr string) (net.Conn, error) {
	return f(context.Background(), network, addr)
}

// DialContext implements proxy.ContextDialer.
func (f dialFunc) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	return f(ctx, network, addr)
}

// buildTransport turns the handle options into the wire transport.
func (h *Handle) buildTransport() (*wireTransport, error) {
	o := &h.opts

	tlsCfg, err := o.tlsConfig()
	if err != nil {
		return nil, err
	}

	dialer := &net.Dialer{
		Timeout:   o.connectTimeout,
		KeepAlive: -1,
	}
	if o.tcpKeepAlive {
		dialer.KeepAlive = o.keepIdle
	}

	dial, err := o.dialer(dialer)
	if err != nil {
		return nil, err
	}

	var proxyURL *url.URL
	if o.proxy != "" {
		if proxyURL, err = o.proxyURL(); err != nil {
			return nil, err
		}
	}

	return newWireTransport(dial, tlsCfg, proxyURL, o.connectTimeout, o.forbidReuse), nil
}

// dialer composes the base dialer with IP family selection, custom DNS servers and
// the SOCKS pre-proxy.
func (o *options) dialer(base *net.Dialer) (dialFunc, error) {
	network := "tcp"
	switch o.ipResolve {
	case entities.IPResolveV4:
		network = "tcp4"
	case entities.IPResolveV6:
		network = "tcp6"
	}

	var resolver *dnsResolver
	if len(o.dnsServers) > 0 {
		resolver = newDNSResolver(o.dnsServers, o.connectTimeout)
	}
	ipResolve := o.ipResolve

	var dial dialFunc = func(ctx context.Context, _, addr string) (net.Conn, error) {
		if resolver == nil {
			return base.DialContext(ctx, network, addr)
		}
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}
		if net.ParseIP(host) != nil {
			return base.DialContext(ctx, network, addr)
		}
		ips, err := resolver.lookup(ctx, host, ipResolve)
		if err != nil {
			return nil, err
		}
		var lastErr error
		for _, ip := range ips {
			conn, err := base.DialContext(ctx, network, net.JoinHostPort(ip.String(), port))
			if err == nil {
				return conn, nil
			}
			lastErr = err
		}
		return nil, lastErr
	}

	if o.preProxy == "" {
		return dial, nil
	}

	addr, auth, err := parsePreProxy(o.preProxy)
	if err != nil {
		return nil, err
	}
	socks, err := proxy.SOCKS5("tcp", addr, auth, dial)
	if err != nil {
		return nil, newError(CouldntResolveProxy, err)
	}
	cd, ok := socks.(proxy.ContextDialer)
	if !ok {
		return func(_ context.Context, network, addr string) (net.Conn, error) {
			return socks.Dial(network, addr)
		}, nil
	}
	return cd.DialContext, nil
}

// parsePreProxy accepts socks5://[user:pass@]host[:port], socks5h:// or a bare host.
func parsePreProxy(raw string) (string, *proxy.Auth, error) {
	if !strings.Contains(raw, "://") {
		raw = "socks5://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", nil, newError(URLMalformat, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "socks5", "socks5h":
	default:
		return "", nil, newErrorf(NotBuiltIn, "pre-proxy scheme %q is not supported", u.Scheme)
	}
	port := u.Port()
	if port == "" {
		port = strconv.Itoa(defaultProxyPort)
	}
	var auth *proxy.Auth
	if u.User != nil {
		pass, _ := u.User.Password()
		auth = &proxy.Auth{User: u.User.Username(), Password: pass}
	}
	return net.JoinHostPort(u.Hostname(), port), auth, nil
}

// proxyURL builds the proxy URL, applying PROXYPORT and the proxy credentials.
func (o *options) proxyURL() (*url.URL, error) {
	raw := o.proxy
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, newError(URLMalformat, err)
	}
	if u.Hostname() == "" {
		return nil, newErrorf(CouldntResolveProxy, "proxy %q has no host", o.proxy)
	}

	port := ""
	switch strings.ToLower(u.Scheme) {
	case "http", "socks5", "socks5h":
		port = strconv.Itoa(defaultProxyPort)
	case "https":
		port = "443"
	default:
		return nil, newErrorf(UnsupportedProtocol, "proxy scheme %q is not supported", u.Scheme)
	}
	if o.proxyPort > 0 {
		port = strconv.FormatInt(o.proxyPort, 10)
	}
	if u.Port() == "" {
		u.Host = net.JoinHostPort(u.Hostname(), port)
	}

	if o.proxyUsername != "" || o.proxyPassword != "" {
		u.User = url.UserPassword(o.proxyUsername, o.proxyPassword)
	}
	return u, nil
}

// tlsConfig builds the client TLS configuration.
func (o *options) tlsConfig() (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if o.caInfo != "" || o.proxyCAInfo != "" {
		var pool *x509.CertPool
		if o.caInfo != "" {
			pool = x509.NewCertPool()
			if err := appendCAFile(pool, o.caInfo); err != nil {
				return nil, err
			}
		} else {
			sys, err := x509.SystemCertPool()
			if err != nil || sys == nil {
				sys = x509.NewCertPool()
			}
			pool = sys
		}
		if o.proxyCAInfo != "" {
			if err := appendCAFile(pool, o.proxyCAInfo); err != nil {
				return nil, err
			}
		}
		cfg.RootCAs = pool
	}

	if o.sslCert != "" {
		cert, err := loadClientCertificate(o.sslCert, o.sslKey, o.sslCertType)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	switch {
	case !o.verifyPeer:
		cfg.InsecureSkipVerify = true //nolint:gosec // G402: caller disabled peer verification explicitly
	case o.verifyHost == 0:
		roots := cfg.RootCAs
		cfg.InsecureSkipVerify = true //nolint:gosec // G402: chain is still verified in VerifyConnection
		cfg.VerifyConnection = func(cs tls.ConnectionState) error {
			return verifyChain(cs, roots)
		}
	}

	return cfg, nil
}

// verifyChain verifies the peer certificate chain without checking the host name.
func verifyChain(cs tls.ConnectionState, roots *x509.CertPool) error {
	if len(cs.PeerCertificates) == 0 {
		return errors.New("peer sent no certificate")
	}
	opts := x509.VerifyOptions{
		Roots:         roots,
		Intermediates: x509.NewCertPool(),
	}
	for _, c := range cs.PeerCertificates[1:] {
		opts.Intermediates.AddCert(c)
	}
	_, err := cs.PeerCertificates[0].Verify(opts)
	return err
}

func appendCAFile(pool *x509.CertPool, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newError(SSLCACertBadFile, err)
	}
	if !pool.AppendCertsFromPEM(data) {
		return newErrorf(SSLCACertBadFile, "no certificates found in %s", path)
	}
	return nil
}

// loadClientCertificate loads a PEM or DER client certificate. An empty keyFile
// means the key lives in certFile.
func loadClientCertificate(certFile, keyFile, certType string) (tls.Certificate, error) {
	if keyFile == "" {
		keyFile = certFile
	}
	switch certType {
	case "", "PEM":
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return tls.Certificate{}, newError(SSLCertProblem, err)
		}
		return cert, nil
	case "DER":
		certDER, err := os.ReadFile(certFile)
		if err != nil {
			return tls.Certificate{}, newError(SSLCertProblem, err)
		}
		keyDER, err := os.ReadFile(keyFile)
		if err != nil {
			return tls.Certificate{}, newError(SSLCertProblem, err)
		}
		key, err := parseDERPrivateKey(keyDER)
		if err != nil {
			return tls.Certificate{}, newError(SSLCertProblem, err)
		}
		return tls.Certificate{Certificate: [][]byte{certDER}, PrivateKey: key}, nil
	default:
		return tls.Certificate{}, newErrorf(SSLCertProblem, "certificate type %q is not supported", certType)
	}
}

func parseDERPrivateKey(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("unrecognised private key encoding")
}
