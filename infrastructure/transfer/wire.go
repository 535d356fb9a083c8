package transfer

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/http/httpguts"
	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"
)

// engineHeaders are the headers the engine sets itself, written right after Host.
var engineHeaders = []string{"User-Agent", "Accept-Encoding", "Content-Type"}

// framingHeaders are owned by the wire writer and never copied from the request.
var framingHeaders = map[string]bool{
	"Host":              true,
	"Content-Length":    true,
	"Transfer-Encoding": true,
}

// aLongTimeAgo unblocks pending I/O when set as a connection deadline.
var aLongTimeAgo = time.Unix(1, 0)

// headerField is one caller header line, in the order it was appended.
type headerField struct {
	key   string
	value string
}

type connKey struct {
	scheme string
	addr   string
}

// wireConn is an HTTP/1.1 connection, possibly tunnelled through a proxy.
type wireConn struct {
	conn     net.Conn
	br       *bufio.Reader
	bw       *bufio.Writer
	remoteIP string
	proto    string
	// absoluteForm is set when requests go to an HTTP proxy as absolute URLs.
	absoluteForm bool
}

type h2Conn struct {
	cc       *http2.ClientConn
	remoteIP string
}

// wireTransport is the http.RoundTripper behind a handle. HTTP/1.1 requests are
// written on the connection directly so header lines go out in the order they were
// appended. A TLS connection that negotiates h2 is handed to an x/net/http2 client
// connection and kept for reuse.
type wireTransport struct {
	dial           dialFunc
	tls            *tls.Config
	proxy          *url.URL
	h2             *http2.Transport
	connectTimeout time.Duration
	noReuse        bool

	// Set by Perform before each transfer.
	fields   []headerField
	remoteIP string

	mu    sync.Mutex
	idle  map[connKey]*wireConn
	h2Map map[connKey]*h2Conn
}

func newWireTransport(dial dialFunc, tlsCfg *tls.Config, proxyURL *url.URL, connectTimeout time.Duration, noReuse bool) *wireTransport {
	return &wireTransport{
		dial:           dial,
		tls:            tlsCfg,
		proxy:          proxyURL,
		h2:             &http2.Transport{DisableCompression: true},
		connectTimeout: connectTimeout,
		noReuse:        noReuse,
		idle:           make(map[connKey]*wireConn),
		h2Map:          make(map[connKey]*h2Conn),
	}
}

// RoundTrip implements http.RoundTripper.
func (t *wireTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	key := connKey{scheme: strings.ToLower(req.URL.Scheme), addr: canonicalAddr(req.URL)}

	if hc := t.takeH2(key); hc != nil {
		t.remoteIP = hc.remoteIP
		return hc.cc.RoundTrip(req)
	}

	if wc := t.takeIdle(key, req); wc != nil {
		t.remoteIP = wc.remoteIP
		resp, err := t.exchange(key, wc, req)
		// A kept connection the server closed meanwhile fails before any reply.
		if err == nil || req.Context().Err() != nil || !isStale(err) {
			return resp, err
		}
	}

	wc, err := t.connect(req.Context(), req.URL)
	if err != nil {
		closeBody(req)
		return nil, err
	}
	if wc.proto == http2.NextProtoTLS {
		cc, err := t.h2.NewClientConn(wc.conn)
		if err != nil {
			_ = wc.conn.Close()
			closeBody(req)
			return nil, err
		}
		hc := &h2Conn{cc: cc, remoteIP: wc.remoteIP}
		if !t.noReuse {
			t.putH2(key, hc)
		}
		t.remoteIP = hc.remoteIP
		return cc.RoundTrip(req)
	}
	t.remoteIP = wc.remoteIP
	return t.exchange(key, wc, req)
}

func isStale(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == SendError
	}
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET)
}

// exchange writes one request on wc and reads the response head. The connection
// returns to the idle set once the body has been read to the end.
func (t *wireTransport) exchange(key connKey, wc *wireConn, req *http.Request) (*http.Response, error) {
	stop := context.AfterFunc(req.Context(), func() {
		_ = wc.conn.SetDeadline(aLongTimeAgo)
	})
	fail := func(err error) (*http.Response, error) {
		stop()
		_ = wc.conn.Close()
		return nil, err
	}

	if err := t.writeRequest(wc, req); err != nil {
		return fail(err)
	}

	var resp *http.Response
	for {
		var err error
		resp, err = http.ReadResponse(wc.br, req)
		if err != nil {
			return fail(err)
		}
		// Interim responses carry no body; the final one follows.
		if resp.StatusCode < 100 || resp.StatusCode > 199 || resp.StatusCode == http.StatusSwitchingProtocols {
			break
		}
	}

	resp.Body = &wireBody{
		ReadCloser: resp.Body,
		t:          t,
		key:        key,
		wc:         wc,
		stop:       stop,
		eof:        resp.Body == http.NoBody,
		reusable:   !t.noReuse && !resp.Close && resp.ProtoAtLeast(1, 1),
	}
	return resp, nil
}

// writeRequest writes the request line, Host, the engine headers, the framing
// headers, the caller's lines in order and then anything else the request carries.
func (t *wireTransport) writeRequest(wc *wireConn, req *http.Request) error {
	w := wc.bw
	target := req.URL.RequestURI()
	if wc.absoluteForm {
		u := *req.URL
		u.User = nil
		target = u.String()
	}
	host := req.Host
	if host == "" {
		host = req.URL.Host
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s HTTP/1.1\r\n", req.Method, target)
	writeField(&sb, "Host", host)

	callerKeys := make(map[string]bool, len(t.fields))
	for _, f := range t.fields {
		callerKeys[f.key] = true
	}
	written := make(map[string]bool)

	for _, key := range engineHeaders {
		if callerKeys[key] {
			continue
		}
		if v := req.Header.Get(key); v != "" {
			writeField(&sb, key, v)
		}
		written[key] = true
	}

	hasBody := req.Body != nil && req.Body != http.NoBody
	chunked := hasBody && req.ContentLength < 0
	switch {
	case chunked:
		writeField(&sb, "Transfer-Encoding", "chunked")
	case hasBody:
		writeField(&sb, "Content-Length", strconv.FormatInt(req.ContentLength, 10))
	case req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch:
		writeField(&sb, "Content-Length", "0")
	}

	for _, f := range t.fields {
		if framingHeaders[f.key] {
			continue
		}
		if _, ok := req.Header[f.key]; !ok {
			continue
		}
		if !httpguts.ValidHeaderFieldName(f.key) || !httpguts.ValidHeaderFieldValue(f.value) {
			return newErrorf(BadFunctionArgument, "invalid header line %q", f.key+": "+f.value)
		}
		writeField(&sb, f.key, f.value)
		written[f.key] = true
	}

	rest := make([]string, 0, len(req.Header))
	for key := range req.Header {
		if !written[key] && !framingHeaders[key] && !callerKeys[key] {
			rest = append(rest, key)
		}
	}
	slices.Sort(rest)
	for _, key := range rest {
		for _, v := range req.Header[key] {
			if !httpguts.ValidHeaderFieldName(key) || !httpguts.ValidHeaderFieldValue(v) {
				return newErrorf(BadFunctionArgument, "invalid header %q", key)
			}
			writeField(&sb, key, v)
		}
	}

	if wc.absoluteForm {
		if auth := t.proxyAuthorization(); auth != "" {
			writeField(&sb, "Proxy-Authorization", auth)
		}
	}
	if t.noReuse && !callerKeys["Connection"] {
		writeField(&sb, "Connection", "close")
	}
	sb.WriteString("\r\n")

	if _, err := w.WriteString(sb.String()); err != nil {
		return newError(SendError, err)
	}
	if hasBody {
		if err := writeBody(w, req, chunked); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return newError(SendError, err)
	}
	return nil
}

func writeField(sb *strings.Builder, key, value string) {
	sb.WriteString(key)
	sb.WriteString(": ")
	sb.WriteString(value)
	sb.WriteString("\r\n")
}

func writeBody(w *bufio.Writer, req *http.Request, chunked bool) error {
	defer func() { _ = req.Body.Close() }()

	if chunked {
		cw := httputil.NewChunkedWriter(w)
		if _, err := io.Copy(cw, req.Body); err != nil {
			return bodyError(err)
		}
		if err := cw.Close(); err != nil {
			return newError(SendError, err)
		}
		_, err := w.WriteString("\r\n")
		return err
	}

	n, err := io.Copy(w, io.LimitReader(req.Body, req.ContentLength))
	if err != nil {
		return bodyError(err)
	}
	if n != req.ContentLength {
		return newErrorf(ReadError, "request body ended after %d of %d bytes", n, req.ContentLength)
	}
	return nil
}

// bodyError keeps engine errors raised by the read callback and reports the rest
// as send failures.
func bodyError(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(SendError, err)
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}

// connect opens a connection to the request's origin, directly, through a SOCKS
// proxy or through an HTTP proxy (tunnelled for https), then runs the TLS handshake.
func (t *wireTransport) connect(ctx context.Context, u *url.URL) (*wireConn, error) {
	addr := canonicalAddr(u)
	https := strings.EqualFold(u.Scheme, "https")

	var (
		conn     net.Conn
		err      error
		absolute bool
	)
	switch {
	case t.proxy == nil:
		conn, err = t.dial(ctx, "tcp", addr)
	case isSOCKS(t.proxy.Scheme):
		conn, err = t.dialSOCKS(ctx, addr)
	default:
		conn, err = t.dialProxy(ctx)
		if err == nil && https {
			err = t.tunnel(ctx, conn, addr)
		}
		absolute = !https
	}
	if err != nil {
		if conn != nil {
			_ = conn.Close()
		}
		return nil, err
	}

	wc := &wireConn{conn: conn, absoluteForm: absolute, remoteIP: remoteIP(conn)}
	if https {
		tc, err := t.handshake(ctx, conn, u.Hostname(), []string{http2.NextProtoTLS, "http/1.1"})
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		wc.conn = tc
		wc.proto = tc.ConnectionState().NegotiatedProtocol
	}
	wc.br = bufio.NewReader(wc.conn)
	wc.bw = bufio.NewWriter(wc.conn)
	return wc, nil
}

func (t *wireTransport) handshake(ctx context.Context, conn net.Conn, serverName string, protos []string) (*tls.Conn, error) {
	cfg := t.tls.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = serverName
	}
	cfg.NextProtos = protos

	if t.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.connectTimeout)
		defer cancel()
	}
	tc := tls.Client(conn, cfg)
	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, err
	}
	return tc, nil
}

func isSOCKS(scheme string) bool {
	s := strings.ToLower(scheme)
	return s == "socks5" || s == "socks5h"
}

func (t *wireTransport) dialSOCKS(ctx context.Context, addr string) (net.Conn, error) {
	d, err := proxy.FromURL(t.proxy, t.dial)
	if err != nil {
		return nil, newError(CouldntResolveProxy, err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return d.Dial("tcp", addr)
	}
	conn, err := cd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &net.OpError{Op: "proxyconnect", Net: "tcp", Err: err}
	}
	return conn, nil
}

// dialProxy connects to an HTTP or HTTPS proxy.
func (t *wireTransport) dialProxy(ctx context.Context) (net.Conn, error) {
	conn, err := t.dial(ctx, "tcp", t.proxy.Host)
	if err != nil {
		return nil, &net.OpError{Op: "proxyconnect", Net: "tcp", Err: err}
	}
	if !strings.EqualFold(t.proxy.Scheme, "https") {
		return conn, nil
	}
	tc, err := t.handshake(ctx, conn, t.proxy.Hostname(), []string{"http/1.1"})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return tc, nil
}

// tunnel issues CONNECT addr on a proxy connection.
func (t *wireTransport) tunnel(ctx context.Context, conn net.Conn, addr string) error {
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(aLongTimeAgo) })
	defer stop()

	var sb strings.Builder
	fmt.Fprintf(&sb, "CONNECT %s HTTP/1.1\r\n", addr)
	writeField(&sb, "Host", addr)
	if auth := t.proxyAuthorization(); auth != "" {
		writeField(&sb, "Proxy-Authorization", auth)
	}
	sb.WriteString("\r\n")
	if _, err := io.WriteString(conn, sb.String()); err != nil {
		return &net.OpError{Op: "proxyconnect", Net: "tcp", Err: err}
	}

	connectReq := &http.Request{Method: http.MethodConnect, URL: &url.URL{Opaque: addr}, Host: addr}
	resp, err := http.ReadResponse(bufio.NewReader(conn), connectReq)
	if err != nil {
		return newError(ProxyError, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return newErrorf(ProxyError, "CONNECT tunnel failed, response %d", resp.StatusCode)
	}
	return nil
}

func (t *wireTransport) proxyAuthorization() string {
	if t.proxy == nil || t.proxy.User == nil {
		return ""
	}
	pass, _ := t.proxy.User.Password()
	creds := t.proxy.User.Username() + ":" + pass
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(creds))
}

// takeIdle returns a kept-alive connection for key. Only requests whose body can be
// replayed go on a reused connection, since the peer may have closed it.
func (t *wireTransport) takeIdle(key connKey, req *http.Request) *wireConn {
	if req.Body != nil && req.Body != http.NoBody {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	wc := t.idle[key]
	delete(t.idle, key)
	return wc
}

func (t *wireTransport) putIdle(key connKey, wc *wireConn) {
	_ = wc.conn.SetDeadline(time.Time{})
	t.mu.Lock()
	prev := t.idle[key]
	t.idle[key] = wc
	t.mu.Unlock()
	if prev != nil {
		_ = prev.conn.Close()
	}
}

func (t *wireTransport) takeH2(key connKey) *h2Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	hc := t.h2Map[key]
	if hc == nil {
		return nil
	}
	if !hc.cc.CanTakeNewRequest() {
		delete(t.h2Map, key)
		_ = hc.cc.Close()
		return nil
	}
	return hc
}

func (t *wireTransport) putH2(key connKey, hc *h2Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.h2Map[key] = hc
}

// closeIdle closes every kept connection.
func (t *wireTransport) closeIdle() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, wc := range t.idle {
		_ = wc.conn.Close()
		delete(t.idle, key)
	}
	for key, hc := range t.h2Map {
		_ = hc.cc.Close()
		delete(t.h2Map, key)
	}
}

// wireBody is an HTTP/1.1 response body. Closing it after EOF keeps the connection.
type wireBody struct {
	io.ReadCloser
	t        *wireTransport
	key      connKey
	wc       *wireConn
	stop     func() bool
	eof      bool
	reusable bool
	closed   bool
}

func (b *wireBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err == io.EOF {
		b.eof = true
	}
	return n, err
}

func (b *wireBody) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	// stop reports false when the context already fired and poisoned the deadline.
	live := b.stop()
	_ = b.ReadCloser.Close()
	if b.eof && b.reusable && live {
		b.t.putIdle(b.key, b.wc)
		return nil
	}
	return b.wc.conn.Close()
}

func canonicalAddr(u *url.URL) string {
	port := u.Port()
	if port == "" {
		port = "80"
		if strings.EqualFold(u.Scheme, "https") {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port)
}

func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return ""
	}
	return host
}
