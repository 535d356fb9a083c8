package transfer

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
	"github.com/RekGRpth/pg-curl-sub000/domain/ports"
)

// progressInterval is how often the progress callback is polled while the transfer
// waits on the network.
const progressInterval = 50 * time.Millisecond

var (
	errTooManyRedirects = errors.New("maximum redirects followed")
	errRedirectProtocol = errors.New("redirect to a disallowed protocol")
)

// progress tracks transfer counters and polls the progress callback.
type progress struct {
	fn      ports.XferInfoFunc
	cancel  context.CancelCauseFunc
	mu      sync.Mutex
	dlTotal atomic.Int64
	dlNow   atomic.Int64
	ulTotal atomic.Int64
	ulNow   atomic.Int64
	aborted atomic.Bool
}

// poll calls the progress callback and cancels the transfer on a non-zero return.
func (p *progress) poll() bool {
	if p.fn == nil {
		return false
	}
	if p.aborted.Load() {
		return true
	}
	p.mu.Lock()
	rc := p.fn(p.dlTotal.Load(), p.dlNow.Load(), p.ulTotal.Load(), p.ulNow.Load())
	p.mu.Unlock()
	if rc != 0 {
		p.aborted.Store(true)
		p.cancel(AbortedByCallback)
		return true
	}
	return false
}

func (p *progress) watch(done <-chan struct{}) {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if p.poll() {
				return
			}
		}
	}
}

// callbackReader feeds the request body from the read callback.
type callbackReader struct {
	fn ports.ReadFunc
	p  *progress
}

func (r *callbackReader) Read(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	n := r.fn(b)
	if n < 0 || n > len(b) {
		return 0, newErrorf(ReadError, "read callback returned %d", n)
	}
	if n == 0 {
		return 0, io.EOF
	}
	r.p.ulNow.Add(int64(n))
	if r.p.poll() {
		return n, newError(AbortedByCallback, nil)
	}
	return n, nil
}

// countingReader counts request body bytes of an in-memory body.
type countingReader struct {
	r io.Reader
	p *progress
}

func (c *countingReader) Read(b []byte) (int, error) {
	n, err := c.r.Read(b)
	c.p.ulNow.Add(int64(n))
	return n, err
}

// Perform runs the configured transfer synchronously. ctx is the caller's
// cancellation token: cancelling it aborts the transfer like a non-zero progress
// callback would.
func (h *Handle) Perform(ctx context.Context) error {
	if h.closed {
		return newErrorf(BadFunctionArgument, "handle is closed")
	}
	start := time.Now()
	h.info = transferInfo{}

	target, err := h.targetURL()
	if err != nil {
		return err
	}

	if h.dirty || h.transport == nil {
		h.closeTransport()
		t, err := h.buildTransport()
		if err != nil {
			return err
		}
		h.transport = t
		h.dirty = false
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if h.opts.timeout > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeoutCause(ctx, h.opts.timeout, OperationTimedOut)
		defer cancelTimeout()
	}

	prog := &progress{cancel: cancel}
	if !h.opts.noProgress {
		prog.fn = h.opts.xferFunc
	}
	if prog.poll() {
		return newError(AbortedByCallback, nil)
	}
	done := make(chan struct{})
	defer close(done)
	if prog.fn != nil {
		go prog.watch(done)
	}

	req, fields, err := h.newRequest(ctx, target, prog)
	if err != nil {
		return err
	}

	var redirects int64
	h.transport.fields = fields
	h.transport.remoteIP = ""

	client := &http.Client{
		Transport: h.transport,
		CheckRedirect: func(next *http.Request, via []*http.Request) error {
			if !h.opts.followLocation {
				return http.ErrUseLastResponse
			}
			if h.opts.maxRedirs >= 0 && int64(len(via)) > h.opts.maxRedirs {
				return errTooManyRedirects
			}
			if !h.schemeAllowed(next.URL.Scheme) {
				return errRedirectProtocol
			}
			redirects++
			return nil
		},
	}

	h.logger.DebugContext(ctx, "transfer: performing", "method", req.Method, "url", target.Redacted())

	resp, err := client.Do(req)
	h.info.redirectCount = redirects
	h.info.sizeUpload = prog.ulNow.Load()
	if err != nil {
		h.info.totalTime = time.Since(start)
		return h.fail(ctx, classify(ctx, err))
	}
	defer func() { _ = resp.Body.Close() }()

	h.info.primaryIP = h.transport.remoteIP
	h.recordResponse(resp)

	if err := h.readBody(ctx, req.Method, resp, prog); err != nil {
		h.info.totalTime = time.Since(start)
		return h.fail(ctx, err)
	}

	h.info.sizeUpload = prog.ulNow.Load()
	h.info.totalTime = time.Since(start)
	h.logger.DebugContext(ctx, "transfer: complete",
		"status", resp.StatusCode,
		"bytes", h.info.sizeDownload,
		"duration", h.info.totalTime)
	return nil
}

func (h *Handle) fail(ctx context.Context, err *Error) error {
	h.logger.DebugContext(ctx, "transfer: failed", "code", int(err.Code), "error", err)
	return err
}

// targetURL parses the URL option and checks its scheme against PROTOCOLS.
func (h *Handle) targetURL() (*url.URL, error) {
	raw := strings.TrimSpace(h.opts.url)
	if raw == "" {
		return nil, newErrorf(URLMalformat, "no URL set")
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, newError(URLMalformat, err)
	}
	if !h.schemeAllowed(u.Scheme) {
		return nil, newErrorf(UnsupportedProtocol, "protocol %q not supported or disabled", u.Scheme)
	}
	if u.Host == "" {
		return nil, newErrorf(URLMalformat, "no host part in the URL")
	}
	return u, nil
}

func (h *Handle) schemeAllowed(scheme string) bool {
	switch strings.ToLower(scheme) {
	case "http":
		return h.opts.protocols&entities.ProtoHTTP != 0
	case "https":
		return h.opts.protocols&entities.ProtoHTTPS != 0
	default:
		return false
	}
}

// newRequest builds the request: method, body, then engine-set headers, then the
// caller's header lines which override them. The caller's lines are also returned in
// the order they go on the wire.
func (h *Handle) newRequest(ctx context.Context, target *url.URL, prog *progress) (*http.Request, []headerField, error) {
	o := &h.opts
	method := http.MethodGet
	var (
		body        io.Reader
		length      int64 = -1
		contentType string
	)

	switch {
	case o.upload:
		method = http.MethodPut
		if o.readFn != nil {
			body = &callbackReader{fn: o.readFn, p: prog}
		}
		length = o.inFileSize
	case o.mime != nil:
		data, ct, err := o.mime.encode()
		if err != nil {
			return nil, nil, err
		}
		method = http.MethodPost
		body = &countingReader{r: bytes.NewReader(data), p: prog}
		length = int64(len(data))
		contentType = ct
	case o.post:
		method = http.MethodPost
		if o.readFn != nil {
			body = &callbackReader{fn: o.readFn, p: prog}
			length = o.inFileSize
		} else {
			length = 0
		}
	case o.noBody:
		method = http.MethodHead
	}
	if o.customRequest != "" {
		method = o.customRequest
	}
	if body == nil || length == 0 {
		body = http.NoBody
		if length < 0 {
			length = 0
		}
	}
	if length > 0 {
		prog.ulTotal.Store(length)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, nil, newError(URLMalformat, err)
	}
	if body != http.NoBody {
		// -1 sends the body chunked.
		req.ContentLength = length
	}

	// An empty User-Agent suppresses net/http's default one.
	req.Header.Set("User-Agent", o.userAgent)
	if o.acceptEncoding != nil {
		enc := *o.acceptEncoding
		if enc == "" {
			enc = supportedEncodings
		}
		req.Header.Set("Accept-Encoding", enc)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	fields := applyHeaderLines(req, o.headers)
	return req, fields, nil
}

// applyHeaderLines applies "Name: Value" lines. "Name:" removes an engine-set header,
// "Name;" sends the header with an empty value. The surviving lines are returned in
// list order.
func applyHeaderLines(req *http.Request, lines []string) []headerField {
	fields := make([]headerField, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	add := func(key, value string) {
		if !seen[key] {
			req.Header.Del(key)
			seen[key] = true
		}
		req.Header[key] = append(req.Header[key], value)
		fields = append(fields, headerField{key: key, value: value})
	}
	for _, line := range lines {
		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			if name, ok := strings.CutSuffix(strings.TrimSpace(line), ";"); ok && name != "" {
				add(http.CanonicalHeaderKey(name), "")
			}
			continue
		}
		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if name == "" {
			continue
		}
		key := http.CanonicalHeaderKey(name)
		if value == "" {
			req.Header.Del(key)
			fields = slices.DeleteFunc(fields, func(f headerField) bool { return f.key == key })
			continue
		}
		if key == "Host" {
			req.Host = value
			continue
		}
		add(key, value)
	}
	return fields
}

func (h *Handle) recordResponse(resp *http.Response) {
	info := &h.info
	info.responseCode = int64(resp.StatusCode)
	if ct, ok := resp.Header["Content-Type"]; ok && len(ct) > 0 {
		info.contentType = ct[0]
		info.hasContentType = true
	}
	if resp.Request != nil && resp.Request.URL != nil {
		info.effectiveURL = resp.Request.URL.String()
	}
	switch {
	case resp.ProtoMajor == 1 && resp.ProtoMinor == 0:
		info.httpVersion = 1
	case resp.ProtoMajor == 1:
		info.httpVersion = 2
	case resp.ProtoMajor == 2:
		info.httpVersion = 3
	case resp.ProtoMajor == 3:
		info.httpVersion = 30
	}
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc, err := resp.Location(); err == nil {
			info.redirectURL = loc.String()
		}
	}

	size := len(resp.Proto) + len(resp.Status) + 3
	for name, values := range resp.Header {
		for _, v := range values {
			size += len(name) + len(v) + 4
		}
	}
	info.headerSize = int64(size + 2)
}

// readBody decodes the response body and hands it to the write callback.
func (h *Handle) readBody(ctx context.Context, method string, resp *http.Response, prog *progress) *Error {
	if method == http.MethodHead {
		return nil
	}
	if resp.ContentLength > 0 {
		prog.dlTotal.Store(resp.ContentLength)
	}

	var body io.ReadCloser = resp.Body
	if h.opts.acceptEncoding != nil {
		decoded, err := decodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
		if err != nil {
			return asError(err, BadContentEncoding)
		}
		defer func() { _ = decoded.Close() }()
		body = decoded
	}

	buf := make([]byte, 32*1024)
	for {
		n, rerr := body.Read(buf)
		if n > 0 {
			h.info.sizeDownload += int64(n)
			prog.dlNow.Add(int64(n))
			if fn := h.opts.writeFn; fn != nil {
				if written := fn(buf[:n]); written != n {
					return newErrorf(WriteError, "write callback accepted %d of %d bytes", written, n)
				}
			}
			if prog.poll() {
				return newError(AbortedByCallback, nil)
			}
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			if h.opts.acceptEncoding != nil && ctx.Err() == nil && isDecodeError(rerr) {
				return newError(BadContentEncoding, rerr)
			}
			return classify(ctx, rerr)
		}
	}
}

func isDecodeError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return false
	}
	return !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, context.Canceled)
}

func asError(err error, fallback Code) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return newError(fallback, err)
}

// classify maps a net/http failure to an engine code.
func classify(ctx context.Context, err error) *Error {
	switch {
	case errors.Is(err, errTooManyRedirects):
		return newError(TooManyRedirects, err)
	case errors.Is(err, errRedirectProtocol):
		return newError(UnsupportedProtocol, err)
	}

	if cause := context.Cause(ctx); cause != nil {
		var code Code
		switch {
		case errors.As(cause, &code):
			return newError(code, err)
		case errors.Is(cause, context.DeadlineExceeded):
			return newError(OperationTimedOut, err)
		default:
			return newError(AbortedByCallback, err)
		}
	}

	var engineErr *Error
	if errors.As(err, &engineErr) {
		return engineErr
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return newError(CouldntResolveHost, err)
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	var invalidErr x509.CertificateInvalidError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostnameErr) || errors.As(err, &invalidErr) {
		return newError(PeerFailedVerification, err)
	}

	var recordErr tls.RecordHeaderError
	var alertErr tls.AlertError
	if errors.As(err, &recordErr) || errors.As(err, &alertErr) {
		return newError(SSLConnectError, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(OperationTimedOut, err)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && (opErr.Op == "dial" || opErr.Op == "proxyconnect") {
		return newError(CouldntConnect, err)
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return newError(GotNothing, err)
	}

	return newError(RecvError, err)
}
