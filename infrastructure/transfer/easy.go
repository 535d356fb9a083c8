package transfer

import (
	"log/slog"
	"strings"
	"time"

	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
	"github.com/RekGRpth/pg-curl-sub000/domain/ports"
)

const (
	defaultConnectTimeout = 300 * time.Second
	defaultKeepIdle       = 60 * time.Second
)

// options is the configuration of one easy handle. Zero values are not the
// defaults; use defaultOptions.
type options struct {
	url            string
	customRequest  string
	userAgent      string
	acceptEncoding *string
	caInfo         string
	proxyCAInfo    string
	dnsServers     []string
	mailAuth       string
	preProxy       string
	proxy          string
	proxyUsername  string
	proxyPassword  string
	sslCert        string
	sslCertType    string
	sslKey         string

	connectTimeout time.Duration
	timeout        time.Duration
	keepIdle       time.Duration
	inFileSize     int64
	maxRedirs      int64
	ipResolve      int64
	proxyPort      int64
	verifyHost     int64
	protocols      entities.Protocol

	followLocation bool
	forbidReuse    bool
	noBody         bool
	post           bool
	upload         bool
	verifyPeer     bool
	tcpKeepAlive   bool
	noProgress     bool

	headers  []string
	mime     *Mime
	readFn   ports.ReadFunc
	writeFn  ports.WriteFunc
	xferFunc ports.XferInfoFunc
}

func defaultOptions() options {
	return options{
		connectTimeout: defaultConnectTimeout,
		keepIdle:       defaultKeepIdle,
		inFileSize:     -1,
		maxRedirs:      -1,
		verifyHost:     2,
		verifyPeer:     true,
		noProgress:     true,
		protocols:      entities.ProtoHTTP | entities.ProtoHTTPS,
		sslCertType:    "PEM",
	}
}

// transferInfo is what the last perform learned about the transfer.
type transferInfo struct {
	contentType    string
	hasContentType bool
	effectiveURL   string
	primaryIP      string
	redirectURL    string
	responseCode   int64
	httpVersion    int64
	redirectCount  int64
	headerSize     int64
	sizeDownload   int64
	sizeUpload     int64
	totalTime      time.Duration
}

// Handle is an easy handle backed by the wire transport. It is not safe for concurrent use;
// the owning session serialises access.
type Handle struct {
	logger    *slog.Logger
	transport *wireTransport
	opts      options
	info      transferInfo
	dirty     bool
	closed    bool
}

var _ ports.EasyHandle = (*Handle)(nil)

func newHandle(logger *slog.Logger) *Handle {
	return &Handle{
		logger: logger,
		opts:   defaultOptions(),
		dirty:  true,
	}
}

// SetOptString sets a text option.
func (h *Handle) SetOptString(opt entities.Option, value string) error {
	if h.closed {
		return newErrorf(BadFunctionArgument, "handle is closed")
	}
	o := &h.opts
	switch opt {
	case entities.OptURL:
		o.url = value
	case entities.OptCustomRequest:
		o.customRequest = value
	case entities.OptUserAgent:
		o.userAgent = value
	case entities.OptAcceptEncoding:
		v := value
		o.acceptEncoding = &v
	case entities.OptCAInfo:
		o.caInfo = value
	case entities.OptProxyCAInfo:
		o.proxyCAInfo = value
	case entities.OptDNSServers:
		servers, err := parseDNSServers(value)
		if err != nil {
			return err
		}
		o.dnsServers = servers
	case entities.OptMailAuth:
		o.mailAuth = value
	case entities.OptPreProxy:
		o.preProxy = value
	case entities.OptProxy:
		o.proxy = value
	case entities.OptProxyUsername:
		o.proxyUsername = value
	case entities.OptProxyPassword:
		o.proxyPassword = value
	case entities.OptSSLCert:
		o.sslCert = value
	case entities.OptSSLCertType:
		o.sslCertType = strings.ToUpper(value)
	case entities.OptSSLKey:
		o.sslKey = value
	case entities.OptTLSAuthUsername, entities.OptTLSAuthPassword, entities.OptTLSAuthType,
		entities.OptProxyTLSAuthUsername, entities.OptProxyTLSAuthPassword, entities.OptProxyTLSAuthType:
		return newErrorf(NotBuiltIn, "TLS-SRP authentication is not available")
	default:
		return newErrorf(UnknownOption, "option %s does not take a string", opt)
	}
	h.dirty = true
	return nil
}

// SetOptLong sets an integer option.
func (h *Handle) SetOptLong(opt entities.Option, value int64) error {
	if h.closed {
		return newErrorf(BadFunctionArgument, "handle is closed")
	}
	o := &h.opts
	switch opt {
	case entities.OptConnectTimeout:
		if value < 0 {
			return newErrorf(BadFunctionArgument, "negative connect timeout")
		}
		o.connectTimeout = time.Duration(value) * time.Second
		if value == 0 {
			o.connectTimeout = defaultConnectTimeout
		}
	case entities.OptTimeout:
		if value < 0 {
			return newErrorf(BadFunctionArgument, "negative timeout")
		}
		o.timeout = time.Duration(value) * time.Second
	case entities.OptTimeoutMS:
		if value < 0 {
			return newErrorf(BadFunctionArgument, "negative timeout")
		}
		o.timeout = time.Duration(value) * time.Millisecond
	case entities.OptFollowLocation:
		o.followLocation = value != 0
	case entities.OptForbidReuse:
		o.forbidReuse = value != 0
	case entities.OptInFileSize:
		o.inFileSize = value
	case entities.OptIPResolve:
		if value < entities.IPResolveWhatever || value > entities.IPResolveV6 {
			return newErrorf(BadFunctionArgument, "invalid IP resolve mode %d", value)
		}
		o.ipResolve = value
	case entities.OptMaxRedirs:
		if value < -1 {
			return newErrorf(BadFunctionArgument, "invalid redirect limit %d", value)
		}
		o.maxRedirs = value
	case entities.OptNoBody:
		o.noBody = value != 0
	case entities.OptPost:
		o.post = value != 0
	case entities.OptUpload:
		o.upload = value != 0
	case entities.OptProxyPort:
		if value < 0 || value > 65535 {
			return newErrorf(BadFunctionArgument, "invalid proxy port %d", value)
		}
		o.proxyPort = value
	case entities.OptSSLVerifyHost:
		if value < 0 || value > 2 {
			return newErrorf(BadFunctionArgument, "invalid verify host value %d", value)
		}
		o.verifyHost = value
	case entities.OptSSLVerifyPeer:
		o.verifyPeer = value != 0
	case entities.OptTCPKeepAlive:
		o.tcpKeepAlive = value != 0
	case entities.OptTCPKeepIdle:
		if value <= 0 {
			return newErrorf(BadFunctionArgument, "invalid keep-alive idle time %d", value)
		}
		o.keepIdle = time.Duration(value) * time.Second
	case entities.OptNoProgress:
		o.noProgress = value != 0
	case entities.OptProtocols:
		o.protocols = entities.Protocol(value)
	default:
		return newErrorf(UnknownOption, "option %s does not take an integer", opt)
	}
	h.dirty = true
	return nil
}

// SetHeaders sets the request header lines.
func (h *Handle) SetHeaders(lines []string) error {
	h.opts.headers = append([]string(nil), lines...)
	return nil
}

// SetMimePost makes the request a multipart/form-data POST.
func (h *Handle) SetMimePost(form ports.MimeForm) error {
	if form == nil {
		h.opts.mime = nil
		return nil
	}
	m, ok := form.(*Mime)
	if !ok {
		return newErrorf(BadFunctionArgument, "mime form was not created by this engine")
	}
	h.opts.mime = m
	return nil
}

// SetReadFunction installs the upload read callback.
func (h *Handle) SetReadFunction(fn ports.ReadFunc) error {
	h.opts.readFn = fn
	return nil
}

// SetWriteFunction installs the download write callback.
func (h *Handle) SetWriteFunction(fn ports.WriteFunc) error {
	h.opts.writeFn = fn
	return nil
}

// SetXferInfoFunction installs the progress callback.
func (h *Handle) SetXferInfoFunction(fn ports.XferInfoFunc) error {
	h.opts.xferFunc = fn
	return nil
}

// NewMime creates an empty multipart form.
func (h *Handle) NewMime() ports.MimeForm {
	return &Mime{}
}

// Reset restores every option to its default and forgets the last transfer.
func (h *Handle) Reset() {
	h.closeTransport()
	h.opts = defaultOptions()
	h.info = transferInfo{}
	h.dirty = true
}

// Cleanup releases the handle.
func (h *Handle) Cleanup() {
	h.closeTransport()
	h.opts = defaultOptions()
	h.info = transferInfo{}
	h.closed = true
}

func (h *Handle) closeTransport() {
	if h.transport != nil {
		h.transport.closeIdle()
		h.transport = nil
	}
}
