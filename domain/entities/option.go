package entities

// OptionKind classifies how a registered option name is applied to the engine.
type OptionKind int

const (
	// StringOpt options carry a text value.
	StringOpt OptionKind = iota
	// LongOpt options carry an integer value.
	LongOpt
	// UploadSpecial is the request-body upload path (CURLOPT_READDATA).
	UploadSpecial
)

// String returns the kind name.
func (k OptionKind) String() string {
	switch k {
	case StringOpt:
		return "string"
	case LongOpt:
		return "long"
	case UploadSpecial:
		return "upload"
	default:
		return "unknown"
	}
}

// Option is a transfer engine option code.
type Option int

// Text options.
const (
	OptURL Option = iota + 1
	OptCustomRequest
	OptUserAgent
	OptAcceptEncoding
	OptCAInfo
	OptDNSServers
	OptMailAuth
	OptPreProxy
	OptProxy
	OptProxyCAInfo
	OptProxyUsername
	OptProxyPassword
	OptProxyTLSAuthUsername
	OptProxyTLSAuthPassword
	OptProxyTLSAuthType
	OptSSLCert
	OptSSLCertType
	OptSSLKey
	OptTLSAuthUsername
	OptTLSAuthPassword
	OptTLSAuthType
)

// Integer options.
const (
	OptConnectTimeout Option = iota + 100
	OptFollowLocation
	OptForbidReuse
	OptInFileSize
	OptIPResolve
	OptMaxRedirs
	OptNoBody
	OptPost
	OptProxyPort
	OptSSLVerifyHost
	OptSSLVerifyPeer
	OptTCPKeepAlive
	OptTCPKeepIdle
	OptTimeoutMS
	OptTimeout
	OptUpload
	OptNoProgress
	OptProtocols
)

var optionNames = map[Option]string{
	OptURL:                  "URL",
	OptCustomRequest:        "CUSTOMREQUEST",
	OptUserAgent:            "USERAGENT",
	OptAcceptEncoding:       "ACCEPT_ENCODING",
	OptCAInfo:               "CAINFO",
	OptDNSServers:           "DNS_SERVERS",
	OptMailAuth:             "MAIL_AUTH",
	OptPreProxy:             "PRE_PROXY",
	OptProxy:                "PROXY",
	OptProxyCAInfo:          "PROXY_CAINFO",
	OptProxyUsername:        "PROXYUSERNAME",
	OptProxyPassword:        "PROXYPASSWORD",
	OptProxyTLSAuthUsername: "PROXY_TLSAUTH_USERNAME",
	OptProxyTLSAuthPassword: "PROXY_TLSAUTH_PASSWORD",
	OptProxyTLSAuthType:     "PROXY_TLSAUTH_TYPE",
	OptSSLCert:              "SSLCERT",
	OptSSLCertType:          "SSLCERTTYPE",
	OptSSLKey:               "SSLKEY",
	OptTLSAuthUsername:      "TLSAUTH_USERNAME",
	OptTLSAuthPassword:      "TLSAUTH_PASSWORD",
	OptTLSAuthType:          "TLSAUTH_TYPE",
	OptConnectTimeout:       "CONNECTTIMEOUT",
	OptFollowLocation:       "FOLLOWLOCATION",
	OptForbidReuse:          "FORBID_REUSE",
	OptInFileSize:           "INFILESIZE",
	OptIPResolve:            "IPRESOLVE",
	OptMaxRedirs:            "MAXREDIRS",
	OptNoBody:               "NOBODY",
	OptPost:                 "POST",
	OptProxyPort:            "PROXYPORT",
	OptSSLVerifyHost:        "SSL_VERIFYHOST",
	OptSSLVerifyPeer:        "SSL_VERIFYPEER",
	OptTCPKeepAlive:         "TCP_KEEPALIVE",
	OptTCPKeepIdle:          "TCP_KEEPIDLE",
	OptTimeoutMS:            "TIMEOUT_MS",
	OptTimeout:              "TIMEOUT",
	OptUpload:               "UPLOAD",
	OptNoProgress:           "NOPROGRESS",
	OptProtocols:            "PROTOCOLS",
}

// String returns the option name without the CURLOPT_ prefix.
func (o Option) String() string {
	if name, ok := optionNames[o]; ok {
		return name
	}
	return "UNKNOWN"
}

// Info is a transfer engine info code.
type Info int

const (
	InfoContentType Info = iota + 1
	InfoEffectiveURL
	InfoPrimaryIP
	InfoRedirectURL
	InfoResponseCode
	InfoHTTPVersion
	InfoRedirectCount
	InfoHeaderSize
	InfoSizeDownload
	InfoSizeUpload
	InfoTotalTime
)

// Protocol is a bit mask of protocols the engine may use.
type Protocol int64

const (
	ProtoHTTP  Protocol = 1 << 0
	ProtoHTTPS Protocol = 1 << 1
)

// IP resolution preferences for OptIPResolve.
const (
	IPResolveWhatever = 0
	IPResolveV4       = 1
	IPResolveV6       = 2
)
