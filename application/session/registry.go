package session

import (
	"cmp"
	"slices"
	"strings"

	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
)

// OptionEntry binds a registered option name to the engine option it sets.
type OptionEntry struct {
	Name   string
	Kind   entities.OptionKind
	Option entities.Option
}

// InfoEntry binds a registered info name to the engine info it reads. Local entries
// are answered by the session itself.
type InfoEntry struct {
	Name  string
	Info  entities.Info
	Local bool
}

var stringOptions = longestFirst([]OptionEntry{
	{Name: "CURLOPT_ACCEPT_ENCODING", Kind: entities.StringOpt, Option: entities.OptAcceptEncoding},
	{Name: "CURLOPT_CAINFO", Kind: entities.StringOpt, Option: entities.OptCAInfo},
	{Name: "CURLOPT_CUSTOMREQUEST", Kind: entities.StringOpt, Option: entities.OptCustomRequest},
	{Name: "CURLOPT_DNS_SERVERS", Kind: entities.StringOpt, Option: entities.OptDNSServers},
	{Name: "CURLOPT_MAIL_AUTH", Kind: entities.StringOpt, Option: entities.OptMailAuth},
	{Name: "CURLOPT_PRE_PROXY", Kind: entities.StringOpt, Option: entities.OptPreProxy},
	{Name: "CURLOPT_PROXY_CAINFO", Kind: entities.StringOpt, Option: entities.OptProxyCAInfo},
	{Name: "CURLOPT_PROXYPASSWORD", Kind: entities.StringOpt, Option: entities.OptProxyPassword},
	{Name: "CURLOPT_PROXY", Kind: entities.StringOpt, Option: entities.OptProxy},
	{Name: "CURLOPT_PROXY_TLSAUTH_PASSWORD", Kind: entities.StringOpt, Option: entities.OptProxyTLSAuthPassword},
	{Name: "CURLOPT_PROXY_TLSAUTH_TYPE", Kind: entities.StringOpt, Option: entities.OptProxyTLSAuthType},
	{Name: "CURLOPT_PROXY_TLSAUTH_USERNAME", Kind: entities.StringOpt, Option: entities.OptProxyTLSAuthUsername},
	{Name: "CURLOPT_PROXYUSERNAME", Kind: entities.StringOpt, Option: entities.OptProxyUsername},
	{Name: "CURLOPT_READDATA", Kind: entities.UploadSpecial},
	{Name: "CURLOPT_SSLCERT", Kind: entities.StringOpt, Option: entities.OptSSLCert},
	{Name: "CURLOPT_SSLCERTTYPE", Kind: entities.StringOpt, Option: entities.OptSSLCertType},
	{Name: "CURLOPT_SSLKEY", Kind: entities.StringOpt, Option: entities.OptSSLKey},
	{Name: "CURLOPT_TLSAUTH_PASSWORD", Kind: entities.StringOpt, Option: entities.OptTLSAuthPassword},
	{Name: "CURLOPT_TLSAUTH_TYPE", Kind: entities.StringOpt, Option: entities.OptTLSAuthType},
	{Name: "CURLOPT_TLSAUTH_USERNAME", Kind: entities.StringOpt, Option: entities.OptTLSAuthUsername},
	{Name: "CURLOPT_URL", Kind: entities.StringOpt, Option: entities.OptURL},
	{Name: "CURLOPT_USERAGENT", Kind: entities.StringOpt, Option: entities.OptUserAgent},
}, optionName)

var longOptions = longestFirst([]OptionEntry{
	{Name: "CURLOPT_CONNECTTIMEOUT", Kind: entities.LongOpt, Option: entities.OptConnectTimeout},
	{Name: "CURLOPT_FOLLOWLOCATION", Kind: entities.LongOpt, Option: entities.OptFollowLocation},
	{Name: "CURLOPT_FORBID_REUSE", Kind: entities.LongOpt, Option: entities.OptForbidReuse},
	{Name: "CURLOPT_INFILESIZE", Kind: entities.LongOpt, Option: entities.OptInFileSize},
	{Name: "CURLOPT_IPRESOLVE", Kind: entities.LongOpt, Option: entities.OptIPResolve},
	{Name: "CURLOPT_MAXREDIRS", Kind: entities.LongOpt, Option: entities.OptMaxRedirs},
	{Name: "CURLOPT_NOBODY", Kind: entities.LongOpt, Option: entities.OptNoBody},
	{Name: "CURLOPT_POST", Kind: entities.LongOpt, Option: entities.OptPost},
	{Name: "CURLOPT_PROXYPORT", Kind: entities.LongOpt, Option: entities.OptProxyPort},
	{Name: "CURLOPT_SSL_VERIFYHOST", Kind: entities.LongOpt, Option: entities.OptSSLVerifyHost},
	{Name: "CURLOPT_SSL_VERIFYPEER", Kind: entities.LongOpt, Option: entities.OptSSLVerifyPeer},
	{Name: "CURLOPT_TCP_KEEPALIVE", Kind: entities.LongOpt, Option: entities.OptTCPKeepAlive},
	{Name: "CURLOPT_TCP_KEEPIDLE", Kind: entities.LongOpt, Option: entities.OptTCPKeepIdle},
	{Name: "CURLOPT_TIMEOUT_MS", Kind: entities.LongOpt, Option: entities.OptTimeoutMS},
	{Name: "CURLOPT_TIMEOUT", Kind: entities.LongOpt, Option: entities.OptTimeout},
}, optionName)

var charInfos = longestFirst([]InfoEntry{
	{Name: "CURLINFO_CONTENT_TYPE", Info: entities.InfoContentType},
	{Name: "CURLINFO_EFFECTIVE_URL", Info: entities.InfoEffectiveURL},
	{Name: "CURLINFO_PRIMARY_IP", Info: entities.InfoPrimaryIP},
	{Name: "CURLINFO_REDIRECT_URL", Info: entities.InfoRedirectURL},
	{Name: "CURLINFO_RESPONSE", Local: true},
}, infoName)

var longInfos = longestFirst([]InfoEntry{
	{Name: "CURLINFO_HEADER_SIZE", Info: entities.InfoHeaderSize},
	{Name: "CURLINFO_HTTP_VERSION", Info: entities.InfoHTTPVersion},
	{Name: "CURLINFO_REDIRECT_COUNT", Info: entities.InfoRedirectCount},
	{Name: "CURLINFO_RESPONSE_CODE", Info: entities.InfoResponseCode},
	{Name: "CURLINFO_SIZE_DOWNLOAD_T", Info: entities.InfoSizeDownload},
	{Name: "CURLINFO_SIZE_UPLOAD_T", Info: entities.InfoSizeUpload},
	{Name: "CURLINFO_TOTAL_TIME_T", Info: entities.InfoTotalTime},
}, infoName)

// longestFirst orders a table so that a longer name is always tested before any
// shorter name it extends. Equal lengths keep declaration order.
func longestFirst[T any](table []T, name func(T) string) []T {
	slices.SortStableFunc(table, func(a, b T) int {
		return cmp.Compare(len(name(b)), len(name(a)))
	})
	return table
}

// match returns the first entry whose name is a case-insensitive prefix of arg.
func match[T any](table []T, name func(T) string, arg string) (T, bool) {
	upper := strings.ToUpper(arg)
	for _, e := range table {
		if strings.HasPrefix(upper, name(e)) {
			return e, true
		}
	}
	var zero T
	return zero, false
}

func optionName(e OptionEntry) string { return e.Name }
func infoName(e InfoEntry) string     { return e.Name }

// LookupStringOption resolves a name accepted by setopt_char.
func LookupStringOption(arg string) (OptionEntry, bool) {
	return match(stringOptions, optionName, arg)
}

// LookupLongOption resolves a name accepted by setopt_long.
func LookupLongOption(arg string) (OptionEntry, bool) {
	return match(longOptions, optionName, arg)
}

// LookupCharInfo resolves a name accepted by getinfo_char.
func LookupCharInfo(arg string) (InfoEntry, bool) {
	return match(charInfos, infoName, arg)
}

// LookupLongInfo resolves a name accepted by getinfo_long.
func LookupLongInfo(arg string) (InfoEntry, bool) {
	return match(longInfos, infoName, arg)
}

// StringOptionNames returns the setopt_char names in match order.
func StringOptionNames() []string { return names(stringOptions, optionName) }

// LongOptionNames returns the setopt_long names in match order.
func LongOptionNames() []string { return names(longOptions, optionName) }

// CharInfoNames returns the getinfo_char names in match order.
func CharInfoNames() []string { return names(charInfos, infoName) }

// LongInfoNames returns the getinfo_long names in match order.
func LongInfoNames() []string { return names(longInfos, infoName) }

func names[T any](table []T, name func(T) string) []string {
	out := make([]string, len(table))
	for i, e := range table {
		out[i] = name(e)
	}
	return out
}
