package transfer

import "fmt"

// Code is a transfer engine result code. The numbering follows libcurl's CURLcode so
// that callers familiar with it can match on values.
type Code int

const (
	OK                     Code = 0
	UnsupportedProtocol    Code = 1
	FailedInit             Code = 2
	URLMalformat           Code = 3
	NotBuiltIn             Code = 4
	CouldntResolveProxy    Code = 5
	CouldntResolveHost     Code = 6
	CouldntConnect         Code = 7
	WriteError             Code = 23
	ReadError              Code = 26
	OutOfMemory            Code = 27
	OperationTimedOut      Code = 28
	SSLConnectError        Code = 35
	AbortedByCallback      Code = 42
	BadFunctionArgument    Code = 43
	TooManyRedirects       Code = 47
	UnknownOption          Code = 48
	GotNothing             Code = 52
	SendError              Code = 55
	RecvError              Code = 56
	SSLCertProblem         Code = 58
	PeerFailedVerification Code = 60
	BadContentEncoding     Code = 61
	SSLCACertBadFile       Code = 77
	ProxyError             Code = 97
)

var codeText = map[Code]string{
	OK:                     "No error",
	UnsupportedProtocol:    "Unsupported protocol",
	FailedInit:             "Failed initialization",
	URLMalformat:           "URL using bad/illegal format or missing URL",
	NotBuiltIn:             "A requested feature, protocol or option was not found built-in in this libcurl due to a build-time decision.",
	CouldntResolveProxy:    "Couldn't resolve proxy name",
	CouldntResolveHost:     "Couldn't resolve host name",
	CouldntConnect:         "Couldn't connect to server",
	WriteError:             "Failed writing received data to disk/application",
	ReadError:              "Failed to open/read local data from file/application",
	OutOfMemory:            "Out of memory",
	OperationTimedOut:      "Timeout was reached",
	SSLConnectError:        "SSL connect error",
	AbortedByCallback:      "Operation was aborted by an application callback",
	BadFunctionArgument:    "A libcurl function was given a bad argument",
	TooManyRedirects:       "Number of redirects hit maximum amount",
	UnknownOption:          "An unknown option was passed in to libcurl",
	GotNothing:             "Server returned nothing (no headers, no data)",
	SendError:              "Failed sending data to the peer",
	RecvError:              "Failure when receiving data from the peer",
	SSLCertProblem:         "Problem with the local SSL certificate",
	PeerFailedVerification: "SSL peer certificate or SSH remote key was not OK",
	BadContentEncoding:     "Unrecognized or bad HTTP Content or Transfer-Encoding",
	SSLCACertBadFile:       "Problem with the SSL CA cert (path? access rights?)",
	ProxyError:             "Proxy handshake error",
}

// Error returns the textual description of the code.
func (c Code) Error() string {
	if text, ok := codeText[c]; ok {
		return text
	}
	return fmt.Sprintf("Unknown error (%d)", int(c))
}

// EngineCode returns the numeric code.
func (c Code) EngineCode() int {
	return int(c)
}

// Timeout reports whether the code is a timeout.
func (c Code) Timeout() bool {
	return c == OperationTimedOut
}

// Error is a Code with the underlying cause attached.
type Error struct {
	Err  error
	Code Code
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code.Error(), e.Err)
	}
	return e.Code.Error()
}

// Unwrap returns the code so errors.Is(err, transfer.OperationTimedOut) matches.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Code, e.Err}
	}
	return []error{e.Code}
}

// EngineCode returns the numeric code.
func (e *Error) EngineCode() int {
	return int(e.Code)
}

// Timeout reports whether the failure was a timeout.
func (e *Error) Timeout() bool {
	return e.Code.Timeout()
}

func newError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

func newErrorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}
