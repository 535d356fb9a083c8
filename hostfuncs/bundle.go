package hostfuncs

import (
	"context"
	"encoding/json"

	"github.com/RekGRpth/pg-curl-sub000/application/schema"
	"github.com/RekGRpth/pg-curl-sub000/application/session"
	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
	domainerrors "github.com/RekGRpth/pg-curl-sub000/domain/errors"
)

// HostFuncBundle is a pre-configured set of related host functions.
// Bundles allow registering multiple handlers at once for common use cases.
type HostFuncBundle interface {
	// Handlers returns a map of handler names to ByteHandler functions.
	Handlers() map[string]ByteHandler
}

// staticBundle implements HostFuncBundle with a fixed set of handlers.
type staticBundle struct {
	handlers map[string]ByteHandler
}

func (b *staticBundle) Handlers() map[string]ByteHandler {
	return b.handlers
}

// Operation describes one host function of the curl surface.
type Operation struct {
	Request  any
	Response any
	Name     string
}

// CurlOperations lists the curl host functions with their request and response
// types, in call-surface order.
func CurlOperations() []Operation {
	return []Operation{
		{Name: FuncInit, Request: EmptyRequest{}, Response: BoolResponse{}},
		{Name: FuncReset, Request: EmptyRequest{}, Response: VoidResponse{}},
		{Name: FuncSlistAppend, Request: SlistAppendRequest{}, Response: BoolResponse{}},
		{Name: FuncMimeNameData, Request: MimeNameDataRequest{}, Response: BoolResponse{}},
		{Name: FuncSetoptChar, Request: SetoptCharRequest{}, Response: BoolResponse{}},
		{Name: FuncSetoptLong, Request: SetoptLongRequest{}, Response: BoolResponse{}},
		{Name: FuncPerform, Request: EmptyRequest{}, Response: BoolResponse{}},
		{Name: FuncGetinfoChar, Request: GetinfoRequest{}, Response: TextResponse{}},
		{Name: FuncGetinfoLong, Request: GetinfoRequest{}, Response: LongResponse{}},
		{Name: FuncCleanup, Request: EmptyRequest{}, Response: VoidResponse{}},
	}
}

// OperationSchema is the JSON schema pair of one operation.
type OperationSchema struct {
	Request  json.RawMessage `json:"request"`
	Response json.RawMessage `json:"response"`
	Name     string          `json:"name"`
}

// DescribeResponse is the result of curl_describe.
type DescribeResponse struct {
	Error         *entities.ErrorDetail `json:"error,omitempty"`
	Operations    []OperationSchema     `json:"operations"`
	StringOptions []string              `json:"string_options"`
	LongOptions   []string              `json:"long_options"`
	CharInfos     []string              `json:"char_infos"`
	LongInfos     []string              `json:"long_infos"`
}

// Describe reports every curl operation's schema and the accepted option and info
// names.
func Describe(_ context.Context, _ EmptyRequest) DescribeResponse {
	resp := DescribeResponse{
		StringOptions: session.StringOptionNames(),
		LongOptions:   session.LongOptionNames(),
		CharInfos:     session.CharInfoNames(),
		LongInfos:     session.LongInfoNames(),
	}
	for _, op := range CurlOperations() {
		req, err := schema.GenerateSchema(op.Request)
		if err != nil {
			return DescribeResponse{Error: domainerrors.ToErrorDetail(err)}
		}
		res, err := schema.GenerateSchema(op.Response)
		if err != nil {
			return DescribeResponse{Error: domainerrors.ToErrorDetail(err)}
		}
		resp.Operations = append(resp.Operations, OperationSchema{Name: op.Name, Request: req, Response: res})
	}
	return resp
}

// CurlBundle returns the curl host functions bound to s:
// curl_easy_init, curl_easy_reset, curl_slist_append, curl_mime_name_data,
// curl_easy_setopt_char, curl_easy_setopt_long, curl_easy_perform,
// curl_easy_getinfo_char, curl_easy_getinfo_long, curl_easy_cleanup and
// curl_describe.
func CurlBundle(s *session.Session) HostFuncBundle {
	h := NewCurlHandlers(s)
	return &staticBundle{
		handlers: map[string]ByteHandler{
			FuncInit:         NewJSONHandler(h.Init),
			FuncReset:        NewJSONHandler(h.Reset),
			FuncSlistAppend:  NewJSONHandler(h.SlistAppend),
			FuncMimeNameData: NewJSONHandler(h.MimeNameData),
			FuncSetoptChar:   NewJSONHandler(h.SetoptChar),
			FuncSetoptLong:   NewJSONHandler(h.SetoptLong),
			FuncPerform:      NewJSONHandler(h.Perform),
			FuncGetinfoChar:  NewJSONHandler(h.GetinfoChar),
			FuncGetinfoLong:  NewJSONHandler(h.GetinfoLong),
			FuncCleanup:      NewJSONHandler(h.Cleanup),
			FuncDescribe:     NewJSONHandler(Describe),
		},
	}
}

// WithBundle registers all handlers from a bundle.
func WithBundle(bundle HostFuncBundle) RegistryOption {
	return func(b *registryBuilder) {
		for name, handler := range bundle.Handlers() {
			b.add(name, handler)
		}
	}
}

// WithHandler registers a typed host function wrapped with NewJSONHandler.
func WithHandler[Req any, Resp any](name string, fn HostFunc[Req, Resp]) RegistryOption {
	return func(b *registryBuilder) {
		b.add(name, NewJSONHandler(fn))
	}
}
