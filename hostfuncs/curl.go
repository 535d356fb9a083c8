package hostfuncs

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/RekGRpth/pg-curl-sub000/application/session"
	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
	domainerrors "github.com/RekGRpth/pg-curl-sub000/domain/errors"
	"github.com/go-playground/validator/v10"
)

// Host function names of the curl call surface.
const (
	FuncInit         = "curl_easy_init"
	FuncReset        = "curl_easy_reset"
	FuncSlistAppend  = "curl_slist_append"
	FuncMimeNameData = "curl_mime_name_data"
	FuncSetoptChar   = "curl_easy_setopt_char"
	FuncSetoptLong   = "curl_easy_setopt_long"
	FuncPerform      = "curl_easy_perform"
	FuncGetinfoChar  = "curl_easy_getinfo_char"
	FuncGetinfoLong  = "curl_easy_getinfo_long"
	FuncCleanup      = "curl_easy_cleanup"
	FuncDescribe     = "curl_describe"
)

// validate is a package-level singleton; building a validator is expensive.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Request and response types of the curl operations.
type (
	EmptyRequest        = entities.EmptyRequest
	SlistAppendRequest  = entities.SlistAppendRequest
	MimeNameDataRequest = entities.MimeNameDataRequest
	SetoptCharRequest   = entities.SetoptCharRequest
	SetoptLongRequest   = entities.SetoptLongRequest
	GetinfoRequest      = entities.GetinfoRequest
	BoolResponse        = entities.BoolResponse
	VoidResponse        = entities.VoidResponse
	TextResponse        = entities.TextResponse
	LongResponse        = entities.LongResponse
)

// checkArguments reports the first required argument of req that is missing.
func checkArguments(op string, req any) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	position := 0
	t := reflect.TypeOf(req)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if f, ok := t.FieldByName(fe.StructField()); ok {
		position = f.Index[0] + 1
	}
	return &domainerrors.NullArgumentError{Operation: op, Name: fe.Field(), Position: position}
}

func boolResult(err error) BoolResponse {
	if err != nil {
		return BoolResponse{Error: domainerrors.ToErrorDetail(err)}
	}
	return BoolResponse{OK: true}
}

func voidResult(err error) VoidResponse {
	return VoidResponse{Error: domainerrors.ToErrorDetail(err)}
}

// CurlHandlers implements the curl operations on top of one session.
type CurlHandlers struct {
	session *session.Session
}

// NewCurlHandlers binds the curl operations to s.
func NewCurlHandlers(s *session.Session) *CurlHandlers {
	return &CurlHandlers{session: s}
}

// Init starts a session.
func (h *CurlHandlers) Init(ctx context.Context, _ EmptyRequest) BoolResponse {
	return boolResult(h.session.Init(ctx))
}

// Reset restores the session defaults.
func (h *CurlHandlers) Reset(ctx context.Context, _ EmptyRequest) VoidResponse {
	return voidResult(h.session.Reset(ctx))
}

// SlistAppend appends a request header line.
func (h *CurlHandlers) SlistAppend(_ context.Context, req SlistAppendRequest) BoolResponse {
	if err := checkArguments("slist_append", req); err != nil {
		return boolResult(err)
	}
	return boolResult(h.session.SlistAppend(*req.Name, *req.Value))
}

// MimeNameData adds a form-data part.
func (h *CurlHandlers) MimeNameData(_ context.Context, req MimeNameDataRequest) BoolResponse {
	if err := checkArguments("mime_name_data", req); err != nil {
		return boolResult(err)
	}
	return boolResult(h.session.MimeNameData(*req.Name, *req.Data))
}

// SetoptChar sets a text option.
func (h *CurlHandlers) SetoptChar(_ context.Context, req SetoptCharRequest) BoolResponse {
	if err := checkArguments("setopt_char", req); err != nil {
		return boolResult(err)
	}
	return boolResult(h.session.SetoptChar(*req.Option, *req.Value))
}

// SetoptLong sets an integer option.
func (h *CurlHandlers) SetoptLong(_ context.Context, req SetoptLongRequest) BoolResponse {
	if err := checkArguments("setopt_long", req); err != nil {
		return boolResult(err)
	}
	return boolResult(h.session.SetoptLong(*req.Option, *req.Value))
}

// Perform runs the transfer. Cancelling ctx aborts it.
func (h *CurlHandlers) Perform(ctx context.Context, _ EmptyRequest) BoolResponse {
	return boolResult(h.session.Perform(ctx))
}

// GetinfoChar reads a text info value.
func (h *CurlHandlers) GetinfoChar(_ context.Context, req GetinfoRequest) TextResponse {
	if err := checkArguments("getinfo_char", req); err != nil {
		return TextResponse{Error: domainerrors.ToErrorDetail(err)}
	}
	value, ok, err := h.session.GetinfoChar(*req.Info)
	if err != nil {
		return TextResponse{Error: domainerrors.ToErrorDetail(err)}
	}
	if !ok {
		return TextResponse{}
	}
	return TextResponse{Value: &value}
}

// GetinfoLong reads an integer info value.
func (h *CurlHandlers) GetinfoLong(_ context.Context, req GetinfoRequest) LongResponse {
	if err := checkArguments("getinfo_long", req); err != nil {
		return LongResponse{Error: domainerrors.ToErrorDetail(err)}
	}
	value, err := h.session.GetinfoLong(*req.Info)
	if err != nil {
		return LongResponse{Error: domainerrors.ToErrorDetail(err)}
	}
	return LongResponse{Value: value}
}

// Cleanup ends the session.
func (h *CurlHandlers) Cleanup(ctx context.Context, _ EmptyRequest) VoidResponse {
	return voidResult(h.session.Cleanup(ctx))
}
