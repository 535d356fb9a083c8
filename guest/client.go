package guest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RekGRpth/pg-curl-sub000/domain/entities"
)

// Host function names.
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
)

// Caller sends one JSON request to a named host function and returns the JSON
// response.
type Caller interface {
	Call(ctx context.Context, name string, payload []byte) ([]byte, error)
}

// CallerFunc adapts a function to Caller.
type CallerFunc func(ctx context.Context, name string, payload []byte) ([]byte, error)

// Call implements Caller.
func (f CallerFunc) Call(ctx context.Context, name string, payload []byte) ([]byte, error) {
	return f(ctx, name, payload)
}

// Client issues curl operations. Errors reported by the host are returned as
// *entities.ErrorDetail.
type Client struct {
	caller Caller
}

// NewClient creates a client on top of caller.
func NewClient(caller Caller) *Client {
	return &Client{caller: caller}
}

func call[Resp any](ctx context.Context, c *Client, name string, req any) (Resp, error) {
	var resp Resp
	payload, err := json.Marshal(req)
	if err != nil {
		return resp, fmt.Errorf("failed to marshal %s request: %w", name, err)
	}
	out, err := c.caller.Call(ctx, name, payload)
	if err != nil {
		return resp, err
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return resp, fmt.Errorf("failed to unmarshal %s response: %w", name, err)
	}
	return resp, nil
}

// errOf keeps a nil *ErrorDetail from becoming a non-nil error.
func errOf(detail *entities.ErrorDetail) error {
	if detail == nil {
		return nil
	}
	return detail
}

func (c *Client) boolCall(ctx context.Context, name string, req any) error {
	resp, err := call[entities.BoolResponse](ctx, c, name, req)
	if err != nil {
		return err
	}
	return errOf(resp.Error)
}

func (c *Client) voidCall(ctx context.Context, name string) error {
	resp, err := call[entities.VoidResponse](ctx, c, name, entities.EmptyRequest{})
	if err != nil {
		return err
	}
	return errOf(resp.Error)
}

// Init starts the session.
func (c *Client) Init(ctx context.Context) error {
	return c.boolCall(ctx, FuncInit, entities.EmptyRequest{})
}

// Reset restores the session defaults and drops headers, form parts and buffers.
func (c *Client) Reset(ctx context.Context) error {
	return c.voidCall(ctx, FuncReset)
}

// SlistAppend adds a "name: value" request header.
func (c *Client) SlistAppend(ctx context.Context, name, value string) error {
	return c.boolCall(ctx, FuncSlistAppend, entities.SlistAppendRequest{Name: &name, Value: &value})
}

// MimeNameData adds a multipart/form-data part.
func (c *Client) MimeNameData(ctx context.Context, name, data string) error {
	return c.boolCall(ctx, FuncMimeNameData, entities.MimeNameDataRequest{Name: &name, Data: &data})
}

// SetoptChar sets a text option such as CURLOPT_URL.
func (c *Client) SetoptChar(ctx context.Context, option, value string) error {
	return c.boolCall(ctx, FuncSetoptChar, entities.SetoptCharRequest{Option: &option, Value: &value})
}

// SetoptLong sets an integer option such as CURLOPT_TIMEOUT.
func (c *Client) SetoptLong(ctx context.Context, option string, value int64) error {
	return c.boolCall(ctx, FuncSetoptLong, entities.SetoptLongRequest{Option: &option, Value: &value})
}

// Perform runs the transfer.
func (c *Client) Perform(ctx context.Context) error {
	return c.boolCall(ctx, FuncPerform, entities.EmptyRequest{})
}

// GetinfoChar reads a text info value. ok is false when the value is null.
func (c *Client) GetinfoChar(ctx context.Context, info string) (value string, ok bool, err error) {
	resp, err := call[entities.TextResponse](ctx, c, FuncGetinfoChar, entities.GetinfoRequest{Info: &info})
	if err != nil {
		return "", false, err
	}
	if resp.Error != nil {
		return "", false, resp.Error
	}
	if resp.Value == nil {
		return "", false, nil
	}
	return *resp.Value, true, nil
}

// GetinfoLong reads an integer info value.
func (c *Client) GetinfoLong(ctx context.Context, info string) (int64, error) {
	resp, err := call[entities.LongResponse](ctx, c, FuncGetinfoLong, entities.GetinfoRequest{Info: &info})
	if err != nil {
		return 0, err
	}
	return resp.Value, errOf(resp.Error)
}

// Cleanup ends the session.
func (c *Client) Cleanup(ctx context.Context) error {
	return c.voidCall(ctx, FuncCleanup)
}

// Response is the outcome of a convenience request.
type Response struct {
	ContentType string
	Body        string
	StatusCode  int64
}

// Get performs a GET of url on an initialised session. headers are "Name: value"
// lines.
func (c *Client) Get(ctx context.Context, url string, headers ...string) (*Response, error) {
	return c.do(ctx, url, headers, nil)
}

// PostForm performs a multipart/form-data POST of fields to url. Fields are
// name/value pairs.
func (c *Client) PostForm(ctx context.Context, url string, fields ...string) (*Response, error) {
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("PostForm: odd number of field arguments")
	}
	return c.do(ctx, url, nil, fields)
}

// do resets the session, applies header lines ("Name: value") and form fields,
// and performs.
func (c *Client) do(ctx context.Context, url string, headers, fields []string) (*Response, error) {
	if err := c.Reset(ctx); err != nil {
		return nil, err
	}
	for _, h := range headers {
		name, value := splitHeader(h)
		if err := c.SlistAppend(ctx, name, value); err != nil {
			return nil, err
		}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		if err := c.MimeNameData(ctx, fields[i], fields[i+1]); err != nil {
			return nil, err
		}
	}
	if err := c.SetoptChar(ctx, "CURLOPT_URL", url); err != nil {
		return nil, err
	}
	if err := c.Perform(ctx); err != nil {
		return nil, err
	}

	resp := &Response{}
	var err error
	if resp.StatusCode, err = c.GetinfoLong(ctx, "CURLINFO_RESPONSE_CODE"); err != nil {
		return nil, err
	}
	if resp.ContentType, _, err = c.GetinfoChar(ctx, "CURLINFO_CONTENT_TYPE"); err != nil {
		return nil, err
	}
	if resp.Body, _, err = c.GetinfoChar(ctx, "CURLINFO_RESPONSE"); err != nil {
		return nil, err
	}
	return resp, nil
}

func splitHeader(line string) (name, value string) {
	name, value, _ = strings.Cut(line, ":")
	return name, strings.TrimLeft(value, " ")
}
