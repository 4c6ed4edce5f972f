package request

import (
	"context"
	"io"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// RequestOptions holds the settings applied to one request.
type RequestOptions struct {
	Ctx            context.Context
	Body           any
	Headers        map[string]string
	FormData       map[string]string
	Cookies        []*http.Cookie
	Username       string
	Password       string
	BasicAuth      bool
	File           *MultipartFile
	PreRequestHook func(ctx context.Context) error
}

// MultipartFile is one file part of a multipart upload.
type MultipartFile struct {
	Field       string
	Filename    string
	ContentType string
	Reader      io.Reader
}

// RequestOption applies a setting to RequestOptions.
type RequestOption func(*RequestOptions)

// WithContext sets the request context.
func WithContext(ctx context.Context) RequestOption {
	return func(o *RequestOptions) {
		o.Ctx = ctx
	}
}

// WithJSON sets a body that resty encodes as JSON.
func WithJSON(body any) RequestOption {
	return func(o *RequestOptions) {
		o.Body = body
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers["Content-Type"] = "application/json"
	}
}

// WithHeader adds one header.
func WithHeader(key, value string) RequestOption {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	}
}

// WithFormData sends url-encoded form fields.
func WithFormData(data map[string]string) RequestOption {
	return func(o *RequestOptions) {
		o.FormData = data
	}
}

// WithCookies attaches cookies in addition to the client's jar.
func WithCookies(cookies []*http.Cookie) RequestOption {
	return func(o *RequestOptions) {
		o.Cookies = append(o.Cookies, cookies...)
	}
}

// WithBasicAuth sets HTTP Basic credentials.
func WithBasicAuth(username, password string) RequestOption {
	return func(o *RequestOptions) {
		o.Username = username
		o.Password = password
		o.BasicAuth = true
	}
}

// WithFile adds a multipart file part.
func WithFile(field, filename, contentType string, r io.Reader) RequestOption {
	return func(o *RequestOptions) {
		o.File = &MultipartFile{
			Field:       field,
			Filename:    filename,
			ContentType: contentType,
			Reader:      r,
		}
	}
}

// WithPreRequestHook runs hook before the request is sent; an error aborts it.
func WithPreRequestHook(hook func(ctx context.Context) error) RequestOption {
	return func(o *RequestOptions) {
		o.PreRequestHook = hook
	}
}

// Do executes a request on client. Non-2xx responses are not errors; callers
// inspect the response status.
func Do(client *resty.Client, method, url string, opts ...RequestOption) (*resty.Response, error) {
	options := &RequestOptions{
		Ctx: context.Background(),
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.PreRequestHook != nil {
		if err := options.PreRequestHook(options.Ctx); err != nil {
			return nil, err
		}
	}

	req := client.R().SetContext(options.Ctx)

	for k, v := range options.Headers {
		req.SetHeader(k, v)
	}
	if options.BasicAuth {
		req.SetBasicAuth(options.Username, options.Password)
	}
	if len(options.Cookies) > 0 {
		req.SetCookies(options.Cookies)
	}
	if options.Body != nil {
		req.SetBody(options.Body)
	}
	if options.FormData != nil {
		req.SetFormData(options.FormData)
	}
	if f := options.File; f != nil {
		req.SetMultipartField(f.Field, f.Filename, f.ContentType, f.Reader)
	}

	return req.Execute(method, url)
}
