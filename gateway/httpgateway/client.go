// Package httpgateway implements gateway.Gateway against the comment
// service REST API.
//
// Requests carry the current credentials and tenant id as headers. Every
// response is reported through Options.OnResponse, and a 401 for a request
// that carried a bearer token is reported through Options.OnUnauthorized,
// which is where a host wires the session manager's header ingestion and
// recovery entry points. Calls pass through a circuit breaker that trips on
// transport failures and 5xx responses only.
package httpgateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/goSession/availability"
	"github.com/MrEthical07/goSession/credential"
	"github.com/MrEthical07/goSession/gateway"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
)

const (
	pathLogin       = "/authentication/login"
	pathLogout      = "/authentication/logout"
	pathSSOStart    = "/user/sso/start"
	pathSSOComplete = "/user/sso/complete"
	pathSSOProvider = "/user/sso/provider"
	pathUser        = "/user/data"

	maxBodyBytes = 1 << 20
)

// TenantHeader carries the tenant id on every request.
const TenantHeader = "X-Tenant-Id"

// StatusError is returned for non-2xx responses other than 401.
type StatusError struct {
	StatusCode int
	Method     string
	Path       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("httpgateway: %s %s: status %d", e.Method, e.Path, e.StatusCode)
}

// BreakerSettings configures the circuit breaker.
type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	HTTPClient  *http.Client
	HeaderNames credential.HeaderNames
	Credentials func() credential.Credentials
	TenantID    func() string

	OnResponse     func(*gateway.Response)
	OnUnauthorized func()

	Breaker BreakerSettings
	Logger  zerolog.Logger
}

// Client is a gateway.Gateway over net/http.
type Client struct {
	opts    Options
	base    string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[exchange]
}

type exchange struct {
	resp *gateway.Response
	body []byte
}

var _ gateway.Gateway = (*Client)(nil)

// New builds a Client. BaseURL is required.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("httpgateway: base url is required")
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.HeaderNames == (credential.HeaderNames{}) {
		opts.HeaderNames = credential.DefaultHeaderNames()
	}
	if opts.Breaker.FailureThreshold == 0 {
		opts.Breaker.FailureThreshold = 5
	}
	if opts.Breaker.MaxRequests == 0 {
		opts.Breaker.MaxRequests = 1
	}
	if opts.Breaker.Timeout == 0 {
		opts.Breaker.Timeout = 30 * time.Second
	}

	c := &Client{opts: opts, base: base, http: opts.HTTPClient}
	logger := opts.Logger
	threshold := opts.Breaker.FailureThreshold
	c.breaker = gobreaker.NewCircuitBreaker[exchange](gobreaker.Settings{
		Name:        "comment-api",
		MaxRequests: opts.Breaker.MaxRequests,
		Interval:    opts.Breaker.Interval,
		Timeout:     opts.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, gateway.ErrUnauthorized) || errors.Is(err, context.Canceled) {
				return true
			}
			var se *StatusError
			return errors.As(err, &se) && se.StatusCode < http.StatusInternalServerError
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
	return c, nil
}

func (c *Client) Login(ctx context.Context) (availability.User, *gateway.Response, error) {
	var u availability.User
	resp, err := c.Call(ctx, http.MethodPost, pathLogin, nil, &u)
	return u, resp, err
}

func (c *Client) Logout(ctx context.Context) (*gateway.Response, error) {
	return c.Call(ctx, http.MethodPost, pathLogout, nil, nil)
}

func (c *Client) SSOStart(ctx context.Context, secret string) (gateway.StartModel, *gateway.Response, error) {
	var m gateway.StartModel
	resp, err := c.Call(ctx, http.MethodPost, pathSSOStart, map[string]string{"secret": secret}, &m)
	return m, resp, err
}

func (c *Client) SSOComplete(ctx context.Context, code string) (gateway.CompletionModel, *gateway.Response, error) {
	var m gateway.CompletionModel
	resp, err := c.Call(ctx, http.MethodPost, pathSSOComplete, map[string]string{"code_b": code}, &m)
	return m, resp, err
}

func (c *Client) SSOAuthenticate(ctx context.Context, provider gateway.Provider, token string) (gateway.ProviderModel, *gateway.Response, error) {
	var m gateway.ProviderModel
	body := map[string]string{"provider": string(provider), "token": token}
	resp, err := c.Call(ctx, http.MethodPost, pathSSOProvider, body, &m)
	return m, resp, err
}

func (c *Client) FetchUser(ctx context.Context) (availability.User, *gateway.Response, error) {
	var u availability.User
	resp, err := c.Call(ctx, http.MethodGet, pathUser, nil, &u)
	return u, resp, err
}

// Call performs one request. in, when non-nil, is sent as a JSON body;
// out, when non-nil, receives the decoded JSON response. The returned
// response is non-nil whenever the server answered, including on error.
func (c *Client) Call(ctx context.Context, method, path string, in, out any) (*gateway.Response, error) {
	creds := c.credentials()

	ex, err := c.breaker.Execute(func() (exchange, error) {
		return c.roundTrip(ctx, method, path, in, creds)
	})
	if ex.resp != nil && c.opts.OnResponse != nil {
		c.opts.OnResponse(ex.resp)
	}
	if err != nil {
		if errors.Is(err, gateway.ErrUnauthorized) && creds.HasBearer() && c.opts.OnUnauthorized != nil {
			c.opts.OnUnauthorized()
		}
		return ex.resp, err
	}

	if out != nil && len(ex.body) > 0 {
		if err := json.Unmarshal(ex.body, out); err != nil {
			return ex.resp, fmt.Errorf("httpgateway: decode %s: %w", path, err)
		}
	}
	return ex.resp, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, in any, creds credential.Credentials) (exchange, error) {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return exchange{}, fmt.Errorf("httpgateway: encode %s: %w", path, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return exchange{}, err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.opts.HeaderNames.Apply(req.Header, creds)
	if c.opts.TenantID != nil {
		if tenant := c.opts.TenantID(); tenant != "" {
			req.Header.Set(TenantHeader, tenant)
		}
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return exchange{}, err
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	resp := &gateway.Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header.Clone()}
	if err != nil {
		return exchange{resp: resp}, fmt.Errorf("httpgateway: read %s: %w", path, err)
	}

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized:
		return exchange{resp: resp}, fmt.Errorf("%w: %s %s", gateway.ErrUnauthorized, method, path)
	case httpResp.StatusCode < 200 || httpResp.StatusCode > 299:
		return exchange{resp: resp}, &StatusError{StatusCode: httpResp.StatusCode, Method: method, Path: path}
	}
	return exchange{resp: resp, body: data}, nil
}

func (c *Client) credentials() credential.Credentials {
	if c.opts.Credentials == nil {
		return credential.Credentials{}
	}
	return c.opts.Credentials()
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}
