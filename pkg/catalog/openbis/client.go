// Copyright © 2018 One Concern

// Package openbis implements a catalog client speaking the openBIS v3 JSON-RPC API.
package openbis

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/oneconcern/datalink/pkg/catalog"
	"github.com/oneconcern/datalink/pkg/catalog/status"
)

const (
	applicationServerPath = "/openbis/openbis/rmi-application-server-v3.json"
	dataStoreServerPath   = "/datastore_server/rmi-data-store-server-v3.json"

	defaultTimeout = 5 * time.Minute
)

var _ catalog.Client = &Client{}

// Client to an openBIS server
type Client struct {
	url            *url.URL
	fileservice    string
	user, password string
	verifyCerts    bool
	onlyHTTPS      bool
	http           *http.Client
	l              *zap.Logger

	mu    sync.Mutex
	token string
}

// Option for the openBIS client
type Option func(*Client)

// WithCredentials sets the user logging into openBIS
func WithCredentials(user, password string) Option {
	return func(c *Client) {
		c.user = user
		c.password = password
	}
}

// WithFileservice sets the URL of the service streaming the content of linked data sets
func WithFileservice(u string) Option {
	return func(c *Client) {
		c.fileservice = u
	}
}

// WithVerifyCertificates toggles the verification of TLS certificates
func WithVerifyCertificates(verify bool) Option {
	return func(c *Client) {
		c.verifyCerts = verify
	}
}

// WithAllowOnlyHTTPS rejects plain http URLs
func WithAllowOnlyHTTPS(only bool) Option {
	return func(c *Client) {
		c.onlyHTTPS = only
	}
}

// WithHTTPClient replaces the http client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets a logger for the client
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.l = l
		}
	}
}

// New client to the openBIS server at serverURL
func New(serverURL string, opts ...Option) (*Client, error) {
	c := &Client{
		verifyCerts: true,
		onlyHTTPS:   true,
		l:           zap.NewNop(),
	}
	for _, apply := range opts {
		apply(c)
	}

	u, err := c.checkURL(serverURL)
	if err != nil {
		return nil, err
	}
	c.url = u
	if c.fileservice != "" {
		if _, err := c.checkURL(c.fileservice); err != nil {
			return nil, err
		}
	}

	if c.http == nil {
		c.http = &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				// #nosec
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !c.verifyCerts},
			},
		}
	}
	return c, nil
}

func (c *Client) checkURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, status.ErrUnsupportedURL.WrapMessage("%q: %v", raw, err)
	}
	switch u.Scheme {
	case "https":
	case "http":
		if c.onlyHTTPS {
			return nil, status.ErrUnsupportedURL.WrapMessage("%q: only https is allowed", raw)
		}
	default:
		return nil, status.ErrUnsupportedURL.WrapMessage("%q", raw)
	}
	return u, nil
}

func (c *Client) String() string {
	return c.url.String()
}

func (c *Client) endpoint(pth string) string {
	return strings.TrimSuffix(c.url.String(), "/") + pth
}

type rpcRequest struct {
	ID      string        `json:"id"`
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result jsoniter.RawMessage `json:"result"`
	Error  *rpcError           `json:"error"`
}

// call posts a JSON-RPC request and decodes its result into target
func (c *Client) call(ctx context.Context, pth, method string, target interface{}, params ...interface{}) error {
	body, err := jsoniter.Marshal(rpcRequest{ID: "1", JSONRPC: "2.0", Method: method, Params: params})
	if err != nil {
		return status.ErrTransport.Wrap(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(pth), bytes.NewReader(body))
	if err != nil {
		return status.ErrTransport.Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.l.Debug("openbis request", zap.String("method", method))
	resp, err := c.http.Do(req)
	if err != nil {
		return status.ErrTransport.WrapMessage("%s: %v", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return status.ErrTransport.WrapMessage("%s: %s: %s", method, resp.Status, strings.TrimSpace(string(msg)))
	}
	var res rpcResponse
	if err := jsoniter.NewDecoder(resp.Body).Decode(&res); err != nil {
		return status.ErrTransport.WrapMessage("%s: decoding response: %v", method, err)
	}
	if res.Error != nil {
		return status.ErrTransport.WrapMessage("%s: %s", method, res.Error.Message)
	}
	if target == nil {
		return nil
	}
	if err := jsoniter.Unmarshal(res.Result, target); err != nil {
		return status.ErrTransport.WrapMessage("%s: decoding result: %v", method, err)
	}
	return nil
}

// session logs in on first use, and returns the session token
func (c *Client) session(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}
	var token *string
	if err := c.call(ctx, applicationServerPath, "login", &token, c.user, c.password); err != nil {
		return "", err
	}
	if token == nil || *token == "" {
		return "", status.ErrTransport.WrapMessage("login to %s failed for user %q", c.url, c.user)
	}
	c.l.Info("logged into openBIS", zap.String("url", c.url.String()), zap.String("user", c.user))
	c.token = *token
	return c.token, nil
}

// Logout ends the session, if any
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return nil
	}
	err := c.call(ctx, applicationServerPath, "logout", nil, c.token)
	c.token = ""
	return err
}

// Close the session
func (c *Client) Close() error {
	return c.Logout(context.Background())
}

func (c *Client) as(ctx context.Context, method string, target interface{}, params ...interface{}) error {
	return c.withSession(ctx, applicationServerPath, method, target, params...)
}

func (c *Client) dss(ctx context.Context, method string, target interface{}, params ...interface{}) error {
	return c.withSession(ctx, dataStoreServerPath, method, target, params...)
}

func (c *Client) withSession(ctx context.Context, pth, method string, target interface{}, params ...interface{}) error {
	token, err := c.session(ctx)
	if err != nil {
		return err
	}
	return c.call(ctx, pth, method, target, append([]interface{}{token}, params...)...)
}
