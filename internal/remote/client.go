package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"

	kerrors "github.com/PolarWolf314/tosk/internal/errors"
	"github.com/PolarWolf314/tosk/internal/utils"
)

const (
	DefaultBaseURL       = "https://api.github.com"
	DefaultTimeout       = 30 * time.Second
	DefaultMaxGetRetries = 2
	DefaultRetryWaitMin  = 250 * time.Millisecond
	DefaultRetryWaitMax  = 2 * time.Second

	apiVersion = "2022-11-28"
	mediaType  = "application/vnd.github+json"
	rawType    = "application/vnd.github.raw+json"

	// maxErrorBody bounds how much of an error response is kept for logging.
	maxErrorBody = 4 << 10

	maxRedirects = 10
)

// Options configures a Client. Token, Owner and Repo are required.
type Options struct {
	BaseURL string
	Token   string
	Owner   string
	Repo    string
	Branch  string

	// Timeout bounds each operation, including GET retries.
	Timeout       time.Duration
	MaxGetRetries int
	RetryWaitMin  time.Duration
	RetryWaitMax  time.Duration

	// HTTPClient is the base client. Defaults to a pooled go-cleanhttp client.
	HTTPClient *http.Client
	Logger     retryablehttp.LeveledLogger

	// CommitMessage builds the commit message for a PUT.
	CommitMessage func(path string) string
}

// Client reads and writes single files through the GitHub Contents API.
type Client struct {
	base    string
	owner   string
	repo    string
	token   string
	branch  string
	timeout time.Duration
	message func(path string) string
	logger  retryablehttp.LeveledLogger

	http *http.Client
	get  *retryablehttp.Client
}

// RemoteFile is a file read from the remote together with its version token.
type RemoteFile struct {
	Path    string
	SHA     string
	Content []byte
}

// Entry is one file found by ListFiles.
type Entry struct {
	// Path is relative to the listed directory.
	Path string
	SHA  string
	Size int64
}

type contentResponse struct {
	Type     string `json:"type"`
	Name     string `json:"name"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Size     int64  `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

// NewClient validates opts and builds a client. Any scheme other than
// https is rejected.
func NewClient(opts Options) (*Client, error) {
	if opts.Token == "" || opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("%w: token, owner and repository are required", kerrors.ErrIncompleteRemoteConfig)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", kerrors.ErrInsecureTransport, baseURL)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}
	httpClient = httpsOnly(httpClient)

	get := retryablehttp.NewClient()
	get.HTTPClient = httpClient
	get.RetryMax = opts.MaxGetRetries
	if get.RetryMax < 0 {
		get.RetryMax = 0
	}
	get.RetryWaitMin = orDefault(opts.RetryWaitMin, DefaultRetryWaitMin)
	get.RetryWaitMax = orDefault(opts.RetryWaitMax, DefaultRetryWaitMax)
	get.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if errors.Is(err, kerrors.ErrInsecureTransport) {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	get.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Logger != nil {
		get.Logger = opts.Logger
	} else {
		get.Logger = nil
	}

	message := opts.CommitMessage
	if message == nil {
		message = func(path string) string { return "tosk backup: " + path }
	}

	return &Client{
		base:    strings.TrimRight(u.String(), "/"),
		owner:   opts.Owner,
		repo:    opts.Repo,
		token:   opts.Token,
		branch:  opts.Branch,
		timeout: timeout,
		message: message,
		logger:  opts.Logger,
		http:    httpClient,
		get:     get,
	}, nil
}

// GetFile returns the file at path and its version token, or nil and no
// error if it does not exist.
func (c *Client) GetFile(ctx context.Context, path string) (*RemoteFile, error) {
	const op = "get"

	endpoint, err := c.contentsURL(path)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var item contentResponse
	status, err := c.getJSON(ctx, op, endpoint, &item)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if item.Type != "" && item.Type != "file" {
		return nil, fmt.Errorf("remote path %s is a %s, not a file", path, item.Type)
	}

	var content []byte
	switch item.Encoding {
	case "base64":
		// GitHub wraps base64 content at 60 columns.
		content, err = base64.StdEncoding.DecodeString(stripWhitespace(item.Content))
		if err != nil {
			return nil, fmt.Errorf("failed to decode remote content for %s: %w", path, err)
		}
	case "none", "":
		// Files over 1 MB come back without inline content.
		content, err = c.getRaw(ctx, op, endpoint)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported content encoding %q for %s", item.Encoding, path)
	}

	return &RemoteFile{Path: path, SHA: item.SHA, Content: content}, nil
}

// PutFile creates or updates the file at path. existingSHA must be the
// version token last read for the file, or empty if the file is new. A
// stale token yields a *ConflictError. PUTs are never retried.
func (c *Client) PutFile(ctx context.Context, path string, data []byte, existingSHA string) (string, error) {
	const op = "put"

	endpoint, err := c.contentsURL(path)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(putRequest{
		Message: c.message(path),
		Content: base64.StdEncoding.EncodeToString(data),
		SHA:     existingSHA,
		Branch:  c.branch,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req.Header, mediaType)
	req.Header.Set("Content-Type", "application/json")

	c.debug("PUT contents", "path", path, "bytes", len(data), "sha", existingSHA)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", transportError(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
	case (resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity) && existingSHA != "":
		c.drain(resp, path)
		return "", &kerrors.ConflictError{Path: path, StaleVersion: existingSHA}
	case resp.StatusCode == http.StatusConflict:
		c.drain(resp, path)
		return "", &kerrors.ConflictError{Path: path}
	default:
		c.drain(resp, path)
		return "", &kerrors.NetworkError{Kind: kerrors.HTTPStatus, Op: op, StatusCode: resp.StatusCode}
	}

	var out putResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: %s %s returned %d but the body could not be decoded, the write may have gone through: %v",
			kerrors.ErrUnexpectedResponse, op, path, resp.StatusCode, err)
	}
	return out.Content.SHA, nil
}

// ListFiles returns every file below dir, recursing into subdirectories.
// A missing directory yields an empty list.
func (c *Client) ListFiles(ctx context.Context, dir string) ([]Entry, error) {
	dir = strings.Trim(dir, "/")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var entries []Entry
	if err := c.listDir(ctx, dir, "", &entries); err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (c *Client) listDir(ctx context.Context, root, rel string, out *[]Entry) error {
	const op = "list"

	full := joinPath(root, rel)
	var endpoint string
	if full == "" {
		endpoint = c.repoURL() + "/contents"
	} else {
		var err error
		if endpoint, err = c.contentsURL(full); err != nil {
			return err
		}
	}

	var items []contentResponse
	status, err := c.getJSON(ctx, op, endpoint, &items)
	if err != nil {
		return err
	}
	if status == http.StatusNotFound {
		return nil
	}

	for _, item := range items {
		name := joinPath(rel, item.Name)
		switch item.Type {
		case "file":
			*out = append(*out, Entry{Path: name, SHA: item.SHA, Size: item.Size})
		case "dir":
			if err := c.listDir(ctx, root, name, out); err != nil {
				return err
			}
		default:
			c.debug("skipping remote entry", "path", item.Path, "type", item.Type)
		}
	}
	return nil
}

// getJSON performs a retried GET and decodes a 2xx body into v. A 404 is
// returned as a status with no error.
func (c *Client) getJSON(ctx context.Context, op, endpoint string, v any) (int, error) {
	resp, err := c.doGet(ctx, op, endpoint, mediaType)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.drain(resp, endpoint)
		return resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.drain(resp, endpoint)
		return resp.StatusCode, &kerrors.NetworkError{Kind: kerrors.HTTPStatus, Op: op, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %s returned %d with an undecodable body: %v",
			kerrors.ErrUnexpectedResponse, op, resp.StatusCode, err)
	}
	return resp.StatusCode, nil
}

func (c *Client) getRaw(ctx context.Context, op, endpoint string) ([]byte, error) {
	resp, err := c.doGet(ctx, op, endpoint, rawType)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.drain(resp, endpoint)
		return nil, &kerrors.NetworkError{Kind: kerrors.HTTPStatus, Op: op, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(op, err)
	}
	return data, nil
}

func (c *Client) doGet(ctx context.Context, op, endpoint, accept string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.setHeaders(req.Header, accept)
	if c.branch != "" {
		q := req.URL.Query()
		q.Set("ref", c.branch)
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.get.Do(req)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, transportError(op, err)
	}
	return resp, nil
}

func (c *Client) setHeaders(h http.Header, accept string) {
	h.Set("Accept", accept)
	h.Set("Authorization", "Bearer "+c.token)
	h.Set("X-GitHub-Api-Version", apiVersion)
	h.Set("User-Agent", "tosk")
}

func (c *Client) repoURL() string {
	return c.base + "/repos/" + url.PathEscape(c.owner) + "/" + url.PathEscape(c.repo)
}

// contentsURL escapes every segment of path so names with spaces or
// reserved characters reach the API intact.
func (c *Client) contentsURL(path string) (string, error) {
	if !utils.IsSafeRelativePath(path) {
		return "", fmt.Errorf("%w: %q", kerrors.ErrInvalidFileName, path)
	}
	segments := strings.Split(path, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return c.repoURL() + "/contents/" + strings.Join(segments, "/"), nil
}

func (c *Client) drain(resp *http.Response, what string) {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	c.debug("unexpected response", "target", what, "status", resp.StatusCode, "body", strings.TrimSpace(string(body)))
}

func (c *Client) debug(msg string, keysAndValues ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}

// httpsOnly returns a copy of c that refuses to follow a redirect off https.
// The caller's client is left untouched.
func httpsOnly(c *http.Client) *http.Client {
	secured := *c
	next := c.CheckRedirect
	secured.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if req.URL.Scheme != "https" {
			return fmt.Errorf("%w: redirect to %s", kerrors.ErrInsecureTransport, req.URL.Redacted())
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return &secured
}

// transportError classifies a failed round trip.
func transportError(op string, err error) error {
	if errors.Is(err, kerrors.ErrInsecureTransport) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &kerrors.NetworkError{Kind: kerrors.Timeout, Op: op, Err: err}
	}
	return &kerrors.NetworkError{Kind: kerrors.Unreachable, Op: op, Err: err}
}

func stripWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
}

func joinPath(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	}
	return a + "/" + b
}

func orDefault(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}
