package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"testing"

	"github.com/stretchr/testify/require"
)

// Client is a browser-like API client that keeps the session cookie and
// sends the CSRF token on state-changing requests.
type Client struct {
	ts        *TestServer
	http      *http.Client
	CSRFToken string
	// Header is added to every POST.
	Header http.Header
}

// NewClient creates a client with an empty cookie jar
func (ts *TestServer) NewClient(t *testing.T) *Client {
	t.Helper()

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &Client{
		ts:     ts,
		http:   &http.Client{Jar: jar},
		Header: http.Header{},
	}
}

// FetchCSRF loads the token bound to the client's current session
func (c *Client) FetchCSRF(t *testing.T) string {
	t.Helper()

	resp := c.Get(t, "/auth/csrf")
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)

	var body struct {
		CSRFToken string `json:"csrf_token"`
	}
	AssertJSONResponse(t, resp, &body)
	c.CSRFToken = body.CSRFToken
	return c.CSRFToken
}

// Get issues a GET request against an API path
func (c *Client) Get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := c.http.Get(c.ts.APIURL(path))
	require.NoError(t, err)
	return resp
}

// PostJSON issues a JSON POST carrying the current CSRF token
func (c *Client) PostJSON(t *testing.T, path string, payload any) *http.Response {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return c.post(t, path, "application/json", bytes.NewReader(body))
}

// PostForm issues a form-encoded POST; the CSRF header is sent only when set
func (c *Client) PostForm(t *testing.T, path string, body io.Reader) *http.Response {
	t.Helper()
	return c.post(t, path, "application/x-www-form-urlencoded", body)
}

// PostMultipart sends fields as multipart/form-data
func (c *Client) PostMultipart(t *testing.T, path string, fields map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	require.NoError(t, mw.Close())
	return c.post(t, path, mw.FormDataContentType(), &buf)
}

func (c *Client) post(t *testing.T, path, contentType string, body io.Reader) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, c.ts.APIURL(path), body)
	require.NoError(t, err)
	for name, values := range c.Header {
		req.Header[name] = values
	}
	req.Header.Set("Content-Type", contentType)
	if c.CSRFToken != "" {
		req.Header.Set("X-CSRF-Token", c.CSRFToken)
	}

	resp, err := c.http.Do(req)
	require.NoError(t, err)
	return resp
}

// Register creates an account through the API
func (c *Client) Register(t *testing.T, username, password string) {
	t.Helper()

	if c.CSRFToken == "" {
		c.FetchCSRF(t)
	}
	resp := c.PostJSON(t, "/auth/register", map[string]string{
		"username":         username,
		"password":         password,
		"confirm_password": password,
	})
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)
}

// Login authenticates the client and adopts the rotated CSRF token
func (c *Client) Login(t *testing.T, username, password string) {
	t.Helper()

	if c.CSRFToken == "" {
		c.FetchCSRF(t)
	}
	resp := c.PostJSON(t, "/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	defer resp.Body.Close()
	AssertStatusCode(t, resp, http.StatusOK)

	var body struct {
		CSRFToken string `json:"csrf_token"`
	}
	AssertJSONResponse(t, resp, &body)
	require.NotEmpty(t, body.CSRFToken)
	c.CSRFToken = body.CSRFToken
}

// RegisterAndLogin is the usual setup for authenticated scenarios
func (c *Client) RegisterAndLogin(t *testing.T, username, password string) {
	t.Helper()
	c.Register(t, username, password)
	c.Login(t, username, password)
}
