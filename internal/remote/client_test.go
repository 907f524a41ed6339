package remote

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kerrors "github.com/PolarWolf314/tosk/internal/errors"
	"github.com/PolarWolf314/tosk/internal/remote/remotetest"
)

func newTestClient(t *testing.T, srv *remotetest.Server, modify ...func(*Options)) *Client {
	t.Helper()
	opts := Options{
		BaseURL:       srv.URL,
		Token:         "test-token",
		Owner:         srv.Owner,
		Repo:          srv.Repo,
		Timeout:       5 * time.Second,
		MaxGetRetries: 2,
		RetryWaitMin:  time.Millisecond,
		RetryWaitMax:  5 * time.Millisecond,
		HTTPClient:    srv.Client(),
	}
	for _, m := range modify {
		m(&opts)
	}
	client, err := NewClient(opts)
	require.NoError(t, err)
	return client
}

func TestNewClient_RejectsInsecureOrIncomplete(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"plain http", Options{BaseURL: "http://api.github.com", Token: "t", Owner: "o", Repo: "r"}, kerrors.ErrInsecureTransport},
		{"no scheme", Options{BaseURL: "api.github.com", Token: "t", Owner: "o", Repo: "r"}, kerrors.ErrInsecureTransport},
		{"missing token", Options{Owner: "o", Repo: "r"}, kerrors.ErrIncompleteRemoteConfig},
		{"missing repo", Options{Token: "t", Owner: "o"}, kerrors.ErrIncompleteRemoteConfig},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(tc.opts)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := NewClient(Options{Token: "t", Owner: "o", Repo: "r"})
	assert.NoError(t, err, "default base URL should be accepted")
}

func TestPutGet_RoundTripWithEncodedPath(t *testing.T) {
	srv := remotetest.NewServer("octocat", "planner-backups")
	defer srv.Close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	path := "my backups/tasks 2025.json"
	content := []byte(`[{"id":1,"title":"Plan Q3 & review #2"}]`)

	sha, err := client.PutFile(ctx, path, content, "")
	require.NoError(t, err)
	assert.Equal(t, remotetest.SHA(content), sha)

	stored, ok := srv.File(path)
	require.True(t, ok, "server should have stored the decoded path")
	assert.Equal(t, content, stored)

	file, err := client.GetFile(ctx, path)
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, content, file.Content)
	assert.Equal(t, sha, file.SHA)

	for _, r := range srv.Requests() {
		assert.Contains(t, r.RequestURI, "/contents/my%20backups/tasks%202025.json")
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "2022-11-28", r.Header.Get("X-GitHub-Api-Version"))
	}
}

func TestGetFile_EscapesReservedCharacters(t *testing.T) {
	srv := remotetest.NewServer("octocat", "planner-backups")
	defer srv.Close()
	client := newTestClient(t, srv)

	path := "backups/50% done?#1.txt"
	srv.SetFile(path, []byte("half"))

	file, err := client.GetFile(context.Background(), path)
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, []byte("half"), file.Content)
	assert.Contains(t, srv.Requests()[0].RequestURI, "50%25%20done%3F%231.txt")
}

func TestGetFile_NotFoundIsNil(t *testing.T) {
	srv := remotetest.NewServer("octocat", "planner-backups")
	defer srv.Close()
	client := newTestClient(t, srv)

	file, err := client.GetFile(context.Background(), "backups/nothing.json")
	assert.NoError(t, err)
	assert.Nil(t, file)
	assert.Equal(t, 1, srv.Count(http.MethodGet, "backups/nothing.json"), "404 must not be retried")
}

func TestGetFile_LargeFileUsesRawMediaType(t *testing.T) {
	content := []byte("large file body")
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") == "application/vnd.github.raw+json" {
			w.Write(content)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type":"file","sha":"abc","encoding":"none","content":""}`))
	}))
	defer ts.Close()

	client, err := NewClient(Options{BaseURL: ts.URL, Token: "t", Owner: "o", Repo: "r", HTTPClient: ts.Client()})
	require.NoError(t, err)

	file, err := client.GetFile(context.Background(), "tasks.json")
	require.NoError(t, err)
	assert.Equal(t, content, file.Content)
	assert.Equal(t, "abc", file.SHA)
}

func TestPutFile_StaleVersionIsConflict(t *testing.T) {
	srv := remotetest.NewServer("octocat", "planner-backups")
	defer srv.Close()
	client := newTestClient(t, srv)
	ctx := context.Background()

	first, err := client.PutFile(ctx, "backups/tasks.json", []byte("v1"), "")
	require.NoError(t, err)

	// Another device updates the file.
	_, err = client.PutFile(ctx, "backups/tasks.json", []byte("v2"), first)
	require.NoError(t, err)

	_, err = client.PutFile(ctx, "backups/tasks.json", []byte("v3"), first)
	var conflict *kerrors.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, first, conflict.StaleVersion)
	assert.Equal(t, "backups/tasks.json", conflict.Path)
	assert.ErrorIs(t, err, kerrors.ErrConflict)

	stored, _ := srv.File("backups/tasks.json")
	assert.Equal(t, []byte("v2"), stored, "conflicting write must not land")
}

func TestPutFile_MissingVersionForExistingFile(t *testing.T) {
	srv := remotetest.NewServer("octocat", "planner-backups")
	defer srv.Close()
	client := newTestClient(t, srv)

	srv.SetFile("backups/tasks.json", []byte("existing"))

	_, err := client.PutFile(context.Background(), "backups/tasks.json", []byte("new"), "")
	var netErr *kerrors.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, kerrors.HTTPStatus, netErr.Kind)
	assert.Equal(t, http.StatusUnprocessableEntity, netErr.StatusCode)
}

func TestGetFile_RetriesTransientFailures(t *testing.T) {
	srv := remotetest.NewServer("octocat", "planner-backups")
	defer srv.Close()
	client := newTestClient(t, srv)

	srv.SetFile("backups/tasks.json", []byte("ok"))
	srv.FailGets("backups/tasks.json", http.StatusServiceUnavailable, http.StatusBadGateway)

	file, err := client.GetFile(context.Background(), "backups/tasks.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), file.Content)
	assert.Equal(t, 3, srv.Count(http.MethodGet, "backups/tasks.json"))
}

func TestGetFile_RetriesAreBounded(t *testing.T) {
	srv := remotetest.NewServer("octocat", "planner-backups")
	defer srv.Close()
	client := newTestClient(t, srv)

	srv.SetFile("backups/tasks.json", []byte("ok"))
	srv.FailGets("backups/tasks.json", 503, 503, 503, 503, 503)

	_, err := client.GetFile(context.Background(), "backups/tasks.json")
	var netErr *kerrors.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, kerrors.HTTPStatus, netErr.Kind)
	assert.Equal(t, http.StatusServiceUnavailable, netErr.StatusCode)
	assert.Equal(t, 3, srv.Count(http.MethodGet, "backups/tasks.json"), "one attempt plus two retries")
}

func TestPutFile_NeverRetried(t *testing.T) {
	srv := remotetest.NewServer("octocat", "planner-backups")
	defer srv.Close()
	client := newTestClient(t, srv)

	srv.FailPut("backups/tasks.json", http.StatusServiceUnavailable)

	_, err := client.PutFile(context.Background(), "backups/tasks.json", []byte("x"), "")
	assert.ErrorIs(t, err, kerrors.ErrNetwork)
	assert.Equal(t, 1, srv.Count(http.MethodPut, "backups/tasks.json"))
}

func TestStatusMapping(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusInternalServerError} {
		srv := remotetest.NewServer("octocat", "planner-backups")
		client := newTestClient(t, srv, func(o *Options) { o.MaxGetRetries = 0 })
		srv.FailPut("f.txt", remotetest.Failure(status))
		srv.FailGets("f.txt", remotetest.Failure(status))

		_, err := client.PutFile(context.Background(), "f.txt", []byte("x"), "")
		var netErr *kerrors.NetworkError
		if assert.ErrorAs(t, err, &netErr) {
			assert.Equal(t, kerrors.HTTPStatus, netErr.Kind)
			assert.Equal(t, status, netErr.StatusCode)
		}

		_, err = client.GetFile(context.Background(), "f.txt")
		if assert.ErrorAs(t, err, &netErr) {
			assert.Equal(t, status, netErr.StatusCode)
		}
		srv.Close()
	}
}

func TestPutFile_DroppedConnectionIsUnreachable(t *testing.T) {
	srv := remotetest.NewServer("octocat", "planner-backups")
	defer srv.Close()
	client := newTestClient(t, srv)

	srv.FailPut("tasks.json", remotetest.Drop)

	_, err := client.PutFile(context.Background(), "tasks.json", []byte("x"), "")
	var netErr *kerrors.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, kerrors.Unreachable, netErr.Kind)
}

func TestTimeout(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer ts.Close()

	client, err := NewClient(Options{
		BaseURL:    ts.URL,
		Token:      "t",
		Owner:      "o",
		Repo:       "r",
		Timeout:    50 * time.Millisecond,
		HTTPClient: ts.Client(),
	})
	require.NoError(t, err)

	start := time.Now()
	_, err = client.GetFile(context.Background(), "tasks.json")
	assert.ErrorIs(t, err, kerrors.ErrTimeout)
	assert.Less(t, time.Since(start), 3*time.Second)

	_, err = client.PutFile(context.Background(), "tasks.json", []byte("x"), "")
	var netErr *kerrors.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, kerrors.Timeout, netErr.Kind)
}

func TestRejectsUnsafePaths(t *testing.T) {
	srv := remotetest.NewServer("octocat", "planner-backups")
	defer srv.Close()
	client := newTestClient(t, srv)

	for _, p := range []string{"", "../escape", "/abs", "a//b"} {
		_, err := client.GetFile(context.Background(), p)
		assert.ErrorIs(t, err, kerrors.ErrInvalidFileName, p)
	}
	assert.Empty(t, srv.Requests())
}

func TestListFiles(t *testing.T) {
	srv := remotetest.NewServer("octocat", "planner-backups")
	defer srv.Close()
	client := newTestClient(t, srv)

	srv.SetFile("backups/tasks.json", []byte("a"))
	srv.SetFile("backups/task_log.txt", []byte("bb"))
	srv.SetFile("backups/exports/2025 march.csv", []byte("ccc"))
	srv.SetFile("elsewhere/other.txt", []byte("d"))

	entries, err := client.ListFiles(context.Background(), "/backups/")
	require.NoError(t, err)

	var paths []string
	for _, e := range entries {
		paths = append(paths, e.Path)
	}
	assert.Equal(t, []string{"exports/2025 march.csv", "task_log.txt", "tasks.json"}, paths)
	assert.Equal(t, int64(2), entries[1].Size)

	empty, err := client.ListFiles(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCommitMessage(t *testing.T) {
	var got string
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(strings.Builder)
		_, _ = io.Copy(buf, r.Body)
		got = buf.String()
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"content":{"sha":"new"}}`))
	}))
	defer ts.Close()

	client, err := NewClient(Options{
		BaseURL:       ts.URL,
		Token:         "t",
		Owner:         "o",
		Repo:          "r",
		HTTPClient:    ts.Client(),
		Branch:        "backups",
		CommitMessage: func(path string) string { return "Backup " + path + " from laptop" },
	})
	require.NoError(t, err)

	sha, err := client.PutFile(context.Background(), "tasks.json", []byte("x"), "")
	require.NoError(t, err)
	assert.Equal(t, "new", sha)
	assert.Contains(t, got, `"message":"Backup tasks.json from laptop"`)
	assert.Contains(t, got, `"branch":"backups"`)
	assert.NotContains(t, got, `"sha"`)
}

func TestClient_RefusesRedirectOffHTTPS(t *testing.T) {
	var plainHits atomic.Int32
	plain := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		plainHits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer plain.Close()

	var gets atomic.Int32
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusFound
		if r.Method == http.MethodPut {
			status = http.StatusTemporaryRedirect
		} else {
			gets.Add(1)
		}
		http.Redirect(w, r, plain.URL+r.URL.RequestURI(), status)
	}))
	defer ts.Close()

	base := ts.Client()
	client, err := NewClient(Options{
		BaseURL:       ts.URL,
		Token:         "secret-token",
		Owner:         "o",
		Repo:          "r",
		MaxGetRetries: 2,
		RetryWaitMin:  time.Millisecond,
		RetryWaitMax:  time.Millisecond,
		HTTPClient:    base,
	})
	require.NoError(t, err)

	file, err := client.GetFile(context.Background(), "backups/tasks.json")
	assert.Nil(t, file)
	assert.ErrorIs(t, err, kerrors.ErrInsecureTransport)
	assert.Equal(t, int32(1), gets.Load(), "an insecure redirect is not retried")

	_, err = client.PutFile(context.Background(), "backups/tasks.json", []byte("secret tasks"), "")
	assert.ErrorIs(t, err, kerrors.ErrInsecureTransport)

	assert.Zero(t, plainHits.Load(), "nothing may reach the plain HTTP server")
	assert.Nil(t, base.CheckRedirect, "the caller's client must not be modified")
}

func TestClient_FollowsHTTPSRedirect(t *testing.T) {
	srv := remotetest.NewServer("octocat", "planner-backups")
	defer srv.Close()
	srv.SetFile("backups/tasks.json", []byte("[]"))

	moved := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.RequestURI(), http.StatusMovedPermanently)
	}))
	defer moved.Close()

	client := newTestClient(t, srv, func(o *Options) { o.BaseURL = moved.URL })

	file, err := client.GetFile(context.Background(), "backups/tasks.json")
	require.NoError(t, err)
	require.NotNil(t, file)
	assert.Equal(t, []byte("[]"), file.Content)
}

func TestPutFile_UndecodableSuccessIsNotANetworkError(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("<html>created</html>"))
	}))
	defer ts.Close()

	client, err := NewClient(Options{BaseURL: ts.URL, Token: "t", Owner: "o", Repo: "r", HTTPClient: ts.Client()})
	require.NoError(t, err)

	_, err = client.PutFile(context.Background(), "backups/tasks.json", []byte("x"), "")
	assert.ErrorIs(t, err, kerrors.ErrUnexpectedResponse)
	assert.False(t, errors.Is(err, kerrors.ErrNetwork), "the write may have succeeded; do not report the remote as unreachable")
}

func TestErrorsAreNetworkErrors(t *testing.T) {
	err := transportError("get", context.DeadlineExceeded)
	assert.True(t, errors.Is(err, kerrors.ErrTimeout))
	assert.True(t, errors.Is(err, kerrors.ErrNetwork))

	err = transportError("get", errors.New("connection refused"))
	assert.False(t, errors.Is(err, kerrors.ErrTimeout))
	assert.True(t, errors.Is(err, kerrors.ErrNetwork))
}
