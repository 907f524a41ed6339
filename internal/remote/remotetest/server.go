// Package remotetest provides an in-memory GitHub Contents API for tests.
package remotetest

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
)

// Failure makes the server misbehave for one path.
type Failure int

const (
	// Drop closes the connection without a response.
	Drop Failure = -1
)

// Request records one request the server received.
type Request struct {
	Method     string
	Path       string
	RequestURI string
	Header     http.Header
}

// Server is a TLS test server holding files in memory, keyed by decoded path.
type Server struct {
	*httptest.Server

	Owner string
	Repo  string

	mu       sync.Mutex
	files    map[string][]byte
	putFail  map[string]Failure
	getFail  map[string][]Failure
	requests []Request
}

// NewServer starts a server for owner/repo. Close it when done.
func NewServer(owner, repo string) *Server {
	s := &Server{
		Owner:   owner,
		Repo:    repo,
		files:   make(map[string][]byte),
		putFail: make(map[string]Failure),
		getFail: make(map[string][]Failure),
	}
	s.Server = httptest.NewTLSServer(http.HandlerFunc(s.handle))
	return s
}

// SHA returns the git blob hash the server reports for content.
func SHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// SetFile stores content at path.
func (s *Server) SetFile(path string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[path] = append([]byte(nil), content...)
}

// File returns the content at path.
func (s *Server) File(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.files[path]
	return b, ok
}

// FailPut makes every PUT to path fail with the given status, or Drop.
func (s *Server) FailPut(path string, f Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putFail[path] = f
}

// FailGets makes the next GETs of path fail, one failure per request.
func (s *Server) FailGets(path string, failures ...Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getFail[path] = append(s.getFail[path], failures...)
}

// Requests returns the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests used method on path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	prefix := "/repos/" + s.Owner + "/" + s.Repo + "/contents"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, prefix), "/")

	s.mu.Lock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: path, RequestURI: r.RequestURI, Header: r.Header.Clone()})
	var failure Failure
	switch r.Method {
	case http.MethodGet:
		if queue := s.getFail[path]; len(queue) > 0 {
			failure = queue[0]
			s.getFail[path] = queue[1:]
		}
	case http.MethodPut:
		failure = s.putFail[path]
	}
	s.mu.Unlock()

	if r.Header.Get("Authorization") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Requires authentication"})
		return
	}

	switch {
	case failure == Drop:
		drop(w)
		return
	case failure > 0:
		writeJSON(w, int(failure), map[string]string{"message": http.StatusText(int(failure))})
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.get(w, r, path)
	case http.MethodPut:
		s.put(w, r, path)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) get(w http.ResponseWriter, r *http.Request, path string) {
	s.mu.Lock()
	content, isFile := s.files[path]
	var children []map[string]any
	if !isFile {
		children = s.listLocked(path)
	}
	s.mu.Unlock()

	if isFile {
		if r.Header.Get("Accept") == "application/vnd.github.raw+json" {
			w.WriteHeader(http.StatusOK)
			w.Write(content)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"type":     "file",
			"name":     baseName(path),
			"path":     path,
			"sha":      SHA(content),
			"size":     len(content),
			"encoding": "base64",
			"content":  wrap(base64.StdEncoding.EncodeToString(content), 60),
		})
		return
	}
	if len(children) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Not Found"})
		return
	}
	writeJSON(w, http.StatusOK, children)
}

func (s *Server) listLocked(dir string) []map[string]any {
	prefix := dir + "/"
	if dir == "" {
		prefix = ""
	}
	seen := make(map[string]bool)
	var out []map[string]any
	var names []string
	for p := range s.files {
		if strings.HasPrefix(p, prefix) {
			names = append(names, p)
		}
	}
	sort.Strings(names)
	for _, p := range names {
		rest := strings.TrimPrefix(p, prefix)
		first, _, nested := strings.Cut(rest, "/")
		if seen[first] {
			continue
		}
		seen[first] = true
		if nested {
			out = append(out, map[string]any{"type": "dir", "name": first, "path": prefix + first})
			continue
		}
		content := s.files[p]
		out = append(out, map[string]any{"type": "file", "name": first, "path": p, "sha": SHA(content), "size": len(content)})
	}
	return out
}

func (s *Server) put(w http.ResponseWriter, r *http.Request, path string) {
	var body struct {
		Message string `json:"message"`
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Message == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "Invalid request"})
		return
	}
	content, err := base64.StdEncoding.DecodeString(body.Content)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": "content is not valid Base64"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.files[path]
	switch {
	case exists && body.SHA == "":
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"message": `Invalid request. "sha" wasn't supplied.`})
		return
	case exists && body.SHA != SHA(current):
		writeJSON(w, http.StatusConflict, map[string]string{"message": fmt.Sprintf("%s does not match %s", path, body.SHA)})
		return
	case !exists && body.SHA != "":
		writeJSON(w, http.StatusConflict, map[string]string{"message": fmt.Sprintf("%s does not exist", path)})
		return
	}

	s.files[path] = content
	status := http.StatusOK
	if !exists {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]any{
		"content": map[string]any{"name": baseName(path), "path": path, "sha": SHA(content)},
		"commit":  map[string]any{"message": body.Message},
	})
}

func drop(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	conn, _, err := hj.Hijack()
	if err == nil {
		conn.Close()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func wrap(s string, width int) string {
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width])
		b.WriteByte('\n')
		s = s[width:]
	}
	b.WriteString(s)
	b.WriteByte('\n')
	return b.String()
}

func baseName(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
