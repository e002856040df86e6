// Package discoverytest serves discovery documents and a fake API surface for
// tests.
package discoverytest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// ValidToken is the OAuth2 access token the fake API accepts.
const ValidToken = "valid-token"

// DiscoveryPath is the discovery root path below the server URL.
const DiscoveryPath = "/discovery/v1"

// Entry is one document known to the fixture directory.
type Entry struct {
	Name      string
	Version   string
	Preferred bool
	Document  string
}

// DefaultEntries returns the directory served by NewServer, in directory order.
func DefaultEntries() []Entry {
	return []Entry{
		{Name: "plus", Version: "v1", Preferred: true, Document: PlusV1},
		{Name: "analytics", Version: "v3", Preferred: true, Document: AnalyticsV3},
		{Name: "prediction", Version: "v1", Preferred: false, Document: PredictionV1},
		{Name: "prediction", Version: "v1.2", Preferred: true, Document: PredictionV12},
		{Name: "prediction", Version: "v1.3", Preferred: false, Document: PredictionV13},
		{Name: "malformed", Version: "v1", Preferred: true, Document: MalformedV1},
	}
}

// Echo is the body returned by the fake API for authorized calls.
type Echo struct {
	Method        string              `json:"method"`
	Path          string              `json:"path"`
	RawPath       string              `json:"rawPath"`
	Query         string              `json:"query"`
	Headers       map[string][]string `json:"headers"`
	Body          string              `json:"body"`
	NextPageToken string              `json:"nextPageToken,omitempty"`
}

// Server is a discovery directory plus a fake API backed by httptest.
type Server struct {
	*httptest.Server

	entries []Entry

	mu        sync.Mutex
	fetches   map[string]int
	listings  int
	apiCalls  int
	lastQuery map[string]string
}

// NewServer starts a server with DefaultEntries and closes it with the test.
func NewServer(t testing.TB) *Server {
	t.Helper()

	return NewServerWithEntries(t, DefaultEntries())
}

// NewServerWithEntries starts a server with the given directory.
func NewServerWithEntries(t testing.TB, entries []Entry) *Server {
	t.Helper()

	s := &Server{
		entries:   entries,
		fetches:   make(map[string]int),
		lastQuery: make(map[string]string),
	}

	router := chi.NewRouter()
	router.Route(DiscoveryPath, func(r chi.Router) {
		r.Get("/apis", s.handleDirectory)
		r.Get("/apis/{api}/{version}/rest", s.handleDocument)
	})
	router.HandleFunc("/*", s.handleAPI)

	s.Server = httptest.NewServer(router)
	t.Cleanup(s.Close)

	return s
}

// DiscoveryRoot is the value for discovery.Config.DiscoveryRoot.
func (s *Server) DiscoveryRoot() string {
	return s.URL + DiscoveryPath
}

// Root is the rootUrl substituted into served documents.
func (s *Server) Root() string {
	return s.URL + "/"
}

// Document returns a served document with the placeholder substituted.
func (s *Server) Document(name, version string) []byte {
	for _, entry := range s.entries {
		if entry.Name == name && entry.Version == version {
			return WithRoot(entry.Document, s.Root())
		}
	}

	return nil
}

// Fetches returns how often the document for name/version was requested.
func (s *Server) Fetches(name, version string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fetches[name+"/"+version]
}

// Listings returns how often the directory was requested.
func (s *Server) Listings() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.listings
}

// APICalls returns how many fake API requests were received.
func (s *Server) APICalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.apiCalls
}

// LastDocumentQuery returns the raw query of the last fetch of name/version.
func (s *Server) LastDocumentQuery(name, version string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastQuery[name+"/"+version]
}

type directoryItem struct {
	Kind             string `json:"kind"`
	ID               string `json:"id"`
	Name             string `json:"name"`
	Version          string `json:"version"`
	DiscoveryRestURL string `json:"discoveryRestUrl"`
	Preferred        bool   `json:"preferred"`
}

func (s *Server) handleDirectory(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.listings++
	s.mu.Unlock()

	name := r.URL.Query().Get("name")
	items := make([]directoryItem, 0, len(s.entries))

	for _, entry := range s.entries {
		if name != "" && entry.Name != name {
			continue
		}

		items = append(items, directoryItem{
			Kind:             "discovery#directoryItem",
			ID:               entry.Name + ":" + entry.Version,
			Name:             entry.Name,
			Version:          entry.Version,
			DiscoveryRestURL: s.DiscoveryRoot() + "/apis/" + entry.Name + "/" + entry.Version + "/rest",
			Preferred:        entry.Preferred,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kind":             "discovery#directoryList",
		"discoveryVersion": "v1",
		"items":            items,
	})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "api")
	version := chi.URLParam(r, "version")

	s.mu.Lock()
	s.fetches[name+"/"+version]++
	s.lastQuery[name+"/"+version] = r.URL.RawQuery
	s.mu.Unlock()

	doc := s.Document(name, version)
	if doc == nil {
		writeError(w, http.StatusNotFound, "notFound", "Requested entity was not found.")

		return
	}

	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.Header().Set("ETag", `"`+name+"-"+version+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// handleAPI answers every non-discovery path. Paths below /plus/ require an
// OAuth2 token equal to ValidToken or any OAuth1 signature; a path ending in
// /fail-server answers 500.
func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.apiCalls++
	s.mu.Unlock()

	if strings.HasSuffix(r.URL.Path, "/fail-server") {
		writeError(w, http.StatusInternalServerError, "backendError", "Backend Error")

		return
	}

	if strings.HasPrefix(r.URL.Path, "/plus/") && !authorized(r.Header.Get("Authorization")) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="https://accounts.google.com/"`)
		writeError(w, http.StatusUnauthorized, "required", "Login Required")

		return
	}

	body, _ := io.ReadAll(r.Body)

	echo := Echo{
		Method:  r.Method,
		Path:    r.URL.Path,
		RawPath: r.URL.EscapedPath(),
		Query:   r.URL.RawQuery,
		Headers: r.Header,
		Body:    string(body),
	}

	if r.URL.Query().Get("pageToken") == "" {
		echo.NextPageToken = "page-2"
	}

	writeJSON(w, http.StatusOK, echo)
}

func authorized(header string) bool {
	if header == "OAuth "+ValidToken {
		return true
	}

	return strings.HasPrefix(header, "OAuth ") && strings.Contains(header, "oauth_signature=")
}

func writeError(w http.ResponseWriter, status int, reason, message string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    status,
			"message": message,
			"errors": []map[string]string{
				{"domain": "global", "reason": reason, "message": message},
			},
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
