package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"blobcache/internal/blobcache"
	"blobcache/internal/blobstore"
	"blobcache/internal/objecturl"
	"blobcache/internal/store"
)

const (
	allowRemoteEnvKey       = "BLOBCACHE_ALLOW_REMOTE"
	readHeaderTimeout       = 5 * time.Second
	readTimeout             = 30 * time.Second
	writeTimeout            = 60 * time.Second
	idleTimeout             = 60 * time.Second
	persistConcurrencyLimit = 1
)

// Options wires the server to its collaborators and policy.
type Options struct {
	// Handles allocates object handles for cached records. A private
	// registry is created when nil.
	Handles *objecturl.Memory
	Origin  string

	// Assets and Blobs back the persistence routes. Both are optional.
	Assets store.AssetStore
	Blobs  blobstore.BlobStore

	AllowedMediaTypes  []string
	MaxBlobBytes       int64
	PersistConcurrency int

	// TokenHash is a bcrypt hash; when set every route except /health
	// requires a matching bearer token.
	TokenHash string

	DBPath   string
	BlobRoot string
}

// Server wraps HTTP handlers for the blobcache API.
type Server struct {
	addr           string
	cache          *blobcache.Cache
	handles        *objecturl.Memory
	blobs          *BlobService
	persist        *PersistService
	logger         *slog.Logger
	tokenHash      string
	dbPath         string
	blobRoot       string
	persistLimiter chan struct{}
}

// New creates a new server instance.
func New(addr string, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	handles := opts.Handles
	if handles == nil {
		handles = objecturl.NewMemory(opts.Origin, logger.With("component", "objecturl"))
	}
	cache := blobcache.New(
		blobcache.WithRegistry(handles),
		blobcache.WithLogger(logger.With("component", "blobcache")),
	)

	blobs := NewBlobService(cache, handles)
	blobs.ConfigurePolicy(opts.AllowedMediaTypes, opts.MaxBlobBytes)

	return &Server{
		addr:           addr,
		cache:          cache,
		handles:        handles,
		blobs:          blobs,
		persist:        NewPersistService(cache, opts.Assets, opts.Blobs, opts.PersistConcurrency, logger.With("component", "persist")),
		logger:         logger,
		tokenHash:      strings.TrimSpace(opts.TokenHash),
		dbPath:         opts.DBPath,
		blobRoot:       opts.BlobRoot,
		persistLimiter: make(chan struct{}, persistConcurrencyLimit),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr, "persistence", s.persist.Enabled(), "auth", s.tokenHash != "")
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// Close releases every cached object handle.
func (s *Server) Close() {
	s.cache.Destroy()
	s.observeCache()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}
