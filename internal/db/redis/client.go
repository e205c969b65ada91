package redis

import (
	"context"
	"fmt"
	neturl "net/url"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/boost/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// DefaultURL is used when no connection URL is configured.
const DefaultURL = "redis://localhost:6379"

// Config holds connection parameters for a Redis store.
type Config struct {
	// URL is redis://[user:pass@]host[:port][/db], or rediss:// for TLS.
	URL            string
	ConnectTimeout time.Duration
}

// Store implements db.Store via rueidis.
type Store struct {
	client rueidis.Client
}

// NewStore creates a Redis store via rueidis. rueidis dials on creation,
// so an unreachable server is reported here.
func NewStore(cfg Config) (*Store, error) {
	opt, err := clientOption(cfg)
	if err != nil {
		return nil, err
	}

	client, err := rueidis.NewClient(opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	return &Store{client: client}, nil
}

// Connect creates the store and waits for it to answer PING within cfg.ConnectTimeout.
// The client is closed on any failure.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	s, err := NewStore(cfg)
	if err != nil {
		return nil, &db.Error{Op: db.OpConnect, Err: err}
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if err := s.WaitForReady(ctx, timeout); err != nil {
		s.Close()
		return nil, &db.Error{Op: db.OpConnect, Err: err}
	}
	return s, nil
}

func clientOption(cfg Config) (rueidis.ClientOption, error) {
	url := cfg.URL
	if url == "" {
		url = DefaultURL
	}

	opt, err := rueidis.ParseURL(url)
	if err != nil {
		return rueidis.ClientOption{}, fmt.Errorf("parse url: %w", err)
	}
	if len(opt.InitAddress) == 0 {
		return rueidis.ClientOption{}, fmt.Errorf("parse url: no address in %q", RedactURL(url))
	}

	opt.DisableCache = true
	if cfg.ConnectTimeout > 0 {
		opt.Dialer.Timeout = cfg.ConnectTimeout
	}
	return opt, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	cmd := s.client.B().Ping().Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady polls Ping until the store responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for counter store: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

func (s *Store) do(ctx context.Context, cmd rueidis.Completed) rueidis.RedisResult {
	return s.client.Do(ctx, cmd)
}

func (s *Store) b() rueidis.Builder {
	return s.client.B()
}

// RedactURL drops credentials so the URL can be logged.
func RedactURL(raw string) string {
	u, err := neturl.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Redacted()
}
