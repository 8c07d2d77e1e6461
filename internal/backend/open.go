// Package backend opens the service.Service selected in config.yaml.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"taskboard/internal/backend/googletasks"
	"taskboard/internal/backend/memory"
	"taskboard/internal/backend/seed"
	"taskboard/internal/backend/sqlite"
	"taskboard/internal/commentfeed"
	"taskboard/internal/config"
	"taskboard/internal/service"
)

// Open creates the backend named by cfg.Settings.Backend. When a Redis URL
// is configured, live comments travel over Redis pub/sub so that several
// processes see each other's comments.
//
// The returned service implements io.Closer.
func Open(ctx context.Context, cfg *config.Config) (service.Service, error) {
	s := cfg.Settings
	logger := log.WithField("backend", s.Backend)

	var closers []io.Closer
	var feed commentfeed.Feed
	if s.Comments.RedisURL != "" {
		r, err := commentfeed.NewRedis(s.Comments.RedisURL, s.Comments.ChannelPrefix)
		if err != nil {
			return nil, err
		}
		if err := r.Ping(ctx); err != nil {
			r.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		logger.WithField("prefix", s.Comments.ChannelPrefix).Debug("live comments over redis")
		feed = r
		closers = append(closers, r)
	}

	svc, err := open(ctx, cfg, feed, logger)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	if c, ok := svc.(io.Closer); ok {
		// The backend goes first: it may still publish to the feed.
		closers = append([]io.Closer{c}, closers...)
	}
	return &closingService{Service: svc, closers: closers}, nil
}

func open(ctx context.Context, cfg *config.Config, feed commentfeed.Feed, logger *log.Entry) (service.Service, error) {
	s := cfg.Settings
	switch s.Backend {
	case config.BackendMemory, "":
		seedValue := s.Mock.Seed
		if seedValue == 0 {
			seedValue = uint64(time.Now().UnixNano())
		}
		logger.WithFields(log.Fields{"failure_rate": s.Mock.FailureRate, "latency": s.Mock.Latency}).Debug("demo data")
		return memory.New(seed.Boards(), memory.Options{
			Latency:             s.Mock.Latency,
			FailureLatency:      s.Mock.FailureLatency,
			Faults:              memory.NewRandomFaults(s.Mock.FailureRate, seedValue),
			LiveCommentInterval: s.Mock.LiveCommentInterval,
			Feed:                feed,
			Seed:                seedValue,
			Logger:              logger,
		}), nil

	case config.BackendSQLite:
		path := cfg.SQLitePath()
		if path == "" {
			return nil, errors.New("sqlite.path is empty")
		}
		logger.WithField("path", path).Debug("opening database")
		return sqlite.Open(ctx, path, sqlite.Options{Feed: feed, Logger: logger})

	case config.BackendGoogleTasks:
		if !cfg.HasOAuthClient() {
			return nil, fmt.Errorf("oauth_client.json not found in %s: %w", cfg.Dir, service.ErrUnauthorized)
		}
		if !cfg.HasToken() {
			return nil, fmt.Errorf("not logged in (run: taskboard login): %w", service.ErrUnauthorized)
		}
		return googletasks.New(ctx, cfg)
	}
	return nil, fmt.Errorf("unknown backend %q", s.Backend)
}

// closingService releases the backend and the comment feed together.
type closingService struct {
	service.Service
	closers []io.Closer
}

// Close implements io.Closer.
func (s *closingService) Close() error {
	return closeAll(s.closers)
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
