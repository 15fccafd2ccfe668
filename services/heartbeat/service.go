package heartbeat

import (
	"net/http"
	"time"

	"github.com/authcove/authcove/config"
	"github.com/authcove/authcove/services/logging"
	"go.uber.org/zap"
)

// Service periodically pings an external health-check URL so an uptime
// monitor can tell the process is alive.
type Service struct {
	config *config.HeartbeatConfig
	logger *logging.Service
	client *http.Client
	stop   chan struct{}
}

func NewService(cfg *config.Config, logger *logging.Service) *Service {
	return &Service{
		config: &cfg.Heartbeat,
		logger: logger,
		client: &http.Client{Timeout: 10 * time.Second},
		stop:   make(chan struct{}),
	}
}

func (s *Service) Start() {
	if s.config.PingURL == "" {
		return
	}

	go func() {
		s.ping()

		ticker := time.NewTicker(s.config.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.ping()
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Service) Stop() {
	close(s.stop)
}

func (s *Service) ping() {
	resp, err := s.client.Get(s.config.PingURL)
	if err != nil {
		s.logger.Warn("healthcheck ping failed", zap.Error(err))
		return
	}
	resp.Body.Close()

	s.logger.Debug("healthcheck ping sent", zap.String("url", s.config.PingURL))
}
