package httpclient

import (
	"net/http"
	"time"

	loggeradapter "portfoliotracker/internal/adapters/logger"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

type Config struct {
	Timeout      time.Duration
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration
}

func DefaultConfig() Config {
	return Config{
		Timeout:      10 * time.Second,
		RetryMax:     3,
		RetryWaitMin: 500 * time.Millisecond,
		RetryWaitMax: 3 * time.Second,
	}
}

// New returns a standard *http.Client that retries connection errors, 429s
// and 5xx responses with exponential backoff.
func New(cfg Config, logger *loggeradapter.Logger) *http.Client {
	if logger == nil {
		logger = loggeradapter.NewNopLogger()
	}

	c := retryablehttp.NewClient()
	c.RetryMax = cfg.RetryMax
	if cfg.RetryWaitMin > 0 {
		c.RetryWaitMin = cfg.RetryWaitMin
	}
	if cfg.RetryWaitMax > 0 {
		c.RetryWaitMax = cfg.RetryWaitMax
	}
	c.Logger = nil
	c.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			logger.Warn("Retrying request",
				zap.String("host", req.URL.Host),
				zap.String("path", req.URL.Path),
				zap.Int("attempt", attempt),
			)
		}
	}

	client := c.StandardClient()
	client.Timeout = cfg.Timeout
	return client
}
