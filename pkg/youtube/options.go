package youtube

import "google.golang.org/api/option"

const (
	defaultMaxPlaylistVideos = 10000
	defaultChannelVideos     = 1000
	pageSize                 = 50
	idBatchSize              = 50
)

// Logger defines the logging surface the client relies on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{}) {}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets the logger used for failsafe and parse warnings.
func WithLogger(log Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMaxPlaylistVideos caps how many playlist items a timeframe scan inspects.
func WithMaxPlaylistVideos(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxScan = n
		}
	}
}

// WithClientOptions forwards options to the underlying API service
// (custom endpoint or HTTP client, mostly for tests).
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(c *Client) {
		c.svcOpts = append(c.svcOpts, opts...)
	}
}
