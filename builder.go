package cosyncjwt

import (
	"errors"

	"github.com/cosync/cosyncjwt/transport"
	"github.com/rs/zerolog"
)

// Builder assembles a Client. A Builder can be built once.
type Builder struct {
	config    Config
	transport transport.Transport
	session   *Session
	logger    zerolog.Logger
	auditSink AuditSink

	built bool
}

// New returns a Builder seeded with DefaultConfig and a no-op logger.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
		logger: zerolog.Nop(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig replaces the whole configuration, including defaults. Start from
// DefaultConfig to change individual fields.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithTransport sets the Transport used for every request. When unset, Build
// creates a transport.HTTP from Config.HTTP.
func (b *Builder) WithTransport(t transport.Transport) *Builder {
	b.transport = t
	return b
}

// WithSession sets the Session the Client reads and mutates.
func (b *Builder) WithSession(s *Session) *Builder {
	b.session = s
	return b
}

// WithLogger sets the structured logger for Client operations and, for the
// default transport, request logging.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = l
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// The sink only receives events when Config.Audit.Enabled is true.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles Client counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the request latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Client.
//
// Build returns an error when the configuration is invalid or the Builder was
// already used.
func (b *Builder) Build() (*Client, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := b.config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := b.logger.With().Str("component", "cosyncjwt").Logger()

	tr := b.transport
	if tr == nil {
		tr = newDefaultTransport(cfg.HTTP, logger)
	}

	sess := b.session
	if sess == nil {
		sess = NewSession()
	}

	client := &Client{
		transport: tr,
		session:   sess,
		logger:    logger,
		audit:     newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:   NewMetrics(cfg.Metrics),
	}
	client.Configure(cfg.AppToken, cfg.RestAddress)

	b.built = true

	return client, nil
}

func newDefaultTransport(cfg HTTPConfig, logger zerolog.Logger) *transport.HTTP {
	mw := []transport.Middleware{transport.RequestID()}
	if cfg.RequestLogging {
		mw = append(mw, transport.Logging(logger))
	}

	opts := []transport.HTTPOption{transport.WithUserAgent(cfg.UserAgent)}
	if cfg.Timeout > 0 {
		opts = append(opts, transport.WithTimeout(cfg.Timeout))
	}
	opts = append(opts, transport.WithMiddleware(mw...))

	return transport.NewHTTP(opts...)
}
