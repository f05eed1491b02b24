package xymodem

import "context"

// Session is the high-level entry point: construct one with NewSession and
// a handful of Options, then call Run. It exists mainly to bundle a
// Receiver with the context and logger plumbing a host typically wants.
type Session struct {
	port IOPort
	sink FileSink

	config    Config
	callbacks *Callbacks
	ctx       context.Context
	logger    Logger

	receiver *Receiver
}

// Option configures a Session. Options are applied in order, so a later
// option overrides an earlier one touching the same field.
type Option func(*Session)

// WithConfig overrides the default timeout/retry/overrun configuration.
func WithConfig(config Config) Option {
	return func(s *Session) { s.config = config }
}

// WithCallbacks sets the session's progress/completion callbacks.
func WithCallbacks(callbacks *Callbacks) Option {
	return func(s *Session) { s.callbacks = callbacks }
}

// WithContext sets the context whose cancellation aborts the session.
func WithContext(ctx context.Context) Option {
	return func(s *Session) { s.ctx = ctx }
}

// WithLogger sets a Logger for wire-level and protocol-decision tracing.
func WithLogger(logger Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// NewSession builds a Session over port (the byte transport) and sink (the
// destination for received files), applying opts in order.
func NewSession(port IOPort, sink FileSink, opts ...Option) *Session {
	s := &Session{
		port:   port,
		sink:   sink,
		config: DefaultConfig(),
		ctx:    context.Background(),
		logger: NoopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.receiver = NewReceiver(s.port, s.sink, s.callbacks, s.logger, s.config)
	return s
}

// Run receives files until the batch is exhausted, a single plain-XMODEM
// transfer completes, or a fatal error aborts the session.
func (s *Session) Run() error {
	return s.receiver.ReceiveAll(s.ctx)
}
