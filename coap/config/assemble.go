package coapconfig

import (
	"github.com/oakmoss/coapcore/coap/idalloc"
	"github.com/oakmoss/coapcore/coap/reliability"
	"github.com/oakmoss/coapcore/coap/scheduler"
	"github.com/oakmoss/coapcore/coap/tokenpool"
)

// IDAllocOptions translates c into idalloc.Factory construction options, so
// a host that decoded a Config doesn't have to hand-translate
// ExchangeLifeMS into idalloc.WithExchangeLifetime itself.
func (c Config) IDAllocOptions() []idalloc.Option {
	return []idalloc.Option{
		idalloc.WithExchangeLifetime(c.ExchangeLifetime()),
	}
}

// TokenPoolOptions translates c into tokenpool.Pool construction options.
func (c Config) TokenPoolOptions() []tokenpool.Option {
	return []tokenpool.Option{
		tokenpool.WithMaxLength(c.MaxTokenLength),
	}
}

// ReliabilityOptions translates c into reliability.Engine construction
// options (RFC 7252 §4.8's timing constants).
func (c Config) ReliabilityOptions() []reliability.Option {
	return []reliability.Option{
		reliability.WithAckTimeout(c.AckTimeout()),
		reliability.WithAckRandomFactor(c.AckRandomFactor),
		reliability.WithMaxRetransmit(c.MaxRetransmit),
	}
}

// NewScheduler builds the shared worker pool (spec §5) sized per
// c.SchedulerWorkers, the one tunable that has no per-component Option
// because the scheduler is constructed once and handed to the reliability
// engine as a constructor argument (the callback manager takes none).
func (c Config) NewScheduler() *scheduler.Pool {
	return scheduler.New(c.SchedulerWorkers)
}
