package coapconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmoss/coapcore/coap"
	"github.com/oakmoss/coapcore/coap/events"
	"github.com/oakmoss/coapcore/coap/idalloc"
	"github.com/oakmoss/coapcore/coap/reliability"
	"github.com/oakmoss/coapcore/coap/tokenpool"
)

type noopWriter struct{}

func (noopWriter) WriteMessage(coap.Remote, coap.Message) error { return nil }

type noopSink struct{}

func (noopSink) OnMessageIDAssigned(events.MessageIDAssigned)                   {}
func (noopSink) OnMessageRetransmitted(events.MessageRetransmitted)             {}
func (noopSink) OnEmptyAckReceived(events.EmptyAckReceived)                     {}
func (noopSink) OnResetReceived(events.ResetReceived)                           {}
func (noopSink) OnTransmissionTimeout(events.TransmissionTimeout)               {}
func (noopSink) OnMiscError(events.MiscError)                                   {}
func (noopSink) OnPartialContentReceived(events.PartialContentReceived)         {}
func (noopSink) OnRemoteSocketChanged(events.RemoteSocketChanged)               {}
func (noopSink) OnLazyObservationTermination(events.LazyObservationTermination) {}

func TestConfigAssembliesWireComponents(t *testing.T) {
	cfg, err := FromMap(map[string]interface{}{
		"ack_timeout_ms":  5000,
		"max_retransmit":  2,
		"max_token_length": 4,
	})
	require.NoError(t, err)

	ids := idalloc.New(cfg.IDAllocOptions()...)
	assert.NotNil(t, ids)

	pool := tokenpool.New(cfg.TokenPoolOptions()...)
	tok, ok := pool.Acquire()
	require.True(t, ok)
	assert.LessOrEqual(t, len(tok), 4)

	sched := cfg.NewScheduler()
	defer sched.Close()

	e := reliability.New(noopWriter{}, ids, sched, noopSink{}, cfg.ReliabilityOptions()...)
	assert.Equal(t, int64(0), e.Metrics().Sent)
}
