package metrics

import (
	"time"

	metrics "github.com/retailcrm/zabbix-metrics-collector"
	"go.uber.org/atomic"
)

// DefaultResetPeriod is the period after which throughput counters reset.
const DefaultResetPeriod = time.Minute * 15

var _ metrics.Collector = (*WebhookCounter)(nil)

// WebhookCounter accumulates processed and failed webhook deliveries for
// one ingress path. It uses atomics under the hood and is safe for use
// from concurrent handlers.
type WebhookCounter struct {
	name        atomic.String
	timestamp   atomic.Time
	resetPeriod time.Duration
	processed   atomic.Uint32
	failed      atomic.Uint32
}

// NewWebhookCounterWithPeriod returns a WebhookCounter with the provided
// reset period.
func NewWebhookCounterWithPeriod(name string, resetPeriod time.Duration) *WebhookCounter {
	c := &WebhookCounter{resetPeriod: resetPeriod}
	c.name.Store(name)
	c.timestamp.Store(time.Now())
	return c
}

// NewWebhookCounter returns a WebhookCounter with DefaultResetPeriod.
func NewWebhookCounter(name string) *WebhookCounter {
	return NewWebhookCounterWithPeriod(name, DefaultResetPeriod)
}

// Name of the counter, used as the metric key.
func (c *WebhookCounter) Name() string {
	return c.name.Load()
}

// HitProcessed registers one successfully processed delivery.
func (c *WebhookCounter) HitProcessed() {
	c.processed.Add(1)
}

// HitFailed registers one failed delivery.
func (c *WebhookCounter) HitFailed() {
	c.failed.Add(1)
}

// TotalProcessed returns the processed count of the current period.
func (c *WebhookCounter) TotalProcessed() uint32 {
	return c.processed.Load()
}

// TotalFailed returns the failed count of the current period.
func (c *WebhookCounter) TotalFailed() uint32 {
	return c.failed.Load()
}

// Collect reports the current period's throughput under the
// "<name>_processed" and "<name>_failed" metric keys.
func (c *WebhookCounter) Collect() map[string]interface{} {
	name := c.name.Load()
	return map[string]interface{}{
		name + "_processed": c.processed.Load(),
		name + "_failed":    c.failed.Load(),
	}
}

// Flush is called by the transport after each push.
func (c *WebhookCounter) Flush() {
	c.FlushCounters()
}

// FlushCounters resets both counters once the reset period elapsed.
func (c *WebhookCounter) FlushCounters() {
	if time.Now().After(c.timestamp.Load().Add(c.resetPeriod)) {
		c.timestamp.Store(time.Now())
		c.processed.Store(0)
		c.failed.Store(0)
	}
}
