package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

var (
	pipelineTransitionsTotal atomic.Uint64
	messagesSentTotal        atomic.Uint64
	messagesRateLimitedTotal atomic.Uint64
	sharesGrantedTotal       atomic.Uint64
	sharesRevokedTotal       atomic.Uint64

	notificationsDeliveredTotal atomic.Uint64
	notificationsFailedTotal    atomic.Uint64
	notificationsDroppedTotal   atomic.Uint64

	panicsRecoveredTotal atomic.Uint64

	sendDuration = newHistogram([]float64{5, 10, 25, 50, 100, 250, 500, 1000, 5000})
)

// IncPipelineTransition increments the pipeline transition counter.
func IncPipelineTransition() {
	pipelineTransitionsTotal.Add(1)
}

// IncMessageSent increments the sent-message counter.
func IncMessageSent() {
	messagesSentTotal.Add(1)
}

// IncMessageRateLimited increments the rate-limited counter.
func IncMessageRateLimited() {
	messagesRateLimitedTotal.Add(1)
}

// IncShareGranted increments the granted-share counter.
func IncShareGranted() {
	sharesGrantedTotal.Add(1)
}

// IncShareRevoked increments the revoked-share counter.
func IncShareRevoked() {
	sharesRevokedTotal.Add(1)
}

// IncNotificationDelivered increments the delivered-notification counter.
func IncNotificationDelivered() {
	notificationsDeliveredTotal.Add(1)
}

// IncNotificationFailed increments the failed-delivery counter.
func IncNotificationFailed() {
	notificationsFailedTotal.Add(1)
}

// IncNotificationDropped counts payloads discarded as unrecoverable.
func IncNotificationDropped() {
	notificationsDroppedTotal.Add(1)
}

// IncPanicRecovered counts handler panics caught by the recovery middleware.
func IncPanicRecovered() {
	panicsRecoveredTotal.Add(1)
}

// ObserveSendDurationMs records a message-send duration in milliseconds.
func ObserveSendDurationMs(value float64) {
	if value < 0 {
		value = 0
	}
	sendDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "pipeline_transitions_total", "Total application status transitions", pipelineTransitionsTotal.Load())
	writeCounter(&buf, "messages_sent_total", "Total conversation messages sent", messagesSentTotal.Load())
	writeCounter(&buf, "messages_rate_limited_total", "Total message sends rejected by the sliding window", messagesRateLimitedTotal.Load())
	writeCounter(&buf, "shares_granted_total", "Total document share grants created", sharesGrantedTotal.Load())
	writeCounter(&buf, "shares_revoked_total", "Total document share grants revoked", sharesRevokedTotal.Load())
	writeCounter(&buf, "notifications_delivered_total", "Total notifications delivered", notificationsDeliveredTotal.Load())
	writeCounter(&buf, "notifications_failed_total", "Total notification deliveries that failed", notificationsFailedTotal.Load())
	writeCounter(&buf, "notifications_dropped_total", "Total notification payloads dropped as unrecoverable", notificationsDroppedTotal.Load())
	writeCounter(&buf, "panics_recovered_total", "Total handler panics recovered", panicsRecoveredTotal.Load())
	writeHistogram(&buf, "message_send_duration_ms", "Message send duration in milliseconds", sendDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
	return out
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// NowMillis returns current time in milliseconds, useful for callers without time utilities.
func NowMillis() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Millisecond)
}
