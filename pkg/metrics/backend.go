package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/driftfs/driftfs/pkg/fs"
)

// instrumentedBackend wraps a Backend and records per-operation counts and
// latencies. It forwards the optional capabilities: when the inner backend
// lacks lock timeouts, timeout claims degrade to plain TryLock and bumps
// are no-ops, matching the orchestration layer's own fallback; health
// checks and path limits likewise delegate to the inner backend when it
// has them and fall back to "healthy" and the default limit when not.
type instrumentedBackend struct {
	inner fs.Backend
	kind  string

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// Collectors are shared across all instrumented backends; the backend kind
// is a label, so Instrument may be called any number of times against one
// registry without duplicate registration.
var (
	collectorsOnce    sync.Once
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
)

func collectors() (*prometheus.CounterVec, *prometheus.HistogramVec) {
	collectorsOnce.Do(func() {
		reg := GetRegistry()
		operationsTotal = promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "driftfs_backend_operations_total",
				Help: "Total backend operations by backend kind, operation and status",
			},
			[]string{"backend", "operation", "status"},
		)
		operationDuration = promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "driftfs_backend_operation_duration_seconds",
				Help: "Duration of backend operations in seconds",
				Buckets: []float64{
					0.001, // 1ms
					0.005, // 5ms
					0.01,  // 10ms
					0.05,  // 50ms
					0.1,   // 100ms
					0.5,   // 500ms
					1.0,   // 1s
					5.0,   // 5s
				},
			},
			[]string{"backend", "operation"},
		)
	})
	return operationsTotal, operationDuration
}

// Instrument wraps backend so every operation is counted and timed under
// the given backend kind label. When metrics are disabled the backend is
// returned unchanged.
func Instrument(kind string, backend fs.Backend) fs.Backend {
	if !IsEnabled() {
		return backend
	}

	ops, durations := collectors()
	return &instrumentedBackend{
		inner:             backend,
		kind:              kind,
		operationsTotal:   ops,
		operationDuration: durations,
	}
}

// observe records one operation outcome.
func (b *instrumentedBackend) observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	b.operationsTotal.WithLabelValues(b.kind, op, status).Inc()
	b.operationDuration.WithLabelValues(b.kind, op).Observe(time.Since(start).Seconds())
}

// observeResult records one tri-state operation outcome.
func (b *instrumentedBackend) observeResult(op string, start time.Time, res fs.BoolOrError) {
	status := "ok"
	if res.IsError() {
		status = "error"
	}
	b.operationsTotal.WithLabelValues(b.kind, op, status).Inc()
	b.operationDuration.WithLabelValues(b.kind, op).Observe(time.Since(start).Seconds())
}

func (b *instrumentedBackend) OpenInput(filename string) (fs.InputFile, error) {
	start := time.Now()
	in, err := b.inner.OpenInput(filename)
	b.observe("OpenInput", start, err)
	return in, err
}

func (b *instrumentedBackend) OpenOutput(filename string, append bool) (fs.OutputFile, error) {
	start := time.Now()
	out, err := b.inner.OpenOutput(filename, append)
	b.observe("OpenOutput", start, err)
	return out, err
}

func (b *instrumentedBackend) OpenTemp(prefix string) (fs.OutputFile, error) {
	start := time.Now()
	out, err := b.inner.OpenTemp(prefix)
	b.observe("OpenTemp", start, err)
	return out, err
}

func (b *instrumentedBackend) Remove(filename string) error {
	start := time.Now()
	err := b.inner.Remove(filename)
	b.observe("Remove", start, err)
	return err
}

func (b *instrumentedBackend) Rename(oldName, newName string) error {
	start := time.Now()
	err := b.inner.Rename(oldName, newName)
	b.observe("Rename", start, err)
	return err
}

func (b *instrumentedBackend) MakeDir(dir string) error {
	start := time.Now()
	err := b.inner.MakeDir(dir)
	b.observe("MakeDir", start, err)
	return err
}

func (b *instrumentedBackend) RemoveDir(dir string) error {
	start := time.Now()
	err := b.inner.RemoveDir(dir)
	b.observe("RemoveDir", start, err)
	return err
}

func (b *instrumentedBackend) Exists(p string) fs.BoolOrError {
	start := time.Now()
	res := b.inner.Exists(p)
	b.observeResult("Exists", start, res)
	return res
}

func (b *instrumentedBackend) IsDir(p string) fs.BoolOrError {
	start := time.Now()
	res := b.inner.IsDir(p)
	b.observeResult("IsDir", start, res)
	return res
}

func (b *instrumentedBackend) ListContents(dir string) ([]string, error) {
	start := time.Now()
	entries, err := b.inner.ListContents(dir)
	b.observe("ListContents", start, err)
	return entries, err
}

func (b *instrumentedBackend) Atime(p string) (int64, error) {
	start := time.Now()
	sec, err := b.inner.Atime(p)
	b.observe("Atime", start, err)
	return sec, err
}

func (b *instrumentedBackend) Mtime(p string) (int64, error) {
	start := time.Now()
	sec, err := b.inner.Mtime(p)
	b.observe("Mtime", start, err)
	return sec, err
}

func (b *instrumentedBackend) Size(p string) (int64, error) {
	start := time.Now()
	size, err := b.inner.Size(p)
	b.observe("Size", start, err)
	return size, err
}

func (b *instrumentedBackend) TryLock(name string) fs.BoolOrError {
	start := time.Now()
	res := b.inner.TryLock(name)
	b.observeResult("TryLock", start, res)
	return res
}

func (b *instrumentedBackend) TryLockWithTimeout(name string, timeoutMillis int64, clock fs.Clock) fs.BoolOrError {
	start := time.Now()
	var res fs.BoolOrError
	if lb, ok := b.inner.(fs.LockBreaker); ok {
		res = lb.TryLockWithTimeout(name, timeoutMillis, clock)
	} else {
		res = b.inner.TryLock(name)
	}
	b.observeResult("TryLockWithTimeout", start, res)
	return res
}

func (b *instrumentedBackend) BumpLockTimeout(name string) error {
	start := time.Now()
	var err error
	if lb, ok := b.inner.(fs.LockBreaker); ok {
		err = lb.BumpLockTimeout(name)
	}
	b.observe("BumpLockTimeout", start, err)
	return err
}

func (b *instrumentedBackend) Unlock(name string) error {
	start := time.Now()
	err := b.inner.Unlock(name)
	b.observe("Unlock", start, err)
	return err
}

func (b *instrumentedBackend) Healthcheck() error {
	start := time.Now()
	var err error
	if hc, ok := b.inner.(fs.HealthChecker); ok {
		err = hc.Healthcheck()
	}
	b.observe("Healthcheck", start, err)
	return err
}

func (b *instrumentedBackend) MaxPathLength(base string) int {
	if pl, ok := b.inner.(fs.PathLimiter); ok {
		return pl.MaxPathLength(base)
	}
	return fs.DefaultMaxPathLength
}
