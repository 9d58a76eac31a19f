package progress

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Status represents the current state of a run
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Snapshot is a point-in-time copy of a tracker's counters
type Snapshot struct {
	Op          string
	Name        string
	Status      Status
	Blocks      int
	TotalBlocks int
	Bytes       int64
	TotalBytes  int64
	Speed       float64 // bytes per second
	ETA         time.Duration
	Elapsed     time.Duration
}

// Percent returns block completion in the range 0-100
func (s Snapshot) Percent() float64 {
	if s.TotalBlocks == 0 {
		return 0
	}
	return float64(s.Blocks) / float64(s.TotalBlocks) * 100.0
}

// Tracker tracks blocks moved by one encode or decode run and logs a line
// per completed block. Safe for concurrent use by pipeline workers.
type Tracker struct {
	mu          sync.Mutex
	op          string
	name        string
	status      Status
	blocks      int
	totalBlocks int
	bytes       int64
	totalBytes  int64
	start       time.Time
	logger      logrus.FieldLogger
	now         func() time.Time
}

// NewTracker starts tracking a run over totalBlocks blocks carrying
// totalBytes source bytes.
func NewTracker(op, name string, totalBlocks int, totalBytes int64, logger logrus.FieldLogger) *Tracker {
	t := &Tracker{
		op:          op,
		name:        name,
		status:      StatusPending,
		totalBlocks: totalBlocks,
		totalBytes:  totalBytes,
		logger:      logger,
		now:         time.Now,
	}
	t.start = t.now()
	return t
}

// Advance records one finished block carrying n source bytes
func (t *Tracker) Advance(n int64) {
	t.mu.Lock()
	t.status = StatusInProgress
	t.blocks++
	t.bytes += n
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if t.logger == nil {
		return
	}
	fields := logrus.Fields{
		"op":     snap.Op,
		"file":   snap.Name,
		"blocks": snap.Blocks,
		"of":     snap.TotalBlocks,
		"bytes":  humanize.Bytes(uint64(snap.Bytes)),
	}
	if snap.Speed > 0 {
		fields["speed"] = humanize.Bytes(uint64(snap.Speed)) + "/s"
	}
	if snap.ETA > 0 {
		fields["eta"] = snap.ETA.Round(time.Second).String()
	}
	t.logger.WithFields(fields).Debugf("📦 %.1f%%", snap.Percent())
}

// Finish marks the run completed, or failed when err is non-nil
func (t *Tracker) Finish(err error) Snapshot {
	t.mu.Lock()
	if err != nil {
		t.status = StatusFailed
	} else {
		t.status = StatusCompleted
	}
	snap := t.snapshotLocked()
	t.mu.Unlock()

	if t.logger != nil {
		entry := t.logger.WithFields(logrus.Fields{
			"op":      snap.Op,
			"file":    snap.Name,
			"blocks":  snap.Blocks,
			"bytes":   humanize.Bytes(uint64(snap.Bytes)),
			"elapsed": snap.Elapsed.Round(time.Millisecond).String(),
		})
		if err != nil {
			entry.WithError(err).Error("❌ run failed")
		} else {
			entry.Info("✅ run completed")
		}
	}
	return snap
}

// Snapshot returns the current counters
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() Snapshot {
	elapsed := t.now().Sub(t.start)
	snap := Snapshot{
		Op:          t.op,
		Name:        t.name,
		Status:      t.status,
		Blocks:      t.blocks,
		TotalBlocks: t.totalBlocks,
		Bytes:       t.bytes,
		TotalBytes:  t.totalBytes,
		Elapsed:     elapsed,
	}

	// Calculate speed and estimated time remaining
	if secs := elapsed.Seconds(); secs > 0 {
		snap.Speed = float64(t.bytes) / secs
	}
	if snap.Speed > 0 && t.totalBytes > t.bytes {
		remaining := float64(t.totalBytes - t.bytes)
		snap.ETA = time.Duration(remaining / snap.Speed * float64(time.Second))
	}
	return snap
}
