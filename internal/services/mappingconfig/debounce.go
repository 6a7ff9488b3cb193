package mappingconfig

import (
	"context"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/models"
	sessionpkg "github.com/Ramsey-B/fern/pkg/session"
)

// DebouncedSaver coalesces rapid mapping mutations into one save per
// surface. Each Request arms (or re-arms) a timer for that surface; the save
// fires once the surface has been quiet for the debounce window. Request only
// records the surface key and the session generation at queue time; the flush
// re-enters the session through the manager, so the snapshot is always taken
// under the session lock, and a file switch or restore that bumped the
// generation mid-window discards the stale save instead of clobbering.
type DebouncedSaver struct {
	service *Service
	delay   time.Duration
	logger  ectologger.Logger

	mu       sync.Mutex
	pending  map[string]*pendingSave
	inFlight sync.WaitGroup
	closed   bool
}

type pendingSave struct {
	timer         *time.Timer
	tenantID      string
	companyID     string
	statementType models.StatementType
	generation    uint64
}

// NewDebouncedSaver creates a new debounced saver
func NewDebouncedSaver(service *Service, delay time.Duration, logger ectologger.Logger) *DebouncedSaver {
	return &DebouncedSaver{
		service: service,
		delay:   delay,
		logger:  logger,
		pending: make(map[string]*pendingSave),
	}
}

// Request schedules a save for the session's surface, resetting the window
// if one is already scheduled. Callers must hold the session, i.e. run
// inside Manager.WithSession; the generation read relies on that.
func (d *DebouncedSaver) Request(sess *sessionpkg.Session) {
	key := saveKey(sess.TenantID, sess.CompanyID, sess.StatementType)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}

	if p, ok := d.pending[key]; ok {
		p.generation = sess.Generation()
		p.timer.Reset(d.delay)
		return
	}

	p := &pendingSave{
		tenantID:      sess.TenantID,
		companyID:     sess.CompanyID,
		statementType: sess.StatementType,
		generation:    sess.Generation(),
	}
	p.timer = time.AfterFunc(d.delay, func() { d.flush(key) })
	d.pending[key] = p
}

// Close flushes whatever is still queued and rejects new requests. Timer
// callbacks racing with Close save each surface exactly once: whoever takes
// the entry out of the pending map owns the save.
func (d *DebouncedSaver) Close() {
	d.mu.Lock()
	d.closed = true
	remaining := make([]*pendingSave, 0, len(d.pending))
	for key, p := range d.pending {
		p.timer.Stop()
		remaining = append(remaining, p)
		delete(d.pending, key)
	}
	d.mu.Unlock()

	for _, p := range remaining {
		d.save(p)
	}
	d.inFlight.Wait()
}

func (d *DebouncedSaver) flush(key string) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok {
		// Close or a competing flush already took this entry
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.inFlight.Add(1)
	d.mu.Unlock()

	defer d.inFlight.Done()
	d.save(p)
}

func (d *DebouncedSaver) save(p *pendingSave) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	saved, err := d.service.SaveIfCurrent(ctx, p.tenantID, p.companyID, p.statementType, p.generation)
	if err != nil {
		d.logger.WithError(err).WithFields(map[string]any{
			"tenant_id":      p.tenantID,
			"company_id":     p.companyID,
			"statement_type": p.statementType,
		}).Error("debounced save failed")
		return
	}
	if !saved {
		// The surface was reset (file switch, restore) after this save was
		// queued; its snapshot no longer describes anything worth persisting.
		d.logger.WithFields(map[string]any{
			"tenant_id":      p.tenantID,
			"company_id":     p.companyID,
			"statement_type": p.statementType,
		}).Info("discarding stale debounced save")
	}
}

func saveKey(tenantID, companyID string, statementType models.StatementType) string {
	return tenantID + ":" + companyID + ":" + string(statementType)
}
