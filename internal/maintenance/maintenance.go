// Package maintenance implements spec §4.6: a periodically re-armed
// pass over loaded columns that saves dirty ones to the backing store
// and evicts columns with no subscribers, no interest, and no dirty
// data. It is scheduled with go-co-op/gocron/v2, grounded on
// cc-backend's taskManager.Start (one package-level gocron.Scheduler,
// one NewJob per periodic task).
package maintenance

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/RobertLeahy/MCPP-sub000/internal/logging"
	"github.com/RobertLeahy/MCPP-sub000/internal/store"
	"github.com/RobertLeahy/MCPP-sub000/internal/world"
)

// Pass is the world.Store surface maintenance needs.
type Pass interface {
	Dirty() []*world.Column
	Evictable() []*world.Column
	MarkSaved(col *world.Column)
	Evict(id world.ColumnID)
}

// Maintenance owns the gocron scheduler driving the periodic save+evict
// sweep.
type Maintenance struct {
	sched   gocron.Scheduler
	world   Pass
	backing store.ColumnStore
	log     *logging.Broker
}

// New builds a Maintenance bound to w, persisting through backing. log
// may be nil.
func New(w Pass, backing store.ColumnStore, log *logging.Broker) (*Maintenance, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("maintenance: new scheduler: %w", err)
	}
	return &Maintenance{sched: sched, world: w, backing: backing, log: log}, nil
}

// Start registers the save+evict job at interval and starts the
// scheduler.
func (m *Maintenance) Start(interval time.Duration) error {
	_, err := m.sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(m.runOnce),
	)
	if err != nil {
		return fmt.Errorf("maintenance: register job: %w", err)
	}
	m.sched.Start()
	return nil
}

// Stop halts the scheduler, waiting for any in-flight run to finish.
func (m *Maintenance) Stop() error {
	if err := m.sched.Shutdown(); err != nil {
		return fmt.Errorf("maintenance: shutdown: %w", err)
	}
	return nil
}

// runOnce performs one save-then-evict sweep. A panic here is not
// retried silently: it escalates through the installed logging panic
// hook (spec §4.6), which re-panics the process if none is installed.
func (m *Maintenance) runOnce() {
	if m.log != nil {
		defer m.log.Recover()
	}

	for _, col := range m.world.Dirty() {
		mask, raw := world.SerializeColumn(col)
		key := store.ColumnKey{Dimension: col.ID.Dimension, X: col.ID.X, Z: col.ID.Z}
		payload := world.EncodeColumnPayload(mask, raw)
		if err := m.backing.SaveColumn(key, payload); err != nil {
			if m.log != nil {
				m.log.WriteLog(fmt.Sprintf("maintenance: save %s: %v", col.ID, err), logging.Error)
			}
			continue
		}
		m.world.MarkSaved(col)
	}

	for _, col := range m.world.Evictable() {
		m.world.Evict(col.ID)
	}
}
