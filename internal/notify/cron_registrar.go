package notify

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"remindcal/internal/model"
)

const deliverTimeout = 30 * time.Second

type armedTrigger struct {
	entry   cron.EntryID
	trigger Trigger
}

// CronRegistrar is an in-process Registrar. Triggers run on a cron engine
// and are mirrored into a TriggerStore so Restore can re-arm them.
type CronRegistrar struct {
	mu        sync.Mutex
	cron      *cron.Cron
	store     *TriggerStore
	deliverer Deliverer
	armed     map[string]armedTrigger
	loc       *time.Location
	now       func() time.Time
	log       *zap.Logger
}

// NewCronRegistrar builds a registrar. store may be nil, in which case
// triggers live only as long as the process.
func NewCronRegistrar(store *TriggerStore, deliverer Deliverer, loc *time.Location, log *zap.Logger) *CronRegistrar {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	cronLog := cron.PrintfLogger(zap.NewStdLog(log.Named("cron")))
	return &CronRegistrar{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
		store:     store,
		deliverer: deliverer,
		armed:     make(map[string]armedTrigger),
		loc:       loc,
		now:       time.Now,
		log:       log,
	}
}

func (r *CronRegistrar) Start() {
	r.cron.Start()
}

// Stop halts the engine and waits for running deliveries or ctx.
func (r *CronRegistrar) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *CronRegistrar) SubmitTrigger(_ context.Context, trigger Trigger) (string, error) {
	if trigger.FireAt.IsZero() {
		return "", model.Invalidf("trigger %q has no fire time", trigger.Title)
	}
	if trigger.ID == "" {
		trigger.ID = uuid.NewString()
	}
	sched, err := newTriggerSchedule(trigger.FireAt, trigger.Repeat)
	if err != nil {
		return "", err
	}
	if sched.Next(r.now()).IsZero() {
		return "", model.Invalidf("trigger %q fire time %s has already passed",
			trigger.Title, trigger.FireAt.Format(time.RFC3339))
	}
	if r.store != nil {
		if err := r.store.Put(trigger); err != nil {
			return "", model.WrapError(model.ErrCodeRegistrar, "persist trigger", err)
		}
	}
	r.arm(trigger, sched)

	r.log.Debug("trigger registered",
		zap.String("id", trigger.ID),
		zap.Time("fire_at", trigger.FireAt),
		zap.String("repeat", string(trigger.Repeat)),
	)
	return trigger.ID, nil
}

func (r *CronRegistrar) SubmitImmediate(ctx context.Context, n Notification) error {
	if err := r.deliverer.Deliver(ctx, n); err != nil {
		return model.WrapError(model.ErrCodeRegistrar, "deliver notification", err)
	}
	return nil
}

func (r *CronRegistrar) CancelTrigger(_ context.Context, id string) error {
	r.disarm(id)
	if r.store != nil {
		if err := r.store.Delete(id); err != nil {
			return model.WrapError(model.ErrCodeRegistrar, "forget trigger", err)
		}
	}
	return nil
}

func (r *CronRegistrar) CancelAllTriggers(_ context.Context) error {
	r.mu.Lock()
	for id, a := range r.armed {
		r.cron.Remove(a.entry)
		delete(r.armed, id)
	}
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.DeleteAll(); err != nil {
			return model.WrapError(model.ErrCodeRegistrar, "forget triggers", err)
		}
	}
	return nil
}

// Restore re-arms persisted triggers in the registrar's location. One-shot
// triggers whose instant passed while the process was down are dropped.
// Returns how many were armed.
func (r *CronRegistrar) Restore(_ context.Context) (int, error) {
	if r.store == nil {
		return 0, nil
	}
	triggers, err := r.store.List()
	if err != nil {
		return 0, model.WrapError(model.ErrCodeRegistrar, "load triggers", err)
	}

	now := r.now()
	restored := 0
	for _, t := range triggers {
		// stored instants come back with a fixed offset; recurrences must
		// follow the zone's wall clock across DST changes
		t.FireAt = t.FireAt.In(r.loc)
		if !t.Repeat.Repeats() && !t.FireAt.After(now) {
			r.log.Info("dropping missed trigger",
				zap.String("id", t.ID),
				zap.String("title", t.Title),
				zap.Time("fire_at", t.FireAt),
			)
			if err := r.store.Delete(t.ID); err != nil {
				r.log.Warn("failed to drop missed trigger", zap.String("id", t.ID), zap.Error(err))
			}
			continue
		}
		sched, err := newTriggerSchedule(t.FireAt, t.Repeat)
		if err != nil {
			r.log.Warn("skipping invalid trigger", zap.String("id", t.ID), zap.Error(err))
			continue
		}
		r.arm(t, sched)
		restored++
	}
	return restored, nil
}

// Pending lists armed triggers ordered by fire time.
func (r *CronRegistrar) Pending() []Trigger {
	r.mu.Lock()
	out := make([]Trigger, 0, len(r.armed))
	for _, a := range r.armed {
		out = append(out, a.trigger)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

func (r *CronRegistrar) arm(trigger Trigger, sched cron.Schedule) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.armed[trigger.ID]; ok {
		r.cron.Remove(prev.entry)
	}
	entry := r.cron.Schedule(sched, cron.FuncJob(func() { r.fire(trigger) }))
	r.armed[trigger.ID] = armedTrigger{entry: entry, trigger: trigger}
}

func (r *CronRegistrar) disarm(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.armed[id]; ok {
		r.cron.Remove(a.entry)
		delete(r.armed, id)
	}
}

func (r *CronRegistrar) fire(trigger Trigger) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	if err := r.deliverer.Deliver(ctx, trigger.Notification()); err != nil {
		r.log.Error("failed to deliver reminder", zap.String("id", trigger.ID), zap.Error(err))
	}
	if trigger.Repeat.Repeats() {
		return
	}
	r.disarm(trigger.ID)
	if r.store != nil {
		if err := r.store.Delete(trigger.ID); err != nil {
			r.log.Warn("failed to forget fired trigger", zap.String("id", trigger.ID), zap.Error(err))
		}
	}
}
