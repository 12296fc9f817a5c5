package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-widget/internal/client"
	"github.com/kjstillabower/weather-widget/internal/models"
	"github.com/kjstillabower/weather-widget/internal/observability"
	"github.com/kjstillabower/weather-widget/internal/observable"
	"github.com/kjstillabower/weather-widget/internal/options"
	"github.com/kjstillabower/weather-widget/internal/traffic"
)

// Settings is the tuple a schedule is armed with.
type Settings struct {
	Key      string
	Interval time.Duration
	Location string
}

// Config holds scheduling behaviour that does not change at runtime.
type Config struct {
	// SkipOverlapping skips a tick while the previous tick of the same schedule
	// is still fetching. Off by default: ticks may overlap and the last write wins.
	SkipOverlapping bool
	// Immediate fires the first tick as soon as a schedule is armed.
	Immediate bool
}

// Refresher owns the shared weather cell and at most one live refresh schedule.
type Refresher struct {
	client client.ForecastClient
	logger *zap.Logger
	cfg    Config
	cell   *observable.Variable[models.Weather]

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	watches []func()
	stopped bool

	// writeMu orders cell writes against schedule cancellation: once a schedule
	// is cancelled under writeMu none of its ticks can write.
	writeMu sync.Mutex
	ticks   sync.WaitGroup
	active  atomic.Int32
}

// New returns a Refresher whose cell holds the placeholder weather. Nothing is
// fetched until Arm or Watch is called.
func New(c client.ForecastClient, logger *zap.Logger, cfg Config) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		client: c,
		logger: logger,
		cfg:    cfg,
		cell:   observable.NewVariable(models.DefaultWeather()),
	}
}

// Cell returns the shared weather cell. Views read it; only the Refresher writes it.
// Subscribers of the cell must not call Arm, Watch or Stop.
func (r *Refresher) Cell() *observable.Variable[models.Weather] {
	return r.cell
}

// Watch arms a schedule from the current key, interval and location and re-arms
// whenever their combination changes. An options update touching several of them
// re-arms once. The returned func stops watching; Stop does too.
func (r *Refresher) Watch(o *options.Options) (cancel func()) {
	source := o.Source()
	cancel = observable.Merge(func() {
		s := source.Get()
		r.Arm(Settings{Key: s.Key, Interval: s.Interval, Location: s.Location})
	}, source)

	r.mu.Lock()
	r.watches = append(r.watches, cancel)
	r.mu.Unlock()
	return cancel
}

// Arm cancels the current schedule, waits for its timer loop to exit and starts a
// new one for s. In-flight ticks of the old schedule are cancelled and their
// results dropped. A non-positive interval leaves nothing armed.
func (r *Refresher) Arm(s Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}

	r.disarmLocked()
	if s.Interval <= 0 {
		r.logger.Warn("weather refresh not armed: interval must be positive",
			zap.Duration("interval", s.Interval),
			zap.String("location", s.Location),
		)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	r.cancel, r.done = cancel, done

	r.active.Add(1)
	observability.RefreshSchedulesArmedTotal.Inc()
	observability.RefreshSchedulesActive.Inc()
	r.logger.Info("weather refresh armed",
		zap.String("location", s.Location),
		zap.Duration("interval", s.Interval),
	)

	go r.run(ctx, s, done)
}

// Stop cancels the live schedule and all watches, then waits for in-flight ticks.
// The Refresher cannot be re-armed afterwards.
func (r *Refresher) Stop() {
	r.mu.Lock()
	r.stopped = true
	watches := r.watches
	r.watches = nil
	r.disarmLocked()
	r.mu.Unlock()

	for _, cancel := range watches {
		cancel()
	}
	r.ticks.Wait()
}

// ActiveSchedules returns the number of live timer loops (0 or 1).
func (r *Refresher) ActiveSchedules() int {
	return int(r.active.Load())
}

// disarmLocked must be called with mu held.
func (r *Refresher) disarmLocked() {
	if r.cancel == nil {
		return
	}
	r.writeMu.Lock()
	r.cancel()
	r.writeMu.Unlock()
	<-r.done
	r.cancel, r.done = nil, nil
}

func (r *Refresher) run(ctx context.Context, s Settings, done chan struct{}) {
	defer func() {
		r.active.Add(-1)
		observability.RefreshSchedulesActive.Dec()
		close(done)
	}()

	var inFlight atomic.Bool
	fire := func() {
		if r.cfg.SkipOverlapping && !inFlight.CompareAndSwap(false, true) {
			observability.RefreshTicksTotal.WithLabelValues("skipped").Inc()
			r.logger.Debug("weather tick skipped: previous tick still in flight")
			return
		}
		r.ticks.Add(1)
		go func() {
			defer r.ticks.Done()
			if r.cfg.SkipOverlapping {
				defer inFlight.Store(false)
			}
			r.tick(ctx, s)
		}()
	}

	if r.cfg.Immediate {
		fire()
	}

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fire()
		}
	}
}

// tick performs one fetch and writes the result, or the placeholder on any
// failure, into the cell.
func (r *Refresher) tick(ctx context.Context, s Settings) {
	tickID := uuid.NewString()
	start := time.Now()
	w, err := r.client.Forecast(client.WithCorrelationID(ctx, tickID), s.Key, s.Location)

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	if ctx.Err() != nil {
		observability.RefreshTicksTotal.WithLabelValues("dropped").Inc()
		r.logger.Debug("weather tick dropped: schedule re-armed",
			zap.String("tick_id", tickID),
			zap.String("location", s.Location),
		)
		return
	}

	outcome := "success"
	if err != nil {
		category := client.CategorizeError(err)
		outcome = string(category)
		if category.ShouldLog() {
			msg := "failed to fetch weather"
			if category == client.ErrorCategoryDecode {
				msg = "failed to parse weather data"
			}
			r.logger.Error(msg,
				zap.String("tick_id", tickID),
				zap.String("location", s.Location),
				zap.String("category", outcome),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		}
		w = models.DefaultWeather()
		traffic.RecordError()
	} else {
		traffic.RecordSuccess()
	}

	r.cell.Set(w)
	observability.RecordCellWrite(err != nil)
	observability.RefreshTicksTotal.WithLabelValues(outcome).Inc()
}
