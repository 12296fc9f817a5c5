package options

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kjstillabower/weather-widget/internal/config"
	"github.com/kjstillabower/weather-widget/internal/observable"
)

// Options is the live menus.clock.weather option set. Each value is observable;
// writing an equal value does not notify.
type Options struct {
	Key      *observable.Variable[string]
	Interval *observable.Variable[time.Duration]
	Location *observable.Variable[string]
	Unit     *observable.Variable[string]

	// source follows key, interval and location together. It is recomputed
	// after a whole Set, not after each field.
	source   *observable.Variable[Source]
	setMu    sync.Mutex
	batching atomic.Bool
}

// Snapshot is a point-in-time copy of Options.
type Snapshot struct {
	Key      string
	Interval time.Duration
	Location string
	Unit     string
}

// Source is the combination a refresh schedule is armed from.
type Source struct {
	Key      string
	Interval time.Duration
	Location string
}

// New seeds the option set from cfg.
func New(cfg *config.Config) *Options {
	o := &Options{
		Key:      observable.NewVariable(cfg.WeatherKey),
		Interval: observable.NewVariable(cfg.WeatherInterval),
		Location: observable.NewVariable(cfg.WeatherLocation),
		Unit:     observable.NewVariable(cfg.WeatherUnit),
	}
	o.source = observable.NewVariable(o.currentSource())

	follow := func() {
		if !o.batching.Load() {
			o.syncSource()
		}
	}
	o.Key.Watch(follow)
	o.Interval.Watch(follow)
	o.Location.Watch(follow)
	return o
}

// Source returns the variable holding the current key, interval and location.
// It notifies once per change of the combination, so a Set that changes several
// of them notifies once.
func (o *Options) Source() *observable.Variable[Source] {
	return o.source
}

// Apply pushes reloaded configuration into the option set and returns the names
// of the options that changed, in key, interval, location, unit order.
func (o *Options) Apply(cfg *config.Config) []string {
	return o.Set(Snapshot{
		Key:      cfg.WeatherKey,
		Interval: cfg.WeatherInterval,
		Location: cfg.WeatherLocation,
		Unit:     cfg.WeatherUnit,
	})
}

// Set writes every field of s and returns the names of the options that changed.
func (o *Options) Set(s Snapshot) []string {
	o.setMu.Lock()
	defer o.setMu.Unlock()

	var changed []string
	o.batching.Store(true)
	if observable.Update(o.Key, s.Key) {
		changed = append(changed, "key")
	}
	if observable.Update(o.Interval, s.Interval) {
		changed = append(changed, "interval")
	}
	if observable.Update(o.Location, s.Location) {
		changed = append(changed, "location")
	}
	o.batching.Store(false)
	o.syncSource()

	if observable.Update(o.Unit, s.Unit) {
		changed = append(changed, "unit")
	}
	return changed
}

// Snapshot returns the current values.
func (o *Options) Snapshot() Snapshot {
	return Snapshot{
		Key:      o.Key.Get(),
		Interval: o.Interval.Get(),
		Location: o.Location.Get(),
		Unit:     o.Unit.Get(),
	}
}

func (o *Options) currentSource() Source {
	return Source{
		Key:      o.Key.Get(),
		Interval: o.Interval.Get(),
		Location: o.Location.Get(),
	}
}

func (o *Options) syncSource() {
	observable.Update(o.source, o.currentSource())
}
