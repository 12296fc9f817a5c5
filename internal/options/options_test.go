package options

import (
	"reflect"
	"testing"
	"time"

	"github.com/kjstillabower/weather-widget/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		WeatherKey:      "K",
		WeatherInterval: time.Minute,
		WeatherLocation: "New York",
		WeatherUnit:     "imperial",
	}
}

// TestNew_SeedsFromConfig verifies every option starts at its configured value.
func TestNew_SeedsFromConfig(t *testing.T) {
	o := New(testConfig())
	want := Snapshot{Key: "K", Interval: time.Minute, Location: "New York", Unit: "imperial"}
	if got := o.Snapshot(); got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
}

// TestApply_ReportsChangedOptions verifies Apply writes only differing values
// and reports them in a stable order.
func TestApply_ReportsChangedOptions(t *testing.T) {
	o := New(testConfig())

	cfg := testConfig()
	cfg.WeatherLocation = "Boston"
	cfg.WeatherKey = "K2"
	if got, want := o.Apply(cfg), []string{"key", "location"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Apply() = %v, want %v", got, want)
	}
	if got := o.Apply(cfg); len(got) != 0 {
		t.Errorf("Apply() with unchanged config = %v, want none", got)
	}
}

// TestApply_EqualValuesDoNotNotify verifies subscribers only fire on real changes.
func TestApply_EqualValuesDoNotNotify(t *testing.T) {
	o := New(testConfig())

	var notified int
	for _, cancel := range []func(){
		o.Key.Watch(func() { notified++ }),
		o.Interval.Watch(func() { notified++ }),
		o.Location.Watch(func() { notified++ }),
		o.Unit.Watch(func() { notified++ }),
	} {
		defer cancel()
	}

	o.Apply(testConfig())
	if notified != 0 {
		t.Fatalf("notified = %d after applying identical config, want 0", notified)
	}

	cfg := testConfig()
	cfg.WeatherInterval = 30 * time.Second
	cfg.WeatherUnit = "metric"
	o.Apply(cfg)
	if notified != 2 {
		t.Errorf("notified = %d, want 2", notified)
	}
}

// TestSet_SourceNotifiesOncePerUpdate verifies a Set changing key, interval and
// location publishes the combination once, already holding every new value.
func TestSet_SourceNotifiesOncePerUpdate(t *testing.T) {
	o := New(testConfig())

	var seen []Source
	cancel := o.Source().Subscribe(func(s Source) { seen = append(seen, s) })
	defer cancel()

	o.Set(Snapshot{Key: "K2", Interval: 30 * time.Second, Location: "Paris", Unit: "metric"})
	want := []Source{{Key: "K2", Interval: 30 * time.Second, Location: "Paris"}}
	if !reflect.DeepEqual(seen, want) {
		t.Fatalf("source notifications = %+v, want %+v", seen, want)
	}

	o.Set(Snapshot{Key: "K2", Interval: 30 * time.Second, Location: "Paris", Unit: "imperial"})
	if len(seen) != 1 {
		t.Errorf("unit-only change notified source: %+v", seen)
	}
}

// TestSource_FollowsDirectWrites verifies writes to a single option variable
// still reach the combination.
func TestSource_FollowsDirectWrites(t *testing.T) {
	o := New(testConfig())

	o.Location.Set("Boston")
	if got := o.Source().Get().Location; got != "Boston" {
		t.Errorf("Source().Location = %q, want Boston", got)
	}
	o.Key.Set("K")
	if got := o.Source().Get(); got.Key != "K" || got.Interval != time.Minute {
		t.Errorf("Source() = %+v", got)
	}
}
