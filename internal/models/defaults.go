package models

import (
	"fmt"
	"reflect"
)

const placeholder = "-"

// DefaultWeather returns the placeholder value shown whenever live data is unavailable.
// Every call returns a fresh copy; copies are always deep-equal.
func DefaultWeather() Weather {
	hours := make([]Hour, 24)
	for i := range hours {
		hours[i] = Hour{
			Time:      fmt.Sprintf("2000-01-01 %02d:00", i),
			Condition: Condition{Text: placeholder},
		}
	}
	return Weather{
		Location: Location{
			Name:      placeholder,
			Region:    placeholder,
			Country:   placeholder,
			TzID:      placeholder,
			Localtime: "2000-01-01 00:00",
		},
		Current: Current{
			LastUpdated: "2000-01-01 00:00",
			Condition:   Condition{Text: placeholder},
			WindDir:     placeholder,
		},
		Forecast: Forecast{
			ForecastDay: []ForecastDay{{
				Date: "2000-01-01",
				Day:  Day{Condition: Condition{Text: placeholder}},
				Astro: Astro{
					Sunrise:  placeholder,
					Sunset:   placeholder,
					Moonrise: placeholder,
					Moonset:  placeholder,
				},
				Hour: hours,
			}},
		},
	}
}

// IsDefault reports whether w is the placeholder value.
func IsDefault(w Weather) bool {
	return reflect.DeepEqual(w, DefaultWeather())
}
