package client

import (
	"os"
	"testing"
)

// BenchmarkForecastURL benchmarks request URL construction.
func BenchmarkForecastURL(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = ForecastURL("https://api.weatherapi.com/v1/forecast.json", "test-api-key", "New York City")
	}
}

// BenchmarkDecode benchmarks classification and decoding of a full one-day forecast.
func BenchmarkDecode(b *testing.B) {
	body, err := os.ReadFile("testdata/forecast.json")
	if err != nil {
		b.Fatalf("ReadFile: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(body); err != nil {
			b.Fatal(err)
		}
	}
}
