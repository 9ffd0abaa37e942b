package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestQuantizeHalfEven(t *testing.T) {
	tests := []struct {
		value  string
		places int32
		want   string
	}{
		{"100.125", 2, "100.12"}, // halfway, rounds to even
		{"100.135", 2, "100.14"}, // halfway, rounds to even
		{"100.121", 2, "100.12"},
		{"100.129", 2, "100.13"},
		{"1", 3, "1.000"},
	}
	for _, tt := range tests {
		got := Quantize(dec(tt.value), tt.places)
		if !got.Equal(dec(tt.want)) {
			t.Errorf("Quantize(%s, %d) = %s, want %s", tt.value, tt.places, got, tt.want)
		}
	}
}

func TestRelativeChange(t *testing.T) {
	got := RelativeChange(dec("107"), dec("100"))
	if !got.Equal(dec("0.07")) {
		t.Errorf("RelativeChange(107,100) = %s, want 0.07", got)
	}

	if got := RelativeChange(dec("5"), decimal.Zero); !got.IsZero() {
		t.Errorf("RelativeChange with zero previous = %s, want 0", got)
	}
}

func TestRandomMarginJitterZero(t *testing.T) {
	if got := RandomMarginJitter(decimal.Zero); !got.IsZero() {
		t.Errorf("RandomMarginJitter(0) = %s, want 0", got)
	}
}

func TestRandomMarginJitterBounded(t *testing.T) {
	max := dec("0.01")
	for i := 0; i < 200; i++ {
		j := RandomMarginJitter(max)
		if j.LessThan(max.Neg()) || j.GreaterThan(max) {
			t.Fatalf("jitter %s out of bounds [-%s,%s]", j, max, max)
		}
		// quantized to JitterPlaces
		if !j.Equal(Quantize(j, JitterPlaces)) {
			t.Fatalf("jitter %s not quantized to %d places", j, JitterPlaces)
		}
	}
}
