package utils

import (
	"math"
	"testing"
)

func TestRoundToLotSize(t *testing.T) {
	tests := []struct {
		value, lotSize, want float64
	}{
		{0.123456, 0.001, 0.123},
		{1.999, 0.01, 1.99},
		{100.5, 1.0, 100.0},
		{5.0, 0, 5.0},      // lotSize не задан
		{0.0005, 0.001, 0}, // меньше шага
	}

	for _, tt := range tests {
		got := RoundToLotSize(tt.value, tt.lotSize)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("RoundToLotSize(%v, %v) = %v, want %v", tt.value, tt.lotSize, got, tt.want)
		}
	}
}

func TestRoundToLotSizeUp(t *testing.T) {
	if got := RoundToLotSizeUp(0.0005, 0.001); math.Abs(got-0.001) > 1e-9 {
		t.Errorf("RoundToLotSizeUp(0.0005, 0.001) = %v, want 0.001", got)
	}
}

func TestPercentChange(t *testing.T) {
	tests := []struct {
		from, to, want float64
	}{
		{100, 105, 5.0},
		{100, 95, -5.0},
		{0, 100, 0}, // некорректная база
	}

	for _, tt := range tests {
		if got := PercentChange(tt.from, tt.to); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("PercentChange(%v, %v) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCalculatePNL(t *testing.T) {
	tests := []struct {
		name  string
		side  string
		entry float64
		cur   float64
		qty   float64
		want  float64
	}{
		{"long profit", "LONG", 100, 110, 2, 20},
		{"long loss", "LONG", 100, 95, 2, -10},
		{"short profit", "SHORT", 100, 90, 1, 10},
		{"short loss", "SHORT", 100, 105, 1, -5},
		{"zero qty", "LONG", 100, 110, 0, 0},
		{"unknown side", "FLAT", 100, 110, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculatePNL(tt.side, tt.entry, tt.cur, tt.qty)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CalculatePNL = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWinRate(t *testing.T) {
	if got := WinRate(6, 4); math.Abs(got-0.6) > 1e-9 {
		t.Errorf("WinRate(6, 4) = %v, want 0.6", got)
	}
	if got := WinRate(0, 0); got != 0 {
		t.Errorf("WinRate(0, 0) = %v, want 0", got)
	}
}

func TestProfitFactor(t *testing.T) {
	if got := ProfitFactor(300, -100); math.Abs(got-3.0) > 1e-9 {
		t.Errorf("ProfitFactor(300, -100) = %v, want 3.0", got)
	}
	if got := ProfitFactor(300, 0); got != 0 {
		t.Errorf("ProfitFactor without losses = %v, want 0", got)
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		value, min, max, want float64
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{15, 0, 10, 10},
	}
	for _, tt := range tests {
		if got := Clamp(tt.value, tt.min, tt.max); got != tt.want {
			t.Errorf("Clamp(%v, %v, %v) = %v, want %v", tt.value, tt.min, tt.max, got, tt.want)
		}
	}
}
