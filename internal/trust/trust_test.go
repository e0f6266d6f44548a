package trust

import "testing"

func TestUpdate(t *testing.T) {
	tests := []struct {
		name      string
		old, risk float64
		want      float64
	}{
		{"no risk keeps score", 73.5, 0, 73.5},
		{"max risk costs ten", 100, 100, 90},
		{"partial risk", 80, 45, 75.5},
		{"floors at zero", 3, 100, 0},
		{"huge risk floors at zero", 100, 1000, 0},
		{"negative risk caps at hundred", 99, -50, 100},
		{"out of range old score is clamped", 150, 0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Update(tt.old, tt.risk); got != tt.want {
				t.Errorf("Update(%v, %v) = %v, want %v", tt.old, tt.risk, got, tt.want)
			}
		})
	}
}

func TestUpdateIdentityOnZeroRisk(t *testing.T) {
	for x := 0.0; x <= 100; x += 0.5 {
		if got := Update(x, 0); got != x {
			t.Fatalf("Update(%v, 0) = %v", x, got)
		}
	}
}

func TestUpdateAlwaysInRange(t *testing.T) {
	for _, old := range []float64{-100, 0, 50, 100, 1e6} {
		for _, risk := range []float64{-1e6, 0, 50, 100, 1e6} {
			got := Update(old, risk)
			if got < MinScore || got > MaxScore {
				t.Errorf("Update(%v, %v) = %v out of range", old, risk, got)
			}
		}
	}
}

func TestChange(t *testing.T) {
	tests := []struct {
		old, new  float64
		wantDelta float64
		wantTrend Trend
	}{
		{100, 90, -10, TrendDecreased},
		{90, 95.555, 5.56, TrendIncreased},
		{42, 42, 0, TrendUnchanged},
		{42, 42.001, 0, TrendUnchanged},
	}

	for _, tt := range tests {
		delta, trend := Change(tt.old, tt.new)
		if delta != tt.wantDelta || trend != tt.wantTrend {
			t.Errorf("Change(%v, %v) = (%v, %s), want (%v, %s)", tt.old, tt.new, delta, trend, tt.wantDelta, tt.wantTrend)
		}
	}
}
