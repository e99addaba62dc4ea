package stats

import (
	"math"
	"testing"
)

func TestPercentile(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		values []float64
		p      float64
		want   float64
	}{
		{"median of odd count", []float64{3, 1, 2}, 50, 2},
		{"median of even count interpolates", []float64{1, 2, 3, 4}, 50, 2.5},
		{"p75 of four values", []float64{1, 2, 3, 4}, 75, 3.25},
		{"p99 near max", []float64{1.0, 1.2, 5.0}, 99, 4.924},
		{"p0 is min", []float64{5, 1, 3}, 0, 1},
		{"p100 is max", []float64{5, 1, 3}, 100, 5},
		{"single value", []float64{2.5}, 99, 2.5},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Percentile(tc.values, tc.p)
			if math.Abs(got-tc.want) > 1e-9 {
				t.Fatalf("Percentile(%v, %v) = %v, want %v", tc.values, tc.p, got, tc.want)
			}
		})
	}

	t.Run("empty input returns NaN", func(t *testing.T) {
		t.Parallel()
		if got := Percentile(nil, 50); !math.IsNaN(got) {
			t.Fatalf("got %v, want NaN", got)
		}
	})

	t.Run("input is not reordered", func(t *testing.T) {
		t.Parallel()
		in := []float64{3, 1, 2}
		Percentile(in, 50)
		if in[0] != 3 || in[1] != 1 || in[2] != 2 {
			t.Fatalf("input was mutated: %v", in)
		}
	})
}

func TestPopStdDev(t *testing.T) {
	t.Parallel()

	// Population std of {2, 4} is 1 (sample std would be sqrt(2)).
	if got := PopStdDev([]float64{2, 4}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("PopStdDev = %v, want 1", got)
	}
	if got := PopStdDev(nil); !math.IsNaN(got) {
		t.Fatalf("PopStdDev(nil) = %v, want NaN", got)
	}
}

func TestMinMaxMean(t *testing.T) {
	t.Parallel()

	values := []float64{1.5, -2, 7}
	if got := Min(values); got != -2 {
		t.Errorf("Min = %v, want -2", got)
	}
	if got := Max(values); got != 7 {
		t.Errorf("Max = %v, want 7", got)
	}
	if got := Mean(values); math.Abs(got-6.5/3) > 1e-9 {
		t.Errorf("Mean = %v, want %v", got, 6.5/3)
	}
	if !math.IsNaN(Mean(nil)) || !math.IsNaN(Min(nil)) || !math.IsNaN(Max(nil)) {
		t.Error("empty inputs should return NaN")
	}
}

func TestRounding(t *testing.T) {
	t.Parallel()

	if got := Round2(7.4999); got != 7.5 {
		t.Errorf("Round2 = %v, want 7.5", got)
	}
	if got := Round3(1.23456); got != 1.235 {
		t.Errorf("Round3 = %v, want 1.235", got)
	}
}
