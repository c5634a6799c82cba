package handlers

import "testing"

func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{3.0, 3.0},
		{3.333333, 3.33},
		{3.666666, 3.67},
		{2.5, 2.5},
	}
	for _, tt := range tests {
		if got := round2(tt.in); got != tt.want {
			t.Fatalf("round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRatingUpdateRoundsAverage(t *testing.T) {
	update := ratingUpdate(true, 3, 3.6666666)

	if update["ratingsQuantity"] != 3 {
		t.Fatalf("expected quantity 3, got %v", update["ratingsQuantity"])
	}
	if update["ratingsAverage"] != 3.67 {
		t.Fatalf("expected average 3.67, got %v", update["ratingsAverage"])
	}
}

func TestRatingUpdateResetsWhenNoReviewsRemain(t *testing.T) {
	update := ratingUpdate(false, 0, 0)

	if update["ratingsQuantity"] != 0 {
		t.Fatalf("expected quantity reset to 0, got %v", update["ratingsQuantity"])
	}
	if update["ratingsAverage"] != 0.0 {
		t.Fatalf("expected average reset to 0, got %v", update["ratingsAverage"])
	}
}
