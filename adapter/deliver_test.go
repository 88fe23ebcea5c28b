package adapter

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 0},
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 2 * time.Second},
	}
	for _, tt := range tests {
		if got := Backoff(tt.n); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestDeliver(t *testing.T) {
	errRefused := errors.New("refused")
	errDown := errors.New("down")

	tests := []struct {
		name      string
		retries   int
		failures  []error
		wantTries int
		wantErr   error
	}{
		{"first try succeeds", 3, nil, 1, nil},
		{"succeeds after one redelivery", 1, []error{errDown}, 2, nil},
		{"exhausts retries", 1, []error{errDown, errDown}, 2, errDown},
		{"permanent failure stops", 3, []error{errRefused}, 1, errRefused},
		{"zero retries", 0, []error{errDown}, 1, errDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tries := 0
			err := Deliver(t.Context(), tt.retries, func(context.Context) error {
				tries++
				if tries <= len(tt.failures) {
					return tt.failures[tries-1]
				}
				return nil
			}, func(err error) bool { return errors.Is(err, errRefused) })

			if tries != tt.wantTries {
				t.Errorf("tries = %d, want %d", tries, tt.wantTries)
			}
			if tt.wantErr == nil && err != nil {
				t.Errorf("Deliver() = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Deliver() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDeliver_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	tries := 0
	err := Deliver(ctx, 3, func(context.Context) error {
		tries++
		cancel()
		return errors.New("down")
	}, nil)

	if !errors.Is(err, context.Canceled) {
		t.Errorf("Deliver() = %v, want context.Canceled", err)
	}
	if tries != 1 {
		t.Errorf("tries = %d, want 1", tries)
	}
}
