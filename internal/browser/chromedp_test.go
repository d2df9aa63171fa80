package browser

import (
	"testing"
	"time"
)

func TestTimeoutOrDefault(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		d        time.Duration
		fallback time.Duration
		want     time.Duration
	}{
		{"configured value wins", 45 * time.Second, 30 * time.Second, 45 * time.Second},
		{"zero uses fallback", 0, 30 * time.Second, 30 * time.Second},
		{"negative uses fallback", -time.Second, 30 * time.Second, 30 * time.Second},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := timeoutOrDefault(tt.d, tt.fallback); got != tt.want {
				t.Fatalf("timeoutOrDefault(%v, %v) = %v, want %v", tt.d, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestIsFramePath(t *testing.T) {
	t.Parallel()
	if isFramePath("body > div:nth-of-type(2)") {
		t.Fatal("top-document path misread as frame path")
	}
	if !isFramePath("iframe:nth-of-type(1) >>> body > input:nth-of-type(1)") {
		t.Fatal("frame path not recognized")
	}
}
