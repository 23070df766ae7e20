package cache

import (
	"testing"
	"time"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.TTL != 300*time.Second {
		t.Errorf("TTL = %v, want 300s", p.TTL)
	}
	if p.MaxEntries != 100 {
		t.Errorf("MaxEntries = %d, want 100", p.MaxEntries)
	}
	if !p.ShouldCache() {
		t.Error("default policy should cache")
	}
}

func TestPolicy_ShouldCache(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   bool
	}{
		{"no cache", NoCachePolicy(), false},
		{"zero ttl", Policy{MaxEntries: 10}, false},
		{"zero entries", Policy{TTL: time.Minute}, false},
		{"enabled", Policy{TTL: time.Minute, MaxEntries: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.ShouldCache(); got != tt.want {
				t.Errorf("ShouldCache() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPolicy_Validate(t *testing.T) {
	if err := DefaultPolicy().Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	if err := (Policy{TTL: -time.Second}).Validate(); err == nil {
		t.Error("negative TTL should fail validation")
	}
	if err := (Policy{MaxEntries: -1}).Validate(); err == nil {
		t.Error("negative MaxEntries should fail validation")
	}
}
