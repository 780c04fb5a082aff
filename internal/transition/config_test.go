package transition

import (
	"errors"
	"math"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.TransitionTime != 4 {
		t.Errorf("TransitionTime = %v, want 4", cfg.TransitionTime)
	}
	if cfg.ExcludeEntities == nil || len(cfg.ExcludeEntities) != 0 {
		t.Errorf("ExcludeEntities = %v, want empty", cfg.ExcludeEntities)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr []error
	}{
		{"minimum", Config{TransitionTime: 0}, nil},
		{"maximum", Config{TransitionTime: 60}, nil},
		{"fractional", Config{TransitionTime: 2.5, ExcludeEntities: []string{"light.bedroom"}}, nil},
		{"negative", Config{TransitionTime: -1}, []error{ErrInvalidTransition}},
		{"too long", Config{TransitionTime: 60.5}, []error{ErrInvalidTransition}},
		{"nan", Config{TransitionTime: math.NaN()}, []error{ErrInvalidTransition}},
		{"bad entity", Config{TransitionTime: 4, ExcludeEntities: []string{"bedroom"}}, []error{ErrInvalidEntityID}},
		{
			"both",
			Config{TransitionTime: 99, ExcludeEntities: []string{"Light.Bedroom"}},
			[]error{ErrInvalidTransition, ErrInvalidEntityID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("Validate() error = %v, want %v", err, want)
				}
			}
		})
	}
}

func TestValidEntityID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"light.kitchen", true},
		{"light.living_room_2", true},
		{"switch.a", true},
		{"light", false},
		{"light.", false},
		{".kitchen", false},
		{"Light.kitchen", false},
		{"light.kitchen.extra", false},
		{"light._kitchen", false},
		{"light.kitchen_", false},
		{"my__domain.x", false},
		{"light.kit chen", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := ValidEntityID(tt.id); got != tt.want {
				t.Errorf("ValidEntityID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestConfig_IsExcluded(t *testing.T) {
	cfg := Config{ExcludeEntities: []string{"light.bedroom"}}
	if !cfg.IsExcluded("light.bedroom") {
		t.Error("IsExcluded(light.bedroom) = false")
	}
	if cfg.IsExcluded("light.bedroom_2") {
		t.Error("IsExcluded matches by prefix")
	}
}
