package engine

import (
	"context"
	"testing"
)

func TestInitTemperature(t *testing.T) {
	prev := cfg
	t.Cleanup(func() {
		cfg = prev
		Cfg = &cfg
	})
	noLLM := CompleterFunc(func(context.Context, string, string, float64) (string, error) { return "", nil })

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"zero is kept", 0, 0},
		{"explicit", 0.2, 0.2},
		{"negative falls back", -1, DefaultLLMTemperature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Init(Config{LLMTemperature: tt.in, LLM: noLLM})
			if Cfg.LLMTemperature != tt.want {
				t.Errorf("LLMTemperature = %v, want %v", Cfg.LLMTemperature, tt.want)
			}
		})
	}
}
