package airindex

import (
	"context"
	"testing"
)

func bigLinearKeyBuffer(n int) *KeyBuffer {
	kb := NewKeyBuffer(KeyDTypeUint64)
	recordSize := uint64(16)
	for i := 0; i < n; i++ {
		kb.Append(uint64(i), uint64(i)*recordSize)
	}
	kb.SetDataLength(uint64(n) * recordSize)
	return kb
}

func TestPlannerBuildProducesRootToLeafChain(t *testing.T) {
	kb := bigLinearKeyBuffer(20000)
	cfg := PlannerConfig{
		Drafters:       []DrafterID{DrafterIDStep, DrafterIDBandGreedy},
		LowLoad:        256,
		HighLoad:       4096,
		StepMultiplier: 4.0,
		TopK:           2,
		RootCap:        DefaultRootCap,
		Workers:        4,
	}
	profile := AffineProfile{LatencyNs: 1_000_000, BandwidthMBps: 500}
	p, err := NewPlanner(cfg, profile)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := p.Build(context.Background(), kb, 16)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Depth() == 0 {
		t.Fatal("expected at least one layer")
	}
	if len(idx.Root().Pages) != 1 {
		t.Fatalf("root layer has %d pages, want 1", len(idx.Root().Pages))
	}
	if idx.MinKey != 0 || idx.MaxKey != 19999 {
		t.Errorf("MinKey/MaxKey = %d/%d", idx.MinKey, idx.MaxKey)
	}
}

func TestPlannerConfigValidate(t *testing.T) {
	cfg := PlannerConfig{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty config")
	}
	cfg = PlannerConfig{Drafters: []DrafterID{DrafterIDStep}, LowLoad: 100, HighLoad: 50, StepMultiplier: 2}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for high < low load")
	}
	cfg = PlannerConfig{Drafters: []DrafterID{DrafterIDStep}, LowLoad: 100, HighLoad: 200, StepMultiplier: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for multiplier <= 1")
	}
}

func TestLoadPaletteGeometric(t *testing.T) {
	cfg := PlannerConfig{LowLoad: 100, HighLoad: 1000, StepMultiplier: 2.0}
	palette := cfg.LoadPalette()
	if len(palette) < 2 {
		t.Fatalf("expected a multi-entry palette, got %v", palette)
	}
	if palette[0] != 100 {
		t.Errorf("palette[0] = %d, want 100", palette[0])
	}
	if palette[len(palette)-1] < 1000 {
		t.Errorf("palette should reach >= HighLoad, last = %d", palette[len(palette)-1])
	}
}

func TestPlannerBuildWithScratch(t *testing.T) {
	dir := t.TempDir()
	kb := bigLinearKeyBuffer(5000)
	cfg := PlannerConfig{
		Drafters:       []DrafterID{DrafterIDStep},
		LowLoad:        256,
		HighLoad:       1024,
		StepMultiplier: 4.0,
		TopK:           1,
		RootCap:        DefaultRootCap,
		Workers:        2,
		UseScratch:     true,
		ScratchDir:     dir,
	}
	profile := AffineProfile{LatencyNs: 1_000_000, BandwidthMBps: 500}
	p, err := NewPlanner(cfg, profile)
	if err != nil {
		t.Fatal(err)
	}
	idx, err := p.Build(context.Background(), kb, 16)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Depth() == 0 {
		t.Fatal("expected at least one layer")
	}
}
