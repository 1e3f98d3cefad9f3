package model

import (
	"strings"
	"testing"
)

func TestVerifyRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     VerifyRequest
		wantErr bool
	}{
		{
			name: "single url",
			req:  VerifyRequest{URL: "https://example.com"},
		},
		{
			name: "dev with continent",
			req:  VerifyRequest{URL: "https://example.com", Continent: "EU", Mode: ModeDev},
		},
		{
			name: "batch of three",
			req:  VerifyRequest{URLs: []string{"https://a.test", "https://b.test", "https://c.test"}, Mode: ModeBatch},
		},
		{
			name:    "empty",
			req:     VerifyRequest{},
			wantErr: true,
		},
		{
			name:    "dev without continent",
			req:     VerifyRequest{URL: "https://example.com", Mode: ModeDev},
			wantErr: true,
		},
		{
			name:    "bad continent code",
			req:     VerifyRequest{URL: "https://example.com", Continent: "ZZ", Mode: ModeDev},
			wantErr: true,
		},
		{
			name:    "batch without urls",
			req:     VerifyRequest{Mode: ModeBatch},
			wantErr: true,
		},
		{
			name:    "batch over limit",
			req:     VerifyRequest{URLs: manyURLs(11), Mode: ModeBatch},
			wantErr: true,
		},
		{
			name: "batch at limit",
			req:  VerifyRequest{URLs: manyURLs(10), Mode: ModeBatch},
		},
		{
			name:    "not a url",
			req:     VerifyRequest{URL: "definitely not a url"},
			wantErr: true,
		},
		{
			name:    "both url and urls",
			req:     VerifyRequest{URL: "https://example.com", URLs: []string{"https://a.test"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestVerifyRequest_EffectiveMode(t *testing.T) {
	if got := (&VerifyRequest{URL: "https://example.com"}).EffectiveMode(); got != ModeGlobal {
		t.Errorf("default mode = %q, want global", got)
	}
	if got := (&VerifyRequest{URLs: []string{"https://a.test"}}).EffectiveMode(); got != ModeBatch {
		t.Errorf("urls mode = %q, want batch", got)
	}
	if got := (&VerifyRequest{URL: "https://example.com", Mode: ModeDev}).EffectiveMode(); got != ModeDev {
		t.Errorf("dev mode = %q", got)
	}
}

func TestVerifyRequest_RequestedRegions(t *testing.T) {
	global, err := (&VerifyRequest{URL: "https://example.com"}).RequestedRegions()
	if err != nil {
		t.Fatalf("global regions: %v", err)
	}
	if len(global) != len(AllRegions) {
		t.Fatalf("global should request all %d regions, got %d", len(AllRegions), len(global))
	}

	dev, err := (&VerifyRequest{URL: "https://example.com", Continent: "SA", Mode: ModeDev}).RequestedRegions()
	if err != nil {
		t.Fatalf("dev regions: %v", err)
	}
	if len(dev) != 1 || dev[0] != RegionSA {
		t.Fatalf("dev regions = %v, want [SA]", dev)
	}

	if _, err := (&VerifyRequest{URL: "https://example.com", Continent: "nope", Mode: ModeDev}).RequestedRegions(); err == nil {
		t.Fatal("expected error for invalid continent")
	}
}

func manyURLs(n int) []string {
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, "https://site-"+strings.Repeat("x", i+1)+".test")
	}
	return out
}
