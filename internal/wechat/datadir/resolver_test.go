package datadir

import (
	"testing"

	"github.com/rkoshiba/wxforensic/internal/model"
)

func TestNullResolver_NeverErrorsOrFinds(t *testing.T) {
	r := nullResolver{}
	dir, found, err := r.Resolve(&model.ProcessRecord{PID: 42})
	if err != nil {
		t.Fatalf("nullResolver returned error: %v", err)
	}
	if found || dir != "" {
		t.Fatalf("expected no match from nullResolver, got dir=%q found=%v", dir, found)
	}
}

func TestNewResolver_UnknownPlatformIsNullResolver(t *testing.T) {
	r := NewResolver(model.Platform("unknown"))
	dir, found, err := r.Resolve(&model.ProcessRecord{PID: 1})
	if err != nil || found || dir != "" {
		t.Fatalf("expected null-object behavior for unknown platform, got dir=%q found=%v err=%v", dir, found, err)
	}
}
