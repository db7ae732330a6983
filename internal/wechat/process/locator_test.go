package process

import (
	"testing"

	"github.com/rkoshiba/wxforensic/internal/model"
)

func TestTagMain_MarksRecordWithoutParentInSetAsMain(t *testing.T) {
	records := []*model.ProcessRecord{
		{PID: 100, ParentPID: 1},
		{PID: 200, ParentPID: 100},
	}
	TagMain(records)

	if !records[0].IsMain {
		t.Fatalf("pid 100's parent (1) is not in the set, should be main")
	}
	if records[1].IsMain {
		t.Fatalf("pid 200's parent (100) is in the set, should not be main")
	}
}

func TestTagMain_AllMainWhenNoParentRelation(t *testing.T) {
	records := []*model.ProcessRecord{
		{PID: 10, ParentPID: 1},
		{PID: 20, ParentPID: 2},
	}
	TagMain(records)

	for _, r := range records {
		if !r.IsMain {
			t.Fatalf("pid %d should be main, its parent pid is not in the set", r.PID)
		}
	}
}

func TestTagMain_EmptyInput(t *testing.T) {
	TagMain(nil) // must not panic
}

func TestNullLocator_ReturnsNoResultsNoError(t *testing.T) {
	l := nullLocator{}
	records, err := l.FindProcesses()
	if err != nil {
		t.Fatalf("nullLocator returned error: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected zero records, got %d", len(records))
	}
}

func TestNewLocator_UnknownPlatformIsNullLocator(t *testing.T) {
	l := NewLocator(model.Platform("unknown"))
	records, err := l.FindProcesses()
	if err != nil || len(records) != 0 {
		t.Fatalf("expected null-object behavior for unknown platform, got records=%v err=%v", records, err)
	}
}
