package models

import (
	"testing"
	"time"
)

func floatPtr(f float64) *float64 { return &f }

func TestRenumberClips(t *testing.T) {
	base := time.Now()
	clips := []Clip{
		{SourceRef: "c", OrderIndex: 10, CreatedAt: base},
		{SourceRef: "a", OrderIndex: 2, CreatedAt: base},
		{SourceRef: "b", OrderIndex: 5, CreatedAt: base},
	}

	RenumberClips(clips)

	wantOrder := []string{"a", "b", "c"}
	for i, want := range wantOrder {
		if clips[i].SourceRef != want {
			t.Errorf("position %d: expected %s, got %s", i, want, clips[i].SourceRef)
		}
		if clips[i].OrderIndex != i {
			t.Errorf("position %d: expected dense index %d, got %d", i, i, clips[i].OrderIndex)
		}
	}
}

func TestRenumberClipsTieBreaksByCreation(t *testing.T) {
	base := time.Now()
	clips := []Clip{
		{SourceRef: "later", OrderIndex: 3, CreatedAt: base.Add(time.Minute)},
		{SourceRef: "earlier", OrderIndex: 3, CreatedAt: base},
	}

	RenumberClips(clips)

	if clips[0].SourceRef != "earlier" {
		t.Errorf("expected creation time to break the tie, got %s first", clips[0].SourceRef)
	}
	if clips[0].OrderIndex != 0 || clips[1].OrderIndex != 1 {
		t.Errorf("expected dense 0,1 indices, got %d,%d", clips[0].OrderIndex, clips[1].OrderIndex)
	}
}

func TestRenumberBroll(t *testing.T) {
	base := time.Now()
	brolls := []BrollClip{
		{SourceRef: "b", OrderIndex: 7, CreatedAt: base},
		{SourceRef: "a", OrderIndex: 1, CreatedAt: base},
	}

	RenumberBroll(brolls)

	if brolls[0].SourceRef != "a" || brolls[0].OrderIndex != 0 {
		t.Errorf("expected a at index 0, got %s at %d", brolls[0].SourceRef, brolls[0].OrderIndex)
	}
	if brolls[1].OrderIndex != 1 {
		t.Errorf("expected dense index 1, got %d", brolls[1].OrderIndex)
	}
}

func TestValidateClip(t *testing.T) {
	valid := &Clip{SourceRef: "clips/a.mp4", TrimStartSeconds: floatPtr(2), TrimEndSeconds: floatPtr(7)}
	if err := ValidateClip(valid); err != nil {
		t.Errorf("expected valid clip, got %v", err)
	}

	noSource := &Clip{}
	if err := ValidateClip(noSource); err == nil {
		t.Error("expected error for missing source_ref")
	}

	negativeStart := &Clip{SourceRef: "x", TrimStartSeconds: floatPtr(-1)}
	if err := ValidateClip(negativeStart); err == nil {
		t.Error("expected error for negative trim start")
	}

	invertedTrim := &Clip{SourceRef: "x", TrimStartSeconds: floatPtr(5), TrimEndSeconds: floatPtr(5)}
	if err := ValidateClip(invertedTrim); err == nil {
		t.Error("expected error for trim end at trim start")
	}

	endOnly := &Clip{SourceRef: "x", TrimEndSeconds: floatPtr(3)}
	if err := ValidateClip(endOnly); err != nil {
		t.Errorf("trim end without start should validate against zero, got %v", err)
	}
}

func TestNormalizeBrollDefaults(t *testing.T) {
	b := &BrollClip{SourceRef: "broll/a.mp4"}
	if err := NormalizeBroll(b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if b.Position != PositionBottomRight {
		t.Errorf("expected default position bottom-right, got %s", b.Position)
	}
	if b.Scale != DefaultBrollScale {
		t.Errorf("expected default scale %.2f, got %.2f", DefaultBrollScale, b.Scale)
	}
}

func TestNormalizeBrollRejectsBadValues(t *testing.T) {
	cases := []BrollClip{
		{},                                        // missing source
		{SourceRef: "x", Position: "middle-left"}, // unknown position
		{SourceRef: "x", Scale: 1.5},              // scale out of range
		{SourceRef: "x", OffsetSeconds: -2},       // negative offset
		{SourceRef: "x", DurationSeconds: floatPtr(0)},
	}

	for i := range cases {
		if err := NormalizeBroll(&cases[i]); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestApplyClipPatchPreservesOmittedFields(t *testing.T) {
	clip := &Clip{SourceRef: "clips/a.mp4", OrderIndex: 3, Muted: true}

	ApplyClipPatch(clip, AddClipRequest{TrimStartSeconds: floatPtr(1)})

	if !clip.Muted {
		t.Error("a patch that omits muted must not unmute the clip")
	}
	if clip.SourceRef != "clips/a.mp4" {
		t.Errorf("expected source_ref preserved, got %q", clip.SourceRef)
	}
	if clip.OrderIndex != 3 {
		t.Errorf("expected order_index preserved, got %d", clip.OrderIndex)
	}
	if clip.TrimStartSeconds == nil || *clip.TrimStartSeconds != 1 {
		t.Error("expected trim start applied")
	}
}

func TestApplyClipPatchSetsMuted(t *testing.T) {
	clip := &Clip{SourceRef: "x", Muted: true}
	unmute := false

	ApplyClipPatch(clip, AddClipRequest{Muted: &unmute})

	if clip.Muted {
		t.Error("expected explicit muted=false applied")
	}
}

func TestCanStartStitch(t *testing.T) {
	if !CanStartStitch(StitchStatusIdle) {
		t.Error("idle should allow a new run")
	}
	if !CanStartStitch(StitchStatusReady) {
		t.Error("ready should allow a restart")
	}
	if !CanStartStitch(StitchStatusFailed) {
		t.Error("failed should allow a restart")
	}
	if CanStartStitch(StitchStatusStitching) {
		t.Error("a live run must never be preempted")
	}
}
