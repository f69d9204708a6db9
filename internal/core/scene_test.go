package core

import (
	"testing"
	"time"
)

func TestScene_StatusTransitions(t *testing.T) {
	s := NewScene("s1", "p1", "code")
	if s.Status != SceneStatusPending {
		t.Fatalf("new scene status = %s, want pending", s.Status)
	}

	if err := s.MarkValid(); err != nil {
		t.Fatalf("MarkValid() error = %v", err)
	}
	if s.Status != SceneStatusValid {
		t.Errorf("status = %s, want valid", s.Status)
	}

	// Recompiling an unchanged scene reaches the same outcome again.
	if err := s.MarkValid(); err != nil {
		t.Errorf("MarkValid() on a valid scene error = %v", err)
	}

	// valid -> broken requires going through pending first
	if err := s.MarkBroken("boom"); err == nil {
		t.Error("MarkBroken() should fail from valid state")
	}

	s.ResetPending()
	if err := s.MarkBroken("unexpected token"); err != nil {
		t.Fatalf("MarkBroken() error = %v", err)
	}
	if !s.IsBroken() {
		t.Error("scene should be broken")
	}
	if s.Error != "unexpected token" {
		t.Errorf("error = %q, want %q", s.Error, "unexpected token")
	}

	// A rebroken scene refreshes its error text.
	if err := s.MarkBroken("still broken"); err != nil {
		t.Errorf("MarkBroken() on a broken scene error = %v", err)
	}
	if s.Error != "still broken" {
		t.Errorf("error = %q, want the refreshed text", s.Error)
	}

	// broken is terminal until reset
	if err := s.MarkValid(); err == nil {
		t.Error("MarkValid() should fail from broken state")
	}
	s.ResetPending()
	if s.Status != SceneStatusPending || s.Error != "" {
		t.Errorf("after reset: status=%s error=%q", s.Status, s.Error)
	}
}

func TestScene_Validate(t *testing.T) {
	s := NewScene("s1", "p1", "code")
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	s.ID = ""
	if err := s.Validate(); err == nil {
		t.Error("Validate() should fail with empty ID")
	}

	s = NewScene("s1", "p1", "code")
	s.Duration.Frames = -1
	if err := s.Validate(); err == nil {
		t.Error("Validate() should fail with negative duration")
	}
}

func TestDuration_Seconds(t *testing.T) {
	d := Duration{Frames: 90, FPS: 30}
	if got := d.Seconds(); got != 3.0 {
		t.Errorf("Seconds() = %v, want 3.0", got)
	}
	zero := Duration{Frames: 90}
	if got := zero.Seconds(); got != 0 {
		t.Errorf("Seconds() with zero fps = %v, want 0", got)
	}
}

func TestSnapshot_Find(t *testing.T) {
	snap := &SceneSnapshot{
		ProjectID: "p1",
		Scenes: []*SceneEntity{
			NewScene("s1", "p1", "a"),
			NewScene("s2", "p1", "b"),
		},
	}

	if _, ok := snap.Find("s2"); !ok {
		t.Error("Find(s2) should succeed")
	}
	if _, ok := snap.Find("missing"); ok {
		t.Error("Find(missing) should fail")
	}
}

func TestSnapshot_MostRecentlyBroken(t *testing.T) {
	s1 := NewScene("s1", "p1", "a")
	s2 := NewScene("s2", "p1", "b")
	s3 := NewScene("s3", "p1", "c")

	snap := &SceneSnapshot{ProjectID: "p1", Scenes: []*SceneEntity{s1, s2, s3}}

	if _, ok := snap.MostRecentlyBroken(); ok {
		t.Fatal("no scene is broken yet")
	}

	_ = s1.MarkBroken("first failure")
	s1.UpdatedAt = time.Now().Add(-time.Minute)
	_ = s3.MarkBroken("second failure")

	got, ok := snap.MostRecentlyBroken()
	if !ok {
		t.Fatal("expected a broken scene")
	}
	if got.ID != "s3" {
		t.Errorf("most recently broken = %s, want s3", got.ID)
	}
	if len(snap.Broken()) != 2 {
		t.Errorf("Broken() count = %d, want 2", len(snap.Broken()))
	}
}

func TestSnapshot_TotalDuration(t *testing.T) {
	s1 := NewScene("s1", "p1", "a")
	s1.Duration = Duration{Frames: 90, FPS: 30}
	s2 := NewScene("s2", "p1", "b")
	s2.Duration = Duration{Frames: 120, FPS: 30}
	_ = s2.MarkBroken("broken scenes keep their duration")

	snap := &SceneSnapshot{Scenes: []*SceneEntity{s1, s2}}
	if got := snap.TotalDuration(); got != 210 {
		t.Errorf("TotalDuration() = %d, want 210", got)
	}
}
