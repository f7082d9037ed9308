package store

import (
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/cardx/internal/models"
	"pgregory.net/rapid"
)

func sampleUploads() []models.Upload {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []models.Upload{
		{ID: 42, Filename: "biology.pdf", CreatedAt: ts, Status: models.StatusGenerating},
		{ID: 7, Filename: "history.pdf", CreatedAt: ts, Status: models.StatusUploaded},
		{ID: 3, Filename: "math.pdf", CreatedAt: ts, Status: models.StatusDone},
	}
}

func TestApply(t *testing.T) {
	t.Run("updates only status of a known upload", func(t *testing.T) {
		s := New()
		s.Replace(sampleUploads())

		ok := s.Apply(models.StatusEvent{UploadID: 42, Status: models.StatusDone, Kind: models.KindStatusUpdate})
		if !ok {
			t.Fatal("expected a match")
		}
		u, _ := s.Get(42)
		if u.Status != models.StatusDone {
			t.Errorf("expected done, got %s", u.Status)
		}
		if u.Filename != "biology.pdf" {
			t.Errorf("filename changed to %q", u.Filename)
		}
	})

	t.Run("unknown id leaves the store unchanged", func(t *testing.T) {
		s := New()
		s.Replace(sampleUploads())
		before := s.List()

		if s.Apply(models.StatusEvent{UploadID: 99, Status: models.StatusError, Kind: models.KindError}) {
			t.Error("expected no match")
		}
		if !reflect.DeepEqual(before, s.List()) {
			t.Error("store changed on unknown id")
		}
		if _, ok := s.Get(99); ok {
			t.Error("event inserted a record")
		}
	})

	t.Run("status may move backwards", func(t *testing.T) {
		s := New()
		s.Replace(sampleUploads())
		s.Apply(models.StatusEvent{UploadID: 3, Status: models.StatusGenerating, Kind: models.KindInitial})
		if u, _ := s.Get(3); u.Status != models.StatusGenerating {
			t.Errorf("expected latest value to win, got %s", u.Status)
		}
	})
}

func TestReplaceRemoveClear(t *testing.T) {
	t.Run("replace keeps listing order", func(t *testing.T) {
		s := New()
		s.Replace(sampleUploads())
		got := s.List()
		if len(got) != 3 || got[0].ID != 42 || got[1].ID != 7 || got[2].ID != 3 {
			t.Errorf("unexpected order %v", got)
		}
	})

	t.Run("replace drops duplicate ids", func(t *testing.T) {
		s := New()
		uploads := append(sampleUploads(), models.Upload{ID: 42, Filename: "dup.pdf"})
		s.Replace(uploads)
		if s.Len() != 3 {
			t.Errorf("expected 3, got %d", s.Len())
		}
		if u, _ := s.Get(42); u.Filename != "biology.pdf" {
			t.Errorf("expected first occurrence to win, got %q", u.Filename)
		}
	})

	t.Run("remove", func(t *testing.T) {
		s := New()
		s.Replace(sampleUploads())
		if !s.Remove(7) {
			t.Fatal("expected remove to succeed")
		}
		if s.Remove(7) {
			t.Error("second remove should report false")
		}
		got := s.List()
		if len(got) != 2 || got[0].ID != 42 || got[1].ID != 3 {
			t.Errorf("unexpected list %v", got)
		}
	})

	t.Run("clear", func(t *testing.T) {
		s := New()
		s.Replace(sampleUploads())
		s.Clear()
		if s.Len() != 0 || len(s.List()) != 0 {
			t.Error("expected empty store")
		}
		if s.Apply(models.StatusEvent{UploadID: 42, Status: models.StatusDone}) {
			t.Error("apply matched after clear")
		}
	})

	t.Run("list returns a copy", func(t *testing.T) {
		s := New()
		s.Replace(sampleUploads())
		got := s.List()
		got[0].Status = models.StatusError
		if u, _ := s.Get(42); u.Status == models.StatusError {
			t.Error("mutating List result changed the store")
		}
	})
}

func TestConcurrentApply(t *testing.T) {
	s := New()
	s.Replace(sampleUploads())

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%10 == 0 {
				s.Replace(sampleUploads())
			}
			s.Apply(models.StatusEvent{UploadID: 42, Status: models.StatusDone})
			_ = s.List()
		}()
	}
	wg.Wait()

	if s.Len() != 3 {
		t.Errorf("expected 3 uploads, got %d", s.Len())
	}
}

func TestApplyProperties(t *testing.T) {
	statuses := []models.Status{models.StatusUploaded, models.StatusGenerating, models.StatusDone, models.StatusError}

	eventGen := rapid.Custom(func(t *rapid.T) models.StatusEvent {
		return models.StatusEvent{
			UploadID: rapid.IntRange(0, 60).Draw(t, "id"),
			Status:   rapid.SampledFrom(statuses).Draw(t, "status"),
			Kind:     models.KindStatusUpdate,
		}
	})

	rapid.Check(t, func(t *rapid.T) {
		ids := rapid.SliceOfNDistinct(rapid.IntRange(0, 40), 0, 10, rapid.ID[int]).Draw(t, "ids")
		uploads := make([]models.Upload, 0, len(ids))
		for _, id := range ids {
			uploads = append(uploads, models.Upload{ID: id, Status: models.StatusUploaded})
		}
		ev := eventGen.Draw(t, "event")

		once, twice := New(), New()
		once.Replace(uploads)
		twice.Replace(uploads)

		matched := once.Apply(ev)
		twice.Apply(ev)
		twice.Apply(ev)

		if !reflect.DeepEqual(once.List(), twice.List()) {
			t.Fatalf("apply twice differs from once")
		}

		if !matched {
			untouched := New()
			untouched.Replace(uploads)
			if !reflect.DeepEqual(untouched.List(), once.List()) {
				t.Fatalf("unmatched event changed the store")
			}
		}
		if once.Len() != len(uploads) {
			t.Fatalf("apply changed the record count")
		}
	})
}
