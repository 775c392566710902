package capture

import (
	"testing"
	"time"
)

func TestDigest_StableAndContentSensitive(t *testing.T) {
	rec := &Record{
		ID:            "01J00000000000000000000000",
		CapturedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		ContentType:   ContentBookmark,
		CaptureMethod: MethodPopup,
		Content:       "Bookmarked: Example",
	}

	a, err := Digest(rec)
	if err != nil {
		t.Fatalf("Digest() error = %v", err)
	}
	if len(a) != 64 {
		t.Fatalf("digest length = %d, want 64", len(a))
	}

	copyRec := *rec
	b, _ := Digest(&copyRec)
	if a != b {
		t.Errorf("equal records produced different digests")
	}

	copyRec.Content = "Bookmarked: Other"
	c, _ := Digest(&copyRec)
	if a == c {
		t.Errorf("different content produced the same digest")
	}
}
