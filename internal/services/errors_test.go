package services_test

import (
	"errors"
	"testing"

	"clipforge/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("boom")
	err := services.Wrap(services.ErrEncode, "render", "encode clip", "ffmpeg exited 1", cause)
	if !errors.Is(err, services.ErrEncode) {
		t.Fatalf("expected encode marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	want := "encode failure: render: encode clip: ffmpeg exited 1: boom"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if err.Error() != "transient failure: service failure" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestDegradable(t *testing.T) {
	err := services.Wrap(services.ErrModelUnavailable, "transcribe", "load model", "model file missing", nil)
	if !services.Degradable(err) {
		t.Fatal("model unavailable should be degradable")
	}
	if services.Degradable(services.Wrap(services.ErrMedia, "analyze", "decode", "", nil)) {
		t.Fatal("media errors are not degradable")
	}
}
