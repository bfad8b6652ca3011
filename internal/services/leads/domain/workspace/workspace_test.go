package workspace

import (
	"errors"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
}

func fixedID() (string, error) {
	return "ws-1", nil
}

func TestCreate(t *testing.T) {
	ws, err := Create("proj-1", "pm-1", fixedClock, fixedID)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	if ws.ID != "ws-1" || ws.ProjectID != "proj-1" || ws.Owner != "pm-1" {
		t.Fatalf("unexpected workspace %+v", ws)
	}
	for _, capability := range OwnerCapabilities() {
		if !ws.Allows("pm-1", capability) {
			t.Fatalf("owner missing capability %s", capability)
		}
	}
	if len(ws.Collaborators) != 0 {
		t.Fatalf("expected no collaborators, got %v", ws.Collaborators)
	}
}

func TestCreateValidation(t *testing.T) {
	if _, err := Create(" ", "pm-1", fixedClock, fixedID); !errors.Is(err, ErrEmptyProjectID) {
		t.Fatalf("expected empty project error, got %v", err)
	}
	if _, err := Create("proj-1", "", fixedClock, fixedID); !errors.Is(err, ErrEmptyOwner) {
		t.Fatalf("expected empty owner error, got %v", err)
	}
}

func TestWithCollaborator(t *testing.T) {
	ws, err := Create("proj-1", "pm-1", fixedClock, fixedID)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}

	extended, changed := ws.WithCollaborator("vendor-1", fixedClock)
	if !changed {
		t.Fatal("expected collaborator addition to report a change")
	}
	if !extended.IsCollaborator("vendor-1") {
		t.Fatal("expected vendor-1 to be a collaborator")
	}
	for _, capability := range CollaboratorCapabilities() {
		if !extended.Allows("vendor-1", capability) {
			t.Fatalf("vendor missing capability %s", capability)
		}
	}
	for _, capability := range []Capability{CapabilityEdit, CapabilityCreateTask, CapabilityAssignTask} {
		if extended.Allows("vendor-1", capability) {
			t.Fatalf("vendor must not hold pm-exclusive capability %s", capability)
		}
	}
	// Owner capabilities survive the extension.
	for _, capability := range OwnerCapabilities() {
		if !extended.Allows("pm-1", capability) {
			t.Fatalf("owner lost capability %s", capability)
		}
	}
}

func TestWithCollaboratorIdempotent(t *testing.T) {
	ws, err := Create("proj-1", "pm-1", fixedClock, fixedID)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	once, _ := ws.WithCollaborator("vendor-1", fixedClock)
	twice, changed := once.WithCollaborator("vendor-1", fixedClock)
	if changed {
		t.Fatal("expected repeated addition to be a no-op")
	}
	if len(twice.Collaborators) != 1 {
		t.Fatalf("expected one collaborator entry, got %v", twice.Collaborators)
	}
	for _, actors := range twice.Permissions {
		seen := make(map[string]int)
		for _, actor := range actors {
			seen[actor]++
			if seen[actor] > 1 {
				t.Fatalf("duplicate actor %q in capability list", actor)
			}
		}
	}
}

func TestWithCollaboratorIgnoresOwner(t *testing.T) {
	ws, err := Create("proj-1", "pm-1", fixedClock, fixedID)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	if _, changed := ws.WithCollaborator("pm-1", fixedClock); changed {
		t.Fatal("expected adding the owner to be a no-op")
	}
}

func TestWithCollaboratorDoesNotMutateReceiver(t *testing.T) {
	ws, err := Create("proj-1", "pm-1", fixedClock, fixedID)
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}
	_, _ = ws.WithCollaborator("vendor-1", fixedClock)
	if ws.IsCollaborator("vendor-1") {
		t.Fatal("receiver workspace must stay unchanged")
	}
	if ws.Allows("vendor-1", CapabilityView) {
		t.Fatal("receiver permissions must stay unchanged")
	}
}
