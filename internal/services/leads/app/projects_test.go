package app

import (
	"context"
	"testing"

	apperrors "github.com/craftlane/craftlane/internal/platform/errors"
)

func TestCreateProjectOwnedByActingPM(t *testing.T) {
	env := newTestEnv(t)

	proj, err := env.service.CreateProject(context.Background(), CreateProjectInput{
		Actor:       pmActor("pm-1"),
		Name:        "  Riverside House  ",
		Description: "Two story remodel",
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if proj.ID == "" || proj.PmID != "pm-1" {
		t.Errorf("project = %+v", proj)
	}
	if proj.Name != "Riverside House" {
		t.Errorf("name = %q, want trimmed", proj.Name)
	}

	stored, err := env.projects.GetProject(context.Background(), proj.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if stored.Name != "Riverside House" {
		t.Errorf("stored name = %q", stored.Name)
	}
}

func TestCreateProjectRequiresPM(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.service.CreateProject(context.Background(), CreateProjectInput{
		Actor: vendorActor("vendor-1"),
		Name:  "Riverside House",
	}); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Errorf("vendor err = %v, want forbidden", err)
	}
}

func TestCreateProjectRejectsEmptyName(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.service.CreateProject(context.Background(), CreateProjectInput{
		Actor: pmActor("pm-1"),
		Name:  "   ",
	}); !apperrors.IsCode(err, apperrors.CodeProjectEmptyName) {
		t.Errorf("err = %v, want %s", err, apperrors.CodeProjectEmptyName)
	}
}

func TestGetProjectVisibility(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	sendOneLead(t, env, "proj-1", "pm-1", "vendor-1")

	if _, err := env.service.GetProject(context.Background(), pmActor("pm-1"), "proj-1"); err != nil {
		t.Errorf("owner: %v", err)
	}
	if _, err := env.service.GetProject(context.Background(), vendorActor("vendor-1"), "proj-1"); err != nil {
		t.Errorf("invited vendor: %v", err)
	}
	if _, err := env.service.GetProject(context.Background(), vendorActor("vendor-9"), "proj-1"); !apperrors.IsCode(err, apperrors.CodeForbidden) {
		t.Errorf("stranger err = %v, want forbidden", err)
	}
}

func TestWorkspaceForProject(t *testing.T) {
	env := newTestEnv(t)
	env.seedProject(t, "proj-1", "pm-1", "Riverside House")
	sent := sendOneLead(t, env, "proj-1", "pm-1", "vendor-1")
	acceptLead(t, env, sent.ID, "vendor-1")

	if _, err := env.service.WorkspaceForProject(context.Background(), "proj-1"); !apperrors.IsCode(err, apperrors.CodeNotFound) {
		t.Errorf("before provisioning err = %v, want not found", err)
	}

	result, err := env.service.DecideOnLead(context.Background(), DecideOnLeadInput{
		Actor: pmActor("pm-1"), LeadID: sent.ID, Approved: true, WorkspaceAccess: true,
	})
	if err != nil {
		t.Fatalf("DecideOnLead: %v", err)
	}

	ws, err := env.service.WorkspaceForProject(context.Background(), "proj-1")
	if err != nil {
		t.Fatalf("WorkspaceForProject: %v", err)
	}
	if ws.ID != result.Workspace.ID {
		t.Errorf("workspace id = %q, want %q", ws.ID, result.Workspace.ID)
	}
}
