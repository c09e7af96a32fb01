package auditlog_test

import (
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/soar/internal/app/store/audit"
	"github.com/dalemusser/soar/internal/app/system/auditlog"
	"github.com/dalemusser/soar/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_NilLogger(t *testing.T) {
	var logger *auditlog.Logger
	ctx, cancel := testutil.TestContext()
	defer cancel()
	req := httptest.NewRequest("GET", "/", nil)

	// These should all be no-ops, not panic
	logger.Log(ctx, audit.Event{EventType: "test"})
	logger.LoginSuccess(ctx, req, "u-1", "a@example.edu")
	logger.Logout(ctx, req, "u-1")
	logger.RoleChanged(ctx, req, "u-2", "u-1", primitive.NewObjectID(), true, "member", "officer", "")
}

func TestLogger_LogOnlyDestination(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	logger := auditlog.New(nil, zap.New(core), auditlog.Config{Auth: auditlog.DestLog, Admin: auditlog.DestOff})
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req := httptest.NewRequest("POST", "/login", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	logger.LoginFailed(ctx, req, "", "a@example.edu", "invalid credentials")
	logger.MemberRemoved(ctx, req, "u-2", "u-1", primitive.NewObjectID(), "member")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 zap entry (admin is off), got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["event_type"] != audit.EventLoginFailed {
		t.Errorf("event_type = %v", fields["event_type"])
	}
	if fields["ip"] != "203.0.113.9" {
		t.Errorf("ip = %v, want first forwarded hop", fields["ip"])
	}
	if entries[0].Level != zap.WarnLevel {
		t.Errorf("failed events should log at warn, got %v", entries[0].Level)
	}
}

func TestLogger_ConfigOff(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.DestOff, Admin: auditlog.DestOff})
	logger.LoginSuccess(ctx, nil, "u-1", "a@example.edu")

	events, err := store.Query(ctx, audit.QueryFilter{UserID: "u-1"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 0 {
		t.Error("expected no events when config is 'off'")
	}
}

func TestLogger_ConfigDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := audit.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	logger := auditlog.New(store, zap.NewNop(), auditlog.Config{Auth: auditlog.DestDB, Admin: auditlog.DestDB})
	orgID := primitive.NewObjectID()
	req := httptest.NewRequest("POST", "/", nil)

	logger.RoleChanged(ctx, req, "leader-1", "member-1", orgID, true, "member", "officer", "")
	logger.RoleChanged(ctx, req, "officer-1", "member-1", orgID, false, "officer", "", "forbidden")

	events, err := store.GetByOrganization(ctx, orgID, 10)
	if err != nil {
		t.Fatalf("GetByOrganization failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	var promoted, denied bool
	for _, e := range events {
		switch e.EventType {
		case audit.EventMemberPromoted:
			promoted = e.Success && e.Details["to_role"] == "officer" && e.ActorID == "leader-1"
		case audit.EventMemberDemoted:
			denied = !e.Success && e.FailureReason == "forbidden"
		}
	}
	if !promoted || !denied {
		t.Errorf("unexpected events: %+v", events)
	}
}
