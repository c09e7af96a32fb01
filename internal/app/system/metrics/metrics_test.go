package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRoleChanges_Increments(t *testing.T) {
	c := RoleChanges.WithLabelValues("promote", OutcomeSuccess)
	before := testutil.ToFloat64(c)
	c.Inc()
	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("counter = %v, want %v", got, before+1)
	}
}

func TestHandler_ExposesCollectors(t *testing.T) {
	RoleChanges.WithLabelValues("demote", OutcomeBoundary).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "soar_membership_role_changes_total") {
		t.Error("expected role change counter in exposition")
	}
}
