package escrow

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
)

func newTestServer(
	t *testing.T,
	handler func(w http.ResponseWriter, r *http.Request),
) *httptest.Server {
	ts := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
				t.Errorf("got authorization %q, want bearer credential", got)
			}
			handler(w, r)
		},
	))
	t.Cleanup(ts.Close)
	return ts
}

func writeEnvelope(w http.ResponseWriter, code int, msg string, data interface{}) {
	raw, _ := json.Marshal(data)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code": code,
		"msg":  msg,
		"data": json.RawMessage(raw),
	})
}

func TestDeploy(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/deploy" {
			t.Errorf("got path %s, want /deploy", r.URL.Path)
		}

		req := &DeployRequest{}
		if err := json.NewDecoder(r.Body).Decode(req); err != nil {
			t.Fatal(err)
		}
		if req.EngagementID != "campaign-7" {
			t.Errorf("got engagement id %s, want campaign-7", req.EngagementID)
		}
		if req.Roles[RoleMarker] != "GMARKER" {
			t.Errorf("marker role not carried: %v", req.Roles)
		}

		writeEnvelope(w, http.StatusOK, "success", &DeployResponse{
			EscrowAddress: "GESCROW",
			UnsignedTx:    "dGVzdA==",
		})
	})

	client := NewClient(ts.URL, "test-token")
	resp, err := client.Deploy(context.Background(), &DeployRequest{
		EngagementID: "campaign-7",
		Mode:         "multi",
		Roles:        map[string]string{RoleMarker: "GMARKER"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.EscrowAddress != "GESCROW" {
		t.Errorf("got escrow address %s, want GESCROW", resp.EscrowAddress)
	}
}

func TestRejection(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusBadRequest, "insufficient balance", nil)
	})

	client := NewClient(ts.URL, "test-token")
	_, err := client.Fund(context.Background(), &FundRequest{
		EscrowAddress: "GESCROW",
		FunderAddress: "GFUNDER",
		Amount:        100,
	})

	rejected, ok := IsRejected(err)
	if !ok {
		t.Fatalf("got %v, want RejectedError", err)
	}
	if rejected.Reason != "insufficient balance" {
		t.Errorf("got reason %q, want remote message", rejected.Reason)
	}
	if rejected.AlreadyApplied {
		t.Error("already applied must not be set")
	}
	if !IsRemoteFailure(err) {
		t.Error("rejection belongs to the remote failure taxonomy")
	}
}

func TestAlreadyApplied(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":            http.StatusConflict,
			"msg":             "milestone already approved",
			"already_applied": true,
		})
	})

	client := NewClient(ts.URL, "test-token")
	err := client.ApproveMilestone(context.Background(), &MilestoneRequest{
		EscrowAddress:  "GESCROW",
		MilestoneIndex: 0,
	})

	rejected, ok := IsRejected(err)
	if !ok {
		t.Fatalf("got %v, want RejectedError", err)
	}
	if !rejected.AlreadyApplied {
		t.Error("already applied flag lost")
	}
}

func TestUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	ts.Close()

	client := NewClient(ts.URL, "test-token")
	_, err := client.Deploy(context.Background(), &DeployRequest{})
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Errorf("got %v, want %v", err, ErrRemoteUnavailable)
	}
}

func TestMalformedResponse(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>bad gateway</html>"))
	})

	client := NewClient(ts.URL, "test-token")
	_, err := client.GetEscrow(context.Background(), "GESCROW")
	if !errors.Is(err, ErrRemoteUnavailable) {
		t.Errorf("got %v, want %v", err, ErrRemoteUnavailable)
	}
}

func TestGetEscrow(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/escrow" {
			t.Errorf("got path %s, want /escrow", r.URL.Path)
		}
		if got := r.URL.Query().Get("address"); got != "GESCROW" {
			t.Errorf("got address %s, want GESCROW", got)
		}

		writeEnvelope(w, http.StatusOK, "success", &State{
			EscrowAddress: "GESCROW",
			EngagementID:  "campaign-7",
			Balance:       1000,
			Milestones: []MilestoneState{
				{Index: 0, Status: "approved", Approved: true},
			},
		})
	})

	client := NewClient(ts.URL, "test-token")
	state, err := client.GetEscrow(context.Background(), "GESCROW")
	if err != nil {
		t.Fatal(err)
	}
	if state.Balance != 1000 {
		t.Errorf("got balance %d, want 1000", state.Balance)
	}
	if len(state.Milestones) != 1 || !state.Milestones[0].Approved {
		t.Errorf("milestone state lost: %+v", state.Milestones)
	}
}
