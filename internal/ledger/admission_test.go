package ledger

import (
	"context"
	"testing"

	"github.com/doorlist/event-admission/internal/model"
	"github.com/doorlist/event-admission/internal/realtime"
)

func TestRequestAdmission(t *testing.T) {
	f := newFixture(model.VisibilityInviteOnly)
	ctx := context.Background()

	req, err := f.admission.RequestAdmission(ctx, testEventID, testUserID)
	if err != nil {
		t.Fatalf("RequestAdmission: %v", err)
	}
	if req.Status != model.AdmissionPending {
		t.Fatalf("status = %q, want pending", req.Status)
	}
	if req.RespondedAt != nil {
		t.Fatalf("RespondedAt set on a fresh request")
	}

	// The change lands on both the event topic and the requester's topic.
	topics := f.bus.topics()
	if len(topics) != 2 || topics[0] != realtime.EventTopic(testEventID) || topics[1] != realtime.UserTopic(testUserID) {
		t.Fatalf("published topics = %v", topics)
	}
}

func TestRequestAdmissionDuplicate(t *testing.T) {
	f := newFixture(model.VisibilityInviteOnly)
	ctx := context.Background()

	if _, err := f.admission.RequestAdmission(ctx, testEventID, testUserID); err != nil {
		t.Fatalf("first request: %v", err)
	}
	_, err := f.admission.RequestAdmission(ctx, testEventID, testUserID)
	if !IsCode(err, CodePreconditionFailed) {
		t.Fatalf("duplicate request: got %v, want precondition failure", err)
	}
}

func TestRequestAdmissionPublicEvent(t *testing.T) {
	f := newFixture(model.VisibilityPublic)

	_, err := f.admission.RequestAdmission(context.Background(), testEventID, testUserID)
	if !IsCode(err, CodePreconditionFailed) {
		t.Fatalf("got %v, want precondition failure on public event", err)
	}
}

func TestRequestAdmissionValidation(t *testing.T) {
	f := newFixture(model.VisibilityInviteOnly)
	ctx := context.Background()

	if _, err := f.admission.RequestAdmission(ctx, "not-a-uuid", testUserID); !IsCode(err, CodeValidationError) {
		t.Fatalf("malformed event id: got %v", err)
	}
	if _, err := f.admission.RequestAdmission(ctx, "99999999-9999-9999-9999-999999999999", testUserID); !IsCode(err, CodeNotFound) {
		t.Fatalf("unknown event: got %v", err)
	}
}

func TestApproveDenyTerminal(t *testing.T) {
	f := newFixture(model.VisibilityInviteOnly)
	ctx := context.Background()

	req, _ := f.admission.RequestAdmission(ctx, testEventID, testUserID)

	got, err := f.admission.Approve(ctx, req.ID, testAdminID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if got.Status != model.AdmissionApproved || got.RespondedAt == nil {
		t.Fatalf("approved request = %+v", got)
	}

	// Approved is terminal for the approve/deny path: a second resolve in
	// either direction fails its pending precondition.
	if _, err := f.admission.Approve(ctx, req.ID, testAdminID); !IsCode(err, CodePreconditionFailed) {
		t.Fatalf("re-approve: got %v", err)
	}
	if _, err := f.admission.Deny(ctx, req.ID, testAdminID); !IsCode(err, CodePreconditionFailed) {
		t.Fatalf("deny after approve: got %v", err)
	}
}

func TestApproveRequiresAdmin(t *testing.T) {
	f := newFixture(model.VisibilityInviteOnly)
	ctx := context.Background()

	req, _ := f.admission.RequestAdmission(ctx, testEventID, testUserID)

	if _, err := f.admission.Approve(ctx, req.ID, testMemberID); !IsCode(err, CodeNotAuthorized) {
		t.Fatalf("member approve: got %v, want not authorized", err)
	}
	if _, err := f.admission.Approve(ctx, req.ID, testUserID); !IsCode(err, CodeNotAuthorized) {
		t.Fatalf("outsider approve: got %v, want not authorized", err)
	}
}

func TestManuallyAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("creates approved when no request exists", func(t *testing.T) {
		f := newFixture(model.VisibilityInviteOnly)
		req, err := f.admission.ManuallyAdd(ctx, testEventID, testUserID, testAdminID)
		if err != nil {
			t.Fatalf("ManuallyAdd: %v", err)
		}
		if req.Status != model.AdmissionApproved || req.RespondedAt == nil {
			t.Fatalf("added request = %+v", req)
		}
	})

	t.Run("flips a pending request", func(t *testing.T) {
		f := newFixture(model.VisibilityInviteOnly)
		if _, err := f.admission.RequestAdmission(ctx, testEventID, testUserID); err != nil {
			t.Fatalf("seed: %v", err)
		}
		req, err := f.admission.ManuallyAdd(ctx, testEventID, testUserID, testAdminID)
		if err != nil {
			t.Fatalf("ManuallyAdd: %v", err)
		}
		if req.Status != model.AdmissionApproved {
			t.Fatalf("status = %q", req.Status)
		}
	})

	t.Run("flips a denied request", func(t *testing.T) {
		f := newFixture(model.VisibilityInviteOnly)
		seeded, _ := f.admission.RequestAdmission(ctx, testEventID, testUserID)
		if _, err := f.admission.Deny(ctx, seeded.ID, testAdminID); err != nil {
			t.Fatalf("seed deny: %v", err)
		}
		req, err := f.admission.ManuallyAdd(ctx, testEventID, testUserID, testAdminID)
		if err != nil {
			t.Fatalf("ManuallyAdd after deny: %v", err)
		}
		if req.Status != model.AdmissionApproved {
			t.Fatalf("status = %q", req.Status)
		}
	})

	t.Run("already approved is reported, not mutated", func(t *testing.T) {
		f := newFixture(model.VisibilityInviteOnly)
		f.approve(t)
		_, err := f.admission.ManuallyAdd(ctx, testEventID, testUserID, testAdminID)
		if !IsCode(err, CodePreconditionFailed) {
			t.Fatalf("got %v, want precondition failure", err)
		}
	})

	t.Run("requires admin", func(t *testing.T) {
		f := newFixture(model.VisibilityInviteOnly)
		if _, err := f.admission.ManuallyAdd(ctx, testEventID, testUserID, testMemberID); !IsCode(err, CodeNotAuthorized) {
			t.Fatalf("got %v, want not authorized", err)
		}
	})
}

func TestListRequests(t *testing.T) {
	f := newFixture(model.VisibilityInviteOnly)
	ctx := context.Background()

	ids := []string{
		"aaaaaaaa-0000-0000-0000-000000000001",
		"aaaaaaaa-0000-0000-0000-000000000002",
		"aaaaaaaa-0000-0000-0000-000000000003",
	}
	var first string
	for i, uid := range ids {
		req, err := f.admission.RequestAdmission(ctx, testEventID, uid)
		if err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
		if i == 0 {
			first = req.ID
		}
	}
	if _, err := f.admission.Approve(ctx, first, testAdminID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	all, err := f.admission.ListRequests(ctx, testEventID, testAdminID, "")
	if err != nil {
		t.Fatalf("ListRequests: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d", len(all))
	}

	pending, err := f.admission.ListRequests(ctx, testEventID, testAdminID, model.AdmissionPending)
	if err != nil {
		t.Fatalf("ListRequests pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("len(pending) = %d", len(pending))
	}

	guests, err := f.admission.ListApprovedGuests(ctx, testEventID, testAdminID)
	if err != nil {
		t.Fatalf("ListApprovedGuests: %v", err)
	}
	if len(guests) != 1 || guests[0].UserID != ids[0] {
		t.Fatalf("guests = %+v", guests)
	}

	if _, err := f.admission.ListRequests(ctx, testEventID, testAdminID, "bogus"); !IsCode(err, CodeValidationError) {
		t.Fatalf("bogus filter: got %v", err)
	}
	if _, err := f.admission.ListRequests(ctx, testEventID, testMemberID, ""); !IsCode(err, CodeNotAuthorized) {
		t.Fatalf("member list: got %v", err)
	}
}

func TestBulkApprovePartialFailure(t *testing.T) {
	f := newFixture(model.VisibilityInviteOnly)
	ctx := context.Background()

	a, _ := f.admission.RequestAdmission(ctx, testEventID, "aaaaaaaa-0000-0000-0000-000000000001")
	b, _ := f.admission.RequestAdmission(ctx, testEventID, "aaaaaaaa-0000-0000-0000-000000000002")
	if _, err := f.admission.Deny(ctx, b.ID, testAdminID); err != nil {
		t.Fatalf("seed deny: %v", err)
	}
	missing := "bbbbbbbb-0000-0000-0000-000000000009"

	res := f.admission.BulkApprove(ctx, []string{a.ID, b.ID, missing, "junk"}, testAdminID)

	if len(res.Succeeded) != 1 || res.Succeeded[0] != a.ID {
		t.Fatalf("succeeded = %v", res.Succeeded)
	}
	if len(res.Failed) != 3 {
		t.Fatalf("failed = %+v", res.Failed)
	}
	byID := map[string]Code{}
	for _, fl := range res.Failed {
		byID[fl.RequestID] = fl.Code
	}
	if byID[b.ID] != CodePreconditionFailed {
		t.Fatalf("denied request failed with %q", byID[b.ID])
	}
	if byID[missing] != CodeNotFound {
		t.Fatalf("missing request failed with %q", byID[missing])
	}
	if byID["junk"] != CodeValidationError {
		t.Fatalf("junk id failed with %q", byID["junk"])
	}

	// The one success really landed.
	got, err := f.admissions.GetByID(ctx, a.ID)
	if err != nil || got.Status != model.AdmissionApproved {
		t.Fatalf("request a = %+v, err %v", got, err)
	}
}

func TestAuthorizeAdmin(t *testing.T) {
	f := newFixture(model.VisibilityInviteOnly)
	ctx := context.Background()

	if err := f.admission.AuthorizeAdmin(ctx, testEventID, testAdminID); err != nil {
		t.Fatalf("admin: %v", err)
	}
	if err := f.admission.AuthorizeAdmin(ctx, testEventID, testMemberID); !IsCode(err, CodeNotAuthorized) {
		t.Fatalf("member: got %v", err)
	}
	if err := f.admission.AuthorizeAdmin(ctx, "99999999-9999-9999-9999-999999999999", testAdminID); !IsCode(err, CodeNotFound) {
		t.Fatalf("unknown event: got %v", err)
	}
}
