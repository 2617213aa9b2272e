package handler

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"trustgate/internal/verification/adapters"
	"trustgate/internal/verification/gate"
	"trustgate/internal/verification/models"
	"trustgate/internal/verification/ports"
	"trustgate/internal/verification/registry"
	"trustgate/internal/verification/review"
	"trustgate/internal/verification/store"
	id "trustgate/pkg/domain"
	dErrors "trustgate/pkg/domain-errors"
	"trustgate/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	router   chi.Router
	owner    id.AccountID
	other    id.AccountID
	reviewer id.AccountID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.owner = id.NewAccountID()
	s.other = id.NewAccountID()
	s.reviewer = id.NewAccountID()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := store.NewInMemoryStore()
	directory := adapters.NewInMemoryDirectory(ports.Owner{
		AccountID:   s.owner,
		DisplayName: "Harbor Freight Co",
		Email:       "ops@harbor.example",
	})
	capabilities := adapters.NewRoleChecker(adapters.RoleReviewer)
	gates := gate.New(st, gate.WithLogger(logger))
	reg := registry.New(st, directory, registry.WithLogger(logger), registry.WithInvalidator(gates))
	rev := review.New(st, reg, capabilities, review.WithLogger(logger), review.WithInvalidator(gates))

	s.router = chi.NewRouter()
	New(reg, rev, gates, capabilities, logger).Register(s.router)
}

func (s *HandlerSuite) asOwner(req *http.Request) *http.Request {
	return testutil.WithAccount(req, s.owner.String())
}

func (s *HandlerSuite) asReviewer(req *http.Request) *http.Request {
	return testutil.WithAccount(req, s.reviewer.String(), adapters.RoleReviewer)
}

func (s *HandlerSuite) submit(category string) *DocumentResponse {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/documents",
		map[string]string{"category": category, "evidence_ref": "s3://evidence/" + category})
	rr := testutil.DoRequest(s.router, s.asOwner(req))
	testutil.AssertStatus(s.T(), rr, http.StatusCreated)
	return testutil.UnmarshalResponse[DocumentResponse](s.T(), rr)
}

func (s *HandlerSuite) review(documentID, decision string) *http.Response {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/review/documents/"+documentID,
		map[string]string{"decision": decision})
	rr := testutil.DoRequest(s.router, s.asReviewer(req))
	return rr.Result()
}

func (s *HandlerSuite) TestSubmit() {
	s.Run("creates a pending document for the caller", func() {
		doc := s.submit("BUSINESS_LICENSE")
		s.Equal("PENDING", doc.Status)
		s.Equal(s.owner.String(), doc.OwnerAccountID)
		s.Empty(doc.ReviewerID)
	})

	s.Run("second pending submission conflicts", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/documents",
			map[string]string{"category": "BUSINESS_LICENSE", "evidence_ref": "s3://again"})
		rr := testutil.DoRequest(s.router, s.asOwner(req))
		testutil.AssertError(s.T(), rr, http.StatusConflict, dErrors.CodeDuplicateSubmission)
	})

	s.Run("unknown category", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/documents",
			map[string]string{"category": "PASSPORT", "evidence_ref": "s3://x"})
		rr := testutil.DoRequest(s.router, s.asOwner(req))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, dErrors.CodeInvalidCategory)
	})

	s.Run("missing evidence", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/documents",
			map[string]string{"category": "PROPERTY_OWNERSHIP"})
		rr := testutil.DoRequest(s.router, s.asOwner(req))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, dErrors.CodeValidation)
	})

	s.Run("malformed body", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/verification/documents", "{")
		rr := testutil.DoRequest(s.router, s.asOwner(req))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, dErrors.CodeBadRequest)
	})

	s.Run("unauthenticated", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/documents",
			map[string]string{"category": "PROPERTY_OWNERSHIP", "evidence_ref": "s3://x"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertError(s.T(), rr, http.StatusUnauthorized, dErrors.CodeUnauthorized)
	})
}

func (s *HandlerSuite) TestReviewFlow() {
	doc := s.submit("PROPERTY_OWNERSHIP")

	s.Run("non reviewer is forbidden", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/review/documents/"+doc.ID,
			map[string]string{"decision": "VERIFIED"})
		rr := testutil.DoRequest(s.router, s.asOwner(req))
		testutil.AssertError(s.T(), rr, http.StatusForbidden, dErrors.CodeForbidden)
	})

	s.Run("reviewer verifies", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/review/documents/"+doc.ID,
			map[string]string{"decision": "VERIFIED", "note": "  matches registry  "})
		rr := testutil.DoRequest(s.router, s.asReviewer(req))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[DocumentResponse](s.T(), rr)
		s.Equal("VERIFIED", resp.Status)
		s.Equal(s.reviewer.String(), resp.ReviewerID)
		s.Equal("matches registry", resp.ReviewNote)
		s.NotNil(resp.ReviewedAt)
	})

	s.Run("second review conflicts", func() {
		res := s.review(doc.ID, "REJECTED")
		s.Equal(http.StatusConflict, res.StatusCode)
	})

	s.Run("gate reflects the verified category", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/verification/accounts/"+s.owner.String()+"/gate")
		rr := testutil.DoRequest(s.router, testutil.WithAccount(req, s.other.String()))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[GateResponse](s.T(), rr)
		s.Equal(14, resp.Score)
		s.Equal(1, resp.VerifiedCount)
		s.False(resp.FullyVerified)
		s.False(resp.HighTrust)
	})

	s.Run("unknown document", func() {
		res := s.review(id.NewDocumentID().String(), "VERIFIED")
		s.Equal(http.StatusNotFound, res.StatusCode)
	})

	s.Run("bad decision", func() {
		res := s.review(doc.ID, "MAYBE")
		s.Equal(http.StatusBadRequest, res.StatusCode)
	})

	s.Run("note too long", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/review/documents/"+doc.ID,
			map[string]string{"decision": "VERIFIED", "note": strings.Repeat("x", models.MaxReviewNoteLength+1)})
		rr := testutil.DoRequest(s.router, s.asReviewer(req))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, dErrors.CodeValidation)
	})
}

func (s *HandlerSuite) TestResubmissionDropsGateUntilReviewed() {
	first := s.submit("TAX_COMPLIANCE")
	s.Equal(http.StatusOK, s.review(first.ID, "VERIFIED").StatusCode)
	s.submit("TAX_COMPLIANCE")

	req := testutil.NewRequest(s.T(), http.MethodGet, "/verification/accounts/"+s.owner.String()+"/gate")
	rr := testutil.DoRequest(s.router, s.asOwner(req))
	testutil.AssertStatusOK(s.T(), rr)
	s.Equal(0, testutil.UnmarshalResponse[GateResponse](s.T(), rr).VerifiedCount)
}

func (s *HandlerSuite) TestGetDocument() {
	doc := s.submit("AGENT_VERIFY")
	path := "/verification/documents/" + doc.ID

	s.Run("owner", func() {
		rr := testutil.DoRequest(s.router, s.asOwner(testutil.NewRequest(s.T(), http.MethodGet, path)))
		testutil.AssertStatusOK(s.T(), rr)
		s.Equal(doc.ID, testutil.UnmarshalResponse[DocumentResponse](s.T(), rr).ID)
	})

	s.Run("reviewer", func() {
		rr := testutil.DoRequest(s.router, s.asReviewer(testutil.NewRequest(s.T(), http.MethodGet, path)))
		testutil.AssertStatusOK(s.T(), rr)
	})

	s.Run("another account sees not found", func() {
		req := testutil.WithAccount(testutil.NewRequest(s.T(), http.MethodGet, path), s.other.String())
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertError(s.T(), rr, http.StatusNotFound, dErrors.CodeNotFound)
	})

	s.Run("malformed id", func() {
		rr := testutil.DoRequest(s.router, s.asOwner(testutil.NewRequest(s.T(), http.MethodGet, "/verification/documents/nope")))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *HandlerSuite) TestAccountState() {
	s.submit("ADDRESS_PROOF")
	path := "/verification/accounts/" + s.owner.String() + "/state"

	s.Run("lists every category with the computed gate", func() {
		rr := testutil.DoRequest(s.router, s.asOwner(testutil.NewRequest(s.T(), http.MethodGet, path)))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[AccountStateResponse](s.T(), rr)
		s.Len(resp.Documents, models.CategoryCount)
		s.Require().NotNil(resp.Documents["ADDRESS_PROOF"])
		s.Equal("PENDING", resp.Documents["ADDRESS_PROOF"].Status)
		s.Nil(resp.Documents["PROPERTY_OWNERSHIP"])
		s.Equal(0, resp.Score)
	})

	s.Run("another account is forbidden", func() {
		req := testutil.WithAccount(testutil.NewRequest(s.T(), http.MethodGet, path), s.other.String())
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertError(s.T(), rr, http.StatusForbidden, dErrors.CodeForbidden)
	})
}

func (s *HandlerSuite) TestHistory() {
	first := s.submit("BACKGROUND_CHECK")
	s.Equal(http.StatusOK, s.review(first.ID, "REJECTED").StatusCode)
	s.submit("BACKGROUND_CHECK")
	s.submit("PROPERTY_OWNERSHIP")
	base := "/verification/accounts/" + s.owner.String() + "/history"

	s.Run("filtered by category keeps superseded records", func() {
		rr := testutil.DoRequest(s.router, s.asOwner(testutil.NewRequest(s.T(), http.MethodGet, base+"?category=BACKGROUND_CHECK")))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[HistoryResponse](s.T(), rr)
		s.Require().Len(resp.Documents, 2)
		s.Equal("PENDING", resp.Documents[0].Status)
		s.Equal("REJECTED", resp.Documents[1].Status)
	})

	s.Run("unfiltered", func() {
		rr := testutil.DoRequest(s.router, s.asReviewer(testutil.NewRequest(s.T(), http.MethodGet, base)))
		testutil.AssertStatusOK(s.T(), rr)
		s.Len(testutil.UnmarshalResponse[HistoryResponse](s.T(), rr).Documents, 3)
	})

	s.Run("unknown category", func() {
		rr := testutil.DoRequest(s.router, s.asOwner(testutil.NewRequest(s.T(), http.MethodGet, base+"?category=nope")))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, dErrors.CodeInvalidCategory)
	})
}

func (s *HandlerSuite) TestBatchGate() {
	doc := s.submit("BUSINESS_LICENSE")
	s.Equal(http.StatusOK, s.review(doc.ID, "VERIFIED").StatusCode)

	s.Run("returns gates in request order", func() {
		body := map[string][]string{"account_ids": {s.other.String(), s.owner.String(), s.other.String()}}
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/gates", body)
		rr := testutil.DoRequest(s.router, s.asOwner(req))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[BatchGateResponse](s.T(), rr)
		s.Require().Len(resp.Gates, 2)
		s.Equal(s.other.String(), resp.Gates[0].AccountID)
		s.Equal(0, resp.Gates[0].Score)
		s.Equal(14, resp.Gates[1].Score)
	})

	s.Run("too many ids", func() {
		ids := make([]string, gate.MaxBatchSize+1)
		for i := range ids {
			ids[i] = id.NewAccountID().String()
		}
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/gates", map[string][]string{"account_ids": ids})
		rr := testutil.DoRequest(s.router, s.asOwner(req))
		testutil.AssertError(s.T(), rr, http.StatusBadRequest, dErrors.CodeValidation)
	})

	s.Run("empty", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/verification/gates", map[string][]string{"account_ids": {}})
		rr := testutil.DoRequest(s.router, s.asOwner(req))
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}

func (s *HandlerSuite) TestQueue() {
	s.submit("BUSINESS_LICENSE")
	s.submit("PROPERTY_OWNERSHIP")

	s.Run("reviewer sees pending documents oldest first with owner profile", func() {
		rr := testutil.DoRequest(s.router, s.asReviewer(testutil.NewRequest(s.T(), http.MethodGet, "/review/queue")))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[QueueResponse](s.T(), rr)
		s.Require().Len(resp.Items, 2)
		s.Equal("BUSINESS_LICENSE", resp.Items[0].Document.Category)
		s.Require().NotNil(resp.Items[0].Owner)
		s.Equal("Harbor Freight Co", resp.Items[0].Owner.DisplayName)
	})

	s.Run("category and search filters", func() {
		rr := testutil.DoRequest(s.router, s.asReviewer(testutil.NewRequest(s.T(), http.MethodGet, "/review/queue?category=PROPERTY_OWNERSHIP&q=HARBOR")))
		testutil.AssertStatusOK(s.T(), rr)
		s.Len(testutil.UnmarshalResponse[QueueResponse](s.T(), rr).Items, 1)

		rr = testutil.DoRequest(s.router, s.asReviewer(testutil.NewRequest(s.T(), http.MethodGet, "/review/queue?q=nobody")))
		testutil.AssertStatusOK(s.T(), rr)
		s.Empty(testutil.UnmarshalResponse[QueueResponse](s.T(), rr).Items)
	})

	s.Run("non reviewer is forbidden", func() {
		rr := testutil.DoRequest(s.router, s.asOwner(testutil.NewRequest(s.T(), http.MethodGet, "/review/queue")))
		testutil.AssertError(s.T(), rr, http.StatusForbidden, dErrors.CodeForbidden)
	})
}
