package admin

//go:generate mockgen -source=handler.go -destination=mocks/admin-mocks.go -package=mocks Queries

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"attest/internal/admin/mocks"
	credmodels "attest/internal/credential/models"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/middleware/auth"
	"attest/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockQueries
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockQueries(ctrl)
	r := chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).RegisterAdmin(r)
	s.router = r
}

func (s *HandlerSuite) post(path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(auth.WithScopes(req.Context(), auth.ScopeIssue))
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) get(path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func (s *HandlerSuite) TestRecentAuditEvents() {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	events := []audit.Event{{
		Timestamp: at,
		ActorID:   testutil.TestIDs.Bob,
		Subject:   "cred-1",
		Action:    string(audit.EventCredentialRevoked),
		Reason:    "plagiarism",
	}, {
		Timestamp: at.Add(-time.Minute),
		Subject:   "cred-1",
		Action:    string(audit.EventCredentialVerified),
	}}

	s.Run("default limit", func() {
		s.service.EXPECT().RecentAuditEvents(gomock.Any(), 0).Return(events, nil)

		rec := s.get("/admin/audit/recent")
		s.Require().Equal(http.StatusOK, rec.Code)

		var body AuditEventsResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.Equal(2, body.Total)
		s.Equal(testutil.TestIDs.Bob.String(), body.Events[0].ActorID)
		s.Equal("plagiarism", body.Events[0].Reason)
		s.Empty(body.Events[1].ActorID, "public verification has no actor")
	})

	s.Run("explicit limit", func() {
		s.service.EXPECT().RecentAuditEvents(gomock.Any(), 10).Return(nil, nil)

		rec := s.get("/admin/audit/recent?limit=10")
		s.Equal(http.StatusOK, rec.Code)
		s.JSONEq(`{"events":[],"total":0}`, rec.Body.String())
	})

	s.Run("bad limit", func() {
		rec := s.get("/admin/audit/recent?limit=abc")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("store failure", func() {
		s.service.EXPECT().RecentAuditEvents(gomock.Any(), 0).Return(nil, errors.New("db down"))

		rec := s.get("/admin/audit/recent")
		s.Equal(http.StatusInternalServerError, rec.Code)
	})
}

func (s *HandlerSuite) TestCredentialAudit() {
	credentialID := id.NewCredentialID()

	s.Run("found", func() {
		s.service.EXPECT().CredentialAuditTrail(gomock.Any(), credentialID).Return([]audit.Event{{
			Subject: credentialID.String(),
			Action:  string(audit.EventCredentialIssued),
		}}, nil)

		rec := s.get("/admin/credentials/" + credentialID.String() + "/audit")
		s.Require().Equal(http.StatusOK, rec.Code)

		var body AuditEventsResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.Require().Len(body.Events, 1)
		s.Equal(credentialID.String(), body.Events[0].Subject)
	})

	s.Run("unknown credential", func() {
		s.service.EXPECT().CredentialAuditTrail(gomock.Any(), credentialID).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "credential not found"))

		rec := s.get("/admin/credentials/" + credentialID.String() + "/audit")
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("invalid id", func() {
		rec := s.get("/admin/credentials/nope/audit")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestRecipientCredentials() {
	expires := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	cred := &credmodels.IssuedCredential{
		ID:         id.NewCredentialID(),
		TemplateID: testutil.TestIDs.PythonBadge,
		IssuerID:   testutil.TestIDs.AcmeAcademy,
		Recipient:  *testutil.Alice(),
		IssuedAt:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		ExpiresAt:  &expires,
		Status:     credmodels.StatusSuspended,
	}

	s.Run("lists holdings", func() {
		s.service.EXPECT().RecipientCredentials(gomock.Any(), testutil.TestIDs.Alice).
			Return([]*credmodels.IssuedCredential{cred}, nil)

		rec := s.get("/admin/users/" + testutil.TestIDs.Alice.String() + "/credentials")
		s.Require().Equal(http.StatusOK, rec.Code)

		var body HoldingsResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.Require().Len(body.Credentials, 1)
		s.Equal("suspended", body.Credentials[0].Status)
		s.Equal(testutil.TestIDs.PythonBadge.String(), body.Credentials[0].TemplateID)
		s.Require().NotNil(body.Credentials[0].ExpiresAt)
		s.True(expires.Equal(*body.Credentials[0].ExpiresAt))
	})

	s.Run("invalid id", func() {
		rec := s.get("/admin/users/x/credentials")
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *HandlerSuite) TestRegisterRecipient() {
	s.Run("created", func() {
		s.service.EXPECT().RegisterRecipient(gomock.Any(), "carol@example.com", "Carol").
			Return(&credmodels.Recipient{ID: testutil.TestIDs.Bob, Email: "carol@example.com", Name: "Carol"}, nil)

		rec := s.post("/admin/recipients", `{"email":"  Carol@Example.com ","name":"Carol"}`)
		s.Require().Equal(http.StatusCreated, rec.Code)

		var body RecipientResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.Equal(testutil.TestIDs.Bob.String(), body.ID)
	})

	s.Run("invalid email", func() {
		rec := s.post("/admin/recipients", `{"email":"not-an-email","name":"Carol"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("missing name", func() {
		rec := s.post("/admin/recipients", `{"email":"carol@example.com"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("token without issue scope", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin/recipients", strings.NewReader(`{"email":"carol@example.com","name":"Carol"}`))
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusForbidden, rec.Code)
	})
}
