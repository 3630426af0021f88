package service

//go:generate mockgen -destination=mocks/ports-mocks.go -package=mocks aip/internal/verification/ports Notarizer,EventPublisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"aip/internal/verification/models"
	"aip/internal/verification/ports"
	"aip/internal/verification/service/mocks"
	checkstore "aip/internal/verification/store/check"
	eventstore "aip/internal/verification/store/event"
	projectstore "aip/internal/verification/store/project"
	requeststore "aip/internal/verification/store/request"
	id "aip/pkg/domain"
	dErrors "aip/pkg/domain-errors"
	"aip/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	notarizer *mocks.MockNotarizer
	publisher *mocks.MockEventPublisher
	projects  *projectstore.InMemoryStore
	service   *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.notarizer = mocks.NewMockNotarizer(s.ctrl)
	s.publisher = mocks.NewMockEventPublisher(s.ctrl)
	s.projects = projectstore.NewInMemory()

	svc, err := New(Stores{
		Projects: s.projects,
		Requests: requeststore.NewInMemory(),
		Checks:   checkstore.NewInMemory(),
		Events:   eventstore.NewInMemory(),
	},
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithNotarizer(s.notarizer),
		WithPublisher(s.publisher),
	)
	s.Require().NoError(err)
	s.service = svc
}

func (s *ServiceSuite) TearDownTest() {
	s.Require().NoError(s.service.Shutdown(context.Background()))
}

func principal(role string) requestcontext.Principal {
	return requestcontext.Principal{
		UserID: id.UserID(uuid.New()),
		OrgID:  id.OrgID(uuid.New()),
		Role:   role,
	}
}

func (s *ServiceSuite) seedProject(level models.Level) id.ProjectID {
	now := time.Now()
	p := &models.Project{
		ID:           id.NewProjectID(),
		SponsorOrgID: id.OrgID(uuid.New()),
		Name:         "Solar Farm " + uuid.NewString()[:8],
		CurrentLevel: level,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Require().NoError(s.projects.Create(context.Background(), p))
	return p.ID
}

func (s *ServiceSuite) projectLevel(projectID id.ProjectID) models.Level {
	p, err := s.projects.FindByID(context.Background(), projectID)
	s.Require().NoError(err)
	return p.CurrentLevel
}

func (s *ServiceSuite) eventTypes(requestID id.RequestID) []models.EventType {
	events, err := s.service.ListEvents(context.Background(), requestID)
	s.Require().NoError(err)
	types := make([]models.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	return types
}

func (s *ServiceSuite) allowPublish() {
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

// expectNotarize returns a channel closed once the background call ran.
func (s *ServiceSuite) expectNotarize(requestID id.RequestID, err error) <-chan ports.NotarizeRequest {
	calls := make(chan ports.NotarizeRequest, 1)
	s.notarizer.EXPECT().
		Notarize(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req ports.NotarizeRequest) (*ports.NotarizeResult, error) {
			s.Equal(requestID, req.ReferenceID)
			calls <- req
			if err != nil {
				return nil, err
			}
			return &ports.NotarizeResult{RecordID: id.NewRecordID(), Status: "pending", TxHash: "0xabc"}, nil
		})
	return calls
}

func (s *ServiceSuite) TestOpen() {
	ctx := context.Background()
	s.allowPublish()

	s.Run("sponsor opens the next level", func() {
		projectID := s.seedProject(models.LevelV0)
		sponsor := principal("sponsor")

		req, err := s.service.Open(ctx, sponsor, projectID, models.LevelV1)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, req.Status)
		s.Equal(models.LevelV0, req.FromLevel)
		s.Equal(models.LevelV1, req.ToLevel)
		s.Equal(sponsor.UserID, req.RequestedBy)
		s.Equal([]models.EventType{models.EventCreated}, s.eventTypes(req.ID))
	})

	s.Run("sponsor cannot skip levels", func() {
		projectID := s.seedProject(models.LevelV0)
		_, err := s.service.Open(ctx, principal("sponsor"), projectID, models.LevelV2)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("verifier may skip levels", func() {
		projectID := s.seedProject(models.LevelV0)
		req, err := s.service.Open(ctx, principal("verifier"), projectID, models.LevelV3)
		s.Require().NoError(err)
		s.Equal(models.LevelV3, req.ToLevel)
	})

	s.Run("target not above current level", func() {
		projectID := s.seedProject(models.LevelV2)
		for _, to := range []models.Level{models.LevelV1, models.LevelV2} {
			_, err := s.service.Open(ctx, principal("verifier"), projectID, to)
			s.Require().Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition), to.String())
		}
	})

	s.Run("out of range level is a validation error", func() {
		projectID := s.seedProject(models.LevelV0)
		_, err := s.service.Open(ctx, principal("verifier"), projectID, models.Level(9))
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown project", func() {
		_, err := s.service.Open(ctx, principal("verifier"), id.NewProjectID(), models.LevelV1)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("role without request permission", func() {
		projectID := s.seedProject(models.LevelV0)
		_, err := s.service.Open(ctx, principal("epc"), projectID, models.LevelV1)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *ServiceSuite) TestApprovalAdvancesLevelAndNotarizes() {
	ctx := context.Background()
	s.allowPublish()
	verifier := principal("verifier")
	projectID := s.seedProject(models.LevelV0)

	req, err := s.service.Open(ctx, verifier, projectID, models.LevelV2)
	s.Require().NoError(err)

	for _, typ := range []models.CheckType{models.CheckIdentity, models.CheckDocument} {
		check, err := s.service.AddCheck(ctx, verifier, req.ID, NewCheckInput{Type: typ, Name: string(typ) + " review"})
		s.Require().NoError(err)
		_, err = s.service.UpdateCheck(ctx, verifier, req.ID, check.ID, models.CheckUpdate{Status: models.CheckPassed})
		s.Require().NoError(err)
	}

	calls := s.expectNotarize(req.ID, nil)
	decided, err := s.service.Decide(ctx, verifier, req.ID, models.DecisionApproved, "all checks passed")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, decided.Status)

	s.Equal(models.LevelV2, s.projectLevel(projectID))
	s.Equal([]models.EventType{models.EventCreated, models.EventApproved}, s.eventTypes(req.ID))

	select {
	case call := <-calls:
		expected, err := DecisionDigest(decided)
		s.Require().NoError(err)
		s.Equal(expected, call.DataHash)
		s.Equal(projectID, call.ProjectID)
	case <-time.After(2 * time.Second):
		s.Fail("notarization was not dispatched")
	}

	got, err := s.service.Get(ctx, req.ID)
	s.Require().NoError(err)
	s.Len(got.Checks, 2)
	for _, c := range got.Checks {
		s.Equal(models.CheckPassed, c.Status)
		s.Equal(verifier.UserID, *c.CheckedBy)
	}
}

func (s *ServiceSuite) TestDecidePermissionDenied() {
	ctx := context.Background()
	s.allowPublish()
	projectID := s.seedProject(models.LevelV1)
	req, err := s.service.Open(ctx, principal("sponsor"), projectID, models.LevelV2)
	s.Require().NoError(err)

	for _, role := range []string{"sponsor", "investor", "partner_verifier", "government", "epc", "unknown"} {
		_, err := s.service.Decide(ctx, principal(role), req.ID, models.DecisionApproved, "")
		s.Require().Error(err, role)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden), role)
	}
	s.Equal(models.LevelV1, s.projectLevel(projectID))

	got, err := s.service.Get(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, got.Status)
}

func (s *ServiceSuite) TestRejectionKeepsLevel() {
	ctx := context.Background()
	s.allowPublish()
	verifier := principal("verifier")
	projectID := s.seedProject(models.LevelV1)
	req, err := s.service.Open(ctx, verifier, projectID, models.LevelV2)
	s.Require().NoError(err)

	decided, err := s.service.Decide(ctx, verifier, req.ID, models.DecisionRejected, "insufficient docs")
	s.Require().NoError(err)
	s.Equal(models.StatusRejected, decided.Status)

	got, err := s.service.Get(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal("insufficient docs", got.DecisionNotes)
	s.Equal(models.DecisionRejected, *got.Decision)
	s.Equal(verifier.UserID, *got.DecidedBy)
	s.NotNil(got.DecidedAt)

	s.Equal(models.LevelV1, s.projectLevel(projectID))
	s.Equal([]models.EventType{models.EventCreated, models.EventRejected}, s.eventTypes(req.ID))
}

func (s *ServiceSuite) TestConcurrentDecisionsHaveOneWinner() {
	ctx := context.Background()
	s.allowPublish()
	projectID := s.seedProject(models.LevelV0)
	req, err := s.service.Open(ctx, principal("verifier"), projectID, models.LevelV1)
	s.Require().NoError(err)
	s.expectNotarize(req.ID, nil)

	const deciders = 20
	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		successes atomic.Int32
		conflicts atomic.Int32
		other     atomic.Int32
	)
	for i := 0; i < deciders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.service.Decide(ctx, principal("verifier"), req.ID, models.DecisionApproved, "")
			switch {
			case err == nil:
				successes.Add(1)
			case dErrors.HasCode(err, dErrors.CodeAlreadyDecided):
				conflicts.Add(1)
			default:
				other.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	s.Equal(int32(1), successes.Load())
	s.Equal(int32(deciders-1), conflicts.Load())
	s.Zero(other.Load())
	s.Equal(models.LevelV1, s.projectLevel(projectID))
	s.Equal([]models.EventType{models.EventCreated, models.EventApproved}, s.eventTypes(req.ID))
}

func (s *ServiceSuite) TestNeedsRevisionIsNotTerminal() {
	ctx := context.Background()
	s.allowPublish()
	verifier := principal("verifier")
	projectID := s.seedProject(models.LevelV0)
	req, err := s.service.Open(ctx, verifier, projectID, models.LevelV1)
	s.Require().NoError(err)

	revised, err := s.service.Decide(ctx, verifier, req.ID, models.DecisionNeedsRevision, "upload the grid permit")
	s.Require().NoError(err)
	s.Equal(models.StatusInReview, revised.Status)
	s.Equal(models.LevelV0, s.projectLevel(projectID))

	// Checks stay writable while the sponsor revises.
	_, err = s.service.AddCheck(ctx, verifier, req.ID, NewCheckInput{Type: models.CheckLegal, Name: "grid permit"})
	s.Require().NoError(err)

	s.expectNotarize(req.ID, nil)
	_, err = s.service.Decide(ctx, verifier, req.ID, models.DecisionApproved, "")
	s.Require().NoError(err)
	s.Equal(models.LevelV1, s.projectLevel(projectID))
	s.Equal([]models.EventType{models.EventCreated, models.EventNeedsRevision, models.EventApproved}, s.eventTypes(req.ID))
}

func (s *ServiceSuite) TestDecideValidation() {
	ctx := context.Background()
	s.allowPublish()
	verifier := principal("verifier")

	s.Run("unknown decision", func() {
		projectID := s.seedProject(models.LevelV0)
		req, err := s.service.Open(ctx, verifier, projectID, models.LevelV1)
		s.Require().NoError(err)
		_, err = s.service.Decide(ctx, verifier, req.ID, models.Decision("maybe"), "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown request", func() {
		_, err := s.service.Decide(ctx, verifier, id.NewRequestID(), models.DecisionRejected, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("second decision after rejection", func() {
		projectID := s.seedProject(models.LevelV0)
		req, err := s.service.Open(ctx, verifier, projectID, models.LevelV1)
		s.Require().NoError(err)
		_, err = s.service.Decide(ctx, verifier, req.ID, models.DecisionRejected, "")
		s.Require().NoError(err)
		_, err = s.service.Decide(ctx, verifier, req.ID, models.DecisionRejected, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeAlreadyDecided))
	})
}

func (s *ServiceSuite) TestLevelNeverRegresses() {
	ctx := context.Background()
	s.allowPublish()
	verifier := principal("verifier")
	projectID := s.seedProject(models.LevelV0)

	toV1, err := s.service.Open(ctx, verifier, projectID, models.LevelV1)
	s.Require().NoError(err)
	toV3, err := s.service.Open(ctx, verifier, projectID, models.LevelV3)
	s.Require().NoError(err)

	s.expectNotarize(toV3.ID, nil)
	_, err = s.service.Decide(ctx, verifier, toV3.ID, models.DecisionApproved, "")
	s.Require().NoError(err)
	s.Equal(models.LevelV3, s.projectLevel(projectID))

	_, err = s.service.Decide(ctx, verifier, toV1.ID, models.DecisionApproved, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	s.Equal(models.LevelV3, s.projectLevel(projectID))

	// The stale request can still be closed out.
	stale, err := s.service.Get(ctx, toV1.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stale.Status)
	_, err = s.service.Decide(ctx, verifier, toV1.ID, models.DecisionRejected, "superseded")
	s.Require().NoError(err)
	s.Equal(models.LevelV3, s.projectLevel(projectID))
}

func (s *ServiceSuite) TestNotarizationFailureDoesNotFailDecision() {
	ctx := context.Background()
	s.allowPublish()
	verifier := principal("verifier")
	projectID := s.seedProject(models.LevelV0)
	req, err := s.service.Open(ctx, verifier, projectID, models.LevelV1)
	s.Require().NoError(err)

	s.expectNotarize(req.ID, errors.New("record store down"))
	decided, err := s.service.Decide(ctx, verifier, req.ID, models.DecisionApproved, "")
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, decided.Status)
	s.Require().NoError(s.service.Shutdown(ctx))
	s.Equal(models.LevelV1, s.projectLevel(projectID))
}

func (s *ServiceSuite) TestPublishFailureDoesNotFailOperations() {
	ctx := context.Background()
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(errors.New("broker down")).AnyTimes()
	verifier := principal("verifier")
	projectID := s.seedProject(models.LevelV0)

	req, err := s.service.Open(ctx, verifier, projectID, models.LevelV1)
	s.Require().NoError(err)
	_, err = s.service.Decide(ctx, verifier, req.ID, models.DecisionRejected, "")
	s.Require().NoError(err)
}

func (s *ServiceSuite) TestPublishesCommittedEvents() {
	ctx := context.Background()
	verifier := principal("verifier")
	projectID := s.seedProject(models.LevelV0)

	var (
		mu        sync.Mutex
		published []models.EventType
	)
	s.publisher.EXPECT().Publish(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e *models.Event) error {
		mu.Lock()
		defer mu.Unlock()
		published = append(published, e.Type)
		return nil
	}).Times(3)

	req, err := s.service.Open(ctx, verifier, projectID, models.LevelV1)
	s.Require().NoError(err)
	_, err = s.service.Assign(ctx, verifier, req.ID, id.UserID(uuid.New()), nil)
	s.Require().NoError(err)
	_, err = s.service.Decide(ctx, verifier, req.ID, models.DecisionRejected, "")
	s.Require().NoError(err)

	// A failed decision publishes nothing.
	_, err = s.service.Decide(ctx, verifier, req.ID, models.DecisionRejected, "")
	s.Require().Error(err)

	s.Equal([]models.EventType{models.EventCreated, models.EventAssigned, models.EventRejected}, published)
}

func (s *ServiceSuite) TestAssign() {
	ctx := context.Background()
	s.allowPublish()
	verifier := principal("verifier")
	projectID := s.seedProject(models.LevelV0)
	req, err := s.service.Open(ctx, principal("sponsor"), projectID, models.LevelV1)
	s.Require().NoError(err)

	s.Run("sponsor cannot assign", func() {
		_, err := s.service.Assign(ctx, principal("sponsor"), req.ID, verifier.UserID, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("assignee is required", func() {
		_, err := s.service.Assign(ctx, verifier, req.ID, id.UserID(uuid.Nil), nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("moves pending into review", func() {
		org := id.OrgID(uuid.New())
		assigned, err := s.service.Assign(ctx, verifier, req.ID, verifier.UserID, &org)
		s.Require().NoError(err)
		s.Equal(models.StatusInReview, assigned.Status)
		s.Equal(verifier.UserID, *assigned.AssignedTo)
		s.Equal(org, *assigned.AssignedOrgID)
	})

	s.Run("finalized request cannot be reassigned", func() {
		_, err := s.service.Decide(ctx, verifier, req.ID, models.DecisionRejected, "")
		s.Require().NoError(err)
		_, err = s.service.Assign(ctx, verifier, req.ID, verifier.UserID, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeRequestFinalized))
	})

	s.Equal([]models.EventType{models.EventCreated, models.EventAssigned, models.EventRejected}, s.eventTypes(req.ID))
}

func (s *ServiceSuite) TestChecks() {
	ctx := context.Background()
	s.allowPublish()
	verifier := principal("verifier")
	projectID := s.seedProject(models.LevelV0)
	req, err := s.service.Open(ctx, verifier, projectID, models.LevelV1)
	s.Require().NoError(err)

	s.Run("sponsor cannot add checks", func() {
		_, err := s.service.AddCheck(ctx, principal("sponsor"), req.ID, NewCheckInput{Type: models.CheckIdentity, Name: "kyc"})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("partner verifier adds an automated check", func() {
		check, err := s.service.AddCheck(ctx, principal("partner_verifier"), req.ID, NewCheckInput{
			Type:             models.CheckFinancial,
			Name:             "  credit score  ",
			IsAutomated:      true,
			AutomationSource: "bureau-api",
		})
		s.Require().NoError(err)
		s.Equal("credit score", check.Name)
		s.Equal(models.CheckPending, check.Status)
		s.True(check.IsAutomated)
	})

	s.Run("invalid type and empty name", func() {
		_, err := s.service.AddCheck(ctx, verifier, req.ID, NewCheckInput{Type: "astrology", Name: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.service.AddCheck(ctx, verifier, req.ID, NewCheckInput{Type: models.CheckESG, Name: "   "})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	check, err := s.service.AddCheck(ctx, verifier, req.ID, NewCheckInput{Type: models.CheckTechnical, Name: "inverter audit"})
	s.Require().NoError(err)

	s.Run("score out of range", func() {
		score := 101
		_, err := s.service.UpdateCheck(ctx, verifier, req.ID, check.ID, models.CheckUpdate{Status: models.CheckPassed, Score: &score})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("pending is not a result", func() {
		_, err := s.service.UpdateCheck(ctx, verifier, req.ID, check.ID, models.CheckUpdate{Status: models.CheckPending})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown check", func() {
		_, err := s.service.UpdateCheck(ctx, verifier, req.ID, id.NewCheckID(), models.CheckUpdate{Status: models.CheckFailed})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("records the result without touching the request", func() {
		score, notes := 87, "grid study complete"
		updated, err := s.service.UpdateCheck(ctx, verifier, req.ID, check.ID, models.CheckUpdate{
			Status:   models.CheckFailed,
			Score:    &score,
			Notes:    &notes,
			Evidence: map[string]any{"report": "s3://audits/inv.pdf"},
		})
		s.Require().NoError(err)
		s.Equal(models.CheckFailed, updated.Status)
		s.Equal(87, *updated.Score)
		s.Equal("grid study complete", updated.Notes)

		got, err := s.service.Get(ctx, req.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusPending, got.Status)
	})

	s.Run("checks are read-only after a decision", func() {
		_, err := s.service.Decide(ctx, verifier, req.ID, models.DecisionRejected, "")
		s.Require().NoError(err)

		_, err = s.service.AddCheck(ctx, verifier, req.ID, NewCheckInput{Type: models.CheckLegal, Name: "late"})
		s.True(dErrors.HasCode(err, dErrors.CodeRequestFinalized))
		_, err = s.service.UpdateCheck(ctx, verifier, req.ID, check.ID, models.CheckUpdate{Status: models.CheckPassed})
		s.True(dErrors.HasCode(err, dErrors.CodeRequestFinalized))
	})
}

func (s *ServiceSuite) TestEventsAreOrderedAndClamped() {
	s.allowPublish()
	verifier := principal("verifier")
	projectID := s.seedProject(models.LevelV0)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	req, err := s.service.Open(requestcontext.WithTime(context.Background(), base), verifier, projectID, models.LevelV1)
	s.Require().NoError(err)

	// A skewed clock must not place an event before the request's creation.
	skewed := requestcontext.WithTime(context.Background(), base.Add(-time.Hour))
	_, err = s.service.AppendEvent(skewed, verifier, req.ID, models.EventAssigned, "manual note", nil)
	s.Require().NoError(err)
	_, err = s.service.AppendEvent(requestcontext.WithTime(context.Background(), base.Add(time.Minute)), verifier, req.ID, models.EventAssigned, "later note", nil)
	s.Require().NoError(err)

	events, err := s.service.ListEvents(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal(models.EventCreated, events[0].Type)
	s.Equal("manual note", events[1].Description)
	s.Equal("later note", events[2].Description)
	for i := 1; i < len(events); i++ {
		s.False(events[i].CreatedAt.Before(events[i-1].CreatedAt))
	}
	s.Equal(base, events[1].CreatedAt)

	_, err = s.service.AppendEvent(context.Background(), verifier, id.NewRequestID(), models.EventAssigned, "", nil)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	_, err = s.service.ListEvents(context.Background(), id.NewRequestID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestAppendEventRejectsUnknownType() {
	s.allowPublish()
	verifier := principal("verifier")
	req, err := s.service.Open(context.Background(), verifier, s.seedProject(models.LevelV0), models.LevelV1)
	s.Require().NoError(err)

	_, err = s.service.AppendEvent(context.Background(), verifier, req.ID, models.EventType("document_uploaded"), "site survey uploaded", nil)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	events, err := s.service.ListEvents(context.Background(), req.ID)
	s.Require().NoError(err)
	s.Len(events, 1, "nothing appended")
}

func (s *ServiceSuite) TestAppendEventLeavesCallerMetadataUntouched() {
	s.allowPublish()
	verifier := principal("verifier")
	req, err := s.service.Open(context.Background(), verifier, s.seedProject(models.LevelV0), models.LevelV1)
	s.Require().NoError(err)

	ctx := requestcontext.WithClient(context.Background(), "Firefox on Linux")
	metadata := map[string]any{"site": "north-array"}
	event, err := s.service.AppendEvent(ctx, verifier, req.ID, models.EventAssigned, "field visit", metadata)
	s.Require().NoError(err)

	s.Equal(map[string]any{"site": "north-array"}, metadata)
	s.Equal("Firefox on Linux", event.Metadata["client"])
	s.Equal("north-array", event.Metadata["site"])
}

func (s *ServiceSuite) TestClientMetadataOnEvents() {
	s.allowPublish()
	projectID := s.seedProject(models.LevelV0)
	ctx := requestcontext.WithClient(context.Background(), "Chrome on macOS")

	req, err := s.service.Open(ctx, principal("sponsor"), projectID, models.LevelV1)
	s.Require().NoError(err)
	events, err := s.service.ListEvents(ctx, req.ID)
	s.Require().NoError(err)
	s.Equal("Chrome on macOS", events[0].Metadata["client"])
	s.Equal("V1", events[0].Metadata["to_level"])
}

func (s *ServiceSuite) TestList() {
	ctx := context.Background()
	s.allowPublish()
	verifier := principal("verifier")
	first := s.seedProject(models.LevelV0)
	second := s.seedProject(models.LevelV0)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	a, err := s.service.Open(requestcontext.WithTime(ctx, base), verifier, first, models.LevelV1)
	s.Require().NoError(err)
	b, err := s.service.Open(requestcontext.WithTime(ctx, base.Add(time.Hour)), verifier, first, models.LevelV2)
	s.Require().NoError(err)
	_, err = s.service.Open(ctx, verifier, second, models.LevelV1)
	s.Require().NoError(err)
	_, err = s.service.Decide(ctx, verifier, a.ID, models.DecisionRejected, "")
	s.Require().NoError(err)

	byProject, err := s.service.List(ctx, models.ListFilter{ProjectID: &first})
	s.Require().NoError(err)
	s.Require().Len(byProject, 2)
	s.Equal(b.ID, byProject[0].ID)
	s.Equal(a.ID, byProject[1].ID)

	rejected := models.StatusRejected
	byStatus, err := s.service.List(ctx, models.ListFilter{Status: &rejected})
	s.Require().NoError(err)
	s.Require().Len(byStatus, 1)
	s.Equal(a.ID, byStatus[0].ID)
}

func (s *ServiceSuite) TestRenotarize() {
	ctx := context.Background()
	s.allowPublish()
	verifier := principal("verifier")
	projectID := s.seedProject(models.LevelV0)
	req, err := s.service.Open(ctx, verifier, projectID, models.LevelV1)
	s.Require().NoError(err)

	s.Run("request must be approved", func() {
		_, err := s.service.Renotarize(ctx, verifier, req.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.expectNotarize(req.ID, nil)
	decided, err := s.service.Decide(ctx, verifier, req.ID, models.DecisionApproved, "")
	s.Require().NoError(err)
	s.Require().NoError(s.service.Shutdown(ctx))

	s.Run("sponsor cannot anchor", func() {
		_, err := s.service.Renotarize(ctx, principal("sponsor"), req.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("resubmits the same digest", func() {
		digest, err := DecisionDigest(decided)
		s.Require().NoError(err)
		s.notarizer.EXPECT().Notarize(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, in ports.NotarizeRequest) (*ports.NotarizeResult, error) {
				s.Equal(digest, in.DataHash)
				return &ports.NotarizeResult{RecordID: id.NewRecordID(), Status: "failed"}, nil
			})
		res, err := s.service.Renotarize(ctx, verifier, req.ID)
		s.Require().NoError(err)
		s.Equal("failed", res.Status)
	})
}

func (s *ServiceSuite) TestShutdownSkipsNewNotarizations() {
	ctx := context.Background()
	s.allowPublish()
	verifier := principal("verifier")
	projectID := s.seedProject(models.LevelV0)
	req, err := s.service.Open(ctx, verifier, projectID, models.LevelV1)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Shutdown(ctx))
	// No Notarize expectation: gomock fails the test if it is called.
	_, err = s.service.Decide(ctx, verifier, req.ID, models.DecisionApproved, "")
	s.Require().NoError(err)
	s.Equal(models.LevelV1, s.projectLevel(projectID))
}

func TestNewRequiresStores(t *testing.T) {
	_, err := New(Stores{})
	if err == nil {
		t.Fatal("expected error for missing stores")
	}
}
