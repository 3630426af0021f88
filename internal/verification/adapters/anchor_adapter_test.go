package adapters_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aip/internal/anchor/chain"
	"aip/internal/anchor/chain/chaintest"
	anchormodels "aip/internal/anchor/models"
	anchorservice "aip/internal/anchor/service"
	"aip/internal/anchor/store/record"
	"aip/internal/verification/adapters"
	"aip/internal/verification/models"
	"aip/internal/verification/service"
	checkstore "aip/internal/verification/store/check"
	eventstore "aip/internal/verification/store/event"
	projectstore "aip/internal/verification/store/project"
	requeststore "aip/internal/verification/store/request"
	id "aip/pkg/domain"
	"aip/pkg/requestcontext"
)

const (
	fromAddr     = "0x1111111111111111111111111111111111111111"
	contractAddr = "0x2222222222222222222222222222222222222222"
)

type harness struct {
	projects *projectstore.InMemoryStore
	records  *record.InMemoryStore
	workflow *service.Service
	anchor   *anchorservice.Service
}

func newHarness(t *testing.T, rpcURL string) *harness {
	t.Helper()
	h := &harness{
		projects: projectstore.NewInMemory(),
		records:  record.NewInMemory(),
	}
	anchor, err := anchorservice.New(h.records, chain.NewClient(rpcURL, 200*time.Millisecond), anchorservice.Config{
		ChainID:         137,
		ChainName:       "polygon",
		ContractAddress: contractAddr,
		FromAddress:     fromAddr,
		Confirmations:   1,
	})
	require.NoError(t, err)
	h.anchor = anchor

	workflow, err := service.New(service.Stores{
		Projects: h.projects,
		Requests: requeststore.NewInMemory(),
		Checks:   checkstore.NewInMemory(),
		Events:   eventstore.NewInMemory(),
	}, service.WithNotarizer(adapters.NewAnchorAdapter(anchor)))
	require.NoError(t, err)
	h.workflow = workflow
	return h
}

func (h *harness) approve(t *testing.T) (id.ProjectID, *models.Request) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()
	project := &models.Project{
		ID:           id.NewProjectID(),
		SponsorOrgID: id.OrgID(uuid.New()),
		Name:         "Wind Park",
		CurrentLevel: models.LevelV0,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, h.projects.Create(ctx, project))

	verifier := requestcontext.Principal{UserID: id.UserID(uuid.New()), Role: "verifier"}
	req, err := h.workflow.Open(ctx, verifier, project.ID, models.LevelV1)
	require.NoError(t, err)
	decided, err := h.workflow.Decide(ctx, verifier, req.ID, models.DecisionApproved, "ok")
	require.NoError(t, err)
	// Shutdown waits for the background notarization.
	require.NoError(t, h.workflow.Shutdown(ctx))
	return project.ID, decided
}

func TestApprovalSurvivesUnreachableChain(t *testing.T) {
	h := newHarness(t, "http://127.0.0.1:1")
	projectID, decided := h.approve(t)

	assert.Equal(t, models.StatusApproved, decided.Status)
	project, err := h.projects.FindByID(context.Background(), projectID)
	require.NoError(t, err)
	assert.Equal(t, models.LevelV1, project.CurrentLevel)

	records, err := h.anchor.ListByReference(context.Background(), decided.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, anchormodels.StatusFailed, records[0].Status)
	assert.NotEmpty(t, records[0].LastError)
}

func TestApprovalIsAnchoredAndConfirmed(t *testing.T) {
	node := chaintest.NewNode(t)
	h := newHarness(t, node.URL())
	_, decided := h.approve(t)

	records, err := h.anchor.ListByReference(context.Background(), decided.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	rec := records[0]
	require.Equal(t, anchormodels.StatusPending, rec.Status)

	digest, err := service.DecisionDigest(decided)
	require.NoError(t, err)
	assert.Equal(t, digest, rec.DataHash)

	node.Mine(rec.TxHash, 100, false)
	res, err := h.anchor.ReconcileOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Confirmed)
}
