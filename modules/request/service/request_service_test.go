package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"tripfluence-api/core/audit"
	"tripfluence-api/core/errors"
	"tripfluence-api/core/middleware"
	"tripfluence-api/modules/request/dto"
	"tripfluence-api/modules/request/entity"
	spaceentity "tripfluence-api/modules/space/entity"
	spacesvc "tripfluence-api/modules/space/service"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===================== Fakes =====================

type fakeDB struct{}

func (f *fakeDB) ExecContext(ctx context.Context, query string, args ...any) error    { return nil }
func (f *fakeDB) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return sql.ErrNoRows
}
func (f *fakeDB) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return nil
}
func (f *fakeDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return nil
}
func (f *fakeDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return nil, nil
}
func (f *fakeDB) NamedQueryContext(ctx context.Context, query string, arg any) (*sqlx.Rows, error) {
	return nil, nil
}
func (f *fakeDB) NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error) {
	return nil, nil
}
func (f *fakeDB) Transact(ctx context.Context, fn func(tx *sqlx.Tx) error) error { return fn(nil) }
func (f *fakeDB) SQLx() *sqlx.DB                                                 { return nil }

type fakeLocker struct {
	denied bool
}

func (f *fakeLocker) AcquireSpaceLock(ctx context.Context, spaceID uuid.UUID) (bool, error) {
	return !f.denied, nil
}
func (f *fakeLocker) ReleaseSpaceLock(ctx context.Context, spaceID uuid.UUID) {}

type fakeScheduler struct {
	scheduled []string
	delays    []time.Duration
}

func (f *fakeScheduler) Schedule(ctx context.Context, taskType string, payload any, delay time.Duration) (string, error) {
	f.scheduled = append(f.scheduled, taskType)
	f.delays = append(f.delays, delay)
	return "task-1", nil
}

type fakeDispatcher struct {
	events []string
}

func (f *fakeDispatcher) Trigger(ctx context.Context, eventName string, payload any, tenantID uuid.UUID) {
	f.events = append(f.events, eventName)
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*entity.SpaceRequest
	messages []entity.SpaceMessage
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[uuid.UUID]*entity.SpaceRequest)}
}

func (f *fakeRequestRepo) CreateRequestTx(tx *sqlx.Tx, request *entity.SpaceRequest) (*entity.SpaceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *request
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now().UTC()
	f.requests[stored.ID] = &stored
	copied := stored
	return &copied, nil
}

func (f *fakeRequestRepo) GetRequestByID(ctx context.Context, id uuid.UUID) (*entity.SpaceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	copied := *request
	return &copied, nil
}

func (f *fakeRequestRepo) GetRequestsBySpace(ctx context.Context, spaceID uuid.UUID, limit, offset int) ([]entity.SpaceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []entity.SpaceRequest
	for _, request := range f.requests {
		if request.SpaceID == spaceID {
			result = append(result, *request)
		}
	}
	return result, nil
}

func (f *fakeRequestRepo) CountRequestsBySpace(ctx context.Context, spaceID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, request := range f.requests {
		if request.SpaceID == spaceID {
			count++
		}
	}
	return count, nil
}

func (f *fakeRequestRepo) GetRequestsByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]entity.SpaceRequest, error) {
	return nil, nil
}

func (f *fakeRequestRepo) CountOverlappingTx(tx *sqlx.Tx, spaceID uuid.UUID, start, end time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, request := range f.requests {
		if request.SpaceID == spaceID && !request.Status.IsTerminal() &&
			spacesvc.Overlaps(start, end, request.StartAt, request.EndAt) {
			count++
		}
	}
	return count, nil
}

func (f *fakeRequestRepo) transition(id uuid.UUID, from []entity.RequestStatus, to entity.RequestStatus, setHoldExpiresAt *time.Time, cancelReason, cancelledBy *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	request, ok := f.requests[id]
	if !ok {
		return false, nil
	}
	matched := false
	for _, status := range from {
		if request.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}
	request.Status = to
	if setHoldExpiresAt != nil {
		request.HoldExpiresAt = setHoldExpiresAt
	}
	if cancelReason != nil {
		request.CancelReason = cancelReason
	}
	if cancelledBy != nil {
		request.CancelledBy = cancelledBy
	}
	return true, nil
}

func (f *fakeRequestRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from []entity.RequestStatus, to entity.RequestStatus, setHoldExpiresAt *time.Time, cancelReason, cancelledBy *string) (bool, error) {
	return f.transition(id, from, to, setHoldExpiresAt, cancelReason, cancelledBy)
}

func (f *fakeRequestRepo) TransitionStatusTx(tx *sqlx.Tx, id uuid.UUID, from []entity.RequestStatus, to entity.RequestStatus, setHoldExpiresAt *time.Time, cancelReason, cancelledBy *string) (bool, error) {
	return f.transition(id, from, to, setHoldExpiresAt, cancelReason, cancelledBy)
}

func (f *fakeRequestRepo) AddMessage(ctx context.Context, message *entity.SpaceMessage) (*entity.SpaceMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := *message
	stored.ID = uuid.New()
	stored.CreatedAt = time.Now().UTC()
	f.messages = append(f.messages, stored)
	copied := stored
	return &copied, nil
}

func (f *fakeRequestRepo) GetMessagesByRequest(ctx context.Context, requestID uuid.UUID) ([]entity.SpaceMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []entity.SpaceMessage
	for _, message := range f.messages {
		if message.RequestID == requestID {
			result = append(result, message)
		}
	}
	return result, nil
}

type fakeSpaceRepo struct {
	spaces map[uuid.UUID]*spaceentity.Space
	rules  map[uuid.UUID][]spaceentity.PricingRule
	blocks map[uuid.UUID][]spaceentity.AvailabilityBlock
}

func newFakeSpaceRepo() *fakeSpaceRepo {
	return &fakeSpaceRepo{
		spaces: make(map[uuid.UUID]*spaceentity.Space),
		rules:  make(map[uuid.UUID][]spaceentity.PricingRule),
		blocks: make(map[uuid.UUID][]spaceentity.AvailabilityBlock),
	}
}

func (f *fakeSpaceRepo) CreateSpace(ctx context.Context, space *spaceentity.Space) (*spaceentity.Space, error) {
	return space, nil
}

func (f *fakeSpaceRepo) GetSpaceByID(ctx context.Context, id uuid.UUID) (*spaceentity.Space, error) {
	space, ok := f.spaces[id]
	if !ok {
		return nil, nil
	}
	return space, nil
}

func (f *fakeSpaceRepo) GetSpacesByTenant(ctx context.Context, tenantID uuid.UUID) ([]spaceentity.Space, error) {
	return nil, nil
}

func (f *fakeSpaceRepo) UpdateSpaceStatus(ctx context.Context, id uuid.UUID, status spaceentity.SpaceStatus) error {
	return nil
}

func (f *fakeSpaceRepo) CreatePricingRule(ctx context.Context, rule *spaceentity.PricingRule) (*spaceentity.PricingRule, error) {
	return rule, nil
}

func (f *fakeSpaceRepo) GetPricingRulesBySpace(ctx context.Context, spaceID uuid.UUID) ([]spaceentity.PricingRule, error) {
	return f.rules[spaceID], nil
}

func (f *fakeSpaceRepo) CountPricingRulesByKind(ctx context.Context, spaceID uuid.UUID, kind spaceentity.PricingRuleKind) (int, error) {
	return 0, nil
}

func (f *fakeSpaceRepo) DeletePricingRule(ctx context.Context, spaceID uuid.UUID, ruleID uuid.UUID) error {
	return nil
}

func (f *fakeSpaceRepo) CreateBlockTx(tx *sqlx.Tx, block *spaceentity.AvailabilityBlock) (*spaceentity.AvailabilityBlock, error) {
	return block, nil
}

func (f *fakeSpaceRepo) GetBlocksBySpace(ctx context.Context, spaceID uuid.UUID) ([]spaceentity.AvailabilityBlock, error) {
	return f.blocks[spaceID], nil
}

func (f *fakeSpaceRepo) CountOverlappingBlocksTx(tx *sqlx.Tx, spaceID uuid.UUID, block *spaceentity.AvailabilityBlock) (int, error) {
	return 0, nil
}

func (f *fakeSpaceRepo) LockSpaceTx(tx *sqlx.Tx, spaceID uuid.UUID) error { return nil }

// ===================== Fixture =====================

type fixture struct {
	svc       RequestServiceInterface
	repo      *fakeRequestRepo
	spaces    *fakeSpaceRepo
	scheduler *fakeScheduler
	events    *fakeDispatcher
	spaceID   uuid.UUID
	tenantID  uuid.UUID
	organizer *middleware.Actor
	business  *middleware.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := newFakeRequestRepo()
	spaces := newFakeSpaceRepo()
	scheduler := &fakeScheduler{}
	events := &fakeDispatcher{}
	db := &fakeDB{}

	tenantID := uuid.New()
	spaceID := uuid.New()
	spaces.spaces[spaceID] = &spaceentity.Space{
		TenantID: tenantID,
		Title:    "Loft on 5th",
		Capacity: 20,
		Status:   spaceentity.SpaceStatusPublished,
	}
	spaces.spaces[spaceID].ID = spaceID
	spaces.rules[spaceID] = []spaceentity.PricingRule{
		{Kind: spaceentity.RuleKindHourly, AmountCents: 2000, Currency: "USD"},
	}

	svc := NewRequestService(repo, spaces, db, &fakeLocker{}, scheduler, audit.NewLogger(db), events)

	return &fixture{
		svc:       svc,
		repo:      repo,
		spaces:    spaces,
		scheduler: scheduler,
		events:    events,
		spaceID:   spaceID,
		tenantID:  tenantID,
		organizer: &middleware.Actor{UserID: uuid.New(), Role: middleware.RoleOrganizer},
		business:  &middleware.Actor{UserID: uuid.New(), TenantID: tenantID, Role: middleware.RoleAdmin},
	}
}

func (f *fixture) create(t *testing.T, startHour, hours, attendees int) (uuid.UUID, *dto.RequestResponse) {
	t.Helper()
	start := time.Date(2026, 10, 7, startHour, 0, 0, 0, time.UTC)
	end := start.Add(time.Duration(hours) * time.Hour)

	response, appErr := f.svc.Create(context.Background(), f.organizer, &dto.CreateRequestRequest{
		SpaceID:   f.spaceID.String(),
		StartAt:   start.Format(time.RFC3339),
		EndAt:     end.Format(time.RFC3339),
		Attendees: attendees,
	})
	require.Nil(t, appErr)
	return uuid.MustParse(response.ID), response
}

// ===================== Tests =====================

func TestCreateRequestPending(t *testing.T) {
	f := newFixture(t)

	_, response := f.create(t, 9, 3, 10)

	assert.Equal(t, string(entity.StatusPending), response.Status)
	assert.Equal(t, int64(6000), response.QuoteAmountCents)
	assert.Equal(t, "USD", response.QuoteCurrency)
	assert.Contains(t, f.events.events, "space_request.created")
}

func TestCreateRequestRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	f.create(t, 9, 3, 10)

	start := time.Date(2026, 10, 7, 10, 0, 0, 0, time.UTC)
	_, appErr := f.svc.Create(context.Background(), f.organizer, &dto.CreateRequestRequest{
		SpaceID:   f.spaceID.String(),
		StartAt:   start.Format(time.RFC3339),
		EndAt:     start.Add(2 * time.Hour).Format(time.RFC3339),
		Attendees: 5,
	})
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrConflict, appErr.Code)
}

func TestCreateRequestAcceptsAdjacentWindow(t *testing.T) {
	f := newFixture(t)
	f.create(t, 9, 3, 10)

	// [12,14) right after [9,12) is not a conflict.
	f.create(t, 12, 2, 10)
}

func TestCreateRequestCapacityExceeded(t *testing.T) {
	f := newFixture(t)

	start := time.Date(2026, 10, 7, 9, 0, 0, 0, time.UTC)
	_, appErr := f.svc.Create(context.Background(), f.organizer, &dto.CreateRequestRequest{
		SpaceID:   f.spaceID.String(),
		StartAt:   start.Format(time.RFC3339),
		EndAt:     start.Add(time.Hour).Format(time.RFC3339),
		Attendees: 21,
	})
	require.NotNil(t, appErr)
	assert.Contains(t, appErr.Message, "20")
	assert.Contains(t, appErr.Message, "21")
}

func TestCreateRequestUnpublishedSpace(t *testing.T) {
	f := newFixture(t)
	f.spaces.spaces[f.spaceID].Status = spaceentity.SpaceStatusDraft

	start := time.Date(2026, 10, 7, 9, 0, 0, 0, time.UTC)
	_, appErr := f.svc.Create(context.Background(), f.organizer, &dto.CreateRequestRequest{
		SpaceID:   f.spaceID.String(),
		StartAt:   start.Format(time.RFC3339),
		EndAt:     start.Add(time.Hour).Format(time.RFC3339),
		Attendees: 5,
	})
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
}

func TestApproveSchedulesHoldExpiry(t *testing.T) {
	f := newFixture(t)
	createdID, _ := f.create(t, 9, 3, 10)

	response, appErr := f.svc.Approve(context.Background(), f.business, createdID)
	require.Nil(t, appErr)

	assert.Equal(t, string(entity.StatusNeedsPayment), response.Status)
	require.NotNil(t, response.HoldExpiresAt)
	require.Len(t, f.scheduler.scheduled, 1)
	assert.Equal(t, 24*time.Hour, f.scheduler.delays[0])
}

func TestApproveRejectsNonPending(t *testing.T) {
	f := newFixture(t)
	createdID, _ := f.create(t, 9, 3, 10)

	_, appErr := f.svc.Approve(context.Background(), f.business, createdID)
	require.Nil(t, appErr)

	_, appErr = f.svc.Approve(context.Background(), f.business, createdID)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrConflict, appErr.Code)
}

func TestApproveRequiresBusinessUser(t *testing.T) {
	f := newFixture(t)
	createdID, _ := f.create(t, 9, 3, 10)

	_, appErr := f.svc.Approve(context.Background(), f.organizer, createdID)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrForbidden, appErr.Code)
}

func TestConfirmPaymentReachesConfirmed(t *testing.T) {
	f := newFixture(t)
	createdID, _ := f.create(t, 9, 3, 10)
	_, appErr := f.svc.Approve(context.Background(), f.business, createdID)
	require.Nil(t, appErr)

	response, appErr := f.svc.ConfirmPayment(context.Background(), createdID)
	require.Nil(t, appErr)
	assert.Equal(t, string(entity.StatusConfirmed), response.Status)
	assert.Contains(t, f.events.events, "space_request.confirmed")
}

func TestConfirmPaymentRejectsWrongStatus(t *testing.T) {
	f := newFixture(t)
	createdID, _ := f.create(t, 9, 3, 10)

	_, appErr := f.svc.ConfirmPayment(context.Background(), createdID)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrConflict, appErr.Code)
}

func TestCancelByOrganizer(t *testing.T) {
	f := newFixture(t)
	createdID, _ := f.create(t, 9, 3, 10)

	response, appErr := f.svc.Cancel(context.Background(), f.organizer, createdID, "change of plans")
	require.Nil(t, appErr)

	assert.Equal(t, string(entity.StatusCancelled), response.Status)
	require.NotNil(t, response.CancelledBy)
	assert.Equal(t, entity.ActorTypeOrganizer, *response.CancelledBy)
}

func TestCancelGuardsTerminalStates(t *testing.T) {
	f := newFixture(t)
	createdID, _ := f.create(t, 9, 3, 10)
	_, appErr := f.svc.Approve(context.Background(), f.business, createdID)
	require.Nil(t, appErr)
	_, appErr = f.svc.ConfirmPayment(context.Background(), createdID)
	require.Nil(t, appErr)

	_, appErr = f.svc.Cancel(context.Background(), f.business, createdID, "too late")
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrConflict, appErr.Code)
}

func TestExpireHoldCancelsUnpaid(t *testing.T) {
	f := newFixture(t)
	createdID, _ := f.create(t, 9, 3, 10)
	_, appErr := f.svc.Approve(context.Background(), f.business, createdID)
	require.Nil(t, appErr)

	require.NoError(t, f.svc.ExpireHold(context.Background(), createdID))

	request, err := f.repo.GetRequestByID(context.Background(), createdID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, request.Status)
	require.NotNil(t, request.CancelReason)
	assert.Equal(t, entity.CancelReasonHoldExpired, *request.CancelReason)
	assert.Contains(t, f.events.events, "space_request.hold_expired")
}

func TestExpireHoldNoOpAfterPayment(t *testing.T) {
	f := newFixture(t)
	createdID, _ := f.create(t, 9, 3, 10)
	_, appErr := f.svc.Approve(context.Background(), f.business, createdID)
	require.Nil(t, appErr)
	_, appErr = f.svc.ConfirmPayment(context.Background(), createdID)
	require.Nil(t, appErr)

	require.NoError(t, f.svc.ExpireHold(context.Background(), createdID))

	request, err := f.repo.GetRequestByID(context.Background(), createdID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusConfirmed, request.Status, "expiry firing after payment must not touch a confirmed request")
}

func TestExpireHoldIdempotent(t *testing.T) {
	f := newFixture(t)
	createdID, _ := f.create(t, 9, 3, 10)
	_, appErr := f.svc.Approve(context.Background(), f.business, createdID)
	require.Nil(t, appErr)

	require.NoError(t, f.svc.ExpireHold(context.Background(), createdID))
	require.NoError(t, f.svc.ExpireHold(context.Background(), createdID))
}

func TestMessagesOrderedThread(t *testing.T) {
	f := newFixture(t)
	createdID, _ := f.create(t, 9, 3, 10)

	first, appErr := f.svc.AddMessage(context.Background(), f.organizer, createdID, "is the projector included?")
	require.Nil(t, appErr)
	assert.Equal(t, entity.ActorTypeOrganizer, first.SenderType)

	second, appErr := f.svc.AddMessage(context.Background(), f.business, createdID, "yes, HDMI and USB-C")
	require.Nil(t, appErr)
	assert.Equal(t, entity.ActorTypeBusiness, second.SenderType)

	messages, appErr := f.svc.GetMessages(context.Background(), f.organizer, createdID)
	require.Nil(t, appErr)
	require.Len(t, messages, 2)
	assert.Equal(t, "is the projector included?", messages[0].Body)
}

func TestCrossTenantRequestHidden(t *testing.T) {
	f := newFixture(t)
	createdID, _ := f.create(t, 9, 3, 10)

	stranger := &middleware.Actor{UserID: uuid.New(), TenantID: uuid.New(), Role: middleware.RoleAdmin}
	_, appErr := f.svc.GetByID(context.Background(), stranger, createdID)
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
}

func TestCreateRequestLockDenied(t *testing.T) {
	repo := newFakeRequestRepo()
	spaces := newFakeSpaceRepo()
	db := &fakeDB{}

	tenantID := uuid.New()
	spaceID := uuid.New()
	spaces.spaces[spaceID] = &spaceentity.Space{TenantID: tenantID, Capacity: 10, Status: spaceentity.SpaceStatusPublished}
	spaces.spaces[spaceID].ID = spaceID

	svc := NewRequestService(repo, spaces, db, &fakeLocker{denied: true}, &fakeScheduler{}, audit.NewLogger(db), &fakeDispatcher{})

	start := time.Date(2026, 10, 7, 9, 0, 0, 0, time.UTC)
	_, appErr := svc.Create(context.Background(), &middleware.Actor{UserID: uuid.New(), Role: middleware.RoleOrganizer}, &dto.CreateRequestRequest{
		SpaceID:   spaceID.String(),
		StartAt:   start.Format(time.RFC3339),
		EndAt:     start.Add(time.Hour).Format(time.RFC3339),
		Attendees: 2,
	})
	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrConflict, appErr.Code)
}
