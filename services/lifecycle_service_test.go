package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"roadrescue-backend/models"
	"roadrescue-backend/utils/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// fakeRequestStore is an in-memory request repository with the same
// conditional-write semantics as the DynamoDB-backed one: an update applies
// only while every expected attribute still matches, under a single lock, so
// racing callers resolve to exactly one winner.
type fakeRequestStore struct {
	mu       sync.Mutex
	requests map[string]*models.ServiceRequest
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{requests: make(map[string]*models.ServiceRequest)}
}

func cloneRequest(req *models.ServiceRequest) *models.ServiceRequest {
	out := *req
	out.Chat = append([]models.ChatMessage(nil), req.Chat...)
	out.Tracking.LocationHistory = append([]models.LocationSample(nil), req.Tracking.LocationHistory...)
	return &out
}

func (f *fakeRequestStore) CreateRequest(ctx context.Context, req *models.ServiceRequest) (*models.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now().UTC()
	req.CreatedAt = now
	req.UpdatedAt = now
	f.requests[req.RequestID] = cloneRequest(req)
	return cloneRequest(req), nil
}

func (f *fakeRequestStore) GetRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, models.ErrRequestNotFound
	}
	return cloneRequest(req), nil
}

func (f *fakeRequestStore) ListPending(ctx context.Context) ([]*models.ServiceRequest, error) {
	return f.list(func(r *models.ServiceRequest) bool { return r.Status == models.StatusPending })
}

func (f *fakeRequestStore) ListByCustomer(ctx context.Context, customerID string) ([]*models.ServiceRequest, error) {
	return f.list(func(r *models.ServiceRequest) bool { return r.CustomerID == customerID })
}

func (f *fakeRequestStore) ListByTechnician(ctx context.Context, technicianID string) ([]*models.ServiceRequest, error) {
	return f.list(func(r *models.ServiceRequest) bool { return r.TechnicianID == technicianID })
}

func (f *fakeRequestStore) list(keep func(*models.ServiceRequest) bool) ([]*models.ServiceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.ServiceRequest
	for _, req := range f.requests {
		if keep(req) {
			out = append(out, cloneRequest(req))
		}
	}
	return out, nil
}

func (f *fakeRequestStore) ConditionalUpdate(ctx context.Context, id string, expected, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, ok := f.requests[id]
	if !ok {
		return models.ErrRequestNotFound
	}
	for key, want := range expected {
		if !expectedMatches(req, key, want) {
			return models.ErrConflict
		}
	}
	for key, value := range updates {
		applyUpdate(req, key, value)
	}
	req.UpdatedAt = time.Now().UTC()
	return nil
}

func expectedMatches(req *models.ServiceRequest, key string, want interface{}) bool {
	switch key {
	case "status":
		return req.Status == want.(models.RequestStatus)
	case "technicianID":
		if want == nil {
			return req.TechnicianID == ""
		}
		return req.TechnicianID == want.(string)
	case "confirmations":
		return req.Confirmations == want.(models.Confirmations)
	case "reviews":
		return req.Reviews == want.(models.Reviews)
	default:
		panic(fmt.Sprintf("unexpected condition key %q", key))
	}
}

func applyUpdate(req *models.ServiceRequest, key string, value interface{}) {
	switch key {
	case "status":
		req.Status = value.(models.RequestStatus)
	case "technicianID":
		if value == nil {
			req.TechnicianID = ""
		} else {
			req.TechnicianID = value.(string)
		}
	case "confirmations":
		req.Confirmations = value.(models.Confirmations)
	case "tracking":
		req.Tracking = value.(models.Tracking)
	case "cancellation":
		req.Cancellation = value.(*models.Cancellation)
	case "selectedShop":
		req.SelectedShop = value.(*models.Shop)
	case "pricing":
		req.Pricing = value.(models.Pricing)
	case "reviews.customerReview":
		req.Reviews.CustomerReview = value.(*models.Review)
	case "reviews.technicianReview":
		req.Reviews.TechnicianReview = value.(*models.Review)
	case "confirmations.customerConfirmedArrival":
		req.Confirmations.CustomerConfirmedArrival = value.(bool)
	case "confirmations.technicianConfirmedArrival":
		req.Confirmations.TechnicianConfirmedArrival = value.(bool)
	case "confirmations.customerConfirmedCompletion":
		req.Confirmations.CustomerConfirmedCompletion = value.(bool)
	case "confirmations.technicianConfirmedCompletion":
		req.Confirmations.TechnicianConfirmedCompletion = value.(bool)
	case "tracking.startedAt":
		t := value.(time.Time)
		req.Tracking.StartedAt = &t
	case "tracking.arrivedAt":
		t := value.(time.Time)
		req.Tracking.ArrivedAt = &t
	case "tracking.completedAt":
		t := value.(time.Time)
		req.Tracking.CompletedAt = &t
	case "tracking.jobStartTime":
		t := value.(time.Time)
		req.Tracking.JobStartTime = &t
	case "tracking.jobEndTime":
		t := value.(time.Time)
		req.Tracking.JobEndTime = &t
	case "tracking.isTracking":
		req.Tracking.IsTracking = value.(bool)
	case "tracking.jobDurationMinutes":
		req.Tracking.JobDurationMinutes = value.(int)
	default:
		panic(fmt.Sprintf("unexpected update key %q", key))
	}
}

func (f *fakeRequestStore) AppendChatMessage(ctx context.Context, id string, msg models.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return models.ErrRequestNotFound
	}
	req.Chat = append(req.Chat, msg)
	return nil
}

func (f *fakeRequestStore) AppendLocationSample(ctx context.Context, id string, sample models.LocationSample, distanceDelta float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return models.ErrRequestNotFound
	}
	req.Tracking.LocationHistory = append(req.Tracking.LocationHistory, sample)
	req.Tracking.TotalDistanceMiles += distanceDelta
	return nil
}

// seed installs a request directly in the store, bypassing the service.
func (f *fakeRequestStore) seed(req *models.ServiceRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[req.RequestID] = cloneRequest(req)
}

// fakeUserStore is a map-backed user repository.
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeUserStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	out := *user
	return &out, nil
}

func (f *fakeUserStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, errors.New("user not found")
}

func (f *fakeUserStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, errors.New("user not found")
}

func (f *fakeUserStore) UpdateUser(ctx context.Context, id string, updates map[string]interface{}) (*models.User, error) {
	return f.GetUser(ctx, id)
}

func (f *fakeUserStore) RecordLogin(ctx context.Context, id string) error {
	return nil
}

// recordingNotifier captures published events for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	Recipients []string
	Event      models.Event
}

func (n *recordingNotifier) Publish(userIDs []string, event models.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, publishedEvent{Recipients: userIDs, Event: event})
}

func (n *recordingNotifier) ofType(t models.EventType) []publishedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []publishedEvent
	for _, e := range n.events {
		if e.Event.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// LifecycleServiceTestSuite defines a test suite for the request state machine
type LifecycleServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	store    *fakeRequestStore
	users    *fakeUserStore
	notifier *recordingNotifier
	service  *LifecycleService
}

// SetupTest runs before each test
func (suite *LifecycleServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = newFakeRequestStore()
	suite.users = newFakeUserStore()
	suite.notifier = &recordingNotifier{}
	suite.service = NewLifecycleService(suite.store, suite.users, suite.notifier, logger.NewLogger("error", "text"))

	suite.users.users["cust-1"] = &models.User{ID: "cust-1", Role: models.UserRoleCustomer}
	suite.users.users["tech-1"] = &models.User{
		ID:        "tech-1",
		Role:      models.UserRoleTechnician,
		Available: true,
		Equipment: models.Equipment{
			LockoutKit:  true,
			JumpStarter: true,
			FuelCan:     true,
		},
	}
	suite.users.users["tech-2"] = &models.User{ID: "tech-2", Role: models.UserRoleTechnician, Available: true}
}

// seedRequest installs a request in the given state, assigned when the
// status requires a technician.
func (suite *LifecycleServiceTestSuite) seedRequest(id string, status models.RequestStatus) *models.ServiceRequest {
	req := &models.ServiceRequest{
		RequestID:   id,
		CustomerID:  "cust-1",
		ServiceType: models.ServiceLockout,
		Status:      status,
		Description: "locked out",
		Location:    models.Location{Address: "123 Main St"},
		Tracking:    models.Tracking{LocationHistory: []models.LocationSample{}},
		Chat:        []models.ChatMessage{},
	}
	if status != models.StatusPending && status != models.StatusCancelled {
		req.TechnicianID = "tech-1"
	}
	suite.store.seed(req)
	return req
}

func (suite *LifecycleServiceTestSuite) TestCreateRequest() {
	req, err := suite.service.CreateRequest(suite.ctx, "cust-1", &models.CreateRequestInput{
		ServiceType: models.ServiceJumpstart,
		Location:    models.Location{Address: "123 Main St"},
		Description: "dead battery",
		Options:     models.PricingOptions{Extras: 2},
	})

	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), req.RequestID)
	assert.Equal(suite.T(), models.StatusPending, req.Status)
	assert.Empty(suite.T(), req.TechnicianID)
	assert.Equal(suite.T(), 45.00, req.Pricing.Estimate)
	assert.False(suite.T(), req.CreatedAt.IsZero())
}

func (suite *LifecycleServiceTestSuite) TestCreateRequestInvalidType() {
	_, err := suite.service.CreateRequest(suite.ctx, "cust-1", &models.CreateRequestInput{
		ServiceType: "helicopter-rescue",
		Location:    models.Location{Address: "123 Main St"},
		Description: "stuck",
	})
	assert.ErrorIs(suite.T(), err, models.ErrInvalidServiceType)
}

func (suite *LifecycleServiceTestSuite) TestCreateRequestInvalidLocation() {
	badLat := 200.0
	tests := []models.Location{
		{},
		{Address: "ok", Latitude: &badLat},
	}
	for _, loc := range tests {
		_, err := suite.service.CreateRequest(suite.ctx, "cust-1", &models.CreateRequestInput{
			ServiceType: models.ServiceAirInflation,
			Location:    loc,
			Description: "flat tire",
		})
		assert.ErrorIs(suite.T(), err, models.ErrInvalidLocation)
	}
}

func (suite *LifecycleServiceTestSuite) TestGetRequestAuthorization() {
	suite.seedRequest("req-1", models.StatusPending)

	_, err := suite.service.GetRequest(suite.ctx, "req-1", "cust-1", false)
	assert.NoError(suite.T(), err)

	_, err = suite.service.GetRequest(suite.ctx, "req-1", "stranger", false)
	assert.ErrorIs(suite.T(), err, models.ErrUnauthorized)

	_, err = suite.service.GetRequest(suite.ctx, "req-1", "stranger", true)
	assert.NoError(suite.T(), err)

	_, err = suite.service.GetRequest(suite.ctx, "missing", "cust-1", false)
	assert.ErrorIs(suite.T(), err, models.ErrRequestNotFound)
}

func (suite *LifecycleServiceTestSuite) TestListVisiblePending() {
	suite.seedRequest("req-lockout", models.StatusPending)
	air := suite.seedRequest("req-air", models.StatusPending)
	air.ServiceType = models.ServiceAirInflation
	suite.store.seed(air)

	visible, err := suite.service.ListVisiblePending(suite.ctx, "tech-2")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), visible, 1)
	assert.Equal(suite.T(), "req-air", visible[0].RequestID)

	visible, err = suite.service.ListVisiblePending(suite.ctx, "tech-1")
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), visible, 2)
}

func (suite *LifecycleServiceTestSuite) TestListVisiblePendingUnavailableTechnician() {
	suite.seedRequest("req-lockout", models.StatusPending)
	suite.users.users["tech-1"].Available = false

	visible, err := suite.service.ListVisiblePending(suite.ctx, "tech-1")
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), visible)
}

func (suite *LifecycleServiceTestSuite) TestClaim() {
	suite.seedRequest("req-1", models.StatusPending)

	req, err := suite.service.Claim(suite.ctx, "req-1", "tech-1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusAssigned, req.Status)
	assert.Equal(suite.T(), "tech-1", req.TechnicianID)

	events := suite.notifier.ofType(models.EventRequestAssigned)
	require.Len(suite.T(), events, 1)
	assert.ElementsMatch(suite.T(), []string{"cust-1", "tech-1"}, events[0].Recipients)
}

func (suite *LifecycleServiceTestSuite) TestClaimRequiresEquipment() {
	suite.seedRequest("req-1", models.StatusPending)

	_, err := suite.service.Claim(suite.ctx, "req-1", "tech-2")
	assert.ErrorIs(suite.T(), err, models.ErrUnauthorized)
}

func (suite *LifecycleServiceTestSuite) TestClaimAlreadyClaimed() {
	suite.seedRequest("req-1", models.StatusAssigned)

	_, err := suite.service.Claim(suite.ctx, "req-1", "tech-1")
	assert.ErrorIs(suite.T(), err, models.ErrAlreadyClaimed)
}

// TestConcurrentClaimSingleWinner races several technicians for one pending
// request; exactly one claim may succeed.
func (suite *LifecycleServiceTestSuite) TestConcurrentClaimSingleWinner() {
	suite.seedRequest("req-1", models.StatusPending)

	const claimers = 8
	for i := 0; i < claimers; i++ {
		id := fmt.Sprintf("racer-%d", i)
		suite.users.users[id] = &models.User{
			ID:        id,
			Role:      models.UserRoleTechnician,
			Equipment: models.Equipment{LockoutKit: true},
		}
	}

	var wg sync.WaitGroup
	results := make(chan error, claimers)
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := suite.service.Claim(suite.ctx, "req-1", fmt.Sprintf("racer-%d", i))
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	winners, losers := 0, 0
	for err := range results {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(suite.T(), err, models.ErrAlreadyClaimed)
			losers++
		}
	}
	assert.Equal(suite.T(), 1, winners)
	assert.Equal(suite.T(), claimers-1, losers)

	stored, err := suite.store.GetRequest(suite.ctx, "req-1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusAssigned, stored.Status)
	assert.NotEmpty(suite.T(), stored.TechnicianID)
}

// TestStatusTransitions walks legal and illegal moves through the state machine.
func (suite *LifecycleServiceTestSuite) TestStatusTransitions() {
	tests := []struct {
		name    string
		from    models.RequestStatus
		to      models.RequestStatus
		wantErr error
	}{
		{"assigned to en-route", models.StatusAssigned, models.StatusEnRoute, nil},
		{"en-route to on-location", models.StatusEnRoute, models.StatusOnLocation, nil},
		{"on-location to in-progress", models.StatusOnLocation, models.StatusInProgress, nil},
		{"assigned cannot skip to on-location", models.StatusAssigned, models.StatusOnLocation, models.ErrInvalidTransition},
		{"assigned cannot jump to completed", models.StatusAssigned, models.StatusCompleted, models.ErrInvalidTransition},
		{"en-route cannot rewind to assigned", models.StatusEnRoute, models.StatusAssigned, models.ErrInvalidTransition},
		{"in-progress cannot rewind to en-route", models.StatusInProgress, models.StatusEnRoute, models.ErrInvalidTransition},
		{"completed is terminal", models.StatusCompleted, models.StatusEnRoute, models.ErrInvalidTransition},
		{"unknown status rejected", models.StatusAssigned, "warp-speed", models.ErrInvalidTransition},
	}

	for i, tt := range tests {
		suite.Run(tt.name, func() {
			id := fmt.Sprintf("req-%d", i)
			suite.seedRequest(id, tt.from)

			_, err := suite.service.UpdateStatus(suite.ctx, id, "tech-1", models.ActorTechnician,
				&models.UpdateStatusInput{Status: tt.to})
			if tt.wantErr != nil {
				assert.ErrorIs(suite.T(), err, tt.wantErr)
			} else {
				require.NoError(suite.T(), err)
				stored, _ := suite.store.GetRequest(suite.ctx, id)
				assert.Equal(suite.T(), tt.to, stored.Status)
			}
		})
	}
}

// TestAcceptViaStatusUpdate covers the client that "accepts" a pending job
// with a status update rather than the claim endpoint.
func (suite *LifecycleServiceTestSuite) TestAcceptViaStatusUpdate() {
	suite.seedRequest("req-1", models.StatusPending)

	req, err := suite.service.UpdateStatus(suite.ctx, "req-1", "tech-1", models.ActorTechnician,
		&models.UpdateStatusInput{Status: models.StatusAssigned})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusAssigned, req.Status)
	assert.Equal(suite.T(), "tech-1", req.TechnicianID)
}

func (suite *LifecycleServiceTestSuite) TestStatusUpdateStampsTracking() {
	suite.seedRequest("req-1", models.StatusAssigned)

	_, err := suite.service.UpdateStatus(suite.ctx, "req-1", "tech-1", models.ActorTechnician,
		&models.UpdateStatusInput{Status: models.StatusEnRoute})
	require.NoError(suite.T(), err)
	stored, _ := suite.store.GetRequest(suite.ctx, "req-1")
	require.NotNil(suite.T(), stored.Tracking.StartedAt)
	assert.True(suite.T(), stored.Tracking.IsTracking)

	_, err = suite.service.UpdateStatus(suite.ctx, "req-1", "tech-1", models.ActorTechnician,
		&models.UpdateStatusInput{Status: models.StatusOnLocation})
	require.NoError(suite.T(), err)
	stored, _ = suite.store.GetRequest(suite.ctx, "req-1")
	require.NotNil(suite.T(), stored.Tracking.ArrivedAt)
	assert.False(suite.T(), stored.Tracking.IsTracking)

	_, err = suite.service.UpdateStatus(suite.ctx, "req-1", "tech-1", models.ActorTechnician,
		&models.UpdateStatusInput{Status: models.StatusInProgress})
	require.NoError(suite.T(), err)
	stored, _ = suite.store.GetRequest(suite.ctx, "req-1")
	assert.NotNil(suite.T(), stored.Tracking.JobStartTime)

	events := suite.notifier.ofType(models.EventStatusChanged)
	assert.Len(suite.T(), events, 3)
}

func (suite *LifecycleServiceTestSuite) TestStatusUpdateUnauthorized() {
	suite.seedRequest("req-1", models.StatusAssigned)

	_, err := suite.service.UpdateStatus(suite.ctx, "req-1", "tech-2", models.ActorTechnician,
		&models.UpdateStatusInput{Status: models.StatusEnRoute})
	assert.ErrorIs(suite.T(), err, models.ErrUnauthorized)
}

// TestCompletedStatusRequiresBothConfirmations verifies completion cannot be
// forced by a bare status update while either party has not confirmed.
func (suite *LifecycleServiceTestSuite) TestCompletedStatusRequiresBothConfirmations() {
	req := suite.seedRequest("req-1", models.StatusInProgress)

	_, err := suite.service.UpdateStatus(suite.ctx, "req-1", "tech-1", models.ActorTechnician,
		&models.UpdateStatusInput{Status: models.StatusCompleted})
	assert.ErrorIs(suite.T(), err, models.ErrInvalidTransition)

	req.Confirmations = models.Confirmations{
		TechnicianConfirmedCompletion: true,
		CustomerConfirmedCompletion:   true,
	}
	suite.store.seed(req)

	_, err = suite.service.UpdateStatus(suite.ctx, "req-1", "tech-1", models.ActorTechnician,
		&models.UpdateStatusInput{Status: models.StatusCompleted})
	require.NoError(suite.T(), err)

	stored, _ := suite.store.GetRequest(suite.ctx, "req-1")
	assert.Equal(suite.T(), models.StatusCompleted, stored.Status)
	assert.NotNil(suite.T(), stored.Tracking.CompletedAt)
	assert.NotNil(suite.T(), stored.Tracking.JobEndTime)
}

func (suite *LifecycleServiceTestSuite) TestConfirmArrivalIdempotent() {
	suite.seedRequest("req-1", models.StatusOnLocation)

	req, err := suite.service.ConfirmArrival(suite.ctx, "req-1", "tech-1", models.ActorTechnician)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), req.Confirmations.TechnicianConfirmedArrival)

	// Second confirmation is a no-op success.
	req, err = suite.service.ConfirmArrival(suite.ctx, "req-1", "tech-1", models.ActorTechnician)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), req.Confirmations.TechnicianConfirmedArrival)

	stored, _ := suite.store.GetRequest(suite.ctx, "req-1")
	assert.True(suite.T(), stored.Confirmations.TechnicianConfirmedArrival)
	assert.False(suite.T(), stored.Confirmations.CustomerConfirmedArrival)
}

func (suite *LifecycleServiceTestSuite) TestConfirmArrivalBeforeAssignment() {
	suite.seedRequest("req-1", models.StatusPending)

	_, err := suite.service.ConfirmArrival(suite.ctx, "req-1", "cust-1", models.ActorCustomer)
	assert.ErrorIs(suite.T(), err, models.ErrInvalidTransition)
}

// TestConfirmCompletionBothParties drives completion through the dual
// confirmation in both orders.
func (suite *LifecycleServiceTestSuite) TestConfirmCompletionBothParties() {
	orders := []struct {
		name          string
		first, second models.ActorRole
		firstID       string
		secondID      string
	}{
		{"technician first", models.ActorTechnician, models.ActorCustomer, "tech-1", "cust-1"},
		{"customer first", models.ActorCustomer, models.ActorTechnician, "cust-1", "tech-1"},
	}

	for i, order := range orders {
		suite.Run(order.name, func() {
			id := fmt.Sprintf("req-%d", i)
			req := suite.seedRequest(id, models.StatusInProgress)
			start := time.Now().UTC().Add(-30 * time.Minute)
			req.Tracking.JobStartTime = &start
			suite.store.seed(req)

			first, err := suite.service.ConfirmCompletion(suite.ctx, id, order.firstID, order.first)
			require.NoError(suite.T(), err)
			assert.Equal(suite.T(), models.StatusInProgress, first.Status)

			second, err := suite.service.ConfirmCompletion(suite.ctx, id, order.secondID, order.second)
			require.NoError(suite.T(), err)
			assert.Equal(suite.T(), models.StatusCompleted, second.Status)

			stored, _ := suite.store.GetRequest(suite.ctx, id)
			assert.Equal(suite.T(), models.StatusCompleted, stored.Status)
			assert.True(suite.T(), stored.Confirmations.TechnicianConfirmedCompletion)
			assert.True(suite.T(), stored.Confirmations.CustomerConfirmedCompletion)
			assert.InDelta(suite.T(), 30, stored.Tracking.JobDurationMinutes, 1)
		})
	}
}

func (suite *LifecycleServiceTestSuite) TestConfirmCompletionDuplicate() {
	suite.seedRequest("req-1", models.StatusInProgress)

	_, err := suite.service.ConfirmCompletion(suite.ctx, "req-1", "tech-1", models.ActorTechnician)
	require.NoError(suite.T(), err)

	req, err := suite.service.ConfirmCompletion(suite.ctx, "req-1", "tech-1", models.ActorTechnician)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusInProgress, req.Status)

	// Still only one completion confirmation recorded.
	stored, _ := suite.store.GetRequest(suite.ctx, "req-1")
	assert.False(suite.T(), stored.Confirmations.CustomerConfirmedCompletion)
}

func (suite *LifecycleServiceTestSuite) TestConfirmCompletionWrongStatus() {
	suite.seedRequest("req-1", models.StatusEnRoute)

	_, err := suite.service.ConfirmCompletion(suite.ctx, "req-1", "tech-1", models.ActorTechnician)
	assert.ErrorIs(suite.T(), err, models.ErrInvalidTransition)
}

// TestConcurrentConfirmCompletion has both parties confirm simultaneously;
// the request must complete exactly once.
func (suite *LifecycleServiceTestSuite) TestConcurrentConfirmCompletion() {
	suite.seedRequest("req-1", models.StatusInProgress)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := suite.service.ConfirmCompletion(suite.ctx, "req-1", "tech-1", models.ActorTechnician)
		assert.NoError(suite.T(), err)
	}()
	go func() {
		defer wg.Done()
		_, err := suite.service.ConfirmCompletion(suite.ctx, "req-1", "cust-1", models.ActorCustomer)
		assert.NoError(suite.T(), err)
	}()
	wg.Wait()

	stored, _ := suite.store.GetRequest(suite.ctx, "req-1")
	assert.Equal(suite.T(), models.StatusCompleted, stored.Status)
	assert.True(suite.T(), stored.Confirmations.TechnicianConfirmedCompletion)
	assert.True(suite.T(), stored.Confirmations.CustomerConfirmedCompletion)
	assert.Len(suite.T(), suite.notifier.ofType(models.EventStatusChanged), 1)
}

func (suite *LifecycleServiceTestSuite) TestTechnicianCancelReopens() {
	req := suite.seedRequest("req-1", models.StatusEnRoute)
	req.Confirmations.TechnicianConfirmedArrival = true
	suite.store.seed(req)

	result, err := suite.service.UpdateStatus(suite.ctx, "req-1", "tech-1", models.ActorTechnician,
		&models.UpdateStatusInput{Status: models.StatusCancelled, Reason: "truck broke down"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusPending, result.Status)
	assert.Empty(suite.T(), result.TechnicianID)

	stored, _ := suite.store.GetRequest(suite.ctx, "req-1")
	assert.Equal(suite.T(), models.StatusPending, stored.Status)
	assert.Empty(suite.T(), stored.TechnicianID)
	assert.Equal(suite.T(), models.Confirmations{}, stored.Confirmations)
	assert.Nil(suite.T(), stored.Cancellation)

	events := suite.notifier.ofType(models.EventRequestReopened)
	require.Len(suite.T(), events, 1)
	assert.Equal(suite.T(), []string{"cust-1"}, events[0].Recipients)
}

func (suite *LifecycleServiceTestSuite) TestCustomerCancelIsTerminal() {
	suite.seedRequest("req-1", models.StatusAssigned)

	result, err := suite.service.UpdateStatus(suite.ctx, "req-1", "cust-1", models.ActorCustomer,
		&models.UpdateStatusInput{Status: models.StatusCancelled, Reason: "found my keys"})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusCancelled, result.Status)
	require.NotNil(suite.T(), result.Cancellation)
	assert.Equal(suite.T(), models.ActorCustomer, result.Cancellation.CancelledBy)
	assert.Equal(suite.T(), "found my keys", result.Cancellation.Reason)

	// Terminal: nothing moves out of cancelled.
	_, err = suite.service.UpdateStatus(suite.ctx, "req-1", "cust-1", models.ActorCustomer,
		&models.UpdateStatusInput{Status: models.StatusCancelled})
	assert.ErrorIs(suite.T(), err, models.ErrInvalidTransition)

	events := suite.notifier.ofType(models.EventRequestCancelled)
	require.Len(suite.T(), events, 1)
	assert.ElementsMatch(suite.T(), []string{"cust-1", "tech-1"}, events[0].Recipients)
}

func (suite *LifecycleServiceTestSuite) TestRecordLocationAccumulatesDistance() {
	suite.seedRequest("req-1", models.StatusEnRoute)

	samples := []models.LocationSampleInput{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0, Longitude: 1},
		{Latitude: 0, Longitude: 2},
	}
	for _, s := range samples {
		in := s
		require.NoError(suite.T(), suite.service.RecordLocationSample(suite.ctx, "req-1", "tech-1", &in))
	}

	stored, _ := suite.store.GetRequest(suite.ctx, "req-1")
	require.Len(suite.T(), stored.Tracking.LocationHistory, 3)
	// First sample contributes nothing; each following degree of longitude
	// at the equator adds about 69.09 miles.
	assert.InDelta(suite.T(), 138.19, stored.Tracking.TotalDistanceMiles, 0.05)
}

func (suite *LifecycleServiceTestSuite) TestRecordLocationUnassignedTechnician() {
	suite.seedRequest("req-1", models.StatusEnRoute)

	err := suite.service.RecordLocationSample(suite.ctx, "req-1", "tech-2",
		&models.LocationSampleInput{Latitude: 1, Longitude: 1})
	assert.ErrorIs(suite.T(), err, models.ErrUnauthorized)
}

func (suite *LifecycleServiceTestSuite) TestSendMessage() {
	suite.seedRequest("req-1", models.StatusAssigned)

	msg, err := suite.service.SendMessage(suite.ctx, "req-1", "cust-1", models.ActorCustomer,
		&models.SendMessageInput{Message: "how far out are you?"})
	require.NoError(suite.T(), err)
	assert.NotEmpty(suite.T(), msg.MessageID)
	assert.False(suite.T(), msg.Read)

	stored, _ := suite.store.GetRequest(suite.ctx, "req-1")
	require.Len(suite.T(), stored.Chat, 1)
	assert.Equal(suite.T(), "how far out are you?", stored.Chat[0].Message)

	// The message notifies the other party.
	events := suite.notifier.ofType(models.EventChatMessage)
	require.Len(suite.T(), events, 1)
	assert.Equal(suite.T(), []string{"tech-1"}, events[0].Recipients)
}

func (suite *LifecycleServiceTestSuite) TestSendMessageTerminalRequest() {
	suite.seedRequest("req-cancelled", models.StatusCancelled)
	suite.seedRequest("req-done", models.StatusCompleted)

	// A cancelled record is frozen; chat must not mutate it.
	_, err := suite.service.SendMessage(suite.ctx, "req-cancelled", "cust-1", models.ActorCustomer,
		&models.SendMessageInput{Message: "anyone still coming?"})
	assert.ErrorIs(suite.T(), err, models.ErrInvalidTransition)

	_, err = suite.service.SendMessage(suite.ctx, "req-done", "tech-1", models.ActorTechnician,
		&models.SendMessageInput{Message: "job went well"})
	assert.ErrorIs(suite.T(), err, models.ErrInvalidTransition)

	stored, _ := suite.store.GetRequest(suite.ctx, "req-cancelled")
	assert.Empty(suite.T(), stored.Chat)
	assert.Empty(suite.T(), suite.notifier.ofType(models.EventChatMessage))
}

func (suite *LifecycleServiceTestSuite) TestSelectShop() {
	req := suite.seedRequest("req-1", models.StatusPending)
	req.ServiceType = models.ServiceShopPickup
	req.Pricing = models.Pricing{Base: 20, Service: 30, PerMile: 1.5, Estimate: 50, Currency: "USD"}
	suite.store.seed(req)

	miles := 10.0
	result, err := suite.service.SelectShop(suite.ctx, "req-1", "cust-1",
		&models.Shop{Name: "Corner Tires"}, &miles)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), result.SelectedShop)
	assert.Equal(suite.T(), "Corner Tires", result.SelectedShop.Name)
	assert.Equal(suite.T(), 65.00, result.Pricing.Estimate)
}

func (suite *LifecycleServiceTestSuite) TestSelectShopWrongServiceType() {
	suite.seedRequest("req-1", models.StatusPending)

	_, err := suite.service.SelectShop(suite.ctx, "req-1", "cust-1", &models.Shop{Name: "Corner Tires"}, nil)
	assert.ErrorIs(suite.T(), err, models.ErrInvalidServiceType)
}

func (suite *LifecycleServiceTestSuite) TestSelectShopAfterAssignment() {
	req := suite.seedRequest("req-1", models.StatusAssigned)
	req.ServiceType = models.ServiceShopPickup
	suite.store.seed(req)

	_, err := suite.service.SelectShop(suite.ctx, "req-1", "cust-1", &models.Shop{Name: "Corner Tires"}, nil)
	assert.ErrorIs(suite.T(), err, models.ErrInvalidTransition)
}

func (suite *LifecycleServiceTestSuite) TestSubmitReviewOncePerParty() {
	suite.seedRequest("req-1", models.StatusCompleted)

	_, err := suite.service.SubmitReview(suite.ctx, "req-1", "cust-1", models.ActorCustomer,
		&models.SubmitReviewInput{Rating: 5, Comment: "fast and friendly"})
	require.NoError(suite.T(), err)

	_, err = suite.service.SubmitReview(suite.ctx, "req-1", "cust-1", models.ActorCustomer,
		&models.SubmitReviewInput{Rating: 1})
	assert.ErrorIs(suite.T(), err, models.ErrConflict)

	_, err = suite.service.SubmitReview(suite.ctx, "req-1", "tech-1", models.ActorTechnician,
		&models.SubmitReviewInput{Rating: 4})
	require.NoError(suite.T(), err)

	stored, _ := suite.store.GetRequest(suite.ctx, "req-1")
	require.NotNil(suite.T(), stored.Reviews.CustomerReview)
	require.NotNil(suite.T(), stored.Reviews.TechnicianReview)
	assert.Equal(suite.T(), 5, stored.Reviews.CustomerReview.Rating)
	assert.Equal(suite.T(), 4, stored.Reviews.TechnicianReview.Rating)
}

func (suite *LifecycleServiceTestSuite) TestSubmitReviewBeforeCompletion() {
	suite.seedRequest("req-1", models.StatusInProgress)

	_, err := suite.service.SubmitReview(suite.ctx, "req-1", "cust-1", models.ActorCustomer,
		&models.SubmitReviewInput{Rating: 3})
	assert.ErrorIs(suite.T(), err, models.ErrInvalidTransition)
}

func (suite *LifecycleServiceTestSuite) TestUnreadCount() {
	req := suite.seedRequest("req-1", models.StatusAssigned)
	req.Chat = []models.ChatMessage{
		{MessageID: "m1", SenderID: "tech-1", Read: false},
		{MessageID: "m2", SenderID: "tech-1", Read: true},
		{MessageID: "m3", SenderID: "cust-1", Read: false},
	}
	suite.store.seed(req)

	count, err := suite.service.UnreadCount(suite.ctx, "cust-1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)

	count, err = suite.service.UnreadCount(suite.ctx, "tech-1")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, count)
}

func (suite *LifecycleServiceTestSuite) TestCancelAllForUser() {
	suite.seedRequest("req-owned", models.StatusPending)
	suite.seedRequest("req-done", models.StatusCompleted)

	job := suite.seedRequest("req-job", models.StatusEnRoute)
	job.CustomerID = "cust-2"
	suite.store.seed(job)
	suite.users.users["cust-2"] = &models.User{ID: "cust-2", Role: models.UserRoleCustomer}

	require.NoError(suite.T(), suite.service.CancelAllForUser(suite.ctx, "cust-1"))
	require.NoError(suite.T(), suite.service.CancelAllForUser(suite.ctx, "tech-1"))

	owned, _ := suite.store.GetRequest(suite.ctx, "req-owned")
	assert.Equal(suite.T(), models.StatusCancelled, owned.Status)

	done, _ := suite.store.GetRequest(suite.ctx, "req-done")
	assert.Equal(suite.T(), models.StatusCompleted, done.Status)

	// The technician's active job reopens instead of dying with the account.
	reopened, _ := suite.store.GetRequest(suite.ctx, "req-job")
	assert.Equal(suite.T(), models.StatusPending, reopened.Status)
	assert.Empty(suite.T(), reopened.TechnicianID)
}

// TestFullLockoutScenario walks one request end to end through the happy path.
func (suite *LifecycleServiceTestSuite) TestFullLockoutScenario() {
	req, err := suite.service.CreateRequest(suite.ctx, "cust-1", &models.CreateRequestInput{
		ServiceType: models.ServiceLockout,
		Location:    models.Location{Address: "123 Main St"},
		Description: "keys locked inside",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 45.00, req.Pricing.Estimate)
	id := req.RequestID

	_, err = suite.service.Claim(suite.ctx, id, "tech-1")
	require.NoError(suite.T(), err)

	for _, status := range []models.RequestStatus{models.StatusEnRoute, models.StatusOnLocation, models.StatusInProgress} {
		_, err = suite.service.UpdateStatus(suite.ctx, id, "tech-1", models.ActorTechnician,
			&models.UpdateStatusInput{Status: status})
		require.NoError(suite.T(), err)
	}

	_, err = suite.service.ConfirmArrival(suite.ctx, id, "tech-1", models.ActorTechnician)
	require.NoError(suite.T(), err)
	_, err = suite.service.ConfirmArrival(suite.ctx, id, "cust-1", models.ActorCustomer)
	require.NoError(suite.T(), err)

	_, err = suite.service.ConfirmCompletion(suite.ctx, id, "tech-1", models.ActorTechnician)
	require.NoError(suite.T(), err)
	final, err := suite.service.ConfirmCompletion(suite.ctx, id, "cust-1", models.ActorCustomer)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusCompleted, final.Status)

	_, err = suite.service.SubmitReview(suite.ctx, id, "cust-1", models.ActorCustomer,
		&models.SubmitReviewInput{Rating: 5, Comment: "lifesaver"})
	require.NoError(suite.T(), err)

	stored, _ := suite.store.GetRequest(suite.ctx, id)
	assert.NotNil(suite.T(), stored.Tracking.CompletedAt)
	assert.NotNil(suite.T(), stored.Reviews.CustomerReview)
}

func TestLifecycleServiceTestSuite(t *testing.T) {
	suite.Run(t, new(LifecycleServiceTestSuite))
}
