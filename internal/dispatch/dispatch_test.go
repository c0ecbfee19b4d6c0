package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"notification-engine/internal/common/errors"
	"notification-engine/internal/common/logger"
	"notification-engine/internal/models"
	"notification-engine/internal/queue"
)

// ==========================
// Mocks
// ==========================

type MockTemplateSource struct {
	mock.Mock
}

func (m *MockTemplateSource) GetByID(ctx context.Context, id string) (*models.NotificationTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NotificationTemplate), args.Error(1)
}

func (m *MockTemplateSource) GetByName(ctx context.Context, name string) (*models.NotificationTemplate, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.NotificationTemplate), args.Error(1)
}

type MockUserSource struct {
	mock.Mock
}

func (m *MockUserSource) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockNotificationSink struct {
	mock.Mock
}

func (m *MockNotificationSink) Create(ctx context.Context, n *models.Notification) error {
	args := m.Called(ctx, n)
	if n.ID == "" {
		n.ID = "notif-test"
	}
	return args.Error(0)
}

type MockSettingsSource struct {
	mock.Mock
}

func (m *MockSettingsSource) GetByUserID(ctx context.Context, userID string) (*models.UserNotificationSetting, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserNotificationSetting), args.Error(1)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(ctx context.Context, job *queue.Job, delay time.Duration) error {
	args := m.Called(ctx, job, delay)
	return args.Error(0)
}

type MockBroadcastSource struct {
	mock.Mock
}

func (m *MockBroadcastSource) GetByID(ctx context.Context, id string) (*models.Broadcast, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Broadcast), args.Error(1)
}

func (m *MockBroadcastSource) Transition(ctx context.Context, id string, from, to models.BroadcastStatus) (bool, error) {
	args := m.Called(ctx, id, from, to)
	return args.Bool(0), args.Error(1)
}

// ==========================
// Fixtures
// ==========================

func testUser() *models.User {
	return &models.User{
		ID:          "user-1",
		PkID:        10,
		Email:       "jo@example.com",
		Username:    "jo",
		FirstName:   "Jo",
		LastName:    "Doe",
		PhoneNumber: "+15551234567",
		Active:      true,
	}
}

func testTemplate() *models.NotificationTemplate {
	return &models.NotificationTemplate{
		ID:      "tpl-1",
		Name:    "welcome",
		Type:    models.TemplateEmail,
		Subject: "Welcome to {{ site_name }}",
		Body:    "Hi {{ first_name }}, welcome aboard.",
		Active:  true,
	}
}

func newTestService(templates *MockTemplateSource, users *MockUserSource,
	sink *MockNotificationSink, settings *MockSettingsSource, enqueuer *MockEnqueuer) *Service {
	log := logger.NewNoOpLogger()
	gate := NewPreferenceGate(settings, log)
	return NewService(templates, users, sink, gate, enqueuer, "Acme", log)
}

// ==========================
// Send pipeline
// ==========================

func TestService_Send_Email(t *testing.T) {
	templates := new(MockTemplateSource)
	users := new(MockUserSource)
	sink := new(MockNotificationSink)
	settings := new(MockSettingsSource)
	enqueuer := new(MockEnqueuer)

	templates.On("GetByName", mock.Anything, "welcome").Return(testTemplate(), nil)
	users.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)
	settings.On("GetByUserID", mock.Anything, "user-1").Return(nil, nil)
	sink.On("Create", mock.Anything, mock.Anything).Return(nil)
	enqueuer.On("Enqueue", mock.Anything, mock.MatchedBy(func(job *queue.Job) bool {
		return job.Type == JobTypeSendNotification
	}), time.Duration(0)).Return(nil)

	svc := newTestService(templates, users, sink, settings, enqueuer)
	out, err := svc.Send(context.Background(), &Request{
		UserID:       "user-1",
		Channel:      models.ChannelEmail,
		TemplateName: "welcome",
	})

	require.NoError(t, err)
	require.False(t, out.Skipped)
	require.NotNil(t, out.Notification)

	n := out.Notification
	assert.Equal(t, "jo@example.com", n.Recipient)
	assert.Equal(t, "Welcome to Acme", n.Subject)
	assert.Equal(t, "Hi Jo, welcome aboard.", n.Body)
	assert.Equal(t, models.NotificationPending, n.Status)
	require.NotNil(t, n.UserID)
	assert.Equal(t, "user-1", *n.UserID)

	enqueuer.AssertExpectations(t)
}

func TestService_Send_SkippedByPreferences(t *testing.T) {
	templates := new(MockTemplateSource)
	users := new(MockUserSource)
	sink := new(MockNotificationSink)
	settings := new(MockSettingsSource)
	enqueuer := new(MockEnqueuer)

	templates.On("GetByName", mock.Anything, "welcome").Return(testTemplate(), nil)
	users.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)
	settings.On("GetByUserID", mock.Anything, "user-1").Return(&models.UserNotificationSetting{
		UserID:       "user-1",
		EmailEnabled: false,
		SMSEnabled:   true,
	}, nil)

	svc := newTestService(templates, users, sink, settings, enqueuer)
	out, err := svc.Send(context.Background(), &Request{
		UserID:       "user-1",
		Channel:      models.ChannelEmail,
		TemplateName: "welcome",
	})

	require.NoError(t, err)
	assert.True(t, out.Skipped)
	assert.Nil(t, out.Notification)
	sink.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	enqueuer.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Send_FailsOpenOnSettingsError(t *testing.T) {
	templates := new(MockTemplateSource)
	users := new(MockUserSource)
	sink := new(MockNotificationSink)
	settings := new(MockSettingsSource)
	enqueuer := new(MockEnqueuer)

	templates.On("GetByName", mock.Anything, "welcome").Return(testTemplate(), nil)
	users.On("GetByID", mock.Anything, "user-1").Return(testUser(), nil)
	settings.On("GetByUserID", mock.Anything, "user-1").Return(nil, assert.AnError)
	sink.On("Create", mock.Anything, mock.Anything).Return(nil)
	enqueuer.On("Enqueue", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(templates, users, sink, settings, enqueuer)
	out, err := svc.Send(context.Background(), &Request{
		UserID:       "user-1",
		Channel:      models.ChannelEmail,
		TemplateName: "welcome",
	})

	require.NoError(t, err)
	assert.False(t, out.Skipped, "settings errors must not block delivery")
}

func TestService_Send_VerbatimBody(t *testing.T) {
	templates := new(MockTemplateSource)
	users := new(MockUserSource)
	sink := new(MockNotificationSink)
	settings := new(MockSettingsSource)
	enqueuer := new(MockEnqueuer)

	sink.On("Create", mock.Anything, mock.Anything).Return(nil)
	enqueuer.On("Enqueue", mock.Anything, mock.Anything, time.Duration(0)).Return(nil)

	svc := newTestService(templates, users, sink, settings, enqueuer)
	out, err := svc.Send(context.Background(), &Request{
		Recipient: "ops@example.com",
		Channel:   models.ChannelEmail,
		Subject:   "Disk space low",
		Body:      "Volume /data is at 92%.",
	})

	require.NoError(t, err)
	n := out.Notification
	assert.Equal(t, "Disk space low", n.Subject)
	assert.Equal(t, "Volume /data is at 92%.", n.Body)
	assert.Nil(t, n.TemplateID)
	templates.AssertNotCalled(t, "GetByName", mock.Anything, mock.Anything)
}

func TestService_Send_NoTemplateNoBody(t *testing.T) {
	templates := new(MockTemplateSource)
	users := new(MockUserSource)
	sink := new(MockNotificationSink)
	settings := new(MockSettingsSource)
	enqueuer := new(MockEnqueuer)

	svc := newTestService(templates, users, sink, settings, enqueuer)
	_, err := svc.Send(context.Background(), &Request{
		Recipient: "ops@example.com",
		Channel:   models.ChannelEmail,
	})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeTemplate))
	sink.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Send_NoRecipient(t *testing.T) {
	templates := new(MockTemplateSource)
	users := new(MockUserSource)
	sink := new(MockNotificationSink)
	settings := new(MockSettingsSource)
	enqueuer := new(MockEnqueuer)

	user := testUser()
	user.PhoneNumber = ""
	templates.On("GetByName", mock.Anything, "alert").Return(&models.NotificationTemplate{
		ID: "tpl-2", Name: "alert", Type: models.TemplateSMS, Body: "Alert!",
	}, nil)
	users.On("GetByID", mock.Anything, "user-1").Return(user, nil)

	svc := newTestService(templates, users, sink, settings, enqueuer)
	_, err := svc.Send(context.Background(), &Request{
		UserID:       "user-1",
		Channel:      models.ChannelSMS,
		TemplateName: "alert",
	})

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNoRecipient))
	sink.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Send_DirectRecipientSkipsGate(t *testing.T) {
	templates := new(MockTemplateSource)
	users := new(MockUserSource)
	sink := new(MockNotificationSink)
	settings := new(MockSettingsSource)
	enqueuer := new(MockEnqueuer)

	templates.On("GetByID", mock.Anything, "tpl-1").Return(testTemplate(), nil)
	sink.On("Create", mock.Anything, mock.Anything).Return(nil)
	enqueuer.On("Enqueue", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(templates, users, sink, settings, enqueuer)
	out, err := svc.Send(context.Background(), &Request{
		Recipient:  "ops@example.com",
		Channel:    models.ChannelEmail,
		TemplateID: "tpl-1",
	})

	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", out.Notification.Recipient)
	assert.Nil(t, out.Notification.UserID)
	settings.AssertNotCalled(t, "GetByUserID", mock.Anything, mock.Anything)
}

// ==========================
// Recipient filter
// ==========================

func TestValidateRecipientFilter(t *testing.T) {
	tests := []struct {
		name    string
		filter  map[string]interface{}
		wantErr bool
	}{
		{"empty filter matches everyone", nil, false},
		{"whitelisted fields", map[string]interface{}{"is_active": true, "role": "member"}, false},
		{"unknown field", map[string]interface{}{"password": "x"}, true},
		{"wrong type", map[string]interface{}{"is_active": "yes"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecipientFilter(tt.filter)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidFilter))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// ==========================
// Rendering context
// ==========================

func TestBuildContext_Precedence(t *testing.T) {
	ctx := BuildContext("Acme", testUser().ContextSnapshot(), map[string]interface{}{
		"site_name": "Override Inc",
		"order_id":  "ord-9",
	})

	assert.Equal(t, "Override Inc", ctx["site_name"], "caller context wins")
	assert.Equal(t, "Jo", ctx["first_name"], "user fields promoted to top level")
	assert.Equal(t, "ord-9", ctx["order_id"])
	assert.Equal(t, time.Now().Year(), ctx["year"])
}

// ==========================
// Broadcast lifecycle
// ==========================

func TestBroadcastControl_Start(t *testing.T) {
	broadcasts := new(MockBroadcastSource)
	templates := new(MockTemplateSource)
	enqueuer := new(MockEnqueuer)

	broadcasts.On("GetByID", mock.Anything, "bc-1").Return(&models.Broadcast{
		ID:              "bc-1",
		TemplateID:      "tpl-1",
		Channel:         models.ChannelEmail,
		RecipientFilter: map[string]interface{}{"is_active": true},
		Status:          models.BroadcastDraft,
	}, nil)
	templates.On("GetByID", mock.Anything, "tpl-1").Return(testTemplate(), nil)
	broadcasts.On("Transition", mock.Anything, "bc-1", models.BroadcastDraft, models.BroadcastScheduled).
		Return(true, nil)
	enqueuer.On("Enqueue", mock.Anything, mock.MatchedBy(func(job *queue.Job) bool {
		return job.Type == JobTypeProcessBroadcast
	}), time.Duration(0)).Return(nil)

	control := NewBroadcastControl(broadcasts, templates, enqueuer, logger.NewNoOpLogger())
	require.NoError(t, control.Start(context.Background(), "bc-1"))

	broadcasts.AssertExpectations(t)
	enqueuer.AssertExpectations(t)
}

func TestBroadcastControl_Start_FutureSchedule(t *testing.T) {
	broadcasts := new(MockBroadcastSource)
	templates := new(MockTemplateSource)
	enqueuer := new(MockEnqueuer)

	scheduledAt := time.Now().Add(time.Hour)
	broadcasts.On("GetByID", mock.Anything, "bc-1").Return(&models.Broadcast{
		ID:          "bc-1",
		TemplateID:  "tpl-1",
		Channel:     models.ChannelEmail,
		ScheduledAt: &scheduledAt,
		Status:      models.BroadcastDraft,
	}, nil)
	templates.On("GetByID", mock.Anything, "tpl-1").Return(testTemplate(), nil)
	broadcasts.On("Transition", mock.Anything, "bc-1", models.BroadcastDraft, models.BroadcastScheduled).
		Return(true, nil)
	enqueuer.On("Enqueue", mock.Anything, mock.Anything, mock.MatchedBy(func(delay time.Duration) bool {
		return delay > 55*time.Minute && delay <= time.Hour
	})).Return(nil)

	control := NewBroadcastControl(broadcasts, templates, enqueuer, logger.NewNoOpLogger())
	require.NoError(t, control.Start(context.Background(), "bc-1"))
	enqueuer.AssertExpectations(t)
}

func TestBroadcastControl_Start_NotDraft(t *testing.T) {
	broadcasts := new(MockBroadcastSource)
	templates := new(MockTemplateSource)
	enqueuer := new(MockEnqueuer)

	broadcasts.On("GetByID", mock.Anything, "bc-1").Return(&models.Broadcast{
		ID:     "bc-1",
		Status: models.BroadcastSending,
	}, nil)

	control := NewBroadcastControl(broadcasts, templates, enqueuer, logger.NewNoOpLogger())
	err := control.Start(context.Background(), "bc-1")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidState))
	enqueuer.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestBroadcastControl_Start_BadFilter(t *testing.T) {
	broadcasts := new(MockBroadcastSource)
	templates := new(MockTemplateSource)
	enqueuer := new(MockEnqueuer)

	broadcasts.On("GetByID", mock.Anything, "bc-1").Return(&models.Broadcast{
		ID:              "bc-1",
		TemplateID:      "tpl-1",
		RecipientFilter: map[string]interface{}{"drop table": "users"},
		Status:          models.BroadcastDraft,
	}, nil)

	control := NewBroadcastControl(broadcasts, templates, enqueuer, logger.NewNoOpLogger())
	err := control.Start(context.Background(), "bc-1")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidFilter))
	broadcasts.AssertNotCalled(t, "Transition", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBroadcastControl_Cancel(t *testing.T) {
	broadcasts := new(MockBroadcastSource)

	broadcasts.On("Transition", mock.Anything, "bc-1", models.BroadcastDraft, models.BroadcastCanceled).
		Return(false, nil)
	broadcasts.On("Transition", mock.Anything, "bc-1", models.BroadcastScheduled, models.BroadcastCanceled).
		Return(true, nil)

	control := NewBroadcastControl(broadcasts, new(MockTemplateSource), new(MockEnqueuer), logger.NewNoOpLogger())
	require.NoError(t, control.Cancel(context.Background(), "bc-1"))
}

func TestBroadcastControl_Cancel_AlreadySending(t *testing.T) {
	broadcasts := new(MockBroadcastSource)

	broadcasts.On("Transition", mock.Anything, "bc-1", mock.Anything, models.BroadcastCanceled).
		Return(false, nil)
	broadcasts.On("GetByID", mock.Anything, "bc-1").Return(&models.Broadcast{
		ID:     "bc-1",
		Status: models.BroadcastSending,
	}, nil)

	control := NewBroadcastControl(broadcasts, new(MockTemplateSource), new(MockEnqueuer), logger.NewNoOpLogger())
	err := control.Cancel(context.Background(), "bc-1")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeInvalidState))
}
