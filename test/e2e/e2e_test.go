// test/e2e/e2e_test.go
//
// End-to-end tests against real PostgreSQL and Redis. They run the full
// pipeline: seed a template, dispatch, consume the queue, and verify the
// durable log. Skipped in short mode and when the services are unreachable.
package e2e

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-engine/internal/backends"
	"notification-engine/internal/common/config"
	"notification-engine/internal/common/database"
	"notification-engine/internal/common/logger"
	"notification-engine/internal/dispatch"
	"notification-engine/internal/models"
	"notification-engine/internal/queue"
	"notification-engine/internal/store"

	processbroadcast "notification-engine/internal/workers/notifications/process-broadcast"
	sendnotification "notification-engine/internal/workers/notifications/send-notification"
)

type testEnv struct {
	cfg           *config.Config
	pg            *database.PostgresClient
	redis         *database.RedisClient
	notifications *store.NotificationStore
	broadcasts    *store.BroadcastStore
	templates     *store.TemplateStore
	users         *store.UserStore
	queue         *queue.RedisQueue
	consumer      *queue.Consumer
	dispatcher    *dispatch.Service
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping E2E tests in short mode")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Skipf("config unavailable: %v", err)
	}

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil || pg.Ping(context.Background()) != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { pg.Close() })

	rds, err := database.NewRedis(cfg.Database.Redis)
	if err != nil || rds.Ping(context.Background()) != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { rds.Close() })

	log := logger.NewTestLogger(t)

	// Isolated queue key per run so parallel CI jobs never cross.
	queueKey := fmt.Sprintf("e2e:jobs:%s", uuid.New().String()[:8])
	jobQueue := queue.NewRedisQueue(rds.Client, queueKey, time.Minute)
	consumer := queue.NewConsumer(jobQueue, log, 50*time.Millisecond, 30*time.Second)

	notifications := store.NewNotificationStore(pg.DB)
	broadcasts := store.NewBroadcastStore(pg.DB)
	templates := store.NewTemplateStore(pg.DB)
	settings := store.NewSettingsStore(pg.DB)
	users := store.NewUserStore(pg.DB)

	gate := dispatch.NewPreferenceGate(settings, log)
	dispatcher := dispatch.NewService(templates, users, notifications, gate, jobQueue, "E2E Site", log)

	// Console SMS and a no-network email path keep the suite hermetic.
	smsBackend := backends.NewConsoleSMSBackend(log)
	emailBackend := backends.EmailBackend(recordingEmailBackend{})

	sendHandler := sendnotification.NewHandler(
		sendnotification.DefaultConfig(), notifications, broadcasts, emailBackend, smsBackend, nil, log)
	consumer.Register(sendnotification.TaskType, sendHandler, 30*time.Second)

	broadcastHandler := processbroadcast.NewHandler(
		processbroadcast.DefaultConfig(), broadcasts, users, dispatcher, log)
	consumer.Register(processbroadcast.TaskType, broadcastHandler, 10*time.Minute)

	return &testEnv{
		cfg:           cfg,
		pg:            pg,
		redis:         rds,
		notifications: notifications,
		broadcasts:    broadcasts,
		templates:     templates,
		users:         users,
		queue:         jobQueue,
		consumer:      consumer,
		dispatcher:    dispatcher,
	}
}

type recordingEmailBackend struct{}

func (recordingEmailBackend) SendEmail(ctx context.Context, email *backends.Email) error {
	return nil
}

// drain processes queue jobs until it stays empty.
func (e *testEnv) drain(t *testing.T, ctx context.Context) {
	t.Helper()
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		processed, err := e.consumer.ProcessOne(ctx)
		require.NoError(t, err)
		if !processed {
			depth, err := e.queue.Depth(ctx)
			require.NoError(t, err)
			if depth == 0 {
				return
			}
			time.Sleep(50 * time.Millisecond)
		}
	}
	t.Fatal("queue did not drain in time")
}

func (e *testEnv) seedTemplate(t *testing.T, tpl *models.NotificationTemplate) *models.NotificationTemplate {
	t.Helper()
	require.NoError(t, e.templates.Upsert(context.Background(), tpl))
	seeded, err := e.templates.GetByName(context.Background(), tpl.Name)
	require.NoError(t, err)
	return seeded
}

func (e *testEnv) seedUser(t *testing.T, email string) *models.User {
	t.Helper()
	id := uuid.New().String()
	_, err := e.pg.DB.ExecContext(context.Background(), `
		INSERT INTO users (id, email, username, first_name, last_name, is_active, role)
		VALUES ($1, $2, $3, 'E2E', 'User', TRUE, 'e2e')`,
		id, email, email)
	require.NoError(t, err)
	t.Cleanup(func() {
		e.pg.DB.Exec(`DELETE FROM notifications WHERE user_id = $1`, id)
		e.pg.DB.Exec(`DELETE FROM users WHERE id = $1`, id)
	})
	u, err := e.users.GetByID(context.Background(), id)
	require.NoError(t, err)
	return u
}

func TestDispatchAndDeliver(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	tpl := env.seedTemplate(t, &models.NotificationTemplate{
		Name:    fmt.Sprintf("e2e-welcome-%s", uuid.New().String()[:8]),
		Type:    models.TemplateEmail,
		Subject: "Welcome to {{ site_name }}",
		Body:    "Hi {{ first_name }}",
		Active:  true,
	})
	user := env.seedUser(t, fmt.Sprintf("e2e-%s@example.com", uuid.New().String()[:8]))

	out, err := env.dispatcher.Send(ctx, &dispatch.Request{
		UserID:     user.ID,
		Channel:    models.ChannelEmail,
		TemplateID: tpl.ID,
	})
	require.NoError(t, err)
	require.False(t, out.Skipped)
	assert.Equal(t, "Welcome to E2E Site", out.Notification.Subject)

	env.drain(t, ctx)

	final, err := env.notifications.GetByID(ctx, out.Notification.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NotificationSent, final.Status)
	assert.NotNil(t, final.SentAt)
}

func TestBroadcastFanOut(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	tpl := env.seedTemplate(t, &models.NotificationTemplate{
		Name:    fmt.Sprintf("e2e-promo-%s", uuid.New().String()[:8]),
		Type:    models.TemplateEmail,
		Subject: "Hello from {{ site_name }}",
		Body:    "Hi {{ first_name }}",
		Active:  true,
	})

	role := fmt.Sprintf("e2e-%s", uuid.New().String()[:8])
	for i := 0; i < 3; i++ {
		u := env.seedUser(t, fmt.Sprintf("e2e-%d-%s@example.com", i, uuid.New().String()[:8]))
		_, err := env.pg.DB.ExecContext(ctx, `UPDATE users SET role = $2 WHERE id = $1`, u.ID, role)
		require.NoError(t, err)
	}

	broadcastID := uuid.New().String()
	_, err := env.pg.DB.ExecContext(ctx, `
		INSERT INTO broadcasts
			(id, name, template_id, channel, recipient_filter, status, created_at, updated_at)
		VALUES ($1, 'e2e broadcast', $2, 'email', $3, 'draft', NOW(), NOW())`,
		broadcastID, tpl.ID, fmt.Sprintf(`{"role": %q}`, role))
	require.NoError(t, err)
	t.Cleanup(func() {
		env.pg.DB.Exec(`DELETE FROM notifications WHERE broadcast_id = $1`, broadcastID)
		env.pg.DB.Exec(`DELETE FROM broadcasts WHERE id = $1`, broadcastID)
	})

	control := dispatch.NewBroadcastControl(env.broadcasts, env.templates, env.queue, logger.NewTestLogger(t))
	require.NoError(t, control.Start(ctx, broadcastID))

	env.drain(t, ctx)

	final, err := env.broadcasts.GetByID(ctx, broadcastID)
	require.NoError(t, err)
	assert.Equal(t, models.BroadcastSent, final.Status)
	assert.Equal(t, int64(3), final.TotalRecipients)
	assert.Equal(t, int64(3), final.SentCount)
	assert.Zero(t, final.FailedCount)
	assert.NotNil(t, final.CompletedAt)
}
