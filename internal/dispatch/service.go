// Package dispatch is the synchronous half of the pipeline: validate, gate,
// render, persist a pending notification, enqueue the delivery job. Actual
// transport happens later in the worker.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"notification-engine/internal/common/errors"
	"notification-engine/internal/common/logger"
	"notification-engine/internal/common/metrics"
	"notification-engine/internal/models"
	"notification-engine/internal/queue"
	"notification-engine/internal/render"
)

// Job types understood by the worker fleet.
const (
	JobTypeSendNotification = "send-notification"
	JobTypeProcessBroadcast = "process-broadcast"
)

// SendJobPayload is the payload of a send-notification job. The row carries
// the rendered content; the job only points at it.
type SendJobPayload struct {
	NotificationID string `json:"notification_id"`
}

// BroadcastJobPayload is the payload of a process-broadcast job.
type BroadcastJobPayload struct {
	BroadcastID string `json:"broadcast_id"`
}

// TemplateSource loads templates by ID or name.
type TemplateSource interface {
	GetByID(ctx context.Context, id string) (*models.NotificationTemplate, error)
	GetByName(ctx context.Context, name string) (*models.NotificationTemplate, error)
}

// UserSource loads recipients.
type UserSource interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// NotificationSink persists new notification rows.
type NotificationSink interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Enqueuer schedules delivery jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job *queue.Job, delay time.Duration) error
}

// Request describes one notification to dispatch. TemplateID or TemplateName
// selects the template; with neither set, Subject and Body are sent verbatim.
// UserID resolves the recipient address and preferences; Recipient/PhoneNumber
// address a one-off delivery directly.
type Request struct {
	UserID       string
	Recipient    string
	PhoneNumber  string
	Channel      models.Channel
	TemplateID   string
	TemplateName string
	Subject      string
	Body         string
	Context      map[string]interface{}
	BroadcastID  string
}

// Outcome reports what Send did. Skipped is true when the user's preferences
// blocked the channel; no notification row exists in that case.
type Outcome struct {
	Notification *models.Notification
	Skipped      bool
}

type Service struct {
	templates TemplateSource
	users     UserSource
	store     NotificationSink
	gate      *PreferenceGate
	enqueuer  Enqueuer
	siteName  string
	log       logger.Logger
}

func NewService(templates TemplateSource, users UserSource, store NotificationSink,
	gate *PreferenceGate, enqueuer Enqueuer, siteName string, log logger.Logger) *Service {
	return &Service{
		templates: templates,
		users:     users,
		store:     store,
		gate:      gate,
		enqueuer:  enqueuer,
		siteName:  siteName,
		log:       log,
	}
}

// Send runs the dispatch pipeline for one notification. The returned
// notification is pending; delivery happens asynchronously.
func (s *Service) Send(ctx context.Context, req *Request) (*Outcome, error) {
	tpl, err := s.resolveTemplate(ctx, req)
	if err != nil {
		return nil, err
	}

	var user *models.User
	if req.UserID != "" {
		user, err = s.users.GetByID(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
	}

	recipient, phoneNumber, err := resolveAddress(req, user)
	if err != nil {
		return nil, err
	}

	if user != nil && !s.gate.Allows(ctx, user.ID, req.Channel) {
		metrics.NotificationsSkipped.WithLabelValues(string(req.Channel)).Inc()
		s.log.Info("notification skipped by user preferences", map[string]interface{}{
			"user_id": user.ID,
			"channel": string(req.Channel),
		})
		return &Outcome{Skipped: true}, nil
	}

	var snapshot map[string]interface{}
	if user != nil {
		snapshot = user.ContextSnapshot()
	}
	renderCtx := BuildContext(s.siteName, snapshot, req.Context)

	subject, body := req.Subject, req.Body
	if tpl != nil {
		msg, err := render.RenderMessage(tpl, req.Channel, renderCtx)
		if err != nil {
			return nil, err
		}
		subject, body = msg.Subject, msg.Body
	}

	n := &models.Notification{
		Recipient:   recipient,
		PhoneNumber: phoneNumber,
		Channel:     req.Channel,
		Subject:     subject,
		Body:        body,
		Context:     renderCtx,
	}
	if user != nil {
		n.UserID = &user.ID
	}
	if req.BroadcastID != "" {
		n.BroadcastID = &req.BroadcastID
	}
	if tpl != nil && tpl.ID != "" {
		n.TemplateID = &tpl.ID
	}

	if err := s.store.Create(ctx, n); err != nil {
		return nil, err
	}

	job, err := queue.NewJob(JobTypeSendNotification, SendJobPayload{NotificationID: n.ID})
	if err != nil {
		return nil, fmt.Errorf("build send job: %w", err)
	}
	if err := s.enqueuer.Enqueue(ctx, job, 0); err != nil {
		return nil, fmt.Errorf("enqueue send job for notification %s: %w", n.ID, err)
	}

	fields := map[string]interface{}{
		"notification_id": n.ID,
		"channel":         string(req.Channel),
	}
	if tpl != nil {
		fields["template"] = tpl.Name
	}
	s.log.Info("notification dispatched", fields)
	return &Outcome{Notification: n}, nil
}

// resolveTemplate returns nil for template-less requests carrying a verbatim
// body. A request with neither a template nor a body has nothing to send.
func (s *Service) resolveTemplate(ctx context.Context, req *Request) (*models.NotificationTemplate, error) {
	switch {
	case req.TemplateID != "":
		return s.templates.GetByID(ctx, req.TemplateID)
	case req.TemplateName != "":
		return s.templates.GetByName(ctx, req.TemplateName)
	case req.Body != "":
		return nil, nil
	default:
		return nil, errors.NewTemplateError("no template specified")
	}
}

// resolveAddress picks the delivery address for the channel: the explicit
// request value first, then the user record.
func resolveAddress(req *Request, user *models.User) (recipient, phoneNumber string, err error) {
	switch req.Channel {
	case models.ChannelEmail:
		recipient = req.Recipient
		if recipient == "" && user != nil {
			recipient = user.Email
		}
		if recipient == "" {
			return "", "", errors.NewNoRecipientError("no email address for recipient")
		}
	case models.ChannelSMS:
		phoneNumber = req.PhoneNumber
		if phoneNumber == "" && user != nil {
			phoneNumber = user.PhoneNumber
		}
		if phoneNumber == "" {
			return "", "", errors.NewNoRecipientError("no phone number for recipient")
		}
	default:
		return "", "", errors.NewNoRecipientError(fmt.Sprintf("unknown channel %q", req.Channel))
	}
	return recipient, phoneNumber, nil
}
