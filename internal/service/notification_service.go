package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/noah-isme/admission-workflow-api/internal/models"
	"github.com/noah-isme/admission-workflow-api/pkg/jobs"
)

// JobTypeStatusChanged is the queue job type for status change notifications.
const JobTypeStatusChanged = "status_changed"

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// StatusChange describes a committed transition worth telling the owner about.
type StatusChange struct {
	Entity    string
	SubjectID int64
	Reference string
	From      string
	To        string
	OwnerID   int64
	ActorID   int64
}

// NotificationMessage is a rendered email.
type NotificationMessage struct {
	ToName    string
	ToAddress string
	Subject   string
	Text      string
}

// Notifier delivers a rendered message.
type Notifier interface {
	Notify(ctx context.Context, msg NotificationMessage) error
}

type notificationUserReader interface {
	FindContact(ctx context.Context, id int64) (*models.User, error)
}

type jobQueue interface {
	Register(jobType string, handler jobs.Handler)
	Enqueue(job jobs.Job) error
}

// NotificationService turns committed transitions into queued notifications.
// Delivery problems are logged and retried by the queue; they never reach the
// caller of the transition.
type NotificationService struct {
	queue    jobQueue
	users    notificationUserReader
	notifier Notifier
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewNotificationService wires the service and registers its job handler.
func NewNotificationService(queue jobQueue, users notificationUserReader, notifier Notifier, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{queue: queue, users: users, notifier: notifier, metrics: metrics, logger: logger}
	if queue != nil {
		queue.Register(JobTypeStatusChanged, svc.handle)
	}
	return svc
}

// StatusChanged enqueues a notification for change.
func (s *NotificationService) StatusChanged(change StatusChange) {
	if s == nil || s.queue == nil {
		return
	}
	if err := s.queue.Enqueue(jobs.Job{Type: JobTypeStatusChanged, Payload: change}); err != nil {
		s.metrics.RecordNotification("dropped")
		s.logger.Warn("status notification not queued",
			zap.String("entity", change.Entity),
			zap.Int64("subject_id", change.SubjectID),
			zap.Error(err),
		)
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	change, ok := job.Payload.(StatusChange)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	if change.OwnerID == 0 || change.OwnerID == change.ActorID {
		return nil
	}

	user, err := s.users.FindContact(ctx, change.OwnerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("notification owner missing", zap.Int64("user_id", change.OwnerID))
			return nil
		}
		return fmt.Errorf("load notification owner: %w", err)
	}
	if !user.Active || strings.TrimSpace(user.Email) == "" {
		return nil
	}

	if err := s.notifier.Notify(ctx, renderStatusChange(user, change)); err != nil {
		s.metrics.RecordNotification("failed")
		return err
	}
	s.metrics.RecordNotification("sent")
	return nil
}

func renderStatusChange(user *models.User, change StatusChange) NotificationMessage {
	var label, subject string
	switch change.Entity {
	case models.SubjectTypePayment:
		label = models.PaymentStatus(change.To).Meta().Label
		subject = fmt.Sprintf("Payment %s: %s", change.Reference, label)
	default:
		label = models.ApplicationStatus(change.To).Meta().Label
		subject = fmt.Sprintf("Application %s: %s", change.Reference, label)
	}
	text := fmt.Sprintf("Dear %s,\n\nThe status of %s %s is now %s.\n", user.FullName, change.Entity, change.Reference, label)
	return NotificationMessage{ToName: user.FullName, ToAddress: user.Email, Subject: subject, Text: text}
}

// SendgridNotifier delivers messages through the SendGrid v3 API.
type SendgridNotifier struct {
	key  string
	from *sgmail.Email
	send func(rest.Request) (*rest.Response, error)
}

// NewSendgridNotifier constructs a notifier sending as fromName <fromAddress>.
func NewSendgridNotifier(key, fromName, fromAddress string) *SendgridNotifier {
	return &SendgridNotifier{key: key, from: sgmail.NewEmail(fromName, fromAddress), send: sendgrid.API}
}

func (n *SendgridNotifier) prepare(msg NotificationMessage) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.ToAddress))

	m := sgmail.NewV3Mail()
	m.SetFrom(n.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	return m
}

// Notify sends msg; a 4xx or 5xx answer is an error.
func (n *SendgridNotifier) Notify(_ context.Context, msg NotificationMessage) error {
	req := sendgrid.GetRequest(n.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(n.prepare(msg))

	res, err := n.send(req)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid send: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// LogNotifier writes messages to the log instead of sending them.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a log notifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs msg.
func (n *LogNotifier) Notify(_ context.Context, msg NotificationMessage) error {
	n.logger.Info("notification", zap.String("to", msg.ToAddress), zap.String("subject", msg.Subject))
	return nil
}
