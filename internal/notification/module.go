// Package notification turns request workflow events into e-mails for the
// beneficiary contact. Events are written to the outbox first; delivery happens
// later from the scheduler worker, so a failing SMTP server never blocks a transition.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"beneficios_backend/internal/email"
	"beneficios_backend/internal/events"
	notificationoutbox "beneficios_backend/internal/notification/outbox"
	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	templateStatusChanged  = "status_changed"
	templatePendencyOpened = "pendency_opened"
	templateRenewalCreated = "renewal_created"

	invalidOutboxPayloadPrefix = "invalid payload: "
	maxOutboxRetryAttempts     = 5
	outboxRetryBaseDelay       = time.Minute
	outboxRetryMaxDelay        = 60 * time.Minute
	renewalDateLayout          = "02/01/2006"
)

// OutboxStore is the subset of the outbox repository the module needs.
type OutboxStore interface {
	Insert(ctx context.Context, p notificationoutbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (notificationoutbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error
}

// Module handles the notification-related event subscriptions.
type Module struct {
	outbox  OutboxStore
	sender  email.Sender
	catalog *domain.Catalog
	log     *logger.Logger
	now     func() time.Time
}

// New creates the module. catalog is used for benefit display names and may be nil.
func New(outbox OutboxStore, sender email.Sender, catalog *domain.Catalog, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Module{
		outbox:  outbox,
		sender:  sender,
		catalog: catalog,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes to the workflow events that reach the beneficiary.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.SolicitacaoStatusChanged{}.EventName(), m)
	bus.Subscribe(events.PendenciaOpened{}.EventName(), m)
	bus.Subscribe(events.SolicitacaoRenewed{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.SolicitacaoStatusChanged:
		return m.handleStatusChanged(ctx, e)
	case events.PendenciaOpened:
		return m.handlePendencyOpened(ctx, e)
	case events.SolicitacaoRenewed:
		return m.handleRenewed(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

type statusChangedPayload struct {
	ToEmail string                  `json:"toEmail"`
	Data    email.StatusChangedData `json:"data"`
}

type pendencyOpenedPayload struct {
	ToEmail string                   `json:"toEmail"`
	Data    email.PendencyOpenedData `json:"data"`
}

type renewalCreatedPayload struct {
	ToEmail string                   `json:"toEmail"`
	Data    email.RenewalCreatedData `json:"data"`
}

func (m *Module) handleStatusChanged(ctx context.Context, e events.SolicitacaoStatusChanged) error {
	if strings.TrimSpace(e.ContatoEmail) == "" {
		return nil
	}
	return m.enqueue(ctx, templateStatusChanged, statusChangedPayload{
		ToEmail: e.ContatoEmail,
		Data: email.StatusChangedData{
			Protocolo:  e.Protocolo,
			Beneficio:  m.benefitName(e.TipoBeneficio),
			Status:     statusLabel(e.StatusNovo),
			Observacao: e.Observacao,
		},
	})
}

func (m *Module) handlePendencyOpened(ctx context.Context, e events.PendenciaOpened) error {
	if strings.TrimSpace(e.ContatoEmail) == "" {
		return nil
	}
	return m.enqueue(ctx, templatePendencyOpened, pendencyOpenedPayload{
		ToEmail: e.ContatoEmail,
		Data:    email.PendencyOpenedData{Protocolo: e.Protocolo, Descricao: e.Descricao},
	})
}

func (m *Module) handleRenewed(ctx context.Context, e events.SolicitacaoRenewed) error {
	if strings.TrimSpace(e.ContatoEmail) == "" {
		return nil
	}
	data := email.RenewalCreatedData{
		ProtocoloOriginal: e.ProtocoloOriginal,
		Protocolo:         e.Protocolo,
		Contador:          e.ContadorRenovacoes,
	}
	if e.DataProximaRenovacao != nil {
		data.ProximaRenovacao = e.DataProximaRenovacao.Format(renewalDateLayout)
	}
	return m.enqueue(ctx, templateRenewalCreated, renewalCreatedPayload{ToEmail: e.ContatoEmail, Data: data})
}

func (m *Module) enqueue(ctx context.Context, template string, payload any) error {
	if m.outbox == nil {
		m.log.Debug("notification outbox not configured; dropping notification", "template", template)
		return nil
	}
	id, err := m.outbox.Insert(ctx, notificationoutbox.InsertParams{
		Kind:     notificationoutbox.KindEmail,
		Template: template,
		Payload:  payload,
		RunAt:    m.now(),
	})
	if err != nil {
		return fmt.Errorf("enqueue %s notification: %w", template, err)
	}
	m.log.Debug("notification queued", "outboxId", id.String(), "template", template)
	return nil
}

// Deliver sends the e-mail stored in one outbox record. Transient failures are
// rescheduled with exponential backoff until maxOutboxRetryAttempts is reached.
// Delivering a record that already succeeded is a no-op.
func (m *Module) Deliver(ctx context.Context, outboxID uuid.UUID) error {
	if m.outbox == nil {
		m.log.Debug("notification outbox not configured; skipping delivery", "outboxId", outboxID)
		return nil
	}
	rec, process, err := m.prepareOutboxRecord(ctx, outboxID)
	if err != nil || !process {
		if err != nil {
			m.log.Error("failed to prepare outbox record", "outboxId", outboxID, "error", err)
		}
		return err
	}

	if rec.Kind != notificationoutbox.KindEmail {
		m.markOutboxUnsupported(ctx, rec)
		return nil
	}

	processErr := m.send(ctx, rec)
	var invalid invalidPayloadError
	if errors.As(processErr, &invalid) {
		_ = m.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+invalid.Error())
		m.log.Warn("outbox record has invalid payload", "outboxId", rec.ID.String(), "template", rec.Template, "error", invalid)
		return nil
	}
	if errors.Is(processErr, errUnsupportedTemplate) {
		m.markOutboxUnsupported(ctx, rec)
		return nil
	}
	if processErr != nil {
		m.handleOutboxDeliveryError(ctx, rec, processErr)
		return processErr
	}

	if err := m.outbox.MarkSucceeded(ctx, rec.ID); err != nil {
		return err
	}
	m.log.Info("outbox record processed successfully", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
	return nil
}

var errUnsupportedTemplate = errors.New("unsupported outbox template")

type invalidPayloadError struct{ err error }

func (e invalidPayloadError) Error() string { return e.err.Error() }

func (m *Module) send(ctx context.Context, rec notificationoutbox.Record) error {
	switch rec.Template {
	case templateStatusChanged:
		var p statusChangedPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return invalidPayloadError{err}
		}
		return m.sender.SendStatusChangedEmail(ctx, p.ToEmail, p.Data)
	case templatePendencyOpened:
		var p pendencyOpenedPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return invalidPayloadError{err}
		}
		return m.sender.SendPendencyOpenedEmail(ctx, p.ToEmail, p.Data)
	case templateRenewalCreated:
		var p renewalCreatedPayload
		if err := json.Unmarshal(rec.Payload, &p); err != nil {
			return invalidPayloadError{err}
		}
		return m.sender.SendRenewalCreatedEmail(ctx, p.ToEmail, p.Data)
	default:
		return errUnsupportedTemplate
	}
}

func (m *Module) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (notificationoutbox.Record, bool, error) {
	rec, err := m.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return notificationoutbox.Record{}, false, err
	}
	if rec.Status == notificationoutbox.StatusSucceeded || rec.Status == notificationoutbox.StatusFailed {
		m.log.Debug("outbox record already finished; skipping", "outboxId", rec.ID.String(), "status", rec.Status)
		return rec, false, nil
	}
	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return notificationoutbox.Record{}, false, err
	}
	m.log.Debug("outbox record marked processing", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
	return rec, true, nil
}

func (m *Module) markOutboxUnsupported(ctx context.Context, rec notificationoutbox.Record) {
	msg := fmt.Sprintf("unsupported outbox record kind=%s template=%s", rec.Kind, rec.Template)
	_ = m.outbox.MarkFailed(ctx, rec.ID, msg)
	m.log.Warn(msg, "outboxId", rec.ID.String())
}

func (m *Module) handleOutboxDeliveryError(ctx context.Context, rec notificationoutbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Warn("notification outbox exhausted retries",
			"outboxId", rec.ID.String(),
			"template", rec.Template,
			"attempt", attempt,
			"maxAttempts", maxOutboxRetryAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := m.now().Add(computeOutboxRetryDelay(attempt))
	if err := m.outbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Error("notification outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID.String(),
			"attempt", attempt,
			"error", err,
		)
		return
	}

	m.log.Warn("notification outbox scheduled retry",
		"outboxId", rec.ID.String(),
		"template", rec.Template,
		"attempt", attempt,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}

func (m *Module) benefitName(tipo string) string {
	if m.catalog == nil {
		return tipo
	}
	if bt, ok := m.catalog.Lookup(domain.TipoBeneficio(tipo)); ok && bt.Nome != "" {
		return bt.Nome
	}
	return tipo
}

var statusLabels = map[string]string{
	string(domain.StatusRascunho):             "Rascunho",
	string(domain.StatusAberta):               "Aberta",
	string(domain.StatusEmAnalise):            "Em análise",
	string(domain.StatusPendente):             "Pendente",
	string(domain.StatusAguardandoDocumentos): "Aguardando documentos",
	string(domain.StatusAprovada):             "Aprovada",
	string(domain.StatusIndeferida):           "Indeferida",
	string(domain.StatusLiberada):             "Liberada",
	string(domain.StatusEmProcessamento):      "Em processamento",
	string(domain.StatusConcluida):            "Concluída",
	string(domain.StatusArquivada):            "Arquivada",
	string(domain.StatusRejeitada):            "Rejeitada",
	string(domain.StatusCancelada):            "Cancelada",
}

func statusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}
