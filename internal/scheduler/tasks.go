package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskRenewalDue = "solicitacao.renewal.due"

const TaskNotificationOutboxDue = "notification.outbox.due"

type RenewalDuePayload struct {
	SolicitacaoID string `json:"solicitacaoId"`
}

type NotificationOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
}

func NewRenewalDueTask(payload RenewalDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRenewalDue, data), nil
}

func ParseRenewalDuePayload(task *asynq.Task) (RenewalDuePayload, error) {
	var payload RenewalDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return RenewalDuePayload{}, err
	}
	return payload, nil
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}
