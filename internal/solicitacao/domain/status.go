package domain

// Status is the canonical lifecycle status of a Request.
type Status string

const (
	StatusRascunho             Status = "rascunho"
	StatusAberta               Status = "aberta"
	StatusEmAnalise            Status = "em_analise"
	StatusPendente             Status = "pendente"
	StatusAguardandoDocumentos Status = "aguardando_documentos"
	StatusAprovada             Status = "aprovada"
	StatusIndeferida           Status = "indeferida"
	StatusLiberada             Status = "liberada"
	StatusEmProcessamento      Status = "em_processamento"
	StatusConcluida            Status = "concluida"
	StatusArquivada            Status = "arquivada"
	StatusRejeitada            Status = "rejeitada"
	StatusCancelada            Status = "cancelada"
)

var knownStatuses = map[Status]struct{}{
	StatusRascunho:             {},
	StatusAberta:               {},
	StatusEmAnalise:            {},
	StatusPendente:             {},
	StatusAguardandoDocumentos: {},
	StatusAprovada:             {},
	StatusIndeferida:           {},
	StatusLiberada:             {},
	StatusEmProcessamento:      {},
	StatusConcluida:            {},
	StatusArquivada:            {},
	StatusRejeitada:            {},
	StatusCancelada:            {},
}

var terminalStatuses = map[Status]struct{}{
	StatusConcluida:  {},
	StatusCancelada:  {},
	StatusArquivada:  {},
	StatusIndeferida: {},
	StatusRejeitada:  {},
}

// transitions is the allow-list. Slice order is the search order used by PathTo.
var transitions = map[Status][]Status{
	StatusRascunho:             {StatusAberta, StatusCancelada},
	StatusAberta:               {StatusEmAnalise, StatusRejeitada, StatusCancelada, StatusArquivada},
	StatusEmAnalise:            {StatusAprovada, StatusPendente, StatusIndeferida, StatusAguardandoDocumentos, StatusCancelada, StatusArquivada},
	StatusPendente:             {StatusEmAnalise, StatusCancelada, StatusArquivada},
	StatusAguardandoDocumentos: {StatusEmAnalise, StatusCancelada, StatusArquivada},
	StatusAprovada:             {StatusLiberada, StatusCancelada, StatusArquivada},
	StatusLiberada:             {StatusEmProcessamento, StatusConcluida, StatusCancelada, StatusArquivada},
	StatusEmProcessamento:      {StatusConcluida, StatusCancelada, StatusArquivada},
}

// ParseStatus converts a persisted value into a Status.
// Unknown values are schema violations, never defaults.
func ParseStatus(value string) (Status, error) {
	s := Status(value)
	if _, ok := knownStatuses[s]; !ok {
		return "", SchemaViolation("solicitacao", "status", value)
	}
	return s, nil
}

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	_, ok := terminalStatuses[s]
	return ok
}

// IsKnown reports whether s belongs to the fixed status set.
func (s Status) IsKnown() bool {
	_, ok := knownStatuses[s]
	return ok
}

// CanTransition reports whether from → to is on the allow-list.
func CanTransition(from, to Status) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AllowedTargets returns the statuses reachable from s in one step.
func AllowedTargets(s Status) []Status {
	targets := transitions[s]
	out := make([]Status, len(targets))
	copy(out, targets)
	return out
}

// RequiresPendencyClearance reports whether leaving from towards to must wait for
// every blocking pendency to be resolved.
func RequiresPendencyClearance(from, to Status) bool {
	if from != StatusEmAnalise && from != StatusPendente {
		return false
	}
	return to != StatusPendente && to != StatusCancelada
}

// PathTo returns the shortest chain of allow-listed steps from → to, excluding from.
// It returns nil when to is unreachable and an empty slice when from == to.
func PathTo(from, to Status) []Status {
	if from == to {
		return []Status{}
	}

	prev := map[Status]Status{from: ""}
	queue := []Status{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range transitions[current] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = current
			if next == to {
				return unwindPath(prev, from, to)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func unwindPath(prev map[Status]Status, from, to Status) []Status {
	var reversed []Status
	for step := to; step != from; step = prev[step] {
		reversed = append(reversed, step)
	}
	path := make([]Status, len(reversed))
	for i, step := range reversed {
		path[len(reversed)-1-i] = step
	}
	return path
}
