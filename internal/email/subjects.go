package email

const (
	subjectStatusChangedFmt  = "Solicitação %s atualizada"
	subjectPendencyOpenedFmt = "Pendência na solicitação %s"
	subjectRenewalCreatedFmt = "Renovação da solicitação %s"
)
