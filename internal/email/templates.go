package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title      string
	Heading    string
	Subheading string
}

// StatusChangedData is rendered when a request changes status.
type StatusChangedData struct {
	Protocolo  string
	Beneficio  string
	Status     string
	Observacao string
}

// PendencyOpenedData is rendered when a pendency is raised against a request.
type PendencyOpenedData struct {
	Protocolo string
	Descricao string
}

// RenewalCreatedData is rendered when a renewal request is created.
type RenewalCreatedData struct {
	ProtocoloOriginal string
	Protocolo         string
	Contador          int
	ProximaRenovacao  string
}

type statusChangedEmailData struct {
	baseEmailData
	StatusChangedData
}

type pendencyOpenedEmailData struct {
	baseEmailData
	PendencyOpenedData
}

type renewalCreatedEmailData struct {
	baseEmailData
	RenewalCreatedData
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

func renderStatusChanged(data StatusChangedData) (string, string, error) {
	content, err := renderEmailTemplate("status_changed.html", statusChangedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Atualização da solicitação",
			Heading: "Sua solicitação foi atualizada",
		},
		StatusChangedData: data,
	})
	return fmt.Sprintf(subjectStatusChangedFmt, data.Protocolo), content, err
}

func renderPendencyOpened(data PendencyOpenedData) (string, string, error) {
	content, err := renderEmailTemplate("pendency_opened.html", pendencyOpenedEmailData{
		baseEmailData: baseEmailData{
			Title:      "Pendência registrada",
			Heading:    "Há uma pendência na sua solicitação",
			Subheading: "Compareça à unidade com a documentação indicada.",
		},
		PendencyOpenedData: data,
	})
	return fmt.Sprintf(subjectPendencyOpenedFmt, data.Protocolo), content, err
}

func renderRenewalCreated(data RenewalCreatedData) (string, string, error) {
	content, err := renderEmailTemplate("renewal_created.html", renewalCreatedEmailData{
		baseEmailData: baseEmailData{
			Title:   "Renovação do benefício",
			Heading: "Seu benefício entrou em renovação",
		},
		RenewalCreatedData: data,
	})
	return fmt.Sprintf(subjectRenewalCreatedFmt, data.ProtocoloOriginal), content, err
}
