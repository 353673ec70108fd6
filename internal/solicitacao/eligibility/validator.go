// Package eligibility checks a benefit payload against its mandatory fields and
// the catalog-driven domain limits. It never fails fast: every violation is reported.
package eligibility

import (
	"fmt"
	"time"

	"beneficios_backend/internal/solicitacao/domain"
	"beneficios_backend/platform/validator"
)

// Validator is safe for concurrent use.
type Validator struct {
	val     *validator.Validator
	catalog *domain.Catalog
	now     func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock overrides the reference clock used for date rules.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

func New(catalog *domain.Catalog, opts ...Option) *Validator {
	v := &Validator{
		val:     validator.New(),
		catalog: catalog,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks payload for benefitType. ok is true only when violations is empty.
func (v *Validator) Validate(benefitType domain.TipoBeneficio, payload domain.TypeSpecificData) (bool, []domain.FieldError) {
	violations := v.validate(benefitType, payload)
	return len(violations) == 0, violations
}

// ValidateRequest checks the request payload and its requested value.
func (v *Validator) ValidateRequest(req domain.Request) (bool, []domain.FieldError) {
	violations := v.validate(req.TipoBeneficio, req.Dados)
	if bt, ok := v.catalog.Lookup(req.TipoBeneficio); ok {
		if req.ValorCentavos < 0 {
			violations = append(violations, domain.FieldError{Field: "valor_centavos", Rule: "min", Message: "value must not be negative"})
		}
		if bt.ValorMaximoCentavos > 0 && req.ValorCentavos > bt.ValorMaximoCentavos {
			violations = append(violations, domain.FieldError{
				Field:   "valor_centavos",
				Rule:    "max",
				Message: fmt.Sprintf("value exceeds the %s limit of %d centavos", bt.Codigo, bt.ValorMaximoCentavos),
			})
		}
	}
	return len(violations) == 0, violations
}

// Check is Validate returning a domain.ErrIneligible error carrying the violations.
func (v *Validator) Check(req domain.Request) error {
	if ok, violations := v.ValidateRequest(req); !ok {
		return domain.Ineligible(violations)
	}
	return nil
}

func (v *Validator) validate(benefitType domain.TipoBeneficio, payload domain.TypeSpecificData) []domain.FieldError {
	bt, known := v.catalog.Lookup(benefitType)
	if !known {
		return []domain.FieldError{{Field: "tipo_beneficio", Rule: "oneof", Message: fmt.Sprintf("unknown benefit type %q", benefitType)}}
	}
	if !payload.Matches(benefitType) {
		return []domain.FieldError{{
			Field:   "tipo",
			Rule:    "discriminator",
			Message: fmt.Sprintf("payload for %q does not match benefit type %q", payload.Tipo, benefitType),
		}}
	}

	prefix := string(benefitType)
	violations := v.structViolations(prefix, payload.Variant())
	today := v.today()

	switch benefitType {
	case domain.BeneficioNatalidade:
		d := payload.Natalidade
		if d.DataNascimento != nil && dayOf(*d.DataNascimento).After(today) {
			violations = append(violations, fieldError(prefix, "data_nascimento", "not_future", "birth date cannot be in the future"))
		}

	case domain.BeneficioAluguelSocial:
		d := payload.AluguelSocial
		if bt.ValorMaximoCentavos > 0 && d.ValorAluguelCentavos > bt.ValorMaximoCentavos {
			violations = append(violations, fieldError(prefix, "valor_aluguel_centavos", "max",
				fmt.Sprintf("rent exceeds the limit of %d centavos", bt.ValorMaximoCentavos)))
		}

	case domain.BeneficioFuneral:
		d := payload.Funeral
		if d.DataObito == nil {
			break
		}
		death := dayOf(*d.DataObito)
		if death.After(today) {
			violations = append(violations, fieldError(prefix, "data_obito", "not_future", "date of death cannot be in the future"))
		} else if bt.MaxDiasObito > 0 && today.Sub(death) > time.Duration(bt.MaxDiasObito)*24*time.Hour {
			violations = append(violations, fieldError(prefix, "data_obito", "max_days",
				fmt.Sprintf("request must be filed within %d days of the death", bt.MaxDiasObito)))
		}
	}

	return violations
}

func (v *Validator) structViolations(prefix string, variant any) []domain.FieldError {
	found, err := v.val.Violations(variant)
	if err != nil {
		return []domain.FieldError{{Field: prefix, Rule: "invalid", Message: err.Error()}}
	}
	out := make([]domain.FieldError, 0, len(found))
	for _, f := range found {
		out = append(out, fieldError(prefix, f.Field, f.Rule, ruleMessage(f)))
	}
	return out
}

func (v *Validator) today() time.Time {
	return dayOf(v.now())
}

func dayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func fieldError(prefix, field, rule, message string) domain.FieldError {
	return domain.FieldError{Field: prefix + "." + field, Rule: rule, Message: message}
}

func ruleMessage(v validator.Violation) string {
	switch v.Rule {
	case "required":
		return "field is required"
	case "required_without":
		return fmt.Sprintf("field is required when %s is not informed", v.Param)
	case "gt":
		return fmt.Sprintf("must be greater than %s", v.Param)
	case "min":
		return fmt.Sprintf("must be at least %s", v.Param)
	case "max":
		return fmt.Sprintf("must be at most %s", v.Param)
	case "oneof":
		return fmt.Sprintf("must be one of: %s", v.Param)
	default:
		return fmt.Sprintf("failed %s validation", v.Rule)
	}
}
