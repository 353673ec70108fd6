package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// DadosNatalidade is the birth-aid payload.
type DadosNatalidade struct {
	DataProvavelParto *time.Time `json:"data_provavel_parto,omitempty" validate:"required_without=DataNascimento"`
	DataNascimento    *time.Time `json:"data_nascimento,omitempty" validate:"required_without=DataProvavelParto"`
	RealizaPreNatal   bool       `json:"realiza_pre_natal"`
	GemeosTrigemeos   bool       `json:"gemeos_trigemeos"`
}

// DadosAluguelSocial is the social-rent payload.
type DadosAluguelSocial struct {
	Motivo               string `json:"motivo" validate:"required,max=500"`
	ValorAluguelCentavos int64  `json:"valor_aluguel_centavos" validate:"required,gt=0"`
	PeriodoMeses         int    `json:"periodo_meses,omitempty" validate:"omitempty,min=1,max=12"`
	PublicoPrioritario   string `json:"publico_prioritario,omitempty"`
}

// DadosFuneral is the funeral-aid payload.
type DadosFuneral struct {
	DataObito     *time.Time `json:"data_obito" validate:"required"`
	CertidaoObito bool       `json:"certidao_obito" validate:"required"`
	NomeFalecido  string     `json:"nome_falecido" validate:"required"`
	Parentesco    string     `json:"parentesco,omitempty"`
	TipoUrna      string     `json:"tipo_urna,omitempty" validate:"omitempty,oneof=padrao obeso infantil"`
}

// DadosCestaBasica is the food-basket payload.
type DadosCestaBasica struct {
	QuantidadeFamilia int    `json:"quantidade_familia" validate:"required,min=1"`
	TipoEntrega       string `json:"tipo_entrega" validate:"required,oneof=presencial domicilio"`
	QuantidadeCestas  int    `json:"quantidade_cestas,omitempty" validate:"omitempty,min=1,max=6"`
}

// TypeSpecificData is the discriminated per-benefit payload of a Request.
// Exactly the variant named by Tipo is set.
type TypeSpecificData struct {
	Tipo          TipoBeneficio       `json:"tipo"`
	Natalidade    *DadosNatalidade    `json:"natalidade,omitempty"`
	AluguelSocial *DadosAluguelSocial `json:"aluguel_social,omitempty"`
	Funeral       *DadosFuneral       `json:"funeral,omitempty"`
	CestaBasica   *DadosCestaBasica   `json:"cesta_basica,omitempty"`
}

// Variant returns the payload selected by Tipo, or nil when it is missing.
func (d TypeSpecificData) Variant() any {
	switch d.Tipo {
	case BeneficioNatalidade:
		if d.Natalidade != nil {
			return d.Natalidade
		}
	case BeneficioAluguelSocial:
		if d.AluguelSocial != nil {
			return d.AluguelSocial
		}
	case BeneficioFuneral:
		if d.Funeral != nil {
			return d.Funeral
		}
	case BeneficioCestaBasica:
		if d.CestaBasica != nil {
			return d.CestaBasica
		}
	}
	return nil
}

// variantCount returns how many variant pointers are populated.
func (d TypeSpecificData) variantCount() int {
	n := 0
	if d.Natalidade != nil {
		n++
	}
	if d.AluguelSocial != nil {
		n++
	}
	if d.Funeral != nil {
		n++
	}
	if d.CestaBasica != nil {
		n++
	}
	return n
}

// Matches reports whether the discriminator equals t and exactly that variant is set.
func (d TypeSpecificData) Matches(t TipoBeneficio) bool {
	return d.Tipo == t && d.variantCount() == 1 && d.Variant() != nil
}

// Clone returns a deep copy; renewals edit their copy independently of the parent.
func (d TypeSpecificData) Clone() TypeSpecificData {
	out := TypeSpecificData{Tipo: d.Tipo}
	if d.Natalidade != nil {
		v := *d.Natalidade
		v.DataProvavelParto = cloneTime(d.Natalidade.DataProvavelParto)
		v.DataNascimento = cloneTime(d.Natalidade.DataNascimento)
		out.Natalidade = &v
	}
	if d.AluguelSocial != nil {
		v := *d.AluguelSocial
		out.AluguelSocial = &v
	}
	if d.Funeral != nil {
		v := *d.Funeral
		v.DataObito = cloneTime(d.Funeral.DataObito)
		out.Funeral = &v
	}
	if d.CestaBasica != nil {
		v := *d.CestaBasica
		out.CestaBasica = &v
	}
	return out
}

// MarshalVariant encodes only the selected variant for storage beside its discriminator.
func (d TypeSpecificData) MarshalVariant() ([]byte, error) {
	v := d.Variant()
	if v == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(v)
}

// UnmarshalTypeSpecificData decodes a stored variant. Unknown discriminators are schema violations.
func UnmarshalTypeSpecificData(tipo string, raw []byte) (TypeSpecificData, error) {
	t, err := ParseTipoBeneficio(tipo)
	if err != nil {
		return TypeSpecificData{}, err
	}

	out := TypeSpecificData{Tipo: t}
	var target any
	switch t {
	case BeneficioNatalidade:
		out.Natalidade = &DadosNatalidade{}
		target = out.Natalidade
	case BeneficioAluguelSocial:
		out.AluguelSocial = &DadosAluguelSocial{}
		target = out.AluguelSocial
	case BeneficioFuneral:
		out.Funeral = &DadosFuneral{}
		target = out.Funeral
	case BeneficioCestaBasica:
		out.CestaBasica = &DadosCestaBasica{}
		target = out.CestaBasica
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, target); err != nil {
			return TypeSpecificData{}, fmt.Errorf("decode %s payload: %w", t, err)
		}
	}
	return out, nil
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
