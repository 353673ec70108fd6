package domain

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// TipoBeneficio identifies a benefit type.
type TipoBeneficio string

const (
	BeneficioNatalidade    TipoBeneficio = "natalidade"
	BeneficioAluguelSocial TipoBeneficio = "aluguel_social"
	BeneficioFuneral       TipoBeneficio = "funeral"
	BeneficioCestaBasica   TipoBeneficio = "cesta_basica"
)

var knownBenefitTypes = map[TipoBeneficio]struct{}{
	BeneficioNatalidade:    {},
	BeneficioAluguelSocial: {},
	BeneficioFuneral:       {},
	BeneficioCestaBasica:   {},
}

// ParseTipoBeneficio converts a persisted value into a TipoBeneficio.
func ParseTipoBeneficio(value string) (TipoBeneficio, error) {
	t := TipoBeneficio(value)
	if _, ok := knownBenefitTypes[t]; !ok {
		return "", SchemaViolation("solicitacao", "tipo_beneficio", value)
	}
	return t, nil
}

// Periodicidade is how a granted benefit is paid out.
type Periodicidade string

const (
	PeriodicidadeUnico  Periodicidade = "unico"
	PeriodicidadeMensal Periodicidade = "mensal"
)

func ParsePeriodicidade(value string) (Periodicidade, error) {
	switch Periodicidade(value) {
	case PeriodicidadeUnico, PeriodicidadeMensal:
		return Periodicidade(value), nil
	default:
		return "", SchemaViolation("beneficio", "periodicidade", value)
	}
}

// BenefitType holds the per-benefit rules loaded at process start.
type BenefitType struct {
	Codigo                TipoBeneficio `yaml:"codigo"`
	Nome                  string        `yaml:"nome"`
	Periodicidade         Periodicidade `yaml:"periodicidade"`
	QuantidadeParcelas    int           `yaml:"quantidade_parcelas"`
	ValorPadraoCentavos   int64         `yaml:"valor_padrao_centavos"`
	ValorMaximoCentavos   int64         `yaml:"valor_maximo_centavos"`
	MaxRenovacoes         int           `yaml:"max_renovacoes"`
	PeriodoRenovacaoMeses int           `yaml:"periodo_renovacao_meses"`
	MaxDiasObito          int           `yaml:"max_dias_obito"`
	AcaoAprovacao         string        `yaml:"acao_aprovacao"`
}

func (b BenefitType) check() error {
	if _, ok := knownBenefitTypes[b.Codigo]; !ok {
		return SchemaViolation("beneficio", "codigo", string(b.Codigo))
	}
	if _, err := ParsePeriodicidade(string(b.Periodicidade)); err != nil {
		return err
	}
	if b.Periodicidade == PeriodicidadeMensal && b.QuantidadeParcelas < 1 {
		return fmt.Errorf("beneficio %s: mensal requires quantidade_parcelas >= 1", b.Codigo)
	}
	if b.MaxRenovacoes < 0 || b.PeriodoRenovacaoMeses < 0 {
		return fmt.Errorf("beneficio %s: renewal settings must not be negative", b.Codigo)
	}
	if b.MaxRenovacoes > 0 && b.PeriodoRenovacaoMeses == 0 {
		return fmt.Errorf("beneficio %s: renewals require periodo_renovacao_meses", b.Codigo)
	}
	return nil
}

// Catalog is an immutable lookup table of benefit types.
type Catalog struct {
	types map[TipoBeneficio]BenefitType
}

// NewCatalog validates and copies types. Every known benefit type must be present exactly once.
func NewCatalog(types []BenefitType) (*Catalog, error) {
	byCode := make(map[TipoBeneficio]BenefitType, len(types))
	for _, bt := range types {
		if err := bt.check(); err != nil {
			return nil, err
		}
		if _, dup := byCode[bt.Codigo]; dup {
			return nil, fmt.Errorf("beneficio %s declared twice", bt.Codigo)
		}
		byCode[bt.Codigo] = bt
	}
	for code := range knownBenefitTypes {
		if _, ok := byCode[code]; !ok {
			return nil, fmt.Errorf("beneficio %s missing from catalog", code)
		}
	}
	return &Catalog{types: byCode}, nil
}

// LoadCatalog reads a YAML document of the form `beneficios: [...]`.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var doc struct {
		Beneficios []BenefitType `yaml:"beneficios"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode benefit catalog: %w", err)
	}
	return NewCatalog(doc.Beneficios)
}

// DefaultCatalog returns the built-in municipal benefit table.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog([]BenefitType{
		{
			Codigo:              BeneficioNatalidade,
			Nome:                "Auxílio Natalidade",
			Periodicidade:       PeriodicidadeUnico,
			QuantidadeParcelas:  1,
			ValorPadraoCentavos: 50000,
			ValorMaximoCentavos: 50000,
		},
		{
			Codigo:                BeneficioAluguelSocial,
			Nome:                  "Aluguel Social",
			Periodicidade:         PeriodicidadeMensal,
			QuantidadeParcelas:    6,
			ValorPadraoCentavos:   60000,
			ValorMaximoCentavos:   120000,
			MaxRenovacoes:         2,
			PeriodoRenovacaoMeses: 6,
			AcaoAprovacao:         "deferimento_aluguel_social",
		},
		{
			Codigo:              BeneficioFuneral,
			Nome:                "Auxílio Funeral",
			Periodicidade:       PeriodicidadeUnico,
			QuantidadeParcelas:  1,
			ValorPadraoCentavos: 150000,
			ValorMaximoCentavos: 250000,
			MaxDiasObito:        30,
		},
		{
			Codigo:                BeneficioCestaBasica,
			Nome:                  "Cesta Básica",
			Periodicidade:         PeriodicidadeMensal,
			QuantidadeParcelas:    3,
			ValorPadraoCentavos:   15000,
			ValorMaximoCentavos:   30000,
			MaxRenovacoes:         3,
			PeriodoRenovacaoMeses: 3,
		},
	})
	if err != nil {
		panic(err)
	}
	return catalog
}

// Lookup returns the rules for t.
func (c *Catalog) Lookup(t TipoBeneficio) (BenefitType, bool) {
	bt, ok := c.types[t]
	return bt, ok
}

// Types lists every benefit type ordered by code.
func (c *Catalog) Types() []BenefitType {
	out := make([]BenefitType, 0, len(c.types))
	for _, bt := range c.types {
		out = append(out, bt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Codigo < out[j].Codigo })
	return out
}
