// Package schema describes, per layout version, which spreadsheet header
// holds which field. Loaders bind a header row against a Table before
// decoding any data, so an unexpected sheet layout fails loudly instead of
// being guessed at.
package schema

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"moim/internal/core"
)

// Field names shared by every layout version.
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldRole        = "role"
	FieldJoinedOn    = "joined_on"
	FieldCredential  = "credential"
	FieldOccurredAt  = "occurred_at"
	FieldDirection   = "direction"
	FieldCategory    = "category"
	FieldCounterpart = "counterparty"
	FieldAmount      = "amount"
	FieldLabel       = "label"
	FieldValuation   = "valuation"
	FieldInstitution = "institution"
)

var (
	ErrUnknownSchema  = errors.New("unknown schema version")
	ErrSchemaMismatch = errors.New("sheet does not match schema")
	ErrInvalidSchema  = errors.New("invalid schema")
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

type (
	Schema struct {
		Version   string    `yaml:"version"`
		Members   Table     `yaml:"members"`
		Ledger    Ledger    `yaml:"ledger"`
		Assets    Table     `yaml:"assets"`
		Taxonomy  Taxonomy  `yaml:"taxonomy"`
		AssetTags AssetTags `yaml:"asset_tags"`
	}

	// Table maps field names to the header text used in the sheet.
	Table struct {
		Columns  map[string]string `yaml:"columns"`
		Required []string          `yaml:"required"`
	}

	Ledger struct {
		Table            `yaml:",inline"`
		DepositLabels    []string `yaml:"deposit_labels"`
		WithdrawalLabels []string `yaml:"withdrawal_labels"`
		DateLayouts      []string `yaml:"date_layouts"`
	}

	Taxonomy struct {
		Match      string   `yaml:"match"`
		Condolence []string `yaml:"condolence"`
		Wreath     []string `yaml:"wreath"`
		Operating  []string `yaml:"operating"`
		Savings    []string `yaml:"savings"`
	}

	AssetTags struct {
		DuesAccount string `yaml:"dues_account"`
		Savings     string `yaml:"savings"`
	}
)

// Versions lists the embedded layout versions.
func Versions() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(out)
	return out
}

// Builtin returns an embedded layout by version name.
func Builtin(version string) (*Schema, error) {
	version = strings.TrimSpace(version)
	data, err := builtinFS.ReadFile("builtin/" + version + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w %q (known: %v)", ErrUnknownSchema, version, Versions())
	}
	return Parse(data)
}

// Load reads a custom layout from a YAML file.
func Load(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("schema file %s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a YAML layout document.
func Parse(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.UnmarshalStrict(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that a layout can decode every table.
func (s *Schema) Validate() error {
	var problems []string

	if strings.TrimSpace(s.Version) == "" {
		problems = append(problems, "version is required")
	}
	check := func(table string, t Table, mustMap ...string) {
		for _, f := range append(mustMap, t.Required...) {
			if strings.TrimSpace(t.Columns[f]) == "" {
				problems = append(problems, fmt.Sprintf("%s: field %q has no column", table, f))
			}
		}
	}
	check("members", s.Members, FieldName)
	check("ledger", s.Ledger.Table, FieldDirection, FieldAmount)
	check("assets", s.Assets, FieldLabel, FieldValuation)

	if len(s.Ledger.DepositLabels) == 0 {
		problems = append(problems, "ledger: deposit_labels is empty")
	}
	if len(s.Ledger.WithdrawalLabels) == 0 {
		problems = append(problems, "ledger: withdrawal_labels is empty")
	}
	for _, d := range s.Ledger.DepositLabels {
		for _, w := range s.Ledger.WithdrawalLabels {
			if strings.TrimSpace(d) == strings.TrimSpace(w) {
				problems = append(problems, fmt.Sprintf("ledger: label %q is both deposit and withdrawal", d))
			}
		}
	}
	if m := s.Taxonomy.Match; m != "" && !core.MatchMode(m).IsValid() {
		problems = append(problems, fmt.Sprintf("taxonomy: invalid match %q", m))
	}
	if strings.TrimSpace(s.AssetTags.DuesAccount) == "" {
		problems = append(problems, "asset_tags: dues_account is required")
	}
	if strings.TrimSpace(s.AssetTags.Savings) == "" {
		problems = append(problems, "asset_tags: savings is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w:\n- %s", ErrInvalidSchema, strings.Join(problems, "\n- "))
	}
	return nil
}

// CoreTaxonomy converts the taxonomy section into a core.Taxonomy.
// An empty match mode means exact matching.
func (s *Schema) CoreTaxonomy() core.Taxonomy {
	mode := core.MatchMode(s.Taxonomy.Match)
	if mode == "" {
		mode = core.MatchExact
	}
	return core.Taxonomy{
		Mode: mode,
		Labels: map[core.Category][]string{
			core.Condolence: s.Taxonomy.Condolence,
			core.Wreath:     s.Taxonomy.Wreath,
			core.Operating:  s.Taxonomy.Operating,
			core.Savings:    s.Taxonomy.Savings,
		},
	}
}

// Direction maps a ledger direction label onto core.Direction.
func (l Ledger) Direction(label string) core.Direction {
	label = strings.TrimSpace(label)
	for _, d := range l.DepositLabels {
		if strings.TrimSpace(d) == label {
			return core.Deposit
		}
	}
	for _, w := range l.WithdrawalLabels {
		if strings.TrimSpace(w) == label {
			return core.Withdrawal
		}
	}
	return core.DirectionUnknown
}
