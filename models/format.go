package models

import (
	"database/sql/driver"
	"fmt"
)

// Format определяет схему проведения турнира.
type Format string

const (
	FormatLeague            Format = "LEAGUE"
	FormatKnockout          Format = "KNOCKOUT"
	FormatSwiss             Format = "SWISS"
	FormatGroupKnockout     Format = "GROUP_KNOCKOUT"
	FormatIndividualRanking Format = "INDIVIDUAL_RANKING"
)

func (f Format) Valid() bool {
	switch f {
	case FormatLeague, FormatKnockout, FormatSwiss, FormatGroupKnockout, FormatIndividualRanking:
		return true
	}
	return false
}

// Phases lists the session phases a tournament of this format goes through, in order.
func (f Format) Phases() []Phase {
	switch f {
	case FormatLeague:
		return []Phase{PhaseGroupStage}
	case FormatKnockout:
		return []Phase{PhaseKnockout}
	case FormatSwiss:
		return []Phase{PhaseGroupStage}
	case FormatGroupKnockout:
		return []Phase{PhaseGroupStage, PhaseKnockout}
	case FormatIndividualRanking:
		return []Phase{PhaseIndividualRanking}
	}
	return nil
}

func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !f.Valid() {
		return "", fmt.Errorf("unknown tournament format %q", s)
	}
	return f, nil
}

func (f *Format) Scan(src any) error {
	return scanEnum(f, src, Format.Valid, "format")
}

func (f Format) Value() (driver.Value, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("refusing to write unknown format %q", string(f))
	}
	return string(f), nil
}

// scanEnum читает строковый enum из БД и проверяет его значение.
func scanEnum[T ~string](dst *T, src any, valid func(T) bool, name string) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	case nil:
		return fmt.Errorf("%s: unexpected NULL", name)
	default:
		return fmt.Errorf("%s: unsupported column type %T", name, src)
	}
	val := T(raw)
	if !valid(val) {
		return fmt.Errorf("%s: unknown value %q", name, raw)
	}
	*dst = val
	return nil
}
