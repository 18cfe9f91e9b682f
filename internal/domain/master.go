package domain

import (
	"strings"
)

// MasterTable is the closed set of reference tables editable from the dashboard.
type MasterTable int

const (
	MasterJenisHKI MasterTable = iota + 1
	MasterKelasHKI
	MasterPengusul
)

// MasterField describes one editable text column of a reference table.
type MasterField struct {
	Column   string
	Label    string
	Required bool
	MinLen   int
	MaxLen   int
	OneOf    []string
}

type masterDef struct {
	table    string
	idColumn string
	label    string
	fields   []MasterField
}

var masterDefs = map[MasterTable]masterDef{
	MasterJenisHKI: {
		table:    "jenis_hki",
		idColumn: "id_jenis_hki",
		label:    "Jenis HKI",
		fields: []MasterField{
			{Column: "nama_jenis_hki", Label: "Nama jenis HKI", Required: true, MinLen: 2, MaxLen: 100},
		},
	},
	MasterKelasHKI: {
		table:    "kelas_hki",
		idColumn: "id_kelas",
		label:    "Kelas HKI",
		fields: []MasterField{
			{Column: "nama_kelas", Label: "Nama kelas", Required: true, MinLen: 2, MaxLen: 255},
			{Column: "tipe", Label: "Tipe", Required: true, OneOf: []string{"Barang", "Jasa"}},
		},
	},
	MasterPengusul: {
		table:    "pengusul",
		idColumn: "id_pengusul",
		label:    "Pengusul",
		fields: []MasterField{
			{Column: "nama_opd", Label: "Nama OPD", Required: true, MinLen: 3, MaxLen: 255},
		},
	},
}

// ParseMasterTable maps a route segment to its table; unknown names are rejected.
func ParseMasterTable(name string) (MasterTable, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, s := range masterDefs {
		if s.table == name {
			return t, true
		}
	}
	return 0, false
}

func (t MasterTable) Valid() bool {
	_, ok := masterDefs[t]
	return ok
}

func (t MasterTable) Table() string    { return masterDefs[t].table }
func (t MasterTable) IDColumn() string { return masterDefs[t].idColumn }
func (t MasterTable) Label() string    { return masterDefs[t].label }
func (t MasterTable) String() string   { return t.Table() }

// Fields lists the editable columns in storage order.
func (t MasterTable) Fields() []MasterField {
	return masterDefs[t].fields
}

// Validate trims the payload and keeps only known columns. With partial set,
// absent columns are allowed (PATCH); otherwise every required column must be present.
func (t MasterTable) Validate(raw map[string]any, partial bool) (map[string]string, error) {
	def, ok := masterDefs[t]
	if !ok {
		return nil, ValidationError{Field: "table", Msg: "Tabel tidak valid"}
	}

	out := map[string]string{}
	fieldErrs := map[string][]string{}
	for _, f := range def.fields {
		v, present := raw[f.Column]
		if !present || v == nil {
			if f.Required && !partial {
				fieldErrs[f.Column] = append(fieldErrs[f.Column], f.Label+" wajib diisi.")
			}
			continue
		}
		s, isString := v.(string)
		if !isString {
			fieldErrs[f.Column] = append(fieldErrs[f.Column], f.Label+" harus berupa teks.")
			continue
		}
		s = strings.TrimSpace(s)
		switch {
		case f.Required && s == "":
			fieldErrs[f.Column] = append(fieldErrs[f.Column], f.Label+" wajib diisi.")
			continue
		case f.MinLen > 0 && len([]rune(s)) < f.MinLen:
			fieldErrs[f.Column] = append(fieldErrs[f.Column], f.Label+" terlalu pendek.")
			continue
		case f.MaxLen > 0 && len([]rune(s)) > f.MaxLen:
			fieldErrs[f.Column] = append(fieldErrs[f.Column], f.Label+" terlalu panjang.")
			continue
		}
		if len(f.OneOf) > 0 && !containsFold(f.OneOf, s) {
			fieldErrs[f.Column] = append(fieldErrs[f.Column], f.Label+" harus salah satu dari: "+strings.Join(f.OneOf, ", ")+".")
			continue
		}
		out[f.Column] = s
	}

	if len(fieldErrs) > 0 {
		first := ""
		for _, f := range def.fields {
			if _, ok := fieldErrs[f.Column]; ok {
				first = f.Column
				break
			}
		}
		return nil, ValidationError{Field: first, Msg: fieldErrs[first][0], Fields: fieldErrs}
	}
	if len(out) == 0 {
		return nil, ValidationError{Msg: "Tidak ada data yang diperbarui."}
	}
	return out, nil
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
