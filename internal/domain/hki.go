package domain

import (
	"strconv"
	"strings"

	"hkiapp/internal/domain/models"
)

// Sortable list columns; anything else falls back to created_at.
var HKISortFields = []string{"created_at", "nama_hki", "tahun_fasilitasi"}

const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// HKIForm is the multipart create/update form. Numbers arrive as text and
// are converted by Input once the tags pass.
type HKIForm struct {
	NamaHKI         string `form:"nama_hki" binding:"required,notblank"`
	NamaPemohon     string `form:"nama_pemohon" binding:"required,notblank,min=3"`
	Alamat          string `form:"alamat"`
	JenisProduk     string `form:"jenis_produk"`
	Keterangan      string `form:"keterangan"`
	TahunFasilitasi string `form:"tahun_fasilitasi" binding:"required,number,len=4"`
	JenisID         string `form:"id_jenis_hki" binding:"required,number,ne=0"`
	StatusID        string `form:"id_status" binding:"required,number,ne=0"`
	PengusulID      string `form:"id_pengusul" binding:"required,number,ne=0"`
	// the form sends "null" when no class is picked
	KelasID string `form:"id_kelas" binding:"omitempty,number|eq=null"`
}

// Input validates the form and converts it. Optional text fields become nil
// when blank.
func (f HKIForm) Input() (models.HKIInput, error) {
	if err := Validate(f); err != nil {
		return models.HKIInput{}, err
	}
	in := models.HKIInput{
		NamaHKI:     strings.TrimSpace(f.NamaHKI),
		NamaPemohon: strings.TrimSpace(f.NamaPemohon),
		Alamat:      optionalText(f.Alamat),
		JenisProduk: optionalText(f.JenisProduk),
		Keterangan:  optionalText(f.Keterangan),
	}
	in.TahunFasilitasi, _ = strconv.Atoi(f.TahunFasilitasi)

	var err error
	ids := []struct {
		dst   *int64
		raw   string
		field string
	}{
		{&in.JenisID, f.JenisID, "id_jenis_hki"},
		{&in.StatusID, f.StatusID, "id_status"},
		{&in.PengusulID, f.PengusulID, "id_pengusul"},
	}
	for _, id := range ids {
		if *id.dst, err = strconv.ParseInt(id.raw, 10, 64); err != nil || *id.dst <= 0 {
			return models.HKIInput{}, ValidationError{Field: id.field, Msg: fieldMessages[id.field]}
		}
	}
	if f.KelasID != "" && f.KelasID != "null" {
		k, err := strconv.ParseInt(f.KelasID, 10, 64)
		if err != nil || k <= 0 {
			return models.HKIInput{}, ValidationError{Field: "id_kelas", Msg: fieldMessages["id_kelas"]}
		}
		in.KelasID = &k
	}
	return in, nil
}

// ParseID validates a positive numeric path id.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, ValidationError{Field: "id", Msg: "ID tidak valid."}
	}
	return id, nil
}

func optionalText(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
