package models

import "time"

// HKI is one facilitation filing with its reference rows joined inline.
type HKI struct {
	ID              int64      `json:"id_hki"`
	NamaHKI         string     `json:"nama_hki"`
	JenisProduk     *string    `json:"jenis_produk"`
	TahunFasilitasi *int       `json:"tahun_fasilitasi"`
	SertifikatPDF   *string    `json:"sertifikat_pdf"`
	Keterangan      *string    `json:"keterangan"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`

	Pemohon   *Pemohon   `json:"pemohon"`
	Jenis     *JenisHKI  `json:"jenis"`
	StatusHKI *StatusHKI `json:"status_hki"`
	Pengusul  *Pengusul  `json:"pengusul"`
	Kelas     *KelasHKI  `json:"kelas"`
}

// StatusName returns the joined status label or "".
func (h HKI) StatusName() string {
	if h.StatusHKI == nil {
		return ""
	}
	return h.StatusHKI.NamaStatus
}

// PemohonName returns the joined applicant name or "".
func (h HKI) PemohonName() string {
	if h.Pemohon == nil {
		return ""
	}
	return h.Pemohon.NamaPemohon
}

// HKIInput is the validated write payload shared by create and update.
type HKIInput struct {
	NamaHKI         string
	NamaPemohon     string
	Alamat          *string
	JenisProduk     *string
	TahunFasilitasi int
	Keterangan      *string
	JenisID         int64
	StatusID        int64
	PengusulID      int64
	KelasID         *int64
}

// HKIRow is the flat column set written to the hki table.
type HKIRow struct {
	NamaHKI         string
	PemohonID       int64
	JenisProduk     *string
	TahunFasilitasi int
	Keterangan      *string
	JenisID         int64
	StatusID        int64
	PengusulID      int64
	KelasID         *int64
	SertifikatPDF   *string
}

// HKIFilter mirrors the list query parameters accepted by the API.
type HKIFilter struct {
	Search     string
	JenisID    int64
	StatusID   int64
	Year       int
	PengusulID int64
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
}

// RecordPage is one page of filings with the exact total for the filter.
type RecordPage struct {
	Records    []HKI `json:"data"`
	TotalCount int   `json:"totalCount"`
}

// Clone copies the record slice so callers may mutate it independently.
func (p RecordPage) Clone() RecordPage {
	out := RecordPage{TotalCount: p.TotalCount}
	if p.Records != nil {
		out.Records = make([]HKI, len(p.Records))
		copy(out.Records, p.Records)
	}
	return out
}
