package models

type Pemohon struct {
	ID          int64   `json:"id_pemohon"`
	NamaPemohon string  `json:"nama_pemohon"`
	Alamat      *string `json:"alamat"`
}

type JenisHKI struct {
	ID        int64  `json:"id_jenis_hki"`
	NamaJenis string `json:"nama_jenis_hki"`
}

type StatusHKI struct {
	ID         int64  `json:"id_status"`
	NamaStatus string `json:"nama_status"`
}

type Pengusul struct {
	ID      int64  `json:"id_pengusul"`
	NamaOPD string `json:"nama_opd"`
}

type KelasHKI struct {
	ID        int64  `json:"id_kelas"`
	NamaKelas string `json:"nama_kelas"`
	Tipe      string `json:"tipe"`
}

// SelectOption is a value/label pair for combobox style inputs.
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// FormOptions bundles every reference list a filing form needs.
type FormOptions struct {
	JenisOptions    []JenisHKI     `json:"jenisOptions"`
	StatusOptions   []StatusHKI    `json:"statusOptions"`
	TahunOptions    []TahunOption  `json:"tahunOptions"`
	PengusulOptions []SelectOption `json:"pengusulOptions"`
	KelasOptions    []SelectOption `json:"kelasOptions"`
}

type TahunOption struct {
	Tahun int `json:"tahun"`
}
