package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"hkiapp/internal/domain"
	"hkiapp/internal/domain/models"
	"hkiapp/internal/realtime"
	"hkiapp/internal/repositories"
)

type fakeUsers struct {
	byID    map[int64]models.User
	touched []int64
	nextID  int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[int64]models.User{}, nextID: 1}
}

func (f *fakeUsers) List(context.Context) ([]models.User, error) {
	out := []models.User{}
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, domain.NotFoundError{Resource: "pengguna", ID: id}
	}
	return u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (models.User, error) {
	for _, u := range f.byID {
		if u.Email == strings.ToLower(email) {
			return u, nil
		}
	}
	return models.User{}, domain.NotFoundError{Resource: "pengguna"}
}

func (f *fakeUsers) Create(_ context.Context, u models.User) (models.User, error) {
	u.ID = f.nextID
	f.nextID++
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) Update(_ context.Context, id int64, upd models.UserUpdate) (models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return models.User{}, domain.NotFoundError{Resource: "pengguna", ID: id}
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	f.byID[id] = u
	return u, nil
}

func (f *fakeUsers) Delete(_ context.Context, id int64) error {
	if _, ok := f.byID[id]; !ok {
		return domain.NotFoundError{Resource: "pengguna", ID: id}
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) TouchSignIn(_ context.Context, id int64) error {
	f.touched = append(f.touched, id)
	return nil
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	users := newFakeUsers()
	svc := UserService{Users: users}
	created, err := svc.Create(context.Background(), NewUser{Email: "Admin@HKI.go.id", Password: "rahasia1", FullName: "Admin Utama", Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, "admin@hki.go.id", created.Email)

	auth := AuthService{Users: users, Secret: []byte("test-secret"), TokenTTL: time.Hour}
	token, u, err := auth.Login(context.Background(), "admin@hki.go.id", "rahasia1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, u.ID)
	assert.Equal(t, []int64{created.ID}, users.touched)

	rc, err := ParseToken([]byte("test-secret"), token)
	require.NoError(t, err)
	assert.Equal(t, domain.ID(created.ID), rc.UserID)
	assert.True(t, rc.IsAdmin())

	_, err = ParseToken([]byte("other-secret"), token)
	assert.True(t, domain.IsAuth(err))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	users := newFakeUsers()
	_, err := UserService{Users: users}.Create(context.Background(), NewUser{Email: "a@b.id", Password: "rahasia1", FullName: "Budi Santoso"})
	require.NoError(t, err)

	auth := AuthService{Users: users, Secret: []byte("s")}
	for _, tc := range []struct{ email, pass string }{
		{"a@b.id", "salah123"},
		{"tidak@ada.id", "rahasia1"},
	} {
		_, _, err := auth.Login(context.Background(), tc.email, tc.pass)
		var ae domain.AuthError
		require.True(t, errors.As(err, &ae), "email=%s", tc.email)
		assert.True(t, ae.Unauthenticated)
		assert.Equal(t, "Email atau password salah", ae.Msg)
	}
}

func TestIssueTokenDefaultLifetime(t *testing.T) {
	token, err := IssueToken([]byte("s"), models.User{ID: 7, Role: "user"}, -time.Minute)
	require.NoError(t, err)
	// non-positive ttl falls back to the default lifetime
	rc, err := ParseToken([]byte("s"), token)
	require.NoError(t, err)
	assert.Equal(t, domain.ID(7), rc.UserID)

	_, err = ParseToken([]byte("s"), "not-a-token")
	assert.True(t, domain.IsAuth(err))
}

func TestUserCreateValidation(t *testing.T) {
	svc := UserService{Users: newFakeUsers()}
	_, err := svc.Create(context.Background(), NewUser{Email: "budi@x.id", Password: "123", FullName: "Budi"})
	var ve domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "password", ve.Field)
	assert.Equal(t, "Password minimal 6 karakter.", ve.Msg)

	_, err = svc.Create(context.Background(), NewUser{Email: "bukan-email", Password: "123456", FullName: "Budi", Role: "owner"})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "email", ve.Field)
	assert.Contains(t, ve.Fields, "role")

	u, err := svc.Create(context.Background(), NewUser{Email: "c@x.id", Password: "123456", FullName: "Citra"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, u.Role)
}

func TestUserPatchValidation(t *testing.T) {
	users := newFakeUsers()
	svc := UserService{Users: users}
	u, err := svc.Create(context.Background(), NewUser{Email: "d@x.id", Password: "123456", FullName: "Dewi"})
	require.NoError(t, err)

	owner, short := "owner", "123"
	_, err = svc.Update(context.Background(), u.ID, UserPatch{Role: &owner, Password: &short})
	var ve domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "Role harus admin atau user.", ve.Fields["role"][0])
	assert.Equal(t, "Password minimal 6 karakter.", ve.Fields["password"][0])

	blankName := "   "
	_, err = svc.Update(context.Background(), u.ID, UserPatch{FullName: &blankName})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "full_name", ve.Field)

	admin := "admin"
	got, err := svc.Update(context.Background(), u.ID, UserPatch{Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, "admin", got.Role)
}

func TestUserDeleteSelfForbidden(t *testing.T) {
	users := newFakeUsers()
	svc := UserService{Users: users}
	u, err := svc.Create(context.Background(), NewUser{Email: "c@x.id", Password: "123456", FullName: "Citra"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), domain.RequestContext{UserID: domain.ID(u.ID), Role: "admin"}, u.ID)
	var ae domain.AuthError
	require.True(t, errors.As(err, &ae))
	assert.False(t, ae.Unauthenticated)
	assert.Contains(t, users.byID, u.ID)

	require.NoError(t, svc.Delete(context.Background(), domain.RequestContext{UserID: 99, Role: "admin"}, u.ID))
	assert.NotContains(t, users.byID, u.ID)
}

func TestUpdateProfileKeepsPasswordWhenBlank(t *testing.T) {
	users := newFakeUsers()
	svc := UserService{Users: users}
	u, err := svc.Create(context.Background(), NewUser{Email: "c@x.id", Password: "123456", FullName: "Citra"})
	require.NoError(t, err)
	before := users.byID[u.ID].PasswordHash

	blank := ""
	got, err := svc.UpdateProfile(context.Background(), domain.RequestContext{UserID: domain.ID(u.ID)}, "  Citra   Lestari ", &blank)
	require.NoError(t, err)
	assert.Equal(t, "Citra Lestari", got.FullName)
	assert.Equal(t, before, users.byID[u.ID].PasswordHash)
}

type fakeMaster struct {
	created map[string]string
	delErr  error
	years   []int
}

func (m *fakeMaster) List(context.Context, domain.MasterTable) ([]repositories.MasterRow, error) {
	return nil, nil
}

func (m *fakeMaster) Create(_ context.Context, t domain.MasterTable, values map[string]string) (repositories.MasterRow, error) {
	m.created = values
	row := repositories.MasterRow{t.IDColumn(): int64(5)}
	for k, v := range values {
		row[k] = v
	}
	return row, nil
}

func (m *fakeMaster) Update(_ context.Context, t domain.MasterTable, id int64, values map[string]string) (repositories.MasterRow, error) {
	return repositories.MasterRow{t.IDColumn(): id}, nil
}

func (m *fakeMaster) Delete(context.Context, domain.MasterTable, int64) error {
	return m.delErr
}

func (m *fakeMaster) Options(_ context.Context, years []int) (models.FormOptions, error) {
	m.years = years
	return models.FormOptions{}, nil
}

type fixedYears []int

func (y fixedYears) Years(context.Context) ([]int, error) { return y, nil }

func TestMasterServicePublishesChanges(t *testing.T) {
	store := &fakeMaster{}
	events := &recordingPublisher{}
	svc := MasterService{Master: store, Years: fixedYears{2024, 2023}, Events: events}

	row, err := svc.Create(context.Background(), domain.MasterPengusul, map[string]any{"nama_opd": "  Dinas Koperasi  "})
	require.NoError(t, err)
	assert.Equal(t, "Dinas Koperasi", store.created["nama_opd"])
	assert.Equal(t, int64(5), row["id_pengusul"])
	require.Len(t, events.events, 1)
	assert.Equal(t, realtime.EventMasterChange, events.events[0].Type)
	assert.Equal(t, "pengusul", events.events[0].Resource)

	_, err = svc.Create(context.Background(), domain.MasterKelasHKI, map[string]any{"nama_kelas": "Kimia", "tipe": "Lainnya"})
	assert.True(t, domain.IsValidation(err))
	assert.Len(t, events.events, 1)

	store.delErr = domain.ConflictError{Msg: "Data tidak dapat dihapus karena masih digunakan oleh entri HKI."}
	err = svc.Delete(context.Background(), domain.MasterJenisHKI, 1)
	assert.True(t, domain.IsConflict(err))
	assert.Len(t, events.events, 1)

	_, err = svc.Options(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2024, 2023}, store.years)
}

type fakeExportSource struct {
	records []models.HKI
	limit   int
}

func (f *fakeExportSource) ListAll(_ context.Context, _ models.HKIFilter, limit int) ([]models.HKI, error) {
	f.limit = limit
	if limit > 0 && len(f.records) > limit {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func sampleRecords(n int) []models.HKI {
	year := 2024
	alamat := "Jl. Merdeka"
	out := make([]models.HKI, n)
	for i := range out {
		out[i] = models.HKI{
			ID:              int64(i + 1),
			NamaHKI:         "Kopi Bubuk",
			TahunFasilitasi: &year,
			Pemohon:         &models.Pemohon{NamaPemohon: "Budi", Alamat: &alamat},
			Jenis:           &models.JenisHKI{NamaJenis: "Merek"},
			StatusHKI:       &models.StatusHKI{NamaStatus: "Diterima"},
			Pengusul:        &models.Pengusul{NamaOPD: "Dinas Perdagangan"},
			Kelas:           &models.KelasHKI{ID: 30, NamaKelas: "Kopi", Tipe: "Barang"},
		}
	}
	return out
}

func TestExportCSVAndXLSX(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	src := &fakeExportSource{records: sampleRecords(2)}
	svc := ExportService{Records: src, Now: func() time.Time { return at }}

	file, err := svc.Export(context.Background(), models.HKIFilter{}, "csv")
	require.NoError(t, err)
	assert.Equal(t, 0, src.limit)
	assert.True(t, strings.HasSuffix(file.Name, ".csv"))
	rows, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Nama HKI", rows[0][0])
	assert.Equal(t, "Kelas 30: Kopi", rows[1][5])
	assert.Equal(t, "2024", rows[1][7])

	file, err = svc.Export(context.Background(), models.HKIFilter{}, "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(file.Name, ".xlsx"))
	wb, err := excelize.OpenReader(bytes.NewReader(file.Data))
	require.NoError(t, err)
	defer wb.Close()
	v, err := wb.GetCellValue("Data HKI", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Kopi Bubuk", v)

	file, err = svc.Export(context.Background(), models.HKIFilter{}, "pdf")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))
}

func TestExportLimits(t *testing.T) {
	svc := ExportService{Records: &fakeExportSource{}}
	_, err := svc.Export(context.Background(), models.HKIFilter{}, "csv")
	require.True(t, domain.IsNotFound(err))
	assert.Equal(t, "Tidak ada data yang cocok dengan filter Anda.", err.Error())

	src := &fakeExportSource{records: sampleRecords(MaxXLSXRows + 5)}
	svc = ExportService{Records: src}
	_, err = svc.Export(context.Background(), models.HKIFilter{}, "xlsx")
	assert.True(t, domain.IsTooLarge(err))
	assert.Equal(t, MaxXLSXRows+1, src.limit)

	_, err = svc.Export(context.Background(), models.HKIFilter{}, "docx")
	assert.True(t, domain.IsValidation(err))
}

type fakeStats struct{}

func (fakeStats) CountBy(_ context.Context, dim repositories.Dimension) ([]models.LabelCount, error) {
	if dim == repositories.ByStatus {
		return []models.LabelCount{
			{Label: "Diterima", Count: 4},
			{Label: "Dalam Proses", Count: 3},
			{Label: "Terdaftar", Count: 2},
			{Label: "Ditolak", Count: 1},
		}, nil
	}
	return []models.LabelCount{{Label: "Merek", Count: 10}}, nil
}

func (fakeStats) CountByYear(context.Context) ([]models.YearCount, error) {
	return []models.YearCount{{Year: 2023, Count: 4}, {Year: 2024, Count: 6}}, nil
}

type fakeRecent struct{}

func (fakeRecent) Recent(_ context.Context, n int) ([]models.HKI, error) {
	return sampleRecords(n), nil
}

func TestDashboardTotals(t *testing.T) {
	svc := StatsService{Stats: fakeStats{}, Records: fakeRecent{}}
	got, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, got.Total)
	assert.Equal(t, 6, got.DiterimaTerdaftar)
	assert.Equal(t, 3, got.Diproses)
	assert.Equal(t, 1, got.Ditolak)
	assert.Len(t, got.Recent, 5)

	data, name, err := svc.SummaryPDF(context.Background(), time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(name, "laporan-hki_"))
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}
