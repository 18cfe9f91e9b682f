package domain

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Request structs declare their rules in `binding` tags, the same tags gin
// reads when binding a request.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.SetTagName("binding")
	ConfigureValidator(v)
	return v
}

// ConfigureValidator names fields after their json or form key and adds the
// notblank rule. gin's binding engine gets the same setup.
func ConfigureValidator(v *validator.Validate) {
	v.RegisterTagNameFunc(fieldName)
	_ = v.RegisterValidation("notblank", validators.NotBlank)
}

func fieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

// Validate checks v against its binding tags.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	if ve, ok := FromValidator(err); ok {
		return ve
	}
	return err
}

// per-field messages shown to the user; rules differ but the hint is the same
var fieldMessages = map[string]string{
	"nama_hki":         "Nama HKI wajib diisi.",
	"nama_pemohon":     "Nama pemohon minimal 3 karakter.",
	"tahun_fasilitasi": "Tahun harus angka.",
	"id_jenis_hki":     "Jenis HKI wajib diisi.",
	"id_status":        "Status wajib diisi.",
	"id_pengusul":      "Pengusul wajib diisi.",
	"id_kelas":         "Kelas HKI tidak valid.",
	"email":            "Format email tidak valid.",
	"password":         "Password minimal 6 karakter.",
	"full_name":        "Nama lengkap minimal 3 karakter.",
	"role":             "Role harus admin atau user.",
	"ids":              "Daftar ID tidak valid atau kosong.",
	"statusId":         "Status tidak valid.",
}

// FromValidator converts validator failures into a ValidationError keyed by
// field name. The first failing field becomes Field and Msg. ok is false for
// any other error, such as malformed JSON.
func FromValidator(err error) (ValidationError, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return ValidationError{}, false
	}
	fields := map[string][]string{}
	var first string
	for _, fe := range verrs {
		// slice elements report as ids[2]
		name, _, _ := strings.Cut(fe.Field(), "[")
		msg, ok := fieldMessages[name]
		if !ok {
			msg = name + " tidak valid."
		}
		if first == "" {
			first = name
		}
		if len(fields[name]) == 0 {
			fields[name] = append(fields[name], msg)
		}
	}
	return ValidationError{Field: first, Msg: fields[first][0], Fields: fields, Err: err}, true
}
