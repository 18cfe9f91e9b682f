package domain

import (
	"errors"
	"fmt"
)

type NotFoundError struct {
	Resource string
	ID       any
	Msg      string
	Err      error
}

func (e NotFoundError) Error() string {
	switch {
	case e.Msg != "":
		return e.Msg
	case e.Resource != "" && e.ID != nil:
		return fmt.Sprintf("Data %s dengan ID %v tidak ditemukan.", e.Resource, e.ID)
	case e.Resource != "":
		return fmt.Sprintf("Data %s tidak ditemukan.", e.Resource)
	default:
		return "data tidak ditemukan"
	}
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ValidationError carries one message per field; Field/Msg describe the first failure.
type ValidationError struct {
	Field  string
	Msg    string
	Fields map[string][]string
	Err    error
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

// AuthError is returned for missing or insufficient privilege.
// Unauthenticated distinguishes 401 from 403.
type AuthError struct {
	Msg             string
	Unauthenticated bool
}

func (e AuthError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Unauthenticated {
		return "Anda tidak terautentikasi."
	}
	return "Akses ditolak."
}

// DependencyError means a required related row (e.g. pemohon) could not be resolved or created.
type DependencyError struct {
	Resource string
	Err      error
}

func (e DependencyError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("gagal memproses data %s", e.Resource)
	}
	return fmt.Sprintf("gagal memproses data %s: %v", e.Resource, e.Err)
}

func (e DependencyError) Unwrap() error { return e.Err }

type UploadError struct {
	Path string
	Err  error
}

func (e UploadError) Error() string {
	if e.Err == nil {
		return "Upload file gagal"
	}
	return fmt.Sprintf("Upload file gagal: %v", e.Err)
}

func (e UploadError) Unwrap() error { return e.Err }

// LinkError is returned when an uploaded file could not be attached to its record.
type LinkError struct {
	Path string
	Err  error
}

func (e LinkError) Error() string {
	if e.Err == nil {
		return "Gagal menautkan file sertifikat"
	}
	return fmt.Sprintf("Gagal menautkan file sertifikat: %v", e.Err)
}

func (e LinkError) Unwrap() error { return e.Err }

// RemoteError is a transport or server failure seen by an API client.
type RemoteError struct {
	Status  int
	Message string
	Err     error
}

func (e RemoteError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("gagal menghubungi server: %v", e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("server mengembalikan status %d", e.Status)
	}
	return "gagal menghubungi server"
}

func (e RemoteError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsAuth(err error) bool {
	var target AuthError
	return errors.As(err, &target)
}

func IsDependency(err error) bool {
	var target DependencyError
	return errors.As(err, &target)
}

func IsUpload(err error) bool {
	var target UploadError
	return errors.As(err, &target)
}

func IsLink(err error) bool {
	var target LinkError
	return errors.As(err, &target)
}

// TooLargeError rejects a request whose result exceeds a hard size limit.
type TooLargeError struct {
	Msg string
}

func (e TooLargeError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "data terlalu besar"
}

func IsTooLarge(err error) bool {
	var target TooLargeError
	return errors.As(err, &target)
}
