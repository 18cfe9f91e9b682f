package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intconfig "hkiapp/internal/config"
	intdb "hkiapp/internal/db"
	"hkiapp/internal/domain"
	"hkiapp/internal/domain/models"
)

// UserRepository stores dashboard accounts.
type UserRepository struct {
	DB *sql.DB
}

func (r UserRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const userSelect = `SELECT id, email, full_name, role, password_hash, created_at, last_sign_in_at FROM users`

func scanUser(s rowScanner) (models.User, error) {
	var (
		u        models.User
		lastSign sql.NullTime
	)
	if err := s.Scan(&u.ID, &u.Email, &u.FullName, &u.Role, &u.PasswordHash, &u.CreatedAt, &lastSign); err != nil {
		return models.User{}, err
	}
	if lastSign.Valid {
		t := lastSign.Time
		u.LastSignInAt = &t
	}
	return u, nil
}

func (r UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db().QueryContext(ctx, userSelect+` ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(r.db().QueryRowContext(ctx, userSelect+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, domain.NotFoundError{Resource: "pengguna", ID: id}
	}
	return u, err
}

// GetByEmail matches case-insensitively on the trimmed address.
func (r UserRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	u, err := scanUser(r.db().QueryRowContext(ctx, userSelect+` WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))))
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, domain.NotFoundError{Resource: "pengguna"}
	}
	return u, err
}

func (r UserRepository) Create(ctx context.Context, u models.User) (models.User, error) {
	res, err := r.db().ExecContext(ctx, `
		INSERT INTO users (email, full_name, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		strings.ToLower(strings.TrimSpace(u.Email)), u.FullName, u.PasswordHash, u.Role, time.Now())
	if err != nil {
		if intdb.IsDuplicate(err) {
			return models.User{}, domain.ConflictError{Msg: "Email ini sudah terdaftar.", Err: err}
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, err
	}
	return r.GetByID(ctx, id)
}

// Update applies only the fields present in upd.
func (r UserRepository) Update(ctx context.Context, id int64, upd models.UserUpdate) (models.User, error) {
	sets := []string{}
	args := []any{}
	if upd.FullName != nil {
		sets = append(sets, "full_name = ?")
		args = append(args, *upd.FullName)
	}
	if upd.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, *upd.Role)
	}
	if upd.PasswordHash != nil {
		sets = append(sets, "password_hash = ?")
		args = append(args, *upd.PasswordHash)
	}
	if len(sets) == 0 {
		return models.User{}, domain.ValidationError{Msg: "Tidak ada data yang diperbarui."}
	}

	args = append(args, id)
	if _, err := r.db().ExecContext(ctx, `UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return models.User{}, fmt.Errorf("update user %d: %w", id, err)
	}
	return r.GetByID(ctx, id)
}

func (r UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db().ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundError{Resource: "pengguna", ID: id}
	}
	return nil
}

func (r UserRepository) TouchSignIn(ctx context.Context, id int64) error {
	_, err := r.db().ExecContext(ctx, `UPDATE users SET last_sign_in_at = ? WHERE id = ?`, time.Now(), id)
	return err
}
