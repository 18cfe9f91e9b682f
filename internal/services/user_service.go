package services

import (
	"context"
	"fmt"
	"strings"

	"hkiapp/internal/domain"
	"hkiapp/internal/domain/models"
	"hkiapp/internal/utils"
)

// UserService validates account changes before they reach the store.
type UserService struct {
	Users     UserStore
	RequestID string
}

// NewUser is the create payload.
type NewUser struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	FullName string `json:"full_name" binding:"required,notblank,min=3"`
	Role     string `json:"role" binding:"omitempty,oneof=admin user"`
}

// UserPatch carries only the fields present in the request body. An empty
// password means "keep the current one".
type UserPatch struct {
	FullName *string `json:"full_name" binding:"omitempty,notblank,min=3"`
	Role     *string `json:"role" binding:"omitempty,oneof=admin user"`
	Password *string `json:"password" binding:"omitempty,min=6|max=0"`
}

func (s UserService) List(ctx context.Context) ([]models.User, error) {
	return s.Users.List(ctx)
}

func (s UserService) Create(ctx context.Context, in NewUser) (models.User, error) {
	if err := domain.Validate(in); err != nil {
		return models.User{}, err
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := utils.NormalizeSpace(in.FullName)
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return models.User{}, err
	}
	u, err := s.Users.Create(ctx, models.User{Email: email, FullName: name, Role: role, PasswordHash: hash})
	if err != nil {
		return models.User{}, err
	}
	utils.LogEvent(s.RequestID, "users", "create", fmt.Sprintf("user_id=%d role=%s", u.ID, u.Role))
	return u, nil
}

func (s UserService) Update(ctx context.Context, id int64, p UserPatch) (models.User, error) {
	if err := domain.Validate(p); err != nil {
		return models.User{}, err
	}
	upd := models.UserUpdate{Role: p.Role}
	if p.FullName != nil {
		name := utils.NormalizeSpace(*p.FullName)
		upd.FullName = &name
	}
	if p.Password != nil && *p.Password != "" {
		hash, err := HashPassword(*p.Password)
		if err != nil {
			return models.User{}, err
		}
		upd.PasswordHash = &hash
	}

	u, err := s.Users.Update(ctx, id, upd)
	if err != nil {
		return models.User{}, err
	}
	utils.LogEvent(s.RequestID, "users", "update", fmt.Sprintf("user_id=%d", id))
	return u, nil
}

// UpdateProfile lets any signed-in user change their own name and password.
func (s UserService) UpdateProfile(ctx context.Context, actor domain.RequestContext, fullName string, password *string) (models.User, error) {
	name := fullName
	return s.Update(ctx, int64(actor.UserID), UserPatch{FullName: &name, Password: password})
}

func (s UserService) Delete(ctx context.Context, actor domain.RequestContext, id int64) error {
	if int64(actor.UserID) == id {
		return domain.AuthError{Msg: "Anda tidak dapat menghapus akun Anda sendiri."}
	}
	if err := s.Users.Delete(ctx, id); err != nil {
		return err
	}
	utils.LogEvent(s.RequestID, "users", "delete", fmt.Sprintf("user_id=%d", id))
	return nil
}
