package services

import (
	"context"
	"fmt"

	"hkiapp/internal/domain"
	"hkiapp/internal/domain/models"
	"hkiapp/internal/realtime"
	"hkiapp/internal/repositories"
	"hkiapp/internal/utils"
)

// MasterStore persists the editable reference tables.
type MasterStore interface {
	List(ctx context.Context, t domain.MasterTable) ([]repositories.MasterRow, error)
	Create(ctx context.Context, t domain.MasterTable, values map[string]string) (repositories.MasterRow, error)
	Update(ctx context.Context, t domain.MasterTable, id int64, values map[string]string) (repositories.MasterRow, error)
	Delete(ctx context.Context, t domain.MasterTable, id int64) error
	Options(ctx context.Context, years []int) (models.FormOptions, error)
}

// YearSource lists the facilitation years present in the data.
type YearSource interface {
	Years(ctx context.Context) ([]int, error)
}

type MasterService struct {
	Master    MasterStore
	Years     YearSource
	Events    realtime.Publisher
	RequestID string
}

func (s MasterService) changed(ctx context.Context, t domain.MasterTable, id int64) {
	if s.Events != nil {
		s.Events.Publish(ctx, realtime.NewEvent(realtime.EventMasterChange, t.Table(), id))
	}
}

func (s MasterService) List(ctx context.Context, t domain.MasterTable) ([]repositories.MasterRow, error) {
	return s.Master.List(ctx, t)
}

func (s MasterService) Create(ctx context.Context, t domain.MasterTable, raw map[string]any) (repositories.MasterRow, error) {
	values, err := t.Validate(raw, false)
	if err != nil {
		return nil, err
	}
	row, err := s.Master.Create(ctx, t, values)
	if err != nil {
		return nil, err
	}
	id, _ := row[t.IDColumn()].(int64)
	utils.LogEvent(s.RequestID, "master", "create", fmt.Sprintf("table=%s id=%d", t, id))
	s.changed(ctx, t, id)
	return row, nil
}

// Update ignores any id column in the body; the path id wins.
func (s MasterService) Update(ctx context.Context, t domain.MasterTable, id int64, raw map[string]any) (repositories.MasterRow, error) {
	delete(raw, t.IDColumn())
	values, err := t.Validate(raw, true)
	if err != nil {
		return nil, err
	}
	row, err := s.Master.Update(ctx, t, id, values)
	if err != nil {
		return nil, err
	}
	utils.LogEvent(s.RequestID, "master", "update", fmt.Sprintf("table=%s id=%d", t, id))
	s.changed(ctx, t, id)
	return row, nil
}

func (s MasterService) Delete(ctx context.Context, t domain.MasterTable, id int64) error {
	if err := s.Master.Delete(ctx, t, id); err != nil {
		return err
	}
	utils.LogEvent(s.RequestID, "master", "delete", fmt.Sprintf("table=%s id=%d", t, id))
	s.changed(ctx, t, id)
	return nil
}

// Options returns every reference list for forms and filters.
func (s MasterService) Options(ctx context.Context) (models.FormOptions, error) {
	years, err := s.Years.Years(ctx)
	if err != nil {
		return models.FormOptions{}, fmt.Errorf("gagal memuat tahun: %w", err)
	}
	return s.Master.Options(ctx, years)
}
