package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"firesafety/internal/logger"
	"firesafety/internal/models"
	"firesafety/internal/repository"
	"firesafety/internal/validation"
)

var ageGroups = map[string]bool{
	models.AgeGroupAll:    true,
	models.AgeGroupKids:   true,
	models.AgeGroupTeens:  true,
	models.AgeGroupAdults: true,
}

// ModuleService manages the game module catalog
type ModuleService struct {
	modules repository.Modules
	log     *logger.Logger
	now     func() time.Time
}

// NewModuleService creates a new module service
func NewModuleService(modules repository.Modules, log *logger.Logger) *ModuleService {
	return &ModuleService{
		modules: modules,
		log:     log.With("service", "ModuleService"),
		now:     time.Now,
	}
}

// CreateModuleInput holds the fields of a new module
type CreateModuleInput struct {
	Title       string             `json:"title" validate:"required,max=200"`
	Description string             `json:"description" validate:"max=2000"`
	AgeGroup    string             `json:"ageGroup"`
	Difficulty  models.Difficulty  `json:"difficulty"`
	Content     models.GameContent `json:"content"`
}

// List returns every module, ordered by id
func (s *ModuleService) List(ctx context.Context) ([]models.GameModule, error) {
	modules, err := s.modules.GetAllModules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}
	if modules == nil {
		modules = []models.GameModule{}
	}
	return modules, nil
}

// Get returns one module
func (s *ModuleService) Get(ctx context.Context, id int64) (*models.GameModule, error) {
	m, err := s.modules.GetModuleByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get module: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("module %d: %w", id, ErrNotFound)
	}
	return m, nil
}

// Create validates and stores a new module. Admin only.
func (s *ModuleService) Create(ctx context.Context, caller Caller, input CreateModuleInput) (*models.GameModule, error) {
	if err := caller.requireAdmin(); err != nil {
		return nil, err
	}
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	m := &models.GameModule{
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		AgeGroup:    input.AgeGroup,
		Difficulty:  input.Difficulty,
		Content:     input.Content,
	}
	m.ApplyDefaults()
	if err := validateModule(m); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	created, err := s.modules.CreateModule(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("failed to create module: %w", err)
	}
	s.log.Info("module created", "module_id", created.ID, "type", created.Content.Type)
	return created, nil
}

// Update merges the set fields of patch into the module. Admin only.
func (s *ModuleService) Update(ctx context.Context, caller Caller, id int64, patch models.GameModulePatch) (*models.GameModule, error) {
	if err := caller.requireAdmin(); err != nil {
		return nil, err
	}

	updated, err := s.modules.UpdateModule(ctx, id, func(m *models.GameModule) error {
		patch.Apply(m)
		m.Title = strings.TrimSpace(m.Title)
		if err := validateModule(m); err != nil {
			return err
		}
		m.UpdatedAt = s.now().UTC()
		return nil
	})
	if err != nil {
		if validation.IsValidationError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update module: %w", err)
	}
	if updated == nil {
		return nil, fmt.Errorf("module %d: %w", id, ErrNotFound)
	}
	s.log.Info("module updated", "module_id", id)
	return updated, nil
}

// Delete removes a module. Progress records that reference it are kept.
// Admin only.
func (s *ModuleService) Delete(ctx context.Context, caller Caller, id int64) error {
	if err := caller.requireAdmin(); err != nil {
		return err
	}
	deleted, err := s.modules.DeleteModule(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete module: %w", err)
	}
	if !deleted {
		return fmt.Errorf("module %d: %w", id, ErrNotFound)
	}
	s.log.Info("module deleted", "module_id", id)
	return nil
}

func validateModule(m *models.GameModule) error {
	var errs validation.Errors
	if m.Title == "" {
		errs = append(errs, validation.ValidationError{Field: "title", Message: "title is required"})
	}
	if !ageGroups[m.AgeGroup] {
		errs = append(errs, validation.ValidationError{Field: "ageGroup", Message: fmt.Sprintf("unknown age group %q", m.AgeGroup)})
	}
	if !m.Difficulty.Valid() {
		errs = append(errs, validation.ValidationError{Field: "difficulty", Message: fmt.Sprintf("unknown difficulty %q", m.Difficulty)})
	}
	if err := m.Content.Validate(); err != nil {
		errs = append(errs, validation.ValidationError{Field: "content", Message: err.Error()})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
