package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/circulateapp/circulate-server/internal/domain"
	apperrors "github.com/circulateapp/circulate-server/internal/errors"
	"github.com/circulateapp/circulate-server/internal/id"
	"github.com/circulateapp/circulate-server/internal/store"
	"github.com/circulateapp/circulate-server/internal/validation"
)

// DirectoryService manages the borrower and issuer directories. These are
// reference data for the circulation desk: the ledger denormalizes from
// them at issue time but never writes back.
type DirectoryService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewDirectoryService creates a new directory service.
func NewDirectoryService(st *store.Store, v *validation.Validator, logger *slog.Logger) *DirectoryService {
	return &DirectoryService{
		store:     st,
		validator: v,
		logger:    logger,
	}
}

// RegisterStudentInput is the payload for enrolling a borrower.
type RegisterStudentInput struct {
	RollNo string `json:"roll_no" validate:"required,min=1,max=50"`
	Name   string `json:"name" validate:"required,min=1,max=200"`
	Branch string `json:"branch,omitempty" validate:"max=50"`
	Year   int    `json:"year,omitempty" validate:"gte=0,lte=10"`
}

// RegisterIssuerInput is the payload for registering desk staff.
type RegisterIssuerInput struct {
	Name      string `json:"name" validate:"required,min=1,max=200"`
	Email     string `json:"email" validate:"required,email"`
	Librarian bool   `json:"librarian"`
}

// RegisterStudent enrolls a borrower. Roll numbers are unique,
// case-insensitively.
func (s *DirectoryService) RegisterStudent(ctx context.Context, input RegisterStudentInput) (*domain.Student, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	student := &domain.Student{
		RollNo: input.RollNo,
		Name:   input.Name,
		Branch: input.Branch,
		Year:   input.Year,
	}
	studentID, err := id.NewStudentID()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to generate student ID")
	}
	student.ID = studentID
	student.InitTimestamps()

	if err := s.store.Students.Create(ctx, student.ID, student); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, apperrors.AlreadyExists("a student with this roll number already exists")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to register student")
	}

	if s.logger != nil {
		s.logger.Info("student registered", "id", student.ID, "roll_no", student.RollNo)
	}
	return student, nil
}

// GetStudentByRoll looks a borrower up by roll number, case-insensitively.
func (s *DirectoryService) GetStudentByRoll(ctx context.Context, rollNo string) (*domain.Student, error) {
	student, err := s.store.Students.GetByIndex(ctx, "rollno", rollNo)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFoundf("student %s not found", rollNo)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get student")
	}
	return student, nil
}

// ListStudents returns every enrolled borrower.
func (s *DirectoryService) ListStudents(ctx context.Context) ([]*domain.Student, error) {
	var students []*domain.Student
	for student, err := range s.store.Students.List(ctx) {
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list students")
		}
		students = append(students, student)
	}
	return students, nil
}

// RemoveStudent drops a borrower from the directory. A student with active
// loans keeps their ledger rows; only the directory entry goes away.
func (s *DirectoryService) RemoveStudent(ctx context.Context, rollNo string) error {
	student, err := s.GetStudentByRoll(ctx, rollNo)
	if err != nil {
		return err
	}

	state, err := s.store.GetBorrowerState(ctx, rollNo)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to check borrower state")
	}
	if state.ActiveCount() > 0 {
		return apperrors.ErrActiveLoansExist.WithDetails(map[string]any{
			"active_loans": state.ActiveCount(),
		})
	}

	if err := s.store.Students.Delete(ctx, student.ID); err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "failed to remove student")
	}
	return nil
}

// RegisterIssuer registers desk staff. Email addresses are unique,
// case-insensitively.
func (s *DirectoryService) RegisterIssuer(ctx context.Context, input RegisterIssuerInput) (*domain.Issuer, error) {
	if err := s.validator.Validate(input); err != nil {
		return nil, err
	}

	issuer := &domain.Issuer{
		Name:      input.Name,
		Email:     input.Email,
		Librarian: input.Librarian,
	}
	issuerID, err := id.NewIssuerID()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to generate issuer ID")
	}
	issuer.ID = issuerID
	issuer.InitTimestamps()

	if err := s.store.Issuers.Create(ctx, issuer.ID, issuer); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, apperrors.AlreadyExists("an issuer with this email already exists")
		}
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to register issuer")
	}

	if s.logger != nil {
		s.logger.Info("issuer registered", "id", issuer.ID, "email", issuer.Email, "librarian", issuer.Librarian)
	}
	return issuer, nil
}

// GetIssuer returns an issuer by ID.
func (s *DirectoryService) GetIssuer(ctx context.Context, issuerID string) (*domain.Issuer, error) {
	issuer, err := s.store.Issuers.Get(ctx, issuerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperrors.NotFoundf("issuer %s not found", issuerID)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to get issuer")
	}
	return issuer, nil
}

// ListIssuers returns all registered desk staff.
func (s *DirectoryService) ListIssuers(ctx context.Context) ([]*domain.Issuer, error) {
	var issuers []*domain.Issuer
	for issuer, err := range s.store.Issuers.List(ctx) {
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to list issuers")
		}
		issuers = append(issuers, issuer)
	}
	return issuers, nil
}
