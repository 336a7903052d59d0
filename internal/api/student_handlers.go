package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/circulateapp/circulate-server/internal/domain"
	"github.com/circulateapp/circulate-server/internal/service"
)

func (s *Server) registerStudentRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listStudents",
		Method:      http.MethodGet,
		Path:        "/api/v1/students",
		Summary:     "List students",
		Description: "Returns every enrolled borrower",
		Tags:        []string{"Students"},
	}, s.handleListStudents)

	huma.Register(s.api, huma.Operation{
		OperationID: "registerStudent",
		Method:      http.MethodPost,
		Path:        "/api/v1/students",
		Summary:     "Register student",
		Description: "Enrolls a borrower; roll numbers are unique case-insensitively",
		Tags:        []string{"Students"},
	}, s.handleRegisterStudent)

	huma.Register(s.api, huma.Operation{
		OperationID: "getStudent",
		Method:      http.MethodGet,
		Path:        "/api/v1/students/{rollNo}",
		Summary:     "Get student",
		Description: "Looks a borrower up by roll number",
		Tags:        []string{"Students"},
	}, s.handleGetStudent)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeStudent",
		Method:      http.MethodDelete,
		Path:        "/api/v1/students/{rollNo}",
		Summary:     "Remove student",
		Description: "Drops a borrower; refused while they hold active loans",
		Tags:        []string{"Students"},
	}, s.handleRemoveStudent)

	huma.Register(s.api, huma.Operation{
		OperationID: "getStudentHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/students/{rollNo}/loans",
		Summary:     "Get student history",
		Description: "Returns a student's full ledger, active and returned alike",
		Tags:        []string{"Students"},
	}, s.handleStudentHistory)
}

// === DTOs ===

// StudentResponse contains borrower data in API responses.
type StudentResponse struct {
	ID          string    `json:"id" doc:"Student ID"`
	RollNo      string    `json:"roll_no" doc:"Roll number"`
	Name        string    `json:"name" doc:"Student name"`
	Branch      string    `json:"branch,omitempty" doc:"Department branch code"`
	Year        int       `json:"year,omitempty" doc:"Year of study"`
	ActiveLoans int       `json:"active_loans" doc:"Books currently out"`
	CreatedAt   time.Time `json:"created_at" doc:"Enrollment time"`
	UpdatedAt   time.Time `json:"updated_at" doc:"Last update time"`
}

func studentResponse(st *domain.Student, activeLoans int) StudentResponse {
	return StudentResponse{
		ID:          st.ID,
		RollNo:      st.RollNo,
		Name:        st.Name,
		Branch:      st.Branch,
		Year:        st.Year,
		ActiveLoans: activeLoans,
		CreatedAt:   st.CreatedAt,
		UpdatedAt:   st.UpdatedAt,
	}
}

// activeLoanCount looks up how many books a student currently holds.
func (s *Server) activeLoanCount(ctx context.Context, rollNo string) (int, error) {
	state, err := s.store.GetBorrowerState(ctx, rollNo)
	if err != nil {
		return 0, err
	}
	return state.ActiveCount(), nil
}

// StudentOutput wraps a student response for Huma.
type StudentOutput struct {
	Body StudentResponse
}

// RegisterStudentRequest is the request body for enrolling a borrower.
type RegisterStudentRequest struct {
	RollNo string `json:"roll_no" doc:"Roll number"`
	Name   string `json:"name" doc:"Student name"`
	Branch string `json:"branch,omitempty" doc:"Department branch code"`
	Year   int    `json:"year,omitempty" doc:"Year of study"`
}

// RegisterStudentInput wraps the register student request for Huma.
type RegisterStudentInput struct {
	Body RegisterStudentRequest
}

// StudentPathInput addresses a student by roll number.
type StudentPathInput struct {
	RollNo string `path:"rollNo" doc:"Roll number"`
}

// StudentHistoryInput contains parameters for a student's ledger history.
type StudentHistoryInput struct {
	PaginationInput
	RollNo string `path:"rollNo" doc:"Roll number"`
	Status string `query:"status" doc:"Filter by status: issued or returned"`
}

// ListStudentsResponse contains all enrolled borrowers.
type ListStudentsResponse struct {
	Students []StudentResponse `json:"students" doc:"Enrolled borrowers"`
}

// ListStudentsOutput wraps the list students response for Huma.
type ListStudentsOutput struct {
	Body ListStudentsResponse
}

// === Handlers ===

func (s *Server) handleListStudents(ctx context.Context, _ *struct{}) (*ListStudentsOutput, error) {
	students, err := s.services.Directory.ListStudents(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]StudentResponse, 0, len(students))
	for _, st := range students {
		count, err := s.activeLoanCount(ctx, st.RollNo)
		if err != nil {
			return nil, err
		}
		resp = append(resp, studentResponse(st, count))
	}

	return &ListStudentsOutput{Body: ListStudentsResponse{Students: resp}}, nil
}

func (s *Server) handleRegisterStudent(ctx context.Context, input *RegisterStudentInput) (*StudentOutput, error) {
	student, err := s.services.Directory.RegisterStudent(ctx, service.RegisterStudentInput{
		RollNo: input.Body.RollNo,
		Name:   input.Body.Name,
		Branch: input.Body.Branch,
		Year:   input.Body.Year,
	})
	if err != nil {
		return nil, err
	}

	return &StudentOutput{Body: studentResponse(student, 0)}, nil
}

func (s *Server) handleGetStudent(ctx context.Context, input *StudentPathInput) (*StudentOutput, error) {
	student, err := s.services.Directory.GetStudentByRoll(ctx, input.RollNo)
	if err != nil {
		return nil, err
	}

	count, err := s.activeLoanCount(ctx, student.RollNo)
	if err != nil {
		return nil, err
	}

	return &StudentOutput{Body: studentResponse(student, count)}, nil
}

func (s *Server) handleRemoveStudent(ctx context.Context, input *StudentPathInput) (*MessageOutput, error) {
	if err := s.services.Directory.RemoveStudent(ctx, input.RollNo); err != nil {
		return nil, err
	}

	return &MessageOutput{Body: MessageResponse{Message: "Student removed"}}, nil
}

func (s *Server) handleStudentHistory(ctx context.Context, input *StudentHistoryInput) (*ListLoansOutput, error) {
	status, err := parseLoanStatus(input.Status)
	if err != nil {
		return nil, err
	}

	page, err := s.services.Ledger.StudentHistory(ctx, input.RollNo, status, input.params())
	if err != nil {
		return nil, err
	}

	return &ListLoansOutput{Body: loanPage(page)}, nil
}
