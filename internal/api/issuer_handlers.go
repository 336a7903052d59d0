package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/circulateapp/circulate-server/internal/domain"
	"github.com/circulateapp/circulate-server/internal/service"
)

func (s *Server) registerIssuerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listIssuers",
		Method:      http.MethodGet,
		Path:        "/api/v1/issuers",
		Summary:     "List issuers",
		Description: "Returns all registered desk staff",
		Tags:        []string{"Issuers"},
	}, s.handleListIssuers)

	huma.Register(s.api, huma.Operation{
		OperationID: "registerIssuer",
		Method:      http.MethodPost,
		Path:        "/api/v1/issuers",
		Summary:     "Register issuer",
		Description: "Registers desk staff; emails are unique case-insensitively",
		Tags:        []string{"Issuers"},
	}, s.handleRegisterIssuer)

	huma.Register(s.api, huma.Operation{
		OperationID: "getIssuer",
		Method:      http.MethodGet,
		Path:        "/api/v1/issuers/{id}",
		Summary:     "Get issuer",
		Description: "Returns an issuer by ID",
		Tags:        []string{"Issuers"},
	}, s.handleGetIssuer)
}

// === DTOs ===

// IssuerResponse contains desk staff data in API responses.
type IssuerResponse struct {
	ID        string    `json:"id" doc:"Issuer ID"`
	Name      string    `json:"name" doc:"Issuer name"`
	Email     string    `json:"email" doc:"Email address"`
	Librarian bool      `json:"librarian" doc:"Whether the issuer may operate the desk"`
	CreatedAt time.Time `json:"created_at" doc:"Registration time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

func issuerResponse(i *domain.Issuer) IssuerResponse {
	return IssuerResponse{
		ID:        i.ID,
		Name:      i.Name,
		Email:     i.Email,
		Librarian: i.Librarian,
		CreatedAt: i.CreatedAt,
		UpdatedAt: i.UpdatedAt,
	}
}

// IssuerOutput wraps an issuer response for Huma.
type IssuerOutput struct {
	Body IssuerResponse
}

// RegisterIssuerRequest is the request body for registering desk staff.
type RegisterIssuerRequest struct {
	Name      string `json:"name" doc:"Issuer name"`
	Email     string `json:"email" doc:"Email address"`
	Librarian bool   `json:"librarian,omitempty" doc:"Whether the issuer may operate the desk"`
}

// RegisterIssuerInput wraps the register issuer request for Huma.
type RegisterIssuerInput struct {
	Body RegisterIssuerRequest
}

// GetIssuerInput contains parameters for getting an issuer.
type GetIssuerInput struct {
	ID string `path:"id" doc:"Issuer ID"`
}

// ListIssuersResponse contains all registered desk staff.
type ListIssuersResponse struct {
	Issuers []IssuerResponse `json:"issuers" doc:"Registered desk staff"`
}

// ListIssuersOutput wraps the list issuers response for Huma.
type ListIssuersOutput struct {
	Body ListIssuersResponse
}

// === Handlers ===

func (s *Server) handleListIssuers(ctx context.Context, _ *struct{}) (*ListIssuersOutput, error) {
	issuers, err := s.services.Directory.ListIssuers(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]IssuerResponse, 0, len(issuers))
	for _, i := range issuers {
		resp = append(resp, issuerResponse(i))
	}

	return &ListIssuersOutput{Body: ListIssuersResponse{Issuers: resp}}, nil
}

func (s *Server) handleRegisterIssuer(ctx context.Context, input *RegisterIssuerInput) (*IssuerOutput, error) {
	issuer, err := s.services.Directory.RegisterIssuer(ctx, service.RegisterIssuerInput{
		Name:      input.Body.Name,
		Email:     input.Body.Email,
		Librarian: input.Body.Librarian,
	})
	if err != nil {
		return nil, err
	}

	return &IssuerOutput{Body: issuerResponse(issuer)}, nil
}

func (s *Server) handleGetIssuer(ctx context.Context, input *GetIssuerInput) (*IssuerOutput, error) {
	issuer, err := s.services.Directory.GetIssuer(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &IssuerOutput{Body: issuerResponse(issuer)}, nil
}
