// Package project wraps the external project service. Campaign creation
// requires the referenced project to be validated and owned by the caller;
// this package only reads, the vote-threshold status engine that moves
// projects between states lives in the project service itself.
package project

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// StatusValidated is the project status required before a campaign can be
// created for it.
const StatusValidated = "VALIDATED"

// Project is the collaborator view of a project.
type Project struct {
	ID           uint64   `json:"id"`
	Status       string   `json:"status"`
	OwnerAddress string   `json:"owner_address"`
	Documents    []string `json:"documents"`
}

// Service resolves projects from the project subsystem.
type Service interface {
	GetProject(ctx context.Context, id uint64) (*Project, error)
}

// HTTPService is the production Service backed by the project subsystem's
// HTTP API.
type HTTPService struct {
	endpoint string
}

// NewHTTPService returns a new project service client instance.
func NewHTTPService(endpoint string) *HTTPService {
	return &HTTPService{endpoint: endpoint}
}

type projectResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// GetProject requests project detail by id.
func (s *HTTPService) GetProject(
	ctx context.Context,
	id uint64,
) (*Project, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/project?id=%d", s.endpoint, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := (&http.Client{}).Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "request project service")
	}

	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	pr := &projectResponse{}
	if err := json.Unmarshal(body, pr); err != nil {
		return nil, err
	}

	if pr.Code != http.StatusOK {
		return nil, errors.Errorf("request project service failed, err:%s", pr.Msg)
	}

	p := &Project{}
	return p, json.Unmarshal(pr.Data, p)
}
