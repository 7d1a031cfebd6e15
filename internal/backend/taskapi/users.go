package taskapi

import (
	"context"
	"net/http"
	"net/url"

	"taskctl/internal/apiclient"
	"taskctl/internal/service"
	"taskctl/internal/validation"
	"taskctl/internal/wire"
)

// UserService covers the /users endpoints.
type UserService struct {
	doer Doer
}

// List returns one page of users.
func (s *UserService) List(ctx context.Context, p service.Page) ([]service.UserProfile, error) {
	resp, err := call(ctx, s.doer, apiclient.Request{
		Method: http.MethodGet,
		Path:   "/users",
		Query:  wire.PageQuery(p),
	})
	if err != nil {
		return nil, err
	}
	return wire.DecodeUsers(resp.Body)
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, id string) (service.UserProfile, error) {
	if err := validation.ID("user", id); err != nil {
		return service.UserProfile{}, err
	}
	resp, err := call(ctx, s.doer, apiclient.Request{Method: http.MethodGet, Path: "/users/" + url.PathEscape(id)})
	if err != nil {
		return service.UserProfile{}, err
	}
	return wire.DecodeUser(resp.Body)
}
