// ABOUTME: Google People API client for listing connections
// ABOUTME: Creates an authenticated People service and converts persons to connection records
package provider

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/people/v1"

	"github.com/harperreed/peoplelogin/flow"
	"github.com/harperreed/peoplelogin/models"
)

// People loads the People API for a granted token.
type People struct {
	config *oauth2.Config
	opts   []option.ClientOption
}

// NewPeople creates a contacts loader. Extra options are appended after
// the authenticated HTTP client, e.g. option.WithEndpoint in tests.
func NewPeople(config *oauth2.Config, opts ...option.ClientOption) *People {
	return &People{config: config, opts: opts}
}

// Load creates a People service bound to token.
func (p *People) Load(ctx context.Context, token *oauth2.Token) (flow.ConnectionLister, error) {
	if token == nil {
		return nil, fmt.Errorf("token cannot be nil")
	}

	// The client outlives the request that loaded it.
	base := context.WithoutCancel(ctx)
	client := p.config.Client(base, token)

	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, p.opts...)
	service, err := people.NewService(base, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create People service: %w", err)
	}

	return &peopleLister{service: service}, nil
}

type peopleLister struct {
	service *people.Service
}

// ListConnections fetches one page of up to max connections of people/me.
func (l *peopleLister) ListConnections(ctx context.Context, max int) ([]models.Connection, error) {
	response, err := l.service.People.Connections.List("people/me").
		PageSize(int64(max)).
		PersonFields("names").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch connections: %w", err)
	}

	if response == nil || response.Connections == nil {
		return nil, nil
	}

	conns := make([]models.Connection, 0, len(response.Connections))
	for _, person := range response.Connections {
		conns = append(conns, convertPerson(person))
	}

	return conns, nil
}

// convertPerson converts a People API Person to a connection record.
func convertPerson(person *people.Person) models.Connection {
	conn := models.Connection{ResourceName: person.ResourceName}
	for _, name := range person.Names {
		if name == nil {
			continue
		}
		conn.DisplayNames = append(conn.DisplayNames, name.DisplayName)
	}
	return conn
}
