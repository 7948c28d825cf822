package state

import (
	"context"

	"github.com/edpaget/kongfig/pkg/kong"
)

// Read fetches the live gateway state and returns its canonical snapshot.
// doc is optional and only used to name routes. Either the whole snapshot is
// returned or an error, never a partial state.
func Read(ctx context.Context, client kong.AdminAPIClient, registry kong.CredentialRegistry, doc *DesiredState) (*State, error) {
	raw, err := NewFetcher(client, registry).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return Normalize(raw, doc)
}
