package state

import (
	"context"

	"github.com/Axway/agent-sdk/pkg/util/log"
	"golang.org/x/sync/errgroup"

	"github.com/edpaget/kongfig/pkg/common"
	"github.com/edpaget/kongfig/pkg/kong"
)

// RawApi is a legacy api joined with its plugins.
type RawApi struct {
	Api     kong.Record
	Plugins []kong.Record
}

// RawService is a service joined with its plugins.
type RawService struct {
	Service kong.Record
	Plugins []kong.Record
}

// RawConsumer is a consumer joined with its ACL groups and its credentials
// keyed by credential type.
type RawConsumer struct {
	Consumer    kong.Record
	ACLs        []kong.Record
	Credentials map[string][]kong.Record
}

// RawUpstream is an upstream joined with its targets.
type RawUpstream struct {
	Upstream kong.Record
	Targets  []kong.Record
}

// RawSnapshot mirrors the live gateway state before normalization. Upstreams
// and Certificates are nil when the gateway does not support them.
type RawSnapshot struct {
	Version      kong.Version
	Capabilities kong.Capabilities
	Apis         []RawApi
	Services     []RawService
	Routes       []kong.Record
	Consumers    []RawConsumer
	Plugins      []kong.Record
	Upstreams    []RawUpstream
	Certificates []kong.Record
}

// Fetcher reads a RawSnapshot from the admin API. Children of every parent
// are read concurrently; the first failed request fails the whole snapshot.
type Fetcher struct {
	client   kong.AdminAPIClient
	registry kong.CredentialRegistry
	logger   log.FieldLogger
}

func NewFetcher(client kong.AdminAPIClient, registry kong.CredentialRegistry) *Fetcher {
	return &Fetcher{
		client:   client,
		registry: registry,
		logger:   log.NewFieldLogger().WithComponent("fetcher").WithPackage("state"),
	}
}

// Fetch reads the gateway version first, then every resource family the
// version supports, in order.
func (f *Fetcher) Fetch(ctx context.Context) (*RawSnapshot, error) {
	rawVersion, err := f.client.FetchKongVersion(ctx)
	if err != nil {
		f.logger.WithError(err).Error("failed to get gateway version")
		return nil, err
	}
	version, err := kong.ParseVersion(rawVersion)
	if err != nil {
		f.logger.WithError(err).Error("unsupported gateway version")
		return nil, err
	}
	caps := kong.CapabilitiesFor(version)
	f.logger.WithField(common.AttrKongVersion, rawVersion).Debug("reading gateway state")

	snapshot := &RawSnapshot{
		Version:      version,
		Capabilities: caps,
		Services:     []RawService{},
		Routes:       []kong.Record{},
	}

	if snapshot.Apis, err = f.fetchApis(ctx); err != nil {
		return nil, err
	}
	if caps.HasServices {
		if snapshot.Services, snapshot.Routes, err = f.fetchServicesAndRoutes(ctx); err != nil {
			return nil, err
		}
	}
	if snapshot.Consumers, err = f.fetchConsumers(ctx); err != nil {
		return nil, err
	}
	plugins, err := f.client.FetchGlobalPlugins(ctx)
	if err != nil {
		f.logger.WithError(err).Error("failed to get plugins")
		return nil, err
	}
	snapshot.Plugins = kong.GlobalPlugins(plugins)

	if caps.HasUpstreams {
		if snapshot.Upstreams, err = f.fetchUpstreams(ctx, caps.TargetStrategy); err != nil {
			return nil, err
		}
	}
	if caps.HasCertificates {
		if snapshot.Certificates, err = f.client.FetchCertificates(ctx); err != nil {
			f.logger.WithError(err).Error("failed to get certificates")
			return nil, err
		}
		if snapshot.Certificates == nil {
			snapshot.Certificates = []kong.Record{}
		}
	}
	return snapshot, nil
}

// fanOut calls fetch for every parent concurrently. Results keep the order of parents.
func fanOut[T any](ctx context.Context, parents []kong.Record, fetch func(context.Context, kong.Record) (T, error)) ([]T, error) {
	results := make([]T, len(parents))
	g, gctx := errgroup.WithContext(ctx)
	for i, parent := range parents {
		i, parent := i, parent
		g.Go(func() error {
			res, err := fetch(gctx, parent)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (f *Fetcher) fetchApis(ctx context.Context) ([]RawApi, error) {
	apis, err := f.client.FetchApis(ctx)
	if err != nil {
		f.logger.WithError(err).Error("failed to get apis")
		return nil, err
	}
	return fanOut(ctx, apis, func(ctx context.Context, api kong.Record) (RawApi, error) {
		plugins, err := f.client.FetchPlugins(ctx, api.ID())
		if err != nil {
			f.logger.WithField(common.AttrApiID, api.ID()).WithError(err).Error("failed to get api plugins")
			return RawApi{}, err
		}
		return RawApi{Api: api, Plugins: plugins}, nil
	})
}

func (f *Fetcher) fetchServicesAndRoutes(ctx context.Context) ([]RawService, []kong.Record, error) {
	var services []RawService
	var routes []kong.Record

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := f.client.FetchServices(gctx)
		if err != nil {
			f.logger.WithError(err).Error("failed to get services")
			return err
		}
		services, err = fanOut(gctx, list, func(ctx context.Context, service kong.Record) (RawService, error) {
			plugins, err := f.client.FetchServicePlugins(ctx, service.ID())
			if err != nil {
				f.logger.WithField(common.AttrServiceID, service.ID()).WithError(err).Error("failed to get service plugins")
				return RawService{}, err
			}
			return RawService{Service: service, Plugins: plugins}, nil
		})
		return err
	})
	g.Go(func() error {
		var err error
		routes, err = f.client.FetchRoutes(gctx)
		if err != nil {
			f.logger.WithError(err).Error("failed to get routes")
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return services, routes, nil
}

func (f *Fetcher) fetchConsumers(ctx context.Context) ([]RawConsumer, error) {
	consumers, err := f.client.FetchConsumers(ctx)
	if err != nil {
		f.logger.WithError(err).Error("failed to get consumers")
		return nil, err
	}
	return fanOut(ctx, consumers, f.fetchConsumer)
}

func (f *Fetcher) fetchConsumer(ctx context.Context, consumer kong.Record) (RawConsumer, error) {
	if kong.IsCustomIDOnly(consumer) {
		f.logger.WithField(common.AttrCustomID, consumer.String(common.FieldCustomID)).
			Warn("consumers with only custom_id are not supported, skipping credentials and acls")
		return RawConsumer{
			Consumer:    consumer,
			ACLs:        []kong.Record{},
			Credentials: map[string][]kong.Record{},
		}, nil
	}

	logger := f.logger.WithField(common.AttrConsumerID, consumer.ID())
	types := f.registry.SupportedCredentials()
	credentials := make([][]kong.Record, len(types))
	var acls []kong.Record

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		acls, err = f.client.FetchConsumerAcls(gctx, consumer.ID())
		if err != nil {
			logger.WithError(err).Error("failed to get consumer acls")
		}
		return err
	})
	for i, credentialType := range types {
		i, credentialType := i, credentialType
		g.Go(func() error {
			list, err := f.client.FetchConsumerCredentials(gctx, consumer.ID(), credentialType)
			if err != nil {
				logger.WithField(common.AttrCredentialType, credentialType).WithError(err).Error("failed to get consumer credentials")
				return err
			}
			credentials[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return RawConsumer{}, err
	}

	byType := make(map[string][]kong.Record, len(types))
	for i, credentialType := range types {
		byType[credentialType] = credentials[i]
	}
	return RawConsumer{Consumer: consumer, ACLs: acls, Credentials: byType}, nil
}

func (f *Fetcher) fetchUpstreams(ctx context.Context, strategy kong.TargetStrategy) ([]RawUpstream, error) {
	upstreams, err := f.client.FetchUpstreams(ctx)
	if err != nil {
		f.logger.WithError(err).Error("failed to get upstreams")
		return nil, err
	}

	fetchTargets := f.client.FetchTargets
	if strategy == kong.TargetsActive {
		fetchTargets = f.client.FetchActiveTargets
	}
	return fanOut(ctx, upstreams, func(ctx context.Context, upstream kong.Record) (RawUpstream, error) {
		targets, err := fetchTargets(ctx, upstream.ID())
		if err != nil {
			f.logger.WithField(common.AttrUpstreamID, upstream.ID()).WithError(err).Error("failed to get upstream targets")
			return RawUpstream{}, err
		}
		return RawUpstream{Upstream: upstream, Targets: targets}, nil
	})
}
