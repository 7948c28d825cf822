package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/edpaget/kongfig/pkg/kong"
)

type mockKongClient struct {
	FetchKongVersionMock         func(context.Context) (string, error)
	FetchApisMock                func(context.Context) ([]kong.Record, error)
	FetchPluginsMock             func(context.Context, string) ([]kong.Record, error)
	FetchGlobalPluginsMock       func(context.Context) ([]kong.Record, error)
	FetchConsumersMock           func(context.Context) ([]kong.Record, error)
	FetchConsumerCredentialsMock func(context.Context, string, string) ([]kong.Record, error)
	FetchConsumerAclsMock        func(context.Context, string) ([]kong.Record, error)
	FetchUpstreamsMock           func(context.Context) ([]kong.Record, error)
	FetchTargetsMock             func(context.Context, string) ([]kong.Record, error)
	FetchActiveTargetsMock       func(context.Context, string) ([]kong.Record, error)
	FetchCertificatesMock        func(context.Context) ([]kong.Record, error)
	FetchPluginSchemasMock       func(context.Context) (map[string]kong.Record, error)
	FetchServicesMock            func(context.Context) ([]kong.Record, error)
	FetchRoutesMock              func(context.Context) ([]kong.Record, error)
	FetchServicePluginsMock      func(context.Context, string) ([]kong.Record, error)

	lock  sync.Mutex
	calls []string
}

func (m *mockKongClient) record(call string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.calls = append(m.calls, call)
}

func (m *mockKongClient) called(call string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	for _, c := range m.calls {
		if c == call {
			return true
		}
	}
	return false
}

func unimplemented(call string) error {
	return fmt.Errorf("unimplemented test func %s", call)
}

func (m *mockKongClient) FetchKongVersion(ctx context.Context) (string, error) {
	m.record("version")
	if m.FetchKongVersionMock != nil {
		return m.FetchKongVersionMock(ctx)
	}
	return "", unimplemented("version")
}

func (m *mockKongClient) FetchApis(ctx context.Context) ([]kong.Record, error) {
	m.record("apis")
	if m.FetchApisMock != nil {
		return m.FetchApisMock(ctx)
	}
	return nil, unimplemented("apis")
}

func (m *mockKongClient) FetchPlugins(ctx context.Context, apiID string) ([]kong.Record, error) {
	m.record("plugins/" + apiID)
	if m.FetchPluginsMock != nil {
		return m.FetchPluginsMock(ctx, apiID)
	}
	return nil, unimplemented("plugins")
}

func (m *mockKongClient) FetchGlobalPlugins(ctx context.Context) ([]kong.Record, error) {
	m.record("global plugins")
	if m.FetchGlobalPluginsMock != nil {
		return m.FetchGlobalPluginsMock(ctx)
	}
	return nil, unimplemented("global plugins")
}

func (m *mockKongClient) FetchConsumers(ctx context.Context) ([]kong.Record, error) {
	m.record("consumers")
	if m.FetchConsumersMock != nil {
		return m.FetchConsumersMock(ctx)
	}
	return nil, unimplemented("consumers")
}

func (m *mockKongClient) FetchConsumerCredentials(ctx context.Context, consumerID, credentialType string) ([]kong.Record, error) {
	m.record("credentials/" + consumerID + "/" + credentialType)
	if m.FetchConsumerCredentialsMock != nil {
		return m.FetchConsumerCredentialsMock(ctx, consumerID, credentialType)
	}
	return nil, unimplemented("credentials")
}

func (m *mockKongClient) FetchConsumerAcls(ctx context.Context, consumerID string) ([]kong.Record, error) {
	m.record("acls/" + consumerID)
	if m.FetchConsumerAclsMock != nil {
		return m.FetchConsumerAclsMock(ctx, consumerID)
	}
	return nil, unimplemented("acls")
}

func (m *mockKongClient) FetchUpstreams(ctx context.Context) ([]kong.Record, error) {
	m.record("upstreams")
	if m.FetchUpstreamsMock != nil {
		return m.FetchUpstreamsMock(ctx)
	}
	return nil, unimplemented("upstreams")
}

func (m *mockKongClient) FetchTargets(ctx context.Context, upstreamID string) ([]kong.Record, error) {
	m.record("targets/" + upstreamID)
	if m.FetchTargetsMock != nil {
		return m.FetchTargetsMock(ctx, upstreamID)
	}
	return nil, unimplemented("targets")
}

func (m *mockKongClient) FetchActiveTargets(ctx context.Context, upstreamID string) ([]kong.Record, error) {
	m.record("active targets/" + upstreamID)
	if m.FetchActiveTargetsMock != nil {
		return m.FetchActiveTargetsMock(ctx, upstreamID)
	}
	return nil, unimplemented("active targets")
}

func (m *mockKongClient) FetchCertificates(ctx context.Context) ([]kong.Record, error) {
	m.record("certificates")
	if m.FetchCertificatesMock != nil {
		return m.FetchCertificatesMock(ctx)
	}
	return nil, unimplemented("certificates")
}

func (m *mockKongClient) FetchPluginSchemas(ctx context.Context) (map[string]kong.Record, error) {
	m.record("schemas")
	if m.FetchPluginSchemasMock != nil {
		return m.FetchPluginSchemasMock(ctx)
	}
	return nil, unimplemented("schemas")
}

func (m *mockKongClient) FetchServices(ctx context.Context) ([]kong.Record, error) {
	m.record("services")
	if m.FetchServicesMock != nil {
		return m.FetchServicesMock(ctx)
	}
	return nil, unimplemented("services")
}

func (m *mockKongClient) FetchRoutes(ctx context.Context) ([]kong.Record, error) {
	m.record("routes")
	if m.FetchRoutesMock != nil {
		return m.FetchRoutesMock(ctx)
	}
	return nil, unimplemented("routes")
}

func (m *mockKongClient) FetchServicePlugins(ctx context.Context, serviceID string) ([]kong.Record, error) {
	m.record("service plugins/" + serviceID)
	if m.FetchServicePluginsMock != nil {
		return m.FetchServicePluginsMock(ctx, serviceID)
	}
	return nil, unimplemented("service plugins")
}

func records(r ...kong.Record) func(context.Context) ([]kong.Record, error) {
	return func(context.Context) ([]kong.Record, error) {
		return r, nil
	}
}

func childRecords(byParent map[string][]kong.Record) func(context.Context, string) ([]kong.Record, error) {
	return func(_ context.Context, parentID string) ([]kong.Record, error) {
		if list, ok := byParent[parentID]; ok {
			return list, nil
		}
		return []kong.Record{}, nil
	}
}

func version(v string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) {
		return v, nil
	}
}

// gatewayMock is a gateway with one entity of every family.
func gatewayMock(v string) *mockKongClient {
	return &mockKongClient{
		FetchKongVersionMock: version(v),
		FetchApisMock:        records(kong.Record{"id": "api1", "name": "mockbin", "upstream_url": "http://mockbin.org", "created_at": 1}),
		FetchPluginsMock: childRecords(map[string][]kong.Record{
			"api1": {{"id": "p1", "name": "cors", "api_id": "api1", "enabled": true, "config": map[string]interface{}{"origins": "*"}}},
		}),
		FetchServicesMock: records(kong.Record{"id": "svc1", "name": "shop", "host": "shop.internal", "port": 80, "protocol": "http"}),
		FetchServicePluginsMock: childRecords(map[string][]kong.Record{
			"svc1": {{"id": "p2", "name": "key-auth", "enabled": true, "service": map[string]interface{}{"id": "svc1"}}},
		}),
		FetchRoutesMock: records(
			kong.Record{"id": "r1", "paths": []interface{}{"/checkout"}, "service": map[string]interface{}{"id": "svc1"}},
			kong.Record{"id": "r2", "paths": []interface{}{"/cart"}, "service": map[string]interface{}{"id": "svc1"}},
		),
		FetchConsumersMock: records(
			kong.Record{"id": "u1", "username": "alice", "created_at": 2},
			kong.Record{"id": "u2", "custom_id": "legacy"},
		),
		FetchConsumerAclsMock: childRecords(map[string][]kong.Record{
			"u1": {{"id": "a1", "group": "admins", "consumer_id": "u1"}},
		}),
		FetchConsumerCredentialsMock: func(_ context.Context, consumerID, credentialType string) ([]kong.Record, error) {
			if consumerID == "u1" && credentialType == "key-auth" {
				return []kong.Record{{"id": "c1", "consumer_id": "u1", "created_at": 1, "key": "abc"}}, nil
			}
			return []kong.Record{}, nil
		},
		FetchGlobalPluginsMock: records(
			kong.Record{"id": "p1", "name": "cors", "api_id": "api1"},
			kong.Record{"id": "p3", "name": "rate-limiting", "consumer_id": "u1", "config": map[string]interface{}{"minute": 10}},
		),
		FetchUpstreamsMock: records(kong.Record{"id": "up1", "name": "backend", "slots": 100}),
		FetchTargetsMock: childRecords(map[string][]kong.Record{
			"up1": {{"id": "t1", "target": "10.0.0.1:80", "weight": 100, "upstream_id": "up1"}},
		}),
		FetchActiveTargetsMock: childRecords(map[string][]kong.Record{
			"up1": {{"id": "t1", "target": "10.0.0.1:80", "weight": 100, "upstream_id": "up1"}},
		}),
		FetchCertificatesMock: records(kong.Record{"id": "cert1", "cert": "-----BEGIN CERTIFICATE-----", "snis": []interface{}{"example.com"}}),
	}
}
