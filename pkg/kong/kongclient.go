package kong

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Axway/agent-sdk/pkg/util/log"
	klib "github.com/kong/go-kong/kong"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"github.com/edpaget/kongfig/pkg/common"
	"github.com/edpaget/kongfig/pkg/config"
)

const defaultPageSize = 100

// AdminAPIClient issues one read per resource family of the admin API.
// Errors are returned as produced by the transport.
type AdminAPIClient interface {
	FetchKongVersion(ctx context.Context) (string, error)
	FetchApis(ctx context.Context) ([]Record, error)
	FetchPlugins(ctx context.Context, apiID string) ([]Record, error)
	FetchGlobalPlugins(ctx context.Context) ([]Record, error)
	FetchConsumers(ctx context.Context) ([]Record, error)
	FetchConsumerCredentials(ctx context.Context, consumerID, credentialType string) ([]Record, error)
	FetchConsumerAcls(ctx context.Context, consumerID string) ([]Record, error)
	FetchUpstreams(ctx context.Context) ([]Record, error)
	FetchTargets(ctx context.Context, upstreamID string) ([]Record, error)
	FetchActiveTargets(ctx context.Context, upstreamID string) ([]Record, error)
	FetchCertificates(ctx context.Context) ([]Record, error)
	FetchPluginSchemas(ctx context.Context) (map[string]Record, error)
	FetchServices(ctx context.Context) ([]Record, error)
	FetchRoutes(ctx context.Context) ([]Record, error)
	FetchServicePlugins(ctx context.Context, serviceID string) ([]Record, error)
}

type KongClient struct {
	*klib.Client
	logger    log.FieldLogger
	workspace string
	pageSize  int
}

type listOpt struct {
	Size   int    `url:"size,omitempty"`
	Offset string `url:"offset,omitempty"`
}

func NewKongClient(baseClient *http.Client, adminConfig *config.KongAdminConfig) (*KongClient, error) {
	logger := log.NewFieldLogger().WithComponent("KongClient").WithPackage("kong")

	if adminConfig.TLS != nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = adminConfig.TLS.BuildTLSConfig()
		baseClient.Transport = transport
	}

	headers := make(http.Header)
	if adminConfig.Auth.APIKey.Value != "" {
		headers.Set(adminConfig.Auth.APIKey.Header, adminConfig.Auth.APIKey.Value)
	}
	if adminConfig.Auth.BasicAuth.Username != "" {
		req := http.Request{Header: make(http.Header)}
		req.SetBasicAuth(adminConfig.Auth.BasicAuth.Username, adminConfig.Auth.BasicAuth.Password)
		headers.Set("Authorization", req.Header.Get("Authorization"))
	}
	if len(headers) > 0 {
		baseClient = klib.HTTPClientWithHeaders(baseClient, headers)
	}

	adminURL := adminConfig.URL
	baseKongClient, err := klib.NewClient(&adminURL, baseClient)
	if err != nil {
		logger.WithError(err).Error("failed to create kong client")
		return nil, err
	}

	pageSize := adminConfig.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &KongClient{
		Client:    baseKongClient,
		logger:    logger.WithField(common.AttrAdminURL, adminConfig.URL),
		workspace: strings.Trim(adminConfig.Workspace, "/"),
		pageSize:  pageSize,
	}, nil
}

func (k *KongClient) path(format string, args ...interface{}) string {
	for i, a := range args {
		if s, ok := a.(string); ok {
			args[i] = url.PathEscape(s)
		}
	}
	endpoint := fmt.Sprintf(format, args...)
	if k.workspace == "" {
		return endpoint
	}
	return "/" + k.workspace + endpoint
}

// get issues a single GET and returns the raw body.
func (k *KongClient) get(ctx context.Context, endpoint string, qs interface{}) ([]byte, error) {
	req, err := k.NewRequest(http.MethodGet, endpoint, qs, nil)
	if err != nil {
		return nil, err
	}
	var body json.RawMessage
	if _, err = k.Do(ctx, req, &body); err != nil {
		k.logger.WithField(common.AttrEndpoint, endpoint).WithError(err).Debug("request failed")
		return nil, err
	}
	return body, nil
}

// list reads every page of a collection endpoint.
func (k *KongClient) list(ctx context.Context, endpoint string) ([]Record, error) {
	records := []Record{}
	opt := &listOpt{Size: k.pageSize}
	for {
		body, err := k.get(ctx, endpoint, opt)
		if err != nil {
			return nil, err
		}
		page, err := decodePage(body)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", endpoint, err)
		}
		records = append(records, page...)

		offset := gjson.GetBytes(body, "offset").String()
		if offset == "" || len(page) == 0 {
			return records, nil
		}
		opt.Offset = offset
	}
}

// decodePage extracts the data array of a list response. Gateways before 1.0
// encode an empty list as an empty object.
func decodePage(body []byte) ([]Record, error) {
	data := gjson.GetBytes(body, "data")
	if !data.IsArray() {
		return []Record{}, nil
	}
	page := []Record{}
	if err := json.Unmarshal([]byte(data.Raw), &page); err != nil {
		return nil, err
	}
	return page, nil
}

func (k *KongClient) FetchKongVersion(ctx context.Context) (string, error) {
	body, err := k.get(ctx, "/", nil)
	if err != nil {
		k.logger.WithError(err).Error("failed to read gateway information")
		return "", err
	}
	version := gjson.GetBytes(body, common.FieldVersion)
	if !version.Exists() {
		return "", fmt.Errorf("gateway information does not contain a version")
	}
	return version.String(), nil
}

// FetchApis lists the legacy apis. Gateways that removed the family answer
// with 404, which is read as an empty collection.
func (k *KongClient) FetchApis(ctx context.Context) ([]Record, error) {
	apis, err := k.list(ctx, k.path("/apis"))
	if klib.IsNotFoundErr(err) {
		k.logger.Debug("apis are not served by this gateway")
		return []Record{}, nil
	}
	return apis, err
}

func (k *KongClient) FetchPlugins(ctx context.Context, apiID string) ([]Record, error) {
	return k.list(ctx, k.path("/apis/%s/plugins", apiID))
}

func (k *KongClient) FetchGlobalPlugins(ctx context.Context) ([]Record, error) {
	return k.list(ctx, k.path("/plugins"))
}

func (k *KongClient) FetchConsumers(ctx context.Context) ([]Record, error) {
	return k.list(ctx, k.path("/consumers"))
}

func (k *KongClient) FetchConsumerCredentials(ctx context.Context, consumerID, credentialType string) ([]Record, error) {
	return k.list(ctx, k.path("/consumers/%s/%s", consumerID, credentialType))
}

func (k *KongClient) FetchConsumerAcls(ctx context.Context, consumerID string) ([]Record, error) {
	return k.list(ctx, k.path("/consumers/%s/acls", consumerID))
}

func (k *KongClient) FetchUpstreams(ctx context.Context) ([]Record, error) {
	return k.list(ctx, k.path("/upstreams"))
}

func (k *KongClient) FetchTargets(ctx context.Context, upstreamID string) ([]Record, error) {
	return k.list(ctx, k.path("/upstreams/%s/targets", upstreamID))
}

func (k *KongClient) FetchActiveTargets(ctx context.Context, upstreamID string) ([]Record, error) {
	return k.list(ctx, k.path("/upstreams/%s/targets/active", upstreamID))
}

func (k *KongClient) FetchCertificates(ctx context.Context) ([]Record, error) {
	return k.list(ctx, k.path("/certificates"))
}

func (k *KongClient) FetchServices(ctx context.Context) ([]Record, error) {
	return k.list(ctx, k.path("/services"))
}

func (k *KongClient) FetchRoutes(ctx context.Context) ([]Record, error) {
	return k.list(ctx, k.path("/routes"))
}

func (k *KongClient) FetchServicePlugins(ctx context.Context, serviceID string) ([]Record, error) {
	return k.list(ctx, k.path("/services/%s/plugins", serviceID))
}

// FetchPluginSchemas reads the schema of every enabled plugin, keyed by plugin name.
func (k *KongClient) FetchPluginSchemas(ctx context.Context) (map[string]Record, error) {
	body, err := k.get(ctx, k.path("/plugins/enabled"), nil)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, n := range gjson.GetBytes(body, "enabled_plugins").Array() {
		names = append(names, n.String())
	}

	schemas := make([]Record, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			raw, err := k.get(gctx, k.path("/plugins/schema/%s", name), nil)
			if err != nil {
				k.logger.WithField(common.AttrPluginName, name).WithError(err).Error("failed to read plugin schema")
				return err
			}
			schema := Record{}
			if err := json.Unmarshal(raw, &schema); err != nil {
				return fmt.Errorf("decoding schema of plugin %s: %w", name, err)
			}
			schemas[i] = schema
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := make(map[string]Record, len(names))
	for i, name := range names {
		result[name] = schemas[i]
	}
	return result, nil
}
