package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Axway/agent-sdk/pkg/cmd/properties"
	corecfg "github.com/Axway/agent-sdk/pkg/config"
	"github.com/Axway/agent-sdk/pkg/util/log"
)

type props interface {
	AddStringProperty(name string, defaultVal string, description string)
	AddStringSliceProperty(name string, defaultVal []string, description string)
	AddIntProperty(name string, defaultVal int, description string, options ...properties.IntOpt)
	AddBoolProperty(name string, defaultVal bool, description string)
	StringPropertyValue(name string) string
	StringSlicePropertyValue(name string) []string
	IntPropertyValue(name string) int
	BoolPropertyValue(name string) bool
}

// Methods for adding yaml properties and command flag

const (
	cfgKongAdminUrl                   = "kong.admin.url"
	cfgKongAdminAPIKey                = "kong.admin.auth.apiKey.value"
	cfgKongAdminAPIKeyHeader          = "kong.admin.auth.apiKey.header"
	cfgKongAdminBasicUsername         = "kong.admin.auth.basicauth.username"
	cfgKongAdminBasicPassword         = "kong.admin.auth.basicauth.password"
	cfgKongAdminSSLNextProto          = "kong.admin.ssl.nextProtos"
	cfgKongAdminSSLInsecureSkipVerify = "kong.admin.ssl.insecureSkipVerify"
	cfgKongAdminSSLCipherSuites       = "kong.admin.ssl.cipherSuites"
	cfgKongAdminSSLMinVersion         = "kong.admin.ssl.minVersion"
	cfgKongAdminSSLMaxVersion         = "kong.admin.ssl.maxVersion"
	cfgKongAdminPageSize              = "kong.admin.pageSize"
	cfgKongWorkspace                  = "kong.workspace"
	cfgStateDesiredStatePath          = "state.desiredStatePath"
	cfgStateOutput                    = "state.output"
	cfgStatePluginSchemas             = "state.pluginSchemas"
)

// output formats of the canonical snapshot
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
)

func AddKongProperties(rootProps props) {
	rootProps.AddStringProperty(cfgKongAdminUrl, "http://localhost:8001", "The Admin API url")
	rootProps.AddStringProperty(cfgKongAdminAPIKey, "", "API Key value to authenticate with Kong Gateway")
	rootProps.AddStringProperty(cfgKongAdminAPIKeyHeader, "apikey", "API Key header to authenticate with Kong Gateway")
	rootProps.AddStringProperty(cfgKongAdminBasicUsername, "", "Username for basic auth to authenticate with Kong Admin API")
	rootProps.AddStringProperty(cfgKongAdminBasicPassword, "", "Password for basic auth to authenticate with Kong Admin API")
	rootProps.AddStringSliceProperty(cfgKongAdminSSLNextProto, []string{}, "List of supported application level protocols, comma separated")
	rootProps.AddBoolProperty(cfgKongAdminSSLInsecureSkipVerify, false, "Controls whether a client verifies the server's certificate chain and host name")
	rootProps.AddStringSliceProperty(cfgKongAdminSSLCipherSuites, corecfg.TLSDefaultCipherSuitesStringSlice(), "List of supported cipher suites, comma separated")
	rootProps.AddStringProperty(cfgKongAdminSSLMinVersion, corecfg.TLSDefaultMinVersionString(), "Minimum acceptable SSL/TLS protocol version")
	rootProps.AddStringProperty(cfgKongAdminSSLMaxVersion, "0", "Maximum acceptable SSL/TLS protocol version")
	rootProps.AddIntProperty(cfgKongAdminPageSize, 100, "Number of entities requested per page from the Admin API")
	rootProps.AddStringProperty(cfgKongWorkspace, "", "Workspace to read, uses default if not provided")
	rootProps.AddStringProperty(cfgStateDesiredStatePath, "", "Path to a desired state document used to name routes")
	rootProps.AddStringProperty(cfgStateOutput, OutputJSON, "Output format of the snapshot, json or yaml")
	rootProps.AddBoolProperty(cfgStatePluginSchemas, false, "Print the schemas of the enabled plugins instead of the snapshot")
}

// KongStateConfig - represents the config for reading the gateway state
type KongStateConfig struct {
	Admin KongAdminConfig `config:"admin"`
	State StateConfig     `config:"state"`
}

type KongAdminConfig struct {
	URL       string              `config:"url"`
	Workspace string              `config:"workspace"`
	PageSize  int                 `config:"pageSize"`
	Auth      KongAdminAuthConfig `config:"auth"`
	TLS       corecfg.TLSConfig   `config:"ssl"`
}

type KongAdminAuthConfig struct {
	APIKey    KongAdminAuthAPIKeyConfig `config:"apiKey"`
	BasicAuth KongAdminBasicAuthConfig  `config:"basicAuth"`
}

type KongAdminBasicAuthConfig struct {
	Username string `config:"username"`
	Password string `config:"password"`
}

type KongAdminAuthAPIKeyConfig struct {
	Header string `config:"header"`
	Value  string `config:"value"`
}

type StateConfig struct {
	DesiredStatePath string `config:"desiredStatePath"`
	Output           string `config:"output"`
	PluginSchemas    bool   `config:"pluginSchemas"`
}

const (
	invalidUrlErr = "invalid Admin API url provided. Must contain protocol, hostname and optionally port." +
		"Examples: <http://kong.com:8001>, <https://kong.com:8444>"
	credentialConfigErr = "invalid authorization configuration provided. " +
		"If provided, (Username and Password) must be non-empty"
	apiKeyHeaderErr = "an API Key header is required when an API Key value is provided"
	bothAuthErr     = "only one of API Key or basic auth can be configured"
	pageSizeErr     = "the page size must be greater than zero"
	outputErr       = "the output format must be one of json or yaml"
)

// ValidateCfg - Validates the config
func (c *KongStateConfig) ValidateCfg() error {
	if err := c.Admin.validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.State.Output) {
	case OutputJSON, OutputYAML:
	default:
		return errors.New(outputErr)
	}
	return nil
}

func (a *KongAdminConfig) validate() error {
	logger := log.NewFieldLogger().WithPackage("config").WithComponent("ValidateConfig")
	if u, err := url.Parse(a.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New(invalidUrlErr)
	}
	if a.PageSize <= 0 {
		return errors.New(pageSizeErr)
	}

	apiKey, basic := a.Auth.APIKey, a.Auth.BasicAuth
	switch {
	case apiKey.Value == "" && basic.Username == "" && basic.Password == "":
		logger.Warn("No credentials provided. Assuming Kong Admin API requires no authorization.")
	case (basic.Username == "") != (basic.Password == ""):
		return errors.New(credentialConfigErr)
	case apiKey.Value != "" && apiKey.Header == "":
		return errors.New(apiKeyHeaderErr)
	case apiKey.Value != "" && basic.Username != "":
		return errors.New(bothAuthErr)
	}

	if tlsValidate, validator := a.TLS.(corecfg.IConfigValidator); validator {
		if err := tlsValidate.ValidateCfg(); err != nil {
			return fmt.Errorf("kong.admin.%s", err.Error())
		}
	}
	return nil
}

func ParseProperties(rootProps props) *KongStateConfig {
	// Parse the config from bound properties and setup the admin config
	return &KongStateConfig{
		Admin: KongAdminConfig{
			URL:       rootProps.StringPropertyValue(cfgKongAdminUrl),
			Workspace: rootProps.StringPropertyValue(cfgKongWorkspace),
			PageSize:  rootProps.IntPropertyValue(cfgKongAdminPageSize),
			Auth: KongAdminAuthConfig{
				APIKey: KongAdminAuthAPIKeyConfig{
					Value:  rootProps.StringPropertyValue(cfgKongAdminAPIKey),
					Header: rootProps.StringPropertyValue(cfgKongAdminAPIKeyHeader),
				},
				BasicAuth: KongAdminBasicAuthConfig{
					Username: rootProps.StringPropertyValue(cfgKongAdminBasicUsername),
					Password: rootProps.StringPropertyValue(cfgKongAdminBasicPassword),
				},
			},
			TLS: &corecfg.TLSConfiguration{
				NextProtos:         rootProps.StringSlicePropertyValue(cfgKongAdminSSLNextProto),
				InsecureSkipVerify: rootProps.BoolPropertyValue(cfgKongAdminSSLInsecureSkipVerify),
				CipherSuites:       corecfg.NewCipherArray(rootProps.StringSlicePropertyValue(cfgKongAdminSSLCipherSuites)),
				MinVersion:         corecfg.TLSVersionAsValue(rootProps.StringPropertyValue(cfgKongAdminSSLMinVersion)),
				MaxVersion:         corecfg.TLSVersionAsValue(rootProps.StringPropertyValue(cfgKongAdminSSLMaxVersion)),
			},
		},
		State: StateConfig{
			DesiredStatePath: rootProps.StringPropertyValue(cfgStateDesiredStatePath),
			Output:           strings.ToLower(rootProps.StringPropertyValue(cfgStateOutput)),
			PluginSchemas:    rootProps.BoolPropertyValue(cfgStatePluginSchemas),
		},
	}
}
