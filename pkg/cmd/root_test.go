package cmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"

	"github.com/edpaget/kongfig/pkg/config"
)

var gatewayResponses = map[string]string{
	"/":                      `{"version":"0.13.0","hostname":"kong"}`,
	"/services":              `{"data":[{"id":"svc1","name":"shop","host":"shop.internal","port":80,"protocol":"http"}]}`,
	"/services/svc1/plugins": `{"data":[]}`,
	"/routes":                `{"data":[{"id":"r1","paths":["/checkout"],"service":{"id":"svc1"}}]}`,
	"/consumers":             `{"data":[]}`,
	"/plugins":               `{"data":[]}`,
	"/upstreams":             `{"data":{}}`,
	"/certificates":          `{"data":[]}`,
	"/plugins/enabled":       `{"enabled_plugins":["cors"]}`,
	"/plugins/schema/cors":   `{"fields":{"origins":{"type":"array"}}}`,
}

func gatewayServer(t *testing.T) string {
	s := httptest.NewServer(http.HandlerFunc(func(resp http.ResponseWriter, req *http.Request) {
		body, found := gatewayResponses[req.URL.Path]
		if !found {
			resp.WriteHeader(http.StatusNotFound)
			resp.Write([]byte(`{"message":"Not found"}`))
			return
		}
		resp.Header().Set("Content-Type", "application/json")
		resp.Write([]byte(body))
	}))
	t.Cleanup(s.Close)
	return s.URL
}

func testConfig(t *testing.T) *config.KongStateConfig {
	return &config.KongStateConfig{
		Admin: config.KongAdminConfig{URL: gatewayServer(t), PageSize: 100},
		State: config.StateConfig{Output: config.OutputJSON},
	}
}

func TestRunWritesSnapshot(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "kong.yml")
	require.Nil(t, os.WriteFile(path, []byte("services:\n  - name: shop\n    routes:\n      - id: r1\n        name: checkout\n"), 0600))
	cfg.State.DesiredStatePath = path

	out := &bytes.Buffer{}
	err := run(context.TODO(), cfg, out)
	require.Nil(t, err)

	body := gjson.ParseBytes(out.Bytes())
	assert.Equal(t, "0.13.0", body.Get("_info.version").String())
	assert.Equal(t, `[]`, body.Get("apis").Raw)
	assert.Equal(t, "checkout", body.Get("services.0.routes.0.name").String())
	assert.Equal(t, `[]`, body.Get("upstreams").Raw)
	assert.Equal(t, `[]`, body.Get("certificates").Raw)
}

func TestRunWritesYAML(t *testing.T) {
	cfg := testConfig(t)
	cfg.State.Output = config.OutputYAML

	out := &bytes.Buffer{}
	require.Nil(t, run(context.TODO(), cfg, out))

	snapshot := map[string]interface{}{}
	require.Nil(t, yaml.Unmarshal(out.Bytes(), &snapshot))
	assert.Contains(t, snapshot, "_info")
	assert.Contains(t, snapshot, "services")
}

func TestRunWritesPluginSchemas(t *testing.T) {
	cfg := testConfig(t)
	cfg.State.PluginSchemas = true

	out := &bytes.Buffer{}
	require.Nil(t, run(context.TODO(), cfg, out))
	assert.Equal(t, "array", gjson.GetBytes(out.Bytes(), "cors.fields.origins.type").String())
}

func TestRunFailures(t *testing.T) {
	cfg := testConfig(t)
	cfg.State.DesiredStatePath = filepath.Join(t.TempDir(), "missing.yml")
	err := run(context.TODO(), cfg, &bytes.Buffer{})
	assert.NotNil(t, err)

	cfg = testConfig(t)
	cfg.Admin.URL = cfg.Admin.URL + "/unknown"
	out := &bytes.Buffer{}
	err = run(context.TODO(), cfg, out)
	assert.NotNil(t, err)
	assert.Equal(t, 0, out.Len())
}
