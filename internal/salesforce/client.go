package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopmonkeyus/go-common/logger"
	"github.com/shopmonkeyus/mds/internal/util"
)

// DefaultAPIVersion is the REST API version used when none is configured.
const DefaultAPIVersion = "v59.0"

// Client is the remote API surface the sync pipeline consumes.
type Client interface {
	// DescribeGlobal returns the full object catalog.
	DescribeGlobal(ctx context.Context) ([]SObject, error)

	// DescribeSObject returns the detailed per-field catalog for one object.
	DescribeSObject(ctx context.Context, name string) (*SObjectDetail, error)

	// Query runs a SOQL query against the data API, following pagination.
	Query(ctx context.Context, soql string) ([]Record, error)

	// ToolingQuery runs a SOQL query against the tooling API, following pagination.
	ToolingQuery(ctx context.Context, soql string) ([]Record, error)

	// FlowVersionMetadata fetches the raw flow definition XML for a flow version.
	FlowVersionMetadata(ctx context.Context, versionID string) (string, error)
}

// HTTPClientConfig is the configuration for the HTTP API client.
type HTTPClientConfig struct {
	InstanceURL string
	AccessToken string
	APIVersion  string
	Logger      logger.Logger
}

// HTTPClient is the REST implementation of Client.
type HTTPClient struct {
	instanceURL string
	accessToken string
	apiVersion  string
	logger      logger.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a new API client for an authenticated session.
func NewHTTPClient(config HTTPClientConfig) *HTTPClient {
	version := config.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	return &HTTPClient{
		instanceURL: strings.TrimSuffix(config.InstanceURL, "/"),
		accessToken: config.AccessToken,
		apiVersion:  version,
		logger:      config.Logger.WithPrefix("[api]"),
	}
}

type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

func (c *HTTPClient) get(ctx context.Context, path string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.instanceURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", accept)
	retry := util.NewHTTPRetry(req, util.WithLogger(c.logger))
	resp, err := retry.Do()
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErrors []apiError
		if err := json.Unmarshal(buf, &apiErrors); err == nil && len(apiErrors) > 0 {
			return nil, fmt.Errorf("api error (%s): %s", apiErrors[0].ErrorCode, apiErrors[0].Message)
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(buf))
	}
	return buf, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	buf, err := c.get(ctx, path, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}

func (c *HTTPClient) dataPath(suffix string) string {
	return "/services/data/" + c.apiVersion + suffix
}

type describeGlobalResponse struct {
	SObjects []SObject `json:"sobjects"`
}

// DescribeGlobal returns the full object catalog.
func (c *HTTPClient) DescribeGlobal(ctx context.Context) ([]SObject, error) {
	var res describeGlobalResponse
	if err := c.getJSON(ctx, c.dataPath("/sobjects"), &res); err != nil {
		return nil, fmt.Errorf("describe global: %w", err)
	}
	c.logger.Trace("describe global returned %d objects", len(res.SObjects))
	return res.SObjects, nil
}

// DescribeSObject returns the detailed per-field catalog for one object.
func (c *HTTPClient) DescribeSObject(ctx context.Context, name string) (*SObjectDetail, error) {
	var res SObjectDetail
	if err := c.getJSON(ctx, c.dataPath("/sobjects/"+url.PathEscape(name)+"/describe"), &res); err != nil {
		return nil, fmt.Errorf("describe %s: %w", name, err)
	}
	return &res, nil
}

type queryResponse struct {
	TotalSize      int      `json:"totalSize"`
	Done           bool     `json:"done"`
	NextRecordsURL string   `json:"nextRecordsUrl"`
	Records        []Record `json:"records"`
}

func (c *HTTPClient) query(ctx context.Context, path string, soql string) ([]Record, error) {
	records := make([]Record, 0)
	next := path + "?q=" + url.QueryEscape(soql)
	for {
		var res queryResponse
		if err := c.getJSON(ctx, next, &res); err != nil {
			return nil, err
		}
		records = append(records, res.Records...)
		if res.Done || res.NextRecordsURL == "" {
			break
		}
		next = res.NextRecordsURL
	}
	return records, nil
}

// Query runs a SOQL query against the data API, following pagination.
func (c *HTTPClient) Query(ctx context.Context, soql string) ([]Record, error) {
	records, err := c.query(ctx, c.dataPath("/query"), soql)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return records, nil
}

// ToolingQuery runs a SOQL query against the tooling API, following pagination.
func (c *HTTPClient) ToolingQuery(ctx context.Context, soql string) ([]Record, error) {
	records, err := c.query(ctx, c.dataPath("/tooling/query"), soql)
	if err != nil {
		return nil, fmt.Errorf("tooling query: %w", err)
	}
	return records, nil
}

// FlowVersionMetadata fetches the raw flow definition XML for a flow version.
func (c *HTTPClient) FlowVersionMetadata(ctx context.Context, versionID string) (string, error) {
	buf, err := c.get(ctx, c.dataPath("/tooling/sobjects/Flow/"+url.PathEscape(versionID)+"/Metadata"), "application/xml")
	if err != nil {
		return "", fmt.Errorf("flow metadata %s: %w", versionID, err)
	}
	return string(buf), nil
}
