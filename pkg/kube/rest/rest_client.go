package rest

import (
	"fmt"
	"net/http"
	"net/url"
)

type Interface interface {
	Verb(verb string) *Request
	Get() *Request
	Put() *Request
	Post() *Request
	Delete() *Request
}

// RESTClient 是与 Kubernetes 风格 API Server 交互的客户端。
// 它只负责构建和执行 HTTP 请求，资源语义由上层的 clientset 提供。
type RESTClient struct {
	baseURL     *url.URL
	httpClient  *http.Client
	bearerToken string
}

// NewRESTClient 创建一个新的客户端实例。
// baseURL 形如 "https://10.0.0.1:6443"；token 可以为空（例如本地代理场景）。
func NewRESTClient(baseURL, token string, httpClient *http.Client) (*RESTClient, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("base url %q must include scheme and host", baseURL)
	}

	return &RESTClient{
		baseURL:     parsed,
		httpClient:  httpClient,
		bearerToken: token,
	}, nil
}

func (c *RESTClient) Verb(verb string) *Request {
	return NewRequest(c).Verb(verb)
}

// Post begins a POST request. Short for c.Verb("POST").
func (c *RESTClient) Post() *Request {
	return c.Verb("POST")
}

// Put begins a PUT request. Short for c.Verb("PUT").
func (c *RESTClient) Put() *Request {
	return c.Verb("PUT")
}

// Get begins a GET request. Short for c.Verb("GET").
func (c *RESTClient) Get() *Request {
	return c.Verb("GET")
}

// Delete begins a DELETE request. Short for c.Verb("DELETE").
func (c *RESTClient) Delete() *Request {
	return c.Verb("DELETE")
}
