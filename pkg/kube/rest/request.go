// file: pkg/kube/rest/request.go

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"k8s.io/klog/v2"
)

// Request 允许以链式方式构建请求。
// 路径规则遵循 Kubernetes 的约定：
//
//	core group:  /api/{version}/namespaces/{ns}/{resource}/{name}
//	named group: /apis/{group}/{version}/namespaces/{ns}/{resource}/{name}
type Request struct {
	c         *RESTClient
	verb      string
	group     string
	version   string
	namespace string
	resource  string
	name      string
	body      interface{}
	err       error
	params    url.Values
}

func NewRequest(c *RESTClient) *Request {
	return &Request{
		c:       c,
		version: "v1",
	}
}

// Verb 指定 HTTP 方法 (e.g., "GET", "POST")。
func (r *Request) Verb(verb string) *Request {
	r.verb = verb
	return r
}

// Group 指定 API Group。空字符串表示 core group。
func (r *Request) Group(group string) *Request {
	if r.err != nil {
		return r
	}
	r.group = group
	return r
}

// Version 指定 API 版本，默认为 "v1"。
func (r *Request) Version(version string) *Request {
	if r.err != nil {
		return r
	}
	if version == "" {
		r.err = fmt.Errorf("api version may not be empty")
		return r
	}
	r.version = version
	return r
}

// Namespace 指定资源所属的命名空间。
func (r *Request) Namespace(namespace string) *Request {
	if r.err != nil {
		return r
	}
	r.namespace = namespace
	return r
}

// Resource 指定要操作的资源 (e.g., "previewenvironments")。
func (r *Request) Resource(resource string) *Request {
	if r.err != nil {
		return r
	}
	r.resource = resource
	return r
}

// Name 指定要操作的资源的具体名称。
func (r *Request) Name(name string) *Request {
	if r.err != nil {
		return r
	}
	if len(name) == 0 {
		r.err = fmt.Errorf("resource name may not be empty")
		return r
	}
	if len(r.name) != 0 {
		r.err = fmt.Errorf("resource name already set to %q, cannot change to %q", r.name, name)
		return r
	}
	r.name = name
	return r
}

// Body 设置请求体。传入的 obj 会被序列化为 JSON。
func (r *Request) Body(obj interface{}) *Request {
	if r.err != nil {
		return r
	}
	r.body = obj
	return r
}

// Param 向请求添加一个 URL Query 参数。
func (r *Request) Param(key, value string) *Request {
	if r.err != nil {
		return r
	}
	if r.params == nil {
		r.params = make(url.Values)
	}
	r.params.Add(key, value)
	return r
}

// buildURL 根据已设置的字段构建完整的请求 URL。
func (r *Request) buildURL() (*url.URL, error) {
	if r.resource == "" {
		return nil, fmt.Errorf("resource may not be empty")
	}

	var p string
	if r.group == "" {
		p = path.Join("/api", r.version)
	} else {
		p = path.Join("/apis", r.group, r.version)
	}
	if r.namespace != "" {
		p = path.Join(p, "namespaces", r.namespace)
	}
	p = path.Join(p, r.resource)
	if r.name != "" {
		p = path.Join(p, r.name)
	}

	fullURL := r.c.baseURL.ResolveReference(&url.URL{Path: p})
	if len(r.params) > 0 {
		fullURL.RawQuery = r.params.Encode()
	}
	return fullURL, nil
}

// newHTTPRequest 构建底层的 http.Request，包括 body 序列化和认证头。
func (r *Request) newHTTPRequest(ctx context.Context) (*http.Request, error) {
	fullURL, err := r.buildURL()
	if err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.verb, fullURL.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+r.c.bearerToken)
	}
	return req, nil
}

// Do 执行请求并返回一个 Result 对象。
func (r *Request) Do(ctx context.Context) *Result {
	if r.err != nil {
		return &Result{err: r.err}
	}

	req, err := r.newHTTPRequest(ctx)
	if err != nil {
		return &Result{err: err}
	}

	klog.V(6).Infof("%s %s", req.Method, req.URL)

	resp, err := r.c.httpClient.Do(req)
	if err != nil {
		// 传输层错误（连接被拒绝、超时等）。调用方按瞬时错误处理。
		return &Result{err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Result{err: fmt.Errorf("failed to read response body: %w", err)}
	}

	return newResult(r.verb, r.resource, r.name, resp.StatusCode, data)
}

// Watch 以流式方式执行请求，返回服务端持续写入的响应体。
// 它会自动追加 watch=true 参数。调用方负责关闭返回的 ReadCloser。
func (r *Request) Watch(ctx context.Context) (io.ReadCloser, error) {
	if r.err != nil {
		return nil, r.err
	}

	r.Param("watch", "true")
	req, err := r.newHTTPRequest(ctx)
	if err != nil {
		return nil, err
	}

	klog.V(6).Infof("%s %s (watch)", req.Method, req.URL)

	resp, err := r.c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("watch request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("watch rejected with status %d", resp.StatusCode)
		}
		return nil, newResult(r.verb, r.resource, r.name, resp.StatusCode, data).Error()
	}

	return resp.Body, nil
}
