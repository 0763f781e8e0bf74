package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*RESTClient, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewRESTClient(server.URL, "test-token", nil)
	require.NoError(t, err)
	return client, server
}

func writeStatusError(w http.ResponseWriter, code int, reason metav1.StatusReason, message string) {
	status := metav1.Status{
		TypeMeta: metav1.TypeMeta{Kind: "Status", APIVersion: "v1"},
		Status:   metav1.StatusFailure,
		Code:     int32(code),
		Reason:   reason,
		Message:  message,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

func TestRequest_BuildsGroupPaths(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	})

	err := client.Get().
		Group("platform9.com").
		Version("v1").
		Namespace("default").
		Resource("previewenvironments").
		Name("pe-1").
		Param("resourceVersion", "42").
		Do(context.Background()).
		Into(&struct{}{})
	require.NoError(t, err)

	assert.Equal(t, "/apis/platform9.com/v1/namespaces/default/previewenvironments/pe-1", gotPath)
	assert.Equal(t, "resourceVersion=42", gotQuery)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

// core group 的路径前缀是 /api 而不是 /apis
func TestRequest_BuildsCorePaths(t *testing.T) {
	var gotPath string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{}`))
	})

	err := client.Get().
		Namespace("default").
		Resource("services").
		Do(context.Background()).
		Into(&struct{}{})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/namespaces/default/services", gotPath)
}

func TestRequest_DecodesStatusErrors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeStatusError(w, http.StatusNotFound, metav1.StatusReasonNotFound, "not found")
		case http.MethodPost:
			writeStatusError(w, http.StatusConflict, metav1.StatusReasonAlreadyExists, "already exists")
		}
	})

	err := client.Get().
		Resource("services").
		Name("missing").
		Do(context.Background()).
		Error()
	assert.True(t, apierrors.IsNotFound(err), "expected NotFound, got: %v", err)

	err = client.Post().
		Resource("services").
		Body(map[string]string{}).
		Do(context.Background()).
		Error()
	assert.True(t, apierrors.IsAlreadyExists(err), "expected AlreadyExists, got: %v", err)
}

// 非 Status 的错误响应体（例如中间代理产生的）退化为通用错误，但仍然可判断
func TestRequest_NonStatusErrorBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
	})

	err := client.Get().
		Resource("services").
		Do(context.Background()).
		Error()
	require.Error(t, err)
	assert.True(t, apierrors.IsServiceUnavailable(err), "expected ServiceUnavailable, got: %v", err)
}

func TestRequest_Watch(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("watch"))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"type":"ADDED","object":{"metadata":{"name":"pe-1"}}}`+"\n")
		io.WriteString(w, `{"type":"MODIFIED","object":{"metadata":{"name":"pe-1"}}}`+"\n")
	})

	body, err := client.Get().
		Group("platform9.com").
		Resource("previewenvironments").
		Watch(context.Background())
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"ADDED"`)
	assert.Contains(t, string(data), `"type":"MODIFIED"`)
}

func TestRequest_WatchRejected(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeStatusError(w, http.StatusGone, metav1.StatusReasonExpired, "too old resource version")
	})

	_, err := client.Get().
		Group("platform9.com").
		Resource("previewenvironments").
		Param("resourceVersion", "1").
		Watch(context.Background())
	require.Error(t, err)
	assert.True(t, apierrors.IsResourceExpired(err), "expected ResourceExpired, got: %v", err)
}

func TestRequest_ValidatesInput(t *testing.T) {
	client, err := NewRESTClient("http://localhost:0", "", nil)
	require.NoError(t, err)

	// 空的资源名在构建阶段就报错，不会发请求
	err = client.Get().Resource("services").Name("").Do(context.Background()).Error()
	assert.Error(t, err)

	// 缺少 resource 同样报错
	err = client.Get().Do(context.Background()).Error()
	assert.Error(t, err)
}
