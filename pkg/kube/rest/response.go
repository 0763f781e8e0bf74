package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// Result 持有一次请求的响应体或错误，由 Request.Do 返回。
type Result struct {
	body       []byte
	statusCode int
	err        error
}

// newResult 根据 HTTP 状态码对响应分类。
// 非 2xx 的响应会被解码成结构化的 Status 错误，
// 这样上层就可以使用 apimachinery 的 IsNotFound / IsAlreadyExists /
// IsResourceExpired 等判断函数，而不用自己比对状态码。
func newResult(verb, resource, name string, statusCode int, body []byte) *Result {
	result := &Result{
		body:       body,
		statusCode: statusCode,
	}

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return result
	}

	// API Server 的错误响应体应该是一个 metav1.Status。
	var status metav1.Status
	if err := json.Unmarshal(body, &status); err == nil && status.Kind == "Status" {
		result.err = &apierrors.StatusError{ErrStatus: status}
		return result
	}

	// 响应体不是标准的 Status（例如来自中间代理）。
	// 退化为按状态码构造的通用错误，保持 reason 可判断。
	result.err = apierrors.NewGenericServerResponse(
		statusCode, verb, schema.GroupResource{Resource: resource}, name,
		string(body), 0, true)
	return result
}

// Error 返回请求执行或响应解码过程中产生的错误。
func (r *Result) Error() error {
	return r.err
}

// Into 将响应体反序列化到 obj 中。
// 如果请求已经出错，直接返回该错误，不触碰 obj。
func (r *Result) Into(obj interface{}) error {
	if r.err != nil {
		return r.err
	}
	if len(r.body) == 0 {
		return fmt.Errorf("empty response body (status %d)", r.statusCode)
	}
	if err := json.Unmarshal(r.body, obj); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
