package clientset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	platformv1 "github.com/fx147/preview-operator/pkg/apis/platform/v1"
	"github.com/fx147/preview-operator/pkg/kube/rest"
)

type PreviewEnvironmentGetter interface {
	PreviewEnvironments(namespace string) PreviewEnvironmentInterface
}

// PreviewEnvironmentInterface 提供了 watch 核心需要的两个入站操作。
// List 返回全量对象和集合的 resourceVersion；Watch 从给定版本开始订阅变更。
type PreviewEnvironmentInterface interface {
	// List 列出命名空间下的所有 PreviewEnvironment。
	// 返回列表的 metadata.resourceVersion 可以作为 Watch 的起点。
	List(ctx context.Context) (*platformv1.PreviewEnvironmentList, error)

	// Watch 从 fromVersion 开始订阅变更。fromVersion 为空表示从当前状态开始。
	// 返回的流由调用方负责关闭。
	Watch(ctx context.Context, fromVersion string) (*WatchStream, error)
}

type previewEnvironmentClient struct {
	restClient rest.Interface
	namespace  string
}

func newPreviewEnvironments(restClient rest.Interface, namespace string) *previewEnvironmentClient {
	return &previewEnvironmentClient{restClient: restClient, namespace: namespace}
}

func (c *previewEnvironmentClient) List(ctx context.Context) (*platformv1.PreviewEnvironmentList, error) {
	result := &platformv1.PreviewEnvironmentList{}

	err := c.restClient.Get().
		Group(platformv1.GroupName).
		Version(platformv1.SchemeGroupVersion.Version).
		Namespace(c.namespace).
		Resource(platformv1.Resource).
		Do(ctx).
		Into(result)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (c *previewEnvironmentClient) Watch(ctx context.Context, fromVersion string) (*WatchStream, error) {
	req := c.restClient.Get().
		Group(platformv1.GroupName).
		Version(platformv1.SchemeGroupVersion.Version).
		Namespace(c.namespace).
		Resource(platformv1.Resource)

	if fromVersion != "" {
		req = req.Param("resourceVersion", fromVersion)
	}

	body, err := req.Watch(ctx)
	if err != nil {
		return nil, err
	}

	return NewWatchStream(body), nil
}

// WatchFrame 是 watch 流中的一帧，对应服务端发送的一行 JSON。
// Object 保持原始字节，由上层按 Type 决定解码成对象还是 Status。
type WatchFrame struct {
	Type   string          `json:"type"`
	Object json.RawMessage `json:"object"`
}

// WatchStream 在 HTTP 响应体上逐帧解码 watch 事件。
type WatchStream struct {
	body    io.ReadCloser
	decoder *json.Decoder
}

// NewWatchStream 在任意 ReadCloser 上构建事件流。
// 正常路径由 Watch 调用；测试可以用它注入预先编码好的帧序列。
func NewWatchStream(body io.ReadCloser) *WatchStream {
	return &WatchStream{
		body:    body,
		decoder: json.NewDecoder(body),
	}
}

// Next 阻塞读取下一帧。服务端关闭连接时返回 io.EOF。
func (s *WatchStream) Next() (*WatchFrame, error) {
	frame := &WatchFrame{}
	if err := s.decoder.Decode(frame); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to decode watch frame: %w", err)
	}
	return frame, nil
}

// Close 关闭底层连接。之后的 Next 调用会返回错误。
func (s *WatchStream) Close() error {
	return s.body.Close()
}
