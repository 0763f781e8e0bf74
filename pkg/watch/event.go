// file: pkg/watch/event.go

package watch

import (
	"fmt"
	"strings"

	platformv1 "github.com/fx147/preview-operator/pkg/apis/platform/v1"
)

// EventType 定义了事件的类型
type EventType string

const (
	Added    EventType = "ADDED"
	Modified EventType = "MODIFIED"
	Deleted  EventType = "DELETED"
	Error    EventType = "ERROR"
)

// Event 是一个描述 API 对象变更的事件。
// Added/Modified/Deleted 携带对象快照；Error 只携带 Err。
type Event struct {
	Type EventType
	// Key 是对象的唯一标识，例如 "default/pe-1"
	Key string
	// ResourceVersion 是变更后对象的 resourceVersion
	ResourceVersion string
	// Object 是事件关联的对象。对 Deleted 事件它可能是一个
	// 只包含元数据的 tombstone（resync 合成的删除事件没有完整对象）。
	Object *platformv1.PreviewEnvironment
	// Err 仅在 Type == Error 时有值
	Err *StreamError
}

// StreamError 是 watch 流上的结构化错误。
// Terminal 为 true 表示当前流已不可用，adapter 必须重建 watch。
type StreamError struct {
	Reason   string
	Message  string
	Terminal bool
}

func (e *StreamError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("watch stream error (%s): %s", e.Reason, e.Message)
	}
	return fmt.Sprintf("watch stream error: %s", e.Message)
}

// SplitKey 把 "namespace/name" 形式的 key 拆开。没有分隔符时视为集群级对象。
func SplitKey(key string) (namespace, name string) {
	if idx := strings.IndexByte(key, '/'); idx >= 0 {
		return key[:idx], key[idx+1:]
	}
	return "", key
}
