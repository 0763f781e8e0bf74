package v1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

// 描述了资源的类型
type TypeMeta struct {
	// 此对象所表示的REST资源
	// +required
	Kind string `json:"kind,omitempty"`

	// 定义了此对象表示的版本，例如"platform9.com/v1"
	// +required
	APIVersion string `json:"apiVersion,omitempty"`
}

// 描述一个资源实例所需要的元数据
type ObjectMeta struct {
	// 用户通过yaml文件创建资源实例时指定的名称
	// +required
	Name string `json:"name"`

	// 资源所属的命名空间
	// +optional
	Namespace string `json:"namespace,omitempty"`

	// 资源实例的唯一标识符，由API Server自动生成
	// +readonly
	UID string `json:"uid,omitempty"`

	// 用于筛选和选择对象的标签键值对
	// +optional
	Labels map[string]string `json:"labels,omitempty"`

	// 用于附加任意非标识性元数据的键值对
	// +optional
	Annotations map[string]string `json:"annotations,omitempty"`

	// 内部版本号，用于实现乐观并发控制和 watch 续传。
	// 这是一个不透明的令牌，对同一个对象它单调递增。
	// +readonly
	ResourceVersion string `json:"resourceVersion,omitempty"`

	// 创建时间
	// +readonly
	CreationTimestamp metav1.Time `json:"creationTimestamp,omitempty"`
	// 删除时间，如果不为nil，表示对象正在被删除
	// +readonly
	DeletionTimestamp *metav1.Time `json:"deletionTimestamp,omitempty"`
}

// ListMeta 包含了列表（集合）资源所需的元数据。
type ListMeta struct {
	// ResourceVersion 是一个字符串，表示此列表所代表的资源集合的版本。
	// 客户端可以用它来发起 watch 请求。
	// +optional
	ResourceVersion string `json:"resourceVersion,omitempty"`

	// Continue 是一个不透明的令牌，用于从服务器获取下一页的结果。
	// +optional
	Continue string `json:"continue,omitempty"`
}

// GetObjectKind 返回一个指向该对象类型信息的指针。
// 因为 *TypeMeta 实现了 schema.ObjectKind 接口，所以可以直接返回自身。
func (t *TypeMeta) GetObjectKind() schema.ObjectKind {
	return t
}

// SetGroupVersionKind 为对象设置 GroupVersionKind 信息。
// 这是实现 schema.ObjectKind 接口所必需的方法。
func (t *TypeMeta) SetGroupVersionKind(gvk schema.GroupVersionKind) {
	t.APIVersion, t.Kind = gvk.ToAPIVersionAndKind()
}

// GroupVersionKind 返回对象的 GroupVersionKind。
// 如果 APIVersion 或 Kind 为空，它可能返回不完整的 GVK。
// 这也是实现 schema.ObjectKind 接口所必需的方法。
func (t *TypeMeta) GroupVersionKind() schema.GroupVersionKind {
	return schema.FromAPIVersionAndKind(t.APIVersion, t.Kind)
}
