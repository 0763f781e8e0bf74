package v1

import metav1 "github.com/fx147/preview-operator/pkg/apis/meta/v1"

// +genclient
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// PreviewEnvironment 代表一个预览环境，是平台上一个短生命周期部署的核心抽象。
// 控制器会为每一个 PreviewEnvironment 创建一组下游资源
// （Deployment + Service + Mapping），并在对象被删除时回收它们。
type PreviewEnvironment struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec PreviewEnvironmentSpec `json:"spec,omitempty"`
}

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// PreviewEnvironmentList 包含 PreviewEnvironment 的列表
type PreviewEnvironmentList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []PreviewEnvironment `json:"items"`
}

// PreviewEnvironmentSpec 定义了预览环境的期望状态
type PreviewEnvironmentSpec struct {
	// Image 是预览环境工作负载使用的容器镜像
	// +required
	Image string `json:"image"`

	// FQDN 是对外暴露预览环境时使用的完整域名
	// +required
	FQDN string `json:"fqdn"`
}

// Key 返回对象的唯一标识，形如 "namespace/name"。
// 没有命名空间的对象只返回 name。
func (pe *PreviewEnvironment) Key() string {
	if pe.Namespace == "" {
		return pe.Name
	}
	return pe.Namespace + "/" + pe.Name
}
