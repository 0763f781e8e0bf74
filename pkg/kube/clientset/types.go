package clientset

import metav1 "github.com/fx147/preview-operator/pkg/apis/meta/v1"

// 本文件定义了控制器需要创建的下游资源的清单结构。
// 这些不是完整的 Kubernetes API 类型，只包含我们会填充的字段，
// 序列化结果与 API Server 期望的 JSON 保持一致。

// Deployment 是 apps/v1 Deployment 的最小清单。
type Deployment struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec DeploymentSpec `json:"spec,omitempty"`
}

type DeploymentSpec struct {
	// Replicas 是期望的副本数
	// +optional
	Replicas *int32 `json:"replicas,omitempty"`

	// Selector 决定哪些 Pod 属于该 Deployment
	// +required
	Selector LabelSelector `json:"selector"`

	// Template 是创建新 Pod 的模版
	// +required
	Template PodTemplateSpec `json:"template"`
}

type LabelSelector struct {
	MatchLabels map[string]string `json:"matchLabels,omitempty"`
}

type PodTemplateSpec struct {
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec PodSpec `json:"spec,omitempty"`
}

type PodSpec struct {
	Containers []Container `json:"containers"`
}

type Container struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Service 是 core/v1 Service 的最小清单。
type Service struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ServiceSpec `json:"spec,omitempty"`
}

type ServiceSpec struct {
	// Selector 决定流量转发到哪些 Pod
	Selector map[string]string `json:"selector,omitempty"`

	// Ports 是服务暴露的端口列表
	Ports []ServicePort `json:"ports,omitempty"`
}

type ServicePort struct {
	Protocol string `json:"protocol,omitempty"`
	Port     int32  `json:"port"`
}

// Mapping 是 getambassador.io/v2 Mapping 的最小清单，
// 用于把外部域名路由到预览环境的 Service。
type Mapping struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec MappingSpec `json:"spec,omitempty"`
}

type MappingSpec struct {
	// Host 是外部访问使用的域名
	Host string `json:"host"`

	// Service 是流量的目标服务名
	Service string `json:"service"`

	// Prefix 是路由匹配的路径前缀
	Prefix string `json:"prefix"`
}
