package clientset

import (
	"net/http"

	"github.com/fx147/preview-operator/pkg/kube/rest"
)

type Interface interface {
	RESTClient() rest.Interface
	PreviewEnvironmentGetter
	DeploymentGetter
	ServiceGetter
	MappingGetter
}

type Clientset struct {
	restClient *rest.RESTClient
}

// 编译时检查
var _ Interface = &Clientset{}

// NewClientset 创建一个新的 Clientset 实例，用于与 API Server 交互。
// token 可以为空；httpClient 为 nil 时使用 http.DefaultClient。
func NewClientset(baseURL, token string, httpClient *http.Client) (*Clientset, error) {
	restClient, err := rest.NewRESTClient(baseURL, token, httpClient)
	if err != nil {
		return nil, err
	}

	return &Clientset{
		restClient: restClient,
	}, nil
}

// RESTClient 返回底层的 REST 客户端
func (c *Clientset) RESTClient() rest.Interface {
	return c.restClient
}

// PreviewEnvironments 返回 PreviewEnvironmentInterface，用于操作指定命名空间下的 PreviewEnvironment 资源
func (c *Clientset) PreviewEnvironments(namespace string) PreviewEnvironmentInterface {
	return newPreviewEnvironments(c.restClient, namespace)
}

// Deployments 返回 DeploymentInterface，用于操作指定命名空间下的 Deployment 资源
func (c *Clientset) Deployments(namespace string) DeploymentInterface {
	return newDeployments(c.restClient, namespace)
}

// Services 返回 ServiceInterface，用于操作指定命名空间下的 Service 资源
func (c *Clientset) Services(namespace string) ServiceInterface {
	return newServices(c.restClient, namespace)
}

// Mappings 返回 MappingInterface，用于操作指定命名空间下的 Mapping 资源
func (c *Clientset) Mappings(namespace string) MappingInterface {
	return newMappings(c.restClient, namespace)
}
