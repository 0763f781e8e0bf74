package clientset

import (
	"context"

	"github.com/fx147/preview-operator/pkg/kube/rest"
)

type ServiceGetter interface {
	Services(namespace string) ServiceInterface
}

// ServiceInterface 提供了操作 Service 资源的方法。
type ServiceInterface interface {
	// Apply 创建 Service；如果已存在，则用新的清单覆盖它。
	Apply(ctx context.Context, service *Service) error

	// Delete 删除指定名称的 Service。对象不存在时返回 nil。
	Delete(ctx context.Context, name string) error
}

// Service 属于 core group，路径前缀是 /api 而不是 /apis。
var serviceRef = resourceRef{group: "", version: "v1", resource: "services"}

type serviceClient struct {
	restClient rest.Interface
	namespace  string
}

func newServices(restClient rest.Interface, namespace string) *serviceClient {
	return &serviceClient{restClient: restClient, namespace: namespace}
}

func (c *serviceClient) Apply(ctx context.Context, service *Service) error {
	current := &Service{}
	return applyObject(ctx, c.restClient, serviceRef, c.namespace,
		service, &service.ObjectMeta, current, &current.ObjectMeta)
}

func (c *serviceClient) Delete(ctx context.Context, name string) error {
	return deleteObject(ctx, c.restClient, serviceRef, c.namespace, name)
}
