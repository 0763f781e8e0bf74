package clientset

import (
	"context"

	"github.com/fx147/preview-operator/pkg/kube/rest"
)

type MappingGetter interface {
	Mappings(namespace string) MappingInterface
}

// MappingInterface 提供了操作 Ambassador Mapping 资源的方法。
type MappingInterface interface {
	// Apply 创建 Mapping；如果已存在，则用新的清单覆盖它。
	Apply(ctx context.Context, mapping *Mapping) error

	// Delete 删除指定名称的 Mapping。对象不存在时返回 nil。
	Delete(ctx context.Context, name string) error
}

var mappingRef = resourceRef{group: "getambassador.io", version: "v2", resource: "mappings"}

type mappingClient struct {
	restClient rest.Interface
	namespace  string
}

func newMappings(restClient rest.Interface, namespace string) *mappingClient {
	return &mappingClient{restClient: restClient, namespace: namespace}
}

func (c *mappingClient) Apply(ctx context.Context, mapping *Mapping) error {
	current := &Mapping{}
	return applyObject(ctx, c.restClient, mappingRef, c.namespace,
		mapping, &mapping.ObjectMeta, current, &current.ObjectMeta)
}

func (c *mappingClient) Delete(ctx context.Context, name string) error {
	return deleteObject(ctx, c.restClient, mappingRef, c.namespace, name)
}
