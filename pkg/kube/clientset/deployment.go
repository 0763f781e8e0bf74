package clientset

import (
	"context"

	"github.com/fx147/preview-operator/pkg/kube/rest"
)

type DeploymentGetter interface {
	Deployments(namespace string) DeploymentInterface
}

// DeploymentInterface 提供了操作 Deployment 资源的方法。
type DeploymentInterface interface {
	// Apply 创建 Deployment；如果已存在，则用新的清单覆盖它。
	Apply(ctx context.Context, deployment *Deployment) error

	// Delete 删除指定名称的 Deployment。对象不存在时返回 nil。
	Delete(ctx context.Context, name string) error
}

var deploymentRef = resourceRef{group: "apps", version: "v1", resource: "deployments"}

type deploymentClient struct {
	restClient rest.Interface
	namespace  string
}

func newDeployments(restClient rest.Interface, namespace string) *deploymentClient {
	return &deploymentClient{restClient: restClient, namespace: namespace}
}

func (c *deploymentClient) Apply(ctx context.Context, deployment *Deployment) error {
	current := &Deployment{}
	return applyObject(ctx, c.restClient, deploymentRef, c.namespace,
		deployment, &deployment.ObjectMeta, current, &current.ObjectMeta)
}

func (c *deploymentClient) Delete(ctx context.Context, name string) error {
	return deleteObject(ctx, c.restClient, deploymentRef, c.namespace, name)
}
