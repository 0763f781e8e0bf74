// file: pkg/previewenv/handler.go

package previewenv

import (
	"context"
	"fmt"

	metav1 "github.com/fx147/preview-operator/pkg/apis/meta/v1"
	platformv1 "github.com/fx147/preview-operator/pkg/apis/platform/v1"
	"github.com/fx147/preview-operator/pkg/kube/clientset"
	"github.com/fx147/preview-operator/pkg/watch"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/klog/v2"
)

// Handler 把一个 PreviewEnvironment 调谐成三个下游资源：
// 运行工作负载的 Deployment、暴露它的 Service、
// 以及把外部域名路由过来的 Ambassador Mapping。
// 所有操作都是幂等的 apply/delete，可以被 dispatcher 安全重试。
type Handler struct {
	deployments clientset.DeploymentInterface
	services    clientset.ServiceInterface
	mappings    clientset.MappingInterface
}

func NewHandler(cs clientset.Interface, namespace string) *Handler {
	return &Handler{
		deployments: cs.Deployments(namespace),
		services:    cs.Services(namespace),
		mappings:    cs.Mappings(namespace),
	}
}

// Reconcile 创建或更新 key 对应的全部下游资源。
// Modified 事件也走这里：apply 语义保证镜像或域名变更会被应用到位。
func (h *Handler) Reconcile(ctx context.Context, key string, spec platformv1.PreviewEnvironmentSpec) error {
	_, name := watch.SplitKey(key)
	klog.Infof("Reconciling preview environment %s (image=%s, fqdn=%s)", key, spec.Image, spec.FQDN)

	if err := h.deployments.Apply(ctx, deploymentFor(name, spec)); err != nil {
		return fmt.Errorf("failed to apply deployment for %s: %w", key, err)
	}
	if err := h.services.Apply(ctx, serviceFor(name)); err != nil {
		return fmt.Errorf("failed to apply service for %s: %w", key, err)
	}
	if err := h.mappings.Apply(ctx, mappingFor(name, spec)); err != nil {
		return fmt.Errorf("failed to apply mapping for %s: %w", key, err)
	}

	return nil
}

// Teardown 删除 key 对应的全部下游资源。资源不存在不算错误。
// 三个删除都会被尝试，失败聚合返回，这样重试时只会重做失败的部分。
func (h *Handler) Teardown(ctx context.Context, key string) error {
	_, name := watch.SplitKey(key)
	klog.Infof("Tearing down preview environment %s", key)

	var errs []error
	if err := h.mappings.Delete(ctx, name+"-mapping"); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete mapping for %s: %w", key, err))
	}
	if err := h.services.Delete(ctx, name+"-service"); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete service for %s: %w", key, err))
	}
	if err := h.deployments.Delete(ctx, name+"-deployment"); err != nil {
		errs = append(errs, fmt.Errorf("failed to delete deployment for %s: %w", key, err))
	}

	return utilerrors.NewAggregate(errs)
}

// deploymentFor 构建预览环境的工作负载清单。
func deploymentFor(name string, spec platformv1.PreviewEnvironmentSpec) *clientset.Deployment {
	replicas := int32(1)
	return &clientset.Deployment{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "apps/v1",
			Kind:       "Deployment",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:   name + "-deployment",
			Labels: map[string]string{"preview": "true"},
		},
		Spec: clientset.DeploymentSpec{
			Replicas: &replicas,
			Selector: clientset.LabelSelector{
				MatchLabels: map[string]string{"app": name},
			},
			Template: clientset.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Name:   name,
					Labels: map[string]string{"app": name},
				},
				Spec: clientset.PodSpec{
					Containers: []clientset.Container{
						{
							Name:  name,
							Image: spec.Image,
						},
					},
				},
			},
		},
	}
}

// serviceFor 构建把流量转发到工作负载的 Service 清单。
func serviceFor(name string) *clientset.Service {
	return &clientset.Service{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "v1",
			Kind:       "Service",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name:   name + "-service",
			Labels: map[string]string{"preview": "true"},
		},
		Spec: clientset.ServiceSpec{
			Selector: map[string]string{"app": name},
			Ports: []clientset.ServicePort{
				{
					Protocol: "TCP",
					Port:     80,
				},
			},
		},
	}
}

// mappingFor 构建把 spec.fqdn 路由到 Service 的 Mapping 清单。
func mappingFor(name string, spec platformv1.PreviewEnvironmentSpec) *clientset.Mapping {
	return &clientset.Mapping{
		TypeMeta: metav1.TypeMeta{
			APIVersion: "getambassador.io/v2",
			Kind:       "Mapping",
		},
		ObjectMeta: metav1.ObjectMeta{
			Name: name + "-mapping",
		},
		Spec: clientset.MappingSpec{
			Host:    spec.FQDN,
			Service: name + "-service",
			Prefix:  "/",
		},
	}
}
