package k8s

import (
	"context"
	"log/slog"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metricsv1beta1 "k8s.io/metrics/pkg/apis/metrics/v1beta1"
)

// podMemoryLimit sums the container memory limits. ok is false when no
// container sets one: the pod can then grow up to node capacity.
func podMemoryLimit(pod *corev1.Pod) (limit resource.Quantity, ok bool) {
	limit = *resource.NewQuantity(0, resource.BinarySI)

	for _, c := range pod.Spec.Containers {
		if l, found := c.Resources.Limits[corev1.ResourceMemory]; found {
			limit.Add(l)

			ok = true
		}
	}

	return limit, ok
}

func podMemoryUsage(ctx context.Context, logger *slog.Logger, pm *metricsv1beta1.PodMetrics) resource.Quantity {
	usage := *resource.NewQuantity(0, resource.BinarySI)

	for _, c := range pm.Containers {
		mem, found := c.Usage[corev1.ResourceMemory]
		if !found {
			logger.WarnContext(ctx, "no memory sample for container", "container", c.Name)

			continue
		}

		usage.Add(mem)
	}

	logger.DebugContext(ctx, "pod memory usage", "usage", usage.String(), "containers", len(pm.Containers))

	return usage
}
