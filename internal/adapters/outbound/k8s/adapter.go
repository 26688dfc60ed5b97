package k8s

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"
)

// Adapter talks to the API server on behalf of the pod this process runs in.
type Adapter struct {
	logger           *slog.Logger
	clientset        kubernetes.Interface
	metricsClientset metricsv.Interface
	namespace        string
	name             string
}

// New creates a new K8s adapter bound to one pod.
func New(
	logger *slog.Logger,
	clientset kubernetes.Interface,
	metricsClientset metricsv.Interface,
	namespace,
	name string,
) *Adapter {
	return &Adapter{
		logger:           logger.With("pod", name, "namespace", namespace),
		clientset:        clientset,
		metricsClientset: metricsClientset,
		namespace:        namespace,
		name:             name,
	}
}

// RemoveLabelCommand drops a label from the pod, taking it out of every Service
// that selects on it. A missing label is not an error.
func (a *Adapter) RemoveLabelCommand(ctx context.Context, key string) error {
	patch := map[string]any{
		"metadata": map[string]any{
			"labels": map[string]any{key: nil},
		},
	}

	patchBytes, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("marshal label patch: %w", err)
	}

	_, err = a.clientset.CoreV1().Pods(a.namespace).Patch(
		ctx,
		a.name,
		types.MergePatchType,
		patchBytes,
		metav1.PatchOptions{},
	)
	if err != nil {
		return wrapAPIError("patch pod label", err)
	}

	a.logger.InfoContext(ctx, "pod label removed", "label", key)

	return nil
}

// MemoryLimitQuery returns the sum of the container memory limits of the pod.
func (a *Adapter) MemoryLimitQuery(ctx context.Context) (*resource.Quantity, error) {
	pod, err := a.clientset.CoreV1().Pods(a.namespace).Get(ctx, a.name, metav1.GetOptions{})
	if err != nil {
		return nil, wrapAPIError("get pod", err)
	}

	limit, ok := podMemoryLimit(pod)
	if !ok {
		return nil, fmt.Errorf("get pod: %w", ErrNoMemoryLimit)
	}

	return &limit, nil
}

// MemoryUsageQuery returns the current memory usage of the pod from the metrics API.
func (a *Adapter) MemoryUsageQuery(ctx context.Context) (*resource.Quantity, error) {
	podMetrics, err := a.metricsClientset.MetricsV1beta1().PodMetricses(a.namespace).Get(
		ctx,
		a.name,
		metav1.GetOptions{},
	)
	if err != nil {
		return nil, wrapAPIError("get pod metrics", err)
	}

	usage := podMemoryUsage(ctx, a.logger, podMetrics)

	return &usage, nil
}
