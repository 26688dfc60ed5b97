package app

import (
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/skillcoder/graceful-coordinator/internal/config"
)

type kubeClients struct {
	clientset        kubernetes.Interface
	metricsClientset metricsv.Interface
}

// newKubeClients builds clients from kubeconfig/master, or the in-cluster config when both are empty.
func newKubeClients(cfg *config.Config) (*kubeClients, error) {
	kubeConfig, err := clientcmd.BuildConfigFromFlags(
		cfg.KubeMaster,
		cfg.KubeConfig,
	)
	if err != nil {
		return nil, fmt.Errorf("build k8s config: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(kubeConfig)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}

	metricsClientset, err := metricsv.NewForConfig(kubeConfig)
	if err != nil {
		return nil, fmt.Errorf("create metrics clientset: %w", err)
	}

	return &kubeClients{
		clientset:        clientset,
		metricsClientset: metricsClientset,
	}, nil
}
