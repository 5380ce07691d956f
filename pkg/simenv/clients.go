package simenv

import (
	"fmt"
	"path/filepath"

	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"
)

// Clients bundles the API clients a run needs. Binaries build one of these
// in main and inject the pieces; library code never loads kubeconfig
// itself.
type Clients struct {
	Kube    kubernetes.Interface
	Dynamic dynamic.Interface
	Metrics metricsv.Interface
}

// NewClients builds the client set from kubeconfigPath, falling back to
// ~/.kube/config and then to in-cluster config when the path is empty.
func NewClients(kubeconfigPath string) (*Clients, error) {
	if kubeconfigPath == "" {
		if home := homedir.HomeDir(); home != "" {
			kubeconfigPath = filepath.Join(home, ".kube", "config")
		}
	}

	config, err := clientcmd.BuildConfigFromFlags("", kubeconfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	kube, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	dyn, err := dynamic.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create dynamic client: %w", err)
	}

	metrics, err := metricsv.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics client: %w", err)
	}

	return &Clients{Kube: kube, Dynamic: dyn, Metrics: metrics}, nil
}
