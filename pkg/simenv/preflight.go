package simenv

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
)

// Preflight verifies the cluster is usable before a run starts, so a
// misconfigured environment fails up front instead of mid-episode.
type Preflight struct {
	client kubernetes.Interface
	log    logr.Logger
}

func NewPreflight(client kubernetes.Interface, log logr.Logger) *Preflight {
	return &Preflight{client: client, log: log}
}

// CheckAPI confirms the API server answers at all.
func (p *Preflight) CheckAPI(ctx context.Context) error {
	version, err := p.client.Discovery().ServerVersion()
	if err != nil {
		return fmt.Errorf("failed to connect to cluster: %w", err)
	}
	p.log.Info("kubernetes API reachable", "version", version.GitVersion)
	return nil
}

// CheckNamespace confirms namespace exists. The error for a missing
// namespace includes the command to create it.
func (p *Preflight) CheckNamespace(ctx context.Context, namespace string) error {
	if _, err := p.client.CoreV1().Namespaces().Get(ctx, namespace, metav1.GetOptions{}); err != nil {
		if apierrors.IsNotFound(err) {
			return fmt.Errorf("namespace %q not found, create it with: kubectl create namespace %s", namespace, namespace)
		}
		return fmt.Errorf("failed to check namespace %q: %w", namespace, err)
	}
	p.log.Info("namespace exists", "namespace", namespace)
	return nil
}

// Run performs all checks in order and stops at the first failure.
func (p *Preflight) Run(ctx context.Context, namespaces ...string) error {
	if err := p.CheckAPI(ctx); err != nil {
		return err
	}
	for _, ns := range namespaces {
		if err := p.CheckNamespace(ctx, ns); err != nil {
			return err
		}
	}
	return nil
}
