//go:build e2e
// +build e2e

package e2e

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"

	"github.com/remedyops/k8s-sim-trainer/pkg/simenv"
)

func getKubernetesClient(t *testing.T) *kubernetes.Clientset {
	t.Helper()

	kubeconfig := filepath.Join(homedir.HomeDir(), ".kube", "config")
	config, err := clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		t.Fatalf("Failed to build config: %v", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		t.Fatalf("Failed to create clientset: %v", err)
	}

	return clientset
}

func TestRealClusterConnection(t *testing.T) {
	clientset := getKubernetesClient(t)

	ctx := context.Background()
	nodes, err := clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		t.Fatalf("Failed to list nodes: %v", err)
	}

	if len(nodes.Items) == 0 {
		t.Fatal("No nodes found in cluster")
	}

	t.Logf("✓ Connected to cluster with %d node(s)", len(nodes.Items))
	for _, node := range nodes.Items {
		t.Logf("  Node: %s", node.Name)
	}
}

func TestSimNamespace(t *testing.T) {
	clientset := getKubernetesClient(t)

	ctx := context.Background()
	ns, err := clientset.CoreV1().Namespaces().Get(ctx, "simkube", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("simkube namespace not found: %v\nRun: kubectl create namespace simkube", err)
	}

	t.Logf("✓ Found namespace: %s", ns.Name)
}

func TestVirtualNamespace(t *testing.T) {
	clientset := getKubernetesClient(t)

	ctx := context.Background()
	ns, err := clientset.CoreV1().Namespaces().Get(ctx, "virtual-default", metav1.GetOptions{})
	if err != nil {
		t.Fatalf("virtual-default namespace not found: %v\nRun: kubectl create namespace virtual-default", err)
	}

	t.Logf("✓ Found namespace: %s", ns.Name)
}

func TestSimulationCRDInstalled(t *testing.T) {
	clientset := getKubernetesClient(t)

	groupVersion := simenv.SimGroup + "/" + simenv.SimVersion
	resources, err := clientset.Discovery().ServerResourcesForGroupVersion(groupVersion)
	if err != nil {
		t.Fatalf("%s not served: %v\nInstall the SimKube CRDs first", groupVersion, err)
	}

	found := false
	for _, r := range resources.APIResources {
		if r.Name == simenv.SimResource {
			found = true
		}
	}
	if !found {
		t.Fatalf("%s served but has no %s resource", groupVersion, simenv.SimResource)
	}

	t.Logf("✓ Simulation CRD installed (%s)", groupVersion)
}

func TestTraceToolCLIExecution(t *testing.T) {
	// Build CLI
	t.Log("Building trace-tool...")
	build := exec.Command("go", "build", "-o", "../../bin/trace-tool", "../../cmd/trace-tool")
	if output, err := build.CombinedOutput(); err != nil {
		t.Fatalf("Build failed: %v\n%s", err, output)
	}
	t.Log("✓ Built CLI")

	tracePath := filepath.Join(t.TempDir(), "trace.msgpack")

	t.Log("Generating a synthetic trace...")
	gen := exec.Command("../../bin/trace-tool", "generate", "--out", tracePath, "--deploy", "web")
	if output, err := gen.CombinedOutput(); err != nil {
		t.Fatalf("generate failed: %v\n%s", err, output)
	}

	t.Log("Inspecting the trace...")
	show := exec.Command("../../bin/trace-tool", "show", "--trace", tracePath, "--deploy", "web")
	output, err := show.CombinedOutput()

	outputStr := string(output)
	t.Logf("Output:\n%s", outputStr)

	if err != nil {
		t.Fatalf("CLI failed: %v", err)
	}

	if !strings.Contains(outputStr, "trace{version=2") {
		t.Error("Output should contain the trace summary")
	}
	if !strings.Contains(outputStr, "web: cpu=500m") {
		t.Error("Output should contain the deployment state")
	}

	t.Log("✓ trace-tool round trip works!")
}
