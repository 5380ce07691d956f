package simenv

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"
	"k8s.io/client-go/util/homedir"
)

// DefaultClusterBase is the URL prefix under which the SimKube driver reads
// traces inside the kind node.
const DefaultClusterBase = "file:///data"

// TraceStager makes a local trace file visible to the simulation driver by
// copying it into the directory mounted at /data inside the kind node, and
// maps local paths to the URLs the driver expects.
type TraceStager struct {
	LocalDir    string
	ClusterBase string
	log         logr.Logger
}

// NewTraceStager builds a stager for the host directory mounted into the
// kind node. Empty arguments select the defaults
// (~/.local/kind-node-data/cluster and file:///data).
func NewTraceStager(localDir, clusterBase string, log logr.Logger) *TraceStager {
	if localDir == "" {
		localDir = filepath.Join(homedir.HomeDir(), ".local", "kind-node-data", "cluster")
	}
	if clusterBase == "" {
		clusterBase = DefaultClusterBase
	}
	return &TraceStager{LocalDir: localDir, ClusterBase: clusterBase, log: log}
}

// ClusterPath maps a local trace path to the URL the driver reads it at.
// Paths that already carry a scheme are assumed cluster-reachable and pass
// through unchanged.
func (s *TraceStager) ClusterPath(localPath string) string {
	if hasScheme(localPath) {
		return localPath
	}
	return strings.TrimSuffix(s.ClusterBase, "/") + "/" + filepath.Base(localPath)
}

// Stage copies localPath into the kind node data directory and returns the
// cluster URL for it. URLs pass through without copying.
func (s *TraceStager) Stage(localPath string) (string, error) {
	if hasScheme(localPath) {
		return localPath, nil
	}

	data, err := os.ReadFile(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to read trace %s: %w", localPath, err)
	}
	if err := os.MkdirAll(s.LocalDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create stage dir %s: %w", s.LocalDir, err)
	}

	dst := filepath.Join(s.LocalDir, filepath.Base(localPath))
	if err := os.WriteFile(dst, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to stage trace to %s: %w", dst, err)
	}

	s.log.V(1).Info("staged trace", "from", localPath, "to", dst)
	return s.ClusterPath(localPath), nil
}

func hasScheme(path string) bool {
	return strings.HasPrefix(path, "file://") ||
		strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "https://")
}
