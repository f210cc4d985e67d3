package discovery

import (
	"context"
	"fmt"
	"sort"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// KubernetesStrategy discovers peers by listing sibling pods through the
// Kubernetes API. It returns richer records than DNS discovery (pod names,
// node placement, phase, restart counts) but requires a ServiceAccount with
// RBAC read access to pods.
type KubernetesStrategy struct {
	client        kubernetes.Interface
	namespace     string
	labelSelector string
	timeout       time.Duration
}

// NewKubernetesStrategy creates an API discovery strategy, building a client
// from the in-cluster config or, when that is unavailable, the given
// kubeconfig path. Returns an error when no client can be constructed; the
// caller typically logs this and runs with DNS discovery only.
func NewKubernetesStrategy(kubeconfig, namespace, labelSelector string, timeout time.Duration) (*KubernetesStrategy, error) {
	client, err := createKubernetesClient(kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}
	return NewKubernetesStrategyWithClient(client, namespace, labelSelector, timeout)
}

// NewKubernetesStrategyWithClient creates an API discovery strategy with an
// existing client. This is useful for testing with fake clientsets.
func NewKubernetesStrategyWithClient(client kubernetes.Interface, namespace, labelSelector string, timeout time.Duration) (*KubernetesStrategy, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if labelSelector == "" {
		labelSelector = "app=demo"
	}
	if timeout == 0 {
		timeout = 2 * time.Second
	}

	return &KubernetesStrategy{
		client:        client,
		namespace:     namespace,
		labelSelector: labelSelector,
		timeout:       timeout,
	}, nil
}

// Name identifies this strategy in logs and metrics.
func (s *KubernetesStrategy) Name() string {
	return "kubernetes-api"
}

// Discover lists pods matching the label selector and builds one peer per
// pod, sorted by pod name. The list call is bounded by the strategy timeout.
func (s *KubernetesStrategy) Discover(ctx context.Context) ([]Peer, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	pods, err := s.client.CoreV1().Pods(s.namespace).List(ctx, metav1.ListOptions{
		LabelSelector: s.labelSelector,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	peers := make([]Peer, 0, len(pods.Items))
	for i := range pods.Items {
		peers = append(peers, podToPeer(&pods.Items[i]))
	}

	sort.Slice(peers, func(i, j int) bool {
		return peers[i].Name < peers[j].Name
	})

	return peers, nil
}

// podToPeer extracts the peer record fields from a pod.
func podToPeer(pod *corev1.Pod) Peer {
	ip := pod.Status.PodIP
	if ip == "" {
		ip = "pending"
	}

	node := pod.Spec.NodeName
	if node == "" {
		node = "unknown"
	}

	ready := false
	for _, cond := range pod.Status.Conditions {
		if cond.Type == corev1.PodReady && cond.Status == corev1.ConditionTrue {
			ready = true
			break
		}
	}

	restarts := 0
	for _, cs := range pod.Status.ContainerStatuses {
		restarts += int(cs.RestartCount)
	}

	return Peer{
		Name:     pod.Name,
		IP:       ip,
		Node:     node,
		Phase:    string(pod.Status.Phase),
		Ready:    ready,
		Restarts: restarts,
	}
}

// createKubernetesClient creates a Kubernetes client from the in-cluster
// config, falling back to a kubeconfig file.
func createKubernetesClient(kubeconfig string) (kubernetes.Interface, error) {
	var config *rest.Config
	var err error

	if kubeconfig != "" {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return nil, fmt.Errorf("failed to build config from kubeconfig: %w", err)
		}
	} else {
		config, err = rest.InClusterConfig()
		if err != nil {
			// Fallback to default kubeconfig
			config, err = clientcmd.BuildConfigFromFlags("", clientcmd.RecommendedHomeFile)
			if err != nil {
				return nil, fmt.Errorf("failed to get kubernetes config: %w", err)
			}
		}
	}

	client, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return client, nil
}
