// Command agentgraphd is a minimal reference wiring of this module: it
// builds a two-node workflow (an agent node feeding a transform node),
// runs it to completion against an Ollama provider, and prints the result
// — the equivalent of the teacher's examples/ directory, kept as a single
// buildable binary instead of a directory of demo programs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/ravel-run/agentgraph/config"
	"github.com/ravel-run/agentgraph/emit"
	"github.com/ravel-run/agentgraph/executor"
	"github.com/ravel-run/agentgraph/graphmodel"
	"github.com/ravel-run/agentgraph/ids"
	"github.com/ravel-run/agentgraph/llm"
	"github.com/ravel-run/agentgraph/llm/ollama"
	"github.com/ravel-run/agentgraph/obs"
	"github.com/ravel-run/agentgraph/store"
)

func main() {
	var (
		configPath  = flag.String("config", "", "optional YAML config (see config.Config)")
		prompt      = flag.String("prompt", "Say hello in five words.", "prompt sent to the agent node")
		model       = flag.String("model", "llama3.2", "ollama model name")
		metricsAddr = flag.String("metrics-addr", ":9090", "address to serve /metrics on")
	)
	flag.Parse()

	var opts []executor.Option
	if *configPath != "" {
		f, err := os.Open(*configPath)
		if err != nil {
			log.Fatalf("agentgraphd: opening config: %v", err)
		}
		defer f.Close()
		cfg, err := config.Load(f)
		if err != nil {
			log.Fatalf("agentgraphd: loading config: %v", err)
		}
		fromFile, err := cfg.ExecutorOptions()
		if err != nil {
			log.Fatalf("agentgraphd: applying config: %v", err)
		}
		opts = append(opts, fromFile...)
	}

	registry := prometheus.NewRegistry()
	metrics := obs.NewMetrics(registry)
	logEmitter := emit.NewLogEmitter(os.Stdout, false)
	tracer := otel.Tracer("agentgraphd")
	multi := emit.NewMultiEmitter(logEmitter, metrics, obs.NewOTelEmitter(tracer))

	workflowID := ids.NewWorkflowId()
	costs := llm.NewCostTracker(workflowID.String(), "USD")

	opts = append(opts,
		executor.WithEmitter(multi),
		executor.WithRecorder(store.NewMemRecorder()),
		executor.WithCostTracker(costs),
	)

	go serveMetrics(*metricsAddr, registry)

	exec := executor.New(opts...)
	agentID := ids.NewAgentId()
	exec.RegisterProvider(agentID, ollama.New("", *model))

	graph, agentNodeID := buildGraph(agentID, *prompt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	wctx, err := exec.Execute(ctx, graph, workflowID)
	if err != nil {
		log.Fatalf("agentgraphd: workflow failed: %v", err)
	}

	output, _ := wctx.OutputByID(agentNodeID)
	result, _ := json.MarshalIndent(output, "", "  ")
	fmt.Println(string(result))
	fmt.Printf("cost: $%.6f %s\n", costs.TotalCost(), "USD")
}

// buildGraph wires a single agent node producing content, consumed by a
// transform node that uppercases it — enough to exercise the scheduler's
// dependency-layer batching without needing external tool/document setup.
func buildGraph(agentID ids.AgentId, prompt string) (*graphmodel.WorkflowGraph, ids.NodeId) {
	g := graphmodel.New()

	agentNode := graphmodel.Node{
		ID:   ids.NewNodeId(),
		Name: "greeting",
		Kind: graphmodel.KindAgent,
		Config: map[string]interface{}{
			"agent_id": agentID.String(),
			"prompt":   prompt,
		},
	}
	if err := g.AddNode(agentNode); err != nil {
		log.Fatalf("agentgraphd: adding agent node: %v", err)
	}

	transformNode := graphmodel.Node{
		ID:   ids.NewNodeId(),
		Name: "shout",
		Kind: graphmodel.KindTransform,
		Config: map[string]interface{}{
			"transformation": `upper(outputs.greeting.content)`,
		},
	}
	if err := g.AddNode(transformNode); err != nil {
		log.Fatalf("agentgraphd: adding transform node: %v", err)
	}

	if err := g.AddEdge(graphmodel.Edge{From: agentNode.ID, To: transformNode.ID, Kind: graphmodel.EdgeDataFlow}); err != nil {
		log.Fatalf("agentgraphd: adding edge: %v", err)
	}

	return g, agentNode.ID
}

func serveMetrics(addr string, registry *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("agentgraphd: metrics server stopped: %v", err)
	}
}
