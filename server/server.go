// Package server exposes hooks and rankings of one case as MCP tools.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/c360studio/ensemble/ensemble"
	"github.com/c360studio/ensemble/hook"
	"github.com/c360studio/ensemble/ranking"
)

// Server wraps the MCP server. The dispatcher and registry are not safe for
// concurrent use, so every tool call holds mu.
type Server struct {
	mcp    *mcp.Server
	logger *slog.Logger

	mu         sync.Mutex
	dispatcher *hook.Dispatcher
	snapshot   *ensemble.Snapshot
	registry   *ranking.Registry
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithSnapshot enables the ranking tools over snapshot.
func WithSnapshot(snapshot *ensemble.Snapshot) Option {
	return func(s *Server) { s.snapshot = snapshot }
}

// New creates a server for dispatcher. Ranking tools report an error until
// a snapshot is configured.
func New(dispatcher *hook.Dispatcher, version string, opts ...Option) (*Server, error) {
	s := &Server{
		dispatcher: dispatcher,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.snapshot != nil {
		reg, err := ranking.NewRegistry(s.snapshot.EnsembleSize())
		if err != nil {
			return nil, fmt.Errorf("create ranking registry: %w", err)
		}
		s.registry = reg
	}

	s.mcp = mcp.NewServer(&mcp.Implementation{
		Name:    "ensemble",
		Version: version,
	}, nil)
	s.registerTools()

	return s, nil
}

// Run serves MCP on the stdio transport until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server on stdio transport")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// MCP returns the underlying MCP server.
func (s *Server) MCP() *mcp.Server { return s.mcp }

type noArgs struct{}

type fireHooksArgs struct {
	Phase   string            `json:"phase" jsonschema:"Lifecycle phase: PRE_SIMULATION, POST_SIMULATION, PRE_UPDATE or POST_UPDATE"`
	Target  string            `json:"target,omitempty" jsonschema:"Description of the run the hooks fire for, passed to workflows as ENSEMBLE_TARGET"`
	Context map[string]string `json:"context,omitempty" jsonschema:"Input context values for this call only, overlaid on the case input context"`
}

type rankingKeyArgs struct {
	Key string `json:"key" jsonschema:"Ranking key"`
}

type exportRankingArgs struct {
	Key  string `json:"key" jsonschema:"Ranking key"`
	Path string `json:"path" jsonschema:"File to write the ranking table to. Parent directories are created."`
}

type rankDataArgs struct {
	Key        string `json:"key" jsonschema:"Key to store the ranking under"`
	Node       string `json:"node" jsonschema:"Snapshot node to read values from"`
	UserKey    string `json:"user_key,omitempty" jsonschema:"User key of the value, defaults to the node name"`
	Index      string `json:"index,omitempty" jsonschema:"Index key narrowing the value"`
	Step       int    `json:"step,omitempty" jsonschema:"Report step"`
	Decreasing bool   `json:"decreasing,omitempty" jsonschema:"Sort largest value first"`
}

type rankMisfitArgs struct {
	Key   string   `json:"key" jsonschema:"Key to store the ranking under"`
	Obs   []string `json:"obs,omitempty" jsonschema:"Observation keys. Defaults to every observation in the snapshot."`
	Steps []int    `json:"steps,omitempty" jsonschema:"Report steps. Defaults to every step."`
}

// hookInfo is one entry of the list_hooks result.
type hookInfo struct {
	Workflow string `json:"workflow"`
	Path     string `json:"path"`
	Phase    string `json:"phase"`
}

// rankingInfo is one entry of the list_rankings result.
type rankingInfo struct {
	Key  string `json:"key"`
	Kind string `json:"kind"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_hooks",
		Description: "List the configured hook workflows in firing order with their lifecycle phase.",
	}, s.listHooks)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "fire_hooks",
		Description: "Run every hook workflow registered for a lifecycle phase, in registration order. Returns how many workflows ran.",
	}, s.fireHooks)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "list_rankings",
		Description: "List the stored rankings and their kind.",
	}, s.listRankings)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "rank_data",
		Description: "Rank ensemble members by a simulated value from the snapshot and store the ranking under a key.",
	}, s.rankData)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "rank_misfit",
		Description: "Rank ensemble members by total misfit against observations and store the ranking under a key.",
	}, s.rankMisfit)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "show_ranking",
		Description: "Show the table of a stored ranking.",
	}, s.showRanking)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "ranking_permutation",
		Description: "Return the member indices of a stored ranking in ranked order as a JSON array.",
	}, s.rankingPermutation)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "export_ranking",
		Description: "Write the table of a stored ranking to a file.",
	}, s.exportRanking)
}

func (s *Server) listHooks(ctx context.Context, req *mcp.CallToolRequest, args noArgs) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	entries := s.dispatcher.Entries()
	s.mu.Unlock()

	hooks := make([]hookInfo, 0, len(entries))
	for _, e := range entries {
		hooks = append(hooks, hookInfo{
			Workflow: e.Workflow().Name(),
			Path:     e.Workflow().Path(),
			Phase:    e.Phase().String(),
		})
	}
	return jsonResult(hooks)
}

func (s *Server) fireHooks(ctx context.Context, req *mcp.CallToolRequest, args fireHooksArgs) (*mcp.CallToolResult, any, error) {
	phase, err := hook.ParsePhase(args.Phase)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var target any
	if args.Target != "" {
		target = args.Target
	}
	fired := s.dispatcher.DispatchWith(ctx, phase, target, args.Context)

	s.logger.Info("Fired hooks from MCP", "phase", phase, "fired", fired)
	return textResult(fmt.Sprintf("Fired %d hook workflow(s) for %s.", fired, phase)), nil, nil
}

func (s *Server) listRankings(ctx context.Context, req *mcp.CallToolRequest, args noArgs) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry == nil {
		return errorResult(errNoSnapshot), nil, nil
	}

	infos := make([]rankingInfo, 0, s.registry.Size())
	for _, key := range s.registry.Keys() {
		r, err := s.registry.Get(key)
		if err != nil {
			continue
		}
		infos = append(infos, rankingInfo{Key: key, Kind: string(r.Kind())})
	}
	return jsonResult(infos)
}

func (s *Server) rankData(ctx context.Context, req *mcp.CallToolRequest, args rankDataArgs) (*mcp.CallToolResult, any, error) {
	if args.Node == "" {
		return errorResult("node is required"), nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry == nil {
		return errorResult(errNoSnapshot), nil, nil
	}

	err := s.registry.AddDataRanking(args.Key, !args.Decreasing, args.UserKey, args.Index,
		s.snapshot, s.snapshot.Node(args.Node), args.Step)
	if err != nil {
		return errorResult(fmt.Sprintf("add ranking: %v", err)), nil, nil
	}
	return textResult(fmt.Sprintf("Stored data ranking %q over %d members.", args.Key, s.registry.EnsembleSize())), nil, nil
}

func (s *Server) rankMisfit(ctx context.Context, req *mcp.CallToolRequest, args rankMisfitArgs) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry == nil {
		return errorResult(errNoSnapshot), nil, nil
	}

	obs := args.Obs
	if len(obs) == 0 {
		obs = s.snapshot.ObsKeys()
	}
	if err := s.registry.AddMisfitRanking(args.Key, s.snapshot, obs, args.Steps); err != nil {
		return errorResult(fmt.Sprintf("add ranking: %v", err)), nil, nil
	}
	return textResult(fmt.Sprintf("Stored misfit ranking %q over %s.", args.Key, strings.Join(obs, ", "))), nil, nil
}

func (s *Server) showRanking(ctx context.Context, req *mcp.CallToolRequest, args rankingKeyArgs) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry == nil {
		return errorResult(errNoSnapshot), nil, nil
	}

	var buf bytes.Buffer
	if err := s.registry.Display(args.Key, &buf); err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return textResult(buf.String()), nil, nil
}

func (s *Server) rankingPermutation(ctx context.Context, req *mcp.CallToolRequest, args rankingKeyArgs) (*mcp.CallToolResult, any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry == nil {
		return errorResult(errNoSnapshot), nil, nil
	}

	perm, err := s.registry.Permutation(args.Key)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return jsonResult(perm)
}

func (s *Server) exportRanking(ctx context.Context, req *mcp.CallToolRequest, args exportRankingArgs) (*mcp.CallToolResult, any, error) {
	if args.Path == "" {
		return errorResult("path is required"), nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.registry == nil {
		return errorResult(errNoSnapshot), nil, nil
	}

	if err := s.registry.ExportToFile(args.Key, args.Path); err != nil {
		return errorResult(err.Error()), nil, nil
	}
	return textResult(fmt.Sprintf("Exported ranking %q to %s.", args.Key, args.Path)), nil, nil
}

const errNoSnapshot = "No ensemble snapshot loaded. Start the server with --snapshot."

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to marshal result: %v", err)), nil, nil
	}
	return textResult(string(data)), nil, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
		IsError: true,
	}
}
