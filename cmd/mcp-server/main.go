// Command mcp-server exposes read-only ad inventory and reporting tools over
// the Model Context Protocol so agent tooling can inspect a running
// deployment without touching the serving surface.
package main

import (
	"context"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/slotserve/slotserve/internal/clicklog"
	"github.com/slotserve/slotserve/internal/config"
	"github.com/slotserve/slotserve/internal/models"
	"github.com/slotserve/slotserve/internal/observability"
	"github.com/slotserve/slotserve/internal/reporting"
	"github.com/slotserve/slotserve/internal/store"
)

type GetReportInput struct {
	AdvertiserID string `json:"advertiser_id"`
	Breakdown    bool   `json:"breakdown,omitempty"`
}

type GetReportOutput struct {
	Rows map[string]*models.Report `json:"rows"`
}

type SlotInventoryInput struct {
	Slot string `json:"slot"`
}

type SlotInventoryOutput struct {
	Slot     string       `json:"slot"`
	QueueLen int64        `json:"queue_len"`
	Ads      []*models.Ad `json:"ads"`
	StaleIDs []string     `json:"stale_ids,omitempty"`
}

// toolServer holds the shared dependencies of every tool.
type toolServer struct {
	store   *store.Store
	reports *reporting.Aggregator
	logger  *zap.Logger
}

// GetAdvertiserReport returns the advertiser's report rows, with breakdowns
// when requested.
func (t *toolServer) GetAdvertiserReport(ctx context.Context, req *mcp.CallToolRequest, input GetReportInput) (*mcp.CallToolResult, GetReportOutput, error) {
	build := t.reports.Report
	if input.Breakdown {
		build = t.reports.FinalReport
	}
	rows, err := build(ctx, input.AdvertiserID)
	if err != nil {
		return nil, GetReportOutput{}, err
	}
	return nil, GetReportOutput{Rows: rows}, nil
}

// ListSlotInventory returns the slot queue contents, resolving each id to
// its stored ad. Ids without a backing record are reported as stale instead
// of being evicted: the tools are read-only.
func (t *toolServer) ListSlotInventory(ctx context.Context, req *mcp.CallToolRequest, input SlotInventoryInput) (*mcp.CallToolResult, SlotInventoryOutput, error) {
	ids, err := t.store.QueueIDs(ctx, input.Slot)
	if err != nil {
		return nil, SlotInventoryOutput{}, err
	}

	out := SlotInventoryOutput{Slot: input.Slot, QueueLen: int64(len(ids))}
	seen := map[string]struct{}{}
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ad, err := t.store.Get(ctx, input.Slot, id)
		if err == store.ErrNotFound {
			out.StaleIDs = append(out.StaleIDs, id)
			continue
		}
		if err != nil {
			return nil, SlotInventoryOutput{}, err
		}
		out.Ads = append(out.Ads, ad)
	}
	return nil, out, nil
}

func main() {
	cfg := config.Load()

	logger, err := observability.InitLogger(cfg.ServiceName + "-mcp")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() { _ = client.Close() }()
	logger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))

	adStore := store.New(client, cfg.KeyNamespace)
	clicks, err := clicklog.New(cfg.LogDir, logger)
	if err != nil {
		logger.Fatal("init click log", zap.Error(err))
	}

	ts := &toolServer{
		store:   adStore,
		reports: reporting.New(adStore, clicks, logger),
		logger:  logger,
	}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "slotserve",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_advertiser_report",
		Description: "Impression and click counts per ad for one advertiser, optionally with demographic breakdowns",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"advertiser_id": map[string]interface{}{
					"type":        "string",
					"description": "Opaque advertiser identifier",
				},
				"breakdown": map[string]interface{}{
					"type":        "boolean",
					"description": "Include gender/agent/generation/device breakdowns (final report form)",
				},
			},
			"required": []string{"advertiser_id"},
		},
	}, ts.GetAdvertiserReport)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_slot_inventory",
		Description: "Slot queue length and the ads currently eligible for rotation, flagging stale queue entries",
		InputSchema: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"slot": map[string]interface{}{
					"type":        "string",
					"description": "Slot name, e.g. " + strconv.Quote("1"),
				},
			},
			"required": []string{"slot"},
		},
	}, ts.ListSlotInventory)

	logger.Info("MCP Server running via stdio")
	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}
}
