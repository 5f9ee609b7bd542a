// Package jobs contains the background task definitions and the Asynq
// worker wiring.
package jobs

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskImportProcess processes an uploaded spreadsheet import.
	TaskImportProcess = "import:process"
	// TaskReceiptsBulkDelete deletes a batch of goods receipts.
	TaskReceiptsBulkDelete = "receipts:bulk_delete"
	// TaskLowStockScan reports parts under their stock threshold.
	TaskLowStockScan = "inventory:low_stock_scan"
)

// ImportPayload carries an uploaded workbook into the queue.
type ImportPayload struct {
	Data     []byte `json:"data"`
	BranchID int64  `json:"branch_id"`
	ActorID  int64  `json:"actor_id"`
}

// BulkDeletePayload carries receipt ids to delete.
type BulkDeletePayload struct {
	IDs     []int64 `json:"ids"`
	ActorID int64   `json:"actor_id"`
}

// LowStockPayload configures the low stock scan.
type LowStockPayload struct {
	Threshold int64 `json:"threshold"`
}

// NewImportTask constructs an import task.
func NewImportTask(payload ImportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskImportProcess, data), nil
}

// NewBulkDeleteTask constructs a bulk delete task.
func NewBulkDeleteTask(payload BulkDeletePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReceiptsBulkDelete, data), nil
}

// NewLowStockTask constructs a low stock scan task.
func NewLowStockTask(payload LowStockPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, data), nil
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{client: asynq.NewClient(redisOpts)}, nil
}

// EnqueueImport queues a spreadsheet import and returns the task id.
func (c *Client) EnqueueImport(ctx context.Context, payload []byte, branchID, actorID int64) (string, error) {
	task, err := NewImportTask(ImportPayload{Data: payload, BranchID: branchID, ActorID: actorID})
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.TaskID(uuid.NewString()))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// EnqueueBulkDelete queues a bulk receipt deletion and returns the task id.
func (c *Client) EnqueueBulkDelete(ctx context.Context, ids []int64, actorID int64) (string, error) {
	task, err := NewBulkDeleteTask(BulkDeletePayload{IDs: ids, ActorID: actorID})
	if err != nil {
		return "", err
	}
	info, err := c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault), asynq.TaskID(uuid.NewString()))
	if err != nil {
		return "", err
	}
	return info.ID, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}
