package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"brashlens-backend/internal/common/logger"
)

const (
	TaskTest       = "test_task"
	TaskAddNumbers = "add_numbers"
)

// TestTaskDelay is the simulated work of test_task.
var TestTaskDelay = 5 * time.Second

type TestTaskArgs struct {
	Message string `json:"message"`
}

type AddNumbersArgs struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
}

// RegisterBuiltins adds test_task and add_numbers.
func RegisterBuiltins(r *Registry) {
	r.Register(TaskTest, testTask)
	r.Register(TaskAddNumbers, addNumbers)
}

func testTask(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var args TestTaskArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("decode args: %w", err)
	}
	logger.Info().Str("message", args.Message).Msg("Running test task")

	select {
	case <-time.After(TestTaskDelay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	logger.Info().Str("message", args.Message).Msg("Test task completed")
	return map[string]string{"status": "completed", "message": args.Message}, nil
}

func addNumbers(_ context.Context, raw json.RawMessage) (interface{}, error) {
	var args AddNumbersArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("decode args: %w", err)
	}
	return map[string]float64{"result": args.A + args.B}, nil
}
