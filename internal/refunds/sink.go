package refunds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Mas2205/UrbanFootCenter-sub002/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sfn/types"
)

// StartExecutionAPI is the part of the Step Functions client the sink needs.
type StartExecutionAPI interface {
	StartExecution(ctx context.Context, params *sfn.StartExecutionInput, optFns ...func(*sfn.Options)) (*sfn.StartExecutionOutput, error)
}

type executionInput struct {
	RefundID      string `json:"refund_id"`
	ReservationID string `json:"reservation_id"`
	IntentID      string `json:"intent_id"`
	Method        string `json:"method"`
	Amount        int64  `json:"amount"`
}

// SFNSink starts one state machine execution per refund. The execution name
// is the refund ID, so a repeated dispatch is rejected by Step Functions and
// treated as delivered.
type SFNSink struct {
	client          StartExecutionAPI
	stateMachineARN string
}

func NewSFNSink(client StartExecutionAPI, stateMachineARN string) *SFNSink {
	return &SFNSink{client: client, stateMachineARN: stateMachineARN}
}

func (s *SFNSink) Dispatch(ctx context.Context, req domain.RefundRequest) error {
	payload, err := json.Marshal(executionInput{
		RefundID:      req.ID,
		ReservationID: req.ReservationID,
		IntentID:      req.IntentID,
		Method:        string(req.Method),
		Amount:        req.Amount,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal refund input: %w", err)
	}

	_, err = s.client.StartExecution(ctx, &sfn.StartExecutionInput{
		StateMachineArn: aws.String(s.stateMachineARN),
		Name:            aws.String(req.ID),
		Input:           aws.String(string(payload)),
	})
	if err != nil {
		var exists *types.ExecutionAlreadyExists
		if errors.As(err, &exists) {
			return nil
		}
		return fmt.Errorf("failed to start refund execution: %w", err)
	}
	return nil
}

// LogSink only records the refund. It stands in when no state machine is
// configured and operators settle refunds by hand.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Dispatch(_ context.Context, req domain.RefundRequest) error {
	s.logger.Info("refund awaiting manual settlement",
		"refund_id", req.ID,
		"reservation_id", req.ReservationID,
		"intent_id", req.IntentID,
		"method", req.Method,
		"amount", req.Amount,
	)
	return nil
}
