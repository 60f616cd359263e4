// Package worker runs the async ingest path: signup records arriving
// on a queue get a verification token, an audit row, and an email, for
// account rows an upstream producer has already created.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cloudacct/accountsvc/internal/mq"
	"github.com/cloudacct/accountsvc/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// recordTimeout bounds the store and notification calls made for a
// single record, so one hung dependency cannot stall the subscription
// indefinitely.
const recordTimeout = 30 * time.Second

// VerificationIssuer is the slice of the account service the worker
// needs: the same issuance operation the HTTP path uses.
type VerificationIssuer interface {
	IssueVerification(ctx context.Context, account types.Account) (string, error)
}

// Subscriber consumes messages from a named queue.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string, handler mq.Handler) error
}

// IngestWorker consumes the signup queue and issues verification
// tokens out-of-band.
type IngestWorker struct {
	issuer VerificationIssuer
	queue  string
	log    *logrus.Entry
}

func NewIngestWorker(issuer VerificationIssuer, queue string, logger *logrus.Logger) *IngestWorker {
	return &IngestWorker{
		issuer: issuer,
		queue:  queue,
		log:    logger.WithField("component", "ingest"),
	}
}

// Run subscribes to the ingest queue and processes batches until ctx
// is done. A partially failed batch is acked: per-record failures are
// reported through the invocation result and the log, not by requeuing
// the whole delivery.
func (w *IngestWorker) Run(ctx context.Context, sub Subscriber) error {
	return sub.Subscribe(ctx, w.queue, func(ctx context.Context, msg mq.Message) error {
		records, err := decodeRecords(msg.Data)
		if err != nil {
			w.log.WithError(err).WithField("message_id", msg.ID).Error("undecodable ingest message")
			return nil
		}

		result := w.ProcessBatch(ctx, records)
		entry := w.log.WithField("invocation_id", result.InvocationID).
			WithField("processed", result.Processed).
			WithField("failed", len(result.Failures))
		if result.Failed() {
			entry.Warn("ingest batch completed with failures")
		} else {
			entry.Info("ingest batch completed")
		}
		return nil
	})
}

// ProcessBatch issues a verification token for every record in the
// batch. Records are handled sequentially and independently: one bad
// record never aborts the rest, but any failure marks the invocation
// as failed in the returned result.
func (w *IngestWorker) ProcessBatch(ctx context.Context, records []types.IngestRecord) types.IngestResult {
	result := types.IngestResult{InvocationID: uuid.NewString()}

	for _, record := range records {
		if err := w.processRecord(ctx, record); err != nil {
			w.log.WithError(err).
				WithField("invocation_id", result.InvocationID).
				WithField("user_id", record.UserID).
				Error("ingest record failed")
			result.Failures = append(result.Failures, types.RecordFailure{
				UserID: record.UserID,
				Email:  record.Email,
				Reason: err.Error(),
			})
			continue
		}
		result.Processed++
	}

	return result
}

func (w *IngestWorker) processRecord(ctx context.Context, record types.IngestRecord) error {
	if record.UserID < 1 {
		return errors.New("missing user_id")
	}
	if record.Email == "" {
		return errors.New("missing email")
	}

	ctx, cancel := context.WithTimeout(ctx, recordTimeout)
	defer cancel()

	// The account row already exists upstream; only a fresh token,
	// audit entry, and email are needed here.
	_, err := w.issuer.IssueVerification(ctx, types.Account{
		ID:        record.UserID,
		Email:     record.Email,
		FirstName: record.FirstName,
		LastName:  record.LastName,
	})
	return err
}

type batchEnvelope struct {
	Records []types.IngestRecord `json:"records"`
}

func decodeRecords(data []byte) ([]types.IngestRecord, error) {
	var envelope batchEnvelope
	if err := json.Unmarshal(data, &envelope); err == nil && len(envelope.Records) > 0 {
		return envelope.Records, nil
	}

	var single types.IngestRecord
	if err := json.Unmarshal(data, &single); err == nil && single.UserID > 0 {
		return []types.IngestRecord{single}, nil
	}

	return nil, fmt.Errorf("unrecognized ingest payload (%d bytes)", len(data))
}
