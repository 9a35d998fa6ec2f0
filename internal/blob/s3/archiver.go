package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/soumik404/basecast/internal/domain"
)

// multipartThreshold is the snapshot size above which uploads switch to the
// multipart manager. Predictions with very large bet lists can exceed it.
const multipartThreshold = 2 * minPartSize

// SnapshotArchiver implements domain.SnapshotArchiver by serializing a
// settlement snapshot to JSON and uploading it to the configured bucket.
//
// Keys are partitioned by resolution month so a bucket listing stays
// manageable:
//
//	settlements/2026-08/prediction-42.json
type SnapshotArchiver struct {
	writer *Writer
	audit  domain.AuditStore
}

// NewSnapshotArchiver creates a SnapshotArchiver. audit may be nil, in which
// case archival events are not recorded.
func NewSnapshotArchiver(writer *Writer, audit domain.AuditStore) *SnapshotArchiver {
	return &SnapshotArchiver{writer: writer, audit: audit}
}

// Archive uploads the snapshot and returns the object key it was written to.
// The upload happens after the resolution is already durable in Postgres, so
// a failed upload is reported but never blocks settlement.
func (a *SnapshotArchiver) Archive(ctx context.Context, snap domain.SettlementSnapshot) (string, error) {
	buf, err := marshalSnapshot(snap)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal snapshot %d: %w", snap.Prediction.PredictionID, err)
	}

	key := snapshotKey(snap)
	if int64(len(buf)) > multipartThreshold {
		err = a.writer.PutMultipart(ctx, key, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(buf), "application/json")
	}
	if err != nil {
		return "", fmt.Errorf("s3blob: upload snapshot %d: %w", snap.Prediction.PredictionID, err)
	}

	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.snapshot", map[string]any{
			"key":           key,
			"prediction_id": snap.Prediction.PredictionID,
			"bets":          len(snap.Bets),
		}); err != nil {
			return key, fmt.Errorf("s3blob: snapshot audit log: %w", err)
		}
	}

	return key, nil
}

// snapshotKey builds the object key for a snapshot, partitioned by the
// year-month of the resolution time.
func snapshotKey(snap domain.SettlementSnapshot) string {
	return fmt.Sprintf("settlements/%s/prediction-%d.json",
		snap.ResolvedAt.Format("2006-01"), snap.Prediction.PredictionID)
}

// marshalSnapshot serialises a snapshot as indented JSON. Snapshots are meant
// to be read by humans during disputes, so readability wins over size.
func marshalSnapshot(snap domain.SettlementSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var _ domain.SnapshotArchiver = (*SnapshotArchiver)(nil)
