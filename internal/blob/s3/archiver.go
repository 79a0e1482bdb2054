package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/spaelabs/manifoldbot/internal/domain"
)

// runSnapshot is the JSON document uploaded for each archived run. It bundles
// the run header with the recommendations and skips it produced, so a single
// object is enough to reconstruct what the engine advised and why.
type runSnapshot struct {
	Run             domain.AdviceRun
	Recommendations []domain.SizedRecommendation
	Skips           []domain.Skip
}

// Archiver implements domain.RunArchiver by serializing completed runs to
// JSON and uploading them to the blob store. Each archive is recorded in the
// audit log with the object path.
//
// Archival never deletes anything from the primary store; history stays
// queryable in Postgres regardless.
type Archiver struct {
	writer domain.BlobWriter
	audit  domain.AuditStore
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer domain.BlobWriter, audit domain.AuditStore) *Archiver {
	return &Archiver{
		writer: writer,
		audit:  audit,
	}
}

// ArchiveRun serializes the run and its outputs and uploads the snapshot to
// runs/YYYY/MM/run-<id>.json, partitioned by the run's start month. The
// object path is returned and the archival event is recorded in the audit
// log.
func (a *Archiver) ArchiveRun(ctx context.Context, run domain.AdviceRun, recs []domain.SizedRecommendation, skips []domain.Skip) (string, error) {
	snapshot := runSnapshot{
		Run:             run,
		Recommendations: recs,
		Skips:           skips,
	}

	buf, err := marshalSnapshot(snapshot)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive run marshal: %w", err)
	}

	path := runPath(run)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive run upload: %w", err)
	}

	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.run", map[string]any{
			"path":            path,
			"run_id":          run.ID,
			"recommendations": len(recs),
			"skips":           len(skips),
		}); err != nil {
			return path, fmt.Errorf("s3blob: archive run audit log: %w", err)
		}
	}

	return path, nil
}

// runPath builds the S3 key for a run snapshot, partitioned by the UTC
// year and month the run started.
//
//	runs/2026/08/run-6b9f7c1e-....json
func runPath(run domain.AdviceRun) string {
	return fmt.Sprintf("runs/%s/run-%s.json", run.StartedAt.UTC().Format("2006/01"), run.ID)
}

// marshalSnapshot serialises a snapshot as indented JSON without HTML
// escaping, keeping market URLs readable in the stored object.
func marshalSnapshot(s runSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.RunArchiver = (*Archiver)(nil)
