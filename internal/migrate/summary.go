package migrate

import (
	"time"

	"legacy-sync/internal/dump"
	"legacy-sync/internal/relations"
	"legacy-sync/internal/rows"
)

// maxUnresolvedListed caps the unresolved references kept for review.
const maxUnresolvedListed = 200

// BatchFailure records a batch whose writes did not happen.
type BatchFailure struct {
	Stage      string `json:"stage"` // "mirror" or "upsert"
	Collection string `json:"collection,omitempty"`
	FirstID    int64  `json:"first_id"`
	LastID     int64  `json:"last_id"`
	Records    int    `json:"records"`
	Error      string `json:"error"`
}

// UnresolvedAsset is a legacy reference left unmodified.
type UnresolvedAsset struct {
	RecordID int64  `json:"record_id"`
	URL      string `json:"url"`
}

// Summary reports a run: counts per error category plus progress counters.
type Summary struct {
	RunID      string    `json:"run_id"`
	State      State     `json:"state"`
	FailReason string    `json:"fail_reason,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Scan  dump.ScanStats  `json:"scan"`
	Rows  rows.Stats      `json:"rows"`
	Index relations.Stats `json:"index"`

	RowsParsed  int `json:"rows_parsed"`
	RowsSkipped int `json:"rows_skipped"`

	Selected    int `json:"selected"`
	Transformed int `json:"transformed"`
	Unchanged   int `json:"unchanged"`
	Written     int `json:"written"`

	WriteFailures int            `json:"write_failures"`
	FailedBatches []BatchFailure `json:"failed_batches,omitempty"`

	AssetsRewritten  int               `json:"assets_rewritten"`
	AssetsUnresolved int               `json:"assets_unresolved"`
	Strategies       map[string]int    `json:"strategies"`
	AssetsMirrored   int               `json:"assets_mirrored"`
	MirrorFailures   int               `json:"mirror_failures"`
	UnresolvedAssets []UnresolvedAsset `json:"unresolved_assets,omitempty"`
}

func newSummary(runID string) *Summary {
	return &Summary{
		RunID:      runID,
		State:      StateIdle,
		StartedAt:  time.Now().UTC(),
		Strategies: make(map[string]int),
	}
}

func (s *Summary) addUnresolved(recordID int64, url string) {
	s.AssetsUnresolved++
	if len(s.UnresolvedAssets) < maxUnresolvedListed {
		s.UnresolvedAssets = append(s.UnresolvedAssets, UnresolvedAsset{RecordID: recordID, URL: url})
	}
}

func (s *Summary) addFailure(f BatchFailure) {
	s.WriteFailures++
	s.FailedBatches = append(s.FailedBatches, f)
}
