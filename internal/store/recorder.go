package store

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/blackarb/arbengine/internal/types"
)

// Recorder persists engine state across the six time-series tables and
// enforces the retention policy on raw rows.
type Recorder struct {
	db *gorm.DB
}

// NewMySQLRecorder opens a MySQL-backed store, mirroring the teacher's
// NewMySQLRecorder dial-then-migrate pattern.
func NewMySQLRecorder(dsn string) (*Recorder, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	return newRecorderWithDB(db)
}

// NewSQLiteRecorder opens a sqlite-backed store, used for local runs and
// tests where a MySQL server isn't available.
func NewSQLiteRecorder(path string) (*Recorder, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	return newRecorderWithDB(db)
}

func newRecorderWithDB(db *gorm.DB) (*Recorder, error) {
	if err := db.AutoMigrate(
		&OpportunityRecord{},
		&ExecutionRecord{},
		&StatsSnapshotRecord{},
		&GasSampleRecord{},
		&ChainMetricRecord{},
		&AlertRecord{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return &Recorder{db: db}, nil
}

func (r *Recorder) DB() *gorm.DB { return r.db }

func (r *Recorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying DB: %w", err)
	}
	return sqlDB.Close()
}

// RecordOpportunity appends one scanner-tick snapshot of opp.
func (r *Recorder) RecordOpportunity(opp types.Opportunity) error {
	rec := OpportunityRecord{
		OpportunityId:  opp.Id,
		Chain:          int(opp.Chain),
		PairKey:        opp.Pair.Key(),
		BuyVenue:       string(opp.Buy.Venue.Name),
		SellVenue:      string(opp.Sell.Venue.Name),
		GrossSpreadBps: opp.GrossSpreadBps.String(),
		NetProfit:      opp.NetProfit.String(),
		Confidence:     opp.Confidence,
		Risk:           int(opp.Risk),
		Executable:     opp.Executable,
		RejectReason:   opp.RejectReason,
		SampledAt:      opp.FreshnessAt,
	}
	if result := r.db.Create(&rec); result.Error != nil {
		return fmt.Errorf("failed to record opportunity: %w", result.Error)
	}
	return nil
}

// RecordExecution upserts an execution's current state by ExecutionId.
func (r *Recorder) RecordExecution(exec types.Execution) error {
	var realized *string
	if exec.RealizedProfit != nil {
		s := exec.RealizedProfit.String()
		realized = &s
	}

	rec := ExecutionRecord{
		ExecutionId:    exec.Id,
		OpportunityId:  exec.OpportunitySnap.Id,
		Chain:          int(exec.Chain),
		State:          int(exec.State),
		Nonce:          exec.Nonce,
		GasPaid:        exec.GasPaid.String(),
		RealizedProfit: realized,
		RevertReason:   exec.RevertReason,
		StartedAt:      exec.StartedAt,
		EndedAt:        exec.EndedAt,
	}

	result := r.db.Where(ExecutionRecord{ExecutionId: exec.Id}).
		Assign(rec).
		FirstOrCreate(&ExecutionRecord{})
	if result.Error != nil {
		return fmt.Errorf("failed to record execution: %w", result.Error)
	}
	return nil
}

// NonTerminalExecutions loads every execution record whose state is not
// terminal, feeding the startup resumption check.
func (r *Recorder) NonTerminalExecutions() ([]ExecutionRecord, error) {
	var records []ExecutionRecord
	terminal := []int{int(types.Confirmed), int(types.Reverted), int(types.Failed), int(types.Cancelled)}
	result := r.db.Where("state NOT IN ?", terminal).Find(&records)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to load non-terminal executions: %w", result.Error)
	}
	return records, nil
}

// RecordStatsSnapshot appends one rollup row.
func (r *Recorder) RecordStatsSnapshot(rec StatsSnapshotRecord) error {
	rec.Timestamp = timeOrNow(rec.Timestamp)
	if result := r.db.Create(&rec); result.Error != nil {
		return fmt.Errorf("failed to record stats snapshot: %w", result.Error)
	}
	return nil
}

// RecordGasSample appends one chain's gas-price sample.
func (r *Recorder) RecordGasSample(rec GasSampleRecord) error {
	rec.SampledAt = timeOrNow(rec.SampledAt)
	if result := r.db.Create(&rec); result.Error != nil {
		return fmt.Errorf("failed to record gas sample: %w", result.Error)
	}
	return nil
}

// RecordChainMetric appends one chain's RPC-pool health sample.
func (r *Recorder) RecordChainMetric(rec ChainMetricRecord) error {
	rec.SampledAt = timeOrNow(rec.SampledAt)
	if result := r.db.Create(&rec); result.Error != nil {
		return fmt.Errorf("failed to record chain metric: %w", result.Error)
	}
	return nil
}

// RecordAlert appends one operator-facing alert.
func (r *Recorder) RecordAlert(severity, message string, chain types.ChainId) error {
	rec := AlertRecord{Severity: severity, Chain: int(chain), Message: message}
	if result := r.db.Create(&rec); result.Error != nil {
		return fmt.Errorf("failed to record alert: %w", result.Error)
	}
	return nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// Retention windows for raw rows, per §4.G. There is no downsampling
// pass: stats snapshots, gas samples, and chain metrics are stored and
// pruned at the same raw resolution they're sampled at, not rolled up
// into hourly/5-minute buckets.
const (
	OpportunityRawRetention = 7 * 24 * time.Hour
	StatsRawRetention       = 90 * 24 * time.Hour
	GasSampleRawRetention   = 30 * 24 * time.Hour
	ChainMetricRawRetention = 7 * 24 * time.Hour
	AlertRetention          = 30 * 24 * time.Hour
	// Executions are kept indefinitely as an audit trail.
)

// Sweep deletes rows past their series' raw retention window. It is meant to
// run periodically from a low-priority background task (the Retention
// worker role in §5), never inline with the scan/execution hot path.
func (r *Recorder) Sweep(now time.Time) error {
	cutoffs := []struct {
		model     interface{}
		column    string
		retention time.Duration
	}{
		{&OpportunityRecord{}, "sampled_at", OpportunityRawRetention},
		{&StatsSnapshotRecord{}, "timestamp", StatsRawRetention},
		{&GasSampleRecord{}, "sampled_at", GasSampleRawRetention},
		{&ChainMetricRecord{}, "sampled_at", ChainMetricRawRetention},
		{&AlertRecord{}, "created_at", AlertRetention},
	}

	for _, c := range cutoffs {
		cutoff := now.Add(-c.retention)
		if result := r.db.Where(fmt.Sprintf("%s < ?", c.column), cutoff).Delete(c.model); result.Error != nil {
			return fmt.Errorf("failed to sweep %T: %w", c.model, result.Error)
		}
	}
	return nil
}
