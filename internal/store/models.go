// Package store persists the engine's time-series state: opportunities,
// executions, periodic stats snapshots, gas samples, chain health metrics,
// and alerts, generalizing the teacher's single AssetSnapshotRecord/
// MySQLRecorder pairing into six tables with a retention sweeper.
package store

import "time"

// OpportunityRecord is one scanner tick's worth of a logical opportunity.
type OpportunityRecord struct {
	ID             uint      `gorm:"primaryKey;autoIncrement"`
	OpportunityId  string    `gorm:"index;not null"`
	Chain          int       `gorm:"index;not null"`
	PairKey        string    `gorm:"index;not null"`
	BuyVenue       string    `gorm:"not null"`
	SellVenue      string    `gorm:"not null"`
	GrossSpreadBps string    `gorm:"type:varchar(78);not null"`
	NetProfit      string    `gorm:"type:varchar(78);not null"`
	Confidence     float64   `gorm:"not null"`
	Risk           int       `gorm:"not null"`
	Executable     bool      `gorm:"not null"`
	RejectReason   string    `gorm:"type:varchar(255)"`
	SampledAt      time.Time `gorm:"index;not null"`
}

func (OpportunityRecord) TableName() string { return "opportunities" }

// ExecutionRecord is one attempted trade, upserted by ExecutionId each time
// it is recorded; the executor records it once, after Submit returns, so
// intermediate state transitions are not written.
type ExecutionRecord struct {
	ID              uint       `gorm:"primaryKey;autoIncrement"`
	ExecutionId     string     `gorm:"uniqueIndex;not null"`
	OpportunityId   string     `gorm:"index;not null"`
	Chain           int        `gorm:"index;not null"`
	State           int        `gorm:"index;not null"`
	Nonce           uint64     `gorm:"not null"`
	GasPaid         string     `gorm:"type:varchar(78);not null"`
	RealizedProfit  *string    `gorm:"type:varchar(78)"`
	RevertReason    string     `gorm:"type:varchar(255)"`
	StartedAt       time.Time  `gorm:"index;not null"`
	EndedAt         *time.Time `gorm:"index"`
}

func (ExecutionRecord) TableName() string { return "executions" }

// StatsSnapshotRecord is a periodic engine-wide rollup used by the §4.H
// /stats endpoint and dashboards downstream of it.
type StatsSnapshotRecord struct {
	ID                  uint      `gorm:"primaryKey;autoIncrement"`
	Timestamp           time.Time `gorm:"index;not null"`
	OpenOpportunities   int       `gorm:"not null"`
	InFlightExecutions  int       `gorm:"not null"`
	CumulativeRealized  string    `gorm:"type:varchar(78);not null"`
	CumulativeGasSpent  string    `gorm:"type:varchar(78);not null"`
	ConfirmedCount      int       `gorm:"not null"`
	RevertedCount       int       `gorm:"not null"`
}

func (StatsSnapshotRecord) TableName() string { return "stats_snapshots" }

// GasSampleRecord is one chain's gas-price sample with its EMA, stored at
// the raw sampling resolution (no downsampling is applied).
type GasSampleRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Chain     int       `gorm:"index;not null"`
	GasPrice  string    `gorm:"type:varchar(78);not null"`
	SmoothedEMA string  `gorm:"type:varchar(78);not null"`
	SampledAt time.Time `gorm:"index;not null"`
}

func (GasSampleRecord) TableName() string { return "gas_samples" }

// ChainMetricRecord tracks one chain's RPC-pool health over time.
type ChainMetricRecord struct {
	ID               uint      `gorm:"primaryKey;autoIncrement"`
	Chain            int       `gorm:"index;not null"`
	HealthyEndpoints int       `gorm:"not null"`
	DegradedEndpoints int      `gorm:"not null"`
	DownEndpoints    int       `gorm:"not null"`
	BlockHeight      uint64    `gorm:"not null"`
	SampledAt        time.Time `gorm:"index;not null"`
}

func (ChainMetricRecord) TableName() string { return "chain_metrics" }

// AlertRecord is an operator-facing notable event: a chain going fatal, an
// execution failing outside the expected taxonomy, a circuit breaker trip.
type AlertRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Severity  string    `gorm:"index;not null"` // info, warning, critical
	Chain     int       `gorm:"index"`
	Message   string    `gorm:"type:varchar(500);not null"`
	CreatedAt time.Time `gorm:"index;autoCreateTime"`
}

func (AlertRecord) TableName() string { return "alerts" }
