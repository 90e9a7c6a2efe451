package domain

import "time"

// WeatherDay is one day of regional heating-degree-day aggregates for a
// pipeline's demand region, produced upstream from GHCN-D station data.
type WeatherDay struct {
	Date         time.Time `json:"date" bson:"date"`
	Pipeline     string    `json:"pipeline" bson:"pipeline"`
	RegionID     string    `json:"region_id" bson:"region_id"`
	HDDMean      float64   `json:"hdd_mean" bson:"hdd_mean"`
	HDDMedian    float64   `json:"hdd_median" bson:"hdd_median"`
	StationsUsed int       `json:"n_stations_used" bson:"n_stations_used"`
	Source       string    `json:"source,omitempty" bson:"source,omitempty"`
}

// PriceDay is one daily Henry Hub spot price observation.
type PriceDay struct {
	Date        time.Time `json:"date" bson:"date"`
	USDPerMMBtu float64   `json:"henry_hub_usd_per_mmbtu" bson:"value"`
}

// Observation is a generic dated value, the unit of work for the
// forward-fill aligner. Weekly storage levels load into this shape.
type Observation struct {
	Date  time.Time `json:"date" bson:"date"`
	Value float64   `json:"value" bson:"value"`
}

// CapacitySnapshot is one row from a pipeline's operationally-available-
// capacity posting. Postings are intraday; several snapshots per location
// per day are normal.
type CapacitySnapshot struct {
	PostedAt      time.Time `json:"posted_at" bson:"posted_at"`
	LocationName  string    `json:"loc_name,omitempty" bson:"loc_name,omitempty"`
	AvailableQty  float64   `json:"all_qty_avail" bson:"all_qty_avail"`
	OperatingCap  float64   `json:"operating_capacity,omitempty" bson:"operating_capacity,omitempty"`
	ScheduledQty  float64   `json:"total_scheduled_qty,omitempty" bson:"total_scheduled_qty,omitempty"`
	QtyParsedOK   bool      `json:"-" bson:"-"`
	EffectiveDate time.Time `json:"eff_gas_day,omitempty" bson:"eff_gas_day,omitempty"`
}

// Notice is an operational notice posted by a pipeline's electronic
// bulletin board. EffectiveAt and EndAt are optional; the zero time means
// the bulletin board did not state one.
type Notice struct {
	ID          string    `json:"notice_id" bson:"notice_id"`
	PostedAt    time.Time `json:"posted_at" bson:"posted_at"`
	EffectiveAt time.Time `json:"effective_at,omitempty" bson:"effective_at,omitempty"`
	EndAt       time.Time `json:"end_at,omitempty" bson:"end_at,omitempty"`
	Critical    bool      `json:"critical" bson:"critical"`
}

// StressDay is the daily operational-stress signal derived from notices.
// Days never touched by a notice's validity window do not appear; the
// panel builder zero-fills them on join.
type StressDay struct {
	Date              time.Time `json:"date"`
	ActiveNoticeCount int       `json:"notice_active_count"`
	CriticalActive    bool      `json:"critical_active"`
	StressEvent       int       `json:"stress_event"`
}

// PanelRow is one day of the merged feature panel. Pointer-valued fields
// are null where the source had no matching observation. The stress and
// capacity columns are zero-filled rather than null: an absent notice or
// capacity posting means nothing happened, not that measurement is missing.
type PanelRow struct {
	Date      time.Time `json:"date"`
	HDDMean   *float64  `json:"hdd_mean,omitempty"`
	HDDMedian *float64  `json:"hdd_median,omitempty"`

	Price       *float64 `json:"henry_hub_usd_per_mmbtu,omitempty"`
	PriceLog    *float64 `json:"hh_log,omitempty"`
	PriceReturn *float64 `json:"hh_ret,omitempty"`

	StorageBcf *float64 `json:"working_gas_bcf,omitempty"`

	ActiveNoticeCount int  `json:"notice_active_count"`
	CriticalActive    bool `json:"critical_active"`
	StressEvent       int  `json:"stress_event"`

	CapacityAvailMedian float64 `json:"all_qty_avail_median"`
}

// ForecastAlert is the serialized outcome of one forecast evaluation,
// published to the sink topic and exposed over HTTP.
type ForecastAlert struct {
	Model        string             `json:"model"`
	GeneratedAt  time.Time          `json:"generated_at"`
	PanelEndDate time.Time          `json:"panel_end_date"`
	Threshold    float64            `json:"threshold"`
	Probability  float64            `json:"probability"`
	Inputs       map[string]float64 `json:"inputs"`
}

// Float returns a pointer to v, for building nullable panel columns.
func Float(v float64) *float64 { return &v }
