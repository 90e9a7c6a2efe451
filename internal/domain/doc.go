// Package domain models the gas-market time series feeding the daily
// feature panel and the forecast models.
//
// # Data Sources
//
// Weather: daily heating-degree-day (HDD) aggregates over a pipeline's
// demand region, computed upstream from NOAA GHCN-D station files. HDD is
// max(0, 65F - mean daily temperature); regional mean and median across
// stations are both stored.
//
// Prices: Henry Hub natural gas spot prices from the EIA open-data API,
// series RNGWHHD, in USD per MMBtu. Daily, business days only; the panel
// carries nulls on days without a print.
//
// Storage: EIA weekly working gas in underground storage, in Bcf, one
// observation per report week. Forward-filled to daily by
// [ForwardFillDaily] before joining.
//
// Notices: operational notices scraped from pipeline electronic bulletin
// boards. A notice carries posted/effective/end instants and a critical
// flag. Bulletin boards routinely omit effective and end timestamps:
// a missing effective time falls back to the posted time, and a missing
// end time is treated as a same-day notice rather than an open-ended one,
// so that silence never inflates the stress signal.
//
// Capacity: operationally-available-capacity postings, several intraday
// snapshots per location per day. The panel keeps one number per day, the
// median available quantity across that day's snapshots.
//
// # Daily Stress Signal
//
// [BuildStressSignal] expands each notice over its inclusive validity
// window and aggregates per day: the count of distinct active notice ids,
// whether any active notice is critical, and a 0/1 stress event flag that
// is set exactly when a critical notice is active. Days no notice touches
// are absent from the signal; the panel builder zero-fills them, because
// "no notice" means calm operations, not a missing measurement.
//
// # Calendar Conventions
//
// All joins are by calendar day, timezone-naive: instants are floored to
// midnight UTC by [FloorToDay]. Series are sorted ascending and
// deduplicated by date (last occurrence wins) before any rolling or
// lagged computation.
package domain
