// Package mongo loads the document collections maintained by the ingest
// scripts: NOAA regional HDD, Henry Hub spot prices, weekly storage, pipeline
// notices, and operationally available capacity postings.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/gasebb/gas-forecast-etl/internal/config"
	"github.com/gasebb/gas-forecast-etl/internal/domain"
)

const dayFormat = "2006-01-02"

// Store reads source series from MongoDB. Dates in the daily collections are
// stored as "YYYY-MM-DD" strings; notice timestamps are BSON dates.
type Store struct {
	client *mongo.Client
	db     *mongo.Database

	weatherCol  string
	priceCol    string
	storageCol  string
	noticesCol  string
	capacityCol string

	logger *slog.Logger
}

// NewStore connects to MongoDB and verifies the connection with a ping.
func NewStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Store{
		client:      client,
		db:          client.Database(cfg.MongoDB),
		weatherCol:  cfg.WeatherCollection,
		priceCol:    cfg.PriceCollection,
		storageCol:  cfg.StorageCollection,
		noticesCol:  cfg.NoticesCollection,
		capacityCol: cfg.CapacityCollection,
		logger:      logger,
	}, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// LoadWeatherDaily loads daily regional HDD rows for a pipeline, optionally
// narrowed to one region.
func (s *Store) LoadWeatherDaily(ctx context.Context, pipeline, regionID string, start, end time.Time) ([]domain.WeatherDay, error) {
	filter := bson.M{"pipeline": pipeline}
	if rng := dayRange(start, end); rng != nil {
		filter["date"] = rng
	}
	if regionID != "" {
		filter["region_id"] = regionID
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := s.db.Collection(s.weatherCol).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find weather: %w", err)
	}
	defer cur.Close(ctx)

	var days []domain.WeatherDay
	for cur.Next(ctx) {
		var doc weatherDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode weather: %w", err)
		}
		day, err := time.Parse(dayFormat, doc.Date)
		if err != nil {
			s.logger.Warn("skipping weather row with bad date", "date", doc.Date)
			continue
		}
		days = append(days, domain.WeatherDay{
			Date:         day.UTC(),
			Pipeline:     doc.Pipeline,
			RegionID:     doc.RegionID,
			HDDMean:      doc.HDDMean,
			HDDMedian:    doc.HDDMedian,
			StationsUsed: int(doc.StationsUsed),
			Source:       doc.Source,
		})
	}
	return days, cur.Err()
}

// LoadPriceDaily loads Henry Hub daily spot prices. Rows with null values
// are dropped.
func (s *Store) LoadPriceDaily(ctx context.Context, start, end time.Time) ([]domain.PriceDay, error) {
	filter := bson.M{}
	if rng := dayRange(start, end); rng != nil {
		filter["date"] = rng
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := s.db.Collection(s.priceCol).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find prices: %w", err)
	}
	defer cur.Close(ctx)

	var prices []domain.PriceDay
	for cur.Next(ctx) {
		var doc valueDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode price: %w", err)
		}
		day, err := time.Parse(dayFormat, doc.Date)
		if err != nil || doc.Value == nil {
			continue
		}
		prices = append(prices, domain.PriceDay{Date: day.UTC(), USDPerMMBtu: *doc.Value})
	}
	return prices, cur.Err()
}

// LoadStorageWeekly loads weekly working gas levels for a storage region.
func (s *Store) LoadStorageWeekly(ctx context.Context, region string, start, end time.Time) ([]domain.Observation, error) {
	filter := bson.M{}
	if region != "" {
		filter["region"] = region
	}
	if rng := dayRange(start, end); rng != nil {
		filter["date"] = rng
	}

	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}})
	cur, err := s.db.Collection(s.storageCol).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find storage: %w", err)
	}
	defer cur.Close(ctx)

	var obs []domain.Observation
	for cur.Next(ctx) {
		var doc valueDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode storage: %w", err)
		}
		day, err := time.Parse(dayFormat, doc.Date)
		if err != nil || doc.Value == nil {
			continue
		}
		obs = append(obs, domain.Observation{Date: day.UTC(), Value: *doc.Value})
	}
	return obs, cur.Err()
}

// LoadNotices loads pipeline notices posted within [start, end], end
// inclusive through end of day. With onlyActive set, notices whose end date
// has already passed are excluded.
func (s *Store) LoadNotices(ctx context.Context, start, end time.Time, onlyActive bool) ([]domain.Notice, error) {
	filter := bson.M{}
	posted := bson.M{}
	if !start.IsZero() {
		posted["$gte"] = start.UTC()
	}
	if !end.IsZero() {
		endOfDay := domain.FloorToDay(end).Add(24*time.Hour - time.Millisecond)
		posted["$lte"] = endOfDay
	}
	if len(posted) > 0 {
		filter["posted_dt"] = posted
	}
	if onlyActive {
		now := domain.Clock().Now().UTC()
		filter["$or"] = bson.A{
			bson.M{"end_dt": nil},
			bson.M{"end_dt": bson.M{"$gte": now}},
		}
	}

	opts := options.Find().SetSort(bson.D{{Key: "posted_dt", Value: 1}})
	cur, err := s.db.Collection(s.noticesCol).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find notices: %w", err)
	}
	defer cur.Close(ctx)

	var notices []domain.Notice
	for cur.Next(ctx) {
		var doc noticeDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode notice: %w", err)
		}
		n := domain.Notice{
			ID:       asString(doc.NoticeID),
			PostedAt: doc.PostedDt.UTC(),
			Critical: doc.Critical,
		}
		if doc.EffectiveDt != nil {
			n.EffectiveAt = doc.EffectiveDt.UTC()
		}
		if doc.EndDt != nil {
			n.EndAt = doc.EndDt.UTC()
		}
		notices = append(notices, n)
	}
	return notices, cur.Err()
}

// LoadCapacity loads operationally-available-capacity postings filtered by
// post date. Quantity fields arrive as strings with thousands separators or
// as numbers; unparseable quantities are kept with QtyParsedOK unset so the
// panel builder can exclude them from medians.
func (s *Store) LoadCapacity(ctx context.Context, start, end time.Time) ([]domain.CapacitySnapshot, error) {
	filter := bson.M{}
	if rng := dayRange(start, end); rng != nil {
		filter["Post_Date"] = rng
	}

	opts := options.Find().SetSort(bson.D{{Key: "Post_Date", Value: 1}, {Key: "Post_Time", Value: 1}})
	cur, err := s.db.Collection(s.capacityCol).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find capacity: %w", err)
	}
	defer cur.Close(ctx)

	var snaps []domain.CapacitySnapshot
	for cur.Next(ctx) {
		var doc capacityDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode capacity: %w", err)
		}
		day, err := time.Parse(dayFormat, doc.PostDate)
		if err != nil {
			s.logger.Warn("skipping capacity row with bad post date", "post_date", doc.PostDate)
			continue
		}

		snap := domain.CapacitySnapshot{
			PostedAt:     day.UTC(),
			LocationName: doc.LocName,
		}
		if qty, ok := asQuantity(doc.AllQtyAvail); ok {
			snap.AvailableQty = qty
			snap.QtyParsedOK = true
		}
		if qty, ok := asQuantity(doc.OperatingCapacity); ok {
			snap.OperatingCap = qty
		}
		if qty, ok := asQuantity(doc.TotalScheduledQty); ok {
			snap.ScheduledQty = qty
		}
		if effDay, err := time.Parse(dayFormat, doc.EffGasDay); err == nil {
			snap.EffectiveDate = effDay.UTC()
		}
		snaps = append(snaps, snap)
	}
	return snaps, cur.Err()
}

// dayRange builds an inclusive string-date range filter, or nil when both
// bounds are zero.
func dayRange(start, end time.Time) bson.M {
	rng := bson.M{}
	if !start.IsZero() {
		rng["$gte"] = start.Format(dayFormat)
	}
	if !end.IsZero() {
		rng["$lte"] = end.Format(dayFormat)
	}
	if len(rng) == 0 {
		return nil
	}
	return rng
}

// asString renders a document id that may be stored as a string or a number.
func asString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int32:
		return strconv.FormatInt(int64(t), 10)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// asQuantity coerces a posted quantity that may be numeric or a formatted
// string like "1,234,567".
func asQuantity(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		cleaned := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Document shapes as written by the ingest scripts.

type weatherDoc struct {
	Date         string  `bson:"date"`
	Pipeline     string  `bson:"pipeline"`
	RegionID     string  `bson:"region_id"`
	HDDMean      float64 `bson:"hdd_mean"`
	HDDMedian    float64 `bson:"hdd_median"`
	StationsUsed int32   `bson:"n_stations_used"`
	Source       string  `bson:"source"`
}

type valueDoc struct {
	Date  string   `bson:"date"`
	Value *float64 `bson:"value"`
}

type noticeDoc struct {
	NoticeID    any        `bson:"notice_id"`
	PostedDt    time.Time  `bson:"posted_dt"`
	EffectiveDt *time.Time `bson:"effective_dt"`
	EndDt       *time.Time `bson:"end_dt"`
	Critical    bool       `bson:"critical"`
}

type capacityDoc struct {
	PostDate          string `bson:"Post_Date"`
	PostTime          string `bson:"Post_Time"`
	LocName           string `bson:"Loc_Name"`
	AllQtyAvail       any    `bson:"All_Qty_Avail"`
	OperatingCapacity any    `bson:"Operating_Capacity"`
	TotalScheduledQty any    `bson:"Total_Scheduled_Quantity"`
	EffGasDay         string `bson:"Eff_Gas_Day"`
}
