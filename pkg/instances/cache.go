package instances

import (
	"context"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/younsl/ec2spot/internal/models"
)

// DefaultFetchTimeout bounds a single upstream fetch
const DefaultFetchTimeout = 30 * time.Second

const refreshKey = "instances"

// Source provides the raw instances.json document
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	Location() string
}

// Cache holds the current instance type dataset and refreshes it from its
// Source once it has expired. All reads check for expiry first.
type Cache struct {
	source       Source
	ttl          time.Duration
	clock        clock.Clock
	logger       logrus.FieldLogger
	fetchTimeout time.Duration

	mu      sync.RWMutex
	current *models.Dataset

	group singleflight.Group
}

// Option configures a Cache
type Option func(*Cache)

// WithClock sets the clock used for expiry decisions
func WithClock(clk clock.Clock) Option {
	return func(c *Cache) {
		c.clock = clk
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithFetchTimeout sets the timeout of a single upstream fetch
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

// New creates a Cache reading from src. A ttl of zero or less makes every
// read fetch the dataset again.
func New(src Source, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		source:       src,
		ttl:          ttl,
		clock:        clock.WallClock,
		logger:       logrus.StandardLogger(),
		fetchTimeout: DefaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TTL returns the configured time-to-live
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Location returns the identifier of the upstream source
func (c *Cache) Location() string {
	return c.source.Location()
}

// Snapshot returns the current dataset without checking its expiry.
// It returns nil before the first successful fetch.
func (c *Cache) Snapshot() *models.Dataset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// GetAll returns the current dataset, refreshing it first if it has expired.
// When the refresh fails the previous dataset (nil if there is none) is
// returned together with a *FetchError.
func (c *Cache) GetAll(ctx context.Context) (*models.Dataset, error) {
	return c.ensureFresh(ctx)
}

// GetTypes returns the sorted names of the instance types matching every
// filter in f, along with the dataset they were selected from.
func (c *Cache) GetTypes(ctx context.Context, f models.Filters) ([]string, *models.Dataset, error) {
	ds, err := c.ensureFresh(ctx)
	if err != nil {
		return nil, ds, err
	}
	return FilterTypes(ds.Instances, f), ds, nil
}

// GetType returns the record of a single instance type. Unknown names yield
// a *NotFoundError.
func (c *Cache) GetType(ctx context.Context, name string) (models.InstanceRecord, *models.Dataset, error) {
	ds, err := c.ensureFresh(ctx)
	if err != nil {
		return models.InstanceRecord{}, ds, err
	}
	record, ok := ds.Instances[name]
	if !ok {
		return models.InstanceRecord{}, ds, &NotFoundError{InstanceType: name}
	}
	return record, ds, nil
}

// Refresh fetches the dataset regardless of its expiry
func (c *Cache) Refresh(ctx context.Context) (*models.Dataset, error) {
	v, err, _ := c.group.Do(refreshKey, func() (any, error) {
		return c.refresh(ctx)
	})
	if err != nil {
		return c.Snapshot(), err
	}
	return v.(*models.Dataset), nil
}

func (c *Cache) expired(ds *models.Dataset) bool {
	return ds == nil || !c.clock.Now().Before(ds.ExpireAt)
}

// ensureFresh returns a non-expired dataset. Concurrent callers that find
// the dataset expired share a single fetch; the expiry is checked again
// inside the flight so a caller arriving just after a completed refresh
// does not fetch a second time.
func (c *Cache) ensureFresh(ctx context.Context) (*models.Dataset, error) {
	if ds := c.Snapshot(); !c.expired(ds) {
		return ds, nil
	}

	v, err, _ := c.group.Do(refreshKey, func() (any, error) {
		if ds := c.Snapshot(); !c.expired(ds) {
			return ds, nil
		}
		return c.refresh(ctx)
	})
	if err != nil {
		return c.Snapshot(), err
	}
	return v.(*models.Dataset), nil
}

func (c *Cache) refresh(ctx context.Context) (*models.Dataset, error) {
	location := c.source.Location()
	log := c.logger.WithField("source", location)

	// Detached from the starting caller: other callers may be waiting on this flight.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	defer cancel()

	log.Debug("Refreshing instances cache")
	body, err := c.source.Fetch(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to fetch instance data, keeping previous dataset")
		return nil, &FetchError{Source: location, Err: err}
	}

	records, err := Reshape(body)
	if err != nil {
		log.WithError(err).Warn("Failed to parse instance data, keeping previous dataset")
		return nil, &FetchError{Source: location, Err: err}
	}

	now := c.clock.Now()
	ds := &models.Dataset{
		Instances:   records,
		FetchedFrom: location,
		FetchedAt:   now,
		ExpireAt:    now.Add(c.ttl),
		SizeBytes:   len(body),
	}

	c.mu.Lock()
	c.current = ds
	c.mu.Unlock()

	log.WithFields(logrus.Fields{
		"instanceTypes": len(records),
		"size":          humanize.Bytes(uint64(len(body))),
		"expireAt":      ds.ExpireAt.Format(time.RFC3339),
	}).Info("Instances cache refreshed")

	return ds, nil
}
