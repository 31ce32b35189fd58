package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// VotesTotal counts applied votes by target kind and ledger action.
	VotesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_votes_total",
		Help: "Total number of votes applied by target and action",
	}, []string{"target", "action"})

	// PostsCreated counts newly created posts.
	PostsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forum_posts_created_total",
		Help: "Total number of posts created",
	})

	// CommentsCreated counts newly created comments and replies.
	CommentsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forum_comments_created_total",
		Help: "Total number of comments created",
	})

	// UploadsTotal counts file uploads by kind (avatar, attachment) and result.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_uploads_total",
		Help: "Total number of file uploads by kind and result",
	}, []string{"kind", "result"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forum_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forum_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})
)

const queryStartKey = "forum:query_start"

// DatabaseMetrics is a gorm plugin that records query latency per operation and table.
type DatabaseMetrics struct{}

// NewDatabaseMetrics returns a new DatabaseMetrics plugin.
func NewDatabaseMetrics() *DatabaseMetrics {
	return &DatabaseMetrics{}
}

// Name implements gorm.Plugin.
func (*DatabaseMetrics) Name() string { return "forum:metrics" }

// Initialize registers before/after callbacks on every gorm processor.
func (m *DatabaseMetrics) Initialize(db *gorm.DB) error {
	type hook struct {
		op       string
		register func(before, after func(*gorm.DB)) error
	}
	cb := db.Callback()
	hooks := []hook{
		{"create", func(b, a func(*gorm.DB)) error {
			if err := cb.Create().Before("gorm:create").Register("forum:before_create", b); err != nil {
				return err
			}
			return cb.Create().After("gorm:create").Register("forum:after_create", a)
		}},
		{"query", func(b, a func(*gorm.DB)) error {
			if err := cb.Query().Before("gorm:query").Register("forum:before_query", b); err != nil {
				return err
			}
			return cb.Query().After("gorm:query").Register("forum:after_query", a)
		}},
		{"update", func(b, a func(*gorm.DB)) error {
			if err := cb.Update().Before("gorm:update").Register("forum:before_update", b); err != nil {
				return err
			}
			return cb.Update().After("gorm:update").Register("forum:after_update", a)
		}},
		{"delete", func(b, a func(*gorm.DB)) error {
			if err := cb.Delete().Before("gorm:delete").Register("forum:before_delete", b); err != nil {
				return err
			}
			return cb.Delete().After("gorm:delete").Register("forum:after_delete", a)
		}},
		{"raw", func(b, a func(*gorm.DB)) error {
			if err := cb.Raw().Before("gorm:raw").Register("forum:before_raw", b); err != nil {
				return err
			}
			return cb.Raw().After("gorm:raw").Register("forum:after_raw", a)
		}},
	}
	for _, h := range hooks {
		if err := h.register(m.before, m.after(h.op)); err != nil {
			return err
		}
	}
	return nil
}

func (*DatabaseMetrics) before(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (m *DatabaseMetrics) after(op string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := v.(time.Time)
		if !ok {
			return
		}
		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		m.ObserveQuery(op, table, start)
	}
}

// ObserveQuery records the latency of a database query.
func (*DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
