package logger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoQueueSize  = 4096
	mongoBatchSize  = 50
	mongoDrainTick  = 2 * time.Second
	mongoCollection = "logs"
)

// LogDocument is the shape written to MongoDB.
type LogDocument struct {
	Time      time.Time `bson:"time"`
	Level     string    `bson:"level"`
	Msg       string    `bson:"msg"`
	RequestID string    `bson:"request_id,omitempty"`
	Attrs     bson.M    `bson:"attrs,omitempty"`
}

// batchWriter is the part of *mongo.Collection the sink needs.
type batchWriter interface {
	InsertMany(ctx context.Context, docs []interface{}) error
}

type collectionWriter struct{ col *mongo.Collection }

func (w collectionWriter) InsertMany(ctx context.Context, docs []interface{}) error {
	_, err := w.col.InsertMany(ctx, docs)
	return err
}

// MongoHandler is a slog.Handler that stores records in MongoDB from a
// background goroutine. Handle never blocks: when the queue is full the
// record is dropped. Only records at or above minLevel are kept.
type MongoHandler struct {
	out      batchWriter
	client   *mongo.Client
	queue    chan LogDocument
	done     chan struct{}
	stopped  chan struct{}
	once     *sync.Once
	minLevel slog.Level
	attrs    []slog.Attr
	group    string
}

// NewMongoHandler connects to uri and writes to <db>.logs.
// The caller must call Close on shutdown.
func NewMongoHandler(uri, db string, minLevel slog.Level) (*MongoHandler, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(uri).
		SetConnectTimeout(5 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("logger/mongo: connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("logger/mongo: ping: %w", err)
	}

	col := client.Database(db).Collection(mongoCollection)
	_, _ = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "time", Value: -1}},
	})

	h := newMongoHandler(collectionWriter{col: col}, minLevel)
	h.client = client
	return h, nil
}

func newMongoHandler(out batchWriter, minLevel slog.Level) *MongoHandler {
	h := &MongoHandler{
		out:      out,
		queue:    make(chan LogDocument, mongoQueueSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		once:     &sync.Once{},
		minLevel: minLevel,
	}
	go h.drainLoop()
	return h
}

func (h *MongoHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.minLevel
}

func (h *MongoHandler) Handle(_ context.Context, r slog.Record) error {
	doc := LogDocument{
		Time:  r.Time,
		Level: r.Level.String(),
		Msg:   r.Message,
		Attrs: bson.M{},
	}

	add := func(a slog.Attr) {
		if a.Key == "request_id" {
			doc.RequestID = a.Value.String()
			return
		}
		key := a.Key
		if h.group != "" {
			key = h.group + "." + key
		}
		doc.Attrs[key] = a.Value.Resolve().Any()
	}
	for _, a := range h.attrs {
		add(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		add(a)
		return true
	})

	select {
	case h.queue <- doc:
	default:
	}
	return nil
}

func (h *MongoHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *MongoHandler) WithGroup(name string) slog.Handler {
	next := *h
	if next.group == "" {
		next.group = name
	} else {
		next.group = next.group + "." + name
	}
	return &next
}

func (h *MongoHandler) drainLoop() {
	defer close(h.stopped)

	ticker := time.NewTicker(mongoDrainTick)
	defer ticker.Stop()

	batch := make([]interface{}, 0, mongoBatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.out.InsertMany(ctx, batch)
		batch = batch[:0]
	}

	for {
		select {
		case doc := <-h.queue:
			batch = append(batch, doc)
			if len(batch) >= mongoBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-h.done:
			for len(h.queue) > 0 {
				batch = append(batch, <-h.queue)
			}
			flush()
			return
		}
	}
}

// Close flushes queued records and disconnects. Safe to call more than once.
func (h *MongoHandler) Close() {
	h.once.Do(func() { close(h.done) })
	<-h.stopped

	if h.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.client.Disconnect(ctx)
	}
}
