// Package statsevents publishes per-feature statistics results to Kafka.
package statsevents

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb"

	"github.com/mohammed-shakir/soilgrids-stats/internal/stats"
)

type Event struct {
	Provider    string        `json:"provider"`
	Layer       string        `json:"layer"`
	RequestID   string        `json:"request_id,omitempty"`
	Feature     int           `json:"feature"`
	Fingerprint string        `json:"fingerprint"`
	Statistics  stats.Summary `json:"statistics"`
	Unit        *string       `json:"unit"`
	Cells       int           `json:"cells"`
	AreaHa      float64       `json:"area_ha"`
	TS          time.Time     `json:"ts"`
}

// Fingerprint hashes a layer id and polygon. Identical requests map to the
// same Kafka key, so they land on the same partition.
func Fingerprint(layer string, p orb.Polygon) string {
	d := xxhash.New()
	_, _ = d.WriteString(layer)
	var buf [8]byte
	for _, ring := range p {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(ring)))
		_, _ = d.Write(buf[:])
		for _, pt := range ring {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(pt[0]))
			_, _ = d.Write(buf[:])
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(pt[1]))
			_, _ = d.Write(buf[:])
		}
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

type Publisher struct {
	logger  *slog.Logger
	topic   string
	events  chan Event
	prod    sarama.AsyncProducer
	dedupe  *resultDedupe
	stopped chan struct{}
	errDone chan struct{}
	once    sync.Once
}

type Options struct {
	Brokers []string
	Topic   string
	Queue   int
	Dedupe  int
}

func NewPublisher(logger *slog.Logger, opts Options) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(opts.Brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("statsevents: create async producer: %w", err)
	}
	return newWithProducer(logger, prod, opts), nil
}

func newWithProducer(logger *slog.Logger, prod sarama.AsyncProducer, opts Options) *Publisher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.Queue <= 0 {
		opts.Queue = 1024
	}
	p := &Publisher{
		logger:  logger,
		topic:   opts.Topic,
		events:  make(chan Event, opts.Queue),
		prod:    prod,
		dedupe:  newResultDedupe(opts.Dedupe),
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.logger.Warn("statsevents: marshal", "err", err)
				continue
			}
			p.prod.Input() <- &sarama.ProducerMessage{
				Topic: p.topic,
				Key:   sarama.StringEncoder(ev.Fingerprint),
				Value: sarama.ByteEncoder(b),
			}
		}
	}()

	go func() {
		defer close(p.errDone)
		for err := range p.prod.Errors() {
			if err != nil {
				p.logger.Warn("statsevents: producer error", "err", err)
			}
		}
	}()

	return p
}

// Publish enqueues ev without blocking. Events are dropped when the queue is
// full or when the same fingerprint last produced identical statistics. Only
// enqueued events count as published for that comparison.
func (p *Publisher) Publish(ev Event) bool {
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	digest := summaryDigest(ev)
	if p.dedupe.seen(ev.Fingerprint, digest) {
		return false
	}
	select {
	case p.events <- ev:
		p.dedupe.record(ev.Fingerprint, digest)
		return true
	default:
		return false
	}
}

func (p *Publisher) Close() error {
	var err error
	p.once.Do(func() {
		close(p.events)
		<-p.stopped
		if cerr := p.prod.Close(); cerr != nil {
			err = fmt.Errorf("statsevents: close producer: %w", cerr)
		}
		<-p.errDone
	})
	return err
}

func summaryDigest(ev Event) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, v := range []float64{ev.Statistics.Mean, ev.Statistics.Min, ev.Statistics.Max, ev.Statistics.Std, float64(ev.Cells)} {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
