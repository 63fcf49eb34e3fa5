package outputs

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"

	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/config"
	"github.com/nickborgers/monorepo/web-vitals-monitor/internal/models"
)

var errElasticsearchClosing = errors.New("elasticsearch output is shutting down")

// ElasticsearchOutput pushes metric reports to Elasticsearch
type ElasticsearchOutput struct {
	config        *config.ElasticsearchConfig
	client        *elasticsearch.Client
	bulkIndexer   esutil.BulkIndexer
	logger        *slog.Logger
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	reportChannel chan *models.Report
}

// NewElasticsearchOutput creates a new Elasticsearch output
func NewElasticsearchOutput(cfg *config.ElasticsearchConfig, logger *slog.Logger) (*ElasticsearchOutput, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	esCfg := elasticsearch.Config{
		Addresses:     []string{cfg.Endpoint},
		RetryOnStatus: []int{502, 503, 504, 429},
		MaxRetries:    cfg.MaxRetries,
	}
	if cfg.RetryBackoff > 0 {
		esCfg.RetryBackoff = func(attempt int) time.Duration {
			return time.Duration(attempt) * cfg.RetryBackoff
		}
	}

	if cfg.APIKey != "" {
		esCfg.APIKey = cfg.APIKey
	} else if cfg.Username != "" && cfg.Password != "" {
		esCfg.Username = cfg.Username
		esCfg.Password = cfg.Password
	}

	if cfg.TLSSkipVerify {
		esCfg.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true,
			},
		}
	}

	client, err := elasticsearch.NewClient(esCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}

	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned error: %s", res.Status())
	}

	logger.Info("connected to Elasticsearch", "endpoint", cfg.Endpoint)

	bulkIndexer, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:        client,
		NumWorkers:    2,
		FlushBytes:    cfg.BulkSize * 1024,
		FlushInterval: cfg.FlushInterval,
		OnError: func(ctx context.Context, err error) {
			logger.Error("Elasticsearch bulk indexer error", "error", err)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	e := &ElasticsearchOutput{
		config:        cfg,
		client:        client,
		bulkIndexer:   bulkIndexer,
		logger:        logger,
		ctx:           ctx,
		cancel:        cancel,
		reportChannel: make(chan *models.Report, 100),
	}

	e.wg.Add(1)
	go e.processReports()

	return e, nil
}

func (e *ElasticsearchOutput) processReports() {
	defer e.wg.Done()

	for {
		select {
		case <-e.ctx.Done():
			return
		case report := <-e.reportChannel:
			if err := e.indexReport(report); err != nil {
				e.logger.Error("failed to index report", "report_id", report.ReportID, "error", err)
			}
		}
	}
}

// indexReport adds a single report to the bulk indexer. The report id is the
// document id so a re-delivered report overwrites instead of duplicating.
func (e *ElasticsearchOutput) indexReport(report *models.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	return e.bulkIndexer.Add(
		e.ctx,
		esutil.BulkIndexerItem{
			Action:     "index",
			Index:      formatIndexName(e.config.IndexPattern, report.Timestamp),
			DocumentID: report.ReportID,
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					e.logger.Error("Elasticsearch indexing error", "error", err)
				} else {
					e.logger.Error("Elasticsearch indexing failed", "type", res.Error.Type, "reason", res.Error.Reason)
				}
			},
		},
	)
}

// formatIndexName expands %{+yyyy.MM.dd}, %{+yyyy.MM} and %{+yyyy} in pattern
func formatIndexName(pattern string, t time.Time) string {
	t = t.UTC()
	r := strings.NewReplacer(
		"%{+yyyy.MM.dd}", t.Format("2006.01.02"),
		"%{+yyyy.MM}", t.Format("2006.01"),
		"%{+yyyy}", t.Format("2006"),
	)
	return r.Replace(pattern)
}

// Write queues a report for indexing
func (e *ElasticsearchOutput) Write(report *models.Report) error {
	if e == nil {
		return nil
	}

	select {
	case e.reportChannel <- report:
		return nil
	case <-e.ctx.Done():
		return errElasticsearchClosing
	default:
		e.logger.Warn("Elasticsearch report channel is full, dropping report", "report_id", report.ReportID)
		return nil
	}
}

// Name returns the output module name
func (e *ElasticsearchOutput) Name() string {
	return "elasticsearch"
}

// Close flushes pending documents and closes the connection
func (e *ElasticsearchOutput) Close() error {
	if e == nil {
		return nil
	}

	e.logger.Info("shutting down Elasticsearch output")

	e.cancel()
	e.wg.Wait()

	if err := e.bulkIndexer.Close(context.Background()); err != nil {
		e.logger.Error("error closing Elasticsearch bulk indexer", "error", err)
		return err
	}

	stats := e.bulkIndexer.Stats()
	e.logger.Info("Elasticsearch indexer stats", "indexed", stats.NumIndexed, "failed", stats.NumFailed)

	return nil
}
