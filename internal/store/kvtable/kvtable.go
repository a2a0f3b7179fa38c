// Package kvtable implements store.Driver against a DynamoDB-style
// partition/sort-key table pair (spec §4.3 "KV-table"), using
// aws/aws-sdk-go's dynamodb service client — the only DynamoDB-capable
// dependency anywhere in the example pack.
//
// Two tables: VERSION (pk versionId, sk createdAt) and DATA (pk versionId,
// sk dataId). Writes batch through BatchWriteItem, throttled by
// golang.org/x/time/rate so a large clone run doesn't trip provisioned
// throughput limits.
package kvtable

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"golang.org/x/time/rate"

	"github.com/monctl/monctl/internal/store"
)

func init() {
	store.Register("kvtable", func(ctx context.Context, cfg any, logger *slog.Logger) (store.Driver, error) {
		c, ok := cfg.(Config)
		if !ok {
			return nil, fmt.Errorf("kvtable: expected kvtable.Config, got %T", cfg)
		}
		return New(c, logger)
	})
}

// MaxRecordSize is the ceiling this backend enforces on each record's
// compressed payload (spec §4.3): DynamoDB's 400 KiB item limit. Attribute
// overhead is not subtracted from it.
const MaxRecordSize = 400 * 1024

// batchSize is the max items BatchWriteItem accepts per call.
const batchSize = 25

// DefaultVersionTTL is how long a tombstoned version row is kept before a
// TTL sweep removes it (resolved Open Question 3: lazy deletion for this
// backend).
const DefaultVersionTTL = 24 * time.Hour

// Config configures table names and the throttle rate.
type Config struct {
	Region         string
	Endpoint       string
	VersionTable   string
	DataTable      string
	WriteRateLimit rate.Limit
}

// dynamoAPI is the subset of *dynamodb.DynamoDB this driver calls, narrowed
// so tests can supply a fake without standing up real AWS infrastructure.
type dynamoAPI interface {
	ScanWithContext(aws.Context, *dynamodb.ScanInput, ...dynamoOpt) (*dynamodb.ScanOutput, error)
	QueryWithContext(aws.Context, *dynamodb.QueryInput, ...dynamoOpt) (*dynamodb.QueryOutput, error)
	PutItemWithContext(aws.Context, *dynamodb.PutItemInput, ...dynamoOpt) (*dynamodb.PutItemOutput, error)
	DeleteItemWithContext(aws.Context, *dynamodb.DeleteItemInput, ...dynamoOpt) (*dynamodb.DeleteItemOutput, error)
	BatchWriteItemWithContext(aws.Context, *dynamodb.BatchWriteItemInput, ...dynamoOpt) (*dynamodb.BatchWriteItemOutput, error)
}

type dynamoOpt = request.Option

// Store is the DynamoDB-backed driver.
type Store struct {
	db           dynamoAPI
	versionTable string
	dataTable    string
	limiter      *rate.Limiter
	logger       *slog.Logger
}

// New builds a Store from an AWS session using cfg.Region/Endpoint.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.VersionTable == "" || cfg.DataTable == "" {
		return nil, fmt.Errorf("kvtable: VersionTable and DataTable must be set")
	}
	awsCfg := aws.NewConfig()
	if cfg.Region != "" {
		awsCfg = awsCfg.WithRegion(cfg.Region)
	}
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
	}

	return newWithAPI(dynamodb.New(sess), cfg, logger), nil
}

// newWithAPI wires a Store against any dynamoAPI implementation — the real
// client in production, a fake in tests.
func newWithAPI(api dynamoAPI, cfg Config, logger *slog.Logger) *Store {
	limit := cfg.WriteRateLimit
	if limit == 0 {
		limit = rate.Limit(25)
	}
	return &Store{
		db:           api,
		versionTable: cfg.VersionTable,
		dataTable:    cfg.DataTable,
		limiter:      rate.NewLimiter(limit, batchSize),
		logger:       logger,
	}
}

type versionItem struct {
	VersionID     string `dynamodbav:"versionId"`
	CreatedAt     int64  `dynamodbav:"createdAt"`
	MasterRelease string `dynamodbav:"masterRelease"`
	Description   string `dynamodbav:"description"`
	ExpiresAt     int64  `dynamodbav:"expiresAt,omitempty"`
}

type dataItem struct {
	VersionID string `dynamodbav:"versionId"`
	DataID    string `dynamodbav:"dataId"`
	Kind      string `dynamodbav:"kind"`
	Name      string `dynamodbav:"name"`
	Payload   []byte `dynamodbav:"payload"`
	ExpiresAt int64  `dynamodbav:"expiresAt,omitempty"`
}

func compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	if _, err := gw.Write(payload); err != nil {
		return nil, err
	}
	if err := gw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(blob []byte) ([]byte, error) {
	gr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	return io.ReadAll(gr)
}

func (s *Store) ListVersions(ctx context.Context, filter store.VersionFilter) ([]store.VersionMetaRow, error) {
	input := &dynamodb.ScanInput{TableName: aws.String(s.versionTable)}
	if filter.MasterRelease != "" {
		input.FilterExpression = aws.String("masterRelease = :r")
		input.ExpressionAttributeValues = map[string]*dynamodb.AttributeValue{
			":r": {S: aws.String(filter.MasterRelease)},
		}
	}
	out, err := s.db.ScanWithContext(ctx, input)
	if err != nil {
		return nil, &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
	}
	rows := make([]store.VersionMetaRow, 0, len(out.Items))
	for _, item := range out.Items {
		var v versionItem
		if err := dynamodbattribute.UnmarshalMap(item, &v); err != nil {
			continue
		}
		rows = append(rows, store.VersionMetaRow{
			VersionID: v.VersionID, CreatedAt: v.CreatedAt,
			MasterRelease: v.MasterRelease, Description: v.Description,
			ExpiresAt: v.ExpiresAt,
		})
	}
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}
	return rows, nil
}

func (s *Store) PutVersion(ctx context.Context, meta store.VersionMetaRow) error {
	item, err := dynamodbattribute.MarshalMap(versionItem{
		VersionID: meta.VersionID, CreatedAt: meta.CreatedAt,
		MasterRelease: meta.MasterRelease, Description: meta.Description,
	})
	if err != nil {
		return &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
	}
	if _, err := s.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.versionTable), Item: item,
	}); err != nil {
		return &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
	}
	return nil
}

// PutRecords batches writes in groups of batchSize, each gated by the
// limiter so a large snapshot doesn't burst past provisioned throughput.
func (s *Store) PutRecords(ctx context.Context, versionID string, records []store.StoredRecord) error {
	for start := 0; start < len(records); start += batchSize {
		end := start + batchSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]

		writes := make([]*dynamodb.WriteRequest, 0, len(chunk))
		for _, r := range chunk {
			compressed, err := compress(r.Payload)
			if err != nil {
				return &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
			}
			if len(compressed) > MaxRecordSize {
				return &store.ErrRecordTooLarge{DataID: r.DataID, Size: len(compressed), MaxSize: MaxRecordSize}
			}
			item, err := dynamodbattribute.MarshalMap(dataItem{
				VersionID: versionID, DataID: r.DataID, Kind: r.Kind, Name: r.Name, Payload: compressed,
			})
			if err != nil {
				return &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
			}
			writes = append(writes, &dynamodb.WriteRequest{
				PutRequest: &dynamodb.PutRequest{Item: item},
			})
		}

		if err := s.limiter.WaitN(ctx, len(writes)); err != nil {
			return &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
		}

		if _, err := s.db.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]*dynamodb.WriteRequest{s.dataTable: writes},
		}); err != nil {
			return &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
		}
	}
	return nil
}

func (s *Store) GetRecords(ctx context.Context, versionID string) ([]store.StoredRecord, error) {
	out, err := s.db.QueryWithContext(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.dataTable),
		KeyConditionExpression: aws.String("versionId = :v"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":v": {S: aws.String(versionID)},
		},
	})
	if err != nil {
		return nil, &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
	}
	if len(out.Items) == 0 {
		return nil, &store.ErrVersionNotFound{VersionID: versionID}
	}
	records := make([]store.StoredRecord, 0, len(out.Items))
	for _, item := range out.Items {
		var d dataItem
		if err := dynamodbattribute.UnmarshalMap(item, &d); err != nil {
			continue
		}
		payload, err := decompress(d.Payload)
		if err != nil {
			return nil, &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
		}
		records = append(records, store.StoredRecord{DataID: d.DataID, Kind: d.Kind, Name: d.Name, Payload: payload})
	}
	return records, nil
}

// DeleteVersion tombstones the version row with an expiresAt in the past
// rather than deleting it outright, relying on the table's TTL attribute
// to sweep it later (resolved Open Question 3). Until the sweep,
// ListVersions still returns the tombstoned row, with ExpiresAt set.
func (s *Store) DeleteVersion(ctx context.Context, versionID string) error {
	versions, err := s.ListVersions(ctx, store.VersionFilter{})
	if err != nil {
		return err
	}
	for _, v := range versions {
		if v.VersionID != versionID {
			continue
		}
		item, err := dynamodbattribute.MarshalMap(versionItem{
			VersionID: v.VersionID, CreatedAt: v.CreatedAt, MasterRelease: v.MasterRelease,
			Description: v.Description, ExpiresAt: time.Now().Add(-time.Minute).Unix(),
		})
		if err != nil {
			return &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
		}
		if _, err := s.db.PutItemWithContext(ctx, &dynamodb.PutItemInput{
			TableName: aws.String(s.versionTable), Item: item,
		}); err != nil {
			return &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
		}
	}
	return nil
}

func (s *Store) DeleteRecord(ctx context.Context, versionID, dataID string) error {
	_, err := s.db.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.dataTable),
		Key: map[string]*dynamodb.AttributeValue{
			"versionId": {S: aws.String(versionID)},
			"dataId":    {S: aws.String(dataID)},
		},
	})
	if err != nil {
		return &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
	}
	return nil
}

func (s *Store) Clear(ctx context.Context, scope store.Scope) error {
	if scope == store.ScopeAll || scope == store.ScopeVersions {
		if err := s.clearTable(ctx, s.versionTable, "versionId", "createdAt"); err != nil {
			return err
		}
	}
	if scope == store.ScopeAll || scope == store.ScopeData {
		if err := s.clearTable(ctx, s.dataTable, "versionId", "dataId"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) clearTable(ctx context.Context, table, pk, sk string) error {
	out, err := s.db.ScanWithContext(ctx, &dynamodb.ScanInput{TableName: aws.String(table)})
	if err != nil {
		return &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
	}
	for _, item := range out.Items {
		if _, err := s.db.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(table),
			Key: map[string]*dynamodb.AttributeValue{
				pk: item[pk],
				sk: item[sk],
			},
		}); err != nil {
			return &store.ErrWriteFailed{Backend: "kvtable", Cause: err}
		}
	}
	return nil
}

func (s *Store) Close() error { return nil }
